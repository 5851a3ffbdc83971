package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aeonisk/arbiter/internal/domain"
	"github.com/aeonisk/arbiter/internal/pagination"
)

// CharacterRepository persists the character registry. Attribute and skill
// maps are stored as JSONB so new stats never need a schema change.
type CharacterRepository struct {
	db dbtx
}

func NewCharacterRepository(pool *pgxpool.Pool) *CharacterRepository {
	return &CharacterRepository{db: pool}
}

func NewCharacterRepositoryWithTx(tx pgx.Tx) *CharacterRepository {
	return &CharacterRepository{db: tx}
}

func (r *CharacterRepository) Create(ctx context.Context, c *domain.Character) error {
	attrs, err := json.Marshal(c.Attributes)
	if err != nil {
		return err
	}
	skills, err := json.Marshal(c.Skills)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO characters (id, name, concept, true_will, void_score, soulcredit, attributes, skills, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.Name, nullableString(c.Concept), nullableString(c.TrueWill),
		c.VoidScore, c.Soulcredit, attrs, skills, c.CreatedAt, c.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrCharacterAlreadyExists
	}
	return err
}

func (r *CharacterRepository) GetByID(ctx context.Context, id string) (*domain.Character, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, name, concept, true_will, void_score, soulcredit, attributes, skills, created_at, updated_at
		 FROM characters WHERE id = $1`,
		id,
	)
	return scanCharacter(row)
}

// GetByName matches case-insensitively so the model's casing of a name
// never misses a registered character.
func (r *CharacterRepository) GetByName(ctx context.Context, name string) (*domain.Character, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, name, concept, true_will, void_score, soulcredit, attributes, skills, created_at, updated_at
		 FROM characters WHERE LOWER(name) = LOWER($1)`,
		name,
	)
	return scanCharacter(row)
}

func (r *CharacterRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*pagination.PageResult[*domain.Character], error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, name, concept, true_will, void_score, soulcredit, attributes, skills, created_at, updated_at
			 FROM characters
			 WHERE (updated_at, id) < ($1, $2)
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, name, concept, true_will, void_score, soulcredit, attributes, skills, created_at, updated_at
			 FROM characters
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $1`,
			limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.Character
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.UpdatedAt)
	}

	return &pagination.PageResult[*domain.Character]{
		Items:   items,
		Cursor:  nextCursor,
		HasMore: hasMore,
	}, nil
}

func (r *CharacterRepository) Update(ctx context.Context, c *domain.Character) error {
	attrs, err := json.Marshal(c.Attributes)
	if err != nil {
		return err
	}
	skills, err := json.Marshal(c.Skills)
	if err != nil {
		return err
	}

	c.UpdatedAt = time.Now().UTC()
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE characters
		 SET name = $1, concept = $2, true_will = $3, void_score = $4, soulcredit = $5,
		     attributes = $6, skills = $7, updated_at = $8
		 WHERE id = $9`,
		c.Name, nullableString(c.Concept), nullableString(c.TrueWill),
		c.VoidScore, c.Soulcredit, attrs, skills, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrCharacterNotFound
	}
	return nil
}

func (r *CharacterRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM characters WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrCharacterNotFound
	}
	return nil
}

func scanCharacter(row pgx.Row) (*domain.Character, error) {
	var c domain.Character
	var concept, trueWill *string
	var attrs, skills []byte
	err := row.Scan(&c.ID, &c.Name, &concept, &trueWill, &c.VoidScore, &c.Soulcredit, &attrs, &skills, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCharacterNotFound
		}
		return nil, err
	}
	if concept != nil {
		c.Concept = *concept
	}
	if trueWill != nil {
		c.TrueWill = *trueWill
	}
	if err := json.Unmarshal(attrs, &c.Attributes); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(skills, &c.Skills); err != nil {
		return nil, err
	}
	return &c, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

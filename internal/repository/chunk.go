package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/aeonisk/arbiter/internal/domain"
	"github.com/aeonisk/arbiter/internal/service"
)

// ChunkRepository persists rulebook content chunks and their embeddings.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// ReplaceAll deletes every stored chunk and inserts the new set. A content
// reload replaces the whole collection rather than merging.
func (r *ChunkRepository) ReplaceAll(ctx context.Context, chunks []domain.ContentChunk) error {
	_, err := r.db.Exec(ctx, `DELETE FROM content_chunks`)
	if err != nil {
		return err
	}

	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO content_chunks
				(id, source, section, subsection, content_type, keywords, content, created_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID,
			c.Metadata.Source,
			nullableString(c.Metadata.Section),
			nullableString(c.Metadata.Subsection),
			string(c.Metadata.Type),
			c.Metadata.Keywords,
			c.Text,
			createdAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *ChunkRepository) GetByID(ctx context.Context, id string) (*domain.ContentChunk, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, source, section, subsection, content_type, keywords, content, created_at
		 FROM content_chunks WHERE id = $1`,
		id,
	)
	chunk, err := scanChunk(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChunkNotFound
		}
		return nil, err
	}
	return chunk, nil
}

// ListAll returns every stored chunk in ID order, for index warm-up at
// startup.
func (r *ChunkRepository) ListAll(ctx context.Context) ([]domain.ContentChunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, source, section, subsection, content_type, keywords, content, created_at
		 FROM content_chunks ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []domain.ContentChunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}
	return chunks, rows.Err()
}

// SetEmbedding writes the embedding vector for one chunk.
func (r *ChunkRepository) SetEmbedding(ctx context.Context, id string, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE content_chunks SET embedding = $1 WHERE id = $2`,
		pgvector.NewVector(embedding), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChunkNotFound
	}
	return nil
}

// SearchByEmbedding returns the chunks nearest to the query vector by
// cosine distance, with scores in (0, 1].
func (r *ChunkRepository) SearchByEmbedding(ctx context.Context, embedding []float32, limit int) ([]domain.ContentChunk, []float64, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, source, section, subsection, content_type, keywords, content, created_at,
		        1.0 / (1.0 + (embedding <=> $1)) AS score
		 FROM content_chunks
		 WHERE embedding IS NOT NULL
		 ORDER BY score DESC
		 LIMIT $2`,
		pgvector.NewVector(embedding), limit,
	)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var chunks []domain.ContentChunk
	var scores []float64
	for rows.Next() {
		var c domain.ContentChunk
		var section, subsection *string
		var contentType string
		var score float64
		if err := rows.Scan(&c.ID, &c.Metadata.Source, &section, &subsection, &contentType, &c.Metadata.Keywords, &c.Text, &c.CreatedAt, &score); err != nil {
			return nil, nil, err
		}
		if section != nil {
			c.Metadata.Section = *section
		}
		if subsection != nil {
			c.Metadata.Subsection = *subsection
		}
		c.Metadata.Type = domain.ContentType(contentType)
		chunks = append(chunks, c)
		scores = append(scores, score)
	}
	return chunks, scores, rows.Err()
}

// Stats summarizes stored content grouped by source file.
func (r *ChunkRepository) Stats(ctx context.Context) ([]service.SourceStat, error) {
	rows, err := r.db.Query(ctx,
		`SELECT source, COUNT(*), COUNT(embedding)
		 FROM content_chunks
		 GROUP BY source
		 ORDER BY source`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []service.SourceStat
	for rows.Next() {
		var s service.SourceStat
		if err := rows.Scan(&s.Source, &s.Chunks, &s.Embedded); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func scanChunk(row pgx.Row) (*domain.ContentChunk, error) {
	var c domain.ContentChunk
	var section, subsection *string
	var contentType string
	if err := row.Scan(&c.ID, &c.Metadata.Source, &section, &subsection, &contentType, &c.Metadata.Keywords, &c.Text, &c.CreatedAt); err != nil {
		return nil, err
	}
	if section != nil {
		c.Metadata.Section = *section
	}
	if subsection != nil {
		c.Metadata.Subsection = *subsection
	}
	c.Metadata.Type = domain.ContentType(contentType)
	return &c, nil
}

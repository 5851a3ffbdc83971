package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aeonisk/arbiter/internal/domain"
)

// SessionRepository persists chat sessions and their message transcripts.
type SessionRepository struct {
	db dbtx
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: pool}
}

func NewSessionRepositoryWithTx(tx pgx.Tx) *SessionRepository {
	return &SessionRepository{db: tx}
}

func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO sessions (id, title, character_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		s.ID, nullableString(s.Title), nullableString(s.CharacterID), s.CreatedAt, s.UpdatedAt,
	)
	return err
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	var s domain.Session
	var title, characterID *string
	err := r.db.QueryRow(ctx,
		`SELECT id, title, character_id, created_at, updated_at
		 FROM sessions WHERE id = $1`,
		id,
	).Scan(&s.ID, &title, &characterID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	if title != nil {
		s.Title = *title
	}
	if characterID != nil {
		s.CharacterID = *characterID
	}
	return &s, nil
}

func (r *SessionRepository) Touch(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE sessions SET updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepository) AppendMessage(ctx context.Context, m *domain.Message) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO messages (id, session_id, role, content, tool_call_id, tool_name, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.SessionID, string(m.Role), m.Content,
		nullableString(m.ToolCallID), nullableString(m.ToolName), m.CreatedAt,
	)
	return err
}

// RecentMessages returns the newest limit messages for a session in
// chronological order.
func (r *SessionRepository) RecentMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, session_id, role, content, tool_call_id, tool_name, created_at
		 FROM (
			 SELECT id, session_id, role, content, tool_call_id, tool_name, created_at
			 FROM messages
			 WHERE session_id = $1
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2
		 ) recent
		 ORDER BY created_at ASC, id ASC`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		var role string
		var toolCallID, toolName *string
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &toolCallID, &toolName, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Role = domain.MessageRole(role)
		if toolCallID != nil {
			m.ToolCallID = *toolCallID
		}
		if toolName != nil {
			m.ToolName = *toolName
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

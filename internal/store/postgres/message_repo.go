package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"carechat/backend/internal/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, author_id, content, created_at, read_at)
		VALUES ($1, $2, $3, $4, $5, NULL)
	`, m.ID, m.ConversationID, m.AuthorID, m.Content, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	m := &domain.Message{}
	var readAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, author_id, content, created_at, read_at
		FROM messages
		WHERE id = $1
	`, id).Scan(&m.ID, &m.ConversationID, &m.AuthorID, &m.Content, &m.CreatedAt, &readAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	if readAt.Valid {
		m.ReadAt = &readAt.Time
	}
	return m, nil
}

// ListForConversation returns the newest messages first; callers reverse
// for chronological display.
func (r *MessageRepo) ListForConversation(ctx context.Context, conversationID string, limit int) ([]*domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, conversation_id, author_id, content, created_at, read_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var res []*domain.Message
	for rows.Next() {
		m := &domain.Message{}
		var readAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.AuthorID, &m.Content, &m.CreatedAt, &readAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if readAt.Valid {
			m.ReadAt = &readAt.Time
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

// MarkConversationRead never touches the reader's own messages.
func (r *MessageRepo) MarkConversationRead(ctx context.Context, conversationID, readerID string, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages
		SET read_at = $1
		WHERE conversation_id = $2 AND author_id <> $3 AND read_at IS NULL
	`, at, conversationID, readerID)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"carechat/backend/internal/domain"
)

type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

var _ domain.ConversationRepository = (*ConversationRepo)(nil)

func (r *ConversationRepo) FindOrCreate(ctx context.Context, practitionerID, clientID string) (*domain.Conversation, error) {
	if conv, err := r.findByPair(ctx, practitionerID, clientID); err != nil || conv != nil {
		return conv, err
	}

	now := time.Now().UTC()
	// ON CONFLICT DO NOTHING keeps a concurrent create from duplicating
	// the pair; the re-select below picks up whichever insert won.
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversations (id, practitioner_id, client_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (practitioner_id, client_id) DO NOTHING
	`, uuid.NewString(), practitionerID, clientID, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}

	conv, err := r.findByPair(ctx, practitionerID, clientID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, fmt.Errorf("find-or-create conversation: %w", domain.ErrNotFound)
	}
	return conv, nil
}

func (r *ConversationRepo) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, practitioner_id, client_id, created_at, updated_at
		FROM conversations
		WHERE id = ?
	`, id))
}

func (r *ConversationRepo) ListForUser(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, practitioner_id, client_id, created_at, updated_at
		FROM conversations
		WHERE practitioner_id = ? OR client_id = ?
		ORDER BY updated_at DESC
	`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var res []*domain.Conversation
	for rows.Next() {
		c := &domain.Conversation{}
		if err := rows.Scan(&c.ID, &c.PractitionerID, &c.ClientID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r *ConversationRepo) Touch(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE conversations SET updated_at = ? WHERE id = ?
	`, at, id)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("touch conversation %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *ConversationRepo) findByPair(ctx context.Context, practitionerID, clientID string) (*domain.Conversation, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, practitioner_id, client_id, created_at, updated_at
		FROM conversations
		WHERE practitioner_id = ? AND client_id = ?
	`, practitionerID, clientID))
}

func (r *ConversationRepo) scanOne(row *sql.Row) (*domain.Conversation, error) {
	c := &domain.Conversation{}
	err := row.Scan(&c.ID, &c.PractitionerID, &c.ClientID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	return c, nil
}

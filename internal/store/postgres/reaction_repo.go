package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"carechat/backend/internal/domain"
)

type ReactionRepo struct {
	db *sql.DB
}

func NewReactionRepo(db *sql.DB) *ReactionRepo {
	return &ReactionRepo{db: db}
}

var _ domain.ReactionRepository = (*ReactionRepo)(nil)

// Upsert relies on the UNIQUE(message_id, user_id, emoji) index: the
// insert is a no-op when the triple exists, and the stored row is loaded
// back into r so repeated adds observe identical state.
func (r *ReactionRepo) Upsert(ctx context.Context, reaction *domain.Reaction) (bool, error) {
	if reaction.ID == "" {
		reaction.ID = uuid.NewString()
	}
	if reaction.CreatedAt.IsZero() {
		reaction.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO reactions (id, message_id, user_id, emoji, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (message_id, user_id, emoji) DO NOTHING
	`, reaction.ID, reaction.MessageID, reaction.UserID, reaction.Emoji, reaction.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert reaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return true, nil
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT id, created_at FROM reactions
		WHERE message_id = $1 AND user_id = $2 AND emoji = $3
	`, reaction.MessageID, reaction.UserID, reaction.Emoji).Scan(&reaction.ID, &reaction.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("load existing reaction: %w", err)
	}
	return false, nil
}

func (r *ReactionRepo) Delete(ctx context.Context, messageID, userID, emoji string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM reactions
		WHERE message_id = $1 AND user_id = $2 AND emoji = $3
	`, messageID, userID, emoji)
	if err != nil {
		return false, fmt.Errorf("delete reaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *ReactionRepo) ListForMessage(ctx context.Context, messageID string) ([]*domain.Reaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, message_id, user_id, emoji, created_at
		FROM reactions
		WHERE message_id = $1
		ORDER BY created_at ASC
	`, messageID)
	if err != nil {
		return nil, fmt.Errorf("list reactions: %w", err)
	}
	defer rows.Close()

	var res []*domain.Reaction
	for rows.Next() {
		reaction := &domain.Reaction{}
		if err := rows.Scan(&reaction.ID, &reaction.MessageID, &reaction.UserID, &reaction.Emoji, &reaction.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reaction: %w", err)
		}
		res = append(res, reaction)
	}
	return res, rows.Err()
}

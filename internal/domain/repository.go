package domain

import (
	"context"
	"time"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
}

// ConversationRepository defines persistence operations for conversations.
type ConversationRepository interface {
	// FindOrCreate returns the conversation for the given pair, creating it
	// if absent. The unique (practitioner_id, client_id) index guarantees at
	// most one row per pair even under concurrent calls.
	FindOrCreate(ctx context.Context, practitionerID, clientID string) (*Conversation, error)
	GetByID(ctx context.Context, id string) (*Conversation, error)
	ListForUser(ctx context.Context, userID string) ([]*Conversation, error)
	// Touch bumps the conversation's updated_at. Callers treat failures as
	// best-effort: a message is still delivered if the touch fails.
	Touch(ctx context.Context, id string, at time.Time) error
}

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id string) (*Message, error)
	ListForConversation(ctx context.Context, conversationID string, limit int) ([]*Message, error)
	// MarkConversationRead sets read_at on every unread message in the
	// conversation that was not authored by readerID, and returns how many
	// rows changed.
	MarkConversationRead(ctx context.Context, conversationID, readerID string, at time.Time) (int64, error)
}

// ReactionRepository defines persistence operations for reactions.
type ReactionRepository interface {
	// Upsert inserts the reaction if the (message, user, emoji) triple is
	// new and reports whether a row was created. When the triple already
	// exists the stored reaction is returned unchanged.
	Upsert(ctx context.Context, r *Reaction) (created bool, err error)
	// Delete removes the triple if present and reports whether a row was
	// actually deleted.
	Delete(ctx context.Context, messageID, userID, emoji string) (removed bool, err error)
	ListForMessage(ctx context.Context, messageID string) ([]*Reaction, error)
}

package domain

import "time"

// User roles within a practice.
const (
	RolePractitioner = "practitioner"
	RoleClient       = "client"
)

// User represents a portal user (practitioner or client). Only the fields
// the messaging gateway needs are modeled; account management lives in the
// main application.
type User struct {
	ID          string    `db:"id" json:"id"`
	DisplayName string    `db:"display_name" json:"display_name"`
	Role        string    `db:"role" json:"role"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Conversation pairs exactly one practitioner with one client. At most one
// conversation exists per (practitioner, client) pair; the store enforces
// this with a unique index and FindOrCreate.
type Conversation struct {
	ID             string    `db:"id"`
	PractitionerID string    `db:"practitioner_id"`
	ClientID       string    `db:"client_id"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// ParticipantIDs returns both member ids of the conversation.
func (c *Conversation) ParticipantIDs() []string {
	return []string{c.PractitionerID, c.ClientID}
}

// Message is a single chat message. Immutable once created except for
// ReadAt, which is set by the read-receipt path and only for messages not
// authored by the reader.
type Message struct {
	ID             string     `db:"id"`
	ConversationID string     `db:"conversation_id"`
	AuthorID       string     `db:"author_id"`
	Content        string     `db:"content"`
	CreatedAt      time.Time  `db:"created_at"`
	ReadAt         *time.Time `db:"read_at"`
}

// Reaction is an emoji reaction to a message, unique per
// (message_id, user_id, emoji). Adding an existing reaction is a no-op,
// removing a missing one reports "not removed" rather than failing.
type Reaction struct {
	ID        string    `db:"id" json:"id"`
	MessageID string    `db:"message_id" json:"message_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Emoji     string    `db:"emoji" json:"emoji"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

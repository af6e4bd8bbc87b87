package hub

import (
	"fmt"

	"carechat/backend/internal/domain"
)

// Inbound event types. The set is closed: anything else is rejected at the
// boundary before reaching business logic.
const (
	EventJoinConversation  = "join_conversation"
	EventLeaveConversation = "leave_conversation"
	EventMessage           = "message"
	EventTyping            = "typing"
	EventMarkRead          = "mark_read"
	EventAddReaction       = "add_reaction"
	EventRemoveReaction    = "remove_reaction"
	EventGetUserStatus     = "get_user_status"
	EventGetOnlineUsers    = "get_online_users"
	EventHistory           = "history"
)

// Outbound event types.
const (
	EventMessagesRead     = "messages_read"
	EventReactionAdded    = "reaction_added"
	EventReactionRemoved  = "reaction_removed"
	EventUserStatus       = "user_status"
	EventOnlineUsers      = "online_users"
	EventUserStatusChange = "user_status_change"
	EventError            = "error"
)

// Event is the inbound wire envelope. One flat struct tagged by Type keeps
// decoding a single pass; Validate enforces the per-type required fields.
type Event struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
	MessageID      string `json:"message_id,omitempty"`
	Content        string `json:"content,omitempty"`
	Emoji          string `json:"emoji,omitempty"`
	UserID         string `json:"user_id,omitempty"`
	AuthorID       string `json:"author_id,omitempty"`
	IsTyping       bool   `json:"is_typing,omitempty"`
}

// Validate checks the required fields for the event's type. It returns
// domain.ErrInvalidInput (wrapped) on any violation, including unknown
// types.
func (e *Event) Validate() error {
	switch e.Type {
	case EventJoinConversation, EventLeaveConversation, EventTyping, EventMarkRead, EventHistory:
		if e.ConversationID == "" {
			return fmt.Errorf("%w: %s requires conversation_id", domain.ErrInvalidInput, e.Type)
		}
	case EventMessage:
		if e.ConversationID == "" {
			return fmt.Errorf("%w: message requires conversation_id", domain.ErrInvalidInput)
		}
		if e.Content == "" {
			return fmt.Errorf("%w: message requires non-empty content", domain.ErrInvalidInput)
		}
	case EventAddReaction, EventRemoveReaction:
		if e.MessageID == "" {
			return fmt.Errorf("%w: %s requires message_id", domain.ErrInvalidInput, e.Type)
		}
		if e.Emoji == "" {
			return fmt.Errorf("%w: %s requires emoji", domain.ErrInvalidInput, e.Type)
		}
	case EventGetUserStatus:
		if e.UserID == "" {
			return fmt.Errorf("%w: get_user_status requires user_id", domain.ErrInvalidInput)
		}
	case EventGetOnlineUsers:
		// no fields
	default:
		return fmt.Errorf("%w: unknown event type %q", domain.ErrInvalidInput, e.Type)
	}
	return nil
}

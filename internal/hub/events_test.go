package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"carechat/backend/internal/domain"
)

func TestEventValidate(t *testing.T) {
	tests := []struct {
		name    string
		ev      Event
		wantErr bool
	}{
		{"join ok", Event{Type: EventJoinConversation, ConversationID: "c1"}, false},
		{"join missing conversation", Event{Type: EventJoinConversation}, true},
		{"leave ok", Event{Type: EventLeaveConversation, ConversationID: "c1"}, false},
		{"message ok", Event{Type: EventMessage, ConversationID: "c1", Content: "hi"}, false},
		{"message empty content", Event{Type: EventMessage, ConversationID: "c1"}, true},
		{"message missing conversation", Event{Type: EventMessage, Content: "hi"}, true},
		{"typing ok", Event{Type: EventTyping, ConversationID: "c1", IsTyping: true}, false},
		{"mark_read ok", Event{Type: EventMarkRead, ConversationID: "c1"}, false},
		{"add_reaction ok", Event{Type: EventAddReaction, MessageID: "m1", Emoji: "👍"}, false},
		{"add_reaction missing emoji", Event{Type: EventAddReaction, MessageID: "m1"}, true},
		{"remove_reaction missing message", Event{Type: EventRemoveReaction, Emoji: "👍"}, true},
		{"get_user_status ok", Event{Type: EventGetUserStatus, UserID: "u1"}, false},
		{"get_user_status missing user", Event{Type: EventGetUserStatus}, true},
		{"get_online_users ok", Event{Type: EventGetOnlineUsers}, false},
		{"history ok", Event{Type: EventHistory, ConversationID: "c1"}, false},
		{"unknown type", Event{Type: "call_offer"}, true},
		{"empty type", Event{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ev.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

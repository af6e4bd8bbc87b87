package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"carechat/backend/internal/domain"
)

const maxContentRunes = 5000

// ChatService implements the persistence side of the messaging core: the
// message pipeline, reaction aggregation and read receipts. Broadcasting
// is the caller's concern; every method returns enough context (the owning
// conversation id) for the gateway to publish afterwards.
type ChatService struct {
	conversations domain.ConversationRepository
	messages      domain.MessageRepository
	reactions     domain.ReactionRepository
	users         domain.UserRepository
}

func NewChatService(
	conversations domain.ConversationRepository,
	messages domain.MessageRepository,
	reactions domain.ReactionRepository,
	users domain.UserRepository,
) *ChatService {
	return &ChatService{
		conversations: conversations,
		messages:      messages,
		reactions:     reactions,
		users:         users,
	}
}

// MessageView is a message hydrated with author display fields, as
// broadcast to rooms and returned from history.
type MessageView struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	AuthorID       string     `json:"author_id"`
	AuthorName     string     `json:"author_name"`
	Content        string     `json:"content"`
	CreatedAt      time.Time  `json:"created_at"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
}

// SendMessage validates and persists a message, then best-effort bumps the
// conversation's activity timestamp. A touch failure is logged and does
// not fail the send: the message is considered delivered once stored.
func (s *ChatService) SendMessage(ctx context.Context, conversationID, authorID, content string) (*MessageView, error) {
	if conversationID == "" || authorID == "" || content == "" {
		return nil, fmt.Errorf("%w: conversation_id, author_id and content are required", domain.ErrInvalidInput)
	}
	if len([]rune(content)) > maxContentRunes {
		return nil, fmt.Errorf("%w: message content exceeds %d characters", domain.ErrInvalidInput, maxContentRunes)
	}

	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return nil, fmt.Errorf("%w: conversation %s", domain.ErrNotFound, conversationID)
	}

	msg := &domain.Message{
		ConversationID: conversationID,
		AuthorID:       authorID,
		Content:        content,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	if err := s.conversations.Touch(ctx, conversationID, time.Now().UTC()); err != nil {
		log.Printf("chat: touch conversation %s: %v", conversationID, err)
	}

	return s.toView(ctx, msg), nil
}

// AddReaction upserts a (message, user, emoji) reaction. Re-adding an
// existing reaction returns the stored row unchanged and no error. The
// owning conversation id is returned for room-scoped broadcast.
func (s *ChatService) AddReaction(ctx context.Context, messageID, userID, emoji string) (*domain.Reaction, string, error) {
	if messageID == "" || userID == "" || emoji == "" {
		return nil, "", fmt.Errorf("%w: message_id, user_id and emoji are required", domain.ErrInvalidInput)
	}

	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, "", fmt.Errorf("get message: %w", err)
	}
	if msg == nil {
		return nil, "", fmt.Errorf("%w: message %s", domain.ErrNotFound, messageID)
	}

	r := &domain.Reaction{
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
	}
	if _, err := s.reactions.Upsert(ctx, r); err != nil {
		return nil, "", fmt.Errorf("upsert reaction: %w", err)
	}
	return r, msg.ConversationID, nil
}

// RemoveReaction deletes the triple if present and reports whether a row
// was actually removed. Callers broadcast only on an effective remove.
func (s *ChatService) RemoveReaction(ctx context.Context, messageID, userID, emoji string) (bool, string, error) {
	if messageID == "" || userID == "" || emoji == "" {
		return false, "", fmt.Errorf("%w: message_id, user_id and emoji are required", domain.ErrInvalidInput)
	}

	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return false, "", fmt.Errorf("get message: %w", err)
	}
	if msg == nil {
		return false, "", fmt.Errorf("%w: message %s", domain.ErrNotFound, messageID)
	}

	removed, err := s.reactions.Delete(ctx, messageID, userID, emoji)
	if err != nil {
		return false, "", fmt.Errorf("delete reaction: %w", err)
	}
	return removed, msg.ConversationID, nil
}

// MarkRead sets read_at on every unread message in the conversation not
// authored by the reader. The returned timestamp is broadcast even when
// zero rows changed: the receipt means "seen up to now", not "N changed".
func (s *ChatService) MarkRead(ctx context.Context, conversationID, userID string) (int64, time.Time, error) {
	if conversationID == "" || userID == "" {
		return 0, time.Time{}, fmt.Errorf("%w: conversation_id and user_id are required", domain.ErrInvalidInput)
	}

	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return 0, time.Time{}, fmt.Errorf("%w: conversation %s", domain.ErrNotFound, conversationID)
	}

	at := time.Now().UTC()
	n, err := s.messages.MarkConversationRead(ctx, conversationID, userID, at)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("mark read: %w", err)
	}
	return n, at, nil
}

// History returns the most recent messages of a conversation in
// chronological order, hydrated with author names.
func (s *ChatService) History(ctx context.Context, conversationID string, limit int) ([]*MessageView, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("%w: conversation_id is required", domain.ErrInvalidInput)
	}

	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return nil, fmt.Errorf("%w: conversation %s", domain.ErrNotFound, conversationID)
	}

	msgs, err := s.messages.ListForConversation(ctx, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	// Reverse to chronological order (store returns newest first).
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	names := make(map[string]string)
	views := make([]*MessageView, 0, len(msgs))
	for _, m := range msgs {
		name, ok := names[m.AuthorID]
		if !ok {
			if u, err := s.users.GetByID(ctx, m.AuthorID); err == nil && u != nil {
				name = u.DisplayName
			}
			names[m.AuthorID] = name
		}
		views = append(views, &MessageView{
			ID:             m.ID,
			ConversationID: m.ConversationID,
			AuthorID:       m.AuthorID,
			AuthorName:     name,
			Content:        m.Content,
			CreatedAt:      m.CreatedAt,
			ReadAt:         m.ReadAt,
		})
	}
	return views, nil
}

// FindOrCreateConversation returns the unique conversation for a
// practitioner/client pair, creating it on first contact.
func (s *ChatService) FindOrCreateConversation(ctx context.Context, practitionerID, clientID string) (*domain.Conversation, error) {
	if practitionerID == "" || clientID == "" {
		return nil, fmt.Errorf("%w: practitioner_id and client_id are required", domain.ErrInvalidInput)
	}
	if practitionerID == clientID {
		return nil, fmt.Errorf("%w: a conversation needs two distinct members", domain.ErrInvalidInput)
	}
	return s.conversations.FindOrCreate(ctx, practitionerID, clientID)
}

// GetConversation resolves a conversation or domain.ErrNotFound.
func (s *ChatService) GetConversation(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return nil, fmt.Errorf("%w: conversation %s", domain.ErrNotFound, conversationID)
	}
	return conv, nil
}

func (s *ChatService) toView(ctx context.Context, m *domain.Message) *MessageView {
	var name string
	if u, err := s.users.GetByID(ctx, m.AuthorID); err == nil && u != nil {
		name = u.DisplayName
	}
	return &MessageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		AuthorID:       m.AuthorID,
		AuthorName:     name,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
		ReadAt:         m.ReadAt,
	}
}

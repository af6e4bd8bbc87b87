package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"carechat/backend/internal/domain"
	"carechat/backend/internal/service"
)

type MockConversationRepo struct {
	mock.Mock
}

func (m *MockConversationRepo) FindOrCreate(ctx context.Context, practitionerID, clientID string) (*domain.Conversation, error) {
	args := m.Called(ctx, practitionerID, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepo) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepo) ListForUser(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepo) Touch(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

type MockMessageRepo struct {
	mock.Mock
}

func (m *MockMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) ListForConversation(ctx context.Context, conversationID string, limit int) ([]*domain.Message, error) {
	args := m.Called(ctx, conversationID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) MarkConversationRead(ctx context.Context, conversationID, readerID string, at time.Time) (int64, error) {
	args := m.Called(ctx, conversationID, readerID, at)
	return args.Get(0).(int64), args.Error(1)
}

type MockReactionRepo struct {
	mock.Mock
}

func (m *MockReactionRepo) Upsert(ctx context.Context, r *domain.Reaction) (bool, error) {
	args := m.Called(ctx, r)
	return args.Bool(0), args.Error(1)
}

func (m *MockReactionRepo) Delete(ctx context.Context, messageID, userID, emoji string) (bool, error) {
	args := m.Called(ctx, messageID, userID, emoji)
	return args.Bool(0), args.Error(1)
}

func (m *MockReactionRepo) ListForMessage(ctx context.Context, messageID string) ([]*domain.Reaction, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Reaction), args.Error(1)
}

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type chatFixture struct {
	conversations *MockConversationRepo
	messages      *MockMessageRepo
	reactions     *MockReactionRepo
	users         *MockUserRepo
	svc           *service.ChatService
}

func newChatFixture() *chatFixture {
	f := &chatFixture{
		conversations: new(MockConversationRepo),
		messages:      new(MockMessageRepo),
		reactions:     new(MockReactionRepo),
		users:         new(MockUserRepo),
	}
	f.svc = service.NewChatService(f.conversations, f.messages, f.reactions, f.users)
	return f
}

func TestSendMessage(t *testing.T) {
	ctx := context.Background()
	conv := &domain.Conversation{ID: "c1", PractitionerID: "p1", ClientID: "u1"}

	t.Run("Success", func(t *testing.T) {
		f := newChatFixture()
		f.conversations.On("GetByID", mock.Anything, "c1").Return(conv, nil)
		f.messages.On("Create", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
			return m.ConversationID == "c1" && m.AuthorID == "u1" && m.Content == "hello"
		})).Run(func(args mock.Arguments) {
			m := args.Get(1).(*domain.Message)
			m.ID = "m1"
			m.CreatedAt = time.Now().UTC()
		}).Return(nil)
		f.conversations.On("Touch", mock.Anything, "c1", mock.AnythingOfType("time.Time")).Return(nil)
		f.users.On("GetByID", mock.Anything, "u1").Return(&domain.User{ID: "u1", DisplayName: "Una"}, nil)

		view, err := f.svc.SendMessage(ctx, "c1", "u1", "hello")
		assert.NoError(t, err)
		assert.Equal(t, "m1", view.ID)
		assert.Equal(t, "Una", view.AuthorName)
		assert.Equal(t, "hello", view.Content)
		f.conversations.AssertCalled(t, "Touch", mock.Anything, "c1", mock.AnythingOfType("time.Time"))
	})

	t.Run("MissingFields", func(t *testing.T) {
		f := newChatFixture()

		_, err := f.svc.SendMessage(ctx, "c1", "u1", "")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		_, err = f.svc.SendMessage(ctx, "", "u1", "hello")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		_, err = f.svc.SendMessage(ctx, "c1", "", "hello")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		f.messages.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("ConversationNotFound", func(t *testing.T) {
		f := newChatFixture()
		f.conversations.On("GetByID", mock.Anything, "missing").Return(nil, nil)

		_, err := f.svc.SendMessage(ctx, "missing", "u1", "hello")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		f.messages.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("TouchFailureIsBestEffort", func(t *testing.T) {
		f := newChatFixture()
		f.conversations.On("GetByID", mock.Anything, "c1").Return(conv, nil)
		f.messages.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.conversations.On("Touch", mock.Anything, "c1", mock.Anything).Return(errors.New("db down"))
		f.users.On("GetByID", mock.Anything, "u1").Return(nil, nil)

		view, err := f.svc.SendMessage(ctx, "c1", "u1", "hello")
		assert.NoError(t, err, "a failed touch must not fail the send")
		assert.NotNil(t, view)
	})

	t.Run("PersistFailure", func(t *testing.T) {
		f := newChatFixture()
		f.conversations.On("GetByID", mock.Anything, "c1").Return(conv, nil)
		f.messages.On("Create", mock.Anything, mock.Anything).Return(errors.New("insert failed"))

		_, err := f.svc.SendMessage(ctx, "c1", "u1", "hello")
		assert.Error(t, err)
		f.conversations.AssertNotCalled(t, "Touch", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAddReaction(t *testing.T) {
	ctx := context.Background()
	msg := &domain.Message{ID: "m1", ConversationID: "c1", AuthorID: "u2"}

	t.Run("Success", func(t *testing.T) {
		f := newChatFixture()
		f.messages.On("GetByID", mock.Anything, "m1").Return(msg, nil)
		f.reactions.On("Upsert", mock.Anything, mock.MatchedBy(func(r *domain.Reaction) bool {
			return r.MessageID == "m1" && r.UserID == "u1" && r.Emoji == "👍"
		})).Return(true, nil)

		reaction, convID, err := f.svc.AddReaction(ctx, "m1", "u1", "👍")
		assert.NoError(t, err)
		assert.Equal(t, "c1", convID)
		assert.Equal(t, "👍", reaction.Emoji)
	})

	t.Run("DuplicateIsNoError", func(t *testing.T) {
		f := newChatFixture()
		f.messages.On("GetByID", mock.Anything, "m1").Return(msg, nil)
		f.reactions.On("Upsert", mock.Anything, mock.Anything).Return(false, nil)

		reaction, convID, err := f.svc.AddReaction(ctx, "m1", "u1", "👍")
		assert.NoError(t, err, "re-adding must be a no-op, not an error")
		assert.Equal(t, "c1", convID)
		assert.NotNil(t, reaction)
	})

	t.Run("MessageNotFound", func(t *testing.T) {
		f := newChatFixture()
		f.messages.On("GetByID", mock.Anything, "missing").Return(nil, nil)

		_, _, err := f.svc.AddReaction(ctx, "missing", "u1", "👍")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		f.reactions.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})
}

func TestRemoveReaction(t *testing.T) {
	ctx := context.Background()
	msg := &domain.Message{ID: "m1", ConversationID: "c1", AuthorID: "u2"}

	t.Run("Removed", func(t *testing.T) {
		f := newChatFixture()
		f.messages.On("GetByID", mock.Anything, "m1").Return(msg, nil)
		f.reactions.On("Delete", mock.Anything, "m1", "u1", "👍").Return(true, nil)

		removed, convID, err := f.svc.RemoveReaction(ctx, "m1", "u1", "👍")
		assert.NoError(t, err)
		assert.True(t, removed)
		assert.Equal(t, "c1", convID)
	})

	t.Run("NothingToRemove", func(t *testing.T) {
		f := newChatFixture()
		f.messages.On("GetByID", mock.Anything, "m1").Return(msg, nil)
		f.reactions.On("Delete", mock.Anything, "m1", "u1", "👍").Return(false, nil)

		removed, _, err := f.svc.RemoveReaction(ctx, "m1", "u1", "👍")
		assert.NoError(t, err, "removing a missing reaction reports not-removed, not failure")
		assert.False(t, removed)
	})
}

func TestMarkRead(t *testing.T) {
	ctx := context.Background()
	conv := &domain.Conversation{ID: "c1", PractitionerID: "p1", ClientID: "u1"}

	t.Run("Success", func(t *testing.T) {
		f := newChatFixture()
		f.conversations.On("GetByID", mock.Anything, "c1").Return(conv, nil)
		f.messages.On("MarkConversationRead", mock.Anything, "c1", "u1", mock.AnythingOfType("time.Time")).
			Return(int64(3), nil)

		n, at, err := f.svc.MarkRead(ctx, "c1", "u1")
		assert.NoError(t, err)
		assert.Equal(t, int64(3), n)
		assert.False(t, at.IsZero())
	})

	t.Run("ZeroRowsStillSucceeds", func(t *testing.T) {
		f := newChatFixture()
		f.conversations.On("GetByID", mock.Anything, "c1").Return(conv, nil)
		f.messages.On("MarkConversationRead", mock.Anything, "c1", "u1", mock.Anything).
			Return(int64(0), nil)

		n, at, err := f.svc.MarkRead(ctx, "c1", "u1")
		assert.NoError(t, err)
		assert.Zero(t, n)
		assert.False(t, at.IsZero(), "the receipt timestamp is broadcast even when nothing changed")
	})

	t.Run("ConversationNotFound", func(t *testing.T) {
		f := newChatFixture()
		f.conversations.On("GetByID", mock.Anything, "missing").Return(nil, nil)

		_, _, err := f.svc.MarkRead(ctx, "missing", "u1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	conv := &domain.Conversation{ID: "c1", PractitionerID: "p1", ClientID: "u1"}

	f := newChatFixture()
	f.conversations.On("GetByID", mock.Anything, "c1").Return(conv, nil)
	// store returns newest first
	f.messages.On("ListForConversation", mock.Anything, "c1", 50).Return([]*domain.Message{
		{ID: "m2", ConversationID: "c1", AuthorID: "u1", Content: "second"},
		{ID: "m1", ConversationID: "c1", AuthorID: "u1", Content: "first"},
	}, nil)
	f.users.On("GetByID", mock.Anything, "u1").Return(&domain.User{ID: "u1", DisplayName: "Una"}, nil)

	views, err := f.svc.History(ctx, "c1", 50)
	assert.NoError(t, err)
	assert.Len(t, views, 2)
	assert.Equal(t, "first", views[0].Content, "history must be chronological")
	assert.Equal(t, "second", views[1].Content)
	assert.Equal(t, "Una", views[0].AuthorName)

	// author lookup is cached per call
	f.users.AssertNumberOfCalls(t, "GetByID", 1)
}

func TestFindOrCreateConversation(t *testing.T) {
	ctx := context.Background()

	t.Run("Delegates", func(t *testing.T) {
		f := newChatFixture()
		conv := &domain.Conversation{ID: "c1", PractitionerID: "p1", ClientID: "u1"}
		f.conversations.On("FindOrCreate", mock.Anything, "p1", "u1").Return(conv, nil)

		got, err := f.svc.FindOrCreateConversation(ctx, "p1", "u1")
		assert.NoError(t, err)
		assert.Equal(t, conv, got)
	})

	t.Run("RejectsSelfPair", func(t *testing.T) {
		f := newChatFixture()
		_, err := f.svc.FindOrCreateConversation(ctx, "p1", "p1")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		f.conversations.AssertNotCalled(t, "FindOrCreate", mock.Anything, mock.Anything, mock.Anything)
	})
}

package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"worklink/internal/domain"
)

// Mock repositories shared by the service tests.

type MockConversationRepo struct {
	mock.Mock
}

func (m *MockConversationRepo) Create(ctx context.Context, c *domain.Conversation) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockConversationRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepo) FindDirect(ctx context.Context, a, b string) (*domain.Conversation, error) {
	args := m.Called(ctx, a, b)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepo) ListForParticipant(ctx context.Context, principalID string, page domain.Page) ([]*domain.Conversation, int64, error) {
	args := m.Called(ctx, principalID, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.Conversation), args.Get(1).(int64), args.Error(2)
}

func (m *MockConversationRepo) IDsForParticipant(ctx context.Context, principalID string) ([]primitive.ObjectID, error) {
	args := m.Called(ctx, principalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]primitive.ObjectID), args.Error(1)
}

func (m *MockConversationRepo) TouchOnNewMessage(ctx context.Context, conversationID, messageID primitive.ObjectID, sentAt time.Time) error {
	args := m.Called(ctx, conversationID, messageID, sentAt)
	return args.Error(0)
}

type MockMessageRepo struct {
	mock.Mock
}

func (m *MockMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) ListForConversation(ctx context.Context, conversationID primitive.ObjectID, page domain.Page) ([]*domain.Message, int64, error) {
	args := m.Called(ctx, conversationID, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.Message), args.Get(1).(int64), args.Error(2)
}

func (m *MockMessageRepo) SetContentEdited(ctx context.Context, id primitive.ObjectID, content string, editedAt time.Time) error {
	args := m.Called(ctx, id, content, editedAt)
	return args.Error(0)
}

func (m *MockMessageRepo) SoftDelete(ctx context.Context, id primitive.ObjectID, tombstone string, deletedAt time.Time) error {
	args := m.Called(ctx, id, tombstone, deletedAt)
	return args.Error(0)
}

func (m *MockMessageRepo) MarkRead(ctx context.Context, conversationID primitive.ObjectID, reader string, messageIDs []primitive.ObjectID, readAt time.Time) (int64, error) {
	args := m.Called(ctx, conversationID, reader, messageIDs, readAt)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessageRepo) CountUnread(ctx context.Context, conversationID primitive.ObjectID, reader string) (int64, error) {
	args := m.Called(ctx, conversationID, reader)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessageRepo) CountUnreadIn(ctx context.Context, conversationIDs []primitive.ObjectID, reader string) (int64, error) {
	args := m.Called(ctx, conversationIDs, reader)
	return args.Get(0).(int64), args.Error(1)
}

type MockConnectionRepo struct {
	mock.Mock
}

func (m *MockConnectionRepo) Create(ctx context.Context, c *domain.Connection) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockConnectionRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Connection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Connection), args.Error(1)
}

func (m *MockConnectionRepo) FindBetween(ctx context.Context, a, b string) (*domain.Connection, error) {
	args := m.Called(ctx, a, b)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Connection), args.Error(1)
}

func (m *MockConnectionRepo) SetStatus(ctx context.Context, id primitive.ObjectID, status domain.ConnectionStatus, resolvedAt time.Time) error {
	args := m.Called(ctx, id, status, resolvedAt)
	return args.Error(0)
}

func (m *MockConnectionRepo) AcceptedPeers(ctx context.Context, principalID string) ([]string, error) {
	args := m.Called(ctx, principalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockConnectionRepo) ListForPrincipal(ctx context.Context, principalID string, status domain.ConnectionStatus, page domain.Page) ([]*domain.Connection, int64, error) {
	args := m.Called(ctx, principalID, status, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.Connection), args.Get(1).(int64), args.Error(2)
}

// fakeTransport records pushed events for assertions. Broadcaster pushes on
// goroutines; call Broadcaster.Wait before reading.
type pushedEvent struct {
	Principal string
	Event     string
	Payload   any
}

type fakeTransport struct {
	mu     sync.Mutex
	err    error
	events []pushedEvent
}

func (f *fakeTransport) SendToPrincipal(principalID, event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, pushedEvent{Principal: principalID, Event: event, Payload: payload})
	return nil
}

func (f *fakeTransport) recorded() []pushedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pushedEvent(nil), f.events...)
}

func (f *fakeTransport) eventsFor(principalID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []string
	for _, e := range f.events {
		if e.Principal == principalID {
			res = append(res, e.Event)
		}
	}
	return res
}

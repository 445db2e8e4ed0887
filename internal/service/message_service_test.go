package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"worklink/internal/domain"
	"worklink/internal/service"
)

type messageFixture struct {
	convRepo    *MockConversationRepo
	msgRepo     *MockMessageRepo
	transport   *fakeTransport
	broadcaster *service.Broadcaster
	svc         *service.MessageService
}

func newMessageFixture() *messageFixture {
	f := &messageFixture{
		convRepo:  new(MockConversationRepo),
		msgRepo:   new(MockMessageRepo),
		transport: &fakeTransport{},
	}
	f.broadcaster = service.NewBroadcaster(f.transport, zap.NewNop())
	reads := service.NewReadStateTracker(f.convRepo, f.msgRepo)
	f.svc = service.NewMessageService(f.convRepo, f.msgRepo, reads, f.broadcaster, zap.NewNop())
	return f
}

func directConversation(participants ...string) *domain.Conversation {
	return &domain.Conversation{
		ID:           primitive.NewObjectID(),
		Participants: participants,
	}
}

func TestSend(t *testing.T) {
	ctx := context.Background()

	t.Run("ConversationNotFound", func(t *testing.T) {
		f := newMessageFixture()
		id := primitive.NewObjectID()
		f.convRepo.On("GetByID", mock.Anything, id).Return(nil, nil)

		_, err := f.svc.Send(ctx, service.SendInput{ConversationID: id, Content: "hi"}, "alice")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("NonParticipantForbidden", func(t *testing.T) {
		f := newMessageFixture()
		conv := directConversation("alice", "bob")
		f.convRepo.On("GetByID", mock.Anything, conv.ID).Return(conv, nil)

		_, err := f.svc.Send(ctx, service.SendInput{ConversationID: conv.ID, Content: "hi"}, "mallory")
		assert.ErrorIs(t, err, domain.ErrForbidden)
		f.msgRepo.AssertNotCalled(t, "Create")
	})

	t.Run("EmptyTextRejected", func(t *testing.T) {
		f := newMessageFixture()
		conv := directConversation("alice", "bob")
		f.convRepo.On("GetByID", mock.Anything, conv.ID).Return(conv, nil)

		_, err := f.svc.Send(ctx, service.SendInput{ConversationID: conv.ID, Content: "   "}, "alice")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		f.msgRepo.AssertNotCalled(t, "Create")
	})

	t.Run("OverlongContentRejected", func(t *testing.T) {
		f := newMessageFixture()
		conv := directConversation("alice", "bob")
		f.convRepo.On("GetByID", mock.Anything, conv.ID).Return(conv, nil)

		long := strings.Repeat("x", domain.MaxContentLength+1)
		_, err := f.svc.Send(ctx, service.SendInput{ConversationID: conv.ID, Content: long}, "alice")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("UnknownTypeRejected", func(t *testing.T) {
		f := newMessageFixture()
		conv := directConversation("alice", "bob")
		f.convRepo.On("GetByID", mock.Anything, conv.ID).Return(conv, nil)

		_, err := f.svc.Send(ctx, service.SendInput{
			ConversationID: conv.ID,
			Content:        "hi",
			MessageType:    "carrier_pigeon",
		}, "alice")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("Success", func(t *testing.T) {
		f := newMessageFixture()
		conv := directConversation("alice", "bob")
		msgID := primitive.NewObjectID()

		f.convRepo.On("GetByID", mock.Anything, conv.ID).Return(conv, nil)
		f.msgRepo.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Message).ID = msgID
		}).Return(nil)
		f.convRepo.On("TouchOnNewMessage", mock.Anything, conv.ID, msgID, mock.Anything).Return(nil)

		msg, err := f.svc.Send(ctx, service.SendInput{ConversationID: conv.ID, Content: "hello"}, "alice")
		assert.NoError(t, err)
		assert.Equal(t, domain.MessageTypeText, msg.MessageType)

		// The sender's own receipt is seeded on creation.
		assert.Len(t, msg.ReadBy, 1)
		assert.Equal(t, "alice", msg.ReadBy[0].Reader)

		f.convRepo.AssertCalled(t, "TouchOnNewMessage", mock.Anything, conv.ID, msgID, mock.Anything)

		// Fan-out goes to the peer only, never back to the sender.
		f.broadcaster.Wait()
		assert.Equal(t, []string{service.EventNewMessage}, f.transport.eventsFor("bob"))
		assert.Empty(t, f.transport.eventsFor("alice"))
	})
}

func TestEdit(t *testing.T) {
	ctx := context.Background()

	t.Run("NonSenderForbidden", func(t *testing.T) {
		f := newMessageFixture()
		msg := &domain.Message{ID: primitive.NewObjectID(), Sender: "alice", Content: "draft"}
		f.msgRepo.On("GetByID", mock.Anything, msg.ID).Return(msg, nil)

		_, err := f.svc.Edit(ctx, msg.ID, "bob", "final")
		assert.ErrorIs(t, err, domain.ErrForbidden)
		f.msgRepo.AssertNotCalled(t, "SetContentEdited")
	})

	t.Run("DeletedMessageGone", func(t *testing.T) {
		f := newMessageFixture()
		msg := &domain.Message{
			ID:        primitive.NewObjectID(),
			Sender:    "alice",
			Content:   domain.Tombstone,
			IsDeleted: true,
		}
		f.msgRepo.On("GetByID", mock.Anything, msg.ID).Return(msg, nil)

		_, err := f.svc.Edit(ctx, msg.ID, "alice", "resurrect")
		assert.ErrorIs(t, err, domain.ErrGone)
	})

	t.Run("EmptyContentRejected", func(t *testing.T) {
		f := newMessageFixture()
		msg := &domain.Message{ID: primitive.NewObjectID(), Sender: "alice", Content: "draft"}
		f.msgRepo.On("GetByID", mock.Anything, msg.ID).Return(msg, nil)

		_, err := f.svc.Edit(ctx, msg.ID, "alice", "")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("Success", func(t *testing.T) {
		f := newMessageFixture()
		conv := directConversation("alice", "bob")
		msg := &domain.Message{
			ID:             primitive.NewObjectID(),
			ConversationID: conv.ID,
			Sender:         "alice",
			Content:        "draft",
		}
		f.msgRepo.On("GetByID", mock.Anything, msg.ID).Return(msg, nil)
		f.msgRepo.On("SetContentEdited", mock.Anything, msg.ID, "final", mock.Anything).Return(nil)
		f.convRepo.On("GetByID", mock.Anything, conv.ID).Return(conv, nil)

		updated, err := f.svc.Edit(ctx, msg.ID, "alice", "final")
		assert.NoError(t, err)
		assert.Equal(t, "final", updated.Content)
		assert.True(t, updated.IsEdited)
		assert.NotNil(t, updated.EditedAt)

		// Edits reach every participant, the sender's other devices included.
		f.broadcaster.Wait()
		assert.Equal(t, []string{service.EventMessageEdited}, f.transport.eventsFor("alice"))
		assert.Equal(t, []string{service.EventMessageEdited}, f.transport.eventsFor("bob"))
	})
}

func TestSoftDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("NonSenderForbidden", func(t *testing.T) {
		f := newMessageFixture()
		msg := &domain.Message{ID: primitive.NewObjectID(), Sender: "alice", Content: "hello"}
		f.msgRepo.On("GetByID", mock.Anything, msg.ID).Return(msg, nil)

		err := f.svc.SoftDelete(ctx, msg.ID, "bob")
		assert.ErrorIs(t, err, domain.ErrForbidden)
		f.msgRepo.AssertNotCalled(t, "SoftDelete")
	})

	t.Run("AlreadyDeletedIsNoop", func(t *testing.T) {
		f := newMessageFixture()
		msg := &domain.Message{
			ID:        primitive.NewObjectID(),
			Sender:    "alice",
			Content:   domain.Tombstone,
			IsDeleted: true,
		}
		f.msgRepo.On("GetByID", mock.Anything, msg.ID).Return(msg, nil)

		err := f.svc.SoftDelete(ctx, msg.ID, "alice")
		assert.NoError(t, err)
		f.msgRepo.AssertNotCalled(t, "SoftDelete")
		f.broadcaster.Wait()
		assert.Empty(t, f.transport.recorded())
	})

	t.Run("Success", func(t *testing.T) {
		f := newMessageFixture()
		conv := directConversation("alice", "bob")
		msg := &domain.Message{
			ID:             primitive.NewObjectID(),
			ConversationID: conv.ID,
			Sender:         "alice",
			Content:        "hello",
		}
		f.msgRepo.On("GetByID", mock.Anything, msg.ID).Return(msg, nil)
		f.msgRepo.On("SoftDelete", mock.Anything, msg.ID, domain.Tombstone, mock.Anything).Return(nil)
		f.convRepo.On("GetByID", mock.Anything, conv.ID).Return(conv, nil)

		err := f.svc.SoftDelete(ctx, msg.ID, "alice")
		assert.NoError(t, err)
		f.msgRepo.AssertCalled(t, "SoftDelete", mock.Anything, msg.ID, domain.Tombstone, mock.Anything)

		f.broadcaster.Wait()
		assert.Equal(t, []string{service.EventMessageDeleted}, f.transport.eventsFor("alice"))
		assert.Equal(t, []string{service.EventMessageDeleted}, f.transport.eventsFor("bob"))
	})
}

func TestViewConversation(t *testing.T) {
	ctx := context.Background()

	t.Run("NonParticipantForbidden", func(t *testing.T) {
		f := newMessageFixture()
		conv := directConversation("alice", "bob")
		f.convRepo.On("GetByID", mock.Anything, conv.ID).Return(conv, nil)

		_, _, err := f.svc.ViewConversation(ctx, conv.ID, "mallory", domain.Page{Number: 1, Size: 20})
		assert.ErrorIs(t, err, domain.ErrForbidden)
		f.msgRepo.AssertNotCalled(t, "ListForConversation")
	})

	t.Run("ReversesPageAndMarksRead", func(t *testing.T) {
		f := newMessageFixture()
		conv := directConversation("alice", "bob")
		page := domain.Page{Number: 1, Size: 3}

		// Storage order is newest-first; callers get oldest-first.
		m1 := &domain.Message{ID: primitive.NewObjectID(), ConversationID: conv.ID, Sender: "alice", Content: "first"}
		m2 := &domain.Message{ID: primitive.NewObjectID(), ConversationID: conv.ID, Sender: "bob", Content: "second",
			ReadBy: []domain.ReadReceipt{{Reader: "bob"}}}
		m3 := &domain.Message{ID: primitive.NewObjectID(), ConversationID: conv.ID, Sender: "alice", Content: "third"}

		f.convRepo.On("GetByID", mock.Anything, conv.ID).Return(conv, nil)
		f.msgRepo.On("ListForConversation", mock.Anything, conv.ID, page).
			Return([]*domain.Message{m3, m2, m1}, int64(3), nil)
		f.msgRepo.On("MarkRead", mock.Anything, conv.ID, "alice", []primitive.ObjectID(nil), mock.Anything).
			Return(int64(1), nil)

		msgs, total, err := f.svc.ViewConversation(ctx, conv.ID, "alice", page)
		assert.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Equal(t, []string{"first", "second", "third"}, []string{msgs[0].Content, msgs[1].Content, msgs[2].Content})

		// Bob's message now carries Alice's receipt in the returned page.
		assert.True(t, msgs[1].ReadByPrincipal("alice"))

		// Read-on-view pings the reader's own channel only.
		f.broadcaster.Wait()
		assert.Equal(t, []string{service.EventMessageRead}, f.transport.eventsFor("alice"))
		assert.Empty(t, f.transport.eventsFor("bob"))
	})

	t.Run("NothingNewToMarkSkipsReadEvent", func(t *testing.T) {
		f := newMessageFixture()
		conv := directConversation("alice", "bob")
		page := domain.Page{Number: 1, Size: 20}

		f.convRepo.On("GetByID", mock.Anything, conv.ID).Return(conv, nil)
		f.msgRepo.On("ListForConversation", mock.Anything, conv.ID, page).
			Return([]*domain.Message{}, int64(0), nil)
		f.msgRepo.On("MarkRead", mock.Anything, conv.ID, "alice", []primitive.ObjectID(nil), mock.Anything).
			Return(int64(0), nil)

		_, _, err := f.svc.ViewConversation(ctx, conv.ID, "alice", page)
		assert.NoError(t, err)
		f.broadcaster.Wait()
		assert.Empty(t, f.transport.recorded())
	})
}

func TestMarkConversationRead(t *testing.T) {
	ctx := context.Background()

	t.Run("NonParticipantForbidden", func(t *testing.T) {
		f := newMessageFixture()
		conv := directConversation("alice", "bob")
		f.convRepo.On("GetByID", mock.Anything, conv.ID).Return(conv, nil)

		_, err := f.svc.MarkConversationRead(ctx, conv.ID, "mallory")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("Idempotent", func(t *testing.T) {
		f := newMessageFixture()
		conv := directConversation("alice", "bob")
		f.convRepo.On("GetByID", mock.Anything, conv.ID).Return(conv, nil)
		f.msgRepo.On("MarkRead", mock.Anything, conv.ID, "bob", []primitive.ObjectID(nil), mock.Anything).
			Return(int64(2), nil).Once()
		f.msgRepo.On("MarkRead", mock.Anything, conv.ID, "bob", []primitive.ObjectID(nil), mock.Anything).
			Return(int64(0), nil)

		marked, err := f.svc.MarkConversationRead(ctx, conv.ID, "bob")
		assert.NoError(t, err)
		assert.Equal(t, int64(2), marked)

		// The second pass finds nothing unread and stays silent.
		marked, err = f.svc.MarkConversationRead(ctx, conv.ID, "bob")
		assert.NoError(t, err)
		assert.Equal(t, int64(0), marked)

		f.broadcaster.Wait()
		assert.Equal(t, []string{service.EventMessageRead}, f.transport.eventsFor("bob"))
	})
}

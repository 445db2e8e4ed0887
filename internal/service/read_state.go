package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"worklink/internal/domain"
)

// ReadStateTracker owns the one-way Unread -> Read transition. Marking is
// commutative and idempotent: concurrent calls from the same reader converge
// on exactly one receipt per message.
type ReadStateTracker struct {
	conversations domain.ConversationRepository
	messages      domain.MessageRepository
}

func NewReadStateTracker(conversations domain.ConversationRepository, messages domain.MessageRepository) *ReadStateTracker {
	return &ReadStateTracker{conversations: conversations, messages: messages}
}

// MarkRead stamps a receipt for reader on every message in the conversation
// (or the given subset) authored by others and not yet read. Returns the
// number of messages newly marked; re-marking is a no-op.
func (t *ReadStateTracker) MarkRead(ctx context.Context, conversationID primitive.ObjectID, reader string, messageIDs []primitive.ObjectID) (int64, error) {
	return t.messages.MarkRead(ctx, conversationID, reader, messageIDs, time.Now().UTC())
}

// UnreadCountForConversation counts live messages in the conversation
// authored by others and not read by reader.
func (t *ReadStateTracker) UnreadCountForConversation(ctx context.Context, conversationID primitive.ObjectID, reader string) (int64, error) {
	return t.messages.CountUnread(ctx, conversationID, reader)
}

// GlobalUnreadCount is the exact per-message sum across every conversation
// the reader participates in. The last-message shortcut some clients use
// under-counts when an older unread message survives in an otherwise-read
// conversation; a single indexed count over the reader's conversation ids is
// cheap enough to stay exact.
func (t *ReadStateTracker) GlobalUnreadCount(ctx context.Context, reader string) (int64, error) {
	ids, err := t.conversations.IDsForParticipant(ctx, reader)
	if err != nil {
		return 0, err
	}
	return t.messages.CountUnreadIn(ctx, ids, reader)
}

package domain

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Page describes a 1-based page request.
type Page struct {
	Number int
	Size   int
}

// Skip returns the number of items preceding this page.
func (p Page) Skip() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// ConversationRepository defines persistence operations for conversations.
type ConversationRepository interface {
	// Create persists a new conversation. Returns ErrConflict when a direct
	// conversation with the same participant key already exists.
	Create(ctx context.Context, c *Conversation) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*Conversation, error)
	// FindDirect returns the non-group conversation whose participant set is
	// exactly {a, b}, or nil when none exists.
	FindDirect(ctx context.Context, a, b string) (*Conversation, error)
	// ListForParticipant returns the principal's conversations sorted by
	// last activity descending, plus the total count.
	ListForParticipant(ctx context.Context, principalID string, page Page) ([]*Conversation, int64, error)
	// IDsForParticipant returns the ids of every conversation the principal
	// participates in.
	IDsForParticipant(ctx context.Context, principalID string) ([]primitive.ObjectID, error)
	// TouchOnNewMessage bumps lastMessage/lastActivity after a send.
	TouchOnNewMessage(ctx context.Context, conversationID, messageID primitive.ObjectID, sentAt time.Time) error
}

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*Message, error)
	// ListForConversation returns non-deleted messages newest-first plus the
	// total non-deleted count. Callers reverse the page for chronological
	// presentation.
	ListForConversation(ctx context.Context, conversationID primitive.ObjectID, page Page) ([]*Message, int64, error)
	// SetContentEdited replaces content and flags the message as edited.
	SetContentEdited(ctx context.Context, id primitive.ObjectID, content string, editedAt time.Time) error
	// SoftDelete tombstones the message content and flags it deleted.
	SoftDelete(ctx context.Context, id primitive.ObjectID, tombstone string, deletedAt time.Time) error
	// MarkRead appends a read receipt for reader to every message in the
	// conversation (or the given subset) authored by someone else and not yet
	// read by reader. Idempotent: re-marking never duplicates receipts.
	// Returns the number of messages newly marked.
	MarkRead(ctx context.Context, conversationID primitive.ObjectID, reader string, messageIDs []primitive.ObjectID, readAt time.Time) (int64, error)
	// CountUnread counts non-deleted messages in the conversation authored by
	// others and not read by reader.
	CountUnread(ctx context.Context, conversationID primitive.ObjectID, reader string) (int64, error)
	// CountUnreadIn is CountUnread across a set of conversations.
	CountUnreadIn(ctx context.Context, conversationIDs []primitive.ObjectID, reader string) (int64, error)
}

// ConnectionRepository defines persistence operations for the social graph.
type ConnectionRepository interface {
	// Create persists a new connection request. Returns ErrConflict when a
	// connection already exists for the pair.
	Create(ctx context.Context, c *Connection) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*Connection, error)
	// FindBetween returns the connection between the pair in either
	// direction, or nil when none exists.
	FindBetween(ctx context.Context, a, b string) (*Connection, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, status ConnectionStatus, resolvedAt time.Time) error
	// AcceptedPeers returns the principal ids connected to the given
	// principal with accepted status.
	AcceptedPeers(ctx context.Context, principalID string) ([]string, error)
	// ListForPrincipal returns connections involving the principal with the
	// given status, newest-first, plus the total count.
	ListForPrincipal(ctx context.Context, principalID string, status ConnectionStatus, page Page) ([]*Connection, int64, error)
}

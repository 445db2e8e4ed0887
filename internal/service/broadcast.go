package service

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"worklink/internal/domain"
	"worklink/internal/metrics"
)

// Event names pushed over the transport.
const (
	EventNewMessage     = "new_message"
	EventMessageEdited  = "message_edited"
	EventMessageDeleted = "message_deleted"
	EventMessageRead    = "messageRead"
)

// PushTransport routes an event to all active channels of a principal.
// Implementations may silently fail; delivery is at-most-once and
// non-durable. Persisted state stays the source of truth.
type PushTransport interface {
	SendToPrincipal(principalID, event string, payload any) error
}

// Broadcaster fans conversation mutations out to the affected principals.
// Every push runs on its own goroutine so a slow or dead transport target
// never delays the originating write; failures are counted and logged, never
// surfaced to the caller.
type Broadcaster struct {
	transport PushTransport
	log       *zap.Logger
	wg        sync.WaitGroup
}

func NewBroadcaster(transport PushTransport, log *zap.Logger) *Broadcaster {
	return &Broadcaster{transport: transport, log: log}
}

// NewMessage notifies every participant except the sender.
func (b *Broadcaster) NewMessage(msg *domain.Message, conv *domain.Conversation) {
	payload := messagePayload(msg)
	for _, p := range conv.Participants {
		if p == msg.Sender {
			continue
		}
		b.push(p, EventNewMessage, payload)
	}
}

// MessageEdited notifies every participant, sender included, so the sender's
// other devices converge.
func (b *Broadcaster) MessageEdited(msg *domain.Message, conv *domain.Conversation) {
	payload := messagePayload(msg)
	for _, p := range conv.Participants {
		b.push(p, EventMessageEdited, payload)
	}
}

// MessageDeleted notifies every participant.
func (b *Broadcaster) MessageDeleted(messageID primitive.ObjectID, conv *domain.Conversation) {
	payload := map[string]any{
		"message_id":      messageID.Hex(),
		"conversation_id": conv.ID.Hex(),
	}
	for _, p := range conv.Participants {
		b.push(p, EventMessageDeleted, payload)
	}
}

// MessagesRead notifies the reader's own channel only. This is a
// read-receipt-to-self for cross-device unread badges, not a receipt shown
// to the sender.
func (b *Broadcaster) MessagesRead(conversationID primitive.ObjectID, reader string) {
	b.push(reader, EventMessageRead, map[string]any{
		"conversation_id": conversationID.Hex(),
		"reader":          reader,
	})
}

// Wait blocks until in-flight pushes finish. Used on shutdown and in tests.
func (b *Broadcaster) Wait() {
	b.wg.Wait()
}

func (b *Broadcaster) push(principalID, event string, payload any) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := b.transport.SendToPrincipal(principalID, event, payload); err != nil {
			metrics.EventsDropped.WithLabelValues(event).Inc()
			b.log.Warn("push dropped",
				zap.String("event", event),
				zap.String("principal", principalID),
				zap.Error(err))
			return
		}
		metrics.EventsBroadcast.WithLabelValues(event).Inc()
	}()
}

func messagePayload(msg *domain.Message) map[string]any {
	payload := map[string]any{
		"message_id":      msg.ID.Hex(),
		"conversation_id": msg.ConversationID.Hex(),
		"sender":          msg.Sender,
		"content":         msg.Content,
		"message_type":    msg.MessageType,
		"is_edited":       msg.IsEdited,
		"is_deleted":      msg.IsDeleted,
		"created_at":      msg.CreatedAt,
	}
	if len(msg.Attachments) > 0 {
		payload["attachments"] = msg.Attachments
	}
	if msg.ReplyTo != nil {
		payload["reply_to"] = msg.ReplyTo.Hex()
	}
	if msg.SharedPost != "" {
		payload["shared_post"] = msg.SharedPost
	}
	return payload
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"worklink/internal/domain"
	"worklink/internal/metrics"
)

// MessageService orchestrates sends, edits, deletes and the read-on-view
// compound operation. Business-rule violations are detected before any
// mutation; broadcasts happen after the commit and never fail the operation.
type MessageService struct {
	conversations domain.ConversationRepository
	messages      domain.MessageRepository
	reads         *ReadStateTracker
	broadcaster   *Broadcaster
	log           *zap.Logger
}

func NewMessageService(
	conversations domain.ConversationRepository,
	messages domain.MessageRepository,
	reads *ReadStateTracker,
	broadcaster *Broadcaster,
	log *zap.Logger,
) *MessageService {
	return &MessageService{
		conversations: conversations,
		messages:      messages,
		reads:         reads,
		broadcaster:   broadcaster,
		log:           log,
	}
}

// SendInput carries a send request. ReplyTo and SharedPost are optional;
// attachments are stored opaquely.
type SendInput struct {
	ConversationID primitive.ObjectID
	Content        string
	MessageType    domain.MessageType
	ReplyTo        *primitive.ObjectID
	SharedPost     string
	Attachments    []domain.Attachment
}

// Send appends a message to the conversation, seeds the sender's own read
// receipt, bumps the conversation and fans out to the other participants.
func (s *MessageService) Send(ctx context.Context, in SendInput, sender string) (*domain.Message, error) {
	conv, err := s.conversations.GetByID(ctx, in.ConversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation %s: %w", in.ConversationID.Hex(), domain.ErrNotFound)
	}
	if !conv.HasParticipant(sender) {
		return nil, fmt.Errorf("not a participant in this conversation: %w", domain.ErrForbidden)
	}

	if in.MessageType == "" {
		in.MessageType = domain.MessageTypeText
	}
	if !in.MessageType.Valid() {
		return nil, fmt.Errorf("unknown message type %q: %w", in.MessageType, domain.ErrInvalidInput)
	}
	if in.MessageType == domain.MessageTypeText && strings.TrimSpace(in.Content) == "" {
		return nil, fmt.Errorf("message content cannot be empty: %w", domain.ErrInvalidInput)
	}
	if utf8.RuneCountInString(in.Content) > domain.MaxContentLength {
		return nil, fmt.Errorf("message content exceeds %d characters: %w", domain.MaxContentLength, domain.ErrInvalidInput)
	}

	now := time.Now().UTC()
	msg := &domain.Message{
		ConversationID: conv.ID,
		Sender:         sender,
		Content:        in.Content,
		MessageType:    in.MessageType,
		Attachments:    in.Attachments,
		// The sender has trivially read their own message.
		ReadBy:     []domain.ReadReceipt{{Reader: sender, ReadAt: now}},
		ReplyTo:    in.ReplyTo,
		SharedPost: in.SharedPost,
		CreatedAt:  now,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	metrics.MessagesSent.Inc()

	// The message is durable at this point; a failed activity bump is
	// recoverable on the next send and must not fail the request.
	if err := s.conversations.TouchOnNewMessage(ctx, conv.ID, msg.ID, msg.CreatedAt); err != nil {
		s.log.Warn("conversation touch failed",
			zap.String("conversation_id", conv.ID.Hex()),
			zap.Error(err))
	}

	s.broadcaster.NewMessage(msg, conv)
	return msg, nil
}

// Edit replaces a message's content. Sender only; tombstoned messages are
// immutable.
func (s *MessageService) Edit(ctx context.Context, messageID primitive.ObjectID, editor, newContent string) (*domain.Message, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, fmt.Errorf("message %s: %w", messageID.Hex(), domain.ErrNotFound)
	}
	if msg.Sender != editor {
		return nil, fmt.Errorf("only the sender can edit a message: %w", domain.ErrForbidden)
	}
	if msg.IsDeleted {
		return nil, fmt.Errorf("cannot edit a deleted message: %w", domain.ErrGone)
	}
	if strings.TrimSpace(newContent) == "" {
		return nil, fmt.Errorf("message content cannot be empty: %w", domain.ErrInvalidInput)
	}
	if utf8.RuneCountInString(newContent) > domain.MaxContentLength {
		return nil, fmt.Errorf("message content exceeds %d characters: %w", domain.MaxContentLength, domain.ErrInvalidInput)
	}

	now := time.Now().UTC()
	if err := s.messages.SetContentEdited(ctx, msg.ID, newContent, now); err != nil {
		return nil, err
	}
	msg.Content = newContent
	msg.IsEdited = true
	msg.EditedAt = &now

	if conv, err := s.conversations.GetByID(ctx, msg.ConversationID); err == nil && conv != nil {
		s.broadcaster.MessageEdited(msg, conv)
	}
	return msg, nil
}

// SoftDelete tombstones a message. Sender only. Deleting an already-deleted
// message is a no-op success: delete is terminal and clients retry it.
func (s *MessageService) SoftDelete(ctx context.Context, messageID primitive.ObjectID, requester string) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return fmt.Errorf("message %s: %w", messageID.Hex(), domain.ErrNotFound)
	}
	if msg.Sender != requester {
		return fmt.Errorf("only the sender can delete a message: %w", domain.ErrForbidden)
	}
	if msg.IsDeleted {
		return nil
	}

	if err := s.messages.SoftDelete(ctx, msg.ID, domain.Tombstone, time.Now().UTC()); err != nil {
		return err
	}

	if conv, err := s.conversations.GetByID(ctx, msg.ConversationID); err == nil && conv != nil {
		s.broadcaster.MessageDeleted(msg.ID, conv)
	}
	return nil
}

// MarkConversationRead marks every message authored by others as read for
// the reader and pings the reader's other devices when anything changed.
func (s *MessageService) MarkConversationRead(ctx context.Context, conversationID primitive.ObjectID, reader string) (int64, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	if conv == nil {
		return 0, fmt.Errorf("conversation %s: %w", conversationID.Hex(), domain.ErrNotFound)
	}
	if !conv.HasParticipant(reader) {
		return 0, fmt.Errorf("not a participant in this conversation: %w", domain.ErrForbidden)
	}

	marked, err := s.reads.MarkRead(ctx, conv.ID, reader, nil)
	if err != nil {
		return 0, err
	}
	if marked > 0 {
		s.broadcaster.MessagesRead(conv.ID, reader)
	}
	return marked, nil
}

// ViewConversation is the read-on-view compound operation: it pages through
// the conversation's live messages and, as an explicit part of the contract,
// marks everything authored by others as read and pings the reader's other
// devices.
//
// Page boundaries are computed on the newest-first storage order, then each
// page is reversed so callers render oldest-first; page 2 therefore continues
// strictly before page 1's oldest item.
func (s *MessageService) ViewConversation(ctx context.Context, conversationID primitive.ObjectID, requester string, page domain.Page) ([]*domain.Message, int64, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, 0, err
	}
	if conv == nil {
		return nil, 0, fmt.Errorf("conversation %s: %w", conversationID.Hex(), domain.ErrNotFound)
	}
	if !conv.HasParticipant(requester) {
		return nil, 0, fmt.Errorf("not a participant in this conversation: %w", domain.ErrForbidden)
	}

	msgs, total, err := s.messages.ListForConversation(ctx, conv.ID, page)
	if err != nil {
		return nil, 0, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	marked, err := s.reads.MarkRead(ctx, conv.ID, requester, nil)
	if err != nil {
		return nil, 0, err
	}
	if marked > 0 {
		s.broadcaster.MessagesRead(conv.ID, requester)
		// Reflect the new receipts in the returned page without re-querying.
		now := time.Now().UTC()
		for _, m := range msgs {
			if m.Sender != requester && !m.ReadByPrincipal(requester) {
				m.ReadBy = append(m.ReadBy, domain.ReadReceipt{Reader: requester, ReadAt: now})
			}
		}
	}
	return msgs, total, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"worklink/internal/domain"
)

// ConversationService resolves and lists conversations. Direct conversations
// are created lazily on first contact between connected principals.
type ConversationService struct {
	conversations domain.ConversationRepository
	messages      domain.MessageRepository
	gate          *ConnectionGate
}

func NewConversationService(
	conversations domain.ConversationRepository,
	messages domain.MessageRepository,
	gate *ConnectionGate,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		messages:      messages,
		gate:          gate,
	}
}

// GetOrCreateDirect returns the direct conversation between initiator and
// participant, creating it when absent. The connection gate is a
// precondition here and only here; sends into an existing conversation never
// re-validate connection status.
func (s *ConversationService) GetOrCreateDirect(ctx context.Context, initiator, participantID string) (*domain.Conversation, error) {
	if initiator == participantID {
		return nil, fmt.Errorf("cannot start a conversation with yourself: %w", domain.ErrForbidden)
	}

	connected, err := s.gate.AreConnected(ctx, initiator, participantID)
	if err != nil {
		return nil, err
	}
	if !connected {
		return nil, fmt.Errorf("no accepted connection between principals: %w", domain.ErrNotConnected)
	}

	existing, err := s.conversations.FindDirect(ctx, initiator, participantID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now().UTC()
	conv := &domain.Conversation{
		ParticipantKey: domain.PairKey(initiator, participantID),
		Participants:   []string{initiator, participantID},
		IsGroup:        false,
		CreatedBy:      initiator,
		LastActivity:   now,
		CreatedAt:      now,
	}
	err = s.conversations.Create(ctx, conv)
	if errors.Is(err, domain.ErrConflict) {
		// Lost the unique-index race to a concurrent first contact; the
		// winner's conversation is the one.
		return s.conversations.FindDirect(ctx, initiator, participantID)
	}
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// GetForParticipant fetches a conversation visible to the caller.
func (s *ConversationService) GetForParticipant(ctx context.Context, conversationID primitive.ObjectID, principalID string) (*domain.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation %s: %w", conversationID.Hex(), domain.ErrNotFound)
	}
	if !conv.HasParticipant(principalID) {
		return nil, fmt.Errorf("not a participant in this conversation: %w", domain.ErrForbidden)
	}
	return conv, nil
}

// ConversationView enriches a conversation with the caller's perspective.
type ConversationView struct {
	*domain.Conversation
	OtherParticipant string `json:"other_participant,omitempty"`
	Unread           bool   `json:"unread"`
	UnreadCount      int64  `json:"unread_count"`
}

// ListForParticipant returns the caller's conversations sorted by last
// activity descending, each enriched with the peer id and unread state.
func (s *ConversationService) ListForParticipant(ctx context.Context, principalID string, page domain.Page) ([]*ConversationView, int64, error) {
	convs, total, err := s.conversations.ListForParticipant(ctx, principalID, page)
	if err != nil {
		return nil, 0, err
	}

	views := make([]*ConversationView, 0, len(convs))
	for _, conv := range convs {
		unread, err := s.messages.CountUnread(ctx, conv.ID, principalID)
		if err != nil {
			return nil, 0, err
		}
		view := &ConversationView{
			Conversation: conv,
			Unread:       unread > 0,
			UnreadCount:  unread,
		}
		if !conv.IsGroup {
			view.OtherParticipant = conv.OtherParticipant(principalID)
		}
		views = append(views, view)
	}
	return views, total, nil
}

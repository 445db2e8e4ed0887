package service

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"worklink/internal/domain"
)

// ConnectionService owns the mutation path of the social graph: requesting,
// accepting and declining connections. The messaging core only reads the
// accepted projection through ConnectionGate.
type ConnectionService struct {
	connections domain.ConnectionRepository
}

func NewConnectionService(connections domain.ConnectionRepository) *ConnectionService {
	return &ConnectionService{connections: connections}
}

// Request creates a pending connection from requester to recipient.
func (s *ConnectionService) Request(ctx context.Context, requester, recipientID string) (*domain.Connection, error) {
	if requester == recipientID {
		return nil, fmt.Errorf("cannot connect to yourself: %w", domain.ErrForbidden)
	}

	existing, err := s.connections.FindBetween(ctx, requester, recipientID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("connection already exists with status %s: %w", existing.Status, domain.ErrConflict)
	}

	conn := &domain.Connection{
		Requester:   requester,
		Recipient:   recipientID,
		Status:      domain.ConnectionPending,
		RequestedAt: time.Now().UTC(),
	}
	if err := s.connections.Create(ctx, conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// Respond resolves a pending request. Only the recipient may respond.
func (s *ConnectionService) Respond(ctx context.Context, connectionID primitive.ObjectID, caller string, accept bool) (*domain.Connection, error) {
	conn, err := s.connections.GetByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, fmt.Errorf("connection %s: %w", connectionID.Hex(), domain.ErrNotFound)
	}
	if conn.Recipient != caller {
		return nil, fmt.Errorf("only the recipient can respond: %w", domain.ErrForbidden)
	}
	if conn.Status != domain.ConnectionPending {
		return nil, fmt.Errorf("connection already resolved: %w", domain.ErrConflict)
	}

	status := domain.ConnectionDeclined
	if accept {
		status = domain.ConnectionAccepted
	}
	now := time.Now().UTC()
	if err := s.connections.SetStatus(ctx, conn.ID, status, now); err != nil {
		return nil, err
	}
	conn.Status = status
	conn.ResolvedAt = &now
	return conn, nil
}

// ListAccepted returns the caller's accepted connections, newest-first.
func (s *ConnectionService) ListAccepted(ctx context.Context, principalID string, page domain.Page) ([]*domain.Connection, int64, error) {
	return s.connections.ListForPrincipal(ctx, principalID, domain.ConnectionAccepted, page)
}

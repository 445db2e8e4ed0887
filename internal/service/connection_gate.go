package service

import (
	"context"

	"worklink/internal/domain"
)

// ConnectionGate answers connectivity questions for the messaging core. It
// is consulted when a direct conversation is first created; existing
// conversations are not re-validated on every send.
type ConnectionGate struct {
	connections domain.ConnectionRepository
}

func NewConnectionGate(connections domain.ConnectionRepository) *ConnectionGate {
	return &ConnectionGate{connections: connections}
}

// AreConnected reports whether an accepted connection exists between the two
// principals in either direction.
func (g *ConnectionGate) AreConnected(ctx context.Context, a, b string) (bool, error) {
	conn, err := g.connections.FindBetween(ctx, a, b)
	if err != nil {
		return false, err
	}
	return conn != nil && conn.Status == domain.ConnectionAccepted, nil
}

// MutualConnections returns the principals connected to both a and b.
func (g *ConnectionGate) MutualConnections(ctx context.Context, a, b string) ([]string, error) {
	peersA, err := g.connections.AcceptedPeers(ctx, a)
	if err != nil {
		return nil, err
	}
	peersB, err := g.connections.AcceptedPeers(ctx, b)
	if err != nil {
		return nil, err
	}

	inA := make(map[string]struct{}, len(peersA))
	for _, p := range peersA {
		inA[p] = struct{}{}
	}
	mutual := make([]string, 0)
	for _, p := range peersB {
		if _, ok := inA[p]; ok {
			mutual = append(mutual, p)
		}
	}
	return mutual, nil
}

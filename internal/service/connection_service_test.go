package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"worklink/internal/domain"
	"worklink/internal/service"
)

func TestRequestConnection(t *testing.T) {
	ctx := context.Background()

	t.Run("SelfConnectionForbidden", func(t *testing.T) {
		repo := new(MockConnectionRepo)
		svc := service.NewConnectionService(repo)

		_, err := svc.Request(ctx, "alice", "alice")
		assert.ErrorIs(t, err, domain.ErrForbidden)
		repo.AssertNotCalled(t, "Create")
	})

	t.Run("DuplicateConflicts", func(t *testing.T) {
		repo := new(MockConnectionRepo)
		svc := service.NewConnectionService(repo)

		repo.On("FindBetween", mock.Anything, "alice", "bob").
			Return(acceptedConnection("alice", "bob"), nil)

		_, err := svc.Request(ctx, "alice", "bob")
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("CreatesPending", func(t *testing.T) {
		repo := new(MockConnectionRepo)
		svc := service.NewConnectionService(repo)

		repo.On("FindBetween", mock.Anything, "alice", "bob").Return(nil, nil)
		repo.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Connection) bool {
			return c.Requester == "alice" && c.Recipient == "bob" && c.Status == domain.ConnectionPending
		})).Return(nil)

		conn, err := svc.Request(ctx, "alice", "bob")
		assert.NoError(t, err)
		assert.Equal(t, domain.ConnectionPending, conn.Status)
		assert.False(t, conn.RequestedAt.IsZero())
	})
}

func TestRespondConnection(t *testing.T) {
	ctx := context.Background()

	pending := func() *domain.Connection {
		return &domain.Connection{
			ID:        primitive.NewObjectID(),
			Requester: "alice",
			Recipient: "bob",
			Status:    domain.ConnectionPending,
		}
	}

	t.Run("Missing", func(t *testing.T) {
		repo := new(MockConnectionRepo)
		svc := service.NewConnectionService(repo)

		id := primitive.NewObjectID()
		repo.On("GetByID", mock.Anything, id).Return(nil, nil)

		_, err := svc.Respond(ctx, id, "bob", true)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("OnlyRecipientMayRespond", func(t *testing.T) {
		repo := new(MockConnectionRepo)
		svc := service.NewConnectionService(repo)

		conn := pending()
		repo.On("GetByID", mock.Anything, conn.ID).Return(conn, nil)

		// The requester cannot accept their own request.
		_, err := svc.Respond(ctx, conn.ID, "alice", true)
		assert.ErrorIs(t, err, domain.ErrForbidden)
		repo.AssertNotCalled(t, "SetStatus")
	})

	t.Run("AlreadyResolvedConflicts", func(t *testing.T) {
		repo := new(MockConnectionRepo)
		svc := service.NewConnectionService(repo)

		conn := pending()
		conn.Status = domain.ConnectionAccepted
		repo.On("GetByID", mock.Anything, conn.ID).Return(conn, nil)

		_, err := svc.Respond(ctx, conn.ID, "bob", false)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("Accept", func(t *testing.T) {
		repo := new(MockConnectionRepo)
		svc := service.NewConnectionService(repo)

		conn := pending()
		repo.On("GetByID", mock.Anything, conn.ID).Return(conn, nil)
		repo.On("SetStatus", mock.Anything, conn.ID, domain.ConnectionAccepted, mock.Anything).Return(nil)

		resolved, err := svc.Respond(ctx, conn.ID, "bob", true)
		assert.NoError(t, err)
		assert.Equal(t, domain.ConnectionAccepted, resolved.Status)
		assert.NotNil(t, resolved.ResolvedAt)
	})

	t.Run("Decline", func(t *testing.T) {
		repo := new(MockConnectionRepo)
		svc := service.NewConnectionService(repo)

		conn := pending()
		repo.On("GetByID", mock.Anything, conn.ID).Return(conn, nil)
		repo.On("SetStatus", mock.Anything, conn.ID, domain.ConnectionDeclined, mock.Anything).Return(nil)

		resolved, err := svc.Respond(ctx, conn.ID, "bob", false)
		assert.NoError(t, err)
		assert.Equal(t, domain.ConnectionDeclined, resolved.Status)
	})
}

func TestConnectionGate(t *testing.T) {
	ctx := context.Background()

	t.Run("AreConnected", func(t *testing.T) {
		repo := new(MockConnectionRepo)
		gate := service.NewConnectionGate(repo)

		repo.On("FindBetween", mock.Anything, "alice", "bob").
			Return(acceptedConnection("alice", "bob"), nil)
		repo.On("FindBetween", mock.Anything, "alice", "carol").
			Return(&domain.Connection{Requester: "alice", Recipient: "carol", Status: domain.ConnectionDeclined}, nil)
		repo.On("FindBetween", mock.Anything, "alice", "dave").Return(nil, nil)

		ok, err := gate.AreConnected(ctx, "alice", "bob")
		assert.NoError(t, err)
		assert.True(t, ok)

		ok, err = gate.AreConnected(ctx, "alice", "carol")
		assert.NoError(t, err)
		assert.False(t, ok)

		ok, err = gate.AreConnected(ctx, "alice", "dave")
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("MutualConnections", func(t *testing.T) {
		repo := new(MockConnectionRepo)
		gate := service.NewConnectionGate(repo)

		repo.On("AcceptedPeers", mock.Anything, "alice").Return([]string{"carol", "dave", "erin"}, nil)
		repo.On("AcceptedPeers", mock.Anything, "bob").Return([]string{"dave", "erin", "frank"}, nil)

		mutual, err := gate.MutualConnections(ctx, "alice", "bob")
		assert.NoError(t, err)
		assert.ElementsMatch(t, []string{"dave", "erin"}, mutual)
	})

	t.Run("NoOverlap", func(t *testing.T) {
		repo := new(MockConnectionRepo)
		gate := service.NewConnectionGate(repo)

		repo.On("AcceptedPeers", mock.Anything, "alice").Return([]string{"carol"}, nil)
		repo.On("AcceptedPeers", mock.Anything, "bob").Return([]string{"dave"}, nil)

		mutual, err := gate.MutualConnections(ctx, "alice", "bob")
		assert.NoError(t, err)
		assert.Empty(t, mutual)
	})
}

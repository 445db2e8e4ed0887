package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"worklink/internal/domain"
)

type ConnectionRepo struct {
	coll *mongo.Collection
}

func NewConnectionRepo(db *mongo.Database) *ConnectionRepo {
	return &ConnectionRepo{coll: db.Collection(collConnections)}
}

var _ domain.ConnectionRepository = (*ConnectionRepo)(nil)

func (r *ConnectionRepo) Create(ctx context.Context, c *domain.Connection) error {
	if c.PairKey == "" {
		c.PairKey = domain.PairKey(c.Requester, c.Recipient)
	}
	if c.RequestedAt.IsZero() {
		c.RequestedAt = time.Now().UTC()
	}
	res, err := r.coll.InsertOne(ctx, c)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert connection: %w", domain.ErrConflict)
		}
		return fmt.Errorf("insert connection: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		c.ID = oid
	}
	return nil
}

func (r *ConnectionRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Connection, error) {
	c := &domain.Connection{}
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(c)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get connection: %w", err)
	}
	return c, nil
}

func (r *ConnectionRepo) FindBetween(ctx context.Context, a, b string) (*domain.Connection, error) {
	c := &domain.Connection{}
	err := r.coll.FindOne(ctx, bson.M{"pair_key": domain.PairKey(a, b)}).Decode(c)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find connection: %w", err)
	}
	return c, nil
}

func (r *ConnectionRepo) SetStatus(ctx context.Context, id primitive.ObjectID, status domain.ConnectionStatus, resolvedAt time.Time) error {
	_, err := r.coll.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"status":      status,
			"resolved_at": resolvedAt,
		},
	})
	if err != nil {
		return fmt.Errorf("set connection status: %w", err)
	}
	return nil
}

func (r *ConnectionRepo) AcceptedPeers(ctx context.Context, principalID string) ([]string, error) {
	filter := bson.M{
		"status": domain.ConnectionAccepted,
		"$or": []bson.M{
			{"requester": principalID},
			{"recipient": principalID},
		},
	}
	cur, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list accepted peers: %w", err)
	}
	defer cur.Close(ctx)

	var conns []*domain.Connection
	if err := cur.All(ctx, &conns); err != nil {
		return nil, fmt.Errorf("decode connections: %w", err)
	}
	peers := make([]string, 0, len(conns))
	for _, c := range conns {
		if c.Requester == principalID {
			peers = append(peers, c.Recipient)
		} else {
			peers = append(peers, c.Requester)
		}
	}
	return peers, nil
}

func (r *ConnectionRepo) ListForPrincipal(ctx context.Context, principalID string, status domain.ConnectionStatus, page domain.Page) ([]*domain.Connection, int64, error) {
	filter := bson.M{
		"status": status,
		"$or": []bson.M{
			{"requester": principalID},
			{"recipient": principalID},
		},
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count connections: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "requested_at", Value: -1}}).
		SetSkip(int64(page.Skip())).
		SetLimit(int64(page.Size))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list connections: %w", err)
	}
	defer cur.Close(ctx)

	var res []*domain.Connection
	if err := cur.All(ctx, &res); err != nil {
		return nil, 0, fmt.Errorf("decode connections: %w", err)
	}
	return res, total, nil
}

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

type ConversationRepo struct {
	coll *mongo.Collection
}

func NewConversationRepo(db *mongo.Database) *ConversationRepo {
	return &ConversationRepo{coll: db.Collection(collConversations)}
}

var _ domain.ConversationRepository = (*ConversationRepo)(nil)

func (r *ConversationRepo) Create(ctx context.Context, c *domain.Conversation) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.LastActivity.IsZero() {
		c.LastActivity = c.CreatedAt
	}
	res, err := r.coll.InsertOne(ctx, c)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert conversation: %w", domain.ErrConflict)
		}
		return fmt.Errorf("insert conversation: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		c.ID = oid
	}
	return nil
}

func (r *ConversationRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Conversation, error) {
	c := &domain.Conversation{}
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(c)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return c, nil
}

func (r *ConversationRepo) FindDirect(ctx context.Context, a, b string) (*domain.Conversation, error) {
	filter := bson.M{
		"participant_key": domain.PairKey(a, b),
		"is_group":        false,
	}
	c := &domain.Conversation{}
	err := r.coll.FindOne(ctx, filter).Decode(c)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find direct conversation: %w", err)
	}
	return c, nil
}

func (r *ConversationRepo) ListForParticipant(ctx context.Context, principalID string, page domain.Page) ([]*domain.Conversation, int64, error) {
	filter := bson.M{"participants": principalID}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count conversations: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "last_activity", Value: -1}}).
		SetSkip(int64(page.Skip())).
		SetLimit(int64(page.Size))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list conversations: %w", err)
	}
	defer cur.Close(ctx)

	var res []*domain.Conversation
	if err := cur.All(ctx, &res); err != nil {
		return nil, 0, fmt.Errorf("decode conversations: %w", err)
	}
	return res, total, nil
}

func (r *ConversationRepo) IDsForParticipant(ctx context.Context, principalID string) ([]primitive.ObjectID, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cur, err := r.coll.Find(ctx, bson.M{"participants": principalID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list conversation ids: %w", err)
	}
	defer cur.Close(ctx)

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode conversation ids: %w", err)
	}
	ids := make([]primitive.ObjectID, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids, nil
}

func (r *ConversationRepo) TouchOnNewMessage(ctx context.Context, conversationID, messageID primitive.ObjectID, sentAt time.Time) error {
	_, err := r.coll.UpdateByID(ctx, conversationID, bson.M{
		"$set": bson.M{
			"last_message":  messageID,
			"last_activity": sentAt,
		},
	})
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

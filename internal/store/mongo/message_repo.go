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

type MessageRepo struct {
	coll *mongo.Collection
}

func NewMessageRepo(db *mongo.Database) *MessageRepo {
	return &MessageRepo{coll: db.Collection(collMessages)}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	res, err := r.coll.InsertOne(ctx, m)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		m.ID = oid
	}
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Message, error) {
	m := &domain.Message{}
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(m)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return m, nil
}

// ListForConversation queries newest-first; page boundaries are computed on
// that order and the service reverses the page before returning it.
func (r *MessageRepo) ListForConversation(ctx context.Context, conversationID primitive.ObjectID, page domain.Page) ([]*domain.Message, int64, error) {
	filter := bson.M{
		"conversation_id": conversationID,
		"is_deleted":      false,
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(page.Skip())).
		SetLimit(int64(page.Size))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}
	defer cur.Close(ctx)

	var res []*domain.Message
	if err := cur.All(ctx, &res); err != nil {
		return nil, 0, fmt.Errorf("decode messages: %w", err)
	}
	return res, total, nil
}

func (r *MessageRepo) SetContentEdited(ctx context.Context, id primitive.ObjectID, content string, editedAt time.Time) error {
	_, err := r.coll.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"content":   content,
			"is_edited": true,
			"edited_at": editedAt,
		},
	})
	if err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

func (r *MessageRepo) SoftDelete(ctx context.Context, id primitive.ObjectID, tombstone string, deletedAt time.Time) error {
	_, err := r.coll.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"content":    tombstone,
			"is_deleted": true,
			"deleted_at": deletedAt,
		},
	})
	if err != nil {
		return fmt.Errorf("soft delete message: %w", err)
	}
	return nil
}

// MarkRead is a single UpdateMany whose filter excludes messages already
// read by the reader, so concurrent or repeated calls converge on exactly one
// receipt per reader per message.
func (r *MessageRepo) MarkRead(ctx context.Context, conversationID primitive.ObjectID, reader string, messageIDs []primitive.ObjectID, readAt time.Time) (int64, error) {
	filter := bson.M{
		"conversation_id": conversationID,
		"sender":          bson.M{"$ne": reader},
		"read_by.reader":  bson.M{"$ne": reader},
	}
	if len(messageIDs) > 0 {
		filter["_id"] = bson.M{"$in": messageIDs}
	}
	res, err := r.coll.UpdateMany(ctx, filter, bson.M{
		"$push": bson.M{
			"read_by": domain.ReadReceipt{Reader: reader, ReadAt: readAt},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return res.ModifiedCount, nil
}

func (r *MessageRepo) CountUnread(ctx context.Context, conversationID primitive.ObjectID, reader string) (int64, error) {
	count, err := r.coll.CountDocuments(ctx, unreadFilter(bson.M{"conversation_id": conversationID}, reader))
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

func (r *MessageRepo) CountUnreadIn(ctx context.Context, conversationIDs []primitive.ObjectID, reader string) (int64, error) {
	if len(conversationIDs) == 0 {
		return 0, nil
	}
	filter := unreadFilter(bson.M{"conversation_id": bson.M{"$in": conversationIDs}}, reader)
	count, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count unread across conversations: %w", err)
	}
	return count, nil
}

// unreadFilter narrows base to live messages authored by others and not yet
// read by reader. Tombstoned messages never count as unread.
func unreadFilter(base bson.M, reader string) bson.M {
	base["sender"] = bson.M{"$ne": reader}
	base["read_by.reader"] = bson.M{"$ne": reader}
	base["is_deleted"] = false
	return base
}

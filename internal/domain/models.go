package domain

import (
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role of an authenticated principal. Messaging treats both roles uniformly.
type Role string

const (
	RoleUser      Role = "user"
	RoleRecruiter Role = "recruiter"
)

// Principal is the authenticated account resolved upstream. The messaging
// core trusts it and never touches credentials.
type Principal struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// ConnectionStatus is the lifecycle state of a connection request.
type ConnectionStatus string

const (
	ConnectionPending  ConnectionStatus = "pending"
	ConnectionAccepted ConnectionStatus = "accepted"
	ConnectionDeclined ConnectionStatus = "declined"
	ConnectionBlocked  ConnectionStatus = "blocked"
)

// Connection is an edge in the social graph. At most one connection exists
// per unordered principal pair, enforced by a unique index on PairKey.
type Connection struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PairKey     string             `bson:"pair_key" json:"-"`
	Requester   string             `bson:"requester" json:"requester"`
	Recipient   string             `bson:"recipient" json:"recipient"`
	Status      ConnectionStatus   `bson:"status" json:"status"`
	RequestedAt time.Time          `bson:"requested_at" json:"requested_at"`
	ResolvedAt  *time.Time         `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
}

// Conversation binds a fixed set of participants for message exchange.
// For direct (non-group) conversations ParticipantKey is the normalized
// sorted pair and carries a unique index, so two concurrent first-contact
// sends between the same pair can never produce two conversations.
type Conversation struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ParticipantKey string              `bson:"participant_key,omitempty" json:"-"`
	Participants   []string            `bson:"participants" json:"participants"`
	IsGroup        bool                `bson:"is_group" json:"is_group"`
	CreatedBy      string              `bson:"created_by" json:"created_by"`
	LastMessage    *primitive.ObjectID `bson:"last_message,omitempty" json:"last_message,omitempty"`
	LastActivity   time.Time           `bson:"last_activity" json:"last_activity"`
	CreatedAt      time.Time           `bson:"created_at" json:"created_at"`
}

// HasParticipant reports whether the principal belongs to the conversation.
func (c *Conversation) HasParticipant(principalID string) bool {
	for _, p := range c.Participants {
		if p == principalID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the peer of the given principal in a direct
// conversation, or "" when the principal is not a participant.
func (c *Conversation) OtherParticipant(principalID string) string {
	for _, p := range c.Participants {
		if p != principalID {
			return p
		}
	}
	return ""
}

// PairKey normalizes an unordered principal pair into a stable key suitable
// for a unique index.
func PairKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "|")
}

// MessageType classifies message content.
type MessageType string

const (
	MessageTypeText      MessageType = "text"
	MessageTypeImage     MessageType = "image"
	MessageTypeFile      MessageType = "file"
	MessageTypeVideo     MessageType = "video"
	MessageTypePostShare MessageType = "post_share"
)

// Valid reports whether the type is one of the known message types.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeVideo, MessageTypePostShare:
		return true
	}
	return false
}

// Attachment is an opaque reference to media hosted elsewhere. The core
// stores and forwards it without validating or fetching the URL.
type Attachment struct {
	URL  string `bson:"url" json:"url"`
	Name string `bson:"name" json:"name"`
	Type string `bson:"type" json:"type"`
	Size int64  `bson:"size" json:"size"`
}

// ReadReceipt records that a principal has read a message. ReadBy is keyed
// by reader: a message is read by a principal at most once.
type ReadReceipt struct {
	Reader string    `bson:"reader" json:"reader"`
	ReadAt time.Time `bson:"read_at" json:"read_at"`
}

// Tombstone replaces the content of a soft-deleted message.
const Tombstone = "This message was deleted"

// MaxContentLength is the maximum message content length in runes.
const MaxContentLength = 2000

// Message is a single message in a conversation. Messages are append-only:
// edits mutate content in place, deletes tombstone the content, and nothing
// is ever hard-deleted.
type Message struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ConversationID primitive.ObjectID  `bson:"conversation_id" json:"conversation_id"`
	Sender         string              `bson:"sender" json:"sender"`
	Content        string              `bson:"content" json:"content"`
	MessageType    MessageType         `bson:"message_type" json:"message_type"`
	Attachments    []Attachment        `bson:"attachments,omitempty" json:"attachments,omitempty"`
	ReadBy         []ReadReceipt       `bson:"read_by" json:"read_by"`
	IsEdited       bool                `bson:"is_edited" json:"is_edited"`
	EditedAt       *time.Time          `bson:"edited_at,omitempty" json:"edited_at,omitempty"`
	IsDeleted      bool                `bson:"is_deleted" json:"is_deleted"`
	DeletedAt      *time.Time          `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
	ReplyTo        *primitive.ObjectID `bson:"reply_to,omitempty" json:"reply_to,omitempty"`
	SharedPost     string              `bson:"shared_post,omitempty" json:"shared_post,omitempty"`
	CreatedAt      time.Time           `bson:"created_at" json:"created_at"`
}

// ReadByPrincipal reports whether the principal already has a read receipt.
func (m *Message) ReadByPrincipal(principalID string) bool {
	for _, r := range m.ReadBy {
		if r.Reader == principalID {
			return true
		}
	}
	return false
}

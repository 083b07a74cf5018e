package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Message kinds accepted on the wire.
const (
	KindText     = "text"
	KindImage    = "image"
	KindVoice    = "voice"
	KindDocument = "document"
)

func ValidKind(kind string) bool {
	switch kind {
	case KindText, KindImage, KindVoice, KindDocument:
		return true
	}
	return false
}

// Message is immutable once stored except for ReadAt, which transitions
// once from unset to set. Timestamps are Unix milliseconds; ties are
// broken by ID (ObjectIDs are time-prefixed and totally ordered).
type Message struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID   primitive.ObjectID `bson:"tenantId" json:"tenantId"`
	SenderID   primitive.ObjectID `bson:"senderId" json:"senderId"`
	ReceiverID primitive.ObjectID `bson:"receiverId" json:"receiverId"`
	Body       string             `bson:"body,omitempty" json:"body,omitempty"`
	MediaRef   string             `bson:"mediaRef,omitempty" json:"mediaRef,omitempty"`
	Kind       string             `bson:"kind" json:"kind"`
	CreatedAt  int64              `bson:"createdAt" json:"createdAt"`
	ReadAt     *int64             `bson:"readAt,omitempty" json:"readAt,omitempty"`
}

// Before reports whether m sorts strictly before other in the total
// message order (createdAt, then id).
func (m Message) Before(other Message) bool {
	if m.CreatedAt != other.CreatedAt {
		return m.CreatedAt < other.CreatedAt
	}
	return m.ID.Hex() < other.ID.Hex()
}

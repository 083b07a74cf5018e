// Package store is the durable, tenant-scoped record store for messages
// and notifications, plus the conversation views derived from them. No
// unread counters are maintained; views are computed on read.
package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"medilink/models"
)

type Store interface {
	// Staff directory (projection owned by the CRUD layer; kept here for
	// recipient validation and the conversation roster).
	PutStaff(ctx context.Context, staff models.Staff) error
	GetStaff(ctx context.Context, tenantID, staffID primitive.ObjectID) (models.Staff, error)
	Participants(ctx context.Context, tenantID primitive.ObjectID) ([]models.Staff, error)

	// AppendMessage validates the draft's receiver (ErrRecipientNotFound,
	// ErrTenantMismatch), assigns id and timestamp, and persists it.
	AppendMessage(ctx context.Context, draft models.Message) (models.Message, error)

	// MarkRead stamps readAt on every unread message from senderID to
	// receiverID. Idempotent; returns how many records changed.
	MarkRead(ctx context.Context, tenantID, receiverID, senderID primitive.ObjectID) (int64, error)

	// ListMessages returns the full viewer↔peer history ascending by
	// (createdAt, id). Messages directed at the viewer are marked read as
	// a side effect; the second return is how many were flipped.
	ListMessages(ctx context.Context, tenantID, viewerID, peerID primitive.ObjectID) ([]models.Message, int64, error)

	// ListConversations returns one view per other tenant participant,
	// most recent conversation first, peers with no messages last, ties
	// broken by peer id.
	ListConversations(ctx context.Context, tenantID, viewerID primitive.ObjectID) ([]models.Conversation, error)

	CreateNotification(ctx context.Context, draft models.Notification) (models.Notification, error)
	UnreadNotifications(ctx context.Context, tenantID, targetID primitive.ObjectID) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, tenantID, id primitive.ObjectID) error
}

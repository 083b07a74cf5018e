package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"medilink/errs"
	"medilink/models"
)

// Mongo is the production Store. Every record carries tenantId as a
// partition key and every query filters on it.
type Mongo struct {
	staff         *mongo.Collection
	messages      *mongo.Collection
	notifications *mongo.Collection
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{
		staff:         db.Collection("staff"),
		messages:      db.Collection("messages"),
		notifications: db.Collection("notifications"),
	}
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
}

func (m *Mongo) PutStaff(ctx context.Context, staff models.Staff) error {
	if staff.ID.IsZero() {
		staff.ID = primitive.NewObjectID()
	}
	_, err := m.staff.UpdateOne(ctx,
		bson.M{"_id": staff.ID},
		bson.M{"$set": bson.M{"tenantId": staff.TenantID, "name": staff.Name, "role": staff.Role}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return storeErr(err)
	}
	return nil
}

func (m *Mongo) GetStaff(ctx context.Context, tenantID, staffID primitive.ObjectID) (models.Staff, error) {
	var s models.Staff
	err := m.staff.FindOne(ctx, bson.M{"_id": staffID, "tenantId": tenantID}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Staff{}, errs.ErrRecipientNotFound
	}
	if err != nil {
		return models.Staff{}, storeErr(err)
	}
	return s, nil
}

func (m *Mongo) Participants(ctx context.Context, tenantID primitive.ObjectID) ([]models.Staff, error) {
	cursor, err := m.staff.Find(ctx, bson.M{"tenantId": tenantID})
	if err != nil {
		return nil, storeErr(err)
	}
	defer cursor.Close(ctx)

	var out []models.Staff
	if err := cursor.All(ctx, &out); err != nil {
		return nil, storeErr(err)
	}
	return out, nil
}

// checkRecipient distinguishes an unknown participant from one in another
// tenant, so senders get the precise failure.
func (m *Mongo) checkRecipient(ctx context.Context, tenantID, recipientID primitive.ObjectID) error {
	var s models.Staff
	err := m.staff.FindOne(ctx, bson.M{"_id": recipientID}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return errs.ErrRecipientNotFound
	}
	if err != nil {
		return storeErr(err)
	}
	if s.TenantID != tenantID {
		return errs.ErrTenantMismatch
	}
	return nil
}

func (m *Mongo) AppendMessage(ctx context.Context, draft models.Message) (models.Message, error) {
	if err := m.checkRecipient(ctx, draft.TenantID, draft.ReceiverID); err != nil {
		return models.Message{}, err
	}

	draft.ID = primitive.NewObjectID()
	draft.CreatedAt = time.Now().UnixMilli()
	draft.ReadAt = nil

	if _, err := m.messages.InsertOne(ctx, draft); err != nil {
		return models.Message{}, storeErr(err)
	}
	return draft, nil
}

func (m *Mongo) MarkRead(ctx context.Context, tenantID, receiverID, senderID primitive.ObjectID) (int64, error) {
	result, err := m.messages.UpdateMany(ctx,
		bson.M{
			"tenantId":   tenantID,
			"senderId":   senderID,
			"receiverId": receiverID,
			"readAt":     bson.M{"$exists": false},
		},
		bson.M{"$set": bson.M{"readAt": time.Now().UnixMilli()}},
	)
	if err != nil {
		return 0, storeErr(err)
	}
	return result.ModifiedCount, nil
}

func (m *Mongo) ListMessages(ctx context.Context, tenantID, viewerID, peerID primitive.ObjectID) ([]models.Message, int64, error) {
	updated, err := m.MarkRead(ctx, tenantID, viewerID, peerID)
	if err != nil {
		return nil, 0, err
	}

	filter := bson.M{
		"tenantId": tenantID,
		"$or": bson.A{
			bson.M{"senderId": viewerID, "receiverId": peerID},
			bson.M{"senderId": peerID, "receiverId": viewerID},
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := m.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, storeErr(err)
	}
	defer cursor.Close(ctx)

	var out []models.Message
	if err := cursor.All(ctx, &out); err != nil {
		return nil, 0, storeErr(err)
	}
	return out, updated, nil
}

func (m *Mongo) ListConversations(ctx context.Context, tenantID, viewerID primitive.ObjectID) ([]models.Conversation, error) {
	participants, err := m.Participants(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	// One pass over the viewer's messages: group by peer, keep the most
	// recent record and count unread ones directed at the viewer.
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"tenantId": tenantID,
			"$or": bson.A{
				bson.M{"senderId": viewerID},
				bson.M{"receiverId": viewerID},
			},
		}}},
		{{Key: "$addFields", Value: bson.M{
			"peer": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$senderId", viewerID}},
				"$receiverId",
				"$senderId",
			}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$group", Value: bson.M{
			"_id":         "$peer",
			"lastMessage": bson.M{"$first": "$$ROOT"},
			"unreadCount": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$and": bson.A{
					bson.M{"$eq": bson.A{"$receiverId", viewerID}},
					bson.M{"$eq": bson.A{bson.M{"$ifNull": bson.A{"$readAt", nil}}, nil}},
				}},
				1,
				0,
			}}},
		}}},
	}

	cursor, err := m.messages.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, storeErr(err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Peer        primitive.ObjectID `bson:"_id"`
		LastMessage models.Message     `bson:"lastMessage"`
		UnreadCount int64              `bson:"unreadCount"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, storeErr(err)
	}

	views := make([]models.Conversation, 0, len(participants))
	for _, p := range participants {
		if p.ID == viewerID {
			continue
		}
		view := models.Conversation{PeerID: p.ID, PeerName: p.Name, PeerRole: p.Role}
		for i := range rows {
			if rows[i].Peer == p.ID {
				last := rows[i].LastMessage
				view.LastMessage = &last
				view.UnreadCount = rows[i].UnreadCount
				break
			}
		}
		views = append(views, view)
	}

	sortConversations(views)
	return views, nil
}

// sortConversations orders views most recent first, peers with no
// messages last, ties by peer id for determinism.
func sortConversations(views []models.Conversation) {
	sort.SliceStable(views, func(i, j int) bool {
		a, b := views[i], views[j]
		switch {
		case a.LastMessage == nil && b.LastMessage == nil:
			return a.PeerID.Hex() < b.PeerID.Hex()
		case a.LastMessage == nil:
			return false
		case b.LastMessage == nil:
			return true
		case a.LastMessage.CreatedAt != b.LastMessage.CreatedAt:
			return a.LastMessage.CreatedAt > b.LastMessage.CreatedAt
		default:
			return a.PeerID.Hex() < b.PeerID.Hex()
		}
	})
}

func (m *Mongo) CreateNotification(ctx context.Context, draft models.Notification) (models.Notification, error) {
	if err := m.checkRecipient(ctx, draft.TenantID, draft.TargetID); err != nil {
		return models.Notification{}, err
	}

	draft.ID = primitive.NewObjectID()
	draft.CreatedAt = time.Now().UnixMilli()
	draft.Read = false

	if _, err := m.notifications.InsertOne(ctx, draft); err != nil {
		return models.Notification{}, storeErr(err)
	}
	return draft, nil
}

func (m *Mongo) UnreadNotifications(ctx context.Context, tenantID, targetID primitive.ObjectID) ([]models.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := m.notifications.Find(ctx,
		bson.M{"tenantId": tenantID, "targetId": targetID, "read": false}, opts)
	if err != nil {
		return nil, storeErr(err)
	}
	defer cursor.Close(ctx)

	var out []models.Notification
	if err := cursor.All(ctx, &out); err != nil {
		return nil, storeErr(err)
	}
	return out, nil
}

func (m *Mongo) MarkNotificationRead(ctx context.Context, tenantID, id primitive.ObjectID) error {
	_, err := m.notifications.UpdateOne(ctx,
		bson.M{"_id": id, "tenantId": tenantID},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return storeErr(err)
	}
	return nil
}

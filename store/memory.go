package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"medilink/errs"
	"medilink/models"
)

// Memory is an in-process Store with the same semantics as Mongo. It backs
// the test suites and the memory store driver for credential-free local
// runs. Each call holds the lock for its full duration, matching the
// per-call transactional boundary of the durable store.
type Memory struct {
	mu            sync.Mutex
	staff         map[primitive.ObjectID]models.Staff
	messages      []models.Message
	notifications []models.Notification
	lastStamp     int64
}

func NewMemory() *Memory {
	return &Memory{staff: make(map[primitive.ObjectID]models.Staff)}
}

// stamp returns a strictly increasing unix-millis timestamp so appends in
// the same millisecond still order by createdAt alone.
func (m *Memory) stamp() int64 {
	now := time.Now().UnixMilli()
	if now <= m.lastStamp {
		now = m.lastStamp + 1
	}
	m.lastStamp = now
	return now
}

func (m *Memory) PutStaff(_ context.Context, staff models.Staff) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if staff.ID.IsZero() {
		staff.ID = primitive.NewObjectID()
	}
	m.staff[staff.ID] = staff
	return nil
}

func (m *Memory) GetStaff(_ context.Context, tenantID, staffID primitive.ObjectID) (models.Staff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.staff[staffID]
	if !ok || s.TenantID != tenantID {
		return models.Staff{}, errs.ErrRecipientNotFound
	}
	return s, nil
}

func (m *Memory) Participants(_ context.Context, tenantID primitive.ObjectID) ([]models.Staff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	staff := lo.Filter(lo.Values(m.staff), func(s models.Staff, _ int) bool {
		return s.TenantID == tenantID
	})
	sort.Slice(staff, func(i, j int) bool { return staff[i].ID.Hex() < staff[j].ID.Hex() })
	return staff, nil
}

func (m *Memory) checkRecipient(tenantID, recipientID primitive.ObjectID) error {
	s, ok := m.staff[recipientID]
	if !ok {
		return errs.ErrRecipientNotFound
	}
	if s.TenantID != tenantID {
		return errs.ErrTenantMismatch
	}
	return nil
}

func (m *Memory) AppendMessage(_ context.Context, draft models.Message) (models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkRecipient(draft.TenantID, draft.ReceiverID); err != nil {
		return models.Message{}, err
	}

	draft.ID = primitive.NewObjectID()
	draft.CreatedAt = m.stamp()
	draft.ReadAt = nil
	m.messages = append(m.messages, draft)
	return draft, nil
}

func (m *Memory) MarkRead(_ context.Context, tenantID, receiverID, senderID primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var updated int64
	now := time.Now().UnixMilli()
	for i := range m.messages {
		msg := &m.messages[i]
		if msg.TenantID == tenantID && msg.SenderID == senderID &&
			msg.ReceiverID == receiverID && msg.ReadAt == nil {
			at := now
			msg.ReadAt = &at
			updated++
		}
	}
	return updated, nil
}

func (m *Memory) ListMessages(ctx context.Context, tenantID, viewerID, peerID primitive.ObjectID) ([]models.Message, int64, error) {
	updated, err := m.MarkRead(ctx, tenantID, viewerID, peerID)
	if err != nil {
		return nil, 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	history := lo.Filter(m.messages, func(msg models.Message, _ int) bool {
		if msg.TenantID != tenantID {
			return false
		}
		return (msg.SenderID == viewerID && msg.ReceiverID == peerID) ||
			(msg.SenderID == peerID && msg.ReceiverID == viewerID)
	})
	sort.Slice(history, func(i, j int) bool { return history[i].Before(history[j]) })
	return history, updated, nil
}

func (m *Memory) ListConversations(ctx context.Context, tenantID, viewerID primitive.ObjectID) ([]models.Conversation, error) {
	participants, err := m.Participants(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	views := make([]models.Conversation, 0, len(participants))
	for _, p := range participants {
		if p.ID == viewerID {
			continue
		}
		view := models.Conversation{PeerID: p.ID, PeerName: p.Name, PeerRole: p.Role}
		for i := range m.messages {
			msg := m.messages[i]
			if msg.TenantID != tenantID {
				continue
			}
			pair := (msg.SenderID == viewerID && msg.ReceiverID == p.ID) ||
				(msg.SenderID == p.ID && msg.ReceiverID == viewerID)
			if !pair {
				continue
			}
			if view.LastMessage == nil || view.LastMessage.Before(msg) {
				last := msg
				view.LastMessage = &last
			}
			if msg.ReceiverID == viewerID && msg.ReadAt == nil {
				view.UnreadCount++
			}
		}
		views = append(views, view)
	}

	sortConversations(views)
	return views, nil
}

func (m *Memory) CreateNotification(_ context.Context, draft models.Notification) (models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkRecipient(draft.TenantID, draft.TargetID); err != nil {
		return models.Notification{}, err
	}

	draft.ID = primitive.NewObjectID()
	draft.CreatedAt = m.stamp()
	draft.Read = false
	m.notifications = append(m.notifications, draft)
	return draft, nil
}

func (m *Memory) UnreadNotifications(_ context.Context, tenantID, targetID primitive.ObjectID) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := lo.Filter(m.notifications, func(n models.Notification, _ int) bool {
		return n.TenantID == tenantID && n.TargetID == targetID && !n.Read
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	return out, nil
}

func (m *Memory) MarkNotificationRead(_ context.Context, tenantID, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.notifications {
		if m.notifications[i].ID == id && m.notifications[i].TenantID == tenantID {
			m.notifications[i].Read = true
		}
	}
	return nil
}

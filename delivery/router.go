// Package delivery routes live events to the handles of their intended
// recipients. Durability always happens before routing and never depends
// on it: a miss here costs immediacy, not data.
package delivery

import (
	"log/slog"
	"time"

	"medilink/events"
	"medilink/models"
	"medilink/presence"
)

type Result string

const (
	Delivered Result = "delivered"
	Missed    Result = "missed"
	Failed    Result = "error"
)

// Outcome reports what happened on one target handle (or the absence of
// any handle). A Missed or Failed outcome never fails the calling
// operation.
type Outcome struct {
	ParticipantID string
	HandleID      string
	Result        Result
	Err           error
}

type Router struct {
	registry *presence.Registry
	log      *slog.Logger
}

func NewRouter(registry *presence.Registry, log *slog.Logger) *Router {
	return &Router{registry: registry, log: log}
}

// push sends one encoded frame to every live handle of a participant.
// Send failures are contained per handle.
func (r *Router) push(participantID string, frame []byte) []Outcome {
	handles := r.registry.LiveHandles(participantID)
	if len(handles) == 0 {
		r.log.Debug("delivery miss", "participant", participantID)
		return []Outcome{{ParticipantID: participantID, Result: Missed}}
	}

	outcomes := make([]Outcome, 0, len(handles))
	for _, h := range handles {
		o := Outcome{ParticipantID: participantID, HandleID: h.ID(), Result: Delivered}
		if err := h.Send(frame); err != nil {
			o.Result = Failed
			o.Err = err
			r.log.Warn("push failed", "participant", participantID, "handle", h.ID(), "err", err)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes
}

func (r *Router) encode(eventType string, payload any) []byte {
	frame, err := events.Encode(eventType, payload)
	if err != nil {
		r.log.Error("event encode failed", "type", eventType, "err", err)
		return nil
	}
	return frame
}

// RouteMessage pushes a stored message to the receiver's handles and an
// ack to the sender's own handles. The ack goes out whether or not the
// receiver was reachable.
func (r *Router) RouteMessage(msg models.Message) []Outcome {
	var outcomes []Outcome
	if frame := r.encode(events.TypeMessageReceived, msg); frame != nil {
		outcomes = append(outcomes, r.push(msg.ReceiverID.Hex(), frame)...)
	}
	ack := events.Ack{ID: msg.ID.Hex(), CreatedAt: msg.CreatedAt}
	if frame := r.encode(events.TypeMessageAck, ack); frame != nil {
		outcomes = append(outcomes, r.push(msg.SenderID.Hex(), frame)...)
	}
	return outcomes
}

// RouteTyping is best effort and never persisted.
func (r *Router) RouteTyping(senderID, receiverID string, typing bool) []Outcome {
	frame := r.encode(events.TypeTyping, events.TypingNotice{SenderID: senderID, Typing: typing})
	if frame == nil {
		return nil
	}
	return r.push(receiverID, frame)
}

// RouteReadReceipt tells the author their messages were read.
func (r *Router) RouteReadReceipt(readerID, authorID string) []Outcome {
	receipt := events.ReadReceipt{ReaderID: readerID, At: time.Now().UnixMilli()}
	frame := r.encode(events.TypeReadReceipt, receipt)
	if frame == nil {
		return nil
	}
	return r.push(authorID, frame)
}

// RouteNotification pushes a stored notification to its target only;
// sharing a tenant grants no visibility.
func (r *Router) RouteNotification(n models.Notification) []Outcome {
	frame := r.encode(events.TypeNotification, n)
	if frame == nil {
		return nil
	}
	return r.push(n.TargetID.Hex(), frame)
}

// BroadcastPresence fans a presence change out to every live handle in
// the participant's tenant, excluding the participant themselves. Strictly
// tenant-scoped.
func (r *Router) BroadcastPresence(tenantID, participantID, status string, lastSeenAt *int64) {
	change := events.PresenceChanged{ParticipantID: participantID, Status: status, LastSeenAt: lastSeenAt}
	frame := r.encode(events.TypePresenceChanged, change)
	if frame == nil {
		return
	}
	for _, h := range r.registry.TenantHandles(tenantID, participantID) {
		if err := h.Send(frame); err != nil {
			r.log.Warn("presence push failed", "handle", h.ID(), "err", err)
		}
	}
}

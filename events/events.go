// Package events defines the live-transport protocol: a closed set of
// event kinds per direction, carried as {"type": ..., "payload": ...}
// JSON frames. Inbound frames decode into a tagged union so the session
// gateway can match them exhaustively; an unknown type is a decode error,
// not a silently dropped frame.
package events

import (
	"encoding/json"
	"fmt"
)

// Client→server event types.
const (
	TypeRegister    = "register"
	TypeMessageSend = "message_send"
	TypeTyping      = "typing"
	TypeMarkRead    = "mark_read"
	TypePing        = "ping"
)

// Server→client event types.
const (
	TypeConnected       = "connected"
	TypeMessageReceived = "message_received"
	TypeMessageAck      = "message_ack"
	TypeReadReceipt     = "read_receipt"
	TypePresenceChanged = "presence_changed"
	TypeNotification    = "notification"
	TypePong            = "pong"
	TypeError           = "error"
)

type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound is the closed union of client→server events.
type Inbound interface{ inbound() }

type Register struct {
	ParticipantID string `json:"participantId"`
	TenantID      string `json:"tenantId"`
}

type MessageSend struct {
	ReceiverID string `json:"receiverId"`
	Body       string `json:"body,omitempty"`
	MediaRef   string `json:"mediaRef,omitempty"`
	Kind       string `json:"kind,omitempty"`
}

type Typing struct {
	ReceiverID string `json:"receiverId"`
	Typing     bool   `json:"typing"`
}

type MarkRead struct {
	SenderID string `json:"senderId"`
}

type Ping struct{}

func (Register) inbound()    {}
func (MessageSend) inbound() {}
func (Typing) inbound()      {}
func (MarkRead) inbound()    {}
func (Ping) inbound()        {}

// DecodeInbound parses one client frame. Unknown event types are an error
// so new client event classes cannot slip past the gateway unhandled.
func DecodeInbound(frame []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}

	var (
		ev  Inbound
		err error
	)
	switch env.Type {
	case TypeRegister:
		var p Register
		err = json.Unmarshal(env.Payload, &p)
		ev = p
	case TypeMessageSend:
		var p MessageSend
		err = json.Unmarshal(env.Payload, &p)
		ev = p
	case TypeTyping:
		var p Typing
		err = json.Unmarshal(env.Payload, &p)
		ev = p
	case TypeMarkRead:
		var p MarkRead
		err = json.Unmarshal(env.Payload, &p)
		ev = p
	case TypePing:
		ev = Ping{}
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("bad %s payload: %w", env.Type, err)
	}
	return ev, nil
}

// Encode builds one server frame.
func Encode(eventType string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: eventType, Payload: body})
}

// Server→client payloads that are not full records.

type Connected struct {
	ParticipantID string `json:"participantId"`
	At            int64  `json:"at"`
}

type Ack struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"createdAt"`
}

type TypingNotice struct {
	SenderID string `json:"senderId"`
	Typing   bool   `json:"typing"`
}

type ReadReceipt struct {
	ReaderID string `json:"readerId"`
	At       int64  `json:"at"`
}

type PresenceChanged struct {
	ParticipantID string `json:"participantId"`
	Status        string `json:"status"`
	LastSeenAt    *int64 `json:"lastSeenAt,omitempty"`
}

type Pong struct {
	At int64 `json:"at"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

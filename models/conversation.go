package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Conversation is the derived per-peer view: the most recent message
// between viewer and peer plus the viewer's unread count. Never stored;
// computed on read from the message log.
type Conversation struct {
	PeerID      primitive.ObjectID `json:"peerId"`
	PeerName    string             `json:"peerName"`
	PeerRole    string             `json:"peerRole,omitempty"`
	LastMessage *Message           `json:"lastMessage,omitempty"`
	UnreadCount int64              `json:"unreadCount"`
}

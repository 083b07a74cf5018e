// Package websocket is the session gateway: it accepts live connections,
// ties them to an authenticated principal, registers them with the
// presence registry, and dispatches inbound client events. Per connection
// the lifecycle is Connecting → Authenticated → Registered → Closed.
package websocket

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"medilink/delivery"
	"medilink/errs"
	"medilink/events"
	"medilink/middleware"
	"medilink/models"
	"medilink/presence"
	"medilink/store"
)

const storeTimeout = 10 * time.Second

type Gateway struct {
	store     store.Store
	registry  *presence.Registry
	router    *delivery.Router
	jwtSecret string
	heartbeat time.Duration
	writeWait time.Duration
	log       *slog.Logger
	upgrader  websocket.Upgrader
}

func NewGateway(st store.Store, registry *presence.Registry, router *delivery.Router,
	jwtSecret string, heartbeat, writeWait time.Duration, log *slog.Logger) *Gateway {
	return &Gateway{
		store:     st,
		registry:  registry,
		router:    router,
		jwtSecret: jwtSecret,
		heartbeat: heartbeat,
		writeWait: writeWait,
		log:       log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handler upgrades /ws connections. The principal token is required
// before the upgrade; an absent or invalid token never reaches the
// registry.
func (g *Gateway) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := middleware.TokenFromRequest(r)
		if tokenString == "" {
			http.Error(w, "token required", http.StatusUnauthorized)
			return
		}
		claims, err := middleware.ParseToken(g.jwtSecret, tokenString)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := g.upgrader.Upgrade(w, r, nil)
		if err != nil {
			g.log.Warn("websocket upgrade failed", "err", err)
			return
		}

		client := newClient(conn, claims.StaffID, claims.TenantID)
		go client.writePump(g.heartbeat, g.writeWait)
		go g.readPump(client)
	}
}

// readPump is the per-connection goroutine: it enforces the heartbeat
// window and dispatches each decoded frame. Exiting the loop for any
// reason deregisters the connection.
func (g *Gateway) readPump(c *Client) {
	defer g.closeClient(c)

	c.conn.SetReadLimit(32 * 1024)
	c.conn.SetReadDeadline(time.Now().Add(g.heartbeat))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(g.heartbeat))
		return nil
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.log.Debug("websocket read error", "participant", c.participantID, "err", err)
			}
			return
		}

		ev, err := events.DecodeInbound(frame)
		if err != nil {
			g.sendError(c, "bad_request", err.Error())
			continue
		}

		switch ev := ev.(type) {
		case events.Register:
			if !g.handleRegister(c, ev) {
				return
			}
		case events.MessageSend:
			if c.registered {
				g.handleMessageSend(c, ev)
			} else {
				g.sendError(c, "not_registered", "register before sending events")
			}
		case events.Typing:
			if c.registered {
				g.handleTyping(c, ev)
			} else {
				g.sendError(c, "not_registered", "register before sending events")
			}
		case events.MarkRead:
			if c.registered {
				g.handleMarkRead(c, ev)
			} else {
				g.sendError(c, "not_registered", "register before sending events")
			}
		case events.Ping:
			g.sendEvent(c, events.TypePong, events.Pong{At: time.Now().UnixMilli()})
		}
	}
}

// handleRegister completes the handshake. The declared identity must match
// the principal the connection authenticated with; anything else is an
// impersonation attempt and closes the connection. Returns false when the
// connection must close.
func (g *Gateway) handleRegister(c *Client, ev events.Register) bool {
	if ev.ParticipantID != c.participantID || ev.TenantID != c.tenantID {
		g.sendError(c, "unauthorized", "register does not match authenticated principal")
		return false
	}
	if c.registered {
		return true
	}

	g.registry.Register(c.participantID, c.tenantID, c)
	c.registered = true

	g.sendEvent(c, events.TypeConnected, events.Connected{
		ParticipantID: c.participantID,
		At:            time.Now().UnixMilli(),
	})
	g.router.BroadcastPresence(c.tenantID, c.participantID, presence.StatusOnline, nil)
	g.log.Info("participant online", "participant", c.participantID, "tenant", c.tenantID)
	return true
}

func (g *Gateway) handleMessageSend(c *Client, ev events.MessageSend) {
	senderID, err1 := primitive.ObjectIDFromHex(c.participantID)
	tenantID, err2 := primitive.ObjectIDFromHex(c.tenantID)
	receiverID, err3 := primitive.ObjectIDFromHex(ev.ReceiverID)
	if err1 != nil || err2 != nil || err3 != nil {
		g.sendError(c, "bad_request", "invalid participant id")
		return
	}

	kind := ev.Kind
	if kind == "" {
		kind = models.KindText
	}
	if !models.ValidKind(kind) {
		g.sendError(c, "bad_request", "unknown message kind")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	msg, err := g.store.AppendMessage(ctx, models.Message{
		TenantID:   tenantID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       ev.Body,
		MediaRef:   ev.MediaRef,
		Kind:       kind,
	})
	if err != nil {
		// No live push for an unpersisted record.
		g.sendError(c, errorCode(err), "message not sent")
		return
	}

	g.router.RouteMessage(msg)
}

func (g *Gateway) handleTyping(c *Client, ev events.Typing) {
	tenantID, err1 := primitive.ObjectIDFromHex(c.tenantID)
	receiverID, err2 := primitive.ObjectIDFromHex(ev.ReceiverID)
	if err1 != nil || err2 != nil {
		return
	}

	// Typing is best effort but still tenant-scoped: an unknown or
	// cross-tenant receiver is dropped silently.
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if _, err := g.store.GetStaff(ctx, tenantID, receiverID); err != nil {
		return
	}

	g.router.RouteTyping(c.participantID, ev.ReceiverID, ev.Typing)
}

func (g *Gateway) handleMarkRead(c *Client, ev events.MarkRead) {
	tenantID, err1 := primitive.ObjectIDFromHex(c.tenantID)
	receiverID, err2 := primitive.ObjectIDFromHex(c.participantID)
	senderID, err3 := primitive.ObjectIDFromHex(ev.SenderID)
	if err1 != nil || err2 != nil || err3 != nil {
		g.sendError(c, "bad_request", "invalid sender id")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if _, err := g.store.MarkRead(ctx, tenantID, receiverID, senderID); err != nil {
		g.sendError(c, errorCode(err), "mark read failed")
		return
	}
	g.router.RouteReadReceipt(c.participantID, ev.SenderID)
}

// closeClient tears the connection down and, when it was the participant's
// last handle, announces them offline to the rest of the tenant.
func (g *Gateway) closeClient(c *Client) {
	c.shutdown()
	if !c.registered {
		return
	}

	wentOffline, lastSeen := g.registry.Deregister(c.participantID, c)
	if wentOffline {
		g.router.BroadcastPresence(c.tenantID, c.participantID, presence.StatusOffline, &lastSeen)
		g.log.Info("participant offline", "participant", c.participantID, "tenant", c.tenantID)
	}
}

func (g *Gateway) sendEvent(c *Client, eventType string, payload any) {
	frame, err := events.Encode(eventType, payload)
	if err != nil {
		g.log.Error("event encode failed", "type", eventType, "err", err)
		return
	}
	if err := c.Send(frame); err != nil {
		g.log.Debug("send dropped", "participant", c.participantID, "type", eventType, "err", err)
	}
}

func (g *Gateway) sendError(c *Client, code, message string) {
	g.sendEvent(c, events.TypeError, events.Error{Code: code, Message: message})
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, errs.ErrTenantMismatch):
		return "tenant_mismatch"
	case errors.Is(err, errs.ErrRecipientNotFound):
		return "recipient_not_found"
	case errors.Is(err, errs.ErrUnauthorized):
		return "unauthorized"
	default:
		return "store_unavailable"
	}
}

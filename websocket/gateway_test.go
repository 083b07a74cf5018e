package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"medilink/delivery"
	"medilink/events"
	"medilink/middleware"
	"medilink/models"
	"medilink/presence"
	"medilink/store"
)

const testSecret = "gateway-test-secret"

type fixture struct {
	store    *store.Memory
	registry *presence.Registry
	server   *httptest.Server
	tenant   primitive.ObjectID
	s1, s2   primitive.ObjectID
}

func newFixture(t *testing.T, heartbeat time.Duration) *fixture {
	t.Helper()
	req := require.New(t)

	st := store.NewMemory()
	tenant := primitive.NewObjectID()
	s1 := models.Staff{ID: primitive.NewObjectID(), TenantID: tenant, Name: "Dr. Mensah"}
	s2 := models.Staff{ID: primitive.NewObjectID(), TenantID: tenant, Name: "Nurse Bello"}
	req.NoError(st.PutStaff(context.Background(), s1))
	req.NoError(st.PutStaff(context.Background(), s2))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := presence.NewRegistry(logger)
	router := delivery.NewRouter(registry, logger)
	gateway := NewGateway(st, registry, router, testSecret, heartbeat, 5*time.Second, logger)

	server := httptest.NewServer(gateway.Handler())
	t.Cleanup(server.Close)

	return &fixture{store: st, registry: registry, server: server, tenant: tenant, s1: s1.ID, s2: s2.ID}
}

func mintToken(t *testing.T, staffID, tenantID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		StaffID:  staffID,
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

type session struct {
	t    *testing.T
	conn *websocket.Conn
}

func (f *fixture) dial(t *testing.T, staffID primitive.ObjectID) *session {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "?token=" +
		mintToken(t, staffID.Hex(), f.tenant.Hex())
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &session{t: t, conn: conn}
}

func (s *session) sendEvent(eventType string, payload any) {
	s.t.Helper()
	frame, err := events.Encode(eventType, payload)
	require.NoError(s.t, err)
	require.NoError(s.t, s.conn.WriteMessage(websocket.TextMessage, frame))
}

// expect reads frames until one of the wanted type arrives, skipping
// interleaved presence/typing chatter.
func (s *session) expect(eventType string) json.RawMessage {
	s.t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		require.NoError(s.t, s.conn.SetReadDeadline(deadline))
		_, frame, err := s.conn.ReadMessage()
		require.NoError(s.t, err, "waiting for %s", eventType)

		var env events.Envelope
		require.NoError(s.t, json.Unmarshal(frame, &env))
		if env.Type == eventType {
			return env.Payload
		}
	}
}

func (f *fixture) register(t *testing.T, s *session, staffID primitive.ObjectID) {
	t.Helper()
	s.sendEvent(events.TypeRegister, events.Register{
		ParticipantID: staffID.Hex(),
		TenantID:      f.tenant.Hex(),
	})
	s.expect(events.TypeConnected)
}

func Test_Upgrade_Requires_Valid_Token(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, time.Minute)
	base := "ws" + strings.TrimPrefix(f.server.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(base, nil)
	req.ErrorIs(err, websocket.ErrBadHandshake)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(base+"?token=garbage", nil)
	req.ErrorIs(err, websocket.ErrBadHandshake)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func Test_Register_Must_Match_Principal(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, time.Minute)

	s := f.dial(t, f.s1)
	s.sendEvent(events.TypeRegister, events.Register{
		ParticipantID: f.s2.Hex(), // someone else's identity
		TenantID:      f.tenant.Hex(),
	})

	payload := s.expect(events.TypeError)
	var ev events.Error
	req.NoError(json.Unmarshal(payload, &ev))
	req.Equal("unauthorized", ev.Code)

	req.False(f.registry.IsOnline(f.s2.Hex()))
	req.False(f.registry.IsOnline(f.s1.Hex()))
}

func Test_Events_Rejected_Before_Register(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, time.Minute)

	s := f.dial(t, f.s1)
	s.sendEvent(events.TypeMessageSend, events.MessageSend{ReceiverID: f.s2.Hex(), Body: "too soon"})

	payload := s.expect(events.TypeError)
	var ev events.Error
	req.NoError(json.Unmarshal(payload, &ev))
	req.Equal("not_registered", ev.Code)
}

func Test_End_To_End_Message_Flow(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, time.Minute)

	alice := f.dial(t, f.s1)
	f.register(t, alice, f.s1)
	bob := f.dial(t, f.s2)
	f.register(t, bob, f.s2)

	// Alice learns Bob came online; tenant-scoped fanout.
	payload := alice.expect(events.TypePresenceChanged)
	var change events.PresenceChanged
	req.NoError(json.Unmarshal(payload, &change))
	req.Equal(f.s2.Hex(), change.ParticipantID)
	req.Equal(presence.StatusOnline, change.Status)

	// Alice → Bob while Bob is live.
	alice.sendEvent(events.TypeMessageSend, events.MessageSend{ReceiverID: f.s2.Hex(), Body: "vitals ready"})

	var got models.Message
	req.NoError(json.Unmarshal(bob.expect(events.TypeMessageReceived), &got))
	req.Equal("vitals ready", got.Body)
	req.Equal(f.s1, got.SenderID)

	var ack events.Ack
	req.NoError(json.Unmarshal(alice.expect(events.TypeMessageAck), &ack))
	req.Equal(got.ID.Hex(), ack.ID)
	req.Equal(got.CreatedAt, ack.CreatedAt)

	// Bob marks it read; Alice gets the receipt.
	bob.sendEvent(events.TypeMarkRead, events.MarkRead{SenderID: f.s1.Hex()})

	var receipt events.ReadReceipt
	req.NoError(json.Unmarshal(alice.expect(events.TypeReadReceipt), &receipt))
	req.Equal(f.s2.Hex(), receipt.ReaderID)

	views, err := f.store.ListConversations(context.Background(), f.tenant, f.s1)
	req.NoError(err)
	for _, v := range views {
		if v.PeerID == f.s2 {
			req.Zero(v.UnreadCount)
		}
	}

	// Typing indicator, best effort.
	alice.sendEvent(events.TypeTyping, events.Typing{ReceiverID: f.s2.Hex(), Typing: true})
	var notice events.TypingNotice
	req.NoError(json.Unmarshal(bob.expect(events.TypeTyping), &notice))
	req.Equal(f.s1.Hex(), notice.SenderID)
	req.True(notice.Typing)

	// Bob disconnects; Alice sees him go offline with a last-seen stamp.
	bob.conn.Close()
	req.NoError(json.Unmarshal(alice.expect(events.TypePresenceChanged), &change))
	req.Equal(f.s2.Hex(), change.ParticipantID)
	req.Equal(presence.StatusOffline, change.Status)
	req.NotNil(change.LastSeenAt)
}

func Test_Message_Survives_Offline_Recipient(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, time.Minute)

	alice := f.dial(t, f.s1)
	f.register(t, alice, f.s1)

	alice.sendEvent(events.TypeMessageSend, events.MessageSend{ReceiverID: f.s2.Hex(), Body: "see you at handover"})

	// The ack confirms durable append even though nobody was there.
	var ack events.Ack
	req.NoError(json.Unmarshal(alice.expect(events.TypeMessageAck), &ack))

	history, _, err := f.store.ListMessages(context.Background(), f.tenant, f.s2, f.s1)
	req.NoError(err)
	req.Len(history, 1)
	req.Equal("see you at handover", history[0].Body)
}

func Test_Cross_Tenant_Send_Fails_With_Error_Event(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, time.Minute)

	outsider := models.Staff{ID: primitive.NewObjectID(), TenantID: primitive.NewObjectID(), Name: "Other Hospital"}
	req.NoError(f.store.PutStaff(context.Background(), outsider))

	alice := f.dial(t, f.s1)
	f.register(t, alice, f.s1)

	alice.sendEvent(events.TypeMessageSend, events.MessageSend{ReceiverID: outsider.ID.Hex(), Body: "leak"})

	var ev events.Error
	req.NoError(json.Unmarshal(alice.expect(events.TypeError), &ev))
	req.Equal("tenant_mismatch", ev.Code)

	history, _, err := f.store.ListMessages(context.Background(), outsider.TenantID, outsider.ID, f.s1)
	req.NoError(err)
	req.Empty(history)
}

func Test_Silent_Connection_Is_Deregistered(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 150*time.Millisecond)

	s := f.dial(t, f.s1)
	f.register(t, s, f.s1)
	req.True(f.registry.IsOnline(f.s1.Hex()))

	// Stop reading: protocol pings go unanswered, so the server's read
	// deadline expires and the half-open connection is reaped.
	req.Eventually(func() bool {
		return !f.registry.IsOnline(f.s1.Hex())
	}, 3*time.Second, 50*time.Millisecond)
}

func Test_Ping_Gets_Pong(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, time.Minute)

	s := f.dial(t, f.s1)
	f.register(t, s, f.s1)

	s.sendEvent(events.TypePing, struct{}{})
	var pong events.Pong
	req.NoError(json.Unmarshal(s.expect(events.TypePong), &pong))
	req.Positive(pong.At)
}

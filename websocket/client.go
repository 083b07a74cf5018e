package websocket

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var errSendBufferFull = errors.New("client send buffer full")

// Client is one live connection: the gateway's per-connection state and
// the presence.Handle the router pushes through. All socket writes go
// through the buffered send channel so the write pump is the only writer.
type Client struct {
	id            string
	conn          *websocket.Conn
	send          chan []byte
	participantID string
	tenantID      string
	registered    bool

	closeOnce sync.Once
	done      chan struct{}
}

func newClient(conn *websocket.Conn, participantID, tenantID string) *Client {
	return &Client{
		id:            uuid.NewString(),
		conn:          conn,
		send:          make(chan []byte, 256),
		participantID: participantID,
		tenantID:      tenantID,
		done:          make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.id }

// Send queues one frame without blocking. A full buffer or a closed
// connection fails the send; the router records it as a miss on this
// handle.
func (c *Client) Send(frame []byte) error {
	select {
	case <-c.done:
		return errors.New("connection closed")
	default:
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return errSendBufferFull
	}
}

// shutdown signals the write pump to drain and close the socket. Safe to
// call more than once.
func (c *Client) shutdown() {
	c.closeOnce.Do(func() { close(c.done) })
}

// writePump owns all writes to the socket: queued frames plus periodic
// protocol pings. It exits when the connection dies or shutdown is called.
func (c *Client) writePump(heartbeat, writeTimeout time.Duration) {
	ticker := time.NewTicker(heartbeat * 9 / 10)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			// Drain already-queued frames (an error event explaining the
			// close may still be waiting) before the close message.
			for {
				select {
				case frame := <-c.send:
					c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
						return
					}
				default:
					c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					c.conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
			}
		}
	}
}

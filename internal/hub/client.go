package hub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBufferSize = 64
)

// Client binds one live websocket connection to its socket id and resolved
// identity. The hub goroutine owns membership state; the client only owns
// its outbound queue.
type Client struct {
	socketID string
	userID   string // empty when the handshake did not resolve an identity

	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

// NewClient wraps a connection. The socket id is transport-assigned and
// opaque; userID may be empty for an unauthenticated socket.
func NewClient(socketID, userID string, conn *websocket.Conn) *Client {
	return &Client{
		socketID: socketID,
		userID:   userID,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
	}
}

func (c *Client) SocketID() string { return c.socketID }
func (c *Client) UserID() string   { return c.userID }

// Authenticated reports whether the handshake resolved an identity.
func (c *Client) Authenticated() bool { return c.userID != "" }

// Send marshals and queues a payload for this client alone. A full buffer
// means the peer is not draining; the connection is closed so the pumps
// unwind and the hub unregisters it.
func (c *Client) Send(payload any) {
	frame, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ws: marshal unicast for %s: %v", c.socketID, err)
		return
	}
	if !c.enqueue(frame) {
		c.closeConn()
	}
}

// SendError reports a handler failure to this socket only. Failures never
// propagate to other sessions.
func (c *Client) SendError(msg string) {
	c.Send(map[string]any{"type": EventError, "message": msg})
}

// enqueue queues an already-marshaled frame, reporting false when the
// client is closed or its buffer is full.
func (c *Client) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// close shuts the outbound queue exactly once. Called by the hub when the
// client is removed.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) closeConn() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// writePump drains the outbound queue into the connection and keeps the
// peer alive with pings. One pump per connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

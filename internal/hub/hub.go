package hub

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

const (
	// StatusOnline and StatusOffline are the presence transition states
	// carried by user_status_change broadcasts.
	StatusOnline  = "online"
	StatusOffline = "offline"
)

type roomOp struct {
	client *Client
	roomID string
}

type publishOp struct {
	roomID        string // empty means every connected socket
	excludeSocket string
	frame         []byte
}

type statusQuery struct {
	userID string
	reply  chan bool
}

type onlineQuery struct {
	reply chan []string
}

type membershipQuery struct {
	socketID string
	roomID   string
	reply    chan bool
}

// Hub is the broadcast fabric. A single goroutine (Run) owns the session
// registry, the presence tracker and the room index; every mutation flows
// through its channels, so no two mutations interleave mid-update and
// presence transitions are strictly ordered by registry mutation order.
type Hub struct {
	registerCh   chan *Client
	unregisterCh chan *Client
	joinCh       chan roomOp
	leaveCh      chan roomOp
	publishCh    chan publishOp
	statusCh     chan statusQuery
	onlineCh     chan onlineQuery
	memberCh     chan membershipQuery
	stopCh       chan struct{}
	stopOnce     sync.Once

	sessions *SessionRegistry
	presence *PresenceTracker
	rooms    map[string]map[*Client]struct{}
	clients  map[string]*Client // socketID -> client

	now func() time.Time
}

func NewHub() *Hub {
	return &Hub{
		registerCh:   make(chan *Client),
		unregisterCh: make(chan *Client),
		joinCh:       make(chan roomOp),
		leaveCh:      make(chan roomOp),
		publishCh:    make(chan publishOp),
		statusCh:     make(chan statusQuery),
		onlineCh:     make(chan onlineQuery),
		memberCh:     make(chan membershipQuery),
		stopCh:       make(chan struct{}),
		sessions:     NewSessionRegistry(),
		presence:     NewPresenceTracker(),
		rooms:        make(map[string]map[*Client]struct{}),
		clients:      make(map[string]*Client),
		now:          time.Now,
	}
}

// Run processes hub commands until Stop. Start it once, in its own
// goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.registerCh:
			h.addClient(c)
		case c := <-h.unregisterCh:
			h.removeClient(c)
		case op := <-h.joinCh:
			h.joinRoom(op.client, op.roomID)
		case op := <-h.leaveCh:
			h.leaveRoom(op.client, op.roomID)
		case op := <-h.publishCh:
			h.fanOut(op)
		case q := <-h.statusCh:
			q.reply <- h.presence.IsOnline(q.userID)
		case q := <-h.onlineCh:
			q.reply <- h.presence.OnlineUsers()
		case q := <-h.memberCh:
			q.reply <- h.inRoom(q.socketID, q.roomID)
		case <-h.stopCh:
			for _, c := range h.clients {
				h.removeClient(c)
				c.closeConn()
			}
			return
		}
	}
}

// Stop shuts the hub down; idempotent. Commands issued after Stop are
// discarded rather than left blocking on the loop that no longer runs.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stopCh) })
}

// Register adds a connected socket. If the client carries a resolved
// identity the presence tracker is updated, and the offline-to-online
// transition is broadcast to every connected socket.
func (h *Hub) Register(c *Client) {
	select {
	case h.registerCh <- c:
	case <-h.stopCh:
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregisterCh <- c:
	case <-h.stopCh:
	}
}

// Join adds the socket to a conversation room; idempotent.
func (h *Hub) Join(c *Client, roomID string) {
	select {
	case h.joinCh <- roomOp{client: c, roomID: roomID}:
	case <-h.stopCh:
	}
}

// Leave removes the socket from a conversation room; idempotent.
func (h *Hub) Leave(c *Client, roomID string) {
	select {
	case h.leaveCh <- roomOp{client: c, roomID: roomID}:
	case <-h.stopCh:
	}
}

// BroadcastRoom publishes a payload to every socket joined to the room.
// excludeSocket may name one socket to skip (e.g. typing echoes).
func (h *Hub) BroadcastRoom(roomID string, payload any, excludeSocket string) {
	frame, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ws: marshal room broadcast: %v", err)
		return
	}
	select {
	case h.publishCh <- publishOp{roomID: roomID, excludeSocket: excludeSocket, frame: frame}:
	case <-h.stopCh:
	}
}

// BroadcastAll publishes a payload to every connected socket.
func (h *Hub) BroadcastAll(payload any) {
	frame, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ws: marshal broadcast: %v", err)
		return
	}
	select {
	case h.publishCh <- publishOp{frame: frame}:
	case <-h.stopCh:
	}
}

// IsOnline answers a presence existence check against live hub state.
func (h *Hub) IsOnline(userID string) bool {
	q := statusQuery{userID: userID, reply: make(chan bool, 1)}
	select {
	case h.statusCh <- q:
		return <-q.reply
	case <-h.stopCh:
		return false
	}
}

// OnlineUsers snapshots the currently online user ids.
func (h *Hub) OnlineUsers() []string {
	q := onlineQuery{reply: make(chan []string, 1)}
	select {
	case h.onlineCh <- q:
		return <-q.reply
	case <-h.stopCh:
		return nil
	}
}

// InRoom reports whether the socket has joined the given room.
func (h *Hub) InRoom(socketID, roomID string) bool {
	q := membershipQuery{socketID: socketID, roomID: roomID, reply: make(chan bool, 1)}
	select {
	case h.memberCh <- q:
		return <-q.reply
	case <-h.stopCh:
		return false
	}
}

func (h *Hub) addClient(c *Client) {
	h.clients[c.socketID] = c
	h.sessions.Add(c.socketID)
	if c.userID == "" {
		return
	}
	h.sessions.SetIdentity(c.socketID, c.userID)
	if h.presence.Register(c.userID, c.socketID) {
		h.broadcastStatus(c.userID, StatusOnline)
	}
}

func (h *Hub) removeClient(c *Client) {
	if _, ok := h.clients[c.socketID]; !ok {
		return
	}
	delete(h.clients, c.socketID)

	sess := h.sessions.Remove(c.socketID)
	if sess != nil {
		for roomID := range sess.Rooms {
			if room, ok := h.rooms[roomID]; ok {
				delete(room, c)
				if len(room) == 0 {
					delete(h.rooms, roomID)
				}
			}
		}
		if sess.UserID != "" && h.presence.Deregister(sess.UserID, c.socketID) {
			h.broadcastStatus(sess.UserID, StatusOffline)
		}
	}
	c.close()
}

func (h *Hub) joinRoom(c *Client, roomID string) {
	if _, ok := h.clients[c.socketID]; !ok {
		return
	}
	h.sessions.JoinRoom(c.socketID, roomID)
	room := h.rooms[roomID]
	if room == nil {
		room = make(map[*Client]struct{})
		h.rooms[roomID] = room
	}
	room[c] = struct{}{}
}

func (h *Hub) leaveRoom(c *Client, roomID string) {
	h.sessions.LeaveRoom(c.socketID, roomID)
	if room, ok := h.rooms[roomID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *Hub) inRoom(socketID, roomID string) bool {
	sess := h.sessions.Get(socketID)
	if sess == nil {
		return false
	}
	_, ok := sess.Rooms[roomID]
	return ok
}

func (h *Hub) fanOut(op publishOp) {
	var targets map[*Client]struct{}
	if op.roomID == "" {
		targets = make(map[*Client]struct{}, len(h.clients))
		for _, c := range h.clients {
			targets[c] = struct{}{}
		}
	} else {
		targets = h.rooms[op.roomID]
	}
	for c := range targets {
		if c.socketID == op.excludeSocket {
			continue
		}
		if !c.enqueue(op.frame) {
			// Slow or dead consumer: drop it rather than stall the fabric.
			log.Printf("ws: dropping slow consumer %s", c.socketID)
			h.removeClient(c)
			c.closeConn()
		}
	}
}

// broadcastStatus fans a presence transition out to all connected sockets.
// Delivery inside the hub loop keeps transition order identical to registry
// mutation order.
func (h *Hub) broadcastStatus(userID, status string) {
	frame, err := json.Marshal(map[string]any{
		"type":      EventUserStatusChange,
		"user_id":   userID,
		"status":    status,
		"timestamp": h.now().UTC(),
	})
	if err != nil {
		log.Printf("ws: marshal status change: %v", err)
		return
	}
	h.fanOut(publishOp{frame: frame})
}

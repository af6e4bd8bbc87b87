package hub

// Session is the per-socket record: the transport-assigned socket id, the
// resolved user identity (empty until resolution succeeds) and the set of
// conversation rooms the socket has joined.
//
// Sessions are owned exclusively by the SessionRegistry, which in turn is
// owned by the hub goroutine; nothing here needs locking.
type Session struct {
	SocketID string
	UserID   string
	Rooms    map[string]struct{}
}

// SessionRegistry tracks all live socket sessions keyed by socket id.
type SessionRegistry struct {
	sessions map[string]*Session
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*Session)}
}

// Add creates an empty session for a newly connected socket.
func (r *SessionRegistry) Add(socketID string) *Session {
	s := &Session{
		SocketID: socketID,
		Rooms:    make(map[string]struct{}),
	}
	r.sessions[socketID] = s
	return s
}

func (r *SessionRegistry) Get(socketID string) *Session {
	return r.sessions[socketID]
}

// SetIdentity attaches a resolved user id to the session. It reports
// whether the socket exists.
func (r *SessionRegistry) SetIdentity(socketID, userID string) bool {
	s, ok := r.sessions[socketID]
	if !ok {
		return false
	}
	s.UserID = userID
	return true
}

// JoinRoom records room membership. No effect if the socket is unknown;
// joining twice is a no-op.
func (r *SessionRegistry) JoinRoom(socketID, roomID string) {
	if s, ok := r.sessions[socketID]; ok {
		s.Rooms[roomID] = struct{}{}
	}
}

// LeaveRoom removes room membership. No effect if the socket is unknown or
// was never in the room.
func (r *SessionRegistry) LeaveRoom(socketID, roomID string) {
	if s, ok := r.sessions[socketID]; ok {
		delete(s.Rooms, roomID)
	}
}

// Remove deletes the session and returns it, or nil if the socket is
// unknown.
func (r *SessionRegistry) Remove(socketID string) *Session {
	s, ok := r.sessions[socketID]
	if !ok {
		return nil
	}
	delete(r.sessions, socketID)
	return s
}

func (r *SessionRegistry) Len() int {
	return len(r.sessions)
}

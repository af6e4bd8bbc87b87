package hub

// PresenceTracker derives per-user online state from socket registrations.
// A user is online iff they have at least one active socket; the entry is
// removed (not just emptied) when the last socket goes away, so key
// existence is synonymous with "online".
//
// Owned by the hub goroutine; mutated only through Register/Deregister in
// response to session add/remove.
type PresenceTracker struct {
	active map[string]map[string]struct{} // userID -> socketIDs
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{active: make(map[string]map[string]struct{})}
}

// Register attributes a socket to a user and reports whether this was the
// offline-to-online transition. Multiple tabs/devices accumulate sockets
// under the same user without further transitions.
func (p *PresenceTracker) Register(userID, socketID string) (cameOnline bool) {
	sockets, ok := p.active[userID]
	if !ok {
		sockets = make(map[string]struct{})
		p.active[userID] = sockets
	}
	sockets[socketID] = struct{}{}
	return !ok
}

// Deregister removes a socket from a user and reports whether this was the
// online-to-offline transition. Removing an unknown socket is a no-op.
func (p *PresenceTracker) Deregister(userID, socketID string) (wentOffline bool) {
	sockets, ok := p.active[userID]
	if !ok {
		return false
	}
	delete(sockets, socketID)
	if len(sockets) == 0 {
		delete(p.active, userID)
		return true
	}
	return false
}

func (p *PresenceTracker) IsOnline(userID string) bool {
	_, ok := p.active[userID]
	return ok
}

// OnlineUsers returns a snapshot of currently online user ids, in no
// particular order.
func (p *PresenceTracker) OnlineUsers() []string {
	ids := make([]string, 0, len(p.active))
	for id := range p.active {
		ids = append(ids, id)
	}
	return ids
}

package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionRegistry(t *testing.T) {
	r := NewSessionRegistry()

	s := r.Add("s1")
	assert.Equal(t, "s1", s.SocketID)
	assert.Empty(t, s.UserID)
	assert.Equal(t, 1, r.Len())

	assert.True(t, r.SetIdentity("s1", "alice"))
	assert.Equal(t, "alice", r.Get("s1").UserID)
	assert.False(t, r.SetIdentity("ghost", "bob"))

	r.JoinRoom("s1", "conv-1")
	r.JoinRoom("s1", "conv-1") // idempotent
	r.JoinRoom("s1", "conv-2")
	assert.Len(t, r.Get("s1").Rooms, 2)

	r.LeaveRoom("s1", "conv-1")
	r.LeaveRoom("s1", "never-joined") // no effect
	assert.Len(t, r.Get("s1").Rooms, 1)

	// operations on unknown sockets are no-ops
	r.JoinRoom("ghost", "conv-1")
	r.LeaveRoom("ghost", "conv-1")
	assert.Nil(t, r.Get("ghost"))

	removed := r.Remove("s1")
	assert.NotNil(t, removed)
	assert.Contains(t, removed.Rooms, "conv-2")
	assert.Nil(t, r.Remove("s1"))
	assert.Equal(t, 0, r.Len())
}

package hub

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPresenceSingleSocket(t *testing.T) {
	p := NewPresenceTracker()

	assert.False(t, p.IsOnline("alice"))
	assert.True(t, p.Register("alice", "s1"), "first socket must be the online transition")
	assert.True(t, p.IsOnline("alice"))

	assert.True(t, p.Deregister("alice", "s1"), "last socket must be the offline transition")
	assert.False(t, p.IsOnline("alice"))
	assert.Empty(t, p.OnlineUsers())
}

func TestPresenceMultiDevice(t *testing.T) {
	p := NewPresenceTracker()

	assert.True(t, p.Register("alice", "s1"))
	assert.False(t, p.Register("alice", "s2"), "second tab is not a transition")
	assert.False(t, p.Register("alice", "s3"))

	assert.False(t, p.Deregister("alice", "s2"), "other devices still online")
	assert.True(t, p.IsOnline("alice"))
	assert.False(t, p.Deregister("alice", "s1"))
	assert.True(t, p.Deregister("alice", "s3"), "closing the last tab goes offline")
	assert.False(t, p.IsOnline("alice"))
}

func TestPresenceUnknownSocket(t *testing.T) {
	p := NewPresenceTracker()

	assert.False(t, p.Deregister("ghost", "s1"))

	p.Register("alice", "s1")
	assert.False(t, p.Deregister("alice", "s99"), "unknown socket is a no-op")
	assert.True(t, p.IsOnline("alice"))
}

// Exactly one online and one offline transition per user, no matter how
// many sockets come and go.
func TestPresenceAggregation(t *testing.T) {
	p := NewPresenceTracker()

	const sockets = 17
	var online, offline int
	for i := 0; i < sockets; i++ {
		if p.Register("alice", fmt.Sprintf("s%d", i)) {
			online++
		}
	}
	for i := 0; i < sockets; i++ {
		if p.Deregister("alice", fmt.Sprintf("s%d", i)) {
			offline++
		}
	}

	assert.Equal(t, 1, online)
	assert.Equal(t, 1, offline)
	assert.False(t, p.IsOnline("alice"))
}

func TestPresenceOnlineUsersSnapshot(t *testing.T) {
	p := NewPresenceTracker()
	p.Register("alice", "s1")
	p.Register("alice", "s2")
	p.Register("bob", "s3")

	assert.ElementsMatch(t, []string{"alice", "bob"}, p.OnlineUsers())

	p.Deregister("bob", "s3")
	assert.ElementsMatch(t, []string{"alice"}, p.OnlineUsers())
}

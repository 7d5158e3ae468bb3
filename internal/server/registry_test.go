package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheCodeDaniel/voiceSync/internal/protocol"
)

// fakeSender records enqueued messages. When full is set it refuses
// everything, simulating a backed-up connection.
type fakeSender struct {
	msgs []*protocol.Message
	full bool
}

func (f *fakeSender) Enqueue(msg *protocol.Message) bool {
	if f.full {
		return false
	}
	f.msgs = append(f.msgs, msg)
	return true
}

func TestUserRegistryRegisterConflict(t *testing.T) {
	r := NewUserRegistry()

	conflict := r.Register("p1", "Alice", &fakeSender{})
	require.False(t, conflict)

	// Case-insensitive duplicate.
	conflict = r.Register("p2", "alice", &fakeSender{})
	assert.True(t, conflict)

	conflict = r.Register("p3", "ALICE", &fakeSender{})
	assert.True(t, conflict)

	assert.Equal(t, 1, r.Len())
}

func TestUserRegistryUnregisterFreesName(t *testing.T) {
	r := NewUserRegistry()

	require.False(t, r.Register("p1", "Alice", &fakeSender{}))
	r.Unregister("p1")

	assert.False(t, r.Register("p2", "alice", &fakeSender{}))
	assert.Equal(t, 1, r.Len())
}

func TestUserRegistryUnregisterUnknownIsNoop(t *testing.T) {
	r := NewUserRegistry()
	r.Register("p1", "Alice", &fakeSender{})

	r.Unregister("nope")
	assert.Equal(t, 1, r.Len())
}

func TestUserRegistryFindByName(t *testing.T) {
	r := NewUserRegistry()
	r.Register("p1", "Alice", &fakeSender{})

	u, ok := r.FindByName("aLiCe")
	require.True(t, ok)
	assert.Equal(t, "p1", u.PeerID)
	assert.Equal(t, "Alice", u.Username)

	_, ok = r.FindByName("bob")
	assert.False(t, ok)
}

func TestUserRegistrySetRoom(t *testing.T) {
	r := NewUserRegistry()
	r.Register("p1", "Alice", &fakeSender{})

	r.SetRoom("p1", "ACD-EFG-HJK")
	u, _ := r.FindByID("p1")
	assert.Equal(t, "ACD-EFG-HJK", u.RoomKey)

	r.SetRoom("p1", "")
	assert.Equal(t, "", u.RoomKey)

	// Unknown id must not panic.
	r.SetRoom("ghost", "XXX-XXX-XXX")
}

func TestUserRegistryList(t *testing.T) {
	r := NewUserRegistry()
	r.Register("p1", "Alice", &fakeSender{})
	r.Register("p2", "Bob", &fakeSender{})

	names := map[string]bool{}
	for _, u := range r.List() {
		names[u.Username] = true
	}
	assert.Equal(t, map[string]bool{"Alice": true, "Bob": true}, names)
}

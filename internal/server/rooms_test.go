package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheCodeDaniel/voiceSync/internal/errs"
	"github.com/TheCodeDaniel/voiceSync/internal/roomkey"
)

func TestRoomRegistryCreate(t *testing.T) {
	r := NewRoomRegistry()
	room := r.Create("host", "Alice", &fakeSender{})

	assert.True(t, roomkey.IsValid(room.Key))
	assert.Equal(t, "host", room.HostPeerID)
	require.Equal(t, 1, room.Size())
	assert.Equal(t, "host", room.Members()[0].PeerID)

	got, ok := r.Get(room.Key)
	require.True(t, ok)
	assert.Same(t, room, got)
}

func TestRoomRegistryJoin(t *testing.T) {
	r := NewRoomRegistry()
	room := r.Create("host", "Alice", &fakeSender{})

	joined, err := r.Join(room.Key, "p2", "Bob", &fakeSender{})
	require.NoError(t, err)
	assert.Equal(t, 2, joined.Size())

	// Host stays first in the membership order.
	members := joined.Members()
	assert.Equal(t, "host", members[0].PeerID)
	assert.Equal(t, "p2", members[1].PeerID)
}

func TestRoomRegistryJoinUnknownRoom(t *testing.T) {
	r := NewRoomRegistry()

	_, err := r.Join("ZZZ-ZZZ-ZZZ", "p1", "Alice", &fakeSender{})
	require.Error(t, err)
	assert.Equal(t, errs.CodeRoomNotFound, errs.CodeOf(err))
}

func TestRoomRegistryJoinTwice(t *testing.T) {
	r := NewRoomRegistry()
	room := r.Create("host", "Alice", &fakeSender{})

	_, err := r.Join(room.Key, "host", "Alice", &fakeSender{})
	require.Error(t, err)
	assert.Equal(t, errs.CodeAlreadyInRoom, errs.CodeOf(err))
}

func TestRoomRegistryLeaveEmptiesRoom(t *testing.T) {
	r := NewRoomRegistry()
	room := r.Create("host", "Alice", &fakeSender{})
	_, err := r.Join(room.Key, "p2", "Bob", &fakeSender{})
	require.NoError(t, err)

	remaining, wasEmpty := r.Leave(room.Key, "p2")
	require.NotNil(t, remaining)
	assert.False(t, wasEmpty)
	assert.Equal(t, 1, remaining.Size())

	// wasEmpty flips exactly once, on the last leave.
	remaining, wasEmpty = r.Leave(room.Key, "host")
	assert.Nil(t, remaining)
	assert.True(t, wasEmpty)

	_, ok := r.Get(room.Key)
	assert.False(t, ok)
}

func TestRoomRegistryLeaveUnknownKey(t *testing.T) {
	r := NewRoomRegistry()

	room, wasEmpty := r.Leave("ZZZ-ZZZ-ZZZ", "p1")
	assert.Nil(t, room)
	assert.True(t, wasEmpty)
}

func TestRoomRegistryNoEmptyRooms(t *testing.T) {
	r := NewRoomRegistry()
	a := r.Create("h1", "Alice", &fakeSender{})
	b := r.Create("h2", "Bob", &fakeSender{})

	r.Leave(a.Key, "h1")
	r.Leave(b.Key, "h2")

	for _, room := range r.List() {
		assert.NotZero(t, room.Size())
	}
	assert.Empty(t, r.List())
}

func TestRoomMemberOrderAfterChurn(t *testing.T) {
	r := NewRoomRegistry()
	room := r.Create("h", "Alice", &fakeSender{})
	_, err := r.Join(room.Key, "p2", "Bob", &fakeSender{})
	require.NoError(t, err)
	_, err = r.Join(room.Key, "p3", "Cara", &fakeSender{})
	require.NoError(t, err)

	r.Leave(room.Key, "p2")

	members := room.Members()
	require.Len(t, members, 2)
	assert.Equal(t, "h", members[0].PeerID)
	assert.Equal(t, "p3", members[1].PeerID)
}

package server

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/TheCodeDaniel/voiceSync/internal/errs"
	"github.com/TheCodeDaniel/voiceSync/internal/roomkey"
)

// Member is one room occupant. The Sender handle is a non-owning reference;
// the connection layer owns the socket.
type Member struct {
	PeerID   string
	Username string
	Sender   Sender
}

// Room is a transient multi-peer group. Members keep insertion order so the
// host is always first and membership snapshots are stable.
type Room struct {
	Key        string
	HostPeerID string
	CreatedAt  time.Time

	order   []string
	members map[string]*Member
}

func (r *Room) add(m *Member) {
	r.members[m.PeerID] = m
	r.order = append(r.order, m.PeerID)
}

func (r *Room) remove(peerID string) {
	if _, ok := r.members[peerID]; !ok {
		return
	}
	delete(r.members, peerID)
	for i, id := range r.order {
		if id == peerID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Has reports whether peerID is a member.
func (r *Room) Has(peerID string) bool {
	_, ok := r.members[peerID]
	return ok
}

// Members returns the membership in insertion order.
func (r *Room) Members() []*Member {
	out := make([]*Member, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.members[id])
	}
	return out
}

func (r *Room) Size() int {
	return len(r.members)
}

// RoomRegistry maps room keys to rooms. Like UserRegistry it is owned by
// the hub goroutine.
type RoomRegistry struct {
	rooms map[string]*Room
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{rooms: make(map[string]*Room)}
}

// Create generates a fresh key, inserts the host as sole member and returns
// the room. Generation retries on the (astronomically unlikely) collision
// with a live key.
func (r *RoomRegistry) Create(hostPeerID, hostName string, s Sender) *Room {
	var key string
	for {
		key = roomkey.Generate()
		if _, exists := r.rooms[key]; !exists {
			break
		}
	}

	room := &Room{
		Key:        key,
		HostPeerID: hostPeerID,
		CreatedAt:  time.Now(),
		members:    make(map[string]*Member),
	}
	room.add(&Member{PeerID: hostPeerID, Username: hostName, Sender: s})
	r.rooms[key] = room

	log.Info().Str("module", "server.rooms").Str("room", key).Str("host", hostPeerID).Msg("room created")
	return room
}

// Join inserts a peer into an existing room.
func (r *RoomRegistry) Join(key, peerID, username string, s Sender) (*Room, error) {
	room, ok := r.rooms[key]
	if !ok {
		return nil, errs.Room(errs.CodeRoomNotFound, "room "+key+" does not exist")
	}
	if room.Has(peerID) {
		return nil, errs.Room(errs.CodeAlreadyInRoom, "already a member of room "+key)
	}

	room.add(&Member{PeerID: peerID, Username: username, Sender: s})
	log.Info().Str("module", "server.rooms").Str("room", key).Str("peer", peerID).Int("size", room.Size()).Msg("peer joined room")
	return room, nil
}

// Leave removes a peer. When the member set empties the room is deleted and
// wasEmpty is true. Unknown keys yield (nil, true).
func (r *RoomRegistry) Leave(key, peerID string) (*Room, bool) {
	room, ok := r.rooms[key]
	if !ok {
		return nil, true
	}

	room.remove(peerID)
	if room.Size() == 0 {
		delete(r.rooms, key)
		log.Info().Str("module", "server.rooms").Str("room", key).Msg("room deleted")
		return nil, true
	}
	return room, false
}

func (r *RoomRegistry) Get(key string) (*Room, bool) {
	room, ok := r.rooms[key]
	return room, ok
}

func (r *RoomRegistry) List() []*Room {
	out := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, room)
	}
	return out
}

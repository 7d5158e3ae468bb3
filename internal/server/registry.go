package server

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/TheCodeDaniel/voiceSync/internal/protocol"
)

// Sender is the outbound half of a connection. Enqueue must not block; it
// reports false when the recipient's queue is full, which the hub treats as
// a disconnect.
type Sender interface {
	Enqueue(msg *protocol.Message) bool
}

// User is one logged-in connection.
type User struct {
	PeerID   string
	Username string
	// RoomKey is the room the user currently occupies, or "" when idle.
	RoomKey string
	Sender  Sender
}

// UserRegistry maps live connections to display names and room membership.
// It is owned by the hub goroutine and must not be shared across goroutines
// without external serialization.
type UserRegistry struct {
	users  map[string]*User // peerID -> user
	byName map[string]string // lower(username) -> peerID
}

func NewUserRegistry() *UserRegistry {
	return &UserRegistry{
		users:  make(map[string]*User),
		byName: make(map[string]string),
	}
}

// Register inserts a user. It reports conflict=true when another live user
// already holds the same name compared case-insensitively.
func (r *UserRegistry) Register(peerID, username string, s Sender) (conflict bool) {
	key := strings.ToLower(username)
	if _, taken := r.byName[key]; taken {
		return true
	}

	r.users[peerID] = &User{PeerID: peerID, Username: username, Sender: s}
	r.byName[key] = peerID
	log.Debug().Str("module", "server.users").Str("peer", peerID).Str("username", username).Msg("registered")
	return false
}

// Unregister removes a user. Unknown ids are a no-op.
func (r *UserRegistry) Unregister(peerID string) {
	u, ok := r.users[peerID]
	if !ok {
		return
	}
	delete(r.byName, strings.ToLower(u.Username))
	delete(r.users, peerID)
	log.Debug().Str("module", "server.users").Str("peer", peerID).Msg("unregistered")
}

func (r *UserRegistry) FindByID(peerID string) (*User, bool) {
	u, ok := r.users[peerID]
	return u, ok
}

// FindByName looks a user up by display name, case-insensitively.
func (r *UserRegistry) FindByName(username string) (*User, bool) {
	peerID, ok := r.byName[strings.ToLower(username)]
	if !ok {
		return nil, false
	}
	return r.users[peerID], true
}

// SetRoom updates the user's current room. Unknown ids are a no-op.
func (r *UserRegistry) SetRoom(peerID, roomKey string) {
	if u, ok := r.users[peerID]; ok {
		u.RoomKey = roomKey
	}
}

// List returns a snapshot of all live users.
func (r *UserRegistry) List() []*User {
	out := make([]*User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out
}

func (r *UserRegistry) Len() int {
	return len(r.users)
}

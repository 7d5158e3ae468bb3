package server

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/TheCodeDaniel/voiceSync/internal/protocol"
	"github.com/TheCodeDaniel/voiceSync/internal/roomkey"
)

// Conn is what the dispatcher needs from a connection: its identity and a
// non-blocking outbound queue.
type Conn interface {
	PeerID() string
	Enqueue(msg *protocol.Message) bool
}

type inboundMessage struct {
	client Conn
	msg    *protocol.Message
}

// Hub owns both registries and processes every inbound event on a single
// goroutine, so registry access needs no locking: one handled message always
// sees a consistent snapshot.
type Hub struct {
	users *UserRegistry
	rooms *RoomRegistry

	register   chan *Client
	unregister chan *Client
	inbound    chan inboundMessage
}

func NewHub() *Hub {
	return &Hub{
		users:      NewUserRegistry(),
		rooms:      NewRoomRegistry(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundMessage),
	}
}

// Run is the hub's event loop. It returns when ctx is canceled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			log.Info().Str("module", "server.hub").Str("peer", c.peerID).Msg("connection accepted")
			c.Enqueue(&protocol.Message{Type: protocol.TypeConnected, PeerID: c.peerID})

		case c := <-h.unregister:
			h.handleDisconnect(c.peerID)
			close(c.send)

		case in := <-h.inbound:
			h.handleMessage(in.client, in.msg)
		}
	}
}

// handleMessage dispatches one inbound frame. Unknown types are logged and
// dropped; validation failures answer with the matching *-error message and
// never close the connection.
func (h *Hub) handleMessage(c Conn, msg *protocol.Message) {
	switch msg.Type {
	case protocol.TypeLogin:
		h.handleLogin(c, msg.Username)
	case protocol.TypeCreateRoom:
		h.handleCreateRoom(c)
	case protocol.TypeJoinRoom, protocol.TypeAcceptInvite:
		h.handleJoinRoom(c, msg.RoomKey)
	case protocol.TypeInvite:
		h.handleInvite(c, msg.ToUsername)
	case protocol.TypeDeclineInvite:
		h.handleDeclineInvite(c, msg.RoomKey)
	case protocol.TypeLeaveRoom:
		h.handleLeaveRoom(c)
	case protocol.TypeSignal:
		h.handleSignal(c, msg)
	default:
		log.Warn().Str("module", "server.hub").Str("peer", c.PeerID()).Str("type", msg.Type).Msg("unknown message type dropped")
	}
}

func (h *Hub) handleLogin(c Conn, username string) {
	if _, ok := h.users.FindByID(c.PeerID()); ok {
		h.send(c, &protocol.Message{Type: protocol.TypeLoginError, Message: "already logged in"})
		return
	}

	name := strings.TrimSpace(username)
	if runes := []rune(name); len(runes) > protocol.MaxUsernameLen {
		name = string(runes[:protocol.MaxUsernameLen])
	}
	if name == "" {
		h.send(c, &protocol.Message{Type: protocol.TypeLoginError, Message: "username is required"})
		return
	}

	if conflict := h.users.Register(c.PeerID(), name, c); conflict {
		h.send(c, &protocol.Message{Type: protocol.TypeLoginError, Message: "username \"" + name + "\" is already taken"})
		return
	}

	log.Info().Str("module", "server.hub").Str("peer", c.PeerID()).Str("username", name).Msg("logged in")
	h.send(c, &protocol.Message{Type: protocol.TypeLoginOK, PeerID: c.PeerID()})
}

func (h *Hub) handleCreateRoom(c Conn) {
	user, ok := h.users.FindByID(c.PeerID())
	if !ok {
		h.send(c, &protocol.Message{Type: protocol.TypeCreateError, Message: "login required"})
		return
	}
	if user.RoomKey != "" {
		h.send(c, &protocol.Message{Type: protocol.TypeCreateError, Message: "already in a room"})
		return
	}

	room := h.rooms.Create(user.PeerID, user.Username, user.Sender)
	h.users.SetRoom(user.PeerID, room.Key)
	h.send(c, &protocol.Message{Type: protocol.TypeRoomCreated, RoomKey: room.Key})
}

func (h *Hub) handleJoinRoom(c Conn, rawKey string) {
	user, ok := h.users.FindByID(c.PeerID())
	if !ok {
		h.send(c, &protocol.Message{Type: protocol.TypeJoinError, Message: "login required"})
		return
	}
	if user.RoomKey != "" {
		h.send(c, &protocol.Message{Type: protocol.TypeJoinError, Message: "already in a room"})
		return
	}

	key := roomkey.Normalize(rawKey)
	room, err := h.rooms.Join(key, user.PeerID, user.Username, user.Sender)
	if err != nil {
		h.send(c, &protocol.Message{Type: protocol.TypeJoinError, Message: err.Error()})
		return
	}
	h.users.SetRoom(user.PeerID, key)

	// The joiner gets the membership snapshot first, then the rest of the
	// room learns about the joiner. Both happen on this goroutine, so the
	// joiner's room-joined is always queued ahead of any peer-joined.
	peers := make([]protocol.PeerInfo, 0, room.Size()-1)
	for _, m := range room.Members() {
		if m.PeerID == user.PeerID {
			continue
		}
		peers = append(peers, protocol.PeerInfo{PeerID: m.PeerID, Username: m.Username})
	}
	h.send(c, &protocol.Message{Type: protocol.TypeRoomJoined, RoomKey: key, Peers: peers})

	h.broadcast(room, user.PeerID, &protocol.Message{
		Type:     protocol.TypePeerJoined,
		PeerID:   user.PeerID,
		Username: user.Username,
	})
}

func (h *Hub) handleInvite(c Conn, toUsername string) {
	inviter, ok := h.users.FindByID(c.PeerID())
	if !ok {
		h.send(c, &protocol.Message{Type: protocol.TypeInviteError, Message: "login required"})
		return
	}
	if inviter.RoomKey == "" {
		h.send(c, &protocol.Message{Type: protocol.TypeInviteError, Message: "you are not in a room"})
		return
	}

	target, ok := h.users.FindByName(toUsername)
	if !ok {
		h.send(c, &protocol.Message{Type: protocol.TypeInviteError, Message: "user \"" + toUsername + "\" is not online"})
		return
	}
	if target.PeerID == inviter.PeerID {
		h.send(c, &protocol.Message{Type: protocol.TypeInviteError, Message: "cannot invite yourself"})
		return
	}
	if target.RoomKey != "" {
		h.send(c, &protocol.Message{Type: protocol.TypeInviteError, Message: "user \"" + target.Username + "\" is already in a room"})
		return
	}

	h.send(target.Sender, &protocol.Message{
		Type:         protocol.TypeInvite,
		FromUsername: inviter.Username,
		RoomKey:      inviter.RoomKey,
	})
	h.send(c, &protocol.Message{Type: protocol.TypeInviteSent, ToUsername: target.Username})
}

func (h *Hub) handleDeclineInvite(c Conn, rawKey string) {
	user, ok := h.users.FindByID(c.PeerID())
	if !ok {
		return
	}

	room, ok := h.rooms.Get(roomkey.Normalize(rawKey))
	if !ok {
		// Room dissolved before the decline arrived. Not an error.
		return
	}
	h.broadcast(room, user.PeerID, &protocol.Message{
		Type:     protocol.TypeInviteDeclined,
		Username: user.Username,
	})
}

func (h *Hub) handleSignal(c Conn, msg *protocol.Message) {
	target, ok := h.users.FindByID(msg.ToPeerID)
	if !ok {
		log.Debug().Str("module", "server.hub").Str("peer", c.PeerID()).Str("target", msg.ToPeerID).Msg("signal target gone, dropped")
		return
	}

	h.send(target.Sender, &protocol.Message{
		Type:       protocol.TypeSignal,
		FromPeerID: c.PeerID(),
		Data:       msg.Data,
	})
}

func (h *Hub) handleLeaveRoom(c Conn) {
	user, ok := h.users.FindByID(c.PeerID())
	if !ok {
		h.send(c, &protocol.Message{Type: protocol.TypeLeftRoom})
		return
	}

	h.removeFromRoom(user)
	// Replying left-room when the user was not in a room keeps leave idempotent.
	h.send(c, &protocol.Message{Type: protocol.TypeLeftRoom})
}

// handleDisconnect runs the implicit leave-room plus unregister when a
// connection drops. The fan-out matches an explicit leave so other members
// observe the same departure either way.
func (h *Hub) handleDisconnect(peerID string) {
	user, ok := h.users.FindByID(peerID)
	if ok {
		h.removeFromRoom(user)
	}
	h.users.Unregister(peerID)
	log.Info().Str("module", "server.hub").Str("peer", peerID).Msg("connection closed")
}

// removeFromRoom takes the user out of their current room, deletes the room
// if it emptied and notifies the remaining members. No-op when idle.
func (h *Hub) removeFromRoom(user *User) {
	if user.RoomKey == "" {
		return
	}

	room, wasEmpty := h.rooms.Leave(user.RoomKey, user.PeerID)
	h.users.SetRoom(user.PeerID, "")
	if wasEmpty {
		return
	}

	h.broadcast(room, user.PeerID, &protocol.Message{
		Type:     protocol.TypePeerLeft,
		PeerID:   user.PeerID,
		Username: user.Username,
	})
}

func (h *Hub) send(s Sender, msg *protocol.Message) {
	if !s.Enqueue(msg) {
		log.Warn().Str("module", "server.hub").Str("type", msg.Type).Msg("recipient queue full, message dropped")
	}
}

// broadcast fans a message out to every room member except one. Delivery is
// best-effort per recipient: one full queue never blocks the rest.
func (h *Hub) broadcast(room *Room, exceptPeerID string, msg *protocol.Message) {
	for _, m := range room.Members() {
		if m.PeerID == exceptPeerID {
			continue
		}
		if !m.Sender.Enqueue(msg) {
			log.Warn().Str("module", "server.hub").Str("room", room.Key).Str("peer", m.PeerID).Str("type", msg.Type).Msg("broadcast dropped for slow recipient")
		}
	}
}

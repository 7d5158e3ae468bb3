// Package protocol defines the JSON wire messages exchanged between the
// VoiceSync client and the signaling server. Every frame is a flat object
// with a "type" field and zero or more payload fields.
package protocol

import "encoding/json"

// Message represents all C2S (client to server) and S2C (server to client)
// signaling frames. Unused fields are omitted from the encoded JSON.
type Message struct {
	Type         string          `json:"type"`
	Username     string          `json:"username,omitempty"`
	RoomKey      string          `json:"roomKey,omitempty"`
	PeerID       string          `json:"peerId,omitempty"`
	ToPeerID     string          `json:"toPeerId,omitempty"`
	FromPeerID   string          `json:"fromPeerId,omitempty"`
	ToUsername   string          `json:"toUsername,omitempty"`
	FromUsername string          `json:"fromUsername,omitempty"`
	Message      string          `json:"message,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
	Peers        []PeerInfo      `json:"peers,omitempty"`
}

// PeerInfo identifies one room member in a room-joined membership snapshot.
type PeerInfo struct {
	PeerID   string `json:"peerId"`
	Username string `json:"username"`
}

// Client to server message types.
const (
	TypeLogin         = "login"
	TypeCreateRoom    = "create-room"
	TypeJoinRoom      = "join-room"
	TypeInvite        = "invite"
	TypeAcceptInvite  = "accept-invite"
	TypeDeclineInvite = "decline-invite"
	TypeLeaveRoom     = "leave-room"
	TypeSignal        = "signal"
)

// Server to client message types. TypeInvite and TypeSignal are shared with
// the client-to-server direction.
const (
	TypeConnected      = "connected"
	TypeLoginOK        = "login-ok"
	TypeLoginError     = "login-error"
	TypeRoomCreated    = "room-created"
	TypeCreateError    = "create-error"
	TypeRoomJoined     = "room-joined"
	TypeJoinError      = "join-error"
	TypePeerJoined     = "peer-joined"
	TypePeerLeft       = "peer-left"
	TypeInviteSent     = "invite-sent"
	TypeInviteError    = "invite-error"
	TypeInviteDeclined = "invite-declined"
	TypeLeftRoom       = "left-room"
)

// MaxUsernameLen is the longest display name the server accepts. Longer
// names are truncated, not rejected.
const MaxUsernameLen = 32

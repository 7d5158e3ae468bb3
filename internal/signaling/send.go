package signaling

import (
	"encoding/json"

	"github.com/TheCodeDaniel/voiceSync/internal/protocol"
)

// Convenience constructors for every outbound message type. Each builds the
// canonical payload and hands it to Send.

func (t *Transport) Login(username string) {
	t.Send(&protocol.Message{Type: protocol.TypeLogin, Username: username})
}

func (t *Transport) CreateRoom() {
	t.Send(&protocol.Message{Type: protocol.TypeCreateRoom})
}

func (t *Transport) JoinRoom(roomKey string) {
	t.Send(&protocol.Message{Type: protocol.TypeJoinRoom, RoomKey: roomKey})
}

func (t *Transport) Invite(toUsername string) {
	t.Send(&protocol.Message{Type: protocol.TypeInvite, ToUsername: toUsername})
}

func (t *Transport) AcceptInvite(roomKey string) {
	t.Send(&protocol.Message{Type: protocol.TypeAcceptInvite, RoomKey: roomKey})
}

func (t *Transport) DeclineInvite(roomKey string) {
	t.Send(&protocol.Message{Type: protocol.TypeDeclineInvite, RoomKey: roomKey})
}

func (t *Transport) LeaveRoom() {
	t.Send(&protocol.Message{Type: protocol.TypeLeaveRoom})
}

func (t *Transport) Signal(toPeerID string, data json.RawMessage) {
	t.Send(&protocol.Message{Type: protocol.TypeSignal, ToPeerID: toPeerID, Data: data})
}

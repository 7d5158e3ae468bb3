package peer

import (
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/TheCodeDaniel/voiceSync/internal/errs"
)

// The control channel carries small peer-to-peer state updates that the
// signaling server never sees, like mute changes. Frames are msgpack: a
// mute toggle must not contend with audio for more bytes than necessary.
const controlChannelLabel = "control"

// ControlMessage is one frame on the control channel.
type ControlMessage struct {
	Type  string `msgpack:"type"`
	Muted bool   `msgpack:"muted"`
}

const ControlTypeMuteState = "mute-state"

func (c *peerConn) setControl(dc *webrtc.DataChannel) {
	c.mu.Lock()
	c.control = dc
	c.mu.Unlock()
}

func (c *peerConn) getControl() *webrtc.DataChannel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.control
}

// wireControl hooks a control data channel into the engine callbacks.
func (e *Engine) wireControl(peerID string, conn *peerConn, dc *webrtc.DataChannel) {
	conn.setControl(dc)

	dc.OnMessage(func(raw webrtc.DataChannelMessage) {
		var msg ControlMessage
		if err := msgpack.Unmarshal(raw.Data, &msg); err != nil {
			slog.Debug("peer: malformed control frame ignored", "peer", peerID, "err", err)
			return
		}
		if e.cb.OnControl != nil {
			e.cb.OnControl(peerID, msg)
		}
	})
}

// SendControl delivers a control frame to one peer. It fails softly when
// the channel is not open yet; the next state change will catch the peer up.
func (e *Engine) SendControl(peerID string, msg ControlMessage) error {
	e.mu.Lock()
	conn, ok := e.conns[peerID]
	e.mu.Unlock()
	if !ok {
		return errs.Peer(errs.CodePeerError, "no connection for peer "+peerID, nil)
	}

	dc := conn.getControl()
	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return errs.Peer(errs.CodePeerError, "control channel not open for peer "+peerID, nil)
	}

	data, err := msgpack.Marshal(msg)
	if err != nil {
		return errs.Peer(errs.CodePeerError, "encode control frame", err)
	}
	return dc.Send(data)
}

// BroadcastControl sends a control frame to every connected peer,
// best-effort: closed channels are skipped.
func (e *Engine) BroadcastControl(msg ControlMessage) {
	e.mu.Lock()
	ids := make([]string, 0, len(e.conns))
	for id := range e.conns {
		ids = append(ids, id)
	}
	e.mu.Unlock()

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(peerID string) {
			defer wg.Done()
			if err := e.SendControl(peerID, msg); err != nil {
				slog.Debug("peer: control broadcast skipped", "peer", peerID, "err", err)
			}
		}(id)
	}
	wg.Wait()
}

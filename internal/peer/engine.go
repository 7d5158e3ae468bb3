// Package peer wraps pion/webrtc behind the small surface the session
// needs: create a connection per peer, feed signaling blobs in, get tracks
// and negotiation fragments out.
package peer

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/TheCodeDaniel/voiceSync/internal/errs"
)

// DefaultSTUNServers are used for every peer connection.
var DefaultSTUNServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
}

// SignalData is the negotiation blob relayed through the signaling server.
// The dispatcher treats it as opaque; only the two peers parse it.
type SignalData struct {
	Kind      string                   `json:"kind"`
	SDP       string                   `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit `json:"candidate,omitempty"`
}

const (
	kindOffer     = "offer"
	kindAnswer    = "answer"
	kindCandidate = "candidate"
)

// Callbacks are invoked from pion goroutines; implementations must be
// goroutine-safe and must not block.
type Callbacks struct {
	OnSignal       func(peerID string, data json.RawMessage)
	OnTrack        func(peerID string, track *webrtc.TrackRemote)
	OnConnected    func(peerID string)
	OnDisconnected func(peerID string)
	OnControl      func(peerID string, msg ControlMessage)
	OnError        func(peerID string, err error)
}

// Engine owns one webrtc.PeerConnection per remote peer.
type Engine struct {
	cb          Callbacks
	stunServers []string

	mu    sync.Mutex
	conns map[string]*peerConn
}

// peerConn tracks one connection plus the trickle-ICE bookkeeping: remote
// candidates that arrive before the remote description are queued.
type peerConn struct {
	pc      *webrtc.PeerConnection
	control *webrtc.DataChannel

	mu        sync.Mutex
	remoteSet bool
	pending   []webrtc.ICECandidateInit
}

func NewEngine(cb Callbacks) *Engine {
	return &Engine{
		cb:          cb,
		stunServers: DefaultSTUNServers,
		conns:       make(map[string]*peerConn),
	}
}

// Create builds a fresh connection toward peerID, tearing down any previous
// one. The initiator produces the opening offer; the responder waits for it.
// localTrack may be nil, in which case a receive-only audio transceiver is
// negotiated so remote audio still flows.
func (e *Engine) Create(peerID string, initiator bool, localTrack webrtc.TrackLocal) error {
	e.Destroy(peerID)

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: e.stunServers}},
	})
	if err != nil {
		return errs.Peer(errs.CodeWebRTCError, "create peer connection for "+peerID, err)
	}

	if localTrack != nil {
		if _, err := pc.AddTrack(localTrack); err != nil {
			pc.Close()
			return errs.Peer(errs.CodeWebRTCError, "attach local track for "+peerID, err)
		}
	} else {
		if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionRecvonly,
		}); err != nil {
			pc.Close()
			return errs.Peer(errs.CodeWebRTCError, "add audio transceiver for "+peerID, err)
		}
	}

	conn := &peerConn{pc: pc}
	e.mu.Lock()
	e.conns[peerID] = conn
	e.mu.Unlock()

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		init := c.ToJSON()
		e.emitSignal(peerID, SignalData{Kind: kindCandidate, Candidate: &init})
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		slog.Debug("peer: remote track", "peer", peerID, "codec", track.Codec().MimeType)
		if e.cb.OnTrack != nil {
			e.cb.OnTrack(peerID, track)
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		switch state {
		case webrtc.PeerConnectionStateConnected:
			if e.cb.OnConnected != nil {
				e.cb.OnConnected(peerID)
			}
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed, webrtc.PeerConnectionStateDisconnected:
			e.dropConn(peerID, conn)
		}
	})

	if initiator {
		dc, err := pc.CreateDataChannel(controlChannelLabel, nil)
		if err != nil {
			e.Destroy(peerID)
			return errs.Peer(errs.CodeWebRTCError, "create control channel for "+peerID, err)
		}
		e.wireControl(peerID, conn, dc)

		offer, err := pc.CreateOffer(nil)
		if err != nil {
			e.Destroy(peerID)
			return errs.Peer(errs.CodeWebRTCError, "create offer for "+peerID, err)
		}
		if err := pc.SetLocalDescription(offer); err != nil {
			e.Destroy(peerID)
			return errs.Peer(errs.CodeWebRTCError, "set local description for "+peerID, err)
		}
		e.emitSignal(peerID, SignalData{Kind: kindOffer, SDP: offer.SDP})
	} else {
		pc.OnDataChannel(func(dc *webrtc.DataChannel) {
			if dc.Label() == controlChannelLabel {
				e.wireControl(peerID, conn, dc)
			}
		})
	}

	return nil
}

// HandleSignal feeds an inbound negotiation fragment to the named
// connection. Fragments for unknown peers are logged and ignored; a peer
// may legitimately vanish between relay and delivery.
func (e *Engine) HandleSignal(peerID string, data json.RawMessage) {
	e.mu.Lock()
	conn, ok := e.conns[peerID]
	e.mu.Unlock()
	if !ok {
		slog.Debug("peer: signal for unknown peer ignored", "peer", peerID)
		return
	}

	var sig SignalData
	if err := json.Unmarshal(data, &sig); err != nil {
		slog.Debug("peer: malformed signal ignored", "peer", peerID, "err", err)
		return
	}

	switch sig.Kind {
	case kindOffer:
		e.handleOffer(peerID, conn, sig.SDP)
	case kindAnswer:
		e.handleAnswer(peerID, conn, sig.SDP)
	case kindCandidate:
		e.handleCandidate(peerID, conn, sig.Candidate)
	default:
		slog.Debug("peer: unknown signal kind ignored", "peer", peerID, "kind", sig.Kind)
	}
}

func (e *Engine) handleOffer(peerID string, conn *peerConn, sdp string) {
	err := conn.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp})
	if err != nil {
		e.emitError(peerID, errs.Peer(errs.CodeWebRTCError, "set remote offer", err))
		return
	}
	conn.drainCandidates(peerID)

	answer, err := conn.pc.CreateAnswer(nil)
	if err != nil {
		e.emitError(peerID, errs.Peer(errs.CodeWebRTCError, "create answer", err))
		return
	}
	if err := conn.pc.SetLocalDescription(answer); err != nil {
		e.emitError(peerID, errs.Peer(errs.CodeWebRTCError, "set local answer", err))
		return
	}
	e.emitSignal(peerID, SignalData{Kind: kindAnswer, SDP: answer.SDP})
}

func (e *Engine) handleAnswer(peerID string, conn *peerConn, sdp string) {
	err := conn.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdp})
	if err != nil {
		e.emitError(peerID, errs.Peer(errs.CodeWebRTCError, "set remote answer", err))
		return
	}
	conn.drainCandidates(peerID)
}

func (e *Engine) handleCandidate(peerID string, conn *peerConn, candidate *webrtc.ICECandidateInit) {
	if candidate == nil {
		return
	}

	conn.mu.Lock()
	if !conn.remoteSet {
		conn.pending = append(conn.pending, *candidate)
		conn.mu.Unlock()
		return
	}
	conn.mu.Unlock()

	if err := conn.pc.AddICECandidate(*candidate); err != nil {
		slog.Debug("peer: add candidate failed", "peer", peerID, "err", err)
	}
}

// drainCandidates flushes candidates queued before the remote description.
func (c *peerConn) drainCandidates(peerID string) {
	c.mu.Lock()
	c.remoteSet = true
	queued := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, cand := range queued {
		if err := c.pc.AddICECandidate(cand); err != nil {
			slog.Debug("peer: add queued candidate failed", "peer", peerID, "err", err)
		}
	}
}

// Destroy closes the connection for peerID. Unknown peers are a no-op.
func (e *Engine) Destroy(peerID string) {
	e.mu.Lock()
	conn, ok := e.conns[peerID]
	delete(e.conns, peerID)
	e.mu.Unlock()

	if ok {
		conn.pc.Close()
	}
}

// DestroyAll closes every connection.
func (e *Engine) DestroyAll() {
	e.mu.Lock()
	conns := e.conns
	e.conns = make(map[string]*peerConn)
	e.mu.Unlock()

	for _, conn := range conns {
		conn.pc.Close()
	}
}

// Has reports whether an entry exists for peerID.
func (e *Engine) Has(peerID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.conns[peerID]
	return ok
}

// dropConn removes the entry and reports the disconnect, but only when the
// stored connection is still this one: a replacement via Create must not be
// killed by its predecessor's state callback.
func (e *Engine) dropConn(peerID string, conn *peerConn) {
	e.mu.Lock()
	current, ok := e.conns[peerID]
	if ok && current == conn {
		delete(e.conns, peerID)
	} else {
		ok = false
	}
	e.mu.Unlock()

	if ok {
		conn.pc.Close()
		if e.cb.OnDisconnected != nil {
			e.cb.OnDisconnected(peerID)
		}
	}
}

func (e *Engine) emitSignal(peerID string, sig SignalData) {
	if e.cb.OnSignal == nil {
		return
	}
	data, err := json.Marshal(sig)
	if err != nil {
		e.emitError(peerID, errs.Peer(errs.CodePeerError, "marshal signal", err))
		return
	}
	e.cb.OnSignal(peerID, data)
}

func (e *Engine) emitError(peerID string, err error) {
	slog.Warn("peer: error", "peer", peerID, "err", err)
	if e.cb.OnError != nil {
		e.cb.OnError(peerID, err)
	}
}

package peer

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signalRecorder struct {
	mu      sync.Mutex
	signals []SignalData
}

func (r *signalRecorder) record(peerID string, data json.RawMessage) {
	var sig SignalData
	if err := json.Unmarshal(data, &sig); err != nil {
		return
	}
	r.mu.Lock()
	r.signals = append(r.signals, sig)
	r.mu.Unlock()
}

func (r *signalRecorder) first(t *testing.T) SignalData {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		if len(r.signals) > 0 {
			sig := r.signals[0]
			r.mu.Unlock()
			return sig
		}
		r.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("no signal emitted")
	return SignalData{}
}

func TestCreateResponderRegistersEntry(t *testing.T) {
	e := NewEngine(Callbacks{})
	defer e.DestroyAll()

	require.NoError(t, e.Create("p1", false, nil))
	assert.True(t, e.Has("p1"))
}

func TestCreateInitiatorEmitsOffer(t *testing.T) {
	rec := &signalRecorder{}
	e := NewEngine(Callbacks{OnSignal: rec.record})
	defer e.DestroyAll()

	require.NoError(t, e.Create("p1", true, nil))

	sig := rec.first(t)
	assert.Equal(t, "offer", sig.Kind)
	assert.NotEmpty(t, sig.SDP)
}

func TestCreateReplacesExistingEntry(t *testing.T) {
	e := NewEngine(Callbacks{})
	defer e.DestroyAll()

	require.NoError(t, e.Create("p1", false, nil))
	require.NoError(t, e.Create("p1", false, nil))
	assert.True(t, e.Has("p1"))
}

func TestDestroy(t *testing.T) {
	e := NewEngine(Callbacks{})
	require.NoError(t, e.Create("p1", false, nil))

	e.Destroy("p1")
	assert.False(t, e.Has("p1"))

	// Unknown peer is a no-op.
	e.Destroy("ghost")
}

func TestDestroyAll(t *testing.T) {
	e := NewEngine(Callbacks{})
	require.NoError(t, e.Create("p1", false, nil))
	require.NoError(t, e.Create("p2", false, nil))

	e.DestroyAll()
	assert.False(t, e.Has("p1"))
	assert.False(t, e.Has("p2"))
}

func TestHandleSignalUnknownPeerIgnored(t *testing.T) {
	e := NewEngine(Callbacks{})
	// Must not panic.
	e.HandleSignal("ghost", json.RawMessage(`{"kind":"offer","sdp":"x"}`))
}

func TestHandleSignalMalformedIgnored(t *testing.T) {
	e := NewEngine(Callbacks{})
	defer e.DestroyAll()
	require.NoError(t, e.Create("p1", false, nil))

	e.HandleSignal("p1", json.RawMessage(`not json`))
	e.HandleSignal("p1", json.RawMessage(`{"kind":"bogus"}`))
	assert.True(t, e.Has("p1"))
}

func TestSendControlUnknownPeer(t *testing.T) {
	e := NewEngine(Callbacks{})
	assert.Error(t, e.SendControl("ghost", ControlMessage{Type: ControlTypeMuteState}))
}

func TestSendControlBeforeChannelOpen(t *testing.T) {
	e := NewEngine(Callbacks{})
	defer e.DestroyAll()
	require.NoError(t, e.Create("p1", false, nil))

	assert.Error(t, e.SendControl("p1", ControlMessage{Type: ControlTypeMuteState}))
}

// Full in-process handshake: two engines exchange signals directly, connect
// over loopback host candidates and pass a control frame.
func TestEngineConnectivity(t *testing.T) {
	var a, b *Engine

	connectedA := make(chan struct{}, 1)
	connectedB := make(chan struct{}, 1)
	controlAtB := make(chan ControlMessage, 1)

	a = NewEngine(Callbacks{
		OnSignal:    func(peerID string, data json.RawMessage) { b.HandleSignal("A", data) },
		OnConnected: func(string) { connectedA <- struct{}{} },
	})
	b = NewEngine(Callbacks{
		OnSignal:    func(peerID string, data json.RawMessage) { a.HandleSignal("B", data) },
		OnConnected: func(string) { connectedB <- struct{}{} },
		OnControl:   func(_ string, msg ControlMessage) { controlAtB <- msg },
	})
	defer a.DestroyAll()
	defer b.DestroyAll()

	// The responder must exist before the initiator's offer arrives.
	require.NoError(t, b.Create("A", false, nil))
	require.NoError(t, a.Create("B", true, nil))

	for _, ch := range []chan struct{}{connectedA, connectedB} {
		select {
		case <-ch:
		case <-time.After(15 * time.Second):
			t.Fatal("peers did not connect")
		}
	}

	// The control channel opens shortly after the connection; retry until
	// it does.
	deadline := time.Now().Add(10 * time.Second)
	for {
		err := a.SendControl("B", ControlMessage{Type: ControlTypeMuteState, Muted: true})
		if err == nil {
			break
		}
		require.True(t, time.Now().Before(deadline), "control channel never opened: %v", err)
		time.Sleep(50 * time.Millisecond)
	}

	select {
	case msg := <-controlAtB:
		assert.Equal(t, ControlTypeMuteState, msg.Type)
		assert.True(t, msg.Muted)
	case <-time.After(10 * time.Second):
		t.Fatal("control frame not delivered")
	}
}

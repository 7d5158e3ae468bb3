package audio

import (
	"sync"

	"github.com/pion/webrtc/v4"
)

// Null is an Adapter without any devices. It is used when no capture
// backend is compiled in and by tests that need a harmless audio stack.
// Remote tracks are accepted and discarded; the sample feed stays silent.
type Null struct {
	mu      sync.Mutex
	muted   bool
	closed  bool
	samples chan []float32
}

func NewNull() *Null {
	return &Null{samples: make(chan []float32)}
}

func (n *Null) Start() error { return nil }

func (n *Null) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.closed {
		n.closed = true
		close(n.samples)
	}
	return nil
}

func (n *Null) LocalTrack() webrtc.TrackLocal { return nil }

func (n *Null) AddRemote(peerID string, track *webrtc.TrackRemote) {}

func (n *Null) RemoveRemote(peerID string) {}

func (n *Null) SetMuted(muted bool) {
	n.mu.Lock()
	n.muted = muted
	n.mu.Unlock()
}

func (n *Null) Muted() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.muted
}

func (n *Null) Samples() <-chan []float32 { return n.samples }

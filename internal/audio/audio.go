// Package audio defines the boundary between the call session and the
// platform audio stack. Device I/O (microphone capture, playback,
// resampling) lives behind the Adapter interface.
package audio

import (
	"math"

	"github.com/pion/webrtc/v4"
)

// SpeakingThreshold is the RMS level above which a sample batch counts as
// speech.
const SpeakingThreshold = 0.01

// Adapter is the audio subsystem as seen by the session.
type Adapter interface {
	// Start opens the capture device.
	Start() error

	// Close releases all devices. Safe to call more than once.
	Close() error

	// LocalTrack returns the outgoing microphone track, or nil when
	// capture is unavailable.
	LocalTrack() webrtc.TrackLocal

	// AddRemote routes a remote peer's audio track to the loudspeaker.
	AddRemote(peerID string, track *webrtc.TrackRemote)

	// RemoveRemote stops playback for the peer.
	RemoveRemote(peerID string)

	SetMuted(muted bool)
	Muted() bool

	// Samples streams local microphone batches as float32 PCM, used for
	// level metering. The channel closes when the adapter is closed.
	Samples() <-chan []float32
}

// Level computes the root-mean-square amplitude of one PCM batch.
func Level(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

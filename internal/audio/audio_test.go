package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelSilence(t *testing.T) {
	assert.Zero(t, Level(nil))
	assert.Zero(t, Level([]float32{}))
	assert.Zero(t, Level(make([]float32, 480)))
}

func TestLevelConstantSignal(t *testing.T) {
	batch := make([]float32, 480)
	for i := range batch {
		batch[i] = 0.5
	}
	assert.InDelta(t, 0.5, Level(batch), 1e-9)
}

func TestLevelSine(t *testing.T) {
	batch := make([]float32, 4800)
	for i := range batch {
		batch[i] = float32(math.Sin(2 * math.Pi * float64(i) / 48))
	}
	// RMS of a full-scale sine is 1/sqrt(2).
	assert.InDelta(t, 1/math.Sqrt2, Level(batch), 1e-3)
}

func TestLevelAgainstSpeakingThreshold(t *testing.T) {
	quiet := make([]float32, 480)
	for i := range quiet {
		quiet[i] = 0.005
	}
	loud := make([]float32, 480)
	for i := range loud {
		loud[i] = 0.1
	}

	assert.Less(t, Level(quiet), SpeakingThreshold)
	assert.Greater(t, Level(loud), SpeakingThreshold)
}

func TestNullAdapter(t *testing.T) {
	n := NewNull()
	assert.NoError(t, n.Start())
	assert.Nil(t, n.LocalTrack())

	n.SetMuted(true)
	assert.True(t, n.Muted())
	n.SetMuted(false)
	assert.False(t, n.Muted())

	n.AddRemote("p1", nil)
	n.RemoveRemote("p1")

	assert.NoError(t, n.Close())
	_, ok := <-n.Samples()
	assert.False(t, ok)

	// Second close is a no-op.
	assert.NoError(t, n.Close())
}

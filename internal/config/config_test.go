package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSocketURL(t *testing.T) {
	cases := map[string]string{
		"localhost:3000":              "ws://localhost:3000/ws",
		"voice.example.com":           "ws://voice.example.com/ws",
		"http://voice.example.com":    "ws://voice.example.com/ws",
		"https://voice.example.com":   "wss://voice.example.com/ws",
		"ws://voice.example.com/ws":   "ws://voice.example.com/ws",
		"wss://voice.example.com/ws":  "wss://voice.example.com/ws",
		"wss://voice.example.com/sig": "wss://voice.example.com/sig",
	}
	for in, want := range cases {
		assert.Equal(t, want, WebSocketURL(in), "input %q", in)
	}
}

func TestLoadFlagBeatsEnv(t *testing.T) {
	t.Setenv(EnvServer, "env.example.com")
	t.Setenv(EnvUsername, "envuser")

	cfg, err := Load(Options{Server: "flag.example.com", Username: "flaguser"})
	require.NoError(t, err)
	assert.Equal(t, "flag.example.com", cfg.Server)
	assert.Equal(t, "flaguser", cfg.Username)
}

func TestLoadEnvFallback(t *testing.T) {
	t.Setenv(EnvServer, "env.example.com")
	t.Setenv(EnvUsername, "envuser")

	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, "env.example.com", cfg.Server)
	assert.Equal(t, "ws://env.example.com/ws", cfg.WebSocketURL)
	assert.Equal(t, "envuser", cfg.Username)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvServer, "")
	t.Setenv(EnvUsername, "")
	t.Setenv("USER", "osuser")

	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultServer, cfg.Server)
	assert.Equal(t, "osuser", cfg.Username)
}

func TestLoadNoUsername(t *testing.T) {
	t.Setenv(EnvUsername, "")
	t.Setenv("USER", "")

	_, err := Load(Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvUsername)
}


package config

import (
	"fmt"
	"os"
	"strings"
)

// Default configuration values
const (
	DefaultServer = "localhost:3000"
	EnvServer     = "VOICESYNC_SERVER"
	EnvUsername   = "VOICESYNC_USERNAME"
)

// Config holds the client configuration
type Config struct {
	// Server is the signaling server address as given
	Server string

	// WebSocketURL is the full signaling endpoint derived from Server
	WebSocketURL string

	// Username is the display name announced at login
	Username string
}

// Options for loading config with CLI flag overrides
type Options struct {
	Server   string
	Username string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Defaults - lowest priority
func Load(opts Options) (*Config, error) {
	server := opts.Server
	if server == "" {
		server = os.Getenv(EnvServer)
	}
	if server == "" {
		server = DefaultServer
	}

	username := opts.Username
	if username == "" {
		username = os.Getenv(EnvUsername)
	}
	if username == "" {
		username = os.Getenv("USER")
	}
	if strings.TrimSpace(username) == "" {
		return nil, fmt.Errorf("no username: pass -u or set %s", EnvUsername)
	}

	return &Config{
		Server:       server,
		WebSocketURL: WebSocketURL(server),
		Username:     strings.TrimSpace(username),
	}, nil
}

// WebSocketURL derives the signaling endpoint from a server address. Full
// ws:// or wss:// URLs pass through; bare host[:port] gets the default
// scheme and path.
func WebSocketURL(server string) string {
	if strings.HasPrefix(server, "ws://") || strings.HasPrefix(server, "wss://") {
		return server
	}
	if strings.HasPrefix(server, "https://") {
		return "wss://" + strings.TrimPrefix(server, "https://") + "/ws"
	}
	if strings.HasPrefix(server, "http://") {
		return "ws://" + strings.TrimPrefix(server, "http://") + "/ws"
	}
	return fmt.Sprintf("ws://%s/ws", server)
}

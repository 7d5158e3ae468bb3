// Package signaling implements the client side of the VoiceSync wire
// protocol: one websocket to the rendezvous server with JSON framing,
// keep-alive probes and bounded reconnection.
package signaling

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/TheCodeDaniel/voiceSync/internal/errs"
	"github.com/TheCodeDaniel/voiceSync/internal/protocol"
)

const (
	// Keep-alive probe interval. There is no pong timeout on this side;
	// liveness relies on the transport itself.
	keepAliveInterval = 25 * time.Second

	// Back-off between reconnect attempts after an unexpected close.
	reconnectDelay = 3 * time.Second

	// Reconnect attempts before giving up with CONN_LOST.
	maxReconnects = 5

	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
)

// Transport manages the websocket connection to the signaling server.
// Inbound frames are parsed and delivered on Incoming; the channel closes
// when the transport is permanently done. Fatal transport errors arrive on
// Errors before Incoming closes.
type Transport struct {
	serverURL string

	keepAlive      time.Duration
	reconnectDelay time.Duration
	maxReconnects  int

	mu   sync.Mutex
	conn *websocket.Conn
	open bool

	incoming chan *protocol.Message
	errors   chan error

	// done is closed on intentional disconnect; it suppresses reconnection
	// and stops the keep-alive loop.
	done     chan struct{}
	doneOnce sync.Once
}

func NewTransport(serverURL string) *Transport {
	return &Transport{
		serverURL:      serverURL,
		keepAlive:      keepAliveInterval,
		reconnectDelay: reconnectDelay,
		maxReconnects:  maxReconnects,
		incoming:       make(chan *protocol.Message, 32),
		errors:         make(chan error, 1),
		done:           make(chan struct{}),
	}
}

// Connect opens the websocket. The initial handshake is not retried; a
// failure here is CONNECT_FAILED.
func (t *Transport) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(t.serverURL, nil)
	if err != nil {
		return errs.Signaling(errs.CodeConnectFailed, "could not reach signaling server "+t.serverURL, err)
	}

	t.setConn(conn)
	go t.run(conn)
	go t.keepAliveLoop()
	return nil
}

// Incoming returns the inbound frame channel. It closes exactly once, when
// the transport will deliver nothing more.
func (t *Transport) Incoming() <-chan *protocol.Message {
	return t.incoming
}

// Errors returns the fatal error channel (buffered; at most one entry).
func (t *Transport) Errors() <-chan error {
	return t.errors
}

// Send writes one frame. When the channel is not open the frame is dropped
// silently, per protocol: the server treats missing messages as departures.
func (t *Transport) Send(msg *protocol.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.open {
		slog.Debug("signaling: dropping frame, channel not open", "type", msg.Type)
		return
	}

	t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := t.conn.WriteJSON(msg); err != nil {
		slog.Debug("signaling: write failed", "type", msg.Type, "err", err)
	}
}

// Disconnect closes the connection intentionally, suppressing reconnection.
func (t *Transport) Disconnect() {
	t.doneOnce.Do(func() { close(t.done) })

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		t.conn.SetWriteDeadline(time.Now().Add(writeWait))
		t.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		t.conn.Close()
	}
	t.open = false
}

// run owns all reads. It survives reconnects and closes Incoming when the
// transport is finished for good.
func (t *Transport) run(conn *websocket.Conn) {
	defer close(t.incoming)

	for {
		t.readAll(conn)
		t.markClosed()

		if t.intentional() {
			return
		}

		slog.Warn("signaling: connection lost, reconnecting", "delay", t.reconnectDelay)
		conn = t.reconnect()
		if conn == nil {
			if !t.intentional() {
				t.errors <- errs.Signaling(errs.CodeConnLost, "reconnection attempts exhausted", nil)
			}
			return
		}
	}
}

// readAll pumps frames from one connection until it fails.
func (t *Transport) readAll(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("signaling: dropping non-JSON frame")
			continue
		}

		t.incoming <- &msg
	}
}

// reconnect retries the dial with back-off. It returns nil when the attempts
// are exhausted or the transport was closed intentionally meanwhile.
func (t *Transport) reconnect() *websocket.Conn {
	for attempt := 1; attempt <= t.maxReconnects; attempt++ {
		select {
		case <-time.After(t.reconnectDelay):
		case <-t.done:
			return nil
		}

		conn, _, err := websocket.DefaultDialer.Dial(t.serverURL, nil)
		if err == nil {
			slog.Info("signaling: reconnected", "attempt", attempt)
			t.setConn(conn)
			return conn
		}
		slog.Warn("signaling: reconnect failed", "attempt", attempt, "err", err)
	}
	return nil
}

// keepAliveLoop sends a ping every keep-alive interval. Send failures are
// logged only; the read side decides when the connection is dead.
func (t *Transport) keepAliveLoop() {
	ticker := time.NewTicker(t.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.mu.Lock()
			if t.open {
				t.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					slog.Debug("signaling: keep-alive failed", "err", err)
				}
			}
			t.mu.Unlock()

		case <-t.done:
			return
		}
	}
}

func (t *Transport) setConn(conn *websocket.Conn) {
	t.mu.Lock()
	t.conn = conn
	t.open = true
	t.mu.Unlock()
}

func (t *Transport) markClosed() {
	t.mu.Lock()
	t.open = false
	t.mu.Unlock()
}

func (t *Transport) intentional() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

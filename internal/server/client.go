package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/TheCodeDaniel/voiceSync/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. 64 KB is enough for any SDP blob.
	maxMessageSize = 64 * 1024

	// Outbound queue depth per connection. A recipient that falls this far
	// behind is dropped and treated as disconnected.
	sendQueueSize = 64
)

// Client wraps a single websocket connection. All hub-side state access goes
// through the hub goroutine; the client only owns its two pumps.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	peerID string

	send chan *protocol.Message

	// slow is closed when the send queue overflows, telling writePump to
	// tear the connection down.
	slow     chan struct{}
	slowOnce sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn, peerID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		peerID: peerID,
		send:   make(chan *protocol.Message, sendQueueSize),
		slow:   make(chan struct{}),
	}
}

// PeerID returns the server-assigned connection id.
func (c *Client) PeerID() string { return c.peerID }

// Enqueue queues an outbound message without blocking. A full queue marks
// the client slow, which closes the connection from writePump.
func (c *Client) Enqueue(msg *protocol.Message) bool {
	select {
	case c.send <- msg:
		return true
	default:
		c.slowOnce.Do(func() { close(c.slow) })
		return false
	}
}

// readPump pumps frames from the websocket into the hub. It is the only
// reader on the connection. Non-JSON frames are dropped without closing the
// connection; transport errors end the pump and unregister the client.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().Str("module", "server.client").Str("peer", c.peerID).Err(err).Msg("read error")
			}
			return
		}

		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debug().Str("module", "server.client").Str("peer", c.peerID).Msg("ignoring non-JSON frame")
			continue
		}

		c.hub.inbound <- inboundMessage{client: c, msg: &msg}
	}
}

// writePump pumps queued messages to the websocket and sends periodic pings.
// It is the only writer on the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				log.Debug().Str("module", "server.client").Str("peer", c.peerID).Err(err).Msg("write error")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.slow:
			log.Warn().Str("module", "server.client").Str("peer", c.peerID).Msg("send queue overflow, dropping client")
			return
		}
	}
}

package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Configure the websocket upgrader. Clients connect from terminals, not
// browsers, so origin checking stays open.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewRouter builds the HTTP surface: health, ping and the websocket
// signaling endpoint, all on one listener.
func NewRouter(hub *Hub, cfg *Config, startedAt time.Time) *gin.Engine {
	if cfg.Mode != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": int64(time.Since(startedAt).Seconds()),
		})
	})

	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	r.GET("/ws", gin.WrapH(ServeWS(hub)))

	return r
}

// ServeWS upgrades an HTTP request to a websocket connection, assigns the
// peer id and starts the connection's pumps.
func ServeWS(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Str("module", "server.routes").Err(err).Msg("websocket upgrade failed")
			return
		}

		client := newClient(hub, conn, uuid.NewString())
		hub.register <- client

		go client.writePump()
		go client.readPump()
	}
}

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"disaster-alerts/internal/registry"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsClient is one live socket-stream connection. Writes are serialized; a
// failed write closes the socket so the read loop unwinds too.
type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// Send implements registry.Subscriber.
func (w *wsClient) Send(payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		_ = w.conn.Close()
		return err
	}
	return nil
}

func (w *wsClient) sendJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.Send(payload)
}

// RegisterWSRoutes registers the bidirectional socket stream.
//
// GET /ws — upgraded connection emitting a hello frame on open and alert
// frames from the fan-out. Close or error removes the connection from the
// registry.
func RegisterWSRoutes(r gin.IRoutes, reg *registry.Registry, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	r.GET("/ws", func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Error("websocket upgrade failed", "error", err)
			return
		}
		client := &wsClient{conn: conn}
		reg.Add(client)
		defer func() {
			reg.Remove(client)
			_ = conn.Close()
		}()

		if err := client.sendJSON(gin.H{"event": "hello", "connectedAt": time.Now().UnixMilli()}); err != nil {
			return
		}

		// Inbound frames are ignored; the read loop exists to notice the
		// peer going away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
}

// Package ws pushes library change events to connected reader UIs over
// WebSocket.
package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/quillreader/backend/internal/infrastructure/logging"
	"github.com/quillreader/backend/internal/infrastructure/monitoring"
	"github.com/quillreader/backend/internal/library"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // desktop webview and dev server connect cross-origin
	},
}

const writeTimeout = 5 * time.Second

// Hub fans library events out to every connected client. Clients are
// write-only from the server's perspective; the read loop exists to
// answer pings and to notice disconnects.
type Hub struct {
	log     *logging.Logger
	metrics *monitoring.Metrics

	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

// NewHub creates an event hub. metrics may be nil.
func NewHub(log *logging.Logger, metrics *monitoring.Metrics) *Hub {
	return &Hub{
		log:     log,
		metrics: metrics,
		conns:   make(map[*websocket.Conn]bool),
	}
}

// Broadcast sends one library event to every connected client. Clients
// that fail to accept the write are dropped.
func (h *Hub) Broadcast(event library.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(event); err != nil {
			h.log.Warn("event write failed, dropping client", zap.Error(err))
			conn.Close()
			h.remove(conn)
		}
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// HandleConnection upgrades the request and keeps the connection
// registered until the client goes away.
func (h *Hub) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.add(conn)
	defer func() {
		h.mu.Lock()
		h.remove(conn)
		h.mu.Unlock()
		conn.Close()
	}()

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(map[string]any{"type": "connected"}); err != nil {
		return
	}

	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg["type"] == "ping" {
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(map[string]any{"type": "pong"}); err != nil {
				return
			}
		}
	}
}

func (h *Hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = true
	n := len(h.conns)
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.WSConnections.Set(float64(n))
	}
}

// remove expects h.mu held.
func (h *Hub) remove(conn *websocket.Conn) {
	delete(h.conns, conn)
	if h.metrics != nil {
		h.metrics.WSConnections.Set(float64(len(h.conns)))
	}
}

// Close disconnects every client.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		conn.Close()
		delete(h.conns, conn)
	}
	if h.metrics != nil {
		h.metrics.WSConnections.Set(0)
	}
	return nil
}

// Package ws streams store change events to connected UI clients.
package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nwlens/nwlens/internal/domain/store"
	"github.com/nwlens/nwlens/internal/infrastructure/logging"
	"github.com/nwlens/nwlens/internal/infrastructure/monitoring"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Server binds loopback; origin checks add nothing here.
		return true
	},
}

// Handler manages WebSocket connections
type Handler struct {
	store   *store.Store
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewHandler creates a WebSocket handler
func NewHandler(st *store.Store, logger *logging.Logger) *Handler {
	return &Handler{
		store:  st,
		logger: logger,
	}
}

// WithMetrics adds metrics tracking to the handler
func (h *Handler) WithMetrics(metrics *monitoring.Metrics) *Handler {
	h.metrics = metrics
	return h
}

// HandleConnection upgrades the request and forwards store events until
// the client disconnects. Each client gets the current state first so
// it never has to reconstruct it from the event stream.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.WSConnections.Inc()
		defer h.metrics.WSConnections.Dec()
	}

	subID, events := h.store.Subscribe()
	defer h.store.Unsubscribe(subID)

	if err := h.writeJSON(conn, gin.H{
		"type":     "snapshot",
		"apps":     h.store.Applications(),
		"sessions": h.store.Sessions(),
	}); err != nil {
		return
	}

	// Reader goroutine exists only to observe the close handshake.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := h.writeJSON(conn, ev); err != nil {
				h.logger.Debug("WebSocket write failed", zap.Error(err))
				return
			}
		}
	}
}

func (h *Handler) writeJSON(conn *websocket.Conn, data interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(data)
}

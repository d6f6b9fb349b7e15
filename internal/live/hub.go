// Package live streams evaluation outcomes to connected dashboards over
// WebSocket. Delivery is best-effort: slow or dead clients are dropped
// rather than allowed to stall evaluations.
package live

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"modzero/internal/trust"
	id "modzero/pkg/domain"
)

// DecisionEvent is the wire format pushed to subscribers after each
// evaluation.
type DecisionEvent struct {
	AttemptID  string         `json:"attempt_id"`
	UserID     string         `json:"user_id"`
	DeviceID   string         `json:"device_id,omitempty"`
	TotalScore float64        `json:"total_score"`
	Decision   trust.Decision `json:"decision"`
	Timestamp  time.Time      `json:"timestamp"`
}

const clientBufferSize = 16

// Hub fans evaluation events out to connected WebSocket clients.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

type client struct {
	conn   *websocket.Conn
	events chan DecisionEvent
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// TODO: tighten for production
				return true
			},
		},
		logger: logger,
	}
}

// Broadcast queues the event for every connected client. Clients whose
// buffers are full miss the event; they can reconcile via the attempts API.
func (h *Hub) Broadcast(event DecisionEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.events <- event:
		default:
		}
	}
}

// ClientCount reports the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS handles GET /live: upgrades the connection and streams decision
// events until the client disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(r.Context(), "upgrading to websocket", "error", err)
		return
	}

	c := &client{
		conn:   conn,
		events: make(chan DecisionEvent, clientBufferSize),
	}
	h.register(c)
	defer h.unregister(c)

	// Reader goroutine: we never expect client messages, but reading is
	// required to notice closes and to answer control frames.
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
		case event := <-c.events:
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	c.conn.Close()
}

// EventFor builds the broadcast payload from an evaluation outcome.
func EventFor(attemptID id.AttemptID, userID id.UserID, deviceID string, result *trust.EvaluationResult, at time.Time) DecisionEvent {
	return DecisionEvent{
		AttemptID:  attemptID.String(),
		UserID:     userID.String(),
		DeviceID:   deviceID,
		TotalScore: result.TotalScore,
		Decision:   result.Decision,
		Timestamp:  at,
	}
}

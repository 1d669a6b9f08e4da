package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/detector"
)

const (
	writeWait  = 5 * time.Second
	clientSend = 8
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// LandmarkFeed delivers every published detection result.
type LandmarkFeed interface {
	OnResult(fn func(*detector.MultiHandLandmarks))
}

// CountdownFeed delivers recording countdown values.
type CountdownFeed interface {
	OnCountdown(fn func(int))
}

// Message is one WebSocket push. Hands is omitted when no hand is visible.
type Message struct {
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Hands     []detector.Hand `json:"hands,omitempty"`
	Countdown *int            `json:"countdown,omitempty"`
}

// Message types.
const (
	MessageLandmarks = "landmarks"
	MessageCountdown = "countdown"
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// LandmarksHandler broadcasts tracker output to WebSocket clients. Slow
// clients drop messages instead of stalling the detection loop.
type LandmarksHandler struct {
	logger  *zap.Logger
	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

// NewLandmarksHandler creates an empty hub.
func NewLandmarksHandler(logger *zap.Logger) *LandmarksHandler {
	return &LandmarksHandler{
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *LandmarksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientSend)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(c)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(c)
}

func (h *LandmarksHandler) writePump(c *client) {
	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.remove(c)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *LandmarksHandler) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// PublishLandmarks sends a detection result to every client.
func (h *LandmarksHandler) PublishLandmarks(lm *detector.MultiHandLandmarks) {
	msg := Message{Type: MessageLandmarks, Timestamp: time.Now().UnixMilli()}
	if lm != nil {
		msg.Hands = lm.Hands
	}
	h.broadcast(msg)
}

// PublishCountdown sends a countdown value to every client.
func (h *LandmarksHandler) PublishCountdown(remaining int) {
	h.broadcast(Message{
		Type:      MessageCountdown,
		Timestamp: time.Now().UnixMilli(),
		Countdown: &remaining,
	})
}

func (h *LandmarksHandler) broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.clients) == 0 {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal websocket message", zap.Error(err))
		return
	}

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

// Clients returns the number of connected clients.
func (h *LandmarksHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *LandmarksHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

package rpc

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"farmledger/core/events"
	"farmledger/core/types"
	"farmledger/observability"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsClientBuffer = 64
)

// StreamEvent is the frame pushed to websocket subscribers.
type StreamEvent struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type wsClient struct {
	types map[string]struct{}
	send  chan []byte
}

func (c *wsClient) wants(eventType string) bool {
	if len(c.types) == 0 {
		return true
	}
	_, ok := c.types[eventType]
	return ok
}

// Hub fans committed events out to websocket clients. It subscribes to the
// node bus, so Emit never blocks: a client whose buffer is full misses the
// frame.
type Hub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  chan struct{}
	once    sync.Once
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*wsClient]struct{}),
		closed:  make(chan struct{}),
		logger:  logger.With("component", "ws"),
	}
}

// Emit implements events.Emitter.
func (h *Hub) Emit(evt events.Event) {
	if h == nil || evt == nil {
		return
	}
	frame := StreamEvent{Type: evt.EventType()}
	if payload, ok := evt.(interface{ Event() *types.Event }); ok && payload.Event() != nil {
		frame.Attributes = payload.Event().Attributes
	}
	data, err := json.Marshal(frame)
	if err != nil {
		h.logger.Warn("encode stream event", "type", frame.Type, "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.wants(frame.Type) {
			continue
		}
		select {
		case c.send <- data:
		default:
			observability.RPC().RecordThrottle("ws_backpressure")
		}
	}
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.once.Do(func() { close(h.closed) })
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// ServeHTTP upgrades the request and streams events until the peer leaves.
// The optional comma-separated "types" query parameter filters event types.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	client := &wsClient{send: make(chan []byte, wsClientBuffer)}
	if raw := strings.TrimSpace(r.URL.Query().Get("types")); raw != "" {
		client.types = make(map[string]struct{})
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				client.types[t] = struct{}{}
			}
		}
	}
	h.register(client)
	defer h.unregister(client)

	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.closed:
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case data := <-client.send:
			if err := writeFrame(ctx, conn, data); err != nil {
				if status := websocket.CloseStatus(err); status == -1 {
					_ = conn.Close(websocket.StatusInternalError, "stream error")
				}
				return
			}
		}
	}
}

func writeFrame(ctx context.Context, conn *websocket.Conn, data []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

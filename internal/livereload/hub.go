// Package livereload pushes reload events to open browser pages. Pages
// connect over Server-Sent Events (the injected client script) or a
// WebSocket; both receive the same textual events.
package livereload

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/conneroisu/isle/internal/logging"
	"github.com/conneroisu/isle/internal/metrics"
)

// Events sent to clients.
const (
	EventConnected = "connected"
	EventReload    = "reload"
)

// Transport names a client connection kind.
type Transport string

const (
	TransportSSE       Transport = "sse"
	TransportWebSocket Transport = "websocket"
)

const (
	sendBuffer        = 8
	heartbeatInterval = 30 * time.Second
	writeTimeout      = 5 * time.Second
)

type client struct {
	id        string
	transport Transport
	send      chan string
}

// Hub tracks connected clients and a pending reload. A reload broadcast
// while nobody is connected, as happens right after a server restart, is
// kept pending and delivered to the first client that connects.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*client
	pending bool

	done      chan struct{}
	closeOnce sync.Once

	logger  logging.Logger
	metrics metrics.Recorder
}

// NewHub creates an empty hub.
func NewHub(logger logging.Logger, rec metrics.Recorder) *Hub {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Hub{
		clients: make(map[string]*client),
		done:    make(chan struct{}),
		logger:  logger.WithComponent("livereload"),
		metrics: metrics.OrNoop(rec),
	}
}

// Broadcast sends a reload to every client and returns how many received
// it. With no clients connected the reload is marked pending instead.
// Clients whose buffers are full are dropped.
func (h *Hub) Broadcast(ctx context.Context) int {
	h.mu.Lock()
	if len(h.clients) == 0 {
		h.pending = true
		h.mu.Unlock()
		h.logger.Debug(ctx, "No clients connected, reload pending")
		h.metrics.IncReloadBroadcast(0)
		return 0
	}

	delivered := 0
	for id, c := range h.clients {
		select {
		case c.send <- EventReload:
			delivered++
		default:
			delete(h.clients, id)
			close(c.send)
			h.logger.Warn(ctx, nil, "Dropping unresponsive client", "client", id)
		}
	}
	n := len(h.clients)
	h.mu.Unlock()

	h.metrics.IncReloadBroadcast(delivered)
	h.metrics.SetReloadClients(n)
	h.logger.Info(ctx, "Reload broadcast", "clients", delivered)
	return delivered
}

// Pending reports whether a reload is waiting for the next client.
func (h *Hub) Pending() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pending
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client. Handlers return once their client is
// released; new connections are refused.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
		h.mu.Lock()
		for id, c := range h.clients {
			delete(h.clients, id)
			close(c.send)
		}
		h.mu.Unlock()
		h.metrics.SetReloadClients(0)
	})
}

// register adds a client and queues its first event. The pending flag is
// read and cleared under the same lock that makes the client visible, so
// exactly one client receives a pending reload.
func (h *Hub) register(ctx context.Context, t Transport) *client {
	c := &client{id: uuid.NewString(), transport: t, send: make(chan string, sendBuffer)}

	h.mu.Lock()
	first := EventConnected
	if h.pending {
		h.pending = false
		first = EventReload
	}
	c.send <- first
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()

	h.metrics.SetReloadClients(n)
	h.logger.Debug(ctx, "Client connected", "client", c.id, "transport", string(t), "first_event", first)
	return c
}

func (h *Hub) unregister(ctx context.Context, c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	h.metrics.SetReloadClients(n)
	h.logger.Debug(ctx, "Client disconnected", "client", c.id)
}

func (h *Hub) closed() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// ServeSSE streams events as `data: <event>` frames until the request ends.
func (h *Hub) ServeSSE(w http.ResponseWriter, r *http.Request) {
	if h.closed() {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}
	ctx := r.Context()
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	c := h.register(ctx, TransportSSE)
	defer h.unregister(ctx, c)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case ev, ok := <-c.send:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", ev); err != nil {
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

// ServeWebSocket sends each event as a text message.
func (h *Hub) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.closed() {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		h.logger.Warn(r.Context(), err, "WebSocket upgrade failed", "remote", r.RemoteAddr)
		return
	}
	defer conn.CloseNow()

	// clients never send; CloseRead handles control frames and cancels on close
	ctx := conn.CloseRead(r.Context())

	c := h.register(ctx, TransportWebSocket)
	defer h.unregister(ctx, c)

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case ev, ok := <-c.send:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(wctx, websocket.MessageText, []byte(ev))
			cancel()
			if err != nil {
				return
			}
		}
	}
}

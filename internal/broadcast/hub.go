package broadcast

import (
	"log/slog"
	"sync"

	"github.com/citywatch/weather-monitoring/internal/observability"
)

// Client is one live connection. Send must be safe to call from the hub's
// broadcasting goroutine; a returned error evicts the client.
type Client interface {
	Send(v any) error
}

// Hub owns the set of currently-connected live clients. It is an explicit
// connection manager passed by handle to whatever accepts connections; there
// is no ambient global registry. Attach and detach may happen concurrently
// with a broadcast.
type Hub struct {
	mu      sync.Mutex
	clients map[Client]struct{}
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		clients: make(map[Client]struct{}),
		logger:  logger.With("component", "broadcast"),
		metrics: metrics,
	}
}

// Register adds a client to the active set.
func (h *Hub) Register(c Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.metrics.ConnectedClients.Set(float64(n))
	h.logger.Info("client connected", "clients", n)
}

// Unregister removes a client. Safe to call for a client already evicted.
func (h *Hub) Unregister(c Client) {
	h.mu.Lock()
	_, present := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if present {
		h.metrics.ConnectedClients.Set(float64(n))
		h.logger.Info("client disconnected", "clients", n)
	}
}

// Broadcast sends v to every connected client, best-effort: a failed send
// evicts that client and does not affect delivery to the others. There is no
// queuing and no delivery guarantee; a momentarily disconnected client simply
// misses this update.
func (h *Hub) Broadcast(v any) {
	h.mu.Lock()
	targets := make([]Client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	var evicted []Client
	for _, c := range targets {
		if err := c.Send(v); err != nil {
			h.metrics.BroadcastFailures.Inc()
			h.logger.Warn("send failed, evicting client", "error", err)
			evicted = append(evicted, c)
			continue
		}
		h.metrics.BroadcastsSent.Inc()
	}

	for _, c := range evicted {
		h.Unregister(c)
	}
}

// Len reports the current number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

package realtime

// Hub keeps every live websocket client indexed by user id. A user may
// have several clients (devices). Events are delivered only to users in
// the event's audience, which is how per-user row filters are enforced.

import (
	"log/slog"
	"sync"

	"cinelist/internal/shared"
)

type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // userID -> clients
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		logger:  logger.With("component", "realtime_hub"),
	}
}

// Register adds c under its user id.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
	h.logger.Debug("client_registered", "user_id", c.UserID, "devices", len(set))
}

// Unregister removes c and closes its send channel. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	set, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.UserID)
	}
	close(c.send)
	h.logger.Debug("client_unregistered", "user_id", c.UserID)
}

// Dispatch fans ev out to the clients of every audience member. A client
// whose buffer is full is dropped; it will refetch on reconnect.
func (h *Hub) Dispatch(ev shared.ChangeEvent) int {
	out := ev
	out.Audience = nil

	var slow []*Client
	delivered := 0

	h.mu.RLock()
	seen := make(map[string]bool, len(ev.Audience))
	for _, userID := range ev.Audience {
		if seen[userID] {
			continue
		}
		seen[userID] = true
		for c := range h.clients[userID] {
			select {
			case c.send <- out:
				delivered++
			default:
				slow = append(slow, c)
			}
		}
	}
	h.mu.RUnlock()

	if len(slow) > 0 {
		h.mu.Lock()
		for _, c := range slow {
			h.logger.Warn("client_dropped_slow", "user_id", c.UserID)
			h.removeLocked(c)
		}
		h.mu.Unlock()
	}
	return delivered
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// CloseAll disconnects every client, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.clients {
		for c := range set {
			h.removeLocked(c)
		}
	}
}

// Package hub holds the registry of live client connections keyed by the
// user's identifier.
package hub

import (
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/samber/lo"
)

// ErrNotConnected is returned by SendTo when no channel is registered for
// the identifier.
var ErrNotConnected = errors.New("hub: identifier not connected")

// Channel is the outbound side of a live connection. Send must not block;
// implementations enqueue and report a full or closed queue as an error.
type Channel interface {
	Send(msg []byte) error
}

// Hub maps identifiers to their live channel. There is at most one channel
// per identifier; registering again replaces the previous one.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]Channel
	logger   *slog.Logger
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the logger used by the hub.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) {
		h.logger = l
	}
}

// New creates an empty Hub.
func New(opts ...Option) *Hub {
	h := &Hub{
		channels: make(map[string]Channel),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "hub")
	return h
}

// Connect registers ch for id. The caller has already completed the
// websocket handshake. A channel previously registered under id is returned
// but left open.
func (h *Hub) Connect(id string, ch Channel) (displaced Channel) {
	h.mu.Lock()
	displaced = h.channels[id]
	h.channels[id] = ch
	total := len(h.channels)
	h.mu.Unlock()

	if displaced != nil {
		h.logger.Warn("Connection replaced by a newer one", "user_id", id)
	}
	h.logger.Info("Client connected", "user_id", id, "total_connections", total)
	return displaced
}

// Disconnect removes id from the registry. It reports whether an entry was
// removed; calling it for an unknown id is a no-op.
func (h *Hub) Disconnect(id string) bool {
	h.mu.Lock()
	_, ok := h.channels[id]
	delete(h.channels, id)
	total := len(h.channels)
	h.mu.Unlock()

	if ok {
		h.logger.Info("Client disconnected", "user_id", id, "total_connections", total)
	}
	return ok
}

// Release removes id only while ch is still its registered channel, so a
// connection that was replaced cannot evict its successor.
func (h *Hub) Release(id string, ch Channel) bool {
	h.mu.Lock()
	current, ok := h.channels[id]
	if ok && current == ch {
		delete(h.channels, id)
	} else {
		ok = false
	}
	total := len(h.channels)
	h.mu.Unlock()

	if ok {
		h.logger.Info("Client disconnected", "user_id", id, "total_connections", total)
	}
	return ok
}

// SendTo delivers msg to id's channel.
func (h *Hub) SendTo(id string, msg []byte) error {
	h.mu.RLock()
	ch, ok := h.channels[id]
	h.mu.RUnlock()

	if !ok {
		return ErrNotConnected
	}
	return ch.Send(msg)
}

// BroadcastExcept delivers msg to every channel except sender's and returns
// how many deliveries succeeded. A failing channel does not affect the rest.
func (h *Hub) BroadcastExcept(sender string, msg []byte) int {
	h.mu.RLock()
	targets := make([]Channel, 0, len(h.channels))
	for id, ch := range h.channels {
		if id != sender {
			targets = append(targets, ch)
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, ch := range targets {
		if err := ch.Send(msg); err != nil {
			h.logger.Debug("Broadcast delivery failed", "sender", sender, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

// Online returns the sorted identifiers of all registered channels.
func (h *Hub) Online() []string {
	h.mu.RLock()
	ids := lo.Keys(h.channels)
	h.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// OnlineExcept returns Online without id. The result is never nil.
func (h *Hub) OnlineExcept(id string) []string {
	return lo.Without(h.Online(), id)
}

// IsOnline reports whether id has a registered channel.
func (h *Hub) IsOnline(id string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.channels[id]
	return ok
}

// Len returns the number of registered channels.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels)
}

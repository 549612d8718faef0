package watch

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Payload is the message pushed to browsers. Exactly one of Code and
// Error is set, or neither for an empty source file.
type Payload struct {
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

// subscriberBuffer bounds queued payloads per subscriber. A subscriber that
// falls further behind is dropped; its browser reconnects and gets the
// latest payload.
const subscriberBuffer = 8

type subscriber struct {
	id   uuid.UUID
	send chan Payload
}

// Hub fans payloads out to subscribers and remembers the latest one.
type Hub struct {
	mu        sync.Mutex
	subs      map[uuid.UUID]*subscriber
	latest    *Payload
	latestKey string
	logger    *slog.Logger
}

func newHub(logger *slog.Logger) *Hub {
	return &Hub{
		subs:   make(map[uuid.UUID]*subscriber),
		logger: logger,
	}
}

// subscribe registers a subscriber and queues the latest payload for it.
func (h *Hub) subscribe() *subscriber {
	s := &subscriber{id: uuid.New(), send: make(chan Payload, subscriberBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[s.id] = s
	if h.latest != nil {
		s.send <- *h.latest
	}
	h.logger.Debug("subscriber joined", "id", s.id, "subscribers", len(h.subs))
	return s
}

func (h *Hub) unsubscribe(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(s.send)
		h.logger.Debug("subscriber left", "id", id, "subscribers", len(h.subs))
	}
}

// publish broadcasts p unless key matches the previous publish. It reports
// whether anything was sent.
func (h *Hub) publish(key string, p Payload) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.latest != nil && key == h.latestKey {
		return false
	}
	h.latest, h.latestKey = &p, key

	for id, s := range h.subs {
		select {
		case s.send <- p:
		default:
			h.logger.Warn("dropping slow subscriber", "id", id)
			delete(h.subs, id)
			close(s.send)
		}
	}
	return true
}

// Latest returns the most recent payload.
func (h *Hub) Latest() (Payload, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.latest == nil {
		return Payload{}, false
	}
	return *h.latest, true
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// closeAll disconnects every subscriber.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, s := range h.subs {
		delete(h.subs, id)
		close(s.send)
	}
}

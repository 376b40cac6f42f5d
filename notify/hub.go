package notify

import (
	"log/slog"
	"strings"
	"sync"
)

const defaultSubscriberCapacity = 16

// Event is a named payload pushed to a recipient's live subscribers.
type Event struct {
	ID   string
	Name string
	Data []byte
}

// HubOption customizes Hub construction.
type HubOption func(*Hub)

// HubWithLogger injects a logger for drop diagnostics.
func HubWithLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// HubWithSubscriberCapacity overrides the buffered channel size per subscriber.
func HubWithSubscriberCapacity(capacity int) HubOption {
	return func(h *Hub) {
		if capacity > 0 {
			h.capacity = capacity
		}
	}
}

// Hub is the process-wide registry of live channels keyed by recipient ID.
// Delivery is at-most-once: events for recipients with no subscriber are
// dropped and a full subscriber buffer drops that subscriber's copy.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*subscriber]struct{}
	closed      bool
	capacity    int
	logger      *slog.Logger
}

// Subscription is one live channel joined to a recipient.
type Subscription struct {
	Events <-chan Event
	cancel func()
}

// Close leaves the channel. Events is closed afterwards.
func (s Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// NewHub constructs an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		subscribers: map[string]map[*subscriber]struct{}{},
		capacity:    defaultSubscriberCapacity,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Subscribe joins a channel for recipient. On a closed hub the returned
// subscription's Events channel is already closed.
func (h *Hub) Subscribe(recipient string) Subscription {
	key := normalizeRecipient(recipient)
	sub := newSubscriber(h.capacity)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		sub.close()
		return Subscription{Events: sub.ch}
	}
	if h.subscribers[key] == nil {
		h.subscribers[key] = map[*subscriber]struct{}{}
	}
	h.subscribers[key][sub] = struct{}{}
	h.mu.Unlock()

	return Subscription{
		Events: sub.ch,
		cancel: func() { h.remove(key, sub) },
	}
}

// Publish delivers event to every live subscriber of recipient and returns
// how many received it.
func (h *Hub) Publish(recipient string, event Event) int {
	key := normalizeRecipient(recipient)

	h.mu.RLock()
	subs := h.snapshot(key)
	h.mu.RUnlock()

	delivered := 0
	for _, sub := range subs {
		if sub.deliver(event) {
			delivered++
			continue
		}
		h.logger.Warn("notify: subscriber buffer full, event dropped",
			slog.String("recipient", key),
			slog.String("event", event.Name))
	}
	return delivered
}

// Subscribers reports the live subscriber count for recipient.
func (h *Hub) Subscribers(recipient string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[normalizeRecipient(recipient)])
}

// Close ends every subscription. Later Subscribe calls get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for key, subs := range h.subscribers {
		for sub := range subs {
			sub.close()
		}
		delete(h.subscribers, key)
	}
}

func (h *Hub) snapshot(key string) []*subscriber {
	live := h.subscribers[key]
	if len(live) == 0 {
		return nil
	}
	items := make([]*subscriber, 0, len(live))
	for sub := range live {
		items = append(items, sub)
	}
	return items
}

func (h *Hub) remove(key string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs := h.subscribers[key]; subs != nil {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.subscribers, key)
		}
	}
	sub.close()
}

func normalizeRecipient(id string) string {
	return strings.TrimSpace(id)
}

type subscriber struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

func newSubscriber(capacity int) *subscriber {
	return &subscriber{ch: make(chan Event, capacity)}
}

// deliver never blocks. It reports false when the buffer is full or the
// subscriber has left.
func (s *subscriber) deliver(event Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- event:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

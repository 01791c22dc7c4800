package gateway

import (
	"log"
	"sync"

	"github.com/meshwave/meshgate-go/pkg/eventregistry"
)

// streamBufferSize is the per-stream delivery channel depth. A stream
// that falls further behind than this starts dropping messages rather
// than blocking the publisher.
const streamBufferSize = 100

// stream is one live SSE connection's delivery endpoint.
type stream struct {
	subscriberID string
	clientID     string
	messages     chan eventregistry.Message
}

// Messages returns the channel the SSE loop reads from.
func (s *stream) Messages() <-chan eventregistry.Message {
	return s.messages
}

// Hub owns the registry's single injected delivery callback and routes
// each message to the per-connection buffered channel for that
// subscriber. Delivery is non-blocking: a full channel means the message
// is dropped for that subscriber only, so a slow consumer can never stall
// the publisher or other subscribers.
type Hub struct {
	mu      sync.RWMutex
	streams map[string]*stream
}

// NewHub creates an empty delivery hub.
func NewHub() *Hub {
	return &Hub{streams: make(map[string]*stream)}
}

// Deliver is the eventregistry.DeliveryFunc registered at startup.
func (h *Hub) Deliver(subscriberID string, msg eventregistry.Message) {
	h.mu.RLock()
	s, ok := h.streams[subscriberID]
	h.mu.RUnlock()

	if !ok {
		// Subscriber already detached; at most one stale delivery lands here.
		return
	}

	select {
	case s.messages <- msg:
	default:
		log.Printf("dropping %s message for slow subscriber %s", msg.Kind, subscriberID)
	}
}

// Register creates a delivery endpoint for a new stream connection.
func (h *Hub) Register(subscriberID, clientID string) *stream {
	s := &stream{
		subscriberID: subscriberID,
		clientID:     clientID,
		messages:     make(chan eventregistry.Message, streamBufferSize),
	}

	h.mu.Lock()
	h.streams[subscriberID] = s
	h.mu.Unlock()
	return s
}

// Unregister detaches a stream. Safe to call for unknown ids.
func (h *Hub) Unregister(subscriberID string) {
	h.mu.Lock()
	delete(h.streams, subscriberID)
	h.mu.Unlock()
}

// StreamCount returns the number of attached streams.
func (h *Hub) StreamCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.streams)
}

// Verify that Hub.Deliver satisfies the delivery callback contract at compile time
var _ eventregistry.DeliveryFunc = (*Hub)(nil).Deliver

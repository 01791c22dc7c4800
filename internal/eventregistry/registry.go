package eventregistry

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meshwave/meshgate-go/pkg/eventregistry"
)

// ErrClosed is returned when publishing or subscribing on a closed registry.
var ErrClosed = errors.New("event registry is closed")

// subscription is one registered filter bound to a subscriber and topic.
type subscription struct {
	id           string
	subscriberID string
	topic        string // "" subscribes to all topics
	filter       eventregistry.Filter
	createdAt    time.Time
}

// matches reports whether the subscription should receive the event.
func (s *subscription) matches(e *eventregistry.Event) bool {
	if s.topic != "" && s.topic != e.Topic {
		return false
	}
	return s.filter.Matches(e)
}

// InMemoryRegistry implements the eventregistry.Registry interface with
// per-topic ring buffers and an incrementally maintained mesh snapshot.
//
// Two mutexes split the work: mu guards the subscription table, buffers,
// and aggregate state; pubMu serializes publishers end to end (including
// delivery callbacks) so any one subscriber observes events in exact
// publish order. Subscribe and Unsubscribe only need mu, so they remain
// responsive while a publish is delivering. An unsubscribe racing a
// delivery iteration may see at most one stale delivery.
type InMemoryRegistry struct {
	mu     sync.RWMutex
	pubMu  sync.Mutex
	config *Config

	subscriptions map[string]*subscription
	buffers       map[string]*ring

	// Incrementally maintained snapshot state.
	totalEvents int64
	topicCounts map[string]int64
	typeCounts  map[string]int64
	nodesOnline map[string]bool
	deltaSum    float64
	deltaCount  int64
	lastEventAt time.Time

	closed bool
}

// NewInMemoryRegistry creates a registry with the given configuration.
// A nil config uses defaults.
func NewInMemoryRegistry(config *Config) (*InMemoryRegistry, error) {
	if config == nil {
		config = &Config{}
	}

	// Make a copy and set defaults
	configCopy := *config
	configCopy.SetDefaults()

	if err := configCopy.Validate(); err != nil {
		return nil, err
	}

	return &InMemoryRegistry{
		config:        &configCopy,
		subscriptions: make(map[string]*subscription),
		buffers:       make(map[string]*ring),
		topicCounts:   make(map[string]int64),
		typeCounts:    make(map[string]int64),
		nodesOnline:   make(map[string]bool),
	}, nil
}

// Subscribe registers a copied filter under a generated id. If the topic
// already has state, snapshot delivery is scheduled to run after this
// call returns so the caller's subscribe-then-attach sequence cannot
// race the push.
func (r *InMemoryRegistry) Subscribe(subscriberID, topic string, filter eventregistry.Filter) (string, error) {
	r.mu.Lock()

	if r.closed {
		r.mu.Unlock()
		return "", ErrClosed
	}

	sub := &subscription{
		id:           uuid.NewString(),
		subscriberID: subscriberID,
		topic:        topic,
		filter:       filter.Copy(),
		createdAt:    r.config.Now(),
	}
	r.subscriptions[sub.id] = sub

	hasState := r.topicHasStateLocked(topic)
	r.mu.Unlock()

	if hasState && r.config.Deliver != nil {
		// Deferred, never inline: the snapshot lands on a later turn.
		go r.pushSnapshot(sub)
	}

	return sub.id, nil
}

// Unsubscribe removes the registration and reports whether it existed.
func (r *InMemoryRegistry) Unsubscribe(subscriptionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.subscriptions[subscriptionID]
	if ok {
		delete(r.subscriptions, subscriptionID)
	}
	return ok
}

// Publish validates, buffers, aggregates, and fans out one event.
// Malformed events are rejected before any state is touched.
func (r *InMemoryRegistry) Publish(event eventregistry.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	// Serialize publishers across buffering AND delivery so per-topic
	// publish order is exactly the delivery order every subscriber sees.
	r.pubMu.Lock()
	defer r.pubMu.Unlock()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	buf, ok := r.buffers[event.Topic]
	if !ok {
		buf = newRing(r.config.BufferCapacity)
		r.buffers[event.Topic] = buf
	}
	buf.append(event)

	// The aggregate is folded in even with zero subscribers: a later
	// subscriber's snapshot depends on it.
	r.applyToSnapshotLocked(&event)

	// Copy the matching set so unsubscribes can proceed while we deliver.
	var matched []*subscription
	for _, sub := range r.subscriptions {
		if sub.matches(&event) {
			matched = append(matched, sub)
		}
	}
	deliver := r.config.Deliver
	r.mu.Unlock()

	if deliver == nil {
		return nil
	}

	for _, sub := range matched {
		deliver(sub.subscriberID, eventregistry.Message{
			Kind:           eventregistry.MessageEvent,
			SubscriptionID: sub.id,
			Topic:          event.Topic,
			Event:          &event,
		})
	}

	return nil
}

// RecentEvents returns up to count most recent buffered events for the
// topic, newest first. The result is a point-in-time copy.
func (r *InMemoryRegistry) RecentEvents(topic string, count int, filter *eventregistry.Filter) []eventregistry.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	buf, ok := r.buffers[topic]
	if !ok {
		return nil
	}

	var match func(*eventregistry.Event) bool
	if filter != nil {
		match = filter.Matches
	}
	return buf.newestFirst(count, match)
}

// Snapshot returns the current aggregate mesh view.
func (r *InMemoryRegistry) Snapshot() eventregistry.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.snapshotLocked()
}

// SubscriptionCount returns the number of active subscriptions.
func (r *InMemoryRegistry) SubscriptionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.subscriptions)
}

// Topics returns the names of all topics with buffered events.
func (r *InMemoryRegistry) Topics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	topics := make([]string, 0, len(r.buffers))
	for topic := range r.buffers {
		topics = append(topics, topic)
	}
	return topics
}

// Close clears all subscriptions and buffers. Idempotent.
func (r *InMemoryRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil // Already closed, idempotent
	}

	r.subscriptions = make(map[string]*subscription)
	r.buffers = make(map[string]*ring)
	r.closed = true
	return nil
}

// pushSnapshot delivers the late-joiner snapshot, skipping subscriptions
// already cancelled before this turn ran.
func (r *InMemoryRegistry) pushSnapshot(sub *subscription) {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return
	}
	if _, ok := r.subscriptions[sub.id]; !ok {
		r.mu.RUnlock()
		return
	}
	snap := r.snapshotLocked()
	r.mu.RUnlock()

	r.config.Deliver(sub.subscriberID, eventregistry.Message{
		Kind:           eventregistry.MessageSnapshot,
		SubscriptionID: sub.id,
		Topic:          sub.topic,
		Snapshot:       &snap,
	})
}

// topicHasStateLocked reports whether a new subscription on the topic
// should receive a starting snapshot. Caller must hold mu.
func (r *InMemoryRegistry) topicHasStateLocked(topic string) bool {
	if topic == "" {
		return r.totalEvents > 0
	}
	return r.topicCounts[topic] > 0
}

// applyToSnapshotLocked folds one accepted event into the aggregate
// state. Caller must hold mu.
func (r *InMemoryRegistry) applyToSnapshotLocked(e *eventregistry.Event) {
	r.totalEvents++
	r.topicCounts[e.Topic]++
	r.typeCounts[e.Type]++
	if e.Timestamp.After(r.lastEventAt) {
		r.lastEventAt = e.Timestamp
	}

	if delta, ok := e.MagnitudeChange(); ok {
		r.deltaSum += delta
		r.deltaCount++
	}

	if p, ok := e.Payload.(eventregistry.NodeStatusPayload); ok && p.NodeID != "" {
		r.nodesOnline[p.NodeID] = p.Online
	}
}

// snapshotLocked builds a Snapshot from the aggregate state. Caller must
// hold mu. O(number of topics), independent of buffer contents.
func (r *InMemoryRegistry) snapshotLocked() eventregistry.Snapshot {
	snap := eventregistry.Snapshot{
		TotalEvents: r.totalEvents,
		TopicCounts: make(map[string]int64, len(r.topicCounts)),
		TypeCounts:  make(map[string]int64, len(r.typeCounts)),
		KnownNodes:  len(r.nodesOnline),
		LastEventAt: r.lastEventAt,
		CapturedAt:  r.config.Now(),
	}
	for topic, n := range r.topicCounts {
		snap.TopicCounts[topic] = n
	}
	for typ, n := range r.typeCounts {
		snap.TypeCounts[typ] = n
	}
	for _, online := range r.nodesOnline {
		if online {
			snap.OnlineNodes++
		}
	}
	if r.deltaCount > 0 {
		snap.AvgMagnitudeChange = r.deltaSum / float64(r.deltaCount)
	}
	return snap
}

// Verify that InMemoryRegistry implements the Registry interface at compile time
var _ eventregistry.Registry = (*InMemoryRegistry)(nil)

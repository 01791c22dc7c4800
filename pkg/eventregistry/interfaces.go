package eventregistry

import "io"

// MessageKind discriminates the envelopes handed to the delivery
// callback.
type MessageKind string

const (
	// MessageEvent carries one matched live event.
	MessageEvent MessageKind = "event"

	// MessageSnapshot carries the aggregate mesh view pushed to a newly
	// joined subscriber.
	MessageSnapshot MessageKind = "snapshot"
)

// Message is the envelope the registry hands to the delivery callback.
// Exactly one of Event or Snapshot is set, per Kind.
type Message struct {
	Kind           MessageKind `json:"kind"`
	SubscriptionID string      `json:"subscriptionId"`
	Topic          string      `json:"topic,omitempty"`
	Event          *Event      `json:"event,omitempty"`
	Snapshot       *Snapshot   `json:"snapshot,omitempty"`
}

// DeliveryFunc pushes a message outward to one subscriber. It is
// registered once at registry construction and invoked per matching
// event per subscriber. Implementations must not block: the registry
// does not await delivery I/O, so a slow subscriber must be absorbed by
// the callback (e.g. a buffered channel), never by the publisher.
type DeliveryFunc func(subscriberID string, msg Message)

// Registry manages named topics, per-subscriber filters, bounded replay
// buffers, and ordered delivery of published events.
//
// Ordering: for any one subscriber, events on the same topic are
// delivered in the exact order Publish was called. There is no
// cross-topic ordering guarantee.
//
// Cancellation: Unsubscribe takes effect for all publishes initiated
// after it returns; a publish already iterating its subscriber set may
// still deliver once to a subscriber unsubscribed mid-iteration
// (at-most-one-stale-delivery).
type Registry interface {
	io.Closer

	// Subscribe registers a filter under a generated id and returns the
	// id synchronously. If the topic already has state, a snapshot
	// message is scheduled for delivery after Subscribe returns, never
	// inline. An empty topic subscribes to all topics.
	Subscribe(subscriberID, topic string, filter Filter) (string, error)

	// Unsubscribe removes the registration and reports whether it
	// existed. Unknown ids are a normal no-op returning false.
	Unsubscribe(subscriptionID string) bool

	// Publish validates the event, appends it to the topic's replay
	// buffer, folds it into the aggregate snapshot state, and delivers
	// it to every matching subscription. Malformed events are rejected
	// with an error and leave no trace.
	Publish(event Event) error

	// RecentEvents returns up to count most recent buffered events for a
	// topic, newest first, optionally filtered with the same semantics
	// as live delivery. The result is a point-in-time copy, not a live
	// stream.
	RecentEvents(topic string, count int, filter *Filter) []Event

	// Snapshot returns the current aggregate mesh view.
	Snapshot() Snapshot

	// SubscriptionCount returns the number of active subscriptions.
	SubscriptionCount() int

	// Topics returns the names of all topics with buffered events.
	Topics() []string
}

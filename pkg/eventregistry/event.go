package eventregistry

import (
	"errors"
	"time"
)

// Well-known event types published by the mesh.
const (
	TypeNodeOnline     = "node:online"
	TypeNodeOffline    = "node:offline"
	TypeNodeStatus     = "node:status"
	TypeRouteUpdate    = "route:update"
	TypeGovernanceVote = "governance:vote"
	TypeStorageReplica = "storage:replica"
)

var (
	// ErrMissingType is returned when an event has no type.
	ErrMissingType = errors.New("event type cannot be empty")
	// ErrMissingSource is returned when an event has no originator id.
	ErrMissingSource = errors.New("event source cannot be empty")
	// ErrMissingTimestamp is returned when an event has a zero timestamp.
	ErrMissingTimestamp = errors.New("event timestamp cannot be zero")
	// ErrMissingTopic is returned when an event names no topic.
	ErrMissingTopic = errors.New("event topic cannot be empty")
)

// Event represents a single mesh state-change record. Events are
// immutable once published; the registry stores its own copy.
type Event struct {
	// ID uniquely identifies the event. Assigned by the registry on
	// publish if empty.
	ID string `json:"id"`

	// Topic is the named channel this event is published to.
	Topic string `json:"topic"`

	// Type is the event category (e.g. "node:online").
	Type string `json:"type"`

	// Source is the originator id (node, client, or service).
	Source string `json:"source"`

	// Timestamp is when the state change occurred.
	Timestamp time.Time `json:"timestamp"`

	// Payload carries the typed event body. May be nil for bare
	// notifications.
	Payload Payload `json:"payload,omitempty"`
}

// Validate reports whether the event carries the required fields.
func (e *Event) Validate() error {
	if e.Type == "" {
		return ErrMissingType
	}
	if e.Source == "" {
		return ErrMissingSource
	}
	if e.Timestamp.IsZero() {
		return ErrMissingTimestamp
	}
	if e.Topic == "" {
		return ErrMissingTopic
	}
	return nil
}

// MagnitudeChange returns the absolute numeric delta the event carries,
// and whether it carries one at all. A payload whose delta field was
// never set carries no delta, as opposed to carrying a delta of zero.
func (e *Event) MagnitudeChange() (float64, bool) {
	dc, ok := e.Payload.(DeltaCarrier)
	if !ok {
		return 0, false
	}
	d, ok := dc.Delta()
	if !ok {
		return 0, false
	}
	if d < 0 {
		d = -d
	}
	return d, true
}

// Payload is implemented by typed event bodies. Kind is the payload's
// own discriminator, independent of the event type string.
type Payload interface {
	Kind() string
}

// DeltaCarrier is implemented by payloads that may carry a numeric
// change magnitude, used by the MinMagnitudeChange filter predicate.
// The bool reports whether a delta is present; an unset delta field is
// not the same as a delta of zero.
type DeltaCarrier interface {
	Delta() (float64, bool)
}

// DeltaOf returns a pointer to v, for populating optional delta fields.
func DeltaOf(v float64) *float64 { return &v }

// NodeStatusPayload describes a node joining, leaving, or updating its
// radio status.
type NodeStatusPayload struct {
	NodeID         string   `json:"nodeId"`
	Online         bool     `json:"online"`
	SignalStrength float64  `json:"signalStrength,omitempty"`
	SignalDelta    *float64 `json:"signalDelta,omitempty"`
}

func (p NodeStatusPayload) Kind() string { return "node-status" }

func (p NodeStatusPayload) Delta() (float64, bool) {
	if p.SignalDelta == nil {
		return 0, false
	}
	return *p.SignalDelta, true
}

// RouteUpdatePayload describes a change to a mesh route.
type RouteUpdatePayload struct {
	FromNode     string   `json:"fromNode"`
	ToNode       string   `json:"toNode"`
	HopCount     int      `json:"hopCount"`
	LatencyMs    float64  `json:"latencyMs"`
	LatencyDelta *float64 `json:"latencyDelta,omitempty"`
}

func (p RouteUpdatePayload) Kind() string { return "route-update" }

func (p RouteUpdatePayload) Delta() (float64, bool) {
	if p.LatencyDelta == nil {
		return 0, false
	}
	return *p.LatencyDelta, true
}

// GovernancePayload describes a governance vote being cast.
type GovernancePayload struct {
	ProposalID string `json:"proposalId"`
	Voter      string `json:"voter"`
	Approve    bool   `json:"approve"`
}

func (p GovernancePayload) Kind() string { return "governance" }

// StoragePayload describes a distributed-storage shard change.
type StoragePayload struct {
	ShardID      string   `json:"shardId"`
	ReplicaCount int      `json:"replicaCount"`
	UsedBytes    int64    `json:"usedBytes"`
	UsedDelta    *float64 `json:"usedDelta,omitempty"`
}

func (p StoragePayload) Kind() string { return "storage" }

func (p StoragePayload) Delta() (float64, bool) {
	if p.UsedDelta == nil {
		return 0, false
	}
	return *p.UsedDelta, true
}

// GenericPayload carries free-form fields for event categories the core
// does not model.
type GenericPayload map[string]interface{}

func (p GenericPayload) Kind() string { return "generic" }

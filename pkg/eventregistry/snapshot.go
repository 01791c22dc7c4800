package eventregistry

import "time"

// Snapshot is the point-in-time aggregate mesh view derived from every
// accepted publish. It is maintained incrementally, so producing one is
// O(1) relative to the replay buffers, and it is what late-joining
// subscribers receive as their consistent starting state.
type Snapshot struct {
	// TotalEvents is the number of accepted publishes since startup,
	// including events since evicted from the replay buffers.
	TotalEvents int64 `json:"totalEvents"`

	// TopicCounts is the number of accepted publishes per topic.
	TopicCounts map[string]int64 `json:"topicCounts"`

	// TypeCounts is the number of accepted publishes per event type.
	TypeCounts map[string]int64 `json:"typeCounts"`

	// KnownNodes is the number of distinct nodes seen in node status
	// events.
	KnownNodes int `json:"knownNodes"`

	// OnlineNodes is the number of those nodes currently online.
	OnlineNodes int `json:"onlineNodes"`

	// AvgMagnitudeChange is the running average of abs(delta) across all
	// delta-carrying events.
	AvgMagnitudeChange float64 `json:"avgMagnitudeChange"`

	// LastEventAt is the timestamp of the most recently accepted event.
	LastEventAt time.Time `json:"lastEventAt"`

	// CapturedAt is when this snapshot was produced.
	CapturedAt time.Time `json:"capturedAt"`
}

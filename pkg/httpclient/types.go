package httpclient

import (
	"encoding/json"
	"time"
)

// Config holds client configuration
type Config struct {
	// ServerURL is the base URL of the MeshGate HTTP API (e.g., "http://localhost:8080")
	ServerURL string

	// ClientID is the identifier for this client
	ClientID string

	// Tier is the admission tier to request at login (optional - the
	// server defaults to "authenticated")
	Tier string

	// Timeout for HTTP requests
	Timeout time.Duration

	// MaxRetries for failed requests
	MaxRetries int
}

// SetDefaults sets reasonable default values for the config
func (c *Config) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

// AuthResponse represents the response from authentication
type AuthResponse struct {
	Token     string    `json:"token"`
	ClientID  string    `json:"clientId"`
	Tier      string    `json:"tier"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// PublishRequest represents an event publishing request
type PublishRequest struct {
	Topic   string      `json:"topic"`
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// PublishResponse represents an event publishing response
type PublishResponse struct {
	EventID   string    `json:"eventId"`
	Topic     string    `json:"topic"`
	Timestamp time.Time `json:"timestamp"`
}

// Event is the wire form of a buffered event returned by the replay
// endpoint. Payload stays raw JSON; callers decode it per Type.
type Event struct {
	ID        string          `json:"id"`
	Topic     string          `json:"topic"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// RecentEventsResponse represents a bounded replay of buffered events,
// newest first.
type RecentEventsResponse struct {
	Topic  string  `json:"topic"`
	Count  int     `json:"count"`
	Events []Event `json:"events"`
}

// EventFilter narrows a replay or stream to matching events. Zero-value
// fields match everything.
type EventFilter struct {
	// Types limits matches to these event types.
	Types []string

	// Sources limits matches to events from these source nodes.
	Sources []string

	// MinMagnitudeChange requires a payload delta of at least this
	// absolute magnitude.
	MinMagnitudeChange *float64
}

// Snapshot represents the server's aggregate mesh view
type Snapshot struct {
	TotalEvents        int64            `json:"totalEvents"`
	TopicCounts        map[string]int64 `json:"topicCounts"`
	TypeCounts         map[string]int64 `json:"typeCounts"`
	KnownNodes         int              `json:"knownNodes"`
	OnlineNodes        int              `json:"onlineNodes"`
	AvgMagnitudeChange float64          `json:"avgMagnitudeChange"`
	LastEventAt        time.Time        `json:"lastEventAt"`
	CapturedAt         time.Time        `json:"capturedAt"`
}

// LimitStatusResponse reports the client's admission budget
type LimitStatusResponse struct {
	ClientID  string    `json:"clientId"`
	Tier      string    `json:"tier"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"resetAt"`
}

// AdminStatsResponse represents system statistics
type AdminStatsResponse struct {
	Snapshot      Snapshot `json:"snapshot"`
	Subscriptions int      `json:"subscriptions"`
	ActiveStreams int      `json:"activeStreams"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Healthy       bool   `json:"healthy"`
	Subscriptions int    `json:"subscriptions"`
	Topics        int    `json:"topics"`
	TotalEvents   int64  `json:"totalEvents"`
	Message       string `json:"message,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// StreamMessage represents a server-sent stream frame: either a live
// event (kind "event") or a late-joiner snapshot (kind "snapshot").
type StreamMessage struct {
	Kind      string          `json:"kind"`
	EventID   string          `json:"eventId,omitempty"`
	Topic     string          `json:"topic,omitempty"`
	Type      string          `json:"type,omitempty"`
	Source    string          `json:"source,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Snapshot  *Snapshot       `json:"snapshot,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

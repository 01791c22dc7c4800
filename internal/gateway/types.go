package gateway

import (
	"encoding/json"
	"time"

	"github.com/meshwave/meshgate-go/pkg/eventregistry"
)

// Request/Response types for the HTTP API

// AuthRequest represents a login request
type AuthRequest struct {
	ClientID string `json:"clientId"`
	// Tier is the requested admission tier; empty means authenticated.
	Tier string `json:"tier,omitempty"`
}

// AuthResponse represents a login response
type AuthResponse struct {
	Token     string    `json:"token"`
	ClientID  string    `json:"clientId"`
	Tier      string    `json:"tier"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// PublishRequest represents an event publishing request
type PublishRequest struct {
	Topic   string          `json:"topic"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// PublishResponse represents an event publishing response
type PublishResponse struct {
	EventID   string    `json:"eventId"`
	Topic     string    `json:"topic"`
	Timestamp time.Time `json:"timestamp"`
}

// RecentEventsResponse represents a bounded replay of buffered events,
// newest first.
type RecentEventsResponse struct {
	Topic  string                `json:"topic"`
	Count  int                   `json:"count"`
	Events []eventregistry.Event `json:"events"`
}

// LimitStatusResponse reports a client's admission budget without
// consuming from it.
type LimitStatusResponse struct {
	ClientID  string    `json:"clientId"`
	Tier      string    `json:"tier"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"resetAt"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Healthy       bool   `json:"healthy"`
	Subscriptions int    `json:"subscriptions"`
	Topics        int    `json:"topics"`
	TotalEvents   int64  `json:"totalEvents"`
	Message       string `json:"message,omitempty"`
}

// AdminStatsResponse represents system statistics
type AdminStatsResponse struct {
	Snapshot      eventregistry.Snapshot `json:"snapshot"`
	Subscriptions int                    `json:"subscriptions"`
	ActiveStreams int                    `json:"activeStreams"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// StreamMessage is the SSE wire form of a registry delivery.
type StreamMessage struct {
	Kind      string                  `json:"kind"`
	EventID   string                  `json:"eventId,omitempty"`
	Topic     string                  `json:"topic,omitempty"`
	Type      string                  `json:"type,omitempty"`
	Source    string                  `json:"source,omitempty"`
	Payload   interface{}             `json:"payload,omitempty"`
	Snapshot  *eventregistry.Snapshot `json:"snapshot,omitempty"`
	Timestamp time.Time               `json:"timestamp"`
}

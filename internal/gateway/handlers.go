package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meshwave/meshgate-go/pkg/admission"
	"github.com/meshwave/meshgate-go/pkg/eventregistry"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	registry eventregistry.Registry
	limiter  admission.Controller
	hub      *Hub
	jwtAuth  *JWTAuth
}

// NewHandlers creates a new handlers instance
func NewHandlers(registry eventregistry.Registry, limiter admission.Controller, hub *Hub, jwtAuth *JWTAuth) *Handlers {
	return &Handlers{
		registry: registry,
		limiter:  limiter,
		hub:      hub,
		jwtAuth:  jwtAuth,
	}
}

// Auth endpoints

// Login handles POST /api/v1/auth/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	// Validate JSON content type
	if err := h.validateJSON(r); err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Validate required fields
	if err := h.validateAuthRequest(&req); err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Simple clientId-based authentication (no password validation);
	// credential validation against a user store is the deployment's job.
	isAdmin := req.ClientID == "admin"

	tier := admission.TierAuthenticated
	if req.Tier != "" {
		tier = admission.ParseTier(req.Tier)
	}

	token, expiresAt, err := h.jwtAuth.GenerateToken(req.ClientID, tier, isAdmin)
	if err != nil {
		h.writeError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	resp := AuthResponse{
		Token:     token,
		ClientID:  req.ClientID,
		Tier:      string(tier),
		ExpiresAt: expiresAt,
	}

	h.writeJSON(w, resp, http.StatusOK)
}

// Event endpoints

// PublishEvent handles POST /api/v1/events
func (h *Handlers) PublishEvent(w http.ResponseWriter, r *http.Request) {
	// Validate JSON content type
	if err := h.validateJSON(r); err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Parse request body
	var req PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.validateTopic(req.Topic); err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Get authenticated client from context
	claims := GetClaims(r)
	if claims == nil {
		h.writeError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	payload, err := decodePayload(req.Type, req.Payload)
	if err != nil {
		h.writeError(w, fmt.Sprintf("Invalid payload: %v", err), http.StatusBadRequest)
		return
	}

	event := eventregistry.Event{
		ID:        uuid.NewString(),
		Topic:     req.Topic,
		Type:      req.Type,
		Source:    claims.ClientID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}

	if err := h.registry.Publish(event); err != nil {
		// Malformed events are the caller's fault; nothing was recorded.
		h.writeError(w, fmt.Sprintf("Event rejected: %v", err), http.StatusBadRequest)
		return
	}

	resp := PublishResponse{
		EventID:   event.ID,
		Topic:     event.Topic,
		Timestamp: event.Timestamp,
	}

	h.writeJSON(w, resp, http.StatusCreated)
}

// RecentEvents handles GET /api/v1/topics/{topic}/events
func (h *Handlers) RecentEvents(w http.ResponseWriter, r *http.Request, topic string) {
	if err := h.validateTopic(topic); err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	count := 50
	if raw := r.URL.Query().Get("count"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, "count must be a positive integer", http.StatusBadRequest)
			return
		}
		count = parsed
	}

	filter, err := filterFromQuery(r)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	events := h.registry.RecentEvents(topic, count, filter)
	if events == nil {
		events = []eventregistry.Event{}
	}

	h.writeJSON(w, RecentEventsResponse{
		Topic:  topic,
		Count:  len(events),
		Events: events,
	}, http.StatusOK)
}

// StreamEvents handles GET /api/v1/events/stream
func (h *Handlers) StreamEvents(w http.ResponseWriter, r *http.Request) {
	// Get authenticated client from context
	claims := GetClaims(r)
	if claims == nil {
		h.writeError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	topic := r.URL.Query().Get("topic")
	if topic != "" {
		if err := h.validateTopic(topic); err != nil {
			h.writeError(w, fmt.Sprintf("Invalid topic filter: %v", err), http.StatusBadRequest)
			return
		}
	}

	filter, err := filterFromQuery(r)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if filter == nil {
		filter = &eventregistry.Filter{}
	}

	// Register the delivery endpoint BEFORE subscribing so the deferred
	// snapshot push cannot race the socket attach.
	subscriberID := claims.ClientID + ":" + uuid.NewString()
	stream := h.hub.Register(subscriberID, claims.ClientID)
	defer h.hub.Unregister(subscriberID)

	subscriptionID, err := h.registry.Subscribe(subscriberID, topic, *filter)
	if err != nil {
		h.writeError(w, fmt.Sprintf("Failed to subscribe: %v", err), http.StatusInternalServerError)
		return
	}
	defer h.registry.Unsubscribe(subscriptionID)

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if topic != "" {
		fmt.Fprintf(w, ": stream established for topic %s (subscription %s)\n\n", topic, subscriptionID)
	} else {
		fmt.Fprintf(w, ": stream established for all topics (subscription %s)\n\n", subscriptionID)
	}
	flusher.Flush()

	h.streamWithKeepalive(w, r, flusher, stream)
}

// streamWithKeepalive pumps registry deliveries to the SSE client with
// periodic keepalive comments until the client disconnects.
func (h *Handlers) streamWithKeepalive(w http.ResponseWriter, r *http.Request, flusher http.Flusher, stream *stream) {
	ctx := r.Context()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Client disconnected; deferred unsubscribe/unregister run.
			return

		case <-ticker.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case msg := <-stream.Messages():
			if err := h.writeSSEMessage(w, toStreamMessage(msg)); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// Subscription endpoints

// DeleteSubscription handles DELETE /api/v1/subscriptions/{id}
func (h *Handlers) DeleteSubscription(w http.ResponseWriter, r *http.Request, subscriptionID string) {
	if subscriptionID == "" {
		h.writeError(w, "Subscription id is required", http.StatusBadRequest)
		return
	}

	if !h.registry.Unsubscribe(subscriptionID) {
		h.writeError(w, fmt.Sprintf("Subscription %s not found", subscriptionID), http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Snapshot endpoint

// GetSnapshot handles GET /api/v1/snapshot
func (h *Handlers) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.registry.Snapshot(), http.StatusOK)
}

// Rate limit endpoints

// LimitStatus handles GET /api/v1/limits
func (h *Handlers) LimitStatus(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r)
	if claims == nil {
		h.writeError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	res, ok := h.limiter.GetStatus(claims.ClientID)
	if !ok {
		// No bucket exists. The rate-limit middleware creates one for
		// every gated request, so this only happens for the unlimited
		// tier, which never tracks a bucket.
		res = admission.Result{
			Tier:      claims.AdmissionTier(),
			Remaining: admission.Unbounded,
			ResetAt:   time.Now().Add(time.Minute),
		}
	}

	h.writeJSON(w, LimitStatusResponse{
		ClientID:  claims.ClientID,
		Tier:      string(res.Tier),
		Remaining: res.Remaining,
		ResetAt:   res.ResetAt,
	}, http.StatusOK)
}

// Admin endpoints

// AdminGetStats handles GET /api/v1/admin/stats
func (h *Handlers) AdminGetStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, AdminStatsResponse{
		Snapshot:      h.registry.Snapshot(),
		Subscriptions: h.registry.SubscriptionCount(),
		ActiveStreams: h.hub.StreamCount(),
	}, http.StatusOK)
}

// AdminResetLimit handles POST /api/v1/admin/limits/{clientId}/reset
func (h *Handlers) AdminResetLimit(w http.ResponseWriter, r *http.Request, clientID string) {
	if clientID == "" {
		h.writeError(w, "Client id is required", http.StatusBadRequest)
		return
	}

	h.limiter.Reset(clientID)
	w.WriteHeader(http.StatusNoContent)
}

// Health endpoint

// Health handles GET /api/v1/health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	snap := h.registry.Snapshot()

	h.writeJSON(w, HealthResponse{
		Healthy:       true,
		Subscriptions: h.registry.SubscriptionCount(),
		Topics:        len(snap.TopicCounts),
		TotalEvents:   snap.TotalEvents,
	}, http.StatusOK)
}

// Helper methods

// decodePayload resolves the typed payload variant for an event type.
func decodePayload(eventType string, raw json.RawMessage) (eventregistry.Payload, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	switch {
	case strings.HasPrefix(eventType, "node:"):
		var p eventregistry.NodeStatusPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case strings.HasPrefix(eventType, "route:"):
		var p eventregistry.RouteUpdatePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case strings.HasPrefix(eventType, "governance:"):
		var p eventregistry.GovernancePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case strings.HasPrefix(eventType, "storage:"):
		var p eventregistry.StoragePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		var p eventregistry.GenericPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	}
}

// filterFromQuery builds a Filter from types, sources, and minDelta query
// parameters. Returns nil when no filter parameters are present.
func filterFromQuery(r *http.Request) (*eventregistry.Filter, error) {
	q := r.URL.Query()

	filter := &eventregistry.Filter{}
	set := false

	if raw := q.Get("types"); raw != "" {
		filter.EventTypes = strings.Split(raw, ",")
		set = true
	}
	if raw := q.Get("sources"); raw != "" {
		filter.SourceIDs = strings.Split(raw, ",")
		set = true
	}
	if raw := q.Get("minDelta"); raw != "" {
		threshold, err := strconv.ParseFloat(raw, 64)
		if err != nil || threshold < 0 {
			return nil, fmt.Errorf("minDelta must be a non-negative number")
		}
		filter.MinMagnitudeChange = &threshold
		set = true
	}

	if !set {
		return nil, nil
	}
	return filter, nil
}

// toStreamMessage converts a registry delivery to its SSE wire form.
func toStreamMessage(msg eventregistry.Message) StreamMessage {
	out := StreamMessage{
		Kind:      string(msg.Kind),
		Topic:     msg.Topic,
		Timestamp: time.Now().UTC(),
	}
	if msg.Event != nil {
		out.EventID = msg.Event.ID
		out.Type = msg.Event.Type
		out.Source = msg.Event.Source
		out.Payload = msg.Event.Payload
		out.Timestamp = msg.Event.Timestamp
	}
	if msg.Snapshot != nil {
		out.Snapshot = msg.Snapshot
	}
	return out
}

// writeSSEMessage writes a StreamMessage as a properly formatted SSE data message
func (h *Handlers) writeSSEMessage(w http.ResponseWriter, message StreamMessage) error {
	jsonData, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal SSE message: %w", err)
	}

	// Write in SSE format: "data: {json}\n\n"
	_, err = fmt.Fprintf(w, "data: %s\n\n", jsonData)
	return err
}

// writeError writes an error response as JSON
func (h *Handlers) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	if err := json.NewEncoder(w).Encode(errorResp); err != nil {
		// Fallback error handling
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// writeJSON writes a JSON response
func (h *Handlers) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Fallback error handling
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// validateJSON validates that the request has valid JSON content-type
func (h *Handlers) validateJSON(r *http.Request) error {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return fmt.Errorf("Content-Type must be application/json")
	}
	return nil
}

// validateAuthRequest validates authentication request fields
func (h *Handlers) validateAuthRequest(req *AuthRequest) error {
	if req.ClientID == "" {
		return fmt.Errorf("clientId is required")
	}
	if len(req.ClientID) < 2 {
		return fmt.Errorf("clientId must be at least 2 characters")
	}
	return nil
}

// validateTopic validates topic name format
func (h *Handlers) validateTopic(topic string) error {
	if topic == "" {
		return fmt.Errorf("topic is required")
	}
	if len(topic) < 2 {
		return fmt.Errorf("topic must be at least 2 characters")
	}
	// Basic topic format validation (letters, numbers, dots, hyphens,
	// underscores, and / as the segment separator)
	for _, char := range topic {
		if !((char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') || char == '.' || char == '-' || char == '_' || char == '/') {
			return fmt.Errorf("topic contains invalid characters (allowed: letters, numbers, ., -, _, /)")
		}
	}
	return nil
}

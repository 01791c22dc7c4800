package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Client provides HTTP client for the MeshGate API
type Client struct {
	config     Config
	httpClient *http.Client
	token      string
	baseURL    *url.URL
}

// NewClient creates a new MeshGate HTTP client
func NewClient(config Config) (*Client, error) {
	config.SetDefaults()

	// Validate required config
	if config.ServerURL == "" {
		return nil, fmt.Errorf("ServerURL is required")
	}
	if config.ClientID == "" {
		return nil, fmt.Errorf("ClientID is required")
	}

	// Parse base URL
	baseURL, err := url.Parse(config.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ServerURL: %w", err)
	}

	// Create HTTP client with timeout
	httpClient := &http.Client{
		Timeout: config.Timeout,
	}

	client := &Client{
		config:     config,
		httpClient: httpClient,
		baseURL:    baseURL,
	}

	return client, nil
}

// Authenticate authenticates with the MeshGate server and stores the token
func (c *Client) Authenticate(ctx context.Context) error {
	authReq := map[string]string{
		"clientId": c.config.ClientID,
	}
	if c.config.Tier != "" {
		authReq["tier"] = c.config.Tier
	}

	var authResp AuthResponse
	err := c.doRequest(ctx, "POST", "/api/v1/auth/login", authReq, &authResp, false)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	c.token = authResp.Token
	return nil
}

// PublishEvent publishes a typed event to a topic
func (c *Client) PublishEvent(ctx context.Context, topic, eventType string, payload interface{}) (*PublishResponse, error) {
	if c.token == "" {
		return nil, fmt.Errorf("client not authenticated - call Authenticate() first")
	}

	req := PublishRequest{
		Topic:   topic,
		Type:    eventType,
		Payload: payload,
	}

	var resp PublishResponse
	err := c.doRequest(ctx, "POST", "/api/v1/events", req, &resp, true)
	if err != nil {
		return nil, fmt.Errorf("failed to publish event: %w", err)
	}

	return &resp, nil
}

// RecentEvents returns up to count buffered events for a topic, newest
// first, optionally narrowed by a filter
func (c *Client) RecentEvents(ctx context.Context, topic string, count int, filter *EventFilter) (*RecentEventsResponse, error) {
	if c.token == "" {
		return nil, fmt.Errorf("client not authenticated - call Authenticate() first")
	}

	path := fmt.Sprintf("/api/v1/topics/%s/events", escapeTopicPath(topic))
	queryParams := url.Values{}
	if count > 0 {
		queryParams.Set("count", strconv.Itoa(count))
	}
	applyFilterParams(queryParams, filter)

	var resp RecentEventsResponse
	err := c.doRequestWithQuery(ctx, "GET", path, queryParams, nil, &resp, true)
	if err != nil {
		return nil, fmt.Errorf("failed to read recent events: %w", err)
	}

	return &resp, nil
}

// DeleteSubscription removes a subscription by ID
func (c *Client) DeleteSubscription(ctx context.Context, subscriptionID string) error {
	if c.token == "" {
		return fmt.Errorf("client not authenticated - call Authenticate() first")
	}

	path := fmt.Sprintf("/api/v1/subscriptions/%s", subscriptionID)
	err := c.doRequest(ctx, "DELETE", path, nil, nil, true)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}

	return nil
}

// GetSnapshot returns the server's aggregate mesh view
func (c *Client) GetSnapshot(ctx context.Context) (*Snapshot, error) {
	if c.token == "" {
		return nil, fmt.Errorf("client not authenticated - call Authenticate() first")
	}

	var resp Snapshot
	err := c.doRequest(ctx, "GET", "/api/v1/snapshot", nil, &resp, true)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	return &resp, nil
}

// GetLimitStatus returns this client's admission budget without
// consuming from it
func (c *Client) GetLimitStatus(ctx context.Context) (*LimitStatusResponse, error) {
	if c.token == "" {
		return nil, fmt.Errorf("client not authenticated - call Authenticate() first")
	}

	var resp LimitStatusResponse
	err := c.doRequest(ctx, "GET", "/api/v1/limits", nil, &resp, true)
	if err != nil {
		return nil, fmt.Errorf("failed to get limit status: %w", err)
	}

	return &resp, nil
}

// GetHealth returns the health status of the MeshGate server
func (c *Client) GetHealth(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	err := c.doRequest(ctx, "GET", "/api/v1/health", nil, &resp, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get health status: %w", err)
	}

	return &resp, nil
}

// Admin Methods (require admin token)

// AdminGetStats returns system statistics (admin only)
func (c *Client) AdminGetStats(ctx context.Context) (*AdminStatsResponse, error) {
	if c.token == "" {
		return nil, fmt.Errorf("client not authenticated - call Authenticate() first")
	}

	var resp AdminStatsResponse
	err := c.doRequest(ctx, "GET", "/api/v1/admin/stats", nil, &resp, true)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	return &resp, nil
}

// AdminResetLimit clears a client's admission state (admin only)
func (c *Client) AdminResetLimit(ctx context.Context, clientID string) error {
	if c.token == "" {
		return fmt.Errorf("client not authenticated - call Authenticate() first")
	}

	path := fmt.Sprintf("/api/v1/admin/limits/%s/reset", url.PathEscape(clientID))
	err := c.doRequest(ctx, "POST", path, nil, nil, true)
	if err != nil {
		return fmt.Errorf("failed to reset limit: %w", err)
	}

	return nil
}

// escapeTopicPath escapes a topic for use in a URL path. Topics may
// contain slashes (e.g. "mesh/nodes"), which are path separators on the
// server side and must stay unescaped, so each segment is escaped
// individually.
func escapeTopicPath(topic string) string {
	segments := strings.Split(topic, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

// applyFilterParams encodes an EventFilter into query parameters
func applyFilterParams(queryParams url.Values, filter *EventFilter) {
	if filter == nil {
		return
	}
	if len(filter.Types) > 0 {
		queryParams.Set("types", strings.Join(filter.Types, ","))
	}
	if len(filter.Sources) > 0 {
		queryParams.Set("sources", strings.Join(filter.Sources, ","))
	}
	if filter.MinMagnitudeChange != nil {
		queryParams.Set("minDelta", strconv.FormatFloat(*filter.MinMagnitudeChange, 'f', -1, 64))
	}
}

// doRequestWithQuery performs an HTTP request with query parameters and optional authentication
func (c *Client) doRequestWithQuery(ctx context.Context, method, path string, queryParams url.Values, reqBody interface{}, respBody interface{}, requireAuth bool) error {
	// Build full URL with query parameters
	u := &url.URL{Path: path}
	if len(queryParams) > 0 {
		u.RawQuery = queryParams.Encode()
	}
	fullURL := c.baseURL.ResolveReference(u)

	// Prepare request body
	var bodyReader io.Reader
	if reqBody != nil {
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	// Create request
	req, err := http.NewRequestWithContext(ctx, method, fullURL.String(), bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if requireAuth && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	// Execute request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// Read response body
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	// Check status code
	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil {
			return fmt.Errorf("API error (%d): %s", resp.StatusCode, string(bodyBytes))
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("rate limited (retry after %ss): %s", resp.Header.Get("Retry-After"), errResp.Message)
		}
		return fmt.Errorf("API error (%d): %s - %s", resp.StatusCode, resp.Status, errResp.Error)
	}

	// Parse successful response
	if respBody != nil {
		if err := json.Unmarshal(bodyBytes, respBody); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// doRequest performs an HTTP request with optional authentication
func (c *Client) doRequest(ctx context.Context, method, path string, reqBody interface{}, respBody interface{}, requireAuth bool) error {
	return c.doRequestWithQuery(ctx, method, path, nil, reqBody, respBody, requireAuth)
}

// IsAuthenticated returns whether the client has a valid token
func (c *Client) IsAuthenticated() bool {
	return c.token != ""
}

// GetToken returns the current authentication token
func (c *Client) GetToken() string {
	return c.token
}

// SetToken sets the authentication token (useful for testing or token reuse)
func (c *Client) SetToken(token string) {
	c.token = token
}

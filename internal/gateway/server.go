package gateway

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/meshwave/meshgate-go/pkg/admission"
	"github.com/meshwave/meshgate-go/pkg/eventregistry"
)

// Server represents the HTTP API server
type Server struct {
	registry   eventregistry.Registry
	limiter    admission.Controller
	hub        *Hub
	jwtAuth    *JWTAuth
	handlers   *Handlers
	middleware *Middleware
	server     *http.Server
}

// Config holds server configuration
type Config struct {
	Port      string
	SecretKey string
}

// NewServer creates a new HTTP API server
func NewServer(registry eventregistry.Registry, limiter admission.Controller, hub *Hub, config Config) *Server {
	// Use default secret key if not provided (for development)
	secretKey := config.SecretKey
	if secretKey == "" {
		secretKey = "meshgate-dev-secret-key-change-in-production"
	}

	jwtAuth := NewJWTAuth(secretKey)
	handlers := NewHandlers(registry, limiter, hub, jwtAuth)
	middleware := NewMiddleware(jwtAuth, limiter)

	server := &Server{
		registry:   registry,
		limiter:    limiter,
		hub:        hub,
		jwtAuth:    jwtAuth,
		handlers:   handlers,
		middleware: middleware,
	}

	// Setup HTTP server
	mux := server.setupRoutes()
	httpServer := &http.Server{
		Addr:           ":" + config.Port,
		Handler:        mux,
		ReadTimeout:    30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	server.server = httpServer
	return server
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Apply global middleware. Rate limiting sits inside the chain so
	// every admitted request holds a concurrency slot for exactly the
	// handler's duration.
	withMiddleware := func(handler http.HandlerFunc) http.Handler {
		return s.middleware.Recovery(
			s.middleware.Logging(
				s.middleware.CORS(
					s.middleware.ContentType(
						s.middleware.RateLimit(handler)))))
	}

	// Authentication endpoints (no auth required, anonymous-tier limited)
	mux.Handle("/api/v1/auth/login", withMiddleware(s.handlers.Login))

	// Event endpoints (auth required)
	mux.Handle("/api/v1/events", withMiddleware(s.middleware.AuthRequired(s.handleEvents)))
	mux.Handle("/api/v1/events/stream", withMiddleware(s.middleware.AuthRequired(s.handlers.StreamEvents)))

	// Topic replay endpoints (auth required)
	mux.Handle("/api/v1/topics/", withMiddleware(s.middleware.AuthRequired(s.handleTopicEvents)))

	// Subscription endpoints (auth required)
	mux.Handle("/api/v1/subscriptions/", withMiddleware(s.middleware.AuthRequired(s.handleSubscriptionByID)))

	// Snapshot and rate-limit status endpoints (auth required)
	mux.Handle("/api/v1/snapshot", withMiddleware(s.middleware.AuthRequired(s.handleSnapshot)))
	mux.Handle("/api/v1/limits", withMiddleware(s.middleware.AuthRequired(s.handleLimits)))

	// Admin endpoints (admin auth required)
	mux.Handle("/api/v1/admin/stats", withMiddleware(s.middleware.AdminRequired(s.handlers.AdminGetStats)))
	mux.Handle("/api/v1/admin/limits/", withMiddleware(s.middleware.AdminRequired(s.handleAdminLimits)))

	// Health endpoint (no auth required)
	mux.Handle("/api/v1/health", withMiddleware(s.handlers.Health))

	return mux
}

// Route handlers that dispatch based on HTTP method

// handleEvents routes event-related requests based on HTTP method
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handlers.PublishEvent(w, r)
	default:
		s.methodNotAllowed(w, r)
	}
}

// handleTopicEvents routes GET /api/v1/topics/{topic}/events
func (s *Server) handleTopicEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}

	// Topics may contain slashes (e.g. "mesh/nodes"), so strip the
	// trailing segment instead of cutting at the first separator.
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/topics/")
	topic, found := strings.CutSuffix(rest, "/events")
	if !found || topic == "" {
		s.handlers.writeError(w, "Not found", http.StatusNotFound)
		return
	}

	s.handlers.RecentEvents(w, r, topic)
}

// handleSubscriptionByID routes DELETE /api/v1/subscriptions/{id}
func (s *Server) handleSubscriptionByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		s.methodNotAllowed(w, r)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/subscriptions/")
	s.handlers.DeleteSubscription(w, r, id)
}

// handleSnapshot routes GET /api/v1/snapshot
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	s.handlers.GetSnapshot(w, r)
}

// handleLimits routes GET /api/v1/limits
func (s *Server) handleLimits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	s.handlers.LimitStatus(w, r)
}

// handleAdminLimits routes POST /api/v1/admin/limits/{clientId}/reset
func (s *Server) handleAdminLimits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/admin/limits/")
	clientID, tail, found := strings.Cut(rest, "/")
	if !found || tail != "reset" {
		s.handlers.writeError(w, "Not found", http.StatusNotFound)
		return
	}

	s.handlers.AdminResetLimit(w, r, clientID)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.handlers.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
}

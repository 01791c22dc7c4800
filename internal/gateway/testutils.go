package gateway

import (
	"testing"
	"time"

	internaladmission "github.com/meshwave/meshgate-go/internal/admission"
	internalregistry "github.com/meshwave/meshgate-go/internal/eventregistry"
	"github.com/meshwave/meshgate-go/pkg/admission"
)

// Test utilities shared by the gateway test files.

const testSecretKey = "test-secret-key"

// testEnv bundles a fully wired gateway for handler tests.
type testEnv struct {
	server   *Server
	registry *internalregistry.InMemoryRegistry
	limiter  *internaladmission.TokenBucketController
	hub      *Hub
}

// newTestEnv wires a registry, controller, and hub into a server the way
// cmd/meshgate does, with an optional tier table override.
func newTestEnv(t *testing.T, tiers admission.TierTable) *testEnv {
	t.Helper()

	limiter, err := internaladmission.NewTokenBucketController(&internaladmission.Config{
		Tiers: tiers,
	})
	if err != nil {
		t.Fatalf("Failed to create admission controller: %v", err)
	}

	hub := NewHub()
	registry, err := internalregistry.NewInMemoryRegistry(&internalregistry.Config{
		Deliver: hub.Deliver,
	})
	if err != nil {
		t.Fatalf("Failed to create event registry: %v", err)
	}
	t.Cleanup(func() { registry.Close() })

	server := NewServer(registry, limiter, hub, Config{
		Port:      "0",
		SecretKey: testSecretKey,
	})

	return &testEnv{
		server:   server,
		registry: registry,
		limiter:  limiter,
		hub:      hub,
	}
}

// token generates a signed JWT for tests.
func (e *testEnv) token(t *testing.T, clientID string, tier admission.Tier, isAdmin bool) string {
	t.Helper()

	token, _, err := e.server.jwtAuth.GenerateToken(clientID, tier, isAdmin)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	return token
}

// generousTiers returns a tier table large enough that ordinary handler
// tests never trip the rate limiter.
func generousTiers() admission.TierTable {
	table := admission.DefaultTierTable()
	table[admission.TierAuthenticated] = admission.Limits{
		RequestsPerMinute:   6000,
		BurstCapacity:       1000,
		RefillRatePerSecond: 100,
		MaxConcurrent:       100,
	}
	return table
}

// waitForCondition polls until the condition holds or the timeout fires.
func waitForCondition(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Timed out waiting for condition")
}

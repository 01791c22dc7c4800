package admission

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/meshwave/meshgate-go/pkg/admission"
)

// resetWindow is the nominal full-budget window reported to admitted
// callers via Result.ResetAt.
const resetWindow = 60 * time.Second

// bucket tracks one client's spendable tokens and in-flight work.
type bucket struct {
	tokens             float64
	lastRefillAt       time.Time
	concurrentInFlight int
	tier               admission.Tier
	createdAt          time.Time
}

// TokenBucketController implements the admission.Controller interface
// with one tiered token bucket per client identifier.
//
// The controller exclusively owns its bucket map; all access is
// serialized by a single mutex so the sweep can never evict a bucket out
// from under an in-flight CheckLimit/ReleaseSlot pair.
type TokenBucketController struct {
	mu      sync.Mutex
	config  *Config
	buckets map[string]*bucket
}

// NewTokenBucketController creates a controller with the given
// configuration. A nil config uses defaults.
func NewTokenBucketController(config *Config) (*TokenBucketController, error) {
	if config == nil {
		config = &Config{}
	}

	// Make a copy and set defaults
	configCopy := *config
	configCopy.SetDefaults()

	if err := configCopy.Validate(); err != nil {
		return nil, err
	}

	return &TokenBucketController{
		config:  &configCopy,
		buckets: make(map[string]*bucket),
	}, nil
}

// CheckLimit admits or denies one unit of work for the given client.
// Gate order is fixed: token budget first, then concurrency, so a client
// with no tokens never occupies a concurrency slot.
func (c *TokenBucketController) CheckLimit(clientID string, tier admission.Tier) admission.Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.config.Now()
	tier = c.config.Tiers.Normalize(tier)
	limits := c.config.Tiers[tier]

	if limits.Unlimited() {
		return admission.Result{
			Allowed:   true,
			Tier:      tier,
			Remaining: admission.Unbounded,
			ResetAt:   now.Add(resetWindow),
		}
	}

	b, ok := c.buckets[clientID]
	if !ok {
		b = &bucket{
			tokens:       limits.BurstCapacity,
			lastRefillAt: now,
			tier:         tier,
			createdAt:    now,
		}
		c.buckets[clientID] = b
	}

	c.refill(b, limits, now)

	// Gate 1: token budget.
	if b.tokens < 1 {
		retryAfter := int(math.Ceil((1 - b.tokens) / limits.RefillRatePerSecond))
		return admission.Result{
			Allowed:    false,
			Tier:       tier,
			Remaining:  0,
			ResetAt:    now.Add(time.Duration(retryAfter) * time.Second),
			RetryAfter: retryAfter,
		}
	}

	// Gate 2: concurrency ceiling. Slots free up quickly relative to
	// token depletion, so the retry hint is a flat second.
	if b.concurrentInFlight >= limits.MaxConcurrent {
		return admission.Result{
			Allowed:    false,
			Tier:       tier,
			Remaining:  int(math.Floor(b.tokens)),
			ResetAt:    now.Add(time.Second),
			RetryAfter: 1,
		}
	}

	b.tokens--
	b.concurrentInFlight++

	return admission.Result{
		Allowed:   true,
		Tier:      tier,
		Remaining: int(math.Floor(b.tokens)),
		ResetAt:   now.Add(resetWindow),
	}
}

// ReleaseSlot decrements the client's in-flight count. A release without
// a matching admit, or a double release, is a no-op.
func (c *TokenBucketController) ReleaseSlot(clientID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.buckets[clientID]
	if !ok {
		return
	}
	if b.concurrentInFlight > 0 {
		b.concurrentInFlight--
	}
}

// GetStatus refills and reports the client's bucket without consuming a
// token. Returns false if the client has no bucket yet.
func (c *TokenBucketController) GetStatus(clientID string) (admission.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.buckets[clientID]
	if !ok {
		return admission.Result{}, false
	}

	now := c.config.Now()
	limits := c.config.Tiers[b.tier]
	c.refill(b, limits, now)

	return admission.Result{
		Allowed:   b.tokens >= 1 && b.concurrentInFlight < limits.MaxConcurrent,
		Tier:      b.tier,
		Remaining: int(math.Floor(b.tokens)),
		ResetAt:   now.Add(resetWindow),
	}, true
}

// Reset deletes the client's bucket, restoring full burst capacity on
// the next request.
func (c *TokenBucketController) Reset(clientID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.buckets, clientID)
}

// Sweep evicts buckets idle longer than the TTL with no in-flight work.
// Buckets with in-flight work are retained regardless of idle time so
// concurrency accounting for active clients is never lost.
func (c *TokenBucketController) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for clientID, b := range c.buckets {
		if b.concurrentInFlight > 0 {
			continue
		}
		if now.Sub(b.lastRefillAt) > c.config.BucketTTL {
			delete(c.buckets, clientID)
			evicted++
		}
	}
	return evicted
}

// Run drives Sweep on the configured interval until ctx is cancelled.
func (c *TokenBucketController) Run(ctx context.Context) {
	ticker := time.NewTicker(c.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep(c.config.Now())
		}
	}
}

// BucketCount returns the number of live buckets. Useful for monitoring
// and for verifying sweep behavior.
func (c *TokenBucketController) BucketCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.buckets)
}

// refill applies linear token refill since the last refill time,
// clamped at burst capacity. Caller must hold the mutex.
func (c *TokenBucketController) refill(b *bucket, limits admission.Limits, now time.Time) {
	elapsed := now.Sub(b.lastRefillAt).Seconds()
	if elapsed > 0 {
		b.tokens = math.Min(limits.BurstCapacity, b.tokens+elapsed*limits.RefillRatePerSecond)
	}
	b.lastRefillAt = now
}

// Verify that TokenBucketController implements the Controller interface at compile time
var _ admission.Controller = (*TokenBucketController)(nil)

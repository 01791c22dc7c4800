package admission

import (
	"errors"
	"time"

	"github.com/meshwave/meshgate-go/pkg/admission"
)

// Config holds configuration for the token-bucket admission controller.
type Config struct {
	// Tiers is the per-tier limit table. Nil means DefaultTierTable.
	Tiers admission.TierTable

	// BucketTTL is how long an idle bucket (no refill activity and no
	// in-flight work) survives before the sweep evicts it.
	BucketTTL time.Duration

	// SweepInterval is how often Run drives the cleanup sweep.
	SweepInterval time.Duration

	// Now is the clock used for refill arithmetic. Injectable for tests;
	// nil means time.Now.
	Now func() time.Time
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	for tier, limits := range c.Tiers {
		if limits.Unlimited() {
			continue
		}
		if limits.BurstCapacity <= 0 {
			return errors.New("tier " + string(tier) + ": burst capacity must be positive")
		}
		if limits.RefillRatePerSecond <= 0 {
			return errors.New("tier " + string(tier) + ": refill rate must be positive")
		}
		if limits.MaxConcurrent <= 0 {
			return errors.New("tier " + string(tier) + ": max concurrent must be positive")
		}
	}
	return nil
}

// SetDefaults sets sensible default values for unset configuration fields
func (c *Config) SetDefaults() {
	if c.Tiers == nil {
		c.Tiers = admission.DefaultTierTable()
	}
	if c.BucketTTL <= 0 {
		c.BucketTTL = 10 * time.Minute
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

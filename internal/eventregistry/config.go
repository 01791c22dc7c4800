package eventregistry

import (
	"errors"
	"time"

	"github.com/meshwave/meshgate-go/pkg/eventregistry"
)

// Config holds configuration for the in-memory event registry.
type Config struct {
	// BufferCapacity is the per-topic replay ring capacity.
	BufferCapacity int

	// Deliver is the outbound delivery callback, registered once at
	// construction. Nil means deliveries are dropped, which is useful
	// for tests exercising only the buffer and snapshot paths.
	Deliver eventregistry.DeliveryFunc

	// Now is the clock used for snapshot capture times. Injectable for
	// tests; nil means time.Now.
	Now func() time.Time
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.BufferCapacity < 0 {
		return errors.New("buffer capacity cannot be negative")
	}
	return nil
}

// SetDefaults sets sensible default values for unset configuration fields
func (c *Config) SetDefaults() {
	if c.BufferCapacity == 0 {
		c.BufferCapacity = 500
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

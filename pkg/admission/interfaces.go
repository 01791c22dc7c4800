package admission

import (
	"context"
	"time"
)

// Controller decides, per client and per unit of work, whether to admit
// the work, and tracks how many units are concurrently in flight.
//
// Call pattern: CheckLimit once before accepting a unit of work; if it
// was admitted, ReleaseSlot exactly once on completion or failure.
type Controller interface {
	// CheckLimit looks up or lazily creates the client's bucket, refills
	// it, and applies the two admission gates in fixed order: token
	// budget first, then concurrency. On admission it consumes one token
	// and increments the in-flight count.
	CheckLimit(clientID string, tier Tier) Result

	// ReleaseSlot decrements the client's in-flight count. Idempotent:
	// double-release or release without a matching admit is a no-op and
	// never drives the count negative.
	ReleaseSlot(clientID string)

	// GetStatus refills and reports the client's bucket without
	// consuming a token. The second return is false if the client has
	// no bucket yet.
	GetStatus(clientID string) (Result, bool)

	// Reset deletes the client's bucket, restoring full burst capacity
	// on the next request.
	Reset(clientID string)

	// Sweep removes buckets idle longer than the configured TTL that
	// have no in-flight work. Exposed as an explicit tick so tests and
	// schedulers can drive it deterministically; returns the number of
	// buckets evicted.
	Sweep(now time.Time) int

	// Run drives Sweep on the configured interval until ctx is
	// cancelled. At most one Run loop should be active per controller.
	Run(ctx context.Context)
}

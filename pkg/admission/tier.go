package admission

// Tier identifies a named class of caller with its own budget and
// concurrency limits.
type Tier string

const (
	// TierAnonymous is the most restrictive tier, applied to
	// unauthenticated callers and used as the fallback for unknown tiers.
	TierAnonymous Tier = "anonymous"

	// TierAuthenticated applies to callers with a valid token.
	TierAuthenticated Tier = "authenticated"

	// TierNode applies to mesh nodes reporting their own state.
	TierNode Tier = "node"

	// TierPremium applies to paying callers.
	TierPremium Tier = "premium"

	// TierUnlimited bypasses budget and concurrency gating entirely.
	// Reserved for internal services.
	TierUnlimited Tier = "unlimited"
)

// Unbounded is the sentinel used by the unlimited tier's numeric knobs.
const Unbounded = -1

// Limits holds the four numeric knobs configured per tier.
type Limits struct {
	// RequestsPerMinute is the nominal sustained budget, used for
	// reporting. The enforced rate is RefillRatePerSecond.
	RequestsPerMinute int `yaml:"requestsPerMinute"`

	// BurstCapacity is the maximum number of spendable tokens a bucket
	// can hold; new buckets are seeded at this value.
	BurstCapacity float64 `yaml:"burstCapacity"`

	// RefillRatePerSecond is the linear token refill rate.
	RefillRatePerSecond float64 `yaml:"refillRatePerSecond"`

	// MaxConcurrent caps the number of in-flight units of work.
	MaxConcurrent int `yaml:"maxConcurrent"`
}

// Unlimited reports whether these limits use the unbounded sentinels.
func (l Limits) Unlimited() bool {
	return l.RequestsPerMinute == Unbounded
}

// TierTable maps each tier to its limits.
type TierTable map[Tier]Limits

// DefaultTierTable returns the built-in five-tier limit table.
func DefaultTierTable() TierTable {
	return TierTable{
		TierAnonymous:     {RequestsPerMinute: 60, BurstCapacity: 10, RefillRatePerSecond: 1, MaxConcurrent: 5},
		TierAuthenticated: {RequestsPerMinute: 300, BurstCapacity: 50, RefillRatePerSecond: 5, MaxConcurrent: 20},
		TierNode:          {RequestsPerMinute: 600, BurstCapacity: 100, RefillRatePerSecond: 10, MaxConcurrent: 50},
		TierPremium:       {RequestsPerMinute: 1200, BurstCapacity: 200, RefillRatePerSecond: 20, MaxConcurrent: 100},
		TierUnlimited:     {RequestsPerMinute: Unbounded, BurstCapacity: Unbounded, RefillRatePerSecond: Unbounded, MaxConcurrent: Unbounded},
	}
}

// Normalize coerces an unknown tier to the most restrictive tier rather
// than crashing or silently granting unlimited access.
func (t TierTable) Normalize(tier Tier) Tier {
	if _, ok := t[tier]; ok {
		return tier
	}
	return TierAnonymous
}

// ParseTier converts a string to a known Tier, falling back to anonymous
// for anything unrecognized.
func ParseTier(s string) Tier {
	switch Tier(s) {
	case TierAnonymous, TierAuthenticated, TierNode, TierPremium, TierUnlimited:
		return Tier(s)
	default:
		return TierAnonymous
	}
}

package admission

import "time"

// Result is the structured outcome of an admission decision. The
// controller never fails; every call produces a Result and callers
// branch on Allowed.
type Result struct {
	// Allowed reports whether the unit of work was admitted.
	Allowed bool

	// Tier is the tier the decision was made under (after unknown-tier
	// normalization, so callers can see what actually applied).
	Tier Tier

	// Remaining is the whole number of tokens left after this decision.
	// Unbounded (-1) for the unlimited tier.
	Remaining int

	// ResetAt is when the budget is nominally back at full capacity.
	ResetAt time.Time

	// RetryAfter is the suggested wait in seconds before retrying.
	// Zero when Allowed is true.
	RetryAfter int
}

// Package admission provides the types and interfaces for the MeshGate
// admission controller component.
//
// The admission controller protects the shared backend from overload by
// tracking per-client resource budgets with tiered token buckets plus a
// per-client concurrency ceiling:
//   - Tier: a named class of caller (anonymous, authenticated, node,
//     premium, unlimited) with its own budget and concurrency limits
//   - Limits: the four numeric knobs configured per tier
//   - Result: the structured outcome of an admission decision
//   - Controller: the interface the gateway calls once before and once
//     after each unit of work
//
// The interfaces use Go idioms:
//   - Structured results instead of exceptions (the controller never fails;
//     callers branch on Result.Allowed)
//   - context.Context on the background sweeper loop
//   - Explicit error returns where configuration can be invalid
//
// Example usage:
//
//	res := ctrl.CheckLimit("client-42", admission.TierAuthenticated)
//	if !res.Allowed {
//		return fmt.Errorf("rate limited, retry after %ds", res.RetryAfter)
//	}
//	defer ctrl.ReleaseSlot("client-42")
//	// ... handle the unit of work ...
package admission

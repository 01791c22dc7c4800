package eventregistry

// Filter is a conjunction of independently optional predicates over
// event attributes. An empty Filter matches every event on the topic.
type Filter struct {
	// EventTypes restricts matches to events whose Type is a member.
	// Empty means match all types.
	EventTypes []string `json:"eventTypes,omitempty"`

	// SourceIDs restricts matches to events whose Source is a member.
	// Empty means match all sources.
	SourceIDs []string `json:"sourceIds,omitempty"`

	// MinMagnitudeChange, when set, requires the event to carry a
	// numeric delta with abs(delta) >= the threshold. Events without a
	// delta never match when the threshold is set.
	MinMagnitudeChange *float64 `json:"minMagnitudeChange,omitempty"`
}

// Matches evaluates the filter against an event. All set predicates must
// hold (logical AND).
func (f *Filter) Matches(e *Event) bool {
	if len(f.EventTypes) > 0 && !contains(f.EventTypes, e.Type) {
		return false
	}
	if len(f.SourceIDs) > 0 && !contains(f.SourceIDs, e.Source) {
		return false
	}
	if f.MinMagnitudeChange != nil {
		delta, ok := e.MagnitudeChange()
		if !ok || delta < *f.MinMagnitudeChange {
			return false
		}
	}
	return true
}

// Copy returns a deep copy of the filter so the registry never aliases
// caller-owned state.
func (f *Filter) Copy() Filter {
	out := Filter{}
	if len(f.EventTypes) > 0 {
		out.EventTypes = make([]string, len(f.EventTypes))
		copy(out.EventTypes, f.EventTypes)
	}
	if len(f.SourceIDs) > 0 {
		out.SourceIDs = make([]string, len(f.SourceIDs))
		copy(out.SourceIDs, f.SourceIDs)
	}
	if f.MinMagnitudeChange != nil {
		threshold := *f.MinMagnitudeChange
		out.MinMagnitudeChange = &threshold
	}
	return out
}

func contains(set []string, value string) bool {
	for _, member := range set {
		if member == value {
			return true
		}
	}
	return false
}

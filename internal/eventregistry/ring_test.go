package eventregistry

import (
	"fmt"
	"testing"
	"time"

	"github.com/meshwave/meshgate-go/pkg/eventregistry"
)

func ringEvent(n int) eventregistry.Event {
	return eventregistry.Event{
		ID:        fmt.Sprintf("evt-%d", n),
		Topic:     "mesh.nodes",
		Type:      eventregistry.TypeNodeStatus,
		Source:    "node-1",
		Timestamp: time.Date(2025, 1, 1, 0, 0, n, 0, time.UTC),
	}
}

// TestRing_FIFOEviction verifies the oldest entry is evicted first once
// the ring is full.
func TestRing_FIFOEviction(t *testing.T) {
	r := newRing(3)

	for i := 0; i < 4; i++ {
		r.append(ringEvent(i))
	}

	if r.len() != 3 {
		t.Fatalf("Expected ring length 3, got %d", r.len())
	}

	got := r.newestFirst(3, nil)
	if len(got) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(got))
	}
	// Newest first: evt-3, evt-2, evt-1. evt-0 was evicted.
	for i, want := range []string{"evt-3", "evt-2", "evt-1"} {
		if got[i].ID != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, got[i].ID)
		}
	}
}

// TestRing_NewestFirstLimit verifies the result honors the limit and
// predicate.
func TestRing_NewestFirstLimit(t *testing.T) {
	r := newRing(10)
	for i := 0; i < 5; i++ {
		r.append(ringEvent(i))
	}

	got := r.newestFirst(2, nil)
	if len(got) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(got))
	}
	if got[0].ID != "evt-4" || got[1].ID != "evt-3" {
		t.Errorf("Expected newest-first order, got %s, %s", got[0].ID, got[1].ID)
	}

	odd := r.newestFirst(10, func(e *eventregistry.Event) bool {
		return e.Timestamp.Second()%2 == 1
	})
	if len(odd) != 2 {
		t.Fatalf("Expected 2 matching events, got %d", len(odd))
	}

	if got := r.newestFirst(0, nil); got != nil {
		t.Errorf("Expected nil for zero limit, got %d events", len(got))
	}
}

// TestRing_WrapAround verifies correctness after the write position wraps
// several times.
func TestRing_WrapAround(t *testing.T) {
	r := newRing(4)
	for i := 0; i < 11; i++ {
		r.append(ringEvent(i))
	}

	got := r.newestFirst(4, nil)
	for i, want := range []string{"evt-10", "evt-9", "evt-8", "evt-7"} {
		if got[i].ID != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, got[i].ID)
		}
	}
}

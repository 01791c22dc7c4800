package eventregistry

import "github.com/meshwave/meshgate-go/pkg/eventregistry"

// ring is a fixed-capacity FIFO buffer of events. When full, appending
// evicts the oldest entry. Not safe for concurrent use; the registry
// serializes access.
type ring struct {
	buf   []eventregistry.Event
	start int // index of the oldest entry
	count int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]eventregistry.Event, capacity)}
}

// append stores an event, evicting the oldest entry when full.
func (r *ring) append(e eventregistry.Event) {
	if r.count < len(r.buf) {
		r.buf[(r.start+r.count)%len(r.buf)] = e
		r.count++
		return
	}
	r.buf[r.start] = e
	r.start = (r.start + 1) % len(r.buf)
}

// len returns the number of buffered events.
func (r *ring) len() int {
	return r.count
}

// newestFirst copies up to limit events matching the predicate, newest
// first. A nil predicate matches everything.
func (r *ring) newestFirst(limit int, match func(*eventregistry.Event) bool) []eventregistry.Event {
	if limit <= 0 || r.count == 0 {
		return nil
	}

	out := make([]eventregistry.Event, 0, min(limit, r.count))
	for i := r.count - 1; i >= 0 && len(out) < limit; i-- {
		e := r.buf[(r.start+i)%len(r.buf)]
		if match == nil || match(&e) {
			out = append(out, e)
		}
	}
	return out
}

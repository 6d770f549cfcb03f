package events

import (
	"strings"
	"sync"
)

// DefaultRingSize is the default ring capacity.
const DefaultRingSize = 512

// Ring is a fixed-size circular buffer of Events, oldest evicted first.
// Goroutine-safe.
type Ring struct {
	mu    sync.Mutex
	buf   []Event
	head  int // next write position
	count int
}

// NewRing creates a ring with the given capacity.
func NewRing(size int) *Ring {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Ring{buf: make([]Event, size)}
}

// Push adds an event, overwriting the oldest if full.
// The Extra map is copied so later mutation by the caller can't leak in.
func (r *Ring) Push(e Event) {
	if e.Extra != nil {
		cp := make(map[string]any, len(e.Extra))
		for k, v := range e.Extra {
			cp[k] = v
		}
		e.Extra = cp
	}

	r.mu.Lock()
	r.buf[r.head] = e
	r.head = (r.head + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
	r.mu.Unlock()
}

// Snapshot returns every buffered event, oldest first.
func (r *Ring) Snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastLocked(r.count)
}

// Last returns the n most recent events, oldest first.
// n larger than the buffered count returns everything; n <= 0 returns nil.
func (r *Ring) Last(n int) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastLocked(n)
}

// lastLocked copies out the newest n events. Caller holds r.mu.
func (r *Ring) lastLocked(n int) []Event {
	if n > r.count {
		n = r.count
	}
	if n <= 0 {
		return nil
	}

	size := len(r.buf)
	out := make([]Event, n)
	start := (r.head - n + size) % size
	for i := range out {
		out[i] = r.buf[(start+i)%size]
	}
	return out
}

// Len returns the number of buffered events.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// Stats counts buffered events by Kind.
func (r *Ring) Stats() map[Kind]int {
	counts := make(map[Kind]int)
	for _, e := range r.Snapshot() {
		counts[e.Kind]++
	}
	return counts
}

// Matching returns buffered events whose kind starts with prefix, oldest first.
func (r *Ring) Matching(prefix string) []Event {
	var out []Event
	for _, e := range r.Snapshot() {
		if strings.HasPrefix(string(e.Kind), prefix) {
			out = append(out, e)
		}
	}
	return out
}

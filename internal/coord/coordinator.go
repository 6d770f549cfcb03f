// Package coord tracks request lifecycles for popcorn.
//
// Each kind of request (search, detail) gets a Lane. Starting a request on a
// lane cancels whatever that lane had in flight and issues a new sequence
// token; a completion may only write into state while its token is current.
// Context cancellation is the only stop mechanism.
package coord

import (
	"context"
	"sync"
)

// Coordinator owns the root context every lane derives from.
// Close tears down every in-flight request at once.
type Coordinator struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	lanes  []*Lane
	closed bool
}

// New creates a Coordinator rooted at parent.
func New(parent context.Context) *Coordinator {
	ctx, cancel := context.WithCancel(parent)
	return &Coordinator{ctx: ctx, cancel: cancel}
}

// NewLane registers a named lane.
func (c *Coordinator) NewLane(name string) *Lane {
	l := &Lane{name: name, coord: c}
	c.mu.Lock()
	c.lanes = append(c.lanes, l)
	c.mu.Unlock()
	return l
}

// Close cancels the root context and invalidates every lane's token.
// Idempotent.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	lanes := c.lanes
	c.mu.Unlock()

	c.cancel()
	for _, l := range lanes {
		l.Cancel()
	}
}

// Closed reports whether Close has been called.
func (c *Coordinator) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Lanes returns a snapshot of every lane's state, in registration order.
func (c *Coordinator) Lanes() []LaneStats {
	c.mu.Lock()
	lanes := append([]*Lane(nil), c.lanes...)
	c.mu.Unlock()

	out := make([]LaneStats, 0, len(lanes))
	for _, l := range lanes {
		out = append(out, l.Stats())
	}
	return out
}

// Token identifies one request on a lane. Zero is never issued.
type Token uint64

// LaneStats is a point-in-time view of a lane.
type LaneStats struct {
	Name      string
	Seq       Token // last token issued
	InFlight  bool  // a request is outstanding and current
	Begun     int   // requests started
	Cancelled int   // requests cancelled before completing
}

// Lane serializes one kind of request: at most one is current at a time.
type Lane struct {
	name  string
	coord *Coordinator

	mu        sync.Mutex
	seq       Token
	current   Token // 0 when nothing may write
	cancel    context.CancelFunc
	begun     int
	cancelled int
}

// Name returns the lane name.
func (l *Lane) Name() string {
	return l.name
}

// Begin cancels the previous request and starts a new one.
// The returned context is already cancelled if the coordinator is closed,
// and the token is then never current.
func (l *Lane) Begin() (context.Context, Token) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cancelLocked()

	l.seq++
	l.begun++
	ctx, cancel := context.WithCancel(l.coord.ctx)
	l.cancel = cancel

	if l.coord.Closed() {
		cancel()
		l.current = 0
		return ctx, l.seq
	}
	l.current = l.seq
	return ctx, l.seq
}

// Cancel cancels the in-flight request, if any, without starting another.
// Any outstanding token stops being current.
func (l *Lane) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancelLocked()
}

func (l *Lane) cancelLocked() {
	if l.cancel != nil {
		if l.current != 0 {
			l.cancelled++
		}
		l.cancel()
		l.cancel = nil
	}
	l.current = 0
}

// Current reports whether a completion carrying token may be applied.
func (l *Lane) Current(token Token) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return token != 0 && token == l.current
}

// Done marks token's request finished. A later Cancel no longer counts it as
// cancelled; the token stays current until the next Begin or Cancel.
func (l *Lane) Done(token Token) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if token == l.current && l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

// Stats returns a snapshot of the lane.
func (l *Lane) Stats() LaneStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LaneStats{
		Name:      l.name,
		Seq:       l.seq,
		InFlight:  l.current != 0 && l.cancel != nil,
		Begun:     l.begun,
		Cancelled: l.cancelled,
	}
}

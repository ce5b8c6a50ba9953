package records

import "sync/atomic"

// Clock is a monotonic logical clock for audit ordering.
//
// Every history row is stamped with a strictly increasing seq number from
// this clock. Wall-clock timestamps on consecutive mutations can collide
// within timer resolution; seq never does, so the trail's order is always
// the order mutations were applied.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence number.
// Used on startup to resume from the highest seq already stored.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
// Calls are linearizable - each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// AdvanceTo moves the clock forward to at least n. Moving backward is a
// no-op; Next() stays strictly increasing.
func (c *Clock) AdvanceTo(n int64) {
	for {
		cur := c.seq.Load()
		if n <= cur || c.seq.CompareAndSwap(cur, n) {
			return
		}
	}
}

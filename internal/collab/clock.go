package collab

import "sync/atomic"

// Clock is a monotonic logical clock for stamping outbound edit events.
//
// Seq numbers order one actor's own edits; they are not comparable
// across actors and carry no global ordering. Wall-clock timestamps on
// events are advisory metadata for logs and audits, never an ordering
// input.
//
// Thread-safety: safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific sequence number.
// Used when resuming a session from a persisted edit log.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

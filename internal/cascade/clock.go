package cascade

import "sync/atomic"

// Clock is the monotonic logical clock stamping every event.
//
// Sequence numbers are strictly increasing for the life of the image, so
// replaying a journal ordered by seq reproduces the original order.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming after start.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last sequence number handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

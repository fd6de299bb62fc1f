package testutil

import "sync/atomic"

// DeterministicClock is a resettable logical clock for tests. It satisfies
// cascade.Sequencer.
//
// Unlike cascade.Clock it can be rewound, so the same scenario can run
// several times and journal identical seq values.
type DeterministicClock struct {
	seq atomic.Int64
}

// NewDeterministicClock creates a clock whose first Next() returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

func (c *DeterministicClock) Next() int64 { return c.seq.Add(1) }

// Current returns the last value handed out, 0 before the first Next.
func (c *DeterministicClock) Current() int64 { return c.seq.Load() }

// Reset rewinds the clock to 0.
func (c *DeterministicClock) Reset() { c.seq.Store(0) }

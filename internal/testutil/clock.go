package testutil

import (
	"sync"

	"github.com/roach88/txcomplete/internal/surface"
)

// Clock is a deterministic nanosecond clock for tests. It only moves when
// told to, so latch, acquire and fence signal times are reproducible.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Clock struct {
	mu    sync.Mutex
	start int64
	step  int64
	now   int64
}

// NewClock creates a clock reading start that advances by step on Tick.
// A step below 1 is treated as 1.
func NewClock(start, step int64) *Clock {
	if step < 1 {
		step = 1
	}
	return &Clock{start: start, step: step, now: start}
}

// Now returns the current time without advancing.
func (c *Clock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Tick advances by the clock's step and returns the new time.
func (c *Clock) Tick() int64 {
	return c.Advance(c.step)
}

// Advance moves the clock forward by d and returns the new time. A
// negative d is ignored; the clock never runs backwards.
func (c *Clock) Advance(d int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.now += d
	}
	return c.now
}

// Reset returns the clock to its start time.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.start
}

// SignaledFence ticks the clock and returns a fence signaled at the new
// time.
func (c *Clock) SignaledFence(name string) *surface.Fence {
	return surface.NewSignaledFence(name, c.Tick())
}

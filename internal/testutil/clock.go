// Package testutil provides deterministic helpers for tests: a frozen
// clock for reproducible audit hashes and builders for fixture datasets.
package testutil

import (
	"sync"
	"time"
)

// FrozenClock is a thread-safe clock that only moves when told to.
// Injecting it into the audit chain makes entry timestamps, and therefore
// entry hashes, reproducible across runs.
type FrozenClock struct {
	mu sync.Mutex
	t  time.Time
}

// NewFrozenClock creates a clock frozen at the given instant.
func NewFrozenClock(t time.Time) *FrozenClock {
	return &FrozenClock{t: t}
}

// Now returns the frozen instant.
func (c *FrozenClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the clock forward by d.
func (c *FrozenClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

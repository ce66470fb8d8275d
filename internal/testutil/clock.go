// Package testutil provides deterministic time and ID sources for tests.
package testutil

import (
	"fmt"
	"sync"
	"time"
)

// WallClock provides a deterministic, steppable wall-clock time source
// for tests. Each call to Now advances the clock by a fixed step, so
// created/updated stamps are unique but reproducible.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type WallClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewWallClock creates a clock starting at the given instant, advancing
// by step on every Now call.
func NewWallClock(start time.Time, step time.Duration) *WallClock {
	return &WallClock{now: start, step: step}
}

// Now returns the current instant and advances the clock.
func (c *WallClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Peek returns the current instant without advancing.
func (c *WallClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// FixedIDs generates sequential, predictable identifiers for tests
// ("sheet-1", "sheet-2", ...), replacing the production UUIDv7
// generator.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewFixedIDs creates a generator with the given prefix.
func NewFixedIDs(prefix string) *FixedIDs {
	return &FixedIDs{prefix: prefix}
}

// Generate returns the next identifier in sequence.
func (g *FixedIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

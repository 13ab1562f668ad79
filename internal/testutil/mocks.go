package testutil

import (
	"context"
	"sync"
	"time"
)

// FailingSink is an export sink that always returns Err
type FailingSink struct {
	Err error
}

// Save returns the configured error
func (f *FailingSink) Save(_ context.Context, _, _ string) (string, error) {
	return "", f.Err
}

// Clock is a manually advanced time source safe for concurrent use
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock starting at start
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current instant
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

// Advance moves the clock forward
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

package util

import (
	"context"
	"sync"
	"time"
)

// RateLimiter spaces operations at a minimum interval derived from a
// per-minute budget.
type RateLimiter struct {
	interval time.Duration
	last     time.Time
	mu       sync.Mutex
}

// NewRateLimiter creates a RateLimiter allowing perMinute operations per
// minute.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &RateLimiter{
		interval: time.Minute / time.Duration(perMinute),
	}
}

// Wait blocks until the next operation is allowed or the context is
// cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	now := time.Now()
	next := rl.last.Add(rl.interval)
	if next.Before(now) {
		next = now
	}
	rl.last = next
	rl.mu.Unlock()

	wait := time.Until(next)
	if wait <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

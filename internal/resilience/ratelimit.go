package resilience

import (
	"sync"
	"time"
)

// bucketKey identifies one fixed rate-limit window.
type bucketKey struct {
	identifier string
	action     string
}

// bucket counts attempts inside a fixed window.
type bucket struct {
	count       int
	windowStart time.Time
	window      time.Duration
}

// RateLimiter is a fixed-window counter keyed by (identifier, action).
// The window resets on expiry, not on each call.
type RateLimiter struct {
	now func() time.Time

	mu      sync.Mutex
	buckets map[bucketKey]*bucket
}

// NewRateLimiter creates an empty RateLimiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		now:     time.Now,
		buckets: make(map[bucketKey]*bucket),
	}
}

// Allow reports whether another attempt is permitted for the given
// identifier and action, and counts it when it is. Once maxAttempts is
// reached inside the current window every further call returns false
// until the window expires.
func (rl *RateLimiter) Allow(identifier, action string, maxAttempts int, window time.Duration) bool {
	if maxAttempts <= 0 || window <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	key := bucketKey{identifier: identifier, action: action}
	b, ok := rl.buckets[key]
	if !ok || now.Sub(b.windowStart) >= window {
		rl.buckets[key] = &bucket{count: 1, windowStart: now, window: window}
		return true
	}
	if b.count >= maxAttempts {
		return false
	}
	b.count++
	return true
}

// Prune drops buckets whose window has expired. Called periodically so
// the map stays bounded by active callers.
func (rl *RateLimiter) Prune() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for key, b := range rl.buckets {
		if now.Sub(b.windowStart) >= b.window {
			delete(rl.buckets, key)
			removed++
		}
	}
	return removed
}

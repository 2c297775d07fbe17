package resilience

import (
	"testing"
	"time"
)

func newTestLimiter(clock *fakeClock) *RateLimiter {
	rl := NewRateLimiter()
	rl.now = clock.now
	return rl
}

func TestRateLimiter_DeniesBeyondMax(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	rl := newTestLimiter(clock)

	for i := 0; i < 3; i++ {
		if !rl.Allow("+15550123", "session_create", 3, time.Minute) {
			t.Fatalf("attempt %d denied before max", i+1)
		}
	}
	if rl.Allow("+15550123", "session_create", 3, time.Minute) {
		t.Error("4th attempt inside window should be denied")
	}
}

func TestRateLimiter_WindowResets(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	rl := newTestLimiter(clock)

	for i := 0; i < 3; i++ {
		rl.Allow("+15550123", "session_create", 3, time.Minute)
	}
	if rl.Allow("+15550123", "session_create", 3, time.Minute) {
		t.Fatal("should be denied inside window")
	}

	clock.advance(61 * time.Second)
	if !rl.Allow("+15550123", "session_create", 3, time.Minute) {
		t.Error("attempt after window elapsed should be allowed")
	}
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	rl := newTestLimiter(clock)

	for i := 0; i < 2; i++ {
		rl.Allow("+15550123", "session_create", 2, time.Minute)
	}
	if rl.Allow("+15550123", "session_create", 2, time.Minute) {
		t.Error("first key should be exhausted")
	}
	if !rl.Allow("+15550199", "session_create", 2, time.Minute) {
		t.Error("different identifier should have its own bucket")
	}
	if !rl.Allow("+15550123", "status_callback", 2, time.Minute) {
		t.Error("different action should have its own bucket")
	}
}

func TestRateLimiter_Prune(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	rl := newTestLimiter(clock)

	rl.Allow("a", "x", 5, time.Minute)
	rl.Allow("b", "x", 5, time.Hour)

	clock.advance(2 * time.Minute)
	if removed := rl.Prune(); removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	// The surviving bucket still enforces its count.
	for i := 0; i < 4; i++ {
		rl.Allow("b", "x", 5, time.Hour)
	}
	if rl.Allow("b", "x", 5, time.Hour) {
		t.Error("bucket b should be exhausted after 5 total attempts")
	}
}

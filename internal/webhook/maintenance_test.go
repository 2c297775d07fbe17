package webhook

import (
	"testing"
	"time"
)

func TestSweepDelay_DefaultSchedule(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 2, 30, 0, time.UTC)
	d, err := sweepDelay(sweepSchedule, now)
	if err != nil {
		t.Fatalf("sweepDelay: %v", err)
	}
	// Next */5 boundary after 10:02:30 is 10:05:00.
	if want := 2*time.Minute + 30*time.Second; d != want {
		t.Errorf("delay = %v, want %v", d, want)
	}
}

func TestSweepDelay_EveryMinute(t *testing.T) {
	d, err := sweepDelay("* * * * *", time.Now())
	if err != nil {
		t.Fatalf("sweepDelay: %v", err)
	}
	if d <= 0 || d > time.Minute {
		t.Errorf("delay = %v, want (0, 1m]", d)
	}
}

func TestSweepDelay_InvalidExpression(t *testing.T) {
	if _, err := sweepDelay("not a cron", time.Now()); err == nil {
		t.Error("expected parse error")
	}
}

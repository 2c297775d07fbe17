package webhook

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/resilience"
	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/session"
)

// sweepSchedule fires the in-memory cleanup sweep. Terminated sessions
// and stale rate-limit buckets are reclaimed every 5 minutes.
const (
	sweepSchedule = "*/5 * * * *"
	sweepFallback = 5 * time.Minute
)

// sweepDelay computes how long to sleep before the next sweep. The
// expression is 5-field cron, minute granularity.
func sweepDelay(expr string, now time.Time) (time.Duration, error) {
	p := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := p.Parse(expr)
	if err != nil {
		return 0, err
	}
	return sched.Next(now).Sub(now), nil
}

// maintenanceLoop reaps terminated sessions and prunes rate-limit
// buckets on the sweep schedule until ctx is cancelled.
func maintenanceLoop(ctx context.Context, reg *session.Registry, rl *resilience.RateLimiter) {
	for {
		d, err := sweepDelay(sweepSchedule, time.Now())
		if err != nil || d <= 0 {
			d = sweepFallback
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(d):
			reg.Reap()
			if rl != nil {
				if n := rl.Prune(); n > 0 {
					log.Printf("webhook: pruned %d stale rate-limit buckets", n)
				}
			}
		}
	}
}

// Package resilience provides retry, circuit-breaker, and rate-limiting
// primitives shared by every outbound dependency call.
package resilience

import (
	"context"
	"fmt"
	"time"
)

// RetryOpts holds parameters for Retry.
type RetryOpts struct {
	MaxRetries  int           // additional attempts after the first
	BaseDelay   time.Duration // first backoff interval
	MaxDelay    time.Duration // backoff cap, exponential mode only
	Exponential bool          // double the delay each attempt when true
}

// applyDefaults fills in zero-value fields.
func (o *RetryOpts) applyDefaults() {
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = 500 * time.Millisecond
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 30 * time.Second
	}
}

// Retry executes op, retrying on error up to opts.MaxRetries times with
// backoff between attempts. The backoff sleep respects ctx cancellation so
// a webhook deadline is never held hostage by a retry loop. The last
// error is returned once retries are exhausted.
func Retry(ctx context.Context, opts RetryOpts, op func(ctx context.Context) error) error {
	opts.applyDefaults()

	var lastErr error
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := opts.BaseDelay
			if opts.Exponential {
				delay = opts.BaseDelay << uint(attempt-1)
				if delay > opts.MaxDelay || delay <= 0 {
					delay = opts.MaxDelay
				}
			}
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("resilience: retry interrupted: %w", ctx.Err())
			case <-timer.C:
			}
		}
		if err := op(ctx); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("resilience: %d attempts failed: %w", opts.MaxRetries+1, lastErr)
}

package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without invoking the wrapped operation while
// a breaker is open.
var ErrCircuitOpen = errors.New("resilience: circuit open")

// Breaker state constants.
const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half_open"
)

// Breaker defaults.
const (
	DefaultFailureThreshold = 5
	DefaultRecoveryTimeout  = 30 * time.Second
)

// Breaker is a circuit breaker for one named downstream dependency. It is
// shared by every call session and safe for concurrent use.
type Breaker struct {
	name      string
	threshold int
	recovery  time.Duration
	now       func() time.Time

	mu            sync.Mutex
	state         string
	failures      int
	lastFailureAt time.Time
	trialInFlight bool
}

// BreakerOpts holds parameters for NewBreaker.
type BreakerOpts struct {
	Name             string
	FailureThreshold int           // defaults to DefaultFailureThreshold
	RecoveryTimeout  time.Duration // defaults to DefaultRecoveryTimeout
	Now              func() time.Time
}

// NewBreaker creates a closed Breaker.
func NewBreaker(opts BreakerOpts) (*Breaker, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("resilience: breaker name is required")
	}
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = DefaultFailureThreshold
	}
	if opts.RecoveryTimeout <= 0 {
		opts.RecoveryTimeout = DefaultRecoveryTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Breaker{
		name:      opts.Name,
		threshold: opts.FailureThreshold,
		recovery:  opts.RecoveryTimeout,
		now:       opts.Now,
		state:     StateClosed,
	}, nil
}

// Name returns the dependency name the breaker guards.
func (b *Breaker) Name() string { return b.name }

// State returns the current breaker state.
func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Do runs op through the breaker. While open it fails immediately with
// ErrCircuitOpen; after the recovery timeout a single trial call is let
// through, closing the breaker on success or re-opening it on failure.
// The operation itself runs outside the breaker mutex.
func (b *Breaker) Do(ctx context.Context, op func(ctx context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := op(ctx)
	b.settle(err)
	return err
}

// admit decides whether a call may proceed, advancing Open to HalfOpen
// when the recovery timeout has elapsed.
func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.now().Sub(b.lastFailureAt) < b.recovery {
			return fmt.Errorf("%w: %s", ErrCircuitOpen, b.name)
		}
		b.state = StateHalfOpen
		b.trialInFlight = true
		return nil
	case StateHalfOpen:
		if b.trialInFlight {
			return fmt.Errorf("%w: %s (trial in flight)", ErrCircuitOpen, b.name)
		}
		b.trialInFlight = true
		return nil
	}
	return nil
}

// settle records the outcome of an admitted call.
func (b *Breaker) settle(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.trialInFlight = false
		if err != nil {
			b.state = StateOpen
			b.lastFailureAt = b.now()
			return
		}
		b.state = StateClosed
		b.failures = 0
		return
	}

	if err != nil {
		b.failures++
		b.lastFailureAt = b.now()
		if b.failures >= b.threshold {
			b.state = StateOpen
		}
		return
	}
	b.failures = 0
}

// Registry holds one Breaker per named dependency.
type Registry struct {
	threshold int
	recovery  time.Duration
	now       func() time.Time

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// RegistryOpts holds parameters for NewRegistry. Threshold and timeout
// apply to every breaker the registry creates.
type RegistryOpts struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
	Now              func() time.Time
}

// NewRegistry creates an empty breaker registry.
func NewRegistry(opts RegistryOpts) *Registry {
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = DefaultFailureThreshold
	}
	if opts.RecoveryTimeout <= 0 {
		opts.RecoveryTimeout = DefaultRecoveryTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Registry{
		threshold: opts.FailureThreshold,
		recovery:  opts.RecoveryTimeout,
		now:       opts.Now,
		breakers:  make(map[string]*Breaker),
	}
}

// Breaker returns the breaker for name, creating it on first use.
func (r *Registry) Breaker(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[name]; ok {
		return b
	}
	b, _ := NewBreaker(BreakerOpts{
		Name:             name,
		FailureThreshold: r.threshold,
		RecoveryTimeout:  r.recovery,
		Now:              r.now,
	})
	r.breakers[name] = b
	return b
}

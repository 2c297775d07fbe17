package session

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Registry is the single authority over active call sessions, keyed by
// the carrier call identifier. Sessions for different calls proceed in
// parallel; all mutation of one call serializes on its session lock.
type Registry struct {
	historyCap int
	reapTTL    time.Duration
	now        func() time.Time

	mu       sync.RWMutex
	sessions map[string]*CallSession
}

// RegistryOpts holds parameters for NewRegistry.
type RegistryOpts struct {
	HistoryCap int           // max turns kept per session, defaults to 20
	ReapTTL    time.Duration // how long terminated sessions linger, defaults to 5m
	Now        func() time.Time
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts RegistryOpts) *Registry {
	if opts.HistoryCap <= 0 {
		opts.HistoryCap = 20
	}
	if opts.ReapTTL <= 0 {
		opts.ReapTTL = 5 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Registry{
		historyCap: opts.HistoryCap,
		reapTTL:    opts.ReapTTL,
		now:        opts.Now,
		sessions:   make(map[string]*CallSession),
	}
}

// GetOrCreate returns the session for callID, creating it in the
// Greeting state on first sight. created reports whether this call
// performed the creation; a carrier retry of the start webhook finds the
// existing session.
func (r *Registry) GetOrCreate(callID, dialedNumber, callerNumber string) (sess *CallSession, created bool, err error) {
	if callID == "" {
		return nil, false, fmt.Errorf("session: call ID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[callID]; ok {
		return existing, false, nil
	}
	sess = &CallSession{
		CallID:       callID,
		DialedNumber: dialedNumber,
		CallerNumber: callerNumber,
		state:        StateGreeting,
		historyCap:   r.historyCap,
		startedAt:    r.now(),
		now:          r.now,
	}
	r.sessions[callID] = sess
	return sess, true, nil
}

// Get returns the session for callID if it exists.
func (r *Registry) Get(callID string) (*CallSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[callID]
	return sess, ok
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Reap removes sessions that terminated more than the reap TTL ago,
// bounding registry memory. Returns the number removed.
func (r *Registry) Reap() int {
	cutoff := r.now().Add(-r.reapTTL)

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, sess := range r.sessions {
		if sess.endedBefore(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		log.Printf("session: reaped %d terminated sessions, %d active", removed, len(r.sessions))
	}
	return removed
}

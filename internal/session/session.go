// Package session owns the per-call state machine and the in-memory
// registry of active calls.
package session

import (
	"sync"
	"time"
)

// Call states. The AwaitingSpeech/Processing/Responding triplet cycles
// once per conversation turn; every other transition is one-way.
const (
	StateGreeting          = "greeting"
	StateAwaitingSpeech    = "awaiting_speech"
	StateProcessing        = "processing"
	StateResponding        = "responding"
	StateSchedulingCapture = "scheduling_capture"
	StateTerminated        = "terminated"
)

// Turn roles.
const (
	RoleCaller = "caller"
	RoleAgent  = "agent"
)

// Turn is one immutable utterance in a call's history.
type Turn struct {
	Role      string
	Text      string
	CreatedAt time.Time
}

// Outcome is the terminal analytics record handed to the outcome store.
// Produced exactly once per call, by the transition into Terminated.
type Outcome struct {
	CallID               string
	CallerNumber         string
	DialedNumber         string
	DurationSeconds      int
	ResolutionType       string
	Transcript           []Turn
	Turns                int
	SchedulingIntent     bool
	AppointmentScheduled bool
}

// CallSession is the mutable state of one active call. All mutation goes
// through its methods, each of which holds the session lock, so
// concurrent webhook deliveries for the same call serialize and the
// loser observes the already-advanced state.
type CallSession struct {
	CallID       string
	DialedNumber string
	CallerNumber string

	mu                   sync.Mutex
	state                string
	turn                 int
	history              []Turn
	historyCap           int
	schedulingIntent     bool
	appointmentScheduled bool
	resolution           string
	startedAt            time.Time
	endedAt              time.Time
	finalized            bool

	now func() time.Time
}

// View is an immutable snapshot of a session, safe to use outside the
// session lock (prompt building, rendering, logging).
type View struct {
	CallID           string
	DialedNumber     string
	CallerNumber     string
	State            string
	Turn             int
	History          []Turn
	SchedulingIntent bool
	StartedAt        time.Time
}

// canTransition is the single authority on legal state changes.
func canTransition(from, to string) bool {
	switch from {
	case StateGreeting:
		return to == StateAwaitingSpeech || to == StateTerminated
	case StateAwaitingSpeech:
		return to == StateProcessing || to == StateTerminated
	case StateProcessing:
		return to == StateResponding || to == StateTerminated
	case StateResponding:
		return to == StateAwaitingSpeech || to == StateSchedulingCapture || to == StateTerminated
	case StateSchedulingCapture:
		return to == StateTerminated
	case StateTerminated:
		return false
	}
	return false
}

// Snapshot returns a copy of the session's current state and history.
func (s *CallSession) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	hist := make([]Turn, len(s.history))
	copy(hist, s.history)
	return View{
		CallID:           s.CallID,
		DialedNumber:     s.DialedNumber,
		CallerNumber:     s.CallerNumber,
		State:            s.state,
		Turn:             s.turn,
		History:          hist,
		SchedulingIntent: s.schedulingIntent,
		StartedAt:        s.startedAt,
	}
}

// State returns the current state.
func (s *CallSession) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// appendTurn adds a turn under the caller-held lock, dropping the oldest
// entries beyond the history cap to bound prompt size.
func (s *CallSession) appendTurn(role, text string) {
	s.history = append(s.history, Turn{Role: role, Text: text, CreatedAt: s.now()})
	if s.historyCap > 0 && len(s.history) > s.historyCap {
		s.history = s.history[len(s.history)-s.historyCap:]
	}
}

// MarkGreeted moves a fresh session from Greeting to AwaitingSpeech,
// recording the greeting the caller heard. Replayed start webhooks find
// the session already advanced and report ok=false.
func (s *CallSession) MarkGreeted(greeting string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !canTransition(s.state, StateAwaitingSpeech) || s.state != StateGreeting {
		return false
	}
	s.appendTurn(RoleAgent, greeting)
	s.state = StateAwaitingSpeech
	return true
}

// BeginTurn accepts a caller utterance: appends the caller turn and moves
// AwaitingSpeech to Processing. ok=false means the session was not
// waiting for speech (dup webhook or terminal state) and nothing changed.
func (s *CallSession) BeginTurn(utterance string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAwaitingSpeech || !canTransition(s.state, StateProcessing) {
		return false
	}
	s.appendTurn(RoleCaller, utterance)
	s.turn++
	s.state = StateProcessing
	return true
}

// CompleteTurn records the agent reply produced for the in-flight turn
// and advances the state machine: scheduling intent routes to
// SchedulingCapture, an exhausted turn budget terminates, otherwise the
// session waits for more speech. Returns the resulting state; when the
// turn budget terminated the call, out carries the Outcome and
// ended=true so the caller can persist it.
func (s *CallSession) CompleteTurn(reply string, intentDetected bool, maxTurns int) (state string, out Outcome, ended bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateProcessing {
		return s.state, Outcome{}, false
	}
	s.appendTurn(RoleAgent, reply)
	s.state = StateResponding

	intentJustDetected := intentDetected && !s.schedulingIntent
	if intentDetected {
		s.schedulingIntent = true
	}

	switch {
	case intentJustDetected:
		s.state = StateSchedulingCapture
	case maxTurns > 0 && s.turn >= maxTurns:
		s.terminateLocked("abandoned", false)
		return s.state, s.outcomeLocked(), true
	default:
		s.state = StateAwaitingSpeech
	}
	return s.state, Outcome{}, false
}

// CaptureScheduling records the caller's callback/service details during
// SchedulingCapture and terminates the call as resolved. ok=false means
// the session was not capturing.
func (s *CallSession) CaptureScheduling(details string) (Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSchedulingCapture {
		return Outcome{}, false
	}
	if details != "" {
		s.appendTurn(RoleCaller, details)
	}
	s.terminateLocked("resolved", true)
	return s.outcomeLocked(), true
}

// Terminate forces the session into the terminal state with the given
// resolution. The Outcome is returned only to the single caller that
// performed the transition; replays get performed=false and must not
// persist anything.
func (s *CallSession) Terminate(resolution string) (Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized || !canTransition(s.state, StateTerminated) {
		return Outcome{}, false
	}
	s.terminateLocked(resolution, false)
	return s.outcomeLocked(), true
}

// terminateLocked performs the terminal transition. Caller holds the lock.
func (s *CallSession) terminateLocked(resolution string, appointmentScheduled bool) {
	s.state = StateTerminated
	s.resolution = resolution
	s.appointmentScheduled = appointmentScheduled
	s.endedAt = s.now()
	s.finalized = true
}

// outcomeLocked builds the terminal analytics record. Caller holds the lock.
func (s *CallSession) outcomeLocked() Outcome {
	transcript := make([]Turn, len(s.history))
	copy(transcript, s.history)
	return Outcome{
		CallID:               s.CallID,
		CallerNumber:         s.CallerNumber,
		DialedNumber:         s.DialedNumber,
		DurationSeconds:      int(s.endedAt.Sub(s.startedAt) / time.Second),
		ResolutionType:       s.resolution,
		Transcript:           transcript,
		Turns:                s.turn,
		SchedulingIntent:     s.schedulingIntent,
		AppointmentScheduled: s.appointmentScheduled,
	}
}

// HistoryLen returns the current history length.
func (s *CallSession) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// Resolution returns the terminal resolution type, empty until terminated.
func (s *CallSession) Resolution() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolution
}

// endedBefore reports whether the session terminated before cutoff.
func (s *CallSession) endedBefore(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalized && s.endedAt.Before(cutoff)
}

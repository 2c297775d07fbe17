// Package webhook exposes the carrier-facing voice endpoints and
// orchestrates the per-call flow: session registry, business context,
// dialogue engine, markup rendering and outcome persistence.
package webhook

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/audio"
	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/business"
	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/config"
	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/dialogue"
	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/models"
	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/notify"
	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/outcome"
	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/resilience"
	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/session"
	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/twiml"
)

// Rate-limit action for new call sessions.
const actionSessionCreate = "session_create"

// Caller-facing sentences. Terminal markup must be deterministic per
// session so replayed webhooks get byte-identical responses.
const (
	repromptSentence     = "I'm sorry, I didn't catch that. Could you say that again?"
	holdSentence         = "One moment please."
	transferSentence     = "Let me connect you with someone who can help."
	scheduledGoodbye     = "Thank you, you're all set. Someone will call you back shortly to confirm your appointment. Goodbye."
	plainGoodbye         = "Thanks for calling. Goodbye."
	rateLimitedGoodbye   = "We're sorry, we can't take another call from this number right now. Please try again later."
	unconfiguredGreeting = "Thank you for calling. Please hold while we connect you."
)

// voiceRequest is the carrier webhook payload, accepted as form or JSON.
type voiceRequest struct {
	CallSid      string `form:"CallSid" json:"CallSid"`
	To           string `form:"To" json:"To"`
	From         string `form:"From" json:"From"`
	CallStatus   string `form:"CallStatus" json:"CallStatus"`
	SpeechResult string `form:"SpeechResult" json:"SpeechResult"`
	AudioPayload string `form:"AudioPayload" json:"AudioPayload"` // base64 mu-law frame
}

// Handler serves the voice webhooks.
type Handler struct {
	cfg      *config.Config
	registry *session.Registry
	resolver *business.Resolver
	engine   *dialogue.Engine
	outcomes *outcome.Logger
	notifier *notify.Dispatcher
	limiter  *resilience.RateLimiter
	db       *gorm.DB // call-event audit trail, optional
}

// HandlerOpts holds parameters for NewHandler.
type HandlerOpts struct {
	Config   *config.Config
	Registry *session.Registry
	Resolver *business.Resolver
	Engine   *dialogue.Engine
	Outcomes *outcome.Logger
	Notifier *notify.Dispatcher
	Limiter  *resilience.RateLimiter
	DB       *gorm.DB
}

// NewHandler creates a Handler.
func NewHandler(opts HandlerOpts) (*Handler, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("webhook: handler: config is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("webhook: handler: session registry is required")
	}
	if opts.Resolver == nil {
		return nil, fmt.Errorf("webhook: handler: business resolver is required")
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("webhook: handler: dialogue engine is required")
	}
	if opts.Outcomes == nil {
		return nil, fmt.Errorf("webhook: handler: outcome logger is required")
	}
	if opts.Limiter == nil {
		opts.Limiter = resilience.NewRateLimiter()
	}
	return &Handler{
		cfg:      opts.Config,
		registry: opts.Registry,
		resolver: opts.Resolver,
		engine:   opts.Engine,
		outcomes: opts.Outcomes,
		notifier: opts.Notifier,
		limiter:  opts.Limiter,
		db:       opts.DB,
	}, nil
}

// result is what one webhook dispatch produced: the markup to speak,
// plus the terminal outcome when this delivery performed the
// termination. The outcome is persisted after the markup is written so
// a slow store never delays the caller-facing response.
type result struct {
	markup  string
	event   string
	outcome *session.Outcome
}

// HandleVoice serves POST /webhooks/voice. Every handled call path
// answers 200 with call-control markup; a call is never dropped because
// a downstream dependency misbehaved.
func (h *Handler) HandleVoice(c *gin.Context) {
	started := time.Now()

	var req voiceRequest
	if err := c.ShouldBind(&req); err != nil {
		log.Printf("webhook: bad voice payload: %v", err)
		respondXML(c, http.StatusBadRequest, twiml.InternalError())
		return
	}
	if req.CallSid == "" {
		respondXML(c, http.StatusBadRequest, twiml.InternalError())
		return
	}

	res := h.dispatch(c.Request.Context(), req)
	respondXML(c, http.StatusOK, res.markup)

	if res.outcome != nil {
		h.finalize(*res.outcome)
	}
	h.audit(req.CallSid, res.event, started)
}

// HandleStatus serves POST /webhooks/voice/status, the carrier's
// call-progress callback. A terminal status for a live session means
// the caller hung up before the dialogue finished.
func (h *Handler) HandleStatus(c *gin.Context) {
	started := time.Now()

	var req voiceRequest
	if err := c.ShouldBind(&req); err != nil || req.CallSid == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	if isTerminalStatus(req.CallStatus) {
		if sess, ok := h.registry.Get(req.CallSid); ok {
			if out, performed := sess.Terminate(models.ResolutionAbandoned); performed {
				log.Printf("webhook: call %s: carrier reported %s mid-dialogue", req.CallSid, req.CallStatus)
				h.finalize(out)
			}
		}
	}
	c.Status(http.StatusOK)
	h.audit(req.CallSid, "status_"+req.CallStatus, started)
}

// isTerminalStatus reports whether a carrier call status ends the call.
func isTerminalStatus(status string) bool {
	switch status {
	case "completed", "busy", "failed", "no-answer", "canceled":
		return true
	}
	return false
}

// dispatch routes one voice webhook to the start or continue path.
func (h *Handler) dispatch(ctx context.Context, req voiceRequest) result {
	sess, ok := h.registry.Get(req.CallSid)
	if !ok {
		return h.startCall(ctx, req)
	}
	return h.continueCall(ctx, req, sess)
}

// startCall handles the first webhook for a call: rate limit, business
// context resolution, session creation and the greeting.
func (h *Handler) startCall(ctx context.Context, req voiceRequest) result {
	if !h.limiter.Allow(req.From, actionSessionCreate, h.cfg.RateLimit.MaxAttempts, h.cfg.RateLimitWindow()) {
		log.Printf("webhook: call %s: rate limit exceeded for %s", req.CallSid, req.From)
		return result{markup: twiml.Goodbye(rateLimitedGoodbye), event: "rate_limited"}
	}

	bc, err := h.resolver.Resolve(ctx, req.To)
	if err != nil {
		if errors.Is(err, business.ErrNotConfigured) {
			return result{markup: h.unconfiguredMarkup(), event: "not_configured"}
		}
		log.Printf("webhook: call %s: resolve %s: %v", req.CallSid, req.To, err)
		return result{markup: twiml.InternalError(), event: "resolve_error"}
	}

	sess, _, err := h.registry.GetOrCreate(req.CallSid, req.To, req.From)
	if err != nil {
		log.Printf("webhook: call %s: %v", req.CallSid, err)
		return result{markup: twiml.InternalError(), event: "session_error"}
	}
	if sess.MarkGreeted(bc.Greeting) {
		return result{markup: twiml.Greeting(bc.Greeting, h.gatherTimeout()), event: "call_start"}
	}
	// Concurrent start delivery lost the race; answer for the state the
	// winner left behind.
	return result{markup: h.renderForState(sess, bc), event: "call_start_replay"}
}

// continueCall handles every webhook after the greeting.
func (h *Handler) continueCall(ctx context.Context, req voiceRequest, sess *session.CallSession) result {
	bc := h.resolveForSession(ctx, sess)

	switch sess.State() {
	case session.StateGreeting:
		// The greeting webhook was lost; greet now.
		if sess.MarkGreeted(bc.Greeting) {
			return result{markup: twiml.Greeting(bc.Greeting, h.gatherTimeout()), event: "call_start"}
		}
		return result{markup: h.renderForState(sess, bc), event: "replay"}

	case session.StateAwaitingSpeech:
		utterance := h.utterance(req)
		if utterance == "" {
			if req.AudioPayload != "" {
				// Audio arrived without a usable transcript; keep the
				// call alive and ask again.
				return result{markup: twiml.Continue(repromptSentence, h.gatherTimeout()), event: "reprompt"}
			}
			return h.terminateSilent(sess, bc)
		}
		return h.runTurn(ctx, sess, bc, utterance)

	case session.StateSchedulingCapture:
		return h.captureScheduling(req, sess, bc)

	default:
		// Processing, Responding or Terminated: a duplicate delivery.
		// Answer idempotently for the current state.
		return result{markup: h.renderForState(sess, bc), event: "replay"}
	}
}

// runTurn executes one dialogue turn: caller utterance in, agent reply
// out. The language model runs on a snapshot outside the session lock,
// under the per-request dialogue deadline.
func (h *Handler) runTurn(ctx context.Context, sess *session.CallSession, bc *business.Context, utterance string) result {
	if !sess.BeginTurn(utterance) {
		return result{markup: h.renderForState(sess, bc), event: "replay"}
	}

	dctx, cancel := context.WithTimeout(ctx, h.cfg.DialogueDeadline())
	defer cancel()
	reply, intent, fallback := h.engine.Converse(dctx, sess.Snapshot(), bc)

	state, out, ended := sess.CompleteTurn(reply, intent, h.cfg.Conversation.MaxTurns)
	switch {
	case ended:
		// Turn budget exhausted; hand the caller to a person.
		res := result{markup: h.terminalMarkup(sess, bc), event: "max_turns"}
		res.outcome = &out
		return res
	case state == session.StateSchedulingCapture:
		return result{markup: twiml.SchedulingPrompt(reply, h.gatherTimeout()), event: "scheduling_prompt"}
	case fallback:
		return result{markup: twiml.Fallback(reply, h.gatherTimeout()), event: "fallback"}
	default:
		return result{markup: twiml.Continue(reply, h.gatherTimeout()), event: "turn"}
	}
}

// captureScheduling records the caller's callback details, books the
// appointment and ends the call.
func (h *Handler) captureScheduling(req voiceRequest, sess *session.CallSession, bc *business.Context) result {
	details := strings.TrimSpace(req.SpeechResult)
	if details == "" && req.AudioPayload == "" {
		// Silence during capture: nothing to book.
		return h.terminateSilent(sess, bc)
	}

	out, ok := sess.CaptureScheduling(details)
	if !ok {
		return result{markup: h.renderForState(sess, bc), event: "replay"}
	}
	if h.notifier != nil {
		h.notifier.NotifyAppointment(notify.Appointment{
			CallID:       out.CallID,
			CallerNumber: out.CallerNumber,
			CompanyName:  bc.CompanyName,
			Details:      details,
			BookedAt:     time.Now(),
		})
	}
	res := result{markup: twiml.Goodbye(scheduledGoodbye), event: "appointment_booked"}
	res.outcome = &out
	return res
}

// terminateSilent ends a call whose caller stopped speaking. The single
// delivery that performs the transition carries the outcome; replays
// get the same terminal markup with nothing to persist.
func (h *Handler) terminateSilent(sess *session.CallSession, bc *business.Context) result {
	out, performed := sess.Terminate(models.ResolutionAbandoned)
	res := result{markup: h.terminalMarkup(sess, bc), event: "silence_timeout"}
	if performed {
		res.outcome = &out
	}
	return res
}

// utterance extracts the caller's words from the webhook. A raw audio
// frame without a transcript is transcoded for the event log but yields
// no words; malformed audio is treated the same way.
func (h *Handler) utterance(req voiceRequest) string {
	if s := strings.TrimSpace(req.SpeechResult); s != "" {
		return s
	}
	if req.AudioPayload != "" {
		frame, err := base64.StdEncoding.DecodeString(req.AudioPayload)
		if err != nil {
			log.Printf("webhook: call %s: malformed audio payload: %v", req.CallSid, err)
			return ""
		}
		pcm := audio.Decode(frame)
		log.Printf("webhook: call %s: transcoded %d mu-law bytes to %d pcm bytes, no transcript attached",
			req.CallSid, len(frame), len(pcm))
	}
	return ""
}

// renderForState answers a duplicate or out-of-order delivery with the
// markup the session's current state calls for. Deterministic per
// state, so carrier retries hear the same thing every time.
func (h *Handler) renderForState(sess *session.CallSession, bc *business.Context) string {
	view := sess.Snapshot()
	switch view.State {
	case session.StateGreeting:
		return twiml.Greeting(bc.Greeting, h.gatherTimeout())
	case session.StateAwaitingSpeech:
		return twiml.Continue(lastAgentText(view.History), h.gatherTimeout())
	case session.StateSchedulingCapture:
		return twiml.SchedulingPrompt(lastAgentText(view.History), h.gatherTimeout())
	case session.StateProcessing, session.StateResponding:
		return twiml.Continue(holdSentence, h.gatherTimeout())
	default:
		return h.terminalMarkup(sess, bc)
	}
}

// terminalMarkup renders the closing markup for a terminated session.
func (h *Handler) terminalMarkup(sess *session.CallSession, bc *business.Context) string {
	switch sess.Resolution() {
	case models.ResolutionResolved:
		return twiml.Goodbye(scheduledGoodbye)
	case models.ResolutionTransferred, models.ResolutionAbandoned:
		if bc.EscalationNumber != "" {
			return twiml.Transfer(transferSentence, bc.EscalationNumber)
		}
		return twiml.Goodbye(plainGoodbye)
	default:
		return twiml.Goodbye(plainGoodbye)
	}
}

// unconfiguredMarkup is the static path for numbers without a dispatch
// configuration: greet, then hand off to the fallback line if one is
// configured.
func (h *Handler) unconfiguredMarkup() string {
	if n := h.cfg.Server.FallbackTransferNumber; n != "" {
		return twiml.Transfer(unconfiguredGreeting, n)
	}
	return twiml.Goodbye("Thank you for calling. We're unable to take your call right now. Goodbye.")
}

// resolveForSession re-resolves the business context mid-call. The TTL
// cache makes this a map lookup on the hot path. A failure degrades to
// an empty context rather than dropping a live call.
func (h *Handler) resolveForSession(ctx context.Context, sess *session.CallSession) *business.Context {
	bc, err := h.resolver.Resolve(ctx, sess.DialedNumber)
	if err != nil {
		if !errors.Is(err, business.ErrNotConfigured) {
			log.Printf("webhook: call %s: resolve %s mid-call: %v", sess.CallID, sess.DialedNumber, err)
		}
		return &business.Context{}
	}
	return bc
}

// finalize persists the terminal outcome. Runs after the response is
// written; a store failure is logged inside the logger and never
// affects the call.
func (h *Handler) finalize(out session.Outcome) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = h.outcomes.Record(ctx, out)
}

// audit appends one CallEvent row when an audit store is wired.
func (h *Handler) audit(callID, event string, started time.Time) {
	if h.db == nil {
		return
	}
	row := &models.CallEvent{
		CallID:    callID,
		EventType: event,
		LatencyMs: int(time.Since(started) / time.Millisecond),
	}
	if sess, ok := h.registry.Get(callID); ok {
		view := sess.Snapshot()
		row.State = view.State
		row.Turn = view.Turn
	}
	if err := h.db.Create(row).Error; err != nil {
		log.Printf("webhook: call %s: audit event %s: %v", callID, event, err)
	}
}

// gatherTimeout is the carrier speech-capture timeout in seconds.
func (h *Handler) gatherTimeout() int {
	return h.cfg.Conversation.SilenceTimeoutSeconds
}

// lastAgentText returns the most recent agent turn's text.
func lastAgentText(history []session.Turn) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == session.RoleAgent {
			return history[i].Text
		}
	}
	return holdSentence
}

// respondXML writes call-control markup with the carrier content type.
func respondXML(c *gin.Context, status int, markup string) {
	c.Data(status, "text/xml; charset=utf-8", []byte(markup))
}

// Package dialogue turns caller utterances into agent replies via the
// language-model service.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/business"
	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/resilience"
	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/session"
)

// BreakerLLM names the language-model dependency in the breaker registry.
const BreakerLLM = "llm"

// FallbackReply is spoken when the language model is unreachable. The
// caller always hears a sentence and a next action, never silence.
const FallbackReply = "I'm sorry, I'm having trouble right now. Please call back in a few minutes, or stay on the line and I'll try again."

// LanguageModel is the outbound completion service. Invoked only through
// the circuit breaker.
type LanguageModel interface {
	Complete(ctx context.Context, systemPrompt string, history []session.Turn) (string, error)
}

// Engine builds prompts, invokes the model through the resilience layer,
// and classifies scheduling intent.
type Engine struct {
	model      LanguageModel
	breakers   *resilience.Registry
	retry      resilience.RetryOpts
	wordBudget int
	historyN   int
}

// EngineOpts holds parameters for NewEngine.
type EngineOpts struct {
	Model      LanguageModel
	Breakers   *resilience.Registry
	Retry      resilience.RetryOpts
	WordBudget int // defaults to 50
	HistoryN   int // last N turns sent to the model, defaults to 10
}

// NewEngine creates an Engine.
func NewEngine(opts EngineOpts) (*Engine, error) {
	if opts.Model == nil {
		return nil, fmt.Errorf("dialogue: engine: model is required")
	}
	if opts.Breakers == nil {
		return nil, fmt.Errorf("dialogue: engine: breaker registry is required")
	}
	if opts.WordBudget <= 0 {
		opts.WordBudget = 50
	}
	if opts.HistoryN <= 0 {
		opts.HistoryN = 10
	}
	return &Engine{
		model:      opts.Model,
		breakers:   opts.Breakers,
		retry:      opts.Retry,
		wordBudget: opts.WordBudget,
		historyN:   opts.HistoryN,
	}, nil
}

// Converse produces the agent reply for the session's latest caller
// utterance. Downstream failure (circuit open, retries exhausted, or the
// request deadline) degrades to FallbackReply with fallback=true rather
// than an error: the caller-facing flow always gets something to speak.
func (e *Engine) Converse(ctx context.Context, view session.View, bc *business.Context) (reply string, schedulingIntent bool, fallback bool) {
	utterance := lastCallerUtterance(view.History)

	systemPrompt, err := BuildSystemPrompt(bc, e.wordBudget)
	if err != nil {
		log.Printf("dialogue: call %s: %v", view.CallID, err)
		return FallbackReply, DetectSchedulingIntent(utterance, ""), true
	}

	history := view.History
	if len(history) > e.historyN {
		history = history[len(history)-e.historyN:]
	}

	breaker := e.breakers.Breaker(BreakerLLM)
	var text string
	err = resilience.Retry(ctx, e.retry, func(ctx context.Context) error {
		return breaker.Do(ctx, func(ctx context.Context) error {
			var innerErr error
			text, innerErr = e.model.Complete(ctx, systemPrompt, history)
			return innerErr
		})
	})
	if err != nil {
		switch {
		case errors.Is(err, resilience.ErrCircuitOpen):
			log.Printf("dialogue: call %s: llm circuit open", view.CallID)
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
			log.Printf("dialogue: call %s: request deadline hit before model replied", view.CallID)
		default:
			log.Printf("dialogue: call %s: llm failed after retries: %v", view.CallID, err)
		}
		return FallbackReply, DetectSchedulingIntent(utterance, ""), true
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return FallbackReply, DetectSchedulingIntent(utterance, ""), true
	}
	return text, DetectSchedulingIntent(utterance, text), false
}

// lastCallerUtterance returns the text of the most recent caller turn.
func lastCallerUtterance(history []session.Turn) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == session.RoleCaller {
			return history[i].Text
		}
	}
	return ""
}

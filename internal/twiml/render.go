// Package twiml renders carrier call-control markup. Every function is
// pure: state and text in, markup string out.
package twiml

import (
	"fmt"
	"strings"
)

// Voice used for all spoken prompts.
const Voice = "alice"

// escape sanitizes text for an XML text node. Caller-visible strings
// pass through here exactly once.
func escape(text string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return r.Replace(text)
}

// gather wraps a Say in a speech-capture directive that posts the next
// utterance back to the voice webhook.
func gather(text string, timeoutSeconds int) string {
	return fmt.Sprintf(
		`<Gather input="speech" action="/webhooks/voice" method="POST" timeout="%d" speechTimeout="auto">
        <Say voice="%s">%s</Say>
    </Gather>`, timeoutSeconds, Voice, escape(text))
}

// document wraps body verbs in the response envelope.
func document(body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<Response>
    ` + body + `
</Response>`
}

// Greeting renders the opening prompt and captures the caller's first
// utterance.
func Greeting(greeting string, timeoutSeconds int) string {
	return document(gather(greeting, timeoutSeconds))
}

// Continue speaks the agent reply and captures the next utterance.
func Continue(reply string, timeoutSeconds int) string {
	return document(gather(reply, timeoutSeconds))
}

// SchedulingPrompt speaks the agent reply, then asks for the callback
// number and service type in one final capture turn.
func SchedulingPrompt(reply string, timeoutSeconds int) string {
	ask := reply + " To get that booked, please tell me the best phone number to reach you and what you need help with."
	return document(gather(ask, timeoutSeconds))
}

// Goodbye thanks the caller and hangs up.
func Goodbye(message string) string {
	return document(fmt.Sprintf(`<Say voice="%s">%s</Say>
    <Hangup/>`, Voice, escape(message)))
}

// Transfer speaks a hand-off sentence and dials the escalation number.
// The number appears only in the Dial verb, never in spoken text.
func Transfer(message, escalationNumber string) string {
	return document(fmt.Sprintf(`<Say voice="%s">%s</Say>
    <Dial>%s</Dial>`, Voice, escape(message), escape(escalationNumber)))
}

// Fallback speaks the degraded-service sentence and captures another
// utterance so the call survives a downstream outage.
func Fallback(sentence string, timeoutSeconds int) string {
	return document(gather(sentence, timeoutSeconds))
}

// InternalError is the last-resort markup when nothing else could be
// rendered: apologize and hang up rather than play dead air.
func InternalError() string {
	return Goodbye("We're sorry, something went wrong on our end. Please call back shortly.")
}

package twiml

import (
	"strings"
	"testing"
)

func TestGreeting_ContainsGreetingAndGather(t *testing.T) {
	xml := Greeting("Thanks for calling Fixlyfy Plumbing!", 5)
	for _, want := range []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		"<Response>",
		`<Gather input="speech"`,
		`action="/webhooks/voice"`,
		`timeout="5"`,
		"Thanks for calling Fixlyfy Plumbing!",
	} {
		if !strings.Contains(xml, want) {
			t.Errorf("greeting markup missing %q:\n%s", want, xml)
		}
	}
}

func TestEscape_CallerVisibleText(t *testing.T) {
	xml := Continue(`Tom & Jerry's <pipes> are "fixed"`, 5)
	for _, want := range []string{"&amp;", "&apos;", "&lt;pipes&gt;", "&quot;fixed&quot;"} {
		if !strings.Contains(xml, want) {
			t.Errorf("markup missing escaped form %q:\n%s", want, xml)
		}
	}
	for _, forbidden := range []string{"<pipes>", `"fixed"`} {
		if strings.Contains(xml, forbidden) {
			t.Errorf("markup contains unescaped %q", forbidden)
		}
	}
}

func TestSchedulingPrompt_AsksForDetails(t *testing.T) {
	xml := SchedulingPrompt("Great, I can set that up.", 5)
	if !strings.Contains(xml, "phone number") {
		t.Error("scheduling prompt does not ask for a callback number")
	}
	if !strings.Contains(xml, "what you need help with") {
		t.Error("scheduling prompt does not ask for the service type")
	}
	if !strings.Contains(xml, "<Gather") {
		t.Error("scheduling prompt must capture one more utterance")
	}
}

func TestGoodbye_HangsUp(t *testing.T) {
	xml := Goodbye("Thanks for calling, goodbye!")
	if !strings.Contains(xml, "<Hangup/>") {
		t.Error("goodbye markup missing Hangup")
	}
	if strings.Contains(xml, "<Gather") {
		t.Error("goodbye markup must not capture more speech")
	}
}

func TestTransfer_DialsEscalation(t *testing.T) {
	xml := Transfer("Let me connect you with our team.", "+15550999")
	if !strings.Contains(xml, "<Dial>+15550999</Dial>") {
		t.Errorf("transfer markup missing dial:\n%s", xml)
	}
	// The escalation number is dialed, not spoken.
	if strings.Contains(xml, "<Say voice=\"alice\">Let me connect you with our team. +15550999") {
		t.Error("escalation number leaked into spoken text")
	}
}

func TestFallback_KeepsCallAlive(t *testing.T) {
	xml := Fallback("I'm having trouble right now.", 5)
	if !strings.Contains(xml, "<Gather") {
		t.Error("fallback markup must re-prompt, not hang up")
	}
}

func TestInternalError_ValidMarkup(t *testing.T) {
	xml := InternalError()
	if !strings.Contains(xml, "<Say") || !strings.Contains(xml, "<Hangup/>") {
		t.Errorf("internal error markup incomplete:\n%s", xml)
	}
}

func TestDeterminism(t *testing.T) {
	a := Continue("same input", 5)
	b := Continue("same input", 5)
	if a != b {
		t.Error("renderer is not deterministic")
	}
}

package models

import (
	"reflect"
	"strings"
	"testing"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

// assertFieldType checks that a struct field has the expected Go type.
func assertFieldType(t *testing.T, typ reflect.Type, fieldName, expectedType string) {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	got := f.Type.String()
	if got != expectedType {
		t.Errorf("%s.%s type = %q, want %q", typ.Name(), fieldName, got, expectedType)
	}
}

func TestBusinessConfig_Fields(t *testing.T) {
	typ := reflect.TypeOf(BusinessConfig{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "PhoneNumber", "uniqueIndex")
	assertGormTag(t, typ, "PhoneNumber", "not null")
	assertGormTag(t, typ, "DispatchEnabled", "default:true")
	assertGormTag(t, typ, "CompanyName", "not null")
	assertGormTag(t, typ, "Greeting", "type:text")
	assertGormTag(t, typ, "ServiceTypes", "type:json")
	assertGormTag(t, typ, "EscalationNumber", "size:20")

	assertFieldType(t, typ, "DiagnosticPrice", "float64")
	assertFieldType(t, typ, "DispatchEnabled", "bool")
	assertFieldType(t, typ, "CreatedAt", "time.Time")
}

func TestCallOutcome_Fields(t *testing.T) {
	typ := reflect.TypeOf(CallOutcome{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "CallID", "uniqueIndex")
	assertGormTag(t, typ, "CallID", "not null")
	assertGormTag(t, typ, "CallerNumber", "index")
	assertGormTag(t, typ, "ResolutionType", "size:16")
	assertGormTag(t, typ, "Transcript", "type:mediumtext")

	assertFieldType(t, typ, "DurationSeconds", "int")
	assertFieldType(t, typ, "SchedulingIntent", "bool")
	assertFieldType(t, typ, "CustomerSatisfaction", "*int")
}

func TestResolutionConstants(t *testing.T) {
	want := map[string]string{
		ResolutionResolved:    "resolved",
		ResolutionTransferred: "transferred",
		ResolutionVoicemail:   "voicemail",
		ResolutionAbandoned:   "abandoned",
	}
	for got, expected := range want {
		if got != expected {
			t.Errorf("resolution constant = %q, want %q", got, expected)
		}
	}
}

func TestCallEvent_Fields(t *testing.T) {
	typ := reflect.TypeOf(CallEvent{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "CallID", "index")
	assertGormTag(t, typ, "EventType", "size:32")
	assertFieldType(t, typ, "LatencyMs", "int")
}

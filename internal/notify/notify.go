// Package notify fans appointment confirmations out to the office's
// chat channels. Fire-and-forget: a failed notification is logged, never
// retried, and never blocks the call flow.
package notify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// Appointment is the payload posted when a caller books a visit.
type Appointment struct {
	CallID       string
	CallerNumber string
	CompanyName  string
	Details      string
	BookedAt     time.Time
}

// Adapter posts one notification to one channel (Slack, Discord, ...).
type Adapter interface {
	// Name identifies the channel in logs.
	Name() string
	// Send posts the message.
	Send(ctx context.Context, text string) error
}

// Dispatcher fans notifications out to every configured adapter.
type Dispatcher struct {
	adapters []Adapter
}

// NewDispatcher creates a Dispatcher. Zero adapters is valid: dispatch
// becomes a no-op for installs without chat integration.
func NewDispatcher(adapters ...Adapter) *Dispatcher {
	return &Dispatcher{adapters: adapters}
}

// NotifyAppointment posts the appointment to every adapter. Each adapter
// runs in its own goroutine with its own timeout so a slow channel
// cannot delay the webhook response.
func (d *Dispatcher) NotifyAppointment(appt Appointment) {
	text := formatAppointment(appt)
	for _, a := range d.adapters {
		go func(a Adapter) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := a.Send(ctx, text); err != nil {
				log.Printf("notify: %s: appointment for call %s not delivered: %v", a.Name(), appt.CallID, err)
			}
		}(a)
	}
}

// formatAppointment builds the channel message.
func formatAppointment(appt Appointment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New appointment request: %s\n", appt.CompanyName)
	fmt.Fprintf(&b, "Caller: %s\n", appt.CallerNumber)
	if appt.Details != "" {
		fmt.Fprintf(&b, "Details: %s\n", appt.Details)
	}
	fmt.Fprintf(&b, "Booked at: %s", appt.BookedAt.Format(time.RFC1123))
	return b.String()
}

package models

import "time"

// Resolution type constants for CallOutcome.
const (
	ResolutionResolved    = "resolved"
	ResolutionTransferred = "transferred"
	ResolutionVoicemail   = "voicemail"
	ResolutionAbandoned   = "abandoned"
)

// CallOutcome is the write-once analytics record persisted when a call
// reaches a terminal state.
type CallOutcome struct {
	ID                   uint   `gorm:"primaryKey;autoIncrement"`
	CallID               string `gorm:"size:64;uniqueIndex;not null"`
	CallerNumber         string `gorm:"size:20;index"`
	DialedNumber         string `gorm:"size:20;index"`
	DurationSeconds      int
	ResolutionType       string `gorm:"size:16;index"`
	Transcript           string `gorm:"type:mediumtext"`
	Turns                int
	SchedulingIntent     bool
	AppointmentScheduled bool
	CustomerSatisfaction *int // 1-5, nullable until surveyed
	CreatedAt            time.Time
}

// CallEvent captures one webhook delivery for debugging and replay
// analysis. Append-only.
type CallEvent struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	CallID    string `gorm:"size:64;index"`
	EventType string `gorm:"size:32"`
	State     string `gorm:"size:24"`
	Turn      int
	LatencyMs int
	CreatedAt time.Time
}

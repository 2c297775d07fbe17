package models

import "time"

// BusinessConfig holds the per-phone-number AI dispatch configuration.
// One row per dialed number; written by the dashboard, read-only here.
type BusinessConfig struct {
	ID                 uint   `gorm:"primaryKey;autoIncrement"`
	PhoneNumber        string `gorm:"size:20;uniqueIndex;not null"`
	DispatchEnabled    bool   `gorm:"default:true;index"`
	CompanyName        string `gorm:"size:128;not null"`
	AgentName          string `gorm:"size:64;default:Sarah"`
	BusinessType       string `gorm:"size:64"`
	Greeting           string `gorm:"type:text"`
	DiagnosticPrice    float64
	EmergencySurcharge float64
	ServiceTypes       string `gorm:"type:json"` // JSON array of service names
	EscalationNumber   string `gorm:"size:20"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

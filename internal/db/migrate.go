package db

import (
	"fmt"

	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns every GORM model the dispatch engine migrates.
func AllModels() []interface{} {
	return []interface{}{
		&models.BusinessConfig{},
		&models.CallOutcome{},
		&models.CallEvent{},
	}
}

// AutoMigrate creates or updates all dispatch tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedBusinessConfig upserts a BusinessConfig row keyed by phone number.
// Used by tests and local bootstrap; production rows come from the
// dashboard.
func SeedBusinessConfig(db *gorm.DB, cfg models.BusinessConfig) error {
	result := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "phone_number"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"dispatch_enabled", "company_name", "agent_name", "business_type",
			"greeting", "diagnostic_price", "emergency_surcharge",
			"service_types", "escalation_number",
		}),
	}).Create(&cfg)
	if result.Error != nil {
		return fmt.Errorf("db: seed business config %q: %w", cfg.PhoneNumber, result.Error)
	}
	return nil
}

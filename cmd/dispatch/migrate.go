package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/config"
	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/db"
	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/models"
)

func newMigrateCmd() *cobra.Command {
	var (
		configPath     string
		seedNumber     string
		seedCompany    string
		seedGreeting   string
		seedEscalation string
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Long: `Runs the schema migration for all dispatch tables.

With --seed-number, also upserts a business configuration row so the
number answers calls immediately. Safe to run multiple times.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			seed := models.BusinessConfig{
				PhoneNumber:      seedNumber,
				DispatchEnabled:  true,
				CompanyName:      seedCompany,
				Greeting:         seedGreeting,
				EscalationNumber: seedEscalation,
			}
			return runMigrate(cmd.OutOrStdout(), configPath, seed)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "dispatch.yaml", "path to dispatch config file")
	cmd.Flags().StringVar(&seedNumber, "seed-number", "", "phone number to seed a business config for")
	cmd.Flags().StringVar(&seedCompany, "seed-company", "", "company name for the seeded config")
	cmd.Flags().StringVar(&seedGreeting, "seed-greeting", "", "greeting for the seeded config")
	cmd.Flags().StringVar(&seedEscalation, "seed-escalation", "", "escalation number for the seeded config")
	return cmd
}

func runMigrate(out io.Writer, configPath string, seed models.BusinessConfig) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Migrating dispatch schema...")
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintln(out, "Schema up to date")

	if seed.PhoneNumber != "" {
		if seed.CompanyName == "" {
			return fmt.Errorf("migrate: --seed-company is required with --seed-number")
		}
		if err := db.SeedBusinessConfig(gormDB, seed); err != nil {
			return err
		}
		fmt.Fprintf(out, "Seeded business config for %s (%s)\n", seed.PhoneNumber, seed.CompanyName)
	}
	return nil
}

// loadConfig loads the config file, falling back to defaults when the
// file does not exist.
func loadConfig(configPath string) (*config.Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

// connectFromConfig loads config and returns a GORM DB connection.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return cfg, gormDB, nil
}

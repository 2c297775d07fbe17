package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/models"
)

func newOutcomesCmd() *cobra.Command {
	var (
		configPath string
		limit      int
		resolution string
	)

	cmd := &cobra.Command{
		Use:   "outcomes",
		Short: "Report recent call outcomes",
		Long:  "Prints the most recent call outcomes with a per-resolution summary.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			return runOutcomes(cmd.OutOrStdout(), gormDB, limit, resolution)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "dispatch.yaml", "path to dispatch config file")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of calls to show")
	cmd.Flags().StringVarP(&resolution, "resolution", "r", "", "filter by resolution (resolved, transferred, voicemail, abandoned)")
	return cmd
}

func runOutcomes(out io.Writer, gormDB *gorm.DB, limit int, resolution string) error {
	q := gormDB.Model(&models.CallOutcome{}).Order("created_at DESC").Limit(limit)
	if resolution != "" {
		q = q.Where("resolution_type = ?", resolution)
	}
	var rows []models.CallOutcome
	if err := q.Find(&rows).Error; err != nil {
		return fmt.Errorf("outcomes: query: %w", err)
	}

	if len(rows) == 0 {
		fmt.Fprintln(out, "No call outcomes recorded")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CALL ID\tCALLER\tRESOLUTION\tTURNS\tDURATION\tBOOKED\tWHEN")
	for _, row := range rows {
		booked := ""
		if row.AppointmentScheduled {
			booked = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%ds\t%s\t%s\n",
			row.CallID, row.CallerNumber, row.ResolutionType, row.Turns,
			row.DurationSeconds, booked, row.CreatedAt.Format("2006-01-02 15:04"))
	}
	w.Flush()

	summary, err := outcomeSummary(gormDB)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nTotals: %s\n", summary)
	return nil
}

// outcomeSummary counts all outcomes per resolution type.
func outcomeSummary(gormDB *gorm.DB) (string, error) {
	type bucket struct {
		ResolutionType string
		N              int64
	}
	var buckets []bucket
	err := gormDB.Model(&models.CallOutcome{}).
		Select("resolution_type, count(*) as n").
		Group("resolution_type").
		Order("resolution_type").
		Find(&buckets).Error
	if err != nil {
		return "", fmt.Errorf("outcomes: summary: %w", err)
	}

	s := ""
	for i, b := range buckets {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s=%d", b.ResolutionType, b.N)
	}
	return s, nil
}

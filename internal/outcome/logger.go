// Package outcome persists the terminal analytics record for each call.
package outcome

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/models"
	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/session"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store persists outcome rows. Implemented by GormStore; mocked in tests.
type Store interface {
	Insert(ctx context.Context, rec *models.CallOutcome) error
}

// GormStore implements Store over the call_outcomes table.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a GormStore.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Insert writes one outcome row. The unique index on call_id makes a
// duplicate write a no-op rather than an error, so a crash between
// persist and acknowledge cannot double-count a call.
func (s *GormStore) Insert(ctx context.Context, rec *models.CallOutcome) error {
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "call_id"}},
		DoNothing: true,
	}).Create(rec)
	if result.Error != nil {
		return fmt.Errorf("outcome: insert %s: %w", rec.CallID, result.Error)
	}
	return nil
}

// Logger records session outcomes. Persistence failures are logged with
// the full record for out-of-band replay and never surfaced to the
// caller-facing flow.
type Logger struct {
	store Store
}

// NewLogger creates a Logger.
func NewLogger(store Store) (*Logger, error) {
	if store == nil {
		return nil, fmt.Errorf("outcome: logger: store is required")
	}
	return &Logger{store: store}, nil
}

// Record persists one terminal outcome. Returns the store error for
// observability; callers treat it as non-fatal.
func (l *Logger) Record(ctx context.Context, out session.Outcome) error {
	rec := &models.CallOutcome{
		CallID:               out.CallID,
		CallerNumber:         out.CallerNumber,
		DialedNumber:         out.DialedNumber,
		DurationSeconds:      out.DurationSeconds,
		ResolutionType:       out.ResolutionType,
		Transcript:           FormatTranscript(out.Transcript),
		Turns:                out.Turns,
		SchedulingIntent:     out.SchedulingIntent,
		AppointmentScheduled: out.AppointmentScheduled,
	}
	if err := l.store.Insert(ctx, rec); err != nil {
		log.Printf("outcome: persist failed for call %s (resolution=%s duration=%ds turns=%d transcript=%q): %v",
			out.CallID, out.ResolutionType, out.DurationSeconds, out.Turns, rec.Transcript, err)
		return err
	}
	log.Printf("outcome: recorded call %s resolution=%s duration=%ds turns=%d scheduling=%v",
		out.CallID, out.ResolutionType, out.DurationSeconds, out.Turns, out.SchedulingIntent)
	return nil
}

// FormatTranscript flattens a turn history into a readable transcript.
func FormatTranscript(turns []session.Turn) string {
	var b strings.Builder
	for i, turn := range turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%s] %s", turn.Role, turn.Text)
	}
	return b.String()
}

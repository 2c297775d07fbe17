package outcome

import (
	"context"
	"errors"
	"testing"

	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/models"
	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/session"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openOutcomeTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := gdb.AutoMigrate(&models.CallOutcome{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func sampleOutcome() session.Outcome {
	return session.Outcome{
		CallID:          "CA100",
		CallerNumber:    "+15550123",
		DialedNumber:    "+15550100",
		DurationSeconds: 95,
		ResolutionType:  models.ResolutionResolved,
		Transcript: []session.Turn{
			{Role: session.RoleAgent, Text: "Thanks for calling!"},
			{Role: session.RoleCaller, Text: "I need to schedule a visit"},
		},
		Turns:                1,
		SchedulingIntent:     true,
		AppointmentScheduled: true,
	}
}

func TestRecord_PersistsRow(t *testing.T) {
	gdb := openOutcomeTestDB(t)
	l, err := NewLogger(NewGormStore(gdb))
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	if err := l.Record(context.Background(), sampleOutcome()); err != nil {
		t.Fatalf("record: %v", err)
	}

	var row models.CallOutcome
	if err := gdb.Where("call_id = ?", "CA100").First(&row).Error; err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if row.DurationSeconds != 95 {
		t.Errorf("duration = %d", row.DurationSeconds)
	}
	if row.ResolutionType != models.ResolutionResolved {
		t.Errorf("resolution = %s", row.ResolutionType)
	}
	if !row.AppointmentScheduled {
		t.Error("appointment flag lost")
	}
	want := "[agent] Thanks for calling!\n[caller] I need to schedule a visit"
	if row.Transcript != want {
		t.Errorf("transcript = %q, want %q", row.Transcript, want)
	}
}

func TestRecord_DuplicateCallIDIsNoOp(t *testing.T) {
	gdb := openOutcomeTestDB(t)
	l, _ := NewLogger(NewGormStore(gdb))

	if err := l.Record(context.Background(), sampleOutcome()); err != nil {
		t.Fatalf("first record: %v", err)
	}
	dup := sampleOutcome()
	dup.DurationSeconds = 999
	if err := l.Record(context.Background(), dup); err != nil {
		t.Fatalf("duplicate record: %v", err)
	}

	var count int64
	gdb.Model(&models.CallOutcome{}).Count(&count)
	if count != 1 {
		t.Errorf("row count = %d, want 1", count)
	}
	var row models.CallOutcome
	gdb.Where("call_id = ?", "CA100").First(&row)
	if row.DurationSeconds != 95 {
		t.Errorf("duplicate overwrote original row: duration = %d", row.DurationSeconds)
	}
}

// failingStore always errors, for the degraded-persistence path.
type failingStore struct{ calls int }

func (f *failingStore) Insert(ctx context.Context, rec *models.CallOutcome) error {
	f.calls++
	return errors.New("disk full")
}

func TestRecord_StoreFailureReturnedNotPanicked(t *testing.T) {
	store := &failingStore{}
	l, _ := NewLogger(store)

	err := l.Record(context.Background(), sampleOutcome())
	if err == nil {
		t.Fatal("expected store error to surface for observability")
	}
	if store.calls != 1 {
		t.Errorf("insert calls = %d, want 1 (no internal retry)", store.calls)
	}
}

func TestFormatTranscript_Empty(t *testing.T) {
	if got := FormatTranscript(nil); got != "" {
		t.Errorf("FormatTranscript(nil) = %q, want empty", got)
	}
}

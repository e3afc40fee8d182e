package metrics

import (
	"context"
	"testing"
	"time"

	"sonardash/src/contracts"
)

// writeObservation stores one full observation (all required metrics)
// at the given time.
func writeObservation(t *testing.T, store *Store, observed time.Time) {
	t.Helper()
	var records []contracts.MetricRecord
	for _, m := range contracts.RequiredMetrics {
		records = append(records, record("proj", "main", m, 1, observed))
	}
	if err := store.WriteBatch(context.Background(), records); err != nil {
		t.Fatal(err)
	}
}

func TestCheckCoverageEmptyCache(t *testing.T) {
	store, _ := newTestStore()
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)

	report, err := store.CheckCoverage(context.Background(), "proj", "main", 30, now)
	if err != nil {
		t.Fatal(err)
	}
	if report.HasCoverage {
		t.Error("empty cache must not report coverage")
	}
	if report.Reason == "" {
		t.Error("expected a reason")
	}
}

func TestCheckCoverageFreshAndComplete(t *testing.T) {
	store, _ := newTestStore()
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		writeObservation(t, store, now.AddDate(0, 0, -i))
	}

	report, err := store.CheckCoverage(context.Background(), "proj", "main", 30, now)
	if err != nil {
		t.Fatal(err)
	}
	if !report.HasCoverage {
		t.Errorf("expected coverage, got reason %q", report.Reason)
	}
	if report.RecordCount != 5 {
		t.Errorf("RecordCount = %d, want 5", report.RecordCount)
	}
	if report.DaysSinceLatest != 0 {
		t.Errorf("DaysSinceLatest = %d, want 0", report.DaysSinceLatest)
	}
}

func TestCheckCoverageStaleData(t *testing.T) {
	store, _ := newTestStore()
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)

	// Plenty of observations, but the newest is three days old.
	for i := 3; i < 10; i++ {
		writeObservation(t, store, now.AddDate(0, 0, -i))
	}

	report, err := store.CheckCoverage(context.Background(), "proj", "main", 30, now)
	if err != nil {
		t.Fatal(err)
	}
	if report.HasCoverage {
		t.Error("stale data must not report coverage")
	}
	if report.DaysSinceLatest != 3 {
		t.Errorf("DaysSinceLatest = %d, want 3", report.DaysSinceLatest)
	}
}

func TestCheckCoverageTooSparse(t *testing.T) {
	store, _ := newTestStore()
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)

	// One fresh observation is not enough for a 90 day window that
	// needs at least nine.
	writeObservation(t, store, now)

	report, err := store.CheckCoverage(context.Background(), "proj", "main", 90, now)
	if err != nil {
		t.Fatal(err)
	}
	if report.HasCoverage {
		t.Error("sparse data must not report coverage")
	}

	// The same single observation does cover a short window.
	report, err = store.CheckCoverage(context.Background(), "proj", "main", 7, now)
	if err != nil {
		t.Fatal(err)
	}
	if !report.HasCoverage {
		t.Errorf("one fresh observation should cover 7 days, got %q", report.Reason)
	}
}

func TestCheckCoverageMissingRequiredMetrics(t *testing.T) {
	store, _ := newTestStore()
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)

	// Latest observation carries only coverage, none of the required set.
	if err := store.WriteBatch(context.Background(), []contracts.MetricRecord{
		record("proj", "main", contracts.MetricCoverage, 80, now),
	}); err != nil {
		t.Fatal(err)
	}

	report, err := store.CheckCoverage(context.Background(), "proj", "main", 7, now)
	if err != nil {
		t.Fatal(err)
	}
	if report.HasCoverage {
		t.Error("observation missing required metrics must not report coverage")
	}
	if len(report.MissingMetrics) != len(contracts.RequiredMetrics) {
		t.Errorf("MissingMetrics has %d entries, want %d", len(report.MissingMetrics), len(contracts.RequiredMetrics))
	}
}

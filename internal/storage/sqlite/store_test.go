package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/fidde/drift_monitor/pkg/models"
)

func setupStore(t *testing.T) *Store {
	t.Helper()

	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func report(id, modelID string, createdAt time.Time) *models.DriftReport {
	return &models.DriftReport{
		ID:                   id,
		ModelID:              modelID,
		Timestamp:            createdAt,
		CreatedAt:            createdAt,
		OverallDriftDetected: true,
		OverallSeverity:      models.SeverityModerate,
		FeatureDriftResults: []*models.DriftResult{
			{
				FeatureName:   "income",
				FeatureType:   models.FeatureNumerical,
				DriftScore:    0.42,
				Threshold:     0.1,
				DriftDetected: true,
				Severity:      models.SeverityModerate,
			},
		},
		SummaryStatistics: &models.ReportSummary{TotalFeaturesAnalyzed: 1, FeaturesWithDrift: 1},
		BaselinePeriod:    "training_data",
		CurrentPeriod:     "last_24h",
	}
}

func TestAppendAndLatestRoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	original := report("drift_report_1_20260101_000000", "model_a", now)
	if err := store.Append(ctx, original); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	got, err := store.Latest(ctx, "model_a")
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}

	if got.ID != original.ID {
		t.Errorf("ID = %q, want %q", got.ID, original.ID)
	}
	if !got.OverallDriftDetected || got.OverallSeverity != models.SeverityModerate {
		t.Errorf("flags lost in round trip: %+v", got)
	}
	if len(got.FeatureDriftResults) != 1 {
		t.Fatalf("got %d feature results, want 1", len(got.FeatureDriftResults))
	}
	if got.FeatureDriftResults[0].DriftScore != 0.42 {
		t.Errorf("DriftScore = %v, want 0.42", got.FeatureDriftResults[0].DriftScore)
	}
	if got.SummaryStatistics == nil || got.SummaryStatistics.FeaturesWithDrift != 1 {
		t.Errorf("summary lost in round trip: %+v", got.SummaryStatistics)
	}
}

func TestAppendRejectsDuplicateID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := store.Append(ctx, report("r1", "m", now)); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := store.Append(ctx, report("r1", "m", now)); err == nil {
		t.Error("expected error for duplicate id")
	}
}

func TestLatestNotFound(t *testing.T) {
	store := setupStore(t)

	if _, err := store.Latest(context.Background(), "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("Latest() error = %v, want ErrNotFound", err)
	}
}

func TestListFilters(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, r := range []*models.DriftReport{
		report("r1", "model_a", now.Add(-1*time.Hour)),
		report("r2", "model_a", now.Add(-2*time.Hour)),
		report("r3", "model_b", now.Add(-3*time.Hour)),
		report("r4", "model_a", now.Add(-48*time.Hour)),
	} {
		if err := store.Append(ctx, r); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	all, err := store.List(ctx, models.ReportFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 4 || all[0].ID != "r1" {
		t.Errorf("List() = %d reports, first %q; want 4 newest first", len(all), all[0].ID)
	}

	filtered, err := store.List(ctx, models.ReportFilter{
		ModelID: "model_a",
		Since:   now.Add(-24 * time.Hour),
		Limit:   1,
	})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != "r1" {
		t.Errorf("filtered List() = %v, want [r1]", filtered)
	}
}

func TestDeleteBeforeAndCount(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	store.Append(ctx, report("old", "m", now.AddDate(0, 0, -120)))
	store.Append(ctx, report("new", "m", now))

	deleted, err := store.DeleteBefore(ctx, now.AddDate(0, 0, -90))
	if err != nil {
		t.Fatalf("DeleteBefore() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d, want 1", count)
	}
}

func TestModelIDsAndClear(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	store.Append(ctx, report("r1", "model_b", now))
	store.Append(ctx, report("r2", "model_a", now))

	ids, err := store.ModelIDs(ctx)
	if err != nil {
		t.Fatalf("ModelIDs() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != "model_a" {
		t.Errorf("ModelIDs() = %v, want [model_a model_b]", ids)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	count, _ := store.Count(ctx)
	if count != 0 {
		t.Errorf("Count() after Clear = %d, want 0", count)
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	ctx := context.Background()

	store, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := store.Append(ctx, report("r1", "model_a", time.Now().UTC())); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("New() after reopen error = %v", err)
	}
	defer reopened.Close()

	count, err := reopened.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() after reopen = %d, want 1", count)
	}
}

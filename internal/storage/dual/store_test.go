package dual

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fidde/drift_monitor/internal/storage/memory"
	"github.com/fidde/drift_monitor/pkg/models"
)

// failingBackend wraps a memory store and fails every write.
type failingBackend struct {
	*memory.Store
}

func (f *failingBackend) Append(ctx context.Context, report *models.DriftReport) error {
	return errors.New("disk full")
}

func (f *failingBackend) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, errors.New("disk full")
}

func report(id, modelID string, createdAt time.Time) *models.DriftReport {
	return &models.DriftReport{
		ID:        id,
		ModelID:   modelID,
		Timestamp: createdAt,
		CreatedAt: createdAt,
	}
}

func TestWritesReachBothBackends(t *testing.T) {
	ctx := context.Background()
	primary := memory.New()
	secondary := memory.New()

	store, err := New(ctx, Config{Primary: primary, Secondary: secondary})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := store.Append(ctx, report("r1", "m", time.Now().UTC())); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	for name, backend := range map[string]Backend{"primary": primary, "secondary": secondary} {
		count, err := backend.Count(ctx)
		if err != nil {
			t.Fatalf("Count(%s) error = %v", name, err)
		}
		if count != 1 {
			t.Errorf("%s count = %d, want 1", name, count)
		}
	}
}

func TestSecondaryFailureDoesNotSurface(t *testing.T) {
	ctx := context.Background()
	primary := memory.New()
	secondary := &failingBackend{memory.New()}

	store, err := New(ctx, Config{Primary: primary, Secondary: secondary})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := store.Append(ctx, report("r1", "m", time.Now().UTC())); err != nil {
		t.Errorf("Append() error = %v, secondary failure must be absorbed", err)
	}

	count, _ := primary.Count(ctx)
	if count != 1 {
		t.Errorf("primary count = %d, want 1", count)
	}

	latest, err := store.Latest(ctx, "m")
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if latest.ID != "r1" {
		t.Errorf("Latest().ID = %q, want r1", latest.ID)
	}
}

func TestHydratesPrimaryFromSecondary(t *testing.T) {
	ctx := context.Background()
	secondary := memory.New()
	if err := secondary.Append(ctx, report("r1", "m", time.Now().UTC())); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	store, err := New(ctx, Config{Primary: memory.New(), Secondary: secondary})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("primary count after hydration = %d, want 1", count)
	}
}

func TestDeleteBeforePrunesBoth(t *testing.T) {
	ctx := context.Background()
	primary := memory.New()
	secondary := memory.New()

	store, err := New(ctx, Config{Primary: primary, Secondary: secondary})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

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

	secondaryCount, _ := secondary.Count(ctx)
	if secondaryCount != 1 {
		t.Errorf("secondary count = %d, want 1", secondaryCount)
	}
}

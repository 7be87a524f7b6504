// Package memory provides an in-memory report backend.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fidde/drift_monitor/pkg/models"
)

// Store is an in-memory, append-only report backend.
type Store struct {
	mu      sync.RWMutex
	reports []*models.DriftReport
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{}
}

// Append stores a report.
func (s *Store) Append(ctx context.Context, report *models.DriftReport) error {
	if report == nil {
		return errors.New("report cannot be nil")
	}
	if report.ID == "" {
		return errors.New("report id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.reports = append(s.reports, report)
	return nil
}

// List returns reports matching the filter, newest first by creation time.
func (s *Store) List(ctx context.Context, filter models.ReportFilter) ([]*models.DriftReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.DriftReport, 0, len(s.reports))
	for _, report := range s.reports {
		if filter.ModelID != "" && report.ModelID != filter.ModelID {
			continue
		}
		if !filter.Since.IsZero() && report.CreatedAt.Before(filter.Since) {
			continue
		}
		matched = append(matched, report)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// Latest returns the most recent report for a model.
func (s *Store) Latest(ctx context.Context, modelID string) (*models.DriftReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.DriftReport
	for _, report := range s.reports {
		if report.ModelID != modelID {
			continue
		}
		if latest == nil || report.CreatedAt.After(latest.CreatedAt) {
			latest = report
		}
	}

	if latest == nil {
		return nil, fmt.Errorf("model %s: %w", modelID, models.ErrNotFound)
	}
	return latest, nil
}

// DeleteBefore removes reports created before cutoff.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.reports[:0]
	for _, report := range s.reports {
		if !report.CreatedAt.Before(cutoff) {
			kept = append(kept, report)
		}
	}

	deleted := len(s.reports) - len(kept)
	s.reports = kept
	return deleted, nil
}

// Count returns the total number of stored reports.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports), nil
}

// ModelIDs returns the distinct model ids present in the store, sorted.
func (s *Store) ModelIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, report := range s.reports {
		seen[report.ModelID] = struct{}{}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Clear removes all stored data.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = nil
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// Package dual provides a backend that keeps an authoritative in-memory copy
// mirrored to a durable backend. Reads always come from the primary; a failed
// mirror write degrades durability but never loses the in-memory report.
package dual

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fidde/drift_monitor/pkg/models"
)

// Backend is the subset of report backend operations the dual store wraps.
type Backend interface {
	Append(ctx context.Context, report *models.DriftReport) error
	List(ctx context.Context, filter models.ReportFilter) ([]*models.DriftReport, error)
	Latest(ctx context.Context, modelID string) (*models.DriftReport, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
	Count(ctx context.Context) (int, error)
	ModelIDs(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
	Close() error
}

// Store wraps two report backends. Writes go to both primary and secondary;
// reads come from primary only. Secondary errors are logged, not returned.
type Store struct {
	primary   Backend
	secondary Backend
	logger    *slog.Logger
}

// Config holds dual store configuration.
type Config struct {
	Primary   Backend
	Secondary Backend
	Logger    *slog.Logger
}

// New creates a dual store and hydrates the primary with whatever the
// secondary already holds, so reports survive a restart.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Store{
		primary:   cfg.Primary,
		secondary: cfg.Secondary,
		logger:    cfg.Logger,
	}

	existing, err := s.secondary.List(ctx, models.ReportFilter{})
	if err != nil {
		return nil, fmt.Errorf("loading reports from durable backend: %w", err)
	}
	for _, report := range existing {
		if err := s.primary.Append(ctx, report); err != nil {
			return nil, fmt.Errorf("hydrating primary backend: %w", err)
		}
	}
	if len(existing) > 0 {
		s.logger.Info("loaded drift reports from durable backend", "count", len(existing))
	}

	return s, nil
}

// dualWrite runs a write on both backends. The primary determines the
// outcome; a secondary failure is logged and absorbed.
func (s *Store) dualWrite(op string, primaryWrite, secondaryWrite func() error) error {
	if err := primaryWrite(); err != nil {
		return err
	}

	if err := secondaryWrite(); err != nil {
		s.logger.Error("write to durable backend failed",
			"operation", op,
			"error", err,
		)
	}
	return nil
}

// Append stores a report in both backends.
func (s *Store) Append(ctx context.Context, report *models.DriftReport) error {
	return s.dualWrite("Append",
		func() error { return s.primary.Append(ctx, report) },
		func() error { return s.secondary.Append(ctx, report) },
	)
}

// List returns reports from the primary backend only.
func (s *Store) List(ctx context.Context, filter models.ReportFilter) ([]*models.DriftReport, error) {
	return s.primary.List(ctx, filter)
}

// Latest returns the most recent report for a model from the primary backend.
func (s *Store) Latest(ctx context.Context, modelID string) (*models.DriftReport, error) {
	return s.primary.Latest(ctx, modelID)
}

// DeleteBefore prunes both backends. The primary's count is returned.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	deleted, err := s.primary.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if _, err := s.secondary.DeleteBefore(ctx, cutoff); err != nil {
		s.logger.Error("write to durable backend failed",
			"operation", "DeleteBefore",
			"error", err,
		)
	}
	return deleted, nil
}

// Count returns the report count from the primary backend.
func (s *Store) Count(ctx context.Context) (int, error) {
	return s.primary.Count(ctx)
}

// ModelIDs returns the distinct model ids from the primary backend.
func (s *Store) ModelIDs(ctx context.Context) ([]string, error) {
	return s.primary.ModelIDs(ctx)
}

// Clear clears both backends.
func (s *Store) Clear(ctx context.Context) error {
	return s.dualWrite("Clear",
		func() error { return s.primary.Clear(ctx) },
		func() error { return s.secondary.Clear(ctx) },
	)
}

// Close closes both backends.
func (s *Store) Close() error {
	perr := s.primary.Close()
	serr := s.secondary.Close()
	if perr != nil {
		return perr
	}
	return serr
}

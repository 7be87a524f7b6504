// Package storage defines the storage interfaces for drift monitoring and the
// report store built on top of them.
package storage

import (
	"context"
	"time"

	"github.com/fidde/drift_monitor/pkg/models"
)

// Backend is the interface for persisting drift reports.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Append stores a report. Reports are append-only: the same id is never
	// written twice and stored reports are never mutated.
	Append(ctx context.Context, report *models.DriftReport) error

	// List returns reports matching the filter, newest first by creation time.
	List(ctx context.Context, filter models.ReportFilter) ([]*models.DriftReport, error)

	// Latest returns the most recent report for a model, or ErrNotFound.
	Latest(ctx context.Context, modelID string) (*models.DriftReport, error)

	// DeleteBefore removes reports created before cutoff and returns how many
	// were deleted.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)

	// Count returns the total number of stored reports.
	Count(ctx context.Context) (int, error)

	// ModelIDs returns the distinct model ids present in the store.
	ModelIDs(ctx context.Context) ([]string, error)

	// Clear removes all data.
	Clear(ctx context.Context) error

	// Close releases backend resources (e.g. DB connections).
	Close() error
}

// BaselineSource supplies the reference distribution summaries drift checks
// compare against. Baselines are produced by collaborators and are read-only
// to the drift core.
type BaselineSource interface {
	// Baseline returns the active baseline for a model, or ErrNotFound.
	Baseline(ctx context.Context, modelID string) (*models.Baseline, error)

	// ListModels returns the ids of all models that have a baseline.
	ListModels(ctx context.Context) ([]string, error)
}

// LogSource supplies serving-time inference observations.
type LogSource interface {
	// Logs returns up to limit inference logs for a model, newest first.
	Logs(ctx context.Context, modelID string, limit int) ([]*models.InferenceLog, error)
}

// Package sqlite provides a SQLite-backed report backend.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fidde/drift_monitor/pkg/models"
	_ "modernc.org/sqlite"
)

//go:embed migrations/001_initial_schema.up.sql
var migrationSQL string

// Store is a SQLite-backed, append-only drift report backend. Reports are
// stored as JSON with the id, model id and creation time lifted into indexed
// columns for filtering.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set pragmas for performance
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000", // 64MB cache
		"PRAGMA temp_store=MEMORY",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	if _, err := db.Exec(migrationSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Append stores a report.
func (s *Store) Append(ctx context.Context, report *models.DriftReport) error {
	if report == nil {
		return errors.New("report cannot be nil")
	}
	if report.ID == "" {
		return errors.New("report id cannot be empty")
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO drift_reports (id, model_id, created_at, report) VALUES (?, ?, ?, ?)`,
		report.ID, report.ModelID, report.CreatedAt.UTC().UnixNano(), string(data),
	)
	if err != nil {
		return fmt.Errorf("inserting report: %w", err)
	}
	return nil
}

// List returns reports matching the filter, newest first by creation time.
func (s *Store) List(ctx context.Context, filter models.ReportFilter) ([]*models.DriftReport, error) {
	query := `SELECT report FROM drift_reports WHERE 1=1`
	args := []any{}

	if filter.ModelID != "" {
		query += ` AND model_id = ?`
		args = append(args, filter.ModelID)
	}
	if !filter.Since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC().UnixNano())
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying reports: %w", err)
	}
	defer rows.Close()

	var reports []*models.DriftReport
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning report: %w", err)
		}

		var report models.DriftReport
		if err := json.Unmarshal([]byte(data), &report); err != nil {
			return nil, fmt.Errorf("unmarshaling report: %w", err)
		}
		reports = append(reports, &report)
	}
	return reports, rows.Err()
}

// Latest returns the most recent report for a model.
func (s *Store) Latest(ctx context.Context, modelID string) (*models.DriftReport, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT report FROM drift_reports WHERE model_id = ? ORDER BY created_at DESC LIMIT 1`,
		modelID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("model %s: %w", modelID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest report: %w", err)
	}

	var report models.DriftReport
	if err := json.Unmarshal([]byte(data), &report); err != nil {
		return nil, fmt.Errorf("unmarshaling report: %w", err)
	}
	return &report, nil
}

// DeleteBefore removes reports created before cutoff.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM drift_reports WHERE created_at < ?`,
		cutoff.UTC().UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting reports: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted rows: %w", err)
	}
	return int(deleted), nil
}

// Count returns the total number of stored reports.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM drift_reports`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting reports: %w", err)
	}
	return count, nil
}

// ModelIDs returns the distinct model ids present in the store, sorted.
func (s *Store) ModelIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT model_id FROM drift_reports ORDER BY model_id`)
	if err != nil {
		return nil, fmt.Errorf("querying model ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning model id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Clear removes all stored data.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM drift_reports`); err != nil {
		return fmt.Errorf("clearing reports: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

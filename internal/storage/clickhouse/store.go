// Package clickhouse provides a ClickHouse-backed report backend for
// deployments that keep long drift histories.
package clickhouse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/fidde/drift_monitor/pkg/models"
)

// Store is a ClickHouse-backed, append-only drift report backend. The full
// report is stored as JSON next to the columns queries filter and order on.
type Store struct {
	conn driver.Conn
}

// New connects to ClickHouse and initializes the schema.
func New(ctx context.Context, config *ConnectionConfig) (*Store, error) {
	conn, err := Connect(ctx, config)
	if err != nil {
		return nil, err
	}

	if err := InitializeSchema(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &Store{conn: conn}, nil
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

	detected := uint8(0)
	if report.OverallDriftDetected {
		detected = 1
	}

	err = s.conn.Exec(ctx,
		`INSERT INTO drift_reports (id, model_id, created_at, drift_detected, severity, report) VALUES (?, ?, ?, ?, ?, ?)`,
		report.ID, report.ModelID, report.CreatedAt.UTC(), detected, string(report.OverallSeverity), string(data),
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
		args = append(args, filter.Since.UTC())
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, filter.Limit)
	}

	rows, err := s.conn.Query(ctx, query, args...)
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
	reports, err := s.List(ctx, models.ReportFilter{ModelID: modelID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, fmt.Errorf("model %s: %w", modelID, models.ErrNotFound)
	}
	return reports[0], nil
}

// DeleteBefore removes reports created before cutoff. ClickHouse deletes are
// asynchronous mutations, so the affected count is computed up front.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	var count uint64
	row := s.conn.QueryRow(ctx,
		`SELECT count() FROM drift_reports WHERE created_at < ?`, cutoff.UTC())
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("counting expired reports: %w", err)
	}
	if count == 0 {
		return 0, nil
	}

	err := s.conn.Exec(ctx,
		`ALTER TABLE drift_reports DELETE WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("deleting reports: %w", err)
	}
	return int(count), nil
}

// Count returns the total number of stored reports.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count uint64
	row := s.conn.QueryRow(ctx, `SELECT count() FROM drift_reports`)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("counting reports: %w", err)
	}
	return int(count), nil
}

// ModelIDs returns the distinct model ids present in the store, sorted.
func (s *Store) ModelIDs(ctx context.Context) ([]string, error) {
	rows, err := s.conn.Query(ctx, `SELECT DISTINCT model_id FROM drift_reports ORDER BY model_id`)
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
	if err := s.conn.Exec(ctx, `TRUNCATE TABLE drift_reports`); err != nil {
		return fmt.Errorf("clearing reports: %w", err)
	}
	return nil
}

// Close closes the connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

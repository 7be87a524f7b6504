package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/fidde/drift_monitor/pkg/models"
)

// ReportStore is the durable, append-only store of drift reports. It wraps a
// Backend with id generation and the history, trend, alert, summary and
// retention queries.
//
// Store and Cleanup serialize on a single mutex so a manual check running
// concurrently with the scheduled loop cannot interleave with a store or
// prune and lose an update. Reads take no lock here; backends are safe for
// concurrent use.
type ReportStore struct {
	mu      sync.Mutex
	backend Backend
	seq     int64
	logger  *slog.Logger
}

// NewReportStore creates a report store on top of a backend. The id sequence
// continues from the number of reports already present.
func NewReportStore(ctx context.Context, backend Backend, logger *slog.Logger) (*ReportStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	count, err := backend.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting existing reports: %w", err)
	}

	return &ReportStore{
		backend: backend,
		seq:     int64(count),
		logger:  logger,
	}, nil
}

// Store assigns the report a unique id and creation timestamp, appends it and
// returns the id.
func (rs *ReportStore) Store(ctx context.Context, report *models.DriftReport) (string, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	now := time.Now().UTC()
	rs.seq++
	report.ID = fmt.Sprintf("drift_report_%d_%s", rs.seq, now.Format("20060102_150405"))
	report.CreatedAt = now

	if err := rs.backend.Append(ctx, report); err != nil {
		rs.seq--
		return "", fmt.Errorf("storing drift report: %w", err)
	}

	rs.logger.Info("stored drift report",
		"report_id", report.ID,
		"model_id", report.ModelID,
		"drift_detected", report.OverallDriftDetected,
		"severity", report.OverallSeverity,
	)
	return report.ID, nil
}

// History returns reports created within the last days, optionally filtered
// by model, newest first, truncated to limit.
func (rs *ReportStore) History(ctx context.Context, modelID string, days, limit int) ([]*models.DriftReport, error) {
	return rs.backend.List(ctx, models.ReportFilter{
		ModelID: modelID,
		Since:   time.Now().UTC().AddDate(0, 0, -days),
		Limit:   limit,
	})
}

// Latest returns the newest report for a model, or ErrNotFound.
func (rs *ReportStore) Latest(ctx context.Context, modelID string) (*models.DriftReport, error) {
	return rs.backend.Latest(ctx, modelID)
}

// FeatureTrends returns the historical drift measurements of one feature,
// ascending by timestamp.
func (rs *ReportStore) FeatureTrends(ctx context.Context, modelID, featureName string, days int) ([]*models.TrendPoint, error) {
	trends, err := rs.AllFeatureTrends(ctx, modelID, days)
	if err != nil {
		return nil, err
	}
	return trends[featureName], nil
}

// AllFeatureTrends returns the drift trend of every feature seen in the
// model's reports, each ascending by timestamp.
func (rs *ReportStore) AllFeatureTrends(ctx context.Context, modelID string, days int) (map[string][]*models.TrendPoint, error) {
	reports, err := rs.History(ctx, modelID, days, maxQueryReports)
	if err != nil {
		return nil, err
	}

	trends := make(map[string][]*models.TrendPoint)
	for _, report := range reports {
		for _, result := range report.FeatureDriftResults {
			trends[result.FeatureName] = append(trends[result.FeatureName], &models.TrendPoint{
				Timestamp:       report.CreatedAt,
				DriftScore:      result.DriftScore,
				Threshold:       result.Threshold,
				DriftDetected:   result.DriftDetected,
				Severity:        result.Severity,
				FeatureType:     result.FeatureType,
				BaselineSamples: result.BaselineSamples,
				CurrentSamples:  result.CurrentSamples,
			})
		}
	}

	for _, points := range trends {
		sort.Slice(points, func(i, j int) bool {
			return points[i].Timestamp.Before(points[j].Timestamp)
		})
	}
	return trends, nil
}

// Alerts derives alerts from reports within the lookback window whose overall
// severity meets the threshold and that actually detected drift. Alerts are
// ordered by severity descending, then creation time descending.
func (rs *ReportStore) Alerts(ctx context.Context, threshold models.Severity, lookback time.Duration) ([]*models.DriftAlert, error) {
	reports, err := rs.backend.List(ctx, models.ReportFilter{
		Since: time.Now().UTC().Add(-lookback),
	})
	if err != nil {
		return nil, err
	}

	var alerts []*models.DriftAlert
	for _, report := range reports {
		if !report.OverallDriftDetected {
			continue
		}
		if !report.OverallSeverity.AtLeast(threshold) {
			continue
		}
		alerts = append(alerts, &models.DriftAlert{
			AlertID:           "drift_alert_" + report.ID,
			ModelID:           report.ModelID,
			Severity:          report.OverallSeverity,
			DriftDetectedAt:   report.CreatedAt,
			FeaturesWithDrift: report.DriftedFeatures(),
			SummaryStatistics: report.SummaryStatistics,
			ReportID:          report.ID,
		})
	}

	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].Severity.Rank() != alerts[j].Severity.Rank() {
			return alerts[i].Severity.Rank() > alerts[j].Severity.Rank()
		}
		return alerts[i].DriftDetectedAt.After(alerts[j].DriftDetectedAt)
	})
	return alerts, nil
}

// Summary aggregates the reports of the last days, optionally for one model.
func (rs *ReportStore) Summary(ctx context.Context, modelID string, days int) (*models.DriftSummary, error) {
	reports, err := rs.History(ctx, modelID, days, maxQueryReports)
	if err != nil {
		return nil, err
	}

	summary := &models.DriftSummary{
		SeverityDistribution: make(map[models.Severity]int),
		AnalysisPeriodDays:   days,
	}
	if len(reports) == 0 {
		return summary, nil
	}

	modelsSeen := make(map[string]struct{})
	modelsWithDrift := make(map[string]struct{})
	totalFeatures := 0

	for _, report := range reports {
		modelsSeen[report.ModelID] = struct{}{}
		summary.SeverityDistribution[report.OverallSeverity]++
		totalFeatures += len(report.FeatureDriftResults)

		if report.OverallDriftDetected {
			summary.DriftDetectedCount++
			modelsWithDrift[report.ModelID] = struct{}{}
		}
	}

	summary.TotalReports = len(reports)
	summary.DriftDetectionRate = float64(summary.DriftDetectedCount) / float64(len(reports))
	summary.AverageFeaturesAnalyzed = float64(totalFeatures) / float64(len(reports))
	summary.UniqueModelsAnalyzed = len(modelsSeen)

	mostCommon := models.SeverityNone
	best := 0
	for severity, count := range summary.SeverityDistribution {
		if count > best || (count == best && severity.Rank() > mostCommon.Rank()) {
			mostCommon = severity
			best = count
		}
	}
	summary.MostCommonSeverity = mostCommon

	for id := range modelsWithDrift {
		summary.ModelsWithDrift = append(summary.ModelsWithDrift, id)
	}
	sort.Strings(summary.ModelsWithDrift)

	return summary, nil
}

// Cleanup removes all reports older than daysToKeep and returns how many were
// deleted. Running it twice with the same retention deletes nothing further.
func (rs *ReportStore) Cleanup(ctx context.Context, daysToKeep int) (int, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	cutoff := time.Now().UTC().AddDate(0, 0, -daysToKeep)
	deleted, err := rs.backend.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleaning up drift reports: %w", err)
	}

	if deleted > 0 {
		rs.logger.Info("cleaned up old drift reports", "deleted", deleted, "days_kept", daysToKeep)
	}
	return deleted, nil
}

// Close closes the underlying backend.
func (rs *ReportStore) Close() error {
	return rs.backend.Close()
}

// maxQueryReports bounds how many reports a derived query walks.
const maxQueryReports = 1000

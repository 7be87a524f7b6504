// Package scheduler drives periodic drift checks: it finds models whose last
// report has gone stale, runs detection, persists the reports and prunes old
// ones. Manual checks reuse the same detect-and-store path.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fidde/drift_monitor/internal/detector"
	"github.com/fidde/drift_monitor/internal/storage"
	"github.com/fidde/drift_monitor/pkg/models"
)

// Config holds scheduler settings.
type Config struct {
	// CheckIntervalHours is both the pass interval and the staleness bound:
	// a model is due when its newest report is older than this.
	CheckIntervalHours int

	// RetentionDays bounds how long reports are kept.
	RetentionDays int

	// ErrorBackoff is how long the loop waits after a pass-level failure.
	ErrorBackoff time.Duration
}

// DefaultConfig returns the default scheduler settings.
func DefaultConfig() Config {
	return Config{
		CheckIntervalHours: 24,
		RetentionDays:      90,
		ErrorBackoff:       5 * time.Minute,
	}
}

// Status is a point-in-time snapshot of the scheduler.
type Status struct {
	Running            bool      `json:"running"`
	CheckIntervalHours int       `json:"check_interval_hours"`
	LastPassStarted    time.Time `json:"last_pass_started,omitempty"`
	PassesCompleted    int       `json:"passes_completed"`
}

// Scheduler owns the background check loop. Start and Stop are idempotent.
type Scheduler struct {
	config    Config
	detector  *detector.Detector
	reports   *storage.ReportStore
	baselines storage.BaselineSource
	logger    *slog.Logger

	mu          sync.Mutex
	running     bool
	cancel      context.CancelFunc
	done        chan struct{}
	lastPassRun time.Time
	passCount   int
}

// New creates a scheduler.
func New(config Config, det *detector.Detector, reports *storage.ReportStore, baselines storage.BaselineSource, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if config.ErrorBackoff <= 0 {
		config.ErrorBackoff = 5 * time.Minute
	}
	return &Scheduler{
		config:    config,
		detector:  det,
		reports:   reports,
		baselines: baselines,
		logger:    logger,
	}
}

// Start launches the background loop. A no-op when already running.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Warn("drift scheduler is already running")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx)
	s.logger.Info("started drift scheduler", "interval_hours", s.config.CheckIntervalHours)
}

// Stop cancels the loop's pending wait and blocks until in-flight work has
// finished. A no-op when already stopped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done
	s.logger.Info("stopped drift scheduler")
}

// Status reports whether the loop is running and when the last pass started.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Status{
		Running:            s.running,
		CheckIntervalHours: s.config.CheckIntervalHours,
		LastPassStarted:    s.lastPassRun,
		PassesCompleted:    s.passCount,
	}
}

// run is the loop body: check stale models, prune old reports, sleep for the
// interval. A pass-level failure backs the loop off instead of killing it.
func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	for {
		s.mu.Lock()
		s.lastPassRun = time.Now().UTC()
		s.mu.Unlock()

		wait := time.Duration(s.config.CheckIntervalHours) * time.Hour
		if err := s.runScheduledChecks(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("drift scheduler pass failed", "error", err)
			wait = s.config.ErrorBackoff
		} else {
			s.cleanupOldReports(ctx)
			s.mu.Lock()
			s.passCount++
			s.mu.Unlock()
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// runScheduledChecks runs one sequential pass over all stale models.
// Per-model failures are logged and skipped; they are retried next pass.
func (s *Scheduler) runScheduledChecks(ctx context.Context) error {
	modelIDs, err := s.staleModels(ctx)
	if err != nil {
		return fmt.Errorf("finding models requiring drift check: %w", err)
	}
	if len(modelIDs) == 0 {
		s.logger.Debug("no models require drift checking")
		return nil
	}

	s.logger.Info("running drift checks", "models", len(modelIDs))

	successful, failed := 0, 0
	for _, modelID := range modelIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := s.checkModel(ctx, modelID, s.config.CheckIntervalHours); err != nil {
			s.logger.Error("drift check failed", "model_id", modelID, "error", err)
			failed++
			continue
		}
		successful++
	}

	s.logger.Info("completed drift checks", "successful", successful, "failed", failed)
	return nil
}

// staleModels returns the models whose newest report is older than the check
// interval, or that have no report at all.
func (s *Scheduler) staleModels(ctx context.Context) ([]string, error) {
	modelIDs, err := s.baselines.ListModels(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().UTC().Add(-time.Duration(s.config.CheckIntervalHours) * time.Hour)

	var stale []string
	for _, modelID := range modelIDs {
		latest, err := s.reports.Latest(ctx, modelID)
		if err != nil {
			// No report yet counts as stale.
			stale = append(stale, modelID)
			continue
		}
		if latest.CreatedAt.Before(cutoff) {
			stale = append(stale, modelID)
		}
	}
	return stale, nil
}

// checkModel runs detection for one model and persists the report.
func (s *Scheduler) checkModel(ctx context.Context, modelID string, windowHours int) (*models.CheckResult, error) {
	report, err := s.detector.DetectModelDrift(ctx, modelID, windowHours)
	if err != nil {
		return nil, err
	}

	reportID, err := s.reports.Store(ctx, report)
	if err != nil {
		return nil, err
	}

	return &models.CheckResult{
		ModelID:          modelID,
		ReportID:         reportID,
		DriftDetected:    report.OverallDriftDetected,
		Severity:         report.OverallSeverity,
		FeaturesAnalyzed: len(report.FeatureDriftResults),
		Timestamp:        report.Timestamp,
	}, nil
}

func (s *Scheduler) cleanupOldReports(ctx context.Context) {
	if _, err := s.reports.Cleanup(ctx, s.config.RetentionDays); err != nil {
		s.logger.Error("cleaning up old drift reports failed", "error", err)
	}
}

// RunManualCheck runs a drift check for one model immediately, bypassing
// staleness filtering. A windowHours of zero uses the configured interval.
func (s *Scheduler) RunManualCheck(ctx context.Context, modelID string, windowHours int) (*models.CheckResult, error) {
	if windowHours <= 0 {
		windowHours = s.config.CheckIntervalHours
	}

	s.logger.Info("running manual drift check", "model_id", modelID, "window_hours", windowHours)
	return s.checkModel(ctx, modelID, windowHours)
}

// ForceCheckAll runs a drift check on every model with a baseline and tallies
// per-model outcomes. Failures are recorded, not propagated.
func (s *Scheduler) ForceCheckAll(ctx context.Context) (*models.CheckRunSummary, error) {
	modelIDs, err := s.baselines.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}

	s.logger.Info("forcing drift checks", "models", len(modelIDs))

	summary := &models.CheckRunSummary{
		TotalModels: len(modelIDs),
		ForcedAt:    time.Now().UTC(),
	}
	for _, modelID := range modelIDs {
		result, err := s.checkModel(ctx, modelID, s.config.CheckIntervalHours)
		if err != nil {
			s.logger.Error("forced drift check failed", "model_id", modelID, "error", err)
			summary.FailedChecks++
			summary.Results = append(summary.Results, &models.CheckResult{
				ModelID:   modelID,
				Error:     err.Error(),
				Timestamp: time.Now().UTC(),
			})
			continue
		}
		summary.SuccessfulChecks++
		summary.Results = append(summary.Results, result)
	}

	return summary, nil
}

// Package models defines the core data structures for drift monitoring.
//
// This package contains the domain models shared by the statistics library,
// the drift detector, the report store and the scheduler: baseline summaries,
// inference observations, per-feature drift results and per-model reports.
package models

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested item is not found.
// Storage implementations wrap this error when an item doesn't exist.
var ErrNotFound = errors.New("not found")

// DriftResult is the outcome of one drift check for a single feature.
// It is immutable once produced.
type DriftResult struct {
	// FeatureName identifies the feature this result belongs to.
	FeatureName string `json:"feature_name"`

	// FeatureType is numerical or categorical.
	FeatureType FeatureType `json:"feature_type"`

	// DriftScore is the PSI (categorical) or KL divergence (numerical) value.
	DriftScore float64 `json:"drift_score"`

	// Threshold is the configured score threshold the detection used.
	Threshold float64 `json:"threshold"`

	// DriftDetected reports whether DriftScore exceeded Threshold.
	DriftDetected bool `json:"drift_detected"`

	// Severity tiers the score: none, low, moderate or high.
	Severity Severity `json:"severity"`

	// BaselineSamples and CurrentSamples are the sample counts compared.
	BaselineSamples int `json:"baseline_samples"`
	CurrentSamples  int `json:"current_samples"`

	// AdditionalMetrics carries per-feature diagnostics: distributions, PSI
	// components, mean shift, bin statistics, or an "error" entry when the
	// feature computation failed and was absorbed.
	AdditionalMetrics map[string]any `json:"additional_metrics,omitempty"`
}

// BinStats compares two histograms over the same bin edges.
type BinStats struct {
	TotalBaselineSamples     int       `json:"total_baseline_samples"`
	TotalCurrentSamples      int       `json:"total_current_samples"`
	NumBins                  int       `json:"num_bins"`
	BaselineDistribution     []float64 `json:"baseline_distribution"`
	CurrentDistribution      []float64 `json:"current_distribution"`
	HellingerDistance        float64   `json:"hellinger_distance"`
	JensenShannonDivergence  float64   `json:"jensen_shannon_divergence"`
}

// ReportSummary aggregates the feature results of a single report.
type ReportSummary struct {
	TotalFeaturesAnalyzed int      `json:"total_features_analyzed"`
	FeaturesWithDrift     int      `json:"features_with_drift"`
	DriftDetectionRate    float64  `json:"drift_detection_rate"`
	AveragePSIScore       *float64 `json:"average_psi_score"`
	AverageKLScore        *float64 `json:"average_kl_score"`
	TotalRecentSamples    int      `json:"total_recent_samples"`
	PSIThreshold          float64  `json:"psi_threshold"`
	KLThreshold           float64  `json:"kl_threshold"`
}

// DriftReport is the complete drift check outcome for one model. Reports are
// created once by a detector run, appended to the store with a generated id
// and creation timestamp, and never mutated; they only leave the store through
// retention cleanup.
type DriftReport struct {
	ID        string    `json:"id"`
	ModelID   string    `json:"model_id"`
	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`

	OverallDriftDetected bool     `json:"overall_drift_detected"`
	OverallSeverity      Severity `json:"overall_severity"`

	FeatureDriftResults []*DriftResult `json:"feature_drift_results"`
	SummaryStatistics   *ReportSummary `json:"summary_statistics"`

	// BaselinePeriod and CurrentPeriod describe which data windows were
	// compared, e.g. "training_data" vs "last_24h" or "all_available_logs".
	BaselinePeriod string `json:"baseline_period"`
	CurrentPeriod  string `json:"current_period"`
}

// DriftedFeatures lists the names of features whose result flagged drift.
func (r *DriftReport) DriftedFeatures() []string {
	var names []string
	for _, result := range r.FeatureDriftResults {
		if result.DriftDetected {
			names = append(names, result.FeatureName)
		}
	}
	return names
}

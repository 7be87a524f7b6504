package models

import "time"

// ReportFilter narrows a report listing. Zero values mean "no filter".
type ReportFilter struct {
	// ModelID restricts results to a single model.
	ModelID string

	// Since excludes reports created before this instant.
	Since time.Time

	// Limit caps the number of reports returned (after sorting newest first).
	Limit int
}

// TrendPoint is one historical drift measurement for a feature, extracted from
// a stored report when querying trends over time.
type TrendPoint struct {
	Timestamp       time.Time   `json:"timestamp"`
	DriftScore      float64     `json:"drift_score"`
	Threshold       float64     `json:"threshold"`
	DriftDetected   bool        `json:"drift_detected"`
	Severity        Severity    `json:"severity"`
	FeatureType     FeatureType `json:"feature_type"`
	BaselineSamples int         `json:"baseline_samples"`
	CurrentSamples  int         `json:"current_samples"`
}

// DriftAlert flags a stored report whose severity crossed an alert threshold.
// Alerts are derived at query time and never persisted.
type DriftAlert struct {
	AlertID           string         `json:"alert_id"`
	ModelID           string         `json:"model_id"`
	Severity          Severity       `json:"severity"`
	DriftDetectedAt   time.Time      `json:"drift_detected_at"`
	FeaturesWithDrift []string       `json:"features_with_drift"`
	SummaryStatistics *ReportSummary `json:"summary_statistics,omitempty"`
	ReportID          string         `json:"report_id"`
}

// DriftSummary aggregates stored reports over an analysis window.
type DriftSummary struct {
	TotalReports            int              `json:"total_reports"`
	DriftDetectedCount      int              `json:"drift_detected_count"`
	DriftDetectionRate      float64          `json:"drift_detection_rate"`
	AverageFeaturesAnalyzed float64          `json:"average_features_analyzed"`
	SeverityDistribution    map[Severity]int `json:"severity_distribution"`
	MostCommonSeverity      Severity         `json:"most_common_drift_severity"`
	ModelsWithDrift         []string         `json:"models_with_drift"`
	UniqueModelsAnalyzed    int              `json:"unique_models_analyzed"`
	AnalysisPeriodDays      int              `json:"analysis_period_days"`
}

// CheckResult is the per-model outcome of a manual or forced drift check.
type CheckResult struct {
	ModelID          string    `json:"model_id"`
	ReportID         string    `json:"report_id,omitempty"`
	DriftDetected    bool      `json:"drift_detected"`
	Severity         Severity  `json:"severity,omitempty"`
	FeaturesAnalyzed int       `json:"features_analyzed"`
	Timestamp        time.Time `json:"timestamp"`
	Error            string    `json:"error,omitempty"`
}

// CheckRunSummary tallies a forced check across every known model.
type CheckRunSummary struct {
	TotalModels      int            `json:"total_models"`
	SuccessfulChecks int            `json:"successful_checks"`
	FailedChecks     int            `json:"failed_checks"`
	Results          []*CheckResult `json:"results"`
	ForcedAt         time.Time      `json:"forced_at"`
}

// Package detector computes drift scores between a model's baseline feature
// distributions and its recent inference traffic. Categorical features are
// scored with PSI, numerical features with KL divergence over baseline-defined
// histogram bins.
package detector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/fidde/drift_monitor/internal/stats"
	"github.com/fidde/drift_monitor/internal/storage"
	"github.com/fidde/drift_monitor/pkg/models"
)

var (
	// ErrComputation is returned for malformed input to a score computation.
	ErrComputation = errors.New("computation failed")

	// ErrNoBaseline is returned when a model has no baseline to compare
	// against. The model-level check aborts; no report is produced.
	ErrNoBaseline = errors.New("no baseline statistics")

	// ErrInsufficientSamples is returned when too few successful inference
	// logs exist for a model-level check, even after widening to all logs.
	ErrInsufficientSamples = errors.New("insufficient samples")
)

// floorProb is the minimum probability used inside PSI log terms.
const floorProb = 1e-10

// maxLogsPerCheck caps how many inference logs one check loads.
const maxLogsPerCheck = 1000

// Config holds drift detection thresholds.
type Config struct {
	// PSIThreshold flags drift for categorical features.
	PSIThreshold float64

	// KLThreshold flags drift for numerical features.
	KLThreshold float64

	// MinSamples is the minimum sample count on both sides of a comparison.
	MinSamples int

	// MaxFeatures bounds how many features one model check processes.
	MaxFeatures int
}

// DefaultConfig returns the default detection thresholds.
func DefaultConfig() Config {
	return Config{
		PSIThreshold: 0.2,
		KLThreshold:  0.1,
		MinSamples:   30,
		MaxFeatures:  50,
	}
}

// Detector runs drift checks. Score computations are pure; the model-level
// check reads baselines and logs through the injected sources.
type Detector struct {
	config    Config
	baselines storage.BaselineSource
	logs      storage.LogSource
	logger    *slog.Logger
	rng       *rand.Rand
}

// New creates a detector.
func New(config Config, baselines storage.BaselineSource, logs storage.LogSource, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		config:    config,
		baselines: baselines,
		logs:      logs,
		logger:    logger,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetRandSeed fixes the seed used for baseline sample synthesis. Intended for
// reproducible runs and tests.
func (d *Detector) SetRandSeed(seed int64) {
	d.rng = rand.New(rand.NewSource(seed))
}

// CalculatePSI computes the Population Stability Index between an expected
// (baseline) and actual (current) categorical distribution:
//
//	PSI = |Σ (actual - expected) * ln(actual / expected)|
//
// Distributions are aligned over the union of categories first, and each
// probability is floored at 1e-10 before the log.
func (d *Detector) CalculatePSI(expected, actual map[string]float64) (float64, error) {
	if len(expected) == 0 && len(actual) == 0 {
		return 0, fmt.Errorf("%w: both distributions are empty", ErrComputation)
	}

	alignedExpected, alignedActual := stats.AlignDistributions(expected, actual)

	score := 0.0
	for category := range alignedExpected {
		expectedPct := math.Max(alignedExpected[category], floorProb)
		actualPct := math.Max(alignedActual[category], floorProb)
		score += (actualPct - expectedPct) * math.Log(actualPct/expectedPct)
	}
	return math.Abs(score), nil
}

// psiComponents returns the per-category contribution to the PSI score.
func psiComponents(expected, actual map[string]float64) map[string]float64 {
	alignedExpected, alignedActual := stats.AlignDistributions(expected, actual)

	components := make(map[string]float64, len(alignedExpected))
	for category := range alignedExpected {
		expectedPct := math.Max(alignedExpected[category], floorProb)
		actualPct := math.Max(alignedActual[category], floorProb)
		components[category] = (actualPct - expectedPct) * math.Log(actualPct/expectedPct)
	}
	return components
}

// CalculateKLDivergence computes KL(P||Q) = Σ p * ln(p/q) between two count
// or probability vectors of equal length. Both sides are normalized with
// epsilon smoothing first, so zero entries never reach the log.
func (d *Detector) CalculateKLDivergence(p, q []float64) (float64, error) {
	if len(p) != len(q) {
		return 0, fmt.Errorf("%w: distributions must have the same length (%d vs %d)", ErrComputation, len(p), len(q))
	}
	if len(p) == 0 {
		return 0, fmt.Errorf("%w: distributions cannot be empty", ErrComputation)
	}

	pNorm := stats.Normalize(p, true)
	qNorm := stats.Normalize(q, true)

	divergence := 0.0
	for i := range pNorm {
		divergence += pNorm[i] * math.Log(pNorm[i]/qNorm[i])
	}
	return divergence, nil
}

// DetectFeatureDrift scores one feature. Too few samples on either side yields
// a zero-score, no-drift result tagged insufficient_samples. Any computation
// failure is absorbed into a no-drift result carrying an error diagnostic, so
// one bad feature never aborts a model check.
func (d *Detector) DetectFeatureDrift(featureName string, baseline, current *models.FeatureSample) *models.DriftResult {
	if baseline.Len() < d.config.MinSamples || current.Len() < d.config.MinSamples {
		d.logger.Warn("insufficient samples for feature",
			"feature", featureName,
			"baseline_samples", baseline.Len(),
			"current_samples", current.Len(),
		)
		return &models.DriftResult{
			FeatureName:       featureName,
			FeatureType:       baseline.Type,
			Severity:          models.SeverityNone,
			BaselineSamples:   baseline.Len(),
			CurrentSamples:    current.Len(),
			AdditionalMetrics: map[string]any{"error": "insufficient_samples"},
		}
	}

	var result *models.DriftResult
	var err error
	switch baseline.Type {
	case models.FeatureCategorical:
		result, err = d.detectCategoricalDrift(featureName, baseline.Values, current.Values)
	case models.FeatureNumerical:
		result, err = d.detectNumericalDrift(featureName, baseline.Numbers, current.Numbers)
	default:
		err = fmt.Errorf("unknown feature type: %s", baseline.Type)
	}

	if err != nil {
		d.logger.Error("feature drift computation failed", "feature", featureName, "error", err)
		return &models.DriftResult{
			FeatureName:       featureName,
			FeatureType:       baseline.Type,
			Severity:          models.SeverityNone,
			BaselineSamples:   baseline.Len(),
			CurrentSamples:    current.Len(),
			AdditionalMetrics: map[string]any{"error": err.Error()},
		}
	}
	return result
}

func (d *Detector) detectCategoricalDrift(featureName string, baselineData, currentData []string) (*models.DriftResult, error) {
	if err := stats.ValidateCategorical(baselineData); err != nil {
		return nil, err
	}
	if err := stats.ValidateCategorical(currentData); err != nil {
		return nil, err
	}

	baselineDist := stats.CategoricalDistribution(baselineData)
	currentDist := stats.CategoricalDistribution(currentData)

	psiScore, err := d.CalculatePSI(baselineDist, currentDist)
	if err != nil {
		return nil, err
	}

	driftDetected := psiScore > d.config.PSIThreshold
	severity := psiSeverity(psiScore)

	d.logger.Info("categorical drift detection",
		"feature", featureName,
		"psi", psiScore,
		"drift", driftDetected,
	)

	return &models.DriftResult{
		FeatureName:     featureName,
		FeatureType:     models.FeatureCategorical,
		DriftScore:      psiScore,
		Threshold:       d.config.PSIThreshold,
		DriftDetected:   driftDetected,
		Severity:        severity,
		BaselineSamples: len(baselineData),
		CurrentSamples:  len(currentData),
		AdditionalMetrics: map[string]any{
			"baseline_distribution":      baselineDist,
			"current_distribution":       currentDist,
			"unique_baseline_categories": len(baselineDist),
			"unique_current_categories":  len(currentDist),
			"psi_components":             psiComponents(baselineDist, currentDist),
		},
	}, nil
}

func (d *Detector) detectNumericalDrift(featureName string, baselineData, currentData []float64) (*models.DriftResult, error) {
	if err := stats.ValidateNumerical(baselineData); err != nil {
		return nil, err
	}
	if err := stats.ValidateNumerical(currentData); err != nil {
		return nil, err
	}

	// Bin current data into the baseline's bins, so both sides share edges.
	baselineCounts, binEdges, err := stats.HistogramBins(baselineData, 10)
	if err != nil {
		return nil, err
	}
	currentCounts, err := stats.Rebin(currentData, binEdges)
	if err != nil {
		return nil, err
	}

	klDivergence, err := d.CalculateKLDivergence(baselineCounts, currentCounts)
	if err != nil {
		return nil, err
	}

	driftDetected := klDivergence > d.config.KLThreshold
	severity := klSeverity(klDivergence)

	binStats, err := stats.BinStatistics(baselineCounts, currentCounts)
	if err != nil {
		return nil, err
	}

	baselineMean, baselineStd := meanStd(baselineData)
	currentMean, currentStd := meanStd(currentData)

	d.logger.Info("numerical drift detection",
		"feature", featureName,
		"kl_divergence", klDivergence,
		"drift", driftDetected,
	)

	return &models.DriftResult{
		FeatureName:     featureName,
		FeatureType:     models.FeatureNumerical,
		DriftScore:      klDivergence,
		Threshold:       d.config.KLThreshold,
		DriftDetected:   driftDetected,
		Severity:        severity,
		BaselineSamples: len(baselineData),
		CurrentSamples:  len(currentData),
		AdditionalMetrics: map[string]any{
			"kl_divergence":  klDivergence,
			"bin_statistics": binStats,
			"baseline_mean":  baselineMean,
			"current_mean":   currentMean,
			"baseline_std":   baselineStd,
			"current_std":    currentStd,
			"mean_shift":     currentMean - baselineMean,
			"bin_edges":      binEdges,
		},
	}, nil
}

// DetectModelDrift runs a full drift check for one model: load the baseline,
// select current inference logs inside the window (falling back to all
// successful logs when the window is too thin), and score every baseline
// feature present in the current data.
func (d *Detector) DetectModelDrift(ctx context.Context, modelID string, windowHours int) (*models.DriftReport, error) {
	d.logger.Info("starting drift detection", "model_id", modelID, "window_hours", windowHours)

	baseline, err := d.baselines.Baseline(ctx, modelID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("model %s: %w", modelID, ErrNoBaseline)
		}
		return nil, fmt.Errorf("loading baseline for model %s: %w", modelID, err)
	}

	logs, err := d.logs.Logs(ctx, modelID, maxLogsPerCheck)
	if err != nil {
		return nil, fmt.Errorf("loading inference logs for model %s: %w", modelID, err)
	}

	now := time.Now().UTC()
	cutoff := now.Add(-time.Duration(windowHours) * time.Hour)

	var recentLogs []*models.InferenceLog
	for _, log := range logs {
		if log.Status == models.StatusSuccess && !log.Timestamp.Before(cutoff) {
			recentLogs = append(recentLogs, log)
		}
	}

	currentPeriod := fmt.Sprintf("last_%dh", windowHours)
	if len(recentLogs) < d.config.MinSamples {
		d.logger.Warn("insufficient recent samples, widening to all available logs",
			"model_id", modelID,
			"recent_samples", len(recentLogs),
		)

		recentLogs = recentLogs[:0]
		for _, log := range logs {
			if log.Status == models.StatusSuccess {
				recentLogs = append(recentLogs, log)
			}
		}
		if len(recentLogs) < d.config.MinSamples {
			return nil, fmt.Errorf("model %s: %w: %d < %d", modelID, ErrInsufficientSamples, len(recentLogs), d.config.MinSamples)
		}
		currentPeriod = "all_available_logs"
	}

	currentFeatures := models.ExtractFeatureSamples(recentLogs)
	baselineFeatures := d.synthesizeBaselineSamples(baseline)

	// Stable feature order, capped at MaxFeatures.
	featureNames := make([]string, 0, len(baselineFeatures))
	for name := range baselineFeatures {
		featureNames = append(featureNames, name)
	}
	sort.Strings(featureNames)
	if d.config.MaxFeatures > 0 && len(featureNames) > d.config.MaxFeatures {
		d.logger.Warn("feature count exceeds limit, truncating",
			"model_id", modelID,
			"features", len(featureNames),
			"max_features", d.config.MaxFeatures,
		)
		featureNames = featureNames[:d.config.MaxFeatures]
	}

	var results []*models.DriftResult
	for _, name := range featureNames {
		current, ok := currentFeatures[name]
		if !ok {
			d.logger.Warn("feature not present in current data", "model_id", modelID, "feature", name)
			continue
		}
		results = append(results, d.DetectFeatureDrift(name, baselineFeatures[name], current))
	}

	overallDrift := false
	overallSeverity := models.SeverityNone
	for _, result := range results {
		if result.DriftDetected {
			overallDrift = true
		}
		overallSeverity = models.MaxSeverity(overallSeverity, result.Severity)
	}

	report := &models.DriftReport{
		ModelID:              modelID,
		Timestamp:            now,
		OverallDriftDetected: overallDrift,
		OverallSeverity:      overallSeverity,
		FeatureDriftResults:  results,
		SummaryStatistics:    d.summarize(results, len(recentLogs)),
		BaselinePeriod:       "training_data",
		CurrentPeriod:        currentPeriod,
	}

	d.logger.Info("completed drift detection",
		"model_id", modelID,
		"overall_drift", overallDrift,
		"severity", overallSeverity,
		"features_analyzed", len(results),
	)
	return report, nil
}

// synthesizeBaselineSamples reconstructs comparable per-feature samples from
// stored summary statistics. Only summaries are retained, so numeric samples
// are drawn from a normal distribution with the stored mean/std/count, and
// categorical samples replay the stored value-probability mapping scaled to
// the stored count. The comparison is therefore approximate.
func (d *Detector) synthesizeBaselineSamples(baseline *models.Baseline) map[string]*models.FeatureSample {
	features := make(map[string]*models.FeatureSample, len(baseline.FeatureStats))

	for name, stat := range baseline.FeatureStats {
		count := stat.Count
		if count <= 0 {
			count = 100
		}

		switch stat.Type {
		case models.FeatureNumerical:
			numbers := make([]float64, count)
			for i := range numbers {
				numbers[i] = d.rng.NormFloat64()*stat.Std + stat.Mean
			}
			features[name] = &models.FeatureSample{Type: models.FeatureNumerical, Numbers: numbers}

		case models.FeatureCategorical:
			values := make([]string, 0, count)
			categories := make([]string, 0, len(stat.ValueDistribution))
			for value := range stat.ValueDistribution {
				categories = append(categories, value)
			}
			sort.Strings(categories)
			for _, value := range categories {
				n := int(stat.ValueDistribution[value] * float64(count))
				for i := 0; i < n; i++ {
					values = append(values, value)
				}
			}
			features[name] = &models.FeatureSample{Type: models.FeatureCategorical, Values: values}
		}
	}
	return features
}

func (d *Detector) summarize(results []*models.DriftResult, totalSamples int) *models.ReportSummary {
	summary := &models.ReportSummary{
		TotalFeaturesAnalyzed: len(results),
		TotalRecentSamples:    totalSamples,
		PSIThreshold:          d.config.PSIThreshold,
		KLThreshold:           d.config.KLThreshold,
	}

	psiSum, psiCount := 0.0, 0
	klSum, klCount := 0.0, 0
	for _, result := range results {
		if result.DriftDetected {
			summary.FeaturesWithDrift++
		}
		switch result.FeatureType {
		case models.FeatureCategorical:
			psiSum += result.DriftScore
			psiCount++
		case models.FeatureNumerical:
			klSum += result.DriftScore
			klCount++
		}
	}

	if len(results) > 0 {
		summary.DriftDetectionRate = float64(summary.FeaturesWithDrift) / float64(len(results))
	}
	if psiCount > 0 {
		avg := psiSum / float64(psiCount)
		summary.AveragePSIScore = &avg
	}
	if klCount > 0 {
		avg := klSum / float64(klCount)
		summary.AverageKLScore = &avg
	}
	return summary
}

// psiSeverity tiers a PSI score.
func psiSeverity(score float64) models.Severity {
	switch {
	case score < 0.1:
		return models.SeverityNone
	case score < 0.2:
		return models.SeverityLow
	case score < 0.5:
		return models.SeverityModerate
	default:
		return models.SeverityHigh
	}
}

// klSeverity tiers a KL divergence score.
func klSeverity(score float64) models.Severity {
	switch {
	case score < 0.05:
		return models.SeverityNone
	case score < 0.1:
		return models.SeverityLow
	case score < 0.3:
		return models.SeverityModerate
	default:
		return models.SeverityHigh
	}
}

func meanStd(values []float64) (float64, float64) {
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(variance / float64(len(values)))
}

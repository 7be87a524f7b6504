// Package stats provides the statistical primitives behind drift detection:
// histogram binning, distribution normalization and alignment, and the
// similarity measures used as diagnostics. All functions are pure.
package stats

import (
	"errors"
	"fmt"
	"math"

	"github.com/fidde/drift_monitor/pkg/models"
)

// ErrValidation is returned for empty or malformed distribution input.
var ErrValidation = errors.New("validation failed")

// Epsilon is the smoothing constant added to probabilities so that later log
// and division operations never see a zero.
const Epsilon = 1e-10

// HistogramBins creates equal-width bins over the value range and counts the
// values into them. When every value is identical the result is a single bin
// of width 1 centered on the value. The last bin includes the range maximum.
func HistogramBins(values []float64, numBins int) (counts, edges []float64, err error) {
	if err := ValidateNumerical(values); err != nil {
		return nil, nil, err
	}
	if numBins <= 0 {
		return nil, nil, fmt.Errorf("%w: numBins must be positive, got %d", ErrValidation, numBins)
	}

	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	if min == max {
		return []float64{float64(len(values))}, []float64{min - 0.5, min + 0.5}, nil
	}

	edges = make([]float64, numBins+1)
	width := (max - min) / float64(numBins)
	for i := range edges {
		edges[i] = min + float64(i)*width
	}
	edges[numBins] = max

	counts = make([]float64, numBins)
	for _, v := range values {
		idx := int((v - min) / width)
		if idx >= numBins {
			idx = numBins - 1
		}
		counts[idx]++
	}
	return counts, edges, nil
}

// Rebin counts values into previously computed bin edges. Values outside the
// edge range are dropped, so current data is always measured against the
// baseline's buckets.
func Rebin(values, edges []float64) ([]float64, error) {
	if len(edges) < 2 {
		return nil, fmt.Errorf("%w: need at least two bin edges, got %d", ErrValidation, len(edges))
	}

	numBins := len(edges) - 1
	min, max := edges[0], edges[numBins]
	counts := make([]float64, numBins)

	for _, v := range values {
		if v < min || v > max {
			continue
		}
		if v == max {
			counts[numBins-1]++
			continue
		}
		// Bins may be non-uniform after the degenerate single-bin case, so
		// locate by scan rather than arithmetic.
		for i := 0; i < numBins; i++ {
			if v >= edges[i] && v < edges[i+1] {
				counts[i]++
				break
			}
		}
	}
	return counts, nil
}

// Normalize converts counts into a probability vector. With smoothing enabled
// every bin receives Epsilon before dividing, which guarantees no zero entry.
// A zero total yields the uniform distribution.
func Normalize(counts []float64, smoothing bool) []float64 {
	if len(counts) == 0 {
		return nil
	}

	smoothed := make([]float64, len(counts))
	total := 0.0
	for i, c := range counts {
		if smoothing {
			c += Epsilon
		}
		smoothed[i] = c
		total += c
	}

	if total == 0 {
		uniform := 1.0 / float64(len(counts))
		for i := range smoothed {
			smoothed[i] = uniform
		}
		return smoothed
	}

	for i := range smoothed {
		smoothed[i] /= total
	}
	return smoothed
}

// CategoricalDistribution maps each unique value to its observed probability.
func CategoricalDistribution(values []string) map[string]float64 {
	if len(values) == 0 {
		return map[string]float64{}
	}

	counts := make(map[string]int)
	for _, v := range values {
		counts[v]++
	}

	dist := make(map[string]float64, len(counts))
	total := float64(len(values))
	for v, c := range counts {
		dist[v] = float64(c) / total
	}
	return dist
}

// AlignDistributions reindexes both distributions over the union of their
// keys. A key missing on either side gets probability 0.0 there.
func AlignDistributions(a, b map[string]float64) (map[string]float64, map[string]float64) {
	alignedA := make(map[string]float64, len(a)+len(b))
	alignedB := make(map[string]float64, len(a)+len(b))

	for k, v := range a {
		alignedA[k] = v
		alignedB[k] = 0
	}
	for k, v := range b {
		alignedB[k] = v
		if _, ok := alignedA[k]; !ok {
			alignedA[k] = 0
		}
	}
	return alignedA, alignedB
}

// HellingerDistance computes sqrt(sum((sqrt(p)-sqrt(q))^2))/sqrt(2) between
// two probability vectors of equal length.
func HellingerDistance(p, q []float64) (float64, error) {
	if len(p) != len(q) {
		return 0, fmt.Errorf("%w: distributions must have the same length (%d vs %d)", ErrValidation, len(p), len(q))
	}

	sum := 0.0
	for i := range p {
		d := math.Sqrt(p[i]) - math.Sqrt(q[i])
		sum += d * d
	}
	return math.Sqrt(sum) / math.Sqrt2, nil
}

// JensenShannonDivergence computes the symmetrized KL divergence against the
// mean distribution m = (p+q)/2, with Epsilon smoothing inside the logs.
func JensenShannonDivergence(p, q []float64) (float64, error) {
	if len(p) != len(q) {
		return 0, fmt.Errorf("%w: distributions must have the same length (%d vs %d)", ErrValidation, len(p), len(q))
	}

	kl1, kl2 := 0.0, 0.0
	for i := range p {
		m := 0.5 * (p[i] + q[i])
		kl1 += p[i] * math.Log((p[i]+Epsilon)/(m+Epsilon))
		kl2 += q[i] * math.Log((q[i]+Epsilon)/(m+Epsilon))
	}
	return 0.5*kl1 + 0.5*kl2, nil
}

// BinStatistics compares two histograms over the same edges: normalized
// distributions plus Hellinger and Jensen-Shannon diagnostics.
func BinStatistics(baselineCounts, currentCounts []float64) (*models.BinStats, error) {
	if len(baselineCounts) != len(currentCounts) {
		return nil, fmt.Errorf("%w: histogram counts must have the same length (%d vs %d)",
			ErrValidation, len(baselineCounts), len(currentCounts))
	}

	baselineProb := Normalize(baselineCounts, true)
	currentProb := Normalize(currentCounts, true)

	hellinger, err := HellingerDistance(baselineProb, currentProb)
	if err != nil {
		return nil, err
	}
	jensenShannon, err := JensenShannonDivergence(baselineProb, currentProb)
	if err != nil {
		return nil, err
	}

	return &models.BinStats{
		TotalBaselineSamples:    int(sum(baselineCounts)),
		TotalCurrentSamples:     int(sum(currentCounts)),
		NumBins:                 len(baselineCounts),
		BaselineDistribution:    baselineProb,
		CurrentDistribution:     currentProb,
		HellingerDistance:       hellinger,
		JensenShannonDivergence: jensenShannon,
	}, nil
}

// ValidateNumerical rejects empty input and values that would poison the
// log/divide pipeline (NaN, ±Inf).
func ValidateNumerical(values []float64) error {
	if len(values) == 0 {
		return fmt.Errorf("%w: data cannot be empty", ErrValidation)
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: value at index %d is not finite", ErrValidation, i)
		}
	}
	return nil
}

// ValidateCategorical rejects empty input.
func ValidateCategorical(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("%w: data cannot be empty", ErrValidation)
	}
	return nil
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

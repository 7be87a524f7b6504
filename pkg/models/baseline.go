package models

import (
	"math"
	"sort"
	"time"
)

// FeatureType tags a feature as numerical or categorical. The type is resolved
// once, when the baseline is created, and reused for every later comparison.
type FeatureType string

const (
	FeatureNumerical   FeatureType = "numerical"
	FeatureCategorical FeatureType = "categorical"
)

// Histogram holds equal-width bin counts together with the edges that define
// them. Edges are fixed from baseline data and reused when binning current
// data, so both sides are always comparable.
type Histogram struct {
	Counts   []float64 `json:"counts"`
	BinEdges []float64 `json:"bin_edges"`
}

// FeatureStats is the per-feature summary stored in a baseline. Exactly one of
// the numerical or categorical field groups is populated, according to Type.
type FeatureStats struct {
	Type  FeatureType `json:"type"`
	Count int         `json:"count"`

	// Numerical features.
	Mean        float64            `json:"mean,omitempty"`
	Std         float64            `json:"std,omitempty"`
	Min         float64            `json:"min,omitempty"`
	Max         float64            `json:"max,omitempty"`
	Median      float64            `json:"median,omitempty"`
	Percentiles map[string]float64 `json:"percentiles,omitempty"`
	Histogram   *Histogram         `json:"histogram,omitempty"`

	// Categorical features. ValueDistribution maps each observed value to its
	// probability in the baseline data.
	UniqueCount       int                `json:"unique_count,omitempty"`
	ValueDistribution map[string]float64 `json:"value_distribution,omitempty"`
}

// Baseline is the reference distribution summary a model is compared against.
// There is exactly one baseline per model; storing a new one overwrites the
// previous record.
type Baseline struct {
	ModelID      string                   `json:"model_id"`
	FeatureStats map[string]*FeatureStats `json:"feature_stats"`
	DataSource   string                   `json:"data_source,omitempty"`
	SampleCount  int                      `json:"sample_count"`
	CreatedAt    time.Time                `json:"created_at"`
}

// FeatureNames returns the baseline's feature names in sorted order.
func (b *Baseline) FeatureNames() []string {
	names := make([]string, 0, len(b.FeatureStats))
	for name := range b.FeatureStats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ComputeFeatureStatistics builds baseline feature statistics from raw sample
// records. Numeric values become mean/std/min/max/median/percentiles plus a
// 10-bin histogram; strings and bools become a value-probability distribution.
// Values of other types are ignored.
func ComputeFeatureStatistics(samples []map[string]any) map[string]*FeatureStats {
	stats := make(map[string]*FeatureStats)
	if len(samples) == 0 {
		return stats
	}

	numeric := make(map[string][]float64)
	categorical := make(map[string][]string)

	for _, sample := range samples {
		for name, value := range sample {
			switch v := value.(type) {
			case float64:
				numeric[name] = append(numeric[name], v)
			case int:
				numeric[name] = append(numeric[name], float64(v))
			case int64:
				numeric[name] = append(numeric[name], float64(v))
			case string:
				categorical[name] = append(categorical[name], v)
			case bool:
				if v {
					categorical[name] = append(categorical[name], "true")
				} else {
					categorical[name] = append(categorical[name], "false")
				}
			}
		}
	}

	for name, values := range numeric {
		stats[name] = numericalStats(values)
	}
	for name, values := range categorical {
		// A feature that produced both numeric and string values keeps the
		// numerical summary; mixed inputs are a collaborator bug.
		if _, exists := stats[name]; exists {
			continue
		}
		stats[name] = categoricalStats(values)
	}

	return stats
}

func numericalStats(values []float64) *FeatureStats {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	// Population std, matching the original summary statistics.
	std := math.Sqrt(variance / float64(len(values)))

	counts, edges := histogram(sorted, 10)

	return &FeatureStats{
		Type:   FeatureNumerical,
		Count:  len(values),
		Mean:   mean,
		Std:    std,
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Median: percentile(sorted, 50),
		Percentiles: map[string]float64{
			"25": percentile(sorted, 25),
			"75": percentile(sorted, 75),
			"90": percentile(sorted, 90),
			"95": percentile(sorted, 95),
		},
		Histogram: &Histogram{Counts: counts, BinEdges: edges},
	}
}

func categoricalStats(values []string) *FeatureStats {
	counts := make(map[string]int)
	for _, v := range values {
		counts[v]++
	}

	dist := make(map[string]float64, len(counts))
	for v, c := range counts {
		dist[v] = float64(c) / float64(len(values))
	}

	return &FeatureStats{
		Type:              FeatureCategorical,
		Count:             len(values),
		UniqueCount:       len(counts),
		ValueDistribution: dist,
	}
}

// percentile computes the p-th percentile of sorted values using linear
// interpolation between closest ranks.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// histogram bins sorted values into numBins equal-width buckets. Identical
// values collapse to a single unit-width bin centered on the value.
func histogram(sorted []float64, numBins int) ([]float64, []float64) {
	min, max := sorted[0], sorted[len(sorted)-1]
	if min == max {
		return []float64{float64(len(sorted))}, []float64{min - 0.5, min + 0.5}
	}

	edges := make([]float64, numBins+1)
	width := (max - min) / float64(numBins)
	for i := range edges {
		edges[i] = min + float64(i)*width
	}
	edges[numBins] = max

	counts := make([]float64, numBins)
	for _, v := range sorted {
		idx := int((v - min) / width)
		if idx >= numBins {
			idx = numBins - 1
		}
		counts[idx]++
	}
	return counts, edges
}

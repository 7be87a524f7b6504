package stats

import (
	"errors"
	"math"
	"testing"
)

func TestHistogramBins(t *testing.T) {
	values := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	counts, edges, err := HistogramBins(values, 10)
	if err != nil {
		t.Fatalf("HistogramBins() error = %v", err)
	}

	if len(counts) != 10 {
		t.Fatalf("expected 10 bins, got %d", len(counts))
	}
	if len(edges) != 11 {
		t.Fatalf("expected 11 edges, got %d", len(edges))
	}

	total := 0.0
	for _, c := range counts {
		total += c
	}
	if total != float64(len(values)) {
		t.Errorf("bin counts sum to %v, want %v", total, len(values))
	}

	// Range maximum lands in the last bin, not outside it.
	if counts[9] != 2 {
		t.Errorf("last bin = %v, want 2 (values 9 and 10)", counts[9])
	}
}

func TestHistogramBinsIdenticalValues(t *testing.T) {
	counts, edges, err := HistogramBins([]float64{5, 5, 5, 5}, 10)
	if err != nil {
		t.Fatalf("HistogramBins() error = %v", err)
	}

	if len(counts) != 1 || counts[0] != 4 {
		t.Errorf("counts = %v, want single bin with 4", counts)
	}
	if len(edges) != 2 || edges[0] != 4.5 || edges[1] != 5.5 {
		t.Errorf("edges = %v, want [4.5 5.5]", edges)
	}
}

func TestHistogramBinsEmptyInput(t *testing.T) {
	if _, _, err := HistogramBins(nil, 10); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestRebinDropsOutOfRange(t *testing.T) {
	_, edges, err := HistogramBins([]float64{0, 10}, 10)
	if err != nil {
		t.Fatalf("HistogramBins() error = %v", err)
	}

	counts, err := Rebin([]float64{-5, 0.5, 5.5, 10, 15}, edges)
	if err != nil {
		t.Fatalf("Rebin() error = %v", err)
	}

	total := 0.0
	for _, c := range counts {
		total += c
	}
	if total != 3 {
		t.Errorf("in-range count = %v, want 3 (out-of-range values dropped)", total)
	}
	if counts[len(counts)-1] != 1 {
		t.Errorf("range max should land in the last bin, counts = %v", counts)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		counts    []float64
		smoothing bool
		check     func(t *testing.T, probs []float64)
	}{
		{
			name:      "sums to one",
			counts:    []float64{1, 2, 3, 4},
			smoothing: true,
			check: func(t *testing.T, probs []float64) {
				total := 0.0
				for _, p := range probs {
					total += p
				}
				if math.Abs(total-1.0) > 1e-9 {
					t.Errorf("probabilities sum to %v, want 1", total)
				}
			},
		},
		{
			name:      "smoothing removes zeros",
			counts:    []float64{0, 10, 0},
			smoothing: true,
			check: func(t *testing.T, probs []float64) {
				for i, p := range probs {
					if p <= 0 {
						t.Errorf("probs[%d] = %v, want > 0 with smoothing", i, p)
					}
				}
			},
		},
		{
			name:      "zero total yields uniform",
			counts:    []float64{0, 0, 0, 0},
			smoothing: false,
			check: func(t *testing.T, probs []float64) {
				for i, p := range probs {
					if p != 0.25 {
						t.Errorf("probs[%d] = %v, want 0.25", i, p)
					}
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, Normalize(tt.counts, tt.smoothing))
		})
	}
}

func TestCategoricalDistribution(t *testing.T) {
	dist := CategoricalDistribution([]string{"a", "a", "b", "c"})

	if len(dist) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(dist))
	}
	if dist["a"] != 0.5 || dist["b"] != 0.25 || dist["c"] != 0.25 {
		t.Errorf("dist = %v", dist)
	}
}

func TestAlignDistributions(t *testing.T) {
	a := map[string]float64{"x": 0.6, "y": 0.4}
	b := map[string]float64{"y": 0.3, "z": 0.7}

	alignedA, alignedB := AlignDistributions(a, b)

	if len(alignedA) != 3 || len(alignedB) != 3 {
		t.Fatalf("aligned sizes = %d, %d, want 3, 3", len(alignedA), len(alignedB))
	}
	if alignedA["z"] != 0 {
		t.Errorf("alignedA[z] = %v, want 0", alignedA["z"])
	}
	if alignedB["x"] != 0 {
		t.Errorf("alignedB[x] = %v, want 0", alignedB["x"])
	}
	if alignedA["x"] != 0.6 || alignedB["z"] != 0.7 {
		t.Errorf("existing entries changed: %v, %v", alignedA, alignedB)
	}
}

func TestHellingerDistance(t *testing.T) {
	p := []float64{0.25, 0.25, 0.25, 0.25}

	d, err := HellingerDistance(p, p)
	if err != nil {
		t.Fatalf("HellingerDistance() error = %v", err)
	}
	if d > 1e-12 {
		t.Errorf("identical distributions: distance = %v, want 0", d)
	}

	if _, err := HellingerDistance(p, []float64{0.5, 0.5}); !errors.Is(err, ErrValidation) {
		t.Errorf("mismatched lengths: expected ErrValidation, got %v", err)
	}
}

func TestJensenShannonDivergence(t *testing.T) {
	p := []float64{0.1, 0.2, 0.3, 0.4}

	js, err := JensenShannonDivergence(p, p)
	if err != nil {
		t.Fatalf("JensenShannonDivergence() error = %v", err)
	}
	if math.Abs(js) > 1e-8 {
		t.Errorf("identical distributions: divergence = %v, want ~0", js)
	}

	q := []float64{0.4, 0.3, 0.2, 0.1}
	js, err = JensenShannonDivergence(p, q)
	if err != nil {
		t.Fatalf("JensenShannonDivergence() error = %v", err)
	}
	if js <= 0 {
		t.Errorf("different distributions: divergence = %v, want > 0", js)
	}
}

func TestBinStatistics(t *testing.T) {
	baseline := []float64{10, 20, 30, 40}
	current := []float64{40, 30, 20, 10}

	bs, err := BinStatistics(baseline, current)
	if err != nil {
		t.Fatalf("BinStatistics() error = %v", err)
	}

	if bs.TotalBaselineSamples != 100 || bs.TotalCurrentSamples != 100 {
		t.Errorf("totals = %d, %d, want 100, 100", bs.TotalBaselineSamples, bs.TotalCurrentSamples)
	}
	if bs.NumBins != 4 {
		t.Errorf("NumBins = %d, want 4", bs.NumBins)
	}
	if bs.HellingerDistance <= 0 {
		t.Errorf("HellingerDistance = %v, want > 0", bs.HellingerDistance)
	}

	if _, err := BinStatistics(baseline, []float64{1}); !errors.Is(err, ErrValidation) {
		t.Errorf("mismatched lengths: expected ErrValidation, got %v", err)
	}
}

func TestValidateNumerical(t *testing.T) {
	tests := []struct {
		name    string
		values  []float64
		wantErr bool
	}{
		{name: "valid", values: []float64{1, 2, 3}, wantErr: false},
		{name: "empty", values: nil, wantErr: true},
		{name: "NaN", values: []float64{1, math.NaN()}, wantErr: true},
		{name: "Inf", values: []float64{1, math.Inf(1)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNumerical(tt.values)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNumerical() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrValidation) {
				t.Errorf("error should wrap ErrValidation, got %v", err)
			}
		})
	}
}

func TestValidateCategorical(t *testing.T) {
	if err := ValidateCategorical([]string{"a"}); err != nil {
		t.Errorf("ValidateCategorical() error = %v", err)
	}
	if err := ValidateCategorical(nil); !errors.Is(err, ErrValidation) {
		t.Errorf("empty input: expected ErrValidation, got %v", err)
	}
}

package models

import "time"

// InferenceLog is one serving-time observation supplied by a collaborator.
// Only successful inferences within the comparison window feed drift checks.
type InferenceLog struct {
	ID                  string             `json:"id"`
	ModelID             string             `json:"model_id"`
	Status              string             `json:"status"`
	Timestamp           time.Time          `json:"timestamp"`
	NumericalFeatures   map[string]float64 `json:"numerical_features,omitempty"`
	CategoricalFeatures map[string]string  `json:"categorical_features,omitempty"`
}

// StatusSuccess marks an inference log eligible for drift analysis.
const StatusSuccess = "success"

// FeatureSample is an ephemeral collection of values for a single feature,
// extracted from inference logs or synthesized from baseline statistics. It is
// never persisted. Exactly one of Numbers or Values is populated per Type.
type FeatureSample struct {
	Type    FeatureType
	Numbers []float64
	Values  []string
}

// Len returns the number of samples.
func (s *FeatureSample) Len() int {
	if s == nil {
		return 0
	}
	if s.Type == FeatureCategorical {
		return len(s.Values)
	}
	return len(s.Numbers)
}

// ExtractFeatureSamples groups per-feature values out of inference logs. The
// feature type comes from which map the collaborator put the value in.
func ExtractFeatureSamples(logs []*InferenceLog) map[string]*FeatureSample {
	features := make(map[string]*FeatureSample)

	for _, log := range logs {
		for name, value := range log.NumericalFeatures {
			sample, ok := features[name]
			if !ok {
				sample = &FeatureSample{Type: FeatureNumerical}
				features[name] = sample
			}
			sample.Numbers = append(sample.Numbers, value)
		}
		for name, value := range log.CategoricalFeatures {
			sample, ok := features[name]
			if !ok {
				sample = &FeatureSample{Type: FeatureCategorical}
				features[name] = sample
			}
			sample.Values = append(sample.Values, value)
		}
	}

	return features
}

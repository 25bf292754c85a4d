package fallback

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// Model is a pre-trained tabular access classifier exported as a JSON
// artifact: an ordered feature-column list, fitted category-to-code tables
// for the categorical columns, and the scoring weights. The training
// pipeline owns the artifact; this code only honors its input contract.
type Model struct {
	ReferenceDate  string                    `json:"reference_date"`
	FeatureColumns []string                  `json:"feature_columns"`
	Encoders       map[string]map[string]int `json:"encoders"`
	Weights        []float64                 `json:"weights"`
	Bias           float64                   `json:"bias"`
	Threshold      float64                   `json:"threshold"`
}

// LoadModel reads and validates a model artifact.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read model artifact %s: %w", path, err)
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}

	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("invalid model artifact %s: %w", path, err)
	}

	return &m, nil
}

func (m *Model) validate() error {
	if len(m.FeatureColumns) == 0 {
		return fmt.Errorf("feature_columns is empty")
	}
	if len(m.Weights) != len(m.FeatureColumns) {
		return fmt.Errorf("weights count %d does not match feature_columns count %d",
			len(m.Weights), len(m.FeatureColumns))
	}
	if m.Threshold <= 0 || m.Threshold >= 1 {
		m.Threshold = 0.5
	}
	return nil
}

// Score computes the approval probability for a feature vector. The vector
// must be in FeatureColumns order; Build guarantees that.
func (m *Model) Score(features []float64) float64 {
	z := m.Bias
	for i, w := range m.Weights {
		if i < len(features) {
			z += w * features[i]
		}
	}
	return 1.0 / (1.0 + math.Exp(-z))
}

// Approves reports whether a scored probability clears the decision threshold.
func (m *Model) Approves(score float64) bool {
	return score >= m.Threshold
}

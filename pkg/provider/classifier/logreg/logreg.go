// Package logreg implements [classifier.Model] with a local logistic
// regression: sigmoid(w·x + b) over the 17-dimension normalized feature
// vector. Weights are exported from the training pipeline as a small YAML
// file, so inference needs no ML runtime.
package logreg

import (
	"context"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kavachapp/kavach/pkg/provider/classifier"
)

// weightsFile is the on-disk YAML schema for exported model weights.
type weightsFile struct {
	Weights []float64 `yaml:"weights"`
	Bias    float64   `yaml:"bias"`
}

// Model is a logistic-regression classifier. It is read-only after
// construction and therefore safe for concurrent use.
type Model struct {
	weights [classifier.FeatureDim]float64
	bias    float64
}

// Compile-time interface check.
var _ classifier.Model = (*Model)(nil)

// New creates a Model from explicit weights. weights must have exactly
// [classifier.FeatureDim] entries.
func New(weights []float64, bias float64) (*Model, error) {
	if len(weights) != classifier.FeatureDim {
		return nil, fmt.Errorf("logreg: got %d weights, want %d", len(weights), classifier.FeatureDim)
	}
	m := &Model{bias: bias}
	copy(m.weights[:], weights)
	return m, nil
}

// Load reads exported model weights from the YAML file at path.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("logreg: read %q: %w", path, err)
	}
	var wf weightsFile
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("logreg: parse %q: %w", path, err)
	}
	m, err := New(wf.Weights, wf.Bias)
	if err != nil {
		return nil, fmt.Errorf("logreg: %q: %w", path, err)
	}
	return m, nil
}

// Predict returns sigmoid(w·x + b) for the given feature vector.
func (m *Model) Predict(ctx context.Context, features []float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(features) != classifier.FeatureDim {
		return 0, fmt.Errorf("logreg: got %d features, want %d", len(features), classifier.FeatureDim)
	}
	z := m.bias
	for i, w := range m.weights {
		z += w * features[i]
	}
	return 1 / (1 + math.Exp(-z)), nil
}

package feature

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scaler holds the per-feature mean/scale pair used to normalize raw
// features before classifier inference. It is exported from the training
// pipeline together with the model weights.
type Scaler struct {
	Mean  [Dim]float64
	Scale [Dim]float64
}

// scalerFile is the on-disk YAML schema for exported scaler parameters.
type scalerFile struct {
	Mean  []float64 `yaml:"mean"`
	Scale []float64 `yaml:"scale"`
}

// NewScaler builds a Scaler from explicit parameters. Both slices must have
// exactly [Dim] entries; zero scale entries are rejected because they would
// divide by zero during normalization.
func NewScaler(mean, scale []float64) (*Scaler, error) {
	if len(mean) != Dim || len(scale) != Dim {
		return nil, fmt.Errorf("feature: scaler needs %d means and %d scales, got %d and %d",
			Dim, Dim, len(mean), len(scale))
	}
	s := &Scaler{}
	copy(s.Mean[:], mean)
	for i, v := range scale {
		if v == 0 {
			return nil, fmt.Errorf("feature: scale[%d] is zero", i)
		}
		s.Scale[i] = v
	}
	return s, nil
}

// LoadScaler reads scaler parameters from the YAML file at path.
//
// A missing file is not an error condition for the pipeline as a whole —
// the caller disables model-based scoring and continues — so callers should
// check os.IsNotExist on the returned error.
func LoadScaler(path string) (*Scaler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("feature: read scaler %q: %w", path, err)
	}
	var sf scalerFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("feature: parse scaler %q: %w", path, err)
	}
	s, err := NewScaler(sf.Mean, sf.Scale)
	if err != nil {
		return nil, fmt.Errorf("feature: scaler %q: %w", path, err)
	}
	return s, nil
}

// Normalize returns (raw - mean) / scale per feature.
func (s *Scaler) Normalize(raw Vector) Vector {
	var out Vector
	for i := range raw {
		out[i] = (raw[i] - s.Mean[i]) / s.Scale[i]
	}
	return out
}

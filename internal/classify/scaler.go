package classify

import (
	"fmt"

	"github.com/ppiankov/taieye/internal/model"
)

// ScalerSpec is the serialized form of a fitted standard scaler
type ScalerSpec struct {
	Version  string              `yaml:"version" json:"version"`
	Features []model.FeatureName `yaml:"features" json:"features"`
	Mean     []float64           `yaml:"mean" json:"mean"`
	Scale    []float64           `yaml:"scale" json:"scale"`
}

// Scaler standardizes feature vectors with frozen per-feature mean and scale
type Scaler struct {
	spec    ScalerSpec
	version string
}

// NewScaler validates a spec and builds a scaler
func NewScaler(spec ScalerSpec) (*Scaler, error) {
	n := len(spec.Features)
	if n == 0 {
		return nil, fmt.Errorf("%w: scaler has no features", model.ErrModelUnavailable)
	}
	if len(spec.Mean) != n || len(spec.Scale) != n {
		return nil, fmt.Errorf("%w: scaler has %d features, %d means, %d scales",
			model.ErrModelUnavailable, n, len(spec.Mean), len(spec.Scale))
	}
	return &Scaler{spec: spec, version: spec.Version}, nil
}

// LoadScaler reads a scaler artifact
func LoadScaler(path string) (*Scaler, error) {
	var spec ScalerSpec
	hash, err := readArtifact(path, &spec)
	if err != nil {
		return nil, err
	}
	s, err := NewScaler(spec)
	if err != nil {
		return nil, fmt.Errorf("scaler %s: %w", path, err)
	}
	s.version = versionOf(spec.Version, hash)
	return s, nil
}

// SaveScaler writes a scaler artifact
func SaveScaler(path string, spec ScalerSpec) error {
	return writeArtifact(path, spec)
}

// Dim returns the number of features the scaler was fitted on
func (s *Scaler) Dim() int {
	return len(s.spec.Features)
}

// Version identifies the scaler artifact
func (s *Scaler) Version() string {
	return s.version
}

// Transform standardizes fv. Names and order must match the fitted schema exactly.
func (s *Scaler) Transform(fv model.FeatureVector) ([]float64, error) {
	if fv.Len() != s.Dim() {
		return nil, fmt.Errorf("%w: scaler expects %d features, got %d", model.ErrSchemaMismatch, s.Dim(), fv.Len())
	}

	names := fv.Names()
	values := fv.Values()
	out := make([]float64, len(values))
	for i, name := range names {
		if name != s.spec.Features[i] {
			return nil, fmt.Errorf("%w: feature %d is %s, scaler expects %s", model.ErrSchemaMismatch, i, name, s.spec.Features[i])
		}
		scale := s.spec.Scale[i]
		if scale == 0 {
			scale = 1
		}
		out[i] = (values[i] - s.spec.Mean[i]) / scale
	}
	return out, nil
}

func versionOf(declared, hash string) string {
	if declared == "" {
		return hash
	}
	return declared + "@" + hash
}

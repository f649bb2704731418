package classify

import (
	"fmt"
	"math"
	"sort"

	"github.com/ppiankov/taieye/internal/model"
)

// Calibration methods
const (
	CalibrationSigmoid  = "sigmoid"
	CalibrationIsotonic = "isotonic"
)

// CalibrationSpec maps a raw decision value to a probability.
// Sigmoid (Platt) uses A and B: p = 1 / (1 + exp(A*f + B)).
// Isotonic uses the fitted step points X (ascending) and Y.
type CalibrationSpec struct {
	Method string    `yaml:"method" json:"method"`
	A      float64   `yaml:"a,omitempty" json:"a,omitempty"`
	B      float64   `yaml:"b,omitempty" json:"b,omitempty"`
	X      []float64 `yaml:"x,omitempty" json:"x,omitempty"`
	Y      []float64 `yaml:"y,omitempty" json:"y,omitempty"`
}

// MemberSpec is one calibrated linear model of the ensemble
type MemberSpec struct {
	Weights     []float64       `yaml:"weights" json:"weights"`
	Intercept   float64         `yaml:"intercept" json:"intercept"`
	Calibration CalibrationSpec `yaml:"calibration" json:"calibration"`
}

// ClassifierSpec is the serialized calibrated classifier
type ClassifierSpec struct {
	Version  string       `yaml:"version" json:"version"`
	InputDim int          `yaml:"input_dim" json:"input_dim"`
	Members  []MemberSpec `yaml:"members" json:"members"`
}

// Classifier averages the calibrated probabilities of its members
type Classifier struct {
	spec    ClassifierSpec
	version string
}

// NewClassifier validates a spec and builds a classifier
func NewClassifier(spec ClassifierSpec) (*Classifier, error) {
	if spec.InputDim <= 0 {
		return nil, fmt.Errorf("%w: classifier input_dim must be positive", model.ErrModelUnavailable)
	}
	if len(spec.Members) == 0 {
		return nil, fmt.Errorf("%w: classifier has no members", model.ErrModelUnavailable)
	}
	for i, m := range spec.Members {
		if len(m.Weights) != spec.InputDim {
			return nil, fmt.Errorf("%w: member %d has %d weights, input_dim is %d",
				model.ErrModelUnavailable, i, len(m.Weights), spec.InputDim)
		}
		if err := validateCalibration(m.Calibration); err != nil {
			return nil, fmt.Errorf("%w: member %d: %v", model.ErrModelUnavailable, i, err)
		}
	}
	return &Classifier{spec: spec, version: spec.Version}, nil
}

func validateCalibration(c CalibrationSpec) error {
	switch c.Method {
	case CalibrationSigmoid:
		return nil
	case CalibrationIsotonic:
		if len(c.X) == 0 || len(c.X) != len(c.Y) {
			return fmt.Errorf("isotonic calibration needs matching non-empty x and y")
		}
		if !sort.Float64sAreSorted(c.X) {
			return fmt.Errorf("isotonic x must be ascending")
		}
		return nil
	default:
		return fmt.Errorf("unknown calibration method %q", c.Method)
	}
}

// LoadClassifier reads a classifier artifact
func LoadClassifier(path string) (*Classifier, error) {
	var spec ClassifierSpec
	hash, err := readArtifact(path, &spec)
	if err != nil {
		return nil, err
	}
	c, err := NewClassifier(spec)
	if err != nil {
		return nil, fmt.Errorf("classifier %s: %w", path, err)
	}
	c.version = versionOf(spec.Version, hash)
	return c, nil
}

// SaveClassifier writes a classifier artifact
func SaveClassifier(path string, spec ClassifierSpec) error {
	return writeArtifact(path, spec)
}

// InputDim returns the expected input vector length
func (c *Classifier) InputDim() int {
	return c.spec.InputDim
}

// Version identifies the classifier artifact
func (c *Classifier) Version() string {
	return c.version
}

// PredictProba returns the calibrated probability of fake for x
func (c *Classifier) PredictProba(x []float64) (float64, error) {
	if len(x) != c.spec.InputDim {
		return 0, fmt.Errorf("%w: classifier expects %d inputs, got %d", model.ErrSchemaMismatch, c.spec.InputDim, len(x))
	}

	var sum float64
	for _, m := range c.spec.Members {
		f := m.Intercept
		for i, w := range m.Weights {
			f += w * x[i]
		}
		sum += calibrate(m.Calibration, f)
	}
	p := sum / float64(len(c.spec.Members))
	return math.Max(0, math.Min(1, p)), nil
}

func calibrate(c CalibrationSpec, f float64) float64 {
	switch c.Method {
	case CalibrationIsotonic:
		return interpolate(c.X, c.Y, f)
	default:
		return 1 / (1 + math.Exp(c.A*f+c.B))
	}
}

// interpolate is piecewise-linear interpolation clipped to the end points
func interpolate(xs, ys []float64, f float64) float64 {
	if f <= xs[0] {
		return ys[0]
	}
	last := len(xs) - 1
	if f >= xs[last] {
		return ys[last]
	}
	i := sort.SearchFloat64s(xs, f)
	if xs[i] == f {
		return ys[i]
	}
	x0, x1 := xs[i-1], xs[i]
	y0, y1 := ys[i-1], ys[i]
	if x1 == x0 {
		return y1
	}
	return y0 + (y1-y0)*(f-x0)/(x1-x0)
}

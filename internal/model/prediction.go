package model

import "math"

// DefaultThreshold is the probability at or above which a text is labelled fake
const DefaultThreshold = 0.5

// Label is the binary verdict derived from the probability
type Label string

const (
	LabelReal Label = "real"
	LabelFake Label = "fake"
)

// PredictionResult is a calibrated probability of "fake" and its label
type PredictionResult struct {
	Probability float64 `json:"probability"`
	Label       Label   `json:"label"`
}

// NewPrediction clamps p into [0,1] and derives the label from threshold
func NewPrediction(p, threshold float64) PredictionResult {
	if math.IsNaN(p) {
		p = 0
	}
	p = math.Max(0, math.Min(1, p))
	label := LabelReal
	if p >= threshold {
		label = LabelFake
	}
	return PredictionResult{Probability: p, Label: label}
}

// Direction tells which class a contribution pushes toward
type Direction string

const (
	DirectionFake    Direction = "fake"
	DirectionReal    Direction = "real"
	DirectionNeutral Direction = "neutral"
)

// Contribution is the signed weight of one interpretable unit.
// Positive weights push toward fake, negative toward real.
type Contribution struct {
	Unit   string  `json:"unit"`
	Weight float64 `json:"weight"`
}

// Direction returns the class this contribution pushes toward
func (c Contribution) Direction() Direction {
	switch {
	case c.Weight > 0:
		return DirectionFake
	case c.Weight < 0:
		return DirectionReal
	default:
		return DirectionNeutral
	}
}

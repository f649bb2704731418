// Package explain fits a weighted linear surrogate to a scored
// perturbation set and turns its coefficients into ranked contributions.
package explain

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/ppiankov/taieye/internal/model"
	"github.com/ppiankov/taieye/internal/perturb"
)

// DefaultAlpha is the ridge penalty of the surrogate
const DefaultAlpha = 1.0

// Explanation is the local surrogate fitted around one input
type Explanation struct {
	Granularity     perturb.Granularity
	Contributions   []model.Contribution // sorted by |weight| descending
	Intercept       float64
	LocalPrediction float64 // surrogate output for the unperturbed input
	Score           float64 // weighted R² of the surrogate on the samples
	Original        float64 // classifier probability for the unperturbed input
	Samples         int
	Seed            int64
}

// Meta returns the report metadata for this explanation
func (e *Explanation) Meta() model.ExplanationMeta {
	return model.ExplanationMeta{
		Granularity:     string(e.Granularity),
		Samples:         e.Samples,
		Units:           len(e.Contributions),
		Seed:            e.Seed,
		Intercept:       e.Intercept,
		LocalPrediction: e.LocalPrediction,
		Score:           e.Score,
	}
}

// Top returns at most k contributions; k <= 0 returns all of them
func (e *Explanation) Top(k int) []model.Contribution {
	if k <= 0 || k >= len(e.Contributions) {
		return e.Contributions
	}
	return e.Contributions[:k]
}

// Explainer fits weighted ridge regressions. It holds no state between calls.
type Explainer struct {
	alpha float64
}

// NewExplainer creates an explainer with the given ridge penalty
func NewExplainer(alpha float64) *Explainer {
	if alpha < 0 {
		alpha = DefaultAlpha
	}
	return &Explainer{alpha: alpha}
}

// Explain fits the surrogate on set. The target is the probability of fake;
// features are the binary keep/remove masks; rows are weighted by similarity.
// The intercept is not penalized.
func (e *Explainer) Explain(original model.PredictionResult, set *perturb.SampleSet) (*Explanation, error) {
	if set == nil || len(set.Samples) < 2 {
		return nil, fmt.Errorf("%w: at least two samples are needed", model.ErrInvalidParameter)
	}
	d := len(set.Units)
	if d == 0 {
		return nil, fmt.Errorf("%w: sample set has no units", model.ErrInvalidParameter)
	}

	n := len(set.Samples)
	x := mat.NewDense(n, d, nil)
	y := make([]float64, n)
	w := make([]float64, n)
	var wsum float64
	for i, s := range set.Samples {
		if len(s.Mask) != d {
			return nil, fmt.Errorf("%w: sample %d mask has %d units, want %d", model.ErrInvalidParameter, i, len(s.Mask), d)
		}
		for j, kept := range s.Mask {
			if kept {
				x.Set(i, j, 1)
			}
		}
		y[i] = s.Prediction.Probability
		w[i] = s.Weight
		wsum += s.Weight
	}
	if wsum <= 0 {
		return nil, fmt.Errorf("%w: sample weights sum to zero", model.ErrInvalidParameter)
	}

	// weighted means
	xmean := make([]float64, d)
	var ymean float64
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			xmean[j] += w[i] * x.At(i, j)
		}
		ymean += w[i] * y[i]
	}
	for j := range xmean {
		xmean[j] /= wsum
	}
	ymean /= wsum

	// centered, sqrt-weighted design
	xc := mat.NewDense(n, d, nil)
	yc := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		sw := math.Sqrt(w[i])
		for j := 0; j < d; j++ {
			xc.Set(i, j, sw*(x.At(i, j)-xmean[j]))
		}
		yc.SetVec(i, sw*(y[i]-ymean))
	}

	var gram mat.SymDense
	gram.SymOuterK(1, xc.T())
	for j := 0; j < d; j++ {
		gram.SetSym(j, j, gram.At(j, j)+e.alpha)
	}
	var rhs mat.VecDense
	rhs.MulVec(xc.T(), yc)

	var chol mat.Cholesky
	if ok := chol.Factorize(&gram); !ok {
		return nil, fmt.Errorf("surrogate system is not positive definite (alpha=%g)", e.alpha)
	}
	var coef mat.VecDense
	if err := chol.SolveVecTo(&coef, &rhs); err != nil {
		return nil, fmt.Errorf("solve surrogate: %w", err)
	}

	intercept := ymean
	for j := 0; j < d; j++ {
		intercept -= xmean[j] * coef.AtVec(j)
	}

	predict := func(i int) float64 {
		p := intercept
		for j := 0; j < d; j++ {
			p += coef.AtVec(j) * x.At(i, j)
		}
		return p
	}

	var ssRes, ssTot float64
	for i := 0; i < n; i++ {
		r := y[i] - predict(i)
		ssRes += w[i] * r * r
		t := y[i] - ymean
		ssTot += w[i] * t * t
	}
	score := 0.0
	switch {
	case ssTot > 0:
		score = 1 - ssRes/ssTot
	case ssRes == 0:
		score = 1
	}

	contributions := make([]model.Contribution, d)
	for j, unit := range set.Units {
		contributions[j] = model.Contribution{Unit: unit, Weight: coef.AtVec(j)}
	}
	sort.SliceStable(contributions, func(a, b int) bool {
		return math.Abs(contributions[a].Weight) > math.Abs(contributions[b].Weight)
	})

	return &Explanation{
		Granularity:     set.Granularity,
		Contributions:   contributions,
		Intercept:       intercept,
		LocalPrediction: predict(0),
		Score:           score,
		Original:        original.Probability,
		Samples:         n,
		Seed:            set.Seed,
	}, nil
}

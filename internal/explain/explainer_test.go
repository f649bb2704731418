package explain

import (
	"errors"
	"math"
	"testing"

	"github.com/ppiankov/taieye/internal/model"
	"github.com/ppiankov/taieye/internal/perturb"
)

// linearSet builds every mask over len(coef) units with y = bias + coef·mask
func linearSet(units []string, bias float64, coef []float64) *perturb.SampleSet {
	d := len(units)
	set := &perturb.SampleSet{Granularity: perturb.GranularityWord, Units: units, Seed: 42}
	// all-kept first, then every other mask
	for code := (1 << d) - 1; code >= 0; code-- {
		mask := make([]bool, d)
		y := bias
		kept := 0
		for j := 0; j < d; j++ {
			if code&(1<<j) != 0 {
				mask[j] = true
				y += coef[j]
				kept++
			}
		}
		set.Samples = append(set.Samples, perturb.Sample{
			Mask:       mask,
			Prediction: model.NewPrediction(y, 0.5),
			Weight:     perturb.Similarity(kept, d, 25),
		})
	}
	return set
}

func TestExplain_RecoversLinearModel(t *testing.T) {
	units := []string{"BREAKING!!!", "You", "believe"}
	coef := []float64{0.5, -0.3, 0}
	set := linearSet(units, 0.4, coef)

	exp, err := NewExplainer(1e-9).Explain(set.Samples[0].Prediction, set)
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}

	want := map[string]float64{"BREAKING!!!": 0.5, "You": -0.3, "believe": 0}
	for _, c := range exp.Contributions {
		if math.Abs(c.Weight-want[c.Unit]) > 1e-6 {
			t.Errorf("%s weight = %f, want %f", c.Unit, c.Weight, want[c.Unit])
		}
	}
	if math.Abs(exp.Intercept-0.4) > 1e-6 {
		t.Errorf("intercept = %f, want 0.4", exp.Intercept)
	}
	if math.Abs(exp.LocalPrediction-0.6) > 1e-6 {
		t.Errorf("local prediction = %f, want 0.6", exp.LocalPrediction)
	}
	if math.Abs(exp.Score-1) > 1e-6 {
		t.Errorf("score = %f, want 1", exp.Score)
	}
	if math.Abs(exp.Original-0.6) > 1e-12 {
		t.Errorf("original = %f, want 0.6", exp.Original)
	}
}

func TestExplain_RankingAndZeroWeights(t *testing.T) {
	units := []string{"a", "b", "c", "d"}
	set := linearSet(units, 0.5, []float64{0.05, -0.4, 0, 0.2})

	exp, err := NewExplainer(DefaultAlpha).Explain(set.Samples[0].Prediction, set)
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}

	if len(exp.Contributions) != len(units) {
		t.Fatalf("got %d contributions, want one per unit", len(exp.Contributions))
	}
	order := []string{"b", "d", "a", "c"}
	for i, c := range exp.Contributions {
		if c.Unit != order[i] {
			t.Errorf("rank %d = %s, want %s", i, c.Unit, order[i])
		}
	}
	for i := 1; i < len(exp.Contributions); i++ {
		if math.Abs(exp.Contributions[i].Weight) > math.Abs(exp.Contributions[i-1].Weight) {
			t.Errorf("contributions not sorted by |weight| at %d", i)
		}
	}
	if exp.Contributions[0].Direction() != model.DirectionReal {
		t.Errorf("b should push toward real")
	}
}

func TestExplain_TiesKeepFirstOccurrence(t *testing.T) {
	units := []string{"first", "second", "third"}
	set := linearSet(units, 0, []float64{0, 0, 0})

	exp, err := NewExplainer(DefaultAlpha).Explain(set.Samples[0].Prediction, set)
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	for i, c := range exp.Contributions {
		if c.Unit != units[i] {
			t.Errorf("rank %d = %s, want %s", i, c.Unit, units[i])
		}
		if c.Weight != 0 {
			t.Errorf("%s weight = %g, want 0 for a constant target", c.Unit, c.Weight)
		}
	}
	if exp.Score != 1 {
		t.Errorf("score = %f, want 1 for a perfectly fitted constant", exp.Score)
	}
}

func TestExplain_InvalidSets(t *testing.T) {
	e := NewExplainer(DefaultAlpha)

	if _, err := e.Explain(model.PredictionResult{}, nil); !errors.Is(err, model.ErrInvalidParameter) {
		t.Errorf("nil set: err = %v", err)
	}

	one := &perturb.SampleSet{Units: []string{"x"}, Samples: []perturb.Sample{{Mask: []bool{true}, Weight: 1}}}
	if _, err := e.Explain(model.PredictionResult{}, one); !errors.Is(err, model.ErrInvalidParameter) {
		t.Errorf("single sample: err = %v", err)
	}

	ragged := &perturb.SampleSet{
		Units: []string{"x", "y"},
		Samples: []perturb.Sample{
			{Mask: []bool{true, true}, Weight: 1},
			{Mask: []bool{true}, Weight: 0.5},
		},
	}
	if _, err := e.Explain(model.PredictionResult{}, ragged); !errors.Is(err, model.ErrInvalidParameter) {
		t.Errorf("ragged masks: err = %v", err)
	}
}

func TestExplanation_Top(t *testing.T) {
	exp := &Explanation{Contributions: []model.Contribution{{Unit: "a"}, {Unit: "b"}, {Unit: "c"}}}
	if got := len(exp.Top(2)); got != 2 {
		t.Errorf("Top(2) = %d", got)
	}
	if got := len(exp.Top(0)); got != 3 {
		t.Errorf("Top(0) = %d", got)
	}
	if got := len(exp.Top(10)); got != 3 {
		t.Errorf("Top(10) = %d", got)
	}
}

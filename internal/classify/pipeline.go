package classify

import (
	"fmt"

	"github.com/ppiankov/taieye/internal/model"
)

// Pipeline scales features, concatenates them after the embedding and
// returns a calibrated prediction.
type Pipeline struct {
	scaler       *Scaler
	classifier   *Classifier
	embeddingDim int
	threshold    float64
}

// NewPipeline checks that the artifacts agree on the input layout:
// embeddingDim + scaler features must equal the classifier input_dim.
func NewPipeline(scaler *Scaler, classifier *Classifier, embeddingDim int, threshold float64) (*Pipeline, error) {
	if want := embeddingDim + scaler.Dim(); want != classifier.InputDim() {
		return nil, fmt.Errorf("%w: embedding (%d) + scaled features (%d) = %d, classifier expects %d",
			model.ErrSchemaMismatch, embeddingDim, scaler.Dim(), want, classifier.InputDim())
	}
	return &Pipeline{
		scaler:       scaler,
		classifier:   classifier,
		embeddingDim: embeddingDim,
		threshold:    threshold,
	}, nil
}

// Score returns the calibrated prediction for one input.
// A wrong vector length fails with model.ErrSchemaMismatch; nothing is padded or truncated.
func (p *Pipeline) Score(fv model.FeatureVector, emb []float32) (model.PredictionResult, error) {
	if len(emb) != p.embeddingDim {
		return model.PredictionResult{}, fmt.Errorf("%w: embedding has %d dims, expected %d",
			model.ErrSchemaMismatch, len(emb), p.embeddingDim)
	}
	scaled, err := p.scaler.Transform(fv)
	if err != nil {
		return model.PredictionResult{}, err
	}

	x := make([]float64, 0, p.classifier.InputDim())
	for _, v := range emb {
		x = append(x, float64(v))
	}
	x = append(x, scaled...)

	prob, err := p.classifier.PredictProba(x)
	if err != nil {
		return model.PredictionResult{}, err
	}
	return model.NewPrediction(prob, p.threshold), nil
}

// Threshold returns the labelling threshold
func (p *Pipeline) Threshold() float64 {
	return p.threshold
}

// EmbeddingDim returns the expected embedding length
func (p *Pipeline) EmbeddingDim() int {
	return p.embeddingDim
}

// Versions returns the scaler and classifier identities
func (p *Pipeline) Versions() (scaler, classifier string) {
	return p.scaler.Version(), p.classifier.Version()
}

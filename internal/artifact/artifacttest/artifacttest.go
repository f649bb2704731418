// Package artifacttest writes small, fully specified model artifacts for tests.
//
// The classifier is a single Platt-calibrated linear member over a
// two-dimensional embedding plus the ten scaled features. Only exclamation
// frequency (weight 3) and capital letter frequency (weight 1) carry
// weight, with intercept -1, so shouting text scores as fake and calm text
// as real. The scaler is the identity.
package artifacttest

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/taieye/internal/classify"
	"github.com/ppiankov/taieye/internal/embed"
	"github.com/ppiankov/taieye/internal/model"
)

// EmbeddingDim is the dimension of the test embedding
const EmbeddingDim = 2

// Vocabulary is the test embedding table
var Vocabulary = map[string][]float32{
	"breaking":   {1, 0},
	"news":       {0, 1},
	"you":        {1, 1},
	"won't":      {0.5, 0.5},
	"believe":    {1, 0},
	"this":       {0, 1},
	"committee":  {0.2, 0.8},
	"budget":     {0.3, 0.7},
	"meeting":    {0.1, 0.9},
	"discussed":  {0.4, 0.6},
	"government": {0.6, 0.4},
}

// ScalerSpec returns the identity scaler over the full schema
func ScalerSpec() classify.ScalerSpec {
	features := model.Schema()
	mean := make([]float64, len(features))
	scale := make([]float64, len(features))
	for i := range scale {
		scale[i] = 1
	}
	return classify.ScalerSpec{Version: "test-scaler", Features: features, Mean: mean, Scale: scale}
}

// ClassifierSpec returns the single-member shouting detector
func ClassifierSpec() classify.ClassifierSpec {
	schema := model.Schema()
	n := EmbeddingDim + len(schema)
	weights := make([]float64, n)
	for i, name := range schema {
		switch name {
		case model.FeatureExclamation:
			weights[EmbeddingDim+i] = 3
		case model.FeatureCapitalLetters:
			weights[EmbeddingDim+i] = 1
		}
	}
	return classify.ClassifierSpec{
		Version:  "test-classifier",
		InputDim: n,
		Members: []classify.MemberSpec{{
			Weights:     weights,
			Intercept:   -1,
			Calibration: classify.CalibrationSpec{Method: classify.CalibrationSigmoid, A: -1, B: 0},
		}},
	}
}

// Write stores all three artifacts under dir and returns their paths
func Write(tb testing.TB, dir string) model.ArtifactConfig {
	tb.Helper()

	words := make([]string, 0, len(Vocabulary))
	for w := range Vocabulary {
		words = append(words, w)
	}
	var buf bytes.Buffer
	if err := embed.Write(&buf, EmbeddingDim, words, Vocabulary); err != nil {
		tb.Fatalf("write embedding: %v", err)
	}

	paths := model.ArtifactConfig{
		Embedding:  filepath.Join(dir, "embedding.bin"),
		Scaler:     filepath.Join(dir, "scaler.yaml"),
		Classifier: filepath.Join(dir, "classifier.yaml"),
	}
	if err := os.WriteFile(paths.Embedding, buf.Bytes(), 0644); err != nil {
		tb.Fatalf("write embedding: %v", err)
	}
	if err := classify.SaveScaler(paths.Scaler, ScalerSpec()); err != nil {
		tb.Fatalf("write scaler: %v", err)
	}
	if err := classify.SaveClassifier(paths.Classifier, ClassifierSpec()); err != nil {
		tb.Fatalf("write classifier: %v", err)
	}
	return paths
}

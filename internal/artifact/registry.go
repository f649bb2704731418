// Package artifact holds the frozen model artifacts behind lazily
// initialized, read-only handles. Each artifact is loaded at most once;
// a failed load is remembered and returned to every later caller.
package artifact

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/taieye/internal/classify"
	"github.com/ppiankov/taieye/internal/embed"
	"github.com/ppiankov/taieye/internal/logging"
	"github.com/ppiankov/taieye/internal/metrics"
	"github.com/ppiankov/taieye/internal/model"
)

// Registry lazily loads the embedding model, scaler and classifier
type Registry struct {
	paths     model.ArtifactConfig
	threshold float64
	logger    *zap.Logger

	embedOnce sync.Once
	embedding *embed.Model
	embedErr  error

	scalerOnce sync.Once
	scaler     *classify.Scaler
	scalerErr  error

	clfOnce    sync.Once
	classifier *classify.Classifier
	clfErr     error

	pipeOnce sync.Once
	pipeline *classify.Pipeline
	pipeErr  error
}

// NewRegistry creates a registry; nothing is read until first use
func NewRegistry(paths model.ArtifactConfig, threshold float64, logger *zap.Logger) *Registry {
	return &Registry{
		paths:     paths,
		threshold: threshold,
		logger:    logging.OrNop(logger),
	}
}

// Embedding returns the word embedding model
func (r *Registry) Embedding() (*embed.Model, error) {
	r.embedOnce.Do(func() {
		r.embedding, r.embedErr = load(r, "embedding", r.paths.Embedding, embed.Load)
	})
	return r.embedding, r.embedErr
}

// Scaler returns the feature scaler
func (r *Registry) Scaler() (*classify.Scaler, error) {
	r.scalerOnce.Do(func() {
		r.scaler, r.scalerErr = load(r, "scaler", r.paths.Scaler, classify.LoadScaler)
	})
	return r.scaler, r.scalerErr
}

// Classifier returns the calibrated classifier
func (r *Registry) Classifier() (*classify.Classifier, error) {
	r.clfOnce.Do(func() {
		r.classifier, r.clfErr = load(r, "classifier", r.paths.Classifier, classify.LoadClassifier)
	})
	return r.classifier, r.clfErr
}

// Pipeline returns the scoring pipeline assembled from all three artifacts
func (r *Registry) Pipeline() (*classify.Pipeline, error) {
	r.pipeOnce.Do(func() {
		emb, err := r.Embedding()
		if err != nil {
			r.pipeErr = err
			return
		}
		sc, err := r.Scaler()
		if err != nil {
			r.pipeErr = err
			return
		}
		clf, err := r.Classifier()
		if err != nil {
			r.pipeErr = err
			return
		}
		r.pipeline, r.pipeErr = classify.NewPipeline(sc, clf, emb.Dim(), r.threshold)
		if r.pipeErr != nil {
			r.logger.Error("artifacts disagree on input layout", zap.Error(r.pipeErr))
		}
	})
	return r.pipeline, r.pipeErr
}

// Versions returns the identities of the loaded artifacts. Unloaded or
// failed artifacts are reported as empty strings.
func (r *Registry) Versions() model.ArtifactVersions {
	var v model.ArtifactVersions
	if emb, err := r.Embedding(); err == nil {
		v.Embedding = emb.Version()
	}
	if sc, err := r.Scaler(); err == nil {
		v.Scaler = sc.Version()
	}
	if clf, err := r.Classifier(); err == nil {
		v.Classifier = clf.Version()
	}
	return v
}

// Status reports per-artifact availability without panicking or failing
func (r *Registry) Status() map[string]string {
	status := make(map[string]string, 3)
	check := func(name string, err error) {
		if err != nil {
			status[name] = err.Error()
		} else {
			status[name] = "ok"
		}
	}
	_, err := r.Embedding()
	check("embedding", err)
	_, err = r.Scaler()
	check("scaler", err)
	_, err = r.Classifier()
	check("classifier", err)
	return status
}

func load[T any](r *Registry, name, path string, fn func(string) (T, error)) (T, error) {
	start := time.Now()
	v, err := fn(path)
	if err != nil {
		metrics.ArtifactLoads.WithLabelValues(name, "error").Inc()
		r.logger.Error("artifact load failed",
			zap.String("artifact", name),
			zap.String("path", path),
			zap.Error(err))
		var zero T
		return zero, fmt.Errorf("load %s: %w", name, err)
	}
	metrics.ArtifactLoads.WithLabelValues(name, "ok").Inc()
	r.logger.Info("artifact loaded",
		zap.String("artifact", name),
		zap.String("path", path),
		zap.Duration("elapsed", time.Since(start)))
	return v, nil
}

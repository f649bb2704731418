// Package perturb generates the perturbed neighbourhood of an input and
// scores every neighbour with the classifier pipeline.
//
// A unit is either a distinct word of the document or a named feature of
// the schema. Sample 0 is always the unperturbed input. Every other sample
// removes k units, with k drawn uniformly from [1, d-1] and the removed
// positions drawn without replacement, from a seeded PCG generator. All
// masks are drawn before scoring starts, so a (seed, count) pair yields the
// same sample set however the worker pool schedules the scoring.
package perturb

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/ppiankov/taieye/internal/extract"
	"github.com/ppiankov/taieye/internal/logging"
	"github.com/ppiankov/taieye/internal/metrics"
	"github.com/ppiankov/taieye/internal/model"
	"github.com/ppiankov/taieye/internal/worker"
)

// Granularity selects what a perturbation removes
type Granularity string

const (
	GranularityWord    Granularity = "word"
	GranularityFeature Granularity = "feature"
)

// ParseGranularity validates a granularity name
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case GranularityWord, GranularityFeature:
		return Granularity(s), nil
	default:
		return "", fmt.Errorf("%w: unknown granularity %q", model.ErrInvalidParameter, s)
	}
}

// Embedder maps text to a fixed-length document vector
type Embedder interface {
	Embed(text string) []float32
	Dim() int
}

// Scorer returns the calibrated prediction for one input
type Scorer interface {
	Score(fv model.FeatureVector, emb []float32) (model.PredictionResult, error)
}

// Options tune the sampler
type Options struct {
	Workers     int
	MinSamples  int
	MaxSamples  int
	KernelWidth float64
}

// DefaultOptions mirrors the default explain configuration
func DefaultOptions() Options {
	return Options{
		Workers:     4,
		MinSamples:  25,
		MaxSamples:  500,
		KernelWidth: 25,
	}
}

// Sample is one perturbed input and its score
type Sample struct {
	Mask       []bool // true where the unit is kept
	Text       string // variant text; empty for feature-level samples
	Prediction model.PredictionResult
	Weight     float64 // similarity to the original input
}

// Removed returns the number of units the sample drops
func (s Sample) Removed() int {
	return countRemoved(s.Mask)
}

// SampleSet is the scored neighbourhood of one input
type SampleSet struct {
	Granularity Granularity
	Units       []string
	Seed        int64
	Samples     []Sample
}

// Sampler builds and scores perturbation sets. It is safe for concurrent use.
type Sampler struct {
	extractor extract.FeatureExtractor
	embedder  Embedder
	scorer    Scorer
	opts      Options
	logger    *zap.Logger
}

// NewSampler creates a sampler over the given extractor, embedder and scorer
func NewSampler(extractor extract.FeatureExtractor, embedder Embedder, scorer Scorer, opts Options, logger *zap.Logger) *Sampler {
	if opts.KernelWidth <= 0 {
		opts.KernelWidth = 25
	}
	if opts.MinSamples <= 0 {
		opts.MinSamples = 25
	}
	if opts.MaxSamples < opts.MinSamples {
		opts.MaxSamples = opts.MinSamples
	}
	return &Sampler{
		extractor: extractor,
		embedder:  embedder,
		scorer:    scorer,
		opts:      opts,
		logger:    logging.OrNop(logger),
	}
}

// ClampCount validates a requested sample count. Negative counts are
// rejected; anything else is clamped into [lo, hi].
func ClampCount(count, lo, hi int) (int, error) {
	if count < 0 {
		return 0, fmt.Errorf("%w: sample count %d is negative", model.ErrInvalidParameter, count)
	}
	if count < lo {
		return lo, nil
	}
	if count > hi {
		return hi, nil
	}
	return count, nil
}

// Count returns the number of samples Sample draws for a requested count
func (s *Sampler) Count(count int) (int, error) {
	return ClampCount(count, s.opts.MinSamples, s.opts.MaxSamples)
}

// Similarity is the kernel weight of a sample keeping kept of n units:
// the cosine distance to the all-ones presence vector, scaled by 100,
// through an exponential kernel of the given width.
func Similarity(kept, n int, width float64) float64 {
	if n <= 0 {
		return 0
	}
	cos := math.Sqrt(float64(kept) / float64(n))
	d := (1 - cos) * 100
	return math.Sqrt(math.Exp(-(d * d) / (width * width)))
}

// Sample generates count perturbations of doc at the given granularity and
// scores them. Cancellation returns ctx.Err() and no samples.
func (s *Sampler) Sample(ctx context.Context, doc model.Document, granularity Granularity, count int, seed int64) (*SampleSet, error) {
	if _, err := ParseGranularity(string(granularity)); err != nil {
		return nil, err
	}
	n, err := s.Count(count)
	if err != nil {
		return nil, err
	}

	original, err := s.extractor.Extract(doc.Text())
	if err != nil {
		return nil, err
	}
	emb := s.embedder.Embed(doc.Text())

	var units []string
	switch granularity {
	case GranularityWord:
		units = doc.Units()
	case GranularityFeature:
		for _, name := range original.Names() {
			units = append(units, string(name))
		}
	}
	if len(units) == 0 {
		return nil, model.ErrEmptyInput
	}

	masks := drawMasks(len(units), n, seed)

	set := &SampleSet{
		Granularity: granularity,
		Units:       units,
		Seed:        seed,
		Samples:     make([]Sample, n),
	}
	for i, mask := range masks {
		set.Samples[i] = Sample{Mask: mask}
		set.Samples[i].Weight = Similarity(len(units)-set.Samples[i].Removed(), len(units), s.opts.KernelWidth)
		if granularity == GranularityWord {
			if i == 0 {
				set.Samples[i].Text = doc.Text()
			} else {
				set.Samples[i].Text = doc.Without(removedSet(units, mask))
			}
		}
	}

	if err := s.score(ctx, set, original, emb); err != nil {
		return nil, err
	}

	metrics.PerturbationsScored.WithLabelValues(string(granularity)).Add(float64(n))
	s.logger.Debug("perturbations scored",
		zap.String("granularity", string(granularity)),
		zap.Int("units", len(units)),
		zap.Int("samples", n),
		zap.Int64("seed", seed))
	return set, nil
}

// drawMasks draws every mask sequentially from one seeded generator
func drawMasks(d, n int, seed int64) [][]bool {
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))

	masks := make([][]bool, n)
	for i := range masks {
		mask := make([]bool, d)
		for j := range mask {
			mask[j] = true
		}
		masks[i] = mask
		if i == 0 {
			continue
		}

		k := d
		if d > 1 {
			k = 1 + rng.IntN(d-1)
		}
		for _, pos := range rng.Perm(d)[:k] {
			mask[pos] = false
		}
	}
	return masks
}

func countRemoved(mask []bool) int {
	n := 0
	for _, kept := range mask {
		if !kept {
			n++
		}
	}
	return n
}

func removedSet(units []string, mask []bool) map[string]bool {
	removed := make(map[string]bool)
	for i, kept := range mask {
		if !kept {
			removed[units[i]] = true
		}
	}
	return removed
}

// scoreJob scores one sample of the set
type scoreJob struct {
	index    int
	set      *SampleSet
	original model.FeatureVector
	emb      []float32
	sampler  *Sampler
}

type scoreResult struct {
	index      int
	prediction model.PredictionResult
	err        error
}

func (r *scoreResult) GetError() error {
	return r.err
}

func (j *scoreJob) Execute(ctx context.Context) worker.Result {
	if err := ctx.Err(); err != nil {
		return &scoreResult{index: j.index, err: err}
	}
	pred, err := j.sampler.scoreOne(j.set, j.index, j.original, j.emb)
	return &scoreResult{index: j.index, prediction: pred, err: err}
}

func (s *Sampler) score(ctx context.Context, set *SampleSet, original model.FeatureVector, emb []float32) error {
	pool := worker.NewPool(ctx, s.opts.Workers)
	pool.Start()

	for i := range set.Samples {
		job := &scoreJob{index: i, set: set, original: original, emb: emb, sampler: s}
		if err := pool.Submit(job); err != nil {
			pool.Shutdown()
			return err
		}
	}

	results := pool.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(results) != len(set.Samples) {
		return fmt.Errorf("scored %d of %d samples", len(results), len(set.Samples))
	}

	for _, res := range results {
		r := res.(*scoreResult)
		if r.err != nil {
			return fmt.Errorf("score sample %d: %w", r.index, r.err)
		}
		set.Samples[r.index].Prediction = r.prediction
	}
	return nil
}

// scoreOne builds the input for one sample and scores it
func (s *Sampler) scoreOne(set *SampleSet, i int, original model.FeatureVector, emb []float32) (model.PredictionResult, error) {
	sample := set.Samples[i]

	if set.Granularity == GranularityFeature {
		var drop []model.FeatureName
		for j, kept := range sample.Mask {
			if !kept {
				drop = append(drop, model.FeatureName(set.Units[j]))
			}
		}
		return s.scorer.Score(original.Masked(drop...), copyEmbedding(emb))
	}

	if i == 0 {
		return s.scorer.Score(original, copyEmbedding(emb))
	}

	fv, err := s.extractor.Extract(sample.Text)
	if errors.Is(err, model.ErrEmptyInput) {
		return s.scorer.Score(model.ZeroFeatureVector(), make([]float32, s.embedder.Dim()))
	}
	if err != nil {
		return model.PredictionResult{}, err
	}
	return s.scorer.Score(fv, s.embedder.Embed(sample.Text))
}

func copyEmbedding(emb []float32) []float32 {
	out := make([]float32, len(emb))
	copy(out, emb)
	return out
}

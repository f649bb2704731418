package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/taieye/internal/artifact"
	"github.com/ppiankov/taieye/internal/cache"
	"github.com/ppiankov/taieye/internal/explain"
	"github.com/ppiankov/taieye/internal/extract"
	"github.com/ppiankov/taieye/internal/langguard"
	"github.com/ppiankov/taieye/internal/llm"
	"github.com/ppiankov/taieye/internal/logging"
	"github.com/ppiankov/taieye/internal/metrics"
	"github.com/ppiankov/taieye/internal/model"
	"github.com/ppiankov/taieye/internal/perturb"
)

// Analysis modes used as metric labels
const (
	modeFull     = "full"
	modeFeatures = "features"
)

// Request is one analysis call
type Request struct {
	Text    string
	Samples int    // 0 uses the configured default; negative is rejected
	Seed    *int64 // nil uses the configured seed
	Narrate bool   // attach an LLM narrative when a provider is configured
}

// Analyzer orchestrates the complete analysis: language guard, feature
// extraction, scoring, and word and feature explanations.
type Analyzer struct {
	config    *model.Config
	guard     *langguard.Guard
	extractor extract.FeatureExtractor
	registry  *artifact.Registry
	explainer *explain.Explainer
	cache     cache.Cache   // nil when disabled
	narrator  *llm.Narrator // nil when no provider is configured
	logger    *zap.Logger
}

// NewAnalyzer creates an analyzer with the given configuration.
// Artifacts are not read until the first full analysis.
func NewAnalyzer(cfg *model.Config, logger *zap.Logger) (*Analyzer, error) {
	logger = logging.OrNop(logger)

	base, err := extract.NewExtractor()
	if err != nil {
		return nil, fmt.Errorf("load lexicons: %w", err)
	}

	reportCache, err := cache.New(cfg.Cache, logger)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}

	var narrator *llm.Narrator
	if cfg.LLM.Provider != "" {
		n, err := llm.NewNarrator(llm.ConfigFromModel(cfg.LLM), logger)
		if err != nil {
			logger.Warn("Failed to initialize LLM provider; narratives disabled", zap.Error(err))
		} else {
			narrator = n
		}
	}

	return &Analyzer{
		config:    cfg,
		guard:     langguard.New(cfg.Language),
		extractor: extract.NewMemo(base, 10*time.Minute),
		registry:  artifact.NewRegistry(cfg.Artifacts, cfg.Classifier.Threshold, logger),
		explainer: explain.NewExplainer(cfg.Explain.RidgeAlpha),
		cache:     reportCache,
		narrator:  narrator,
		logger:    logger,
	}, nil
}

// Registry exposes the artifact registry for health checks
func (a *Analyzer) Registry() *artifact.Registry {
	return a.registry
}

// Analyze scores req.Text and explains the prediction at word and feature
// granularity. No partial report is returned with an error.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*model.Report, error) {
	start := time.Now()
	report, err := a.analyze(ctx, req)
	a.observe(modeFull, start, err)
	if err != nil {
		a.logger.Info("analysis rejected",
			zap.String("reason", string(model.ReasonOf(err))),
			zap.Error(err))
		return nil, err
	}

	metrics.Probability.Observe(report.Probability)
	metrics.LabelTotal.WithLabelValues(string(report.Label)).Inc()
	a.logger.Info("analysis complete",
		zap.String("id", report.ID),
		zap.Float64("probability", report.Probability),
		zap.String("label", string(report.Label)),
		zap.Bool("cached", report.Cached),
		zap.Duration("elapsed", time.Since(start)))
	return report, nil
}

// AnalyzeText analyzes text with the configured defaults
func (a *Analyzer) AnalyzeText(ctx context.Context, text string) (*model.Report, error) {
	return a.Analyze(ctx, Request{Text: text})
}

// AnalyzeFeatures runs only the language guard and the feature extractor.
// It never loads model artifacts.
func (a *Analyzer) AnalyzeFeatures(ctx context.Context, text string) (*model.FeatureReport, error) {
	start := time.Now()
	fr, err := a.analyzeFeatures(ctx, text)
	a.observe(modeFeatures, start, err)
	if err != nil {
		return nil, err
	}
	return fr, nil
}

func (a *Analyzer) analyzeFeatures(ctx context.Context, text string) (*model.FeatureReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lang, err := a.admit(text)
	if err != nil {
		return nil, err
	}
	fv, err := a.extractor.Extract(text)
	if err != nil {
		return nil, fmt.Errorf("extract features: %w", err)
	}
	return &model.FeatureReport{
		WordCount: len(model.NewDocument(text).Words()),
		Language:  lang,
		Features:  fv,
	}, nil
}

func (a *Analyzer) analyze(ctx context.Context, req Request) (*model.Report, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	samples := req.Samples
	if samples < 0 {
		return nil, fmt.Errorf("%w: samples must not be negative, got %d", model.ErrInvalidParameter, samples)
	}
	if samples == 0 {
		samples = a.config.Explain.Samples
	}
	seed := a.config.Explain.Seed
	if req.Seed != nil {
		seed = *req.Seed
	}

	lang, err := a.admit(req.Text)
	if err != nil {
		return nil, err
	}

	// Artifacts are needed from here on
	pipe, err := a.registry.Pipeline()
	if err != nil {
		return nil, err
	}
	embedding, err := a.registry.Embedding()
	if err != nil {
		return nil, err
	}
	versions := a.registry.Versions()

	sampler := perturb.NewSampler(a.extractor, embedding, pipe, perturb.Options{
		Workers:     a.config.Concurrency.Workers,
		MinSamples:  a.config.Explain.MinSamples,
		MaxSamples:  a.config.Explain.MaxSamples,
		KernelWidth: a.config.Explain.KernelWidth,
	}, a.logger)
	// requests that clamp to the same count share a cache entry
	if samples, err = sampler.Count(samples); err != nil {
		return nil, err
	}

	key := cache.CacheKey(req.Text, samples, seed, versions)
	if cached := a.lookup(ctx, key); cached != nil {
		// every result gets its own classification ID
		cached.ID = uuid.New().String()
		cached.CreatedAt = time.Now().UTC()
		cached.ElapsedMS = time.Since(start).Milliseconds()
		cached.Cached = true
		cached.Language = lang
		a.attachNarrative(ctx, cached, req.Narrate)
		return cached, nil
	}

	fv, err := a.extractor.Extract(req.Text)
	if err != nil {
		return nil, fmt.Errorf("extract features: %w", err)
	}
	original, err := pipe.Score(fv, embedding.Embed(req.Text))
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}

	doc := model.NewDocument(req.Text)
	words, err := a.explain(ctx, sampler, doc, original, perturb.GranularityWord, samples, seed)
	if err != nil {
		return nil, err
	}
	features, err := a.explain(ctx, sampler, doc, original, perturb.GranularityFeature, samples, seed)
	if err != nil {
		return nil, err
	}

	report := &model.Report{
		ID:                   uuid.New().String(),
		CreatedAt:            time.Now().UTC(),
		TextChars:            len([]rune(req.Text)),
		WordCount:            len(doc.Words()),
		Probability:          original.Probability,
		Label:                original.Label,
		Threshold:            pipe.Threshold(),
		Language:             lang,
		Features:             fv,
		WordContributions:    words.Top(a.config.Explain.TopWords),
		FeatureContributions: features.Contributions,
		WordExplanation:      words.Meta(),
		FeatureExplanation:   features.Meta(),
		Artifacts:            versions,
		ElapsedMS:            time.Since(start).Milliseconds(),
	}

	a.store(ctx, key, report)
	a.attachNarrative(ctx, report, req.Narrate)
	return report, nil
}

// admit rejects empty and non-English text before any scoring
func (a *Analyzer) admit(text string) (model.LanguageInfo, error) {
	if extract.WordCount(text) == 0 {
		return model.LanguageInfo{}, model.ErrEmptyInput
	}

	lang := a.guard.Check(text)
	metrics.LanguageVerdicts.WithLabelValues(string(lang.Verdict)).Inc()
	switch lang.Verdict {
	case model.LanguageNonEnglish:
		return lang, fmt.Errorf("%w: detected %s", model.ErrNonEnglish, lang.Language)
	case model.LanguageIndeterminate:
		if a.config.Language.Strict {
			return lang, fmt.Errorf("%w: %s", model.ErrLanguageIndeterminate, lang.Reason)
		}
		a.logger.Debug("language indeterminate, continuing", zap.String("reason", lang.Reason))
	}
	return lang, nil
}

func (a *Analyzer) explain(ctx context.Context, sampler *perturb.Sampler, doc model.Document, original model.PredictionResult,
	granularity perturb.Granularity, samples int, seed int64) (*explain.Explanation, error) {
	set, err := sampler.Sample(ctx, doc, granularity, samples, seed)
	if err != nil {
		return nil, fmt.Errorf("sample %s perturbations: %w", granularity, err)
	}
	exp, err := a.explainer.Explain(original, set)
	if err != nil {
		return nil, fmt.Errorf("explain %s: %w", granularity, err)
	}
	return exp, nil
}

// lookup returns a cached report or nil. A corrupt entry counts as a miss.
func (a *Analyzer) lookup(ctx context.Context, key string) *model.Report {
	if a.cache == nil {
		return nil
	}
	backend := a.cacheBackend()
	data, ok := a.cache.Get(ctx, key)
	if !ok {
		metrics.CacheMisses.WithLabelValues(backend).Inc()
		return nil
	}
	var report model.Report
	if err := json.Unmarshal(data, &report); err != nil {
		a.logger.Warn("discarding corrupt cache entry", zap.String("key", key), zap.Error(err))
		metrics.CacheMisses.WithLabelValues(backend).Inc()
		return nil
	}
	metrics.CacheHits.WithLabelValues(backend).Inc()
	return &report
}

// store caches the report without its narrative
func (a *Analyzer) store(ctx context.Context, key string, report *model.Report) {
	if a.cache == nil {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		a.logger.Warn("failed to encode report for cache", zap.Error(err))
		return
	}
	if err := a.cache.Set(ctx, key, data, 0); err != nil {
		a.logger.Warn("failed to cache report", zap.String("key", key), zap.Error(err))
	}
}

func (a *Analyzer) cacheBackend() string {
	if a.config.Cache.Backend == "" {
		return cache.BackendMemory
	}
	return a.config.Cache.Backend
}

// attachNarrative runs after scoring and never changes it
func (a *Analyzer) attachNarrative(ctx context.Context, report *model.Report, requested bool) {
	report.Narrative = nil
	if !requested || !a.narrator.IsEnabled() {
		return
	}
	narrative, err := a.narrator.Generate(ctx, *report)
	if err != nil {
		a.logger.Warn("LLM narrative generation failed", zap.Error(err))
		return
	}
	report.Narrative = narrative
}

func (a *Analyzer) observe(mode string, start time.Time, err error) {
	reason := string(model.ReasonOf(err))
	if reason == "" {
		reason = "ok"
	}
	metrics.AnalysisTotal.WithLabelValues(mode, reason).Inc()
	metrics.AnalysisDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
}

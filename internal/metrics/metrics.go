package metrics

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AnalysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taieye_analysis_duration_seconds",
			Help:    "Analysis duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"mode"},
	)

	AnalysisTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taieye_analysis_total",
			Help: "Total analyses by outcome reason",
		},
		[]string{"mode", "reason"},
	)

	Probability = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "taieye_probability",
			Help:    "Calibrated probability of fake",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	LabelTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taieye_label_total",
			Help: "Predictions by label",
		},
		[]string{"label"},
	)

	PerturbationsScored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taieye_perturbations_scored_total",
			Help: "Perturbed variants scored by the classifier",
		},
		[]string{"granularity"},
	)

	LanguageVerdicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taieye_language_verdict_total",
			Help: "Language guard outcomes",
		},
		[]string{"verdict"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taieye_cache_hits_total",
			Help: "Total report cache hits",
		},
		[]string{"backend"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taieye_cache_misses_total",
			Help: "Total report cache misses",
		},
		[]string{"backend"},
	)

	ArtifactLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taieye_artifact_loads_total",
			Help: "Artifact load attempts by artifact and status",
		},
		[]string{"artifact", "status"},
	)

	NarrativeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taieye_narrative_total",
			Help: "LLM narratives by provider and status",
		},
		[]string{"provider", "status"},
	)
)

var initOnce sync.Once

// Init registers all collectors with the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(AnalysisDuration)
		prometheus.MustRegister(AnalysisTotal)
		prometheus.MustRegister(Probability)
		prometheus.MustRegister(LabelTotal)
		prometheus.MustRegister(PerturbationsScored)
		prometheus.MustRegister(LanguageVerdicts)
		prometheus.MustRegister(CacheHits)
		prometheus.MustRegister(CacheMisses)
		prometheus.MustRegister(ArtifactLoads)
		prometheus.MustRegister(NarrativeTotal)
	})
}

// Handler exposes the default registry on a fiber route
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

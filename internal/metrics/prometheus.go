package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sahayak_search_duration_seconds",
			Help:    "Scheme search duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"path"},
	)

	SearchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sahayak_search_total",
			Help: "Total scheme searches by resolution path",
		},
		[]string{"path"},
	)

	ChatTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sahayak_chat_total",
			Help: "Total chat turns by answer source",
		},
		[]string{"source"},
	)

	ChatDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sahayak_chat_duration_seconds",
			Help:    "Chat turn processing duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"source"},
	)

	AnalyzerStatus = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sahayak_analyzer_status_total",
			Help: "Model analysis outcomes (ok vs fallback)",
		},
		[]string{"operation", "status"},
	)

	IntentConfidence = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sahayak_intent_confidence",
			Help:    "Reported intent confidence scores",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	EligibilityVerdicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sahayak_eligibility_verdicts_total",
			Help: "Eligibility check outcomes",
		},
		[]string{"verdict"},
	)

	FAQGeneration = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sahayak_faq_generation_total",
			Help: "FAQ generation runs by method",
		},
		[]string{"method"},
	)

	QueriesTracked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sahayak_queries_tracked_total",
			Help: "Total search queries recorded for popularity tracking",
		},
	)

	ExternalStubs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sahayak_external_stubs_total",
			Help: "Total synthesized external placeholder results",
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sahayak_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sahayak_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	SchemesImported = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sahayak_schemes_imported_total",
			Help: "Total scheme records imported",
		},
	)
)

func Init() {
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchTotal)
	prometheus.MustRegister(ChatTotal)
	prometheus.MustRegister(ChatDuration)
	prometheus.MustRegister(AnalyzerStatus)
	prometheus.MustRegister(IntentConfidence)
	prometheus.MustRegister(EligibilityVerdicts)
	prometheus.MustRegister(FAQGeneration)
	prometheus.MustRegister(QueriesTracked)
	prometheus.MustRegister(ExternalStubs)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(SchemesImported)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

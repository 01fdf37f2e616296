package metrics

import "github.com/prometheus/client_golang/prometheus"

// Generation backend Prometheus metrics.
var (
	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "contraq",
			Name:      "generation_requests_total",
			Help:      "Total number of generation backend requests",
		},
		[]string{"provider", "model", "status"},
	)

	GenerationRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "contraq",
			Name:      "generation_request_duration_seconds",
			Help:      "Generation backend request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"provider", "model"},
	)

	GenerationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "contraq",
			Name:      "generation_errors_total",
			Help:      "Total generation backend errors",
		},
		[]string{"provider", "model", "error_type"},
	)

	GenerationFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "contraq",
			Name:      "generation_fallbacks_total",
			Help:      "Answers that fell through to the next chain entry",
		},
		[]string{"provider"},
	)
)

// RegisterGenerationMetrics registers generation metrics explicitly (no init()).
func RegisterGenerationMetrics() {
	prometheus.MustRegister(GenerationRequestsTotal)
	prometheus.MustRegister(GenerationRequestDuration)
	prometheus.MustRegister(GenerationErrorsTotal)
	prometheus.MustRegister(GenerationFallbacksTotal)
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

// Business operation counters.
var (
	DocumentsIngestedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "contraq",
			Name:      "documents_ingested_total",
			Help:      "Total documents ingested",
		},
	)

	ExtractionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "contraq",
			Name:      "extractions_total",
			Help:      "Total field extraction runs",
		},
	)

	QuestionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "contraq",
			Name:      "questions_total",
			Help:      "Total questions answered",
		},
	)

	AuditsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "contraq",
			Name:      "audits_total",
			Help:      "Total risk audits performed",
		},
	)

	RiskFindingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "contraq",
			Name:      "risk_findings_total",
			Help:      "Total risk findings produced, by severity",
		},
		[]string{"severity"},
	)
)

// RegisterOperationMetrics registers operation counters explicitly (no init()).
func RegisterOperationMetrics() {
	prometheus.MustRegister(DocumentsIngestedTotal)
	prometheus.MustRegister(ExtractionsTotal)
	prometheus.MustRegister(QuestionsTotal)
	prometheus.MustRegister(AuditsTotal)
	prometheus.MustRegister(RiskFindingsTotal)
}

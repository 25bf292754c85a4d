package metrics

import "github.com/prometheus/client_golang/prometheus"

// Access-decision and model-call Prometheus metrics.
var (
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docguard",
			Name:      "decisions_total",
			Help:      "Terminal access decisions by gate and status",
		},
		[]string{"gate", "status"},
	)

	ClassifierRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docguard",
			Name:      "classifier_requests_total",
			Help:      "Department classification attempts by method and outcome",
		},
		[]string{"method", "outcome"}, // method: "llm" / "keyword"
	)

	ClassifierDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docguard",
			Name:      "classifier_duration_seconds",
			Help:      "Department classification call duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method"},
	)

	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docguard",
			Name:      "generation_requests_total",
			Help:      "Answer generation requests by model and status",
		},
		[]string{"model", "status"},
	)

	GenerationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docguard",
			Name:      "generation_duration_seconds",
			Help:      "Answer generation duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"model"},
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docguard",
			Name:      "embedding_requests_total",
			Help:      "Embedding requests by model and status",
		},
		[]string{"model", "status"},
	)

	DocumentsFilteredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docguard",
			Name:      "documents_filtered_total",
			Help:      "Retrieved documents removed by the access filter",
		},
		[]string{"reason"},
	)
)

var registered bool

// Register registers the decision metrics. Must be called once from main.
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(DecisionsTotal)
	prometheus.MustRegister(ClassifierRequestsTotal)
	prometheus.MustRegister(ClassifierDuration)
	prometheus.MustRegister(GenerationRequestsTotal)
	prometheus.MustRegister(GenerationDuration)
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(DocumentsFilteredTotal)
	registered = true
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingestion Prometheus metrics.
var (
	IngestMoviesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reelrank",
			Name:      "ingest_movies_total",
			Help:      "Movies processed by ingestion",
		},
		[]string{"status"}, // "indexed" / "failed"
	)

	IngestBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reelrank",
			Name:      "ingest_batches_total",
			Help:      "Ingestion batches processed",
		},
		[]string{"status"},
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reelrank",
			Name:      "search_requests_total",
			Help:      "Search requests served",
		},
		[]string{"status"},
	)
)

var ingestMetricsRegistered bool

// RegisterPipelineMetrics registers ingestion and search metrics. Must be
// called once from main.
func RegisterPipelineMetrics() {
	if ingestMetricsRegistered {
		return
	}
	prometheus.MustRegister(IngestMoviesTotal)
	prometheus.MustRegister(IngestBatchesTotal)
	prometheus.MustRegister(SearchRequestsTotal)
	ingestMetricsRegistered = true
}

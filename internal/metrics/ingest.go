package metrics

import "github.com/prometheus/client_golang/prometheus"

// Indexing and transcription metrics, exposed by cvctl runs with --metrics-addr.
var (
	IndexRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cvsearch",
			Name:      "index_rows_total",
			Help:      "Dataset rows sent to the search engine by outcome",
		},
		[]string{"outcome"}, // "indexed" / "failed"
	)

	IndexDocuments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cvsearch",
			Name:      "index_documents",
			Help:      "Searchable documents after the last index run",
		},
	)

	TranscriptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cvsearch",
			Name:      "transcriptions_total",
			Help:      "Audio files processed by outcome",
		},
		[]string{"backend", "outcome"}, // outcome: "ok" / "error" / "skipped" / "missing"
	)

	TranscriptionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cvsearch",
			Name:      "transcription_duration_seconds",
			Help:      "ASR request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"backend"},
	)

	CheckpointsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cvsearch",
			Name:      "transcription_checkpoints_total",
			Help:      "Progress checkpoints written",
		},
	)
)

var ingestMetricsRegistered bool

// RegisterIngestMetrics registers indexing and transcription metrics. Must be called once from main.
func RegisterIngestMetrics() {
	if ingestMetricsRegistered {
		return
	}
	prometheus.MustRegister(IndexRowsTotal)
	prometheus.MustRegister(IndexDocuments)
	prometheus.MustRegister(TranscriptionsTotal)
	prometheus.MustRegister(TranscriptionDuration)
	prometheus.MustRegister(CheckpointsTotal)
	ingestMetricsRegistered = true
}

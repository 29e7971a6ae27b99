// Package metrics exposes Prometheus instrumentation for categorization runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Document statuses.
const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// Recorder holds the run collectors. A nil *Recorder records nothing.
type Recorder struct {
	documents     *prometheus.CounterVec
	chunkFailures prometheus.Counter
	duration      prometheus.Histogram
	inflight      prometheus.Gauge
}

// NewRecorder registers the collectors with reg. A nil reg uses the
// default registerer.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		documents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "epimine",
			Name:      "documents_total",
			Help:      "Documents handled by the aggregator, by outcome.",
		}, []string{"status"}),
		chunkFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "epimine",
			Name:      "oracle_chunk_failures_total",
			Help:      "Text chunks the oracle failed to score.",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "epimine",
			Name:      "document_duration_seconds",
			Help:      "Time spent processing one document.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
		inflight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "epimine",
			Name:      "documents_inflight",
			Help:      "Documents currently being processed.",
		}),
	}
}

// Document records the outcome of one document.
func (r *Recorder) Document(status string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.documents.WithLabelValues(status).Inc()
	r.duration.Observe(elapsed.Seconds())
}

// ChunkFailure counts one failed oracle call.
func (r *Recorder) ChunkFailure(error) {
	if r == nil {
		return
	}
	r.chunkFailures.Inc()
}

// Begin marks a document as in flight; the returned func ends it.
func (r *Recorder) Begin() func() {
	if r == nil {
		return func() {}
	}
	r.inflight.Inc()
	return r.inflight.Dec
}

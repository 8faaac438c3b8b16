package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// IndexerMetrics records rebuild progress for the indexing pipeline.
type IndexerMetrics struct {
	chunksIndexed *prometheus.CounterVec
	rebuildTime   *prometheus.HistogramVec
	failures      *prometheus.CounterVec
}

// NewIndexerMetrics registers the indexer metrics on the provided registerer.
func NewIndexerMetrics(reg prometheus.Registerer) *IndexerMetrics {
	if reg == nil {
		return &IndexerMetrics{}
	}
	chunksIndexed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "indexer_chunks_indexed_total",
		Help: "Chunks written to the vector store per collection.",
	}, []string{"collection"})
	rebuildTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "indexer_rebuild_duration_seconds",
		Help:    "Duration of full collection rebuilds in seconds.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"collection"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "indexer_failures_total",
		Help: "Failed rebuild attempts per collection.",
	}, []string{"collection"})
	reg.MustRegister(chunksIndexed, rebuildTime, failures)
	return &IndexerMetrics{
		chunksIndexed: chunksIndexed,
		rebuildTime:   rebuildTime,
		failures:      failures,
	}
}

// AddChunks counts chunks written for the collection.
func (m *IndexerMetrics) AddChunks(collection string, count int) {
	if m == nil || m.chunksIndexed == nil || count <= 0 {
		return
	}
	m.chunksIndexed.WithLabelValues(normalizeLabel(collection)).Add(float64(count))
}

// ObserveRebuild records the duration of a full rebuild.
func (m *IndexerMetrics) ObserveRebuild(collection string, duration time.Duration) {
	if m == nil || m.rebuildTime == nil {
		return
	}
	m.rebuildTime.WithLabelValues(normalizeLabel(collection)).Observe(duration.Seconds())
}

// IncFailure counts a failed rebuild.
func (m *IndexerMetrics) IncFailure(collection string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(collection)).Inc()
}

// Package prometheus exposes larder activity as Prometheus metrics by
// decorating domain services.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "larder"

// Metrics holds the collectors shared by the decorators.
type Metrics struct {
	SourceFetchTotal     *prometheus.CounterVec
	SourceFetchDuration  *prometheus.HistogramVec
	SourceNeedsAttention *prometheus.GaugeVec
	ImageCacheTotal      *prometheus.CounterVec
	ImageCacheDuration   prometheus.Histogram
}

// NewMetrics creates unregistered collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		SourceFetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fetch_total",
			Help:      "Total fetches of source pages by host and result status.",
		}, []string{"host", "status"}),

		SourceFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_fetch_duration_seconds",
			Help:      "Source page fetch duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		}, []string{"host"}),

		SourceNeedsAttention: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_needs_attention",
			Help:      "Whether a source is flagged for selector repair (1) or healthy (0).",
		}, []string{"host"}),

		ImageCacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_cache_total",
			Help:      "Image cache lookups by status (hit or miss).",
		}, []string{"status"}),

		ImageCacheDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "image_cache_batch_duration_seconds",
			Help:      "Duration of image caching batches in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
	}
}

// Register registers every collector with reg.
func (m *Metrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.SourceFetchTotal,
		m.SourceFetchDuration,
		m.SourceNeedsAttention,
		m.ImageCacheTotal,
		m.ImageCacheDuration,
	)
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initFrameMetrics() {
	r.FramesPublishedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: Namespace + "_frames_published_total",
			Help: "Frames handed to a sink",
		},
		[]string{"sink"},
	)

	r.FramesDroppedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: Namespace + "_frames_dropped_total",
			Help: "Frames discarded because a subscriber was not keeping up",
		},
	)

	r.FrameSubscribers = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: Namespace + "_frame_subscribers",
			Help: "Active frame subscribers",
		},
		[]string{"sink"},
	)

	r.FrameSizeBytes = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    Namespace + "_frame_size_bytes",
			Help:    "Encoded frame size in bytes",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		},
		[]string{"encoding"},
	)
}

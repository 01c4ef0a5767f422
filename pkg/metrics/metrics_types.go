// Package metrics exposes Prometheus instrumentation for the layout engine
// and its HTTP surface.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name
const Namespace = "threatgraph"

// Registry holds all metrics for the application
type Registry struct {
	// HTTP Metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	HTTPResponseSizeBytes *prometheus.HistogramVec
	HTTPRateLimitedTotal  *prometheus.CounterVec

	// Engine Metrics
	EngineTicksTotal        prometheus.Counter
	EngineTickDuration      prometheus.Histogram
	EngineNodes             prometheus.Gauge
	EngineEdges             prometheus.Gauge
	EnginePinnedNodes       prometheus.Gauge
	EngineDroppedEdgesTotal prometheus.Counter
	EngineReconcilesTotal   prometheus.Counter
	EngineMaxSpeed          prometheus.Gauge
	EngineKineticEnergy     prometheus.Gauge

	// Interaction Metrics
	InteractionEventsTotal      *prometheus.CounterVec
	InteractionTransitionsTotal *prometheus.CounterVec
	SelectionChangesTotal       prometheus.Counter
	ViewportWidth               prometheus.Gauge

	// Frame Metrics
	FramesPublishedTotal *prometheus.CounterVec
	FramesDroppedTotal   prometheus.Counter
	FrameSubscribers     *prometheus.GaugeVec
	FrameSizeBytes       *prometheus.HistogramVec

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry *prometheus.Registry
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initHTTPMetrics()
	r.initEngineMetrics()
	r.initInteractionMetrics()
	r.initFrameMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

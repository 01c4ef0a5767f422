package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initEngineMetrics() {
	r.EngineTicksTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: Namespace + "_engine_ticks_total",
			Help: "Total number of solver ticks",
		},
	)

	r.EngineTickDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    Namespace + "_engine_tick_duration_seconds",
			Help:    "Time spent in one solver tick",
			Buckets: []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.016, 0.05},
		},
	)

	r.EngineNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: Namespace + "_engine_nodes",
			Help: "Nodes in the simulation",
		},
	)

	r.EngineEdges = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: Namespace + "_engine_edges",
			Help: "Edges in the simulation",
		},
	)

	r.EnginePinnedNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: Namespace + "_engine_pinned_nodes",
			Help: "Nodes currently excluded from integration by a drag",
		},
	)

	r.EngineDroppedEdgesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: Namespace + "_engine_dropped_edges_total",
			Help: "Edges dropped because an endpoint was missing or the id was duplicated",
		},
	)

	r.EngineReconcilesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: Namespace + "_engine_reconciles_total",
			Help: "Graph replacements merged into the simulation",
		},
	)

	r.EngineMaxSpeed = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: Namespace + "_engine_max_speed",
			Help: "Largest node speed in the last tick, world units per tick",
		},
	)

	r.EngineKineticEnergy = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: Namespace + "_engine_kinetic_energy",
			Help: "Total kinetic energy after the last tick",
		},
	)
}

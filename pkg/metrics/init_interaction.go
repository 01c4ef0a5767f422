package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initInteractionMetrics() {
	r.InteractionEventsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: Namespace + "_interaction_events_total",
			Help: "Pointer events received by kind",
		},
		[]string{"kind"},
	)

	r.InteractionTransitionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: Namespace + "_interaction_transitions_total",
			Help: "Interaction mode transitions",
		},
		[]string{"from", "to"},
	)

	r.SelectionChangesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: Namespace + "_selection_changes_total",
			Help: "Times the selected node changed",
		},
	)

	r.ViewportWidth = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: Namespace + "_viewport_width",
			Help: "Visible world width",
		},
	)
}

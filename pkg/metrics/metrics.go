package metrics

import (
	"runtime"
	"time"
)

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// TickSample is what the engine reports after each solver tick
type TickSample struct {
	Duration      time.Duration
	Nodes         int
	Edges         int
	Pinned        int
	MaxSpeed      float64
	KineticEnergy float64
}

// RecordTick records one solver tick
func (r *Registry) RecordTick(s TickSample) {
	r.EngineTicksTotal.Inc()
	r.EngineTickDuration.Observe(s.Duration.Seconds())
	r.EngineNodes.Set(float64(s.Nodes))
	r.EngineEdges.Set(float64(s.Edges))
	r.EnginePinnedNodes.Set(float64(s.Pinned))
	r.EngineMaxSpeed.Set(s.MaxSpeed)
	r.EngineKineticEnergy.Set(s.KineticEnergy)
}

// RecordReconcile records a graph replacement and the edges it dropped
func (r *Registry) RecordReconcile(nodes, edges, droppedEdges int) {
	r.EngineReconcilesTotal.Inc()
	r.EngineNodes.Set(float64(nodes))
	r.EngineEdges.Set(float64(edges))
	if droppedEdges > 0 {
		r.EngineDroppedEdgesTotal.Add(float64(droppedEdges))
	}
}

// RecordInteraction counts a pointer event (press, move, release, leave, wheel, resize)
func (r *Registry) RecordInteraction(kind string) {
	r.InteractionEventsTotal.WithLabelValues(kind).Inc()
}

// RecordTransition counts an interaction mode change
func (r *Registry) RecordTransition(from, to string) {
	r.InteractionTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordFrame counts a frame handed to a sink and, when known, its encoded size
func (r *Registry) RecordFrame(sink, encoding string, size int) {
	r.FramesPublishedTotal.WithLabelValues(sink).Inc()
	if size > 0 {
		r.FrameSizeBytes.WithLabelValues(encoding).Observe(float64(size))
	}
}

// UpdateSystemMetrics samples uptime and Go runtime statistics
func (r *Registry) UpdateSystemMetrics(startTime time.Time) {
	r.UptimeSeconds.Set(time.Since(startTime).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	r.MemoryAllocBytes.Set(float64(m.Alloc))
	r.MemorySysBytes.Set(float64(m.Sys))
}

// RecordSelectionChange counts a change of the selected node
func (r *Registry) RecordSelectionChange() {
	r.SelectionChangesTotal.Inc()
}

// RecordViewport records the visible world width
func (r *Registry) RecordViewport(width float64) {
	r.ViewportWidth.Set(width)
}

// SetFrameSubscribers records the number of subscribers attached to a sink
func (r *Registry) SetFrameSubscribers(sink string, n int) {
	r.FrameSubscribers.WithLabelValues(sink).Set(float64(n))
}

// RecordFramesDropped adds frames a slow subscriber never received
func (r *Registry) RecordFramesDropped(n uint64) {
	if n > 0 {
		r.FramesDroppedTotal.Add(float64(n))
	}
}

// RecordResponseSize observes the size of an HTTP response body
func (r *Registry) RecordResponseSize(method, path string, size float64) {
	r.HTTPResponseSizeBytes.WithLabelValues(method, path).Observe(size)
}

// IncHTTPRequestsInFlight marks a request as started
func (r *Registry) IncHTTPRequestsInFlight() {
	r.HTTPRequestsInFlight.Inc()
}

// DecHTTPRequestsInFlight marks a request as finished
func (r *Registry) DecHTTPRequestsInFlight() {
	r.HTTPRequestsInFlight.Dec()
}

// RecordRateLimited counts a request rejected by the rate limiter
func (r *Registry) RecordRateLimited(path string) {
	r.HTTPRateLimitedTotal.WithLabelValues(path).Inc()
}

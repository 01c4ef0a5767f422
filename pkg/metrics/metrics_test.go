package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Counter.GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var metric dto.Metric
	if err := g.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Gauge.GetValue()
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}

	if r.HTTPRequestsTotal == nil {
		t.Error("HTTPRequestsTotal not initialized")
	}
	if r.EngineTicksTotal == nil {
		t.Error("EngineTicksTotal not initialized")
	}
	if r.InteractionTransitionsTotal == nil {
		t.Error("InteractionTransitionsTotal not initialized")
	}
	if r.FramesPublishedTotal == nil {
		t.Error("FramesPublishedTotal not initialized")
	}
	if r.registry == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestDefaultRegistry(t *testing.T) {
	if DefaultRegistry() != DefaultRegistry() {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	r := NewRegistry()

	r.RecordHTTPRequest("GET", "/frame", "200", 100*time.Millisecond)
	r.RecordHTTPRequest("POST", "/input", "202", 200*time.Millisecond)
	r.RecordHTTPRequest("GET", "/frame", "200", 50*time.Millisecond)

	counter, err := r.HTTPRequestsTotal.GetMetricWithLabelValues("GET", "/frame", "200")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}
	if v := counterValue(t, counter); v != 2 {
		t.Errorf("Counter value = %v, want 2", v)
	}
}

func TestRecordTick(t *testing.T) {
	r := NewRegistry()

	r.RecordTick(TickSample{Duration: time.Millisecond, Nodes: 12, Edges: 9, Pinned: 1, MaxSpeed: 4.5, KineticEnergy: 30})
	r.RecordTick(TickSample{Duration: 2 * time.Millisecond, Nodes: 12, Edges: 9, MaxSpeed: 3, KineticEnergy: 20})

	if v := counterValue(t, r.EngineTicksTotal); v != 2 {
		t.Errorf("ticks = %v, want 2", v)
	}
	if v := gaugeValue(t, r.EngineNodes); v != 12 {
		t.Errorf("nodes = %v, want 12", v)
	}
	if v := gaugeValue(t, r.EnginePinnedNodes); v != 0 {
		t.Errorf("pinned = %v, want 0", v)
	}
	if v := gaugeValue(t, r.EngineMaxSpeed); v != 3 {
		t.Errorf("max speed = %v, want 3", v)
	}

	var metric dto.Metric
	if err := r.EngineTickDuration.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 2 {
		t.Errorf("Sample count = %v, want 2", metric.Histogram.GetSampleCount())
	}
	sum := metric.Histogram.GetSampleSum()
	if sum < 0.0029 || sum > 0.0031 {
		t.Errorf("Sample sum = %v, want ~0.003", sum)
	}
}

func TestRecordReconcile(t *testing.T) {
	r := NewRegistry()

	r.RecordReconcile(3, 2, 0)
	r.RecordReconcile(4, 3, 2)

	if v := counterValue(t, r.EngineReconcilesTotal); v != 2 {
		t.Errorf("reconciles = %v, want 2", v)
	}
	if v := counterValue(t, r.EngineDroppedEdgesTotal); v != 2 {
		t.Errorf("dropped edges = %v, want 2", v)
	}
	if v := gaugeValue(t, r.EngineEdges); v != 3 {
		t.Errorf("edges = %v, want 3", v)
	}
}

func TestRecordInteractionAndTransition(t *testing.T) {
	r := NewRegistry()

	r.RecordInteraction("press")
	r.RecordInteraction("move")
	r.RecordInteraction("move")
	r.RecordTransition("idle", "dragging")
	r.RecordTransition("dragging", "idle")
	r.RecordTransition("idle", "dragging")

	moves, _ := r.InteractionEventsTotal.GetMetricWithLabelValues("move")
	if v := counterValue(t, moves); v != 2 {
		t.Errorf("move events = %v, want 2", v)
	}

	drags, _ := r.InteractionTransitionsTotal.GetMetricWithLabelValues("idle", "dragging")
	if v := counterValue(t, drags); v != 2 {
		t.Errorf("idle->dragging = %v, want 2", v)
	}
}

func TestRecordFrame(t *testing.T) {
	r := NewRegistry()

	r.RecordFrame("broker", "", 0)
	r.RecordFrame("nng", "snappy", 4096)

	broker, _ := r.FramesPublishedTotal.GetMetricWithLabelValues("broker")
	if v := counterValue(t, broker); v != 1 {
		t.Errorf("broker frames = %v, want 1", v)
	}

	hist, err := r.FrameSizeBytes.GetMetricWithLabelValues("snappy")
	if err != nil {
		t.Fatalf("Failed to get histogram: %v", err)
	}
	var metric dto.Metric
	if err := hist.(prometheus.Histogram).Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Histogram.GetSampleSum() != 4096 {
		t.Errorf("Sample sum = %v, want 4096", metric.Histogram.GetSampleSum())
	}
}

func TestRecordSelectionAndViewport(t *testing.T) {
	r := NewRegistry()

	r.RecordSelectionChange()
	r.RecordSelectionChange()
	r.RecordViewport(1100)

	if v := counterValue(t, r.SelectionChangesTotal); v != 2 {
		t.Errorf("selection changes = %v, want 2", v)
	}
	if v := gaugeValue(t, r.ViewportWidth); v != 1100 {
		t.Errorf("viewport width = %v, want 1100", v)
	}
}

func TestFrameSubscribersAndDrops(t *testing.T) {
	r := NewRegistry()

	r.SetFrameSubscribers("broker", 3)
	r.SetFrameSubscribers("broker", 2)
	r.RecordFramesDropped(0)
	r.RecordFramesDropped(5)

	subs, err := r.FrameSubscribers.GetMetricWithLabelValues("broker")
	if err != nil {
		t.Fatalf("Failed to get gauge: %v", err)
	}
	if v := gaugeValue(t, subs); v != 2 {
		t.Errorf("subscribers = %v, want 2", v)
	}
	if v := counterValue(t, r.FramesDroppedTotal); v != 5 {
		t.Errorf("dropped = %v, want 5", v)
	}
}

func TestHTTPHelpers(t *testing.T) {
	r := NewRegistry()

	r.IncHTTPRequestsInFlight()
	r.IncHTTPRequestsInFlight()
	r.DecHTTPRequestsInFlight()
	if v := gaugeValue(t, r.HTTPRequestsInFlight); v != 1 {
		t.Errorf("in flight = %v, want 1", v)
	}

	r.RecordRateLimited("/input")
	limited, _ := r.HTTPRateLimitedTotal.GetMetricWithLabelValues("/input")
	if v := counterValue(t, limited); v != 1 {
		t.Errorf("rate limited = %v, want 1", v)
	}

	r.RecordResponseSize("GET", "/frame", 2048)
	hist, err := r.HTTPResponseSizeBytes.GetMetricWithLabelValues("GET", "/frame")
	if err != nil {
		t.Fatalf("Failed to get histogram: %v", err)
	}
	var metric dto.Metric
	if err := hist.(prometheus.Histogram).Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 1 {
		t.Errorf("sample count = %v, want 1", metric.Histogram.GetSampleCount())
	}
}

func TestUpdateSystemMetrics(t *testing.T) {
	r := NewRegistry()
	r.UpdateSystemMetrics(time.Now().Add(-time.Minute))

	if v := gaugeValue(t, r.UptimeSeconds); v < 59 {
		t.Errorf("uptime = %v, want >= 59", v)
	}
	if v := gaugeValue(t, r.GoRoutines); v < 1 {
		t.Errorf("goroutines = %v, want >= 1", v)
	}
	if v := gaugeValue(t, r.MemoryAllocBytes); v <= 0 {
		t.Errorf("alloc bytes = %v, want > 0", v)
	}
}

func TestGetPrometheusRegistry(t *testing.T) {
	r := NewRegistry()
	promRegistry := r.GetPrometheusRegistry()
	if promRegistry == nil {
		t.Fatal("GetPrometheusRegistry() returned nil")
	}

	metrics, err := promRegistry.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	expectedMetrics := []string{
		"threatgraph_engine_ticks_total",
		"threatgraph_engine_nodes",
		"threatgraph_selection_changes_total",
		"threatgraph_uptime_seconds",
	}

	metricNames := make(map[string]bool)
	for _, m := range metrics {
		metricNames[m.GetName()] = true
	}
	for _, expected := range expectedMetrics {
		if !metricNames[expected] {
			t.Errorf("Expected metric %s not found", expected)
		}
	}
}

func TestConcurrentMetricUpdates(t *testing.T) {
	r := NewRegistry()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				r.RecordInteraction("wheel")
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	wheel, _ := r.InteractionEventsTotal.GetMetricWithLabelValues("wheel")
	if v := counterValue(t, wheel); v != 1000 {
		t.Errorf("Counter = %v, want 1000", v)
	}
}

func TestMetricNaming(t *testing.T) {
	r := NewRegistry()
	r.RecordHTTPRequest("GET", "/frame", "200", time.Millisecond)
	r.RecordFrame("broker", "json", 10)

	metrics, err := r.GetPrometheusRegistry().Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	for _, m := range metrics {
		if name := m.GetName(); !strings.HasPrefix(name, Namespace+"_") {
			t.Errorf("Metric %s does not have %s_ prefix", name, Namespace)
		}
	}
}

func BenchmarkRecordTick(b *testing.B) {
	r := NewRegistry()
	sample := TickSample{Duration: time.Millisecond, Nodes: 50, Edges: 60}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.RecordTick(sample)
	}
}

package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/dd0wney/cluso-threatgraph/pkg/geometry"
	"github.com/dd0wney/cluso-threatgraph/pkg/graph"
	"github.com/dd0wney/cluso-threatgraph/pkg/interaction"
	"github.com/dd0wney/cluso-threatgraph/pkg/logging"
	"github.com/dd0wney/cluso-threatgraph/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *metrics.Registry) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Seed = 42
	reg := metrics.NewRegistry()
	e, err := New(cfg, append([]Option{WithMetrics(reg)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e, reg
}

func counter(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.Counter.GetValue()
}

func threatNodes() []graph.Node {
	return []graph.Node{
		{ID: "1.2.3.4", Type: graph.NodeTypeIP, Label: "1.2.3.4"},
		{ID: "hp-ssh", Type: graph.NodeTypeHoneypot, Label: "SSH decoy"},
		{ID: "T1110", Type: graph.NodeTypeTTP, Label: "Brute Force"},
		{ID: "5.6.7.8", Type: graph.NodeTypeIP, Label: "5.6.7.8"},
	}
}

// spread places the threat nodes far enough apart that hit tests are unambiguous
func spread(t *testing.T, e *Engine) {
	t.Helper()
	for i, n := range threatNodes() {
		require.True(t, e.state.Move(n.ID, geometry.V(float64(i)*150-225, float64(i%2)*100-50)))
	}
}

func threatEdges() []graph.Edge {
	return []graph.Edge{
		graph.NewEdge("1.2.3.4", "hp-ssh"),
		graph.NewEdge("hp-ssh", "T1110"),
		graph.NewEdge("5.6.7.8", "hp-ssh"),
	}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Seeding = "spiral"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.FPS = 1000
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.Force.Damping = 2
	assert.Error(t, cfg.Validate())

	assert.Equal(t, time.Second/60, DefaultConfig().FrameInterval())
	assert.Equal(t, time.Second/60, Config{}.FrameInterval())
}

func TestNewFillsZeroConfig(t *testing.T) {
	e, err := New(Config{}, WithMetrics(nil))
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, DefaultNodeRadius, e.Config().NodeRadius)
	assert.Equal(t, geometry.DefaultViewport(), e.Viewport())
	assert.NotEmpty(t, e.Session())
	assert.False(t, e.Loaded())
}

func TestNewKeepsInteractionSettings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Interaction = interaction.Config{
		DragThreshold: 7,
		WheelStep:     1.5,
		ZoomLimits:    geometry.ZoomLimits{MinWidth: 400, MaxWidth: 3000},
	}
	e, err := New(cfg, WithMetrics(nil))
	require.NoError(t, err)
	defer e.Close()

	got := e.Config().Interaction
	assert.Equal(t, 7.0, got.DragThreshold)
	assert.Equal(t, 1.5, got.WheelStep)
	assert.Equal(t, geometry.ZoomLimits{MinWidth: 400, MaxWidth: 3000}, got.ZoomLimits)
	assert.Equal(t, geometry.DefaultViewport(), e.Viewport())

	e.Wheel(geometry.V(500, 300), 1)
	assert.InDelta(t, 1500, e.Viewport().Width, 1e-9)
	e.Wheel(geometry.V(500, 300), 1)
	e.Wheel(geometry.V(500, 300), 1)
	assert.InDelta(t, 3000, e.Viewport().Width, 1e-9)
}

func TestSetGraphDropsDanglingEdges(t *testing.T) {
	var buf bytes.Buffer
	e, reg := newTestEngine(t, WithLogger(logging.NewJSONLogger(&buf, logging.WarnLevel)))

	result := e.SetGraph(
		[]graph.Node{{ID: "A"}, {ID: "B"}},
		[]graph.Edge{graph.NewEdge("A", "B"), graph.NewEdge("A", "Z")},
	)

	assert.Equal(t, []string{"A->Z"}, result.DroppedEdges)
	assert.ElementsMatch(t, []string{"A", "B"}, result.Added)
	assert.True(t, e.Loaded())

	f := e.Frame()
	require.Len(t, f.Edges, 1)
	assert.Equal(t, "A->B", f.Edges[0].ID)

	assert.Contains(t, buf.String(), "dropping edge with unknown endpoint")
	assert.Contains(t, buf.String(), `"target":"Z"`)
	assert.Equal(t, 1.0, counter(t, reg.EngineDroppedEdgesTotal))
	assert.Equal(t, 1.0, counter(t, reg.EngineReconcilesTotal))
}

func TestDanglingEdgeDoesNotMoveNode(t *testing.T) {
	a, _ := newTestEngine(t, WithSession("a"))
	b, _ := newTestEngine(t, WithSession("b"))

	nodes := []graph.Node{{ID: "A"}, {ID: "B"}}
	a.SetGraph(nodes, nil)
	b.SetGraph(nodes, []graph.Edge{graph.NewEdge("A", "Z")})

	for i := 0; i < 50; i++ {
		a.Tick()
		b.Tick()
	}
	pa, _ := a.Position("B")
	pb, _ := b.Position("B")
	assert.Equal(t, pa, pb)
}

func TestSetGraphKeepsLayout(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetGraph([]graph.Node{{ID: "A"}}, nil)
	for i := 0; i < 10; i++ {
		e.Tick()
	}
	p, ok := e.Position("A")
	require.True(t, ok)

	result := e.SetGraph([]graph.Node{{ID: "A"}, {ID: "B"}}, nil)
	assert.Equal(t, 1, result.Kept)
	assert.Equal(t, []string{"B"}, result.Added)

	got, _ := e.Position("A")
	assert.Equal(t, p, got)

	pb, ok := e.Position("B")
	require.True(t, ok)
	assert.True(t, e.Config().Force.InitBounds.Contains(pb))
}

func TestSelectionClearedWhenNodeLeaves(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetGraph(threatNodes(), threatEdges())
	require.NoError(t, e.Select("5.6.7.8"))

	e.SetGraph(threatNodes()[:3], threatEdges())
	_, ok := e.Selected()
	assert.False(t, ok)
	assert.Empty(t, e.Frame().Relevant)
}

func TestSelectUnknownNode(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetGraph(threatNodes(), nil)
	assert.ErrorIs(t, e.Select("nope"), ErrUnknownNode)

	require.NoError(t, e.Select("hp-ssh"))
	e.ClearSelection()
	_, ok := e.Selected()
	assert.False(t, ok)
}

func TestFrameRelevance(t *testing.T) {
	e, reg := newTestEngine(t)
	e.SetGraph(threatNodes(), threatEdges())

	f := e.Frame()
	for _, edge := range f.Edges {
		assert.True(t, edge.Relevant, "nothing selected dims nothing")
	}
	for _, n := range f.Nodes {
		assert.False(t, n.Relevant)
	}

	require.NoError(t, e.Select("T1110"))
	f = e.Frame()
	assert.Equal(t, "T1110", f.Selected)
	assert.Equal(t, []string{"T1110", "hp-ssh"}, f.Relevant)

	relevantEdges := 0
	for _, edge := range f.Edges {
		if edge.Relevant {
			relevantEdges++
		}
	}
	assert.Equal(t, 1, relevantEdges)

	node, ok := f.Node("T1110")
	require.True(t, ok)
	assert.True(t, node.Selected)
	assert.Equal(t, "#facc15", node.Color)
	assert.Equal(t, DefaultNodeRadius, node.Radius)

	assert.Equal(t, 1.0, counter(t, reg.SelectionChangesTotal))
}

func TestFrameDoesNotAliasEngine(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetGraph(threatNodes(), threatEdges())
	require.NoError(t, e.Select("hp-ssh"))

	f := e.Tick()
	before, _ := e.Position(f.Nodes[0].ID)
	f.Nodes[0].X += 1000
	f.Relevant[0] = "mutated"
	f.Edges[0].Relevant = false

	after, _ := e.Position(f.Nodes[0].ID)
	assert.Equal(t, before, after)

	again := e.Frame()
	assert.NotEqual(t, "mutated", again.Relevant[0])
	assert.True(t, again.Edges[0].Relevant)
}

func TestTickRecordsMetrics(t *testing.T) {
	e, reg := newTestEngine(t)
	e.SetGraph(threatNodes(), threatEdges())

	f := e.Tick()
	e.Tick()

	assert.Equal(t, uint64(1), f.Tick)
	assert.Equal(t, uint64(2), e.Ticks())
	assert.Equal(t, 4, e.Stats().Nodes)
	assert.Equal(t, 2.0, counter(t, reg.EngineTicksTotal))
}

func TestHitTest(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetGraph([]graph.Node{{ID: "A"}, {ID: "B"}}, nil)
	require.True(t, e.state.Move("A", geometry.V(0, 0)))
	require.True(t, e.state.Move("B", geometry.V(200, 0)))

	// default viewport on a 1000×600 surface is one world unit per pixel
	id, ok := e.HitTest(geometry.V(515, 300))
	require.True(t, ok)
	assert.Equal(t, "A", id)

	_, ok = e.HitTest(geometry.V(525, 300))
	assert.False(t, ok)

	// overlapping nodes: the later one is drawn on top
	require.True(t, e.state.Move("B", geometry.V(10, 0)))
	id, _ = e.HitTest(geometry.V(505, 300))
	assert.Equal(t, "B", id)
}

func TestPointerClickSelectsNode(t *testing.T) {
	e, reg := newTestEngine(t)
	e.SetGraph(threatNodes(), threatEdges())
	spread(t, e)
	p, _ := e.Position("hp-ssh")
	screen := e.ToScreen(p)

	hit := e.PressAt(screen)
	require.Equal(t, "hp-ssh", hit)
	assert.Equal(t, "dragging", e.Frame().Mode)
	assert.Equal(t, "hp-ssh", e.Frame().Dragging)
	e.Release()

	f := e.Frame()
	assert.Equal(t, "idle", f.Mode)
	assert.Equal(t, "hp-ssh", f.Selected)
	assert.Len(t, f.Relevant, 4)

	press, err := reg.InteractionEventsTotal.GetMetricWithLabelValues("press")
	require.NoError(t, err)
	assert.Equal(t, 1.0, counter(t, press))

	drag, err := reg.InteractionTransitionsTotal.GetMetricWithLabelValues("idle", "dragging")
	require.NoError(t, err)
	assert.Equal(t, 1.0, counter(t, drag))
}

func TestDragFollowsPointerAcrossTicks(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetGraph(threatNodes(), threatEdges())
	spread(t, e)
	p, _ := e.Position("T1110")
	start := e.ToScreen(p)

	e.PressAt(start)
	for i := 1; i <= 30; i++ {
		pointer := start.Add(geometry.V(float64(i)*4, 0))
		e.Move(pointer)
		f := e.Tick()
		n, _ := f.Node("T1110")
		assert.True(t, n.Pinned)
		want := e.ToWorld(pointer)
		assert.InDelta(t, want.X, n.X, 1e-9)
		assert.InDelta(t, want.Y, n.Y, 1e-9)
	}
	e.Release()

	f := e.Frame()
	n, _ := f.Node("T1110")
	assert.False(t, n.Pinned)
	assert.Empty(t, f.Selected, "a drag is not a click")
}

func TestDraggedNodeRemovedEndsDrag(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetGraph(threatNodes(), threatEdges())
	spread(t, e)
	p, _ := e.Position("5.6.7.8")
	e.PressAt(e.ToScreen(p))
	require.Equal(t, "dragging", e.Mode().Name())

	e.SetGraph(threatNodes()[:3], threatEdges())
	assert.Equal(t, "idle", e.Mode().Name())
}

func TestPanAndWheelUpdateViewport(t *testing.T) {
	e, reg := newTestEngine(t)
	e.SetGraph(threatNodes(), nil)

	e.Press(geometry.V(10, 10), "")
	e.Move(geometry.V(110, 10))
	e.Leave()
	assert.InDelta(t, -600, e.Viewport().X, 1e-9)

	e.Wheel(geometry.V(500, 300), 100)
	assert.InDelta(t, 1100, e.Viewport().Width, 1e-9)

	var m dto.Metric
	require.NoError(t, reg.ViewportWidth.Write(&m))
	assert.InDelta(t, 1100, m.Gauge.GetValue(), 1e-9)

	e.ResetView()
	assert.Equal(t, geometry.DefaultViewport(), e.Viewport())
	assert.False(t, e.SetViewport(geometry.Viewport{}))
}

func TestFitViewFramesAllNodes(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetGraph(threatNodes(), threatEdges())
	for i := 0; i < 100; i++ {
		e.Tick()
	}
	e.Resize(geometry.NewSurface(800, 800))
	e.FitView(10)

	rect := e.Viewport().Rect()
	for _, n := range e.Frame().Nodes {
		assert.True(t, rect.Contains(n.Position()), "node %s outside fitted view", n.ID)
	}

	empty, _ := newTestEngine(t)
	empty.FitView(10)
	assert.Equal(t, geometry.DefaultViewport(), empty.Viewport())
}

func TestFrameJSON(t *testing.T) {
	e, _ := newTestEngine(t, WithSession("session-1"))
	e.SetGraph(threatNodes(), threatEdges())

	data, err := e.Tick().JSON()
	require.NoError(t, err)

	var decoded Frame
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "session-1", decoded.Session)
	assert.Equal(t, "idle", decoded.Mode)
	assert.Len(t, decoded.Nodes, 4)
	assert.Len(t, decoded.Edges, 3)
	assert.Equal(t, uint64(1), decoded.Tick)

	pretty, err := e.Frame().JSONIndent()
	require.NoError(t, err)
	assert.Contains(t, string(pretty), "\n  \"session\": \"session-1\"")
}

func BenchmarkTick(b *testing.B) {
	cfg := DefaultConfig()
	cfg.Seed = 7
	e, err := New(cfg, WithMetrics(nil))
	require.NoError(b, err)
	defer e.Close()

	nodes := make([]graph.Node, 0, 100)
	edges := make([]graph.Edge, 0, 99)
	for i := 0; i < 100; i++ {
		nodes = append(nodes, graph.Node{ID: fmt.Sprintf("n%d", i)})
		if i > 0 {
			edges = append(edges, graph.NewEdge(nodes[i-1].ID, nodes[i].ID))
		}
	}
	e.SetGraph(nodes, edges)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Tick()
	}
}

package interaction

import (
	"math"
	"testing"

	"github.com/dd0wney/cluso-threatgraph/pkg/geometry"
	"github.com/dd0wney/cluso-threatgraph/pkg/graph"
	"github.com/dd0wney/cluso-threatgraph/pkg/selection"
	"github.com/dd0wney/cluso-threatgraph/pkg/visualization"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeScene records pins without any physics
type fakeScene struct {
	pos    map[string]geometry.Vec2
	pinned map[string]bool
	unpins int
}

func newFakeScene(pos map[string]geometry.Vec2) *fakeScene {
	return &fakeScene{pos: pos, pinned: map[string]bool{}}
}

func (s *fakeScene) Position(id string) (geometry.Vec2, bool) {
	p, ok := s.pos[id]
	return p, ok
}

func (s *fakeScene) Pin(id string, p geometry.Vec2) bool {
	if _, ok := s.pos[id]; !ok {
		return false
	}
	s.pos[id] = p
	s.pinned[id] = true
	return true
}

func (s *fakeScene) Unpin(id string) bool {
	if _, ok := s.pos[id]; !ok {
		return false
	}
	s.pinned[id] = false
	s.unpins++
	return true
}

// default viewport on a 1000×600 surface maps world = screen - (500, 300)
func newTestController(t *testing.T, scene Scene, sel Selector) *Controller {
	t.Helper()
	c, err := NewController(DefaultConfig(), scene, sel, geometry.NewSurface(1000, 600))
	require.NoError(t, err)
	return c
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	bad := []func(*Config){
		func(c *Config) { c.Viewport.Width = 0 },
		func(c *Config) { c.DragThreshold = -1 },
		func(c *Config) { c.WheelStep = 0.5 },
		func(c *Config) { c.ZoomLimits = geometry.ZoomLimits{MinWidth: 10, MaxWidth: 5} },
		func(c *Config) { c.ZoomLimits = geometry.ZoomLimits{MinWidth: -1} },
		func(c *Config) { c.ZoomLimits = geometry.ZoomLimits{MaxWidth: math.Inf(1)} },
		func(c *Config) { c.ZoomLimits = geometry.ZoomLimits{MinWidth: 2000, MaxWidth: 5000} },
	}
	for i, mutate := range bad {
		cfg := DefaultConfig()
		mutate(&cfg)
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig, "case %d", i)
	}
}

func TestPressOnNodeStartsDrag(t *testing.T) {
	scene := newFakeScene(map[string]geometry.Vec2{"A": geometry.V(10, 20)})
	c := newTestController(t, scene, nil)

	// press 5px right of the node centre
	c.Press(geometry.V(515, 320), "A")

	m, ok := c.Mode().(Dragging)
	require.True(t, ok)
	assert.Equal(t, "A", m.NodeID)
	assert.Equal(t, geometry.V(-5, 0), m.GrabOffset)
	assert.True(t, scene.pinned["A"])

	// no jump on press
	assert.Equal(t, geometry.V(10, 20), scene.pos["A"])

	c.Move(geometry.V(600, 400))
	assert.Equal(t, geometry.V(95, 100), scene.pos["A"])

	c.Release()
	assert.Equal(t, Idle{}, c.Mode())
	assert.False(t, scene.pinned["A"])
	assert.Equal(t, 1, scene.unpins)
}

func TestPressOnCanvasPans(t *testing.T) {
	c := newTestController(t, newFakeScene(nil), nil)

	c.Press(geometry.V(100, 100), "")
	require.Equal(t, Panning{Last: geometry.V(100, 100)}, c.Mode())

	c.Move(geometry.V(150, 80))
	assert.Equal(t, geometry.Viewport{X: -550, Y: -280, Width: 1000, Height: 600}, c.Viewport())
	assert.Equal(t, Panning{Last: geometry.V(150, 80)}, c.Mode())

	c.Release()
	assert.Equal(t, Idle{}, c.Mode())
}

func TestPressOnUnknownNodePans(t *testing.T) {
	c := newTestController(t, newFakeScene(map[string]geometry.Vec2{}), nil)
	c.Press(geometry.V(1, 1), "ghost")
	assert.Equal(t, "panning", c.Mode().Name())
}

func TestClickSelectsAndClears(t *testing.T) {
	scene := newFakeScene(map[string]geometry.Vec2{"A": geometry.V(0, 0)})
	tracker := selection.NewTracker()
	c := newTestController(t, scene, tracker)

	// jitter inside the dead zone is still a click
	c.Press(geometry.V(500, 300), "A")
	c.Move(geometry.V(502, 301))
	c.Release()
	id, ok := tracker.Selected()
	require.True(t, ok)
	assert.Equal(t, "A", id)

	c.Press(geometry.V(10, 10), "")
	c.Release()
	_, ok = tracker.Selected()
	assert.False(t, ok)
}

func TestDragIsNotAClick(t *testing.T) {
	scene := newFakeScene(map[string]geometry.Vec2{"A": geometry.V(0, 0)})
	tracker := selection.NewTracker()
	tracker.Set("B")
	c := newTestController(t, scene, tracker)

	c.Press(geometry.V(500, 300), "A")
	c.Move(geometry.V(540, 300))
	// coming back inside the dead zone does not turn it into a click
	c.Move(geometry.V(500, 300))
	c.Release()

	id, _ := tracker.Selected()
	assert.Equal(t, "B", id)

	c.Press(geometry.V(10, 10), "")
	c.Move(geometry.V(90, 10))
	c.Release()
	id, _ = tracker.Selected()
	assert.Equal(t, "B", id)
}

func TestLeaveNeverClicks(t *testing.T) {
	scene := newFakeScene(map[string]geometry.Vec2{"A": geometry.V(0, 0)})
	tracker := selection.NewTracker()
	c := newTestController(t, scene, tracker)

	c.Press(geometry.V(500, 300), "A")
	c.Leave()
	assert.Equal(t, Idle{}, c.Mode())
	assert.False(t, scene.pinned["A"])
	_, ok := tracker.Selected()
	assert.False(t, ok)
}

func TestOutOfOrderEventsAreIgnored(t *testing.T) {
	scene := newFakeScene(map[string]geometry.Vec2{"A": geometry.V(0, 0)})
	c := newTestController(t, scene, selection.NewTracker())
	vp := c.Viewport()

	c.Move(geometry.V(10, 10))
	c.Release()
	c.Leave()
	assert.Equal(t, Idle{}, c.Mode())
	assert.Equal(t, vp, c.Viewport())

	// a second press while dragging does not start another gesture
	c.Press(geometry.V(500, 300), "A")
	c.Press(geometry.V(0, 0), "")
	assert.Equal(t, "dragging", c.Mode().Name())
}

func TestNodeVanishingMidDragReturnsToIdle(t *testing.T) {
	scene := newFakeScene(map[string]geometry.Vec2{"A": geometry.V(0, 0)})
	c := newTestController(t, scene, nil)

	c.Press(geometry.V(500, 300), "A")
	delete(scene.pos, "A")
	c.Move(geometry.V(600, 300))
	assert.Equal(t, Idle{}, c.Mode())
}

func TestWheelZoomsAroundPointer(t *testing.T) {
	c := newTestController(t, newFakeScene(nil), nil)
	cursor := geometry.V(250, 450)
	before := c.ToWorld(cursor)

	c.Wheel(cursor, 120)
	assert.InDelta(t, 1100, c.Viewport().Width, 1e-9)
	after := c.ToWorld(cursor)
	assert.InDelta(t, before.X, after.X, 1e-9)
	assert.InDelta(t, before.Y, after.Y, 1e-9)

	c.Wheel(cursor, -120)
	assert.InDelta(t, 1000, c.Viewport().Width, 1e-9)

	vp := c.Viewport()
	c.Wheel(cursor, 0)
	assert.Equal(t, vp, c.Viewport())
}

func TestWheelRespectsZoomLimits(t *testing.T) {
	c := newTestController(t, newFakeScene(nil), nil)
	for i := 0; i < 200; i++ {
		c.Wheel(geometry.V(500, 300), -1)
	}
	assert.InDelta(t, 100, c.Viewport().Width, 1e-6)
	for i := 0; i < 400; i++ {
		c.Wheel(geometry.V(500, 300), 1)
	}
	assert.InDelta(t, 10000, c.Viewport().Width, 1e-6)
	assert.True(t, c.Viewport().Valid())
}

func TestWheelStaysValidWithUnsetZoomLimits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ZoomLimits = geometry.ZoomLimits{}
	c, err := NewController(cfg, newFakeScene(nil), nil, geometry.NewSurface(1000, 600))
	require.NoError(t, err)

	for i := 0; i < 10000; i++ {
		c.Wheel(geometry.V(700, 100), 1)
		require.True(t, c.Viewport().Valid(), "wheel out %d", i)
	}
	assert.InDelta(t, 10000, c.Viewport().Width, 1e-6)

	for i := 0; i < 10000; i++ {
		c.Wheel(geometry.V(700, 100), -1)
		require.True(t, c.Viewport().Valid(), "wheel in %d", i)
	}
	assert.InDelta(t, 100, c.Viewport().Width, 1e-6)
}

func TestConfiguredViewportDerivesZoomLimits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Viewport = geometry.Viewport{X: -25, Y: -15, Width: 50, Height: 30}
	c, err := NewController(cfg, newFakeScene(nil), nil, geometry.NewSurface(1000, 600))
	require.NoError(t, err)

	// scrolling up always zooms in
	c.Wheel(geometry.V(500, 300), -1)
	assert.InDelta(t, 50/geometry.DefaultWheelStep, c.Viewport().Width, 1e-9)

	for i := 0; i < 100; i++ {
		c.Wheel(geometry.V(500, 300), -1)
	}
	assert.InDelta(t, 5, c.Viewport().Width, 1e-9)
}

func TestWheelNeverReversesOutsideLimits(t *testing.T) {
	c := newTestController(t, newFakeScene(nil), nil)

	// a viewport set beyond the limits only moves back toward them
	require.True(t, c.SetViewport(geometry.Viewport{X: -25, Y: -15, Width: 50, Height: 30}))
	c.Wheel(geometry.V(500, 300), -1)
	assert.Equal(t, 50.0, c.Viewport().Width)
	c.Wheel(geometry.V(500, 300), 1)
	assert.InDelta(t, 55, c.Viewport().Width, 1e-9)

	assert.False(t, c.SetViewport(geometry.Viewport{Width: 1e300, Height: 1e300}))
}

func TestWheelDuringDragKeepsNodeWorldPosition(t *testing.T) {
	scene := newFakeScene(map[string]geometry.Vec2{"A": geometry.V(30, 40)})
	c := newTestController(t, scene, nil)

	c.Press(geometry.V(530, 340), "A")
	c.Wheel(geometry.V(100, 100), 1)
	assert.Equal(t, geometry.V(30, 40), scene.pos["A"])
	assert.Equal(t, "dragging", c.Mode().Name())
}

func TestTransitionsAreReported(t *testing.T) {
	scene := newFakeScene(map[string]geometry.Vec2{"A": geometry.V(0, 0)})
	c := newTestController(t, scene, nil)

	var seen []string
	c.OnTransition(func(tr Transition) {
		seen = append(seen, tr.From.Name()+"->"+tr.To.Name())
	})

	c.Press(geometry.V(500, 300), "A")
	c.Move(geometry.V(520, 300))
	c.Release()
	c.Press(geometry.V(0, 0), "")
	c.Move(geometry.V(5, 5))
	c.Leave()

	assert.Equal(t, []string{"idle->dragging", "dragging->idle", "idle->panning", "panning->idle"}, seen)
}

func TestResizeAndFit(t *testing.T) {
	c := newTestController(t, newFakeScene(nil), nil)

	c.Resize(geometry.Surface{})
	origin := c.ToWorld(geometry.V(0, 0))
	assert.InDelta(t, -500, origin.X, 1e-9)
	assert.InDelta(t, -300, origin.Y, 1e-9)

	c.Resize(geometry.NewSurface(800, 400))
	c.FitTo(geometry.Rect{MinX: -100, MinY: -50, MaxX: 100, MaxY: 50}, 0)
	vp := c.Viewport()
	assert.InDelta(t, 200, vp.Width, 1e-9)
	assert.InDelta(t, 100, vp.Height, 1e-9)

	// a tiny graph is clamped to the closest allowed zoom
	c.FitTo(geometry.Rect{MinX: -1, MinY: -1, MaxX: 1, MaxY: 1}, 0)
	assert.InDelta(t, 100, c.Viewport().Width, 1e-6)

	assert.False(t, c.SetViewport(geometry.Viewport{Width: -1, Height: 1}))
	c.ResetView()
	assert.Equal(t, geometry.DefaultViewport(), c.Viewport())
}

// Drag exactness against the real solver: while dragging, the node sits at
// pointer world position plus grab offset every tick, and release leaves it
// at rest.
func TestDragExactnessWithSolver(t *testing.T) {
	state, err := visualization.NewState(visualization.DefaultForceConfig(), visualization.WithSeed(1))
	require.NoError(t, err)
	state.Reconcile(graph.Set{
		Nodes: []graph.Node{{ID: "A"}, {ID: "B"}, {ID: "C"}},
		Edges: []graph.Edge{graph.NewEdge("A", "B"), graph.NewEdge("A", "C")},
	})

	c := newTestController(t, state, nil)
	start, _ := state.Position("A")
	press := c.ToScreen(start).Add(geometry.V(4, -3))
	c.Press(press, "A")
	offset := c.Mode().(Dragging).GrabOffset

	pointer := press
	for tick := 0; tick < 200; tick++ {
		pointer = pointer.Add(geometry.V(1.5, -0.5))
		c.Move(pointer)
		state.Step()

		got, _ := state.Position("A")
		want := c.ToWorld(pointer).Add(offset)
		require.Equal(t, want, got, "tick %d", tick)
	}

	c.Release()
	v, _ := state.Velocity("A")
	assert.Equal(t, geometry.Vec2{}, v)
	assert.False(t, state.Pinned("A"))
}

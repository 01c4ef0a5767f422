// Package engine couples the force solver, the interaction controller and the
// selection tracker into one session that produces render frames.
//
// An Engine is not safe for concurrent use. It is driven by exactly one
// goroutine; Runner provides that goroutine for hosts that need one.
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/dd0wney/cluso-threatgraph/pkg/geometry"
	"github.com/dd0wney/cluso-threatgraph/pkg/graph"
	"github.com/dd0wney/cluso-threatgraph/pkg/interaction"
	"github.com/dd0wney/cluso-threatgraph/pkg/logging"
	"github.com/dd0wney/cluso-threatgraph/pkg/metrics"
	"github.com/dd0wney/cluso-threatgraph/pkg/selection"
	"github.com/dd0wney/cluso-threatgraph/pkg/visualization"
	"github.com/google/uuid"
)

var (
	// ErrUnknownNode is returned when selecting an id that is not in the graph
	ErrUnknownNode = errors.New("unknown node")
	// ErrInvalidConfig is returned for an unusable engine configuration
	ErrInvalidConfig = errors.New("invalid engine config")
)

const (
	// DefaultNodeRadius is the hit radius of a node in world units
	DefaultNodeRadius = 20.0
	// DefaultFPS is the tick rate used by Runner
	DefaultFPS = 60
)

// Config configures an Engine
type Config struct {
	Force       visualization.ForceConfig `yaml:"force" json:"force"`
	Interaction interaction.Config        `yaml:"interaction" json:"interaction"`

	// Seeding names the placement strategy for new nodes: random, circular or layered
	Seeding string `yaml:"seeding" json:"seeding"`
	// Seed fixes the placement RNG; zero seeds from the clock
	Seed int64 `yaml:"seed" json:"seed"`

	FPS        int     `yaml:"fps" json:"fps"`
	NodeRadius float64 `yaml:"node_radius" json:"node_radius"`
}

// DefaultConfig returns the stock engine configuration
func DefaultConfig() Config {
	return Config{
		Force:       visualization.DefaultForceConfig(),
		Interaction: interaction.DefaultConfig(),
		Seeding:     visualization.SeederRandom,
		FPS:         DefaultFPS,
		NodeRadius:  DefaultNodeRadius,
	}
}

// Validate checks every section of the configuration
func (c Config) Validate() error {
	if err := c.Force.WithDefaults().Validate(); err != nil {
		return err
	}
	if err := c.Interaction.Validate(); err != nil {
		return err
	}
	if _, err := visualization.ParseSeeder(c.Seeding); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.FPS < 0 || c.FPS > 240 {
		return fmt.Errorf("%w: fps must be between 0 and 240", ErrInvalidConfig)
	}
	if c.NodeRadius < 0 {
		return fmt.Errorf("%w: node_radius must not be negative", ErrInvalidConfig)
	}
	return nil
}

// FrameInterval is the time between Runner ticks
func (c Config) FrameInterval() time.Duration {
	fps := c.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	return time.Second / time.Duration(fps)
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics sets the registry engine metrics are recorded into
func WithMetrics(r *metrics.Registry) Option {
	return func(e *Engine) {
		e.metrics = r
	}
}

// WithSurface sets the initial drawing surface
func WithSurface(s geometry.Surface) Option {
	return func(e *Engine) {
		e.surface = s
	}
}

// WithSession overrides the generated session id
func WithSession(id string) Option {
	return func(e *Engine) {
		if id != "" {
			e.session = id
		}
	}
}

// Engine is one layout and interaction session over a single graph
type Engine struct {
	config  Config
	session string
	logger  logging.Logger
	metrics *metrics.Registry
	surface geometry.Surface

	set        graph.Set
	nodeIndex  map[string]int
	loaded     bool
	state      *visualization.State
	tracker    *selection.Tracker
	controller *interaction.Controller

	stats visualization.StepStats
}

// New creates an engine with an empty graph
func New(config Config, opts ...Option) (*Engine, error) {
	if config.Seeding == "" {
		config.Seeding = visualization.SeederRandom
	}
	if config.NodeRadius == 0 {
		config.NodeRadius = DefaultNodeRadius
	}
	config.Interaction = config.Interaction.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.Force = config.Force.WithDefaults()

	e := &Engine{
		config:    config,
		session:   uuid.New().String(),
		logger:    logging.NewNopLogger(),
		metrics:   metrics.DefaultRegistry(),
		surface:   geometry.NewSurface(1000, 600),
		nodeIndex: map[string]int{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(logging.Component("engine"), logging.Session(e.session))

	seeder, _ := visualization.ParseSeeder(config.Seeding)
	stateOpts := []visualization.Option{visualization.WithSeeder(seeder)}
	if config.Seed != 0 {
		stateOpts = append(stateOpts, visualization.WithSeed(config.Seed))
	}
	state, err := visualization.NewState(config.Force, stateOpts...)
	if err != nil {
		return nil, err
	}
	e.state = state

	e.tracker = selection.NewTracker()
	e.tracker.OnChange(func(previous, current string) {
		e.logger.Debug("selection changed", logging.String("previous", previous), logging.NodeID(current))
		if e.metrics != nil {
			e.metrics.RecordSelectionChange()
		}
	})

	e.controller, err = interaction.NewController(config.Interaction, state, e.tracker, e.surface)
	if err != nil {
		state.Close()
		return nil, err
	}
	e.controller.OnTransition(func(tr interaction.Transition) {
		e.logger.Debug("mode changed", logging.String("from", tr.From.Name()), logging.Mode(tr.To.Name()))
		if e.metrics != nil {
			e.metrics.RecordTransition(tr.From.Name(), tr.To.Name())
		}
	})

	return e, nil
}

// Close releases the solver's worker pool
func (e *Engine) Close() {
	e.state.Close()
}

// Session returns the session id stamped on every frame
func (e *Engine) Session() string {
	return e.session
}

// Config returns the effective configuration
func (e *Engine) Config() Config {
	return e.config
}

// Loaded reports whether a graph has been set
func (e *Engine) Loaded() bool {
	return e.loaded
}

// Ticks returns the number of completed solver ticks
func (e *Engine) Ticks() uint64 {
	return e.state.Ticks()
}

// Graph returns the sanitized node/edge set being simulated
func (e *Engine) Graph() graph.Set {
	return e.set
}

// SetGraph replaces the node/edge set. Existing nodes keep their layout, new
// nodes are seeded and removed nodes are pruned. Dangling and duplicate
// entries are dropped and logged, never returned as errors.
func (e *Engine) SetGraph(nodes []graph.Node, edges []graph.Edge) visualization.ReconcileResult {
	set, report := graph.Sanitize(nodes, edges)

	for _, edge := range report.DanglingEdges {
		e.logger.Warn("dropping edge with unknown endpoint",
			logging.EdgeID(edge.ID),
			logging.String("source", edge.Source),
			logging.String("target", edge.Target))
	}
	if len(report.DuplicateNodes) > 0 || len(report.DuplicateEdges) > 0 {
		e.logger.Warn("dropping duplicate ids",
			logging.Any("nodes", report.DuplicateNodes),
			logging.Any("edges", report.DuplicateEdges))
	}

	result := e.state.Reconcile(set)
	for _, edge := range report.DanglingEdges {
		result.DroppedEdges = append(result.DroppedEdges, edge.ID)
	}

	e.set = set
	e.nodeIndex = set.NodeIndex()
	e.loaded = true

	if dragged, ok := e.controller.Dragged(); ok && !e.state.Has(dragged) {
		e.controller.Leave()
	}
	if e.tracker.Retain(set.Nodes) {
		e.logger.Info("selected node left the graph")
	}

	if e.metrics != nil {
		e.metrics.RecordReconcile(len(set.Nodes), len(set.Edges), len(result.DroppedEdges))
	}
	e.logger.Info("graph replaced",
		logging.Int("nodes", len(set.Nodes)),
		logging.Int("edges", len(set.Edges)),
		logging.Int("added", len(result.Added)),
		logging.Int("removed", len(result.Removed)),
		logging.Int("dropped_edges", len(result.DroppedEdges)))

	return result
}

// Tick advances the solver one step and returns the resulting frame
func (e *Engine) Tick() Frame {
	start := time.Now()
	e.stats = e.state.Step()

	if e.metrics != nil {
		e.metrics.RecordTick(metrics.TickSample{
			Duration:      time.Since(start),
			Nodes:         e.stats.Nodes,
			Edges:         e.stats.Edges,
			Pinned:        e.stats.Pinned,
			MaxSpeed:      e.stats.MaxSpeed,
			KineticEnergy: e.stats.KineticEnergy,
		})
	}
	return e.Frame()
}

// Stats returns the statistics of the last tick
func (e *Engine) Stats() visualization.StepStats {
	return e.stats
}

// Position returns a node's world position
func (e *Engine) Position(id string) (geometry.Vec2, bool) {
	return e.state.Position(id)
}

// HitTest returns the topmost node whose circle contains the screen point.
// Later nodes are drawn over earlier ones.
func (e *Engine) HitTest(screen geometry.Vec2) (string, bool) {
	if !screen.IsFinite() {
		return "", false
	}
	world := e.controller.ToWorld(screen)
	r2 := e.config.NodeRadius * e.config.NodeRadius
	for i := len(e.set.Nodes) - 1; i >= 0; i-- {
		id := e.set.Nodes[i].ID
		p, ok := e.state.Position(id)
		if ok && p.Sub(world).LenSq() <= r2 {
			return id, true
		}
	}
	return "", false
}

func (e *Engine) record(kind string) {
	if e.metrics != nil {
		e.metrics.RecordInteraction(kind)
	}
}

// Press starts a gesture with a hit id supplied by the host. An empty hit is
// empty canvas.
func (e *Engine) Press(screen geometry.Vec2, hit string) {
	e.record("press")
	e.controller.Press(screen, hit)
}

// PressAt starts a gesture, hit testing the screen point itself. It returns
// the node pressed, if any.
func (e *Engine) PressAt(screen geometry.Vec2) string {
	hit, _ := e.HitTest(screen)
	e.Press(screen, hit)
	return hit
}

// Move updates the active gesture
func (e *Engine) Move(screen geometry.Vec2) {
	e.record("move")
	e.controller.Move(screen)
	e.recordViewport()
}

// Release ends the active gesture
func (e *Engine) Release() {
	e.record("release")
	e.controller.Release()
}

// Leave ends the active gesture without a click
func (e *Engine) Leave() {
	e.record("leave")
	e.controller.Leave()
}

// Wheel zooms around the pointer
func (e *Engine) Wheel(screen geometry.Vec2, deltaY float64) {
	e.record("wheel")
	e.controller.Wheel(screen, deltaY)
	e.recordViewport()
}

// Resize changes the drawing surface
func (e *Engine) Resize(surface geometry.Surface) {
	e.record("resize")
	e.surface = surface
	e.controller.Resize(surface)
}

func (e *Engine) recordViewport() {
	if e.metrics != nil {
		e.metrics.RecordViewport(e.controller.Viewport().Width)
	}
}

// Mode returns the active interaction mode
func (e *Engine) Mode() interaction.Mode {
	return e.controller.Mode()
}

// Dragged returns the node being dragged, if any
func (e *Engine) Dragged() (string, bool) {
	return e.controller.Dragged()
}

// Viewport returns the visible world rectangle
func (e *Engine) Viewport() geometry.Viewport {
	return e.controller.Viewport()
}

// SetViewport replaces the viewport; invalid viewports are rejected
func (e *Engine) SetViewport(vp geometry.Viewport) bool {
	ok := e.controller.SetViewport(vp)
	if ok {
		e.recordViewport()
	}
	return ok
}

// ResetView restores the configured initial viewport
func (e *Engine) ResetView() {
	e.controller.ResetView()
	e.recordViewport()
}

// FitView frames every node, including its radius, plus padding world units.
// With no nodes it falls back to the initial viewport.
func (e *Engine) FitView(padding float64) {
	bounds, ok := e.state.Bounds()
	if !ok {
		e.ResetView()
		return
	}
	e.controller.FitTo(bounds.Expand(e.config.NodeRadius), padding)
	e.recordViewport()
}

// ToWorld converts a screen pixel to world space
func (e *Engine) ToWorld(screen geometry.Vec2) geometry.Vec2 {
	return e.controller.ToWorld(screen)
}

// ToScreen converts a world point to screen pixels
func (e *Engine) ToScreen(world geometry.Vec2) geometry.Vec2 {
	return e.controller.ToScreen(world)
}

// Select selects a node by id
func (e *Engine) Select(id string) error {
	if !e.state.Has(id) {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	e.tracker.Set(id)
	return nil
}

// ClearSelection removes the selection
func (e *Engine) ClearSelection() {
	e.tracker.Clear()
}

// Selected returns the selected node id
func (e *Engine) Selected() (string, bool) {
	return e.tracker.Selected()
}

// Relevant returns the selection and its neighbours in ascending order
func (e *Engine) Relevant() []string {
	selected, _ := e.tracker.Selected()
	return selection.Sorted(selection.RelevantNodeIDs(selected, e.set.Edges))
}

// Package interaction turns raw pointer events into node drags, viewport pans
// and zooms, and click selections.
package interaction

import (
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-threatgraph/pkg/geometry"
)

// ErrInvalidConfig is returned by Config.Validate
var ErrInvalidConfig = errors.New("invalid interaction config")

// DefaultDragThreshold is how far, in pixels, the pointer may travel between
// press and release for the gesture to still count as a click
const DefaultDragThreshold = 3.0

// Scene is the node store a drag manipulates
type Scene interface {
	Position(id string) (geometry.Vec2, bool)
	// Pin places the node and excludes it from integration
	Pin(id string, p geometry.Vec2) bool
	// Unpin returns the node to the solver with zero velocity
	Unpin(id string) bool
}

// Selector receives click selections
type Selector interface {
	Set(id string)
	Clear()
}

// Config configures a Controller. Zero zoom limits are derived from the
// viewport, 10× in and 10× out.
type Config struct {
	DragThreshold float64             `yaml:"drag_threshold" json:"drag_threshold"`
	WheelStep     float64             `yaml:"wheel_step" json:"wheel_step"`
	Viewport      geometry.Viewport   `yaml:"viewport" json:"viewport"`
	ZoomLimits    geometry.ZoomLimits `yaml:"zoom_limits" json:"zoom_limits"`
}

// DefaultConfig returns the default viewport with 10× zoom either way
func DefaultConfig() Config {
	return Config{
		DragThreshold: DefaultDragThreshold,
		WheelStep:     geometry.DefaultWheelStep,
		Viewport:      geometry.DefaultViewport(),
	}
}

// WithDefaults fills an unset viewport, wheel step and zoom limits. Other
// fields are kept as given.
func (c Config) WithDefaults() Config {
	if c.Viewport == (geometry.Viewport{}) {
		c.Viewport = geometry.DefaultViewport()
	}
	if c.WheelStep == 0 {
		c.WheelStep = geometry.DefaultWheelStep
	}
	c.ZoomLimits = c.ZoomLimits.Resolve(c.Viewport)
	return c
}

// Validate checks that the configuration yields a usable viewport
func (c Config) Validate() error {
	if !c.ZoomLimits.Valid() {
		return fmt.Errorf("%w: zoom_limits must be finite and not negative", ErrInvalidConfig)
	}
	c = c.WithDefaults()
	if !c.Viewport.Valid() {
		return fmt.Errorf("%w: viewport must have positive size", ErrInvalidConfig)
	}
	if c.DragThreshold < 0 {
		return fmt.Errorf("%w: drag_threshold must not be negative", ErrInvalidConfig)
	}
	if c.WheelStep <= 1 {
		return fmt.Errorf("%w: wheel_step must be greater than 1", ErrInvalidConfig)
	}
	if c.ZoomLimits.MinWidth > c.ZoomLimits.MaxWidth {
		return fmt.Errorf("%w: zoom_limits are inconsistent", ErrInvalidConfig)
	}
	if !c.ZoomLimits.Contains(c.Viewport.Width) {
		return fmt.Errorf("%w: viewport width %g is outside zoom_limits [%g, %g]",
			ErrInvalidConfig, c.Viewport.Width, c.ZoomLimits.MinWidth, c.ZoomLimits.MaxWidth)
	}
	return nil
}

// Controller is the pointer state machine. Like the solver it is owned by a
// single goroutine. Events that make no sense in the current mode are ignored.
type Controller struct {
	config   Config
	scene    Scene
	selector Selector

	mode     Mode
	viewport geometry.Viewport
	surface  geometry.Surface

	pressAt      geometry.Vec2
	travelled    bool
	onTransition func(Transition)
}

// NewController creates an idle controller showing config.Viewport on a
// surface of the given size
func NewController(config Config, scene Scene, selector Selector, surface geometry.Surface) (*Controller, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config = config.WithDefaults()
	return &Controller{
		config:   config,
		scene:    scene,
		selector: selector,
		mode:     Idle{},
		viewport: config.Viewport,
		surface:  surface,
	}, nil
}

// OnTransition registers a callback for every mode change
func (c *Controller) OnTransition(fn func(Transition)) {
	c.onTransition = fn
}

// Mode returns the active mode
func (c *Controller) Mode() Mode {
	return c.mode
}

// Viewport returns the visible world rectangle
func (c *Controller) Viewport() geometry.Viewport {
	return c.viewport
}

// Surface returns the current drawing surface
func (c *Controller) Surface() geometry.Surface {
	return c.surface
}

// Dragged returns the id of the node being dragged, if any
func (c *Controller) Dragged() (string, bool) {
	if d, ok := c.mode.(Dragging); ok {
		return d.NodeID, true
	}
	return "", false
}

// ToWorld converts a screen pixel to world space under the current viewport
func (c *Controller) ToWorld(screen geometry.Vec2) geometry.Vec2 {
	return geometry.ScreenToWorld(screen, c.viewport, c.surface)
}

// ToScreen converts a world point to screen pixels under the current viewport
func (c *Controller) ToScreen(world geometry.Vec2) geometry.Vec2 {
	return geometry.WorldToScreen(world, c.viewport, c.surface)
}

func (c *Controller) setMode(m Mode) {
	prev := c.mode
	c.mode = m
	if prev.Name() != m.Name() && c.onTransition != nil {
		c.onTransition(Transition{From: prev, To: m})
	}
}

// Press starts a gesture at a screen position. hit is the node under the
// pointer or "" for empty canvas. A node the scene does not know is treated
// as canvas.
func (c *Controller) Press(screen geometry.Vec2, hit string) {
	if _, idle := c.mode.(Idle); !idle || !screen.IsFinite() {
		return
	}
	c.pressAt = screen
	c.travelled = false

	if hit != "" {
		if pos, ok := c.scene.Position(hit); ok {
			offset := pos.Sub(c.ToWorld(screen))
			c.scene.Pin(hit, pos)
			c.setMode(Dragging{NodeID: hit, GrabOffset: offset})
			return
		}
	}
	c.setMode(Panning{Last: screen})
}

// Move updates the active gesture. In Idle it does nothing.
func (c *Controller) Move(screen geometry.Vec2) {
	if !screen.IsFinite() {
		return
	}

	switch m := c.mode.(type) {
	case Dragging:
		c.track(screen)
		if !c.scene.Pin(m.NodeID, c.ToWorld(screen).Add(m.GrabOffset)) {
			// the node vanished in a reconcile mid-drag
			c.setMode(Idle{})
		}
	case Panning:
		c.track(screen)
		delta := screen.Sub(m.Last)
		c.viewport = geometry.PanBy(c.viewport, delta, c.viewport.WorldPerPixel(c.surface))
		c.mode = Panning{Last: screen}
	}
}

func (c *Controller) track(screen geometry.Vec2) {
	if !c.travelled && screen.Sub(c.pressAt).Len() > c.config.DragThreshold {
		c.travelled = true
	}
}

// Release ends the active gesture. A gesture that stayed within the drag
// threshold is a click: on a node it selects it, on canvas it clears the
// selection.
func (c *Controller) Release() {
	c.finish(true)
}

// Leave ends the active gesture because the pointer left the surface. It never
// counts as a click.
func (c *Controller) Leave() {
	c.finish(false)
}

func (c *Controller) finish(allowClick bool) {
	click := allowClick && !c.travelled

	switch m := c.mode.(type) {
	case Dragging:
		c.scene.Unpin(m.NodeID)
		c.setMode(Idle{})
		if click && c.selector != nil {
			c.selector.Set(m.NodeID)
		}
	case Panning:
		c.setMode(Idle{})
		if click && c.selector != nil {
			c.selector.Clear()
		}
	}
	c.travelled = false
}

// Wheel zooms around the world point under the pointer, in any mode. A
// dragged node keeps its world position.
func (c *Controller) Wheel(screen geometry.Vec2, deltaY float64) {
	factor := geometry.WheelFactor(deltaY, c.config.WheelStep)
	if factor == 1 || !screen.IsFinite() {
		return
	}
	anchor := c.ToWorld(screen)
	c.viewport = geometry.ZoomAt(c.viewport, anchor, factor, c.config.ZoomLimits)
}

// Resize changes the surface size. Zero dimensions are treated as one pixel.
func (c *Controller) Resize(surface geometry.Surface) {
	c.surface = surface
}

// SetViewport replaces the viewport. Invalid viewports and sides beyond the
// hard extents are rejected.
func (c *Controller) SetViewport(vp geometry.Viewport) bool {
	hard := geometry.ZoomLimits{}
	if !vp.Valid() || !hard.Contains(vp.Width) || !hard.Contains(vp.Height) {
		return false
	}
	c.viewport = vp
	return true
}

// ResetView restores the configured initial viewport
func (c *Controller) ResetView() {
	c.viewport = c.config.Viewport
}

// FitTo frames bounds with padding at the surface's aspect ratio, kept within
// the zoom limits
func (c *Controller) FitTo(bounds geometry.Rect, padding float64) {
	vp := geometry.Fit(bounds, c.surface.Aspect(), padding)
	if !vp.Valid() {
		return
	}
	if w := c.config.ZoomLimits.ClampWidth(vp.Width); w != vp.Width {
		vp = geometry.ZoomAt(vp, vp.Rect().Center(), w/vp.Width, c.config.ZoomLimits)
	}
	c.viewport = vp
}

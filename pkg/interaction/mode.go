package interaction

import (
	"fmt"

	"github.com/dd0wney/cluso-threatgraph/pkg/geometry"
)

// Mode is the controller state. Exactly one mode is active at a time; the
// set of implementations is closed.
type Mode interface {
	// Name is "idle", "dragging" or "panning"
	Name() string
	mode()
}

// Idle waits for a press
type Idle struct{}

// Dragging moves NodeID so that it stays GrabOffset away from the pointer
type Dragging struct {
	NodeID     string
	GrabOffset geometry.Vec2
}

// Panning translates the viewport; Last is the previous pointer position in
// screen pixels
type Panning struct {
	Last geometry.Vec2
}

func (Idle) Name() string     { return "idle" }
func (Dragging) Name() string { return "dragging" }
func (Panning) Name() string  { return "panning" }

func (Idle) mode()     {}
func (Dragging) mode() {}
func (Panning) mode()  {}

func (d Dragging) String() string {
	return fmt.Sprintf("dragging(%s)", d.NodeID)
}

// Transition records a mode change
type Transition struct {
	From Mode
	To   Mode
}

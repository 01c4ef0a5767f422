// Package visualization implements the continuous force-directed layout that
// positions threat-graph nodes in world space.
//
// State is an arena: every node id is mapped to a dense Handle and all
// per-node numeric data lives in parallel slices indexed by that handle.
// Handles are reassigned by Reconcile and are only valid until the next one.
package visualization

import (
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-threatgraph/pkg/geometry"
)

// ErrInvalidConfig is returned by ForceConfig.Validate
var ErrInvalidConfig = errors.New("invalid force config")

// Handle indexes a node inside a State
type Handle int

// ForceConfig configures the solver. Zero fields are replaced by defaults.
type ForceConfig struct {
	RepulsionStrength float64       `yaml:"repulsion_strength" json:"repulsion_strength"`
	MinDistanceSq     float64       `yaml:"min_distance_sq" json:"min_distance_sq"`
	SpringConstant    float64       `yaml:"spring_constant" json:"spring_constant"`
	IdealLength       float64       `yaml:"ideal_length" json:"ideal_length"`
	CenteringStrength float64       `yaml:"centering_strength" json:"centering_strength"`
	Damping           float64       `yaml:"damping" json:"damping"`
	MaxVelocity       float64       `yaml:"max_velocity" json:"max_velocity"`
	InitBounds        geometry.Rect `yaml:"init_bounds" json:"init_bounds"`

	// Workers > 1 evaluates repulsion on a worker pool once the node count
	// reaches ParallelThreshold.
	Workers           int `yaml:"workers" json:"workers"`
	ParallelThreshold int `yaml:"parallel_threshold" json:"parallel_threshold"`
}

// DefaultForceConfig returns the tuned constants for threat graphs of tens to
// a few hundred nodes
func DefaultForceConfig() ForceConfig {
	return ForceConfig{
		RepulsionStrength: 20000,
		MinDistanceSq:     100,
		SpringConstant:    0.01,
		IdealLength:       200,
		CenteringStrength: 0.005,
		Damping:           0.9,
		MaxVelocity:       30,
		InitBounds:        geometry.RectAround(500, 300),
		Workers:           1,
		ParallelThreshold: 256,
	}
}

// WithDefaults fills zero fields from DefaultForceConfig
func (c ForceConfig) WithDefaults() ForceConfig {
	d := DefaultForceConfig()
	if c.RepulsionStrength == 0 {
		c.RepulsionStrength = d.RepulsionStrength
	}
	if c.MinDistanceSq == 0 {
		c.MinDistanceSq = d.MinDistanceSq
	}
	if c.SpringConstant == 0 {
		c.SpringConstant = d.SpringConstant
	}
	if c.IdealLength == 0 {
		c.IdealLength = d.IdealLength
	}
	if c.CenteringStrength == 0 {
		c.CenteringStrength = d.CenteringStrength
	}
	if c.Damping == 0 {
		c.Damping = d.Damping
	}
	if c.MaxVelocity == 0 {
		c.MaxVelocity = d.MaxVelocity
	}
	if c.InitBounds == (geometry.Rect{}) {
		c.InitBounds = d.InitBounds
	}
	if c.Workers == 0 {
		c.Workers = d.Workers
	}
	if c.ParallelThreshold == 0 {
		c.ParallelThreshold = d.ParallelThreshold
	}
	return c
}

// Validate rejects configurations that could let the integrator diverge
func (c ForceConfig) Validate() error {
	switch {
	case c.MinDistanceSq <= 0:
		return fmt.Errorf("%w: min_distance_sq must be positive", ErrInvalidConfig)
	case c.Damping <= 0 || c.Damping > 1:
		return fmt.Errorf("%w: damping must be in (0, 1]", ErrInvalidConfig)
	case c.MaxVelocity <= 0:
		return fmt.Errorf("%w: max_velocity must be positive", ErrInvalidConfig)
	case c.InitBounds.Width() <= 0 || c.InitBounds.Height() <= 0:
		return fmt.Errorf("%w: init_bounds must have positive area", ErrInvalidConfig)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers must not be negative", ErrInvalidConfig)
	}
	return nil
}

// StepStats summarises one tick
type StepStats struct {
	Nodes           int     `json:"nodes"`
	Edges           int     `json:"edges"`
	Pinned          int     `json:"pinned"`
	MaxSpeed        float64 `json:"max_speed"`
	KineticEnergy   float64 `json:"kinetic_energy"`
	MaxDisplacement float64 `json:"max_displacement"`
}

// ReconcileResult reports how a new node/edge set was merged into the state
type ReconcileResult struct {
	Added        []string `json:"added"`
	Removed      []string `json:"removed"`
	Kept         int      `json:"kept"`
	DroppedEdges []string `json:"dropped_edges"`
}

// Changed reports whether the node membership changed
func (r ReconcileResult) Changed() bool {
	return len(r.Added) > 0 || len(r.Removed) > 0
}

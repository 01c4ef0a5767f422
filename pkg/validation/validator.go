package validation

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"

	"github.com/dd0wney/cluso-threatgraph/pkg/graph"
	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// Validation constants
	MaxNodes       = 5000
	MaxEdges       = 20000
	MaxIDLength    = 256
	MaxDataKeys    = 100
	MaxDataKey     = 100
	MaxSurfaceSide = 16384.0

	// Regular expressions
	dataKeyPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.-]*$`)
)

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.Float64 && fl.Field().Kind() != reflect.Float32 {
			return false
		}
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
}

// NodeRequest is one node of a graph replacement
type NodeRequest struct {
	ID    string         `json:"id" validate:"required,max=256"`
	Type  string         `json:"type" validate:"required,oneof=ip honeypot ttp"`
	Label string         `json:"label" validate:"max=256"`
	Data  map[string]any `json:"data,omitempty" validate:"omitempty,max=100"`
}

// EdgeRequest is one edge of a graph replacement. A missing id is derived
// from the endpoints.
type EdgeRequest struct {
	ID     string `json:"id,omitempty" validate:"omitempty,max=520"`
	Source string `json:"source" validate:"required,max=256"`
	Target string `json:"target" validate:"required,max=256"`
}

// GraphRequest replaces the whole node/edge set. Edges referencing unknown
// nodes are accepted here and dropped by the engine.
type GraphRequest struct {
	Nodes []NodeRequest `json:"nodes" validate:"max=5000,dive"`
	Edges []EdgeRequest `json:"edges" validate:"max=20000,dive"`
}

// PointerKinds lists the pointer events a remote host may inject
var PointerKinds = []string{"press", "move", "release", "leave", "wheel", "resize"}

// PointerRequest is a single pointer event in screen pixels. Hit is the node
// under the pointer as seen by the host; when empty and HitTest is set the
// engine hit tests itself.
type PointerRequest struct {
	Kind    string  `json:"kind" validate:"required,oneof=press move release leave wheel resize"`
	X       float64 `json:"x" validate:"finite"`
	Y       float64 `json:"y" validate:"finite"`
	Hit     string  `json:"hit,omitempty" validate:"max=256"`
	HitTest bool    `json:"hit_test,omitempty"`
	DeltaY  float64 `json:"delta_y,omitempty" validate:"finite"`
	Width   float64 `json:"width,omitempty" validate:"finite,gte=0"`
	Height  float64 `json:"height,omitempty" validate:"finite,gte=0"`
}

// ViewportRequest frames all nodes with padding world units around them
type ViewportRequest struct {
	Padding float64 `json:"padding" validate:"finite,gte=0,lte=10000"`
}

// SelectionRequest selects a node; an empty id clears the selection
type SelectionRequest struct {
	ID string `json:"id" validate:"max=256"`
}

// ValidateGraphRequest validates a graph replacement request
func ValidateGraphRequest(req *GraphRequest) error {
	if req == nil {
		return errors.New("graph request cannot be nil")
	}

	if len(req.Nodes) > MaxNodes {
		return fmt.Errorf("Nodes: maximum %d nodes allowed, got %d", MaxNodes, len(req.Nodes))
	}
	if len(req.Edges) > MaxEdges {
		return fmt.Errorf("Edges: maximum %d edges allowed, got %d", MaxEdges, len(req.Edges))
	}

	// Validate using struct tags
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}

	for i, n := range req.Nodes {
		for key := range n.Data {
			if err := ValidateDataKey(key); err != nil {
				return fmt.Errorf("Nodes[%d].Data: %w", i, err)
			}
		}
	}

	return nil
}

// ValidatePointerRequest validates a pointer event
func ValidatePointerRequest(req *PointerRequest) error {
	if req == nil {
		return errors.New("pointer request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	if req.Kind == "resize" && (req.Width > MaxSurfaceSide || req.Height > MaxSurfaceSide) {
		return fmt.Errorf("Width/Height: must not exceed %.0f pixels", MaxSurfaceSide)
	}
	return nil
}

// ValidateViewportRequest validates a fit-to-view request
func ValidateViewportRequest(req *ViewportRequest) error {
	if req == nil {
		return errors.New("viewport request cannot be nil")
	}
	return formatValidationError(validate.Struct(req))
}

// ValidateSelectionRequest validates a selection request
func ValidateSelectionRequest(req *SelectionRequest) error {
	if req == nil {
		return errors.New("selection request cannot be nil")
	}
	return formatValidationError(validate.Struct(req))
}

// ValidateDataKey validates a key of a node's opaque payload
func ValidateDataKey(key string) error {
	if key == "" {
		return errors.New("data key cannot be empty")
	}
	if len(key) > MaxDataKey {
		return fmt.Errorf("data key '%s' exceeds maximum length of %d characters", key, MaxDataKey)
	}
	if !dataKeyPattern.MatchString(key) {
		return fmt.Errorf("data key '%s' is invalid (must start with letter or underscore)", key)
	}
	return nil
}

// ToGraph converts a validated request into engine input
func (req *GraphRequest) ToGraph() ([]graph.Node, []graph.Edge) {
	nodes := make([]graph.Node, len(req.Nodes))
	for i, n := range req.Nodes {
		nodes[i] = graph.Node{ID: n.ID, Type: graph.NodeType(n.Type), Label: n.Label, Data: n.Data}
	}
	edges := make([]graph.Edge, len(req.Edges))
	for i, e := range req.Edges {
		id := e.ID
		if id == "" {
			id = graph.EdgeID(e.Source, e.Target)
		}
		edges[i] = graph.Edge{ID: id, Source: e.Source, Target: e.Target}
	}
	return nodes, edges
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Namespace()
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min", "gte":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max", "lte":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s]", field, param)
		case "finite":
			return fmt.Errorf("%s: must be a finite number", field)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}

	return err
}

package api

import (
	"github.com/dd0wney/cluso-threatgraph/pkg/geometry"
	"github.com/dd0wney/cluso-threatgraph/pkg/graph"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// GraphResponse is the node/edge set currently being simulated
type GraphResponse struct {
	Nodes []graph.Node `json:"nodes"`
	Edges []graph.Edge `json:"edges"`
}

// InputResponse reports the interaction state after a pointer event
type InputResponse struct {
	Mode     string            `json:"mode"`
	Hit      string            `json:"hit,omitempty"`
	Dragging string            `json:"dragging,omitempty"`
	Selected string            `json:"selected,omitempty"`
	Viewport geometry.Viewport `json:"viewport"`
}

// SelectionResponse reports the selection and its relevant set
type SelectionResponse struct {
	Selected string   `json:"selected,omitempty"`
	Relevant []string `json:"relevant"`
}

package engine

import (
	"encoding/json"

	"github.com/dd0wney/cluso-threatgraph/pkg/geometry"
	"github.com/dd0wney/cluso-threatgraph/pkg/graph"
	"github.com/dd0wney/cluso-threatgraph/pkg/selection"
	"github.com/dd0wney/cluso-threatgraph/pkg/visualization"
)

// NodeFrame is one node as a renderer draws it
type NodeFrame struct {
	ID       string         `json:"id"`
	Type     graph.NodeType `json:"type"`
	Label    string         `json:"label"`
	X        float64        `json:"x"`
	Y        float64        `json:"y"`
	Radius   float64        `json:"radius"`
	Color    string         `json:"color"`
	Pinned   bool           `json:"pinned,omitempty"`
	Selected bool           `json:"selected,omitempty"`
	Relevant bool           `json:"relevant"`
}

// Position returns the node's world position
func (n NodeFrame) Position() geometry.Vec2 {
	return geometry.V(n.X, n.Y)
}

// EdgeFrame is one edge as a renderer draws it. Relevant is true when nothing
// is selected or the edge touches the selection.
type EdgeFrame struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Target   string `json:"target"`
	Relevant bool   `json:"relevant"`
}

// Frame is a read-only snapshot of one tick. It shares no memory with the
// engine that produced it.
type Frame struct {
	Tick     uint64                  `json:"tick"`
	Session  string                  `json:"session"`
	Nodes    []NodeFrame             `json:"nodes"`
	Edges    []EdgeFrame             `json:"edges"`
	Viewport geometry.Viewport       `json:"viewport"`
	Surface  geometry.Surface        `json:"surface"`
	Selected string                  `json:"selected,omitempty"`
	Relevant []string                `json:"relevant"`
	Mode     string                  `json:"mode"`
	Dragging string                  `json:"dragging,omitempty"`
	Stats    visualization.StepStats `json:"stats"`
}

// Frame snapshots the current state without stepping the solver
func (e *Engine) Frame() Frame {
	selected, _ := e.tracker.Selected()
	relevant := selection.RelevantNodeIDs(selected, e.set.Edges)

	f := Frame{
		Tick:     e.state.Ticks(),
		Session:  e.session,
		Nodes:    make([]NodeFrame, 0, len(e.set.Nodes)),
		Edges:    make([]EdgeFrame, 0, len(e.set.Edges)),
		Viewport: e.controller.Viewport(),
		Surface:  e.controller.Surface(),
		Selected: selected,
		Relevant: selection.Sorted(relevant),
		Mode:     e.controller.Mode().Name(),
		Stats:    e.stats,
	}
	f.Dragging, _ = e.controller.Dragged()

	for _, n := range e.set.Nodes {
		p, ok := e.state.Position(n.ID)
		if !ok {
			continue
		}
		_, rel := relevant[n.ID]
		f.Nodes = append(f.Nodes, NodeFrame{
			ID:       n.ID,
			Type:     n.Type,
			Label:    n.Label,
			X:        p.X,
			Y:        p.Y,
			Radius:   e.config.NodeRadius,
			Color:    n.Type.Color(),
			Pinned:   e.state.Pinned(n.ID),
			Selected: n.ID == selected,
			Relevant: rel,
		})
	}

	for _, edge := range e.set.Edges {
		f.Edges = append(f.Edges, EdgeFrame{
			ID:       edge.ID,
			Source:   edge.Source,
			Target:   edge.Target,
			Relevant: selection.EdgeIsRelevant(edge, selected),
		})
	}
	return f
}

// Node returns the node with the given id
func (f Frame) Node(id string) (NodeFrame, bool) {
	for _, n := range f.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeFrame{}, false
}

// Positions returns node id → world position
func (f Frame) Positions() map[string]geometry.Vec2 {
	out := make(map[string]geometry.Vec2, len(f.Nodes))
	for _, n := range f.Nodes {
		out[n.ID] = n.Position()
	}
	return out
}

// JSON encodes the frame
func (f Frame) JSON() ([]byte, error) {
	return json.Marshal(f)
}

// JSONIndent encodes the frame for humans
func (f Frame) JSONIndent() ([]byte, error) {
	return json.MarshalIndent(f, "", "  ")
}

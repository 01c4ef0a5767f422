// Package graph holds the node/edge set the layout engine consumes.
//
// The set is produced elsewhere (from attacker/honeypot/technique
// observations) and is immutable once handed to the engine.
package graph

import (
	"fmt"
	"strings"
)

// NodeType classifies an entity in the threat graph
type NodeType string

const (
	NodeTypeIP       NodeType = "ip"
	NodeTypeHoneypot NodeType = "honeypot"
	NodeTypeTTP      NodeType = "ttp"
)

// Valid reports whether t is one of the known node types
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeIP, NodeTypeHoneypot, NodeTypeTTP:
		return true
	default:
		return false
	}
}

// Rank orders node types attacker → decoy → technique
func (t NodeType) Rank() int {
	switch t {
	case NodeTypeIP:
		return 0
	case NodeTypeHoneypot:
		return 1
	case NodeTypeTTP:
		return 2
	default:
		return 3
	}
}

// Node is a visual entity. Data is an opaque payload the engine never reads.
type Node struct {
	ID    string         `json:"id" yaml:"id"`
	Type  NodeType       `json:"type" yaml:"type"`
	Label string         `json:"label" yaml:"label"`
	Data  map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
}

// Edge is an observed relationship. It is undirected for simulation purposes;
// Source/Target order only matters to renderers.
type Edge struct {
	ID     string `json:"id" yaml:"id"`
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// EdgeSeparator joins source and target ids into an edge id
const EdgeSeparator = "->"

// EdgeID derives the canonical edge id "source->target"
func EdgeID(source, target string) string {
	return source + EdgeSeparator + target
}

// NewEdge builds an edge with its derived id
func NewEdge(source, target string) Edge {
	return Edge{ID: EdgeID(source, target), Source: source, Target: target}
}

// ParseEdgeID splits a "source->target" id
func ParseEdgeID(id string) (source, target string, err error) {
	source, target, ok := strings.Cut(id, EdgeSeparator)
	if !ok || source == "" || target == "" {
		return "", "", fmt.Errorf("malformed edge id %q", id)
	}
	return source, target, nil
}

// Touches reports whether the edge has id as one of its endpoints
func (e Edge) Touches(id string) bool {
	return e.Source == id || e.Target == id
}

// Other returns the endpoint opposite id
func (e Edge) Other(id string) string {
	if e.Source == id {
		return e.Target
	}
	return e.Source
}

// Set is one flat node/edge set
type Set struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// Empty reports whether the set has no nodes
func (s Set) Empty() bool {
	return len(s.Nodes) == 0
}

// NodeIndex returns id → position in Nodes
func (s Set) NodeIndex() map[string]int {
	idx := make(map[string]int, len(s.Nodes))
	for i, n := range s.Nodes {
		idx[n.ID] = i
	}
	return idx
}

// Node looks up a node by id
func (s Set) Node(id string) (Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Color is the fill renderers use for nodes of this type
func (t NodeType) Color() string {
	switch t {
	case NodeTypeIP:
		return "#ef4444"
	case NodeTypeHoneypot:
		return "#38bdf8"
	case NodeTypeTTP:
		return "#facc15"
	default:
		return "#9ca3af"
	}
}

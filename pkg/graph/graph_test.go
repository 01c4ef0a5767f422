package graph

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEdgeID(t *testing.T) {
	e := NewEdge("203.0.113.7", "ssh-decoy-01")
	assert.Equal(t, "203.0.113.7->ssh-decoy-01", e.ID)

	src, dst, err := ParseEdgeID(e.ID)
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", src)
	assert.Equal(t, "ssh-decoy-01", dst)

	for _, bad := range []string{"", "a", "->b", "a->"} {
		_, _, err := ParseEdgeID(bad)
		assert.Error(t, err, bad)
	}
}

func TestEdgeEndpoints(t *testing.T) {
	e := NewEdge("a", "b")
	assert.True(t, e.Touches("a"))
	assert.True(t, e.Touches("b"))
	assert.False(t, e.Touches("c"))
	assert.Equal(t, "b", e.Other("a"))
	assert.Equal(t, "a", e.Other("b"))
}

func TestNodeType(t *testing.T) {
	assert.True(t, NodeTypeIP.Valid())
	assert.True(t, NodeTypeHoneypot.Valid())
	assert.True(t, NodeTypeTTP.Valid())
	assert.False(t, NodeType("router").Valid())
	assert.Less(t, NodeTypeIP.Rank(), NodeTypeHoneypot.Rank())
	assert.Less(t, NodeTypeHoneypot.Rank(), NodeTypeTTP.Rank())
}

func TestNodeTypeColor(t *testing.T) {
	tests := []struct {
		typ  NodeType
		want string
	}{
		{NodeTypeIP, "#ef4444"},
		{NodeTypeHoneypot, "#38bdf8"},
		{NodeTypeTTP, "#facc15"},
		{NodeType("router"), "#9ca3af"},
		{NodeType(""), "#9ca3af"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.typ.Color(), "type %q", tt.typ)
	}
}

func TestSanitizeDropsDanglingEdges(t *testing.T) {
	nodes := []Node{{ID: "A", Type: NodeTypeIP}, {ID: "B", Type: NodeTypeHoneypot}}
	edges := []Edge{NewEdge("A", "B"), NewEdge("A", "Z")}

	set, report := Sanitize(nodes, edges)

	require.Len(t, set.Edges, 1)
	assert.Equal(t, "A->B", set.Edges[0].ID)
	require.Len(t, report.DanglingEdges, 1)
	assert.Equal(t, "A->Z", report.DanglingEdges[0].ID)
	assert.False(t, report.Clean())
}

func TestSanitizeDuplicates(t *testing.T) {
	nodes := []Node{{ID: "A", Label: "first"}, {ID: "B"}, {ID: "A", Label: "second"}}
	edges := []Edge{{Source: "A", Target: "B"}, NewEdge("A", "B"), NewEdge("B", "A")}

	set, report := Sanitize(nodes, edges)

	require.Len(t, set.Nodes, 2)
	assert.Equal(t, "first", set.Nodes[0].Label)
	assert.Equal(t, []string{"A"}, report.DuplicateNodes)

	// the first edge has its id derived, which makes the second a duplicate
	require.Len(t, set.Edges, 2)
	assert.Equal(t, "A->B", set.Edges[0].ID)
	assert.Equal(t, "B->A", set.Edges[1].ID)
	assert.Equal(t, []string{"A->B"}, report.DuplicateEdges)
}

func TestSanitizeDoesNotModifyInput(t *testing.T) {
	edges := []Edge{{Source: "A", Target: "B"}}
	Sanitize([]Node{{ID: "A"}, {ID: "B"}}, edges)
	assert.Empty(t, edges[0].ID)
}

func TestDecodeYAML(t *testing.T) {
	doc := `
nodes:
  - id: 198.51.100.4
    type: ip
    label: 198.51.100.4
    data:
      country: NL
  - id: web-decoy
    type: honeypot
    label: web-decoy
edges:
  - id: 198.51.100.4->web-decoy
    source: 198.51.100.4
    target: web-decoy
`
	set, err := Decode(strings.NewReader(doc), FormatYAML)
	require.NoError(t, err)
	require.Len(t, set.Nodes, 2)
	assert.Equal(t, NodeTypeIP, set.Nodes[0].Type)
	assert.Equal(t, "NL", set.Nodes[0].Data["country"])
	require.Len(t, set.Edges, 1)
	assert.Equal(t, "web-decoy", set.Edges[0].Target)
}

func TestLoadFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	doc := `{"nodes":[{"id":"T1110","type":"ttp","label":"T1110"}],"edges":[]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	set, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, set.Nodes, 1)
	assert.Equal(t, NodeTypeTTP, set.Nodes[0].Type)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDecodeEmptyYAML(t *testing.T) {
	set, err := Decode(strings.NewReader(""), FormatYAML)
	require.NoError(t, err)
	assert.True(t, set.Empty())
}

package selection

import (
	"fmt"
	"testing"

	"github.com/dd0wney/cluso-threatgraph/pkg/graph"
	"github.com/stretchr/testify/assert"
)

func star(k int) ([]graph.Node, []graph.Edge) {
	nodes := []graph.Node{{ID: "center", Type: graph.NodeTypeHoneypot}}
	edges := make([]graph.Edge, 0, k)
	for i := 0; i < k; i++ {
		id := fmt.Sprintf("leaf-%d", i)
		nodes = append(nodes, graph.Node{ID: id, Type: graph.NodeTypeIP})
		edges = append(edges, graph.NewEdge(id, "center"))
	}
	return nodes, edges
}

func TestRelevantNodeIDsStar(t *testing.T) {
	for _, k := range []int{1, 3, 12} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			_, edges := star(k)

			assert.Len(t, RelevantNodeIDs("center", edges), k+1)

			leaf := RelevantNodeIDs("leaf-0", edges)
			assert.Len(t, leaf, 2)
			assert.Contains(t, leaf, "leaf-0")
			assert.Contains(t, leaf, "center")
		})
	}
}

func TestRelevantNodeIDsNoSelection(t *testing.T) {
	_, edges := star(4)
	assert.Empty(t, RelevantNodeIDs("", edges))
}

func TestEdgeIsRelevant(t *testing.T) {
	e := graph.NewEdge("a", "b")
	assert.True(t, EdgeIsRelevant(e, ""))
	assert.True(t, EdgeIsRelevant(e, "a"))
	assert.True(t, EdgeIsRelevant(e, "b"))
	assert.False(t, EdgeIsRelevant(e, "c"))

	_, edges := star(3)
	assert.Len(t, RelevantEdgeIDs("", edges), 3)
	assert.Len(t, RelevantEdgeIDs("leaf-1", edges), 1)
	assert.Len(t, RelevantEdgeIDs("center", edges), 3)
}

func TestTrackerChanges(t *testing.T) {
	tr := NewTracker()
	var changes []string
	tr.OnChange(func(prev, cur string) {
		changes = append(changes, prev+"=>"+cur)
	})

	_, ok := tr.Selected()
	assert.False(t, ok)

	tr.Set("a")
	tr.Set("a")
	tr.Set("b")
	tr.Clear()
	tr.Clear()

	assert.Equal(t, []string{"=>a", "a=>b", "b=>"}, changes)
}

func TestTrackerRetain(t *testing.T) {
	nodes, _ := star(2)
	tr := NewTracker()
	tr.Set("leaf-1")

	assert.False(t, tr.Retain(nodes))
	id, ok := tr.Selected()
	assert.True(t, ok)
	assert.Equal(t, "leaf-1", id)

	assert.True(t, tr.Retain(nodes[:2]))
	_, ok = tr.Selected()
	assert.False(t, ok)
}

func TestSorted(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Sorted(map[string]struct{}{"c": {}, "a": {}, "b": {}}))
}

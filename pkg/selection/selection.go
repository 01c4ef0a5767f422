// Package selection tracks the selected node and derives which nodes and
// edges are relevant to it.
package selection

import (
	"sort"

	"github.com/dd0wney/cluso-threatgraph/pkg/graph"
)

// Tracker holds the current selection. The empty id means nothing is selected.
type Tracker struct {
	selected string
	onChange func(previous, current string)
}

// NewTracker creates a tracker with nothing selected
func NewTracker() *Tracker {
	return &Tracker{}
}

// OnChange registers a callback invoked whenever the selection changes
func (t *Tracker) OnChange(fn func(previous, current string)) {
	t.onChange = fn
}

// Set selects id. An empty id clears the selection.
func (t *Tracker) Set(id string) {
	if id == t.selected {
		return
	}
	prev := t.selected
	t.selected = id
	if t.onChange != nil {
		t.onChange(prev, id)
	}
}

// Clear removes the selection
func (t *Tracker) Clear() {
	t.Set("")
}

// Selected returns the selected id and whether there is one
func (t *Tracker) Selected() (string, bool) {
	return t.selected, t.selected != ""
}

// Retain clears the selection if the selected node is no longer in nodes.
// It reports whether the selection was cleared.
func (t *Tracker) Retain(nodes []graph.Node) bool {
	if t.selected == "" {
		return false
	}
	for _, n := range nodes {
		if n.ID == t.selected {
			return false
		}
	}
	t.Clear()
	return true
}

// RelevantNodeIDs returns the selection plus every node one edge hop away.
// With no selection the result is empty.
func RelevantNodeIDs(selected string, edges []graph.Edge) map[string]struct{} {
	if selected == "" {
		return map[string]struct{}{}
	}
	related := map[string]struct{}{selected: {}}
	for _, e := range edges {
		if e.Source == selected {
			related[e.Target] = struct{}{}
		}
		if e.Target == selected {
			related[e.Source] = struct{}{}
		}
	}
	return related
}

// EdgeIsRelevant is true when nothing is selected or the edge touches the selection
func EdgeIsRelevant(e graph.Edge, selected string) bool {
	return selected == "" || e.Touches(selected)
}

// RelevantEdgeIDs returns the ids of the edges touching the selection.
// With no selection every edge is relevant.
func RelevantEdgeIDs(selected string, edges []graph.Edge) map[string]struct{} {
	out := make(map[string]struct{}, len(edges))
	for _, e := range edges {
		if EdgeIsRelevant(e, selected) {
			out[e.ID] = struct{}{}
		}
	}
	return out
}

// Sorted returns the ids of a set in ascending order
func Sorted(ids map[string]struct{}) []string {
	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

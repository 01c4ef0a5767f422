package graph

// Report describes what Sanitize removed from an input set
type Report struct {
	DanglingEdges  []Edge   // edges referencing a node id that is not in the set
	DuplicateNodes []string // node ids seen more than once (first occurrence kept)
	DuplicateEdges []string // edge ids seen more than once (first occurrence kept)
}

// Clean reports whether nothing was removed
func (r Report) Clean() bool {
	return len(r.DanglingEdges) == 0 && len(r.DuplicateNodes) == 0 && len(r.DuplicateEdges) == 0
}

// Sanitize builds the simulation set from externally supplied nodes and edges.
// Dangling edges and duplicate ids are dropped, never treated as errors.
// Missing edge ids are derived from their endpoints. Input slices are not modified.
func Sanitize(nodes []Node, edges []Edge) (Set, Report) {
	var report Report

	known := make(map[string]struct{}, len(nodes))
	out := Set{
		Nodes: make([]Node, 0, len(nodes)),
		Edges: make([]Edge, 0, len(edges)),
	}

	for _, n := range nodes {
		if _, dup := known[n.ID]; dup {
			report.DuplicateNodes = append(report.DuplicateNodes, n.ID)
			continue
		}
		known[n.ID] = struct{}{}
		out.Nodes = append(out.Nodes, n)
	}

	seenEdges := make(map[string]struct{}, len(edges))
	for _, e := range edges {
		if e.ID == "" {
			e.ID = EdgeID(e.Source, e.Target)
		}
		_, srcOK := known[e.Source]
		_, dstOK := known[e.Target]
		if !srcOK || !dstOK {
			report.DanglingEdges = append(report.DanglingEdges, e)
			continue
		}
		if _, dup := seenEdges[e.ID]; dup {
			report.DuplicateEdges = append(report.DuplicateEdges, e.ID)
			continue
		}
		seenEdges[e.ID] = struct{}{}
		out.Edges = append(out.Edges, e)
	}

	return out, report
}

package visualization

import (
	"github.com/dd0wney/cluso-threatgraph/pkg/geometry"
	"github.com/dd0wney/cluso-threatgraph/pkg/graph"
)

// Reconcile replaces the simulated node/edge set. Nodes already present keep
// their position, velocity and pin. New ids are placed by the seeder with zero
// velocity; ids no longer present are pruned. Edges whose endpoints are not in
// the set are dropped and reported. All handles are reassigned.
func (s *State) Reconcile(set graph.Set) ReconcileResult {
	var result ReconcileResult

	n := len(set.Nodes)
	index := make(map[string]Handle, n)
	ids := make([]string, 0, n)
	pos := make([]geometry.Vec2, 0, n)
	vel := make([]geometry.Vec2, 0, n)
	pinned := make([]bool, 0, n)

	var fresh []graph.Node
	var freshHandles []Handle

	for _, node := range set.Nodes {
		if _, dup := index[node.ID]; dup {
			continue
		}
		h := Handle(len(ids))
		index[node.ID] = h
		ids = append(ids, node.ID)

		if old, ok := s.index[node.ID]; ok {
			pos = append(pos, s.pos[old])
			vel = append(vel, s.vel[old])
			pinned = append(pinned, s.pinned[old])
			result.Kept++
			continue
		}

		pos = append(pos, geometry.Vec2{})
		vel = append(vel, geometry.Vec2{})
		pinned = append(pinned, false)
		fresh = append(fresh, node)
		freshHandles = append(freshHandles, h)
		result.Added = append(result.Added, node.ID)
	}

	if len(fresh) > 0 {
		seeded := s.seeder.Seed(fresh, s.config.InitBounds, s.rng)
		for i, h := range freshHandles {
			p := s.config.InitBounds.Center()
			if i < len(seeded) && seeded[i].IsFinite() {
				p = seeded[i]
			}
			pos[h] = p
		}
	}

	for _, id := range s.ids {
		if _, ok := index[id]; !ok {
			result.Removed = append(result.Removed, id)
		}
	}

	edges := make([][2]Handle, 0, len(set.Edges))
	edgeIDs := make([]string, 0, len(set.Edges))
	for _, e := range set.Edges {
		src, srcOK := index[e.Source]
		dst, dstOK := index[e.Target]
		id := e.ID
		if id == "" {
			id = graph.EdgeID(e.Source, e.Target)
		}
		if !srcOK || !dstOK {
			result.DroppedEdges = append(result.DroppedEdges, id)
			continue
		}
		edges = append(edges, [2]Handle{src, dst})
		edgeIDs = append(edgeIDs, id)
	}

	s.index = index
	s.ids = ids
	s.pos = pos
	s.vel = vel
	s.pinned = pinned
	s.force = make([]geometry.Vec2, len(ids))
	s.edges = edges
	s.edgeIDs = edgeIDs

	return result
}

// Len returns the number of simulated nodes
func (s *State) Len() int {
	return len(s.ids)
}

// EdgeCount returns the number of simulated edges
func (s *State) EdgeCount() int {
	return len(s.edges)
}

// Handle resolves a node id
func (s *State) Handle(id string) (Handle, bool) {
	h, ok := s.index[id]
	return h, ok
}

// ID returns the node id for a handle
func (s *State) ID(h Handle) string {
	return s.ids[h]
}

// At returns the position for a handle
func (s *State) At(h Handle) geometry.Vec2 {
	return s.pos[h]
}

// Has reports whether id is simulated
func (s *State) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Position returns the world position of a node
func (s *State) Position(id string) (geometry.Vec2, bool) {
	h, ok := s.index[id]
	if !ok {
		return geometry.Vec2{}, false
	}
	return s.pos[h], true
}

// Velocity returns the velocity of a node
func (s *State) Velocity(id string) (geometry.Vec2, bool) {
	h, ok := s.index[id]
	if !ok {
		return geometry.Vec2{}, false
	}
	return s.vel[h], true
}

// Pinned reports whether the solver is excluded from integrating id
func (s *State) Pinned(id string) bool {
	h, ok := s.index[id]
	return ok && s.pinned[h]
}

// Pin takes a node out of integration and places it at p with zero velocity.
// Pinned nodes still exert forces on others. Non-finite positions are ignored.
func (s *State) Pin(id string, p geometry.Vec2) bool {
	h, ok := s.index[id]
	if !ok || !p.IsFinite() {
		return false
	}
	s.pinned[h] = true
	s.pos[h] = p
	s.vel[h] = geometry.Vec2{}
	return true
}

// Move places a node at p with zero velocity without changing its pin
func (s *State) Move(id string, p geometry.Vec2) bool {
	h, ok := s.index[id]
	if !ok || !p.IsFinite() {
		return false
	}
	s.pos[h] = p
	s.vel[h] = geometry.Vec2{}
	return true
}

// Unpin returns a node to the solver at rest
func (s *State) Unpin(id string) bool {
	h, ok := s.index[id]
	if !ok {
		return false
	}
	s.pinned[h] = false
	s.vel[h] = geometry.Vec2{}
	return true
}

// Positions returns a copy of every node position keyed by id
func (s *State) Positions() map[string]geometry.Vec2 {
	out := make(map[string]geometry.Vec2, len(s.ids))
	for i, id := range s.ids {
		out[id] = s.pos[i]
	}
	return out
}

// EdgeIDs returns the ids of the simulated edges in input order
func (s *State) EdgeIDs() []string {
	out := make([]string, len(s.edgeIDs))
	copy(out, s.edgeIDs)
	return out
}

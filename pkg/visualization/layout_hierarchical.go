package visualization

import (
	"math/rand"

	"github.com/dd0wney/cluso-threatgraph/pkg/geometry"
	"github.com/dd0wney/cluso-threatgraph/pkg/graph"
)

// layerCount covers ip, honeypot, ttp and unknown types
const layerCount = 4

// LayeredSeeder places new nodes in horizontal rows by type: attacker IPs on
// top, decoys below them, techniques under those. Nodes are spread evenly
// across their row with a little vertical jitter.
type LayeredSeeder struct{}

// Seed implements Seeder
func (LayeredSeeder) Seed(nodes []graph.Node, bounds geometry.Rect, rng *rand.Rand) []geometry.Vec2 {
	out := make([]geometry.Vec2, len(nodes))
	if len(nodes) == 0 {
		return out
	}

	var layers [layerCount][]int
	for i, n := range nodes {
		rank := n.Type.Rank()
		layers[rank] = append(layers[rank], i)
	}

	rowHeight := bounds.Height() / layerCount
	for rank, members := range layers {
		if len(members) == 0 {
			continue
		}
		y := bounds.MinY + rowHeight*(float64(rank)+0.5)
		spacing := bounds.Width() / float64(len(members)+1)
		for slot, i := range members {
			jitter := (rng.Float64() - 0.5) * rowHeight * 0.5
			out[i] = geometry.V(bounds.MinX+spacing*float64(slot+1), y+jitter)
		}
	}
	return out
}

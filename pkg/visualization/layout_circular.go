package visualization

import (
	"math"
	"math/rand"

	"github.com/dd0wney/cluso-threatgraph/pkg/geometry"
	"github.com/dd0wney/cluso-threatgraph/pkg/graph"
)

// circularFill is the share of the bounds the ring spans
const circularFill = 0.8

// CircularSeeder arranges new nodes evenly on an ellipse inscribed in the
// bounds. A random phase keeps successive batches from landing on top of
// each other.
type CircularSeeder struct{}

// Seed implements Seeder
func (CircularSeeder) Seed(nodes []graph.Node, bounds geometry.Rect, rng *rand.Rand) []geometry.Vec2 {
	out := make([]geometry.Vec2, len(nodes))
	if len(nodes) == 0 {
		return out
	}

	c := bounds.Center()
	rx := bounds.Width() / 2 * circularFill
	ry := bounds.Height() / 2 * circularFill
	phase := rng.Float64() * 2 * math.Pi
	angleStep := 2 * math.Pi / float64(len(nodes))

	for i := range nodes {
		angle := phase + float64(i)*angleStep
		out[i] = geometry.V(c.X+rx*math.Cos(angle), c.Y+ry*math.Sin(angle))
	}
	return out
}

package visualization

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/dd0wney/cluso-threatgraph/pkg/geometry"
	"github.com/dd0wney/cluso-threatgraph/pkg/graph"
)

// Seeder places nodes the solver has not seen before. It returns one point
// per node, each inside bounds.
type Seeder interface {
	Seed(nodes []graph.Node, bounds geometry.Rect, rng *rand.Rand) []geometry.Vec2
}

// Seeder names accepted by ParseSeeder
const (
	SeederRandom   = "random"
	SeederCircular = "circular"
	SeederLayered  = "layered"
)

// ParseSeeder maps a configuration name to a Seeder
func ParseSeeder(name string) (Seeder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", SeederRandom:
		return RandomSeeder{}, nil
	case SeederCircular:
		return CircularSeeder{}, nil
	case SeederLayered:
		return LayeredSeeder{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown seeder %q", ErrInvalidConfig, name)
	}
}

// RandomSeeder places nodes uniformly inside the bounds
type RandomSeeder struct{}

// Seed implements Seeder
func (RandomSeeder) Seed(nodes []graph.Node, bounds geometry.Rect, rng *rand.Rand) []geometry.Vec2 {
	out := make([]geometry.Vec2, len(nodes))
	for i := range nodes {
		out[i] = geometry.V(
			bounds.MinX+rng.Float64()*bounds.Width(),
			bounds.MinY+rng.Float64()*bounds.Height(),
		)
	}
	return out
}

// Bounds returns the smallest rectangle containing every node
func (s *State) Bounds() (geometry.Rect, bool) {
	return geometry.Bounds(s.pos)
}

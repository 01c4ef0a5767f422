package visualization

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/dd0wney/cluso-threatgraph/pkg/geometry"
	"github.com/dd0wney/cluso-threatgraph/pkg/parallel"
)

// State is the solver's arena. It is not safe for concurrent use; one
// goroutine owns it and interleaves Step with pointer-driven mutations.
type State struct {
	config ForceConfig
	seeder Seeder
	rng    *rand.Rand

	pool     *parallel.WorkerPool
	ownsPool bool

	index  map[string]Handle
	ids    []string
	pos    []geometry.Vec2
	vel    []geometry.Vec2
	force  []geometry.Vec2
	pinned []bool

	edges   [][2]Handle
	edgeIDs []string

	ticks uint64
}

// Option customises a State
type Option func(*State)

// WithSeeder sets the placement strategy for newly seen node ids
func WithSeeder(s Seeder) Option {
	return func(st *State) {
		if s != nil {
			st.seeder = s
		}
	}
}

// WithSeed makes initial placement deterministic
func WithSeed(seed int64) Option {
	return func(st *State) {
		st.rng = rand.New(rand.NewSource(seed))
	}
}

// WithWorkerPool shares an existing pool for parallel repulsion. The caller
// keeps ownership and closes it.
func WithWorkerPool(pool *parallel.WorkerPool) Option {
	return func(st *State) {
		st.pool = pool
	}
}

// NewState creates an empty solver state
func NewState(config ForceConfig, opts ...Option) (*State, error) {
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := &State{
		config: config,
		seeder: RandomSeeder{},
		rng:    rand.New(rand.NewSource(rand.Int63())),
		index:  make(map[string]Handle),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.pool == nil && config.Workers > 1 {
		pool, err := parallel.NewWorkerPool(config.Workers)
		if err != nil {
			return nil, fmt.Errorf("failed to create repulsion pool: %w", err)
		}
		s.pool = pool
		s.ownsPool = true
	}
	return s, nil
}

// Close releases the worker pool if the state created it
func (s *State) Close() {
	if s.ownsPool && s.pool != nil {
		s.pool.Close()
		s.pool = nil
		s.ownsPool = false
	}
}

// Config returns the effective configuration
func (s *State) Config() ForceConfig {
	return s.config
}

// Ticks returns the number of steps taken
func (s *State) Ticks() uint64 {
	return s.ticks
}

// Step advances every non-pinned node by one tick. All forces are computed
// from the positions at the start of the tick before any node moves.
func (s *State) Step() StepStats {
	stats := StepStats{Nodes: len(s.pos), Edges: len(s.edges)}
	if len(s.pos) == 0 {
		return stats
	}

	for i := range s.force {
		s.force[i] = geometry.Vec2{}
	}

	if s.parallelRepulsion() {
		s.repelRows()
	} else {
		s.repelPairs()
	}
	s.attract()
	s.center()
	s.integrate(&stats)

	s.ticks++
	return stats
}

func (s *State) parallelRepulsion() bool {
	return s.pool != nil && s.pool.Workers() > 1 && len(s.pos) >= s.config.ParallelThreshold
}

// repulsion is the force b exerts on a
func (s *State) repulsion(a, b geometry.Vec2) geometry.Vec2 {
	d := a.Sub(b)
	distSq := d.LenSq()
	if distSq < s.config.MinDistanceSq {
		distSq = s.config.MinDistanceSq
	}
	magnitude := s.config.RepulsionStrength / distSq
	return d.Scale(magnitude / math.Sqrt(distSq))
}

// repelPairs visits each unordered pair once
func (s *State) repelPairs() {
	n := len(s.pos)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			f := s.repulsion(s.pos[i], s.pos[j])
			s.force[i] = s.force[i].Add(f)
			s.force[j] = s.force[j].Sub(f)
		}
	}
}

// repelRows gives each worker a disjoint range of rows and sums the full
// row, so no two workers write the same accumulator
func (s *State) repelRows() {
	n := len(s.pos)
	ok := s.pool.Range(n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			var sum geometry.Vec2
			for j := 0; j < n; j++ {
				if j != i {
					sum = sum.Add(s.repulsion(s.pos[i], s.pos[j]))
				}
			}
			s.force[i] = s.force[i].Add(sum)
		}
	})
	if !ok {
		// pool closed underneath us; redo the pass serially
		for i := range s.force {
			s.force[i] = geometry.Vec2{}
		}
		s.repelPairs()
	}
}

// attract applies a spring along every resolved edge
func (s *State) attract() {
	for _, e := range s.edges {
		src, dst := e[0], e[1]
		d := s.pos[dst].Sub(s.pos[src])
		dist := d.Len()
		if dist == 0 {
			continue
		}
		magnitude := s.config.SpringConstant * (dist - s.config.IdealLength)
		f := d.Scale(magnitude / dist)
		s.force[src] = s.force[src].Add(f)
		s.force[dst] = s.force[dst].Sub(f)
	}
}

func (s *State) center() {
	k := s.config.CenteringStrength
	for i, p := range s.pos {
		s.force[i] = s.force[i].Sub(p.Scale(k))
	}
}

func (s *State) integrate(stats *StepStats) {
	maxV := s.config.MaxVelocity
	for i := range s.pos {
		if s.pinned[i] {
			stats.Pinned++
			continue
		}

		v, speed := clampSpeed(s.vel[i].Add(s.force[i]).Scale(s.config.Damping), maxV)

		s.vel[i] = v
		s.pos[i] = s.pos[i].Add(v)

		stats.KineticEnergy += 0.5 * speed * speed
		if speed > stats.MaxSpeed {
			stats.MaxSpeed = speed
		}
	}
	stats.MaxDisplacement = stats.MaxSpeed
}

// clampSpeed scales v down to at most maxV and returns it with its length.
// Rounding may leave a scaled vector one ulp long, so the result is checked
// again. Non-finite velocities become zero.
func clampSpeed(v geometry.Vec2, maxV float64) (geometry.Vec2, float64) {
	if !v.IsFinite() {
		return geometry.Vec2{}, 0
	}
	speed := v.Len()
	target := maxV
	for speed > maxV {
		v = v.Scale(target / speed)
		speed = v.Len()
		target = math.Nextafter(target, 0)
	}
	return v, speed
}

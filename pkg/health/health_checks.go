package health

import (
	"fmt"
	"time"
)

// LivenessFactor is how many frame intervals may pass without a solver tick
// before the solver is reported unhealthy
const LivenessFactor = 5

// MinStallWindow is the shortest gap reported as a stall at high frame rates
const MinStallWindow = 250 * time.Millisecond

// SimpleCheck creates a simple health check that always returns healthy
func SimpleCheck(name string) Check {
	return Check{
		Name:        name,
		Status:      StatusHealthy,
		LastChecked: time.Now(),
	}
}

// SolverCheck reports whether the solver loop is still ticking. lastTick is
// the completion time of the latest tick; the zero time means it has not
// ticked yet.
func SolverCheck(lastTick func() time.Time, interval time.Duration) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "solver",
			Details: make(map[string]any),
		}

		last := lastTick()
		limit := max(time.Duration(LivenessFactor)*interval, MinStallWindow)
		check.Details["interval_ms"] = interval.Milliseconds()

		if last.IsZero() {
			check.Status = StatusUnhealthy
			check.Message = "Solver has not ticked"
			return check
		}

		age := time.Since(last)
		check.Details["last_tick_age_ms"] = age.Milliseconds()

		if age > limit {
			check.Status = StatusUnhealthy
			check.Message = fmt.Sprintf("No tick for %s", age.Round(time.Millisecond))
		} else {
			check.Status = StatusHealthy
			check.Message = "Solver ticking"
		}

		return check
	}
}

// GraphCheck reports whether a node/edge set has been loaded
func GraphCheck(getGraphState func() (loaded bool, nodes, edges int)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "graph",
			Details: make(map[string]any),
		}

		loaded, nodes, edges := getGraphState()

		check.Details["nodes"] = nodes
		check.Details["edges"] = edges

		if !loaded {
			check.Status = StatusUnhealthy
			check.Message = "No graph loaded"
		} else if nodes == 0 {
			check.Status = StatusDegraded
			check.Message = "Graph is empty"
		} else {
			check.Status = StatusHealthy
			check.Message = "Graph loaded"
		}

		return check
	}
}

// TransportCheck reports on the network frame publisher
func TransportCheck(getTransportState func() (enabled bool, addr string, err error)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "transport",
			Details: make(map[string]any),
		}

		enabled, addr, err := getTransportState()
		check.Details["enabled"] = enabled

		switch {
		case !enabled:
			check.Status = StatusHealthy
			check.Message = "Transport disabled"
		case err != nil:
			check.Status = StatusDegraded
			check.Message = err.Error()
			check.Details["addr"] = addr
		default:
			check.Status = StatusHealthy
			check.Message = "Publishing frames"
			check.Details["addr"] = addr
		}

		return check
	}
}

// MemoryCheck creates a health check for memory usage
func MemoryCheck(getUsage func() (alloc, sys uint64)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "memory",
			Details: make(map[string]any),
		}

		alloc, sys := getUsage()

		check.Details["alloc_bytes"] = alloc
		check.Details["sys_bytes"] = sys

		if sys > 0 && float64(alloc)/float64(sys)*100 > 90 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}

		return check
	}
}

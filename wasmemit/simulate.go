package wasmemit

import (
	"github.com/wippyai/regionlift/errors"
	"github.com/wippyai/regionlift/region"
)

// Simulate walks the leaf graph directly with the same visit and choice
// rules as an emitted module. It is the reference the wasm trace is checked
// against.
func Simulate(g *region.Graph, entry region.ID, choose Chooser, fuel int) ([]region.ID, error) {
	if g == nil || g.Region(entry) == nil {
		return nil, errors.InvalidArgument(errors.PhaseRuntime, "simulate needs a graph and a valid entry")
	}
	if fuel <= 0 {
		return nil, errors.InvalidArgument(errors.PhaseRuntime, "fuel must be positive")
	}

	var trace []region.ID
	cur := entry
	for cur != region.NoRegion {
		if len(trace) >= fuel {
			return trace, errors.FuelExhausted(fuel)
		}
		trace = append(trace, cur)

		succs := g.Region(cur).Successors()
		switch len(succs) {
		case 0:
			cur = region.NoRegion
		case 1:
			cur = succs[0]
		default:
			k := 0
			if choose != nil {
				k = choose(cur, len(succs))
			}
			cur = succs[clamp(k, len(succs))]
		}
	}
	return trace, nil
}

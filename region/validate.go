package region

import (
	"github.com/wippyai/regionlift/errors"
)

// Validate checks the structural preconditions Lift relies on:
//   - one block is flagged as function entrypoint
//   - no block has more than one invoke successor
//   - handler edges lead to exception-handler or cleanup entries
//   - an exception-handler-switch only feeds exception-handler entries
func Validate(g *Graph) error {
	if g == nil {
		return errors.InvalidArgument(errors.PhaseValidate, "nil graph")
	}
	if g.entry == NoRegion {
		return errors.New(errors.PhaseValidate, errors.KindMalformedGraph).
			Detail("no block is flagged as function entrypoint").
			Build()
	}

	for i := range g.nodes {
		r := &g.nodes[i]
		id := ID(i)

		if n := len(r.edges[invokeSuccs]); n > 1 {
			return errors.New(errors.PhaseValidate, errors.KindMalformedGraph).
				Region(g.Label(id)).
				Value(n).
				Detail("%d invoke targets, at most one allowed", n).
				Build()
		}

		for _, h := range r.edges[handlerSuccs] {
			hf := g.nodes[h].flags
			if !hf.Any(entryFlags) {
				return errors.MalformedGraph(g.Label(id),
					"handler edge to "+g.Label(h)+" which is neither a handler nor a cleanup entry")
			}
			if r.flags.Any(FlagExceptionHandlerSwitch) && !hf.Any(FlagExceptionHandlerEntrypoint) {
				return errors.MalformedGraph(g.Label(id),
					"exception-handler-switch feeds "+g.Label(h)+" which is not an exception handler entry")
			}
		}
	}
	return nil
}

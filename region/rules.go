package region

import (
	"github.com/wippyai/regionlift/region/internal/bitset"
)

// Match is the outcome of a successful rule: the regions to absorb into one
// composite, in child order, anchored at Absorbed[0].
type Match struct {
	Absorbed  []ID
	Anchor    ID
	Protected ID
	Pattern   Pattern
	Flags     Flags
}

// view is the read-only level a rule inspects. When member is set, only
// predecessors inside it count; this hides blocks unreachable from the entry.
type view struct {
	member *bitset.Set
	nodes  []Region
}

func (v *view) r(id ID) *Region { return &v.nodes[id] }

func (v *view) predCount(id ID) int {
	preds := v.nodes[id].edges[allPreds]
	if v.member == nil {
		return len(preds)
	}
	n := 0
	for _, p := range preds {
		if v.member.Has(int(p)) {
			n++
		}
	}
	return n
}

// invokeTarget returns the region's invoke target and false when the region
// has more than one, which no rule accepts.
func (v *view) invokeTarget(id ID) (ID, bool) {
	succs := v.nodes[id].edges[invokeSuccs]
	switch len(succs) {
	case 0:
		return NoRegion, true
	case 1:
		return succs[0], true
	}
	return NoRegion, false
}

// compatible reports whether two invoke targets may share one composite.
func compatible(a, b ID) bool {
	return a == NoRegion || b == NoRegion || a == b
}

// deriveFlags takes entry bits from the head and exit bits from every child.
// The switch bit never survives absorption.
func deriveFlags(v *view, children []ID) Flags {
	f := v.r(children[0]).flags & entryFlags
	for _, c := range children {
		f |= v.r(c).flags & exitFlags
	}
	return f
}

type rule func(v *view, id ID) (Match, bool)

// rules in priority order. The driver tries all of them on one node before
// moving to the next node.
var rules = [...]rule{
	matchSequence,
	matchSwitch,
	matchProtected,
	matchHandlerSwitch,
	matchHandlerBody,
	matchDoWhile,
	matchWhile,
}

func newMatch(v *view, p Pattern, absorbed []ID) Match {
	return Match{
		Pattern:   p,
		Anchor:    absorbed[0],
		Absorbed:  absorbed,
		Flags:     deriveFlags(v, absorbed),
		Protected: NoRegion,
	}
}

// matchSequence absorbs a region and its only normal successor when that
// successor has no other way in. A successor that branches back is a latch
// and is left to matchDoWhile.
func matchSequence(v *view, id ID) (Match, bool) {
	r := v.r(id)
	if len(r.edges[normalSuccs]) != 1 || len(r.edges[handlerSuccs]) != 0 {
		return Match{}, false
	}
	s := r.edges[normalSuccs][0]
	if s == id || contains(v.r(s).edges[normalSuccs], id) {
		return Match{}, false
	}
	ri, ok := v.invokeTarget(id)
	if !ok {
		return Match{}, false
	}
	si, ok := v.invokeTarget(s)
	if !ok || !compatible(ri, si) {
		return Match{}, false
	}
	if v.predCount(s) != 1 {
		return Match{}, false
	}
	return newMatch(v, PatternSequence, []ID{id, s}), true
}

// matchSwitch absorbs a fan-out whose arms are single regions that all
// continue to the same place.
func matchSwitch(v *view, id ID) (Match, bool) {
	r := v.r(id)
	arms := r.edges[normalSuccs]
	if len(arms) < 2 || len(r.edges[handlerSuccs]) != 0 {
		return Match{}, false
	}
	target, ok := v.invokeTarget(id)
	if !ok {
		return Match{}, false
	}

	next := NoRegion
	for i, a := range arms {
		if a == id {
			return Match{}, false
		}
		ar := v.r(a)
		if v.predCount(a) != 1 || len(ar.edges[handlerSuccs]) != 0 || len(ar.edges[normalSuccs]) > 1 {
			return Match{}, false
		}
		at, ok := v.invokeTarget(a)
		if !ok || !compatible(target, at) {
			return Match{}, false
		}
		if target == NoRegion {
			target = at
		}

		an := NoRegion
		if len(ar.edges[normalSuccs]) == 1 {
			an = ar.edges[normalSuccs][0]
		}
		if i == 0 {
			next = an
		} else if an != next {
			return Match{}, false
		}
	}

	absorbed := make([]ID, 0, len(arms)+1)
	absorbed = append(absorbed, id)
	absorbed = append(absorbed, arms...)
	return newMatch(v, PatternSwitch, absorbed), true
}

// matchProtected pairs a protected region with the handler it invokes when
// nothing else can reach that handler.
func matchProtected(v *view, id ID) (Match, bool) {
	r := v.r(id)
	if len(r.edges[invokeSuccs]) != 1 {
		return Match{}, false
	}
	t := r.edges[invokeSuccs][0]
	if t == id || v.predCount(t) != 1 {
		return Match{}, false
	}
	tr := v.r(t)
	switch {
	case tr.IsSelfContainedExceptionHandler():
	case tr.IsSelfContainedCleanup() && len(tr.edges[allSuccs]) == 0:
		// Cleanup that unwinds to the caller. Cleanups that continue to a
		// successor have no structured form yet.
	default:
		return Match{}, false
	}
	return Match{
		Pattern:   PatternProtected,
		Anchor:    id,
		Absorbed:  []ID{id, t},
		Flags:     r.flags &^ FlagExceptionHandlerSwitch,
		Protected: id,
	}, true
}

// matchHandlerSwitch collapses a dispatch node with its catch handlers once
// every handler is self-contained.
func matchHandlerSwitch(v *view, id ID) (Match, bool) {
	r := v.r(id)
	if !r.flags.Any(FlagExceptionHandlerSwitch) || v.predCount(id) != 1 {
		return Match{}, false
	}
	handlers := r.edges[handlerSuccs]
	if len(handlers) == 0 {
		return Match{}, false
	}

	target := NoRegion
	for _, h := range handlers {
		if h == id || !v.r(h).IsSelfContainedExceptionHandler() {
			return Match{}, false
		}
		ht, ok := v.invokeTarget(h)
		if !ok {
			return Match{}, false
		}
		if ht == NoRegion {
			continue
		}
		if target == NoRegion {
			target = ht
		} else if target != ht {
			return Match{}, false
		}
	}

	absorbed := make([]ID, 0, len(handlers)+1)
	absorbed = append(absorbed, id)
	absorbed = append(absorbed, handlers...)
	return Match{
		Pattern:   PatternHandlerSwitch,
		Anchor:    id,
		Absorbed:  absorbed,
		Flags:     FlagExceptionHandlerEntrypoint | FlagExceptionHandlerExitpoint,
		Protected: NoRegion,
	}, true
}

// matchHandlerBody grows a handler or cleanup entry over its normal
// successors up to the exit points, provided the body is single-entry.
func matchHandlerBody(v *view, id ID) (Match, bool) {
	r := v.r(id)
	entry := r.flags & entryFlags
	if entry == 0 || r.flags.Any(exitFlags) || r.HasAbnormalSuccessors() {
		return Match{}, false
	}
	exit := exitFor(entry)

	in := bitset.New(len(v.nodes))
	in.Add(int(id))
	body := []ID{id}
	queue := append([]ID(nil), r.edges[normalSuccs]...)
	var reached Flags
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if in.Has(int(n)) {
			continue
		}
		in.Add(int(n))
		body = append(body, n)

		nr := v.r(n)
		if nr.flags.Any(exit) {
			reached |= nr.flags & exit
			continue
		}
		if len(nr.edges[invokeSuccs]) != 0 || len(nr.edges[handlerSuccs]) != 0 {
			// Nested protected code inside a handler, or malformed input.
			return Match{}, false
		}
		queue = append(queue, nr.edges[normalSuccs]...)
	}
	if reached == 0 {
		return Match{}, false
	}

	for _, n := range body[1:] {
		for _, p := range v.r(n).edges[allPreds] {
			if v.member != nil && !v.member.Has(int(p)) {
				continue
			}
			if !in.Has(int(p)) {
				return Match{}, false
			}
		}
	}

	return Match{
		Pattern:   PatternHandlerBody,
		Anchor:    id,
		Absorbed:  body,
		Flags:     entry | reached,
		Protected: NoRegion,
	}, true
}

// matchDoWhile absorbs a body and its latch when the latch branches back to
// the body and is reached from nowhere else.
func matchDoWhile(v *view, id ID) (Match, bool) {
	r := v.r(id)
	if len(r.edges[normalSuccs]) != 1 || len(r.edges[handlerSuccs]) != 0 {
		return Match{}, false
	}
	s := r.edges[normalSuccs][0]
	if s == id {
		return Match{}, false
	}
	sr := v.r(s)
	if len(sr.edges[handlerSuccs]) != 0 || len(sr.edges[normalSuccs]) > 2 || !contains(sr.edges[normalSuccs], id) {
		return Match{}, false
	}
	if v.predCount(s) != 1 {
		return Match{}, false
	}
	ri, ok := v.invokeTarget(id)
	if !ok {
		return Match{}, false
	}
	si, ok := v.invokeTarget(s)
	if !ok || !compatible(ri, si) {
		return Match{}, false
	}
	return newMatch(v, PatternDoWhile, []ID{id, s}), true
}

// matchWhile absorbs a loop header and a body that only returns to it.
func matchWhile(v *view, id ID) (Match, bool) {
	r := v.r(id)
	if len(r.edges[handlerSuccs]) != 0 {
		return Match{}, false
	}
	ri, ok := v.invokeTarget(id)
	if !ok {
		return Match{}, false
	}
	for _, b := range r.edges[normalSuccs] {
		if b == id {
			continue
		}
		br := v.r(b)
		if len(br.edges[normalSuccs]) != 1 || br.edges[normalSuccs][0] != id {
			continue
		}
		if len(br.edges[handlerSuccs]) != 0 || v.predCount(b) != 1 {
			continue
		}
		bi, ok := v.invokeTarget(b)
		if !ok || !compatible(ri, bi) {
			continue
		}
		return newMatch(v, PatternWhile, []ID{id, b}), true
	}
	return Match{}, false
}

package region

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/wippyai/regionlift/errors"
	"github.com/wippyai/regionlift/region/internal/bitset"
)

// Config controls a single Lift call.
type Config struct {
	// Logger overrides the package logger.
	Logger *zap.Logger
	// OnLevel is called with every generation, starting with the seeded
	// leaf set at index 0.
	OnLevel func(Level)
	// MaxLevels caps the number of rewrites; 0 means no cap. Whatever is
	// left when the cap is hit becomes an unordered composite.
	MaxLevels int
	// SkipValidation disables the Validate pass.
	SkipValidation bool
}

// Level is one generation of the lifting process.
type Level struct {
	// Match produced this level; nil for level 0.
	Match *Match
	// Nodes in scan order. The first node always holds the entrypoint.
	Nodes []ID
	Index int
}

// Lift reduces the graph reachable from entry into a tree of regions.
//
// Each iteration scans the current level in order, applies the first rule
// that matches, folds the absorbed regions into one composite and rebuilds
// the level with aliases for everything else. It stops at the fixed point.
// A function that cannot be reduced to one region yields a PatternUnordered
// root; that is a valid result, not an error.
func Lift(g *Graph, entry ID, cfg Config) (*Tree, error) {
	if g == nil {
		return nil, errors.InvalidArgument(errors.PhaseLift, "nil graph")
	}
	if g.Region(entry) == nil {
		return nil, errors.New(errors.PhaseLift, errors.KindInvalidArgument).
			Value(entry).
			Detail("entrypoint %d out of range (%d blocks)", entry, g.Len()).
			Build()
	}
	if !g.nodes[entry].entry {
		return nil, errors.New(errors.PhaseLift, errors.KindInvalidArgument).
			Region(g.Label(entry)).
			Detail("not flagged as function entrypoint").
			Build()
	}
	if !cfg.SkipValidation {
		if err := Validate(g); err != nil {
			return nil, err
		}
	}

	log := cfg.Logger
	if log == nil {
		log = Logger()
	}

	t := &Tree{
		nodes:  make([]Region, len(g.nodes), 2*len(g.nodes)+1),
		leaves: len(g.nodes),
	}
	copy(t.nodes, g.nodes)

	if len(t.nodes[entry].edges[allSuccs]) == 0 {
		t.root = entry
		t.structured = true
		notify(cfg, Level{Nodes: []ID{entry}})
		return t, nil
	}

	cur := reachable(t.nodes, entry)
	member := bitset.New(len(t.nodes))
	for _, id := range cur {
		member.Add(int(id))
	}
	// Rewrites drop edges that land on their own region, so rules never see
	// a self edge above level 0. Hide the original ones the same way.
	v := &view{nodes: withoutSelfEdges(t.nodes), member: member}
	notify(cfg, Level{Nodes: cur})

	for {
		if cfg.MaxLevels > 0 && t.levels >= cfg.MaxLevels {
			log.Warn("level cap reached",
				zap.Int("max_levels", cfg.MaxLevels),
				zap.Int("regions", len(cur)))
			break
		}
		m, ok := findMatch(v, cur)
		if !ok {
			break
		}

		next, err := t.rewrite(cur, m)
		if err != nil {
			return nil, err
		}
		t.levels++
		if ce := log.Check(zap.DebugLevel, "absorbed regions"); ce != nil {
			ce.Write(
				zap.Int("level", t.levels),
				zap.Stringer("rule", m.Pattern),
				zap.String("anchor", t.Label(m.Anchor)),
				zap.Int("absorbed", len(m.Absorbed)),
				zap.Int("regions", len(next)))
		}

		cur = next
		v = &view{nodes: t.nodes}
		notify(cfg, Level{Index: t.levels, Nodes: cur, Match: &m})
	}

	if len(cur) == 1 {
		t.root = cur[0]
		t.structured = true
		log.Debug("lifted",
			zap.String("entry", g.Label(entry)),
			zap.Int("levels", t.levels),
			zap.Int("regions", t.Len()))
		return t, nil
	}

	t.root = t.addComposite(PatternUnordered, cur, FlagNone, NoRegion)
	log.Warn("unstructured control flow left",
		zap.String("entry", g.Label(entry)),
		zap.Int("levels", t.levels),
		zap.Int("leftover", len(cur)))
	return t, nil
}

// withoutSelfEdges returns nodes with every edge from a region to itself
// removed. The leaves keep theirs; only the copy handed to the rules changes.
func withoutSelfEdges(nodes []Region) []Region {
	var out []Region
	for i := range nodes {
		id := ID(i)
		for l := edgeList(0); l < edgeListCount; l++ {
			if !contains(nodes[i].edges[l], id) {
				continue
			}
			if out == nil {
				out = slices.Clone(nodes)
			}
			out[i].edges[l] = slices.DeleteFunc(slices.Clone(nodes[i].edges[l]), func(e ID) bool { return e == id })
		}
	}
	if out == nil {
		return nodes
	}
	return out
}

func notify(cfg Config, l Level) {
	if cfg.OnLevel != nil {
		cfg.OnLevel(l)
	}
}

// findMatch returns the first match in scan order. Matches that would bury
// the function entry behind another child are skipped so the entry always
// heads its composite.
func findMatch(v *view, cur []ID) (Match, bool) {
	for _, id := range cur {
		for _, match := range rules {
			m, ok := match(v, id)
			if ok && entryFirst(v, m) {
				return m, true
			}
		}
	}
	return Match{}, false
}

func entryFirst(v *view, m Match) bool {
	for _, id := range m.Absorbed[1:] {
		if v.r(id).entry {
			return false
		}
	}
	return true
}

// rewrite builds the next level: absorbed regions map to the new composite,
// every other region to a fresh alias, and all edges are translated through
// that mapping. Edges whose ends land on the same new region disappear.
func (t *Tree) rewrite(cur []ID, m Match) ([]ID, error) {
	base := len(t.nodes)
	remap := make([]ID, base)
	for i := range remap {
		remap[i] = NoRegion
	}

	comp := t.addComposite(m.Pattern, m.Absorbed, m.Flags, m.Protected)
	for _, id := range m.Absorbed {
		remap[id] = comp
	}
	aliases := 0
	for _, id := range cur {
		if remap[id] == NoRegion {
			remap[id] = t.addAlias(id)
			aliases++
		}
	}
	if len(m.Absorbed)+aliases != len(cur) {
		return nil, errors.Internal(errors.PhaseLift,
			fmt.Sprintf("level mapping covers %d+%d regions, level has %d", len(m.Absorbed), aliases, len(cur)))
	}

	for _, id := range cur {
		to := remap[id]
		src := &t.nodes[id]
		dst := &t.nodes[to]
		for l := edgeList(0); l < edgeListCount; l++ {
			for _, e := range src.edges[l] {
				mapped := remap[e]
				if mapped == NoRegion || mapped == to {
					continue
				}
				dst.edges[l] = appendUnique(dst.edges[l], mapped)
			}
		}
	}

	next := make([]ID, 0, aliases+1)
	placed := false
	for _, id := range cur {
		n := remap[id]
		if n == comp {
			if placed {
				continue
			}
			placed = true
		}
		next = append(next, n)
	}
	return next, nil
}

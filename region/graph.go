package region

import (
	"strconv"

	"github.com/wippyai/regionlift/errors"
	"github.com/wippyai/regionlift/region/internal/bitset"
)

// Graph is an immutable leaf graph: the basic blocks of one function and the
// edges between them.
type Graph struct {
	nodes  []Region
	labels map[string]ID
	entry  ID
}

// Len returns the number of basic blocks.
func (g *Graph) Len() int { return len(g.nodes) }

// Region returns the block with the given ID, or nil if out of range.
func (g *Graph) Region(id ID) *Region {
	if id < 0 || int(id) >= len(g.nodes) {
		return nil
	}
	return &g.nodes[id]
}

// Entrypoint returns the block flagged as function entry, or NoRegion.
func (g *Graph) Entrypoint() ID { return g.entry }

// Lookup finds a block by label.
func (g *Graph) Lookup(label string) (ID, bool) {
	id, ok := g.labels[label]
	return id, ok
}

// Label returns a printable name for a block: its label, or "#<id>".
func (g *Graph) Label(id ID) string {
	return labelOf(g.nodes, id)
}

// Reachable returns id followed by every block reachable from it through
// any successor edge, in breadth-first discovery order.
func (g *Graph) Reachable(id ID) []ID {
	if g.Region(id) == nil {
		return nil
	}
	return reachable(g.nodes, id)
}

func reachable(nodes []Region, start ID) []ID {
	seen := bitset.New(len(nodes))
	seen.Add(int(start))
	order := []ID{start}
	for i := 0; i < len(order); i++ {
		for _, s := range nodes[order[i]].edges[allSuccs] {
			if seen.Has(int(s)) {
				continue
			}
			seen.Add(int(s))
			order = append(order, s)
		}
	}
	return order
}

func labelOf(nodes []Region, id ID) string {
	if id >= 0 && int(id) < len(nodes) && nodes[id].label != "" {
		return nodes[id].label
	}
	return "#" + strconv.Itoa(int(id))
}

// Builder assembles a leaf Graph. It is the contract surface for the code
// that translates IR basic blocks into regions.
type Builder struct {
	nodes  []Region
	labels map[string]ID
	entry  ID
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		labels: make(map[string]ID),
		entry:  NoRegion,
	}
}

// AddBlock adds a basic block and returns its ID. Labels are optional; a
// non-empty label must be unique for Lookup to find it.
func (b *Builder) AddBlock(label string, flags Flags) ID {
	id := ID(len(b.nodes))
	b.nodes = append(b.nodes, Region{
		label:     label,
		variant:   BasicBlock,
		flags:     flags & allFlags,
		wrapped:   NoRegion,
		protected: NoRegion,
	})
	if label != "" {
		if _, exists := b.labels[label]; !exists {
			b.labels[label] = id
		}
	}
	return id
}

// SetData attaches an opaque payload to a block.
func (b *Builder) SetData(id ID, data any) error {
	if err := b.check(id); err != nil {
		return err
	}
	b.nodes[id].data = data
	return nil
}

// SetEntrypoint marks id as the function entry. A previously marked block
// loses the flag.
func (b *Builder) SetEntrypoint(id ID) error {
	if err := b.check(id); err != nil {
		return err
	}
	if b.entry != NoRegion {
		b.nodes[b.entry].entry = false
	}
	b.nodes[id].entry = true
	b.entry = id
	return nil
}

// AddEdge records a from->to edge of the given kind on both endpoints.
// Repeating an edge is a no-op; re-adding it with another kind is an error.
func (b *Builder) AddEdge(from, to ID, kind EdgeKind) error {
	if err := b.check(from); err != nil {
		return err
	}
	if err := b.check(to); err != nil {
		return err
	}

	var succ, pred edgeList
	switch kind {
	case EdgeNormal:
		succ, pred = normalSuccs, normalPreds
	case EdgeInvoke:
		succ, pred = invokeSuccs, invokePreds
	case EdgeHandler:
		succ, pred = handlerSuccs, handlerPreds
	default:
		return errors.InvalidArgument(errors.PhaseBuild, "unknown edge kind "+strconv.Itoa(int(kind)))
	}

	src := &b.nodes[from]
	if contains(src.edges[allSuccs], to) {
		if contains(src.edges[succ], to) {
			return nil
		}
		return errors.New(errors.PhaseBuild, errors.KindMalformedGraph).
			Region(labelOf(b.nodes, from)).
			Detail("edge to %s already exists with another kind than %s", labelOf(b.nodes, to), kind).
			Build()
	}

	src.edges[allSuccs] = append(src.edges[allSuccs], to)
	src.edges[succ] = append(src.edges[succ], to)
	dst := &b.nodes[to]
	dst.edges[allPreds] = append(dst.edges[allPreds], from)
	dst.edges[pred] = append(dst.edges[pred], from)
	return nil
}

// Build freezes the builder into a Graph. The builder must not be used
// afterwards.
func (b *Builder) Build() (*Graph, error) {
	if len(b.nodes) == 0 {
		return nil, errors.InvalidArgument(errors.PhaseBuild, "graph has no blocks")
	}
	g := &Graph{
		nodes:  b.nodes,
		labels: b.labels,
		entry:  b.entry,
	}
	b.nodes = nil
	b.labels = nil
	return g, nil
}

func (b *Builder) check(id ID) error {
	if id < 0 || int(id) >= len(b.nodes) {
		return errors.OutOfBounds(errors.PhaseBuild, nil, int(id), len(b.nodes))
	}
	return nil
}

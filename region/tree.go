package region

import "strconv"

// Tree is the arena produced by Lift. IDs below LeafCount are the leaf
// graph's basic blocks; every later ID belongs to one rewrite generation.
type Tree struct {
	nodes      []Region
	leaves     int
	levels     int
	root       ID
	structured bool
}

// Root returns the lifted root region.
func (t *Tree) Root() ID { return t.root }

// Region returns the region with the given ID, or nil if out of range.
func (t *Tree) Region(id ID) *Region {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil
	}
	return &t.nodes[id]
}

// Len returns the number of regions across all generations.
func (t *Tree) Len() int { return len(t.nodes) }

// LeafCount returns the number of basic blocks of the source graph,
// including blocks unreachable from the entry.
func (t *Tree) LeafCount() int { return t.leaves }

// Levels returns how many rewrite generations were built.
func (t *Tree) Levels() int { return t.levels }

// Structured reports whether lifting reduced the function to one region.
// When false the root is a PatternUnordered composite and the emitter must
// fall back to explicit branching between its children.
func (t *Tree) Structured() bool { return t.structured }

// Label returns a printable name: the block label for leaves, otherwise the
// variant or pattern followed by the arena index.
func (t *Tree) Label(id ID) string {
	r := t.Region(id)
	if r == nil {
		return "#" + strconv.Itoa(int(id))
	}
	switch r.variant {
	case BasicBlock:
		return labelOf(t.nodes, id)
	case Composite:
		return r.pattern.String() + "#" + strconv.Itoa(int(id))
	default:
		return "alias#" + strconv.Itoa(int(id))
	}
}

// Resolve follows alias chains down to the composite or basic block they carry.
func (t *Tree) Resolve(id ID) ID {
	for {
		r := t.Region(id)
		if r == nil || r.variant != Alias {
			return id
		}
		id = r.wrapped
	}
}

// Leaves returns the basic blocks contained in id, in child order.
func (t *Tree) Leaves(id ID) []ID {
	var out []ID
	stack := []ID{id}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		r := t.Region(n)
		if r == nil {
			continue
		}
		switch r.variant {
		case BasicBlock:
			out = append(out, n)
		case Alias:
			stack = append(stack, r.wrapped)
		case Composite:
			for i := len(r.children) - 1; i >= 0; i-- {
				stack = append(stack, r.children[i])
			}
		}
	}
	return out
}

// Walk visits id and its descendants in pre-order. Aliases are visited as
// nodes with their wrapped region as only child. Returning false from fn
// skips the node's descendants.
func (t *Tree) Walk(id ID, fn func(id ID, depth int) bool) {
	type frame struct {
		id    ID
		depth int
	}
	stack := []frame{{id, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		r := t.Region(f.id)
		if r == nil || !fn(f.id, f.depth) {
			continue
		}
		switch r.variant {
		case Alias:
			stack = append(stack, frame{r.wrapped, f.depth + 1})
		case Composite:
			for i := len(r.children) - 1; i >= 0; i-- {
				stack = append(stack, frame{r.children[i], f.depth + 1})
			}
		}
	}
}

func (t *Tree) addComposite(p Pattern, children []ID, flags Flags, protected ID) ID {
	entry := false
	for _, c := range children {
		if t.nodes[c].entry {
			entry = true
			break
		}
	}
	id := ID(len(t.nodes))
	t.nodes = append(t.nodes, Region{
		variant:   Composite,
		pattern:   p,
		children:  append([]ID(nil), children...),
		flags:     flags,
		entry:     entry,
		wrapped:   NoRegion,
		protected: protected,
	})
	return id
}

func (t *Tree) addAlias(of ID) ID {
	src := &t.nodes[of]
	r := Region{
		variant:   Alias,
		flags:     src.flags,
		entry:     src.entry,
		wrapped:   of,
		protected: NoRegion,
	}
	id := ID(len(t.nodes))
	t.nodes = append(t.nodes, r)
	return id
}

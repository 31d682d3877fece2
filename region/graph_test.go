package region

import (
	stderrors "errors"
	"strconv"
	"testing"

	"github.com/wippyai/regionlift/errors"
)

type edge struct {
	from, to ID
	kind     EdgeKind
}

func norm(from, to ID) edge { return edge{from, to, EdgeNormal} }
func inv(from, to ID) edge  { return edge{from, to, EdgeInvoke} }
func hnd(from, to ID) edge  { return edge{from, to, EdgeHandler} }

func plain(n int) []Flags { return make([]Flags, n) }

// buildGraph creates blocks b0..bn-1 with the given flags, marks b0 as the
// entry and adds edges in order.
func buildGraph(t *testing.T, flags []Flags, edges ...edge) *Graph {
	t.Helper()
	b := NewBuilder()
	for i, f := range flags {
		b.AddBlock("b"+strconv.Itoa(i), f)
	}
	if err := b.SetEntrypoint(0); err != nil {
		t.Fatalf("SetEntrypoint: %v", err)
	}
	for _, e := range edges {
		if err := b.AddEdge(e.from, e.to, e.kind); err != nil {
			t.Fatalf("AddEdge(%d, %d, %s): %v", e.from, e.to, e.kind, err)
		}
	}
	g, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func errorKind(t *testing.T, err error) errors.Kind {
	t.Helper()
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("expected *errors.Error, got %T (%v)", err, err)
	}
	return e.Kind
}

func TestBuilder_EdgesAreSymmetric(t *testing.T) {
	g := buildGraph(t, plain(3), norm(0, 1), inv(0, 2))

	r0 := g.Region(0)
	if got := r0.Successors(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("expected successors [1 2], got %v", got)
	}
	if got := r0.NormalSuccessors(); len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected normal successors [1], got %v", got)
	}
	if got := r0.InvokeTarget(); got != 2 {
		t.Fatalf("expected invoke target 2, got %d", got)
	}
	if got := g.Region(2).InvokePredecessors(); len(got) != 1 || got[0] != 0 {
		t.Fatalf("expected invoke predecessors [0], got %v", got)
	}
	if got := g.Region(1).Predecessors(); len(got) != 1 || got[0] != 0 {
		t.Fatalf("expected predecessors [0], got %v", got)
	}
	if !r0.HasAbnormalSuccessors() {
		t.Fatal("block with invoke edge should report abnormal successors")
	}
	if g.Region(1).HasAbnormalSuccessors() {
		t.Fatal("terminal block should not report abnormal successors")
	}
	if !r0.IsNormal() {
		t.Fatal("unflagged block should be normal")
	}
}

func TestBuilder_DuplicateEdge(t *testing.T) {
	b := NewBuilder()
	a := b.AddBlock("a", FlagNone)
	c := b.AddBlock("c", FlagNone)

	if err := b.AddEdge(a, c, EdgeNormal); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if err := b.AddEdge(a, c, EdgeNormal); err != nil {
		t.Fatalf("repeated edge should be a no-op, got %v", err)
	}
	err := b.AddEdge(a, c, EdgeInvoke)
	if err == nil {
		t.Fatal("expected error for edge with conflicting kind")
	}
	if k := errorKind(t, err); k != errors.KindMalformedGraph {
		t.Fatalf("expected %s, got %s", errors.KindMalformedGraph, k)
	}

	g, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if n := len(g.Region(a).Successors()); n != 1 {
		t.Fatalf("expected 1 successor, got %d", n)
	}
	if n := len(g.Region(c).Predecessors()); n != 1 {
		t.Fatalf("expected 1 predecessor, got %d", n)
	}
}

func TestBuilder_Errors(t *testing.T) {
	b := NewBuilder()
	if _, err := b.Build(); err == nil {
		t.Fatal("expected error building empty graph")
	}

	a := b.AddBlock("a", FlagNone)
	if k := errorKind(t, b.AddEdge(a, 7, EdgeNormal)); k != errors.KindOutOfBounds {
		t.Fatalf("expected %s, got %s", errors.KindOutOfBounds, k)
	}
	if k := errorKind(t, b.AddEdge(a, a, EdgeKind(9))); k != errors.KindInvalidArgument {
		t.Fatalf("expected %s, got %s", errors.KindInvalidArgument, k)
	}
	if k := errorKind(t, b.SetEntrypoint(-1)); k != errors.KindOutOfBounds {
		t.Fatalf("expected %s, got %s", errors.KindOutOfBounds, k)
	}
	if k := errorKind(t, b.SetData(3, "x")); k != errors.KindOutOfBounds {
		t.Fatalf("expected %s, got %s", errors.KindOutOfBounds, k)
	}
}

func TestBuilder_SetEntrypointMoves(t *testing.T) {
	b := NewBuilder()
	a := b.AddBlock("a", FlagNone)
	c := b.AddBlock("c", FlagNone)
	_ = b.SetEntrypoint(a)
	_ = b.SetEntrypoint(c)
	g, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if g.Entrypoint() != c {
		t.Fatalf("expected entrypoint %d, got %d", c, g.Entrypoint())
	}
	if g.Region(a).IsFunctionEntrypoint() {
		t.Fatal("previous entrypoint should lose the flag")
	}
	if !g.Region(c).IsFunctionEntrypoint() {
		t.Fatal("new entrypoint should carry the flag")
	}
}

func TestBuilder_FlagsAreMasked(t *testing.T) {
	b := NewBuilder()
	id := b.AddBlock("x", Flags(0xff))
	g, _ := b.Build()
	if got := g.Region(id).Flags(); got != allFlags {
		t.Fatalf("expected %s, got %s", allFlags, got)
	}
}

func TestGraph_LookupAndLabel(t *testing.T) {
	b := NewBuilder()
	a := b.AddBlock("entry", FlagNone)
	anon := b.AddBlock("", FlagNone)
	_ = b.SetData(a, 42)
	g, _ := b.Build()

	id, ok := g.Lookup("entry")
	if !ok || id != a {
		t.Fatalf("expected lookup to find %d, got %d (%v)", a, id, ok)
	}
	if _, ok := g.Lookup("missing"); ok {
		t.Fatal("lookup of unknown label should fail")
	}
	if got := g.Label(anon); got != "#1" {
		t.Fatalf("expected #1, got %q", got)
	}
	if got := g.Region(a).Data(); got != 42 {
		t.Fatalf("expected data 42, got %v", got)
	}
	if g.Region(5) != nil || g.Region(-1) != nil {
		t.Fatal("out of range lookups should return nil")
	}
}

func TestGraph_Reachable(t *testing.T) {
	// 0 -> {1,2}, 1 -> 5, 2 -> {3,4}, 3 -> 1, 4 -> 5; 6 is unreachable.
	g := buildGraph(t, plain(7),
		norm(0, 1), norm(0, 2), norm(1, 5), norm(2, 3), norm(2, 4),
		norm(3, 1), norm(4, 5), norm(6, 0))

	got := g.Reachable(0)
	want := []ID{0, 1, 2, 5, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if g.Reachable(99) != nil {
		t.Fatal("expected nil for out of range start")
	}
}

func TestFlags(t *testing.T) {
	f := FlagExceptionHandlerEntrypoint | FlagCleanupExitpoint
	if got := f.String(); got != "eh-entry|cleanup-exit" {
		t.Fatalf("expected eh-entry|cleanup-exit, got %q", got)
	}
	if FlagNone.String() != "none" {
		t.Fatalf("expected none, got %q", FlagNone.String())
	}
	if !f.Any(FlagCleanupExitpoint | FlagExceptionHandlerSwitch) {
		t.Fatal("Any should match a single shared bit")
	}
	if f.Has(FlagCleanupExitpoint | FlagExceptionHandlerSwitch) {
		t.Fatal("Has should require every bit")
	}
	for _, name := range f.Names() {
		bit, ok := ParseFlag(name)
		if !ok || !f.Has(bit) {
			t.Fatalf("ParseFlag(%q) = %s, %v", name, bit, ok)
		}
	}
	if _, ok := ParseFlag("entry"); ok {
		t.Fatal("unknown flag name should not parse")
	}
	if got := exitFor(FlagCleanupEntrypoint); got != FlagCleanupExitpoint {
		t.Fatalf("expected cleanup-exit, got %s", got)
	}
}

package region

import (
	"slices"
	"testing"
)

func TestTree_WalkAndResolve(t *testing.T) {
	g := buildGraph(t, plain(4), norm(0, 1), norm(1, 2), norm(1, 3), norm(2, 1))
	tree, err := Lift(g, 0, Config{})
	if err != nil {
		t.Fatalf("Lift: %v", err)
	}

	var order []ID
	var aliases int
	maxDepth := 0
	tree.Walk(tree.Root(), func(id ID, depth int) bool {
		r := tree.Region(id)
		if depth == 0 && id != tree.Root() {
			t.Fatalf("expected root first, got %d", id)
		}
		if depth > maxDepth {
			maxDepth = depth
		}
		switch r.Variant() {
		case BasicBlock:
			order = append(order, id)
		case Alias:
			aliases++
			if got := tree.Resolve(id); tree.Region(got).Variant() == Alias {
				t.Fatalf("Resolve(%d) returned alias %d", id, got)
			}
		}
		return true
	})

	if !slices.Equal(order, tree.Leaves(tree.Root())) {
		t.Fatalf("walk leaves %v differ from Leaves %v", order, tree.Leaves(tree.Root()))
	}
	if aliases == 0 {
		t.Fatal("expected aliases in a multi-level tree")
	}
	if maxDepth < 3 {
		t.Fatalf("expected depth of at least 3, got %d", maxDepth)
	}
}

func TestTree_WalkSkipsDescendants(t *testing.T) {
	g := buildGraph(t, plain(3), norm(0, 1), norm(1, 2))
	tree, err := Lift(g, 0, Config{})
	if err != nil {
		t.Fatalf("Lift: %v", err)
	}

	visited := 0
	tree.Walk(tree.Root(), func(id ID, depth int) bool {
		visited++
		return false
	})
	if visited != 1 {
		t.Fatalf("expected only the root to be visited, got %d", visited)
	}
}

func TestTree_Labels(t *testing.T) {
	g := buildGraph(t, plain(2), norm(0, 1))
	tree, err := Lift(g, 0, Config{})
	if err != nil {
		t.Fatalf("Lift: %v", err)
	}

	if got := tree.Label(0); got != "b0" {
		t.Fatalf("expected b0, got %q", got)
	}
	if got := tree.Label(tree.Root()); got != "sequence#2" {
		t.Fatalf("expected sequence#2, got %q", got)
	}
	if got := tree.Label(99); got != "#99" {
		t.Fatalf("expected #99, got %q", got)
	}
	if tree.Resolve(99) != 99 {
		t.Fatal("Resolve of an unknown region should return it unchanged")
	}
	if tree.Leaves(99) != nil {
		t.Fatal("Leaves of an unknown region should be empty")
	}
}

func TestTree_SharedLeafArena(t *testing.T) {
	g := buildGraph(t, plain(2), norm(0, 1))
	tree, err := Lift(g, 0, Config{})
	if err != nil {
		t.Fatalf("Lift: %v", err)
	}

	if len(g.Region(1).Successors()) != 0 || len(g.Region(0).Successors()) != 1 {
		t.Fatal("lifting must not modify the source graph")
	}
	if tree.Region(0).Label() != "b0" {
		t.Fatalf("expected leaf label b0, got %q", tree.Region(0).Label())
	}
	if g.Len() != 2 {
		t.Fatalf("graph grew to %d blocks", g.Len())
	}
}

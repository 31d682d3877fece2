// Package region lifts a function's basic-block control-flow graph into a
// tree of single-entry single-exit regions.
//
// # Overview
//
// The caller describes a function with a Builder: one leaf per basic block,
// role flags for exception-handling blocks, and normal, invoke and handler
// edges. Lift then repeatedly looks for the first structural pattern in the
// current level, folds the matching regions into a composite and rebuilds
// the level around it. Regions that did not take part in a rewrite are
// carried forward as aliases, so every level is a complete, immutable
// snapshot of the function.
//
// Patterns are tried per region in this order:
//
//	sequence        A -> B, B has no other predecessor
//	switch          A -> {B1..Bn}, every arm single-entry, arms rejoin
//	protected       A -invoke-> H, H is a self-contained handler or cleanup
//	handler-switch  dispatch block absorbs its self-contained catch handlers
//	handler-body    handler/cleanup entry grows over its body to the exit
//	do-while        A -> B -> A
//	while           A -> B -> A, B single-entry
//
// Lifting stops at the fixed point. A function that reduced to a single
// region is structured; otherwise the leftover regions become the children
// of an unordered root composite and a later stage has to dispatch between
// them explicitly.
//
// # Arena
//
// Every region lives in one arena addressed by ID. Leaves use the IDs the
// Builder assigned; each rewrite appends one composite and the aliases of
// the next level. Edge lists are per region and per generation; nothing
// from an older generation is modified once the next one exists.
//
// # Usage
//
//	b := region.NewBuilder()
//	entry := b.AddBlock("entry", region.FlagNone)
//	exit := b.AddBlock("exit", region.FlagNone)
//	_ = b.SetEntrypoint(entry)
//	_ = b.AddEdge(entry, exit, region.EdgeNormal)
//	g, err := b.Build()
//	...
//	tree, err := region.Lift(g, entry, region.Config{})
//	for _, leaf := range tree.Leaves(tree.Root()) {
//	    ...
//	}
package region

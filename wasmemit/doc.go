// Package wasmemit lowers lifted region trees to WebAssembly and runs them.
//
// The emitted module is a behavioral witness for a lift: executing it under
// wazero must visit exactly the blocks a direct walk of the leaf graph
// visits, for any sequence of branch choices. Emit does not need the tree to
// be fully structured; an unordered root just becomes one more dispatch loop.
//
//	bin, err := wasmemit.Emit(tree)
//	trace, err := wasmemit.Run(ctx, bin, chooser, 10_000)
//	want, err := wasmemit.Simulate(graph, entry, chooser, 10_000)
package wasmemit

// Package regionlift structures the control flow graph of a function into a
// tree of nested regions.
//
// Lifting starts from one region per basic block and repeatedly folds groups
// of regions that form a known shape (sequence, switch, loop, exception
// handling) into a single composite region, until nothing else matches. The
// result is a tree whose leaves are the original blocks.
//
// # Architecture Overview
//
//	regionlift/
//	├── region/          Region model, graph builder, validation, rules, Lift
//	├── cfgfile/         Text (.cfg) and YAML graph input
//	├── treeenc/         Tree export as text, YAML or CBOR
//	├── wasmemit/        Lowering to WebAssembly, execution under wazero
//	├── batch/           Concurrent lifting of many functions
//	├── config/          Settings from file and REGIONLIFT_* environment
//	├── errors/          Structured error types
//	└── cmd/regionlift/  Command line tool
//
// # Quick Start
//
//	fns, err := cfgfile.Load("func.cfg")
//	if err != nil {
//	    return err
//	}
//	tree, err := region.Lift(fns[0].Graph, fns[0].Entrypoint(), region.Config{})
//	if err != nil {
//	    return err
//	}
//	treeenc.WriteText(os.Stdout, treeenc.Build(tree, tree.Root(), treeenc.Options{}))
//
// # Checking a Lift
//
// wasmemit.Emit turns a tree into a module that calls env.visit for every
// executed block. Running it and comparing the trace with wasmemit.Simulate
// shows whether the structured form behaves like the input graph:
//
//	bin, _ := wasmemit.Emit(tree)
//	got, _ := wasmemit.Run(ctx, bin, choose, 10_000)
//	want, _ := wasmemit.Simulate(graph, entry, choose, 10_000)
//
// # Logging
//
// Packages log through zap. region uses a no-op logger until SetLogger is
// called; region.Config.Logger overrides it for one Lift.
package regionlift

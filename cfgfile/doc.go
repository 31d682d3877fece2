// Package cfgfile reads function control-flow graphs from disk.
//
// Two formats are supported. The text format is a small S-expression
// language in the style of WAT:
//
//	;; try { f() } catch { g() }
//	(func $try
//	  (block $entry entry (br $call))
//	  (block $call (invoke $dispatch) (br $join))
//	  (block $dispatch eh-switch (handler $catch))
//	  (block $catch eh-entry eh-exit (br $join))
//	  (block $join))
//
// Block flags are entry, eh-entry, eh-exit, eh-switch, cleanup-entry and
// cleanup-exit. Edges are written as (br ...), (invoke ...) and
// (handler ...) clauses naming targets by $name or index. A block without
// an explicit entry flag anywhere in the function makes the first block the
// entry.
//
// The YAML format carries the same information; see ParseYAML. Load picks
// the format from the file extension.
package cfgfile

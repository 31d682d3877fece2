// Package treeenc exports lifted region trees as an indented text outline,
// YAML or canonical CBOR.
//
// Aliases are collapsed by default so the exported tree only shows the
// structure the rules recognized; Options.Aliases keeps them for debugging
// the level-by-level rewrite.
package treeenc

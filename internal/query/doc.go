// Package query defines the query AST shared by the parser, the executor and
// the inference engine.
//
// A Query is a conjunctive basic graph pattern with optional FILTER
// expressions and OPTIONAL groups. Patterns are built from Nodes: concrete
// terms, variables, or prefixed names whose prefix could not be resolved at
// parse time. Unresolved names are kept in the tree so the executor can
// report them with the offending prefix.
//
// This package is pure data. It performs no I/O and has no dependency on the
// store; matching and evaluation live in internal/exec.
package query

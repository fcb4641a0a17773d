package query

import (
	"github.com/roach88/semgraph/internal/rdf"
)

// Node is a sealed interface for a position in a triple pattern.
//
// Node types:
//   - TermNode: a concrete RDF term
//   - Variable: a named placeholder bound during evaluation
//   - PrefixedName: a prefix:local name whose prefix was not declared
type Node interface {
	node() // Marker method - seals interface to this package
	String() string
}

// TermNode wraps a concrete term.
type TermNode struct {
	Term rdf.Term
}

func (TermNode) node() {}

func (n TermNode) String() string {
	if n.Term == nil {
		return "<nil>"
	}
	return n.Term.String()
}

// Variable is a query variable, stored without its leading '?'.
type Variable string

func (Variable) node() {}

func (v Variable) String() string {
	return "?" + string(v)
}

// PrefixedName is a prefix:local name left unresolved by the parser.
// Evaluating a query that contains one is an error.
type PrefixedName struct {
	Prefix string
	Local  string
}

func (PrefixedName) node() {}

func (p PrefixedName) String() string {
	return p.Prefix + ":" + p.Local
}

// T wraps a term as a pattern node.
func T(t rdf.Term) Node {
	return TermNode{Term: t}
}

// V returns a variable node.
func V(name string) Node {
	return Variable(name)
}

// IsVariable reports whether n is a variable.
func IsVariable(n Node) bool {
	_, ok := n.(Variable)
	return ok
}

// TermOf returns the concrete term of n, if any.
func TermOf(n Node) (rdf.Term, bool) {
	tn, ok := n.(TermNode)
	if !ok || tn.Term == nil {
		return nil, false
	}
	return tn.Term, true
}

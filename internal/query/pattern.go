package query

import (
	"strings"

	"github.com/roach88/semgraph/internal/rdf"
)

// TriplePattern is a subject-predicate-object pattern with an optional graph.
//
// Graph semantics:
//   - nil: match quads in any graph
//   - TermNode with an IRI: match only that graph ("" is the default graph)
//   - Variable: match any graph and bind the variable to its IRI
//
// A Variable bound to the default graph has the value rdf.IRI("").
type TriplePattern struct {
	Subject   Node
	Predicate Node
	Object    Node
	Graph     Node
}

// Pattern builds a triple pattern over any graph.
func Pattern(s, p, o Node) TriplePattern {
	return TriplePattern{Subject: s, Predicate: p, Object: o}
}

// Positions returns the subject, predicate and object nodes in order.
func (tp TriplePattern) Positions() [3]Node {
	return [3]Node{tp.Subject, tp.Predicate, tp.Object}
}

// BoundCount returns how many of the subject, predicate and object positions
// are not variables.
func (tp TriplePattern) BoundCount() int {
	n := 0
	for _, pos := range tp.Positions() {
		if pos != nil && !IsVariable(pos) {
			n++
		}
	}
	return n
}

// Variables returns the distinct variable names of the pattern in position
// order (subject, predicate, object, graph).
func (tp TriplePattern) Variables() []string {
	var vars []string
	seen := make(map[string]bool, 4)
	for _, pos := range [...]Node{tp.Subject, tp.Predicate, tp.Object, tp.Graph} {
		if v, ok := pos.(Variable); ok && !seen[string(v)] {
			seen[string(v)] = true
			vars = append(vars, string(v))
		}
	}
	return vars
}

// Substitute replaces every variable bound in b with its term.
// Unbound variables and non-variable nodes are kept as-is.
func (tp TriplePattern) Substitute(b Binding) TriplePattern {
	return TriplePattern{
		Subject:   substituteNode(tp.Subject, b),
		Predicate: substituteNode(tp.Predicate, b),
		Object:    substituteNode(tp.Object, b),
		Graph:     substituteNode(tp.Graph, b),
	}
}

func substituteNode(n Node, b Binding) Node {
	v, ok := n.(Variable)
	if !ok {
		return n
	}
	if t, bound := b[string(v)]; bound {
		return TermNode{Term: t}
	}
	return n
}

// Unresolved returns the prefixed names left unresolved in the pattern.
func (tp TriplePattern) Unresolved() []PrefixedName {
	var out []PrefixedName
	for _, pos := range [...]Node{tp.Subject, tp.Predicate, tp.Object, tp.Graph} {
		if pn, ok := pos.(PrefixedName); ok {
			out = append(out, pn)
		}
	}
	return out
}

// Ground converts a fully bound pattern into a quad.
// Returns false if any position is still a variable or unresolved name.
func (tp TriplePattern) Ground() (rdf.Quad, bool) {
	s, ok := TermOf(tp.Subject)
	if !ok {
		return rdf.Quad{}, false
	}
	p, ok := TermOf(tp.Predicate)
	if !ok {
		return rdf.Quad{}, false
	}
	o, ok := TermOf(tp.Object)
	if !ok {
		return rdf.Quad{}, false
	}
	q := rdf.Quad{Subject: s, Predicate: p, Object: o}
	if tp.Graph != nil {
		g, ok := TermOf(tp.Graph)
		if !ok {
			return rdf.Quad{}, false
		}
		iri, ok := g.(rdf.IRI)
		if !ok {
			return rdf.Quad{}, false
		}
		q.Graph = iri
	}
	return q, true
}

func (tp TriplePattern) String() string {
	var b strings.Builder
	b.WriteString(nodeString(tp.Subject))
	b.WriteByte(' ')
	if t, ok := TermOf(tp.Predicate); ok && t == rdf.Term(rdf.RDFType) {
		b.WriteString("a")
	} else {
		b.WriteString(nodeString(tp.Predicate))
	}
	b.WriteByte(' ')
	b.WriteString(nodeString(tp.Object))
	if tp.Graph != nil {
		b.WriteString(" @ ")
		b.WriteString(nodeString(tp.Graph))
	}
	return b.String()
}

func nodeString(n Node) string {
	if n == nil {
		return "<nil>"
	}
	return n.String()
}

package rdf

import (
	"fmt"
	"strings"
)

// Provenance records how a quad entered the store.
// The zero value is Asserted.
type Provenance uint8

const (
	// Asserted quads were inserted by a loader or caller.
	Asserted Provenance = iota
	// Derived quads were inserted by the inference engine.
	Derived
)

// String returns "asserted" or "derived".
func (p Provenance) String() string {
	switch p {
	case Asserted:
		return "asserted"
	case Derived:
		return "derived"
	default:
		return fmt.Sprintf("provenance(%d)", uint8(p))
	}
}

// ParseProvenance is the inverse of Provenance.String.
func ParseProvenance(s string) (Provenance, error) {
	switch strings.ToLower(s) {
	case "asserted", "":
		return Asserted, nil
	case "derived":
		return Derived, nil
	default:
		return 0, fmt.Errorf("unknown provenance %q", s)
	}
}

// Quad is a subject-predicate-object statement in a named graph.
//
// Graph "" is the default graph. Provenance is metadata and is not part of
// quad identity: two quads differing only in Provenance are the same fact.
type Quad struct {
	Subject    Term
	Predicate  Term
	Object     Term
	Graph      IRI
	Provenance Provenance
}

// NewQuad creates an asserted quad in the default graph.
func NewQuad(s, p, o Term) Quad {
	return Quad{Subject: s, Predicate: p, Object: o}
}

// InGraph returns a copy of q placed in graph g.
func (q Quad) InGraph(g IRI) Quad {
	q.Graph = g
	return q
}

// WithProvenance returns a copy of q with provenance p.
func (q Quad) WithProvenance(p Provenance) Quad {
	q.Provenance = p
	return q
}

// Triple returns q without graph and provenance, for identity comparisons
// that ignore placement.
func (q Quad) Triple() Quad {
	return Quad{Subject: q.Subject, Predicate: q.Predicate, Object: q.Object}
}

// SameFact reports whether q and other denote the same fact,
// ignoring provenance.
func (q Quad) SameFact(other Quad) bool {
	return q.Subject == other.Subject &&
		q.Predicate == other.Predicate &&
		q.Object == other.Object &&
		q.Graph == other.Graph
}

// Validate checks the positional constraints on a quad.
//
// Subject must be an IRI or blank node, Predicate must be an IRI and Object
// may be any term. IRIs must be non-empty.
func (q Quad) Validate() error {
	switch s := q.Subject.(type) {
	case nil:
		return &QuadError{Position: "subject", Message: "missing term"}
	case IRI:
		if err := validateIRI(s); err != nil {
			return &QuadError{Position: "subject", Message: err.Error()}
		}
	case BlankNode:
		if s == "" {
			return &QuadError{Position: "subject", Message: "blank node label is empty"}
		}
	default:
		return &QuadError{Position: "subject", Message: fmt.Sprintf("must be IRI or blank node, got %s", KindOf(q.Subject))}
	}

	p, ok := q.Predicate.(IRI)
	if !ok {
		if q.Predicate == nil {
			return &QuadError{Position: "predicate", Message: "missing term"}
		}
		return &QuadError{Position: "predicate", Message: fmt.Sprintf("must be IRI, got %s", KindOf(q.Predicate))}
	}
	if err := validateIRI(p); err != nil {
		return &QuadError{Position: "predicate", Message: err.Error()}
	}

	switch o := q.Object.(type) {
	case nil:
		return &QuadError{Position: "object", Message: "missing term"}
	case IRI:
		if err := validateIRI(o); err != nil {
			return &QuadError{Position: "object", Message: err.Error()}
		}
	case BlankNode:
		if o == "" {
			return &QuadError{Position: "object", Message: "blank node label is empty"}
		}
	}

	if q.Graph != "" && strings.ContainsRune(string(q.Graph), 0) {
		return &QuadError{Position: "graph", Message: "IRI contains NUL byte"}
	}
	return nil
}

func validateIRI(i IRI) error {
	if i == "" {
		return fmt.Errorf("IRI is empty")
	}
	if strings.ContainsRune(string(i), 0) {
		return fmt.Errorf("IRI contains NUL byte")
	}
	return nil
}

// String renders the quad in N-Quads style without the trailing dot.
func (q Quad) String() string {
	var b strings.Builder
	b.WriteString(termString(q.Subject))
	b.WriteByte(' ')
	b.WriteString(termString(q.Predicate))
	b.WriteByte(' ')
	b.WriteString(termString(q.Object))
	if q.Graph != "" {
		b.WriteByte(' ')
		b.WriteString(q.Graph.String())
	}
	return b.String()
}

func termString(t Term) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// KindOf returns "iri", "blank", "literal" or "nil".
func KindOf(t Term) string {
	switch t.(type) {
	case IRI:
		return "iri"
	case BlankNode:
		return "blank"
	case Literal:
		return "literal"
	case nil:
		return "nil"
	default:
		return "unknown"
	}
}

// QuadError reports which position of a quad violates its constraints.
type QuadError struct {
	Position string
	Message  string
}

func (e *QuadError) Error() string {
	return fmt.Sprintf("invalid quad %s: %s", e.Position, e.Message)
}

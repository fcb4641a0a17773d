package snapshot

import (
	"fmt"

	"github.com/roach88/semgraph/internal/rdf"
)

// Term kinds as stored in the *_kind columns.
const (
	kindIRI     = "iri"
	kindBlank   = "blank"
	kindLiteral = "literal"
)

// row is the column form of a quad.
type row struct {
	id         string
	seq        int64
	sKind      string
	sValue     string
	pValue     string
	oKind      string
	oValue     string
	oDatatype  string
	oLang      string
	graph      string
	provenance string
}

func encodeQuad(q rdf.Quad, seq int64) (row, error) {
	r := row{
		id:         rdf.QuadID(q),
		seq:        seq,
		graph:      string(q.Graph),
		provenance: q.Provenance.String(),
	}

	var err error
	if r.sKind, r.sValue, err = encodeResource(q.Subject); err != nil {
		return row{}, fmt.Errorf("subject: %w", err)
	}

	p, ok := q.Predicate.(rdf.IRI)
	if !ok {
		return row{}, fmt.Errorf("predicate: must be IRI, got %s", rdf.KindOf(q.Predicate))
	}
	r.pValue = string(p)

	switch o := q.Object.(type) {
	case rdf.Literal:
		r.oKind, r.oValue, r.oDatatype, r.oLang = kindLiteral, o.Lexical, string(o.Datatype), o.Lang
	default:
		if r.oKind, r.oValue, err = encodeResource(q.Object); err != nil {
			return row{}, fmt.Errorf("object: %w", err)
		}
	}
	return r, nil
}

func encodeResource(t rdf.Term) (string, string, error) {
	switch v := t.(type) {
	case rdf.IRI:
		return kindIRI, string(v), nil
	case rdf.BlankNode:
		return kindBlank, string(v), nil
	default:
		return "", "", fmt.Errorf("must be IRI or blank node, got %s", rdf.KindOf(t))
	}
}

func decodeQuad(r row) (rdf.Quad, error) {
	s, err := decodeTerm(r.sKind, r.sValue, "", "")
	if err != nil {
		return rdf.Quad{}, fmt.Errorf("quad %s subject: %w", r.id, err)
	}
	o, err := decodeTerm(r.oKind, r.oValue, r.oDatatype, r.oLang)
	if err != nil {
		return rdf.Quad{}, fmt.Errorf("quad %s object: %w", r.id, err)
	}
	prov, err := rdf.ParseProvenance(r.provenance)
	if err != nil {
		return rdf.Quad{}, fmt.Errorf("quad %s: %w", r.id, err)
	}

	q := rdf.NewQuad(s, rdf.IRI(r.pValue), o).
		InGraph(rdf.IRI(r.graph)).
		WithProvenance(prov)
	return q, nil
}

func decodeTerm(kind, value, datatype, lang string) (rdf.Term, error) {
	switch kind {
	case kindIRI:
		return rdf.IRI(value), nil
	case kindBlank:
		return rdf.BlankNode(value), nil
	case kindLiteral:
		return rdf.Literal{Lexical: value, Datatype: rdf.IRI(datatype), Lang: lang}, nil
	default:
		return nil, fmt.Errorf("unknown term kind %q", kind)
	}
}

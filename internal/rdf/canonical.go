package rdf

import (
	"encoding/binary"
	"strings"
)

// Key returns the canonical dictionary key for a term.
//
// The encoding is injective across variants:
//
//	IRI        "I" + iri
//	BlankNode  "B" + label
//	Literal    "L" + datatype + 0x00 + lang + 0x00 + lexical
//
// IRIs and language tags never contain NUL (Quad.Validate enforces this for
// IRIs), so the separators are unambiguous. Numbers are keyed by lexical form
// and datatype; no float ever enters identity.
func Key(t Term) string {
	switch v := t.(type) {
	case IRI:
		return "I" + string(v)
	case BlankNode:
		return "B" + string(v)
	case Literal:
		var b strings.Builder
		b.Grow(len(v.Datatype) + len(v.Lang) + len(v.Lexical) + 3)
		b.WriteByte('L')
		b.WriteString(string(literalDatatype(v)))
		b.WriteByte(0)
		b.WriteString(v.Lang)
		b.WriteByte(0)
		b.WriteString(v.Lexical)
		return b.String()
	default:
		return ""
	}
}

// Key returns the canonical identity of the quad. Provenance is excluded.
func (q Quad) Key() string {
	var b strings.Builder
	for _, t := range [...]Term{q.Subject, q.Predicate, q.Object} {
		k := Key(t)
		writeLenPrefixed(&b, k)
	}
	writeLenPrefixed(&b, string(q.Graph))
	return b.String()
}

// literalDatatype returns the effective datatype: empty datatypes read as
// xsd:string, tagged literals as rdf:langString.
func literalDatatype(l Literal) IRI {
	switch {
	case l.Lang != "":
		return RDFLangString
	case l.Datatype == "":
		return XSDString
	default:
		return l.Datatype
	}
}

// Canonical returns t with its representation normalized so that == agrees
// with Key. Literals built by hand without the New* constructors should pass
// through Canonical before entering a store.
func Canonical(t Term) Term {
	if l, ok := t.(Literal); ok {
		l.Datatype = literalDatatype(l)
		l.Lang = strings.ToLower(l.Lang)
		return l
	}
	return t
}

func writeLenPrefixed(b *strings.Builder, s string) {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], uint64(len(s)))
	b.Write(buf[:n])
	b.WriteString(s)
}

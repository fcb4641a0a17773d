package rdf

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Term is a sealed interface representing a concrete RDF term.
// Only IRI, BlankNode and Literal implement it.
//
// Terms are comparable with ==: two terms are the same term exactly when
// they have the same variant and the same fields.
type Term interface {
	term() // Sealed - only these types implement it
	String() string
}

// IRI is an opaque, non-empty resource identifier.
type IRI string

func (IRI) term() {}

// String renders the IRI in angle brackets.
func (i IRI) String() string {
	return "<" + string(i) + ">"
}

// BlankNode is a locally scoped node identified by its label.
type BlankNode string

func (BlankNode) term() {}

// String renders the blank node as _:label.
func (b BlankNode) String() string {
	return "_:" + string(b)
}

// Literal is a lexical value with a datatype and an optional language tag.
//
// A literal with a non-empty Lang always carries the rdf:langString datatype.
// Use the New* constructors; they normalize the lexical form to NFC and fill
// in the datatype.
type Literal struct {
	Lexical  string
	Datatype IRI
	Lang     string
}

func (Literal) term() {}

// String renders the literal in N-Triples style. Integers, decimals and
// booleans are rendered bare.
func (l Literal) String() string {
	switch {
	case l.Lang != "":
		return quote(l.Lexical) + "@" + l.Lang
	case l.Datatype == XSDString || l.Datatype == "":
		return quote(l.Lexical)
	case l.Datatype == XSDInteger || l.Datatype == XSDDecimal || l.Datatype == XSDBoolean:
		return l.Lexical
	default:
		return quote(l.Lexical) + "^^" + l.Datatype.String()
	}
}

// NewString creates a plain xsd:string literal.
func NewString(s string) Literal {
	return Literal{Lexical: norm.NFC.String(s), Datatype: XSDString}
}

// NewLangString creates a language-tagged literal. The tag is lower-cased.
func NewLangString(s, lang string) Literal {
	return Literal{
		Lexical:  norm.NFC.String(s),
		Datatype: RDFLangString,
		Lang:     strings.ToLower(lang),
	}
}

// NewTyped creates a literal with an explicit datatype.
// An empty datatype defaults to xsd:string.
func NewTyped(lexical string, datatype IRI) Literal {
	if datatype == "" {
		datatype = XSDString
	}
	return Literal{Lexical: norm.NFC.String(lexical), Datatype: datatype}
}

// NewInteger creates an xsd:integer literal.
func NewInteger(n int64) Literal {
	return Literal{Lexical: strconv.FormatInt(n, 10), Datatype: XSDInteger}
}

// NewDecimal creates an xsd:decimal literal. The lexical form always
// contains a decimal point.
func NewDecimal(f float64) Literal {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return Literal{Lexical: s, Datatype: XSDDecimal}
}

// NewDouble creates an xsd:double literal.
func NewDouble(f float64) Literal {
	return Literal{Lexical: strconv.FormatFloat(f, 'E', -1, 64), Datatype: XSDDouble}
}

// NewBoolean creates an xsd:boolean literal.
func NewBoolean(b bool) Literal {
	return Literal{Lexical: strconv.FormatBool(b), Datatype: XSDBoolean}
}

// IsNumeric reports whether the literal has one of the XSD numeric datatypes.
func (l Literal) IsNumeric() bool {
	return numericTypes[l.Datatype]
}

// IsInteger reports whether the literal has an XSD integer-derived datatype.
func (l Literal) IsInteger() bool {
	return integerTypes[l.Datatype]
}

// Numeric returns the literal's numeric value.
// Returns false if the literal is not numeric or its lexical form is malformed.
func (l Literal) Numeric() (float64, bool) {
	if !l.IsNumeric() {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(l.Lexical), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Bool returns the value of an xsd:boolean literal.
// Returns false as the second value for any other literal.
func (l Literal) Bool() (bool, bool) {
	if l.Datatype != XSDBoolean {
		return false, false
	}
	switch l.Lexical {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	default:
		return false, false
	}
}

// IsPlainString reports whether the literal is an xsd:string or a
// language-tagged string.
func (l Literal) IsPlainString() bool {
	return l.Lang != "" || l.Datatype == XSDString || l.Datatype == "" || l.Datatype == RDFLangString
}

// quote renders s as a double-quoted string with N-Triples escapes.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// IsIRI reports whether t is an IRI.
func IsIRI(t Term) bool {
	_, ok := t.(IRI)
	return ok
}

// IsBlank reports whether t is a blank node.
func IsBlank(t Term) bool {
	_, ok := t.(BlankNode)
	return ok
}

// IsLiteral reports whether t is a literal.
func IsLiteral(t Term) bool {
	_, ok := t.(Literal)
	return ok
}

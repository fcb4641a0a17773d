package parser

import (
	"strconv"
	"strings"

	"github.com/roach88/semgraph/internal/query"
	"github.com/roach88/semgraph/internal/rdf"
)

// ParseQuery parses a SELECT query.
//
// prefixes supplies namespace bindings; PREFIX declarations in the text are
// added on top and win on conflict. The supplied map is not modified.
func ParseQuery(text string, prefixes map[string]string) (*query.Query, error) {
	p := newParser(text, prefixes)
	q, err := p.parseQuery()
	if err != nil {
		return nil, err
	}
	return q, nil
}

// ParsePatterns parses a bare triple block such as "?p ex:age ?a . ?p a ex:Person".
// Blocks and clauses are not allowed.
func ParsePatterns(text string, prefixes map[string]string) ([]query.TriplePattern, error) {
	p := newParser(text, prefixes)
	var patterns []query.TriplePattern
	for p.tok.kind != tokEOF {
		tp, err := p.parseTriple()
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, tp)
		if p.tok.is(".") {
			p.advance()
			continue
		}
		if p.tok.kind != tokEOF {
			return nil, p.errorf("'.' or end of input")
		}
	}
	if len(patterns) == 0 {
		return nil, p.errorf("triple pattern")
	}
	return patterns, nil
}

// ParseExpr parses a standalone filter expression such as "?age < 18".
func ParseExpr(text string, prefixes map[string]string) (query.Expr, error) {
	p := newParser(text, prefixes)
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.errorf("end of input")
	}
	return e, nil
}

// ParseTerm parses a single node: an IRI, prefixed name, literal, blank node,
// variable or the keyword a.
func ParseTerm(text string, prefixes map[string]string) (query.Node, error) {
	p := newParser(text, prefixes)
	var n query.Node
	var err error
	if p.tok.kind == tokIdent && p.tok.text == "a" {
		n = query.T(rdf.RDFType)
		p.advance()
	} else if n, err = p.parseNode(); err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.errorf("end of input")
	}
	return n, nil
}

// parser is a recursive-descent parser with one token of lookahead.
type parser struct {
	lex      *lexer
	tok      token
	prefixes map[string]string
}

func newParser(text string, prefixes map[string]string) *parser {
	p := &parser{
		lex:      newLexer(text),
		prefixes: make(map[string]string, len(prefixes)),
	}
	for k, v := range prefixes {
		p.prefixes[k] = v
	}
	p.advance()
	return p
}

func (p *parser) advance() {
	p.tok = p.lex.next()
}

// errorf builds a ParseError for the current token.
func (p *parser) errorf(expected string) *ParseError {
	line, col := lineCol(p.lex.input, p.tok.pos)
	return &ParseError{
		Position: p.tok.pos,
		Line:     line,
		Column:   col,
		Expected: expected,
		Found:    p.tok.describe(),
	}
}

func (p *parser) expect(s string) error {
	if !p.tok.is(s) {
		return p.errorf("'" + s + "'")
	}
	p.advance()
	return nil
}

func (p *parser) expectKeyword(kw string) error {
	if !p.tok.isKeyword(kw) {
		return p.errorf(kw)
	}
	p.advance()
	return nil
}

// ============================================================================
// Query structure
// ============================================================================

func (p *parser) parseQuery() (*query.Query, error) {
	if err := p.parsePrologue(); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("SELECT"); err != nil {
		return nil, err
	}

	q := &query.Query{}
	if p.tok.is("*") {
		q.Star = true
		p.advance()
	} else {
		for p.tok.kind == tokVar {
			q.Projection = append(q.Projection, p.tok.text)
			p.advance()
		}
		if len(q.Projection) == 0 {
			return nil, p.errorf("variable or '*'")
		}
	}

	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	if err := p.parseGroupBody(q); err != nil {
		return nil, err
	}
	if len(q.Patterns) == 0 {
		return nil, p.errorf("triple pattern")
	}
	if err := p.expect("}"); err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.errorf("end of input")
	}

	q.Prefixes = p.prefixes
	return q, nil
}

func (p *parser) parsePrologue() error {
	for p.tok.isKeyword("PREFIX") {
		p.advance()
		if p.tok.kind != tokPName || !strings.HasSuffix(p.tok.text, ":") || strings.Count(p.tok.text, ":") != 1 {
			return p.errorf("prefix name ending in ':'")
		}
		name := strings.TrimSuffix(p.tok.text, ":")
		p.advance()
		if p.tok.kind != tokIRI {
			return p.errorf("IRI")
		}
		p.prefixes[name] = p.tok.text
		p.advance()
	}
	return nil
}

// parseGroupBody parses the contents of the WHERE block up to, not
// including, the closing brace.
func (p *parser) parseGroupBody(q *query.Query) error {
	for !p.tok.is("}") && p.tok.kind != tokEOF {
		switch {
		case p.tok.isKeyword("FILTER"):
			f, err := p.parseFilter()
			if err != nil {
				return err
			}
			q.Filters = append(q.Filters, f)
		case p.tok.isKeyword("OPTIONAL"):
			g, err := p.parseOptional()
			if err != nil {
				return err
			}
			q.Optional = append(q.Optional, g)
		default:
			patterns, err := p.parseTriples()
			if err != nil {
				return err
			}
			q.Patterns = append(q.Patterns, patterns...)
		}
	}
	return nil
}

func (p *parser) parseOptional() (query.Group, error) {
	p.advance() // OPTIONAL
	if err := p.expect("{"); err != nil {
		return query.Group{}, err
	}
	var g query.Group
	for !p.tok.is("}") {
		if p.tok.isKeyword("FILTER") {
			f, err := p.parseFilter()
			if err != nil {
				return query.Group{}, err
			}
			g.Filters = append(g.Filters, f)
			continue
		}
		if p.tok.isKeyword("OPTIONAL") {
			return query.Group{}, p.errorf("triple pattern or FILTER")
		}
		patterns, err := p.parseTriples()
		if err != nil {
			return query.Group{}, err
		}
		g.Patterns = append(g.Patterns, patterns...)
	}
	if len(g.Patterns) == 0 {
		return query.Group{}, p.errorf("triple pattern")
	}
	p.advance() // }
	if p.tok.is(".") {
		p.advance()
	}
	return g, nil
}

func (p *parser) parseFilter() (query.Expr, error) {
	p.advance() // FILTER
	if err := p.expect("("); err != nil {
		return nil, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	if p.tok.is(".") {
		p.advance()
	}
	return e, nil
}

// parseTriples parses Triple ( '.' Triple )* '.'?
func (p *parser) parseTriples() ([]query.TriplePattern, error) {
	var out []query.TriplePattern
	for {
		tp, err := p.parseTriple()
		if err != nil {
			return nil, err
		}
		out = append(out, tp)
		if !p.tok.is(".") {
			return out, nil
		}
		p.advance()
		if !p.startsNode() {
			return out, nil
		}
	}
}

func (p *parser) parseTriple() (query.TriplePattern, error) {
	s, err := p.parseNode()
	if err != nil {
		return query.TriplePattern{}, err
	}

	var pred query.Node
	if p.tok.kind == tokIdent && p.tok.text == "a" {
		pred = query.T(rdf.RDFType)
		p.advance()
	} else if pred, err = p.parseNode(); err != nil {
		return query.TriplePattern{}, err
	}

	o, err := p.parseNode()
	if err != nil {
		return query.TriplePattern{}, err
	}
	return query.Pattern(s, pred, o), nil
}

// startsNode reports whether the current token can begin a node.
func (p *parser) startsNode() bool {
	switch p.tok.kind {
	case tokIRI, tokPName, tokVar, tokBlank, tokString, tokInteger, tokDecimal, tokDouble:
		return true
	case tokIdent:
		return p.tok.isKeyword("true") || p.tok.isKeyword("false")
	case tokOp:
		return p.tok.text == "-" || p.tok.text == "+"
	default:
		return false
	}
}

// ============================================================================
// Terms
// ============================================================================

const termExpected = "IRI, prefixed name, variable, literal or blank node"

func (p *parser) parseNode() (query.Node, error) {
	switch p.tok.kind {
	case tokVar:
		v := query.Variable(p.tok.text)
		p.advance()
		return v, nil
	case tokIRI, tokPName:
		return p.parseIRIRef()
	case tokBlank:
		b := rdf.BlankNode(p.tok.text)
		p.advance()
		return query.T(b), nil
	case tokString:
		lit, err := p.parseStringLiteral()
		if err != nil {
			return nil, err
		}
		return query.T(lit), nil
	case tokInteger, tokDecimal, tokDouble:
		lit := numericLiteral(p.tok, false)
		p.advance()
		return query.T(lit), nil
	case tokOp:
		if p.tok.text == "-" || p.tok.text == "+" {
			neg := p.tok.text == "-"
			p.advance()
			if p.tok.kind != tokInteger && p.tok.kind != tokDecimal && p.tok.kind != tokDouble {
				return nil, p.errorf("number")
			}
			lit := numericLiteral(p.tok, neg)
			p.advance()
			return query.T(lit), nil
		}
	case tokIdent:
		if p.tok.isKeyword("true") || p.tok.isKeyword("false") {
			lit := rdf.NewBoolean(strings.EqualFold(p.tok.text, "true"))
			p.advance()
			return query.T(lit), nil
		}
	}
	return nil, p.errorf(termExpected)
}

// parseIRIRef parses <iri> or prefix:local. Unknown prefixes yield a
// query.PrefixedName.
func (p *parser) parseIRIRef() (query.Node, error) {
	tok := p.tok
	p.advance()
	if tok.kind == tokIRI {
		return query.T(rdf.IRI(tok.text)), nil
	}
	prefix, local, _ := strings.Cut(tok.text, ":")
	ns, ok := p.prefixes[prefix]
	if !ok {
		return query.PrefixedName{Prefix: prefix, Local: local}, nil
	}
	return query.T(rdf.IRI(ns + local)), nil
}

func (p *parser) parseStringLiteral() (rdf.Literal, error) {
	lex := p.tok.text
	p.advance()
	switch {
	case p.tok.kind == tokLangTag:
		tag := p.tok.text
		p.advance()
		return rdf.NewLangString(lex, tag), nil
	case p.tok.is("^^"):
		p.advance()
		if p.tok.kind != tokIRI && p.tok.kind != tokPName {
			return rdf.Literal{}, p.errorf("datatype IRI")
		}
		dtTok := p.tok
		dt, err := p.parseIRIRef()
		if err != nil {
			return rdf.Literal{}, err
		}
		t, ok := query.TermOf(dt)
		if !ok {
			line, col := lineCol(p.lex.input, dtTok.pos)
			return rdf.Literal{}, &ParseError{
				Position: dtTok.pos,
				Line:     line,
				Column:   col,
				Expected: "datatype with a declared prefix",
				Found:    dtTok.describe(),
			}
		}
		return rdf.NewTyped(lex, t.(rdf.IRI)), nil
	default:
		return rdf.NewString(lex), nil
	}
}

func numericLiteral(tok token, neg bool) rdf.Literal {
	text := tok.text
	if neg {
		text = "-" + text
	}
	switch tok.kind {
	case tokInteger:
		// Keep the lexical form unless it overflows the canonical form.
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return rdf.NewInteger(n)
		}
		return rdf.NewTyped(text, rdf.XSDInteger)
	case tokDecimal:
		return rdf.NewTyped(text, rdf.XSDDecimal)
	default:
		return rdf.NewTyped(text, rdf.XSDDouble)
	}
}

func lineCol(input string, pos int) (int, int) {
	if pos > len(input) {
		pos = len(input)
	}
	line := 1 + strings.Count(input[:pos], "\n")
	col := pos + 1
	if i := strings.LastIndexByte(input[:pos], '\n'); i >= 0 {
		col = pos - i
	}
	return line, col
}

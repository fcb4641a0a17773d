package parser

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIRI           // <...>, text is the IRI without brackets
	tokPName         // prefix:local, text is the full name
	tokVar           // ?x or $x, text is the name without sigil
	tokBlank         // _:id, text is the label
	tokString        // quoted string, text is the unescaped value
	tokLangTag       // @en, text is the tag without '@'
	tokInteger
	tokDecimal
	tokDouble
	tokIdent // bare word: keywords, function names, a, true, false
	tokPunct // { } ( ) . , ; * ^^
	tokOp    // = != < <= > >= && || ! + - /
	tokIllegal
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// describe renders the token for error messages.
func (t token) describe() string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokIRI:
		return "<" + t.text + ">"
	case tokVar:
		return "?" + t.text
	case tokBlank:
		return "_:" + t.text
	case tokString:
		return fmt.Sprintf("%q", t.text)
	case tokLangTag:
		return "@" + t.text
	case tokIllegal:
		return fmt.Sprintf("illegal input %q", t.text)
	default:
		return fmt.Sprintf("%q", t.text)
	}
}

// is reports whether t is the punctuation or operator s.
func (t token) is(s string) bool {
	return (t.kind == tokPunct || t.kind == tokOp) && t.text == s
}

// isKeyword reports whether t is the bare word kw, case-insensitively.
func (t token) isKeyword(kw string) bool {
	return t.kind == tokIdent && strings.EqualFold(t.text, kw)
}

// lexer produces tokens on demand. Errors surface as tokIllegal tokens.
type lexer struct {
	input string
	pos   int
}

func newLexer(input string) *lexer {
	return &lexer{input: input}
}

func (l *lexer) next() token {
	l.skipSpaceAndComments()
	if l.pos >= len(l.input) {
		return token{kind: tokEOF, pos: l.pos}
	}

	start := l.pos
	c := l.input[l.pos]
	switch {
	case c == '<':
		if iri, ok := l.scanIRI(); ok {
			return token{kind: tokIRI, text: iri, pos: start}
		}
		return l.operator(start)
	case c == '?' || c == '$':
		l.pos++
		name := l.scanWhile(isVarChar)
		if name == "" {
			return token{kind: tokIllegal, text: string(c), pos: start}
		}
		return token{kind: tokVar, text: name, pos: start}
	case c == '"' || c == '\'':
		s, err := l.scanString(c)
		if err != nil {
			return token{kind: tokIllegal, text: err.Error(), pos: start}
		}
		return token{kind: tokString, text: s, pos: start}
	case c == '@':
		l.pos++
		tag := l.scanWhile(func(r rune) bool { return isAlnum(r) || r == '-' })
		if tag == "" {
			return token{kind: tokIllegal, text: "@", pos: start}
		}
		return token{kind: tokLangTag, text: tag, pos: start}
	case c == '_' && strings.HasPrefix(l.input[l.pos:], "_:"):
		l.pos += 2
		label := l.scanWhile(isNameChar)
		if label == "" {
			return token{kind: tokIllegal, text: "_:", pos: start}
		}
		return token{kind: tokBlank, text: label, pos: start}
	case isDigit(rune(c)) || (c == '.' && l.peekDigit(1)):
		return l.scanNumber(start)
	case c == ':' || l.peekLetter():
		return l.scanWord(start)
	case c == '^' && strings.HasPrefix(l.input[l.pos:], "^^"):
		l.pos += 2
		return token{kind: tokPunct, text: "^^", pos: start}
	case strings.ContainsRune("{}().,;*", rune(c)):
		l.pos++
		return token{kind: tokPunct, text: string(c), pos: start}
	default:
		return l.operator(start)
	}
}

func (l *lexer) skipSpaceAndComments() {
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.pos++
		case c == '#':
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

// scanIRI consumes <...> if the bracket opens an IRI reference.
// A '<' followed by whitespace or an operand is the less-than operator.
func (l *lexer) scanIRI() (string, bool) {
	end := l.pos + 1
	for end < len(l.input) {
		c := l.input[end]
		if c == '>' {
			if end == l.pos+1 {
				return "", false
			}
			iri := l.input[l.pos+1 : end]
			l.pos = end + 1
			return iri, true
		}
		if c <= ' ' || strings.ContainsRune("<\"{}|^`\\()", rune(c)) {
			return "", false
		}
		end++
	}
	return "", false
}

func (l *lexer) operator(start int) token {
	rest := l.input[l.pos:]
	for _, op := range []string{"!=", "<=", ">=", "&&", "||"} {
		if strings.HasPrefix(rest, op) {
			l.pos += 2
			return token{kind: tokOp, text: op, pos: start}
		}
	}
	c := l.input[l.pos]
	if strings.ContainsRune("=<>!+-/", rune(c)) {
		l.pos++
		return token{kind: tokOp, text: string(c), pos: start}
	}
	r, size := utf8.DecodeRuneInString(rest)
	l.pos += size
	return token{kind: tokIllegal, text: string(r), pos: start}
}

func (l *lexer) scanString(quote byte) (string, error) {
	l.pos++ // opening quote
	var b strings.Builder
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		switch c {
		case quote:
			l.pos++
			return b.String(), nil
		case '\n', '\r':
			return "", fmt.Errorf("newline in string")
		case '\\':
			if l.pos+1 >= len(l.input) {
				return "", fmt.Errorf("unterminated escape")
			}
			switch e := l.input[l.pos+1]; e {
			case '"', '\'', '\\':
				b.WriteByte(e)
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				return "", fmt.Errorf("unknown escape \\%c", e)
			}
			l.pos += 2
		default:
			b.WriteByte(c)
			l.pos++
		}
	}
	return "", fmt.Errorf("unterminated string")
}

func (l *lexer) scanNumber(start int) token {
	kind := tokInteger
	l.scanWhile(isDigit)
	if l.pos < len(l.input) && l.input[l.pos] == '.' && l.peekDigit(1) {
		kind = tokDecimal
		l.pos++
		l.scanWhile(isDigit)
	}
	if l.pos < len(l.input) && (l.input[l.pos] == 'e' || l.input[l.pos] == 'E') {
		save := l.pos
		l.pos++
		if l.pos < len(l.input) && (l.input[l.pos] == '+' || l.input[l.pos] == '-') {
			l.pos++
		}
		if l.scanWhile(isDigit) == "" {
			l.pos = save
		} else {
			kind = tokDouble
		}
	}
	return token{kind: kind, text: l.input[start:l.pos], pos: start}
}

// scanWord consumes a bare word or a prefixed name.
func (l *lexer) scanWord(start int) token {
	l.scanWhile(isNameChar)
	if l.pos < len(l.input) && l.input[l.pos] == ':' {
		l.pos++
		l.scanLocal()
		return token{kind: tokPName, text: l.input[start:l.pos], pos: start}
	}
	return token{kind: tokIdent, text: l.input[start:l.pos], pos: start}
}

// scanLocal consumes the local part of a prefixed name. Dots are allowed
// inside but not at the end, so "ex:a." lexes as ex:a followed by '.'.
func (l *lexer) scanLocal() {
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if isNameChar(r) {
			l.pos += size
			continue
		}
		if r == '.' && l.pos+1 < len(l.input) {
			next, _ := utf8.DecodeRuneInString(l.input[l.pos+1:])
			if isNameChar(next) {
				l.pos += size
				continue
			}
		}
		return
	}
}

func (l *lexer) scanWhile(pred func(rune) bool) string {
	start := l.pos
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if !pred(r) {
			break
		}
		l.pos += size
	}
	return l.input[start:l.pos]
}

func (l *lexer) peekDigit(offset int) bool {
	i := l.pos + offset
	return i < len(l.input) && isDigit(rune(l.input[i]))
}

func (l *lexer) peekLetter() bool {
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return isLetter(r)
}

func isDigit(r rune) bool  { return r >= '0' && r <= '9' }
func isLetter(r rune) bool { return unicode.IsLetter(r) }
func isAlnum(r rune) bool  { return isLetter(r) || isDigit(r) }

func isVarChar(r rune) bool {
	return isAlnum(r) || r == '_'
}

func isNameChar(r rune) bool {
	return isAlnum(r) || r == '_' || r == '-'
}

package parser

import (
	"strconv"
	"strings"

	"github.com/roach88/semgraph/internal/query"
	"github.com/roach88/semgraph/internal/rdf"
)

// parseExpr parses Or := And ('||' And)*
func (p *parser) parseExpr() (query.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.tok.is("||") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = query.OrExpr{Left: left, Right: right}
	}
	return left, nil
}

// parseAnd parses And := Rel ('&&' Rel)*
func (p *parser) parseAnd() (query.Expr, error) {
	left, err := p.parseRel()
	if err != nil {
		return nil, err
	}
	for p.tok.is("&&") {
		p.advance()
		right, err := p.parseRel()
		if err != nil {
			return nil, err
		}
		left = query.AndExpr{Left: left, Right: right}
	}
	return left, nil
}

var compareOps = map[string]query.CompareOp{
	"=":  query.OpEq,
	"!=": query.OpNe,
	"<":  query.OpLt,
	"<=": query.OpLe,
	">":  query.OpGt,
	">=": query.OpGe,
}

// parseRel parses Rel := Add (op Add)?
func (p *parser) parseRel() (query.Expr, error) {
	left, err := p.parseAdd()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokOp {
		return left, nil
	}
	op, ok := compareOps[p.tok.text]
	if !ok {
		return left, nil
	}
	p.advance()
	right, err := p.parseAdd()
	if err != nil {
		return nil, err
	}
	return query.CompareExpr{Op: op, Left: left, Right: right}, nil
}

// parseAdd parses Add := Mul (('+'|'-') Mul)*
func (p *parser) parseAdd() (query.Expr, error) {
	left, err := p.parseMul()
	if err != nil {
		return nil, err
	}
	for p.tok.is("+") || p.tok.is("-") {
		op := query.ArithOp(p.tok.text)
		p.advance()
		right, err := p.parseMul()
		if err != nil {
			return nil, err
		}
		left = query.ArithExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

// parseMul parses Mul := Unary (('*'|'/') Unary)*
func (p *parser) parseMul() (query.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok.is("*") || p.tok.is("/") {
		op := query.ArithOp(p.tok.text)
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = query.ArithExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

// parseUnary parses Unary := '!' Unary | '-' Unary | '+' Unary | Primary
func (p *parser) parseUnary() (query.Expr, error) {
	switch {
	case p.tok.is("!"):
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return query.NotExpr{X: x}, nil
	case p.tok.is("-"):
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return query.NegExpr{X: x}, nil
	case p.tok.is("+"):
		p.advance()
		return p.parseUnary()
	default:
		return p.parsePrimary()
	}
}

const exprExpected = "expression"

// parsePrimary parses '(' Expr ')' | Var | Literal | IRI | Func '(' Args? ')'
func (p *parser) parsePrimary() (query.Expr, error) {
	switch p.tok.kind {
	case tokPunct:
		if !p.tok.is("(") {
			return nil, p.errorf(exprExpected)
		}
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return e, nil
	case tokVar:
		v := query.VarExpr{Name: p.tok.text}
		p.advance()
		return v, nil
	case tokIdent:
		if p.tok.isKeyword("true") || p.tok.isKeyword("false") {
			lit := rdf.NewBoolean(strings.EqualFold(p.tok.text, "true"))
			p.advance()
			return query.ConstExpr{Value: lit}, nil
		}
		return p.parseCall()
	case tokIRI, tokPName:
		n, err := p.parseIRIRef()
		if err != nil {
			return nil, err
		}
		return nodeExpr(n), nil
	case tokString, tokInteger, tokDecimal, tokDouble, tokBlank:
		n, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		return nodeExpr(n), nil
	default:
		return nil, p.errorf(exprExpected)
	}
}

func (p *parser) parseCall() (query.Expr, error) {
	name, arity, ok := query.LookupFunction(p.tok.text)
	if !ok {
		return nil, p.errorf("function name")
	}
	p.advance()
	if err := p.expect("("); err != nil {
		return nil, err
	}

	var args []query.Expr
	if name == query.FnBound {
		if p.tok.kind != tokVar {
			return nil, p.errorf("variable")
		}
		args = append(args, query.VarExpr{Name: p.tok.text})
		p.advance()
	} else {
		for !p.tok.is(")") {
			if len(args) > 0 {
				if err := p.expect(","); err != nil {
					return nil, err
				}
			}
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
	}
	if len(args) != arity {
		return nil, p.errorf(argumentsExpected(arity))
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	return query.CallExpr{Func: name, Args: args}, nil
}

func argumentsExpected(n int) string {
	if n == 1 {
		return "1 argument"
	}
	return strconv.Itoa(n) + " arguments"
}

func nodeExpr(n query.Node) query.Expr {
	switch v := n.(type) {
	case query.PrefixedName:
		return query.NameExpr{Name: v}
	case query.Variable:
		return query.VarExpr{Name: string(v)}
	case query.TermNode:
		return query.ConstExpr{Value: v.Term}
	default:
		return nil
	}
}

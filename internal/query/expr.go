package query

import (
	"fmt"
	"strings"

	"github.com/roach88/semgraph/internal/rdf"
)

// Expr is a sealed interface for FILTER and rule-condition expressions.
//
// Expression types:
//   - VarExpr: variable reference
//   - ConstExpr: constant term
//   - NameExpr: unresolved prefixed name (always an evaluation error)
//   - CompareExpr: = != < <= > >=
//   - ArithExpr: + - * /
//   - AndExpr, OrExpr, NotExpr: boolean connectives
//   - NegExpr: unary minus
//   - CallExpr: builtin function call
type Expr interface {
	expr() // Marker method - seals interface to this package
	String() string
}

// CompareOp is a relational operator.
type CompareOp string

const (
	OpEq CompareOp = "="
	OpNe CompareOp = "!="
	OpLt CompareOp = "<"
	OpLe CompareOp = "<="
	OpGt CompareOp = ">"
	OpGe CompareOp = ">="
)

// ArithOp is an arithmetic operator.
type ArithOp string

const (
	OpAdd ArithOp = "+"
	OpSub ArithOp = "-"
	OpMul ArithOp = "*"
	OpDiv ArithOp = "/"
)

// VarExpr references a variable by name (without '?').
type VarExpr struct {
	Name string
}

// ConstExpr is a constant term.
type ConstExpr struct {
	Value rdf.Term
}

// NameExpr is a prefixed name whose prefix was not declared.
type NameExpr struct {
	Name PrefixedName
}

// CompareExpr compares two operands.
type CompareExpr struct {
	Op          CompareOp
	Left, Right Expr
}

// ArithExpr combines two numeric operands.
type ArithExpr struct {
	Op          ArithOp
	Left, Right Expr
}

// AndExpr is logical conjunction.
type AndExpr struct {
	Left, Right Expr
}

// OrExpr is logical disjunction.
type OrExpr struct {
	Left, Right Expr
}

// NotExpr is logical negation.
type NotExpr struct {
	X Expr
}

// NegExpr is numeric negation.
type NegExpr struct {
	X Expr
}

// CallExpr calls a builtin function. Func holds the canonical name
// returned by LookupFunction.
type CallExpr struct {
	Func string
	Args []Expr
}

func (VarExpr) expr()     {}
func (ConstExpr) expr()   {}
func (NameExpr) expr()    {}
func (CompareExpr) expr() {}
func (ArithExpr) expr()   {}
func (AndExpr) expr()     {}
func (OrExpr) expr()      {}
func (NotExpr) expr()     {}
func (NegExpr) expr()     {}
func (CallExpr) expr()    {}

func (e VarExpr) String() string   { return "?" + e.Name }
func (e ConstExpr) String() string { return e.Value.String() }
func (e NameExpr) String() string  { return e.Name.String() }
func (e NotExpr) String() string   { return "!" + e.X.String() }
func (e NegExpr) String() string   { return "-" + e.X.String() }

func (e CompareExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
}

func (e ArithExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
}

func (e AndExpr) String() string {
	return fmt.Sprintf("(%s && %s)", e.Left, e.Right)
}

func (e OrExpr) String() string {
	return fmt.Sprintf("(%s || %s)", e.Left, e.Right)
}

func (e CallExpr) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return e.Func + "(" + strings.Join(args, ", ") + ")"
}

// Builtin function names.
const (
	FnBound     = "BOUND"
	FnIsIRI     = "isIRI"
	FnIsBlank   = "isBlank"
	FnIsLiteral = "isLiteral"
	FnIsNumeric = "isNumeric"
	FnStr       = "STR"
	FnLang      = "LANG"
	FnDatatype  = "DATATYPE"
	FnContains  = "CONTAINS"
	FnStrStarts = "STRSTARTS"
	FnStrEnds   = "STRENDS"
)

// functions maps upper-cased names to canonical name and arity.
var functions = map[string]struct {
	name  string
	arity int
}{
	"BOUND":     {FnBound, 1},
	"ISIRI":     {FnIsIRI, 1},
	"ISURI":     {FnIsIRI, 1},
	"ISBLANK":   {FnIsBlank, 1},
	"ISLITERAL": {FnIsLiteral, 1},
	"ISNUMERIC": {FnIsNumeric, 1},
	"STR":       {FnStr, 1},
	"LANG":      {FnLang, 1},
	"DATATYPE":  {FnDatatype, 1},
	"CONTAINS":  {FnContains, 2},
	"STRSTARTS": {FnStrStarts, 2},
	"STRENDS":   {FnStrEnds, 2},
}

// LookupFunction resolves a builtin name case-insensitively.
// Returns the canonical name and arity.
func LookupFunction(name string) (string, int, bool) {
	f, ok := functions[strings.ToUpper(name)]
	if !ok {
		return "", 0, false
	}
	return f.name, f.arity, true
}

// ExprVariables returns the distinct variables referenced by e in
// first-appearance order.
func ExprVariables(e Expr) []string {
	var vars []string
	seen := make(map[string]bool)
	walkExpr(e, func(x Expr) {
		if v, ok := x.(VarExpr); ok && !seen[v.Name] {
			seen[v.Name] = true
			vars = append(vars, v.Name)
		}
	})
	return vars
}

// ExprUnresolved returns the unresolved prefixed names in e.
func ExprUnresolved(e Expr) []PrefixedName {
	var out []PrefixedName
	walkExpr(e, func(x Expr) {
		if n, ok := x.(NameExpr); ok {
			out = append(out, n.Name)
		}
	})
	return out
}

// walkExpr visits e and all of its subexpressions in pre-order.
func walkExpr(e Expr, visit func(Expr)) {
	if e == nil {
		return
	}
	visit(e)
	switch x := e.(type) {
	case CompareExpr:
		walkExpr(x.Left, visit)
		walkExpr(x.Right, visit)
	case ArithExpr:
		walkExpr(x.Left, visit)
		walkExpr(x.Right, visit)
	case AndExpr:
		walkExpr(x.Left, visit)
		walkExpr(x.Right, visit)
	case OrExpr:
		walkExpr(x.Left, visit)
		walkExpr(x.Right, visit)
	case NotExpr:
		walkExpr(x.X, visit)
	case NegExpr:
		walkExpr(x.X, visit)
	case CallExpr:
		for _, a := range x.Args {
			walkExpr(a, visit)
		}
	}
}

package exec

import (
	"math"
	"strconv"
	"strings"

	"github.com/roach88/semgraph/internal/query"
	"github.com/roach88/semgraph/internal/rdf"
)

// Eval evaluates e against b and returns the resulting term.
//
// Semantics:
//   - Numeric literals are promoted to float64 to compare and compute.
//     + - * on two integers yield an xsd:integer; / always yields a decimal
//     or double
//   - Strings compare lexicographically by lexical form
//   - Booleans compare false < true
//   - = and != between terms of unrelated kinds fall back to term equality;
//     ordering them is a type error
//   - An unbound variable is an error except inside BOUND
//   - || and && follow SPARQL error semantics: true || error is true,
//     false && error is false
func Eval(e query.Expr, b query.Binding) (rdf.Term, error) {
	switch x := e.(type) {
	case query.VarExpr:
		t, ok := b[x.Name]
		if !ok {
			return nil, &EvalError{Expr: x.String(), Message: "unbound variable", Err: ErrUnbound}
		}
		return t, nil
	case query.ConstExpr:
		return x.Value, nil
	case query.NameExpr:
		return nil, &EvalError{Expr: x.String(), Message: "unresolved prefix " + strconv.Quote(x.Name.Prefix)}
	case query.CompareExpr:
		return evalCompare(x, b)
	case query.ArithExpr:
		return evalArith(x, b)
	case query.AndExpr:
		return evalLogical(x.Left, x.Right, b, false)
	case query.OrExpr:
		return evalLogical(x.Left, x.Right, b, true)
	case query.NotExpr:
		v, err := EvalBool(x.X, b)
		if err != nil {
			return nil, err
		}
		return rdf.NewBoolean(!v), nil
	case query.NegExpr:
		return evalNeg(x, b)
	case query.CallExpr:
		return evalCall(x, b)
	case nil:
		return nil, &EvalError{Expr: "<nil>", Message: "missing expression"}
	default:
		return nil, &EvalError{Expr: e.String(), Message: "unsupported expression"}
	}
}

// EvalBool evaluates e and returns its effective boolean value.
//
// Booleans are themselves, numbers are true when non-zero and not NaN,
// strings are true when non-empty. Any other term is a type error.
func EvalBool(e query.Expr, b query.Binding) (bool, error) {
	t, err := Eval(e, b)
	if err != nil {
		return false, err
	}
	return effectiveBool(e, t)
}

func effectiveBool(e query.Expr, t rdf.Term) (bool, error) {
	lit, ok := t.(rdf.Literal)
	if !ok {
		return false, typeError(e, "no effective boolean value for "+rdf.KindOf(t))
	}
	if lit.Datatype == rdf.XSDBoolean {
		v, ok := lit.Bool()
		if !ok {
			return false, nil
		}
		return v, nil
	}
	if lit.IsNumeric() {
		f, ok := lit.Numeric()
		if !ok {
			return false, nil
		}
		return f != 0 && !math.IsNaN(f), nil
	}
	if lit.IsPlainString() {
		return lit.Lexical != "", nil
	}
	return false, typeError(e, "no effective boolean value for datatype "+string(lit.Datatype))
}

func evalLogical(left, right query.Expr, b query.Binding, or bool) (rdf.Term, error) {
	l, lerr := EvalBool(left, b)
	r, rerr := EvalBool(right, b)
	if or {
		if (lerr == nil && l) || (rerr == nil && r) {
			return rdf.NewBoolean(true), nil
		}
	} else {
		if (lerr == nil && !l) || (rerr == nil && !r) {
			return rdf.NewBoolean(false), nil
		}
	}
	if lerr != nil {
		return nil, lerr
	}
	if rerr != nil {
		return nil, rerr
	}
	return rdf.NewBoolean(!or), nil
}

// ============================================================================
// Comparison
// ============================================================================

func evalCompare(x query.CompareExpr, b query.Binding) (rdf.Term, error) {
	l, err := Eval(x.Left, b)
	if err != nil {
		return nil, err
	}
	r, err := Eval(x.Right, b)
	if err != nil {
		return nil, err
	}

	cmp, comparable := compareTerms(l, r)
	if !comparable {
		switch x.Op {
		case query.OpEq:
			return rdf.NewBoolean(rdf.Key(l) == rdf.Key(r)), nil
		case query.OpNe:
			return rdf.NewBoolean(rdf.Key(l) != rdf.Key(r)), nil
		default:
			return nil, typeError(x, "cannot order "+describe(l)+" and "+describe(r))
		}
	}

	var v bool
	switch x.Op {
	case query.OpEq:
		v = cmp == 0
	case query.OpNe:
		v = cmp != 0
	case query.OpLt:
		v = cmp < 0
	case query.OpLe:
		v = cmp <= 0
	case query.OpGt:
		v = cmp > 0
	case query.OpGe:
		v = cmp >= 0
	default:
		return nil, typeError(x, "unknown operator "+string(x.Op))
	}
	return rdf.NewBoolean(v), nil
}

// compareTerms orders two literals of a comparable kind.
// Returns false when the pair has no defined order.
func compareTerms(l, r rdf.Term) (int, bool) {
	ll, lok := l.(rdf.Literal)
	rl, rok := r.(rdf.Literal)
	if !lok || !rok {
		return 0, false
	}

	switch {
	case ll.IsNumeric() && rl.IsNumeric():
		lf, lok := ll.Numeric()
		rf, rok := rl.Numeric()
		if !lok || !rok {
			return 0, false
		}
		switch {
		case lf < rf:
			return -1, true
		case lf > rf:
			return 1, true
		default:
			return 0, true
		}
	case ll.Datatype == rdf.XSDBoolean && rl.Datatype == rdf.XSDBoolean:
		lb, lok := ll.Bool()
		rb, rok := rl.Bool()
		if !lok || !rok {
			return 0, false
		}
		return boolRank(lb) - boolRank(rb), true
	case isSimpleString(ll) && isSimpleString(rl):
		return strings.Compare(ll.Lexical, rl.Lexical), true
	case ll.Lang != "" && ll.Lang == rl.Lang:
		return strings.Compare(ll.Lexical, rl.Lexical), true
	case ll.Datatype == rdf.XSDDateTime && rl.Datatype == rdf.XSDDateTime:
		return strings.Compare(ll.Lexical, rl.Lexical), true
	default:
		return 0, false
	}
}

func isSimpleString(l rdf.Literal) bool {
	return l.Lang == "" && (l.Datatype == rdf.XSDString || l.Datatype == "")
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ============================================================================
// Arithmetic
// ============================================================================

func evalArith(x query.ArithExpr, b query.Binding) (rdf.Term, error) {
	l, err := numericOperand(x, x.Left, b)
	if err != nil {
		return nil, err
	}
	r, err := numericOperand(x, x.Right, b)
	if err != nil {
		return nil, err
	}

	if l.IsInteger() && r.IsInteger() && x.Op != query.OpDiv {
		li, lerr := strconv.ParseInt(l.Lexical, 10, 64)
		ri, rerr := strconv.ParseInt(r.Lexical, 10, 64)
		if lerr == nil && rerr == nil {
			if v, ok := integerArith(x.Op, li, ri); ok {
				return rdf.NewInteger(v), nil
			}
		}
	}

	// Overflowing integers, decimals and doubles.

	lf, _ := l.Numeric()
	rf, _ := r.Numeric()
	var v float64
	switch x.Op {
	case query.OpAdd:
		v = lf + rf
	case query.OpSub:
		v = lf - rf
	case query.OpMul:
		v = lf * rf
	case query.OpDiv:
		if rf == 0 {
			return nil, &EvalError{Expr: x.String(), Message: "division by zero", Err: ErrDivisionByZero}
		}
		v = lf / rf
	default:
		return nil, typeError(x, "unknown operator "+string(x.Op))
	}

	if isFloating(l) || isFloating(r) {
		return rdf.NewDouble(v), nil
	}
	return rdf.NewDecimal(v), nil
}

// integerArith applies op to l and r. Returns false if the result does not
// fit in an int64.
func integerArith(op query.ArithOp, l, r int64) (int64, bool) {
	switch op {
	case query.OpAdd:
		v := l + r
		return v, (v > l) == (r > 0)
	case query.OpSub:
		v := l - r
		return v, (v < l) == (r > 0)
	case query.OpMul:
		if l == 0 || r == 0 {
			return 0, true
		}
		v := l * r
		if v/r != l || (l == -1 && r == math.MinInt64) || (r == -1 && l == math.MinInt64) {
			return 0, false
		}
		return v, true
	default:
		return 0, false
	}
}

func evalNeg(x query.NegExpr, b query.Binding) (rdf.Term, error) {
	lit, err := numericOperand(x, x.X, b)
	if err != nil {
		return nil, err
	}
	if lit.IsInteger() {
		if n, err := strconv.ParseInt(lit.Lexical, 10, 64); err == nil && n != math.MinInt64 {
			return rdf.NewInteger(-n), nil
		}
	}
	f, _ := lit.Numeric()
	if isFloating(lit) {
		return rdf.NewDouble(-f), nil
	}
	return rdf.NewDecimal(-f), nil
}

// numericOperand evaluates operand and requires a well-formed numeric literal.
func numericOperand(parent, operand query.Expr, b query.Binding) (rdf.Literal, error) {
	t, err := Eval(operand, b)
	if err != nil {
		return rdf.Literal{}, err
	}
	lit, ok := t.(rdf.Literal)
	if !ok || !lit.IsNumeric() {
		return rdf.Literal{}, typeError(parent, "operand "+describe(t)+" is not numeric")
	}
	if _, ok := lit.Numeric(); !ok {
		return rdf.Literal{}, typeError(parent, "malformed number "+strconv.Quote(lit.Lexical))
	}
	return lit, nil
}

func isFloating(l rdf.Literal) bool {
	return l.Datatype == rdf.XSDDouble || l.Datatype == rdf.XSDFloat
}

// ============================================================================
// Builtins
// ============================================================================

func evalCall(x query.CallExpr, b query.Binding) (rdf.Term, error) {
	if x.Func == query.FnBound {
		if len(x.Args) != 1 {
			return nil, typeError(x, "BOUND takes one variable")
		}
		v, ok := x.Args[0].(query.VarExpr)
		if !ok {
			return nil, typeError(x, "BOUND takes a variable")
		}
		_, bound := b[v.Name]
		return rdf.NewBoolean(bound), nil
	}

	args := make([]rdf.Term, len(x.Args))
	for i, a := range x.Args {
		t, err := Eval(a, b)
		if err != nil {
			return nil, err
		}
		args[i] = t
	}

	switch x.Func {
	case query.FnIsIRI:
		return rdf.NewBoolean(rdf.IsIRI(args[0])), nil
	case query.FnIsBlank:
		return rdf.NewBoolean(rdf.IsBlank(args[0])), nil
	case query.FnIsLiteral:
		return rdf.NewBoolean(rdf.IsLiteral(args[0])), nil
	case query.FnIsNumeric:
		lit, ok := args[0].(rdf.Literal)
		if !ok {
			return rdf.NewBoolean(false), nil
		}
		_, valid := lit.Numeric()
		return rdf.NewBoolean(valid), nil
	case query.FnStr:
		switch t := args[0].(type) {
		case rdf.IRI:
			return rdf.NewString(string(t)), nil
		case rdf.Literal:
			return rdf.NewString(t.Lexical), nil
		default:
			return nil, typeError(x, "STR of "+describe(t))
		}
	case query.FnLang:
		lit, ok := args[0].(rdf.Literal)
		if !ok {
			return nil, typeError(x, "LANG of "+describe(args[0]))
		}
		return rdf.NewString(lit.Lang), nil
	case query.FnDatatype:
		lit, ok := args[0].(rdf.Literal)
		if !ok {
			return nil, typeError(x, "DATATYPE of "+describe(args[0]))
		}
		return rdf.Canonical(lit).(rdf.Literal).Datatype, nil
	case query.FnContains, query.FnStrStarts, query.FnStrEnds:
		return evalStringTest(x, args)
	default:
		return nil, typeError(x, "unknown function "+x.Func)
	}
}

func evalStringTest(x query.CallExpr, args []rdf.Term) (rdf.Term, error) {
	if len(args) != 2 {
		return nil, typeError(x, x.Func+" takes two arguments")
	}
	hay, ok := stringArg(args[0])
	if !ok {
		return nil, typeError(x, "first argument "+describe(args[0])+" is not a string")
	}
	needle, ok := stringArg(args[1])
	if !ok {
		return nil, typeError(x, "second argument "+describe(args[1])+" is not a string")
	}
	switch x.Func {
	case query.FnContains:
		return rdf.NewBoolean(strings.Contains(hay, needle)), nil
	case query.FnStrStarts:
		return rdf.NewBoolean(strings.HasPrefix(hay, needle)), nil
	default:
		return rdf.NewBoolean(strings.HasSuffix(hay, needle)), nil
	}
}

func stringArg(t rdf.Term) (string, bool) {
	lit, ok := t.(rdf.Literal)
	if !ok || !lit.IsPlainString() {
		return "", false
	}
	return lit.Lexical, true
}

func typeError(e query.Expr, msg string) *EvalError {
	expr := "<nil>"
	if e != nil {
		expr = e.String()
	}
	return &EvalError{Expr: expr, Message: msg}
}

func describe(t rdf.Term) string {
	if t == nil {
		return "nil"
	}
	return rdf.KindOf(t) + " " + t.String()
}

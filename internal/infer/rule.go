package infer

import (
	"strings"

	"github.com/roach88/semgraph/internal/exec"
	"github.com/roach88/semgraph/internal/query"
)

// Rule derives its conclusion for every binding of its antecedent that
// satisfies its condition.
type Rule struct {
	Name       string
	Antecedent []query.TriplePattern

	// Condition filters antecedent bindings. nil means always.
	Condition Condition

	// Conclusion is instantiated once per accepted binding. A nil graph
	// targets the default graph.
	Conclusion query.TriplePattern
}

// Condition decides whether a binding of a rule's antecedent fires the rule.
// Implementations must be pure: the same binding always gives the same answer.
type Condition interface {
	Holds(b query.Binding) bool
}

// ExprCondition is a condition expressed as a typed expression tree.
// Evaluation errors count as false.
type ExprCondition struct {
	Expr query.Expr
}

// Holds evaluates the expression's effective boolean value.
func (c ExprCondition) Holds(b query.Binding) bool {
	ok, err := exec.EvalBool(c.Expr, b)
	return err == nil && ok
}

func (c ExprCondition) String() string {
	if c.Expr == nil {
		return "<nil>"
	}
	return c.Expr.String()
}

// ConditionFunc adapts a pure function to Condition.
type ConditionFunc func(b query.Binding) bool

// Holds calls f(b).
func (f ConditionFunc) Holds(b query.Binding) bool {
	return f(b)
}

func (r Rule) holds(b query.Binding) bool {
	if r.Condition == nil {
		return true
	}
	return r.Condition.Holds(b)
}

// Variables returns the distinct antecedent variables in first-appearance order.
func (r Rule) Variables() []string {
	return query.Group{Patterns: r.Antecedent}.Variables()
}

// String renders the rule as "name: antecedent [if cond] => conclusion".
func (r Rule) String() string {
	var b strings.Builder
	b.WriteString(r.Name)
	b.WriteString(": ")
	for i, tp := range r.Antecedent {
		if i > 0 {
			b.WriteString(" . ")
		}
		b.WriteString(tp.String())
	}
	if c, ok := r.Condition.(ExprCondition); ok {
		b.WriteString(" if ")
		b.WriteString(c.String())
	} else if r.Condition != nil {
		b.WriteString(" if <func>")
	}
	b.WriteString(" => ")
	b.WriteString(r.Conclusion.String())
	return b.String()
}

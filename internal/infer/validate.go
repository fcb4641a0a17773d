package infer

import (
	"github.com/roach88/semgraph/internal/query"
	"github.com/roach88/semgraph/internal/rdf"
)

// CheckRule reports the first problem that would make AddRule reject r,
// or nil. Duplicate names are not checked; that requires an engine.
func CheckRule(r Rule) error {
	return checkRule(r)
}

func checkRule(r Rule) error {
	fail := func(code RuleErrorCode, msg, variable string) error {
		return &RuleDefinitionError{Rule: r.Name, Code: code, Message: msg, Variable: variable}
	}

	if r.Name == "" {
		return fail(ErrCodeEmptyName, "rule name is empty", "")
	}
	if len(r.Antecedent) == 0 {
		return fail(ErrCodeEmptyAntecedent, "antecedent has no patterns", "")
	}

	for _, tp := range append(append([]query.TriplePattern{}, r.Antecedent...), r.Conclusion) {
		if names := tp.Unresolved(); len(names) > 0 {
			return fail(ErrCodeUnresolvedPrefix, "undeclared prefix in "+names[0].String(), "")
		}
	}
	if c, ok := r.Condition.(ExprCondition); ok && c.Expr != nil {
		if names := query.ExprUnresolved(c.Expr); len(names) > 0 {
			return fail(ErrCodeUnresolvedPrefix, "undeclared prefix in condition "+names[0].String(), "")
		}
	}

	c := r.Conclusion
	if c.Subject == nil || c.Predicate == nil || c.Object == nil {
		return fail(ErrCodeInvalidConclusion, "conclusion is incomplete", "")
	}
	if t, ok := query.TermOf(c.Subject); ok && rdf.IsLiteral(t) {
		return fail(ErrCodeInvalidConclusion, "conclusion subject is a literal", "")
	}
	if t, ok := query.TermOf(c.Predicate); ok && !rdf.IsIRI(t) {
		return fail(ErrCodeInvalidConclusion, "conclusion predicate must be an IRI or variable", "")
	}
	if t, ok := query.TermOf(c.Graph); ok && !rdf.IsIRI(t) {
		return fail(ErrCodeInvalidConclusion, "conclusion graph must be an IRI or variable", "")
	}

	bound := make(map[string]bool)
	for _, v := range r.Variables() {
		bound[v] = true
	}
	for _, v := range c.Variables() {
		if !bound[v] {
			return fail(ErrCodeUnboundConclusionVariable, "conclusion variable is not bound by the antecedent", v)
		}
	}
	return nil
}

package rules

import (
	"fmt"

	"github.com/roach88/semgraph/internal/infer"
	"github.com/roach88/semgraph/internal/query"
	"github.com/roach88/semgraph/internal/rdf"
)

// Validation error codes (E110-E119)
const (
	ErrRuleNameEmpty          = "E110" // rule name is required
	ErrEmptyAntecedent        = "E111" // at least one when pattern required
	ErrUnresolvedPrefix       = "E112" // prefixed name with undeclared prefix
	ErrInvalidConclusion      = "E113" // conclusion can never form a valid quad
	ErrUndefinedBoundVariable = "E114" // conclusion variable not bound by when
	ErrUnboundConditionVar    = "E115" // where references a variable not bound by when
	ErrDuplicateRule          = "E116" // duplicate rule name
)

// ValidationError represents a rule validation error.
type ValidationError struct {
	Rule    string `json:"rule"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s.%s: %s", e.Code, e.Rule, e.Field, e.Message)
}

// Validate checks one rule and returns every problem found (does not
// fail-fast). A rule with no errors is accepted by infer.Engine.AddRule
// unless its name is already registered.
func Validate(r infer.Rule) []ValidationError {
	var errs []ValidationError
	add := func(field, code, msg string) {
		errs = append(errs, ValidationError{Rule: r.Name, Field: field, Code: code, Message: msg})
	}

	// E110: name is required
	if r.Name == "" {
		add("name", ErrRuleNameEmpty, "rule name is required")
	}

	// E111: at least one antecedent pattern
	if len(r.Antecedent) == 0 {
		add("when", ErrEmptyAntecedent, "at least one when pattern is required")
	}

	// E112: unresolved prefixes
	for i, tp := range r.Antecedent {
		for _, pn := range tp.Unresolved() {
			add(fmt.Sprintf("when[%d]", i), ErrUnresolvedPrefix, fmt.Sprintf("undeclared prefix %q in %s", pn.Prefix, pn))
		}
	}
	for _, pn := range r.Conclusion.Unresolved() {
		add("then", ErrUnresolvedPrefix, fmt.Sprintf("undeclared prefix %q in %s", pn.Prefix, pn))
	}
	cond, hasExpr := r.Condition.(infer.ExprCondition)
	if hasExpr && cond.Expr != nil {
		for _, pn := range query.ExprUnresolved(cond.Expr) {
			add("where", ErrUnresolvedPrefix, fmt.Sprintf("undeclared prefix %q in %s", pn.Prefix, pn))
		}
	}

	// E113: conclusion shape
	c := r.Conclusion
	if c.Subject == nil || c.Predicate == nil || c.Object == nil {
		add("then", ErrInvalidConclusion, "conclusion is incomplete")
	} else {
		if t, ok := query.TermOf(c.Subject); ok && rdf.IsLiteral(t) {
			add("then", ErrInvalidConclusion, "conclusion subject is a literal")
		}
		if t, ok := query.TermOf(c.Predicate); ok && !rdf.IsIRI(t) {
			add("then", ErrInvalidConclusion, "conclusion predicate must be an IRI or variable")
		}
	}

	bound := make(map[string]bool)
	for _, v := range r.Variables() {
		bound[v] = true
	}

	// E114: conclusion variables must be bound
	for _, v := range c.Variables() {
		if !bound[v] {
			add("then", ErrUndefinedBoundVariable, fmt.Sprintf("variable ?%s is not bound by when", v))
		}
	}

	// E115: condition variables must be bound
	if hasExpr && cond.Expr != nil {
		for _, v := range query.ExprVariables(cond.Expr) {
			if !bound[v] {
				add("where", ErrUnboundConditionVar, fmt.Sprintf("variable ?%s is not bound by when", v))
			}
		}
	}

	return errs
}

// ValidateAll validates every rule and also reports duplicate names.
func ValidateAll(rules []infer.Rule) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)
	for _, r := range rules {
		errs = append(errs, Validate(r)...)

		// E116: duplicate names
		if r.Name != "" && seen[r.Name] {
			errs = append(errs, ValidationError{
				Rule:    r.Name,
				Field:   "name",
				Code:    ErrDuplicateRule,
				Message: "rule name is declared more than once",
			})
		}
		seen[r.Name] = true
	}
	return errs
}

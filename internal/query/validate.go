package query

import (
	"fmt"

	"github.com/roach88/semgraph/internal/rdf"
)

// Validation error codes.
const (
	CodeEmptyWhere         = "EMPTY_WHERE"
	CodeEmptyProjection    = "EMPTY_PROJECTION"
	CodeUnknownVariable    = "UNKNOWN_VARIABLE"
	CodeDuplicateVariable  = "DUPLICATE_VARIABLE"
	CodeIncompletePattern  = "INCOMPLETE_PATTERN"
	CodeInvalidGraphNode   = "INVALID_GRAPH_NODE"
	CodeEmptyOptionalGroup = "EMPTY_OPTIONAL_GROUP"
)

// ValidationError reports a structural problem with a query.
type ValidationError struct {
	Code     string
	Message  string
	Variable string // offending variable, if any
}

func (e *ValidationError) Error() string {
	if e.Variable != "" {
		return fmt.Sprintf("%s: %s (?%s)", e.Code, e.Message, e.Variable)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Validate checks a query for structural problems.
//
// Validate does not check prefixes or term types; those are execution-time
// concerns. It returns the first problem found, or nil.
//
// Rules:
//  1. At least one required pattern
//  2. Every pattern has all three positions set
//  3. A concrete graph node must be an IRI
//  4. Non-star queries project at least one variable, each at most once
//  5. Every projected variable occurs in some pattern
//  6. Optional groups are non-empty
func Validate(q *Query) error {
	if q == nil || len(q.Patterns) == 0 {
		return &ValidationError{Code: CodeEmptyWhere, Message: "query has no triple patterns"}
	}

	all := append([]TriplePattern{}, q.Patterns...)
	for _, g := range q.Optional {
		if len(g.Patterns) == 0 {
			return &ValidationError{Code: CodeEmptyOptionalGroup, Message: "OPTIONAL group has no triple patterns"}
		}
		all = append(all, g.Patterns...)
	}
	for i, tp := range all {
		if err := validatePattern(i, tp); err != nil {
			return err
		}
	}

	if q.Star {
		return nil
	}
	if len(q.Projection) == 0 {
		return &ValidationError{Code: CodeEmptyProjection, Message: "SELECT projects no variables"}
	}

	known := make(map[string]bool)
	for _, v := range q.Variables() {
		known[v] = true
	}
	seen := make(map[string]bool, len(q.Projection))
	for _, v := range q.Projection {
		if seen[v] {
			return &ValidationError{Code: CodeDuplicateVariable, Message: "variable projected twice", Variable: v}
		}
		seen[v] = true
		if !known[v] {
			return &ValidationError{Code: CodeUnknownVariable, Message: "projected variable does not occur in any pattern", Variable: v}
		}
	}
	return nil
}

func validatePattern(i int, tp TriplePattern) error {
	if tp.Subject == nil || tp.Predicate == nil || tp.Object == nil {
		return &ValidationError{Code: CodeIncompletePattern, Message: fmt.Sprintf("pattern %d has an empty position", i)}
	}
	if t, ok := TermOf(tp.Graph); ok && !rdf.IsIRI(t) {
		return &ValidationError{Code: CodeInvalidGraphNode, Message: fmt.Sprintf("pattern %d graph must be an IRI, got %s", i, t)}
	}
	return nil
}

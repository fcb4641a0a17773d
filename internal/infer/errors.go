package infer

import (
	"errors"
	"fmt"

	"github.com/roach88/semgraph/internal/rdf"
)

// RuleDefinitionError reports a rule rejected at registration time.
// A rejected rule is never registered.
type RuleDefinitionError struct {
	// Rule is the name of the rejected rule.
	Rule string

	// Code identifies the error category.
	Code RuleErrorCode

	// Message is a human-readable description.
	Message string

	// Variable is the offending variable, if any.
	Variable string
}

// RuleErrorCode categorizes rule definition errors.
type RuleErrorCode string

const (
	// ErrCodeEmptyName indicates a rule without a name.
	ErrCodeEmptyName RuleErrorCode = "EMPTY_NAME"

	// ErrCodeDuplicateRule indicates a name already registered.
	ErrCodeDuplicateRule RuleErrorCode = "DUPLICATE_RULE"

	// ErrCodeEmptyAntecedent indicates a rule without antecedent patterns.
	ErrCodeEmptyAntecedent RuleErrorCode = "EMPTY_ANTECEDENT"

	// ErrCodeUnboundConclusionVariable indicates a conclusion variable that
	// no antecedent pattern binds.
	ErrCodeUnboundConclusionVariable RuleErrorCode = "UNBOUND_CONCLUSION_VARIABLE"

	// ErrCodeInvalidConclusion indicates a conclusion that can never form a
	// valid quad: a literal or blank predicate, a literal subject, or a
	// non-IRI graph.
	ErrCodeInvalidConclusion RuleErrorCode = "INVALID_CONCLUSION"

	// ErrCodeUnresolvedPrefix indicates a prefixed name with an undeclared prefix.
	ErrCodeUnresolvedPrefix RuleErrorCode = "UNRESOLVED_PREFIX"
)

// Error implements the error interface.
func (e *RuleDefinitionError) Error() string {
	if e.Variable != "" {
		return fmt.Sprintf("%s: rule %q: %s (?%s)", e.Code, e.Rule, e.Message, e.Variable)
	}
	return fmt.Sprintf("%s: rule %q: %s", e.Code, e.Rule, e.Message)
}

// IsRuleDefinitionError returns true if err is or wraps a *RuleDefinitionError.
func IsRuleDefinitionError(err error) bool {
	var re *RuleDefinitionError
	return errors.As(err, &re)
}

// InferenceDivergedError is returned when the last permitted pass still
// added quads. Quads added before the cap stay in the store.
type InferenceDivergedError struct {
	// Iterations is the number of passes run.
	Iterations int

	// SampleQuad is the last quad added before giving up.
	SampleQuad rdf.Quad
}

// Error implements the error interface.
func (e *InferenceDivergedError) Error() string {
	return fmt.Sprintf("inference diverged: still deriving after %d passes (last added %s)",
		e.Iterations, e.SampleQuad)
}

// IsDivergedError returns true if err is or wraps an *InferenceDivergedError.
func IsDivergedError(err error) bool {
	var de *InferenceDivergedError
	return errors.As(err, &de)
}

package exec

import (
	"errors"
	"fmt"
)

// QueryExecutionError reports a query that cannot be executed as written.
//
// Execution errors are detected before any pattern is matched:
//   - Unresolved prefix: a prefixed name whose prefix was never declared
//   - Unknown variable: a projected variable that no pattern mentions
//   - Empty query: no required triple patterns
//   - Malformed query: any other problem query.Validate reports
//
// A query that matches nothing is not an error.
type QueryExecutionError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Variable is the offending variable (unknown-variable errors).
	Variable string

	// Prefix is the undeclared prefix (unresolved-prefix errors).
	Prefix string
}

// ErrorCode categorizes execution errors.
type ErrorCode string

const (
	// ErrCodeUnresolvedPrefix indicates a prefixed name with an undeclared prefix.
	ErrCodeUnresolvedPrefix ErrorCode = "UNRESOLVED_PREFIX"

	// ErrCodeUnknownVariable indicates a projected variable absent from every pattern.
	ErrCodeUnknownVariable ErrorCode = "UNKNOWN_VARIABLE"

	// ErrCodeEmptyQuery indicates a query without triple patterns.
	ErrCodeEmptyQuery ErrorCode = "EMPTY_QUERY"

	// ErrCodeMalformedQuery indicates a duplicate projection, an incomplete
	// pattern, a non-IRI graph or an empty OPTIONAL group.
	ErrCodeMalformedQuery ErrorCode = "MALFORMED_QUERY"
)

// Error implements the error interface.
func (e *QueryExecutionError) Error() string {
	switch {
	case e.Variable != "":
		return fmt.Sprintf("%s: %s (?%s)", e.Code, e.Message, e.Variable)
	case e.Prefix != "" || e.Code == ErrCodeUnresolvedPrefix:
		return fmt.Sprintf("%s: %s (prefix=%q)", e.Code, e.Message, e.Prefix)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// IsQueryExecutionError returns true if err is or wraps a *QueryExecutionError.
func IsQueryExecutionError(err error) bool {
	var qe *QueryExecutionError
	return errors.As(err, &qe)
}

// IsUnresolvedPrefix returns true if err is an unresolved-prefix error.
func IsUnresolvedPrefix(err error) bool {
	var qe *QueryExecutionError
	if errors.As(err, &qe) {
		return qe.Code == ErrCodeUnresolvedPrefix
	}
	return false
}

// EvalError reports a failure to evaluate an expression against a binding:
// an unbound variable, a type mismatch or a division by zero.
//
// Filters treat an EvalError as false for the binding being tested.
type EvalError struct {
	Expr    string
	Message string
	Err     error // sentinel cause, if any
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("evaluate %s: %s", e.Expr, e.Message)
}

func (e *EvalError) Unwrap() error {
	return e.Err
}

// ErrUnbound is the cause of EvalErrors raised for unbound variables.
var ErrUnbound = errors.New("unbound variable")

// ErrDivisionByZero is the cause of EvalErrors raised for x / 0.
var ErrDivisionByZero = errors.New("division by zero")

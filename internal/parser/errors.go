package parser

import (
	"errors"
	"fmt"
)

// ParseError reports the first malformed token of the input.
type ParseError struct {
	Position int    // byte offset of the offending token
	Line     int    // 1-based
	Column   int    // 1-based, in bytes
	Expected string // what the grammar allowed here
	Found    string // the token actually found
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d (offset %d): expected %s, found %s",
		e.Line, e.Column, e.Position, e.Expected, e.Found)
}

// IsParseError reports whether err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

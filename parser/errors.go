package parser

import (
	"errors"
	"fmt"
)

// ErrParse matches every ParseError via errors.Is.
var ErrParse = errors.New("parser: invalid number")

// ParseError reports a rating or rating-count string that matched no
// expected numeric pattern.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("parse %q", e.Input)
	}
	return fmt.Sprintf("parse %q: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

func parseErr(input string, err error) error {
	return &ParseError{Input: input, Err: err}
}

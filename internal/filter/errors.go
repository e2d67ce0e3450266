package filter

import (
	"errors"
	"fmt"
)

// ErrInvalidFilter matches every *FilterError under errors.Is.
var ErrInvalidFilter = errors.New("invalid filter")

// Pre-defined causes shared by several parser and translator paths.
var (
	errUnsupportedNodeType = errors.New("unsupported node type")
	errNestingTooDeep      = errors.New("expression nesting exceeds maximum depth")
)

// LexError reports a malformed token: a bad number, an unterminated string
// or a character outside the filter alphabet.
type LexError struct {
	Pos int
	Msg string
}

func newLexError(pos int, msg string) *LexError {
	return &LexError{Pos: pos, Msg: msg}
}

func (e *LexError) Error() string {
	return fmt.Sprintf("%s at position %d", e.Msg, e.Pos)
}

// ParseError reports a grammar violation. Expected describes what the parser
// was looking for and Found the token it got instead.
type ParseError struct {
	Pos      int
	Expected string
	Found    string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v at position %d", e.Err, e.Pos)
	}
	return fmt.Sprintf("expected %s, found %s at position %d", e.Expected, e.Found, e.Pos)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// TranslationError reports an AST the translator cannot turn into SQL.
type TranslationError struct {
	Msg string
	Err error
}

func (e *TranslationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *TranslationError) Unwrap() error {
	return e.Err
}

// FilterError is the single failure returned by Translate. It carries the
// offending filter text and wraps the LexError, ParseError or
// TranslationError that aborted the call.
type FilterError struct {
	Filter string
	Err    error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("filter parsing failed: %v", e.Err)
}

func (e *FilterError) Unwrap() error {
	return e.Err
}

func (e *FilterError) Is(target error) bool {
	return target == ErrInvalidFilter
}

func wrapFilterError(filter string, err error) error {
	if err == nil {
		return nil
	}
	var fe *FilterError
	if errors.As(err, &fe) {
		return err
	}
	return &FilterError{Filter: filter, Err: err}
}

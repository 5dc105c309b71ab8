// Package dberr implements machdb's error taxonomy: every
// error surfaced to a caller is one of LexError, ParseError,
// SemanticError, StorageError, or ExecutionError, observable through the
// message prefix. It is built on github.com/juju/errors so that each
// kind survives annotation as the error crosses package boundaries
// (lexer -> parser -> planner -> executor). errors.Cause always
// recovers the originating *Error, even after several Annotatef calls.
package dberr

import (
	"fmt"

	"github.com/juju/errors"
)

// Kind identifies one of the error categories below.
type Kind string

const (
	LexError       Kind = "LexError"
	ParseError     Kind = "ParseError"
	SemanticError  Kind = "SemanticError"
	StorageError   Kind = "StorageError"
	ExecutionError Kind = "ExecutionError"
)

// Error is the concrete error type carrying a Kind. Spec §7 folds
// IOError into StorageError at the package boundary, so there is no
// separate IOError kind here; callers construct StorageError directly.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// New creates a new kinded error.
func New(kind Kind, format string, args ...any) error {
	return errors.Trace(&Error{Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

// Annotate wraps err with additional context while crossing a package
// boundary, preserving the original Kind recoverable via Cause.
func Annotate(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return errors.Annotatef(err, format, args...)
}

// Cause returns the innermost *Error, or nil if err is not (wrapping) one.
func Cause(err error) *Error {
	if err == nil {
		return nil
	}
	if kerr, ok := errors.Cause(err).(*Error); ok {
		return kerr
	}
	return nil
}

// KindOf reports the Kind of err, or ExecutionError if err does not carry
// a recognizable *Error (e.g. it originated outside this package).
func KindOf(err error) Kind {
	if kerr := Cause(err); kerr != nil {
		return kerr.Kind
	}
	return ExecutionError
}

package errortypes

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an error raised by the parser or renderer.
type Kind int

const (
	// SyntaxError: the lexer or parser could not make sense of the input.
	SyntaxError Kind = iota
	// StructuralError: the input parsed, but violates a structural rule
	// (e.g. a {param} referencing an undeclared key, a malformed {plural}).
	StructuralError
	// TypeMismatchError: an expression combined values of incompatible types.
	TypeMismatchError
	// AccessError: a null-safe or "!" assertion failed at render time.
	AccessError
	// ResolutionError: a referenced template, delegate, or global could not
	// be found.
	ResolutionError
	// PluginError: a user-registered function or print directive panicked
	// or returned an error.
	PluginError
)

func (k Kind) String() string {
	switch k {
	case SyntaxError:
		return "syntax error"
	case StructuralError:
		return "structural error"
	case TypeMismatchError:
		return "type mismatch"
	case AccessError:
		return "access error"
	case ResolutionError:
		return "resolution error"
	case PluginError:
		return "plugin error"
	default:
		return "error"
	}
}

// KindError pairs a Kind with an underlying cause, optionally with a source
// position via ErrFilePos.
type KindError struct {
	Kind  Kind
	cause error
}

func (e *KindError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.cause)
}

func (e *KindError) Cause() error { return e.cause }
func (e *KindError) Unwrap() error { return e.cause }

// Newf builds a KindError of the given kind, wrapping a formatted message.
func Newf(kind Kind, format string, args ...interface{}) error {
	return &KindError{Kind: kind, cause: fmt.Errorf(format, args...)}
}

// NewfAt builds a KindError of the given kind at a known source position.
func NewfAt(kind Kind, file string, line, col int, format string, args ...interface{}) error {
	return &KindError{Kind: kind, cause: errors.WithStack(NewErrFilePosf(file, line, col, format, args...))}
}

// KindOf returns the Kind of the first KindError found walking err's cause
// chain from the outermost error inward, or false if none is found.
func KindOf(err error) (Kind, bool) {
	for err != nil {
		if ke, ok := err.(*KindError); ok {
			return ke.Kind, true
		}
		cause := errors.Unwrap(err)
		if cause == nil {
			return 0, false
		}
		err = cause
	}
	return 0, false
}

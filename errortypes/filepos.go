// Package errortypes defines the typed error hierarchy raised while parsing
// and rendering templates.
package errortypes

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrFilePos extends the error interface to add details on the file position
// where the error occurred.
type ErrFilePos interface {
	error
	File() string
	Line() int
	Col() int
}

// NewErrFilePosf creates an error conforming to the ErrFilePos interface.
func NewErrFilePosf(file string, line, col int, format string, args ...interface{}) error {
	return &errFilePos{
		error: fmt.Errorf(format, args...),
		file:  file,
		line:  line,
		col:   col,
	}
}

// IsErrFilePos reports whether the root cause of err is an ErrFilePos.
// Wrapped errors are unwrapped via errors.Cause.
func IsErrFilePos(err error) bool {
	if err == nil {
		return false
	}
	_, ok := errors.Cause(err).(ErrFilePos)
	return ok
}

// ToErrFilePos converts err to an ErrFilePos if possible, or nil if not.
// If IsErrFilePos returns true, this will not return nil.
func ToErrFilePos(err error) ErrFilePos {
	if err == nil {
		return nil
	}
	if out, ok := errors.Cause(err).(ErrFilePos); ok {
		return out
	}
	return nil
}

var _ ErrFilePos = &errFilePos{}

type errFilePos struct {
	error
	file string
	line int
	col  int
}

func (e *errFilePos) File() string { return e.file }
func (e *errFilePos) Line() int    { return e.line }
func (e *errFilePos) Col() int     { return e.col }

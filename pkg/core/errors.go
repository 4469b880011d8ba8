package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a processing failure.
type ErrorKind string

// Error kinds.
const (
	ErrBuild     ErrorKind = "build"
	ErrLoad      ErrorKind = "load"
	ErrSchema    ErrorKind = "schema"
	ErrFit       ErrorKind = "fit"
	ErrTransform ErrorKind = "transform"
	ErrPersist   ErrorKind = "persist"
	ErrState     ErrorKind = "state"
)

// Error is the single error type surfaced by a transformation run.
// It carries the failure kind, the operation that was executing, and the
// original cause.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s failed: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s failed during %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap returns err as an *Error of the given kind. A nil err stays nil.
// An err that already is an *Error keeps its kind and gains no extra layer.
func Wrap(kind ErrorKind, op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

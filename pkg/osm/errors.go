package osm

import (
	"errors"
	"fmt"
)

var ErrMalformed = errors.New("malformed document")
var ErrInvalidPoint = errors.New("invalid point")
var ErrInvalidPath = errors.New("invalid path")
var ErrDanglingReference = errors.New("dangling reference")

type parseError struct {
	msg    string
	target error
	cause  error
}

func (p parseError) Error() string {
	if p.cause != nil {
		return fmt.Sprintf("%s: %s: %s", p.target.Error(), p.msg, p.cause.Error())
	}
	return fmt.Sprintf("%s: %s", p.target.Error(), p.msg)
}

func (p parseError) Is(target error) bool { return target == p.target }
func (p parseError) Unwrap() error        { return p.cause }

func newMalformedError(cause error) error {
	return &parseError{
		msg:    "failed to decode document",
		target: ErrMalformed,
		cause:  cause,
	}
}

func newInvalidPointError(msg string, cause error) error {
	return &parseError{
		msg:    msg,
		target: ErrInvalidPoint,
		cause:  cause,
	}
}

func newInvalidPathError(msg string) error {
	return &parseError{
		msg:    msg,
		target: ErrInvalidPath,
	}
}

// DanglingReferenceError is reported when a path references a point
// identifier that is not present in the document.
type DanglingReferenceError struct {
	PathID string
	Ref    string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("path %q references missing point %q", e.PathID, e.Ref)
}

func (e *DanglingReferenceError) Is(target error) bool {
	return target == ErrDanglingReference
}

package field

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument reports a call with unusable arguments: a non-field
	// where a field is required, bad filter parameters, a destroyed module or
	// stream information that cannot be used.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound reports a lookup of an unknown field or field type.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists reports a name already taken within a module.
	ErrAlreadyExists = errors.New("already exists")

	// ErrRead reports a resource that could not be opened or decoded.
	ErrRead = errors.New("image read failed")

	// ErrWrite reports a resource that could not be created or encoded.
	ErrWrite = errors.New("image write failed")
)

// UsageError is returned when a value of the wrong kind is passed where a
// field (or another typed argument) is required. It matches ErrInvalidArgument.
type UsageError struct {
	Op   string
	Arg  string
	Want string
	Got  any
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%s: argument %s: expected %s, got %T", e.Op, e.Arg, e.Want, e.Got)
}

func (e *UsageError) Unwrap() error { return ErrInvalidArgument }

// Status is a coarse result code for an operation.
type Status int

const (
	OK Status = iota
	ErrorGeneral
	ErrorArgument
	ErrorNotFound
	ErrorAlreadyExists
)

func (s Status) String() string {
	switch s {
	case OK:
		return "OK"
	case ErrorArgument:
		return "ERROR_ARGUMENT"
	case ErrorNotFound:
		return "ERROR_NOT_FOUND"
	case ErrorAlreadyExists:
		return "ERROR_ALREADY_EXISTS"
	}
	return "ERROR_GENERAL"
}

// StatusOf maps an error returned by this package to a Status.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, ErrInvalidArgument):
		return ErrorArgument
	case errors.Is(err, ErrNotFound):
		return ErrorNotFound
	case errors.Is(err, ErrAlreadyExists):
		return ErrorAlreadyExists
	}
	return ErrorGeneral
}

func invalidArgument(op, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", op, ErrInvalidArgument, fmt.Sprintf(format, args...))
}

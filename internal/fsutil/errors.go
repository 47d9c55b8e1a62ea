package fsutil

import (
	"errors"
	"io/fs"
	"syscall"
)

// ErrInvalidArgument marks errors raised before any I/O because a caller
// supplied a malformed or missing parameter.
var ErrInvalidArgument = errors.New("invalid argument")

// ArgumentError names the parameter that failed validation.
type ArgumentError struct {
	Name   string
	Reason string
}

func (e *ArgumentError) Error() string {
	if e.Reason == "" {
		return e.Name + " is invalid"
	}
	return e.Name + " is invalid: " + e.Reason
}

func (e *ArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// InvalidArgument builds an ArgumentError for name.
func InvalidArgument(name string) error {
	return &ArgumentError{Name: name}
}

// Kind is a coarse classification of an error returned by this module or
// by the filesystem underneath it.
type Kind int

const (
	KindNone Kind = iota
	KindInvalidArgument
	KindNotFound
	KindNotADirectory
	KindAlreadyExists
	KindIOFailure
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindNotFound:
		return "not_found"
	case KindNotADirectory:
		return "not_a_directory"
	case KindAlreadyExists:
		return "already_exists"
	case KindIOFailure:
		return "io_failure"
	default:
		return "unknown"
	}
}

// KindOf classifies err without unwrapping it for the caller.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, fs.ErrNotExist):
		return KindNotFound
	case errors.Is(err, syscall.ENOTDIR):
		return KindNotADirectory
	case errors.Is(err, fs.ErrExist):
		return KindAlreadyExists
	default:
		return KindIOFailure
	}
}

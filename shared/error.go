package shared

import (
	"errors"
	"fmt"
)

type ErrorSource int

const (
	ErrorSourceUser ErrorSource = iota
	ErrorSourceProvider
	ErrorSourceSink
	ErrorSourceSystem
	ErrorSourceUnknown
)

func (s ErrorSource) String() string {
	switch s {
	case ErrorSourceUser:
		return "user"
	case ErrorSourceProvider:
		return "provider"
	case ErrorSourceSink:
		return "sink"
	case ErrorSourceSystem:
		return "system"
	default:
		return "unknown"
	}
}

// Error is a system level failure that carries the component it originated from.
type Error struct {
	Source  ErrorSource
	Message string
	Err     error
}

func Errorf(source ErrorSource, format string, a ...any) *Error {
	return &Error{
		Source:  source,
		Message: fmt.Sprintf(format, a...),
	}
}

func Wrap(source ErrorSource, err error, format string, a ...any) *Error {
	return &Error{
		Source:  source,
		Message: fmt.Sprintf(format, a...),
		Err:     err,
	}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) ErrorSource() ErrorSource {
	return e.Source
}

type sourced interface {
	ErrorSource() ErrorSource
}

// SourceOf reports the source of the first error in the chain that knows its origin.
func SourceOf(err error) ErrorSource {
	if err == nil {
		return ErrorSourceUnknown
	}

	var s sourced
	if errors.As(err, &s) {
		return s.ErrorSource()
	}
	return ErrorSourceUnknown
}

package core

import (
	"strings"

	"github.com/pkg/errors"
)

// FieldError reports a validation failure on a single input field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError carries an optional top-level error plus any per-field
// failures. The API layer renders Fields as a field->message map and a bare
// Err as {"error": ...}.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err ValidationError) Error() string {
	if err.Err != nil {
		return err.Err.Error()
	}
	msgs := make([]string, 0, len(err.Fields))
	for _, fe := range err.Fields {
		msgs = append(msgs, fe.Field+": "+fe.Error)
	}
	return strings.Join(msgs, "; ")
}

// shutdownError signals an unrecoverable integrity problem; the server
// initiates a graceful shutdown when it surfaces.
type shutdownError struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdownError{message: msg}
}

func (s shutdownError) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdownError)
	return ok
}

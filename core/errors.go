package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// ImportError reports a spreadsheet whose shape cannot be trusted (missing tab, header row or required column).
// It always aborts the whole import of that file.
type ImportError struct {
	msg string
}

func NewImportError(msg string) error {
	return &ImportError{msg: msg}
}

func (err ImportError) Error() string {
	return err.msg
}

func IsImportError(err error) bool {
	_, ok := errors.Cause(err).(*ImportError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}

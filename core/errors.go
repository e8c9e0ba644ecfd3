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

// CodedError is a domain error carrying the machine-readable code surfaced
// to API clients alongside a human-readable detail.
type CodedError struct {
	Code   string
	Detail string
}

func NewCodedError(code, detail string) *CodedError {
	return &CodedError{Code: code, Detail: detail}
}

func (err CodedError) Error() string { return err.Detail }

// ErrorCode extracts the machine-readable code of err, if any.
func ErrorCode(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
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

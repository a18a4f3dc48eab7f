package errors

import (
	"errors"
	"fmt"
)

// ValidationError marks malformed or out-of-range caller input. Handlers
// translate it to a 400 with the violated constraint in the message.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func NewValidationError(msg string) error {
	return &ValidationError{Msg: msg}
}

func IsValidationError(err error) bool {
	var validationError *ValidationError
	ok := errors.As(err, &validationError)
	return ok
}

func NewIndexedValidationError(index int, msg string) error {
	return &ValidationError{Msg: fmt.Sprintf("Validation error at item %d: %s", index, msg)}
}

// IntegrityError marks a ledger row referencing an asset or account that
// no longer exists. The enclosing computation is aborted entirely: a
// silently skipped row would misstate a financial total.
type IntegrityError struct {
	Msg string
}

func (e *IntegrityError) Error() string {
	return e.Msg
}

func NewIntegrityError(format string, args ...interface{}) error {
	return &IntegrityError{Msg: fmt.Sprintf(format, args...)}
}

func IsIntegrityError(err error) bool {
	var integrityError *IntegrityError
	ok := errors.As(err, &integrityError)
	return ok
}

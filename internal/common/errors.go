package common

import (
	"errors"
	"fmt"
)

// Machine-readable error codes surfaced to API clients.
const (
	CodeNotFound      = "NOT_FOUND"
	CodeDuplicateName = "DUPLICATE_NAME"
	CodeDuplicateSKU  = "DUPLICATE_SKU"
	CodeValidation    = "VALIDATION"
	CodeArchived      = "ARCHIVED"
	CodeNotLeaf       = "NOT_LEAF"
	CodeStateConflict = "STATE_CONFLICT"
	CodeStorage       = "STORAGE"
)

// Error carries a machine-readable code alongside the human message so
// handlers can map failures to HTTP statuses without string matching.
type Error struct {
	Code    string
	Message string
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

func NewError(code string, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapStorage wraps an infrastructure failure (database, cache backend) so
// callers can distinguish it from business rule violations.
func WrapStorage(op string, err error) *Error {
	return &Error{Code: CodeStorage, Message: fmt.Sprintf("%s: %v", op, err), cause: err}
}

// CodeOf extracts the machine code from err, or CodeStorage for plain errors.
func CodeOf(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return CodeStorage
}

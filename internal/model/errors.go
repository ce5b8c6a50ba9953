package model

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes the errors surfaced by the store and facade.
type ErrorCode string

const (
	// CodeNotFound indicates the target id does not resolve to a record.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeValidation indicates invalid input: an unknown enum value, an
	// immutable field change, or a cross-clinic reference.
	CodeValidation ErrorCode = "VALIDATION"

	// CodeStorageUnavailable indicates the underlying storage failed or a
	// bounded storage call timed out.
	CodeStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"

	// CodeConflict indicates the per-record mutation lock could not be
	// acquired before the caller's deadline.
	CodeConflict ErrorCode = "CONFLICT"
)

// Error is the typed error returned by the store and the records facade.
type Error struct {
	Code    ErrorCode
	Message string

	// Entity and ID identify the affected record, when known.
	Entity string
	ID     string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Entity != "" && e.ID != "" {
		return fmt.Sprintf("%s: %s (%s %s)", e.Code, e.Message, e.Entity, e.ID)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewNotFound creates a NotFound error for an entity/id pair.
func NewNotFound(entity, id string) *Error {
	return &Error{Code: CodeNotFound, Message: "record not found", Entity: entity, ID: id}
}

// NewValidation creates a ValidationError with the given message.
func NewValidation(message string) *Error {
	return &Error{Code: CodeValidation, Message: message}
}

// NewStorageUnavailable wraps an underlying storage failure.
func NewStorageUnavailable(message string, err error) *Error {
	return &Error{Code: CodeStorageUnavailable, Message: message, Err: err}
}

// NewConflict creates a ConflictError for a contended record id.
func NewConflict(entity, id string) *Error {
	return &Error{Code: CodeConflict, Message: "record is locked by another mutation", Entity: entity, ID: id}
}

// IsNotFound reports whether err is (or wraps) a NotFound error.
func IsNotFound(err error) bool { return hasCode(err, CodeNotFound) }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool { return hasCode(err, CodeValidation) }

// IsStorageUnavailable reports whether err is (or wraps) a StorageUnavailable error.
func IsStorageUnavailable(err error) bool { return hasCode(err, CodeStorageUnavailable) }

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool { return hasCode(err, CodeConflict) }

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

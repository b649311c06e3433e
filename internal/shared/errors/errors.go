package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeValidation indicates invalid input data
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConflict indicates a conflict with existing data
	ErrorTypeConflict ErrorType = "conflict"
	// ErrorTypeAlreadyDone indicates an idempotent re-submission of a one-time action
	ErrorTypeAlreadyDone ErrorType = "already_done"
	// ErrorTypeNotEligible indicates a business rule rejected the action
	ErrorTypeNotEligible ErrorType = "not_eligible"
	// ErrorTypeBudgetExceeded indicates the action costs more than the player's budget
	ErrorTypeBudgetExceeded ErrorType = "budget_exceeded"
	// ErrorTypeUnknownReference indicates the client supplied an id absent from a catalog
	ErrorTypeUnknownReference ErrorType = "unknown_reference"
	// ErrorTypeUnavailable indicates the state store could not be read or written
	ErrorTypeUnavailable ErrorType = "unavailable"
	// ErrorTypePoolExhausted indicates a selection pool has no remaining candidates
	ErrorTypePoolExhausted ErrorType = "pool_exhausted"
	// ErrorTypeInconsistency indicates catalog or player data violates an assumed shape
	ErrorTypeInconsistency ErrorType = "inconsistency"
	// ErrorTypeUnauthorized indicates authentication failure
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	// ErrorTypeForbidden indicates insufficient permissions
	ErrorTypeForbidden ErrorType = "forbidden"
	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeMethodNotAllowed indicates an unsupported HTTP method
	ErrorTypeMethodNotAllowed ErrorType = "method_not_allowed"
)

// AppError is the base error type for application errors
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFoundf creates a not found error with formatting
func NotFoundf(format string, args ...interface{}) error {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: fmt.Sprintf(format, args...),
	}
}

// Validation creates a validation error
func Validation(message string) error {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// Validationf creates a validation error with formatting
func Validationf(format string, args ...interface{}) error {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: fmt.Sprintf(format, args...),
	}
}

// Conflictf creates a conflict error with formatting
func Conflictf(format string, args ...interface{}) error {
	return &AppError{
		Type:    ErrorTypeConflict,
		Message: fmt.Sprintf(format, args...),
	}
}

// AlreadyDonef creates an already-done error with formatting
func AlreadyDonef(format string, args ...interface{}) error {
	return &AppError{
		Type:    ErrorTypeAlreadyDone,
		Message: fmt.Sprintf(format, args...),
	}
}

// NotEligible creates a not-eligible error
func NotEligible(message string) error {
	return &AppError{
		Type:    ErrorTypeNotEligible,
		Message: message,
	}
}

// BudgetExceededf creates a budget-exceeded error with formatting
func BudgetExceededf(format string, args ...interface{}) error {
	return &AppError{
		Type:    ErrorTypeBudgetExceeded,
		Message: fmt.Sprintf(format, args...),
	}
}

// UnknownReferencef creates an unknown-reference error with formatting
func UnknownReferencef(format string, args ...interface{}) error {
	return &AppError{
		Type:    ErrorTypeUnknownReference,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapUnavailable wraps an error as a storage-unavailable error
func WrapUnavailable(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeUnavailable,
		Message: message,
		Err:     err,
	}
}

// PoolExhausted creates a pool-exhausted error
func PoolExhausted(message string) error {
	return &AppError{
		Type:    ErrorTypePoolExhausted,
		Message: message,
	}
}

// Inconsistencyf creates an inconsistency error with formatting
func Inconsistencyf(format string, args ...interface{}) error {
	return &AppError{
		Type:    ErrorTypeInconsistency,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapInconsistency wraps an error as an inconsistency error
func WrapInconsistency(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeInconsistency,
		Message: message,
		Err:     err,
	}
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// Unauthorized creates an unauthorized error
func Unauthorized(message string) error {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Message: message,
	}
}

// Forbidden creates a forbidden error
func Forbidden(message string) error {
	return &AppError{
		Type:    ErrorTypeForbidden,
		Message: message,
	}
}

// MethodNotAllowed creates a method not allowed error
func MethodNotAllowed(method string) error {
	return &AppError{
		Type:    ErrorTypeMethodNotAllowed,
		Message: fmt.Sprintf("method %s not allowed", method),
	}
}

// GetType returns the error type of an error
func GetType(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// Is reports whether err carries the given error type.
func Is(err error, t ErrorType) bool {
	return GetType(err) == t
}

package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates malformed input (bad range, unknown enum value)
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeConflict indicates a lost optimistic-concurrency race or a write against a final record
	ErrorTypeConflict ErrorType = "CONFLICT"

	// ErrorTypeAlreadyResolved indicates a transition on an item that already left its pending state
	ErrorTypeAlreadyResolved ErrorType = "ALREADY_RESOLVED"

	// ErrorTypeLocked indicates an automated write against a verified-locked record
	ErrorTypeLocked ErrorType = "LOCKED"

	// ErrorTypeGateFailed indicates promotion was refused because required gates did not pass
	ErrorTypeGateFailed ErrorType = "GATE_FAILED"

	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"

	// ErrorTypeExternal indicates an error from external service
	ErrorTypeExternal ErrorType = "EXTERNAL"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	// ID is the entity the error refers to, when there is one.
	ID      string
	Details any
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithID returns the error annotated with the entity id it refers to
func (e *AppError) WithID(id string) *AppError {
	e.ID = id
	return e
}

// WithDetails attaches a serializable payload (e.g. a gate check result)
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Message: message,
	}
}

// NewAlreadyResolvedError creates an error for a transition out of a terminal state
func NewAlreadyResolvedError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeAlreadyResolved,
		Message: message,
	}
}

// NewLockedRecordError creates an error for automated writes to a locked record
func NewLockedRecordError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeLocked,
		Message: message,
	}
}

// NewGateFailedError creates an error for a refused promotion
func NewGateFailedError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeGateFailed,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// NewExternalError creates a new external service error
func NewExternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeExternal,
		Message: message,
		Err:     err,
	}
}

// TypeOf returns the ErrorType of the first AppError in err's chain.
// Errors that are not AppErrors are reported as internal.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// Is reports whether err carries an AppError of the given type
func Is(err error, t ErrorType) bool {
	if err == nil {
		return false
	}
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}

func IsNotFound(err error) bool        { return Is(err, ErrorTypeNotFound) }
func IsValidation(err error) bool      { return Is(err, ErrorTypeValidation) }
func IsConflict(err error) bool        { return Is(err, ErrorTypeConflict) }
func IsAlreadyResolved(err error) bool { return Is(err, ErrorTypeAlreadyResolved) }
func IsLocked(err error) bool          { return Is(err, ErrorTypeLocked) }

// IsSystemic reports whether err signals infrastructure failure rather than a
// per-item domain outcome. Bulk operations abort on systemic errors only.
func IsSystemic(err error) bool {
	if err == nil {
		return false
	}
	switch TypeOf(err) {
	case ErrorTypeInternal, ErrorTypeExternal:
		return true
	default:
		return false
	}
}

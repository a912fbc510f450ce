package errors

import (
	"fmt"
	"net/http"
)

// Common application errors
var (
	ErrInvalidCredentials = NewAuthError("invalid email or password")
	ErrUserExists         = NewConflictError("user", "user exists")
	ErrUserNotFound       = NewNotFoundError("user", "user not found")
	ErrPasswordRequired   = NewValidationError("password", "password required")
	ErrInvalidUserData    = NewValidationError("", "invalid user data")
	ErrInvalidUserID      = NewValidationError("id", "invalid user id")
	ErrInvalidDepartment  = NewValidationError("department_id", "invalid department id")
)

// ValidationError represents a validation failure with field-level details
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return e.Message
}

// HTTPStatus returns the HTTP status code for this error
func (e *ValidationError) HTTPStatus() int {
	return http.StatusBadRequest
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	Message  string
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource, message string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		Message:  message,
	}
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// HTTPStatus returns the HTTP status code for this error
func (e *NotFoundError) HTTPStatus() int {
	return http.StatusNotFound
}

// ConflictError represents a duplicate value for a unique field.
// It maps to 400 rather than 409 to keep the signup contract clients already rely on.
type ConflictError struct {
	Resource string
	Message  string
}

// NewConflictError creates a new conflict error
func NewConflictError(resource, message string) *ConflictError {
	return &ConflictError{
		Resource: resource,
		Message:  message,
	}
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s already exists", e.Resource)
}

// HTTPStatus returns the HTTP status code for this error
func (e *ConflictError) HTTPStatus() int {
	return http.StatusBadRequest
}

// AuthError represents a failed authentication attempt.
// The message is the same for every cause.
type AuthError struct {
	Message string
}

// NewAuthError creates a new authentication error
func NewAuthError(message string) *AuthError {
	return &AuthError{Message: message}
}

// Error implements the error interface
func (e *AuthError) Error() string {
	return e.Message
}

// HTTPStatus returns the HTTP status code for this error
func (e *AuthError) HTTPStatus() int {
	return http.StatusUnauthorized
}

// ConfigError represents a fatal startup misconfiguration
type ConfigError struct {
	Key     string
	Message string
}

// NewConfigError creates a new configuration error
func NewConfigError(key, message string) *ConfigError {
	return &ConfigError{
		Key:     key,
		Message: message,
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("invalid configuration: %s: %s", e.Key, e.Message)
	}
	return fmt.Sprintf("invalid configuration: %s", e.Message)
}

// HTTPStatus returns the HTTP status code for this error
func (e *ConfigError) HTTPStatus() int {
	return http.StatusInternalServerError
}

// InternalError represents an internal server error with context
type InternalError struct {
	Message string
	Err     error
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *InternalError {
	return &InternalError{
		Message: message,
		Err:     err,
	}
}

// Error implements the error interface
func (e *InternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *InternalError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code for this error
func (e *InternalError) HTTPStatus() int {
	return http.StatusInternalServerError
}

// HTTPStatuser is implemented by errors that know their HTTP status code
type HTTPStatuser interface {
	HTTPStatus() int
}

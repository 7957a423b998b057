package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError represents a domain-specific error with a code and message
type DomainError struct {
	Code    string
	Message string
	Err     error // underlying error for wrapping
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is and errors.As
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches domain errors by code, so wrapped or re-worded copies still
// compare equal to their predefined base error
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with domain error context
func WrapError(domainErr *DomainError, err error) *DomainError {
	return &DomainError{
		Code:    domainErr.Code,
		Message: domainErr.Message,
		Err:     err,
	}
}

// WithMessage keeps a domain error's code but replaces the client-facing
// message. Used for the password-age hint, which is the one authentication
// failure allowed to carry a specific reason.
func WithMessage(domainErr *DomainError, message string) *DomainError {
	return &DomainError{
		Code:    domainErr.Code,
		Message: message,
	}
}

// Predefined domain errors
var (
	// User errors
	ErrUserNotFound   = NewDomainError("USER_NOT_FOUND", "user not found")
	ErrEmailExists    = NewDomainError("EMAIL_EXISTS", "email already in use")
	ErrUsernameExists = NewDomainError("USERNAME_EXISTS", "username already in use")

	// Authentication errors
	ErrUnauthorized       = NewDomainError("UNAUTHORIZED", "unauthorized")
	ErrInvalidCredentials = NewDomainError("INVALID_CREDENTIALS", "invalid credentials")
	ErrInvalidToken       = NewDomainError("INVALID_TOKEN", "invalid token")
	ErrTokenExpired       = NewDomainError("TOKEN_EXPIRED", "Token has expired")
	ErrStaleToken         = NewDomainError("STALE_TOKEN", "token is no longer valid")
	ErrInvalidAccessCode  = NewDomainError("INVALID_ACCESS_CODE", "invalid or expired access code")
	ErrNotConfirmed       = NewDomainError("NOT_CONFIRMED", "account is not confirmed")
	ErrAlreadyConfirmed   = NewDomainError("ALREADY_CONFIRMED", "account is already confirmed")
	ErrSessionNotFound    = NewDomainError("SESSION_NOT_FOUND", "session not found")

	// Validation errors
	ErrInvalidInput      = NewDomainError("INVALID_INPUT", "invalid input")
	ErrPasswordMismatch  = NewDomainError("PASSWORD_MISMATCH", "passwords do not match")
	ErrSamePassword      = NewDomainError("SAME_PASSWORD", "new password must differ from the current one")
	ErrSameEmail         = NewDomainError("SAME_EMAIL", "new email must differ from the current one")
	ErrIncorrectPassword = NewDomainError("INCORRECT_PASSWORD", "current password is incorrect")

	// System errors
	ErrInternal           = NewDomainError("INTERNAL_ERROR", "internal server error")
	ErrServiceUnavailable = NewDomainError("SERVICE_UNAVAILABLE", "service unavailable")
)

// IsDomainError checks if an error is a domain error
func IsDomainError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr)
}

// GetDomainError extracts the domain error from an error
func GetDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// ToHTTPStatus maps domain errors to HTTP status codes
// This should only be used in the handler/presentation layer
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErrorToHTTPStatus(domainErr)
	}

	return http.StatusInternalServerError
}

func domainErrorToHTTPStatus(err *DomainError) int {
	switch err.Code {
	// 400 Bad Request
	case "INVALID_INPUT", "PASSWORD_MISMATCH", "SAME_PASSWORD", "SAME_EMAIL",
		"INCORRECT_PASSWORD", "ALREADY_CONFIRMED":
		return http.StatusBadRequest

	// 401 Unauthorized
	case "UNAUTHORIZED", "INVALID_CREDENTIALS", "INVALID_TOKEN", "TOKEN_EXPIRED",
		"STALE_TOKEN", "INVALID_ACCESS_CODE", "NOT_CONFIRMED", "SESSION_NOT_FOUND":
		return http.StatusUnauthorized

	// 404 Not Found
	case "USER_NOT_FOUND":
		return http.StatusNotFound

	// 409 Conflict
	case "EMAIL_EXISTS", "USERNAME_EXISTS":
		return http.StatusConflict

	// 503 Service Unavailable
	case "SERVICE_UNAVAILABLE":
		return http.StatusServiceUnavailable

	// 500 Internal Server Error (default)
	default:
		return http.StatusInternalServerError
	}
}

// GetErrorMessage safely extracts error message
func GetErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}

	return err.Error()
}

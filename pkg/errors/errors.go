package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode string

// Generic error codes
const (
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists     ErrorCode = "ALREADY_EXISTS"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden         ErrorCode = "FORBIDDEN"
	ErrCodeConflict          ErrorCode = "CONFLICT"
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Raised by stores that do not support an operation
	ErrCodeNotImplemented ErrorCode = "NOT_IMPLEMENTED"
	// Startup failures such as an unusable signing credential
	ErrCodeFatal ErrorCode = "FATAL"
)

// Resource message codes. The values are the resource keys shown to admins.
const (
	ErrCodeClientExistsKey            ErrorCode = "ClientExistsKey"
	ErrCodeClientDoesNotExist         ErrorCode = "ClientDoesNotExist"
	ErrCodeClientSecretDoesNotExist   ErrorCode = "ClientSecretDoesNotExist"
	ErrCodeClientClaimDoesNotExist    ErrorCode = "ClientClaimDoesNotExist"
	ErrCodeClientPropertyDoesNotExist ErrorCode = "ClientPropertyDoesNotExist"
	ErrCodeClientPropertyExistsKey    ErrorCode = "ClientPropertyExistsKey"

	ErrCodeApiResourceExistsKey            ErrorCode = "ApiResourceExistsKey"
	ErrCodeApiResourceDoesNotExist         ErrorCode = "ApiResourceDoesNotExist"
	ErrCodeApiSecretDoesNotExist           ErrorCode = "ApiSecretDoesNotExist"
	ErrCodeApiResourcePropertyDoesNotExist ErrorCode = "ApiResourcePropertyDoesNotExist"
	ErrCodeApiResourcePropertyExistsKey    ErrorCode = "ApiResourcePropertyExistsKey"

	ErrCodeApiScopeExistsKey            ErrorCode = "ApiScopeExistsKey"
	ErrCodeApiScopeDoesNotExist         ErrorCode = "ApiScopeDoesNotExist"
	ErrCodeApiScopePropertyDoesNotExist ErrorCode = "ApiScopePropertyDoesNotExist"
	ErrCodeApiScopePropertyExistsKey    ErrorCode = "ApiScopePropertyExistsKey"

	ErrCodeIdentityResourceExistsKey            ErrorCode = "IdentityResourceExistsKey"
	ErrCodeIdentityResourceDoesNotExist         ErrorCode = "IdentityResourceDoesNotExist"
	ErrCodeIdentityResourcePropertyDoesNotExist ErrorCode = "IdentityResourcePropertyDoesNotExist"
	ErrCodeIdentityResourcePropertyExistsKey    ErrorCode = "IdentityResourcePropertyExistsKey"

	ErrCodeKeyDoesNotExist ErrorCode = "KeyDoesNotExist"

	ErrCodePersistedGrantDoesNotExist              ErrorCode = "PersistedGrantDoesNotExist"
	ErrCodePersistedGrantWithSubjectIdDoesNotExist ErrorCode = "PersistedGrantWithSubjectIdDoesNotExist"

	ErrCodeUserExistsKey            ErrorCode = "UserExistsKey"
	ErrCodeUserDoesNotExist         ErrorCode = "UserDoesNotExist"
	ErrCodeUserClaimDoesNotExist    ErrorCode = "UserClaimDoesNotExist"
	ErrCodeUserProviderDoesNotExist ErrorCode = "UserProviderDoesNotExist"
	ErrCodeRoleExistsKey            ErrorCode = "RoleExistsKey"
	ErrCodeRoleDoesNotExist         ErrorCode = "RoleDoesNotExist"
	ErrCodeRoleClaimDoesNotExist    ErrorCode = "RoleClaimDoesNotExist"
)

// Error represents a structured error with code, message, and optional details
type Error struct {
	Code    ErrorCode              // Unique error code
	Message string                 // Human-readable error message
	Details map[string]interface{} // Optional additional details
	Err     error                  // Wrapped underlying error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithDetails adds multiple details to the error
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *Error) HTTPStatusCode() int {
	return MapErrorCodeToHTTPStatus(e.Code)
}

// New creates a new Error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with code and message
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Wrapf wraps an existing error with code and formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// IsCode checks if an error has a specific error code
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error
// Returns ErrCodeInternal if the error is not a structured Error
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// GetDetails extracts the details from an error
// Returns nil if the error is not a structured Error
func GetDetails(err error) map[string]interface{} {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}

// MapErrorCodeToHTTPStatus maps error codes to HTTP status codes
func MapErrorCodeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidInput, ErrCodeValidationFailed:
		return http.StatusBadRequest

	case ErrCodeUnauthorized:
		return http.StatusUnauthorized

	case ErrCodeForbidden:
		return http.StatusForbidden

	case ErrCodeNotFound,
		ErrCodeClientDoesNotExist, ErrCodeClientSecretDoesNotExist,
		ErrCodeClientClaimDoesNotExist, ErrCodeClientPropertyDoesNotExist,
		ErrCodeApiResourceDoesNotExist, ErrCodeApiSecretDoesNotExist,
		ErrCodeApiResourcePropertyDoesNotExist,
		ErrCodeApiScopeDoesNotExist, ErrCodeApiScopePropertyDoesNotExist,
		ErrCodeIdentityResourceDoesNotExist, ErrCodeIdentityResourcePropertyDoesNotExist,
		ErrCodeKeyDoesNotExist,
		ErrCodePersistedGrantDoesNotExist, ErrCodePersistedGrantWithSubjectIdDoesNotExist,
		ErrCodeUserDoesNotExist, ErrCodeUserClaimDoesNotExist, ErrCodeUserProviderDoesNotExist,
		ErrCodeRoleDoesNotExist, ErrCodeRoleClaimDoesNotExist:
		return http.StatusNotFound

	case ErrCodeConflict, ErrCodeAlreadyExists,
		ErrCodeClientExistsKey, ErrCodeClientPropertyExistsKey,
		ErrCodeApiResourceExistsKey, ErrCodeApiResourcePropertyExistsKey,
		ErrCodeApiScopeExistsKey, ErrCodeApiScopePropertyExistsKey,
		ErrCodeIdentityResourceExistsKey, ErrCodeIdentityResourcePropertyExistsKey,
		ErrCodeUserExistsKey, ErrCodeRoleExistsKey:
		return http.StatusConflict

	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests

	case ErrCodeNotImplemented:
		return http.StatusNotImplemented

	default:
		return http.StatusInternalServerError
	}
}

// NotFound creates a "not found" error
func NotFound(resourceType, identifier string) *Error {
	return Newf(ErrCodeNotFound, "%s not found: %s", resourceType, identifier)
}

// AlreadyExists creates an "already exists" error
func AlreadyExists(resourceType, identifier string) *Error {
	return Newf(ErrCodeAlreadyExists, "%s already exists: %s", resourceType, identifier)
}

// InvalidInput creates an "invalid input" error
func InvalidInput(field, reason string) *Error {
	return New(ErrCodeInvalidInput, fmt.Sprintf("invalid %s: %s", field, reason))
}

// Forbidden creates a "forbidden" error
func Forbidden(message string) *Error {
	return New(ErrCodeForbidden, message)
}

// InternalWrap wraps an internal error
func InternalWrap(err error, message string) *Error {
	return Wrap(err, ErrCodeInternal, message)
}

// ValidationFailed creates a "validation failed" error
func ValidationFailed(details map[string]interface{}) *Error {
	return New(ErrCodeValidationFailed, "validation failed").WithDetails(details)
}

// DoesNotExist creates a resource-specific "does not exist" error
func DoesNotExist(code ErrorCode, format string, args ...interface{}) *Error {
	return Newf(code, format, args...)
}

// NotImplemented creates an error for operations that are deliberately stubbed
func NotImplemented(operation string) *Error {
	return Newf(ErrCodeNotImplemented, "%s is not implemented", operation)
}

// Fatal wraps a startup failure the process must not recover from
func Fatal(err error, message string) *Error {
	if err == nil {
		return New(ErrCodeFatal, message)
	}
	return Wrap(err, ErrCodeFatal, message)
}

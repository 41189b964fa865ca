package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeValidation      ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound        ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized    ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden       ErrorType = "FORBIDDEN"
	ErrorTypeConflict        ErrorType = "CONFLICT"
	ErrorTypeTooManyRequests ErrorType = "TOO_MANY_REQUESTS"
	ErrorTypeInternal        ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidBody      ErrorCode = "INVALID_BODY"
	ErrCodeInvalidID        ErrorCode = "INVALID_ID"
	ErrCodeInvalidType      ErrorCode = "INVALID_PRINCIPAL_TYPE"

	ErrCodeMissingToken       ErrorCode = "MISSING_TOKEN"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
	ErrCodeInvalidTokenType   ErrorCode = "INVALID_TOKEN_TYPE"
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodePrincipalInactive  ErrorCode = "PRINCIPAL_INACTIVE"
	ErrCodeNotAuthenticated   ErrorCode = "NOT_AUTHENTICATED"

	ErrCodeAccessDenied      ErrorCode = "ACCESS_DENIED"
	ErrCodeInsufficientLevel ErrorCode = "INSUFFICIENT_ROLE"

	ErrCodeRoleNotFound       ErrorCode = "ROLE_NOT_FOUND"
	ErrCodeRoleExists         ErrorCode = "ROLE_EXISTS"
	ErrCodeRoleInUse          ErrorCode = "ROLE_IN_USE"
	ErrCodeModuleNotFound     ErrorCode = "MODULE_NOT_FOUND"
	ErrCodeModuleExists       ErrorCode = "MODULE_EXISTS"
	ErrCodeModuleInUse        ErrorCode = "MODULE_IN_USE"
	ErrCodeSubModuleNotFound  ErrorCode = "SUBMODULE_NOT_FOUND"
	ErrCodeSubModuleExists    ErrorCode = "SUBMODULE_EXISTS"
	ErrCodePermissionNotFound ErrorCode = "PERMISSION_NOT_FOUND"
	ErrCodePermissionExists   ErrorCode = "PERMISSION_EXISTS"
	ErrCodePrincipalNotFound  ErrorCode = "PRINCIPAL_NOT_FOUND"
	ErrCodeEmailTaken         ErrorCode = "EMAIL_TAKEN"
	ErrCodeNotDeleted         ErrorCode = "NOT_DELETED"

	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
	ErrCodeInternal    ErrorCode = "INTERNAL_ERROR"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

var statusByType = map[ErrorType]int{
	ErrorTypeValidation:      http.StatusBadRequest,
	ErrorTypeUnauthorized:    http.StatusUnauthorized,
	ErrorTypeForbidden:       http.StatusForbidden,
	ErrorTypeNotFound:        http.StatusNotFound,
	ErrorTypeConflict:        http.StatusConflict,
	ErrorTypeTooManyRequests: http.StatusTooManyRequests,
	ErrorTypeInternal:        http.StatusInternalServerError,
}

func newAppError(t ErrorType, code ErrorCode, message string) *AppError {
	return &AppError{Type: t, Code: code, Message: message, StatusCode: statusByType[t]}
}

// Error prefers the first field failure so logs name the offending field.
func (e *AppError) Error() string {
	if v, ok := e.Details.(ValidationErrors); ok && len(v.Errors) > 0 {
		return v.Errors[0].Message
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause returns a copy so shared sentinel errors are never mutated.
func (e *AppError) WithCause(cause error) *AppError {
	cp := *e
	cp.Cause = cause
	return &cp
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeValidation, code, message)
}

func NewValidationFieldErrors(errs []ValidationError) *AppError {
	return newAppError(ErrorTypeValidation, ErrCodeValidationFailed, "Validation failed").
		WithDetails(ValidationErrors{Errors: errs})
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return NewValidationFieldErrors([]ValidationError{{Field: field, Message: message, Code: string(code)}})
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeNotFound, code, message)
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeUnauthorized, code, message)
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeForbidden, code, message)
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeConflict, code, message)
}

func NewTooManyRequestsError(message string) *AppError {
	return newAppError(ErrorTypeTooManyRequests, ErrCodeRateLimited, message)
}

// NewInternalError hides cause from clients; it is kept for logs only.
func NewInternalError(message string, cause error) *AppError {
	return newAppError(ErrorTypeInternal, ErrCodeInternal, message).WithCause(cause)
}

var (
	ErrMissingToken       = NewUnauthorizedError("Authorization token required", ErrCodeMissingToken)
	ErrInvalidToken       = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
	ErrInvalidTokenType   = NewUnauthorizedError("Invalid token type", ErrCodeInvalidTokenType)
	ErrInvalidCredentials = NewUnauthorizedError("Invalid email or password", ErrCodeInvalidCredentials)
	ErrPrincipalInactive  = NewUnauthorizedError("Account is inactive or no longer exists", ErrCodePrincipalInactive)
	ErrNotAuthenticated   = NewUnauthorizedError("Not authenticated", ErrCodeNotAuthenticated)
	ErrInsufficientRole   = NewForbiddenError("Insufficient role to access this resource", ErrCodeInsufficientLevel)
)

// AsAppError unwraps err looking for an *AppError.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}

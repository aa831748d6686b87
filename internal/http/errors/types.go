package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError is the standard application error shape. HTTPStatus and Err are
// never serialized; Err is the original cause, kept for logs.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError.
func New(status int, code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
	}
}

// FromError converts any error into an AppError, looking through wrapping.
// Unknown errors become a generic internal error that keeps the original
// as cause.
func FromError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return ErrInternalServerError.WithCause(err)
}

// WithDetail returns a copy with the detail set, so the predefined
// errors below are never mutated.
func (e *AppError) WithDetail(detail string) *AppError {
	newErr := *e
	newErr.Detail = detail
	return &newErr
}

// WithCause returns a copy carrying the original error.
func (e *AppError) WithCause(err error) *AppError {
	newErr := *e
	newErr.Err = err
	return &newErr
}

// Predefined errors, grouped by status. Handlers hand these out
// (usually through WithDetail) and WriteError renders them.

// 400 Bad Request
var (
	ErrBadRequest       = New(http.StatusBadRequest, "BAD_REQUEST", "The request is malformed or missing parameters.")
	ErrInvalidJSON      = New(http.StatusBadRequest, "INVALID_JSON", "The request body is not valid JSON.")
	ErrMissingFields    = New(http.StatusBadRequest, "MISSING_FIELDS", "Required fields are missing from the request.")
	ErrInvalidFormat    = New(http.StatusBadRequest, "INVALID_FORMAT", "One or more fields have an invalid format.")
	ErrCodeInvalid      = New(http.StatusBadRequest, "CODE_INVALID", "The verification code is wrong, expired or used up.")
	ErrPasswordMismatch = New(http.StatusBadRequest, "PASSWORD_MISMATCH", "The new password and its confirmation do not match.")
	ErrWeakPassword     = New(http.StatusBadRequest, "WEAK_PASSWORD", "The password does not meet the security requirements.")
	ErrBodyTooLarge     = New(http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "The request body exceeds the maximum allowed size.")
)

// 401 Unauthorized
var (
	ErrUnauthorized       = New(http.StatusUnauthorized, "UNAUTHORIZED", "Authentication is required.")
	ErrInvalidCredentials = New(http.StatusUnauthorized, "INVALID_CREDENTIALS", "The identifier or password is incorrect.")
	ErrTokenMissing       = New(http.StatusUnauthorized, "TOKEN_MISSING", "No authentication token was provided.")
	ErrTokenExpired       = New(http.StatusUnauthorized, "TOKEN_EXPIRED", "The access token has expired.")
	ErrTokenInvalid       = New(http.StatusUnauthorized, "TOKEN_INVALID", "The token is invalid or malformed.")
	ErrTokenReuse         = New(http.StatusUnauthorized, "TOKEN_REUSE", "The refresh token was already rotated. The session has been revoked.")
	ErrSessionRevoked     = New(http.StatusUnauthorized, "SESSION_REVOKED", "The session has been revoked.")
	ErrSessionExpired     = New(http.StatusUnauthorized, "SESSION_EXPIRED", "The session has expired, please sign in again.")
)

// 403 / 404 / 405
var (
	ErrForbidden        = New(http.StatusForbidden, "FORBIDDEN", "You do not have permission to perform this action.")
	ErrNotFound         = New(http.StatusNotFound, "NOT_FOUND", "The requested resource was not found.")
	ErrRouteNotFound    = New(http.StatusNotFound, "ROUTE_NOT_FOUND", "The requested route does not exist.")
	ErrMethodNotAllowed = New(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "The HTTP method is not allowed for this resource.")
)

// 409 / 423 / 429
var (
	ErrDuplicateIdentifier = New(http.StatusConflict, "DUPLICATE_IDENTIFIER", "The username, email or phone is already registered.")
	ErrAccountLocked       = New(http.StatusLocked, "ACCOUNT_LOCKED", "The account is temporarily locked after repeated failures.")
	ErrTooManyRequests     = New(http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "Too many requests. Try again later.")
)

// 500+
var (
	ErrInternalServerError = New(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred.")
	ErrServiceUnavailable  = New(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "The service is temporarily unavailable.")
)

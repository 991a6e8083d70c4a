package errors

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/lib/pq"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches on Code so cloned errors compare equal to their template.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidInput             = New("INVALID_INPUT", http.StatusBadRequest, "invalid request data")
	ErrAlreadyExists            = New("ALREADY_EXISTS", http.StatusBadRequest, "user already exists")
	ErrInvalidRole              = New("INVALID_ROLE", http.StatusBadRequest, "invalid or missing role provided")
	ErrRoleNotFound             = New("ROLE_NOT_FOUND", http.StatusBadRequest, "role not found")
	ErrInvalidCredentials       = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid credentials")
	ErrPasswordLoginUnavailable = New("PASSWORD_LOGIN_UNAVAILABLE", http.StatusUnauthorized, "password login is not available for this account")
	ErrInactiveAccount          = New("ACCOUNT_INACTIVE", http.StatusForbidden, "your account has been banned")
	ErrInvalidToken             = New("INVALID_TOKEN", http.StatusBadRequest, "invalid refresh token")
	ErrInvalidExternalToken     = New("INVALID_EXTERNAL_TOKEN", http.StatusUnauthorized, "invalid external identity token")
	ErrUserNotFound             = New("USER_NOT_FOUND", http.StatusNotFound, "user not found")
	ErrAlreadyBanned            = New("ALREADY_BANNED", http.StatusConflict, "user is already banned")
	ErrNotBanned                = New("NOT_BANNED", http.StatusConflict, "user is not banned")
	ErrTransient                = New("TRANSIENT_FAILURE", http.StatusServiceUnavailable, "a database connection error occurred, please try again later")
	ErrRegistrationFailed       = New("REGISTRATION_FAILED", http.StatusBadRequest, "an unexpected error occurred, please try again")
	ErrLoginFailed              = New("LOGIN_FAILED", http.StatusUnauthorized, "login failed, please try again")
	ErrLogoutFailed             = New("LOGOUT_FAILED", http.StatusBadRequest, "logout failed, please try again")
	ErrRefreshFailed            = New("REFRESH_FAILED", http.StatusBadRequest, "token refresh failed, please try again")
	ErrConfig                   = New("CONFIG_ERROR", http.StatusInternalServerError, "invalid configuration")
	ErrCryptoFormat             = New("CRYPTO_FORMAT", http.StatusInternalServerError, "malformed password hash")
	ErrNotFound                 = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden                = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized             = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrInternal                 = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss                = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Opaque hides err behind the catch-all template, promoting connectivity
// failures to ErrTransient. Typed errors pass through untouched.
func Opaque(err error, catchAll *Error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if IsTransient(err) {
		return Wrap(err, ErrTransient.Code, ErrTransient.Status, ErrTransient.Message)
	}
	return Wrap(err, catchAll.Code, catchAll.Status, catchAll.Message)
}

// IsTransient reports whether err looks like a store connectivity failure that
// a caller may retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		// class 08: connection exception, 57P0x: server shutdown / cannot connect now
		return strings.HasPrefix(code, "08") || strings.HasPrefix(code, "57P")
	}
	return false
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

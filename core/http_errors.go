// Package core provides the HTTP response envelope and error vocabulary
// shared by every route module.
package core

import "net/http"

// HTTPError represents an HTTP error with a status code and a stable
// machine-readable key. The key doubles as the translation key for the
// localized error surface (e.g. "user.same_password").
type HTTPError struct {
	Code int    // HTTP status code
	Key  string // stable error key
}

// Error implements the error interface.
func (e HTTPError) Error() string {
	return e.Key
}

// WithKey returns a copy of the error with a more specific key, keeping the
// status code.
func (e HTTPError) WithKey(key string) HTTPError {
	return HTTPError{Code: e.Code, Key: key}
}

// Generic 4xx/5xx errors. Domain modules derive specific keys from these
// with WithKey or NewHTTPError.
var (
	ErrBadRequest          = HTTPError{Code: http.StatusBadRequest, Key: "bad_request"}
	ErrUnauthorized        = HTTPError{Code: http.StatusUnauthorized, Key: "auth.unauthorized"}
	ErrForbidden           = HTTPError{Code: http.StatusForbidden, Key: "forbidden"}
	ErrNotFound            = HTTPError{Code: http.StatusNotFound, Key: "not_found"}
	ErrConflict            = HTTPError{Code: http.StatusConflict, Key: "conflict"}
	ErrUnprocessableEntity = HTTPError{Code: http.StatusUnprocessableEntity, Key: "unprocessable_entity"}
	ErrTooManyRequests     = HTTPError{Code: http.StatusTooManyRequests, Key: "too_many_requests"}
	ErrInternalServerError = HTTPError{Code: http.StatusInternalServerError, Key: "internal_server_error"}
	ErrBadGateway          = HTTPError{Code: http.StatusBadGateway, Key: "bad_gateway"}
	ErrServiceUnavailable  = HTTPError{Code: http.StatusServiceUnavailable, Key: "service_unavailable"}
)

// NewHTTPError creates a custom HTTP error with the given status code and key.
func NewHTTPError(code int, key string) HTTPError {
	return HTTPError{Code: code, Key: key}
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// Sentinel errors for error classification
var (
	ErrBadRequest          = errors.New(http.StatusText(http.StatusBadRequest))
	ErrInternalServerError = errors.New(http.StatusText(http.StatusInternalServerError))
	ErrBadGateway          = errors.New(http.StatusText(http.StatusBadGateway))
	ErrGatewayTimeout      = errors.New(http.StatusText(http.StatusGatewayTimeout))
)

// Error represents a structured API error response
type Error struct {
	cause    error  // for logs
	message  string // safe user-facing message
	httpCode int    // also used as API error code
}

// HTTPCode returns the HTTP status code for this error
func (e *Error) HTTPCode() int {
	return e.httpCode
}

func (e *Error) Error() string {
	return e.message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches the wrapped cause
func (e *Error) Is(target error) bool {
	return errors.Is(e.cause, target)
}

// Cause returns the original error for logging purposes
func (e *Error) Cause() error {
	return e.cause
}

// MarshalJSON implements json.Marshaler interface
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"code":    e.httpCode,
		"message": e.message,
	})
}

// BadRequest exposes the cause; 4xx messages are safe to show
func BadRequest(cause error) *Error {
	return &Error{
		cause:    cause,
		message:  cause.Error(),
		httpCode: http.StatusBadRequest,
	}
}

func InternalServerError(cause error) *Error {
	return newOpaque(cause, http.StatusInternalServerError)
}

// BadGateway reports that the JSON-RPC provider failed us. The provider URL may
// carry an API key, so the cause is never shown.
func BadGateway(cause error) *Error {
	return newOpaque(cause, http.StatusBadGateway)
}

func GatewayTimeout(cause error) *Error {
	return newOpaque(cause, http.StatusGatewayTimeout)
}

func newOpaque(cause error, code int) *Error {
	return &Error{
		cause:    cause,
		message:  http.StatusText(code),
		httpCode: code,
	}
}

// Wrap transforms any error into a safe API error.
// API errors are returned unchanged; deadlines map to 504, everything else to 500.
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return GatewayTimeout(err)
	}
	return InternalServerError(err)
}

// Package apperr defines the error taxonomy shared by the scope, analytics
// and report layers, and maps it onto HTTP semantics.
//
// Callers wrap these sentinels with fmt.Errorf("...: %w", ...) and test with
// errors.Is. Insufficient data is not an error; it is a tag on results.
package apperr

import (
	"context"
	"errors"
	"net/http"
)

var (
	// ErrDenied means scope could not be resolved (unknown role, missing
	// assignment) or the caller lacks the capability for the operation.
	ErrDenied = errors.New("access denied")

	// ErrInvalidInput means a malformed id, month or window was supplied.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstreamUnavailable means the store or the narrative generator
	// failed after bounded retries.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// Status returns the HTTP status code for err.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Code returns a short machine-readable code for err.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrDenied):
		return "denied"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "internal"
	}
}

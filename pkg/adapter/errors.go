package adapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies how a backend call failed.
type Kind string

const (
	KindRateLimited     Kind = "rate_limited"
	KindClient          Kind = "client_error"
	KindServer          Kind = "server_error"
	KindUnreachable     Kind = "unreachable"
	KindMisconfigured   Kind = "misconfigured"
	KindInvalidResponse Kind = "invalid_response"
)

// StatusUnreachable is the synthetic status carried by errors that never
// produced an HTTP response.
const StatusUnreachable = 0

// ──────────────────────────────────────────────────────────────────────────────
// Error: classified failure of a single adapter call
// ──────────────────────────────────────────────────────────────────────────────

type Error struct {
	Backend    string `json:"backend"`
	Kind       Kind   `json:"kind"`
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	TraceID    string `json:"trace_id,omitempty"`
	RetryAfter string `json:"retry_after,omitempty"`
	Field      string `json:"field,omitempty"`
	Err        error  `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s API error %d: %s", e.Backend, e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err is an adapter error of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == kind
}

// ──────────────────────────────────────────────────────────────────────────────
// Constructors
// ──────────────────────────────────────────────────────────────────────────────

// RetryAfter returns the Retry-After header verbatim, or "unknown".
func RetryAfter(h http.Header) string {
	if v := h.Get("Retry-After"); v != "" {
		return v
	}
	return "unknown"
}

func ErrRateLimited(backend string, h http.Header) *Error {
	retry := RetryAfter(h)
	return &Error{
		Backend:    backend,
		Kind:       KindRateLimited,
		StatusCode: http.StatusTooManyRequests,
		Message:    fmt.Sprintf("Rate limited. Retry after %s seconds.", retry),
		RetryAfter: retry,
	}
}

// ErrStatus classifies an HTTP failure status on the 4xx/5xx boundary.
func ErrStatus(backend string, status int, message, traceID string) *Error {
	kind := KindClient
	if status >= http.StatusInternalServerError {
		kind = KindServer
	}
	return &Error{
		Backend:    backend,
		Kind:       kind,
		StatusCode: status,
		Message:    message,
		TraceID:    traceID,
	}
}

func ErrUnreachable(backend, reason string, cause error) *Error {
	return &Error{
		Backend:    backend,
		Kind:       KindUnreachable,
		StatusCode: StatusUnreachable,
		Message:    reason,
		Err:        cause,
	}
}

// ErrNotConfigured is returned for every use of an adapter that was never
// constructed because its host was not set.
func ErrNotConfigured(backend, hostVar string) *Error {
	return &Error{
		Backend:    backend,
		Kind:       KindUnreachable,
		StatusCode: StatusUnreachable,
		Message: fmt.Sprintf("%s not configured. Set %s environment variable to your console IP/hostname.",
			backend, hostVar),
		Field: hostVar,
	}
}

func ErrMisconfigured(backend, field, message string) *Error {
	return &Error{
		Backend:    backend,
		Kind:       KindMisconfigured,
		StatusCode: StatusUnreachable,
		Message:    message,
		Field:      field,
	}
}

func ErrInvalidResponse(backend string, status int, cause error) *Error {
	return &Error{
		Backend:    backend,
		Kind:       KindInvalidResponse,
		StatusCode: status,
		Message:    fmt.Sprintf("invalid response body: %v", cause),
		Err:        cause,
	}
}

// FirstString returns the first key of obj holding a non-empty JSON string.
func FirstString(obj map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		raw, ok := obj[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}

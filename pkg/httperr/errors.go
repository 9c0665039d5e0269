// Package httperr is the JSON error envelope written by the HTTP surface
// (auth, rate limiting, probes). Tool failures never use it: they travel
// inside MCP tool results.
package httperr

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type Error struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	Details   any    `json:"details,omitempty"`
	HTTPCode  int    `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// WriteJSON writes the error as JSON to the response writer.
func (e *Error) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.HTTPCode)
	_ = json.NewEncoder(w).Encode(e)
}

func Unauthorized(msg string) *Error {
	return &Error{Code: "UNAUTHORIZED", Message: msg, HTTPCode: http.StatusUnauthorized}
}

func RateLimited(retryAfterSeconds int) *Error {
	return &Error{
		Code:      "RATE_LIMITED",
		Message:   "too many requests",
		Retryable: true,
		Details:   map[string]int{"retry_after_seconds": retryAfterSeconds},
		HTTPCode:  http.StatusTooManyRequests,
	}
}

func NotReady(details any) *Error {
	return &Error{Code: "NOT_READY", Message: "service not ready", Retryable: true, Details: details, HTTPCode: http.StatusServiceUnavailable}
}

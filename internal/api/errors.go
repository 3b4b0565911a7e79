package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// HTTPError is returned for any response outside the 2xx range.
type HTTPError struct {
	Method  string
	Path    string
	Status  int
	Body    any
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// TransportError is returned when no response was obtained at all.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return 0
}

// IsRouteAbsent reports whether err says the route does not exist on this
// backend, as opposed to the route rejecting the request.
func IsRouteAbsent(err error) bool {
	switch StatusOf(err) {
	case http.StatusNotFound, http.StatusMethodNotAllowed, http.StatusNotImplemented:
		return true
	}
	return false
}

// IsUnauthorized reports whether the backend rejected the credential.
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

// Message returns the text to show a user for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Message
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return "Network error: " + transportErr.Err.Error()
	}
	return err.Error()
}

// errorMessage derives a human-readable message for a failed response:
// detail, message, error (in that order), then the raw text, then a generic
// fallback with the status code.
func errorMessage(body any, isJSON bool, status int) string {
	if obj, ok := body.(map[string]any); ok {
		for _, key := range []string{"detail", "message", "error"} {
			if msg := messageValue(obj[key]); msg != "" {
				return msg
			}
		}
	}
	if !isJSON {
		if text, ok := body.(string); ok && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
	}
	return fmt.Sprintf("Request failed (%d)", status)
}

func messageValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case bool:
		return ""
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the normalized failure for any non-2xx API response. Detail is the
// human-readable message extracted from the response body: the JSON "detail"
// field when present, otherwise the raw body text, otherwise a generic
// message.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %s (status %d)", e.Detail, e.Status)
}

// IsStatus reports whether err is an API error with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// IsAuthExpired reports whether err is the 401 session-expired failure.
func IsAuthExpired(err error) bool {
	return IsStatus(err, http.StatusUnauthorized)
}

// StatusOf returns the HTTP status carried by err, or 0 for transport-level
// failures that never produced a response.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

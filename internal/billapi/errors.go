package billapi

import (
	"errors"
	"fmt"
	"net/http"
)

// RequestError reports a non-2xx response from the API. The response body is
// not inspected.
type RequestError struct {
	// Action describes the failed call, e.g. "create bill".
	Action     string
	Method     string
	Path       string
	StatusCode int
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("failed to %s: %s %s returned %d %s",
		e.Action, e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// IsNotFound reports whether err is a RequestError with status 404.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// StatusCode returns the status of a wrapped RequestError, or 0.
func StatusCode(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}
	return 0
}

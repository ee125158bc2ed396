package api

import (
	"fmt"
	"net/http"
)

// HTTPError is returned for any response outside the 2xx range. Message carries the backend's
// error field when the body had a parseable envelope.
type HTTPError struct {
	Code    int
	Message string
}

func (e *HTTPError) Error() string {
	status := http.StatusText(e.Code)
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d %s", e.Code, status)
	}
	return fmt.Sprintf("backend returned %d %s: %s", e.Code, status, e.Message)
}

// Temporary reports whether retrying the identical request could plausibly succeed. The client
// itself never retries; the hint is for callers wiring their own policy.
func (e *HTTPError) Temporary() bool {
	return e.Code == http.StatusServiceUnavailable ||
		e.Code == http.StatusGatewayTimeout ||
		e.Code == http.StatusRequestTimeout ||
		e.Code == http.StatusTooManyRequests
}

// Unauthorized reports whether the response invalidated the session.
func (e *HTTPError) Unauthorized() bool {
	return e.Code == http.StatusUnauthorized
}

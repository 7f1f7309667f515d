package detect

import (
	"errors"
	"fmt"
)

// Sentinel errors for backend conditions.
var (
	// ErrBackendUnavailable is returned on transport failure or a
	// non-success status from the detection backend. It is transient:
	// the next sampler tick retries implicitly.
	ErrBackendUnavailable = errors.New("detect: backend unavailable")

	// ErrBadResponse is returned when the backend responds with a body
	// that cannot be decoded. Treated the same as ErrBackendUnavailable
	// by the pipeline.
	ErrBadResponse = errors.New("detect: malformed backend response")
)

// APIError is a non-2xx response from the detection backend.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Body is the response body, truncated for logging.
	Body string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("detect: backend returned %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("detect: backend returned %d", e.StatusCode)
}

// Unwrap lets errors.Is match APIError against ErrBackendUnavailable.
func (e *APIError) Unwrap() error {
	return ErrBackendUnavailable
}

// IsServerError returns true for HTTP 5xx responses.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

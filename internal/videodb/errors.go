package videodb

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	// ErrNotReady means the requested artifact is still being produced.
	ErrNotReady = errors.New("videodb: not ready")
	// ErrTranscriptTimeout means the transcript did not become available in time.
	ErrTranscriptTimeout = errors.New("videodb: timed out waiting for transcript")
	// ErrJobTimeout means an asynchronous job did not finish in time.
	ErrJobTimeout = errors.New("videodb: timed out waiting for job")
	// ErrNoAPIKey is returned by NewClient without an API key.
	ErrNoAPIKey = errors.New("videodb: api key is required")
)

// APIError is a failed call, either a non-2xx status or success=false in the envelope.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("videodb returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("videodb returned status %d: %s", e.StatusCode, e.Message)
}

// HTTPStatusCode returns the response status.
func (e *APIError) HTTPStatusCode() int { return e.StatusCode }

// IsRetryableStatus reports whether a status is worth retrying (408, 429, 5xx).
func IsRetryableStatus(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	return code >= 500 && code <= 599
}

// IsRetryable reports whether err is a transient network or server failure.
// Context cancellation is never retried.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return IsRetryableStatus(apiErr.StatusCode)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// notReadyMarkers are message fragments the service uses while an artifact is pending.
var notReadyMarkers = []string{"not found", "does not exist", "processing", "not available"}

func isNotReadyMessage(msg string) bool {
	msg = strings.ToLower(msg)
	for _, m := range notReadyMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// StatusError is returned when a gateway answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bad status %d: %s", e.StatusCode, e.Body)
}

// EmbeddingError reports a failure of the embedding gateway.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string {
	return "embedding gateway: " + e.Err.Error()
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status that caused the failure, or 0.
func (e *EmbeddingError) StatusCode() int { return statusCode(e.Err) }

// CompletionError reports a failure of the completion gateway,
// including a response with no usable text.
type CompletionError struct {
	Err error
}

func (e *CompletionError) Error() string {
	return "completion gateway: " + e.Err.Error()
}

func (e *CompletionError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status that caused the failure, or 0.
func (e *CompletionError) StatusCode() int { return statusCode(e.Err) }

// errNoContent is wrapped in a CompletionError when the model returns nothing.
var errNoContent = errors.New("no content returned")

func statusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// IsTransient reports whether err is worth retrying: transport failures,
// timeouts, 5xx and 429. Other 4xx responses and caller cancellation are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= http.StatusInternalServerError || se.StatusCode == http.StatusTooManyRequests
	}
	var pe *permanentError
	return !errors.As(err, &pe)
}

// permanentError marks failures that a retry cannot fix, such as a malformed response body.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"
)

// Transport failure sentinels, matched with errors.Is against a *TransportError.
var (
	ErrTimeout   = errors.New("request timed out")
	ErrCancelled = errors.New("request cancelled")
	ErrNetwork   = errors.New("network error")
)

// TransportError wraps a failure that happened before any response status was
// available.
type TransportError struct {
	Kind error // one of ErrTimeout, ErrCancelled, ErrNetwork
	Err  error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *TransportError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewTransportError classifies err as timeout, cancellation or generic network
// failure. It returns nil for a nil error and leaves already classified
// errors untouched.
func NewTransportError(err error) error {
	if err == nil {
		return nil
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return err
	}

	kind := ErrNetwork
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = ErrTimeout
	case errors.Is(err, context.Canceled):
		kind = ErrCancelled
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = ErrTimeout
	}
	return &TransportError{Kind: kind, Err: err}
}

// ProtocolKind distinguishes the two protocol failure modes.
type ProtocolKind string

const (
	MalformedResponse ProtocolKind = "malformed_response"
	DecodeFailure     ProtocolKind = "decode_failure"
)

// ProtocolError is returned when a 2xx answer cannot be understood.
type ProtocolError struct {
	Kind    ProtocolKind
	Message string
	Err     error
}

func (e *ProtocolError) Error() string {
	msg := "protocol error (" + string(e.Kind) + ")"
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// AuthError is returned for 401 answers.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed (status %d): %s", e.StatusCode, e.Body)
}

// UpstreamRateLimitError is returned for 429 answers. It is unrelated to the
// local daily quota.
type UpstreamRateLimitError struct {
	Body       string
	RetryAfter time.Duration
}

func (e *UpstreamRateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("upstream rate limit exceeded (retry after %s): %s", e.RetryAfter, e.Body)
	}
	return "upstream rate limit exceeded: " + e.Body
}

// ServerError is returned for 5xx answers.
type ServerError struct {
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (status %d): %s", e.StatusCode, e.Body)
}

// HTTPError covers every other non-2xx status.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error (status %d): %s", e.StatusCode, e.Body)
}

// NewStatusError maps a non-2xx response to the error taxonomy. header may be
// nil.
func NewStatusError(statusCode int, header http.Header, body []byte) error {
	text := string(body)
	switch {
	case statusCode == http.StatusUnauthorized:
		return &AuthError{StatusCode: statusCode, Body: text}
	case statusCode == http.StatusTooManyRequests:
		return &UpstreamRateLimitError{Body: text, RetryAfter: parseRetryAfter(header)}
	case statusCode >= 500 && statusCode <= 599:
		return &ServerError{StatusCode: statusCode, Body: text}
	default:
		return &HTTPError{StatusCode: statusCode, Body: text}
	}
}

func parseRetryAfter(header http.Header) time.Duration {
	if header == nil {
		return 0
	}
	value := header.Get("Retry-After")
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if wait := time.Until(at); wait > 0 {
			return wait
		}
	}
	return 0
}

// Hint returns a short user-facing suggestion for err, or "" when none
// applies.
func Hint(err error) string {
	var authErr *AuthError
	var rateErr *UpstreamRateLimitError
	switch {
	case errors.As(err, &authErr):
		return "Check that your API key is correct, or reconfigure your credentials."
	case errors.As(err, &rateErr):
		return "The provider is throttling requests. Wait a moment and try again."
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrNetwork):
		return "Check your network connection and try again."
	default:
		return ""
	}
}

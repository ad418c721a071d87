package agent

import (
	"errors"
	"fmt"
)

// ErrBusy is returned when a turn is started while another one is running.
var ErrBusy = errors.New("agent is busy with another turn")

// Sentinels matched by [Error] through errors.Is.
var (
	ErrNoProviderConfigured = errors.New("no AI provider configured")
	ErrQuotaExceeded        = errors.New("daily quota exceeded")
	ErrMaxIterationsReached = errors.New("maximum tool iterations reached")
	ErrInvalidToolResponse  = errors.New("invalid tool response")
)

// Kind classifies an orchestrator failure.
type Kind int

const (
	KindNoProviderConfigured Kind = iota + 1
	KindQuotaExceeded
	KindMaxIterationsReached
	KindInvalidToolResponse
)

func (k Kind) String() string {
	switch k {
	case KindNoProviderConfigured:
		return "no_provider_configured"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindMaxIterationsReached:
		return "max_iterations_reached"
	case KindInvalidToolResponse:
		return "invalid_tool_response"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindNoProviderConfigured:
		return ErrNoProviderConfigured
	case KindQuotaExceeded:
		return ErrQuotaExceeded
	case KindMaxIterationsReached:
		return ErrMaxIterationsReached
	case KindInvalidToolResponse:
		return ErrInvalidToolResponse
	default:
		return nil
	}
}

// Error is the failure raised by the orchestrator itself. Provider failures
// (transport, protocol, auth, server) are never wrapped into it.
type Error struct {
	Kind Kind

	// ResetDescription tells when the local quota refills ("in 3h 10m").
	// Only set for KindQuotaExceeded.
	ResetDescription string

	// Iterations is the number of provider calls made before giving up.
	// Only set for KindMaxIterationsReached.
	Iterations int

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindNoProviderConfigured:
		msg = "please configure an AI provider first"
	case KindQuotaExceeded:
		msg = fmt.Sprintf("today's free quota is used up, it resets %s; configure your own API key to keep chatting", e.ResetDescription)
	case KindMaxIterationsReached:
		msg = fmt.Sprintf("gave up after %d tool iterations without a final answer", e.Iterations)
	case KindInvalidToolResponse:
		msg = "the model returned a malformed tool call"
	default:
		msg = "agent error"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

func (e *Error) Unwrap() error {
	return e.Err
}

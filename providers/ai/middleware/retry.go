package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/leofalp/owlseer/providers/ai"
)

// RetryConfig tunes Retry. Zero values are replaced with defaults.
type RetryConfig struct {
	// MaxRetries is the number of attempts after the first failure.
	// Default: 3.
	MaxRetries int

	// InitialBackoff is the wait before the first retry. Default: 1s.
	InitialBackoff time.Duration

	// MaxBackoff caps every wait, including a Retry-After hint. Default: 30s.
	MaxBackoff time.Duration

	// BackoffFactor is the exponential growth per attempt. Default: 2.
	BackoffFactor float64

	// JitterFraction adds up to this fraction of the backoff at random.
	// Default: 0.1.
	JitterFraction float64

	// RetryableFunc reports whether err is transient. Default: IsRetryable.
	RetryableFunc func(error) bool
}

// IsRetryable reports whether err is worth retrying: an upstream rate limit,
// a 500/502/503/529 server error, or a transport timeout.
func IsRetryable(err error) bool {
	var rateErr *ai.UpstreamRateLimitError
	if errors.As(err, &rateErr) {
		return true
	}
	var serverErr *ai.ServerError
	if errors.As(err, &serverErr) {
		switch serverErr.StatusCode {
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, 529:
			return true
		}
		return false
	}
	return errors.Is(err, ai.ErrTimeout)
}

func applyRetryDefaults(config *RetryConfig) {
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = time.Second
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = 30 * time.Second
	}
	if config.BackoffFactor == 0 {
		config.BackoffFactor = 2.0
	}
	if config.JitterFraction == 0 {
		config.JitterFraction = 0.1
	}
	if config.RetryableFunc == nil {
		config.RetryableFunc = IsRetryable
	}
}

// computeBackoff returns min(InitialBackoff * BackoffFactor^attempt, MaxBackoff)
// plus jitter. A Retry-After hint on err replaces the computed base.
func computeBackoff(config RetryConfig, attempt int, err error) time.Duration {
	base := float64(config.InitialBackoff) * math.Pow(config.BackoffFactor, float64(attempt))

	var rateErr *ai.UpstreamRateLimitError
	if errors.As(err, &rateErr) && rateErr.RetryAfter > 0 {
		base = float64(rateErr.RetryAfter)
	}
	if base > float64(config.MaxBackoff) {
		base = float64(config.MaxBackoff)
	}

	jitter := base * config.JitterFraction * rand.Float64() //nolint:gosec // non-cryptographic jitter is intentional
	return time.Duration(base + jitter)
}

// Retry retries SendMessage and the opening of StreamMessage.
func Retry(config RetryConfig) Middleware {
	applyRetryDefaults(&config)

	return func(next ai.Provider) ai.Provider {
		return providerFuncs{
			send: func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
				return withRetry(ctx, config, func() (*ai.ChatResponse, error) {
					return next.SendMessage(ctx, request)
				})
			},
			stream: func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
				return withRetry(ctx, config, func() (*ai.ChatStream, error) {
					return next.StreamMessage(ctx, request)
				})
			},
		}
	}
}

func withRetry[T any](ctx context.Context, config RetryConfig, call func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(computeBackoff(config, attempt-1, lastErr))
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ai.NewTransportError(ctx.Err())
			case <-timer.C:
			}
		}

		result, err := call()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !config.RetryableFunc(err) {
			return zero, err
		}
	}

	return zero, fmt.Errorf("%w after %d retries: %w", ErrRetryExhausted, config.MaxRetries, lastErr)
}

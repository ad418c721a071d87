// Package middleware provides decorators for [ai.Provider].
//
// [Retry] retries transient failures with exponential backoff and jitter,
// honoring Retry-After on upstream 429 responses. Streams are retried only
// while opening; once events flow, a failure is passed to the consumer.
// [Logging] logs every call and its outcome through a slog.Logger.
//
//	provider := middleware.Chain(openai.New(),
//		middleware.Logging(slog.Default()),
//		middleware.Retry(middleware.RetryConfig{MaxRetries: 2}),
//	)
package middleware

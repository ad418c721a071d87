// Package factory builds an ai.Provider from resolved ProviderSettings.
package factory

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leofalp/owlseer/providers/ai"
	"github.com/leofalp/owlseer/providers/ai/anthropic"
	"github.com/leofalp/owlseer/providers/ai/gemini"
	"github.com/leofalp/owlseer/providers/ai/middleware"
	"github.com/leofalp/owlseer/providers/ai/openai"
	"github.com/leofalp/owlseer/providers/observability"
)

var (
	// ErrUnknownKind is returned for a provider kind with no adapter.
	ErrUnknownKind = errors.New("unknown provider kind")
	// ErrMissingAPIKey is returned when the settings carry no key.
	ErrMissingAPIKey = errors.New("provider API key is empty")
)

type options struct {
	observer       observability.Provider
	logger         *slog.Logger
	requestTimeout time.Duration
	streamTimeout  time.Duration
	retry          *middleware.RetryConfig
}

// Option configures New.
type Option func(*options)

// WithObserver passes observer to the adapter.
func WithObserver(observer observability.Provider) Option {
	return func(o *options) { o.observer = observer }
}

// WithLogger wraps the adapter in the logging middleware.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithTimeouts sets the synchronous and streaming HTTP budgets. Zero values
// keep the adapter defaults.
func WithTimeouts(request, stream time.Duration) Option {
	return func(o *options) {
		o.requestTimeout = request
		o.streamTimeout = stream
	}
}

// WithRetry wraps the adapter in the retry middleware.
func WithRetry(config middleware.RetryConfig) Option {
	return func(o *options) { o.retry = &config }
}

// New returns the adapter for settings.Kind, with defaults applied to the
// base URL and model. Logging is the outermost decorator so it reports the
// final outcome after retries.
func New(settings ai.ProviderSettings, opts ...Option) (ai.Provider, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	settings = settings.WithDefaults()
	if settings.APIKey == "" {
		return nil, fmt.Errorf("%w for %q", ErrMissingAPIKey, settings.Kind)
	}

	provider, err := newAdapter(settings, o)
	if err != nil {
		return nil, err
	}

	var decorators []middleware.Middleware
	if o.logger != nil {
		decorators = append(decorators, middleware.Logging(o.logger))
	}
	if o.retry != nil {
		decorators = append(decorators, middleware.Retry(*o.retry))
	}
	return middleware.Chain(provider, decorators...), nil
}

func newAdapter(settings ai.ProviderSettings, o options) (ai.Provider, error) {
	withTimeouts := o.requestTimeout > 0 && o.streamTimeout > 0

	switch {
	case settings.Kind.OpenAICompatible():
		opts := []openai.Option{
			openai.WithName(string(settings.Kind)),
			openai.WithAPIKey(settings.APIKey),
			openai.WithBaseURL(settings.BaseURL),
			openai.WithModel(settings.Model),
			openai.WithObserver(o.observer),
		}
		if withTimeouts {
			opts = append(opts, openai.WithTimeouts(o.requestTimeout, o.streamTimeout))
		}
		return openai.New(opts...), nil

	case settings.Kind == ai.KindAnthropic:
		opts := []anthropic.Option{
			anthropic.WithAPIKey(settings.APIKey),
			anthropic.WithBaseURL(settings.BaseURL),
			anthropic.WithModel(settings.Model),
			anthropic.WithObserver(o.observer),
		}
		if withTimeouts {
			opts = append(opts, anthropic.WithTimeouts(o.requestTimeout, o.streamTimeout))
		}
		return anthropic.New(opts...), nil

	case settings.Kind == ai.KindGemini:
		opts := []gemini.Option{
			gemini.WithAPIKey(settings.APIKey),
			gemini.WithBaseURL(settings.BaseURL),
			gemini.WithModel(settings.Model),
			gemini.WithObserver(o.observer),
		}
		if withTimeouts {
			opts = append(opts, gemini.WithTimeouts(o.requestTimeout, o.streamTimeout))
		}
		return gemini.New(opts...), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, settings.Kind)
	}
}

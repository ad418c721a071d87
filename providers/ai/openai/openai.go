package openai

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/leofalp/owlseer/internal/utils"
	"github.com/leofalp/owlseer/providers/ai"
	"github.com/leofalp/owlseer/providers/observability"
)

const (
	chatCompletionsEndpoint = "/chat/completions"

	defaultRequestTimeout = 60 * time.Second
	defaultStreamTimeout  = 300 * time.Second
)

// ErrMissingAPIKey is returned before any request when no key is configured.
var ErrMissingAPIKey = errors.New("openai: API key is not set")

// Provider implements ai.Provider for chat completions endpoints.
type Provider struct {
	name         string
	apiKey       string
	baseURL      string
	model        string
	client       *http.Client
	streamClient *http.Client
	observer     observability.Provider
}

// Option configures a Provider.
type Option func(*Provider)

// WithAPIKey sets the bearer token.
func WithAPIKey(apiKey string) Option {
	return func(p *Provider) { p.apiKey = apiKey }
}

// WithBaseURL sets the API root, e.g. "https://api.deepseek.com/v1".
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithName sets the provider name reported in logs and spans. Compatible
// hosts use it to tell themselves apart ("deepseek", "kimi").
func WithName(name string) Option {
	return func(p *Provider) { p.name = name }
}

// WithHTTPClient uses client for both synchronous and streaming calls.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		p.client = client
		p.streamClient = client
	}
}

// WithTimeouts sets the total time budget of synchronous and streaming calls.
func WithTimeouts(request, stream time.Duration) Option {
	return func(p *Provider) {
		p.client = &http.Client{Timeout: request}
		p.streamClient = &http.Client{Timeout: stream}
	}
}

// WithObserver enables spans and logs.
func WithObserver(observer observability.Provider) Option {
	return func(p *Provider) { p.observer = observer }
}

// New creates a provider from the environment (OPENAI_API_KEY,
// OPENAI_BASE_URL, OPENAI_MODEL) and applies opts on top.
func New(opts ...Option) *Provider {
	p := &Provider{
		name:         string(ai.KindOpenAI),
		apiKey:       os.Getenv("OPENAI_API_KEY"),
		baseURL:      ai.KindOpenAI.DefaultBaseURL(),
		model:        ai.KindOpenAI.DefaultModel(),
		client:       &http.Client{Timeout: defaultRequestTimeout},
		streamClient: &http.Client{Timeout: defaultStreamTimeout},
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		p.baseURL = strings.TrimRight(baseURL, "/")
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		p.model = model
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ ai.Provider = (*Provider)(nil)

// Model returns the configured model name.
func (p *Provider) Model() string {
	return p.model
}

// SendMessage performs a non-streaming chat completion.
func (p *Provider) SendMessage(ctx context.Context, request ai.ChatRequest) (response *ai.ChatResponse, err error) {
	ctx, span := p.startSpan(ctx, observability.SpanLLMRequest, request, false)
	defer func() { observability.EndWithError(span, err) }()

	if err := p.validate(request); err != nil {
		return nil, err
	}

	start := time.Now()
	_, wire, err := utils.DoPostSync[chatCompletionResponse](ctx, p.client, p.baseURL+chatCompletionsEndpoint,
		requestToChatCompletion(p.model, request), utils.BearerAuth(p.apiKey)...)
	if err != nil {
		p.logFailure(ctx, err)
		return nil, err
	}

	response, err = responseFromChatCompletion(wire)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		observability.String(observability.AttrLLMFinishReason, response.FinishReason),
		observability.Int(observability.AttrResponseToolCalls, len(response.ToolCalls)),
	)
	p.recordUsage(ctx, response.Usage, time.Since(start))
	return response, nil
}

func (p *Provider) validate(request ai.ChatRequest) error {
	if p.apiKey == "" {
		return ErrMissingAPIKey
	}
	return ai.ValidateMessages(request.Messages)
}

func (p *Provider) startSpan(ctx context.Context, name string, request ai.ChatRequest, stream bool) (context.Context, observability.Span) {
	return observability.Start(ctx, p.observer, name,
		observability.String(observability.AttrLLMProvider, p.name),
		observability.String(observability.AttrLLMModel, p.model),
		observability.String(observability.AttrLLMEndpoint, p.baseURL),
		observability.Bool(observability.AttrLLMStream, stream),
		observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)),
		observability.Int(observability.AttrRequestToolsCount, len(request.Tools)),
	)
}

func (p *Provider) logFailure(ctx context.Context, err error) {
	if p.observer == nil {
		return
	}
	p.observer.Warn(ctx, "LLM request failed",
		observability.String(observability.AttrLLMProvider, p.name),
		observability.Error(err),
	)
}

func (p *Provider) recordUsage(ctx context.Context, usage *ai.Usage, elapsed time.Duration) {
	if p.observer == nil {
		return
	}
	attrs := []observability.Attribute{
		observability.String(observability.AttrLLMProvider, p.name),
		observability.String(observability.AttrLLMModel, p.model),
	}
	p.observer.Histogram(observability.MetricLLMRequestDuration).Record(ctx, elapsed.Seconds(), attrs...)
	if usage != nil {
		p.observer.Counter(observability.MetricLLMTokensTotal).Add(ctx, int64(usage.TotalTokens), attrs...)
	}
}

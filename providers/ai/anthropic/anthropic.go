package anthropic

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
	messagesEndpoint = "/messages"
	apiVersion       = "2023-06-01"

	defaultRequestTimeout = 60 * time.Second
	defaultStreamTimeout  = 300 * time.Second
)

// ErrMissingAPIKey is returned before any request when no key is configured.
var ErrMissingAPIKey = errors.New("anthropic: API key is not set")

// Provider implements ai.Provider for the Messages API.
type Provider struct {
	apiKey       string
	baseURL      string
	model        string
	client       *http.Client
	streamClient *http.Client
	observer     observability.Provider
}

type Option func(*Provider)

func WithAPIKey(apiKey string) Option {
	return func(p *Provider) { p.apiKey = apiKey }
}

func WithBaseURL(baseURL string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
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

func WithObserver(observer observability.Provider) Option {
	return func(p *Provider) { p.observer = observer }
}

// New creates a provider from ANTHROPIC_API_KEY, ANTHROPIC_BASE_URL and
// ANTHROPIC_MODEL, then applies opts.
func New(opts ...Option) *Provider {
	p := &Provider{
		apiKey:       os.Getenv("ANTHROPIC_API_KEY"),
		baseURL:      ai.KindAnthropic.DefaultBaseURL(),
		model:        ai.KindAnthropic.DefaultModel(),
		client:       &http.Client{Timeout: defaultRequestTimeout},
		streamClient: &http.Client{Timeout: defaultStreamTimeout},
	}
	if baseURL := os.Getenv("ANTHROPIC_BASE_URL"); baseURL != "" {
		p.baseURL = strings.TrimRight(baseURL, "/")
	}
	if model := os.Getenv("ANTHROPIC_MODEL"); model != "" {
		p.model = model
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ ai.Provider = (*Provider)(nil)

func (p *Provider) Model() string {
	return p.model
}

func (p *Provider) headers() []utils.HeaderOption {
	return []utils.HeaderOption{
		{Key: "x-api-key", Value: p.apiKey},
		{Key: "anthropic-version", Value: apiVersion},
	}
}

// SendMessage performs a non-streaming Messages call.
func (p *Provider) SendMessage(ctx context.Context, request ai.ChatRequest) (response *ai.ChatResponse, err error) {
	ctx, span := p.startSpan(ctx, observability.SpanLLMRequest, request, false)
	defer func() { observability.EndWithError(span, err) }()

	if err := p.validate(request); err != nil {
		return nil, err
	}

	start := time.Now()
	_, wire, err := utils.DoPostSync[messagesResponse](ctx, p.client, p.baseURL+messagesEndpoint,
		requestToMessages(p.model, request), p.headers()...)
	if err != nil {
		p.logFailure(ctx, err)
		return nil, err
	}

	response, err = responseFromMessages(wire)
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
		observability.String(observability.AttrLLMProvider, string(ai.KindAnthropic)),
		observability.String(observability.AttrLLMModel, p.model),
		observability.String(observability.AttrLLMEndpoint, p.baseURL),
		observability.Bool(observability.AttrLLMStream, stream),
		observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)),
		observability.Int(observability.AttrRequestToolsCount, len(request.Tools)),
	)
}

func (p *Provider) logFailure(ctx context.Context, err error) {
	if p.observer != nil {
		p.observer.Warn(ctx, "LLM request failed",
			observability.String(observability.AttrLLMProvider, string(ai.KindAnthropic)),
			observability.Error(err),
		)
	}
}

func (p *Provider) recordUsage(ctx context.Context, usage *ai.Usage, elapsed time.Duration) {
	if p.observer == nil {
		return
	}
	attrs := []observability.Attribute{
		observability.String(observability.AttrLLMProvider, string(ai.KindAnthropic)),
		observability.String(observability.AttrLLMModel, p.model),
	}
	p.observer.Histogram(observability.MetricLLMRequestDuration).Record(ctx, elapsed.Seconds(), attrs...)
	if usage != nil {
		p.observer.Counter(observability.MetricLLMTokensTotal).Add(ctx, int64(usage.TotalTokens), attrs...)
	}
}

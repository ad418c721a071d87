package ai

import (
	"context"
)

// Provider is the contract every backend adapter satisfies. Adapters translate
// the canonical request into their wire format and translate the answer back,
// so callers never see protocol-specific vocabulary.
type Provider interface {
	// SendMessage performs a non-streaming completion. Transport, protocol,
	// auth and server failures are returned unmodified (see errors.go).
	SendMessage(ctx context.Context, request ChatRequest) (*ChatResponse, error)

	// StreamMessage opens a streaming completion. Pre-stream failures (auth,
	// bad request, network) are returned directly; mid-stream failures are
	// yielded through the iterator.
	StreamMessage(ctx context.Context, request ChatRequest) (*ChatStream, error)
}

// ProviderKind names a backend family.
type ProviderKind string

const (
	KindOpenAI    ProviderKind = "openai"
	KindAnthropic ProviderKind = "anthropic"
	KindGemini    ProviderKind = "gemini"
	KindDeepSeek  ProviderKind = "deepseek"
	KindKimi      ProviderKind = "kimi"
)

// DefaultBaseURL returns the public endpoint of a backend family.
func (k ProviderKind) DefaultBaseURL() string {
	switch k {
	case KindOpenAI:
		return "https://api.openai.com/v1"
	case KindAnthropic:
		return "https://api.anthropic.com/v1"
	case KindGemini:
		return "https://generativelanguage.googleapis.com/v1beta"
	case KindDeepSeek:
		return "https://api.deepseek.com/v1"
	case KindKimi:
		return "https://api.moonshot.cn/v1"
	default:
		return ""
	}
}

// DefaultModel is the model used when the settings leave it empty.
func (k ProviderKind) DefaultModel() string {
	switch k {
	case KindOpenAI:
		return "gpt-4o-mini"
	case KindAnthropic:
		return "claude-3-5-sonnet-20241022"
	case KindGemini:
		return "gemini-2.5-flash"
	case KindDeepSeek:
		return "deepseek-chat"
	case KindKimi:
		return "kimi-k2-0905"
	default:
		return ""
	}
}

// OpenAICompatible reports whether the backend speaks the chat completions
// protocol.
func (k ProviderKind) OpenAICompatible() bool {
	return k == KindOpenAI || k == KindDeepSeek || k == KindKimi
}

// ProviderSettings is the resolved configuration for the active mode.
type ProviderSettings struct {
	Kind    ProviderKind
	APIKey  string
	BaseURL string
	Model   string
}

// WithDefaults fills the empty base URL and model from the backend family.
func (s ProviderSettings) WithDefaults() ProviderSettings {
	if s.BaseURL == "" {
		s.BaseURL = s.Kind.DefaultBaseURL()
	}
	if s.Model == "" {
		s.Model = s.Kind.DefaultModel()
	}
	return s
}

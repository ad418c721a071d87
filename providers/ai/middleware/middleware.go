package middleware

import (
	"context"
	"errors"

	"github.com/leofalp/owlseer/providers/ai"
)

// ErrRetryExhausted is joined with the last provider error when every retry
// failed. errors.As on the result still finds the provider error.
var ErrRetryExhausted = errors.New("owlseer: all retry attempts exhausted")

// Middleware decorates a provider.
type Middleware func(ai.Provider) ai.Provider

// Chain applies middlewares so that the first one is the outermost.
func Chain(provider ai.Provider, middlewares ...Middleware) ai.Provider {
	for i := len(middlewares) - 1; i >= 0; i-- {
		provider = middlewares[i](provider)
	}
	return provider
}

// providerFuncs adapts a pair of functions to ai.Provider.
type providerFuncs struct {
	send   func(context.Context, ai.ChatRequest) (*ai.ChatResponse, error)
	stream func(context.Context, ai.ChatRequest) (*ai.ChatStream, error)
}

func (p providerFuncs) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	return p.send(ctx, request)
}

func (p providerFuncs) StreamMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	return p.stream(ctx, request)
}

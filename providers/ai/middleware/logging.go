package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/leofalp/owlseer/providers/ai"
)

// Logging logs each call at info level and failures at error level. For
// streams the completion entry is written when the iterator finishes.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next ai.Provider) ai.Provider {
		return providerFuncs{
			send: func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
				logger.InfoContext(ctx, "llm send", requestAttrs(request)...)

				start := time.Now()
				response, err := next.SendMessage(ctx, request)
				if err != nil {
					logger.ErrorContext(ctx, "llm send failed",
						slog.Duration("duration", time.Since(start)),
						slog.String("error", err.Error()),
					)
					return nil, err
				}

				logger.InfoContext(ctx, "llm send completed",
					completionAttrs(time.Since(start), response.FinishReason, len(response.ToolCalls), response.Usage)...)
				return response, nil
			},
			stream: func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
				logger.InfoContext(ctx, "llm stream", requestAttrs(request)...)

				start := time.Now()
				stream, err := next.StreamMessage(ctx, request)
				if err != nil {
					logger.ErrorContext(ctx, "llm stream failed",
						slog.Duration("duration", time.Since(start)),
						slog.String("error", err.Error()),
					)
					return nil, err
				}
				return wrapStreamWithLogging(ctx, stream, logger, start), nil
			},
		}
	}
}

func wrapStreamWithLogging(ctx context.Context, stream *ai.ChatStream, logger *slog.Logger, start time.Time) *ai.ChatStream {
	return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
		var done ai.StreamEvent
		toolCalls := 0

		for event, err := range stream.Iter() {
			if err != nil {
				logger.ErrorContext(ctx, "llm stream failed",
					slog.Duration("duration", time.Since(start)),
					slog.String("error", err.Error()),
				)
				yield(event, err)
				return
			}

			switch event.Type {
			case ai.StreamEventToolCallStart:
				toolCalls++
			case ai.StreamEventDone:
				done = event
			}

			if !yield(event, nil) {
				logger.InfoContext(ctx, "llm stream abandoned", slog.Duration("duration", time.Since(start)))
				return
			}
		}

		logger.InfoContext(ctx, "llm stream completed",
			completionAttrs(time.Since(start), done.FinishReason, toolCalls, done.Usage)...)
	})
}

func requestAttrs(request ai.ChatRequest) []any {
	return []any{
		slog.Int("message_count", len(request.Messages)),
		slog.Int("tool_count", len(request.Tools)),
	}
}

func completionAttrs(elapsed time.Duration, finishReason string, toolCalls int, usage *ai.Usage) []any {
	attrs := []any{
		slog.Duration("duration", elapsed),
		slog.Int("tool_calls", toolCalls),
	}
	if finishReason != "" {
		attrs = append(attrs, slog.String("finish_reason", finishReason))
	}
	if usage != nil {
		attrs = append(attrs,
			slog.Int("prompt_tokens", usage.PromptTokens),
			slog.Int("completion_tokens", usage.CompletionTokens),
			slog.Int("total_tokens", usage.TotalTokens),
		)
	}
	return attrs
}

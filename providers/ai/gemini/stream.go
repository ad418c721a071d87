package gemini

import (
	"context"
	"time"

	"github.com/leofalp/owlseer/internal/utils"
	"github.com/leofalp/owlseer/providers/ai"
	"github.com/leofalp/owlseer/providers/observability"
)

// StreamMessage opens :streamGenerateContent?alt=sse. Function calls arrive
// whole, so each one yields a start event and a single args event.
func (p *Provider) StreamMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	ctx, span := p.startSpan(ctx, observability.SpanLLMStream, request, true)

	if err := p.validate(request); err != nil {
		observability.EndWithError(span, err)
		return nil, err
	}

	start := time.Now()
	httpResponse, err := utils.DoPostStream(ctx, p.streamClient, p.endpoint("streamGenerateContent")+"?alt=sse",
		requestToGenerateContent(request), p.headers()...)
	if err != nil {
		p.logFailure(ctx, err)
		observability.EndWithError(span, err)
		return nil, err
	}

	return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
		defer utils.CloseWithLog(httpResponse.Body)

		var (
			usage        *ai.Usage
			finishReason string
			sawToolCall  bool
			streamErr    error
		)
		defer func() {
			span.SetAttributes(observability.String(observability.AttrLLMFinishReason, finishReason))
			p.recordUsage(ctx, usage, time.Since(start))
			observability.EndWithError(span, streamErr)
		}()

		for chunk, err := range utils.SSEEvents[generateContentResponse](httpResponse.Body) {
			if err != nil {
				streamErr = err
				yield(ai.StreamEvent{}, err)
				return
			}
			if chunk.UsageMetadata != nil {
				usage = usageFromWire(chunk.UsageMetadata)
			}
			if len(chunk.Candidates) == 0 {
				continue
			}

			first := chunk.Candidates[0]
			if first.Content != nil {
				for _, event := range partsToEvents(first.Content.Parts) {
					if event.Type == ai.StreamEventToolCallStart {
						sawToolCall = true
					}
					if !yield(event, nil) {
						return
					}
				}
			}

			if first.FinishReason != "" {
				finishReason = mapFinishReason(first.FinishReason, sawToolCall)
				yield(ai.DoneEvent(finishReason, usage), nil)
				return
			}
		}

		yield(ai.DoneEvent(finishReason, usage), nil)
	}), nil
}

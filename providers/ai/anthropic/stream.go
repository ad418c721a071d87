package anthropic

import (
	"context"
	"fmt"
	"time"

	"github.com/leofalp/owlseer/internal/utils"
	"github.com/leofalp/owlseer/providers/ai"
	"github.com/leofalp/owlseer/providers/observability"
)

// StreamMessage opens a streaming Messages call. The response body stays
// open until the returned stream's iterator finishes.
func (p *Provider) StreamMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	ctx, span := p.startSpan(ctx, observability.SpanLLMStream, request, true)

	if err := p.validate(request); err != nil {
		observability.EndWithError(span, err)
		return nil, err
	}

	wire := requestToMessages(p.model, request)
	wire.Stream = true

	start := time.Now()
	httpResponse, err := utils.DoPostStream(ctx, p.streamClient, p.baseURL+messagesEndpoint, wire, p.headers()...)
	if err != nil {
		p.logFailure(ctx, err)
		observability.EndWithError(span, err)
		return nil, err
	}

	return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
		defer utils.CloseWithLog(httpResponse.Body)

		state := newStreamState()
		var streamErr error
		defer func() {
			span.SetAttributes(observability.String(observability.AttrLLMFinishReason, state.finishReason))
			p.recordUsage(ctx, state.usage(), time.Since(start))
			observability.EndWithError(span, streamErr)
		}()

		for event, err := range utils.SSEEvents[streamEvent](httpResponse.Body) {
			if err != nil {
				streamErr = err
				yield(ai.StreamEvent{}, err)
				return
			}

			events, err := state.apply(event)
			for _, canonical := range events {
				if !yield(canonical, nil) {
					return
				}
			}
			if err != nil {
				streamErr = err
				yield(ai.StreamEvent{}, err)
				return
			}
			if state.done {
				return
			}
		}

		if !state.done {
			yield(ai.DoneEvent(state.finishReason, state.usage()), nil)
		}
	}), nil
}

// streamState remembers which content block index holds which tool_use id.
type streamState struct {
	toolBlocks   map[int]string
	finishReason string
	inputTokens  int
	outputTokens int
	sawUsage     bool
	done         bool
}

func newStreamState() *streamState {
	return &streamState{toolBlocks: make(map[int]string)}
}

func (s *streamState) usage() *ai.Usage {
	if !s.sawUsage {
		return nil
	}
	return &ai.Usage{
		PromptTokens:     s.inputTokens,
		CompletionTokens: s.outputTokens,
		TotalTokens:      s.inputTokens + s.outputTokens,
	}
}

func (s *streamState) apply(event *streamEvent) ([]ai.StreamEvent, error) {
	switch event.Type {
	case "message_start":
		if event.Message != nil {
			s.inputTokens = event.Message.Usage.InputTokens
			s.outputTokens = event.Message.Usage.OutputTokens
			s.sawUsage = true
		}

	case "content_block_start":
		block := event.ContentBlock
		if block != nil && block.Type == "tool_use" {
			s.toolBlocks[event.Index] = block.ID
			return []ai.StreamEvent{ai.ToolCallStartEvent(block.ID, block.Name)}, nil
		}

	case "content_block_delta":
		if event.Delta == nil {
			return nil, nil
		}
		switch event.Delta.Type {
		case "text_delta":
			if event.Delta.Text != "" {
				return []ai.StreamEvent{ai.ContentEvent(event.Delta.Text)}, nil
			}
		case "input_json_delta":
			id, open := s.toolBlocks[event.Index]
			if open && event.Delta.PartialJSON != "" {
				return []ai.StreamEvent{ai.ToolCallArgsEvent(id, event.Delta.PartialJSON)}, nil
			}
		}

	case "content_block_stop":
		delete(s.toolBlocks, event.Index)

	case "message_delta":
		if event.Delta != nil && event.Delta.StopReason != "" {
			s.finishReason = mapStopReason(event.Delta.StopReason)
		}
		if event.Usage != nil {
			s.outputTokens = event.Usage.OutputTokens
			if event.Usage.InputTokens > 0 {
				s.inputTokens = event.Usage.InputTokens
			}
			s.sawUsage = true
		}

	case "message_stop":
		s.done = true
		return []ai.StreamEvent{ai.DoneEvent(s.finishReason, s.usage())}, nil

	case "error":
		message := "stream error event"
		if event.Error != nil {
			message = fmt.Sprintf("%s: %s", event.Error.Type, event.Error.Message)
		}
		return nil, &ai.ProtocolError{Kind: ai.MalformedResponse, Message: message}
	}

	return nil, nil
}

package openai

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/leofalp/owlseer/internal/utils"
	"github.com/leofalp/owlseer/providers/ai"
	"github.com/leofalp/owlseer/providers/observability"
)

// StreamMessage opens a streaming chat completion. The response body stays
// open until the returned stream's iterator finishes.
func (p *Provider) StreamMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	ctx, span := p.startSpan(ctx, observability.SpanLLMStream, request, true)

	if err := p.validate(request); err != nil {
		observability.EndWithError(span, err)
		return nil, err
	}

	wire := requestToChatCompletion(p.model, request)
	wire.Stream = true
	wire.StreamOptions = &streamOptions{IncludeUsage: true}

	start := time.Now()
	httpResponse, err := utils.DoPostStream(ctx, p.streamClient, p.baseURL+chatCompletionsEndpoint, wire, utils.BearerAuth(p.apiKey)...)
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
			p.recordUsage(ctx, state.usage, time.Since(start))
			observability.EndWithError(span, streamErr)
		}()

		for chunk, err := range utils.SSEEvents[chatCompletionChunk](httpResponse.Body) {
			if err != nil {
				streamErr = err
				yield(ai.StreamEvent{}, err)
				return
			}
			for _, event := range state.apply(chunk) {
				if !yield(event, nil) {
					return
				}
			}
		}

		for _, event := range state.finish() {
			if !yield(event, nil) {
				return
			}
		}
	}), nil
}

// streamState turns index-addressed chunks into id-addressed canonical
// events. It lives for exactly one stream.
type streamState struct {
	calls        map[int]*pendingCall
	finishReason string
	usage        *ai.Usage
}

// pendingCall tracks one tool call index. Fragments that arrive before the
// id is known are held in buffered and flushed after the start event.
type pendingCall struct {
	id       string
	name     string
	started  bool
	buffered []string
}

func newStreamState() *streamState {
	return &streamState{calls: make(map[int]*pendingCall)}
}

func (s *streamState) apply(chunk *chatCompletionChunk) []ai.StreamEvent {
	var events []ai.StreamEvent

	if chunk.Usage != nil {
		s.usage = usageFromWire(chunk.Usage)
	}

	for _, choice := range chunk.Choices {
		if choice.Index != 0 {
			continue
		}
		delta := choice.Delta

		if delta.Content != nil && *delta.Content != "" {
			events = append(events, ai.ContentEvent(*delta.Content))
		}

		for _, part := range delta.ToolCalls {
			events = append(events, s.applyToolCallPart(part)...)
		}

		if choice.FinishReason != nil && *choice.FinishReason != "" {
			s.finishReason = *choice.FinishReason
		}
	}
	return events
}

func (s *streamState) applyToolCallPart(part streamToolCallPart) []ai.StreamEvent {
	call, ok := s.calls[part.Index]
	if !ok {
		call = &pendingCall{}
		s.calls[part.Index] = call
	}
	if call.id == "" && part.ID != "" {
		call.id = part.ID
	}
	if call.name == "" && part.Function.Name != "" {
		call.name = part.Function.Name
	}

	var events []ai.StreamEvent
	if !call.started && call.id != "" {
		events = append(events, call.start()...)
	}

	if fragment := part.Function.Arguments; fragment != "" {
		if call.started {
			events = append(events, ai.ToolCallArgsEvent(call.id, fragment))
		} else {
			call.buffered = append(call.buffered, fragment)
		}
	}
	return events
}

func (c *pendingCall) start() []ai.StreamEvent {
	c.started = true
	events := make([]ai.StreamEvent, 0, 1+len(c.buffered))
	events = append(events, ai.ToolCallStartEvent(c.id, c.name))
	for _, fragment := range c.buffered {
		events = append(events, ai.ToolCallArgsEvent(c.id, fragment))
	}
	c.buffered = nil
	return events
}

// finish flushes calls whose id never arrived under a generated id, then
// emits Done with the recorded finish reason and usage.
func (s *streamState) finish() []ai.StreamEvent {
	var events []ai.StreamEvent
	for _, index := range slices.Sorted(maps.Keys(s.calls)) {
		call := s.calls[index]
		if call.started || call.name == "" {
			continue
		}
		call.id = "call_" + uuid.NewString()
		events = append(events, call.start()...)
	}
	return append(events, ai.DoneEvent(s.finishReason, s.usage))
}

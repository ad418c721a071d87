package ai

import (
	"iter"
	"strings"
)

// StreamEventType identifies the variant carried by a StreamEvent. The set is
// closed: adapters map every protocol-specific event into one of these four.
type StreamEventType string

const (
	// StreamEventContent carries a text delta in Content.
	StreamEventContent StreamEventType = "content"
	// StreamEventToolCallStart announces a tool call (ToolCallID, ToolName).
	StreamEventToolCallStart StreamEventType = "tool_call_start"
	// StreamEventToolCallArgs carries an argument fragment for ToolCallID.
	StreamEventToolCallArgs StreamEventType = "tool_call_args"
	// StreamEventDone signals the end of the completion.
	StreamEventDone StreamEventType = "done"
)

// StreamEvent is a single canonical chunk yielded during streaming.
type StreamEvent struct {
	Type           StreamEventType `json:"type"`
	Content        string          `json:"content,omitempty"`         // StreamEventContent
	ToolCallID     string          `json:"tool_call_id,omitempty"`    // StreamEventToolCallStart, StreamEventToolCallArgs
	ToolName       string          `json:"tool_name,omitempty"`       // StreamEventToolCallStart
	ArgumentsDelta string          `json:"arguments_delta,omitempty"` // StreamEventToolCallArgs
	FinishReason   string          `json:"finish_reason,omitempty"`   // StreamEventDone
	Usage          *Usage          `json:"usage,omitempty"`           // StreamEventDone, when reported
}

// ContentEvent builds a StreamEventContent.
func ContentEvent(text string) StreamEvent {
	return StreamEvent{Type: StreamEventContent, Content: text}
}

// ToolCallStartEvent builds a StreamEventToolCallStart.
func ToolCallStartEvent(id, name string) StreamEvent {
	return StreamEvent{Type: StreamEventToolCallStart, ToolCallID: id, ToolName: name}
}

// ToolCallArgsEvent builds a StreamEventToolCallArgs.
func ToolCallArgsEvent(id, fragment string) StreamEvent {
	return StreamEvent{Type: StreamEventToolCallArgs, ToolCallID: id, ArgumentsDelta: fragment}
}

// DoneEvent builds a StreamEventDone.
func DoneEvent(finishReason string, usage *Usage) StreamEvent {
	return StreamEvent{Type: StreamEventDone, FinishReason: finishReason, Usage: usage}
}

// ChatStream wraps a streaming iterator and provides accumulation of deltas
// into a final ChatResponse.
//
// Important: callers must consume the stream, either by ranging over Iter()
// (breaking out early is fine) or by calling Collect(). Adapters hold the HTTP
// response body open until the iterator returns; a stream that is never
// iterated leaks it.
type ChatStream struct {
	iterator iter.Seq2[StreamEvent, error]
}

// NewChatStream creates a ChatStream from a raw streaming iterator. The
// iterator yields events with a nil error, and may yield a non-nil error once
// to signal a mid-stream failure.
func NewChatStream(iterator iter.Seq2[StreamEvent, error]) *ChatStream {
	return &ChatStream{iterator: iterator}
}

// NewStreamFromEvents replays a fixed event list. Tests and non-streaming
// fallbacks use it.
func NewStreamFromEvents(events ...StreamEvent) *ChatStream {
	return NewChatStream(func(yield func(StreamEvent, error) bool) {
		for _, event := range events {
			if !yield(event, nil) {
				return
			}
		}
	})
}

// NewSingleEventStream wraps a synchronous ChatResponse as a stream.
func NewSingleEventStream(response *ChatResponse) *ChatStream {
	events := make([]StreamEvent, 0, 2+2*len(response.ToolCalls))
	if response.Content != "" {
		events = append(events, ContentEvent(response.Content))
	}
	for _, toolCall := range response.ToolCalls {
		events = append(events,
			ToolCallStartEvent(toolCall.ID, toolCall.Name),
			ToolCallArgsEvent(toolCall.ID, toolCall.Arguments),
		)
	}
	events = append(events, DoneEvent(response.FinishReason, response.Usage))
	return NewStreamFromEvents(events...)
}

// Iter returns the underlying iterator for use with range-over-func loops.
//
//	for event, err := range stream.Iter() {
//	    if err != nil { handle error }
//	    fmt.Print(event.Content)
//	}
func (stream *ChatStream) Iter() iter.Seq2[StreamEvent, error] {
	return stream.iterator
}

// Collect consumes the entire stream and returns the accumulated ChatResponse.
// A mid-stream error terminates collection and returns the partial response
// together with the error.
func (stream *ChatStream) Collect() (*ChatResponse, error) {
	accumulated := &ChatResponse{}
	var content strings.Builder
	accumulator := NewToolCallAccumulator()

	finish := func() {
		accumulated.Content = content.String()
		accumulated.ToolCalls = accumulator.ToolCalls()
	}

	for event, err := range stream.iterator {
		if err != nil {
			finish()
			return accumulated, err
		}

		switch event.Type {
		case StreamEventContent:
			content.WriteString(event.Content)
		case StreamEventToolCallStart, StreamEventToolCallArgs:
			accumulator.Add(event)
		case StreamEventDone:
			accumulated.FinishReason = event.FinishReason
			if event.Usage != nil {
				accumulated.Usage = event.Usage
			}
		}
	}

	finish()
	return accumulated, nil
}

// ToolCallAccumulator rebuilds complete tool calls from start and argument
// events. Calls keep the order in which their start event arrived; fragments
// for one id are concatenated in arrival order.
type ToolCallAccumulator struct {
	order    []string
	builders map[string]*toolCallBuilder
}

type toolCallBuilder struct {
	name      string
	arguments strings.Builder
}

func NewToolCallAccumulator() *ToolCallAccumulator {
	return &ToolCallAccumulator{builders: make(map[string]*toolCallBuilder)}
}

// Add merges a tool call event. Other event types are ignored.
func (a *ToolCallAccumulator) Add(event StreamEvent) {
	switch event.Type {
	case StreamEventToolCallStart:
		builder := a.builder(event.ToolCallID)
		if event.ToolName != "" {
			builder.name = event.ToolName
		}
	case StreamEventToolCallArgs:
		a.builder(event.ToolCallID).arguments.WriteString(event.ArgumentsDelta)
	}
}

func (a *ToolCallAccumulator) builder(id string) *toolCallBuilder {
	builder, ok := a.builders[id]
	if !ok {
		builder = &toolCallBuilder{}
		a.builders[id] = builder
		a.order = append(a.order, id)
	}
	return builder
}

// ToolCalls returns the accumulated calls, or nil when none were seen.
func (a *ToolCallAccumulator) ToolCalls() []ToolCall {
	if len(a.order) == 0 {
		return nil
	}
	calls := make([]ToolCall, 0, len(a.order))
	for _, id := range a.order {
		builder := a.builders[id]
		calls = append(calls, ToolCall{ID: id, Name: builder.name, Arguments: builder.arguments.String()})
	}
	return calls
}

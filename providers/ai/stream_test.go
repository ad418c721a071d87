package ai

import (
	"errors"
	"iter"
	"testing"
)

// makeStream is a test helper that builds a ChatStream from a hand-crafted event
// slice. If midErr is non-nil, the error is yielded after errAtIndex events.
func makeStream(events []StreamEvent, midErr error, errAtIndex int) *ChatStream {
	iteratorFunc := func(yield func(StreamEvent, error) bool) {
		for i, event := range events {
			if midErr != nil && i == errAtIndex {
				yield(StreamEvent{}, midErr)
				return
			}
			if !yield(event, nil) {
				return
			}
		}
	}
	return NewChatStream(iter.Seq2[StreamEvent, error](iteratorFunc))
}

// TestNewSingleEventStream_ContentOnly verifies that a response with only Content
// produces a content event followed by a done event.
func TestNewSingleEventStream_ContentOnly(t *testing.T) {
	response := &ChatResponse{Content: "hello world", FinishReason: "stop"}
	stream := NewSingleEventStream(response)

	var collected []StreamEvent
	for event, err := range stream.Iter() {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		collected = append(collected, event)
	}

	if len(collected) != 2 {
		t.Fatalf("expected 2 events (content + done), got %d", len(collected))
	}
	if collected[0].Type != StreamEventContent || collected[0].Content != "hello world" {
		t.Errorf("unexpected first event: %+v", collected[0])
	}
	if collected[1].Type != StreamEventDone || collected[1].FinishReason != "stop" {
		t.Errorf("unexpected last event: %+v", collected[1])
	}
}

// TestNewSingleEventStream_ToolCalls verifies that each tool call becomes a
// start event followed by one complete arguments event.
func TestNewSingleEventStream_ToolCalls(t *testing.T) {
	response := &ChatResponse{
		ToolCalls: []ToolCall{{ID: "call_1", Name: "generate_hook", Arguments: `{"topic":"coffee"}`}},
	}

	var types []StreamEventType
	for event, err := range NewSingleEventStream(response).Iter() {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		types = append(types, event.Type)
	}

	expected := []StreamEventType{StreamEventToolCallStart, StreamEventToolCallArgs, StreamEventDone}
	if len(types) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, types)
	}
	for i := range expected {
		if types[i] != expected[i] {
			t.Errorf("event %d: expected %q, got %q", i, expected[i], types[i])
		}
	}
}

// TestCollect_AccumulatesContentAndToolCalls verifies that Collect joins text
// deltas and rebuilds fragmented tool call arguments in order.
func TestCollect_AccumulatesContentAndToolCalls(t *testing.T) {
	stream := makeStream([]StreamEvent{
		ContentEvent("Hel"),
		ContentEvent("lo"),
		ToolCallStartEvent("a", "f"),
		ToolCallArgsEvent("a", `{"x":`),
		ToolCallStartEvent("b", "g"),
		ToolCallArgsEvent("a", `1}`),
		ToolCallArgsEvent("b", `{}`),
		DoneEvent("tool_calls", &Usage{PromptTokens: 3, CompletionTokens: 4, TotalTokens: 7}),
	}, nil, 0)

	response, err := stream.Collect()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Content != "Hello" {
		t.Errorf("expected content %q, got %q", "Hello", response.Content)
	}
	if len(response.ToolCalls) != 2 {
		t.Fatalf("expected 2 tool calls, got %d", len(response.ToolCalls))
	}
	if response.ToolCalls[0] != (ToolCall{ID: "a", Name: "f", Arguments: `{"x":1}`}) {
		t.Errorf("unexpected first tool call: %+v", response.ToolCalls[0])
	}
	if response.ToolCalls[1] != (ToolCall{ID: "b", Name: "g", Arguments: `{}`}) {
		t.Errorf("unexpected second tool call: %+v", response.ToolCalls[1])
	}
	if response.FinishReason != "tool_calls" {
		t.Errorf("expected finish reason %q, got %q", "tool_calls", response.FinishReason)
	}
	if response.Usage == nil || response.Usage.TotalTokens != 7 {
		t.Errorf("expected usage with 7 total tokens, got %+v", response.Usage)
	}
}

// TestCollect_MidStreamError verifies that Collect returns the partial response
// alongside the error.
func TestCollect_MidStreamError(t *testing.T) {
	midErr := errors.New("connection reset")
	stream := makeStream([]StreamEvent{
		ContentEvent("partial "),
		ContentEvent("answer"),
		ContentEvent("never seen"),
	}, midErr, 2)

	response, err := stream.Collect()
	if !errors.Is(err, midErr) {
		t.Fatalf("expected %v, got %v", midErr, err)
	}
	if response.Content != "partial answer" {
		t.Errorf("expected partial content %q, got %q", "partial answer", response.Content)
	}
}

// TestIter_EarlyBreakStopsProducer verifies that breaking out of the range loop
// stops the producer at the next yield.
func TestIter_EarlyBreakStopsProducer(t *testing.T) {
	produced := 0
	stream := NewChatStream(func(yield func(StreamEvent, error) bool) {
		for i := 0; i < 10; i++ {
			produced++
			if !yield(ContentEvent("x"), nil) {
				return
			}
		}
	})

	for range stream.Iter() {
		break
	}

	if produced != 1 {
		t.Errorf("expected producer to stop after 1 event, produced %d", produced)
	}
}

// TestToolCallAccumulator_NoCalls verifies that an empty accumulator reports nil.
func TestToolCallAccumulator_NoCalls(t *testing.T) {
	accumulator := NewToolCallAccumulator()
	accumulator.Add(ContentEvent("ignored"))
	if calls := accumulator.ToolCalls(); calls != nil {
		t.Errorf("expected nil tool calls, got %+v", calls)
	}
}

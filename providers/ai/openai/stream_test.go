package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leofalp/owlseer/providers/ai"
)

// writeSSE writes an SSE data line and flushes.
func writeSSE(w http.ResponseWriter, data string) {
	fmt.Fprintf(w, "data: %s\n\n", data)
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

func sseServer(t *testing.T, lines ...string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range lines {
			writeSSE(w, line)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func collectEvents(t *testing.T, stream *ai.ChatStream) ([]ai.StreamEvent, error) {
	t.Helper()
	var events []ai.StreamEvent
	for event, err := range stream.Iter() {
		if err != nil {
			return events, err
		}
		events = append(events, event)
	}
	return events, nil
}

var userOnly = ai.ChatRequest{Messages: []ai.Message{{Role: ai.RoleUser, Content: "hi"}}}

func TestStreamMessage_Content(t *testing.T) {
	server := sseServer(t,
		`{"id":"c1","choices":[{"index":0,"delta":{"role":"assistant","content":"Hello"},"finish_reason":null}]}`,
		`{"id":"c1","choices":[{"index":0,"delta":{"content":" world"},"finish_reason":null}]}`,
		`{"id":"c1","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
		`{"id":"c1","choices":[],"usage":{"prompt_tokens":10,"completion_tokens":2,"total_tokens":12}}`,
		`[DONE]`,
	)

	stream, err := newTestProvider(server.URL).StreamMessage(context.Background(), userOnly)
	if err != nil {
		t.Fatalf("StreamMessage returned error: %v", err)
	}
	response, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if response.Content != "Hello world" || response.FinishReason != "stop" {
		t.Errorf("unexpected response %+v", response)
	}
	if response.Usage == nil || response.Usage.TotalTokens != 12 {
		t.Errorf("expected usage from trailing chunk, got %+v", response.Usage)
	}
}

// TestStreamMessage_ToolCallFragments verifies that a call announced in the
// first delta yields one start and one args event per fragment.
func TestStreamMessage_ToolCallFragments(t *testing.T) {
	server := sseServer(t,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"a","type":"function","function":{"name":"f","arguments":""}}]}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"x\":"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"1}"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
		`[DONE]`,
	)

	stream, err := newTestProvider(server.URL).StreamMessage(context.Background(), userOnly)
	if err != nil {
		t.Fatalf("StreamMessage returned error: %v", err)
	}
	events, err := collectEvents(t, stream)
	if err != nil {
		t.Fatalf("unexpected stream error: %v", err)
	}

	want := []ai.StreamEvent{
		ai.ToolCallStartEvent("a", "f"),
		ai.ToolCallArgsEvent("a", `{"x":`),
		ai.ToolCallArgsEvent("a", `1}`),
		ai.DoneEvent("tool_calls", nil),
	}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d: %+v", len(want), len(events), events)
	}
	for i := range want {
		if events[i].Type != want[i].Type || events[i].ToolCallID != want[i].ToolCallID ||
			events[i].ToolName != want[i].ToolName || events[i].ArgumentsDelta != want[i].ArgumentsDelta ||
			events[i].FinishReason != want[i].FinishReason {
			t.Errorf("event %d = %+v, want %+v", i, events[i], want[i])
		}
	}
}

// TestStreamMessage_BufferedFragments verifies that fragments arriving before
// the id are flushed right after the start event.
func TestStreamMessage_BufferedFragments(t *testing.T) {
	server := sseServer(t,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"name":"web_search","arguments":"{\"query\":"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"late","function":{"arguments":"\"latte\"}"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
		`[DONE]`,
	)

	stream, err := newTestProvider(server.URL).StreamMessage(context.Background(), userOnly)
	if err != nil {
		t.Fatalf("StreamMessage returned error: %v", err)
	}
	events, err := collectEvents(t, stream)
	if err != nil {
		t.Fatalf("unexpected stream error: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("expected start, 2 args, done; got %+v", events)
	}
	if events[0].Type != ai.StreamEventToolCallStart || events[0].ToolCallID != "late" || events[0].ToolName != "web_search" {
		t.Errorf("unexpected start event %+v", events[0])
	}
	if events[1].ArgumentsDelta+events[2].ArgumentsDelta != `{"query":"latte"}` {
		t.Errorf("unexpected fragments %q %q", events[1].ArgumentsDelta, events[2].ArgumentsDelta)
	}
}

// TestStreamMessage_ParallelCalls verifies two interleaved indexes keep their
// own ids and arrive in order after Collect.
func TestStreamMessage_ParallelCalls(t *testing.T) {
	server := sseServer(t,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"a","function":{"name":"generate_hook","arguments":"{\"topic\":"}},{"index":1,"id":"b","function":{"name":"trend_analyzer","arguments":"{}"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"tea\"}"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
	)

	stream, err := newTestProvider(server.URL).StreamMessage(context.Background(), userOnly)
	if err != nil {
		t.Fatalf("StreamMessage returned error: %v", err)
	}
	response, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if len(response.ToolCalls) != 2 {
		t.Fatalf("expected 2 tool calls, got %+v", response.ToolCalls)
	}
	if response.ToolCalls[0].ID != "a" || response.ToolCalls[0].Arguments != `{"topic":"tea"}` {
		t.Errorf("unexpected first call %+v", response.ToolCalls[0])
	}
	if response.ToolCalls[1].ID != "b" || response.ToolCalls[1].Name != "trend_analyzer" {
		t.Errorf("unexpected second call %+v", response.ToolCalls[1])
	}
}

func TestStreamMessage_SkipsMalformedLines(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, ": keep-alive\n\nevent: ping\n")
		writeSSE(w, `{not json`)
		writeSSE(w, `{"choices":[{"index":0,"delta":{"content":"ok"},"finish_reason":"stop"}]}`)
		writeSSE(w, `[DONE]`)
		writeSSE(w, `{"choices":[{"index":0,"delta":{"content":"after done"}}]}`)
	}))
	defer server.Close()

	stream, err := newTestProvider(server.URL).StreamMessage(context.Background(), userOnly)
	if err != nil {
		t.Fatalf("StreamMessage returned error: %v", err)
	}
	response, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if response.Content != "ok" {
		t.Errorf("expected only content before [DONE], got %q", response.Content)
	}
}

func TestStreamMessage_RequestFlags(t *testing.T) {
	var captured chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if accept := r.Header.Get("Accept"); !strings.Contains(accept, "text/event-stream") {
			t.Errorf("unexpected Accept header %q", accept)
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		writeSSE(w, `[DONE]`)
	}))
	defer server.Close()

	stream, err := newTestProvider(server.URL).StreamMessage(context.Background(), userOnly)
	if err != nil {
		t.Fatalf("StreamMessage returned error: %v", err)
	}
	if _, err := stream.Collect(); err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if !captured.Stream || captured.StreamOptions == nil || !captured.StreamOptions.IncludeUsage {
		t.Errorf("expected stream with include_usage, got %+v", captured)
	}
}

func TestStreamMessage_PreStreamAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestProvider(server.URL).StreamMessage(context.Background(), userOnly)
	var authErr *ai.AuthError
	if !errors.As(err, &authErr) {
		t.Errorf("expected AuthError before the stream opens, got %v", err)
	}
}

// TestStreamMessage_EarlyBreak verifies the consumer can stop mid-stream
// without draining the body.
func TestStreamMessage_EarlyBreak(t *testing.T) {
	server := sseServer(t,
		`{"choices":[{"index":0,"delta":{"content":"one"}}]}`,
		`{"choices":[{"index":0,"delta":{"content":"two"}}]}`,
		`{"choices":[{"index":0,"delta":{"content":"three"}}]}`,
	)

	stream, err := newTestProvider(server.URL).StreamMessage(context.Background(), userOnly)
	if err != nil {
		t.Fatalf("StreamMessage returned error: %v", err)
	}
	var received []string
	for event, err := range stream.Iter() {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		received = append(received, event.Content)
		if len(received) == 2 {
			break
		}
	}
	if strings.Join(received, ",") != "one,two" {
		t.Errorf("unexpected events %v", received)
	}
}

package gemini

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

func newTestProvider(serverURL string) *Provider {
	return New(WithAPIKey("test-key"), WithBaseURL(serverURL), WithModel("gemini-test"))
}

func TestRequestToGenerateContent(t *testing.T) {
	wire := requestToGenerateContent(ai.ChatRequest{
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: "sys"},
			{Role: ai.RoleUser, Content: "hi"},
			{Role: ai.RoleAssistant, ToolCalls: []ai.ToolCall{
				{ID: "call_a", Name: "generate_hook", Arguments: `{"topic":"tea"}`},
				{ID: "call_b", Name: "trend_analyzer", Arguments: `{}`},
			}},
			{Role: ai.RoleTool, ToolCallID: "call_a", Content: "hooks"},
			{Role: ai.RoleTool, ToolCallID: "call_b", Content: "trends"},
		},
		Tools: []ai.ToolDefinition{{
			Name: "generate_hook",
			Parameters: ai.ParameterSchema{
				Type:       "object",
				Properties: map[string]ai.PropertySchema{"topic": {Type: "string"}, "count": {Type: "integer"}},
				Required:   []string{"topic"},
			},
		}},
	})

	if wire.SystemInstruction == nil || wire.SystemInstruction.Parts[0].Text != "sys" {
		t.Fatalf("expected system_instruction, got %+v", wire.SystemInstruction)
	}
	if len(wire.Contents) != 3 {
		t.Fatalf("expected user, model and merged function responses, got %+v", wire.Contents)
	}
	if wire.Contents[1].Role != "model" || len(wire.Contents[1].Parts) != 2 {
		t.Errorf("unexpected model content %+v", wire.Contents[1])
	}
	responses := wire.Contents[2]
	if responses.Role != "user" || len(responses.Parts) != 2 {
		t.Fatalf("unexpected function responses %+v", responses)
	}
	if responses.Parts[0].FunctionResponse.Name != "generate_hook" || responses.Parts[1].FunctionResponse.Name != "trend_analyzer" {
		t.Errorf("expected names resolved from the assistant calls, got %+v", responses.Parts)
	}
	if responses.Parts[0].FunctionResponse.Response.Content != "hooks" {
		t.Errorf("unexpected response payload %+v", responses.Parts[0].FunctionResponse)
	}

	parameters := wire.Tools[0].FunctionDeclarations[0].Parameters
	if parameters.Type != "OBJECT" || parameters.Properties["topic"].Type != "STRING" || parameters.Properties["count"].Type != "INTEGER" {
		t.Errorf("expected upper-cased schema types, got %+v", parameters)
	}

	encoded, _ := json.Marshal(wire)
	for _, key := range []string{`"system_instruction"`, `"function_declarations"`, `"function_response"`, `"function_call"`} {
		if !strings.Contains(string(encoded), key) {
			t.Errorf("expected %s in request JSON", key)
		}
	}
	if strings.Count(string(encoded), `"sys"`) != 1 {
		t.Errorf("system prompt must appear exactly once: %s", encoded)
	}
}

func TestSendMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-test:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" || r.URL.Query().Get("key") != "" {
			t.Errorf("expected key in header only")
		}
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Here you go"},{"functionCall":{"name":"web_search","args":{"query":"latte"}}}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":4,"candidatesTokenCount":6,"totalTokenCount":10}}`)
	}))
	defer server.Close()

	response, err := newTestProvider(server.URL).SendMessage(context.Background(), ai.ChatRequest{
		Messages: []ai.Message{{Role: ai.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
	if response.Content != "Here you go" || response.FinishReason != "tool_calls" {
		t.Errorf("unexpected response %+v", response)
	}
	if len(response.ToolCalls) != 1 || !strings.HasPrefix(response.ToolCalls[0].ID, "call_") || response.ToolCalls[0].Arguments != `{"query":"latte"}` {
		t.Errorf("unexpected tool calls %+v", response.ToolCalls)
	}
	if response.Usage == nil || response.Usage.TotalTokens != 10 {
		t.Errorf("unexpected usage %+v", response.Usage)
	}
}

func TestSendMessage_NoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"promptFeedback":{"blockReason":"SAFETY"}}`)
	}))
	defer server.Close()

	_, err := newTestProvider(server.URL).SendMessage(context.Background(), ai.ChatRequest{
		Messages: []ai.Message{{Role: ai.RoleUser, Content: "hi"}},
	})
	var protocolErr *ai.ProtocolError
	if !errors.As(err, &protocolErr) || protocolErr.Kind != ai.MalformedResponse {
		t.Errorf("expected MalformedResponse, got %v", err)
	}
}

// TestSendMessage_FinishWithoutContent verifies a candidate that finished
// without content yields an empty reply.
func TestSendMessage_FinishWithoutContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"candidates":[{"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":9,"candidatesTokenCount":0,"totalTokenCount":9}}`)
	}))
	defer server.Close()

	response, err := newTestProvider(server.URL).SendMessage(context.Background(), ai.ChatRequest{
		Messages: []ai.Message{{Role: ai.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
	if response.Content != "" || response.HasToolCalls() || response.FinishReason != "stop" {
		t.Errorf("expected an empty final reply, got %+v", response)
	}
	if response.Usage == nil || response.Usage.TotalTokens != 9 {
		t.Errorf("unexpected usage %+v", response.Usage)
	}
}

func TestResponseFromGenerateContent_CandidateWithoutContentOrReason(t *testing.T) {
	_, err := responseFromGenerateContent(&generateContentResponse{Candidates: []candidate{{}}})
	var protocolErr *ai.ProtocolError
	if !errors.As(err, &protocolErr) || protocolErr.Kind != ai.MalformedResponse {
		t.Errorf("expected MalformedResponse, got %v", err)
	}
}

func TestStreamMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-test:streamGenerateContent" || r.URL.Query().Get("alt") != "sse" {
			t.Errorf("unexpected URL %s", r.URL)
		}
		chunks := []string{
			`{"candidates":[{"content":{"role":"model","parts":[{"text":"Looking "}]}}]}`,
			`{"candidates":[{"content":{"role":"model","parts":[{"text":"it up"}]}}]}`,
			`{"candidates":[{"content":{"role":"model","parts":[{"functionCall":{"name":"g","args":{"x":1}}}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":3,"candidatesTokenCount":5,"totalTokenCount":8}}`,
		}
		for _, chunk := range chunks {
			fmt.Fprintf(w, "data: %s\r\n\r\n", chunk)
		}
	}))
	defer server.Close()

	stream, err := newTestProvider(server.URL).StreamMessage(context.Background(), ai.ChatRequest{
		Messages: []ai.Message{{Role: ai.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("StreamMessage returned error: %v", err)
	}

	var events []ai.StreamEvent
	for event, err := range stream.Iter() {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		events = append(events, event)
	}
	if len(events) != 5 {
		t.Fatalf("expected 2 content, start, args, done; got %+v", events)
	}
	start, args, done := events[2], events[3], events[4]
	if start.Type != ai.StreamEventToolCallStart || start.ToolName != "g" || !strings.HasPrefix(start.ToolCallID, "call_") {
		t.Errorf("unexpected start %+v", start)
	}
	if args.ToolCallID != start.ToolCallID || args.ArgumentsDelta != `{"x":1}` {
		t.Errorf("expected complete args under the same id, got %+v", args)
	}
	if done.Type != ai.StreamEventDone || done.FinishReason != "tool_calls" || done.Usage == nil || done.Usage.TotalTokens != 8 {
		t.Errorf("unexpected done %+v", done)
	}
}

// TestStreamMessage_UniqueIDs verifies two calls in one payload get distinct
// ids.
func TestStreamMessage_UniqueIDs(t *testing.T) {
	events := partsToEvents([]responsePart{
		{FunctionCall: &functionCall{Name: "a"}},
		{FunctionCall: &functionCall{Name: "b", Args: json.RawMessage(`{"q":"x"}`)}},
	})
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %+v", events)
	}
	if events[0].ToolCallID == events[2].ToolCallID {
		t.Error("expected distinct generated ids")
	}
	if events[1].ArgumentsDelta != "{}" {
		t.Errorf("expected missing args to become {}, got %q", events[1].ArgumentsDelta)
	}
}

package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/leofalp/owlseer/providers/ai"
)

func newTestProvider(serverURL string) *Provider {
	return New(WithAPIKey("test-key"), WithBaseURL(serverURL), WithModel("test-model"))
}

func TestSendMessage_RequestFormat(t *testing.T) {
	var captured chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected Authorization header %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Fatalf("request is not JSON: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","choices":[{"index":0,"message":{"role":"assistant","content":"Hello"},"finish_reason":"stop"}],"usage":{"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}}`)
	}))
	defer server.Close()

	response, err := newTestProvider(server.URL).SendMessage(context.Background(), ai.ChatRequest{
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: "be brief"},
			{Role: ai.RoleUser, Content: "hi"},
			{Role: ai.RoleAssistant, ToolCalls: []ai.ToolCall{{ID: "call_1", Name: "generate_hook", Arguments: `{"topic":"coffee"}`}}},
			{Role: ai.RoleTool, ToolCallID: "call_1", Content: "hooks"},
		},
		Tools: []ai.ToolDefinition{{
			Name:        "generate_hook",
			Description: "Generate hooks",
			Parameters: ai.ParameterSchema{
				Type:       "object",
				Properties: map[string]ai.PropertySchema{"topic": {Type: "string"}},
				Required:   []string{"topic"},
			},
		}},
	})
	if err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
	if response.Content != "Hello" || response.FinishReason != "stop" {
		t.Errorf("unexpected response %+v", response)
	}
	if response.Usage == nil || response.Usage.TotalTokens != 7 {
		t.Errorf("unexpected usage %+v", response.Usage)
	}

	if captured.Model != "test-model" || captured.Stream {
		t.Errorf("unexpected model/stream: %+v", captured)
	}
	systemCount := 0
	for _, message := range captured.Messages {
		if message.Role == "system" {
			systemCount++
		}
	}
	if systemCount != 1 || captured.Messages[0].Role != "system" {
		t.Errorf("expected exactly one leading system message, got %+v", captured.Messages)
	}
	assistant := captured.Messages[2]
	if assistant.Content != nil || len(assistant.ToolCalls) != 1 || assistant.ToolCalls[0].Type != "function" {
		t.Errorf("unexpected assistant tool call message %+v", assistant)
	}
	if tool := captured.Messages[3]; tool.Role != "tool" || tool.ToolCallID != "call_1" {
		t.Errorf("unexpected tool message %+v", tool)
	}
	if len(captured.Tools) != 1 || captured.Tools[0].Type != "function" || captured.Tools[0].Function.Name != "generate_hook" {
		t.Errorf("unexpected tools %+v", captured.Tools)
	}
}

func TestSendMessage_ToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":null,"tool_calls":[{"id":"call_9","type":"function","function":{"name":"trend_analyzer","arguments":"{\"category\":\"food\"}"}}]},"finish_reason":"tool_calls"}]}`)
	}))
	defer server.Close()

	response, err := newTestProvider(server.URL).SendMessage(context.Background(), ai.ChatRequest{
		Messages: []ai.Message{{Role: ai.RoleUser, Content: "trends?"}},
	})
	if err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
	if !response.HasToolCalls() {
		t.Fatal("expected tool calls")
	}
	call := response.ToolCalls[0]
	if call.ID != "call_9" || call.Name != "trend_analyzer" || call.Arguments != `{"category":"food"}` {
		t.Errorf("unexpected tool call %+v", call)
	}
}

func TestSendMessage_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   `{"error":{"message":"bad key"}}`,
			check:  func(err error) bool { var target *ai.AuthError; return errors.As(err, &target) },
		},
		{
			name:   "rate limited",
			status: http.StatusTooManyRequests,
			body:   `{}`,
			check:  func(err error) bool { var target *ai.UpstreamRateLimitError; return errors.As(err, &target) },
		},
		{
			name:   "server error",
			status: http.StatusBadGateway,
			body:   `upstream down`,
			check: func(err error) bool {
				var target *ai.ServerError
				return errors.As(err, &target) && target.StatusCode == http.StatusBadGateway
			},
		},
		{
			name:   "undecodable body",
			status: http.StatusOK,
			body:   `not json`,
			check: func(err error) bool {
				var target *ai.ProtocolError
				return errors.As(err, &target) && target.Kind == ai.DecodeFailure
			},
		},
		{
			name:   "no choices",
			status: http.StatusOK,
			body:   `{"choices":[]}`,
			check: func(err error) bool {
				var target *ai.ProtocolError
				return errors.As(err, &target) && target.Kind == ai.MalformedResponse
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			_, err := newTestProvider(server.URL).SendMessage(context.Background(), ai.ChatRequest{
				Messages: []ai.Message{{Role: ai.RoleUser, Content: "hi"}},
			})
			if err == nil || !tt.check(err) {
				t.Errorf("unexpected error %v (%T)", err, err)
			}
		})
	}
}

func TestSendMessage_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	provider := New(WithAPIKey("k"), WithBaseURL(server.URL), WithTimeouts(20*time.Millisecond, time.Second))
	_, err := provider.SendMessage(context.Background(), ai.ChatRequest{
		Messages: []ai.Message{{Role: ai.RoleUser, Content: "hi"}},
	})
	if !errors.Is(err, ai.ErrTimeout) {
		t.Errorf("expected timeout, got %v", err)
	}
}

func TestSendMessage_MissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := New().SendMessage(context.Background(), ai.ChatRequest{
		Messages: []ai.Message{{Role: ai.RoleUser, Content: "hi"}},
	})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestNew_Environment(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("OPENAI_BASE_URL", "https://example.test/v1/")
	t.Setenv("OPENAI_MODEL", "env-model")

	provider := New()
	if provider.apiKey != "env-key" || provider.baseURL != "https://example.test/v1" || provider.Model() != "env-model" {
		t.Errorf("unexpected provider from env: %+v", provider)
	}

	provider = New(WithModel("override"))
	if provider.Model() != "override" {
		t.Errorf("expected option to override env, got %q", provider.Model())
	}
}

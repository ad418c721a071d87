package ai

import (
	"errors"
	"fmt"
)

/*
	##### PROVIDER INPUT #####
*/

// ChatRequest is the provider-agnostic input of a single chat turn. Messages
// holds the full context in conversation order, including the optional
// leading system message. Tools is nil when the model must not call tools.
type ChatRequest struct {
	Messages []Message        `json:"messages"`
	Tools    []ToolDefinition `json:"tools,omitempty"`
}

// Message represents a single message in a conversation
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content,omitempty"`

	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // For role=assistant requesting tools
	ToolCallID string     `json:"tool_call_id,omitempty"` // For role=tool, links to the tool call being responded to
}

// ToolCall is a model request to invoke a named tool. Arguments is the raw
// JSON-encoded argument object exactly as the model produced it.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// SkillKind tells whether a tool only produces instruction text or performs
// external I/O.
type SkillKind string

const (
	SkillPurePrompt         SkillKind = "pure_prompt"
	SkillExternalCapability SkillKind = "external_capability"
)

// ToolDefinition describes a tool the model may invoke.
type ToolDefinition struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  ParameterSchema `json:"parameters"`
	SkillKind   SkillKind       `json:"skill_kind"`
}

// ParameterSchema is the JSON-schema subset accepted by every backend: an
// object with flat, typed properties.
type ParameterSchema struct {
	Type       string                    `json:"type"`
	Properties map[string]PropertySchema `json:"properties"`
	Required   []string                  `json:"required,omitempty"`
}

type PropertySchema struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

/*
	##### PROVIDER OUTPUT #####
*/

type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// ChatResponse is the decoded result of a non-streaming call.
type ChatResponse struct {
	Content      string     `json:"content,omitempty"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	FinishReason string     `json:"finish_reason,omitempty"`
	Usage        *Usage     `json:"usage,omitempty"`
}

// HasToolCalls reports whether the model asked for at least one tool call.
func (r *ChatResponse) HasToolCalls() bool {
	return r != nil && len(r.ToolCalls) > 0
}

/*
	##### ENUMS #####
*/

// MessageRole represents the role of a message; compatible with string
type MessageRole string

const (
	RoleSystem    MessageRole = "system"    // System instructions/configuration
	RoleUser      MessageRole = "user"      // End-user message
	RoleAssistant MessageRole = "assistant" // Model response
	RoleTool      MessageRole = "tool"      // Tool/function output
)

// ErrInvalidMessages is returned by ValidateMessages.
var ErrInvalidMessages = errors.New("invalid message list")

// ValidateMessages checks the ordering rules every adapter relies on: at most
// one system message, placed first, and a tool call id on every tool message.
func ValidateMessages(messages []Message) error {
	for i, message := range messages {
		switch message.Role {
		case RoleSystem:
			if i != 0 {
				return fmt.Errorf("%w: system message at position %d", ErrInvalidMessages, i)
			}
		case RoleTool:
			if message.ToolCallID == "" {
				return fmt.Errorf("%w: tool message at position %d has no tool call id", ErrInvalidMessages, i)
			}
		case RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("%w: unknown role %q at position %d", ErrInvalidMessages, message.Role, i)
		}
	}
	return nil
}

// SplitSystem separates the leading system message from the rest of the
// conversation. Backends that carry the system prompt in a dedicated field
// use it so the prompt is never sent twice.
func SplitSystem(messages []Message) (string, []Message) {
	if len(messages) > 0 && messages[0].Role == RoleSystem {
		return messages[0].Content, messages[1:]
	}
	return "", messages
}

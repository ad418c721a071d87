package anthropic

import (
	"encoding/json"
	"strings"

	"github.com/leofalp/owlseer/core/parse"
	"github.com/leofalp/owlseer/providers/ai"
)

const defaultMaxTokens = 4096

func requestToMessages(model string, request ai.ChatRequest) messagesRequest {
	system, rest := ai.SplitSystem(request.Messages)

	wire := messagesRequest{
		Model:     model,
		System:    system,
		Messages:  buildMessages(rest),
		MaxTokens: defaultMaxTokens,
	}
	for _, definition := range request.Tools {
		wire.Tools = append(wire.Tools, tool{
			Name:        definition.Name,
			Description: definition.Description,
			InputSchema: definition.Parameters,
		})
	}
	return wire
}

// buildMessages converts the conversation after the system prompt. Tool
// messages become tool_result blocks; a run of them shares one user message.
func buildMessages(messages []ai.Message) []message {
	var result []message

	for _, msg := range messages {
		switch msg.Role {
		case ai.RoleUser:
			result = append(result, message{
				Role:    "user",
				Content: []contentBlock{{Type: "text", Text: msg.Content}},
			})

		case ai.RoleAssistant:
			assistant := message{Role: "assistant"}
			if msg.Content != "" {
				assistant.Content = append(assistant.Content, contentBlock{Type: "text", Text: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				assistant.Content = append(assistant.Content, contentBlock{
					Type:  "tool_use",
					ID:    call.ID,
					Name:  call.Name,
					Input: argumentsToInput(call.Arguments),
				})
			}
			if len(assistant.Content) > 0 {
				result = append(result, assistant)
			}

		case ai.RoleTool:
			block := contentBlock{Type: "tool_result", ToolUseID: msg.ToolCallID, Content: msg.Content}
			if len(result) > 0 && isAllToolResults(result[len(result)-1]) {
				result[len(result)-1].Content = append(result[len(result)-1].Content, block)
			} else {
				result = append(result, message{Role: "user", Content: []contentBlock{block}})
			}
		}
	}

	return result
}

func isAllToolResults(msg message) bool {
	if msg.Role != "user" || len(msg.Content) == 0 {
		return false
	}
	for _, block := range msg.Content {
		if block.Type != "tool_result" {
			return false
		}
	}
	return true
}

// argumentsToInput turns the raw argument string into the JSON object the
// API expects. Unparseable arguments degrade to an empty object.
func argumentsToInput(arguments string) json.RawMessage {
	args, err := parse.ParseArguments(arguments)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return encoded
}

// responseFromMessages converts a Messages API answer. An empty content list
// with a stop reason is a legitimate empty reply (the model may have nothing
// to add after a tool result).
func responseFromMessages(response *messagesResponse) (*ai.ChatResponse, error) {
	if response == nil || (len(response.Content) == 0 && response.StopReason == "") {
		return nil, &ai.ProtocolError{Kind: ai.MalformedResponse, Message: "response has no content blocks"}
	}

	result := &ai.ChatResponse{
		FinishReason: mapStopReason(response.StopReason),
		Usage:        usageFromWire(response.Usage),
	}

	var text []string
	for _, block := range response.Content {
		switch block.Type {
		case "text":
			text = append(text, block.Text)
		case "tool_use":
			arguments := string(block.Input)
			if arguments == "" {
				arguments = "{}"
			}
			result.ToolCalls = append(result.ToolCalls, ai.ToolCall{ID: block.ID, Name: block.Name, Arguments: arguments})
		}
	}
	result.Content = strings.Join(text, "\n")
	return result, nil
}

// mapStopReason converts stop_reason to the finish reasons used elsewhere.
func mapStopReason(stopReason string) string {
	switch stopReason {
	case "tool_use":
		return "tool_calls"
	case "max_tokens":
		return "length"
	case "":
		return ""
	default:
		return "stop"
	}
}

func usageFromWire(u usage) *ai.Usage {
	return &ai.Usage{
		PromptTokens:     u.InputTokens,
		CompletionTokens: u.OutputTokens,
		TotalTokens:      u.InputTokens + u.OutputTokens,
	}
}

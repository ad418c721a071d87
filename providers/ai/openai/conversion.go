package openai

import (
	"github.com/leofalp/owlseer/providers/ai"
)

// requestToChatCompletion maps the canonical request onto the wire format.
// Messages map one to one: this protocol has native system and tool roles.
func requestToChatCompletion(model string, request ai.ChatRequest) chatCompletionRequest {
	wire := chatCompletionRequest{
		Model:    model,
		Messages: make([]chatMessage, 0, len(request.Messages)),
	}

	for _, message := range request.Messages {
		wire.Messages = append(wire.Messages, messageToWire(message))
	}

	for _, tool := range request.Tools {
		wire.Tools = append(wire.Tools, chatTool{
			Type: "function",
			Function: chatFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}

	return wire
}

func messageToWire(message ai.Message) chatMessage {
	wire := chatMessage{
		Role:       string(message.Role),
		ToolCallID: message.ToolCallID,
	}

	content := message.Content
	if content != "" || len(message.ToolCalls) == 0 {
		wire.Content = &content
	}

	for _, call := range message.ToolCalls {
		arguments := call.Arguments
		if arguments == "" {
			arguments = "{}"
		}
		wire.ToolCalls = append(wire.ToolCalls, chatToolCall{
			ID:       call.ID,
			Type:     "function",
			Function: chatFunctionCall{Name: call.Name, Arguments: arguments},
		})
	}
	return wire
}

// responseFromChatCompletion converts the first choice. A response without
// choices is malformed.
func responseFromChatCompletion(response *chatCompletionResponse) (*ai.ChatResponse, error) {
	if response == nil || len(response.Choices) == 0 {
		return nil, &ai.ProtocolError{Kind: ai.MalformedResponse, Message: "response has no choices"}
	}

	choice := response.Choices[0]
	result := &ai.ChatResponse{
		FinishReason: choice.FinishReason,
		Usage:        usageFromWire(response.Usage),
	}
	if choice.Message.Content != nil {
		result.Content = *choice.Message.Content
	}
	for _, call := range choice.Message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, ai.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	return result, nil
}

func usageFromWire(usage *chatUsage) *ai.Usage {
	if usage == nil {
		return nil
	}
	return &ai.Usage{
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
	}
}

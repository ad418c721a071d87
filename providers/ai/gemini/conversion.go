package gemini

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/leofalp/owlseer/core/parse"
	"github.com/leofalp/owlseer/providers/ai"
)

func requestToGenerateContent(request ai.ChatRequest) generateContentRequest {
	system, rest := ai.SplitSystem(request.Messages)

	wire := generateContentRequest{Contents: buildContents(rest)}
	if system != "" {
		wire.SystemInstruction = &content{Parts: []part{{Text: system}}}
	}

	if len(request.Tools) > 0 {
		declarations := make([]functionDeclaration, 0, len(request.Tools))
		for _, definition := range request.Tools {
			declarations = append(declarations, functionDeclaration{
				Name:        definition.Name,
				Description: definition.Description,
				Parameters:  schemaFromParameters(definition.Parameters),
			})
		}
		wire.Tools = []tool{{FunctionDeclarations: declarations}}
	}
	return wire
}

// buildContents converts the conversation. Tool result names are looked up
// from the assistant call with the same id; a run of tool results shares one
// user content.
func buildContents(messages []ai.Message) []content {
	callNames := make(map[string]string)
	var result []content

	for _, msg := range messages {
		switch msg.Role {
		case ai.RoleUser:
			result = append(result, content{Role: "user", Parts: []part{{Text: msg.Content}}})

		case ai.RoleAssistant:
			model := content{Role: "model"}
			if msg.Content != "" {
				model.Parts = append(model.Parts, part{Text: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				callNames[call.ID] = call.Name
				model.Parts = append(model.Parts, part{FunctionCall: &functionCall{
					Name: call.Name,
					Args: argumentsToArgs(call.Arguments),
				}})
			}
			if len(model.Parts) > 0 {
				result = append(result, model)
			}

		case ai.RoleTool:
			response := part{FunctionResponse: &functionResponse{
				Name:     callNames[msg.ToolCallID],
				Response: functionResponsePayload{Content: msg.Content},
			}}
			if len(result) > 0 && isAllFunctionResponses(result[len(result)-1]) {
				result[len(result)-1].Parts = append(result[len(result)-1].Parts, response)
			} else {
				result = append(result, content{Role: "user", Parts: []part{response}})
			}
		}
	}
	return result
}

func isAllFunctionResponses(c content) bool {
	if c.Role != "user" || len(c.Parts) == 0 {
		return false
	}
	for _, p := range c.Parts {
		if p.FunctionResponse == nil {
			return false
		}
	}
	return true
}

func argumentsToArgs(arguments string) json.RawMessage {
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

// schemaFromParameters upper-cases type names and forces an OBJECT root.
func schemaFromParameters(parameters ai.ParameterSchema) *schema {
	root := &schema{Type: "OBJECT", Required: parameters.Required}
	if len(parameters.Properties) > 0 {
		root.Properties = make(map[string]*schema, len(parameters.Properties))
		for name, property := range parameters.Properties {
			root.Properties[name] = &schema{
				Type:        strings.ToUpper(property.Type),
				Description: property.Description,
				Enum:        property.Enum,
			}
		}
	}
	return root
}

func newCallID() string {
	return "call_" + uuid.NewString()
}

// partsToEvents converts the parts of one candidate. Each function call
// yields a start event under a fresh id followed by its complete arguments.
func partsToEvents(parts []responsePart) []ai.StreamEvent {
	var events []ai.StreamEvent
	for _, p := range parts {
		if p.Text != "" {
			events = append(events, ai.ContentEvent(p.Text))
		}
		if p.FunctionCall != nil {
			id := newCallID()
			arguments := string(p.FunctionCall.Args)
			if arguments == "" || arguments == "null" {
				arguments = "{}"
			}
			events = append(events,
				ai.ToolCallStartEvent(id, p.FunctionCall.Name),
				ai.ToolCallArgsEvent(id, arguments),
			)
		}
	}
	return events
}

// responseFromGenerateContent converts the first candidate. A candidate with
// a finish reason but no content becomes an empty reply.
func responseFromGenerateContent(response *generateContentResponse) (*ai.ChatResponse, error) {
	if response == nil || len(response.Candidates) == 0 {
		return nil, &ai.ProtocolError{Kind: ai.MalformedResponse, Message: "response has no candidates"}
	}

	first := response.Candidates[0]
	var parts []responsePart
	switch {
	case first.Content != nil:
		parts = first.Content.Parts
	case first.FinishReason == "":
		return nil, &ai.ProtocolError{Kind: ai.MalformedResponse, Message: "candidate has no content"}
	}
	stream := ai.NewStreamFromEvents(partsToEvents(parts)...)
	result, err := stream.Collect()
	if err != nil {
		return nil, err
	}
	result.FinishReason = mapFinishReason(first.FinishReason, result.HasToolCalls())
	result.Usage = usageFromWire(response.UsageMetadata)
	return result, nil
}

// mapFinishReason converts Gemini's upper-case reasons. STOP with function
// calls means the model wants tools.
func mapFinishReason(reason string, hasToolCalls bool) string {
	switch reason {
	case "":
		return ""
	case "STOP":
		if hasToolCalls {
			return "tool_calls"
		}
		return "stop"
	case "MAX_TOKENS":
		return "length"
	default:
		return strings.ToLower(reason)
	}
}

func usageFromWire(usage *usageMetadata) *ai.Usage {
	if usage == nil {
		return nil
	}
	return &ai.Usage{
		PromptTokens:     usage.PromptTokenCount,
		CompletionTokens: usage.CandidatesTokenCount,
		TotalTokens:      usage.TotalTokenCount,
	}
}

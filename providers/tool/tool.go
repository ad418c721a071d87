package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/leofalp/owlseer/core/parse"
	"github.com/leofalp/owlseer/internal/jsonschema"
	"github.com/leofalp/owlseer/providers/ai"
)

// GenericTool is the type-erased form of [Tool] stored in a [Catalog].
type GenericTool interface {
	ToolInfo() ai.ToolDefinition

	// Call decodes the JSON arguments and runs the tool. The error is non-nil
	// only when the arguments are unusable.
	Call(ctx context.Context, arguments string) (string, error)
}

// validator is implemented by argument types with required fields.
type validator interface {
	validate() error
}

// Tool is a tool whose arguments decode into I.
type Tool[I any] struct {
	Definition ai.ToolDefinition
	Function   func(ctx context.Context, input I) string
}

// ToolOption configures a tool built by [NewTool].
type ToolOption func(*ai.ToolDefinition)

// WithDescription sets the description shown to the model.
func WithDescription(description string) ToolOption {
	return func(d *ai.ToolDefinition) { d.Description = description }
}

// WithSkillKind sets how the tool is fulfilled. The default is
// [ai.SkillPurePrompt].
func WithSkillKind(kind ai.SkillKind) ToolOption {
	return func(d *ai.ToolDefinition) { d.SkillKind = kind }
}

// NewTool binds name to function. The parameter schema is derived from I's
// json and jsonschema struct tags, so the schema the model sees and the
// struct the arguments decode into cannot drift apart.
func NewTool[I any](name string, function func(ctx context.Context, input I) string, options ...ToolOption) *Tool[I] {
	definition := ai.ToolDefinition{
		ID:         name,
		Name:       name,
		Parameters: jsonschema.MustGenerate[I](),
		SkillKind:  ai.SkillPurePrompt,
	}
	for _, option := range options {
		option(&definition)
	}
	return &Tool[I]{Definition: definition, Function: function}
}

func (t *Tool[I]) ToolInfo() ai.ToolDefinition {
	return t.Definition
}

func (t *Tool[I]) Call(ctx context.Context, arguments string) (string, error) {
	if strings.TrimSpace(arguments) == "" {
		arguments = "{}"
	}

	input, err := parse.ParseStringAs[I](arguments)
	if err != nil {
		return "", err
	}
	if v, ok := any(&input).(validator); ok {
		if err := v.validate(); err != nil {
			return "", err
		}
	}
	return t.Function(ctx, input), nil
}

// requireField returns a *parse.MissingFieldError when value is blank.
func requireField(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return &parse.MissingFieldError{Field: name}
	}
	return nil
}

func argumentError(err error) string {
	return fmt.Sprintf("Failed to parse arguments: %v", err)
}

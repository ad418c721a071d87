package agent

import (
	"strings"
	"testing"
)

func TestPromptBuilder_Build(t *testing.T) {
	builder := DefaultPromptBuilder()

	withSearch := builder.Build(true)
	withoutSearch := builder.Build(false)

	for _, prompt := range []string{withSearch, withoutSearch} {
		for _, want := range []string{"You are OwlSeer", "### generate_hook", "### script_formatter", "### trend_analyzer", "## Reply guidelines"} {
			if !strings.Contains(prompt, want) {
				t.Errorf("prompt is missing %q", want)
			}
		}
	}
	if !strings.Contains(withSearch, "### web_search") {
		t.Error("expected the search section when search is enabled")
	}
	if strings.Contains(withoutSearch, "web_search") {
		t.Error("search section must be omitted when search is disabled")
	}

	// Sections keep their order: persona, skills, search, guidelines.
	skills := strings.Index(withSearch, "## Available skills")
	search := strings.Index(withSearch, "### web_search")
	guidelines := strings.Index(withSearch, "## Reply guidelines")
	if !(skills < search && search < guidelines) {
		t.Errorf("unexpected section order: skills %d, search %d, guidelines %d", skills, search, guidelines)
	}
}

func TestPromptBuilder_SkipsEmptySections(t *testing.T) {
	builder := PromptBuilder{Persona: "persona", Guidelines: "  rules \n"}
	if got := builder.Build(true); got != "persona\n\nrules" {
		t.Errorf("unexpected prompt %q", got)
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		status Status
		busy   bool
		text   string
	}{
		{Idle, false, "idle"},
		{Thinking, true, "thinking"},
		{CallingTool("generate_hook"), true, "calling_tool(generate_hook)"},
		{Streaming, true, "streaming"},
		{Failed("boom"), false, "error(boom)"},
	}
	for _, tt := range tests {
		if tt.status.Busy() != tt.busy {
			t.Errorf("%v: Busy() = %v, want %v", tt.status, tt.status.Busy(), tt.busy)
		}
		if tt.status.String() != tt.text {
			t.Errorf("String() = %q, want %q", tt.status.String(), tt.text)
		}
	}
}

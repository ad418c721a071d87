package search

import "testing"

func TestCleanSnippet(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain text", input: "  already clean  ", want: "already clean"},
		{name: "bold terms", input: "Short <b>video</b> trends", want: "Short **video** trends"},
		{name: "entities", input: "Tips &amp; tricks", want: "Tips & tricks"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanSnippet(tt.input); got != tt.want {
				t.Errorf("CleanSnippet(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

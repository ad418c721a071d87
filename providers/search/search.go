// Package search defines the web-search capability used by the web_search
// tool, plus the snippet cleaning shared by its implementations.
package search

import (
	"context"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// Result is a single search hit.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

// Capability performs a web search. Implementations return at most
// maxResults results.
type Capability interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

var blankLines = regexp.MustCompile(`\n{3,}`)

// CleanSnippet converts an HTML fragment (search engines often return
// highlighted <b> terms or entities) into plain markdown text. Input without
// markup is returned trimmed.
func CleanSnippet(snippet string) string {
	snippet = strings.TrimSpace(snippet)
	if !strings.ContainsAny(snippet, "<&") {
		return snippet
	}

	markdown, err := htmltomarkdown.ConvertString(snippet)
	if err != nil {
		return snippet
	}
	return blankLines.ReplaceAllString(strings.TrimSpace(markdown), "\n\n")
}

package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/leofalp/owlseer/providers/ai"
	"github.com/leofalp/owlseer/providers/search"
)

const (
	defaultSearchResults = 5
	maxSearchResults     = 10

	searchNotConfigured = "Error: web search is not configured. Set a Tavily or SerpAPI key to enable online search."
	searchNoResults     = "No relevant search results found"
)

type searchInput struct {
	Query      string `json:"query" jsonschema:"description=Search keywords"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"description=Maximum number of results (default 5)"`
}

func (in *searchInput) validate() error {
	if err := requireField("query", in.Query); err != nil {
		return err
	}
	switch {
	case in.MaxResults <= 0:
		in.MaxResults = defaultSearchResults
	case in.MaxResults > maxSearchResults:
		in.MaxResults = maxSearchResults
	}
	return nil
}

func newWebSearchTool(capability search.Capability) GenericTool {
	return NewTool(NameWebSearch, func(ctx context.Context, in searchInput) string {
		results, err := capability.Search(ctx, in.Query, in.MaxResults)
		if err != nil {
			return fmt.Sprintf("Search failed: %v", err)
		}
		if len(results) > in.MaxResults {
			results = results[:in.MaxResults]
		}
		return formatResults(in.Query, results)
	},
		WithDescription("Search the internet for live information such as recent trends, trending events and competitor analysis"),
		WithSkillKind(ai.SkillExternalCapability),
	)
}

// formatResults renders a numbered list followed by an instruction for the
// model.
func formatResults(query string, results []search.Result) string {
	if len(results) == 0 {
		return searchNoResults
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Search results for %q:\n\n", query)
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. **%s**\n   %s\n   %s\n\n", i+1, r.Title, r.Snippet, r.URL)
	}
	sb.WriteString("Use the search results above to give the user analysis and advice.")
	return sb.String()
}

package config

import (
	"fmt"
	"strings"

	"github.com/leofalp/owlseer/providers/observability"
	"github.com/leofalp/owlseer/providers/search"
	"github.com/leofalp/owlseer/providers/search/serpapi"
	"github.com/leofalp/owlseer/providers/search/tavily"
)

const (
	SearchTavily  = "tavily"
	SearchSerpAPI = "serpapi"
)

// NewSearch builds the configured search capability. It returns nil when no
// key is available, which leaves web search disabled. An explicit provider
// wins; otherwise Tavily is preferred over SerpAPI.
func (s SearchSettings) NewSearch(observer observability.Provider) (search.Capability, error) {
	provider := strings.ToLower(strings.TrimSpace(s.Provider))
	if provider == "" {
		switch {
		case s.TavilyAPIKey != "":
			provider = SearchTavily
		case s.SerpAPIAPIKey != "":
			provider = SearchSerpAPI
		default:
			return nil, nil
		}
	}

	switch provider {
	case SearchTavily:
		if s.TavilyAPIKey == "" {
			return nil, nil
		}
		return tavily.New(tavily.WithAPIKey(s.TavilyAPIKey), tavily.WithObserver(observer)), nil
	case SearchSerpAPI:
		if s.SerpAPIAPIKey == "" {
			return nil, nil
		}
		return serpapi.New(serpapi.WithAPIKey(s.SerpAPIAPIKey), serpapi.WithObserver(observer)), nil
	default:
		return nil, fmt.Errorf("unknown search provider %q", s.Provider)
	}
}

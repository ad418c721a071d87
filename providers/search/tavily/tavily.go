// Package tavily implements search.Capability on the Tavily search API.
package tavily

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/leofalp/owlseer/internal/utils"
	"github.com/leofalp/owlseer/providers/observability"
	"github.com/leofalp/owlseer/providers/search"
)

const (
	defaultBaseURL = "https://api.tavily.com"
	envAPIKey      = "TAVILY_API_KEY"
	envBaseURL     = "TAVILY_BASE_URL"
	providerName   = "tavily"
)

// ErrMissingAPIKey is returned by Search when no key was configured.
var ErrMissingAPIKey = errors.New("tavily: API key is not set")

// Client queries Tavily.
type Client struct {
	apiKey   string
	baseURL  string
	client   *http.Client
	observer observability.Provider
}

var _ search.Capability = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

func WithAPIKey(apiKey string) Option {
	return func(c *Client) { c.apiKey = apiKey }
}

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.client = client }
}

func WithObserver(observer observability.Provider) Option {
	return func(c *Client) { c.observer = observer }
}

// New creates a client, reading TAVILY_API_KEY and TAVILY_BASE_URL as
// defaults.
func New(opts ...Option) *Client {
	c := &Client{
		apiKey:  os.Getenv(envAPIKey),
		baseURL: os.Getenv(envBaseURL),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	return c
}

type searchRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

type searchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search runs a basic-depth query.
func (c *Client) Search(ctx context.Context, query string, maxResults int) (results []search.Result, err error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	ctx, span := observability.Start(ctx, c.observer, observability.SpanSearch,
		observability.String(observability.AttrSearchProvider, providerName),
		observability.String(observability.AttrSearchQuery, query),
	)
	defer func() {
		span.SetAttributes(observability.Int(observability.AttrSearchResults, len(results)))
		observability.EndWithError(span, err)
	}()

	body := searchRequest{
		APIKey:      c.apiKey,
		Query:       query,
		SearchDepth: "basic",
		MaxResults:  maxResults,
	}
	_, response, err := utils.DoPostSync[searchResponse](ctx, c.client, c.baseURL+"/search", body)
	if err != nil {
		return nil, err
	}

	results = make([]search.Result, 0, len(response.Results))
	for _, r := range response.Results {
		if len(results) == maxResults {
			break
		}
		results = append(results, search.Result{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: search.CleanSnippet(r.Content),
		})
	}
	return results, nil
}

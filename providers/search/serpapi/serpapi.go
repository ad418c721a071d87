// Package serpapi implements search.Capability on SerpAPI's Google engine.
package serpapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/leofalp/owlseer/internal/utils"
	"github.com/leofalp/owlseer/providers/observability"
	"github.com/leofalp/owlseer/providers/search"
)

const (
	defaultBaseURL = "https://serpapi.com"
	envAPIKey      = "SERPAPI_API_KEY"
	envBaseURL     = "SERPAPI_BASE_URL"
	providerName   = "serpapi"
)

// ErrMissingAPIKey is returned by Search when no key was configured.
var ErrMissingAPIKey = errors.New("serpapi: API key is not set")

// Client queries SerpAPI.
type Client struct {
	apiKey   string
	baseURL  string
	client   *http.Client
	observer observability.Provider
}

var _ search.Capability = (*Client)(nil)

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

// New creates a client, reading SERPAPI_API_KEY and SERPAPI_BASE_URL as
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

type searchResponse struct {
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
}

// Search runs a Google query through SerpAPI.
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

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("q", query)
	params.Set("engine", "google")
	params.Set("num", strconv.Itoa(maxResults))

	_, response, err := utils.DoGetSync[searchResponse](ctx, c.client, c.baseURL+"/search.json?"+params.Encode())
	if err != nil {
		return nil, err
	}

	results = make([]search.Result, 0, len(response.OrganicResults))
	for _, r := range response.OrganicResults {
		if len(results) == maxResults {
			break
		}
		results = append(results, search.Result{
			Title:   r.Title,
			URL:     r.Link,
			Snippet: search.CleanSnippet(r.Snippet),
		})
	}
	return results, nil
}

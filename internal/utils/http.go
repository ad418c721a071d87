package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/leofalp/owlseer/providers/ai"
	"github.com/leofalp/owlseer/providers/observability"
)

// maxResponseBodySize is the maximum response body size (10 MB). Enforced via
// io.LimitReader to prevent unbounded memory allocation from rogue responses.
const maxResponseBodySize int64 = 10 * 1024 * 1024

// HeaderOption is an extra request header.
type HeaderOption struct {
	Key   string
	Value string
}

// BearerAuth returns the Authorization header used by OpenAI-compatible APIs.
// An empty key yields no header.
func BearerAuth(apiKey string) []HeaderOption {
	if apiKey == "" {
		return nil
	}
	return []HeaderOption{{Key: "Authorization", Value: "Bearer " + apiKey}}
}

// CloseWithLog closes body and logs, without returning, any close failure.
func CloseWithLog(body io.Closer) {
	if body == nil {
		return
	}
	if err := body.Close(); err != nil {
		slog.Warn("failed to close response body", "error", err.Error())
	}
}

// DoPostSync performs a synchronous HTTP POST request with a JSON body and
// decodes a JSON response.
//
// Error handling:
//   - transport failures become *ai.TransportError (timeout, cancelled, network)
//     with credential query parameters masked in the wrapped URL
//   - non-2xx statuses become the matching status error (ai.NewStatusError)
//   - an undecodable 2xx body becomes *ai.ProtocolError{Kind: DecodeFailure}
func DoPostSync[OutputStruct any](ctx context.Context, client *http.Client, endpoint string, body any, headers ...HeaderOption) (*http.Response, *OutputStruct, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("error marshaling body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	applyHeaders(req, headers)

	return doJSON[OutputStruct](ctx, client, req, len(jsonBody))
}

// DoGetSync performs a GET request and decodes a JSON response. It shares the
// error mapping of DoPostSync.
func DoGetSync[OutputStruct any](ctx context.Context, client *http.Client, endpoint string, headers ...HeaderOption) (*http.Response, *OutputStruct, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	applyHeaders(req, headers)

	return doJSON[OutputStruct](ctx, client, req, 0)
}

func doJSON[OutputStruct any](ctx context.Context, client *http.Client, req *http.Request, requestSize int) (*http.Response, *OutputStruct, error) {
	span := observability.SpanFromContext(ctx)
	if span != nil {
		span.AddEvent("http.request.prepared",
			observability.String(observability.AttrHTTPMethod, req.Method),
			observability.String(observability.AttrHTTPURL, redactedString(req.URL)),
			observability.Int(observability.AttrHTTPRequestBodySize, requestSize),
		)
	}

	requestStart := time.Now()
	res, err := httpClient(client).Do(req)
	requestDuration := time.Since(requestStart)
	if err != nil {
		err = redactError(err)
		if span != nil {
			span.AddEvent("http.request.error",
				observability.Error(err),
				observability.Duration(observability.AttrHTTPDuration, requestDuration),
			)
		}
		return nil, nil, ai.NewTransportError(err)
	}
	defer CloseWithLog(res.Body)

	respBody, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBodySize))
	if err != nil {
		return res, nil, ai.NewTransportError(fmt.Errorf("error reading response body: %w", err))
	}

	if span != nil {
		span.AddEvent("http.response.received",
			observability.Int(observability.AttrHTTPStatusCode, res.StatusCode),
			observability.Int(observability.AttrHTTPResponseBodySize, len(respBody)),
			observability.Duration(observability.AttrHTTPDuration, requestDuration),
		)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return res, nil, ai.NewStatusError(res.StatusCode, res.Header, respBody)
	}

	var resStruct OutputStruct
	if err = json.Unmarshal(respBody, &resStruct); err != nil {
		return res, nil, &ai.ProtocolError{
			Kind:    ai.DecodeFailure,
			Message: fmt.Sprintf("status %d, body: %s", res.StatusCode, TruncateString(string(respBody), 500)),
			Err:     err,
		}
	}

	return res, &resStruct, nil
}

// DoPostStream performs an HTTP POST request and returns the response with
// the body left open for SSE reading. The caller owns the body on success. On
// error paths the body is read and closed before returning.
func DoPostStream(ctx context.Context, client *http.Client, endpoint string, body any, headers ...HeaderOption) (*http.Response, error) {
	span := observability.SpanFromContext(ctx)

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error marshaling body: %w", err)
	}

	if span != nil {
		span.AddEvent("http.stream_request.prepared",
			observability.String(observability.AttrHTTPMethod, http.MethodPost),
			observability.String(observability.AttrHTTPURL, RedactURL(endpoint)),
			observability.Int(observability.AttrHTTPRequestBodySize, len(jsonBody)),
		)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	applyHeaders(req, headers)

	requestStart := time.Now()
	response, err := httpClient(client).Do(req)
	requestDuration := time.Since(requestStart)
	if err != nil {
		err = redactError(err)
		if span != nil {
			span.AddEvent("http.stream_request.error",
				observability.Error(err),
				observability.Duration(observability.AttrHTTPDuration, requestDuration),
			)
		}
		return nil, ai.NewTransportError(err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		defer CloseWithLog(response.Body)
		errorBody, readErr := io.ReadAll(io.LimitReader(response.Body, maxResponseBodySize))
		if readErr != nil {
			errorBody = []byte(fmt.Sprintf("(failed to read body: %v)", readErr))
		}
		return nil, ai.NewStatusError(response.StatusCode, response.Header, errorBody)
	}

	if span != nil {
		span.AddEvent("http.stream_response.started",
			observability.Int(observability.AttrHTTPStatusCode, response.StatusCode),
			observability.Duration(observability.AttrHTTPDuration, requestDuration),
		)
	}

	return response, nil
}

func applyHeaders(req *http.Request, headers []HeaderOption) {
	for _, header := range headers {
		req.Header.Set(header.Key, header.Value)
	}
}

func httpClient(client *http.Client) *http.Client {
	if client == nil {
		return http.DefaultClient
	}
	return client
}

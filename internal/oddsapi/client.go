// Package oddsapi is a thin HTTP client for The Odds API v4.
package oddsapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is the production endpoint of the upstream data source
const DefaultBaseURL = "https://api.the-odds-api.com/v4"

// Client handles upstream market data requests. The credential token is
// passed as a query parameter, as the API requires.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// ClientConfig holds upstream client configuration
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewClient creates a new upstream client
func NewClient(config ClientConfig, logger zerolog.Logger) *Client {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  config.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With().Str("component", "oddsapi_client").Logger(),
	}
}

// RequestURL builds the fully-qualified request URL for path and params,
// with the credential token included and query parameters in sorted order.
// url.Values.Encode sorts by key, which makes the string deterministic and
// therefore usable as a cache key.
func (c *Client) RequestURL(path string, params map[string]string) string {
	values := url.Values{}
	values.Set("apiKey", c.apiKey)
	for k, v := range params {
		values.Set(k, v)
	}

	return c.baseURL + path + "?" + values.Encode()
}

// Get performs a GET against the upstream path and returns the raw response
// body. Non-2xx responses are returned as errors with a body snippet.
func (c *Client) Get(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	reqURL := c.RequestURL(path, params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		snippet := body
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return nil, fmt.Errorf("upstream returned status %d for %s: %s", resp.StatusCode, path, snippet)
	}

	c.logger.Debug().
		Str("path", path).
		Int("bytes", len(body)).
		Str("requests_remaining", resp.Header.Get("X-Requests-Remaining")).
		Msg("fetched from upstream")

	return body, nil
}

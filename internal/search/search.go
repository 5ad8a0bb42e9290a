// Package search provides web search via the Tavily API.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// ServiceError indicates the search service itself failed: missing
// credentials, network failure or a non-OK HTTP status. Callers that treat
// search as load-bearing should abort when they see one.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("search %s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Result is a single web search hit.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Client queries the Tavily search API.
type Client struct {
	BaseURL    string
	APIKey     string
	MaxResults int
	Depth      string
	httpClient *http.Client
}

// NewClient creates a search client reading the API key from the given
// environment variable.
func NewClient(baseURL, apiKeyEnv string, maxResults int, depth string) *Client {
	if maxResults <= 0 {
		maxResults = 3
	}
	if depth == "" {
		depth = "advanced"
	}
	return &Client{
		BaseURL:    baseURL,
		APIKey:     os.Getenv(apiKeyEnv),
		MaxResults: maxResults,
		Depth:      depth,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// IsConfigured reports whether an API key is available.
func (c *Client) IsConfigured() bool {
	return c.APIKey != ""
}

type searchRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type searchResponse struct {
	Results []Result `json:"results"`
}

// Search runs one web query and returns up to MaxResults hits.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	if !c.IsConfigured() {
		return nil, &ServiceError{Op: "auth", Err: fmt.Errorf("no API key configured")}
	}

	body, err := json.Marshal(searchRequest{
		APIKey:      c.APIKey,
		Query:       query,
		MaxResults:  c.MaxResults,
		SearchDepth: c.Depth,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ServiceError{Op: "request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &ServiceError{Op: "request", Err: fmt.Errorf("status %d: %s", resp.StatusCode, data)}
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, &ServiceError{Op: "decode", Err: err}
	}

	if len(sr.Results) > c.MaxResults {
		sr.Results = sr.Results[:c.MaxResults]
	}
	return sr.Results, nil
}

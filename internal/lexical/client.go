// Package lexical provides the client for the full-text search service that
// serves BM25-scored, highlighted results over the corpus indices.
package lexical

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/baheth/baheth/internal/search"
)

// Default client configuration.
const (
	DefaultEndpoint = "http://localhost:7700"
)

// Config holds full-text service connection settings.
type Config struct {
	// Endpoint is the service base URL (default: http://localhost:7700).
	Endpoint string

	// APIKey is sent as a bearer token when set.
	APIKey string
}

// Client talks to the full-text service over JSON REST.
type Client struct {
	client   *http.Client
	endpoint string
	apiKey   string
}

var _ search.LexicalSearcher = (*Client)(nil)

// New creates a full-text search client.
func New(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}

	// No http.Client.Timeout: it would override per-request context
	// deadlines set by callers.
	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     30 * time.Second,
		},
	}

	return &Client{
		client:   client,
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
	}
}

type searchRequest struct {
	Query     string         `json:"query"`
	Limit     int            `json:"limit,omitempty"`
	Filter    map[string]any `json:"filter,omitempty"`
	Fuzzy     bool           `json:"fuzzy,omitempty"`
	Highlight bool           `json:"highlight"`
}

type searchResponse struct {
	Hits []struct {
		Score    float64        `json:"score"`
		Snippet  string         `json:"snippet"`
		Document map[string]any `json:"document"`
	} `json:"hits"`
}

// Search queries one index. fuzzy enables typo-tolerant matching, used by the
// engine as a second pass when the exact query returns nothing.
func (c *Client) Search(ctx context.Context, index, query string, limit int, filter map[string]any, fuzzy bool) ([]search.LexicalHit, error) {
	reqBody := searchRequest{
		Query:     query,
		Limit:     limit,
		Filter:    filter,
		Fuzzy:     fuzzy,
		Highlight: true,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/indexes/%s/search", c.endpoint, url.PathEscape(index))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("full-text search %q: %w", index, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: index %q", search.ErrIndexNotReady, index)
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("full-text search %q (status %d): %s", index, resp.StatusCode, string(raw))
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	hits := make([]search.LexicalHit, 0, len(result.Hits))
	for _, h := range result.Hits {
		hits = append(hits, search.LexicalHit{
			Score:   h.Score,
			Snippet: h.Snippet,
			Payload: h.Document,
		})
	}
	return hits, nil
}

// Health checks the service.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/health", nil)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("connect to full-text service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("full-text service unhealthy (status %d): %s", resp.StatusCode, string(raw))
	}
	return nil
}

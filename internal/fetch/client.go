package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"catalog-etl-service/internal/domain"
)

// Client fetches the source catalog collections over HTTP. Every failure is
// tagged domain.ErrFetch; the core never retries, that is the orchestrator's
// job.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the given API base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchCollection retrieves one full collection as raw JSON elements.
func (c *Client) FetchCollection(ctx context.Context, col domain.Collection) ([]json.RawMessage, error) {
	url := c.baseURL + "/" + string(col)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: building request for %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: GET %s: %w: %v", url, domain.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("fetch: GET %s: %w: unexpected status %d", url, domain.ErrFetch, resp.StatusCode)
	}

	var elements []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&elements); err != nil {
		return nil, fmt.Errorf("fetch: GET %s: %w: decoding response: %v", url, domain.ErrFetch, err)
	}
	return elements, nil
}

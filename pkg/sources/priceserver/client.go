package priceserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/StrathCole/oracle-validator/pkg/version"
)

// Quote is one aggregated price served under /v1/prices.
type Quote struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// Client returns the current quote set of a price server.
type Client interface {
	Quotes(ctx context.Context) ([]Quote, error)
}

// HTTPClient fetches quotes over HTTP. With a positive cache TTL one snapshot
// serves every lookup until it expires, so a batch costs a single request.
type HTTPClient struct {
	endpoint string
	client   *http.Client
	ttl      time.Duration
	now      func() time.Time

	mu        sync.Mutex
	snapshot  []Quote
	fetchedAt time.Time
}

// NewHTTPClient creates a client for the server at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		endpoint: strings.TrimRight(baseURL, "/") + "/v1/prices",
		client:   &http.Client{Timeout: timeout},
		now:      time.Now,
	}
}

// WithCacheTTL enables snapshot reuse for ttl.
func (c *HTTPClient) WithCacheTTL(ttl time.Duration) *HTTPClient {
	c.ttl = ttl
	return c
}

// Quotes implements Client.
func (c *HTTPClient) Quotes(ctx context.Context) ([]Quote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ttl > 0 && c.snapshot != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.snapshot, nil
	}

	quotes, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.snapshot, c.fetchedAt = quotes, c.now()
	return quotes, nil
}

func (c *HTTPClient) fetch(ctx context.Context) ([]Quote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.AgentString())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query price server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %d: %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var quotes []Quote
	if err := json.NewDecoder(resp.Body).Decode(&quotes); err != nil {
		return nil, fmt.Errorf("failed to decode quotes: %w", err)
	}
	return quotes, nil
}

package pdl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIKeyHeader carries the credential on every request.
const APIKeyHeader = "X-api-key"

// Config configures a Client.
type Config struct {
	// Endpoint is the full bulk enrichment URL. Empty means DefaultEndpoint.
	Endpoint string
	APIKey   string

	// Timeout bounds the whole bulk call. Zero means no timeout.
	Timeout time.Duration

	// HTTPClient overrides the underlying client (tests, proxies).
	HTTPClient *http.Client
}

// Client calls the PDL Bulk Person Enrichment API.
//
// One BulkEnrich call is one POST: no retries and no splitting of the batch.
type Client struct {
	endpoint *url.URL
	apiKey   string
	http     *http.Client
}

// NewClient validates cfg and constructs a client. The API key is fixed for the client's lifetime.
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("pdl api key is required")
	}
	endpoint, err := parseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
			Timeout:   cfg.Timeout,
		}
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     hc,
	}, nil
}

func parseEndpoint(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = DefaultEndpoint
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse pdl endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("pdl endpoint must include a host (got %q)", raw)
	}
	u.Fragment = ""
	return u, nil
}

// Endpoint returns the URL bulk requests are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint.String()
}

// BulkEnrich posts req as one batch and decodes the per-item outcomes.
//
// Transport failures and non-2xx responses fail the whole batch. Per-item failures
// are reported as Failure outcomes.
func (c *Client) BulkEnrich(ctx context.Context, req BulkRequest) ([]Outcome, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode bulk request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(APIKeyHeader, c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("bulk person enrichment request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read bulk response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, newHTTPError("bulkPersonEnrich", resp, rb)
	}
	return DecodeBulkResponse(rb, req)
}

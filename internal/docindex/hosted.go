package docindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	sageerrors "github.com/docsage/docsage/internal/errors"
)

const hostedPoolSize = 8

// HostedClient queries a hosted full-text documentation index over
// HTTP: POST {endpoint}/1/indexes/{index}/query. Safe for concurrent
// use; per-variant timeouts come from the caller's context.
type HostedClient struct {
	endpoint  string
	appID     string
	apiKey    string
	client    *http.Client
	transport *http.Transport
	logger    *slog.Logger
}

var _ SearchClient = (*HostedClient)(nil)

// HostedOption customizes a HostedClient.
type HostedOption func(*HostedClient)

// WithHostedHTTPClient replaces the HTTP client (tests).
func WithHostedHTTPClient(hc *http.Client) HostedOption {
	return func(c *HostedClient) {
		c.client = hc
	}
}

// WithHostedLogger sets the structured logger.
func WithHostedLogger(logger *slog.Logger) HostedOption {
	return func(c *HostedClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewHostedClient creates a client for a hosted search service.
// appID and apiKey may be empty for unauthenticated indexes.
func NewHostedClient(endpoint, appID, apiKey string, opts ...HostedOption) *HostedClient {
	transport := &http.Transport{
		MaxIdleConns:        hostedPoolSize,
		MaxIdleConnsPerHost: hostedPoolSize,
		MaxConnsPerHost:     hostedPoolSize * 2,
		IdleConnTimeout:     10 * time.Second,
	}

	c := &HostedClient{
		endpoint:  endpoint,
		appID:     appID,
		apiKey:    apiKey,
		client:    &http.Client{Transport: transport},
		transport: transport,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// hostedQuery is the request body: the query string alongside the
// standard params.
type hostedQuery struct {
	Query string `json:"query"`
	SearchParams
}

// Search implements SearchClient.
func (c *HostedClient) Search(ctx context.Context, query, index string, params SearchParams) (*SearchResponse, error) {
	if index == "" {
		return nil, sageerrors.ValidationError("index name is required", nil)
	}

	body, err := json.Marshal(hostedQuery{Query: query, SearchParams: params})
	if err != nil {
		return nil, sageerrors.InternalError("failed to encode search request", err)
	}

	endpoint := fmt.Sprintf("%s/1/indexes/%s/query", c.endpoint, url.PathEscape(index))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, sageerrors.InternalError("failed to create search request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.appID != "" {
		req.Header.Set("X-Application-ID", c.appID)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, sageerrors.New(sageerrors.ErrCodeNetworkTimeout,
				fmt.Sprintf("search for %q timed out", query), err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, sageerrors.New(sageerrors.ErrCodeSearchFailed,
			fmt.Sprintf("search for %q failed", query), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return nil, sageerrors.New(sageerrors.ErrCodeSearchFailed,
			fmt.Sprintf("search index returned status %d: %s", resp.StatusCode, string(raw)), nil).
			WithDetail("index", index)
	}

	var result SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, sageerrors.New(sageerrors.ErrCodeSearchFailed, "malformed search response", err)
	}

	c.logger.Debug("hosted search",
		"index", index,
		"query", query,
		"hits", len(result.Hits),
		"duration_ms", time.Since(start).Milliseconds())

	return &result, nil
}

// Close releases pooled connections.
func (c *HostedClient) Close() {
	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}
}

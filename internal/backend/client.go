// Package backend implements the HTTP client for the remote answering
// service: keyword/intent analysis and answer synthesis.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	sageerrors "github.com/docsage/docsage/internal/errors"
)

const (
	// DefaultKeywordsTimeout bounds intent-analysis calls.
	DefaultKeywordsTimeout = 10 * time.Second

	// DefaultSynthesisTimeout bounds answer-generation calls. Completion
	// backends routinely take tens of seconds on long documents.
	DefaultSynthesisTimeout = 60 * time.Second

	// DefaultRequestsPerSecond rate-limits outgoing backend calls.
	DefaultRequestsPerSecond = 5

	// DefaultBurst is the limiter burst size.
	DefaultBurst = 5

	// MaxWireDocuments is the hard cap the generate-answer endpoint
	// places on the documents array.
	MaxWireDocuments = 10

	// VerificationHeader carries the bot-verification token when a site
	// key is configured.
	VerificationHeader = "X-Verification-Token"

	keywordsPath = "/api/keywords"
	answerPath   = "/api/generate-answer"

	poolSize = 4
)

// Config configures the backend client.
type Config struct {
	// BaseURL is the backend root, e.g. "https://api.example.com".
	BaseURL string

	// SystemContext is forwarded with every request when non-empty.
	SystemContext string

	// KeywordsTimeout bounds /api/keywords calls (default 10s).
	KeywordsTimeout time.Duration

	// SynthesisTimeout bounds /api/generate-answer calls (default 60s).
	SynthesisTimeout time.Duration

	// RequestsPerSecond and Burst configure the shared rate limiter.
	RequestsPerSecond float64
	Burst             int

	// Retry is the shared retry policy. The default policy makes a
	// single attempt; failed remote calls are not re-invoked.
	Retry sageerrors.RetryConfig

	// CircuitMaxFailures and CircuitResetTimeout configure the breaker
	// guarding the backend. Zero values use the breaker's defaults.
	CircuitMaxFailures  int
	CircuitResetTimeout time.Duration
}

// Client calls the answering backend. Safe for concurrent use.
type Client struct {
	config    Config
	client    *http.Client
	transport *http.Transport
	limiter   *rate.Limiter
	breaker   *sageerrors.CircuitBreaker
	tokens    TokenProvider
	logger    *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithTokenProvider installs the verification token source.
func WithTokenProvider(tp TokenProvider) Option {
	return func(c *Client) {
		if tp != nil {
			c.tokens = tp
		}
	}
}

// WithHTTPClient replaces the HTTP client (tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a backend client with pooled connections.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.KeywordsTimeout <= 0 {
		cfg.KeywordsTimeout = DefaultKeywordsTimeout
	}
	if cfg.SynthesisTimeout <= 0 {
		cfg.SynthesisTimeout = DefaultSynthesisTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}
	if cfg.Retry.Multiplier == 0 {
		maxRetries := cfg.Retry.MaxRetries
		cfg.Retry = sageerrors.DefaultRetryConfig()
		cfg.Retry.MaxRetries = maxRetries
	}

	// Short idle timeout: CLI invocations are short-lived and should
	// release connections promptly after Ctrl+C.
	transport := &http.Transport{
		MaxIdleConns:        poolSize,
		MaxIdleConnsPerHost: poolSize,
		MaxConnsPerHost:     poolSize * 2,
		IdleConnTimeout:     10 * time.Second,
		DisableKeepAlives:   false,
	}

	// Do NOT set http.Client.Timeout: it would override the per-request
	// context timeouts that give keywords and synthesis different bounds.
	client := &http.Client{Transport: transport}

	var breakerOpts []sageerrors.CircuitBreakerOption
	if cfg.CircuitMaxFailures > 0 {
		breakerOpts = append(breakerOpts, sageerrors.WithMaxFailures(cfg.CircuitMaxFailures))
	}
	if cfg.CircuitResetTimeout > 0 {
		breakerOpts = append(breakerOpts, sageerrors.WithResetTimeout(cfg.CircuitResetTimeout))
	}

	c := &Client{
		config:    cfg,
		client:    client,
		transport: transport,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		breaker:   sageerrors.NewCircuitBreaker("backend", breakerOpts...),
		tokens:    NoopTokenProvider{},
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Verify interface implementation at compile time
var _ KeywordsService = (*Client)(nil)
var _ AnswerService = (*Client)(nil)

// KeywordsService is the intent-analysis seam consumed by the answer
// pipeline.
type KeywordsService interface {
	Keywords(ctx context.Context, query string, maxKeywords int) ([]string, error)
}

// AnswerService is the synthesis seam consumed by the answer pipeline.
type AnswerService interface {
	GenerateAnswer(ctx context.Context, query string, docs []WireDocument) (*AnswerResponse, error)
}

// Keywords requests search-query variants for the given query.
func (c *Client) Keywords(ctx context.Context, query string, maxKeywords int) ([]string, error) {
	req := KeywordsRequest{
		Query:         query,
		SystemContext: c.config.SystemContext,
		MaxKeywords:   maxKeywords,
	}

	var resp KeywordsResponse
	if err := c.postJSON(ctx, keywordsPath, c.config.KeywordsTimeout, req, &resp); err != nil {
		return nil, err
	}

	return resp.Keywords, nil
}

// GenerateAnswer synthesizes an answer from the ranked documents.
// The documents slice is capped at MaxWireDocuments before sending.
func (c *Client) GenerateAnswer(ctx context.Context, query string, docs []WireDocument) (*AnswerResponse, error) {
	if len(docs) > MaxWireDocuments {
		docs = docs[:MaxWireDocuments]
	}

	req := AnswerRequest{
		Query:         query,
		Documents:     docs,
		SystemContext: c.config.SystemContext,
	}

	var resp AnswerResponse
	if err := c.postJSON(ctx, answerPath, c.config.SynthesisTimeout, req, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

// Close releases pooled connections.
func (c *Client) Close() {
	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}
}

// postJSON sends one JSON POST through the retry policy, rate limiter
// and circuit breaker, decoding a 2xx body into out.
func (c *Client) postJSON(ctx context.Context, path string, timeout time.Duration, payload, out any) error {
	if c.config.BaseURL == "" {
		return sageerrors.New(sageerrors.ErrCodeConfigInvalid, "backend URL is not configured", nil).
			WithSuggestion("set backend.url in config or DOCSAGE_BACKEND_URL")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return sageerrors.InternalError("failed to encode backend request", err)
	}

	return sageerrors.Retry(ctx, c.config.Retry, func() error {
		return c.doPost(ctx, path, timeout, body, out)
	})
}

// doPost performs a single attempt.
func (c *Client) doPost(ctx context.Context, path string, timeout time.Duration, body []byte, out any) error {
	if !c.breaker.Allow() {
		return sageerrors.New(sageerrors.ErrCodeBackendUnavailable,
			fmt.Sprintf("backend circuit open for %s", path), sageerrors.ErrCircuitOpen)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := c.config.BaseURL + path
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return sageerrors.InternalError("failed to create backend request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.attachVerification(ctx, req)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		// Let caller-initiated cancellation pass through untyped so the
		// orchestrator can classify it against its own run token.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if reqCtx.Err() == context.DeadlineExceeded {
			return sageerrors.New(sageerrors.ErrCodeNetworkTimeout,
				fmt.Sprintf("backend call %s timed out after %s", path, timeout), err)
		}
		return sageerrors.New(sageerrors.ErrCodeBackendUnavailable,
			fmt.Sprintf("backend call %s failed", path), err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("backend response",
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.breaker.RecordFailure()
		return c.statusError(path, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.breaker.RecordFailure()
		return sageerrors.New(sageerrors.ErrCodeBackendStatus,
			fmt.Sprintf("backend call %s returned a malformed body", path), err)
	}

	c.breaker.RecordSuccess()
	return nil
}

// statusError maps a non-2xx response to a typed error, extracting the
// backend's {error: {message}} envelope when present.
func (c *Client) statusError(path string, resp *http.Response) error {
	message := fmt.Sprintf("backend call %s returned status %d", path, resp.StatusCode)

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if readErr == nil && len(body) > 0 {
		var envelope errorEnvelope
		if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
			message = fmt.Sprintf("%s: %s", message, envelope.Error.Message)
		}
	}

	code := sageerrors.ErrCodeBackendStatus
	// 5xx and throttling are transient; retryable under a raised budget.
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		code = sageerrors.ErrCodeBackendUnavailable
	}

	return sageerrors.New(code, message, nil).
		WithDetail("status", fmt.Sprintf("%d", resp.StatusCode)).
		WithDetail("path", path)
}

// attachVerification adds the verification header. Token failures are
// soft: the request proceeds without the header.
func (c *Client) attachVerification(ctx context.Context, req *http.Request) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		c.logger.Warn("verification token unavailable, sending unverified", "error", err)
		return
	}
	if token != "" {
		req.Header.Set(VerificationHeader, token)
	}
}

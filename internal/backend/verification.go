package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	sageerrors "github.com/docsage/docsage/internal/errors"
)

// TokenProvider supplies the bot-verification token attached to backend
// requests. An empty token with nil error means "no header".
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// NoopTokenProvider never attaches a verification header. Used when no
// site key is configured.
type NoopTokenProvider struct{}

// Token implements TokenProvider.
func (NoopTokenProvider) Token(context.Context) (string, error) {
	return "", nil
}

var _ TokenProvider = NoopTokenProvider{}

const (
	// DefaultChallengeTimeout bounds the challenge exchange.
	DefaultChallengeTimeout = 5 * time.Second

	// DefaultTokenTTL is assumed when the challenge response carries no
	// expiry. Verification tokens are short-lived by design.
	DefaultTokenTTL = 110 * time.Second

	// tokenSafetyMargin expires cached tokens slightly early so a token
	// never reaches the backend already dead.
	tokenSafetyMargin = 5 * time.Second
)

// ChallengeConfig configures the challenge/response token exchange.
type ChallengeConfig struct {
	// SiteKey identifies this client to the challenge service.
	SiteKey string

	// URL is the challenge endpoint.
	URL string

	// Timeout bounds each exchange (default 5s).
	Timeout time.Duration

	// TTL is the fallback token lifetime (default 110s).
	TTL time.Duration
}

// challengeRequest is the challenge exchange payload.
type challengeRequest struct {
	SiteKey string `json:"siteKey"`
}

// challengeResponse is the challenge exchange result.
type challengeResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn,omitempty"` // seconds
}

// ChallengeTokenProvider obtains short-lived verification tokens from a
// challenge endpoint, caching them until expiry. Concurrent refreshes
// are single-flighted so a burst of backend calls costs one exchange.
type ChallengeTokenProvider struct {
	config ChallengeConfig
	client *http.Client
	logger *slog.Logger
	group  singleflight.Group

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

var _ TokenProvider = (*ChallengeTokenProvider)(nil)

// NewChallengeTokenProvider creates a provider for the given site key.
func NewChallengeTokenProvider(cfg ChallengeConfig, opts ...ChallengeOption) *ChallengeTokenProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultChallengeTimeout
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTokenTTL
	}

	p := &ChallengeTokenProvider{
		config: cfg,
		client: &http.Client{},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// ChallengeOption customizes a ChallengeTokenProvider.
type ChallengeOption func(*ChallengeTokenProvider)

// WithChallengeHTTPClient replaces the HTTP client (tests).
func WithChallengeHTTPClient(hc *http.Client) ChallengeOption {
	return func(p *ChallengeTokenProvider) {
		p.client = hc
	}
}

// WithChallengeLogger sets the structured logger.
func WithChallengeLogger(logger *slog.Logger) ChallengeOption {
	return func(p *ChallengeTokenProvider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Token returns a valid verification token, refreshing if the cached one
// expired.
func (p *ChallengeTokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	if p.token != "" && time.Now().Before(p.expiresAt) {
		token := p.token
		p.mu.Unlock()
		return token, nil
	}
	p.mu.Unlock()

	v, err, _ := p.group.Do("token", func() (any, error) {
		return p.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// refresh performs the challenge exchange and caches the result.
// The exchange gets one extra attempt on transient failures; it is
// cheap and its failure silently degrades every subsequent backend call.
func (p *ChallengeTokenProvider) refresh(ctx context.Context) (string, error) {
	retry := sageerrors.DefaultRetryConfig()
	retry.MaxRetries = 1
	retry.InitialDelay = 200 * time.Millisecond

	if err := sageerrors.Retry(ctx, retry, func() error {
		return p.exchangeInto(ctx)
	}); err != nil {
		return "", err
	}

	return p.cached(), nil
}

// exchangeInto performs one challenge exchange and stores the result.
func (p *ChallengeTokenProvider) exchangeInto(ctx context.Context) error {
	reqCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	body, err := json.Marshal(challengeRequest{SiteKey: p.config.SiteKey})
	if err != nil {
		return sageerrors.InternalError("failed to encode challenge request", err)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, p.config.URL, bytes.NewReader(body))
	if err != nil {
		return sageerrors.InternalError("failed to create challenge request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return sageerrors.New(sageerrors.ErrCodeVerification, "challenge exchange failed", err).
			WithRetryable(true)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return sageerrors.New(sageerrors.ErrCodeVerification,
			fmt.Sprintf("challenge endpoint returned status %d: %s", resp.StatusCode, string(raw)), nil).
			WithRetryable(resp.StatusCode >= 500)
	}

	var parsed challengeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return sageerrors.New(sageerrors.ErrCodeVerification, "malformed challenge response", err)
	}
	if parsed.Token == "" {
		return sageerrors.New(sageerrors.ErrCodeVerification, "challenge response carried no token", nil)
	}

	ttl := p.config.TTL
	if parsed.ExpiresIn > 0 {
		ttl = time.Duration(parsed.ExpiresIn) * time.Second
	}

	p.mu.Lock()
	p.token = parsed.Token
	p.expiresAt = time.Now().Add(ttl - tokenSafetyMargin)
	p.mu.Unlock()

	return nil
}

// cached returns the currently cached token.
func (p *ChallengeTokenProvider) cached() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token
}

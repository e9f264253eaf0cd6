package answer

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Thin-content thresholds: documents below either are candidates for a
// full-page fetch.
const (
	thinContentMinLines = 5
	thinContentMinChars = 100
)

// DefaultEnhanceParallelism bounds concurrent page fetches.
const DefaultEnhanceParallelism = 4

// ContentFetcher acquires the full text behind a document URL. It is a
// swappable collaborator so extraction stays testable without any
// rendering environment.
type ContentFetcher interface {
	FetchContent(ctx context.Context, url string) (string, error)
}

// ContentFetcherFunc adapts a function to the ContentFetcher interface.
type ContentFetcherFunc func(ctx context.Context, url string) (string, error)

// FetchContent calls f.
func (f ContentFetcherFunc) FetchContent(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}

var _ ContentFetcher = (ContentFetcherFunc)(nil)

// Enhancer replaces thin document content with fetched page text.
// Every fetch is independently fail-soft: a failed or unhelpful fetch
// keeps the document as extracted.
type Enhancer struct {
	fetcher     ContentFetcher
	parallelism int
	logger      *slog.Logger
}

// EnhancerOption configures an Enhancer.
type EnhancerOption func(*Enhancer)

// WithEnhanceParallelism bounds concurrent fetches.
func WithEnhanceParallelism(n int) EnhancerOption {
	return func(e *Enhancer) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

// WithEnhancerLogger sets the enhancer's logger.
func WithEnhancerLogger(logger *slog.Logger) EnhancerOption {
	return func(e *Enhancer) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEnhancer creates an enhancer around the given fetcher.
func NewEnhancer(fetcher ContentFetcher, opts ...EnhancerOption) *Enhancer {
	e := &Enhancer{
		fetcher:     fetcher,
		parallelism: DefaultEnhanceParallelism,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enhance fetches fuller content for thin documents, each
// independently. Per-document failures are logged and skipped; only
// cancellation returns an error. A nil enhancer or fetcher is a no-op.
func (e *Enhancer) Enhance(ctx context.Context, docs []Document) ([]Document, error) {
	if e == nil || e.fetcher == nil {
		return docs, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, e.parallelism)

	for i := range docs {
		if docs[i].URL == "" || !isThinContent(docs[i].Content) {
			continue
		}
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return gctx.Err()
			}

			fetched, err := e.fetcher.FetchContent(gctx, docs[i].URL)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				e.logger.Warn("content fetch failed, keeping extracted content",
					"url", docs[i].URL,
					"error", err)
				return nil
			}

			fetched = strings.TrimSpace(fetched)
			if len(fetched) > len(docs[i].Content) {
				docs[i].Content = fetched
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return docs, err
	}
	return docs, nil
}

// isThinContent reports whether extracted content is too small to be
// worth synthesizing from on its own.
func isThinContent(content string) bool {
	trimmed := strings.TrimSpace(content)
	if len(trimmed) < thinContentMinChars {
		return true
	}
	lines := 0
	for _, line := range strings.Split(trimmed, "\n") {
		if strings.TrimSpace(line) != "" {
			lines++
		}
	}
	return lines < thinContentMinLines
}

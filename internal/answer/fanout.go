package answer

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/docsage/docsage/internal/docindex"
	"github.com/docsage/docsage/internal/telemetry"
)

// Fan-out defaults.
const (
	DefaultPageSize      = 5
	DefaultParallelism   = 4
	DefaultSearchTimeout = 5 * time.Second
)

// retrieveAttributes lists the record fields each variant search asks
// the index to return.
var retrieveAttributes = []string{"url", "lvl0", "lvl1", "lvl2", "lvl3", "lvl4", "lvl5", "content", "docType"}

// highlightAttributes lists the fields the index should highlight.
var highlightAttributes = []string{"content"}

// FanOut issues one search per query variant concurrently and merges
// the hits, deduplicating by URL. A failing variant contributes zero
// hits instead of failing the run; only cancellation aborts the merge.
type FanOut struct {
	pageSize    int
	parallelism int
	timeout     time.Duration
	expander    *QueryExpander
	logger      *slog.Logger
	metrics     *telemetry.RunMetrics
}

// FanOutOption configures a FanOut.
type FanOutOption func(*FanOut)

// WithPageSize sets how many hits each variant search requests.
func WithPageSize(n int) FanOutOption {
	return func(f *FanOut) {
		if n > 0 {
			f.pageSize = n
		}
	}
}

// WithParallelism bounds how many variant searches run at once.
func WithParallelism(n int) FanOutOption {
	return func(f *FanOut) {
		if n > 0 {
			f.parallelism = n
		}
	}
}

// WithSearchTimeout sets the per-variant search deadline.
func WithSearchTimeout(d time.Duration) FanOutOption {
	return func(f *FanOut) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithExpander enables lexical query expansion for each variant.
func WithExpander(e *QueryExpander) FanOutOption {
	return func(f *FanOut) { f.expander = e }
}

// WithFanOutLogger sets the fan-out's logger.
func WithFanOutLogger(logger *slog.Logger) FanOutOption {
	return func(f *FanOut) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithFanOutMetrics counts swallowed variant failures in the given
// collector.
func WithFanOutMetrics(m *telemetry.RunMetrics) FanOutOption {
	return func(f *FanOut) {
		if m != nil {
			f.metrics = m
		}
	}
}

// NewFanOut creates a fan-out with default page size, parallelism and
// timeout. Expansion is off unless an expander is supplied.
func NewFanOut(opts ...FanOutOption) *FanOut {
	f := &FanOut{
		pageSize:    DefaultPageSize,
		parallelism: DefaultParallelism,
		timeout:     DefaultSearchTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Search fans queries out against the index and returns the merged,
// URL-deduplicated hits. Merge order is deterministic: variants in
// their given order, hits in index order within each variant, first
// seen wins.
func (f *FanOut) Search(ctx context.Context, client docindex.SearchClient, index string, queries []string) ([]docindex.SearchHit, error) {
	variants := f.collectVariants(queries)
	if len(variants) == 0 {
		return nil, nil
	}

	params := docindex.SearchParams{
		HitsPerPage:           f.pageSize,
		AttributesToRetrieve:  retrieveAttributes,
		AttributesToHighlight: highlightAttributes,
	}

	results := make([][]docindex.SearchHit, len(variants))
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, f.parallelism)

	for i, variant := range variants {
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return gctx.Err()
			}

			searchCtx, cancel := context.WithTimeout(gctx, f.timeout)
			defer cancel()

			started := time.Now()
			resp, err := client.Search(searchCtx, variant, index, params)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				f.logger.Warn("variant search failed",
					"query", variant,
					"error", err)
				if f.metrics != nil {
					f.metrics.RecordSearchError()
				}
				return nil
			}

			f.logger.Debug("variant search done",
				"query", variant,
				"hits", len(resp.Hits),
				"duration_ms", time.Since(started).Milliseconds())
			results[i] = resp.Hits
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return mergeHits(results), nil
}

// collectVariants applies lexical expansion and drops duplicate variant
// strings, preserving first-seen order.
func (f *FanOut) collectVariants(queries []string) []string {
	seen := make(map[string]struct{}, len(queries))
	var variants []string
	add := func(q string) {
		q = strings.TrimSpace(q)
		if q == "" {
			return
		}
		key := strings.ToLower(q)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		variants = append(variants, q)
	}

	for _, q := range queries {
		add(q)
		if f.expander != nil {
			for _, expanded := range f.expander.Expand(q) {
				add(expanded)
			}
		}
	}
	return variants
}

// mergeHits flattens per-variant results in variant order, keeping the
// first hit seen for each URL. Hits without a URL fall back to their
// object ID as the dedup key; hits with neither are kept as-is.
func mergeHits(results [][]docindex.SearchHit) []docindex.SearchHit {
	seen := make(map[string]struct{})
	var merged []docindex.SearchHit
	for _, hits := range results {
		for _, hit := range hits {
			key := hit.URL
			if key == "" {
				key = hit.ObjectID
			}
			if key != "" {
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
			}
			merged = append(merged, hit)
		}
	}
	return merged
}

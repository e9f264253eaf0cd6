package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/docsage/docsage/internal/backend"
)

// Intent analysis defaults.
const (
	DefaultMaxVariants    = 3
	DefaultIntentMemoSize = 128
)

// IntentAnalyzer turns one query into search-query variants by asking
// the backend keywords endpoint, classifying the query type locally.
// It fails soft: any remote error or unusable response yields a
// deterministic fallback instead of an error, so a broken backend can
// never take the search path down with it.
type IntentAnalyzer struct {
	keywords backend.KeywordsService
	memo     *lru.Cache[string, QueryIntent]
	memoSize int
	logger   *slog.Logger
}

// IntentOption configures an IntentAnalyzer.
type IntentOption func(*IntentAnalyzer)

// WithIntentLogger sets the analyzer's logger.
func WithIntentLogger(logger *slog.Logger) IntentOption {
	return func(a *IntentAnalyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithIntentMemoSize overrides the memo capacity.
func WithIntentMemoSize(size int) IntentOption {
	return func(a *IntentAnalyzer) {
		if size > 0 {
			a.memoSize = size
		}
	}
}

// NewIntentAnalyzer creates an analyzer backed by the given keywords
// service.
func NewIntentAnalyzer(keywords backend.KeywordsService, opts ...IntentOption) *IntentAnalyzer {
	a := &IntentAnalyzer{
		keywords: keywords,
		memoSize: DefaultIntentMemoSize,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	memo, _ := lru.New[string, QueryIntent](a.memoSize)
	a.memo = memo
	return a
}

// Analyze produces the run's QueryIntent. It never returns an error:
// remote failures and malformed responses fall back to a basic keyword
// split of the original query. Only successful remote results are
// memoized, so a recovered backend is consulted again on the next
// identical query.
func (a *IntentAnalyzer) Analyze(ctx context.Context, query string, maxVariants int) QueryIntent {
	if maxVariants <= 0 {
		maxVariants = DefaultMaxVariants
	}

	memoKey := fmt.Sprintf("%d:%s", maxVariants, NormalizeQuery(query))
	if intent, ok := a.memo.Get(memoKey); ok {
		return intent
	}

	variants, err := a.keywords.Keywords(ctx, query, maxVariants)
	if err != nil {
		if ctx.Err() == nil {
			a.logger.Warn("intent analysis failed, using fallback",
				"query", query,
				"error", err)
		}
		return a.fallback(query)
	}

	cleaned := sanitizeVariants(variants, maxVariants)
	if len(cleaned) == 0 {
		a.logger.Warn("intent analysis returned no usable variants, using fallback", "query", query)
		return a.fallback(query)
	}

	intent := QueryIntent{
		SearchQueries: cleaned,
		QueryType:     ClassifyQueryType(query),
	}
	a.memo.Add(memoKey, intent)
	return intent
}

// fallback derives variants from the query alone: the query itself plus
// its first two words longer than two characters.
func (a *IntentAnalyzer) fallback(query string) QueryIntent {
	variants := []string{query}
	added := 0
	for _, word := range strings.Fields(query) {
		word = strings.Trim(word, `,.!?;:"'()[]`)
		if len(word) <= 2 || strings.EqualFold(word, query) {
			continue
		}
		variants = append(variants, word)
		added++
		if added == 2 {
			break
		}
	}
	return QueryIntent{
		SearchQueries: variants,
		QueryType:     ClassifyQueryType(query),
		Explanation:   "Basic search for " + query,
	}
}

// sanitizeVariants trims, drops empties, dedups case-insensitively and
// caps the list at maxVariants.
func sanitizeVariants(variants []string, maxVariants int) []string {
	seen := make(map[string]struct{}, len(variants))
	cleaned := make([]string, 0, maxVariants)
	for _, v := range variants {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, v)
		if len(cleaned) == maxVariants {
			break
		}
	}
	return cleaned
}

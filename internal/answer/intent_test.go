package answer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keywordsFunc adapts a function to backend.KeywordsService.
type keywordsFunc func(ctx context.Context, query string, maxKeywords int) ([]string, error)

func (f keywordsFunc) Keywords(ctx context.Context, query string, maxKeywords int) ([]string, error) {
	return f(ctx, query, maxKeywords)
}

func quietIntentAnalyzer(kw keywordsFunc, opts ...IntentOption) *IntentAnalyzer {
	return NewIntentAnalyzer(kw, append([]IntentOption{WithIntentLogger(discardLogger())}, opts...)...)
}

// ============================================================================
// Success path
// ============================================================================

func TestIntentAnalyzer_UsesBackendVariants(t *testing.T) {
	// Given a keywords service returning three variants
	kw := keywordsFunc(func(_ context.Context, query string, maxKeywords int) ([]string, error) {
		assert.Equal(t, "how to install", query)
		assert.Equal(t, 3, maxKeywords)
		return []string{"how to install", "install guide", "installation steps"}, nil
	})
	a := quietIntentAnalyzer(kw)

	// When analyzing
	intent := a.Analyze(context.Background(), "how to install", 3)

	// Then the backend variants drive the fan-out and the type is
	// classified locally
	assert.Equal(t, []string{"how to install", "install guide", "installation steps"}, intent.SearchQueries)
	assert.Equal(t, QueryTypeHowTo, intent.QueryType)
	assert.Empty(t, intent.Explanation)
}

func TestIntentAnalyzer_CapsAndDedupsVariants(t *testing.T) {
	kw := keywordsFunc(func(_ context.Context, _ string, _ int) ([]string, error) {
		return []string{" one ", "", "ONE", "two", "three", "four"}, nil
	})
	a := quietIntentAnalyzer(kw)

	intent := a.Analyze(context.Background(), "some query", 3)

	assert.Equal(t, []string{"one", "two", "three"}, intent.SearchQueries)
}

func TestIntentAnalyzer_MemoizesSuccessfulResults(t *testing.T) {
	// Given a counting keywords service
	var calls atomic.Int32
	kw := keywordsFunc(func(_ context.Context, _ string, _ int) ([]string, error) {
		calls.Add(1)
		return []string{"variant"}, nil
	})
	a := quietIntentAnalyzer(kw)

	// When analyzing normalization-equivalent queries twice
	first := a.Analyze(context.Background(), "React integrate", 3)
	second := a.Analyze(context.Background(), "integrate, react!", 3)

	// Then the backend was consulted once
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, first.SearchQueries, second.SearchQueries)
}

// ============================================================================
// Fallback path
// ============================================================================

func TestIntentAnalyzer_FallbackOnError(t *testing.T) {
	// Given a failing keywords service
	kw := keywordsFunc(func(_ context.Context, _ string, _ int) ([]string, error) {
		return nil, errors.New("backend down")
	})
	a := quietIntentAnalyzer(kw)

	// When analyzing
	intent := a.Analyze(context.Background(), "how to install react", 3)

	// Then the analyzer resolves with the original query plus its
	// first two words longer than two characters
	require.NotEmpty(t, intent.SearchQueries)
	assert.Equal(t, []string{"how to install react", "how", "install"}, intent.SearchQueries)
	assert.Equal(t, "Basic search for how to install react", intent.Explanation)
	assert.Equal(t, QueryTypeHowTo, intent.QueryType)
}

func TestIntentAnalyzer_FallbackOnEmptyVariants(t *testing.T) {
	kw := keywordsFunc(func(_ context.Context, _ string, _ int) ([]string, error) {
		return []string{"", "  "}, nil
	})
	a := quietIntentAnalyzer(kw)

	intent := a.Analyze(context.Background(), "navigation setup", 3)

	assert.Equal(t, []string{"navigation setup", "navigation", "setup"}, intent.SearchQueries)
}

func TestIntentAnalyzer_FallbackStripsPunctuationFromWords(t *testing.T) {
	kw := keywordsFunc(func(_ context.Context, _ string, _ int) ([]string, error) {
		return nil, errors.New("nope")
	})
	a := quietIntentAnalyzer(kw)

	intent := a.Analyze(context.Background(), "integrate, react!", 3)

	assert.Equal(t, []string{"integrate, react!", "integrate", "react"}, intent.SearchQueries)
}

func TestIntentAnalyzer_SingleWordQueryFallback(t *testing.T) {
	kw := keywordsFunc(func(_ context.Context, _ string, _ int) ([]string, error) {
		return nil, errors.New("nope")
	})
	a := quietIntentAnalyzer(kw)

	// A single-word query must not duplicate itself in the variants
	intent := a.Analyze(context.Background(), "navigation", 3)

	assert.Equal(t, []string{"navigation"}, intent.SearchQueries)
}

func TestIntentAnalyzer_FallbacksAreNotMemoized(t *testing.T) {
	// Given a service that fails once then recovers
	var calls atomic.Int32
	kw := keywordsFunc(func(_ context.Context, _ string, _ int) ([]string, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("transient")
		}
		return []string{"recovered variant"}, nil
	})
	a := quietIntentAnalyzer(kw)

	// When analyzing the same query twice
	first := a.Analyze(context.Background(), "some query", 3)
	second := a.Analyze(context.Background(), "some query", 3)

	// Then the second call reached the recovered backend
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "Basic search for some query", first.Explanation)
	assert.Equal(t, []string{"recovered variant"}, second.SearchQueries)
}

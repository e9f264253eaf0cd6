package answer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const richContent = "Deep links let the app open a specific screen.\n" +
	"First register the URL scheme in the app config.\n" +
	"Then add a route for every screen you link to.\n" +
	"Test the link with the platform's URI tool.\n" +
	"Finally handle the cold-start case explicitly."

func quietEnhancer(fetcher ContentFetcher, opts ...EnhancerOption) *Enhancer {
	opts = append(opts, WithEnhancerLogger(discardLogger()))
	return NewEnhancer(fetcher, opts...)
}

// ============================================================================
// Thinness predicate
// ============================================================================

func TestIsThinContent(t *testing.T) {
	fourLines := strings.Join(strings.Split(richContent, "\n")[:4], "\n")
	spacedOut := strings.ReplaceAll(richContent, "\n", "\n\n")

	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{"empty", "", true},
		{"single short line", "Install the SDK.", true},
		{"long enough but too few lines", fourLines, true},
		{"enough chars and lines", richContent, false},
		{"blank lines do not count", spacedOut, false},
		{"whitespace only", "   \n\t\n  ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isThinContent(tt.content))
		})
	}
}

// ============================================================================
// Enhancement
// ============================================================================

func TestEnhancer_ReplacesThinContentWithLongerFetch(t *testing.T) {
	fetcher := ContentFetcherFunc(func(_ context.Context, url string) (string, error) {
		return "  " + richContent + "\n", nil
	})
	e := quietEnhancer(fetcher)

	docs := []Document{{URL: "https://docs.example.com/deep-linking", Title: "Deep linking", Content: "See below."}}

	enhanced, err := e.Enhance(context.Background(), docs)

	require.NoError(t, err)
	assert.Equal(t, richContent, enhanced[0].Content, "fetched content is trimmed and swapped in")
	assert.Equal(t, "Deep linking", enhanced[0].Title, "only content changes")
}

func TestEnhancer_KeepsExtractedContentWhenFetchIsShorter(t *testing.T) {
	fetcher := ContentFetcherFunc(func(_ context.Context, url string) (string, error) {
		return "404", nil
	})
	e := quietEnhancer(fetcher)

	docs := []Document{{URL: "https://e/a", Content: "Short but still longer than the fetch."}}

	enhanced, err := e.Enhance(context.Background(), docs)

	require.NoError(t, err)
	assert.Equal(t, "Short but still longer than the fetch.", enhanced[0].Content)
}

func TestEnhancer_FetchFailureIsPerDocumentAndSoft(t *testing.T) {
	// Given one URL that fails to fetch and one that succeeds
	fetcher := ContentFetcherFunc(func(_ context.Context, url string) (string, error) {
		if strings.HasSuffix(url, "/bad") {
			return "", errors.New("connection refused")
		}
		return richContent, nil
	})
	e := quietEnhancer(fetcher)

	docs := []Document{
		{URL: "https://e/bad", Content: "thin one"},
		{URL: "https://e/good", Content: "thin two"},
	}

	enhanced, err := e.Enhance(context.Background(), docs)

	// Then the failure never aborts the batch
	require.NoError(t, err)
	assert.Equal(t, "thin one", enhanced[0].Content)
	assert.Equal(t, richContent, enhanced[1].Content)
}

func TestEnhancer_SkipsHealthyAndUnaddressedDocuments(t *testing.T) {
	var mu sync.Mutex
	var fetched []string
	fetcher := ContentFetcherFunc(func(_ context.Context, url string) (string, error) {
		mu.Lock()
		fetched = append(fetched, url)
		mu.Unlock()
		return richContent, nil
	})
	e := quietEnhancer(fetcher)

	docs := []Document{
		{URL: "https://e/healthy", Content: richContent},
		{URL: "", Content: "thin but nowhere to fetch from"},
		{URL: "https://e/thin", Content: "thin"},
	}

	_, err := e.Enhance(context.Background(), docs)

	require.NoError(t, err)
	assert.Equal(t, []string{"https://e/thin"}, fetched)
}

func TestEnhancer_NilEnhancerAndNilFetcherAreNoops(t *testing.T) {
	docs := []Document{{URL: "https://e/a", Content: "thin"}}

	var nilEnhancer *Enhancer
	got, err := nilEnhancer.Enhance(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, docs, got)

	got, err = quietEnhancer(nil).Enhance(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, docs, got)
}

func TestEnhancer_CancellationPropagates(t *testing.T) {
	started := make(chan struct{})
	fetcher := ContentFetcherFunc(func(ctx context.Context, url string) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	})
	e := quietEnhancer(fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := e.Enhance(ctx, []Document{{URL: "https://e/a", Content: "thin"}})
		done <- err
	}()

	<-started
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
}

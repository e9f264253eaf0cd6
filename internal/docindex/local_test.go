package docindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemIndex(t *testing.T, records ...DocRecord) *LocalIndex {
	t.Helper()
	ix, err := NewLocalIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })
	if len(records) > 0 {
		require.NoError(t, ix.Add(context.Background(), records))
	}
	return ix
}

func sampleRecords() []DocRecord {
	return []DocRecord{
		{
			URL:     "https://docs.example.com/install#npm",
			Lvl0:    "Getting Started",
			Lvl1:    "Installation",
			Content: "Run npm install in the project root to install dependencies.",
			DocType: "guide",
		},
		{
			URL:     "https://docs.example.com/api/users",
			Lvl0:    "API Reference",
			Lvl1:    "Users",
			Content: "GET /users returns the user collection.",
			DocType: "api",
		},
		{
			URL:     "https://docs.example.com/config",
			Lvl0:    "Configuration",
			Content: "Settings live in config.yaml. Install-time defaults apply.",
			DocType: "docs",
		},
	}
}

// ============================================================================
// Build and search roundtrip
// ============================================================================

func TestLocalIndex_SearchRoundTrip(t *testing.T) {
	// Given an in-memory index with sample sections
	ix := newMemIndex(t, sampleRecords()...)

	// When searching
	resp, err := ix.Search(context.Background(), "npm install", "docs", SearchParams{HitsPerPage: 5})

	// Then hits come back shaped per the index contract
	require.NoError(t, err)
	require.NotEmpty(t, resp.Hits)

	top := resp.Hits[0]
	assert.Equal(t, "https://docs.example.com/install#npm", top.URL)
	assert.Equal(t, "Getting Started", top.Hierarchy.Lvl0)
	assert.Equal(t, "Installation", top.Hierarchy.Lvl1)
	assert.Contains(t, top.Content, "npm install")
	assert.Equal(t, "guide", top.Type)
}

func TestLocalIndex_SnippetAndHighlights(t *testing.T) {
	ix := newMemIndex(t, sampleRecords()...)

	resp, err := ix.Search(context.Background(), "install", "docs", SearchParams{
		HitsPerPage:           5,
		AttributesToHighlight: []string{"content"},
	})

	require.NoError(t, err)
	require.NotEmpty(t, resp.Hits)

	var sawSnippet bool
	for _, hit := range resp.Hits {
		if hit.Snippet != "" {
			sawSnippet = true
			assert.Contains(t, hit.Snippet, "<mark>")
		}
		assert.Positive(t, hit.Highlights)
	}
	assert.True(t, sawSnippet, "at least one hit should carry a highlighted snippet")
}

func TestLocalIndex_HitsPerPageBound(t *testing.T) {
	records := make([]DocRecord, 20)
	for i := range records {
		records[i] = DocRecord{
			URL:     "https://docs.example.com/page" + string(rune('a'+i)),
			Lvl0:    "Docs",
			Content: "install instructions for variant",
		}
	}
	ix := newMemIndex(t, records...)

	resp, err := ix.Search(context.Background(), "install", "docs", SearchParams{HitsPerPage: 7})

	require.NoError(t, err)
	assert.Len(t, resp.Hits, 7)
}

func TestLocalIndex_EmptyQueryReturnsNoHits(t *testing.T) {
	ix := newMemIndex(t, sampleRecords()...)

	resp, err := ix.Search(context.Background(), "   ", "docs", SearchParams{HitsPerPage: 5})

	require.NoError(t, err)
	assert.Empty(t, resp.Hits)
}

func TestLocalIndex_ReplaceSwapsCorpus(t *testing.T) {
	ix := newMemIndex(t, sampleRecords()...)

	count, err := ix.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	err = ix.Replace(context.Background(), []DocRecord{
		{URL: "https://docs.example.com/only", Lvl0: "Only", Content: "the only page"},
	})
	require.NoError(t, err)

	count, err = ix.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	resp, err := ix.Search(context.Background(), "npm install", "docs", SearchParams{HitsPerPage: 5})
	require.NoError(t, err)
	for _, hit := range resp.Hits {
		assert.NotEqual(t, "https://docs.example.com/install#npm", hit.URL)
	}
}

func TestLocalIndex_ClosedIndexErrors(t *testing.T) {
	ix, err := NewLocalIndex("")
	require.NoError(t, err)
	require.NoError(t, ix.Close())

	_, err = ix.Search(context.Background(), "anything", "docs", SearchParams{})
	assert.Error(t, err)

	err = ix.Add(context.Background(), sampleRecords())
	assert.Error(t, err)

	// Double close is safe
	assert.NoError(t, ix.Close())
}

func TestLocalIndex_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/index"

	ix, err := NewLocalIndex(path)
	require.NoError(t, err)
	require.NoError(t, ix.Add(context.Background(), sampleRecords()))
	require.NoError(t, ix.Close())

	reopened, err := NewLocalIndex(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	count, err := reopened.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

// ============================================================================
// Build pipeline
// ============================================================================

func TestBuild_IngestsTreeIntoIndex(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "docs/install.md", "# Install\n\nRun npm install to set up.\n")
	writeDoc(t, root, "docs/usage.md", "# Usage\n\nCall the CLI with a query.\n")

	ix, count, err := Build(context.Background(), "", root, IngestConfig{
		Include: []string{"**/*.md"},
	})
	require.NoError(t, err)
	defer func() { _ = ix.Close() }()

	assert.Equal(t, 2, count)

	resp, err := ix.Search(context.Background(), "npm install", "docs", SearchParams{HitsPerPage: 5})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Hits)
	assert.Equal(t, "docs/install#install", resp.Hits[0].URL)
}

func TestBuild_LockContention(t *testing.T) {
	dir := t.TempDir()
	indexPath := dir + "/index"

	lock := NewBuildLock(indexPath)
	acquired, err := lock.TryLock()
	require.NoError(t, err)
	require.True(t, acquired)
	defer func() { _ = lock.Unlock() }()

	root := t.TempDir()
	writeDoc(t, root, "a.md", "# A\n\nText.\n")

	_, _, err = Build(context.Background(), indexPath, root, IngestConfig{Include: []string{"**/*.md"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "another docsage process")
}

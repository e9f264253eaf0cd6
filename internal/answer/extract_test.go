package answer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsage/docsage/internal/docindex"
)

// ============================================================================
// Content assembly
// ============================================================================

func TestExtractDocument_AssemblesContentInOrder(t *testing.T) {
	// Given a hit with hierarchy, content and a highlighted snippet
	h := docindex.SearchHit{
		URL: "https://docs.example.com/install",
		Hierarchy: docindex.Hierarchy{
			Lvl0: "Getting Started",
			Lvl1: "Installation",
		},
		Content:    "Run the installer from the command line.",
		Type:       "guide",
		Snippet:    "Run the <em>installer</em> with <code>npm install sage</code>.",
		Highlights: 1,
	}

	// When extracting
	doc, ok := ExtractDocument(h)

	// Then the content carries breadcrumb, body, emphasized snippet
	// and a fenced block for the inline code, in that order
	require.True(t, ok)
	assert.Equal(t, "Getting Started > Installation\n\n"+
		"Run the installer from the command line.\n\n"+
		"Run the *installer* with `npm install sage`.\n\n"+
		"```\nnpm install sage\n```", doc.Content)
	assert.Equal(t, "Installation", doc.Title)
	assert.Equal(t, []string{"Getting Started", "Installation"}, doc.Levels)
	assert.Equal(t, "guide", doc.DocType)
	assert.Equal(t, 1, doc.Highlights)
}

func TestExtractDocument_MarkEmphasisAndEntities(t *testing.T) {
	h := docindex.SearchHit{
		URL:     "https://docs.example.com/x",
		Snippet: "configure <mark>auth &amp; tokens</mark> here",
	}

	doc, ok := ExtractDocument(h)

	require.True(t, ok)
	assert.Equal(t, "configure *auth & tokens* here", doc.Snippet)
}

func TestExtractDocument_SkipsSnippetEqualToContent(t *testing.T) {
	h := docindex.SearchHit{
		URL:     "https://docs.example.com/x",
		Content: "same text",
		Snippet: "same text",
	}

	doc, ok := ExtractDocument(h)

	require.True(t, ok)
	assert.Equal(t, "same text", doc.Content)
}

// ============================================================================
// Title selection
// ============================================================================

func TestExtractDocument_TitleIsMostSpecificLevel(t *testing.T) {
	h := hit("https://e/x", "Guides", "Navigation", "text")
	h.Hierarchy.Lvl3 = "Deep linking"

	doc, ok := ExtractDocument(h)

	require.True(t, ok)
	assert.Equal(t, "Deep linking", doc.Title)
}

func TestExtractDocument_TitleStripsMarkup(t *testing.T) {
	h := docindex.SearchHit{
		URL:       "https://e/x",
		Hierarchy: docindex.Hierarchy{Lvl0: "<em>Install</em> &amp; Run"},
		Content:   "body",
	}

	doc, ok := ExtractDocument(h)

	require.True(t, ok)
	assert.Equal(t, "Install & Run", doc.Title)
}

func TestExtractDocument_TitleFallsBackToPlaceholder(t *testing.T) {
	h := docindex.SearchHit{
		URL:     "https://e/x",
		Content: "content without headings",
	}

	doc, ok := ExtractDocument(h)

	require.True(t, ok)
	assert.Equal(t, "Documentation", doc.Title)
}

// ============================================================================
// Empty and fallback content
// ============================================================================

func TestExtractDocument_EmptyHitIsDropped(t *testing.T) {
	_, ok := ExtractDocument(docindex.SearchHit{})

	assert.False(t, ok)
}

func TestExtractDocument_PlaceholderFromURLOnly(t *testing.T) {
	// Given a hit carrying nothing but a URL
	h := docindex.SearchHit{URL: "https://docs.example.com/orphan"}

	doc, ok := ExtractDocument(h)

	// Then placeholder content keeps the document alive
	require.True(t, ok)
	assert.Equal(t, "Documentation page: https://docs.example.com/orphan", doc.Content)
	assert.Equal(t, "Documentation", doc.Title)
}

func TestExtractDocument_BreadcrumbAloneIsContent(t *testing.T) {
	h := docindex.SearchHit{
		URL:       "https://e/x",
		Hierarchy: docindex.Hierarchy{Lvl0: "Guides", Lvl1: "Install"},
	}

	doc, ok := ExtractDocument(h)

	require.True(t, ok)
	assert.Equal(t, "Guides > Install", doc.Content)
}

func TestDocument_Breadcrumb(t *testing.T) {
	doc := Document{Levels: []string{"Guides", "Install", "macOS"}}
	assert.Equal(t, "Guides > Install > macOS", doc.Breadcrumb())

	assert.Empty(t, Document{}.Breadcrumb())
}

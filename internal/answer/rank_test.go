package answer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rankOrder returns the document URLs in ranked order.
func rankOrder(t *testing.T, r *Ranker, docs []Document, query string) []string {
	t.Helper()
	ranked := r.Rank(docs, query)
	urls := make([]string, len(ranked))
	for i, d := range ranked {
		urls[i] = d.URL
	}
	return urls
}

// ============================================================================
// Title factor
// ============================================================================

func TestRanker_TitleFactorsOrderAsContracted(t *testing.T) {
	// Given documents matching the query in the title with decreasing
	// strength: exact, substring, single word, none
	docs := []Document{
		{URL: "none", Title: "Changelog", Levels: []string{"Changelog"}},
		{URL: "word", Title: "Install prerequisites", Levels: []string{"Install prerequisites"}},
		{URL: "substring", Title: "How to install react quickly", Levels: []string{"How to install react quickly"}},
		{URL: "exact", Title: "Install React", Levels: []string{"Install React"}},
	}
	r := NewRanker()

	order := rankOrder(t, r, docs, "install react")

	assert.Equal(t, []string{"exact", "substring", "word", "none"}, order)
}

func TestRanker_OuterLevelsWeighHigherThanInner(t *testing.T) {
	// Given a word match at level 0 versus the same match at level 2,
	// with titles that never match the full query phrase
	docs := []Document{
		{URL: "inner", Title: "Install", Levels: []string{"Reference", "Tools", "Install"}},
		{URL: "outer", Title: "Overview", Levels: []string{"Install", "Details", "Overview"}},
	}
	r := NewRanker(WithRankWeights(RankWeights{TitleWord: 12}))

	ranked := r.Rank(docs, "install widget")

	require.Equal(t, "outer", ranked[0].URL)
	assert.Equal(t, 12.0, ranked[0].RelevanceScore)
	assert.Equal(t, 8.0, ranked[1].RelevanceScore)
}

// ============================================================================
// Content and URL factors
// ============================================================================

func TestRanker_ContentWordCountIsCapped(t *testing.T) {
	stuffed := ""
	for i := 0; i < 50; i++ {
		stuffed += "install "
	}
	docs := []Document{
		{URL: "stuffed", Title: "A", Content: stuffed},
		{URL: "normal", Title: "A", Content: "install install install install install"},
	}
	r := NewRanker(WithRankWeights(RankWeights{ContentWord: 2, ContentWordCap: 5}))

	ranked := r.Rank(docs, "install")

	// Both hit the cap, so keyword stuffing buys nothing
	assert.Equal(t, ranked[0].RelevanceScore, ranked[1].RelevanceScore)
}

func TestRanker_URLWordAndLeafBonus(t *testing.T) {
	docs := []Document{
		{URL: "https://docs.example.com/", Title: "A"},
		{URL: "https://docs.example.com/guides/install", Title: "A"},
	}
	r := NewRanker(WithRankWeights(RankWeights{URLWord: 5, URLLeafBonus: 2}))

	ranked := r.Rank(docs, "install")

	require.Equal(t, "https://docs.example.com/guides/install", ranked[0].URL)
	assert.Equal(t, 7.0, ranked[0].RelevanceScore)
	assert.Equal(t, 0.0, ranked[1].RelevanceScore)
}

func TestIsLeafURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://e.com/guides/install", true},
		{"https://e.com/guides/install/", true},
		{"https://e.com/", false},
		{"https://e.com", false},
		{"https://e.com/guides/index.html", false},
		{"https://e.com/guides/index", false},
		{"https://e.com/#setup", true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, isLeafURL(tt.url))
		})
	}
}

// ============================================================================
// Technology disambiguation
// ============================================================================

func TestRanker_MismatchedVariantScoresStrictlyLower(t *testing.T) {
	// Given otherwise-identical candidates, one matching the queried
	// technology and one matching only its competing variant
	docs := []Document{
		{URL: "wrong", Title: "Navigation", Content: "Set up navigation in your React Native app."},
		{URL: "right", Title: "Navigation", Content: "Set up navigation in your React app."},
	}
	r := NewRanker()

	ranked := r.Rank(docs, "react navigation")

	require.Equal(t, "right", ranked[0].URL)
	assert.Greater(t, ranked[0].RelevanceScore, ranked[1].RelevanceScore)

	// And the reverse query prefers the reverse candidate
	reversed := r.Rank(docs, "react native navigation")
	assert.Equal(t, "wrong", reversed[0].URL)
}

func TestMatchesTech_ExcludesCompetingVariant(t *testing.T) {
	react, ok := findTechToken("react")
	require.True(t, ok)
	reactNative, ok := findTechToken("react native")
	require.True(t, ok)

	assert.True(t, matchesTech(react, "using react for the web"))
	assert.False(t, matchesTech(react, "using react native on mobile"))
	assert.True(t, matchesTech(react, "react native and plain react together"))
	assert.True(t, matchesTech(reactNative, "using react native on mobile"))
	assert.False(t, matchesTech(reactNative, "using react for the web"))
}

func TestRanker_TechPenaltyIsNegative(t *testing.T) {
	// A candidate matching only the wrong variant scores below an
	// otherwise-identical tech-neutral candidate
	docs := []Document{
		{URL: "mismatched", Title: "Setup", Content: "Works great with react native only."},
		{URL: "neutral", Title: "Setup", Content: "Works great with anything at all."},
	}
	r := NewRanker()

	ranked := r.Rank(docs, "react setup")

	require.Equal(t, "neutral", ranked[0].URL)
	assert.Greater(t, ranked[0].RelevanceScore, ranked[1].RelevanceScore)
}

// ============================================================================
// Intent, exact and highlight factors
// ============================================================================

func TestRanker_DocTypeMatchesQueryIntent(t *testing.T) {
	docs := []Document{
		{URL: "api", Title: "Widget", DocType: "api"},
		{URL: "guide", Title: "Widget", DocType: "guide"},
	}
	r := NewRanker()

	howTo := rankOrder(t, r, docs, "how to widget")
	assert.Equal(t, "guide", howTo[0])

	ref := rankOrder(t, r, docs, "widget props")
	assert.Equal(t, "api", ref[0])
}

func TestRanker_PhraseAndAllWordsBonuses(t *testing.T) {
	// Given one candidate with the words adjacent in order, one with
	// the words scattered, and one missing a word
	docs := []Document{
		{URL: "missing", Title: "A", Content: "configure something containing deep things"},
		{URL: "scattered", Title: "A", Content: "deep stuff to link about linking things"},
		{URL: "adjacent", Title: "A", Content: "about deep linking here"},
	}
	r := NewRanker(WithRankWeights(RankWeights{PhraseBonus: 25, AllWordsBonus: 10}))

	ranked := r.Rank(docs, "deep linking")

	require.Equal(t, "adjacent", ranked[0].URL)
	assert.Equal(t, 35.0, ranked[0].RelevanceScore)
	require.Equal(t, "scattered", ranked[1].URL)
	assert.Equal(t, 10.0, ranked[1].RelevanceScore)
	assert.Equal(t, 0.0, ranked[2].RelevanceScore)
}

func TestRanker_ExactTitleBonusStacksWithTitleExact(t *testing.T) {
	docs := []Document{
		{URL: "x", Title: "Install React", Levels: []string{"Install React"}},
	}
	r := NewRanker(WithRankWeights(RankWeights{TitleExact: 100, ExactTitle: 40}))

	ranked := r.Rank(docs, "install react")

	assert.Equal(t, 140.0, ranked[0].RelevanceScore)
}

func TestRanker_HighlightBonusScalesWithCount(t *testing.T) {
	docs := []Document{
		{URL: "low", Title: "A", Highlights: 1},
		{URL: "high", Title: "A", Highlights: 4},
	}
	r := NewRanker(WithRankWeights(RankWeights{HighlightBonus: 1}))

	ranked := r.Rank(docs, "anything")

	require.Equal(t, "high", ranked[0].URL)
	assert.Equal(t, 4.0, ranked[0].RelevanceScore)
	assert.Equal(t, 1.0, ranked[1].RelevanceScore)
}

// ============================================================================
// Determinism and stability
// ============================================================================

func TestRanker_DeterministicAcrossCalls(t *testing.T) {
	docs := []Document{
		{URL: "a", Title: "Install React", Content: "react setup steps", DocType: "guide"},
		{URL: "b", Title: "React Native install", Content: "mobile install", DocType: "guide"},
		{URL: "c", Title: "Changelog", Content: "unrelated notes"},
		{URL: "d", Title: "Install", Content: "how to install react", Highlights: 2},
	}
	r := NewRanker()

	first := r.Rank(docs, "how to install react")
	second := r.Rank(docs, "how to install react")

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].URL, second[i].URL)
		assert.Equal(t, first[i].RelevanceScore, second[i].RelevanceScore)
	}
}

func TestRanker_TiesKeepFanOutOrder(t *testing.T) {
	// Given documents that all score identically
	var docs []Document
	for i := 0; i < 5; i++ {
		docs = append(docs, Document{URL: fmt.Sprintf("https://e/%d", i), Title: "Same title", Content: "same content"})
	}
	r := NewRanker()

	ranked := r.Rank(docs, "zebra")

	for i := 0; i < 5; i++ {
		assert.Equal(t, fmt.Sprintf("https://e/%d", i), ranked[i].URL)
	}
}

func TestRanker_InputSliceNotMutated(t *testing.T) {
	docs := []Document{
		{URL: "a", Title: "Install"},
		{URL: "b", Title: "Install react now"},
	}
	r := NewRanker()

	_ = r.Rank(docs, "install react")

	assert.Equal(t, 0.0, docs[0].RelevanceScore)
	assert.Equal(t, "a", docs[0].URL)
}

package answer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// ============================================================================
// Query normalization
// ============================================================================

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"lowercases", "React Hooks", "hooks react"},
		{"strips punctuation", "integrate, react!", "integrate react"},
		{"collapses whitespace", "  how   to\tinstall ", "how install to"},
		{"sorts words", "install react how to", "how install react to"},
		{"empty", "", ""},
		{"only punctuation", "?!...", ""},
		{"keeps digits", "migrate to v2", "migrate to v2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeQuery(tt.query))
		})
	}
}

func TestNormalizeQuery_Equivalence(t *testing.T) {
	// Given queries differing only in case, punctuation, whitespace
	// run-length and word order
	variants := []string{
		"React integrate",
		"integrate, react!",
		"INTEGRATE REACT",
		"  integrate   react  ",
		"react... integrate",
	}

	// Then every variant normalizes to the same form
	want := NormalizeQuery(variants[0])
	for _, v := range variants[1:] {
		assert.Equal(t, want, NormalizeQuery(v), "variant %q", v)
	}
}

func TestCacheKey(t *testing.T) {
	// Given two order-variants of the same query
	k1 := CacheKey("React integrate")
	k2 := CacheKey("integrate, react!")

	// Then their keys collide, differ from other queries, and are
	// hex-encoded digests
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 64)
	assert.NotEqual(t, k1, CacheKey("something else"))
}

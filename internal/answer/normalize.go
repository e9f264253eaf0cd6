package answer

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"unicode"
)

// NormalizeQuery reduces a raw query to its canonical cache form:
// lower-cased, punctuation stripped, whitespace collapsed, words
// sorted. "React integrate" and "integrate, react!" normalize to the
// same string on purpose: the cache trades key precision for hit rate.
func NormalizeQuery(query string) string {
	var b strings.Builder
	b.Grow(len(query))
	for _, r := range strings.ToLower(query) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	words := strings.Fields(b.String())
	sort.Strings(words)
	return strings.Join(words, " ")
}

// CacheKey derives the response-cache key for a query from its
// normalized form.
func CacheKey(query string) string {
	sum := sha256.Sum256([]byte(NormalizeQuery(query)))
	return hex.EncodeToString(sum[:])
}

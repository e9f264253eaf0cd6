package answer

import (
	"strings"
)

// DefaultMaxExpansions bounds how many substituted variants one query
// may contribute to the fan-out.
const DefaultMaxExpansions = 2

// lexicalSubstitutions maps common abbreviations to their spelled-out
// forms and back. Expansion swaps exactly one token per variant; the
// table is kept symmetric so either spelling of a query reaches pages
// written with the other.
var lexicalSubstitutions = map[string]string{
	"js":             "javascript",
	"javascript":     "js",
	"ts":             "typescript",
	"typescript":     "ts",
	"k8s":            "kubernetes",
	"kubernetes":     "k8s",
	"config":         "configuration",
	"configuration":  "config",
	"auth":           "authentication",
	"authentication": "auth",
	"db":             "database",
	"database":       "db",
	"docs":           "documentation",
	"documentation":  "docs",
	"env":            "environment",
	"environment":    "env",
	"repo":           "repository",
	"repository":     "repo",
	"dir":            "directory",
	"directory":      "dir",
	"cmd":            "command",
	"command":        "cmd",
	"param":          "parameter",
	"parameter":      "param",
	"app":            "application",
	"application":    "app",
	"intro":          "introduction",
	"introduction":   "intro",
}

// QueryExpander produces lexical variants of a search query by
// substituting one known abbreviation at a time.
type QueryExpander struct {
	substitutions map[string]string
	maxExpansions int
}

// ExpanderOption configures a QueryExpander.
type ExpanderOption func(*QueryExpander)

// WithMaxExpansions caps the number of variants Expand returns.
func WithMaxExpansions(n int) ExpanderOption {
	return func(e *QueryExpander) { e.maxExpansions = n }
}

// WithSubstitutions replaces the default substitution table.
func WithSubstitutions(subs map[string]string) ExpanderOption {
	return func(e *QueryExpander) {
		if subs != nil {
			e.substitutions = subs
		}
	}
}

// NewQueryExpander creates an expander with the default substitution
// table.
func NewQueryExpander(opts ...ExpanderOption) *QueryExpander {
	e := &QueryExpander{
		substitutions: lexicalSubstitutions,
		maxExpansions: DefaultMaxExpansions,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand returns up to maxExpansions variants of query, each with one
// token substituted. The original query is not included.
func (e *QueryExpander) Expand(query string) []string {
	if e.maxExpansions <= 0 {
		return nil
	}

	words := strings.Fields(query)
	seen := map[string]struct{}{strings.ToLower(query): {}}
	var variants []string
	for i, word := range words {
		replacement, ok := e.substitutions[strings.ToLower(word)]
		if !ok {
			continue
		}
		substituted := make([]string, len(words))
		copy(substituted, words)
		substituted[i] = replacement
		variant := strings.Join(substituted, " ")
		key := strings.ToLower(variant)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		variants = append(variants, variant)
		if len(variants) == e.maxExpansions {
			break
		}
	}
	return variants
}

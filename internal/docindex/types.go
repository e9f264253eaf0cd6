// Package docindex defines the search-index collaborator contract and
// two implementations: a hosted full-text search client and a local
// bleve-backed index built from documentation trees.
package docindex

import (
	"context"
	"strings"
)

// Hierarchy is the heading path of a documentation section, from the
// most general level (lvl0, usually the page or product title) to the
// most specific.
type Hierarchy struct {
	Lvl0 string `json:"lvl0,omitempty"`
	Lvl1 string `json:"lvl1,omitempty"`
	Lvl2 string `json:"lvl2,omitempty"`
	Lvl3 string `json:"lvl3,omitempty"`
	Lvl4 string `json:"lvl4,omitempty"`
	Lvl5 string `json:"lvl5,omitempty"`
}

// Levels returns the non-empty levels in general-to-specific order.
func (h Hierarchy) Levels() []string {
	all := []string{h.Lvl0, h.Lvl1, h.Lvl2, h.Lvl3, h.Lvl4, h.Lvl5}
	levels := make([]string, 0, len(all))
	for _, lvl := range all {
		if strings.TrimSpace(lvl) != "" {
			levels = append(levels, lvl)
		}
	}
	return levels
}

// MostSpecific returns the deepest non-empty level, or "".
func (h Hierarchy) MostSpecific() string {
	levels := h.Levels()
	if len(levels) == 0 {
		return ""
	}
	return levels[len(levels)-1]
}

// IsEmpty reports whether every level is blank.
func (h Hierarchy) IsEmpty() bool {
	return len(h.Levels()) == 0
}

// SearchHit is one raw record returned by a search index for one query.
type SearchHit struct {
	// ObjectID is the index-assigned record identity, when provided.
	ObjectID string `json:"objectID,omitempty"`

	// URL identifies the underlying page section; it is the dedup key
	// across fan-out variants.
	URL string `json:"url"`

	// Hierarchy is the record's heading path.
	Hierarchy Hierarchy `json:"hierarchy"`

	// Content is the full section text, when retrieved.
	Content string `json:"content,omitempty"`

	// Type hints at the record kind (e.g. "guide", "api", "content").
	Type string `json:"type,omitempty"`

	// Snippet is the index's highlighted excerpt; emphasis is marked
	// with <em> or <mark> tags.
	Snippet string `json:"snippet,omitempty"`

	// Highlights counts the emphasis markers the index flagged on this
	// record. Zero when the index reports no highlighting.
	Highlights int `json:"highlights,omitempty"`
}

// SearchParams are the per-request knobs of the index contract.
type SearchParams struct {
	HitsPerPage           int      `json:"hitsPerPage"`
	AttributesToRetrieve  []string `json:"attributesToRetrieve,omitempty"`
	AttributesToHighlight []string `json:"attributesToHighlight,omitempty"`
}

// SearchResponse is the result of one index query.
type SearchResponse struct {
	Hits []SearchHit `json:"hits"`
}

// SearchClient is the black-box search index consumed by the answer
// pipeline. Any client satisfying this shape is acceptable.
type SearchClient interface {
	Search(ctx context.Context, query, index string, params SearchParams) (*SearchResponse, error)
}

// SearchClientFunc adapts a function to the SearchClient interface.
type SearchClientFunc func(ctx context.Context, query, index string, params SearchParams) (*SearchResponse, error)

// Search implements SearchClient.
func (f SearchClientFunc) Search(ctx context.Context, query, index string, params SearchParams) (*SearchResponse, error) {
	return f(ctx, query, index, params)
}

var _ SearchClient = (SearchClientFunc)(nil)

// DocRecord is one indexable documentation section.
type DocRecord struct {
	// ID is the record identity; defaults to the URL.
	ID string `json:"id"`

	// URL locates the section (path plus heading anchor for local docs).
	URL string `json:"url"`

	// Lvl0..Lvl5 mirror Hierarchy as flat fields for index mapping.
	Lvl0 string `json:"lvl0,omitempty"`
	Lvl1 string `json:"lvl1,omitempty"`
	Lvl2 string `json:"lvl2,omitempty"`
	Lvl3 string `json:"lvl3,omitempty"`
	Lvl4 string `json:"lvl4,omitempty"`
	Lvl5 string `json:"lvl5,omitempty"`

	// Content is the section body text.
	Content string `json:"content"`

	// DocType classifies the section ("guide", "api", "docs").
	DocType string `json:"docType,omitempty"`
}

// Hierarchy assembles the record's heading path.
func (r DocRecord) Hierarchy() Hierarchy {
	return Hierarchy{
		Lvl0: r.Lvl0, Lvl1: r.Lvl1, Lvl2: r.Lvl2,
		Lvl3: r.Lvl3, Lvl4: r.Lvl4, Lvl5: r.Lvl5,
	}
}

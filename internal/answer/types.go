// Package answer implements the retrieval-augmented answering pipeline:
// a query is analyzed into search variants, fanned out against a
// documentation index, and the deduplicated, ranked results are sent to
// a completion backend for answer synthesis. Completed runs are cached
// and in-flight runs are cooperatively cancellable.
package answer

import (
	"strings"

	"github.com/docsage/docsage/internal/backend"
)

// QueryType classifies what kind of documentation a query is after.
type QueryType string

// Query classifications.
const (
	QueryTypeHowTo           QueryType = "how-to"
	QueryTypeConcept         QueryType = "concept"
	QueryTypeTroubleshooting QueryType = "troubleshooting"
	QueryTypeAPIReference    QueryType = "api-reference"
	QueryTypeGeneral         QueryType = "general"
)

// QueryIntent is the immutable product of intent analysis: the search
// variants to fan out plus a classification of the query. It is built
// once per run and never re-derived mid-run.
type QueryIntent struct {
	SearchQueries []string
	QueryType     QueryType
	Explanation   string
}

// Document is the normalized, deduplicated representation of one search
// hit. RelevanceScore is zero until ranking assigns it; nothing reads
// the score before that stage.
type Document struct {
	// URL is the document's identity within a result set.
	URL string

	// Title is the most specific heading the hit carried.
	Title string

	// Content is the assembled text: heading path, body, snippet and
	// any inline code pulled from the snippet.
	Content string

	// Levels is the heading path from most general to most specific.
	Levels []string

	// DocType hints at the record kind (e.g. "guide", "api").
	DocType string

	// Snippet is the index's highlighted excerpt reduced to plain
	// asterisk emphasis.
	Snippet string

	// Highlights counts the emphasis markers the index flagged.
	Highlights int

	// RelevanceScore is assigned by ranking.
	RelevanceScore float64
}

// Breadcrumb renders the heading path as a single line.
func (d Document) Breadcrumb() string {
	return strings.Join(d.Levels, " > ")
}

// Result is what a completed run returns to the caller.
type Result struct {
	// Answer is the synthesized answer, empty when synthesis is
	// disabled.
	Answer string

	// Documents are the ranked source documents, best first.
	Documents []Document

	// Validation carries the backend's self-assessment of the answer,
	// when it provided one.
	Validation *backend.Validation

	// Intent records how the query was expanded and classified.
	Intent QueryIntent

	// FromCache marks results served without any network traffic.
	FromCache bool
}

package mcp

import "github.com/docsage/docsage/internal/answer"

// AskInput defines the input schema for the ask tool.
type AskInput struct {
	Query   string `json:"query" jsonschema:"the documentation question to answer"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum number of source documents to return, default 10"`
	Session string `json:"session,omitempty" jsonschema:"session identifier; a new ask in the same session supersedes the previous one"`
}

// AskOutput defines the output schema for the ask tool.
type AskOutput struct {
	Answer     string           `json:"answer" jsonschema:"the synthesized answer"`
	QueryType  string           `json:"query_type,omitempty" jsonschema:"how the query was classified: how-to, concept, troubleshooting, api-reference, general"`
	Confidence float64          `json:"confidence,omitempty" jsonschema:"backend confidence in the answer between 0 and 1"`
	FromCache  bool             `json:"from_cache,omitempty" jsonschema:"true when the answer was served from the response cache"`
	Sources    []DocumentOutput `json:"sources" jsonschema:"ranked source documents, best first"`
}

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query to execute"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
}

// SearchOutput defines the output schema for the search tool.
type SearchOutput struct {
	Results []DocumentOutput `json:"results" jsonschema:"list of ranked documents"`
}

// DocumentOutput defines a single ranked document.
type DocumentOutput struct {
	URL        string  `json:"url" jsonschema:"document URL"`
	Title      string  `json:"title,omitempty" jsonschema:"document title"`
	Breadcrumb string  `json:"breadcrumb,omitempty" jsonschema:"heading path from most general to most specific"`
	Snippet    string  `json:"snippet,omitempty" jsonschema:"highlighted excerpt with asterisk emphasis"`
	DocType    string  `json:"doc_type,omitempty" jsonschema:"record kind, e.g. guide or api"`
	Score      float64 `json:"score" jsonschema:"relevance score assigned by ranking"`
}

// CancelInput defines the input schema for the cancel tool.
type CancelInput struct {
	Session string `json:"session,omitempty" jsonschema:"session whose in-flight ask should be cancelled; defaults to the shared session"`
}

// CancelOutput defines the output schema for the cancel tool.
type CancelOutput struct {
	Cancelled bool `json:"cancelled" jsonschema:"true if an in-flight run was cancelled"`
}

// ToDocumentOutput converts a ranked document to the wire format.
func ToDocumentOutput(d answer.Document) DocumentOutput {
	return DocumentOutput{
		URL:        d.URL,
		Title:      d.Title,
		Breadcrumb: d.Breadcrumb(),
		Snippet:    d.Snippet,
		DocType:    d.DocType,
		Score:      d.RelevanceScore,
	}
}

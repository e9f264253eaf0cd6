package backend

// Wire types for the answering backend. Field names follow the backend's
// JSON contract, not Go conventions.

// KeywordsRequest is the payload for POST /api/keywords.
type KeywordsRequest struct {
	Query         string `json:"query"`
	SystemContext string `json:"systemContext,omitempty"`
	MaxKeywords   int    `json:"maxKeywords"`
}

// KeywordsResponse is the successful response from /api/keywords.
type KeywordsResponse struct {
	Keywords []string `json:"keywords"`
}

// WireDocument is one ranked document as sent to /api/generate-answer.
type WireDocument struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	Content    string `json:"content"`
	Snippet    string `json:"snippet,omitempty"`
	Breadcrumb string `json:"breadcrumb,omitempty"`
}

// AnswerRequest is the payload for POST /api/generate-answer.
// The endpoint accepts at most MaxWireDocuments documents.
type AnswerRequest struct {
	Query         string         `json:"query"`
	Documents     []WireDocument `json:"documents"`
	SystemContext string         `json:"systemContext,omitempty"`
}

// Validation is the backend's optional self-assessment of the answer.
type Validation struct {
	IsValid    bool    `json:"isValid"`
	Confidence float64 `json:"confidence,omitempty"`
	Reason     string  `json:"reason,omitempty"`
}

// QueryAnalysis echoes how the backend interpreted the query.
type QueryAnalysis struct {
	Intent   string   `json:"intent,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

// AnswerResponse is the successful response from /api/generate-answer.
type AnswerResponse struct {
	Answer        string         `json:"answer"`
	Validation    *Validation    `json:"validation,omitempty"`
	QueryAnalysis *QueryAnalysis `json:"queryAnalysis,omitempty"`
}

// errorEnvelope is the body shape of non-2xx backend responses.
type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

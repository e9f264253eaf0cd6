package answer

import (
	"context"
	"log/slog"

	"github.com/docsage/docsage/internal/backend"
	sageerrors "github.com/docsage/docsage/internal/errors"
)

// DefaultMaxDocuments is how many top-ranked documents synthesis sends
// to the backend.
const DefaultMaxDocuments = 5

// Synthesizer wraps the answer-generation endpoint. Unlike intent
// analysis it fails loud: a synthesis failure is user-visible and
// propagates as a typed error the caller can retry on.
type Synthesizer struct {
	answers      backend.AnswerService
	maxDocuments int
	logger       *slog.Logger
}

// SynthesizerOption configures a Synthesizer.
type SynthesizerOption func(*Synthesizer)

// WithMaxDocuments caps how many documents each request carries.
func WithMaxDocuments(n int) SynthesizerOption {
	return func(s *Synthesizer) {
		if n > 0 {
			s.maxDocuments = n
		}
	}
}

// WithSynthesizerLogger sets the synthesizer's logger.
func WithSynthesizerLogger(logger *slog.Logger) SynthesizerOption {
	return func(s *Synthesizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSynthesizer creates a synthesizer backed by the given answer
// service. The document cap never exceeds the wire limit.
func NewSynthesizer(answers backend.AnswerService, opts ...SynthesizerOption) *Synthesizer {
	s := &Synthesizer{
		answers:      answers,
		maxDocuments: DefaultMaxDocuments,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxDocuments > backend.MaxWireDocuments {
		s.maxDocuments = backend.MaxWireDocuments
	}
	return s
}

// Synthesize sends the query plus the top-ranked documents to the
// backend and returns its generated answer. Caller cancellation passes
// through untyped; everything else surfaces as a synthesis failure.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, docs []Document) (*backend.AnswerResponse, error) {
	if len(docs) == 0 {
		return nil, sageerrors.New(sageerrors.ErrCodeNoDocuments, "no documents available for answer synthesis", nil)
	}
	if len(docs) > s.maxDocuments {
		docs = docs[:s.maxDocuments]
	}

	wire := make([]backend.WireDocument, len(docs))
	for i, doc := range docs {
		wire[i] = backend.WireDocument{
			Title:      doc.Title,
			URL:        doc.URL,
			Content:    doc.Content,
			Snippet:    doc.Snippet,
			Breadcrumb: doc.Breadcrumb(),
		}
	}

	resp, err := s.answers.GenerateAnswer(ctx, query, wire)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		s.logger.Error("answer synthesis failed",
			"query", query,
			"documents", len(wire),
			"error", err)
		return nil, sageerrors.New(sageerrors.ErrCodeSynthesisFailed, "answer synthesis failed", err).
			WithRetryable(sageerrors.IsRetryable(err)).
			WithSuggestion("retry the question; the answering backend may be temporarily unavailable")
	}
	if resp.Answer == "" {
		return nil, sageerrors.New(sageerrors.ErrCodeSynthesisFailed, "answering backend returned an empty answer", nil)
	}
	return resp, nil
}

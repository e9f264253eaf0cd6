package answer

import (
	"context"
	"io"
	"log/slog"

	"github.com/docsage/docsage/internal/backend"
	"github.com/docsage/docsage/internal/docindex"
)

// discardLogger keeps pipeline warnings out of test output.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// answersFunc adapts a function to backend.AnswerService.
type answersFunc func(ctx context.Context, query string, docs []backend.WireDocument) (*backend.AnswerResponse, error)

func (f answersFunc) GenerateAnswer(ctx context.Context, query string, docs []backend.WireDocument) (*backend.AnswerResponse, error) {
	return f(ctx, query, docs)
}

// staticAnswers returns a fixed answer for every synthesis call.
func staticAnswers(answer string) answersFunc {
	return func(_ context.Context, _ string, _ []backend.WireDocument) (*backend.AnswerResponse, error) {
		return &backend.AnswerResponse{Answer: answer}, nil
	}
}

// staticKeywords returns fixed variants for every intent call.
func staticKeywords(variants ...string) keywordsFunc {
	return func(_ context.Context, _ string, _ int) ([]string, error) {
		return variants, nil
	}
}

// hit builds a minimal search hit for fan-out and extraction tests.
func hit(url, lvl0, lvl1, content string) docindex.SearchHit {
	return docindex.SearchHit{
		URL:       url,
		Hierarchy: docindex.Hierarchy{Lvl0: lvl0, Lvl1: lvl1},
		Content:   content,
	}
}

// mapSearchClient serves canned hits per query and ignores the index.
func mapSearchClient(hitsByQuery map[string][]docindex.SearchHit) docindex.SearchClient {
	return docindex.SearchClientFunc(func(_ context.Context, query, _ string, _ docindex.SearchParams) (*docindex.SearchResponse, error) {
		return &docindex.SearchResponse{Hits: hitsByQuery[query]}, nil
	})
}

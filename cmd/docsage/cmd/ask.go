package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/docsage/docsage/internal/answer"
	sageerrors "github.com/docsage/docsage/internal/errors"
	"github.com/docsage/docsage/internal/logging"
	"github.com/docsage/docsage/internal/output"
	"github.com/docsage/docsage/internal/ui"
	"github.com/docsage/docsage/pkg/answerer"
)

// askOptions holds CLI flags for ask.
type askOptions struct {
	indexFlags
	session  string
	format   string // "text", "json"
	limit    int
	noCache  bool
	noAnswer bool
	plain    bool
	noColor  bool
}

func newAskCmd() *cobra.Command {
	var opts askOptions

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question against the documentation",
		Long: `Ask a question against the documentation index.

The question is analyzed remotely into search variants, the variants are
searched in parallel, the retrieved sections are ranked, and the best of
them are sent back for answer synthesis.

Examples:
  docsage ask "how does navigation work"
  docsage ask "FlatList performance" --no-answer
  docsage ask "deep linking setup" --format json
  docsage ask "animations" --endpoint https://search.example.com --app-id ID --api-key KEY`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runAsk(cmd.Context(), cmd, query, opts)
		},
	}

	registerIndexFlags(cmd, &opts.indexFlags)
	cmd.Flags().StringVar(&opts.session, "session", "", "Session name; a new ask in the same session supersedes the previous one")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 5, "Maximum number of sources to show")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "Bypass the response cache")
	cmd.Flags().BoolVar(&opts.noAnswer, "no-answer", false, "Retrieve and rank documents without synthesizing an answer")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "Plain progress output (no TUI)")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	return cmd
}

func runAsk(ctx context.Context, cmd *cobra.Command, query string, opts askOptions) error {
	// CLI runs log to file; stdout stays clean for the answer.
	logCfg := logging.DefaultConfig()
	logCfg.WriteToStderr = false
	logger := slog.Default()
	if l, cleanup, err := logging.Setup(logCfg); err == nil {
		logger = l
		defer cleanup()
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.noCache {
		cfg.Cache.Disabled = true
	}
	if opts.noAnswer {
		cfg.Synthesis.Enabled = false
	}

	target, err := resolveSearchTarget(cfg, opts.indexFlags)
	if err != nil {
		return err
	}
	defer func() { _ = target.Close() }()

	ans, err := answerer.New(cfg, answerer.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() { _ = ans.Close() }()

	// Progress renders on stderr so stdout carries only the result.
	renderer := ui.NewRenderer(ui.NewConfig(cmd.ErrOrStderr(),
		ui.WithForcePlain(opts.plain || opts.format == "json"),
		ui.WithNoColor(opts.noColor || ui.DetectNoColor()),
		ui.WithQuery(query)))
	if err := renderer.Start(ctx); err != nil {
		return err
	}

	start := time.Now()
	result, err := ans.PerformSearch(ctx, query, target.client, target.index,
		answerer.WithSession(opts.session),
		answerer.WithProgress(func(step answerer.SearchStep) {
			renderer.UpdateProgress(ui.EventFromStep(step))
		}))
	if err != nil {
		renderer.AddError(ui.ErrorEvent{Err: err})
		_ = renderer.Stop()
		return askError(cmd, err)
	}

	renderer.Complete(ui.CompletionStats{
		Query:     query,
		Documents: len(result.Documents),
		Answered:  result.Answer != "",
		FromCache: result.FromCache,
		Duration:  time.Since(start),
	})
	if err := renderer.Stop(); err != nil {
		return err
	}

	if opts.format == "json" {
		return printAskJSON(cmd, query, result)
	}
	printAskText(cmd, result, opts.limit)
	return nil
}

// askError unwraps pipeline errors into actionable CLI messages.
func askError(cmd *cobra.Command, err error) error {
	var sageErr *sageerrors.SageError
	if errors.As(err, &sageErr) && sageErr.Suggestion != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "hint: %s\n", sageErr.Suggestion)
	}
	return err
}

func printAskText(cmd *cobra.Command, result *answer.Result, limit int) {
	out := output.New(cmd.OutOrStdout())

	if result.Answer != "" {
		out.Answer(result.Answer)
		if result.Validation != nil && result.Validation.Confidence > 0 {
			out.Newline()
			out.Statusf("", "Confidence: %.0f%%", result.Validation.Confidence*100)
		}
	}

	if len(result.Documents) == 0 {
		out.Newline()
		out.Warning("No matching documentation found")
		return
	}

	out.Section("Sources")
	docs := result.Documents
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	for i, doc := range docs {
		location := doc.Breadcrumb()
		if location == "" {
			location = doc.URL
		}
		out.Document(i+1, doc.Title, location, doc.Snippet, doc.RelevanceScore)
	}
}

func printAskJSON(cmd *cobra.Command, query string, result *answer.Result) error {
	type jsonSource struct {
		URL        string  `json:"url"`
		Title      string  `json:"title"`
		Breadcrumb string  `json:"breadcrumb,omitempty"`
		Snippet    string  `json:"snippet,omitempty"`
		DocType    string  `json:"doc_type,omitempty"`
		Score      float64 `json:"score"`
	}
	type jsonAnswer struct {
		Query      string       `json:"query"`
		Answer     string       `json:"answer,omitempty"`
		Confidence float64      `json:"confidence,omitempty"`
		FromCache  bool         `json:"from_cache"`
		Sources    []jsonSource `json:"sources"`
	}

	payload := jsonAnswer{
		Query:     query,
		Answer:    result.Answer,
		FromCache: result.FromCache,
		Sources:   make([]jsonSource, 0, len(result.Documents)),
	}
	if result.Validation != nil {
		payload.Confidence = result.Validation.Confidence
	}
	for _, doc := range result.Documents {
		payload.Sources = append(payload.Sources, jsonSource{
			URL:        doc.URL,
			Title:      doc.Title,
			Breadcrumb: doc.Breadcrumb(),
			Snippet:    doc.Snippet,
			DocType:    doc.DocType,
			Score:      doc.RelevanceScore,
		})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

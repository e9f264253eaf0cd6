package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/docsage/docsage/internal/backend"
	"github.com/docsage/docsage/internal/docindex"
	sageerrors "github.com/docsage/docsage/internal/errors"
	"github.com/docsage/docsage/internal/telemetry"
)

// MaxQueryLength bounds accepted query size.
const MaxQueryLength = 1000

// Request carries one question through the pipeline.
type Request struct {
	// Query is the user's question.
	Query string

	// Client is the search-index collaborator for this call.
	Client docindex.SearchClient

	// Index names the logical index to search.
	Index string

	// Session groups runs for supersede semantics; empty means the
	// shared default session.
	Session string

	// Progress, when set, receives stage-boundary updates.
	Progress ProgressFunc
}

// Orchestrator coordinates the full answering pipeline: cache lookup,
// intent analysis, search fan-out, extraction, ranking, synthesis and
// cache write, under cooperative cancellation. Construct one per
// process and share it; the cache and session registry live on it.
type Orchestrator struct {
	intent      *IntentAnalyzer
	fanout      *FanOut
	ranker      *Ranker
	synthesizer *Synthesizer
	enhancer    *Enhancer
	cache       *ResponseCache
	sessions    *SessionRegistry
	metrics     *telemetry.RunMetrics

	ttl           time.Duration
	maxVariants   int
	cacheDisabled bool
	synthesize    bool
	logger        *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the orchestrator's logger. Components built by the
// constructor inherit it.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithCache injects a shared response cache.
func WithCache(cache *ResponseCache) Option {
	return func(o *Orchestrator) {
		if cache != nil {
			o.cache = cache
		}
	}
}

// WithoutCache disables response caching entirely.
func WithoutCache() Option {
	return func(o *Orchestrator) { o.cacheDisabled = true }
}

// WithCacheTTL sets how long cached results stay valid.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *Orchestrator) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithMaxVariants caps how many search variants intent analysis asks
// for.
func WithMaxVariants(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxVariants = n
		}
	}
}

// WithIntentAnalyzer injects a preconfigured analyzer.
func WithIntentAnalyzer(a *IntentAnalyzer) Option {
	return func(o *Orchestrator) {
		if a != nil {
			o.intent = a
		}
	}
}

// WithFanOut injects a preconfigured fan-out.
func WithFanOut(f *FanOut) Option {
	return func(o *Orchestrator) {
		if f != nil {
			o.fanout = f
		}
	}
}

// WithRanker injects a preconfigured ranker.
func WithRanker(r *Ranker) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.ranker = r
		}
	}
}

// WithSynthesizer injects a preconfigured synthesizer.
func WithSynthesizer(s *Synthesizer) Option {
	return func(o *Orchestrator) {
		if s != nil {
			o.synthesizer = s
		}
	}
}

// WithEnhancer enables thin-content enhancement through the given
// enhancer.
func WithEnhancer(e *Enhancer) Option {
	return func(o *Orchestrator) { o.enhancer = e }
}

// WithoutSynthesis turns the pipeline into search-only mode: documents
// are still retrieved and ranked, but no answer is generated.
func WithoutSynthesis() Option {
	return func(o *Orchestrator) { o.synthesize = false }
}

// WithMetrics enables run telemetry through the given collector.
func WithMetrics(m *telemetry.RunMetrics) Option {
	return func(o *Orchestrator) {
		if m != nil {
			o.metrics = m
		}
	}
}

// New creates an orchestrator around the two backend collaborators.
// Components not injected through options are built with defaults.
func New(keywords backend.KeywordsService, answers backend.AnswerService, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		ttl:         DefaultCacheTTL,
		maxVariants: DefaultMaxVariants,
		synthesize:  true,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.intent == nil {
		o.intent = NewIntentAnalyzer(keywords, WithIntentLogger(o.logger))
	}
	if o.fanout == nil {
		o.fanout = NewFanOut(WithFanOutLogger(o.logger), WithFanOutMetrics(o.metrics))
	}
	if o.ranker == nil {
		o.ranker = NewRanker()
	}
	if o.synthesizer == nil {
		o.synthesizer = NewSynthesizer(answers, WithSynthesizerLogger(o.logger))
	}
	if o.cache == nil {
		o.cache = NewResponseCache(DefaultCacheEntries)
	}
	o.sessions = NewSessionRegistry()
	return o
}

// PerformSearch answers one query end to end. Soft failures degrade
// the pipeline (fallback intent, partial fan-out, kept-thin content);
// hard failures and cancellation return typed errors. A cancelled run
// never writes the cache.
func (o *Orchestrator) PerformSearch(ctx context.Context, req Request) (*Result, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	started := time.Now()

	if !o.cacheDisabled {
		if cached, ok := o.cache.Get(req.Query, o.ttl); ok {
			o.logger.Debug("cache hit", "query", req.Query)
			cached.FromCache = true
			o.recordRun(req.Query, cached, nil, time.Since(started), nil)
			return cached, nil
		}
	}

	run := o.sessions.Begin(ctx, req.Session, req.Query)
	stages := make(map[telemetry.Stage]time.Duration)
	result, err := o.runPipeline(run, req, stages)
	run.finish(err)
	o.sessions.release(run)
	o.recordRun(req.Query, result, err, time.Since(started), stages)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Cancel aborts the session's in-flight run, if any.
func (o *Orchestrator) Cancel(session string) bool {
	return o.sessions.Cancel(session)
}

// CacheSize reports how many responses are currently cached.
func (o *Orchestrator) CacheSize() int {
	return o.cache.Size()
}

// ClearCache drops all cached responses.
func (o *Orchestrator) ClearCache() {
	o.cache.Clear()
}

// runPipeline executes one run under its cancellation token. Stage
// durations are written into stages as each phase ends, so a failed or
// cancelled run still reports the phases it got through.
func (o *Orchestrator) runPipeline(run *Run, req Request, stages map[telemetry.Stage]time.Duration) (*Result, error) {
	ctx := run.Context()
	started := time.Now()

	o.logger.Info("search run started",
		"run_id", run.ID(),
		"session", run.Session(),
		"query", req.Query)

	if err := checkpoint(ctx); err != nil {
		return nil, err
	}
	o.emit(req.Progress, StepAnalyzing, "Analyzing query intent", 10, "")

	phase := time.Now()
	intent := o.intent.Analyze(ctx, req.Query, o.maxVariants)
	stages[telemetry.StageAnalyzing] = time.Since(phase)
	if err := checkpoint(ctx); err != nil {
		return nil, err
	}

	o.emit(req.Progress, StepSearching, "Searching documentation", 35,
		fmt.Sprintf("%d search variants", len(intent.SearchQueries)))

	phase = time.Now()
	hits, err := o.fanout.Search(ctx, req.Client, req.Index, intent.SearchQueries)
	stages[telemetry.StageSearching] = time.Since(phase)
	if err != nil {
		if cp := checkpoint(ctx); cp != nil {
			return nil, cp
		}
		return nil, sageerrors.New(sageerrors.ErrCodeSearchFailed, "search fan-out failed", err)
	}
	if cp := checkpoint(ctx); cp != nil {
		return nil, cp
	}

	o.emit(req.Progress, StepRetrieving, "Processing results", 65,
		fmt.Sprintf("%d unique results", len(hits)))

	phase = time.Now()
	docs := make([]Document, 0, len(hits))
	for _, hit := range hits {
		if doc, ok := ExtractDocument(hit); ok {
			docs = append(docs, doc)
		}
	}

	docs, err = o.enhancer.Enhance(ctx, docs)
	stages[telemetry.StageRetrieving] = time.Since(phase)
	if err != nil {
		if cp := checkpoint(ctx); cp != nil {
			return nil, cp
		}
		return nil, err
	}

	if len(docs) == 0 {
		return nil, sageerrors.New(sageerrors.ErrCodeNoDocuments,
			fmt.Sprintf("no relevant documentation found for %q", req.Query), nil).
			WithSuggestion("rephrase the question or index more documentation")
	}

	ranked := o.ranker.Rank(docs, req.Query)

	result := &Result{
		Documents: ranked,
		Intent:    intent,
	}

	if o.synthesize {
		o.emit(req.Progress, StepSynthesizing, "Generating answer", 85, "")

		phase = time.Now()
		resp, err := o.synthesizer.Synthesize(ctx, req.Query, ranked)
		stages[telemetry.StageSynthesizing] = time.Since(phase)
		if err != nil {
			if cp := checkpoint(ctx); cp != nil {
				return nil, cp
			}
			return nil, err
		}
		if cp := checkpoint(ctx); cp != nil {
			return nil, cp
		}
		result.Answer = resp.Answer
		result.Validation = resp.Validation
	}

	if !o.cacheDisabled {
		o.cache.Set(req.Query, *result)
	}

	o.logger.Info("search run finished",
		"run_id", run.ID(),
		"documents", len(ranked),
		"duration_ms", time.Since(started).Milliseconds())
	return result, nil
}

// emit sends a progress step when the caller asked for them.
func (o *Orchestrator) emit(fn ProgressFunc, step StepID, message string, progress int, details string) {
	if fn == nil {
		return
	}
	fn(SearchStep{Step: step, Message: message, Progress: progress, Details: details})
}

// recordRun reports one finished run to the metrics collector.
func (o *Orchestrator) recordRun(query string, res *Result, err error, latency time.Duration, stages map[telemetry.Stage]time.Duration) {
	if o.metrics == nil {
		return
	}

	outcome := telemetry.OutcomeCompleted
	switch {
	case err == nil:
	case sageerrors.IsCancelled(err):
		outcome = telemetry.OutcomeCancelled
	default:
		outcome = telemetry.OutcomeFailed
	}

	queryType := ClassifyQueryType(query)
	documents := 0
	fromCache := false
	if res != nil {
		if res.Intent.QueryType != "" {
			queryType = res.Intent.QueryType
		}
		documents = len(res.Documents)
		fromCache = res.FromCache
	}

	o.metrics.Record(telemetry.RunEvent{
		Query:         query,
		QueryType:     telemetry.QueryType(queryType),
		Outcome:       outcome,
		DocumentCount: documents,
		FromCache:     fromCache,
		Latency:       latency,
		Stages:        stages,
	})
}

// validateRequest rejects unusable input before any run state is
// created.
func validateRequest(req Request) error {
	query := strings.TrimSpace(req.Query)
	switch {
	case query == "":
		return sageerrors.New(sageerrors.ErrCodeQueryEmpty, "query is empty", nil)
	case len(query) > MaxQueryLength:
		return sageerrors.New(sageerrors.ErrCodeQueryTooLong,
			fmt.Sprintf("query exceeds %d characters", MaxQueryLength), nil)
	case req.Client == nil:
		return sageerrors.ValidationError("search client is required", nil)
	case strings.TrimSpace(req.Index) == "":
		return sageerrors.ValidationError("index name is required", nil)
	}
	return nil
}

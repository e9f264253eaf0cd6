// Package answerer is the public entry point to the DocSage answering
// pipeline. It assembles the remote backend client, the orchestrator
// and its collaborators from a Config, and exposes question answering,
// document search, cancellation and cache control as one facade.
//
// Construct one Answerer per process and share it; the response cache,
// session registry and telemetry collector live on it.
package answerer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/docsage/docsage/internal/answer"
	"github.com/docsage/docsage/internal/backend"
	"github.com/docsage/docsage/internal/config"
	"github.com/docsage/docsage/internal/docindex"
	"github.com/docsage/docsage/internal/fetcher"
	"github.com/docsage/docsage/internal/telemetry"
)

// ErrNoBackendURL is returned by New when the configuration names no
// answering backend and no service overrides were supplied.
var ErrNoBackendURL = errors.New("backend URL is required")

// Re-exported pipeline types so callers need only this package.
type (
	// Result is the outcome of one answered query.
	Result = answer.Result

	// Document is one ranked documentation page.
	Document = answer.Document

	// SearchStep is a stage-boundary progress update.
	SearchStep = answer.SearchStep

	// ProgressFunc receives SearchStep values during a run.
	ProgressFunc = answer.ProgressFunc

	// SearchClient is the search-index collaborator consumed per call.
	SearchClient = docindex.SearchClient

	// SearchClientFunc adapts a plain function to SearchClient.
	SearchClientFunc = docindex.SearchClientFunc

	// SearchParams carries per-search paging parameters.
	SearchParams = docindex.SearchParams

	// SearchResponse is the raw hit envelope a SearchClient returns.
	SearchResponse = docindex.SearchResponse
)

// DefaultSession is the session used when a request names none.
const DefaultSession = answer.DefaultSession

// Answerer answers documentation questions. Safe for concurrent use.
type Answerer struct {
	config   *config.Config
	asker    *answer.Orchestrator
	searcher *answer.Orchestrator
	metrics  *telemetry.RunMetrics
	store    *telemetry.SQLiteMetricsStore
	logger   *slog.Logger

	keywords backend.KeywordsService
	answers  backend.AnswerService
}

// Option customizes an Answerer.
type Option func(*Answerer)

// WithLogger sets the structured logger shared by all components.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Answerer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithServices replaces the remote backend collaborators. When both are
// set no HTTP backend client is built and Config.Backend.URL may stay
// empty (tests, embedders with their own transport).
func WithServices(keywords backend.KeywordsService, answers backend.AnswerService) Option {
	return func(a *Answerer) {
		a.keywords = keywords
		a.answers = answers
	}
}

// New builds an Answerer from the given configuration. A nil cfg uses
// defaults. Telemetry failures degrade to in-memory collection; they
// never fail construction.
func New(cfg *config.Config, opts ...Option) (*Answerer, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}

	a := &Answerer{
		config: cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.keywords == nil || a.answers == nil {
		if cfg.Backend.URL == "" {
			return nil, ErrNoBackendURL
		}
		client := newBackendClient(cfg, a.logger)
		if a.keywords == nil {
			a.keywords = client
		}
		if a.answers == nil {
			a.answers = client
		}
	}

	if cfg.Telemetry.Enabled {
		store, err := telemetry.OpenStore(cfg.Telemetry.Path)
		if err != nil {
			a.logger.Warn("telemetry store unavailable, metrics stay in memory",
				"path", cfg.Telemetry.Path, "error", err)
		} else {
			a.store = store
		}
		a.metrics = telemetry.NewRunMetrics(a.store)
	}

	fanout := newFanOut(cfg, a.logger, a.metrics)
	ranker := newRanker(cfg)

	askerOpts := []answer.Option{
		answer.WithLogger(a.logger),
		answer.WithMaxVariants(cfg.Search.MaxVariants),
		answer.WithFanOut(fanout),
		answer.WithRanker(ranker),
		answer.WithSynthesizer(answer.NewSynthesizer(a.answers,
			answer.WithMaxDocuments(cfg.Synthesis.MaxDocuments),
			answer.WithSynthesizerLogger(a.logger))),
	}
	if cfg.Cache.Disabled {
		askerOpts = append(askerOpts, answer.WithoutCache())
	} else if cfg.Cache.MaxEntries > 0 {
		askerOpts = append(askerOpts, answer.WithCache(answer.NewResponseCache(cfg.Cache.MaxEntries)))
	}
	if cfg.Cache.TTLSeconds > 0 {
		askerOpts = append(askerOpts, answer.WithCacheTTL(time.Duration(cfg.Cache.TTLSeconds)*time.Second))
	}
	if !cfg.Synthesis.Enabled {
		askerOpts = append(askerOpts, answer.WithoutSynthesis())
	}
	if cfg.Fetcher.Enabled {
		askerOpts = append(askerOpts, answer.WithEnhancer(newEnhancer(cfg, a.logger)))
	}
	if a.metrics != nil {
		askerOpts = append(askerOpts, answer.WithMetrics(a.metrics))
	}
	a.asker = answer.New(a.keywords, a.answers, askerOpts...)

	// Document search shares the fan-out and ranker but never caches
	// and never synthesizes: search results should reflect the live
	// index, and they cost no backend round trip.
	searcherOpts := []answer.Option{
		answer.WithLogger(a.logger),
		answer.WithMaxVariants(cfg.Search.MaxVariants),
		answer.WithFanOut(fanout),
		answer.WithRanker(ranker),
		answer.WithoutCache(),
		answer.WithoutSynthesis(),
	}
	a.searcher = answer.New(a.keywords, a.answers, searcherOpts...)

	return a, nil
}

// RequestOption customizes a single PerformSearch or SearchDocuments
// call.
type RequestOption func(*answer.Request)

// WithSession groups the call under a logical session; a new call in
// the same session supersedes the previous one.
func WithSession(session string) RequestOption {
	return func(r *answer.Request) { r.Session = session }
}

// WithProgress registers a stage-boundary progress callback.
func WithProgress(fn ProgressFunc) RequestOption {
	return func(r *answer.Request) { r.Progress = fn }
}

// PerformSearch answers one query end to end: cache lookup, intent
// analysis, search fan-out, ranking and answer synthesis. Soft failures
// degrade the pipeline; hard failures return typed errors.
func (a *Answerer) PerformSearch(ctx context.Context, query string, client SearchClient, index string, opts ...RequestOption) (*Result, error) {
	req := answer.Request{
		Query:  query,
		Client: client,
		Index:  index,
	}
	for _, opt := range opts {
		opt(&req)
	}
	return a.asker.PerformSearch(ctx, req)
}

// SearchDocuments retrieves and ranks documents for the query without
// generating an answer and without touching the response cache.
func (a *Answerer) SearchDocuments(ctx context.Context, query string, client SearchClient, index string, opts ...RequestOption) ([]Document, error) {
	req := answer.Request{
		Query:  query,
		Client: client,
		Index:  index,
	}
	for _, opt := range opts {
		opt(&req)
	}
	res, err := a.searcher.PerformSearch(ctx, req)
	if err != nil {
		return nil, err
	}
	return res.Documents, nil
}

// Cancel cancels the active run in the given session, if any. Empty
// session means the default session. Reports whether a run was
// cancelled.
func (a *Answerer) Cancel(session string) bool {
	if session == "" {
		session = DefaultSession
	}
	return a.asker.Cancel(session)
}

// CacheSize reports the number of live response-cache entries.
func (a *Answerer) CacheSize() int {
	return a.asker.CacheSize()
}

// ClearCache drops every cached response.
func (a *Answerer) ClearCache() {
	a.asker.ClearCache()
}

// Orchestrators exposes the underlying pipeline orchestrators for
// in-process embedding; the MCP server wires them directly.
func (a *Answerer) Orchestrators() (asker, searcher *answer.Orchestrator) {
	return a.asker, a.searcher
}

// Metrics returns the run-telemetry collector, nil when telemetry is
// disabled.
func (a *Answerer) Metrics() *telemetry.RunMetrics {
	return a.metrics
}

// Config returns the configuration this Answerer was built from.
func (a *Answerer) Config() *config.Config {
	return a.config
}

// Close flushes telemetry and releases the metrics store.
func (a *Answerer) Close() error {
	var errs []error
	if a.metrics != nil {
		errs = append(errs, a.metrics.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}

func newBackendClient(cfg *config.Config, logger *slog.Logger) *backend.Client {
	bcfg := backend.Config{
		BaseURL:             cfg.Backend.URL,
		SystemContext:       cfg.Backend.SystemContext,
		KeywordsTimeout:     config.Duration(cfg.Backend.KeywordsTimeout, 0),
		SynthesisTimeout:    config.Duration(cfg.Backend.SynthesisTimeout, 0),
		RequestsPerSecond:   cfg.Backend.RequestsPerSecond,
		Burst:               cfg.Backend.Burst,
		CircuitMaxFailures:  cfg.Backend.CircuitMaxFailures,
		CircuitResetTimeout: config.Duration(cfg.Backend.CircuitResetTimeout, 0),
	}
	bcfg.Retry.MaxRetries = cfg.Backend.MaxRetries

	clientOpts := []backend.Option{backend.WithLogger(logger)}
	if cfg.Backend.VerificationSiteKey != "" {
		tokens := backend.NewChallengeTokenProvider(backend.ChallengeConfig{
			SiteKey: cfg.Backend.VerificationSiteKey,
			URL:     cfg.Backend.VerificationURL,
			Timeout: config.Duration(cfg.Backend.VerificationTimeout, 0),
		}, backend.WithChallengeLogger(logger))
		clientOpts = append(clientOpts, backend.WithTokenProvider(tokens))
	}
	return backend.NewClient(bcfg, clientOpts...)
}

func newFanOut(cfg *config.Config, logger *slog.Logger, metrics *telemetry.RunMetrics) *answer.FanOut {
	opts := []answer.FanOutOption{
		answer.WithPageSize(cfg.Search.PageSize),
		answer.WithParallelism(cfg.Search.Parallelism),
		answer.WithSearchTimeout(config.Duration(cfg.Search.Timeout, 0)),
		answer.WithFanOutLogger(logger),
	}
	if cfg.Search.ExpandQueries {
		opts = append(opts, answer.WithExpander(answer.NewQueryExpander(
			answer.WithMaxExpansions(cfg.Search.MaxExpansions))))
	}
	if metrics != nil {
		opts = append(opts, answer.WithFanOutMetrics(metrics))
	}
	return answer.NewFanOut(opts...)
}

func newRanker(cfg *config.Config) *answer.Ranker {
	// An unconfigured ranking section keeps the stock constants; a
	// zeroed weight table would score everything identically.
	if cfg.Ranking == (config.RankingConfig{}) {
		return answer.NewRanker()
	}
	return answer.NewRanker(answer.WithRankWeights(answer.RankWeights{
		TitleExact:     cfg.Ranking.TitleExact,
		TitleSubstring: cfg.Ranking.TitleSubstring,
		TitleWord:      cfg.Ranking.TitleWord,
		ContentPhrase:  cfg.Ranking.ContentPhrase,
		ContentWord:    cfg.Ranking.ContentWord,
		ContentWordCap: cfg.Ranking.ContentWordCap,
		URLWord:        cfg.Ranking.URLWord,
		URLLeafBonus:   cfg.Ranking.URLLeafBonus,
		TechMatch:      cfg.Ranking.TechMatch,
		TechMismatch:   cfg.Ranking.TechMismatch,
		DocTypeIntent:  cfg.Ranking.DocTypeIntent,
		ExactTitle:     cfg.Ranking.ExactTitle,
		PhraseBonus:    cfg.Ranking.PhraseBonus,
		AllWordsBonus:  cfg.Ranking.AllWordsBonus,
		HighlightBonus: cfg.Ranking.HighlightBonus,
	}))
}

func newEnhancer(cfg *config.Config, logger *slog.Logger) *answer.Enhancer {
	pf := fetcher.New(
		fetcher.WithTimeout(config.Duration(cfg.Fetcher.Timeout, 0)),
		fetcher.WithMaxBodyKB(cfg.Fetcher.MaxBodyKB),
		fetcher.WithUserAgent(cfg.Fetcher.UserAgent),
		fetcher.WithLogger(logger),
	)
	return answer.NewEnhancer(pf, answer.WithEnhancerLogger(logger))
}

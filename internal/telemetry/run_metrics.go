// Package telemetry records local answer-run metrics: query patterns,
// run outcomes, cache effectiveness and per-stage latency. All data is
// stored locally - no external reporting.
package telemetry

import (
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// =============================================================================
// Query Types
// =============================================================================

// QueryType mirrors the intent classification a run settled on.
type QueryType string

const (
	QueryTypeHowTo           QueryType = "how-to"
	QueryTypeConcept         QueryType = "concept"
	QueryTypeTroubleshooting QueryType = "troubleshooting"
	QueryTypeAPIReference    QueryType = "api-reference"
	QueryTypeGeneral         QueryType = "general"
)

// =============================================================================
// Run Outcomes
// =============================================================================

// RunOutcome is the terminal state of an answer run.
type RunOutcome string

const (
	OutcomeCompleted RunOutcome = "completed"
	OutcomeCancelled RunOutcome = "cancelled"
	OutcomeFailed    RunOutcome = "failed"
)

// =============================================================================
// Pipeline Stages
// =============================================================================

// Stage names one timed section of the answer pipeline. StageTotal is
// the whole run, wall clock.
type Stage string

const (
	StageTotal        Stage = "total"
	StageAnalyzing    Stage = "analyzing"
	StageSearching    Stage = "searching"
	StageRetrieving   Stage = "retrieving"
	StageSynthesizing Stage = "synthesizing"
)

// =============================================================================
// Latency Buckets
// =============================================================================

// LatencyBucket represents a latency histogram bucket. The scale suits
// network-bound runs: cache hits land under 250ms, a full run with
// synthesis usually needs seconds.
type LatencyBucket string

const (
	BucketP250   LatencyBucket = "p250"   // <250ms
	BucketP1000  LatencyBucket = "p1000"  // 250ms-1s
	BucketP2500  LatencyBucket = "p2500"  // 1-2.5s
	BucketP5000  LatencyBucket = "p5000"  // 2.5-5s
	BucketP10000 LatencyBucket = "p10000" // >=5s
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 250:
		return BucketP250
	case ms < 1000:
		return BucketP1000
	case ms < 2500:
		return BucketP2500
	case ms < 5000:
		return BucketP5000
	default:
		return BucketP10000
	}
}

// StageBucket keys one histogram cell: a pipeline stage and a latency
// bucket within it.
type StageBucket struct {
	Stage  Stage
	Bucket LatencyBucket
}

// =============================================================================
// Run Event
// =============================================================================

// RunEvent describes one finished answer run for telemetry recording.
type RunEvent struct {
	Query         string
	QueryType     QueryType
	Outcome       RunOutcome
	DocumentCount int
	FromCache     bool
	Latency       time.Duration           // whole-run wall time
	Stages        map[Stage]time.Duration // optional per-stage timings
	Timestamp     time.Time
}

// IsZeroResult reports whether the run retrieved no documents at all.
// Cancelled runs are excluded: an interrupted run says nothing about
// documentation coverage.
func (e RunEvent) IsZeroResult() bool {
	return e.DocumentCount == 0 && e.Outcome != OutcomeCancelled
}

// =============================================================================
// Circular Buffer
// =============================================================================

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	items    []T
	head     int // next write position
	size     int // current number of items
	capacity int
	mu       sync.RWMutex
}

// NewCircularBuffer creates a new circular buffer with the given capacity.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// Add adds an item to the buffer. If full, the oldest item is evicted.
func (b *CircularBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity

	if b.size < b.capacity {
		b.size++
	}
}

// Items returns all items in the buffer in FIFO order (oldest first).
func (b *CircularBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.size == 0 {
		return []T{}
	}

	result := make([]T, b.size)
	if b.size < b.capacity {
		// Buffer not full - items start at 0
		copy(result, b.items[:b.size])
	} else {
		// Buffer full - oldest item is at head
		copy(result, b.items[b.head:])
		copy(result[b.capacity-b.head:], b.items[:b.head])
	}
	return result
}

// Size returns the current number of items in the buffer.
func (b *CircularBuffer[T]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Clear removes all items from the buffer.
func (b *CircularBuffer[T]) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = 0
	b.size = 0
}

// =============================================================================
// Term Extraction
// =============================================================================

// termStopWords are question glue that says nothing about what
// documentation a query is after.
var termStopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "was": {}, "has": {},
	"have": {}, "can": {}, "will": {}, "should": {}, "would": {},
	"you": {}, "your": {}, "this": {}, "that": {}, "with": {},
	"from": {}, "how": {}, "what": {}, "when": {}, "where": {},
	"why": {}, "does": {}, "about": {}, "into": {},
}

// ExtractTerms extracts searchable terms from a query string. Terms
// are lowercased, stripped of surrounding punctuation and filtered to
// minimum length 3; question glue ("how", "what", "the") is dropped.
func ExtractTerms(query string) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	var terms []string
	for _, w := range strings.Fields(query) {
		w = strings.Trim(w, ".,;:!?\"'()[]")
		if len(w) < 3 {
			continue
		}
		if _, stop := termStopWords[w]; stop {
			continue
		}
		terms = append(terms, w)
	}

	if len(terms) == 0 {
		return nil
	}
	return terms
}

// =============================================================================
// Term Count
// =============================================================================

// TermCount represents a term and its frequency count.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// =============================================================================
// Run Metrics Snapshot
// =============================================================================

// RunMetricsSnapshot is an immutable snapshot of run metrics.
type RunMetricsSnapshot struct {
	QueryTypeCounts     map[QueryType]int64               `json:"query_type_counts"`
	OutcomeCounts       map[RunOutcome]int64              `json:"outcome_counts"`
	TopTerms            []TermCount                       `json:"top_terms"`
	ZeroResultQueries   []string                          `json:"zero_result_queries"`
	LatencyDistribution map[Stage]map[LatencyBucket]int64 `json:"latency_distribution"`
	TotalRuns           int64                             `json:"total_runs"`
	ZeroResultCount     int64                             `json:"zero_result_count"`
	CacheHits           int64                             `json:"cache_hits"`
	CacheMisses         int64                             `json:"cache_misses"`
	SearchErrors        int64                             `json:"search_errors"`
	Since               time.Time                         `json:"since"`
}

// ZeroResultPercentage returns the percentage of runs that retrieved
// nothing.
func (s *RunMetricsSnapshot) ZeroResultPercentage() float64 {
	if s.TotalRuns == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalRuns) * 100
}

// CacheHitRate returns the fraction of runs served from the response
// cache.
func (s *RunMetricsSnapshot) CacheHitRate() float64 {
	total := s.CacheHits + s.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(total)
}

// =============================================================================
// Metrics Store (Interface)
// =============================================================================

// MetricsStore defines persistence operations for run metrics. All
// Save methods add to existing counts rather than overwrite.
type MetricsStore interface {
	// SaveQueryTypeCounts adds daily query type counts.
	SaveQueryTypeCounts(date string, counts map[QueryType]int64) error

	// GetQueryTypeCounts retrieves summed counts for a date range.
	GetQueryTypeCounts(from, to string) (map[QueryType]int64, error)

	// SaveOutcomeCounts adds daily run outcome counts.
	SaveOutcomeCounts(date string, counts map[RunOutcome]int64) error

	// GetOutcomeCounts retrieves summed outcome counts for a date range.
	GetOutcomeCounts(from, to string) (map[RunOutcome]int64, error)

	// SaveCacheCounts adds daily response-cache hit and miss counts.
	SaveCacheCounts(date string, hits, misses int64) error

	// GetCacheCounts retrieves summed cache counts for a date range.
	GetCacheCounts(from, to string) (hits, misses int64, err error)

	// UpsertTermCounts adds to term frequency counts.
	UpsertTermCounts(terms map[string]int64) error

	// GetTopTerms retrieves the top N terms by frequency.
	GetTopTerms(limit int) ([]TermCount, error)

	// AddZeroResultQuery appends a query to the bounded zero-result log.
	AddZeroResultQuery(query string, timestamp time.Time) error

	// GetZeroResultQueries retrieves recent zero-result queries, newest
	// first.
	GetZeroResultQueries(limit int) ([]string, error)

	// SaveLatencyCounts adds daily per-stage latency histogram counts.
	SaveLatencyCounts(date string, counts map[StageBucket]int64) error

	// GetLatencyCounts retrieves one stage's latency distribution for a
	// date range.
	GetLatencyCounts(from, to string, stage Stage) (map[LatencyBucket]int64, error)

	// Close releases resources.
	Close() error
}

// =============================================================================
// Run Metrics Configuration
// =============================================================================

// RunMetricsConfig configures the run metrics collector.
type RunMetricsConfig struct {
	TopTermsCapacity    int           // max terms to track (default: 100)
	ZeroResultsCapacity int           // max zero-result queries to keep (default: 100)
	FlushInterval       time.Duration // store flush cadence (default: 60s, 0 = no auto-flush)
}

// DefaultRunMetricsConfig returns sensible defaults.
func DefaultRunMetricsConfig() RunMetricsConfig {
	return RunMetricsConfig{
		TopTermsCapacity:    100,
		ZeroResultsCapacity: 100,
		FlushInterval:       60 * time.Second,
	}
}

// =============================================================================
// Run Metrics
// =============================================================================

// RunMetrics collects answer-run telemetry. Thread-safe for concurrent
// access. Aggregates live in memory; when a store is configured they
// are flushed to it as deltas, so a flush never re-adds counts an
// earlier flush already persisted.
type RunMetrics struct {
	mu sync.RWMutex

	// In-memory aggregates since startTime
	queryTypes      map[QueryType]int64
	outcomes        map[RunOutcome]int64
	topTerms        *lru.Cache[string, int64]
	zeroResults     *CircularBuffer[string]
	latencies       map[StageBucket]int64
	totalRuns       int64
	zeroResultCount int64
	cacheHits       int64
	cacheMisses     int64
	searchErrors    int64
	startTime       time.Time

	// Deltas since the last successful flush
	pendingTypes    map[QueryType]int64
	pendingOutcomes map[RunOutcome]int64
	pendingTerms    map[string]int64
	pendingLatency  map[StageBucket]int64
	pendingZero     []zeroResult
	pendingHits     int64
	pendingMisses   int64

	// Persistence
	store       MetricsStore
	config      RunMetricsConfig
	flushTicker *time.Ticker
	stopCh      chan struct{}
	closed      bool
}

// zeroResult is one query that retrieved nothing, queued for the store.
type zeroResult struct {
	query string
	at    time.Time
}

// NewRunMetrics creates a collector with default configuration.
// If store is nil, metrics are only kept in memory.
func NewRunMetrics(store MetricsStore) *RunMetrics {
	return NewRunMetricsWithConfig(store, DefaultRunMetricsConfig())
}

// NewRunMetricsWithConfig creates a collector with custom configuration.
func NewRunMetricsWithConfig(store MetricsStore, cfg RunMetricsConfig) *RunMetrics {
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = 100
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = 100
	}

	topTerms, _ := lru.New[string, int64](cfg.TopTermsCapacity)

	m := &RunMetrics{
		queryTypes:      make(map[QueryType]int64),
		outcomes:        make(map[RunOutcome]int64),
		topTerms:        topTerms,
		zeroResults:     NewCircularBuffer[string](cfg.ZeroResultsCapacity),
		latencies:       make(map[StageBucket]int64),
		startTime:       time.Now(),
		pendingTypes:    make(map[QueryType]int64),
		pendingOutcomes: make(map[RunOutcome]int64),
		pendingTerms:    make(map[string]int64),
		pendingLatency:  make(map[StageBucket]int64),
		store:           store,
		config:          cfg,
		stopCh:          make(chan struct{}),
	}

	// Start auto-flush if configured
	if cfg.FlushInterval > 0 && store != nil {
		m.flushTicker = time.NewTicker(cfg.FlushInterval)
		go m.flushLoop()
	}

	return m
}

// flushLoop periodically flushes metrics to storage.
func (m *RunMetrics) flushLoop() {
	for {
		select {
		case <-m.flushTicker.C:
			_ = m.Flush()
		case <-m.stopCh:
			return
		}
	}
}

// Record captures one finished run. Thread-safe and non-blocking: the
// store is only touched by Flush.
func (m *RunMetrics) Record(event RunEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	zero := event.IsZeroResult()
	terms := ExtractTerms(event.Query)
	cells := []StageBucket{{Stage: StageTotal, Bucket: LatencyToBucket(event.Latency)}}
	for stage, d := range event.Stages {
		cells = append(cells, StageBucket{Stage: stage, Bucket: LatencyToBucket(d)})
	}

	m.queryTypes[event.QueryType]++
	m.outcomes[event.Outcome]++
	m.totalRuns++

	if event.FromCache {
		m.cacheHits++
	} else {
		m.cacheMisses++
	}

	for _, term := range terms {
		count, _ := m.topTerms.Get(term)
		m.topTerms.Add(term, count+1)
	}

	if zero {
		m.zeroResults.Add(event.Query)
		m.zeroResultCount++
	}

	for _, cell := range cells {
		m.latencies[cell]++
	}

	if m.store == nil {
		return
	}

	// Queue deltas for the next flush.
	m.pendingTypes[event.QueryType]++
	m.pendingOutcomes[event.Outcome]++
	if event.FromCache {
		m.pendingHits++
	} else {
		m.pendingMisses++
	}
	for _, term := range terms {
		m.pendingTerms[term]++
	}
	if zero {
		m.pendingZero = append(m.pendingZero, zeroResult{query: event.Query, at: event.Timestamp})
	}
	for _, cell := range cells {
		m.pendingLatency[cell]++
	}
}

// RecordSearchError counts one failed fan-out variant. Kept in memory
// only; the per-variant detail is in the logs.
func (m *RunMetrics) RecordSearchError() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.searchErrors++
}

// Snapshot returns current metrics for reporting.
func (m *RunMetrics) Snapshot() *RunMetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	typeCounts := make(map[QueryType]int64, len(m.queryTypes))
	for k, v := range m.queryTypes {
		typeCounts[k] = v
	}

	outcomeCounts := make(map[RunOutcome]int64, len(m.outcomes))
	for k, v := range m.outcomes {
		outcomeCounts[k] = v
	}

	// Top terms sorted by count descending, term ascending on ties.
	var topTerms []TermCount
	for _, key := range m.topTerms.Keys() {
		if count, ok := m.topTerms.Peek(key); ok {
			topTerms = append(topTerms, TermCount{Term: key, Count: count})
		}
	}
	sort.Slice(topTerms, func(i, j int) bool {
		if topTerms[i].Count != topTerms[j].Count {
			return topTerms[i].Count > topTerms[j].Count
		}
		return topTerms[i].Term < topTerms[j].Term
	})

	latencies := make(map[Stage]map[LatencyBucket]int64)
	for cell, count := range m.latencies {
		dist := latencies[cell.Stage]
		if dist == nil {
			dist = make(map[LatencyBucket]int64)
			latencies[cell.Stage] = dist
		}
		dist[cell.Bucket] = count
	}

	return &RunMetricsSnapshot{
		QueryTypeCounts:     typeCounts,
		OutcomeCounts:       outcomeCounts,
		TopTerms:            topTerms,
		ZeroResultQueries:   m.zeroResults.Items(),
		LatencyDistribution: latencies,
		TotalRuns:           m.totalRuns,
		ZeroResultCount:     m.zeroResultCount,
		CacheHits:           m.cacheHits,
		CacheMisses:         m.cacheMisses,
		SearchErrors:        m.searchErrors,
		Since:               m.startTime,
	}
}

// Flush persists the deltas accumulated since the last successful
// flush. Safe to call with no store configured. A failed flush merges
// the drained deltas back so the next attempt retries them.
func (m *RunMetrics) Flush() error {
	if m.store == nil {
		return nil
	}

	m.mu.Lock()
	types := m.pendingTypes
	outcomes := m.pendingOutcomes
	terms := m.pendingTerms
	latencies := m.pendingLatency
	zero := m.pendingZero
	hits, misses := m.pendingHits, m.pendingMisses
	m.pendingTypes = make(map[QueryType]int64)
	m.pendingOutcomes = make(map[RunOutcome]int64)
	m.pendingTerms = make(map[string]int64)
	m.pendingLatency = make(map[StageBucket]int64)
	m.pendingZero = nil
	m.pendingHits, m.pendingMisses = 0, 0
	m.mu.Unlock()

	err := m.writeOut(types, outcomes, terms, latencies, zero, hits, misses)
	if err == nil {
		return nil
	}

	m.mu.Lock()
	mergeCounts(m.pendingTypes, types)
	mergeCounts(m.pendingOutcomes, outcomes)
	mergeCounts(m.pendingTerms, terms)
	mergeCounts(m.pendingLatency, latencies)
	m.pendingZero = append(zero, m.pendingZero...)
	m.pendingHits += hits
	m.pendingMisses += misses
	m.mu.Unlock()
	return err
}

// writeOut pushes one batch of deltas to the store.
func (m *RunMetrics) writeOut(
	types map[QueryType]int64,
	outcomes map[RunOutcome]int64,
	terms map[string]int64,
	latencies map[StageBucket]int64,
	zero []zeroResult,
	hits, misses int64,
) error {
	date := time.Now().Format("2006-01-02")

	if len(types) > 0 {
		if err := m.store.SaveQueryTypeCounts(date, types); err != nil {
			return err
		}
	}
	if len(outcomes) > 0 {
		if err := m.store.SaveOutcomeCounts(date, outcomes); err != nil {
			return err
		}
	}
	if hits > 0 || misses > 0 {
		if err := m.store.SaveCacheCounts(date, hits, misses); err != nil {
			return err
		}
	}
	if err := m.store.UpsertTermCounts(terms); err != nil {
		return err
	}
	for _, z := range zero {
		if err := m.store.AddZeroResultQuery(z.query, z.at); err != nil {
			return err
		}
	}
	if len(latencies) > 0 {
		if err := m.store.SaveLatencyCounts(date, latencies); err != nil {
			return err
		}
	}
	return nil
}

// mergeCounts adds src counts into dst.
func mergeCounts[K comparable](dst, src map[K]int64) {
	for k, v := range src {
		dst[k] += v
	}
}

// Close stops auto-flush and performs a final flush.
func (m *RunMetrics) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	// Stop auto-flush
	if m.flushTicker != nil {
		m.flushTicker.Stop()
		close(m.stopCh)
	}

	// Final flush
	return m.Flush()
}

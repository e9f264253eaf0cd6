package docindex

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"

	sageerrors "github.com/docsage/docsage/internal/errors"
)

// DefaultHitsPerPage applies when SearchParams leaves HitsPerPage unset.
const DefaultHitsPerPage = 5

// LocalIndex is a bleve-backed documentation index that satisfies the
// SearchClient contract, letting the answer pipeline run entirely
// offline. One LocalIndex holds one corpus; the logical index name in
// Search calls is accepted as-is.
type LocalIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	logger *slog.Logger
	closed bool
}

var _ SearchClient = (*LocalIndex)(nil)

// checkIntegrity detects a torn or corrupted on-disk index before
// opening it, so a crash mid-build does not wedge every later run.
func checkIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil // No index yet; it will be created
	}

	metaPath := filepath.Join(path, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing")
	}
	if err != nil {
		return fmt.Errorf("cannot stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json is empty")
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("cannot read index_meta.json: %w", err)
	}
	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}

	return nil
}

// isCorruptionError matches bleve errors that indicate a damaged index
// rather than a transient failure.
func isCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "unexpected end of JSON") ||
		strings.Contains(msg, "error parsing mapping JSON") ||
		strings.Contains(msg, "failed to load segment") ||
		strings.Contains(msg, "error opening bolt") ||
		err == bleve.ErrorIndexMetaCorrupt
}

// LocalOption customizes a LocalIndex.
type LocalOption func(*LocalIndex)

// WithLocalLogger sets the structured logger.
func WithLocalLogger(logger *slog.Logger) LocalOption {
	return func(ix *LocalIndex) {
		if logger != nil {
			ix.logger = logger
		}
	}
}

// NewLocalIndex opens or creates the index at path. An empty path
// creates an in-memory index (tests). Corrupted on-disk indexes are
// cleared and recreated; the caller must reindex.
func NewLocalIndex(path string, opts ...LocalOption) (*LocalIndex, error) {
	ix := &LocalIndex{path: path, logger: slog.Default()}
	for _, opt := range opts {
		opt(ix)
	}

	mapping := bleve.NewIndexMapping()

	var idx bleve.Index
	var err error
	if path == "" {
		idx, err = bleve.NewMemOnly(mapping)
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return nil, sageerrors.New(sageerrors.ErrCodeIndexIO,
				fmt.Sprintf("cannot create index directory for %s", path), mkErr)
		}

		if integrityErr := checkIntegrity(path); integrityErr != nil {
			ix.logger.Warn("local index corrupted, clearing",
				"path", path, "error", integrityErr)
			if removeErr := os.RemoveAll(path); removeErr != nil {
				return nil, sageerrors.New(sageerrors.ErrCodeIndexCorrupt,
					fmt.Sprintf("index at %s is corrupted and cannot be cleared", path), removeErr)
			}
		}

		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, mapping)
		} else if err != nil && isCorruptionError(err) {
			ix.logger.Warn("local index failed to open, clearing",
				"path", path, "error", err)
			if removeErr := os.RemoveAll(path); removeErr != nil {
				return nil, sageerrors.New(sageerrors.ErrCodeIndexCorrupt,
					fmt.Sprintf("index at %s is corrupted and cannot be cleared", path), removeErr)
			}
			idx, err = bleve.New(path, mapping)
		}
	}
	if err != nil {
		return nil, sageerrors.New(sageerrors.ErrCodeIndexIO,
			fmt.Sprintf("failed to open index at %s", path), err)
	}

	ix.index = idx
	return ix, nil
}

// Add indexes records in one batch.
func (ix *LocalIndex) Add(ctx context.Context, records []DocRecord) error {
	if len(records) == 0 {
		return nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.closed {
		return sageerrors.New(sageerrors.ErrCodeIndexIO, "index is closed", nil)
	}

	batch := ix.index.NewBatch()
	for _, r := range records {
		id := r.ID
		if id == "" {
			id = r.URL
		}
		if err := batch.Index(id, r); err != nil {
			return sageerrors.New(sageerrors.ErrCodeIndexIO,
				fmt.Sprintf("failed to index record %s", id), err)
		}
	}

	if err := ix.index.Batch(batch); err != nil {
		return sageerrors.New(sageerrors.ErrCodeIndexIO, "failed to write index batch", err)
	}

	return nil
}

// Replace atomically swaps the corpus for the given records.
func (ix *LocalIndex) Replace(ctx context.Context, records []DocRecord) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.closed {
		return sageerrors.New(sageerrors.ErrCodeIndexIO, "index is closed", nil)
	}

	existing, err := ix.allIDsLocked()
	if err != nil {
		return err
	}

	batch := ix.index.NewBatch()
	for _, id := range existing {
		batch.Delete(id)
	}
	for _, r := range records {
		id := r.ID
		if id == "" {
			id = r.URL
		}
		if err := batch.Index(id, r); err != nil {
			return sageerrors.New(sageerrors.ErrCodeIndexIO,
				fmt.Sprintf("failed to index record %s", id), err)
		}
	}

	if err := ix.index.Batch(batch); err != nil {
		return sageerrors.New(sageerrors.ErrCodeIndexIO, "failed to write index batch", err)
	}

	return nil
}

// allIDsLocked lists every record ID. Caller holds the lock.
func (ix *LocalIndex) allIDsLocked() ([]string, error) {
	count, err := ix.index.DocCount()
	if err != nil {
		return nil, sageerrors.New(sageerrors.ErrCodeIndexIO, "failed to count records", err)
	}
	if count == 0 {
		return nil, nil
	}

	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = int(count)
	req.Fields = []string{}

	result, err := ix.index.Search(req)
	if err != nil {
		return nil, sageerrors.New(sageerrors.ErrCodeIndexIO, "failed to list records", err)
	}

	ids := make([]string, len(result.Hits))
	for i, hit := range result.Hits {
		ids[i] = hit.ID
	}
	return ids, nil
}

// DocCount returns the number of indexed records.
func (ix *LocalIndex) DocCount() (uint64, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.closed {
		return 0, sageerrors.New(sageerrors.ErrCodeIndexIO, "index is closed", nil)
	}
	return ix.index.DocCount()
}

// Search implements SearchClient against the local corpus.
func (ix *LocalIndex) Search(ctx context.Context, query, index string, params SearchParams) (*SearchResponse, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.closed {
		return nil, sageerrors.New(sageerrors.ErrCodeIndexIO, "index is closed", nil)
	}

	if strings.TrimSpace(query) == "" {
		return &SearchResponse{Hits: []SearchHit{}}, nil
	}

	size := params.HitsPerPage
	if size <= 0 {
		size = DefaultHitsPerPage
	}

	matchQuery := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequest(matchQuery)
	req.Size = size
	req.Fields = []string{"*"}
	req.IncludeLocations = true
	req.Highlight = bleve.NewHighlightWithStyle("html")
	req.Highlight.AddField("content")

	result, err := ix.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, sageerrors.New(sageerrors.ErrCodeSearchFailed,
			fmt.Sprintf("local search for %q failed", query), err)
	}

	hits := make([]SearchHit, 0, len(result.Hits))
	for _, match := range result.Hits {
		hits = append(hits, ix.toSearchHit(match))
	}

	ix.logger.Debug("local search",
		"index", index,
		"query", query,
		"hits", len(hits))

	return &SearchResponse{Hits: hits}, nil
}

// toSearchHit maps one bleve match to the index contract shape.
func (ix *LocalIndex) toSearchHit(match *search.DocumentMatch) SearchHit {
	hit := SearchHit{
		ObjectID: match.ID,
		URL:      fieldString(match.Fields, "url"),
		Hierarchy: Hierarchy{
			Lvl0: fieldString(match.Fields, "lvl0"),
			Lvl1: fieldString(match.Fields, "lvl1"),
			Lvl2: fieldString(match.Fields, "lvl2"),
			Lvl3: fieldString(match.Fields, "lvl3"),
			Lvl4: fieldString(match.Fields, "lvl4"),
			Lvl5: fieldString(match.Fields, "lvl5"),
		},
		Content: fieldString(match.Fields, "content"),
		Type:    fieldString(match.Fields, "docType"),
	}
	if hit.URL == "" {
		hit.URL = match.ID
	}

	if fragments, ok := match.Fragments["content"]; ok && len(fragments) > 0 {
		hit.Snippet = fragments[0]
	}

	for _, terms := range match.Locations {
		for _, locations := range terms {
			hit.Highlights += len(locations)
		}
	}

	return hit
}

// fieldString extracts a stored string field.
func fieldString(fields map[string]any, name string) string {
	if v, ok := fields[name]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Close releases the underlying index.
func (ix *LocalIndex) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.closed {
		return nil
	}
	ix.closed = true
	return ix.index.Close()
}

package docindex

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	sageerrors "github.com/docsage/docsage/internal/errors"
)

// BuildLock serializes on-disk index builds across docsage processes.
// The lock file lives next to the index directory so clearing a
// corrupted index never removes a held lock.
type BuildLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewBuildLock creates the lock for the given index path.
func NewBuildLock(indexPath string) *BuildLock {
	lockPath := indexPath + ".lock"
	return &BuildLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// TryLock attempts to acquire the build lock without blocking.
func (l *BuildLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire build lock: %w", err)
	}

	l.locked = acquired
	return acquired, nil
}

// Unlock releases the lock. Safe to call when not held.
func (l *BuildLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release build lock: %w", err)
	}
	return nil
}

// Path returns the lock file location.
func (l *BuildLock) Path() string {
	return l.path
}

// Build ingests the documentation tree at docsRoot into the index at
// indexPath (in-memory when empty) and returns the opened index with
// the record count. On-disk builds hold an exclusive cross-process lock.
func Build(ctx context.Context, indexPath, docsRoot string, cfg IngestConfig, opts ...LocalOption) (*LocalIndex, int, error) {
	if indexPath != "" {
		lock := NewBuildLock(indexPath)
		acquired, err := lock.TryLock()
		if err != nil {
			return nil, 0, sageerrors.New(sageerrors.ErrCodeIndexIO, "cannot create build lock", err)
		}
		if !acquired {
			return nil, 0, sageerrors.New(sageerrors.ErrCodeIndexLocked,
				fmt.Sprintf("another docsage process is building the index at %s", indexPath), nil).
				WithSuggestion("wait for the other build to finish, or remove the stale lock file " + lock.Path())
		}
		defer func() { _ = lock.Unlock() }()
	}

	records, err := LoadRecords(docsRoot, cfg)
	if err != nil {
		return nil, 0, sageerrors.New(sageerrors.ErrCodeIndexIO,
			fmt.Sprintf("failed to ingest documentation from %s", docsRoot), err)
	}

	ix, err := NewLocalIndex(indexPath, opts...)
	if err != nil {
		return nil, 0, err
	}

	if err := ix.Replace(ctx, records); err != nil {
		_ = ix.Close()
		return nil, 0, err
	}

	return ix, len(records), nil
}

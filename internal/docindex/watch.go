package docindex

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	sageerrors "github.com/docsage/docsage/internal/errors"
)

// DefaultWatchDebounce coalesces bursts of file events (editor saves,
// git checkouts) into a single rebuild.
const DefaultWatchDebounce = 500 * time.Millisecond

// Watch observes a documentation tree and invokes rebuild after file
// changes settle for the debounce window. The whole corpus is rebuilt
// on any change, so events are coalesced into a single dirty flag
// rather than tracked per path. Blocks until ctx is cancelled.
func Watch(ctx context.Context, root string, debounce time.Duration, rebuild func(context.Context) error, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return sageerrors.New(sageerrors.ErrCodeIndexIO, "failed to start file watcher", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := addRecursive(watcher, root); err != nil {
		return err
	}

	logger.Info("watching documentation tree", "root", root, "debounce", debounce.String())

	// The timer starts drained; a file event arms it.
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			// New directories must be watched explicitly; fsnotify is
			// not recursive.
			if event.Op.Has(fsnotify.Create) {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			logger.Debug("file event", "op", event.Op.String(), "path", event.Name)
			timer.Reset(debounce)

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("file watcher error", "error", watchErr)

		case <-timer.C:
			logger.Info("documentation changed, rebuilding index")
			if err := rebuild(ctx); err != nil {
				if sageerrors.IsCancelled(err) || ctx.Err() != nil {
					return err
				}
				logger.Error("rebuild failed, continuing to watch", "error", err)
			}
		}
	}
}

// addRecursive registers root and every subdirectory with the watcher.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return sageerrors.New(sageerrors.ErrCodeIndexIO, "failed to watch documentation tree", err)
	}
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/docsage/docsage/internal/config"
	"github.com/docsage/docsage/internal/docindex"
	"github.com/docsage/docsage/internal/output"
)

// indexBuildOptions holds CLI flags for index build and watch.
type indexBuildOptions struct {
	indexPath string
	baseURL   string
	include   []string
	exclude   []string
}

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the local documentation index",
		Long: `Manage the local full-text documentation index.

The local index ingests Markdown trees and JSON record exports into a
searchable index that 'docsage ask' and 'docsage serve' query when no
hosted search endpoint is configured.`,
	}

	cmd.AddCommand(newIndexBuildCmd())
	cmd.AddCommand(newIndexWatchCmd())
	cmd.AddCommand(newIndexInfoCmd())

	return cmd
}

func newIndexBuildCmd() *cobra.Command {
	var opts indexBuildOptions

	cmd := &cobra.Command{
		Use:   "build [docs-dir]",
		Short: "Build the index from a documentation tree",
		Long: `Build the local index from a documentation directory.

Markdown files are split into sections along their heading hierarchy;
.json files are treated as exported record arrays. The previous index
contents are replaced atomically.

Examples:
  docsage index build ./docs
  docsage index build ./docs --base-url https://docs.example.com
  docsage index build ./docs --include "guides/**" --exclude "**/archive/**"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docsRoot := "."
			if len(args) > 0 {
				docsRoot = args[0]
			}
			return runIndexBuild(cmd.Context(), cmd, docsRoot, opts)
		},
	}

	registerBuildFlags(cmd, &opts)
	return cmd
}

func newIndexWatchCmd() *cobra.Command {
	var opts indexBuildOptions

	cmd := &cobra.Command{
		Use:   "watch [docs-dir]",
		Short: "Rebuild the index when documentation files change",
		Long: `Watch a documentation directory and rebuild the index on changes.

File events are debounced so editor save bursts trigger one rebuild.
Stop with Ctrl+C.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docsRoot := "."
			if len(args) > 0 {
				docsRoot = args[0]
			}
			return runIndexWatch(cmd.Context(), cmd, docsRoot, opts)
		},
	}

	registerBuildFlags(cmd, &opts)
	return cmd
}

func newIndexInfoCmd() *cobra.Command {
	var indexPath string

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show local index details",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndexInfo(cmd, indexPath)
		},
	}

	cmd.Flags().StringVar(&indexPath, "index-path", "", "Local index directory (default from config)")
	return cmd
}

func registerBuildFlags(cmd *cobra.Command, opts *indexBuildOptions) {
	cmd.Flags().StringVar(&opts.indexPath, "index-path", "", "Local index directory (default from config)")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "URL prefix for indexed section links")
	cmd.Flags().StringSliceVar(&opts.include, "include", nil, "Glob patterns of files to ingest (repeatable)")
	cmd.Flags().StringSliceVar(&opts.exclude, "exclude", nil, "Glob patterns of files to skip (repeatable)")
}

// resolveIngest merges flags over the configured ingestion settings.
func resolveIngest(cfg *config.Config, opts indexBuildOptions) (string, docindex.IngestConfig) {
	indexPath := firstNonEmpty(opts.indexPath, cfg.Index.Path)

	ingest := docindex.IngestConfig{
		Include: cfg.Index.Include,
		Exclude: cfg.Index.Exclude,
		BaseURL: opts.baseURL,
	}
	if len(opts.include) > 0 {
		ingest.Include = opts.include
	}
	if len(opts.exclude) > 0 {
		ingest.Exclude = append(ingest.Exclude, opts.exclude...)
	}
	return indexPath, ingest
}

func runIndexBuild(ctx context.Context, cmd *cobra.Command, docsRoot string, opts indexBuildOptions) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	indexPath, ingest := resolveIngest(cfg, opts)

	if _, err := os.Stat(docsRoot); err != nil {
		return fmt.Errorf("documentation directory %s is not readable: %w", docsRoot, err)
	}

	out.Statusf("🔍", "Indexing %s", docsRoot)
	start := time.Now()

	ix, count, err := docindex.Build(ctx, indexPath, docsRoot, ingest)
	if err != nil {
		return err
	}
	defer func() { _ = ix.Close() }()

	out.Successf("Indexed %d sections in %s", count, time.Since(start).Round(time.Millisecond))
	out.Statusf("📁", "Index: %s", indexPath)
	return nil
}

func runIndexWatch(ctx context.Context, cmd *cobra.Command, docsRoot string, opts indexBuildOptions) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	indexPath, ingest := resolveIngest(cfg, opts)
	debounce := config.Duration(cfg.Index.WatchDebounce, 500*time.Millisecond)

	rebuild := func(ctx context.Context) error {
		start := time.Now()
		ix, count, err := docindex.Build(ctx, indexPath, docsRoot, ingest)
		if err != nil {
			out.Errorf("Rebuild failed: %v", err)
			return err
		}
		_ = ix.Close()
		out.Statusf("🔄", "Reindexed %d sections in %s", count, time.Since(start).Round(time.Millisecond))
		return nil
	}

	// Initial build so the watcher starts from a fresh index.
	if err := rebuild(ctx); err != nil {
		return err
	}

	out.Statusf("👀", "Watching %s (Ctrl+C to stop)", docsRoot)
	err = docindex.Watch(ctx, docsRoot, debounce, rebuild, slog.Default())
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func runIndexInfo(cmd *cobra.Command, indexPath string) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	indexPath = firstNonEmpty(indexPath, cfg.Index.Path)

	if _, err := os.Stat(indexPath); os.IsNotExist(err) {
		out.Warning("No local index found")
		out.Statusf("📁", "Expected at: %s", indexPath)
		out.Status("💡", "Run 'docsage index build <docs-dir>' to create one")
		return nil
	}

	ix, err := docindex.NewLocalIndex(indexPath)
	if err != nil {
		return err
	}
	defer func() { _ = ix.Close() }()

	count, err := ix.DocCount()
	if err != nil {
		return err
	}

	out.Statusf("📁", "Index:    %s", indexPath)
	out.Statusf("🏷️", "Name:     %s", cfg.Index.Name)
	out.Statusf("📄", "Sections: %d", count)
	return nil
}

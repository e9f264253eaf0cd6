package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/docsage/docsage/internal/telemetry"
	"github.com/docsage/docsage/internal/ui"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect cache and query telemetry",
		Long: `Inspect response-cache effectiveness and query telemetry.

The response cache itself is in-memory and lives inside each running
docsage process; what persists is the telemetry the pipeline records to
the local SQLite store: cache hit rates, query types, run outcomes,
latency buckets and zero-result queries.`,
	}

	cmd.AddCommand(newCacheStatsCmd())
	return cmd
}

func newCacheStatsCmd() *cobra.Command {
	var (
		jsonOutput bool
		days       int
		noColor    bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache and query statistics",
		Long: `Display recorded query telemetry:
  - cache hit rate and run outcomes
  - query type distribution (how-to/concept/troubleshooting/...)
  - whole-run latency distribution
  - top query terms and recent zero-result queries`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCacheStats(cmd, jsonOutput, days, noColor)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().IntVar(&days, "days", 30, "Number of days to include")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	return cmd
}

func runCacheStats(cmd *cobra.Command, jsonOutput bool, days int, noColor bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := telemetry.OpenStore(cfg.Telemetry.Path)
	if err != nil {
		return fmt.Errorf("failed to open telemetry store at %s: %w", cfg.Telemetry.Path, err)
	}
	defer func() { _ = store.Close() }()

	snapshot, err := snapshotFromStore(store, days)
	if err != nil {
		return err
	}

	renderer := ui.NewStatsRenderer(cmd.OutOrStdout(), noColor || ui.DetectNoColor())
	if jsonOutput {
		return renderer.RenderJSON(snapshot)
	}
	return renderer.Render(snapshot)
}

// snapshotFromStore assembles a metrics snapshot from the persisted
// daily aggregates of the last N days.
func snapshotFromStore(store *telemetry.SQLiteMetricsStore, days int) (*telemetry.RunMetricsSnapshot, error) {
	since := time.Now().AddDate(0, 0, -days)
	from := since.Format("2006-01-02")
	to := time.Now().Format("2006-01-02")

	queryTypes, err := store.GetQueryTypeCounts(from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to read query type counts: %w", err)
	}
	outcomes, err := store.GetOutcomeCounts(from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to read outcome counts: %w", err)
	}
	hits, misses, err := store.GetCacheCounts(from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache counts: %w", err)
	}
	topTerms, err := store.GetTopTerms(10)
	if err != nil {
		return nil, fmt.Errorf("failed to read top terms: %w", err)
	}
	zeroQueries, err := store.GetZeroResultQueries(10)
	if err != nil {
		return nil, fmt.Errorf("failed to read zero-result queries: %w", err)
	}
	totalLatency, err := store.GetLatencyCounts(from, to, telemetry.StageTotal)
	if err != nil {
		return nil, fmt.Errorf("failed to read latency counts: %w", err)
	}

	var totalRuns int64
	for _, count := range outcomes {
		totalRuns += count
	}

	return &telemetry.RunMetricsSnapshot{
		QueryTypeCounts:   queryTypes,
		OutcomeCounts:     outcomes,
		TopTerms:          topTerms,
		ZeroResultQueries: zeroQueries,
		LatencyDistribution: map[telemetry.Stage]map[telemetry.LatencyBucket]int64{
			telemetry.StageTotal: totalLatency,
		},
		TotalRuns:       totalRuns,
		ZeroResultCount: int64(len(zeroQueries)),
		CacheHits:       hits,
		CacheMisses:     misses,
		Since:           since,
	}, nil
}

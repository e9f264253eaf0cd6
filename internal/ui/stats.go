package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/docsage/docsage/internal/telemetry"
)

// barWidth is the width of the horizontal bars in stats output.
const barWidth = 24

// latencyBucketOrder lists histogram buckets from fastest to slowest.
var latencyBucketOrder = []telemetry.LatencyBucket{
	telemetry.BucketP250,
	telemetry.BucketP1000,
	telemetry.BucketP2500,
	telemetry.BucketP5000,
	telemetry.BucketP10000,
}

// latencyBucketLabels maps buckets to display labels.
var latencyBucketLabels = map[telemetry.LatencyBucket]string{
	telemetry.BucketP250:   "<250ms ",
	telemetry.BucketP1000:  "<1s    ",
	telemetry.BucketP2500:  "<2.5s  ",
	telemetry.BucketP5000:  "<5s    ",
	telemetry.BucketP10000: ">=5s   ",
}

// StatsRenderer displays run telemetry.
type StatsRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatsRenderer creates a stats renderer.
func NewStatsRenderer(out io.Writer, noColor bool) *StatsRenderer {
	return &StatsRenderer{
		out:    out,
		styles: GetStyles(noColor),
	}
}

// Render displays a telemetry snapshot to the terminal.
func (r *StatsRenderer) Render(snapshot *telemetry.RunMetricsSnapshot) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Run Statistics"))

	_, _ = fmt.Fprintf(r.out, "  Total runs:     %d\n", snapshot.TotalRuns)
	_, _ = fmt.Fprintf(r.out, "  Cache hit rate: %.0f%%\n", snapshot.CacheHitRate()*100)
	_, _ = fmt.Fprintf(r.out, "  Zero results:   %.0f%%\n", snapshot.ZeroResultPercentage())
	_, _ = fmt.Fprintln(r.out)

	if len(snapshot.OutcomeCounts) > 0 {
		_, _ = fmt.Fprintln(r.out, "  Outcomes:")
		r.renderCounts(outcomeCounts(snapshot.OutcomeCounts))
		_, _ = fmt.Fprintln(r.out)
	}

	if len(snapshot.QueryTypeCounts) > 0 {
		_, _ = fmt.Fprintln(r.out, "  Query types:")
		r.renderCounts(queryTypeCounts(snapshot.QueryTypeCounts))
		_, _ = fmt.Fprintln(r.out)
	}

	if total := snapshot.LatencyDistribution[telemetry.StageTotal]; len(total) > 0 {
		_, _ = fmt.Fprintln(r.out, "  Run latency:")
		r.renderHistogram(total)
		_, _ = fmt.Fprintln(r.out)
	}

	if len(snapshot.TopTerms) > 0 {
		_, _ = fmt.Fprintln(r.out, "  Top query terms:")
		for i, term := range snapshot.TopTerms {
			if i >= 10 {
				break
			}
			_, _ = fmt.Fprintf(r.out, "    %-20s %d\n", term.Term, term.Count)
		}
		_, _ = fmt.Fprintln(r.out)
	}

	if len(snapshot.ZeroResultQueries) > 0 {
		_, _ = fmt.Fprintln(r.out, "  Recent zero-result queries:")
		for i, q := range snapshot.ZeroResultQueries {
			if i >= 5 {
				break
			}
			_, _ = fmt.Fprintf(r.out, "    %s\n", q)
		}
	}

	return nil
}

// RenderJSON outputs the snapshot as JSON.
func (r *StatsRenderer) RenderJSON(snapshot *telemetry.RunMetricsSnapshot) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(snapshot)
}

// renderHistogram renders bucket counts as horizontal bars, fastest
// bucket first.
func (r *StatsRenderer) renderHistogram(buckets map[telemetry.LatencyBucket]int64) {
	var max int64
	for _, count := range buckets {
		if count > max {
			max = count
		}
	}
	if max == 0 {
		return
	}

	for _, bucket := range latencyBucketOrder {
		count := buckets[bucket]
		_, _ = fmt.Fprintf(r.out, "    %s %s %d\n",
			latencyBucketLabels[bucket],
			r.styles.Bar.Render(renderBar(count, max, barWidth)),
			count)
	}
}

// renderCounts renders labeled counts as bars, largest first.
func (r *StatsRenderer) renderCounts(counts []labeledCount) {
	var max int64
	for _, c := range counts {
		if c.Count > max {
			max = c.Count
		}
	}
	if max == 0 {
		return
	}

	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })

	for _, c := range counts {
		_, _ = fmt.Fprintf(r.out, "    %-16s %s %d\n",
			c.Label,
			r.styles.Bar.Render(renderBar(c.Count, max, barWidth)),
			c.Count)
	}
}

// labeledCount pairs a display label with its count.
type labeledCount struct {
	Label string
	Count int64
}

func outcomeCounts(m map[telemetry.RunOutcome]int64) []labeledCount {
	counts := make([]labeledCount, 0, len(m))
	for outcome, count := range m {
		counts = append(counts, labeledCount{Label: string(outcome), Count: count})
	}
	return counts
}

func queryTypeCounts(m map[telemetry.QueryType]int64) []labeledCount {
	counts := make([]labeledCount, 0, len(m))
	for queryType, count := range m {
		counts = append(counts, labeledCount{Label: string(queryType), Count: count})
	}
	return counts
}

// renderBar scales count against max into a fixed-width █░ bar.
func renderBar(count, max int64, width int) string {
	if max <= 0 || width <= 0 {
		return ""
	}
	filled := int(float64(count) / float64(max) * float64(width))
	if filled > width {
		filled = width
	}
	if count > 0 && filled == 0 {
		filled = 1
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

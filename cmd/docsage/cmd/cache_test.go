package cmd

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsage/docsage/internal/telemetry"
)

func seededStore(t *testing.T) *telemetry.SQLiteMetricsStore {
	t.Helper()
	store, err := telemetry.OpenStore(filepath.Join(t.TempDir(), "telemetry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	today := time.Now().Format("2006-01-02")
	require.NoError(t, store.SaveQueryTypeCounts(today, map[telemetry.QueryType]int64{
		telemetry.QueryTypeHowTo:   3,
		telemetry.QueryTypeConcept: 1,
	}))
	require.NoError(t, store.SaveOutcomeCounts(today, map[telemetry.RunOutcome]int64{
		telemetry.OutcomeCompleted: 4,
	}))
	require.NoError(t, store.SaveCacheCounts(today, 1, 3))
	require.NoError(t, store.UpsertTermCounts(map[string]int64{"routing": 3, "navigation": 1}))
	require.NoError(t, store.AddZeroResultQuery("quantum sprockets", time.Now()))
	require.NoError(t, store.SaveLatencyCounts(today, map[telemetry.StageBucket]int64{
		{Stage: telemetry.StageTotal, Bucket: telemetry.BucketP1000}: 4,
	}))
	return store
}

func TestSnapshotFromStore_AssemblesAggregates(t *testing.T) {
	// Given: a store with one day of aggregates
	store := seededStore(t)

	// When: assembling a snapshot over the last week
	snap, err := snapshotFromStore(store, 7)

	// Then: every section reflects the persisted counts
	require.NoError(t, err)
	assert.Equal(t, int64(4), snap.TotalRuns)
	assert.Equal(t, int64(3), snap.QueryTypeCounts[telemetry.QueryTypeHowTo])
	assert.Equal(t, int64(1), snap.CacheHits)
	assert.Equal(t, int64(3), snap.CacheMisses)
	assert.Equal(t, []string{"quantum sprockets"}, snap.ZeroResultQueries)
	assert.Equal(t, int64(4), snap.LatencyDistribution[telemetry.StageTotal][telemetry.BucketP1000])

	require.NotEmpty(t, snap.TopTerms)
	assert.Equal(t, "routing", snap.TopTerms[0].Term)
}

func TestSnapshotFromStore_EmptyStore(t *testing.T) {
	store, err := telemetry.OpenStore(filepath.Join(t.TempDir(), "telemetry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	snap, err := snapshotFromStore(store, 7)

	require.NoError(t, err)
	assert.Zero(t, snap.TotalRuns)
	assert.Empty(t, snap.ZeroResultQueries)
}

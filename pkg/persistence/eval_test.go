package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	"github.com/replicatedhq/patchsmith/pkg/corpus"
	"github.com/replicatedhq/patchsmith/pkg/diff"
	"github.com/replicatedhq/patchsmith/pkg/testhelpers"
)

func TestSaveEvaluation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Postgres integration test in short mode")
	}

	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	pg, err := testhelpers.CreatePostgresContainer(ctx, testhelpers.CreatePostgresContainerOpts{})
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = pg.Terminate(context.Background())
	})

	require.NoError(t, InitPostgres(PostgresOpts{URI: pg.ConnectionString}))
	t.Cleanup(ClosePostgres)
	require.NoError(t, EnsureSchema(ctx))
	require.NoError(t, EnsureSchema(ctx), "schema creation is idempotent")

	valid := true
	report := &corpus.Report{
		StartedAt: time.Now().Add(-time.Second),
		Duration:  1500 * time.Millisecond,
		Options:   diff.DefaultOptions(),
		Results: []corpus.CaseResult{
			{Name: "a", Language: "python", Passed: true, Tier: diff.TierExternal, ChunksApplied: 2, ChunksTotal: 2, Valid: &valid},
			{Name: "b", Passed: false, Tier: diff.TierManual, ChunksApplied: 1, ChunksTotal: 2, Warnings: []string{"chunk 2 could not be located"}},
		},
		Passed:     1,
		Failed:     1,
		TierCounts: map[diff.Tier]int{diff.TierExternal: 1, diff.TierManual: 1},
	}

	runID, err := SaveEvaluation(ctx, report)
	require.NoError(t, err)
	assert.Len(t, runID, 12)

	runs, err := ListEvaluations(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)
	assert.Equal(t, 2, runs[0].CaseCount)
	assert.Equal(t, 1, runs[0].Passed)
	assert.Equal(t, diff.DefaultFuzzyWindow, runs[0].FuzzyWindow)
	assert.Equal(t, 1500*time.Millisecond, runs[0].Duration)

	conn, err := getPooledPostgresSession(ctx)
	require.NoError(t, err)
	defer conn.Release()

	var count int
	require.NoError(t, conn.QueryRow(ctx, `SELECT count(*) FROM patch_eval_case WHERE run_id = $1`, runID).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestPoolNotInitialized(t *testing.T) {
	ClosePostgres()
	assert.False(t, IsInitialized())

	_, err := SaveEvaluation(context.Background(), &corpus.Report{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")

	assert.EqualError(t, InitPostgres(PostgresOpts{}), "Postgres URI is required")
}

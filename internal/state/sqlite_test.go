package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/scoreprep/internal/testutil"
	"github.com/leapstack-labs/scoreprep/pkg/core"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.InitSchema())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_OpenClose(t *testing.T) {
	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.Close())
	// Closing twice is a no-op.
	require.NoError(t, store.Close())
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore(nil)

	_, err := store.CreateRun("dev", core.RunInputs{})
	require.Error(t, err)
	require.Error(t, store.CompleteRun("x", core.RunStatusCompleted, core.RunOutputs{}, ""))
	_, err = store.GetRun("x")
	require.Error(t, err)
	_, err = store.ListRuns(10)
	require.Error(t, err)
	require.Error(t, store.InitSchema())
}

func TestSQLiteStore_InitSchema(t *testing.T) {
	store := setupTestStore(t)

	// Running migrations again is a no-op.
	require.NoError(t, store.InitSchema())

	version, err := store.MigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	rows, err := store.db.Query("SELECT 1 FROM runs LIMIT 1")
	require.NoError(t, err)
	require.NoError(t, rows.Close())
}

func TestSQLiteStore_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".scoreprep", "state.db")

	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(path))
	require.NoError(t, store.InitSchema())
	run, err := store.CreateRun("dev", core.RunInputs{TrainPath: "train.csv"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened := NewSQLiteStore(nil)
	require.NoError(t, reopened.Open(path))
	defer func() { _ = reopened.Close() }()
	require.NoError(t, reopened.InitSchema())

	got, err := reopened.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, "train.csv", got.TrainPath)
}

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	tests := []struct {
		name    string
		status  core.RunStatus
		outputs core.RunOutputs
		errMsg  string
	}{
		{
			name:   "completed",
			status: core.RunStatusCompleted,
			outputs: core.RunOutputs{
				ArtifactPath:     "artifacts/preprocessor.pkl",
				ArtifactChecksum: "abc123",
				TrainRows:        100,
				TestRows:         20,
				FeatureCount:     19,
			},
		},
		{
			name:   "failed",
			status: core.RunStatusFailed,
			outputs: core.RunOutputs{
				TrainRows: 100,
			},
			errMsg: "persist failed: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupTestStore(t)
			in := core.RunInputs{TrainPath: "data/train.csv", TestPath: "data/test.csv"}

			run, err := store.CreateRun("prod", in)
			require.NoError(t, err)
			assert.NotEmpty(t, run.ID)
			assert.Equal(t, core.RunStatusRunning, run.Status)
			assert.Zero(t, run.Duration())

			got, err := store.GetRun(run.ID)
			require.NoError(t, err)
			assert.Equal(t, core.RunStatusRunning, got.Status)
			assert.Nil(t, got.CompletedAt)
			assert.Equal(t, in, got.RunInputs)
			assert.WithinDuration(t, run.StartedAt, got.StartedAt, time.Microsecond)

			require.NoError(t, store.CompleteRun(run.ID, tt.status, tt.outputs, tt.errMsg))

			got, err = store.GetRun(run.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.outputs, got.RunOutputs)
			assert.Equal(t, tt.errMsg, got.Error)
			require.NotNil(t, got.CompletedAt)
			assert.False(t, got.CompletedAt.Before(got.StartedAt))
		})
	}
}

func TestSQLiteStore_RunNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetRun("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")

	err = store.CompleteRun("missing", core.RunStatusCompleted, core.RunOutputs{}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestSQLiteStore_LatestAndList(t *testing.T) {
	store := setupTestStore(t)

	latest, err := store.GetLatestRun("dev")
	require.NoError(t, err)
	assert.Nil(t, latest)

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := store.CreateRun("dev", core.RunInputs{})
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}
	other, err := store.CreateRun("prod", core.RunInputs{})
	require.NoError(t, err)

	latest, err = store.GetLatestRun("dev")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, ids[2], latest.ID)

	runs, err := store.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, other.ID, runs[0].ID)
	assert.Equal(t, ids[2], runs[1].ID)

	all, err := store.ListRuns(0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

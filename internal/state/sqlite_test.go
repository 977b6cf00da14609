package state

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapcalc/internal/testutil"
	"github.com/leapstack-labs/leapcalc/pkg/core"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_Migrate(t *testing.T) {
	store := setupTestStore(t)

	for _, table := range []string{"quote_runs", "line_results"} {
		rows, err := store.DB().Query("SELECT 1 FROM " + table + " LIMIT 1")
		require.NoError(t, err, "table %s", table)
		_ = rows.Close()
	}

	version, err := store.GetMigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	// Re-running is a no-op
	require.NoError(t, store.Migrate())
}

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	run, err := store.CreateRun(ctx, "q1")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, core.RunStatusRunning, run.Status)

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "q1", got.QuoteID)
	assert.Nil(t, got.CompletedAt)
	assert.WithinDuration(t, run.StartedAt, got.StartedAt, 0)

	require.NoError(t, store.CompleteRun(ctx, run.ID, core.RunStatusPartial, 137, "t1: Missing values for: length"))

	got, err = store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusPartial, got.Status)
	assert.InDelta(t, 137.0, got.Total, 1e-9)
	assert.Equal(t, "t1: Missing values for: length", got.Error)
	require.NotNil(t, got.CompletedAt)
	assert.False(t, got.CompletedAt.Before(got.StartedAt))
}

func TestSQLiteStore_NotFound(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	_, err := store.GetRun(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	err = store.CompleteRun(ctx, "missing", core.RunStatusCompleted, 0, "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	for _, q := range []string{"q1", "q2", "q1", "q1"} {
		_, err := store.CreateRun(ctx, q)
		require.NoError(t, err)
	}

	all, err := store.ListRuns(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	q1, err := store.ListRuns(ctx, "q1", 10)
	require.NoError(t, err)
	assert.Len(t, q1, 3)
	for i := 1; i < len(q1); i++ {
		assert.False(t, q1[i].StartedAt.After(q1[i-1].StartedAt), "newest first")
	}

	limited, err := store.ListRuns(ctx, "q1", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSQLiteStore_LineResults(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	run, err := store.CreateRun(ctx, "q1")
	require.NoError(t, err)

	lines := []*core.LineResult{
		{RunID: run.ID, InstanceID: "t1", ModuleID: "trim", Position: 1, Error: "Missing values for: length"},
		{RunID: run.ID, InstanceID: "w1", ModuleID: "wall", Position: 0, Value: 125, Outputs: map[string]float64{"area": 10, "boards": 9}},
	}
	for _, lr := range lines {
		require.NoError(t, store.SaveLineResult(ctx, lr))
	}

	// replaces the earlier result for t1
	require.NoError(t, store.SaveLineResult(ctx, &core.LineResult{RunID: run.ID, InstanceID: "t1", ModuleID: "trim", Position: 1, Value: 12}))

	got, err := store.GetLineResults(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "w1", got[0].InstanceID)
	assert.Equal(t, map[string]float64{"area": 10, "boards": 9}, got[0].Outputs)
	assert.Equal(t, "t1", got[1].InstanceID)
	assert.InDelta(t, 12.0, got[1].Value, 1e-9)
	assert.Empty(t, got[1].Error)
	assert.Nil(t, got[1].Outputs)
}

func TestSQLiteStore_ForeignKey(t *testing.T) {
	store := setupTestStore(t)
	err := store.SaveLineResult(context.Background(), &core.LineResult{RunID: "nope", InstanceID: "w1", ModuleID: "wall"})
	assert.Error(t, err)
}

func TestSQLiteStore_FileBacked(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.db")

	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(path))
	require.NoError(t, store.Migrate())
	run, err := store.CreateRun(ctx, "q1")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened := NewSQLiteStore(nil)
	require.NoError(t, reopened.Open(path))
	defer func() { _ = reopened.Close() }()
	got, err := reopened.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(nil)

	_, err := store.CreateRun(ctx, "q1")
	assert.ErrorContains(t, err, "database not opened")
	_, err = store.ListRuns(ctx, "", 1)
	assert.ErrorContains(t, err, "database not opened")
	assert.ErrorContains(t, store.Migrate(), "database not opened")
	assert.NoError(t, store.Close())
}

func TestSQLiteStore_DriverErrors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		run       func(s *SQLiteStore) error
		errMsg    string
	}{
		{
			name: "create run",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO quote_runs")).WillReturnError(assert.AnError)
			},
			run: func(s *SQLiteStore) error {
				_, err := s.CreateRun(ctx, "q1")
				return err
			},
			errMsg: "failed to create run",
		},
		{
			name: "complete run",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("UPDATE quote_runs")).WillReturnError(assert.AnError)
			},
			run: func(s *SQLiteStore) error {
				return s.CompleteRun(ctx, "r1", core.RunStatusCompleted, 1, "")
			},
			errMsg: "failed to complete run",
		},
		{
			name: "get run",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("FROM quote_runs WHERE id = ?")).WillReturnError(assert.AnError)
			},
			run: func(s *SQLiteStore) error {
				_, err := s.GetRun(ctx, "r1")
				return err
			},
			errMsg: "failed to get run",
		},
		{
			name: "corrupt timestamp",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "quote_id", "status", "total", "started_at", "completed_at", "error"}).
					AddRow("r1", "q1", "completed", 1.0, "yesterday", nil, nil)
				mock.ExpectQuery(regexp.QuoteMeta("FROM quote_runs")).WillReturnRows(rows)
			},
			run: func(s *SQLiteStore) error {
				_, err := s.ListRuns(ctx, "", 5)
				return err
			},
			errMsg: "invalid timestamp",
		},
		{
			name: "corrupt outputs",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"run_id", "instance_id", "module_id", "position", "value", "outputs", "error"}).
					AddRow("r1", "w1", "wall", 0, 1.0, "{not json", nil)
				mock.ExpectQuery(regexp.QuoteMeta("FROM line_results")).WillReturnRows(rows)
			},
			run: func(s *SQLiteStore) error {
				_, err := s.GetLineResults(ctx, "r1")
				return err
			},
			errMsg: "failed to decode outputs of w1",
		},
		{
			name: "save line result",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("INSERT OR REPLACE INTO line_results")).WillReturnError(assert.AnError)
			},
			run: func(s *SQLiteStore) error {
				return s.SaveLineResult(ctx, &core.LineResult{RunID: "r1", InstanceID: "w1"})
			},
			errMsg: "failed to save line result",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()
			tt.setupMock(mock)

			store := &SQLiteStore{db: db, logger: testutil.NewTestLogger(t)}
			err = tt.run(store)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

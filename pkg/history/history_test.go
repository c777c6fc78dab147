package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := OpenSQLite(SQLiteConfig{
		Path:    filepath.Join(t.TempDir(), "history.db"),
		WALMode: true,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"sqlite": sqlite,
		"memory": NewMemoryStore(),
	}
}

func sampleRun(id string, started time.Time) *Run {
	return &Run{
		ID:              id,
		StartedAt:       started,
		FinishedAt:      started.Add(1500 * time.Millisecond),
		RulesPath:       "rules.json",
		Source:          "csv:parcels.csv",
		Status:          StatusSuccess,
		Records:         10,
		FieldViolations: 3,
		GroupViolations: 1,
		Report:          []byte(`{"run_datetime":"2024-01-01 10:00:00","fields":{},"groups":{}}`),
	}
}

func TestStore_SaveGet(t *testing.T) {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Save(ctx, sampleRun("run-1", base)))

			got, err := store.Get(ctx, "run-1")
			require.NoError(t, err)
			assert.Equal(t, "csv:parcels.csv", got.Source)
			assert.Equal(t, 3, got.FieldViolations)
			assert.True(t, got.StartedAt.Equal(base))
			assert.Equal(t, 1500*time.Millisecond, got.Duration())
			assert.JSONEq(t, `{"run_datetime":"2024-01-01 10:00:00","fields":{},"groups":{}}`, string(got.Report))
			assert.Empty(t, got.Error)
		})
	}
}

func TestStore_GetNotFound(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(context.Background(), "nope")
			assert.True(t, errors.Is(err, ErrNotFound))
		})
	}
}

func TestStore_FailedRun(t *testing.T) {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			run := sampleRun("failed", base)
			run.Status = StatusError
			run.Error = "identifier field \"OBJECTID\" not found"
			run.Report = nil
			require.NoError(t, store.Save(ctx, run))

			got, err := store.Get(ctx, "failed")
			require.NoError(t, err)
			assert.Equal(t, StatusError, got.Status)
			assert.Equal(t, run.Error, got.Error)
			assert.Empty(t, got.Report)
		})
	}
}

func TestStore_ListAndPrune(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i, id := range []string{"a", "b", "c"} {
				require.NoError(t, store.Save(ctx, sampleRun(id, base.Add(time.Duration(i)*24*time.Hour))))
			}

			runs, err := store.List(ctx, 2)
			require.NoError(t, err)
			require.Len(t, runs, 2)
			assert.Equal(t, "c", runs[0].ID)
			assert.Equal(t, "b", runs[1].ID)
			assert.Empty(t, runs[0].Report, "List omits reports")

			n, err := store.Prune(ctx, base.Add(36*time.Hour))
			require.NoError(t, err)
			assert.Equal(t, int64(2), n)

			runs, err = store.List(ctx, 0)
			require.NoError(t, err)
			require.Len(t, runs, 1)
			assert.Equal(t, "c", runs[0].ID)
		})
	}
}

func TestStore_SaveReplaces(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			run := sampleRun("x", base)
			require.NoError(t, store.Save(ctx, run))
			run.Records = 99
			require.NoError(t, store.Save(ctx, run))

			got, err := store.Get(ctx, "x")
			require.NoError(t, err)
			assert.Equal(t, 99, got.Records)

			runs, err := store.List(ctx, 10)
			require.NoError(t, err)
			assert.Len(t, runs, 1)
		})
	}
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite(SQLiteConfig{}, nil)
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "open", storageErr.Operation)
}

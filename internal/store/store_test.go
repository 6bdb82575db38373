package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bouyassine11/AnalytIQ/internal/analysis"
	"github.com/bouyassine11/AnalytIQ/internal/cleaning"
	"github.com/bouyassine11/AnalytIQ/internal/insight"
	"github.com/bouyassine11/AnalytIQ/internal/jobs"
	"github.com/bouyassine11/AnalytIQ/internal/pipeline"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newJob(id, user string, offset time.Duration) *jobs.Job {
	return &jobs.Job{
		ID:         id,
		UserID:     user,
		Filename:   id + ".csv",
		FilePath:   "/uploads/" + id + ".csv",
		UploadedAt: base.Add(offset),
		Status:     jobs.StatusPending,
	}
}

func sampleResult() *pipeline.Result {
	return &pipeline.Result{
		Status: pipeline.StatusCompleted,
		CleaningReport: &cleaning.Report{
			OriginalShape:    cleaning.Shape{Rows: 3, Columns: 1},
			FinalShape:       cleaning.Shape{Rows: 3, Columns: 1},
			MissingValues:    map[string]int{},
			OutliersDetected: map[string]int{},
			ActionsTaken:     []string{},
		},
		EDAResults: &analysis.Result{
			Overview:    analysis.Overview{Rows: 3, Columns: 1, ColumnNames: []string{"x"}},
			DataQuality: analysis.Quality{Completeness: 100},
		},
		AIInsights:    "ok",
		InsightSource: insight.SourceFallback,
	}
}

func stores(t *testing.T) map[string]jobs.Store {
	t.Helper()
	f, err := NewFile(filepath.Join(t.TempDir(), "jobs"))
	require.NoError(t, err)
	s, err := OpenSQL(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return map[string]jobs.Store{"memory": NewMemory(), "file": f, "sqlite": s}
}

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Create(ctx, newJob("j1", "u1", 0)))
			assert.ErrorIs(t, s.Create(ctx, newJob("j1", "u1", 0)), jobs.ErrDuplicate)

			got, err := s.Get(ctx, "j1")
			require.NoError(t, err)
			assert.Equal(t, jobs.StatusPending, got.Status)
			assert.True(t, got.UploadedAt.Equal(base))
			assert.Nil(t, got.Result)

			assert.ErrorIs(t, s.Complete(ctx, "j1", sampleResult(), base), jobs.ErrInvalidTransition)
			require.NoError(t, s.MarkProcessing(ctx, "j1"))
			assert.ErrorIs(t, s.MarkProcessing(ctx, "j1"), jobs.ErrInvalidTransition)

			done := base.Add(time.Minute)
			require.NoError(t, s.Complete(ctx, "j1", sampleResult(), done))
			got, err = s.Get(ctx, "j1")
			require.NoError(t, err)
			assert.Equal(t, jobs.StatusCompleted, got.Status)
			require.NotNil(t, got.Result)
			require.NotNil(t, got.CompletedAt)
			assert.True(t, got.CompletedAt.Equal(done))
			assert.Equal(t, "ok", got.Result.AIInsights)
			assert.Equal(t, 3, got.Result.EDAResults.Overview.Rows)

			// terminal states are final
			assert.ErrorIs(t, s.Fail(ctx, "j1", "late"), jobs.ErrInvalidTransition)
			assert.ErrorIs(t, s.MarkProcessing(ctx, "j1"), jobs.ErrInvalidTransition)
		})
	}
}

func TestStoreFailFromPending(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Create(ctx, newJob("j2", "u1", 0)))
			require.NoError(t, s.Fail(ctx, "j2", "Failed to load CSV: missing"))
			got, err := s.Get(ctx, "j2")
			require.NoError(t, err)
			assert.Equal(t, jobs.StatusFailed, got.Status)
			assert.Equal(t, "Failed to load CSV: missing", got.Error)
			assert.Nil(t, got.Result)
			assert.Nil(t, got.CompletedAt)
			assert.ErrorIs(t, s.Complete(ctx, "j2", sampleResult(), base), jobs.ErrInvalidTransition)
		})
	}
}

func TestStoreNotFound(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, "nope")
			assert.ErrorIs(t, err, jobs.ErrNotFound)
			assert.ErrorIs(t, s.MarkProcessing(ctx, "nope"), jobs.ErrNotFound)
			assert.ErrorIs(t, s.Fail(ctx, "nope", "x"), jobs.ErrNotFound)
		})
	}
}

func TestStoreListByUserNewestFirst(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 4; i++ {
				require.NoError(t, s.Create(ctx, newJob(fmt.Sprintf("a%d", i), "alice", time.Duration(i)*time.Hour)))
			}
			require.NoError(t, s.Create(ctx, newJob("b0", "bob", 10*time.Hour)))

			list, err := s.ListByUser(ctx, "alice", 3)
			require.NoError(t, err)
			var ids []string
			for _, j := range list {
				ids = append(ids, j.ID)
			}
			assert.Equal(t, []string{"a3", "a2", "a1"}, ids)

			list, err = s.ListByUser(ctx, "carol", 10)
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestStoreConcurrentTransitionsApplyOnce(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Create(ctx, newJob("race", "u", 0)))
			var (
				wg sync.WaitGroup
				mu sync.Mutex
				ok int
			)
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if s.MarkProcessing(ctx, "race") == nil {
						mu.Lock()
						ok++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, 1, ok)
		})
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	j := newJob("c", "u", 0)
	require.NoError(t, m.Create(ctx, j))
	j.Status = jobs.StatusFailed
	got, err := m.Get(ctx, "c")
	require.NoError(t, err)
	got.Filename = "changed"
	again, err := m.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusPending, again.Status)
	assert.Equal(t, "c.csv", again.Filename)
}

func TestFileRejectsPathIDs(t *testing.T) {
	f, err := NewFile(t.TempDir())
	require.NoError(t, err)
	_, err = f.Get(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, jobs.ErrNotFound)
	assert.Error(t, f.Create(context.Background(), newJob("../x", "u", 0)))
}

func TestOpenSQLRejectsUnknownDriver(t *testing.T) {
	_, err := OpenSQL(context.Background(), "mysql", "")
	assert.Error(t, err)
}

package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/wavetikz/pkg/schema"
)

func newTestStore(t *testing.T) *LibSQLStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewLibSQLStore("file:" + dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var werr *schema.WaveError
	require.True(t, errors.As(err, &werr), "want *schema.WaveError, got %T", err)
	assert.Equal(t, code, werr.Code)
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))

	var version int
	require.NoError(t, s.db.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&version))
	assert.Equal(t, len(migrations), version)
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("-- header\nCREATE TABLE a (x INT);\n\n-- note\nCREATE INDEX i ON a(x);\n")
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE INDEX i ON a(x)"}, stmts)
}

func TestPutAndGetRendering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := &Rendering{
		CacheKey:    "k1",
		Format:      "tikz",
		Output:      []byte("\\begin{tikzpicture}\\end{tikzpicture}"),
		RequestID:   "req-1",
		SignalCount: 2,
		CycleCount:  8,
	}
	require.NoError(t, s.PutRendering(ctx, r))
	assert.NotEmpty(t, r.ID)

	got, err := s.GetRendering(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, "tikz", got.Format)
	assert.Equal(t, r.Output, got.Output)
	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, 2, got.SignalCount)
	assert.Equal(t, 8, got.CycleCount)
	assert.Equal(t, int64(1), got.HitCount)
	require.NotNil(t, got.LastHitAt)

	got, err = s.GetRendering(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.HitCount)
}

func TestPutRenderingReplacesSameKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutRendering(ctx, &Rendering{CacheKey: "k", Format: "json", Output: []byte("old")}))
	require.NoError(t, s.PutRendering(ctx, &Rendering{CacheKey: "k", Format: "json", Output: []byte("new")}))

	got, err := s.GetRendering(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), got.Output)

	list, err := s.ListRenderings(ctx, RenderingFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestGetRenderingNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetRendering(context.Background(), "missing")
	requireCode(t, err, schema.ErrCodeNotFound)
}

func TestListRenderings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	for i, f := range []string{"tikz", "json", "tikz"} {
		require.NoError(t, s.PutRendering(ctx, &Rendering{
			CacheKey:  f + string(rune('a'+i)),
			Format:    f,
			Output:    []byte("x"),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := s.ListRenderings(ctx, RenderingFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "tikzc", all[0].CacheKey, "newest first")
	assert.Nil(t, all[0].Output)

	tikz, err := s.ListRenderings(ctx, RenderingFilter{Format: "tikz"})
	require.NoError(t, err)
	assert.Len(t, tikz, 2)

	page, err := s.ListRenderings(ctx, RenderingFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "jsonb", page[0].CacheKey)
}

func TestDeleteAndPruneRenderings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := &Rendering{CacheKey: "old", Format: "tikz", Output: []byte("o"), CreatedAt: time.Now().Add(-48 * time.Hour)}
	fresh := &Rendering{CacheKey: "fresh", Format: "tikz", Output: []byte("f")}
	gone := &Rendering{CacheKey: "gone", Format: "tikz", Output: []byte("g")}
	for _, r := range []*Rendering{old, fresh, gone} {
		require.NoError(t, s.PutRendering(ctx, r))
	}

	require.NoError(t, s.DeleteRendering(ctx, gone.ID))
	requireCode(t, s.DeleteRendering(ctx, gone.ID), schema.ErrCodeNotFound)

	n, err := s.PruneRenderings(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.GetRendering(ctx, "old")
	requireCode(t, err, schema.ErrCodeNotFound)
	_, err = s.GetRendering(ctx, "fresh")
	require.NoError(t, err)
}

func TestWatchJobLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := &WatchJob{
		SourcePath:     "/tmp/a.json",
		OutputPath:     "/tmp/a.tex",
		Format:         "tikz",
		CronExpression: "@every 2s",
		Enabled:        true,
	}
	require.NoError(t, s.CreateWatchJob(ctx, job))
	require.NotEmpty(t, job.ID)

	got, err := s.GetWatchJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/a.json", got.SourcePath)
	assert.Equal(t, "@every 2s", got.CronExpression)
	assert.True(t, got.Enabled)
	assert.Nil(t, got.LastRunAt)

	now := time.Now().UTC().Truncate(time.Second)
	next := now.Add(2 * time.Second)
	msg := "boom"
	require.NoError(t, s.UpdateWatchJob(ctx, job.ID, WatchJobUpdate{
		LastMTime:     &now,
		LastRunAt:     &now,
		NextRunAt:     &next,
		LastRunStatus: "error",
		LastError:     &msg,
	}))

	got, err = s.GetWatchJob(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, got.NextRunAt)
	assert.True(t, got.NextRunAt.Equal(next))
	assert.Equal(t, "error", got.LastRunStatus)
	assert.Equal(t, "boom", got.LastError)

	empty := ""
	disabled := false
	require.NoError(t, s.UpdateWatchJob(ctx, job.ID, WatchJobUpdate{LastError: &empty, Enabled: &disabled}))
	got, err = s.GetWatchJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Empty(t, got.LastError)
	assert.False(t, got.Enabled)

	enabled := true
	jobs, err := s.ListWatchJobs(ctx, WatchJobFilter{Enabled: &enabled})
	require.NoError(t, err)
	assert.Empty(t, jobs)

	jobs, err = s.ListWatchJobs(ctx, WatchJobFilter{Source: "/tmp/a.json"})
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	require.NoError(t, s.DeleteWatchJob(ctx, job.ID))
	_, err = s.GetWatchJob(ctx, job.ID)
	requireCode(t, err, schema.ErrCodeNotFound)
	requireCode(t, s.UpdateWatchJob(ctx, job.ID, WatchJobUpdate{LastRunStatus: "ok"}), schema.ErrCodeNotFound)
}

func TestCreateWatchJobDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	job := WatchJob{SourcePath: "a", OutputPath: "b", Format: "tikz", CronExpression: "@every 1s", Enabled: true}

	first := job
	require.NoError(t, s.CreateWatchJob(ctx, &first))
	second := job
	requireCode(t, s.CreateWatchJob(ctx, &second), schema.ErrCodeStore)
}

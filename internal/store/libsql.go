package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/tursodatabase/go-libsql"

	"github.com/rendis/wavetikz/pkg/schema"
)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/cache.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// --- Renderings ---

// PutRendering inserts a rendering or replaces the one with the same cache key.
func (s *LibSQLStore) PutRendering(ctx context.Context, r *Rendering) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.CreatedAt = timeOrNow(r.CreatedAt)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO renderings (id, cache_key, format, output, request_id, signal_count, cycle_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET
		   format=excluded.format, output=excluded.output, request_id=excluded.request_id,
		   signal_count=excluded.signal_count, cycle_count=excluded.cycle_count, created_at=excluded.created_at`,
		r.ID, r.CacheKey, r.Format, r.Output, nullStr(r.RequestID), r.SignalCount, r.CycleCount, r.CreatedAt,
	)
	if err != nil {
		return storeError("put rendering", err)
	}
	return nil
}

// GetRendering returns the rendering for a cache key and records the hit.
func (s *LibSQLStore) GetRendering(ctx context.Context, cacheKey string) (*Rendering, error) {
	r, err := scanRendering(s.db.QueryRowContext(ctx,
		`SELECT id, cache_key, format, output, request_id, signal_count, cycle_count, hit_count, created_at, last_hit_at
		 FROM renderings WHERE cache_key = ?`, cacheKey,
	))
	if err == sql.ErrNoRows {
		return nil, storeNotFound("rendering", cacheKey)
	}
	if err != nil {
		return nil, storeError("get rendering", err)
	}

	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx,
		`UPDATE renderings SET hit_count = hit_count + 1, last_hit_at = ? WHERE id = ?`, now, r.ID,
	); err != nil {
		return nil, storeError("record rendering hit", err)
	}
	r.HitCount++
	r.LastHitAt = &now
	return r, nil
}

// ListRenderings returns renderings newest first. Output is not loaded.
func (s *LibSQLStore) ListRenderings(ctx context.Context, filter RenderingFilter) ([]*Rendering, error) {
	var where []string
	var args []any

	if filter.Format != "" {
		where = append(where, "format = ?")
		args = append(args, filter.Format)
	}
	if filter.Since != nil {
		where = append(where, "created_at >= ?")
		args = append(args, *filter.Since)
	}

	query := "SELECT id, cache_key, format, X'', request_id, signal_count, cycle_count, hit_count, created_at, last_hit_at FROM renderings"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError("list renderings", err)
	}
	defer rows.Close()

	var out []*Rendering
	for rows.Next() {
		r, err := scanRendering(rows)
		if err != nil {
			return nil, storeError("scan rendering", err)
		}
		r.Output = nil
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRendering removes one rendering by ID.
func (s *LibSQLStore) DeleteRendering(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM renderings WHERE id = ?`, id)
	if err != nil {
		return storeError("delete rendering", err)
	}
	return checkRowsAffected(res, "rendering", id)
}

// PruneRenderings deletes renderings created before olderThan and reports
// how many were removed.
func (s *LibSQLStore) PruneRenderings(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM renderings WHERE created_at < ?`, olderThan.UTC())
	if err != nil {
		return 0, storeError("prune renderings", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRendering(row rowScanner) (*Rendering, error) {
	r := &Rendering{}
	var requestID sql.NullString
	var lastHit sql.NullTime
	if err := row.Scan(&r.ID, &r.CacheKey, &r.Format, &r.Output, &requestID,
		&r.SignalCount, &r.CycleCount, &r.HitCount, &r.CreatedAt, &lastHit); err != nil {
		return nil, err
	}
	r.RequestID = requestID.String
	if lastHit.Valid {
		r.LastHitAt = &lastHit.Time
	}
	return r, nil
}

// --- Watch jobs ---

func (s *LibSQLStore) CreateWatchJob(ctx context.Context, job *WatchJob) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	job.CreatedAt = timeOrNow(job.CreatedAt)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO watch_jobs (id, source_path, output_path, format, cron_expression, enabled, last_mtime, last_run_at, next_run_at, last_run_status, last_error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.SourcePath, job.OutputPath, job.Format, job.CronExpression, job.Enabled,
		nullTime(job.LastMTime), nullTime(job.LastRunAt), nullTime(job.NextRunAt),
		nullStr(job.LastRunStatus), nullStr(job.LastError), job.CreatedAt,
	)
	if err != nil {
		return storeError("create watch job", err)
	}
	return nil
}

func (s *LibSQLStore) GetWatchJob(ctx context.Context, id string) (*WatchJob, error) {
	job, err := scanWatchJob(s.db.QueryRowContext(ctx, watchJobColumns+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, storeNotFound("watch_job", id)
	}
	if err != nil {
		return nil, storeError("get watch job", err)
	}
	return job, nil
}

func (s *LibSQLStore) UpdateWatchJob(ctx context.Context, id string, update WatchJobUpdate) error {
	var sets []string
	var args []any

	if update.Enabled != nil {
		sets = append(sets, "enabled = ?")
		args = append(args, *update.Enabled)
	}
	if update.LastMTime != nil {
		sets = append(sets, "last_mtime = ?")
		args = append(args, *update.LastMTime)
	}
	if update.LastRunAt != nil {
		sets = append(sets, "last_run_at = ?")
		args = append(args, *update.LastRunAt)
	}
	if update.NextRunAt != nil {
		sets = append(sets, "next_run_at = ?")
		args = append(args, *update.NextRunAt)
	}
	if update.LastRunStatus != "" {
		sets = append(sets, "last_run_status = ?")
		args = append(args, update.LastRunStatus)
	}
	if update.LastError != nil {
		sets = append(sets, "last_error = ?")
		args = append(args, nullStr(*update.LastError))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE watch_jobs SET %s WHERE id = ?", strings.Join(sets, ", "))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return storeError("update watch job", err)
	}
	return checkRowsAffected(res, "watch_job", id)
}

func (s *LibSQLStore) ListWatchJobs(ctx context.Context, filter WatchJobFilter) ([]*WatchJob, error) {
	var where []string
	var args []any

	if filter.Enabled != nil {
		where = append(where, "enabled = ?")
		args = append(args, *filter.Enabled)
	}
	if filter.Source != "" {
		where = append(where, "source_path = ?")
		args = append(args, filter.Source)
	}

	query := watchJobColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError("list watch jobs", err)
	}
	defer rows.Close()

	var jobs []*WatchJob
	for rows.Next() {
		job, err := scanWatchJob(rows)
		if err != nil {
			return nil, storeError("scan watch job", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *LibSQLStore) DeleteWatchJob(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM watch_jobs WHERE id = ?`, id)
	if err != nil {
		return storeError("delete watch job", err)
	}
	return checkRowsAffected(res, "watch_job", id)
}

const watchJobColumns = `SELECT id, source_path, output_path, format, cron_expression, enabled, last_mtime, last_run_at, next_run_at, last_run_status, last_error, created_at FROM watch_jobs`

func scanWatchJob(row rowScanner) (*WatchJob, error) {
	job := &WatchJob{}
	var mtime, lastRun, nextRun sql.NullTime
	var status, lastErr sql.NullString
	if err := row.Scan(&job.ID, &job.SourcePath, &job.OutputPath, &job.Format, &job.CronExpression, &job.Enabled,
		&mtime, &lastRun, &nextRun, &status, &lastErr, &job.CreatedAt); err != nil {
		return nil, err
	}
	if mtime.Valid {
		job.LastMTime = &mtime.Time
	}
	if lastRun.Valid {
		job.LastRunAt = &lastRun.Time
	}
	if nextRun.Valid {
		job.NextRunAt = &nextRun.Time
	}
	job.LastRunStatus = status.String
	job.LastError = lastErr.String
	return job, nil
}

// --- helpers ---

func storeNotFound(resource, id string) *schema.WaveError {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", resource, id)
}

func storeError(op string, err error) *schema.WaveError {
	return schema.NewErrorf(schema.ErrCodeStore, "%s: %s", op, err.Error()).WithCause(err)
}

func checkRowsAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storeNotFound(resource, id)
	}
	return nil
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ Store = (*LibSQLStore)(nil)

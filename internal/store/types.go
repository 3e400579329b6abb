package store

import "time"

// Rendering is a cached translation output.
type Rendering struct {
	ID          string     `json:"id"`
	CacheKey    string     `json:"cache_key"`
	Format      string     `json:"format"`
	Output      []byte     `json:"-"`
	RequestID   string     `json:"request_id,omitempty"`
	SignalCount int        `json:"signal_count"`
	CycleCount  int        `json:"cycle_count"`
	HitCount    int64      `json:"hit_count"`
	CreatedAt   time.Time  `json:"created_at"`
	LastHitAt   *time.Time `json:"last_hit_at,omitempty"`
}

// RenderingFilter specifies criteria for listing renderings.
type RenderingFilter struct {
	Format string     `json:"format,omitempty"`
	Since  *time.Time `json:"since,omitempty"`
	Limit  int        `json:"limit,omitempty"`
	Offset int        `json:"offset,omitempty"`
}

// WatchJob re-renders a source document on a cron schedule when its
// modification time changes.
type WatchJob struct {
	ID             string     `json:"id"`
	SourcePath     string     `json:"source_path"`
	OutputPath     string     `json:"output_path"`
	Format         string     `json:"format"`
	CronExpression string     `json:"cron_expression"`
	Enabled        bool       `json:"enabled"`
	LastMTime      *time.Time `json:"last_mtime,omitempty"`
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`
	NextRunAt      *time.Time `json:"next_run_at,omitempty"`
	LastRunStatus  string     `json:"last_run_status,omitempty"`
	LastError      string     `json:"last_error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// WatchJobUpdate specifies mutable fields of a watch job. Nil fields are
// left unchanged.
type WatchJobUpdate struct {
	Enabled       *bool      `json:"enabled,omitempty"`
	LastMTime     *time.Time `json:"last_mtime,omitempty"`
	LastRunAt     *time.Time `json:"last_run_at,omitempty"`
	NextRunAt     *time.Time `json:"next_run_at,omitempty"`
	LastRunStatus string     `json:"last_run_status,omitempty"`
	LastError     *string    `json:"last_error,omitempty"`
}

// WatchJobFilter specifies criteria for listing watch jobs.
type WatchJobFilter struct {
	Enabled *bool  `json:"enabled,omitempty"`
	Source  string `json:"source,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

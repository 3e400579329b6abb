package store

import (
	"context"
	"time"
)

// Store defines the persistence layer contract.
// All implementations must be safe for concurrent use.
type Store interface {
	// Renderings (content-addressed cache)
	PutRendering(ctx context.Context, r *Rendering) error
	GetRendering(ctx context.Context, cacheKey string) (*Rendering, error)
	ListRenderings(ctx context.Context, filter RenderingFilter) ([]*Rendering, error)
	DeleteRendering(ctx context.Context, id string) error
	PruneRenderings(ctx context.Context, olderThan time.Time) (int64, error)

	// Watch jobs
	CreateWatchJob(ctx context.Context, job *WatchJob) error
	GetWatchJob(ctx context.Context, id string) (*WatchJob, error)
	UpdateWatchJob(ctx context.Context, id string, update WatchJobUpdate) error
	ListWatchJobs(ctx context.Context, filter WatchJobFilter) ([]*WatchJob, error)
	DeleteWatchJob(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Package scheduler implements watch mode: source documents are re-rendered
// on a cron schedule whenever their modification time changes.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rendis/wavetikz/internal/logging"
	"github.com/rendis/wavetikz/internal/store"
)

// Run statuses recorded on a watch job.
const (
	StatusRendered  = "rendered"
	StatusUnchanged = "unchanged"
	StatusError     = "error"
)

// FileRenderer is what the watcher calls to re-render one job.
// Satisfied by the engine's file renderer (avoids import cycle).
type FileRenderer interface {
	RenderFile(ctx context.Context, job *store.WatchJob) error
}

// Notifier is told about every completed check of a job.
type Notifier interface {
	JobChecked(ctx context.Context, job *store.WatchJob, status string, runErr error)
}

// JobStore is the subset of store.Store the watcher needs.
type JobStore interface {
	CreateWatchJob(ctx context.Context, job *store.WatchJob) error
	UpdateWatchJob(ctx context.Context, id string, update store.WatchJobUpdate) error
	ListWatchJobs(ctx context.Context, filter store.WatchJobFilter) ([]*store.WatchJob, error)
}

// Watcher polls the store for due watch jobs and re-renders changed sources.
type Watcher struct {
	store    JobStore
	renderer FileRenderer
	notifier Notifier
	parser   cron.Parser
	logger   *slog.Logger
	interval time.Duration
	stat     func(path string) (time.Time, error)

	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex

	inflightMu sync.Mutex
	inflight   map[string]struct{} // job IDs currently rendering (dedup)
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithInterval sets how often the watcher checks for due jobs (default 1s).
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithNotifier reports job outcomes to n.
func WithNotifier(n Notifier) Option {
	return func(w *Watcher) {
		w.notifier = n
	}
}

// NewWatcher creates a new Watcher.
func NewWatcher(s JobStore, renderer FileRenderer, logger *slog.Logger, opts ...Option) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watcher{
		store:    s,
		renderer: renderer,
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour |
			cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		logger:   logger,
		interval: time.Second,
		stat:     modTime,
		inflight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// SetNotifier replaces the notifier. It lets a transport created after the
// watcher receive job outcomes.
func (w *Watcher) SetNotifier(n Notifier) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.notifier = n
}

func (w *Watcher) currentNotifier() Notifier {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.notifier
}

func modTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime().UTC(), nil
}

// Watch registers a source document. The first check happens on the next
// tick.
func (w *Watcher) Watch(ctx context.Context, source, output, format, cronExpr string) (*store.WatchJob, error) {
	if _, err := w.parser.Parse(cronExpr); err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", cronExpr, err)
	}
	now := time.Now().UTC()
	job := &store.WatchJob{
		SourcePath:     source,
		OutputPath:     output,
		Format:         format,
		CronExpression: cronExpr,
		Enabled:        true,
		NextRunAt:      &now,
	}
	if err := w.store.CreateWatchJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Start launches the background polling loop.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.done != nil {
		w.mu.Unlock()
		return fmt.Errorf("watcher already started")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.mu.Unlock()

	go w.loop(loopCtx)
	w.logger.Info("watcher started", slog.Duration("interval", w.interval))
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// Stop shuts the loop down and waits for the current tick to finish.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel == nil {
		return nil
	}

	w.cancel()
	<-w.done
	w.cancel = nil
	w.done = nil

	w.logger.Info("watcher stopped")
	return nil
}

// tick checks every enabled job and runs those that are due.
func (w *Watcher) tick(ctx context.Context) {
	enabled := true
	jobs, err := w.store.ListWatchJobs(ctx, store.WatchJobFilter{Enabled: &enabled})
	if err != nil {
		w.logger.Error("failed to list watch jobs", slog.String("error", err.Error()))
		return
	}

	now := time.Now().UTC()
	for _, job := range jobs {
		if job.NextRunAt != nil && job.NextRunAt.After(now) {
			continue
		}
		if !w.tryAcquire(job.ID) {
			continue
		}
		if err := w.runJob(ctx, job, now); err != nil {
			w.logger.Error("failed to run watch job",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()),
			)
		}
		w.release(job.ID)
	}
}

// runJob re-renders the job's source if it changed since the last run and
// records the outcome.
func (w *Watcher) runJob(ctx context.Context, job *store.WatchJob, now time.Time) error {
	ctx = logging.WithSource(ctx, job.SourcePath)
	update := store.WatchJobUpdate{LastRunAt: &now}
	var runErr error

	mtime, err := w.stat(job.SourcePath)
	switch {
	case err != nil:
		runErr = err
		msg := err.Error()
		update.LastRunStatus = StatusError
		update.LastError = &msg
		w.logger.WarnContext(ctx, "watch source unavailable", slog.String("error", msg))

	case job.LastMTime != nil && !mtime.After(*job.LastMTime):
		update.LastRunStatus = StatusUnchanged

	default:
		update.LastMTime = &mtime
		if err := w.renderer.RenderFile(ctx, job); err != nil {
			runErr = err
			msg := err.Error()
			update.LastRunStatus = StatusError
			update.LastError = &msg
			w.logger.ErrorContext(ctx, "watch render failed", slog.String("error", msg))
		} else {
			empty := ""
			update.LastRunStatus = StatusRendered
			update.LastError = &empty
			w.logger.InfoContext(ctx, "re-rendered", slog.String("output", job.OutputPath))
		}
	}

	if n := w.currentNotifier(); n != nil && update.LastRunStatus != StatusUnchanged {
		n.JobChecked(ctx, job, update.LastRunStatus, runErr)
	}

	next, err := w.NextRun(job.CronExpression, now)
	if err != nil {
		return err
	}
	update.NextRunAt = &next
	return w.store.UpdateWatchJob(ctx, job.ID, update)
}

// NextRun computes the next check time for a schedule. Standard five-field
// expressions, an optional leading seconds field and descriptors such as
// "@every 2s" are accepted.
func (w *Watcher) NextRun(cronExpr string, from time.Time) (time.Time, error) {
	schedule, err := w.parser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse schedule %q: %w", cronExpr, err)
	}
	return schedule.Next(from), nil
}

// tryAcquire marks the job in-flight unless it already is.
func (w *Watcher) tryAcquire(jobID string) bool {
	w.inflightMu.Lock()
	defer w.inflightMu.Unlock()
	if _, ok := w.inflight[jobID]; ok {
		return false
	}
	w.inflight[jobID] = struct{}{}
	return true
}

func (w *Watcher) release(jobID string) {
	w.inflightMu.Lock()
	defer w.inflightMu.Unlock()
	delete(w.inflight, jobID)
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/rendis/wavetikz/internal/engine"
	"github.com/rendis/wavetikz/internal/logging"
	"github.com/rendis/wavetikz/internal/store"
)

// app is the wired pipeline shared by the subcommands.
type app struct {
	cfg      Config
	level    *slog.LevelVar
	logger   *slog.Logger
	store    *store.LibSQLStore // nil when caching is off and no jobs are needed
	pool     *engine.WorkerPool
	renderer *engine.Renderer
}

// newApp wires logging, the cache database, the worker pool and the
// renderer. needStore forces the database open for watch jobs.
func newApp(ctx context.Context, cfg Config, needStore bool) (*app, error) {
	level := new(slog.LevelVar)
	level.Set(logging.ParseLevel(cfg.LogLevel))
	logger := logging.New(os.Stderr, level, cfg.LogJSON)

	a := &app{cfg: cfg, level: level, logger: logger}

	var cache engine.Cache
	if cfg.Cache || needStore {
		s, err := openStore(ctx, cfg.DBPath)
		if err != nil {
			return nil, err
		}
		a.store = s
		if cfg.Cache {
			cache = s
		}
	}

	a.pool = engine.NewWorkerPool(cfg.PoolSize)

	tr, err := engine.NewTranslator(a.pool, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create translator: %w", err)
	}
	a.renderer, err = engine.NewRenderer(tr, cache, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create renderer: %w", err)
	}
	return a, nil
}

func openStore(ctx context.Context, dbPath string) (*store.LibSQLStore, error) {
	if dir := filepath.Dir(strings.TrimPrefix(dbPath, "file:")); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if !strings.HasPrefix(dbPath, "file:") {
		dbPath = "file:" + dbPath
	}
	s, err := store.NewLibSQLStore(dbPath)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close releases the pool and the database.
func (a *app) Close() {
	if a.pool != nil {
		a.pool.Shutdown()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("close store", slog.String("error", err.Error()))
		}
	}
}

// readInput reads a file, or stdin when path is "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

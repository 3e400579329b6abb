package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/rendis/wavetikz/internal/logging"
	"github.com/rendis/wavetikz/internal/scheduler"
	"github.com/rendis/wavetikz/pkg/mcp"
)

func pidPath() string {
	return filepath.Join(wavetikzDir(), "wavetikz.pid")
}

func runServe(args []string) {
	cfg := loadConfig()
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	bindCommon(fs, &cfg)
	noWatch := fs.Bool("no-watch", false, "disable the wavetikz.watch tool")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, !*noWatch)
	if err != nil {
		fatalf("%v", err)
	}
	defer a.Close()

	var watcher *scheduler.Watcher
	if !*noWatch {
		watcher = scheduler.NewWatcher(a.store, a.renderer, a.logger)
	}

	srv := mcp.NewWaveServer(mcp.WaveServerDeps{
		Renderer: a.renderer,
		Watcher:  watcher,
		Logger:   a.logger,
		Version:  version,
	})

	if watcher != nil {
		watcher.SetNotifier(mcp.NewMCPNotifier(srv.MCPServer(), srv.Owners(), a.logger))
		if err := watcher.Start(ctx); err != nil {
			fatalf("%v", err)
		}
		defer watcher.Stop()
	}

	if err := writePIDFile(); err != nil {
		a.logger.Warn("pidfile not written", slog.String("error", err.Error()))
	} else {
		defer os.Remove(pidPath())
	}

	go reloadOnHangup(ctx, a)

	a.logger.Info("serving MCP on stdio", slog.String("version", version))
	if err := srv.Serve(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}

func writePIDFile() error {
	if err := os.MkdirAll(wavetikzDir(), 0o700); err != nil {
		return err
	}
	return os.WriteFile(pidPath(), []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// reloadOnHangup re-reads settings.json on SIGHUP. The log level changes in
// place; other fields are reported as needing a restart.
func reloadOnHangup(ctx context.Context, a *app) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			next := loadConfig()
			diff := diffConfigs(a.cfg, next)
			if diff.LogLevelChanged {
				a.level.Set(logging.ParseLevel(next.LogLevel))
				a.cfg.LogLevel = next.LogLevel
				a.logger.Info("log level changed", slog.String("level", next.LogLevel))
			}
			if len(diff.RestartNeeded) > 0 {
				a.logger.Warn("settings changed; restart to apply", slog.Any("fields", diff.RestartNeeded))
			}
		}
	}
}

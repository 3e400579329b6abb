package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/rendis/wavetikz/internal/engine"
	"github.com/rendis/wavetikz/internal/scheduler"
	"github.com/rendis/wavetikz/internal/store"
	"github.com/rendis/wavetikz/internal/streaming"
)

func runWatch(args []string) {
	cfg := loadConfig()
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	bindCommon(fs, &cfg)
	schedule := fs.String("schedule", cfg.WatchSchedule, "cron expression or descriptor for source checks")
	format := fs.String("format", "", "output format (default: from the output extension)")
	list := fs.Bool("list", false, "list registered watch jobs and exit")
	remove := fs.String("rm", "", "delete the watch job with this ID and exit")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: wavetikz watch [flags] [<source> [output]]")
		fmt.Fprintln(os.Stderr, "Without arguments, runs every registered job until interrupted.")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() > 2 {
		fs.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, true)
	if err != nil {
		fatalf("%v", err)
	}
	defer a.Close()

	switch {
	case *list:
		listJobs(ctx, a.store)
		return
	case *remove != "":
		if err := a.store.DeleteWatchJob(ctx, *remove); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("Removed watch job %s\n", *remove)
		return
	}

	hub := streaming.NewMemoryHub()
	w := scheduler.NewWatcher(a.store, a.renderer, a.logger, scheduler.WithNotifier(hub))
	events, unsubscribe, err := hub.Subscribe(ctx, streaming.Filter{})
	if err != nil {
		fatalf("%v", err)
	}
	defer unsubscribe()
	go printEvents(ctx, events)

	if fs.NArg() > 0 {
		src, err := filepath.Abs(fs.Arg(0))
		if err != nil {
			fatalf("%v", err)
		}
		out := defaultOutput(src, *format)
		if fs.NArg() == 2 {
			if out, err = filepath.Abs(fs.Arg(1)); err != nil {
				fatalf("%v", err)
			}
		}
		f := engine.FormatForPath(out)
		if *format != "" {
			if f, err = engine.ParseFormat(*format); err != nil {
				fatalf("%v", err)
			}
		}
		job, err := w.Watch(ctx, src, out, string(f), *schedule)
		if err != nil {
			fatalf("%v", err)
		}
		fmt.Fprintf(os.Stderr, "Watching %s -> %s (job %s)\n", src, out, job.ID)
	}

	if err := w.Start(ctx); err != nil {
		fatalf("%v", err)
	}
	<-ctx.Done()
	if err := w.Stop(); err != nil {
		fatalf("%v", err)
	}
}

func printEvents(ctx context.Context, events <-chan streaming.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if ev.Error != "" {
				fmt.Fprintf(os.Stderr, "%s  %s: %s\n", ev.At.Local().Format("15:04:05"), ev.Source, ev.Error)
				continue
			}
			fmt.Fprintf(os.Stderr, "%s  %s -> %s\n", ev.At.Local().Format("15:04:05"), ev.Source, ev.Output)
		}
	}
}

// defaultOutput places the output next to the source with the format's
// extension.
func defaultOutput(src, format string) string {
	ext := ".tex"
	switch strings.ToLower(format) {
	case "png":
		ext = ".png"
	case "json":
		ext = ".json"
	case "ascii", "txt", "text":
		ext = ".txt"
	}
	return strings.TrimSuffix(src, filepath.Ext(src)) + ext
}

func listJobs(ctx context.Context, s *store.LibSQLStore) {
	jobs, err := s.ListWatchJobs(ctx, store.WatchJobFilter{})
	if err != nil {
		fatalf("%v", err)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSOURCE\tOUTPUT\tSCHEDULE\tENABLED\tSTATUS")
	for _, j := range jobs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n",
			j.ID, j.SourcePath, j.OutputPath, j.CronExpression, j.Enabled, j.LastRunStatus)
	}
	tw.Flush()
}

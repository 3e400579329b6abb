package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rendis/wavetikz/internal/diagram"
	"github.com/rendis/wavetikz/internal/engine"
)

// exitPartial is returned when the diagram was written but some signals
// failed to decode.
const exitPartial = 2

func runRender(args []string) {
	cfg := loadConfig()
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	bindCommon(fs, &cfg)
	bindGeometry(fs, &cfg)
	output := fs.String("o", "", "output file (default: stdout)")
	format := fs.String("format", cfg.Format, "output format: tikz, json, ascii, png")
	query := fs.String("select", "", "jq query selecting the WaveJSON document inside the input")
	filter := fs.String("filter", "", "CEL expression; only matching signals are drawn")
	labelFormat := fs.String("label-format", "", "expr expression rewriting each data label")
	strict := fs.Bool("strict", false, "fail on the first signal that does not decode")
	standalone := fs.Bool("standalone", false, "wrap TikZ output in a standalone document")
	scale := fs.Float64("scale", 0, "PNG pixels per geometry unit")
	noCache := fs.Bool("no-cache", !cfg.Cache, "bypass the rendering cache")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: wavetikz render [flags] <file|->")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}
	cfg.Cache = !*noCache

	f := engine.FormatForPath(*output)
	if *output == "" || flagSet(fs, "format") {
		parsed, err := engine.ParseFormat(*format)
		if err != nil {
			fatalf("%v", err)
		}
		f = parsed
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, false)
	if err != nil {
		fatalf("%v", err)
	}
	defer a.Close()

	data, err := readInput(fs.Arg(0))
	if err != nil {
		fatalf("read %s: %v", fs.Arg(0), err)
	}
	doc, err := a.renderer.Loader().Load(ctx, data, *query)
	if err != nil {
		if doc != nil {
			printIssues(os.Stderr, doc.Result)
		}
		fatalf("%v", err)
	}
	for _, w := range doc.Result.Warnings {
		a.logger.Warn(w.Message, slog.String("path", w.Path), slog.String("code", w.Code))
	}

	geom := cfg.Geometry()
	rendering, err := a.renderer.Render(ctx, doc.Description, engine.RenderOptions{
		Options: engine.Options{
			Geometry:    &geom,
			Filter:      *filter,
			LabelFormat: *labelFormat,
			Strict:      *strict,
		},
		Format:  f,
		TikZ:    diagram.TikZOptions{Unit: cfg.Unit, Standalone: *standalone},
		Image:   diagram.ImageOptions{Scale: *scale},
		NoCache: !cfg.Cache,
	})
	if err != nil {
		fatalf("%v", err)
	}

	if *output == "" {
		if _, err := os.Stdout.Write(rendering.Output); err != nil {
			fatalf("write: %v", err)
		}
	} else if err := engine.WriteFileAtomic(*output, rendering.Output); err != nil {
		fatalf("%v", err)
	}

	if res := rendering.Result; res != nil && len(res.Errors) > 0 {
		for _, e := range res.Errors {
			fmt.Fprintln(os.Stderr, e.Error())
		}
		a.Close()
		os.Exit(exitPartial)
	}
}

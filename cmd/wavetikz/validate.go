package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/rendis/wavetikz/internal/logging"
	"github.com/rendis/wavetikz/internal/source"
	"github.com/rendis/wavetikz/pkg/schema"
)

func runValidate(args []string) {
	cfg := loadConfig()
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	query := fs.String("select", "", "jq query selecting the WaveJSON document inside the input")
	asJSON := fs.Bool("json", false, "print the result as JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: wavetikz validate [flags] <file|->")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}

	logger := logging.New(os.Stderr, logging.ParseLevel(cfg.LogLevel), cfg.LogJSON)
	loader, err := source.NewLoader(logger)
	if err != nil {
		fatalf("%v", err)
	}
	data, err := readInput(fs.Arg(0))
	if err != nil {
		fatalf("read %s: %v", fs.Arg(0), err)
	}

	doc, err := loader.Load(context.Background(), data, *query)
	if doc == nil {
		fatalf("%v", err)
	}
	logger.Debug("validated", slog.Bool("valid", doc.Result.Valid()))

	if *asJSON {
		out, _ := json.MarshalIndent(map[string]any{
			"valid":    doc.Result.Valid(),
			"errors":   doc.Result.Errors,
			"warnings": doc.Result.Warnings,
		}, "", "  ")
		fmt.Println(string(out))
	} else {
		printIssues(os.Stdout, doc.Result)
		if doc.Result.Valid() {
			fmt.Println("ok")
		}
	}
	if !doc.Result.Valid() {
		os.Exit(1)
	}
}

// printIssues writes one line per issue, errors first.
func printIssues(w io.Writer, res *schema.ValidationResult) {
	for _, issues := range [][]schema.ValidationIssue{res.Errors, res.Warnings} {
		for _, is := range issues {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", is.Severity, is.Path, is.Code, is.Message)
		}
	}
}

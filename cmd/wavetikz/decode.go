package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rendis/wavetikz/internal/diagram"
	"github.com/rendis/wavetikz/internal/timeline"
	"github.com/rendis/wavetikz/internal/wave"
	"github.com/rendis/wavetikz/pkg/schema"
)

func runDecode(args []string) {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	name := fs.String("name", "", "signal name")
	data := fs.String("data", "", "comma-separated data labels")
	period := fs.Int("period", 1, "cycles per wave character")
	ascii := fs.Bool("ascii", false, "print an ASCII preview instead of JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: wavetikz decode [flags] <wave>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}

	var labels []string
	if *data != "" {
		labels = strings.Split(*data, ",")
	}

	trace, err := wave.DecodeWithOptions(*name, fs.Arg(0), labels, wave.Options{Period: *period})
	if err != nil {
		var gerr *schema.GrammarError
		if errors.As(err, &gerr) {
			fatalf("%s", gerr.ToWaveError().Error())
		}
		fatalf("%v", err)
	}
	for _, w := range trace.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w.Error())
	}

	if *ascii {
		tl, err := timeline.Build([]*wave.Trace{trace}, schema.DefaultGeometry())
		if err != nil {
			fatalf("%v", err)
		}
		fmt.Print(diagram.RenderASCII(tl))
		return
	}

	out, err := json.MarshalIndent(trace, "", "  ")
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Println(string(out))
}

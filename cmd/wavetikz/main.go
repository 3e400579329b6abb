package main

import (
	"fmt"
	"os"
)

const usage = `wavetikz draws digital timing diagrams from WaveJSON.

Usage:
  wavetikz <command> [flags] [args]

Commands:
  render    translate a WaveJSON document into TikZ, JSON, ASCII or PNG
  decode    show how a single wave string is read
  validate  check a WaveJSON document without rendering it
  watch     re-render files whenever they change
  serve     run the MCP server on stdio
  install   write ~/.wavetikz/settings.json
  version   print the version

Run 'wavetikz <command> -h' for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "render":
		runRender(args)
	case "decode":
		runDecode(args)
	case "validate":
		runValidate(args)
	case "watch":
		runWatch(args)
	case "serve":
		runServe(args)
	case "install":
		runInstall(args)
	case "version", "-v", "--version":
		printVersion()
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
}

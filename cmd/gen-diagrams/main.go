// gen-diagrams generates sample diagram outputs for README documentation.
// Run: go run ./cmd/gen-diagrams
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rendis/wavetikz/internal/diagram"
	"github.com/rendis/wavetikz/internal/engine"
	"github.com/rendis/wavetikz/pkg/schema"
)

// handshake is a valid/ready bus transfer with a gap in the middle.
const handshake = `{
  "signal": [
    {"name": "clk", "wave": "p.....|..."},
    ["bus",
      {"name": "valid", "wave": "0.1..0|1.0"},
      {"name": "data", "wave": "x.345x|=.x", "data": ["head", "body", "tail", "crc"]}
    ],
    {},
    {"name": "ready", "wave": "1.0.1.|.1.", "period": 1}
  ],
  "config": {"hscale": 1}
}`

func main() {
	var desc schema.Description
	if err := json.Unmarshal([]byte(handshake), &desc); err != nil {
		fmt.Fprintf(os.Stderr, "parse error: %v\n", err)
		os.Exit(1)
	}

	pool := engine.NewWorkerPool(4)
	defer pool.Shutdown()
	tr, err := engine.NewTranslator(pool, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "translator error: %v\n", err)
		os.Exit(1)
	}

	res, err := tr.Translate(context.Background(), &desc, engine.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "translate error: %v\n", err)
		os.Exit(1)
	}
	for _, e := range res.Errors {
		fmt.Fprintf(os.Stderr, "warning: %v\n", e)
	}

	outDir := filepath.Join("docs", "assets")
	os.MkdirAll(outDir, 0o755)

	// ASCII
	ascii := diagram.RenderASCII(res.Timeline)
	os.WriteFile(filepath.Join(outDir, "handshake.txt"), []byte(ascii), 0o644)
	fmt.Println("=== ASCII ===")
	fmt.Println(ascii)

	// TikZ
	tikz := diagram.RenderTikZ(res.Diagram, diagram.TikZOptions{Standalone: true})
	os.WriteFile(filepath.Join(outDir, "handshake.tex"), []byte(tikz), 0o644)
	fmt.Println("=== TikZ ===")
	fmt.Println(tikz)

	// Primitives
	prims, _ := json.MarshalIndent(res.Diagram, "", "  ")
	os.WriteFile(filepath.Join(outDir, "handshake.json"), append(prims, '\n'), 0o644)
	fmt.Printf("=== JSON: %d bytes ===\n", len(prims))

	// Image (PNG)
	f, err := os.Create(filepath.Join(outDir, "handshake.png"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "PNG error: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()
	if err := diagram.EncodePNG(f, res.Diagram, diagram.ImageOptions{}); err != nil {
		fmt.Fprintf(os.Stderr, "PNG error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("=== PNG written ===")
}

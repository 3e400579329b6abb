// Package mcp exposes the translator as MCP tools over stdio.
package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/wavetikz/internal/engine"
	"github.com/rendis/wavetikz/internal/scheduler"
	"github.com/rendis/wavetikz/pkg/schema"
)

// WaveServerDeps holds the dependencies for creating a WaveServer.
type WaveServerDeps struct {
	Renderer *engine.Renderer
	Watcher  *scheduler.Watcher // optional; enables wavetikz.watch
	Owners   *JobOwners         // optional; created when nil
	Logger   *slog.Logger
	Version  string
}

// WaveServer wraps an MCP server with the wavetikz tool handlers.
type WaveServer struct {
	renderer  *engine.Renderer
	watcher   *scheduler.Watcher
	owners    *JobOwners
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewWaveServer creates a WaveServer with its tools registered.
func NewWaveServer(deps WaveServerDeps) *WaveServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	owners := deps.Owners
	if owners == nil {
		owners = NewJobOwners()
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s := &WaveServer{
		renderer: deps.Renderer,
		watcher:  deps.Watcher,
		owners:   owners,
		logger:   logger,
	}

	mcpSrv := server.NewMCPServer(
		"wavetikz",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("wavetikz draws digital timing diagrams from WaveJSON. Use wavetikz.render to produce TikZ, JSON primitives, an ASCII preview or a PNG; wavetikz.decode to inspect how one wave string is read; wavetikz.validate to check a document before rendering; wavetikz.watch to re-render a file whenever it changes."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *WaveServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *WaveServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// Owners returns the job ownership used to route watch notifications.
func (s *WaveServer) Owners() *JobOwners {
	return s.owners
}

func (s *WaveServer) tools() []server.ServerTool {
	tools := []server.ServerTool{
		{Tool: renderTool(), Handler: s.handleRender},
		{Tool: decodeTool(), Handler: s.handleDecode},
		{Tool: validateTool(), Handler: s.handleValidate},
	}
	if s.watcher != nil {
		tools = append(tools, server.ServerTool{Tool: watchTool(), Handler: s.handleWatch})
	}
	return tools
}

// --- Tool definitions ---

func renderTool() mcp.Tool {
	return mcp.NewTool("wavetikz.render",
		mcp.WithDescription("Render a WaveJSON timing diagram"),
		mcp.WithObject("description", mcp.Description("WaveJSON document ({signal: [...], config: {...}})")),
		mcp.WithString("document", mcp.Description("WaveJSON document as JSON text; alternative to description")),
		mcp.WithString("select", mcp.Description("jq query picking the diagram out of document")),
		mcp.WithString("format",
			mcp.Enum("tikz", "json", "ascii", "png"),
			mcp.Description("Output format (default: tikz). png is returned base64-encoded"),
		),
		mcp.WithString("filter", mcp.Description("CEL predicate over signal.name, signal.wave, signal.group, signal.index selecting rows")),
		mcp.WithString("label_format", mcp.Description("Expr expression over label, index and signal rewriting data labels")),
		mcp.WithString("gap_glyph", mcp.Enum("slash", "line"), mcp.Description("How gaps are drawn (default: slash)")),
		mcp.WithBoolean("strict", mcp.Description("Fail on the first signal that cannot be decoded")),
		mcp.WithBoolean("standalone", mcp.Description("Wrap TikZ output in a compilable standalone document")),
		mcp.WithBoolean("no_cache", mcp.Description("Bypass the rendering cache")),
	)
}

func decodeTool() mcp.Tool {
	return mcp.NewTool("wavetikz.decode",
		mcp.WithDescription("Decode one wave string into cycle states"),
		mcp.WithString("wave", mcp.Required(), mcp.Description("Wave string, e.g. p..|.. or x=.=x")),
		mcp.WithString("name", mcp.Description("Signal name used in error messages")),
		mcp.WithArray("data", mcp.Description("Data-bus labels in segment order"), mcp.WithStringItems()),
		mcp.WithNumber("period", mcp.Description("Cycles per wave character (default: 1)"), mcp.Min(1), mcp.Max(schema.MaxCycles)),
	)
}

func validateTool() mcp.Tool {
	return mcp.NewTool("wavetikz.validate",
		mcp.WithDescription("Validate and lint a WaveJSON document"),
		mcp.WithObject("description", mcp.Description("WaveJSON document")),
		mcp.WithString("document", mcp.Description("WaveJSON document as JSON text; alternative to description")),
		mcp.WithString("select", mcp.Description("jq query picking the diagram out of document")),
	)
}

func watchTool() mcp.Tool {
	return mcp.NewTool("wavetikz.watch",
		mcp.WithDescription("Re-render a WaveJSON file whenever it changes"),
		mcp.WithString("source_path", mcp.Required(), mcp.Description("WaveJSON file to watch")),
		mcp.WithString("output_path", mcp.Required(), mcp.Description("File the rendering is written to")),
		mcp.WithString("format", mcp.Enum("tikz", "json", "ascii", "png"), mcp.Description("Output format (default: from output_path extension)")),
		mcp.WithString("schedule", mcp.Description("Cron expression or descriptor for checks (default: @every 2s)")),
	)
}

package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/wavetikz/internal/diagram"
	"github.com/rendis/wavetikz/internal/engine"
	"github.com/rendis/wavetikz/internal/source"
	"github.com/rendis/wavetikz/internal/wave"
	"github.com/rendis/wavetikz/pkg/schema"
)

const defaultWatchSchedule = "@every 2s"

// renderResponse is the JSON body of a wavetikz.render result.
type renderResponse struct {
	RequestID string                 `json:"request_id"`
	Format    engine.Format          `json:"format"`
	Output    string                 `json:"output"`
	Encoding  string                 `json:"encoding,omitempty"`
	Cached    bool                   `json:"cached"`
	CacheKey  string                 `json:"cache_key"`
	Rows      int                    `json:"rows,omitempty"`
	Cycles    int                    `json:"cycles,omitempty"`
	Errors    []*schema.WaveError    `json:"errors,omitempty"`
	Warnings  []*schema.GrammarError `json:"warnings,omitempty"`
}

// handleRender translates a document and returns the written output.
func (s *WaveServer) handleRender(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format, err := engine.ParseFormat(req.GetString("format", string(engine.FormatTikZ)))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	doc, errResult := s.loadDocument(ctx, req)
	if errResult != nil {
		return errResult, nil
	}

	opts := engine.RenderOptions{
		Options: engine.Options{
			Filter:      req.GetString("filter", ""),
			LabelFormat: req.GetString("label_format", ""),
			Strict:      req.GetBool("strict", false),
		},
		Format:  format,
		TikZ:    diagram.TikZOptions{Standalone: req.GetBool("standalone", false)},
		NoCache: req.GetBool("no_cache", false),
	}
	if glyph := req.GetString("gap_glyph", ""); glyph != "" {
		geom := schema.DefaultGeometry()
		geom.GapGlyph = schema.GapGlyphStyle(glyph)
		opts.Geometry = &geom
	}

	rendering, err := s.renderer.Render(ctx, doc.Description, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("render failed: %v", err)), nil
	}

	resp := renderResponse{
		RequestID: rendering.RequestID,
		Format:    rendering.Format,
		Output:    string(rendering.Output),
		Cached:    rendering.Cached,
		CacheKey:  rendering.CacheKey,
	}
	if format == engine.FormatPNG {
		resp.Output = base64.StdEncoding.EncodeToString(rendering.Output)
		resp.Encoding = "base64"
	}
	if res := rendering.Result; res != nil {
		resp.Rows = len(res.Timeline.Rows)
		resp.Cycles = res.Timeline.Cycles
		resp.Errors = res.Errors
		resp.Warnings = res.Warnings
	}
	return marshalResult(resp)
}

// handleDecode decodes a single wave string.
func (s *WaveServer) handleDecode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	waveStr, err := req.RequireString("wave")
	if err != nil {
		return mcp.NewToolResultError("wave is required"), nil
	}
	name := req.GetString("name", "")
	labels := req.GetStringSlice("data", nil)
	period := int(req.GetFloat("period", 1))

	trace, err := wave.DecodeWithOptions(name, waveStr, labels, wave.Options{Period: period})
	if err != nil {
		var gerr *schema.GrammarError
		if errors.As(err, &gerr) {
			return marshalError(gerr.ToWaveError())
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return marshalResult(trace)
}

// handleValidate runs schema validation and lint on a document.
func (s *WaveServer) handleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, errResult := s.loadDocument(ctx, req)
	if errResult != nil && doc == nil {
		return errResult, nil
	}
	return marshalResult(map[string]any{
		"valid":    doc.Result.Valid(),
		"errors":   doc.Result.Errors,
		"warnings": doc.Result.Warnings,
	})
}

// handleWatch registers a watch job for the calling session.
func (s *WaveServer) handleWatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src, err := req.RequireString("source_path")
	if err != nil {
		return mcp.NewToolResultError("source_path is required"), nil
	}
	out, err := req.RequireString("output_path")
	if err != nil {
		return mcp.NewToolResultError("output_path is required"), nil
	}
	format := req.GetString("format", "")
	if format != "" {
		if _, err := engine.ParseFormat(format); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	schedule := req.GetString("schedule", defaultWatchSchedule)

	job, err := s.watcher.Watch(ctx, src, out, format, schedule)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("watch failed: %v", err)), nil
	}
	if session := server.ClientSessionFromContext(ctx); session != nil {
		s.owners.Claim(job.ID, session.SessionID())
	}
	return marshalResult(job)
}

// loadDocument reads the description from either the description object or
// the document text. The returned result is non-nil when loading failed; doc
// is still returned when only validation failed.
func (s *WaveServer) loadDocument(ctx context.Context, req mcp.CallToolRequest) (*source.Document, *mcp.CallToolResult) {
	var data []byte
	args := req.GetArguments()
	switch {
	case args["description"] != nil:
		b, err := json.Marshal(args["description"])
		if err != nil {
			return nil, mcp.NewToolResultError(fmt.Sprintf("description is not JSON: %v", err))
		}
		data = b
	case req.GetString("document", "") != "":
		data = []byte(req.GetString("document", ""))
	default:
		return nil, mcp.NewToolResultError("one of description or document is required")
	}

	doc, err := s.renderer.Loader().Load(ctx, data, req.GetString("select", ""))
	if err != nil {
		res, _ := marshalError(err)
		return doc, res
	}
	return doc, nil
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}

// marshalError returns a tool error carrying the structured error as JSON.
func marshalError(err error) (*mcp.CallToolResult, error) {
	var werr *schema.WaveError
	if !errors.As(err, &werr) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, mErr := json.Marshal(werr)
	if mErr != nil {
		return mcp.NewToolResultError(werr.Error()), nil
	}
	return mcp.NewToolResultError(string(data)), nil
}

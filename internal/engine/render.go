package engine

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/rendis/wavetikz/internal/diagram"
	"github.com/rendis/wavetikz/internal/logging"
	"github.com/rendis/wavetikz/internal/source"
	"github.com/rendis/wavetikz/internal/store"
	"github.com/rendis/wavetikz/pkg/schema"
)

// Format is an output dialect.
type Format string

const (
	FormatTikZ  Format = "tikz"
	FormatJSON  Format = "json"
	FormatASCII Format = "ascii"
	FormatPNG   Format = "png"
)

// ParseFormat accepts a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTikZ, FormatJSON, FormatASCII, FormatPNG:
		return f, nil
	case "tex":
		return FormatTikZ, nil
	case "txt", "text":
		return FormatASCII, nil
	default:
		return "", schema.NewErrorf(schema.ErrCodeValidation, "unknown output format %q", s)
	}
}

// FormatForPath guesses the format from an output file extension, falling
// back to TikZ.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return FormatPNG
	case ".json":
		return FormatJSON
	case ".txt":
		return FormatASCII
	default:
		return FormatTikZ
	}
}

// RenderOptions extend translation options with writer settings.
type RenderOptions struct {
	Options
	Format  Format
	TikZ    diagram.TikZOptions
	Image   diagram.ImageOptions
	NoCache bool
}

// Rendering is a written diagram. Result is nil when Output came from the
// cache.
type Rendering struct {
	RequestID string  `json:"request_id"`
	Format    Format  `json:"format"`
	Output    []byte  `json:"-"`
	CacheKey  string  `json:"cache_key"`
	Cached    bool    `json:"cached"`
	Result    *Result `json:"result,omitempty"`
}

// Cache stores written diagrams by content hash. store.LibSQLStore
// satisfies it.
type Cache interface {
	GetRendering(ctx context.Context, cacheKey string) (*store.Rendering, error)
	PutRendering(ctx context.Context, r *store.Rendering) error
}

// Renderer translates descriptions and writes them in an output format,
// consulting the cache first when one is configured.
type Renderer struct {
	translator *Translator
	cache      Cache
	loader     *source.Loader
	logger     *slog.Logger
}

// NewRenderer creates a Renderer. cache may be nil.
func NewRenderer(t *Translator, cache Cache, logger *slog.Logger) (*Renderer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	loader, err := source.NewLoader(logger)
	if err != nil {
		return nil, err
	}
	return &Renderer{translator: t, cache: cache, loader: loader, logger: logger}, nil
}

// Translator returns the underlying translator.
func (r *Renderer) Translator() *Translator {
	return r.translator
}

// Loader returns the source loader used by RenderFile.
func (r *Renderer) Loader() *source.Loader {
	return r.loader
}

// Render translates desc and writes it. Translations with per-signal errors
// are returned but never cached.
func (r *Renderer) Render(ctx context.Context, desc *schema.Description, opts RenderOptions) (*Rendering, error) {
	if opts.Format == "" {
		opts.Format = FormatTikZ
	}
	f, err := ParseFormat(string(opts.Format))
	if err != nil {
		return nil, err
	}
	opts.Format = f

	key, err := cacheKey(desc, opts)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeRender, "cannot hash description").WithCause(err)
	}

	useCache := r.cache != nil && !opts.NoCache
	if useCache {
		if hit := r.lookup(ctx, key); hit != nil {
			return &Rendering{
				RequestID: hit.RequestID,
				Format:    opts.Format,
				Output:    hit.Output,
				CacheKey:  key,
				Cached:    true,
			}, nil
		}
	}

	res, err := r.translator.Translate(ctx, desc, opts.Options)
	if err != nil {
		return nil, err
	}

	out, err := write(res, opts)
	if err != nil {
		return nil, err
	}

	rendering := &Rendering{
		RequestID: res.RequestID,
		Format:    opts.Format,
		Output:    out,
		CacheKey:  key,
		Result:    res,
	}

	if useCache && len(res.Errors) == 0 {
		err := r.cache.PutRendering(ctx, &store.Rendering{
			CacheKey:    key,
			Format:      string(opts.Format),
			Output:      out,
			RequestID:   res.RequestID,
			SignalCount: res.Timeline.SignalRows(),
			CycleCount:  res.Timeline.Cycles,
		})
		if err != nil {
			r.logger.WarnContext(logging.WithRequestID(ctx, res.RequestID), "cache write failed",
				slog.String("error", err.Error()))
		}
	}
	return rendering, nil
}

func (r *Renderer) lookup(ctx context.Context, key string) *store.Rendering {
	hit, err := r.cache.GetRendering(ctx, key)
	if err == nil {
		r.logger.DebugContext(ctx, "cache hit", slog.String("cache_key", key))
		return hit
	}
	var werr *schema.WaveError
	if !errors.As(err, &werr) || werr.Code != schema.ErrCodeNotFound {
		r.logger.WarnContext(ctx, "cache read failed", slog.String("error", err.Error()))
	}
	return nil
}

// RenderFile re-renders a watched source into its output file. It satisfies
// scheduler.FileRenderer.
func (r *Renderer) RenderFile(ctx context.Context, job *store.WatchJob) error {
	format := FormatForPath(job.OutputPath)
	if job.Format != "" {
		f, err := ParseFormat(job.Format)
		if err != nil {
			return err
		}
		format = f
	}

	doc, err := r.loader.LoadFile(ctx, job.SourcePath, "")
	if err != nil {
		return err
	}

	rendering, err := r.Render(ctx, doc.Description, RenderOptions{
		Format: format,
		TikZ:   diagram.TikZOptions{Standalone: true},
	})
	if err != nil {
		return err
	}
	if err := WriteFileAtomic(job.OutputPath, rendering.Output); err != nil {
		return err
	}
	if res := rendering.Result; res != nil && len(res.Errors) > 0 {
		return fmt.Errorf("%d signals failed to decode: %w", len(res.Errors), res.Errors[0])
	}
	return nil
}

// WriteFileAtomic replaces path with data via a temporary file in the same
// directory, so readers never see a partial diagram.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return schema.NewError(schema.ErrCodeRender, "create output").WithCause(err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return schema.NewError(schema.ErrCodeRender, "write output").WithCause(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return schema.NewError(schema.ErrCodeRender, "write output").WithCause(err)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return schema.NewError(schema.ErrCodeRender, "replace output").WithCause(err)
	}
	return nil
}

// write produces the output bytes for the requested format.
func write(res *Result, opts RenderOptions) ([]byte, error) {
	switch opts.Format {
	case FormatTikZ:
		return []byte(diagram.RenderTikZ(res.Diagram, opts.TikZ)), nil
	case FormatASCII:
		return []byte(diagram.RenderASCII(res.Timeline)), nil
	case FormatJSON:
		out, err := json.MarshalIndent(res.Diagram, "", "  ")
		if err != nil {
			return nil, schema.NewError(schema.ErrCodeRender, "encode diagram").WithCause(err)
		}
		return append(out, '\n'), nil
	case FormatPNG:
		var buf bytes.Buffer
		if err := diagram.EncodePNG(&buf, res.Diagram, opts.Image); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown output format %q", opts.Format)
	}
}

// cacheKey hashes everything that influences the output bytes.
func cacheKey(desc *schema.Description, opts RenderOptions) (string, error) {
	geom := schema.DefaultGeometry()
	if opts.Geometry != nil {
		geom = *opts.Geometry
	}
	payload := struct {
		Description *schema.Description  `json:"description"`
		Geometry    schema.Geometry      `json:"geometry"`
		Filter      string               `json:"filter,omitempty"`
		LabelFormat string               `json:"label_format,omitempty"`
		Strict      bool                 `json:"strict,omitempty"`
		Format      Format               `json:"format"`
		TikZ        diagram.TikZOptions  `json:"tikz"`
		Image       diagram.ImageOptions `json:"image"`
	}{desc, geom, opts.Filter, opts.LabelFormat, opts.Strict, opts.Format, opts.TikZ, opts.Image}

	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

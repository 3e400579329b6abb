// Package engine runs the translation pipeline: every signal of a description
// is decoded on a bounded worker pool, the decoded traces are folded into one
// timeline, and the timeline is rendered into an ordered primitive list.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rendis/wavetikz/internal/diagram"
	"github.com/rendis/wavetikz/internal/expressions"
	"github.com/rendis/wavetikz/internal/logging"
	"github.com/rendis/wavetikz/internal/timeline"
	"github.com/rendis/wavetikz/internal/wave"
	"github.com/rendis/wavetikz/pkg/schema"
)

// Options control one translation.
type Options struct {
	// Geometry overrides the default grid. The document's hscale is applied
	// on top of it.
	Geometry *schema.Geometry
	// Filter is a CEL predicate over `signal` (name, wave, group, index).
	// Rows for which it is false are dropped. Spacers are always kept.
	Filter string
	// LabelFormat is an Expr expression over `label`, `index` and `signal`
	// whose result replaces each data label.
	LabelFormat string
	// Strict turns the first per-signal grammar error into a failure of the
	// whole translation.
	Strict bool
}

// Result is the outcome of a translation. Errors lists the signals that
// failed to decode; those rows are drawn as undefined. Warnings lists soft
// grammar problems such as data segments without a label.
type Result struct {
	RequestID string                 `json:"request_id"`
	Diagram   *diagram.Diagram       `json:"diagram"`
	Timeline  *timeline.Timeline     `json:"-"`
	Traces    []*wave.Trace          `json:"traces"`
	Errors    []*schema.WaveError    `json:"errors,omitempty"`
	Warnings  []*schema.GrammarError `json:"warnings,omitempty"`
}

// Translator turns description documents into diagrams. It is safe for
// concurrent use; translations share the worker pool and the compiled
// expression caches but nothing else.
type Translator struct {
	pool   *WorkerPool
	cel    *expressions.CELEngine
	expr   *expressions.ExprEngine
	logger *slog.Logger
}

// NewTranslator creates a translator decoding on pool.
func NewTranslator(pool *WorkerPool, logger *slog.Logger) (*Translator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	celEngine, err := expressions.NewCELEngine()
	if err != nil {
		return nil, fmt.Errorf("init cel: %w", err)
	}
	return &Translator{
		pool:   pool,
		cel:    celEngine,
		expr:   expressions.NewExprEngine(),
		logger: logger,
	}, nil
}

// row is one decode slot. Results are written by index so output order never
// depends on scheduling.
type row struct {
	flat  schema.FlatSignal
	trace *wave.Trace
	err   *schema.WaveError
}

// Translate runs the full pipeline on desc.
func (t *Translator) Translate(ctx context.Context, desc *schema.Description, opts Options) (*Result, error) {
	start := time.Now()
	requestID := uuid.New().String()
	ctx = logging.WithRequestID(ctx, requestID)
	log := logging.LogWith(ctx, t.logger)

	if desc == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "description is nil")
	}

	geom := schema.DefaultGeometry()
	if opts.Geometry != nil {
		geom = *opts.Geometry
	}
	geom = geom.Scaled(desc.HScale())
	if err := geom.Validate(); err != nil {
		return nil, err
	}

	rows, err := t.selectRows(ctx, desc.Flatten(), opts.Filter)
	if err != nil {
		return nil, err
	}

	if err := t.decode(ctx, rows, opts.LabelFormat); err != nil {
		return nil, err
	}

	res := &Result{RequestID: requestID, Traces: make([]*wave.Trace, len(rows))}
	for i, r := range rows {
		res.Traces[i] = r.trace
		if r.err != nil {
			if opts.Strict {
				return nil, r.err
			}
			res.Errors = append(res.Errors, r.err)
		}
		if r.trace != nil {
			res.Warnings = append(res.Warnings, r.trace.Warnings...)
		}
	}

	tl, err := timeline.Build(res.Traces, geom)
	if err != nil {
		return nil, err
	}
	d, err := diagram.Build(tl)
	if err != nil {
		log.Error("render failed", slog.String("error", err.Error()))
		return nil, err
	}
	res.Timeline = tl
	res.Diagram = d

	log.Info("translated",
		slog.Int("rows", len(tl.Rows)),
		slog.Int("cycles", tl.Cycles),
		slog.Int("gaps", len(tl.Gaps)),
		slog.Int("primitives", len(d.Primitives)),
		slog.Int("errors", len(res.Errors)),
		slog.Int("warnings", len(res.Warnings)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// selectRows applies the row filter. Kept rows are renumbered so the index
// seen by label formats matches the drawn row.
func (t *Translator) selectRows(ctx context.Context, flat []schema.FlatSignal, filter string) ([]*row, error) {
	rows := make([]*row, 0, len(flat))
	for _, f := range flat {
		if filter != "" && !f.Spacer() {
			keep, err := t.cel.Match(ctx, filter, signalVars(f))
			if err != nil {
				return nil, fmt.Errorf("filter: %w", err)
			}
			if !keep {
				continue
			}
		}
		f.Index = len(rows)
		rows = append(rows, &row{flat: f})
	}
	return rows, nil
}

// decode decodes every signal row on the pool. Wait is the barrier the
// timeline needs: all traces exist once it returns.
func (t *Translator) decode(ctx context.Context, rows []*row, labelFormat string) error {
	batch := t.pool.NewBatch()
	for _, r := range rows {
		if r.flat.Spacer() {
			continue
		}
		if err := batch.Submit(ctx, func(ctx context.Context) error {
			t.decodeRow(logging.WithSignal(ctx, r.flat.Signal.Name), r, labelFormat)
			return nil
		}); err != nil {
			batch.Wait()
			return fmt.Errorf("schedule decode: %w", err)
		}
	}
	if err := batch.Wait(); err != nil {
		return schema.NewError(schema.ErrCodeGrammar, "decoder failed").WithCause(err)
	}
	return nil
}

// decodeRow never fails the batch: a bad signal, panics included, is
// recorded on its slot and drawn as an undefined row.
func (t *Translator) decodeRow(ctx context.Context, r *row, labelFormat string) {
	sig := r.flat.Signal
	labels := []string(sig.Data)

	defer func() {
		if p := recover(); p != nil {
			logging.LogWith(ctx, t.logger).Error("signal decode panicked", slog.Any("panic", p))
			r.trace = &wave.Trace{Name: sig.Name, Group: r.flat.Group}
			r.err = schema.NewErrorf(schema.ErrCodeGrammar, "decode panicked: %v", p).WithSignal(sig.Name)
		}
	}()

	if labelFormat != "" && len(labels) > 0 {
		formatted, err := t.formatLabels(ctx, labelFormat, labels, signalVars(r.flat))
		if err != nil {
			r.trace = &wave.Trace{Name: sig.Name, Group: r.flat.Group}
			r.err = expressionError(err).WithSignal(sig.Name)
			return
		}
		labels = formatted
	}

	trace, err := wave.DecodeWithOptions(sig.Name, sig.Wave, labels, wave.Options{
		Period: sig.Period,
		Group:  r.flat.Group,
		Phase:  sig.Phase,
	})
	if err != nil {
		logging.LogWith(ctx, t.logger).Warn("signal not decoded", slog.String("error", err.Error()))
		r.trace = &wave.Trace{Name: sig.Name, Group: r.flat.Group}
		var gerr *schema.GrammarError
		if errors.As(err, &gerr) {
			r.err = gerr.ToWaveError()
		} else {
			r.err = schema.NewError(schema.ErrCodeGrammar, err.Error()).WithSignal(sig.Name).WithCause(err)
		}
		return
	}
	r.trace = trace
}

// formatLabels rewrites a copy of labels; the description is never mutated.
func (t *Translator) formatLabels(ctx context.Context, expression string, labels []string, vars map[string]any) ([]string, error) {
	out := make([]string, len(labels))
	for i, l := range labels {
		s, err := t.expr.FormatLabel(ctx, expression, l, i, vars)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func signalVars(f schema.FlatSignal) map[string]any {
	return expressions.SignalVars(f.Signal.Name, f.Signal.Wave, f.Group, f.Index)
}

func expressionError(err error) *schema.WaveError {
	var werr *schema.WaveError
	if errors.As(err, &werr) {
		return werr
	}
	return schema.NewError(schema.ErrCodeExpression, err.Error()).WithCause(err)
}

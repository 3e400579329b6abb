// Package source turns source documents into validated descriptions.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/rendis/wavetikz/internal/expressions"
	"github.com/rendis/wavetikz/internal/logging"
	"github.com/rendis/wavetikz/internal/validation"
	"github.com/rendis/wavetikz/pkg/schema"
)

// Document is a loaded description plus everything validation found.
type Document struct {
	Description *schema.Description
	Result      *schema.ValidationResult
}

// Loader reads WaveJSON documents. A jq query may pick the description out
// of a larger JSON document, e.g. `.diagrams.handshake`.
type Loader struct {
	validator *validation.DocumentValidator
	jq        *expressions.GoJQEngine
	logger    *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(logger *slog.Logger) (*Loader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	v, err := validation.NewDocumentValidator()
	if err != nil {
		return nil, fmt.Errorf("init validator: %w", err)
	}
	return &Loader{
		validator: v,
		jq:        expressions.NewGoJQEngine(),
		logger:    logger,
	}, nil
}

// Load validates data and decodes it. A non-empty query must yield exactly
// one JSON value. The returned error is a VALIDATION_ERROR carrying every
// issue whenever the document cannot be rendered; the Document is still
// returned so callers can report the issues individually.
func (l *Loader) Load(ctx context.Context, data []byte, query string) (*Document, error) {
	var (
		desc *schema.Description
		res  *schema.ValidationResult
	)

	if query == "" {
		desc, res = l.validator.Validate(data)
	} else {
		selected, err := l.selectDocument(ctx, data, query)
		if err != nil {
			return nil, err
		}
		desc, res = l.validator.ValidateValue(selected)
	}

	doc := &Document{Description: desc, Result: res}
	logging.LogWith(ctx, l.logger).Debug("source loaded",
		slog.Int("errors", len(res.Errors)),
		slog.Int("warnings", len(res.Warnings)),
	)
	if desc == nil {
		return doc, res.ToError()
	}
	return doc, nil
}

// LoadFile reads and loads the document at path.
func (l *Loader) LoadFile(ctx context.Context, path, query string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "read source %s: %s", path, err.Error()).WithCause(err)
	}
	return l.Load(logging.WithSource(ctx, path), data, query)
}

func (l *Loader) selectDocument(ctx context.Context, data []byte, query string) (any, error) {
	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "invalid JSON").WithCause(err)
	}
	results, err := l.jq.Select(ctx, query, input)
	if err != nil {
		return nil, err
	}
	if len(results) != 1 {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"select %q produced %d values, want 1", query, len(results)).
			WithDetails(map[string]any{"query": query, "count": len(results)})
	}
	return results[0], nil
}

package schema

import "fmt"

// Error codes for structured error reporting.
const (
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeGrammar    = "GRAMMAR_ERROR"
	ErrCodeGeometry   = "GEOMETRY_ERROR"
	ErrCodeExpression = "EXPRESSION_ERROR"
	ErrCodeRender     = "RENDER_ERROR"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeStore      = "STORE_ERROR"
)

// WaveError is the structured error type for all wavetikz operations.
type WaveError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Signal  string         `json:"signal,omitempty"`
	Cause   error          `json:"-"`
}

func (e *WaveError) Error() string {
	if e.Signal != "" {
		return fmt.Sprintf("[%s] signal %s: %s", e.Code, e.Signal, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *WaveError) Unwrap() error {
	return e.Cause
}

// NewError creates a new WaveError.
func NewError(code, message string) *WaveError {
	return &WaveError{Code: code, Message: message}
}

// NewErrorf creates a new WaveError with a formatted message.
func NewErrorf(code, format string, args ...any) *WaveError {
	return &WaveError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithSignal attaches a signal name to the error.
func (e *WaveError) WithSignal(name string) *WaveError {
	e.Signal = name
	return e
}

// WithCause attaches an underlying cause.
func (e *WaveError) WithCause(err error) *WaveError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *WaveError) WithDetails(details map[string]any) *WaveError {
	e.Details = details
	return e
}

// GrammarReason classifies a wave-string decoding problem.
type GrammarReason string

const (
	ReasonUnknownSymbol      GrammarReason = "unknown_symbol"
	ReasonMissingPredecessor GrammarReason = "missing_predecessor"
	ReasonLabelsExhausted    GrammarReason = "labels_exhausted"
	ReasonPeriodOutOfRange   GrammarReason = "period_out_of_range"
)

// GrammarError reports a problem decoding one signal's wave string.
// Position is the zero-based character offset in the wave string.
type GrammarError struct {
	Signal   string        `json:"signal"`
	Reason   GrammarReason `json:"reason"`
	Symbol   string        `json:"symbol"`
	Position int           `json:"position"`
}

func (e *GrammarError) Error() string {
	switch e.Reason {
	case ReasonUnknownSymbol:
		return fmt.Sprintf("signal %q: unknown wave symbol %q at position %d", e.Signal, e.Symbol, e.Position)
	case ReasonMissingPredecessor:
		return fmt.Sprintf("signal %q: %q at position %d has no preceding state to continue", e.Signal, e.Symbol, e.Position)
	case ReasonLabelsExhausted:
		return fmt.Sprintf("signal %q: data segment at position %d has no label", e.Signal, e.Position)
	case ReasonPeriodOutOfRange:
		return fmt.Sprintf("signal %q: wave and period exceed %d cycles", e.Signal, MaxCycles)
	default:
		return fmt.Sprintf("signal %q: grammar error at position %d", e.Signal, e.Position)
	}
}

// Soft reports whether the problem still allows the signal to be drawn.
func (e *GrammarError) Soft() bool {
	return e.Reason == ReasonLabelsExhausted
}

// ToWaveError converts the grammar error to a WaveError for transport.
func (e *GrammarError) ToWaveError() *WaveError {
	return NewError(ErrCodeGrammar, e.Error()).
		WithSignal(e.Signal).
		WithCause(e).
		WithDetails(map[string]any{
			"reason":   string(e.Reason),
			"symbol":   e.Symbol,
			"position": e.Position,
		})
}

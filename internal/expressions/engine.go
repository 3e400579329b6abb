package expressions

import "context"

// Engine evaluates user expressions against waveform data.
// Three implementations: CEL (row filters), Expr (label formatting),
// GoJQ (document selection).
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}

// SignalVars builds the variables a row filter or label format sees for one
// signal row.
func SignalVars(name, wave, group string, index int) map[string]any {
	return map[string]any{
		"name":  name,
		"wave":  wave,
		"group": group,
		"index": int64(index),
	}
}

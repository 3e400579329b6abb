package validation

import (
	"errors"
	"fmt"

	"github.com/rendis/wavetikz/internal/wave"
	"github.com/rendis/wavetikz/pkg/schema"
)

// Lint codes.
const (
	LintDuplicateName = "DUPLICATE_NAME"
	LintUnusedLabels  = "UNUSED_LABELS"
	LintIgnored       = "IGNORED_FIELD"
	LintEmptyWave     = "EMPTY_WAVE"
)

// Lint decodes every signal of desc and reports what would go wrong when
// drawing it. Hard grammar errors are errors; everything else is a warning.
func Lint(desc *schema.Description) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	if desc == nil {
		result.AddError("/", schema.ErrCodeValidation, "description is nil")
		return result
	}

	seen := make(map[string]string)
	for _, row := range desc.Flatten() {
		if row.Spacer() {
			continue
		}
		lintSignal(row, seen, result)
	}

	if len(desc.Edge) > 0 {
		result.AddWarning("edge", LintIgnored,
			fmt.Sprintf("%d edge annotations are not rendered", len(desc.Edge)))
	}
	return result
}

func lintSignal(row schema.FlatSignal, seen map[string]string, result *schema.ValidationResult) {
	sig := row.Signal
	path := fmt.Sprintf("signal/%d", row.Index)

	if sig.Name != "" {
		if first, dup := seen[sig.Name]; dup {
			result.AddWarning(path+"/name", LintDuplicateName,
				fmt.Sprintf("signal name %q already used at %s", sig.Name, first))
		} else {
			seen[sig.Name] = path
		}
	}
	if sig.Node != "" {
		result.AddWarning(path+"/node", LintIgnored, fmt.Sprintf("signal %q: node markers are not rendered", sig.Name))
	}
	if sig.Wave == "" {
		result.AddWarning(path+"/wave", LintEmptyWave, fmt.Sprintf("signal %q has an empty wave and renders undefined", sig.Name))
		return
	}

	trace, err := wave.DecodeWithOptions(sig.Name, sig.Wave, sig.Data, wave.Options{Period: sig.Period})
	if err != nil {
		var gerr *schema.GrammarError
		if errors.As(err, &gerr) {
			result.AddGrammar(path+"/wave", gerr)
		} else {
			result.AddError(path+"/wave", schema.ErrCodeGrammar, err.Error())
		}
		return
	}

	for _, w := range trace.Warnings {
		result.AddGrammar(path+"/data", w)
	}
	if extra := len(sig.Data) - trace.Segments; extra > 0 {
		result.AddWarning(path+"/data", LintUnusedLabels,
			fmt.Sprintf("signal %q: %d data labels for %d segments; %d unused", sig.Name, len(sig.Data), trace.Segments, extra))
	}
}

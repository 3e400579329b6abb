package expressions

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/wavetikz/pkg/schema"
)

func TestNewCELEngine(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)
	assert.Equal(t, "cel", e.Name())
}

func TestCEL_Match(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		expr string
		want bool
	}{
		{`signal.name == "clk"`, true},
		{`signal.name.startsWith("cl")`, true},
		{`signal.index > 0`, false},
		{`signal.group == "" && signal.wave.contains("p")`, true},
		{`"x" in signal && false`, false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := e.Match(ctx, tt.expr, SignalVars("clk", "p...", "", 0))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCEL_MatchNonBool(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)

	_, err = e.Match(context.Background(), `signal.name`, SignalVars("clk", "p", "", 0))
	require.Error(t, err)
	var werr *schema.WaveError
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, schema.ErrCodeExpression, werr.Code)
}

func TestCEL_CompileError(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)

	err = e.Check(`signal.name ==`)
	require.Error(t, err)
	var werr *schema.WaveError
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, schema.ErrCodeValidation, werr.Code)
	assert.Equal(t, `signal.name ==`, werr.Details["expression"])

	err = e.Check(`unknown_var == 1`)
	require.Error(t, err)
}

func TestCEL_EmptyExpression(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)
	_, err = e.Evaluate(context.Background(), "", nil)
	require.Error(t, err)
}

func TestCEL_MissingKeyIsRuntimeError(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)
	_, err = e.Evaluate(context.Background(), `signal.name == "a"`, nil)
	require.Error(t, err)
}

func TestCEL_CacheConcurrent(t *testing.T) {
	e, err := NewCELEngine()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := e.Match(context.Background(), `signal.index % 2 == 0`, SignalVars("s", "0", "", i))
			assert.NoError(t, err)
			assert.Equal(t, i%2 == 0, ok)
		}(i)
	}
	wg.Wait()

	e.mu.RLock()
	defer e.mu.RUnlock()
	assert.Len(t, e.cache, 1)
}

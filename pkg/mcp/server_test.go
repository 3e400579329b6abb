package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWaveServer(t *testing.T) {
	s := NewWaveServer(WaveServerDeps{})
	require.NotNil(t, s)
	assert.NotNil(t, s.mcpServer)
	assert.NotNil(t, s.logger)
	assert.NotNil(t, s.Owners())
}

func TestToolRegistration(t *testing.T) {
	s := NewWaveServer(WaveServerDeps{})
	require.Len(t, s.mcpServer.ListTools(), 3)
	for _, name := range []string{"wavetikz.render", "wavetikz.decode", "wavetikz.validate"} {
		assert.NotNil(t, s.mcpServer.GetTool(name), "tool %s should be registered", name)
	}
	assert.Nil(t, s.mcpServer.GetTool("wavetikz.watch"))

	s = newTestServer(t, true)
	require.Len(t, s.mcpServer.ListTools(), 4)
	assert.NotNil(t, s.mcpServer.GetTool("wavetikz.watch"))
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		toolName    string
		description string
	}{
		{"wavetikz.render", "Render a WaveJSON timing diagram"},
		{"wavetikz.decode", "Decode one wave string into cycle states"},
		{"wavetikz.validate", "Validate and lint a WaveJSON document"},
		{"wavetikz.watch", "Re-render a WaveJSON file whenever it changes"},
	}

	s := newTestServer(t, true)
	for _, tc := range tests {
		t.Run(tc.toolName, func(t *testing.T) {
			tool := s.mcpServer.GetTool(tc.toolName)
			require.NotNil(t, tool)
			assert.Equal(t, tc.description, tool.Tool.Description)
		})
	}
}

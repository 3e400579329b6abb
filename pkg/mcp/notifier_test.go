package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/wavetikz/internal/store"
)

type sentNotification struct {
	session string
	method  string
	params  map[string]any
}

type fakeSender struct {
	sent []sentNotification
	err  error
}

func (f *fakeSender) SendNotificationToSpecificClient(sessionID, method string, params map[string]any) error {
	f.sent = append(f.sent, sentNotification{sessionID, method, params})
	return f.err
}

func newTestNotifier(s sender) *MCPNotifier {
	return &MCPNotifier{sender: s, owners: NewJobOwners(), logger: discardLogger()}
}

func TestMCPNotifier_SendsToOwner(t *testing.T) {
	fs := &fakeSender{}
	n := newTestNotifier(fs)
	n.owners.Claim("job-1", "session-1")

	job := &store.WatchJob{ID: "job-1", SourcePath: "a.json", OutputPath: "a.tex"}
	n.JobChecked(context.Background(), job, "rendered", nil)
	n.JobChecked(context.Background(), &store.WatchJob{ID: "job-2"}, "rendered", nil)

	require.Len(t, fs.sent, 1)
	got := fs.sent[0]
	assert.Equal(t, "session-1", got.session)
	assert.Equal(t, "notifications/message", got.method)
	assert.Equal(t, "info", got.params["level"])
	data := got.params["data"].(map[string]any)
	assert.Equal(t, "rendered", data["status"])
	assert.Equal(t, "a.tex", data["output_path"])
}

func TestMCPNotifier_ReportsError(t *testing.T) {
	fs := &fakeSender{}
	n := newTestNotifier(fs)
	n.owners.Claim("job-1", "session-1")

	n.JobChecked(context.Background(), &store.WatchJob{ID: "job-1"}, "error", errors.New("bad wave"))

	require.Len(t, fs.sent, 1)
	assert.Equal(t, "error", fs.sent[0].params["level"])
	assert.Equal(t, "bad wave", fs.sent[0].params["data"].(map[string]any)["error"])
}

func TestMCPNotifier_DropsClosedSession(t *testing.T) {
	fs := &fakeSender{err: server.ErrSessionNotFound}
	n := newTestNotifier(fs)
	n.owners.Claim("job-1", "session-1")

	n.JobChecked(context.Background(), &store.WatchJob{ID: "job-1"}, "rendered", nil)

	_, ok := n.owners.Owner("job-1")
	assert.False(t, ok)

	n.JobChecked(context.Background(), &store.WatchJob{ID: "job-1"}, "rendered", nil)
	assert.Len(t, fs.sent, 1, "a released job is not notified again")
}

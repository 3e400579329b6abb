package mcp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/wavetikz/internal/store"
)

// sender is the part of server.MCPServer the notifier uses.
type sender interface {
	SendNotificationToSpecificClient(sessionID, method string, params map[string]any) error
}

// MCPNotifier pushes watch results to the session that created the job.
// It implements scheduler.Notifier.
type MCPNotifier struct {
	sender sender
	owners *JobOwners
	logger *slog.Logger
}

// NewMCPNotifier creates a notifier sending through mcpServer.
func NewMCPNotifier(mcpServer *server.MCPServer, owners *JobOwners, logger *slog.Logger) *MCPNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &MCPNotifier{sender: mcpServer, owners: owners, logger: logger}
}

// JobChecked sends a notifications/message to the job's session. Jobs
// without a connected session are skipped.
func (n *MCPNotifier) JobChecked(ctx context.Context, job *store.WatchJob, status string, runErr error) {
	sessionID, ok := n.owners.Owner(job.ID)
	if !ok {
		return
	}

	payload := map[string]any{
		"level":  "info",
		"logger": "wavetikz.watch",
		"data": map[string]any{
			"job_id":      job.ID,
			"source_path": job.SourcePath,
			"output_path": job.OutputPath,
			"status":      status,
		},
	}
	if runErr != nil {
		payload["level"] = "error"
		payload["data"].(map[string]any)["error"] = runErr.Error()
	}

	err := n.sender.SendNotificationToSpecificClient(sessionID, "notifications/message", payload)
	if errors.Is(err, server.ErrSessionNotFound) {
		released := n.owners.Release(sessionID)
		n.logger.DebugContext(ctx, "watch session closed",
			slog.String("session_id", sessionID),
			slog.Any("job_ids", released),
		)
		return
	}
	if err != nil {
		n.logger.WarnContext(ctx, "watch notification failed",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
	}
}

// Package streaming fans watch-job outcomes out to live subscribers.
package streaming

import (
	"context"
	"time"
)

// Event reports one checked watch job.
type Event struct {
	JobID  string    `json:"job_id"`
	Source string    `json:"source_path"`
	Output string    `json:"output_path"`
	Status string    `json:"status"`
	Error  string    `json:"error,omitempty"`
	At     time.Time `json:"at"`
}

// Filter selects events. Zero values match everything.
type Filter struct {
	JobID    string   `json:"job_id,omitempty"`
	Statuses []string `json:"statuses,omitempty"`
}

// Hub provides pub/sub for watch events.
type Hub interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(ctx context.Context, filter Filter) (<-chan Event, func(), error)
}

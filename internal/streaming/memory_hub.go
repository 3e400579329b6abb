package streaming

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rendis/wavetikz/internal/store"
)

const defaultChannelBuffer = 64

type subscriber struct {
	ch     chan Event
	filter Filter
}

// MemoryHub is an in-process Hub. It also satisfies scheduler.Notifier, so a
// Watcher can publish into it directly.
type MemoryHub struct {
	mu   sync.RWMutex
	subs map[uint64]*subscriber
	seq  atomic.Uint64
	now  func() time.Time
}

// NewMemoryHub creates an empty hub.
func NewMemoryHub() *MemoryHub {
	return &MemoryHub{
		subs: make(map[uint64]*subscriber),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Publish delivers event to every matching subscriber. A subscriber whose
// buffer is full misses the event.
func (h *MemoryHub) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if !sub.filter.match(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
	return nil
}

// Subscribe registers a filtered subscription. The returned func removes it.
func (h *MemoryHub) Subscribe(ctx context.Context, filter Filter) (<-chan Event, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	id := h.seq.Add(1)
	ch := make(chan Event, defaultChannelBuffer)

	h.mu.Lock()
	h.subs[id] = &subscriber{ch: ch, filter: filter}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
	return ch, cancel, nil
}

// JobChecked publishes a watch outcome.
func (h *MemoryHub) JobChecked(ctx context.Context, job *store.WatchJob, status string, runErr error) {
	ev := Event{
		JobID:  job.ID,
		Source: job.SourcePath,
		Output: job.OutputPath,
		Status: status,
		At:     h.now(),
	}
	if runErr != nil {
		ev.Error = runErr.Error()
	}
	_ = h.Publish(ctx, ev)
}

func (f Filter) match(e Event) bool {
	if f.JobID != "" && f.JobID != e.JobID {
		return false
	}
	return len(f.Statuses) == 0 || slices.Contains(f.Statuses, e.Status)
}

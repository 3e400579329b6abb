package streaming

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/wavetikz/internal/store"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func assertQuiet(t *testing.T, ch <-chan Event) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishSubscribe(t *testing.T) {
	hub := NewMemoryHub()
	ctx := context.Background()

	ch, cancel, err := hub.Subscribe(ctx, Filter{})
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, hub.Publish(ctx, Event{JobID: "j1", Status: "rendered", Output: "bus.tex"}))

	got := receive(t, ch)
	assert.Equal(t, "j1", got.JobID)
	assert.Equal(t, "bus.tex", got.Output)
}

func TestFilter(t *testing.T) {
	hub := NewMemoryHub()
	ctx := context.Background()

	ch, cancel, err := hub.Subscribe(ctx, Filter{JobID: "j1", Statuses: []string{"error"}})
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, hub.Publish(ctx, Event{JobID: "j1", Status: "rendered"}))
	require.NoError(t, hub.Publish(ctx, Event{JobID: "j2", Status: "error"}))
	require.NoError(t, hub.Publish(ctx, Event{JobID: "j1", Status: "error", Error: "boom"}))

	got := receive(t, ch)
	assert.Equal(t, "boom", got.Error)
	assertQuiet(t, ch)
}

func TestMultipleSubscribers(t *testing.T) {
	hub := NewMemoryHub()
	ctx := context.Background()

	ch1, cancel1, err := hub.Subscribe(ctx, Filter{})
	require.NoError(t, err)
	defer cancel1()
	ch2, cancel2, err := hub.Subscribe(ctx, Filter{})
	require.NoError(t, err)
	defer cancel2()

	require.NoError(t, hub.Publish(ctx, Event{JobID: "j1", Status: "rendered"}))

	assert.Equal(t, "j1", receive(t, ch1).JobID)
	assert.Equal(t, "j1", receive(t, ch2).JobID)
}

func TestCancelSubscription(t *testing.T) {
	hub := NewMemoryHub()
	ctx := context.Background()

	ch, cancel, err := hub.Subscribe(ctx, Filter{})
	require.NoError(t, err)
	cancel()
	cancel()

	require.NoError(t, hub.Publish(ctx, Event{JobID: "j1"}))
	assertQuiet(t, ch)

	hub.mu.RLock()
	assert.Empty(t, hub.subs)
	hub.mu.RUnlock()
}

func TestSlowSubscriberDropsEvents(t *testing.T) {
	hub := NewMemoryHub()
	ctx := context.Background()

	ch, cancel, err := hub.Subscribe(ctx, Filter{})
	require.NoError(t, err)
	defer cancel()

	for range defaultChannelBuffer + 10 {
		require.NoError(t, hub.Publish(ctx, Event{JobID: "j1", Status: "rendered"}))
	}
	assert.Len(t, ch, defaultChannelBuffer)
}

func TestConcurrentPublish(t *testing.T) {
	hub := NewMemoryHub()
	ctx := context.Background()

	ch, cancel, err := hub.Subscribe(ctx, Filter{})
	require.NoError(t, err)
	defer cancel()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 4 {
				_ = hub.Publish(ctx, Event{JobID: "j1"})
			}
		}()
	}
	wg.Wait()
	assert.Len(t, ch, 32)
}

func TestCancelledContext(t *testing.T) {
	hub := NewMemoryHub()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, hub.Publish(ctx, Event{}), context.Canceled)
	_, _, err := hub.Subscribe(ctx, Filter{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJobChecked(t *testing.T) {
	hub := NewMemoryHub()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	hub.now = func() time.Time { return at }
	ctx := context.Background()

	ch, cancel, err := hub.Subscribe(ctx, Filter{})
	require.NoError(t, err)
	defer cancel()

	job := &store.WatchJob{ID: "j9", SourcePath: "bus.json", OutputPath: "bus.tex"}
	hub.JobChecked(ctx, job, "error", errors.New("2 signals failed to decode"))

	assert.Equal(t, Event{
		JobID:  "j9",
		Source: "bus.json",
		Output: "bus.tex",
		Status: "error",
		Error:  "2 signals failed to decode",
		At:     at,
	}, receive(t, ch))
}

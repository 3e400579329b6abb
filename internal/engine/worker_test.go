package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_ConcurrencyLimit(t *testing.T) {
	const size = 3
	pool := NewWorkerPool(size)
	defer pool.Shutdown()

	var current, peak int64
	var mu sync.Mutex
	for i := 0; i < 10; i++ {
		require.NoError(t, pool.Submit(context.Background(), func(ctx context.Context) error {
			c := atomic.AddInt64(&current, 1)
			mu.Lock()
			if c > peak {
				peak = c
			}
			mu.Unlock()
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt64(&current, -1)
			return nil
		}))
	}
	pool.Wait()

	assert.LessOrEqual(t, peak, int64(size))
	assert.Positive(t, peak)
	assert.Equal(t, int64(10), pool.Metrics().Completed)
}

func TestWorkerPool_Backpressure(t *testing.T) {
	pool := NewWorkerPool(1)
	defer pool.Shutdown()

	started := make(chan struct{})
	block := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func(ctx context.Context) error {
		close(started)
		<-block
		return nil
	}))
	<-started

	submitted := make(chan struct{})
	go func() {
		_ = pool.Submit(context.Background(), func(ctx context.Context) error { return nil })
		close(submitted)
	}()

	select {
	case <-submitted:
		t.Fatal("second submit should block while the pool is full")
	case <-time.After(50 * time.Millisecond):
	}

	close(block)
	select {
	case <-submitted:
	case <-time.After(time.Second):
		t.Fatal("second submit did not unblock")
	}
	pool.Wait()
}

func TestWorkerPool_PanicRecovery(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Shutdown()

	require.NoError(t, pool.Submit(context.Background(), func(ctx context.Context) error {
		panic("boom")
	}))
	pool.Wait()

	m := pool.Metrics()
	assert.Equal(t, int64(1), m.Panics)
	assert.Equal(t, int64(1), m.Failed)

	var ran int64
	require.NoError(t, pool.Submit(context.Background(), func(ctx context.Context) error {
		atomic.AddInt64(&ran, 1)
		return nil
	}))
	pool.Wait()
	assert.Equal(t, int64(1), atomic.LoadInt64(&ran))
}

func TestWorkerPool_ContextCancellation(t *testing.T) {
	pool := NewWorkerPool(1)
	defer pool.Shutdown()

	block := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func(ctx context.Context) error {
		<-block
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- pool.Submit(ctx, func(ctx context.Context) error { return nil })
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("submit did not return after cancellation")
	}

	close(block)
	pool.Wait()
}

func TestWorkerPool_Shutdown(t *testing.T) {
	pool := NewWorkerPool(2)

	var completed int64
	for i := 0; i < 5; i++ {
		require.NoError(t, pool.Submit(context.Background(), func(ctx context.Context) error {
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt64(&completed, 1)
			return nil
		}))
	}
	pool.Shutdown()
	pool.Shutdown()

	assert.Equal(t, int64(5), atomic.LoadInt64(&completed))
	err := pool.Submit(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrPoolShutdown)
}

func TestBatch_WaitReturnsFirstError(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Shutdown()

	want := errors.New("decode failed")
	b := pool.NewBatch()
	var ran int64
	for i := 0; i < 6; i++ {
		require.NoError(t, b.Submit(context.Background(), func(ctx context.Context) error {
			atomic.AddInt64(&ran, 1)
			if i == 3 {
				return want
			}
			return nil
		}))
	}

	assert.ErrorIs(t, b.Wait(), want)
	assert.Equal(t, int64(6), atomic.LoadInt64(&ran))
}

func TestBatch_PanicBecomesError(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Shutdown()

	b := pool.NewBatch()
	require.NoError(t, b.Submit(context.Background(), func(ctx context.Context) error {
		panic("bad state")
	}))

	err := b.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad state")
	assert.Equal(t, int64(1), pool.Metrics().Failed)
}

func TestBatch_IndependentOfOtherBatches(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Shutdown()

	block := make(chan struct{})
	slow := pool.NewBatch()
	require.NoError(t, slow.Submit(context.Background(), func(ctx context.Context) error {
		<-block
		return nil
	}))

	fast := pool.NewBatch()
	require.NoError(t, fast.Submit(context.Background(), func(ctx context.Context) error { return nil }))

	done := make(chan error, 1)
	go func() { done <- fast.Wait() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("fast batch waited on an unrelated batch")
	}

	close(block)
	assert.NoError(t, slow.Wait())
}

func TestBatch_SubmitAfterShutdown(t *testing.T) {
	pool := NewWorkerPool(1)
	pool.Shutdown()

	b := pool.NewBatch()
	err := b.Submit(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrPoolShutdown)
	assert.NoError(t, b.Wait())
}

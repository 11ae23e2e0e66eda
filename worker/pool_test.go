package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPoolDefaults(t *testing.T) {
	noop := func(context.Context, string) error { return nil }

	pool := NewPool(0, 0, noop)
	assert.Equal(t, 10, pool.workers)
	assert.Equal(t, 1000, pool.queueSize)

	assert.PanicsWithValue(t, ErrNilProcessor, func() {
		NewPool[string](1, 1, nil)
	})
}

func TestSubmitRequiresStartedPool(t *testing.T) {
	pool := NewPool(1, 1, func(context.Context, int) error { return nil })
	assert.ErrorIs(t, pool.Submit(1), ErrPoolNotStarted)

	require.Nil(t, pool.Start(context.Background()))
	assert.ErrorIs(t, pool.Start(context.Background()), ErrPoolAlreadyStarted)

	require.Nil(t, pool.Stop(time.Second))
	assert.ErrorIs(t, pool.Submit(1), ErrPoolStopped)
	assert.Nil(t, pool.Stop(time.Second), "Stop should be idempotent")
}

func TestStopDrainsQueuedWork(t *testing.T) {
	var processed int64
	pool := NewPool(2, 50, func(context.Context, int) error {
		atomic.AddInt64(&processed, 1)
		return nil
	})
	require.Nil(t, pool.Start(context.Background()))

	for i := 0; i < 50; i++ {
		require.Nil(t, pool.Submit(i))
	}

	require.Nil(t, pool.Stop(5*time.Second))
	assert.Equal(t, int64(50), atomic.LoadInt64(&processed))
	assert.Equal(t, int64(50), pool.Stats().Processed)
}

func TestSubmitDropsWhenQueueFull(t *testing.T) {
	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(1)
	var once sync.Once

	pool := NewPool(1, 1, func(context.Context, int) error {
		once.Do(started.Done)
		<-release
		return nil
	})
	require.Nil(t, pool.Start(context.Background()))

	require.Nil(t, pool.Submit(1))
	started.Wait()
	require.Nil(t, pool.Submit(2))
	assert.ErrorIs(t, pool.Submit(3), ErrQueueFull)

	close(release)
	require.Nil(t, pool.Stop(5*time.Second))

	stats := pool.Stats()
	assert.Equal(t, int64(2), stats.Submitted)
	assert.Equal(t, int64(1), stats.Dropped)
}

func TestPanicsAndErrorsAreCountedAsFailures(t *testing.T) {
	pool := NewPool(1, 10, func(_ context.Context, n int) error {
		switch n {
		case 1:
			panic("boom")
		case 2:
			return errors.New("failed")
		}
		return nil
	})
	require.Nil(t, pool.Start(context.Background()))

	for i := 1; i <= 3; i++ {
		require.Nil(t, pool.Submit(i))
	}
	require.Nil(t, pool.Stop(5*time.Second))

	stats := pool.Stats()
	assert.Equal(t, int64(3), stats.Processed)
	assert.Equal(t, int64(2), stats.Failed)
}

func TestMetricsAreRegistered(t *testing.T) {
	registry := prometheus.NewRegistry()
	pool := NewPool(1, 10, func(context.Context, int) error { return nil }, WithMetrics[int](registry, "test_pool"))

	// a second pool with the same prefix shares the collectors
	NewPool(1, 10, func(context.Context, int) error { return nil }, WithMetrics[int](registry, "test_pool"))

	require.Nil(t, pool.Start(context.Background()))
	require.Nil(t, pool.Submit(1))
	require.Nil(t, pool.Stop(5*time.Second))

	assert.Equal(t, float64(1), testutil.ToFloat64(pool.metrics.submitted))
	assert.Equal(t, float64(1), testutil.ToFloat64(pool.metrics.processed))

	count, err := testutil.GatherAndCount(registry, "test_pool_submitted_total", "test_pool_processed_total")
	require.Nil(t, err)
	assert.Equal(t, 2, count)
}

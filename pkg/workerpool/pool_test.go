package workerpool

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

func testConfig() Config {
	return Config{
		Workers:         2,
		QueueSize:       16,
		MaxRetries:      2,
		RetryDelay:      time.Millisecond,
		ShutdownTimeout: 2 * time.Second,
	}
}

func TestPoolProcessesTasks(t *testing.T) {
	var processed int64
	pool, err := New(testConfig(), func(context.Context, *Task) error {
		atomic.AddInt64(&processed, 1)
		return nil
	}, nil)
	require.NoError(t, err)

	pool.Start()
	for i := 0; i < 10; i++ {
		require.NoError(t, pool.Submit(context.Background(), &Task{ID: "t"}))
	}
	pool.Stop()

	assert.Equal(t, int64(10), atomic.LoadInt64(&processed))
	stats := pool.Stats()
	assert.Equal(t, int64(10), stats.Submitted)
	assert.Equal(t, int64(10), stats.Completed)
	assert.Equal(t, int64(0), stats.Failed)
}

func TestPoolRetriesUntilSuccess(t *testing.T) {
	var attempts int64
	pool, err := New(testConfig(), func(context.Context, *Task) error {
		if atomic.AddInt64(&attempts, 1) < 3 {
			return errors.New("transient")
		}
		return nil
	}, nil)
	require.NoError(t, err)

	pool.Start()
	require.NoError(t, pool.Submit(context.Background(), &Task{ID: "retry-me"}))
	pool.Stop()

	assert.Equal(t, int64(3), atomic.LoadInt64(&attempts))
	stats := pool.Stats()
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(2), stats.Retried)
}

func TestPoolExhaustedCallback(t *testing.T) {
	permanent := errors.New("vendor rejected booking")

	var mu sync.Mutex
	var exhausted []*Task
	cfg := testConfig()
	cfg.OnExhausted = func(task *Task, err error) {
		mu.Lock()
		defer mu.Unlock()
		assert.ErrorIs(t, err, permanent)
		exhausted = append(exhausted, task)
	}

	pool, err := New(cfg, func(context.Context, *Task) error {
		return permanent
	}, nil)
	require.NoError(t, err)

	pool.Start()
	require.NoError(t, pool.Submit(context.Background(), &Task{ID: "doomed"}))
	pool.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, exhausted, 1)
	assert.Equal(t, "doomed", exhausted[0].ID)
	assert.Equal(t, int64(1), pool.Stats().Failed)
}

func TestSubmitAfterStop(t *testing.T) {
	pool, err := New(testConfig(), func(context.Context, *Task) error { return nil }, nil)
	require.NoError(t, err)

	pool.Start()
	pool.Stop()

	err = pool.Submit(context.Background(), &Task{ID: "late"})
	require.Error(t, err)

	// Stop again is a no-op, not a double close.
	pool.Stop()
}

func TestSubmitDuringShutdownDoesNotPanic(t *testing.T) {
	pool, err := New(testConfig(), func(context.Context, *Task) error { return nil }, nil)
	require.NoError(t, err)
	pool.Start()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if err := pool.Submit(context.Background(), &Task{ID: "racer"}); err != nil {
					return
				}
			}
		}()
	}

	time.Sleep(5 * time.Millisecond)
	pool.Stop()
	wg.Wait()
}

func TestNewRequiresHandler(t *testing.T) {
	_, err := New(testConfig(), nil, nil)
	require.Error(t, err)
}

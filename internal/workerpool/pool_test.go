package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTasks(n int, fn func(ctx context.Context, i int) (int, error)) []Task[int, int] {
	tasks := make([]Task[int, int], n)
	for i := 0; i < n; i++ {
		tasks[i] = Task[int, int]{ID: fmt.Sprintf("t%d", i), Data: i, Execute: fn}
	}
	return tasks
}

func TestPool_BoundedConcurrency(t *testing.T) {
	var active, peak int32
	pool := New[int, int](Config{MaxWorkers: 3, ContinueOnError: true})

	tasks := makeTasks(20, func(ctx context.Context, i int) (int, error) {
		cur := atomic.AddInt32(&active, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return i * 2, nil
	})

	results, err := pool.Execute(context.Background(), tasks)
	require.NoError(t, err)

	assert.Len(t, results, 20)
	assert.Equal(t, 14, results["t7"])
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))

	stats := pool.Stats()
	assert.Equal(t, 20, stats.Total)
	assert.Equal(t, 20, stats.Completed)
	assert.Equal(t, 0, stats.Active)
	assert.Equal(t, 0, stats.Queued)
	assert.False(t, stats.EndedAt.Before(stats.StartedAt))
}

func TestPool_ContinueOnError(t *testing.T) {
	pool := New[int, int](Config{MaxWorkers: 4, ContinueOnError: true})

	tasks := makeTasks(10, func(ctx context.Context, i int) (int, error) {
		if i%3 == 0 {
			return 0, errors.New("boom")
		}
		return i, nil
	})

	results, err := pool.Execute(context.Background(), tasks)
	require.NoError(t, err)

	stats := pool.Stats()
	assert.Equal(t, 10, stats.Completed+stats.Failed)
	assert.Equal(t, 4, stats.Failed)
	assert.Len(t, results, 6)
	assert.Len(t, pool.Errors(), 4)
	_, ok := results["t3"]
	assert.False(t, ok)
}

func TestPool_AbortOnFirstError(t *testing.T) {
	pool := New[int, int](Config{MaxWorkers: 1, ContinueOnError: false})

	var started int32
	tasks := makeTasks(5, func(ctx context.Context, i int) (int, error) {
		atomic.AddInt32(&started, 1)
		if i == 1 {
			return 0, errors.New("boom")
		}
		return i, nil
	})

	results, err := pool.Execute(context.Background(), tasks)
	require.Error(t, err)

	var taskErr TaskError
	require.ErrorAs(t, err, &taskErr)
	assert.Equal(t, "t1", taskErr.TaskID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&started))
	assert.Len(t, results, 1)
	assert.Equal(t, 1, pool.Stats().Failed)
}

func TestPool_ProgressStrictlyIncreasing(t *testing.T) {
	var mu sync.Mutex
	var seen []int
	pool := New[int, int](Config{
		MaxWorkers:      4,
		ContinueOnError: true,
		OnProgress: func(completed, total int) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, completed)
			assert.Equal(t, 12, total)
		},
	})

	tasks := makeTasks(12, func(ctx context.Context, i int) (int, error) {
		time.Sleep(time.Duration(12-i) * time.Millisecond)
		if i == 5 {
			return 0, errors.New("fail")
		}
		return i, nil
	})

	_, err := pool.Execute(context.Background(), tasks)
	require.NoError(t, err)

	require.Len(t, seen, 12)
	for i, v := range seen {
		assert.Equal(t, i+1, v)
	}
}

func TestPool_Cancel(t *testing.T) {
	pool := New[int, int](Config{MaxWorkers: 1, ContinueOnError: true})

	tasks := makeTasks(5, func(ctx context.Context, i int) (int, error) {
		if i == 0 {
			pool.Cancel()
		}
		return i, nil
	})

	results, err := pool.Execute(context.Background(), tasks)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Len(t, results, 1)
	assert.Contains(t, results, "t0")

	stats := pool.Stats()
	assert.True(t, stats.Cancelled)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 4, stats.Queued)
	assert.Equal(t, 0, stats.Active)
}

func TestPool_PanicIsIsolated(t *testing.T) {
	pool := New[int, int](DefaultConfig())

	tasks := makeTasks(3, func(ctx context.Context, i int) (int, error) {
		if i == 2 {
			panic("detector exploded")
		}
		return i, nil
	})

	results, err := pool.Execute(context.Background(), tasks)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	require.Len(t, pool.Errors(), 1)
	assert.Equal(t, "t2", pool.Errors()[0].TaskID)
}

func TestPool_Empty(t *testing.T) {
	pool := New[int, int](DefaultConfig())

	results, err := pool.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, pool.Stats().Total)
}

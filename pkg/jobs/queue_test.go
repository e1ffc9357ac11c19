package jobs

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

func TestQueueRetriesUntilSuccess(t *testing.T) {
	var calls int32
	done := make(chan Job, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		done <- job
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 5, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "j-1"}))
	select {
	case job := <-done:
		assert.Equal(t, "j-1", job.ID)
		assert.Equal(t, 2, job.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("job did not complete")
	}
}

func TestQueueGivesUpAfterMaxRetries(t *testing.T) {
	var mu sync.Mutex
	var gaveUp []string
	finished := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		return errors.New("permanent")
	}, QueueConfig{
		Workers:    1,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		OnGiveUp: func(job Job, err error) {
			mu.Lock()
			gaveUp = append(gaveUp, job.ID)
			mu.Unlock()
			close(finished)
		},
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.TryEnqueue(Job{ID: "j-2"}))
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("job was never given up")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"j-2"}, gaveUp)
}

func TestQueueRejectsWhenNotRunning(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{})
	require.ErrorIs(t, q.Enqueue(Job{ID: "x"}), ErrQueueStopped)
	require.ErrorIs(t, q.TryEnqueue(Job{ID: "x"}), ErrQueueStopped)
}

func TestQueueTryEnqueueFull(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		<-block
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer func() {
		close(block)
		q.Stop()
	}()

	require.NoError(t, q.TryEnqueue(Job{ID: "a"}))
	require.Eventually(t, func() bool { return len(q.jobs) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, q.TryEnqueue(Job{ID: "b"}))
	require.ErrorIs(t, q.TryEnqueue(Job{ID: "c"}), ErrQueueFull)
}

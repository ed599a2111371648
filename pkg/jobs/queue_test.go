package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestQueueDeliversJobs(t *testing.T) {
	done := make(chan Job, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		done <- job
		return nil
	}, QueueConfig{Workers: 1, Logger: zap.NewNop()})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "work", Payload: "payload"}))

	select {
	case job := <-done:
		assert.Equal(t, "work", job.Type)
		assert.NotEmpty(t, job.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not delivered")
	}
}

func TestQueueEnqueueBeforeStartFails(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})

	err := q.Enqueue(Job{Type: "work"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not started")
}

func TestQueueEnqueueFullBufferFailsFast(t *testing.T) {
	running := make(chan struct{}, 2)
	release := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		running <- struct{}{}
		<-release
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1, Logger: zap.NewNop()})

	q.Start(context.Background())
	defer q.Stop()

	// First job occupies the single worker, second fills the buffer.
	require.NoError(t, q.Enqueue(Job{Type: "work"}))
	<-running
	require.NoError(t, q.Enqueue(Job{Type: "work"}))

	// The buffer is full and the worker is wedged; this must return
	// immediately instead of waiting for a drain.
	start := time.Now()
	err := q.Enqueue(Job{Type: "work"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "full")
	assert.Less(t, time.Since(start), time.Second)

	close(release)
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var attempts int32
	done := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return assert.AnError
		}
		close(done)
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: 10 * time.Millisecond, Logger: zap.NewNop()})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "work"}))

	select {
	case <-done:
		assert.EqualValues(t, 2, atomic.LoadInt32(&attempts))
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
}

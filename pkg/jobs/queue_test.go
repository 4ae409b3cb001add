package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueDispatchesByType(t *testing.T) {
	q := NewQueue("test", QueueConfig{Workers: 2})
	done := make(chan Job, 1)
	q.Handle("email", func(ctx context.Context, j Job) error {
		done <- j
		return nil
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "1", Type: "email", TenantID: "t1"}))
	select {
	case j := <-done:
		assert.Equal(t, "1", j.ID)
		assert.False(t, j.Enqueued.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("job not processed")
	}
}

func TestQueueRejectsUnknownTypeAndStopped(t *testing.T) {
	q := NewQueue("test", QueueConfig{})
	require.Error(t, q.Enqueue(Job{Type: "email"}))

	q.Start(context.Background())
	require.Error(t, q.Enqueue(Job{Type: "unknown"}))
	q.Stop()
}

func TestQueueRetriesThenDrops(t *testing.T) {
	var calls int32
	dropped := make(chan error, 1)
	q := NewQueue("test", QueueConfig{MaxRetries: 2, RetryDelay: time.Millisecond, OnDrop: func(j Job, err error) { dropped <- err }})
	q.Handle("render", func(ctx context.Context, j Job) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("boom")
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "r1", Type: "render"}))
	select {
	case err := <-dropped:
		assert.EqualError(t, err, "boom")
	case <-time.After(2 * time.Second):
		t.Fatal("job not dropped")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

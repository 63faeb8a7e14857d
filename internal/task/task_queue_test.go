package task

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskQueue(t *testing.T) {
	t.Parallel()

	queue := NewTaskQueue(10, setupTestLogger())
	assert.Equal(t, 10, cap(queue.tasks))
	assert.False(t, queue.closed)

	queue = NewTaskQueue(0, setupTestLogger())
	assert.Equal(t, 1, cap(queue.tasks), "non-positive sizes fall back to one slot")
}

func TestEnqueue_FullQueueDoesNotBlock(t *testing.T) {
	t.Parallel()

	queue := NewTaskQueue(2, setupTestLogger())
	require.NoError(t, queue.Enqueue(newMockTask()))
	require.NoError(t, queue.Enqueue(newMockTask()))

	overflow := newMockTask()
	err := queue.Enqueue(overflow)
	assert.ErrorIs(t, err, ErrQueueFull)

	<-queue.tasks
	assert.NoError(t, queue.Enqueue(overflow))
}

func TestClose_DeliversQueuedTasks(t *testing.T) {
	t.Parallel()

	queue := NewTaskQueue(10, setupTestLogger())
	queued := newMockTask()
	require.NoError(t, queue.Enqueue(queued))

	queue.Close()
	queue.Close()
	assert.ErrorIs(t, queue.Enqueue(newMockTask()), ErrQueueClosed)

	received := <-queue.GetChannel()
	assert.Equal(t, queued.ID(), received.ID())

	select {
	case _, ok := <-queue.GetChannel():
		assert.False(t, ok, "channel should be closed")
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for closed channel read")
	}
}

func TestConcurrentEnqueueAndClose(t *testing.T) {
	t.Parallel()

	queue := NewTaskQueue(100, setupTestLogger())

	var wg sync.WaitGroup
	for w := 0; w < 5; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				// racing with Close must never panic on a closed channel
				_ = queue.Enqueue(newMockTask())
			}
		}()
	}
	queue.Close()
	wg.Wait()

	count := 0
	for range queue.GetChannel() {
		count++
	}
	assert.LessOrEqual(t, count, 100)
}

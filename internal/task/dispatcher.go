package task

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
)

// Dispatcher turns fire-and-forget jobs into tasks on a queue. A job that
// cannot be queued is dropped and logged; callers are never blocked.
type Dispatcher struct {
	queue   TaskQueueWriter
	logger  *slog.Logger
	dropped atomic.Int64
}

// NewDispatcher creates a dispatcher writing to queue.
func NewDispatcher(queue TaskQueueWriter, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		queue:  queue,
		logger: logger.With("component", "task_dispatcher"),
	}
}

// Dispatch queues fn as a task of the given kind.
func (d *Dispatcher) Dispatch(kind string, fn func(ctx context.Context) error) {
	t := NewFuncTask(kind, fn)
	if err := d.queue.Enqueue(t); err != nil {
		d.dropped.Add(1)
		level := slog.LevelWarn
		if errors.Is(err, ErrQueueClosed) {
			level = slog.LevelInfo
		}
		d.logger.Log(context.Background(), level, "dropping background task",
			"task_type", kind,
			"task_id", t.ID(),
			"error", err)
	}
}

// Dropped is the number of jobs that could not be queued.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

package persist

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/badgemaker/badgemaker/internal/document"
)

var ErrClosed = errors.New("persistence queue closed")

type job struct {
	name string
	id   int64
	run  func(ctx context.Context, a Adapter) error
	done chan struct{} // closed after run, for barriers
}

// Queue applies writes to an Adapter one at a time, in the order they were
// enqueued. Enqueueing never blocks: the backlog is unbounded. Failures are
// logged and dropped.
type Queue struct {
	adapter Adapter
	timeout time.Duration

	mu      sync.Mutex
	pending []job
	closed  bool
	wake    chan struct{}
	stopped chan struct{}
}

// NewQueue creates a queue. Call Run to start the worker.
func NewQueue(adapter Adapter, timeout time.Duration) *Queue {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Queue{
		adapter: adapter,
		timeout: timeout,
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
}

// Run processes jobs until ctx is cancelled or Close drains the queue.
func (q *Queue) Run(ctx context.Context) {
	defer close(q.stopped)
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.wake:
		}

		for {
			j, ok, last := q.next()
			if !ok {
				break
			}
			q.process(ctx, j)
			if last {
				return
			}
		}
	}
}

// next pops the oldest job. last is true when the queue is closed and the
// job was the final one.
func (q *Queue) next() (job, bool, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return job{}, false, false
	}
	j := q.pending[0]
	q.pending[0] = job{}
	q.pending = q.pending[1:]
	return j, true, q.closed && len(q.pending) == 0
}

func (q *Queue) process(ctx context.Context, j job) {
	if j.done != nil {
		defer close(j.done)
	}
	if j.run == nil {
		return
	}
	jctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()
	if err := j.run(jctx, q.adapter); err != nil {
		slog.Error("persist "+j.name, "error", err, "id", j.id)
	}
}

func (q *Queue) enqueue(j job) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		slog.Warn("persist after close", "op", j.name, "id", j.id)
		return false
	}
	q.pending = append(q.pending, j)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// Save enqueues an upsert of s.
func (q *Queue) Save(s document.Shape) {
	s = s.Clone()
	q.enqueue(job{name: "save", id: s.ID, run: func(ctx context.Context, a Adapter) error {
		return a.Save(ctx, s)
	}})
}

// SaveMany enqueues an upsert of every shape.
func (q *Queue) SaveMany(shapes []document.Shape) {
	shapes = document.Snapshot(shapes).Clone()
	q.enqueue(job{name: "save many", run: func(ctx context.Context, a Adapter) error {
		return a.SaveMany(ctx, shapes)
	}})
}

func (q *Queue) Delete(id int64) {
	q.enqueue(job{name: "delete", id: id, run: func(ctx context.Context, a Adapter) error {
		return a.Delete(ctx, id)
	}})
}

func (q *Queue) DeleteAll() {
	q.enqueue(job{name: "delete all", run: func(ctx context.Context, a Adapter) error {
		return a.DeleteAll(ctx)
	}})
}

// Replace enqueues DeleteAll followed by SaveMany as one job, so the stored
// paint order matches shapes.
func (q *Queue) Replace(shapes []document.Shape) {
	shapes = document.Snapshot(shapes).Clone()
	q.enqueue(job{name: "replace", run: func(ctx context.Context, a Adapter) error {
		if err := a.DeleteAll(ctx); err != nil {
			return err
		}
		return a.SaveMany(ctx, shapes)
	}})
}

// Sync waits until every job enqueued before the call has been processed.
func (q *Queue) Sync(ctx context.Context) error {
	done := make(chan struct{})
	if !q.enqueue(job{name: "sync", done: done}) {
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains the backlog and stops the worker. Later writes are dropped.
func (q *Queue) Close(ctx context.Context) error {
	done := make(chan struct{})
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.pending = append(q.pending, job{name: "close", done: done})
	q.closed = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}

	select {
	case <-q.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/moehefner/streb/internal/model"
)

// ActionsQueue is the queue/topic name for due-action jobs.
const ActionsQueue = "campaign_actions"

// ErrQueueFull is returned when the in-process buffer cannot take a job.
var ErrQueueFull = errors.New("action queue is full")

// ErrQueueClosed is returned after Close.
var ErrQueueClosed = errors.New("action queue is closed")

// Dispatcher hands a due action to whatever executes it.
type Dispatcher interface {
	Dispatch(ctx context.Context, job model.ActionJob) error
}

// Handler processes one job.
type Handler func(ctx context.Context, job model.ActionJob) error

// InMemoryQueue buffers jobs for a single in-process consumer so actions
// run one after another in dispatch order.
type InMemoryQueue struct {
	mu     sync.Mutex
	jobs   chan model.ActionJob
	closed bool
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue(size int) *InMemoryQueue {
	if size < 1 {
		size = 256
	}
	return &InMemoryQueue{jobs: make(chan model.ActionJob, size)}
}

// Dispatch never blocks.
func (q *InMemoryQueue) Dispatch(ctx context.Context, job model.ActionJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Jobs is the consumer side of the queue.
func (q *InMemoryQueue) Jobs() <-chan model.ActionJob {
	return q.jobs
}

// Len reports buffered, unconsumed jobs.
func (q *InMemoryQueue) Len() int {
	return len(q.jobs)
}

func (q *InMemoryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
}

var _ Dispatcher = (*InMemoryQueue)(nil)

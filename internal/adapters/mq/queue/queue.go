// Package queue buffers submitted plays between the intake surface and the
// scoring workers. The in-memory implementation is a bounded channel with
// non-blocking enqueue: backpressure is reported to the caller, never
// absorbed silently.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/rai/internal/domain/model"
	"github.com/okian/rai/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity = 100000
)

// Play is the payload type flowing through the queue.
type Play = model.Play

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a play to the queue. Returns false if the queue is full
	// or closed and the play was not accepted.
	Enqueue(ctx context.Context, p Play) bool

	// Dequeue returns a channel that yields plays as they become
	// available. The channel closes when the queue closes.
	Dequeue(ctx context.Context) <-chan Play

	// Len returns the current number of queued plays.
	Len(ctx context.Context) int

	// Close stops intake. Queued plays remain dequeueable until drained.
	Close() error

	// IsClosed reports whether the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue on a buffered channel.
type InMemoryQueue struct {
	plays    chan Play
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates an in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.plays = make(chan Play, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue adds a play to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, p Play) bool {
	start := time.Now()
	defer func() {
		metrics.RecordQueueProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	select {
	case q.plays <- p:
		metrics.RecordQueueEnqueue()
		q.publishSize()
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue returns a channel that yields plays as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Play {
	out := make(chan Play)
	go func() {
		defer close(out)
		for p := range q.plays {
			select {
			case out <- p:
				metrics.RecordQueueDequeue()
				q.publishSize()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued plays.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.plays)
	q.publishSize()
	return size
}

// Close stops intake; already-queued plays stay dequeueable.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.plays)
	q.closed = true
	return nil
}

// IsClosed reports whether the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *InMemoryQueue) publishSize() {
	size := len(q.plays)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}

// Package queue hands chunks from the reader to the worker pool.
//
// The in-memory implementation is a bounded channel. A fresh queue is built
// for every parallel invocation and closed by the producer once the input is
// exhausted.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/spoofwatch/internal/domain/model"
	"github.com/okian/spoofwatch/pkg/metrics"
)

const defaultQueueCapacity = 16

// Chunk is the payload type flowing through the queue.
type Chunk = model.Chunk

// Queue provides blocking enqueue with channel-based dequeue.
type Queue interface {
	// Submit adds a chunk, waiting for room while the queue is full.
	Submit(ctx context.Context, c Chunk) error

	// Dequeue returns a channel that receives chunks as they become available.
	// The channel is closed once the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Chunk

	// Close stops intake. Chunks already queued are still delivered.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	chunks   chan Chunk
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.chunks = make(chan Chunk, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)

	return q
}

// Submit adds a chunk to the queue, blocking while it is full.
// Close must not be called concurrently with a blocked Submit from another
// goroutine; the producer owns both.
func (q *InMemoryQueue) Submit(ctx context.Context, c Chunk) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}

	select {
	case q.chunks <- c:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.chunks))
		return nil
	case <-ctx.Done():
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return fmt.Errorf("submit chunk %d: %w", c.Index, ctx.Err())
	}
}

// Dequeue returns a channel that will receive chunks as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Chunk {
	out := make(chan Chunk)
	go func() {
		defer close(out)
		for c := range q.chunks {
			select {
			case out <- c:
				metrics.RecordQueueDequeue()
				metrics.UpdateQueueSize(len(q.chunks))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Close stops intake. It is safe to call more than once.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.chunks)
	q.closed = true

	return nil
}

package taskq

import (
	"errors"
	"sync"
)

// ErrQueueFull is returned by Enqueue when a bounded queue is at capacity.
var ErrQueueFull = errors.New("taskq: queue full")

// Queue is a minimal FIFO with an optional capacity. It is safe for
// concurrent use.
type Queue[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
}

// NewQueue creates a queue. A capacity <= 0 means unbounded.
func NewQueue[T any](capacity int) *Queue[T] {
	return &Queue[T]{capacity: capacity}
}

// Enqueue appends an item, rejecting it when the queue is at capacity.
func (q *Queue[T]) Enqueue(v T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.capacity > 0 && len(q.items) >= q.capacity {
		return ErrQueueFull
	}
	q.items = append(q.items, v)
	return nil
}

// Dequeue removes and returns the oldest item. The second return value is
// false when the queue is empty.
func (q *Queue[T]) Dequeue() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return v, true
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

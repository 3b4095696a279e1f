// Package queue provides the unbounded multi-producer, single-consumer
// queue that decouples measurement producers from the writer goroutine.
//
// Push never blocks. That is the point: producers on hot paths must not
// stall on telemetry. The flip side is accepted and deliberate — if the
// consumer stalls (say, a slow remote), the queue grows without bound in
// process memory.
package queue

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Push after Close.
var ErrClosed = errors.New("queue: closed")

// Queue is an unbounded FIFO queue. Any number of goroutines may Push;
// exactly one goroutine may Pop.
type Queue[T any] struct {
	mu     sync.Mutex
	ready  *sync.Cond
	items  []T
	head   int
	closed bool
}

// New returns an empty open queue.
func New[T any]() *Queue[T] {
	q := &Queue[T]{}
	q.ready = sync.NewCond(&q.mu)
	return q
}

// Push appends v. It never blocks and fails only when the queue has been
// closed.
func (q *Queue[T]) Push(v T) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.items = append(q.items, v)
	q.mu.Unlock()
	q.ready.Signal()
	return nil
}

// Pop removes and returns the oldest item, blocking until one is
// available. It returns ok=false only when the queue is closed and fully
// drained; items pushed before Close are always delivered.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.head == len(q.items) && !q.closed {
		q.ready.Wait()
	}

	if q.head == len(q.items) {
		var zero T
		return zero, false
	}

	v := q.items[q.head]
	var zero T
	q.items[q.head] = zero // release the reference for GC
	q.head++

	// Reclaim the consumed prefix once it dominates the backing array.
	if q.head > 64 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}

	return v, true
}

// Close marks the queue closed and wakes the consumer. Idempotent.
// Items already queued remain poppable.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.ready.Broadcast()
}

// Len reports the number of queued, unconsumed items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

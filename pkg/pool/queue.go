package pool

import (
	"sync"
	"sync/atomic"
)

// noCopy may be embedded into structs which must not be copied after first
// use. go vet warns on accidental copies (it looks for Lock methods).
type noCopy struct{}

func (*noCopy) Lock() {}

// node for the single-lock queue (plain pointer; protected by mu)
type node[T any] struct {
	val  T
	next *node[T]
}

// Queue is a simple, single-mutex MPMC queue. One mutex keeps the close /
// wakeup interplay easy to reason about and avoids lost-wakeup races.
type Queue[T any] struct {
	noCopy noCopy

	mu     sync.Mutex
	cond   *sync.Cond
	head   *node[T] // sentinel
	tail   *node[T]
	closed bool
	size   int64 // queued count, read atomically by Len without taking mu
}

// NewQueue constructs an empty queue.
func NewQueue[T any]() *Queue[T] {
	s := &node[T]{}
	q := &Queue[T]{head: s, tail: s}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Put enqueues v. It returns ErrClosed after Close.
func (q *Queue[T]) Put(v T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	n := &node[T]{val: v}
	q.tail.next = n
	q.tail = n
	atomic.AddInt64(&q.size, 1)
	// wake one consumer; it rechecks under mu
	q.cond.Signal()
	return nil
}

// Get blocks until an item is available or the queue is closed and drained.
// The second return is false only in the closed-and-drained case.
func (q *Queue[T]) Get() (T, bool) {
	q.mu.Lock()
	for q.head.next == nil && !q.closed {
		q.cond.Wait()
	}

	// empty + closed => done
	if q.head.next == nil {
		q.mu.Unlock()
		var zero T
		return zero, false
	}

	n := q.head.next
	q.head.next = n.next
	if q.head.next == nil {
		q.tail = q.head
	}
	q.mu.Unlock()

	atomic.AddInt64(&q.size, -1)
	return n.val, true
}

// Len reports the number of queued items.
func (q *Queue[T]) Len() int {
	return int(atomic.LoadInt64(&q.size))
}

// Close marks the queue closed and wakes all blocked getters. Items already
// queued remain retrievable until drained. Close is idempotent.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

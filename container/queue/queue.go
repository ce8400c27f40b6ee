// Package queue implements a Michael–Scott lock-free MPMC FIFO queue on
// top of the smr engine: a dummy head node, tail-helping CAS, and
// retirement of dequeued nodes through smr.Retire instead of a
// hazard-pointer-guarded free, written in the same
// acquire/CAS-loop/release shape as this module's own stack.
package queue

import (
	"sync/atomic"

	"github.com/solotzg/go-lockfree"
)

// node is one queue element, plus the always-present dummy node that sits
// ahead of head so head never itself needs a nil check for "next".
type node[T any] struct {
	value T
	next  atomic.Pointer[node[T]]
	smr.RetiredNode
}

func (n *node[T]) RetiredHeader() *smr.RetiredNode {
	return &n.RetiredNode
}

// Queue is a multi-producer multi-consumer FIFO queue. The zero value is
// not usable; construct with New.
type Queue[T any] struct {
	head atomic.Pointer[node[T]]
	tail atomic.Pointer[node[T]]
	eng  *smr.Engine
}

// New constructs an empty Queue backed by its own smr.Engine, configured
// with cfg.
func New[T any](cfg smr.Config) *Queue[T] {
	dummy := &node[T]{}
	q := &Queue[T]{eng: smr.New(cfg)}
	q.head.Store(dummy)
	q.tail.Store(dummy)
	return q
}

// Enqueue appends v to the tail of the queue.
func (q *Queue[T]) Enqueue(v T) {
	n := &node[T]{value: v}
	h, status := q.eng.Acquire()
	if status != smr.StatusSuccess {
		panic("queue: Enqueue: " + status.String())
	}
	defer q.eng.Release(h)

	for {
		tail := q.tail.Load()
		next := tail.next.Load()
		if tail != q.tail.Load() {
			continue
		}
		if next != nil {
			// Tail has fallen behind a node another enqueuer already
			// linked in; help it along before retrying.
			q.tail.CompareAndSwap(tail, next)
			continue
		}
		if tail.next.CompareAndSwap(nil, n) {
			q.tail.CompareAndSwap(tail, n)
			return
		}
	}
}

// Dequeue removes and returns the value at the head of the queue. ok is
// false if the queue was empty.
func (q *Queue[T]) Dequeue() (v T, ok bool) {
	h, status := q.eng.Acquire()
	if status != smr.StatusSuccess {
		panic("queue: Dequeue: " + status.String())
	}
	defer q.eng.Release(h)

	for {
		head := q.head.Load()
		tail := q.tail.Load()
		next := head.next.Load()
		if head != q.head.Load() {
			continue
		}
		if next == nil {
			return v, false
		}
		if head == tail {
			// Tail hasn't been swung onto next yet; help before retrying.
			q.tail.CompareAndSwap(tail, next)
			continue
		}
		v = next.value
		if q.head.CompareAndSwap(head, next) {
			smr.Retire(q.eng, head)
			return v, true
		}
	}
}

// Close flushes the engine, running destructors for every dequeued node
// still pending reclamation, then drops the queue's own head/tail chain
// for the garbage collector. The caller must ensure no goroutine is
// mid-Enqueue/Dequeue when Close runs.
func (q *Queue[T]) Close() {
	q.eng.Close()
	q.head.Store(nil)
	q.tail.Store(nil)
}

// Package stack implements a Treiber-style lock-free LIFO stack on top of
// the smr engine: a singly-linked list with a single atomic top pointer,
// CAS-looped push/pop, and retirement of popped nodes instead of an
// immediate free.
package stack

import (
	"sync/atomic"

	"github.com/solotzg/go-lockfree"
)

// node is one stack element. It embeds smr.RetiredNode so the engine can
// manage its reclamation once popped — see RetiredHeader.
type node[T any] struct {
	value T
	next  atomic.Pointer[node[T]]
	smr.RetiredNode
}

func (n *node[T]) RetiredHeader() *smr.RetiredNode {
	return &n.RetiredNode
}

// Stack is a multi-producer multi-consumer LIFO stack. The zero value is
// not usable; construct with New. A Stack must outlive every node ever
// pushed into it — Close reclaims whatever remains linked.
type Stack[T any] struct {
	top atomic.Pointer[node[T]]
	eng *smr.Engine
}

// New constructs an empty Stack backed by its own smr.Engine, configured
// with cfg (see smr.DefaultConfig for the zero-value default).
func New[T any](cfg smr.Config) *Stack[T] {
	return &Stack[T]{eng: smr.New(cfg)}
}

// Push places v on top of the stack. Wait-free except for the CAS retry
// loop itself, which can only be delayed by other pushers/poppers making
// progress — no locks, no allocation beyond the new node.
func (s *Stack[T]) Push(v T) {
	n := &node[T]{value: v}
	h, status := s.eng.Acquire()
	if status != smr.StatusSuccess {
		// Acquire only fails if this goroutine is already inside an
		// Acquire/Release pair (Busy) or the engine is full
		// (TooManyThreads); a stack operation never nests another, so
		// this would indicate misuse by the caller rather than a
		// recoverable condition.
		panic("stack: Push: " + status.String())
	}
	defer s.eng.Release(h)

	for {
		old := s.top.Load()
		n.next.Store(old)
		if s.top.CompareAndSwap(old, n) {
			return
		}
	}
}

// Pop removes and returns the top value. ok is false if the stack was
// empty.
func (s *Stack[T]) Pop() (v T, ok bool) {
	h, status := s.eng.Acquire()
	if status != smr.StatusSuccess {
		panic("stack: Pop: " + status.String())
	}
	defer s.eng.Release(h)

	for {
		old := s.top.Load()
		if old == nil {
			return v, false
		}
		next := old.next.Load()
		if s.top.CompareAndSwap(old, next) {
			v = old.value
			smr.Retire(s.eng, old)
			return v, true
		}
	}
}

// Close flushes the engine, running destructors for every popped node
// still pending reclamation, then drops the stack's own top pointer for
// the garbage collector. The caller must ensure no goroutine is
// mid-Push/Pop when Close runs, matching the engine's own Close
// precondition.
func (s *Stack[T]) Close() {
	s.eng.Close()
	s.top.Store(nil)
}

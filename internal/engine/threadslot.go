package engine

import "sync/atomic"

// ThreadSlot is one goroutine's bookkeeping entry. The engine
// pre-allocates MaxThreads of these; a slot is claimed by exactly one
// goroutine for the engine's lifetime once enabled.
//
// Field ownership:
//   - activeVersion and seq: written only by the owning goroutine, read
//     atomically by any goroutine scanning for a minimum version.
//   - retiredHead/retiredCount: written by any goroutine via CAS/atomic-add
//     (a flushing goroutine donates survivors into another slot; the owner
//     also pushes its own retires here).
//   - enabled/next: written once, under the engine's registration lock.
type ThreadSlot struct {
	enabled atomic.Bool
	tid     uint16

	_ cacheLinePad

	activeVersion atomic.Uint64 // NoVersion when not acquired
	seq           atomic.Uint32

	_ cacheLinePad

	lastRetireVersion atomic.Uint64

	retiredHead  atomic.Pointer[RetiredNode]
	retiredCount atomic.Int64

	_ cacheLinePad

	next atomic.Pointer[ThreadSlot]
}

func (s *ThreadSlot) init(tid uint16) {
	s.tid = tid
	s.activeVersion.Store(NoVersion)
}

// acquire publishes version as this slot's active epoch. Precondition: the
// caller is the goroutine that owns this slot.
func (s *ThreadSlot) acquire(version uint64) (Handle, Status) {
	if s.activeVersion.Load() != NoVersion {
		return 0, StatusBusy
	}
	s.activeVersion.Store(version)
	return newHandle(s.tid, s.seq.Load()), StatusSuccess
}

// release clears this slot's active epoch and bumps seq so a stale handle
// from the acquisition just ended can be detected. Precondition: the
// caller owns this slot.
func (s *ThreadSlot) release(h Handle, log Logger) {
	if s.tid != h.tid() || s.seq.Load() != h.seq() {
		log.Warn("release called with invalid handle",
			"error", diagStaleHandle(s.tid, s.seq.Load(), h.seq()))
		return
	}
	s.activeVersion.Store(NoVersion)
	s.seq.Add(1)
}

func (s *ThreadSlot) version() uint64 {
	return s.activeVersion.Load()
}

// addRetired splices the [head..tail] sub-list onto this slot's retired
// list via a CAS loop and accounts count nodes into retiredCount. Safe to
// call from any goroutine.
func (s *ThreadSlot) addRetired(head, tail *RetiredNode, count int64) {
	if count <= 0 {
		return
	}
	for {
		old := s.retiredHead.Load()
		tail.next.Store(old)
		if s.retiredHead.CompareAndSwap(old, head) {
			break
		}
	}
	s.retiredCount.Add(count)
}

// scanRetire atomically takes this slot's entire retired list, partitions
// it into nodes safe to reclaim (version <= target) and survivors, donates
// survivors to receiver, and destroys every reclaimed node. Returns the
// number reclaimed. Short-circuits to 0 if target matches the last scan's
// target — callers that flush repeatedly before any new retire has
// happened skip redundant work.
func (s *ThreadSlot) scanRetire(target uint64, receiver *ThreadSlot) int64 {
	if s.lastRetireVersion.Load() == target {
		return 0
	}
	s.lastRetireVersion.Store(target)

	var taken *RetiredNode
	for {
		cur := s.retiredHead.Load()
		if s.retiredHead.CompareAndSwap(cur, nil) {
			taken = cur
			break
		}
	}

	// Partition by walking the taken list behind a pseudo-head, unlinking
	// each reclaimable node from the chain as we go so the nodes left
	// behind (the survivors) stay correctly linked to each other in their
	// original relative order, rather than copying into two fresh lists.
	var pseudoHead RetiredNode
	pseudoHead.next.Store(taken)
	iter := &pseudoHead
	var reclaimHead *RetiredNode
	var reclaimCount, surviveCount int64

	for {
		n := iter.next.Load()
		if n == nil {
			break
		}
		if n.version <= target {
			reclaimCount++
			after := n.next.Load()
			iter.next.Store(after)
			n.next.Store(reclaimHead)
			reclaimHead = n
		} else {
			surviveCount++
			iter = n
		}
	}

	surviveHead := pseudoHead.next.Load()
	if surviveHead != nil {
		receiver.addRetired(surviveHead, iter, surviveCount)
	}
	s.retiredCount.Add(-(reclaimCount + surviveCount))

	for n := reclaimHead; n != nil; {
		next := n.next.Load()
		n.destroy()
		n = next
	}
	return reclaimCount
}

// destroy unconditionally destroys every node still on this slot's retired
// list. Called only while the owning Engine itself is being torn down.
func (s *ThreadSlot) destroy() {
	n := s.retiredHead.Swap(nil)
	for n != nil {
		next := n.next.Load()
		n.destroy()
		n = next
	}
}

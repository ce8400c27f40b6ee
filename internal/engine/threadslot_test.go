package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newRetiredAt(version uint64, destroyed *int) *RetiredNode {
	n := &RetiredNode{version: version}
	n.destroy = func() { *destroyed++ }
	return n
}

func TestThreadSlotAcquireRelease(t *testing.T) {
	var s ThreadSlot
	s.init(3)

	require.Equal(t, NoVersion, s.version())

	h, status := s.acquire(7)
	require.Equal(t, StatusSuccess, status)
	require.Equal(t, uint64(7), s.version())

	_, status = s.acquire(8)
	require.Equal(t, StatusBusy, status, "a slot already holding an active version refuses a second acquire")

	s.release(h, NoOpLogger{})
	require.Equal(t, NoVersion, s.version())
}

func TestThreadSlotReleaseStaleHandleIsNoop(t *testing.T) {
	var s ThreadSlot
	s.init(1)
	h, _ := s.acquire(1)
	stale := newHandle(h.tid(), h.seq()+1)
	s.release(stale, NoOpLogger{})
	require.Equal(t, uint64(1), s.version(), "a stale handle must not clear someone else's active acquisition")
}

func TestThreadSlotScanRetirePartitionsAndPreservesOrder(t *testing.T) {
	var s ThreadSlot
	s.init(0)

	var destroyed int
	low1 := newRetiredAt(1, &destroyed)
	low2 := newRetiredAt(2, &destroyed)
	high1 := newRetiredAt(5, &destroyed)
	high2 := newRetiredAt(6, &destroyed)

	// Link head->tail as high2 -> low1 -> high1 -> low2, pushed in that
	// order via addRetired so the final list (LIFO push) is
	// low2 -> high1 -> low1 -> high2.
	s.addRetired(high2, high2, 1)
	s.addRetired(low1, low1, 1)
	s.addRetired(high1, high1, 1)
	s.addRetired(low2, low2, 1)
	require.EqualValues(t, 4, s.retiredCount.Load())

	var receiver ThreadSlot
	receiver.init(1)

	reclaimed := s.scanRetire(3, &receiver)
	require.EqualValues(t, 2, reclaimed)
	require.EqualValues(t, 2, destroyed)
	require.EqualValues(t, 0, s.retiredCount.Load())
	require.EqualValues(t, 2, receiver.retiredCount.Load())

	// The two survivors (high1, high2) must both still be reachable from
	// receiver's retired list, in their original relative order.
	var survivors []uint64
	for n := receiver.retiredHead.Load(); n != nil; n = n.next.Load() {
		survivors = append(survivors, n.version)
	}
	require.Equal(t, []uint64{5, 6}, survivors)
}

func TestThreadSlotScanRetireSkipsRepeatedTarget(t *testing.T) {
	var s ThreadSlot
	s.init(0)
	var destroyed int
	n := newRetiredAt(1, &destroyed)
	s.addRetired(n, n, 1)

	var receiver ThreadSlot
	receiver.init(1)

	require.EqualValues(t, 1, s.scanRetire(5, &receiver))
	require.EqualValues(t, 1, destroyed)

	// A second scan at the same target is a short-circuited no-op, even
	// though a new node was retired since — scanRetire only compares
	// against the target, not against whether anything new arrived.
	n2 := newRetiredAt(1, &destroyed)
	s.addRetired(n2, n2, 1)
	require.EqualValues(t, 0, s.scanRetire(5, &receiver), "repeated target short-circuits regardless of new retires")
}

func TestThreadSlotDestroyDrainsEverything(t *testing.T) {
	var s ThreadSlot
	s.init(0)
	var destroyed int
	a := newRetiredAt(1, &destroyed)
	b := newRetiredAt(2, &destroyed)
	s.addRetired(a, a, 1)
	s.addRetired(b, b, 1)

	s.destroy()
	require.Equal(t, 2, destroyed)
	require.Nil(t, s.retiredHead.Load())
}

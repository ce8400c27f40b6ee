package engine

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// trackedNode is a Retirable+Destroyer whose Destroy decrements a shared
// allocation counter, used to check that every retired node is eventually
// reclaimed and destroyed exactly once.
type trackedNode struct {
	RetiredNode
	id      int
	counter *atomic.Int64
}

func (n *trackedNode) RetiredHeader() *RetiredNode { return &n.RetiredNode }
func (n *trackedNode) Destroy()                    { n.counter.Add(-1) }

func newTrackedNode(counter *atomic.Int64, id int) *trackedNode {
	counter.Add(1)
	return &trackedNode{id: id, counter: counter}
}

// TestSingleThreadSmoke runs two sequential acquire/release round trips on
// a single goroutine and checks nothing is left pending.
func TestSingleThreadSmoke(t *testing.T) {
	e := New(DefaultConfig())
	defer e.Close()

	h1, status := e.Acquire()
	require.Equal(t, StatusSuccess, status)
	e.Release(h1)

	h2, status := e.Acquire()
	require.Equal(t, StatusSuccess, status)
	e.Release(h2)

	require.Zero(t, e.PendingWaitingCount())
}

// TestRetireThenFlush checks that a handle held across a retire pins the
// epoch the retired nodes were tagged with, so a flush while it's still
// held must not reclaim them.
func TestRetireThenFlush(t *testing.T) {
	e := New(DefaultConfig())
	defer e.Close()

	var counter atomic.Int64
	h, status := e.Acquire()
	require.Equal(t, StatusSuccess, status)

	const n = 64
	for i := 0; i < n; i++ {
		node := newTrackedNode(&counter, i)
		require.Equal(t, StatusSuccess, Retire(e, node))
	}
	require.EqualValues(t, n, counter.Load())

	e.Flush()
	require.EqualValues(t, n, counter.Load(), "handle H still pins the epoch the retired nodes were tagged at")

	e.Release(h)
	e.Flush()
	require.Zero(t, counter.Load())
}

// TestBusyDetection checks that a second Acquire on a goroutine already
// holding a handle returns StatusBusy instead of blocking or corrupting
// state, and that the slot works normally again once released.
func TestBusyDetection(t *testing.T) {
	e := New(DefaultConfig())
	defer e.Close()

	h1, status := e.Acquire()
	require.Equal(t, StatusSuccess, status)

	_, status = e.Acquire()
	require.Equal(t, StatusBusy, status)

	e.Release(h1)

	h2, status := e.Acquire()
	require.Equal(t, StatusSuccess, status)
	e.Release(h2)
}

// TestTwoGoroutineExchange runs one writer goroutine that CAS-replaces a
// shared object and retires the previous one each time, against one
// reader goroutine that repeatedly acquires/loads/asserts/releases. The
// iteration count here is cut down for a unit test run; the queue's
// two-goroutine exchange test exercises a higher count. After both finish,
// the last shared object is retired too, and after one final flush nothing
// should remain live.
func TestTwoGoroutineExchange(t *testing.T) {
	e := New(DefaultConfig())
	defer e.Close()

	var counter atomic.Int64
	var shared atomic.Pointer[trackedNode]
	shared.Store(newTrackedNode(&counter, 0))

	const iterations = 100_000
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 1; i <= iterations; i++ {
			next := newTrackedNode(&counter, i)
			old := shared.Swap(next)
			require.Equal(t, StatusSuccess, Retire(e, old))
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			h, status := e.Acquire()
			require.Equal(t, StatusSuccess, status)
			n := shared.Load()
			require.GreaterOrEqual(t, n.id, 0)
			e.Release(h)
		}
	}()

	wg.Wait()
	require.Equal(t, StatusSuccess, Retire(e, shared.Load()))
	e.Flush()
	require.Zero(t, counter.Load())
}

// TestThreadOverflow checks that with MaxThreads=16, 20 goroutines racing
// to register means at most 16 succeed and the remainder see
// TooManyThreads; survivors releasing leaves the engine still functional.
// Tids come from a process-wide counter, so goroutines of earlier tests
// have already used some of the 16 slots: the test goroutine registers
// first, the 20 goroutines take the next 20 tids, and only those below 16
// fit.
func TestThreadOverflow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxThreads = 16
	e := New(cfg)
	defer e.Close()

	h0, status := e.Acquire()
	require.Equal(t, StatusSuccess, status)
	e.Release(h0)
	free := 16 - int(currentTID()) - 1

	const goroutines = 20
	var successes atomic.Int64
	var tooMany atomic.Int64
	var wg sync.WaitGroup
	wg.Add(goroutines)
	release := make(chan struct{})
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			h, status := e.Acquire()
			switch status {
			case StatusSuccess:
				successes.Add(1)
				<-release
				e.Release(h)
			case StatusTooManyThreads:
				tooMany.Add(1)
			default:
				t.Errorf("unexpected status %v", status)
			}
		}()
	}
	close(release)
	wg.Wait()

	require.EqualValues(t, free, successes.Load())
	require.EqualValues(t, goroutines-free, tooMany.Load())

	h, status := e.Acquire()
	require.Equal(t, StatusSuccess, status)
	e.Release(h)
}

// TestNStressReclaim runs many goroutines split between readers and
// writers, checking that after a final flush every retired object has been
// destroyed (the surviving counter at the end accounts for exactly one live
// object per writer). Readers only load the shared pointers; they do not
// check the loaded object.
func TestNStressReclaim(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxThreads = 64
	cfg.PerThreadThreshold = 8
	e := New(cfg)
	defer e.Close()

	const writers = 16
	const readers = 16
	const retiresPerWriter = 2000

	var counter atomic.Int64
	var shared [writers]atomic.Pointer[trackedNode]
	for i := range shared {
		shared[i].Store(newTrackedNode(&counter, 0))
	}

	var wg sync.WaitGroup
	var writerWg sync.WaitGroup
	wg.Add(writers + readers)
	writerWg.Add(writers)
	for w := 0; w < writers; w++ {
		go func(slot int) {
			defer wg.Done()
			defer writerWg.Done()
			for i := 1; i <= retiresPerWriter; i++ {
				next := newTrackedNode(&counter, i)
				old := shared[slot].Swap(next)
				require.Equal(t, StatusSuccess, Retire(e, old))
			}
		}(w)
	}
	stop := make(chan struct{})
	for r := 0; r < readers; r++ {
		go func(slot int) {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				h, status := e.Acquire()
				if status != StatusSuccess {
					continue
				}
				n := shared[slot%writers].Load()
				_ = n.id
				e.Release(h)
			}
		}(r)
	}

	// Let writers finish, then stop readers.
	go func() {
		writerWg.Wait()
		close(stop)
	}()
	wg.Wait()

	e.Flush()
	require.EqualValues(t, writers, counter.Load(), "one live object remains per writer slot")
}

func TestRetireRejectsNil(t *testing.T) {
	e := New(DefaultConfig())
	defer e.Close()

	var nilNode *trackedNode
	require.Equal(t, StatusInvalidParam, Retire(e, nilNode))
}

func TestPendingWaitingCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxThreads = MaxThreadsCeiling // tids are process-wide; earlier tests have used more than 16
	e := New(cfg)
	defer e.Close()

	var counter atomic.Int64
	h, status := e.Acquire()
	require.Equal(t, StatusSuccess, status)

	node := newTrackedNode(&counter, 0)
	require.Equal(t, StatusSuccess, Retire(e, node))
	require.EqualValues(t, 1, e.PendingWaitingCount())

	e.Release(h)
	e.Flush()
	require.Zero(t, e.PendingWaitingCount())
}

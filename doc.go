// Package smr provides a safe-memory-reclamation (SMR) engine: a practical
// hazard-pointer variant driven by a monotonically increasing global epoch
// counter instead of per-thread hazard-pointer slots.
//
// # Quick start
//
//	eng := smr.New(smr.DefaultConfig())
//	defer eng.Close()
//
//	h, status := eng.Acquire()
//	if status != smr.StatusSuccess {
//		// Busy (already holding a handle) or TooManyThreads.
//	}
//	p := atomic.LoadPointer(&shared) // read through the acquired epoch
//	_ = p
//	eng.Release(h)
//
// A writer that CAS-replaces a shared pointer hands the old value to the
// engine instead of freeing it directly:
//
//	smr.Retire(eng, oldNode)
//
// The engine guarantees oldNode is destroyed exactly once, no earlier than
// the point at which no Acquire…Release pair active at retire time could
// still observe it.
//
// # How it works
//
// Every call to Acquire publishes the engine's current global version to a
// per-goroutine slot, then re-reads the version to detect (and retry past)
// a race with a concurrent retire. Retire tags the retiring object with a
// freshly-bumped version and threads it onto the calling goroutine's
// retired list. Periodically — amortized across Release/Retire calls, never
// blocking a caller — the engine scans every registered goroutine's slot
// for its minimum currently-acquired version and destroys every retired
// object tagged at or below that minimum.
//
// # Example containers
//
// container/queue and container/stack build a Michael–Scott MPMC FIFO and
// a Treiber LIFO stack on top of this engine, demonstrating the contract
// a data structure needs to satisfy to retire its own nodes safely.
//
// # Performance
//
// Acquire/Release are wait-free except for the one-time, per-goroutine
// registration spin-lock. Once a goroutine is registered, its
// Acquire/Release pairs involve no heap allocation and no syscalls — the
// minimum-version cache is refreshed from a lock-free cached clock
// (github.com/agilira/go-timecache), not time.Now().
package smr

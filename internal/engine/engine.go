// Package engine implements the hazard-epoch safe memory reclamation core:
// a monotone global version counter, a pre-allocated per-goroutine slot
// table, and a reclamation pipeline that moves retired nodes between slots
// as epochs advance.
package engine

import (
	"reflect"
	"sync/atomic"
	"time"

	"github.com/agilira/go-timecache"
)

// isNilRetirable reports whether node is a nil pointer/interface wrapped
// in the Retirable type parameter. Retirable node types are always
// pointers in practice (RetiredHeader must return the address of their
// embedded RetiredNode header), but
// the constraint itself doesn't guarantee a nilable kind, so this checks
// via reflection rather than a bare `node == nil` that wouldn't compile
// for every instantiation.
func isNilRetirable[T Retirable](node T) bool {
	v := reflect.ValueOf(node)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

// Engine is the global coordinator. It must not be moved after its first
// method call — construct it with New and always hold it behind a pointer.
type Engine struct {
	globalVersion atomic.Uint64

	_ cacheLinePad

	registrationLock spinLock
	activeListHead   atomic.Pointer[ThreadSlot]
	activeCount      atomic.Int64

	_ cacheLinePad

	pendingTotal atomic.Int64

	_ cacheLinePad

	minVersionValue     atomic.Uint64
	minVersionTimestamp atomic.Int64

	slots []ThreadSlot

	perThreadThreshold atomic.Int64
	minVersionCacheTTL atomic.Int64 // microseconds
	logger             Logger
}

// New constructs an Engine ready to use. cfg is normalized with
// Config.Validate before any field is read.
func New(cfg Config) *Engine {
	cfg.Validate()
	e := &Engine{
		slots:  make([]ThreadSlot, cfg.MaxThreads),
		logger: cfg.Logger,
	}
	e.perThreadThreshold.Store(cfg.PerThreadThreshold)
	e.minVersionCacheTTL.Store(cfg.MinVersionCacheTTL.Microseconds())
	for i := range e.slots {
		e.slots[i].init(uint16(i))
	}
	return e
}

// SetPerThreadThreshold changes the retired-count threshold that triggers a
// local scan. Safe to call concurrently with Acquire/Release/Retire/Flush;
// takes effect for the next threshold comparison. MaxThreads has no
// equivalent setter — it sizes the pre-allocated slot array and is fixed
// for the engine's lifetime.
func (e *Engine) SetPerThreadThreshold(v int64) {
	if v <= 0 {
		v = DefaultPerThreadThreshold
	}
	e.perThreadThreshold.Store(v)
}

// SetMinVersionCacheTTL changes how long a cached minimum-version result
// may be reused before minVersion(false) forces a fresh scan. Safe to call
// concurrently.
func (e *Engine) SetMinVersionCacheTTL(d time.Duration) {
	if d <= 0 {
		d = DefaultMinVersionCacheTTL
	}
	e.minVersionCacheTTL.Store(d.Microseconds())
}

// nowMicros reads a cached wall-clock timestamp with no syscall on the hot
// path: go-timecache maintains the cache via a background refresh
// goroutine, so every call here is a single atomic load.
func nowMicros() int64 {
	return timecache.CachedTimeNano() / 1000
}

// getThreadSlot looks up the calling goroutine's slot, registering it
// under the spin-lock with double-checked locking if this is its first
// call.
func (e *Engine) getThreadSlot() (*ThreadSlot, Status) {
	tid := currentTID()
	if int(tid) >= len(e.slots) {
		return nil, StatusTooManyThreads
	}
	slot := &e.slots[tid]
	if !slot.enabled.Load() {
		e.registrationLock.Lock()
		if !slot.enabled.Load() {
			slot.next.Store(e.activeListHead.Load())
			e.activeListHead.Store(slot)
			e.activeCount.Add(1)
			slot.enabled.Store(true)
		}
		e.registrationLock.Unlock()
	}
	return slot, StatusSuccess
}

// Acquire is the reader entry point. It loops publishing the current
// global version to the caller's slot and re-reading the version; if the
// version moved between the publish and the re-read, the acquisition is
// retried so that a concurrent retire can never observe a half-published
// epoch.
func (e *Engine) Acquire() (Handle, Status) {
	slot, status := e.getThreadSlot()
	if status != StatusSuccess {
		return 0, status
	}
	for {
		v := e.globalVersion.Load()
		h, status := slot.acquire(v)
		if status != StatusSuccess {
			return 0, status
		}
		if e.globalVersion.Load() != v {
			slot.release(h, e.logger)
			continue
		}
		return h, StatusSuccess
	}
}

// Release ends the acquisition identified by h, then opportunistically
// reclaims: a local scan if this goroutine's own retired list has grown
// past threshold, else a global flush if the aggregate pending count
// across all goroutines looks disproportionate to how many are actually
// active.
func (e *Engine) Release(h Handle) {
	tid := h.tid()
	if int(tid) >= len(e.slots) {
		return
	}
	slot := &e.slots[tid]
	slot.release(h, e.logger)

	if slot.retiredCount.Load() > e.perThreadThreshold.Load() {
		e.localScan(slot)
	} else if e.activeCount.Load()*e.perThreadThreshold.Load() < e.pendingTotal.Load() {
		e.Flush()
	}
}

// Destroyer is implemented by Retirable node types that need to run
// cleanup beyond letting the garbage collector reclaim their memory — Go
// has no manual free, so "release its storage" happens for free once the
// node is unreachable, but a node wrapping e.g. a pooled buffer or
// external resource can still hook in via Destroy.
type Destroyer interface {
	Destroy()
}

// Retire hands node to the engine for deferred destruction. It tags node
// with the version the global counter reaches as part of this call, so
// any acquisition that started strictly before this retire can still
// safely observe whatever node replaced.
func Retire[T Retirable](e *Engine, node T) Status {
	if isNilRetirable(node) {
		return StatusInvalidParam
	}
	slot, status := e.getThreadSlot()
	if status != StatusSuccess {
		return status
	}
	header := node.RetiredHeader()
	header.version = e.globalVersion.Add(1)
	header.destroy = func() {
		if d, ok := any(node).(Destroyer); ok {
			d.Destroy()
		}
	}

	slot.addRetired(header, header, 1)
	e.pendingTotal.Add(1)

	if slot.retiredCount.Load() > e.perThreadThreshold.Load() {
		e.localScan(slot)
	} else if e.activeCount.Load()*e.perThreadThreshold.Load() < e.pendingTotal.Load() {
		e.Flush()
	}
	return StatusSuccess
}

// Flush forces a global reclamation pass: compute the minimum acquired
// version across every registered slot, then ask every slot to reclaim
// everything tagged at or below it, donating survivors into the calling
// goroutine's own slot.
func (e *Engine) Flush() Status {
	caller, status := e.getThreadSlot()
	if status != StatusSuccess {
		return status
	}
	v := e.minVersion(true)
	var reclaimed int64
	reclaimed += caller.scanRetire(v, caller)
	for s := e.activeListHead.Load(); s != nil; s = s.next.Load() {
		if s == caller {
			continue
		}
		reclaimed += s.scanRetire(v, caller)
	}
	e.pendingTotal.Add(-reclaimed)
	return StatusSuccess
}

// localScan runs a reclamation pass scoped to the caller's own slot, using
// a possibly-cached minimum version.
func (e *Engine) localScan(slot *ThreadSlot) {
	v := e.minVersion(false)
	reclaimed := slot.scanRetire(v, slot)
	e.pendingTotal.Add(-reclaimed)
}

// minVersion computes the lower bound of every currently-acquired epoch.
// With force=false a cached value may be returned if it is still within
// MinVersionCacheTTL; force=true always rescans.
func (e *Engine) minVersion(force bool) uint64 {
	if !force {
		if cached := e.minVersionValue.Load(); cached != 0 {
			if nowMicros() < e.minVersionTimestamp.Load()+e.minVersionCacheTTL.Load() {
				return cached
			}
		}
	}
	m := e.globalVersion.Load()
	for s := e.activeListHead.Load(); s != nil; s = s.next.Load() {
		if av := s.version(); av < m {
			m = av
		}
	}
	e.minVersionValue.Store(m)
	e.minVersionTimestamp.Store(nowMicros())
	return m
}

// PendingWaitingCount reports the current aggregate retired-but-not-yet-
// reclaimed count across every goroutine's slot.
func (e *Engine) PendingWaitingCount() int64 {
	return e.pendingTotal.Load()
}

// Close flushes once and then unconditionally destroys every node still
// retired on every slot. The caller must ensure no goroutine is inside an
// Acquire…Release pair when Close runs.
func (e *Engine) Close() {
	e.Flush()
	for i := range e.slots {
		e.slots[i].destroy()
	}
}

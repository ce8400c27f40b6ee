package engine

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Thread-ID allocation here is deliberately minimal: a stable small
// integer assigned to each participating goroutine on first use, with no
// TID reuse pool and no assembly-accelerated goroutine-ID read. A tid is
// never freed once assigned — ThreadSlot.enabled only ever transitions
// false→true.

var (
	goroutineTIDs sync.Map // int64 goroutine id -> uint16 tid
	nextTID       atomic.Uint32
)

// goroutineID extracts the current goroutine's runtime-assigned ID by
// parsing the header of its own stack trace ("goroutine 123 [running]:").
// No public Go API exposes a cheaper way to get this short of an unsafe
// linkname into runtime.g.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	return parseGoroutineID(buf[:n])
}

// parseGoroutineID parses the numeric ID out of "goroutine 123 [running]:...".
func parseGoroutineID(buf []byte) int64 {
	const prefix = "goroutine "
	if len(buf) < len(prefix) || string(buf[:len(prefix)]) != prefix {
		return 0
	}
	var gid int64
	for i := len(prefix); i < len(buf); i++ {
		c := buf[i]
		if c < '0' || c > '9' {
			break
		}
		gid = gid*10 + int64(c-'0')
	}
	return gid
}

// currentTID returns the calling goroutine's stable small tid, assigning
// one from the process-wide monotone counter on first use and caching the
// mapping for subsequent calls from the same goroutine.
func currentTID() uint16 {
	gid := goroutineID()
	if v, ok := goroutineTIDs.Load(gid); ok {
		return v.(uint16)
	}
	tid := uint16(nextTID.Add(1) - 1)
	actual, _ := goroutineTIDs.LoadOrStore(gid, tid)
	return actual.(uint16)
}

package engine

import "runtime"

// cacheLineSize is the assumed size of a CPU cache line on the platforms
// this engine targets (amd64/arm64). It's used only to size padding; a
// wrong guess costs a little wasted memory, not correctness.
const cacheLineSize = 64

// cacheLinePad separates two hot, independently-written fields so they
// don't share a cache line. Go has no struct alignment attribute, so
// fields that are written by different goroutines get a `cacheLinePad`
// between them instead. This doesn't guarantee the *start* of a field
// falls on a cache line boundary, only that two padded fields can't fall
// on the *same* one, which is what false-sharing avoidance actually
// requires.
type cacheLinePad [cacheLineSize]byte

// pause yields the processor to other goroutines once, via
// runtime.Gosched; there is no busy-spin phase before it. Go has no PAUSE/YIELD
// CPU intrinsic in the standard library; runtime.Gosched is the closest
// available primitive, and is cheap enough to call on every failed spin
// iteration of the registration lock, which is only ever held for the
// handful of instructions needed to link a new ThreadSlot into the active
// list.
func pause() {
	runtime.Gosched()
}

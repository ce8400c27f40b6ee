package engine

import "sync/atomic"

// RetiredNode is the per-retired-object bookkeeping header. Once threaded
// onto a ThreadSlot's list, its version and destroy fields are immutable —
// only next is ever rewritten: by ThreadSlot.addRetired before its CAS
// publishes the node, and by ThreadSlot.scanRetire on a list it has taken
// whole.
type RetiredNode struct {
	version uint64
	next    atomic.Pointer[RetiredNode]

	// destroy runs the retired object's destructor and releases its
	// storage. Go interfaces already give a thin virtual-dispatch
	// mechanism, so rather than an unsafe fat-pointer trait-object
	// transmute, Retire closes over the concrete *T via the Retirable's
	// own RetiredHeader plumbing — see Retire in engine.go.
	destroy func()
}

// Retirable is implemented by node types that embed a RetiredNode header
// and want the engine to manage their reclamation. Node types are
// unrelated to each other by design — RetiredHeader is the only thing
// they share.
type Retirable interface {
	// RetiredHeader returns the node's embedded RetiredNode, allocated and
	// owned by the node itself. The engine never allocates a RetiredNode
	// on the caller's behalf.
	RetiredHeader() *RetiredNode
}

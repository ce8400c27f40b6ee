package smr

import "github.com/solotzg/go-lockfree/internal/engine"

// Status is the closed set of outcomes Acquire/Release/Retire/Flush can
// return. There is no error-interface path through the engine's hot
// operations.
type Status = engine.Status

const (
	// StatusSuccess indicates the call completed normally.
	StatusSuccess = engine.StatusSuccess

	// StatusBusy indicates the calling goroutine already holds a handle
	// from a prior Acquire it has not yet Released.
	StatusBusy = engine.StatusBusy

	// StatusTooManyThreads indicates the calling goroutine would need a
	// tid beyond the engine's configured MaxThreads to register.
	StatusTooManyThreads = engine.StatusTooManyThreads

	// StatusInvalidParam indicates a nil node was passed to Retire.
	StatusInvalidParam = engine.StatusInvalidParam
)

package engine

import (
	"github.com/agilira/go-errors"
)

// Error codes for conditions the engine logs rather than returns. None of
// these ever reach a caller as a returned error — they're built for their
// structured context and handed to Logger.Warn/Error.
const (
	ErrCodeStaleHandle errors.ErrorCode = "SMR_STALE_HANDLE"
)

func diagStaleHandle(tid uint16, haveSeq, wantSeq uint32) error {
	return errors.NewWithContext(ErrCodeStaleHandle, "release called with a stale or mismatched handle",
		map[string]interface{}{
			"tid":      tid,
			"have_seq": haveSeq,
			"want_seq": wantSeq,
		})
}

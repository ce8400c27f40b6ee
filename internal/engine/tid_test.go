package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseGoroutineID(t *testing.T) {
	require.EqualValues(t, 123, parseGoroutineID([]byte("goroutine 123 [running]:\nmain.main()")))
	require.EqualValues(t, 0, parseGoroutineID([]byte("not a goroutine header")))
}

func TestCurrentTIDStableAndDistinct(t *testing.T) {
	tid := currentTID()
	require.Equal(t, tid, currentTID(), "repeated calls from the same goroutine return the same tid")

	const n = 16
	tids := make(chan uint16, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			tids <- currentTID()
		}()
	}
	wg.Wait()
	close(tids)

	seen := make(map[uint16]bool)
	for id := range tids {
		require.False(t, seen[id], "tid %d assigned to two goroutines", id)
		seen[id] = true
	}
	require.Len(t, seen, n)
}

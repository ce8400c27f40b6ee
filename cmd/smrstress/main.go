// Command smrstress drives the hazard-epoch engine (and the queue/stack
// containers built on it) under configurable concurrent read/write load.
// It is an interactive stress harness, not a build-orchestration tool —
// it never touches the Go toolchain.
package main

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	flashflags "github.com/agilira/flash-flags"

	"github.com/solotzg/go-lockfree"
	"github.com/solotzg/go-lockfree/container/queue"
	"github.com/solotzg/go-lockfree/container/stack"
)

func main() {
	fs := flashflags.New("smrstress")
	writers := fs.Int("writers", runtime.NumCPU()/2, "number of writer goroutines")
	readers := fs.Int("readers", runtime.NumCPU()/2, "number of reader goroutines")
	retiresPerWriter := fs.Int64("retires-per-writer", 100_000, "retire() calls each writer issues")
	maxThreads := fs.Int("max-threads", 4096, "engine MaxThreads; must exceed writers+readers+1")
	mode := fs.String("mode", "engine", "what to stress: engine, queue, or stack")
	fs.Parse(os.Args[1:])

	if *writers < 1 {
		*writers = 1
	}
	if *readers < 0 {
		*readers = 0
	}

	switch *mode {
	case "engine":
		runEngineStress(*writers, *readers, *retiresPerWriter, *maxThreads)
	case "queue":
		runQueueStress(*writers, *readers, *retiresPerWriter, *maxThreads)
	case "stack":
		runStackStress(*writers, *readers, *retiresPerWriter, *maxThreads)
	default:
		fmt.Fprintf(os.Stderr, "smrstress: unknown -mode %q (want engine, queue, or stack)\n", *mode)
		os.Exit(1)
	}
}

type stressNode struct {
	smr.RetiredNode
	id int64
}

func (n *stressNode) RetiredHeader() *smr.RetiredNode { return &n.RetiredNode }

func runEngineStress(writers, readers int, retiresPerWriter int64, maxThreads int) {
	cfg := smr.DefaultConfig()
	cfg.MaxThreads = maxThreads
	eng := smr.New(cfg)
	defer eng.Close()

	var live atomic.Int64
	var shared = make([]atomic.Pointer[stressNode], writers)
	for i := range shared {
		n := &stressNode{id: 0}
		live.Add(1)
		shared[i].Store(n)
	}

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(writers + readers)
	var writerWg sync.WaitGroup
	writerWg.Add(writers)
	for w := 0; w < writers; w++ {
		go func(slot int) {
			defer wg.Done()
			defer writerWg.Done()
			for i := int64(1); i <= retiresPerWriter; i++ {
				next := &stressNode{id: i}
				live.Add(1)
				old := shared[slot].Swap(next)
				if smr.Retire(eng, old) != smr.StatusSuccess {
					continue
				}
				live.Add(-1)
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
				h, status := eng.Acquire()
				if status != smr.StatusSuccess {
					continue
				}
				_ = shared[slot%writers].Load()
				eng.Release(h)
			}
		}(r)
	}

	done := make(chan struct{})
	go func() {
		writerWg.Wait()
		close(done)
	}()
	// Re-wrap writer completion so the reader-stop signal fires once every
	// writer goroutine above has actually returned.
	go func() {
		<-done
		close(stop)
	}()
	wg.Wait()

	elapsed := time.Since(start)
	total := int64(writers) * retiresPerWriter
	fmt.Printf("engine: %d retires across %d writers, %d readers in %s (%.0f retires/s)\n",
		total, writers, readers, elapsed, float64(total)/elapsed.Seconds())
	fmt.Printf("pending waiting: %d, live (not yet retired): %d\n", eng.PendingWaitingCount(), live.Load())
}

func runQueueStress(writers, readers int, enqueuesPerWriter int64, maxThreads int) {
	cfg := smr.DefaultConfig()
	cfg.MaxThreads = maxThreads
	q := queue.New[int64](cfg)
	defer q.Close()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(writers)
	for w := 0; w < writers; w++ {
		go func(base int64) {
			defer wg.Done()
			for i := int64(0); i < enqueuesPerWriter; i++ {
				q.Enqueue(base + i)
			}
		}(int64(w) * enqueuesPerWriter)
	}

	var dequeued atomic.Int64
	stop := make(chan struct{})
	var readerWg sync.WaitGroup
	readerWg.Add(readers)
	for r := 0; r < readers; r++ {
		go func() {
			defer readerWg.Done()
			for {
				if _, ok := q.Dequeue(); ok {
					dequeued.Add(1)
					continue
				}
				select {
				case <-stop:
					return
				default:
				}
			}
		}()
	}

	wg.Wait()
	close(stop)
	readerWg.Wait()

	elapsed := time.Since(start)
	fmt.Printf("queue: %d enqueues, %d dequeues in %s\n", int64(writers)*enqueuesPerWriter, dequeued.Load(), elapsed)
}

func runStackStress(writers, readers int, pushesPerWriter int64, maxThreads int) {
	cfg := smr.DefaultConfig()
	cfg.MaxThreads = maxThreads
	s := stack.New[int64](cfg)
	defer s.Close()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(writers)
	for w := 0; w < writers; w++ {
		go func(base int64) {
			defer wg.Done()
			for i := int64(0); i < pushesPerWriter; i++ {
				s.Push(base + i)
			}
		}(int64(w) * pushesPerWriter)
	}

	var popped atomic.Int64
	stop := make(chan struct{})
	var readerWg sync.WaitGroup
	readerWg.Add(readers)
	for r := 0; r < readers; r++ {
		go func() {
			defer readerWg.Done()
			for {
				if _, ok := s.Pop(); ok {
					popped.Add(1)
					continue
				}
				select {
				case <-stop:
					return
				default:
				}
			}
		}()
	}

	wg.Wait()
	close(stop)
	readerWg.Wait()

	elapsed := time.Since(start)
	fmt.Printf("stack: %d pushes, %d pops in %s\n", int64(writers)*pushesPerWriter, popped.Load(), elapsed)
}

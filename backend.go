package lbvh

import (
	"runtime"
	"sync"
)

// Backend selects the low-level parallel-for and sort primitives used while
// building a tree. Backends change scheduling only, never observable
// results: every per-index body must be order independent.
type Backend interface {
	Name() string

	// For runs body(i) for every i in [0, n). Iteration order is
	// unspecified; For returns only after every call completed.
	For(n int, body func(i int))

	// SortPairs stably sorts codes ascending, carrying indices along.
	SortPairs(codes []uint64, indices []int32)

	// PollPublication reports whether propagated boxes are published and
	// read back word-wise against a sentinel value instead of relying on
	// the arrival counter's ordering. Used by targets with weak memory
	// visibility between work items.
	PollPublication() bool
}

type seqBackend struct{}

// Sequential is the single-threaded backend. Sorting uses the stable
// comparison fallback with an explicit gather pass.
func Sequential() Backend { return seqBackend{} }

func (seqBackend) Name() string { return "sequential" }

func (seqBackend) For(n int, body func(i int)) {
	for i := 0; i < n; i++ {
		body(i)
	}
}

func (seqBackend) SortPairs(codes []uint64, indices []int32) {
	stableSortPairs(codes, indices)
}

func (seqBackend) PollPublication() bool { return false }

type threadsBackend struct {
	workers int
}

// Threads is the shared-memory CPU backend: chunked parallel-for over a
// goroutine pool. workers <= 0 selects runtime.NumCPU().
func Threads(workers int) Backend {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &threadsBackend{workers: workers}
}

func (b *threadsBackend) Name() string { return "threads" }

func (b *threadsBackend) For(n int, body func(i int)) {
	if n <= 0 {
		return
	}
	workers := b.workers
	if workers > n {
		workers = n
	}
	if workers == 1 {
		for i := 0; i < n; i++ {
			body(i)
		}
		return
	}

	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := min(start+chunk, n)
		if start >= end {
			break
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				body(i)
			}
		}(start, end)
	}
	wg.Wait()
}

func (b *threadsBackend) SortPairs(codes []uint64, indices []int32) {
	radixSortPairs(codes, indices)
}

func (b *threadsBackend) PollPublication() bool { return false }

type deviceBackend struct {
	threadsBackend
}

// Device models a device-parallel target with weak memory visibility
// between work items: scheduling matches Threads, but propagated boxes are
// published word-wise and readers spin against the invalid-box sentinel
// until the real value appears. The poll is a correctness workaround on
// such targets and is deliberately kept rather than replaced by a fence.
func Device() Backend {
	return &deviceBackend{threadsBackend{workers: runtime.NumCPU()}}
}

func (b *deviceBackend) Name() string { return "device" }

func (b *deviceBackend) PollPublication() bool { return true }

// Package parallel splits index ranges across goroutines.
package parallel

import (
	"runtime"
	"sync"
)

// Workers returns the number of goroutines used for items: GOMAXPROCS, but
// never more than items.
func Workers(items int) int {
	n := runtime.GOMAXPROCS(0)
	if n > items {
		n = items
	}
	return n
}

// Parallelize divides items into contiguous ranges, one per worker, and
// runs fn(start, end) for each range concurrently. It returns when every
// call has returned.
func Parallelize(items int, fn func(start, end int)) {
	ParallelizeWorkers(items, Workers(items), fn)
}

// ParallelizeWorkers is Parallelize with an explicit worker count.
func ParallelizeWorkers(items, workers int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	if workers < 1 {
		workers = 1
	}
	if workers > items {
		workers = items
	}

	// Ceiling division so the last range absorbs the remainder
	chunkSize := (items + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < items; start += chunkSize {
		end := start + chunkSize
		if end > items {
			end = items
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn(0, items) on the calling goroutine when
// items does not exceed threshold, and Parallelize otherwise.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}

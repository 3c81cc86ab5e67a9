package parallel

import (
	"sync/atomic"
	"testing"
)

func TestParallelize(t *testing.T) {
	for _, items := range []int{0, 1, 7, 1000} {
		seen := make([]int32, items)
		Parallelize(items, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&seen[i], 1)
			}
		})
		for i, n := range seen {
			if n != 1 {
				t.Fatalf("items=%d: index %d visited %d times", items, i, n)
			}
		}
	}
}

func TestParallelizeWithThreshold(t *testing.T) {
	var calls int32
	ParallelizeWithThreshold(5, 10, func(start, end int) {
		atomic.AddInt32(&calls, 1)
		if start != 0 || end != 5 {
			t.Errorf("sequential range = [%d, %d)", start, end)
		}
	})
	if calls != 1 {
		t.Errorf("below threshold: %d calls, want 1", calls)
	}
}

func TestParallelizeWorkers(t *testing.T) {
	var calls int32
	ParallelizeWorkers(10, 3, func(start, end int) {
		atomic.AddInt32(&calls, 1)
	})
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if w := Workers(1); w != 1 {
		t.Errorf("Workers(1) = %d", w)
	}
}

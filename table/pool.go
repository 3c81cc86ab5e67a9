package table

import (
	"sync"
	"sync/atomic"

	"github.com/YuminosukeSato/numtable/dtype"
)

// PoolStats tracks block buffer pool usage.
type PoolStats struct {
	TotalAllocated   int64
	TotalRecycled    int64
	CurrentInUse     int64
	PeakUsage        int64
	AverageReuseRate float64
}

// bufferPool recycles block buffers of one target type.
type bufferPool[T dtype.Target] struct {
	pool     sync.Pool
	inUse    atomic.Int64
	created  atomic.Int64
	recycled atomic.Int64
	peak     atomic.Int64
}

func newBufferPool[T dtype.Target]() *bufferPool[T] {
	p := &bufferPool[T]{}
	p.pool.New = func() any {
		p.created.Add(1)
		return new([]T)
	}
	return p
}

var (
	float64Pool = newBufferPool[float64]()
	float32Pool = newBufferPool[float32]()
	int32Pool   = newBufferPool[int32]()
)

func poolFor[T dtype.Target]() *bufferPool[T] {
	var zero T
	switch any(zero).(type) {
	case float64:
		return any(float64Pool).(*bufferPool[T])
	case float32:
		return any(float32Pool).(*bufferPool[T])
	default:
		return any(int32Pool).(*bufferPool[T])
	}
}

// get returns a zeroed buffer of length n.
func (p *bufferPool[T]) get(n int) *[]T {
	current := p.inUse.Add(1)
	for {
		peak := p.peak.Load()
		if current <= peak || p.peak.CompareAndSwap(peak, current) {
			break
		}
	}

	buf := p.pool.Get().(*[]T)
	if cap(*buf) < n {
		*buf = make([]T, n)
	} else {
		*buf = (*buf)[:n]
		clear(*buf)
	}
	return buf
}

func (p *bufferPool[T]) put(buf *[]T) {
	p.inUse.Add(-1)
	p.recycled.Add(1)
	p.pool.Put(buf)
}

func (p *bufferPool[T]) stats() PoolStats {
	total := p.created.Load()
	recycled := p.recycled.Load()
	reuseRate := float64(0)
	if total > 0 {
		reuseRate = float64(recycled) / float64(total)
	}
	return PoolStats{
		TotalAllocated:   total,
		TotalRecycled:    recycled,
		CurrentInUse:     p.inUse.Load(),
		PeakUsage:        p.peak.Load(),
		AverageReuseRate: reuseRate,
	}
}

// BlockPoolStats returns usage statistics of the block buffer pool for T.
func BlockPoolStats[T dtype.Target]() PoolStats {
	return poolFor[T]().stats()
}

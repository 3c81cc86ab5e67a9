package table

import (
	"sync"
	"unsafe"

	"github.com/YuminosukeSato/numtable/pkg/errors"
)

// CacheLineSize is the alignment of memory returned by DefaultAllocator.
const CacheLineSize = 64

// Allocator provides the backing storage of internally allocated tables.
// Allocate must return zeroed memory of exactly n bytes.
type Allocator interface {
	Allocate(n int) ([]byte, error)
	Free(b []byte)
}

// DefaultAllocator allocates cache-line aligned heap memory. Free is a no-op;
// the garbage collector reclaims released buffers.
type DefaultAllocator struct{}

// Allocate returns n zeroed bytes aligned to CacheLineSize.
func (DefaultAllocator) Allocate(n int) ([]byte, error) {
	if n <= 0 {
		return nil, errors.NewTableErrorf("Allocate", errors.MemoryAllocationFailed,
			"invalid allocation size %d", n)
	}
	return alignedBytes(n), nil
}

// Free implements Allocator.
func (DefaultAllocator) Free([]byte) {}

func alignedBytes(size int) []byte {
	buf := make([]byte, size+CacheLineSize-1)
	ptr := uintptr(unsafe.Pointer(&buf[0]))
	offset := 0
	if mod := int(ptr % CacheLineSize); mod != 0 {
		offset = CacheLineSize - mod
	}
	return buf[offset : offset+size : offset+size]
}

// LimitedAllocator enforces a byte budget on top of another allocator.
type LimitedAllocator struct {
	next      Allocator
	maxMemory int64
	used      int64
	mu        sync.Mutex
}

// NewLimitedAllocator returns an allocator that fails with
// MemoryAllocationFailed once more than maxBytes are live.
func NewLimitedAllocator(maxBytes int64) *LimitedAllocator {
	return &LimitedAllocator{next: DefaultAllocator{}, maxMemory: maxBytes}
}

// CanAllocate reports whether n more bytes fit in the budget.
func (a *LimitedAllocator) CanAllocate(n int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.used+int64(n) <= a.maxMemory
}

// Allocate implements Allocator.
func (a *LimitedAllocator) Allocate(n int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.used+int64(n) > a.maxMemory {
		return nil, errors.NewTableErrorf("Allocate", errors.MemoryAllocationFailed,
			"memory limit exceeded: %d + %d > %d", a.used, n, a.maxMemory)
	}
	b, err := a.next.Allocate(n)
	if err != nil {
		return nil, err
	}
	a.used += int64(n)
	return b, nil
}

// Free implements Allocator.
func (a *LimitedAllocator) Free(b []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.used -= int64(cap(b))
	if a.used < 0 {
		a.used = 0
	}
	a.next.Free(b)
}

// Usage returns the live and maximum byte counts.
func (a *LimitedAllocator) Usage() (used, max int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.used, a.maxMemory
}

// buffer is a storage handle tagged with its ownership. Owned buffers came
// from the table's allocator and are freed exactly once; borrowed buffers
// belong to the caller and are never freed.
type buffer struct {
	data  []byte
	owned bool
}

func (b *buffer) empty() bool { return b.data == nil }

// release frees an owned buffer and zeroes the handle.
func (b *buffer) release(a Allocator) {
	if b.owned && b.data != nil {
		a.Free(b.data)
	}
	*b = buffer{}
}

func borrowed(data []byte) buffer { return buffer{data: data} }

// resize sets the buffer length to n bytes, reallocating an owned buffer
// that is too small. Bytes exposed by growth are zero.
func (b *buffer) resize(a Allocator, n int) error {
	if n <= cap(b.data) {
		old := len(b.data)
		b.data = b.data[:n]
		if n > old {
			clear(b.data[old:])
		}
		return nil
	}
	grown, err := allocateBuffer(a, n)
	if err != nil {
		return err
	}
	copy(grown.data, b.data)
	b.release(a)
	*b = grown
	return nil
}

func allocateBuffer(a Allocator, n int) (buffer, error) {
	data, err := a.Allocate(n)
	if err != nil {
		return buffer{}, err
	}
	if len(data) < n {
		return buffer{}, errors.NewTableErrorf("Allocate", errors.MemoryAllocationFailed,
			"allocator returned %d bytes, want %d", len(data), n)
	}
	return buffer{data: data[:n], owned: true}, nil
}

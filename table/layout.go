package table

import "fmt"

// Layout is the storage layout of a table.
type Layout uint8

const (
	// LayoutAOS stores one fixed-size record per row.
	LayoutAOS Layout = iota + 1
	// LayoutSOA stores one contiguous array per column.
	LayoutSOA
	// LayoutHomogen stores a row-major matrix of a single native type.
	LayoutHomogen
)

func (l Layout) String() string {
	switch l {
	case LayoutAOS:
		return "aos"
	case LayoutSOA:
		return "soa"
	case LayoutHomogen:
		return "homogen"
	default:
		return fmt.Sprintf("Layout(%d)", uint8(l))
	}
}

// ParseLayout parses "aos", "soa" or "homogen".
func ParseLayout(s string) (Layout, bool) {
	switch s {
	case "aos":
		return LayoutAOS, true
	case "soa":
		return LayoutSOA, true
	case "homogen":
		return LayoutHomogen, true
	}
	return 0, false
}

// MemoryStatus reports who owns a table's storage.
type MemoryStatus uint8

const (
	NotAllocated MemoryStatus = iota
	InternallyAllocated
	UserAllocated
)

func (s MemoryStatus) String() string {
	switch s {
	case NotAllocated:
		return "not_allocated"
	case InternallyAllocated:
		return "internally_allocated"
	case UserAllocated:
		return "user_allocated"
	default:
		return fmt.Sprintf("MemoryStatus(%d)", uint8(s))
	}
}

// ReadWriteMode is the access intent of a block.
type ReadWriteMode uint8

const (
	ReadOnly ReadWriteMode = 1 << iota
	WriteOnly
	ReadWrite = ReadOnly | WriteOnly
)

func (m ReadWriteMode) reads() bool  { return m&ReadOnly != 0 }
func (m ReadWriteMode) writes() bool { return m&WriteOnly != 0 }

func (m ReadWriteMode) String() string {
	switch m {
	case ReadOnly:
		return "read"
	case WriteOnly:
		return "write"
	case ReadWrite:
		return "read_write"
	default:
		return fmt.Sprintf("ReadWriteMode(%d)", uint8(m))
	}
}

package table

import (
	"unsafe"

	"github.com/YuminosukeSato/numtable/dtype"
)

var hostLittleEndian = func() bool {
	x := uint16(1)
	return *(*byte)(unsafe.Pointer(&x)) == 1
}()

// viewAs reinterprets little-endian storage as a slice of E without copying.
// It fails when b is not aligned for E or the host is big-endian.
func viewAs[E dtype.Native](b []byte) ([]E, bool) {
	var zero E
	size := int(unsafe.Sizeof(zero))
	if !hostLittleEndian {
		return nil, false
	}
	if len(b) < size {
		return []E{}, true
	}
	if uintptr(unsafe.Pointer(&b[0]))%unsafe.Alignof(zero) != 0 {
		return nil, false
	}
	return unsafe.Slice((*E)(unsafe.Pointer(&b[0])), len(b)/size), true
}

// bytesOf returns the storage bytes of s.
func bytesOf[E dtype.Native](s []E) []byte {
	if len(s) == 0 {
		return []byte{}
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(s[0])))
}

package dtype

import (
	"encoding/binary"
	"math"

	"github.com/YuminosukeSato/numtable/pkg/errors"
)

// UpCast reads n native elements starting at src, byte stride srcStride,
// and writes them as T into dst at element stride dstStride.
type UpCast[T Target] func(n int, src []byte, srcStride int, dst []T, dstStride int)

// DownCast reads n elements of T from src at element stride srcStride and
// writes them as native elements into dst at byte stride dstStride.
type DownCast[T Target] func(n int, src []T, srcStride int, dst []byte, dstStride int)

// Float to integer down-casts truncate toward zero. Values outside the
// native range wrap as Go conversions do.

func upInt8[T Target](n int, src []byte, srcStride int, dst []T, dstStride int) {
	for i := 0; i < n; i++ {
		dst[i*dstStride] = T(int8(src[i*srcStride]))
	}
}

func downInt8[T Target](n int, src []T, srcStride int, dst []byte, dstStride int) {
	for i := 0; i < n; i++ {
		dst[i*dstStride] = byte(int8(src[i*srcStride]))
	}
}

func upUint8[T Target](n int, src []byte, srcStride int, dst []T, dstStride int) {
	for i := 0; i < n; i++ {
		dst[i*dstStride] = T(src[i*srcStride])
	}
}

func downUint8[T Target](n int, src []T, srcStride int, dst []byte, dstStride int) {
	for i := 0; i < n; i++ {
		dst[i*dstStride] = uint8(src[i*srcStride])
	}
}

func upInt16[T Target](n int, src []byte, srcStride int, dst []T, dstStride int) {
	for i := 0; i < n; i++ {
		dst[i*dstStride] = T(int16(binary.LittleEndian.Uint16(src[i*srcStride:])))
	}
}

func downInt16[T Target](n int, src []T, srcStride int, dst []byte, dstStride int) {
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(dst[i*dstStride:], uint16(int16(src[i*srcStride])))
	}
}

func upUint16[T Target](n int, src []byte, srcStride int, dst []T, dstStride int) {
	for i := 0; i < n; i++ {
		dst[i*dstStride] = T(binary.LittleEndian.Uint16(src[i*srcStride:]))
	}
}

func downUint16[T Target](n int, src []T, srcStride int, dst []byte, dstStride int) {
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(dst[i*dstStride:], uint16(src[i*srcStride]))
	}
}

func upInt32[T Target](n int, src []byte, srcStride int, dst []T, dstStride int) {
	for i := 0; i < n; i++ {
		dst[i*dstStride] = T(int32(binary.LittleEndian.Uint32(src[i*srcStride:])))
	}
}

func downInt32[T Target](n int, src []T, srcStride int, dst []byte, dstStride int) {
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(dst[i*dstStride:], uint32(int32(src[i*srcStride])))
	}
}

func upUint32[T Target](n int, src []byte, srcStride int, dst []T, dstStride int) {
	for i := 0; i < n; i++ {
		dst[i*dstStride] = T(binary.LittleEndian.Uint32(src[i*srcStride:]))
	}
}

func downUint32[T Target](n int, src []T, srcStride int, dst []byte, dstStride int) {
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(dst[i*dstStride:], uint32(src[i*srcStride]))
	}
}

func upInt64[T Target](n int, src []byte, srcStride int, dst []T, dstStride int) {
	for i := 0; i < n; i++ {
		dst[i*dstStride] = T(int64(binary.LittleEndian.Uint64(src[i*srcStride:])))
	}
}

func downInt64[T Target](n int, src []T, srcStride int, dst []byte, dstStride int) {
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint64(dst[i*dstStride:], uint64(int64(src[i*srcStride])))
	}
}

func upUint64[T Target](n int, src []byte, srcStride int, dst []T, dstStride int) {
	for i := 0; i < n; i++ {
		dst[i*dstStride] = T(binary.LittleEndian.Uint64(src[i*srcStride:]))
	}
}

func downUint64[T Target](n int, src []T, srcStride int, dst []byte, dstStride int) {
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint64(dst[i*dstStride:], uint64(src[i*srcStride]))
	}
}

func upFloat32[T Target](n int, src []byte, srcStride int, dst []T, dstStride int) {
	for i := 0; i < n; i++ {
		dst[i*dstStride] = T(math.Float32frombits(binary.LittleEndian.Uint32(src[i*srcStride:])))
	}
}

func downFloat32[T Target](n int, src []T, srcStride int, dst []byte, dstStride int) {
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(dst[i*dstStride:], math.Float32bits(float32(src[i*srcStride])))
	}
}

func upFloat64[T Target](n int, src []byte, srcStride int, dst []T, dstStride int) {
	for i := 0; i < n; i++ {
		dst[i*dstStride] = T(math.Float64frombits(binary.LittleEndian.Uint64(src[i*srcStride:])))
	}
}

func downFloat64[T Target](n int, src []T, srcStride int, dst []byte, dstStride int) {
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint64(dst[i*dstStride:], math.Float64bits(float64(src[i*srcStride])))
	}
}

func buildUpCasts[T Target]() [numTypes]UpCast[T] {
	return [numTypes]UpCast[T]{
		Int8:    upInt8[T],
		Uint8:   upUint8[T],
		Int16:   upInt16[T],
		Uint16:  upUint16[T],
		Int32:   upInt32[T],
		Uint32:  upUint32[T],
		Int64:   upInt64[T],
		Uint64:  upUint64[T],
		Float32: upFloat32[T],
		Float64: upFloat64[T],
	}
}

func buildDownCasts[T Target]() [numTypes]DownCast[T] {
	return [numTypes]DownCast[T]{
		Int8:    downInt8[T],
		Uint8:   downUint8[T],
		Int16:   downInt16[T],
		Uint16:  downUint16[T],
		Int32:   downInt32[T],
		Uint32:  downUint32[T],
		Int64:   downInt64[T],
		Uint64:  downUint64[T],
		Float32: downFloat32[T],
		Float64: downFloat64[T],
	}
}

// The dispatch tables are filled once and never written again.
var (
	upCastFloat64   = buildUpCasts[float64]()
	upCastFloat32   = buildUpCasts[float32]()
	upCastInt32     = buildUpCasts[int32]()
	downCastFloat64 = buildDownCasts[float64]()
	downCastFloat32 = buildDownCasts[float32]()
	downCastInt32   = buildDownCasts[int32]()
)

// VectorUpCast returns the converter from native storage to T.
func VectorUpCast[T Target](native Type) (UpCast[T], error) {
	if !native.Valid() {
		return nil, errors.NewTableErrorf("dtype.VectorUpCast", errors.DataTypeNotSupported,
			"no conversion from %s to %s", native, TargetOf[T]())
	}
	var zero T
	switch any(zero).(type) {
	case float64:
		return any(upCastFloat64[native]).(UpCast[T]), nil
	case float32:
		return any(upCastFloat32[native]).(UpCast[T]), nil
	default:
		return any(upCastInt32[native]).(UpCast[T]), nil
	}
}

// VectorDownCast returns the converter from T back to native storage.
func VectorDownCast[T Target](native Type) (DownCast[T], error) {
	if !native.Valid() {
		return nil, errors.NewTableErrorf("dtype.VectorDownCast", errors.DataTypeNotSupported,
			"no conversion from %s to %s", TargetOf[T](), native)
	}
	var zero T
	switch any(zero).(type) {
	case float64:
		return any(downCastFloat64[native]).(DownCast[T]), nil
	case float32:
		return any(downCastFloat32[native]).(DownCast[T]), nil
	default:
		return any(downCastInt32[native]).(DownCast[T]), nil
	}
}

// TargetOf returns the native tag matching the target type T.
func TargetOf[T Target]() Type {
	var zero T
	switch any(zero).(type) {
	case float64:
		return Float64
	case float32:
		return Float32
	default:
		return Int32
	}
}

// Same reports whether a and b hold the same target value. NaNs compare
// equal to each other.
func Same[T Target](a, b T) bool {
	return a == b || (a != a && b != b)
}

// VectorWriteBack returns a down-cast that leaves a native element
// untouched when the incoming value is the Same as that element's up-cast.
// Values a lossy conversion read out and the caller did not change are
// therefore written back byte for byte.
func VectorWriteBack[T Target](native Type) (DownCast[T], error) {
	up, err := VectorUpCast[T](native)
	if err != nil {
		return nil, err
	}
	down, err := VectorDownCast[T](native)
	if err != nil {
		return nil, err
	}
	size := native.Size()
	return func(n int, src []T, srcStride int, dst []byte, dstStride int) {
		var cur [1]T
		for i := 0; i < n; i++ {
			elem := dst[i*dstStride : i*dstStride+size]
			up(1, elem, size, cur[:], 1)
			if Same(cur[0], src[i*srcStride]) {
				continue
			}
			down(1, src[i*srcStride:], srcStride, elem, size)
		}
	}, nil
}

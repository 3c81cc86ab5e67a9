// Package dtype describes the native element types a numeric table can store
// and the strided converters between them and the types clients request.
//
// Native values are stored little-endian with no alignment requirement, so a
// column may sit at any byte offset inside a record.
package dtype

import (
	"encoding/binary"
	"math"
)

// Type is the tag of a native element type.
type Type uint8

const (
	Other Type = iota
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float32
	Float64

	numTypes
)

// Native is the set of Go types a table can store.
type Native interface {
	int8 | uint8 | int16 | uint16 | int32 | uint32 | int64 | uint64 | float32 | float64
}

// Target is the set of types a client may request a block in.
type Target interface {
	float64 | float32 | int32
}

var typeSizes = [numTypes]int{
	Int8:    1,
	Uint8:   1,
	Int16:   2,
	Uint16:  2,
	Int32:   4,
	Uint32:  4,
	Int64:   8,
	Uint64:  8,
	Float32: 4,
	Float64: 8,
}

var typeNames = [numTypes]string{
	Other:   "other",
	Int8:    "int8",
	Uint8:   "uint8",
	Int16:   "int16",
	Uint16:  "uint16",
	Int32:   "int32",
	Uint32:  "uint32",
	Int64:   "int64",
	Uint64:  "uint64",
	Float32: "float32",
	Float64: "float64",
}

// Size returns the byte size of the type, or 0 for Other.
func (t Type) Size() int {
	if t >= numTypes {
		return 0
	}
	return typeSizes[t]
}

// Valid reports whether t is a numeric native type.
func (t Type) Valid() bool {
	return t > Other && t < numTypes
}

// IsFloat reports whether t is float32 or float64.
func (t Type) IsFloat() bool {
	return t == Float32 || t == Float64
}

func (t Type) String() string {
	if t >= numTypes {
		return "invalid"
	}
	return typeNames[t]
}

// ParseType returns the type named s, or Other.
func ParseType(s string) Type {
	for i, name := range typeNames {
		if name == s {
			return Type(i)
		}
	}
	return Other
}

// TypeOf returns the tag of the Go type N.
func TypeOf[N Native]() Type {
	var zero N
	switch any(zero).(type) {
	case int8:
		return Int8
	case uint8:
		return Uint8
	case int16:
		return Int16
	case uint16:
		return Uint16
	case int32:
		return Int32
	case uint32:
		return Uint32
	case int64:
		return Int64
	case uint64:
		return Uint64
	case float32:
		return Float32
	case float64:
		return Float64
	}
	return Other
}

// Load decodes one little-endian N from the front of b.
func Load[N Native](b []byte) N {
	var zero N
	switch any(zero).(type) {
	case int8:
		return N(int8(b[0]))
	case uint8:
		return N(b[0])
	case int16:
		return N(int16(binary.LittleEndian.Uint16(b)))
	case uint16:
		return N(binary.LittleEndian.Uint16(b))
	case int32:
		return N(int32(binary.LittleEndian.Uint32(b)))
	case uint32:
		return N(binary.LittleEndian.Uint32(b))
	case int64:
		return N(int64(binary.LittleEndian.Uint64(b)))
	case uint64:
		return N(binary.LittleEndian.Uint64(b))
	case float32:
		return N(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case float64:
		return N(math.Float64frombits(binary.LittleEndian.Uint64(b)))
	}
	panic("dtype: unsupported native type")
}

// Store encodes v little-endian at the front of b.
func Store[N Native](b []byte, v N) {
	switch x := any(v).(type) {
	case int8:
		b[0] = byte(x)
	case uint8:
		b[0] = x
	case int16:
		binary.LittleEndian.PutUint16(b, uint16(x))
	case uint16:
		binary.LittleEndian.PutUint16(b, x)
	case int32:
		binary.LittleEndian.PutUint32(b, uint32(x))
	case uint32:
		binary.LittleEndian.PutUint32(b, x)
	case int64:
		binary.LittleEndian.PutUint64(b, uint64(x))
	case uint64:
		binary.LittleEndian.PutUint64(b, x)
	case float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(x))
	case float64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(x))
	default:
		panic("dtype: unsupported native type")
	}
}

package dtype

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/numtable/pkg/errors"
)

func TestTypeSizes(t *testing.T) {
	tests := []struct {
		typ  Type
		size int
		name string
	}{
		{Int8, 1, "int8"},
		{Uint8, 1, "uint8"},
		{Int16, 2, "int16"},
		{Uint16, 2, "uint16"},
		{Int32, 4, "int32"},
		{Uint32, 4, "uint32"},
		{Int64, 8, "int64"},
		{Uint64, 8, "uint64"},
		{Float32, 4, "float32"},
		{Float64, 8, "float64"},
		{Other, 0, "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.Size(); got != tt.size {
				t.Errorf("Size() = %d, want %d", got, tt.size)
			}
			if got := tt.typ.String(); got != tt.name {
				t.Errorf("String() = %q, want %q", got, tt.name)
			}
			if got := ParseType(tt.name); got != tt.typ {
				t.Errorf("ParseType(%q) = %v, want %v", tt.name, got, tt.typ)
			}
			if tt.typ.Valid() != (tt.typ != Other) {
				t.Errorf("Valid() = %v", tt.typ.Valid())
			}
		})
	}
}

func TestTypeOf(t *testing.T) {
	if TypeOf[int8]() != Int8 || TypeOf[uint16]() != Uint16 || TypeOf[int64]() != Int64 {
		t.Error("TypeOf returned the wrong integer tag")
	}
	if TypeOf[float32]() != Float32 || TypeOf[float64]() != Float64 {
		t.Error("TypeOf returned the wrong float tag")
	}
	if TargetOf[int32]() != Int32 || TargetOf[float32]() != Float32 || TargetOf[float64]() != Float64 {
		t.Error("TargetOf returned the wrong tag")
	}
}

func TestLoadStore(t *testing.T) {
	buf := make([]byte, 8)

	Store[int16](buf, -1234)
	if got := Load[int16](buf); got != -1234 {
		t.Errorf("int16 round trip = %d", got)
	}
	Store[float32](buf, 3.25)
	if got := Load[float32](buf); got != 3.25 {
		t.Errorf("float32 round trip = %v", got)
	}
	Store[uint64](buf, math.MaxUint64)
	if got := Load[uint64](buf); got != math.MaxUint64 {
		t.Errorf("uint64 round trip = %d", got)
	}
	// Little-endian byte order is part of the storage contract.
	Store[int32](buf, 0x01020304)
	if buf[0] != 0x04 || buf[3] != 0x01 {
		t.Errorf("expected little-endian layout, got % x", buf[:4])
	}
}

// encode writes values as native type typ, packed.
func encode(t *testing.T, typ Type, values []float64) []byte {
	t.Helper()
	down, err := VectorDownCast[float64](typ)
	if err != nil {
		t.Fatalf("VectorDownCast(%s): %v", typ, err)
	}
	out := make([]byte, len(values)*typ.Size())
	down(len(values), values, 1, out, typ.Size())
	return out
}

func allNative() []Type {
	return []Type{Int8, Uint8, Int16, Uint16, Int32, Uint32, Int64, Uint64, Float32, Float64}
}

func TestUpDownCastInverse(t *testing.T) {
	// Every sample fits losslessly in every native and target type.
	samples := []float64{0, 1, 7, 42, 100, 127}

	for _, native := range allNative() {
		native := native
		t.Run(native.String()+"/float64", func(t *testing.T) {
			checkInverse[float64](t, native, samples)
		})
		t.Run(native.String()+"/float32", func(t *testing.T) {
			checkInverse[float32](t, native, samples)
		})
		t.Run(native.String()+"/int32", func(t *testing.T) {
			checkInverse[int32](t, native, samples)
		})
	}
}

func checkInverse[T Target](t *testing.T, native Type, samples []float64) {
	t.Helper()
	raw := encode(t, native, samples)

	up, err := VectorUpCast[T](native)
	if err != nil {
		t.Fatalf("VectorUpCast: %v", err)
	}
	down, err := VectorDownCast[T](native)
	if err != nil {
		t.Fatalf("VectorDownCast: %v", err)
	}

	values := make([]T, len(samples))
	up(len(samples), raw, native.Size(), values, 1)
	for i, v := range values {
		if float64(v) != samples[i] {
			t.Errorf("up-cast[%d] = %v, want %v", i, v, samples[i])
		}
	}

	back := make([]byte, len(raw))
	down(len(values), values, 1, back, native.Size())
	for i := range raw {
		if raw[i] != back[i] {
			t.Fatalf("down(up(v)) changed byte %d: %x != %x", i, back[i], raw[i])
		}
	}
}

func TestStridedUpCast(t *testing.T) {
	// Two interleaved int16 columns in 6-byte records with 2 bytes padding.
	const recordSize = 6
	raw := make([]byte, 3*recordSize)
	for i := 0; i < 3; i++ {
		Store[int16](raw[i*recordSize:], int16(i+1))
		Store[int16](raw[i*recordSize+2:], int16(-(i + 1)))
	}

	up, err := VectorUpCast[float64](Int16)
	if err != nil {
		t.Fatal(err)
	}
	// Write column 1 into every second slot of dst.
	dst := make([]float64, 6)
	up(3, raw[2:], recordSize, dst[1:], 2)
	want := []float64{0, -1, 0, -2, 0, -3}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], want[i])
		}
	}
}

func TestDownCastTruncates(t *testing.T) {
	down, err := VectorDownCast[float64](Int32)
	if err != nil {
		t.Fatal(err)
	}
	raw := make([]byte, 8)
	down(2, []float64{2.9, -2.9}, 1, raw, 4)
	if Load[int32](raw) != 2 || Load[int32](raw[4:]) != -2 {
		t.Errorf("expected truncation toward zero, got %d %d", Load[int32](raw), Load[int32](raw[4:]))
	}
}

func TestWriteBackKeepsUnchangedElements(t *testing.T) {
	raw := make([]byte, 16)
	Store[int64](raw, 1<<53+1)
	Store[int64](raw[8:], 5)

	wb, err := VectorWriteBack[float64](Int64)
	if err != nil {
		t.Fatal(err)
	}
	wb(2, []float64{1 << 53, 6}, 1, raw, 8)
	if got := Load[int64](raw); got != 1<<53+1 {
		t.Errorf("unchanged element rewritten: got %d", got)
	}
	if got := Load[int64](raw[8:]); got != 6 {
		t.Errorf("changed element = %d, want 6", got)
	}

	nan := make([]byte, 8)
	Store[uint64](nan, 0x7ff8000000000123)
	wb32, _ := VectorWriteBack[float32](Float64)
	wb32(1, []float32{float32(math.NaN())}, 1, nan, 8)
	if got := Load[uint64](nan); got != 0x7ff8000000000123 {
		t.Errorf("NaN payload changed: %#x", got)
	}
}

func TestUnsupportedType(t *testing.T) {
	if _, err := VectorUpCast[float64](Other); !errors.Is(err, errors.ErrDataTypeNotSupported) {
		t.Errorf("VectorUpCast(Other) error = %v, want DataTypeNotSupported", err)
	}
	if _, err := VectorDownCast[int32](Type(200)); !errors.Is(err, errors.ErrDataTypeNotSupported) {
		t.Errorf("VectorDownCast(200) error = %v, want DataTypeNotSupported", err)
	}
}

func BenchmarkUpCastFloat32ToFloat64(b *testing.B) {
	const n = 4096
	raw := make([]byte, n*4)
	dst := make([]float64, n)
	up, _ := VectorUpCast[float64](Float32)
	b.SetBytes(int64(len(raw)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		up(n, raw, 4, dst, 1)
	}
}

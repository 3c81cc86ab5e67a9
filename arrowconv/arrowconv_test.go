package arrowconv

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/numtable/dictionary"
	"github.com/YuminosukeSato/numtable/dtype"
	"github.com/YuminosukeSato/numtable/pkg/errors"
	"github.com/YuminosukeSato/numtable/table"
)

func buildRecord(t *testing.T, mem memory.Allocator) arrow.Record {
	t.Helper()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "x", Type: arrow.PrimitiveTypes.Float64},
		{Name: "n", Type: arrow.PrimitiveTypes.Int32},
	}, nil)
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	b.Field(0).(*array.Float64Builder).AppendValues([]float64{1.5, 2.5, 3.5}, nil)
	b.Field(1).(*array.Int32Builder).AppendValues([]int32{10, 20, 30}, nil)
	return b.NewRecord()
}

func TestFromRecord(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	rec := buildRecord(t, mem)
	defer rec.Release()

	tbl, err := FromRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.NumberOfRows())
	assert.Equal(t, table.UserAllocated, tbl.MemoryStatus())
	assert.Equal(t, "x", tbl.Dictionary().Feature(0).Name)
	assert.Equal(t, dtype.Int32, tbl.Dictionary().Feature(1).Type)

	// Columns alias the record buffers.
	values := rec.Column(0).(*array.Float64).Float64Values()
	assert.Same(t, &rec.Column(0).Data().Buffers()[1].Bytes()[0], &tbl.GetArray(0)[0])

	b, err := table.GetBlockOfRows[float64](tbl, 0, 3, table.ReadOnly)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 10, 2.5, 20, 3.5, 30}, b.Data())
	require.NoError(t, table.ReleaseBlockOfRows(tbl, b))

	w, err := table.GetBlockOfRows[float64](tbl, 1, 1, table.WriteOnly)
	require.NoError(t, err)
	w.Set(0, 0, -1)
	w.Set(0, 1, 21)
	require.NoError(t, table.ReleaseBlockOfRows(tbl, w))
	assert.Equal(t, -1.0, values[1])
	assert.Equal(t, int32(21), rec.Column(1).(*array.Int32).Value(1))
}

func TestFromRecord_SlicedArray(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	fb := array.NewFloat32Builder(mem)
	defer fb.Release()
	fb.AppendValues([]float32{0, 1, 2, 3, 4}, nil)
	full := fb.NewFloat32Array()
	defer full.Release()
	sliced := array.NewSlice(full, 2, 5)
	defer sliced.Release()

	schema := arrow.NewSchema([]arrow.Field{{Name: "v", Type: arrow.PrimitiveTypes.Float32}}, nil)
	rec := array.NewRecord(schema, []arrow.Array{sliced}, 3)
	defer rec.Release()

	tbl, err := FromRecord(rec)
	require.NoError(t, err)
	b, err := table.GetBlockOfColumnValues[float32](tbl, 0, 0, 3, table.ReadOnly)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 3, 4}, b.Data())
	require.NoError(t, table.ReleaseBlockOfColumnValues(tbl, b))
}

func TestFromRecord_Rejects(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	t.Run("nulls", func(t *testing.T) {
		fb := array.NewFloat64Builder(mem)
		defer fb.Release()
		fb.AppendValues([]float64{1, 2}, []bool{true, false})
		arr := fb.NewArray()
		defer arr.Release()
		schema := arrow.NewSchema([]arrow.Field{{Name: "x", Type: arrow.PrimitiveTypes.Float64, Nullable: true}}, nil)
		rec := array.NewRecord(schema, []arrow.Array{arr}, 2)
		defer rec.Release()

		_, err := FromRecord(rec)
		assert.True(t, errors.HasCode(err, errors.DataTypeNotSupported), "got %v", err)
	})
	t.Run("strings", func(t *testing.T) {
		sb := array.NewStringBuilder(mem)
		defer sb.Release()
		sb.AppendValues([]string{"a"}, nil)
		arr := sb.NewArray()
		defer arr.Release()
		schema := arrow.NewSchema([]arrow.Field{{Name: "s", Type: arrow.BinaryTypes.String}}, nil)
		rec := array.NewRecord(schema, []arrow.Array{arr}, 1)
		defer rec.Release()

		_, err := FromRecord(rec)
		assert.True(t, errors.HasCode(err, errors.DataTypeNotSupported), "got %v", err)
	})
}

func TestToRecord_RoundTrip(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	type rec struct {
		A int16
		_ [2]byte
		B float32
	}
	aos, err := table.NewAOSTableFromRecords([]rec{{A: 1, B: 0.5}, {A: -2, B: 1.5}}, 2)
	require.NoError(t, err)
	require.NoError(t, table.SetAOSFeature[int16](aos, 0, 0, dictionary.Categorical, 3))
	require.NoError(t, table.SetAOSFeature[float32](aos, 1, 4, dictionary.Continuous, 0))
	aos.Dictionary().SetName(1, "b")

	out, err := ToRecord(mem, aos)
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, int64(2), out.NumRows())
	assert.Equal(t, "col0", out.ColumnName(0))
	assert.Equal(t, "b", out.ColumnName(1))
	assert.Equal(t, []int16{1, -2}, out.Column(0).(*array.Int16).Int16Values())
	assert.Equal(t, []float32{0.5, 1.5}, out.Column(1).(*array.Float32).Float32Values())

	back, err := FromRecord(out)
	require.NoError(t, err)
	f := back.Dictionary().Feature(0)
	assert.Equal(t, dictionary.Categorical, f.Kind)
	assert.Equal(t, 3, f.Categories)
	assert.Equal(t, dtype.Int16, f.Type)
}

func TestToRecord_NotAllocated(t *testing.T) {
	tbl, err := table.NewHomogenTable[float64](2, 4)
	require.NoError(t, err)
	_, err = ToRecord(memory.NewGoAllocator(), tbl)
	assert.True(t, errors.HasCode(err, errors.NotAllocated), "got %v", err)
}

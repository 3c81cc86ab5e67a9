// Package arrowconv moves numeric tables to and from Apache Arrow records.
//
// FromRecord borrows the value buffers of a record as the columns of an
// SOATable without copying. ToRecord copies any table into a new record,
// keeping each column's native type and recording the feature kind and
// category count in the field metadata.
package arrowconv

import (
	"fmt"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/YuminosukeSato/numtable/dictionary"
	"github.com/YuminosukeSato/numtable/dtype"
	"github.com/YuminosukeSato/numtable/pkg/errors"
	"github.com/YuminosukeSato/numtable/pkg/log"
	"github.com/YuminosukeSato/numtable/table"
)

// Field metadata keys written by ToRecord and honored by FromRecord.
const (
	MetadataKind       = "numtable.kind"
	MetadataCategories = "numtable.categories"
)

var arrowTypes = map[dtype.Type]arrow.DataType{
	dtype.Int8:    arrow.PrimitiveTypes.Int8,
	dtype.Uint8:   arrow.PrimitiveTypes.Uint8,
	dtype.Int16:   arrow.PrimitiveTypes.Int16,
	dtype.Uint16:  arrow.PrimitiveTypes.Uint16,
	dtype.Int32:   arrow.PrimitiveTypes.Int32,
	dtype.Uint32:  arrow.PrimitiveTypes.Uint32,
	dtype.Int64:   arrow.PrimitiveTypes.Int64,
	dtype.Uint64:  arrow.PrimitiveTypes.Uint64,
	dtype.Float32: arrow.PrimitiveTypes.Float32,
	dtype.Float64: arrow.PrimitiveTypes.Float64,
}

// ArrowType returns the Arrow type of a native type.
func ArrowType(t dtype.Type) (arrow.DataType, bool) {
	dt, ok := arrowTypes[t]
	return dt, ok
}

// NativeType returns the native type of an Arrow type, or dtype.Other.
func NativeType(dt arrow.DataType) dtype.Type {
	switch dt.ID() {
	case arrow.INT8:
		return dtype.Int8
	case arrow.UINT8:
		return dtype.Uint8
	case arrow.INT16:
		return dtype.Int16
	case arrow.UINT16:
		return dtype.Uint16
	case arrow.INT32:
		return dtype.Int32
	case arrow.UINT32:
		return dtype.Uint32
	case arrow.INT64:
		return dtype.Int64
	case arrow.UINT64:
		return dtype.Uint64
	case arrow.FLOAT32:
		return dtype.Float32
	case arrow.FLOAT64:
		return dtype.Float64
	}
	return dtype.Other
}

// FromRecord returns an SOA table whose columns alias the value buffers of
// rec. The caller keeps rec retained for as long as the table is used.
// Columns with nulls or a non-numeric type are rejected.
func FromRecord(rec arrow.Record, opts ...table.Option) (*table.SOATable, error) {
	const op = "FromRecord"
	nCols := int(rec.NumCols())
	nRows := int(rec.NumRows())

	tbl, err := table.NewSOATable(nCols, nRows, opts...)
	if err != nil {
		return nil, err
	}
	schema := rec.Schema()
	for i := 0; i < nCols; i++ {
		col := rec.Column(i)
		field := schema.Field(i)
		typ := NativeType(col.DataType())
		if typ == dtype.Other {
			return nil, errors.NewTableErrorf(op, errors.DataTypeNotSupported,
				"column %q has type %s", field.Name, col.DataType())
		}
		if col.NullN() > 0 {
			return nil, errors.NewTableErrorf(op, errors.DataTypeNotSupported,
				"column %q has %d nulls", field.Name, col.NullN())
		}
		if err := tbl.SetArrayBytes(i, typ, valueBytes(col, typ)); err != nil {
			return nil, errors.Wrapf(err, "column %q", field.Name)
		}
		if err := applyMetadata(tbl.Dictionary(), i, field); err != nil {
			return nil, errors.Wrapf(err, "column %q", field.Name)
		}
	}

	log.Component("arrowconv").Debug("borrowed arrow record",
		log.RowsKey, nRows,
		log.ColumnsKey, nCols,
	)
	return tbl, nil
}

// valueBytes returns the slice of the value buffer covering the array,
// honoring the array offset.
func valueBytes(col arrow.Array, typ dtype.Type) []byte {
	size := typ.Size()
	data := col.Data()
	bufs := data.Buffers()
	if len(bufs) < 2 || bufs[1] == nil {
		return []byte{}
	}
	b := bufs[1].Bytes()
	start := data.Offset() * size
	return b[start : start+data.Len()*size]
}

func applyMetadata(d *dictionary.Dictionary, col int, field arrow.Field) error {
	d.SetName(col, field.Name)
	f := d.Feature(col)
	md := field.Metadata
	if i := md.FindKey(MetadataKind); i >= 0 {
		kind, err := dictionary.ParseFeatureKind(md.Values()[i])
		if err != nil {
			return err
		}
		f.Kind = kind
	}
	if i := md.FindKey(MetadataCategories); i >= 0 {
		cats, err := strconv.Atoi(md.Values()[i])
		if err != nil {
			return errors.NewValidationError(MetadataCategories, "not an integer", md.Values()[i])
		}
		f.Categories = cats
	}
	return d.SetFeature(col, f)
}

// ToRecord copies t into a new record allocated from mem. Unnamed features
// are called col0, col1 and so on. The caller releases the record.
func ToRecord(mem memory.Allocator, t table.NumericTable) (arrow.Record, error) {
	const op = "ToRecord"
	dict := t.Dictionary()
	nCols := t.NumberOfColumns()
	nRows := t.NumberOfRows()

	fields := make([]arrow.Field, nCols)
	cols := make([]arrow.Array, 0, nCols)
	release := func() {
		for _, c := range cols {
			c.Release()
		}
	}

	for i := 0; i < nCols; i++ {
		f := dict.Feature(i)
		dt, ok := ArrowType(f.Type)
		if !ok {
			release()
			return nil, errors.NewTableErrorf(op, errors.DataTypeNotSupported,
				"column %d has type %s", i, f.Type)
		}
		name := f.Name
		if name == "" {
			name = fmt.Sprintf("col%d", i)
		}
		fields[i] = arrow.Field{
			Name: name,
			Type: dt,
			Metadata: arrow.NewMetadata(
				[]string{MetadataKind, MetadataCategories},
				[]string{f.Kind.String(), strconv.Itoa(f.Categories)},
			),
		}

		raw, err := table.ColumnBytes(t, i)
		if err != nil {
			release()
			return nil, err
		}
		cols = append(cols, newArray(mem, dt, nRows, raw))
	}

	rec := array.NewRecord(arrow.NewSchema(fields, nil), cols, int64(nRows))
	release()

	log.Component("arrowconv").Debug("copied table to arrow record",
		log.LayoutKey, t.Layout().String(),
		log.RowsKey, nRows,
		log.ColumnsKey, nCols,
	)
	return rec, nil
}

func newArray(mem memory.Allocator, dt arrow.DataType, n int, raw []byte) arrow.Array {
	buf := memory.NewResizableBuffer(mem)
	buf.Resize(len(raw))
	copy(buf.Bytes(), raw)
	defer buf.Release()

	data := array.NewData(dt, n, []*memory.Buffer{nil, buf}, nil, 0, 0)
	defer data.Release()
	return array.MakeFromData(data)
}

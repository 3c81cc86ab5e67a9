package table

import (
	"github.com/YuminosukeSato/numtable/pkg/errors"
)

// ColumnBytes returns a copy of column col in its native little-endian
// encoding, one element per row.
func ColumnBytes(t NumericTable, col int) ([]byte, error) {
	const op = "ColumnBytes"
	if col < 0 || col >= t.NumberOfColumns() {
		return nil, errors.NewTableErrorf(op, errors.IncorrectNumberOfFeatures,
			"column %d out of range [0, %d)", col, t.NumberOfColumns())
	}
	size := t.Dictionary().Feature(col).Type.Size()
	rows := t.NumberOfRows()
	out := make([]byte, rows*size)

	switch tt := t.(type) {
	case *SOATable:
		src := tt.GetArray(col)
		if src == nil {
			return nil, errors.NewTableErrorf(op, errors.NotAllocated, "column %d has no storage", col)
		}
		copy(out, src[:len(out)])
	case *AOSTable:
		if tt.status == NotAllocated {
			return nil, errors.NewTableError(op, errors.NotAllocated, "table has no storage")
		}
		copyStrided(out, tt.data.data, tt.offsets[col], tt.structSize, size, rows)
	case *HomogenTable:
		if tt.status == NotAllocated {
			return nil, errors.NewTableError(op, errors.NotAllocated, "table has no storage")
		}
		copyStrided(out, tt.data.data, col*size, tt.rowBytes(), size, rows)
	default:
		return nil, unknownTable(op, t)
	}
	return out, nil
}

func copyStrided(dst, src []byte, offset, stride, size, rows int) {
	for i := 0; i < rows; i++ {
		at := i*stride + offset
		copy(dst[i*size:(i+1)*size], src[at:at+size])
	}
}

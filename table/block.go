package table

import (
	"fmt"

	"github.com/YuminosukeSato/numtable/dtype"
)

// Block is a typed view over a row range, or over one column's values,
// of a table. It is valid between the Get call that filled it and the
// matching Release call.
//
// A row block is row-major with NumberOfColumns values per row. A column
// block holds NumberOfRows values of a single column.
type Block[T dtype.Target] struct {
	rowsOffset int
	nRows      int
	colsOffset int
	nCols      int
	mode       ReadWriteMode

	data         []T
	pooled       *[]T
	aliased      bool
	columnValues bool
}

func newBlock[T dtype.Target](rowsOffset, nRows, colsOffset, nCols int, mode ReadWriteMode) *Block[T] {
	return &Block[T]{
		rowsOffset: rowsOffset,
		nRows:      nRows,
		colsOffset: colsOffset,
		nCols:      nCols,
		mode:       mode,
	}
}

// emptyBlock is returned for requests that start past the end of the table.
func emptyBlock[T dtype.Target](rowsOffset, colsOffset, nCols int, mode ReadWriteMode, columnValues bool) *Block[T] {
	b := newBlock[T](rowsOffset, 0, colsOffset, nCols, mode)
	b.columnValues = columnValues
	return b
}

// allocate attaches a zeroed pooled buffer of n values.
func (b *Block[T]) allocate(n int) {
	b.pooled = poolFor[T]().get(n)
	b.data = *b.pooled
}

// alias points the block at table storage.
func (b *Block[T]) alias(data []T) {
	b.data = data
	b.aliased = true
}

// Data returns the block values.
func (b *Block[T]) Data() []T { return b.data }

// NumberOfRows returns the number of rows in the block.
func (b *Block[T]) NumberOfRows() int { return b.nRows }

// NumberOfColumns returns the number of columns in the block.
func (b *Block[T]) NumberOfColumns() int { return b.nCols }

// RowsOffset returns the table row of the block's first row.
func (b *Block[T]) RowsOffset() int { return b.rowsOffset }

// ColumnsOffset returns the table column of the block's first column.
func (b *Block[T]) ColumnsOffset() int { return b.colsOffset }

// Mode returns the access intent the block was acquired with.
func (b *Block[T]) Mode() ReadWriteMode { return b.mode }

// IsAliased reports whether the block points directly at table storage.
func (b *Block[T]) IsAliased() bool { return b.aliased }

// IsColumnValues reports whether the block holds a single column.
func (b *Block[T]) IsColumnValues() bool { return b.columnValues }

// Row returns row i of a row block.
func (b *Block[T]) Row(i int) []T {
	return b.data[i*b.nCols : (i+1)*b.nCols]
}

// At returns the value at row i, column j. Column blocks ignore j.
func (b *Block[T]) At(i, j int) T {
	if b.columnValues {
		return b.data[i]
	}
	return b.data[i*b.nCols+j]
}

// Set stores v at row i, column j. Column blocks ignore j.
func (b *Block[T]) Set(i, j int, v T) {
	if b.columnValues {
		b.data[i] = v
		return
	}
	b.data[i*b.nCols+j] = v
}

// Reset returns the buffer to the pool and clears the descriptor. Resetting
// an already reset block does nothing.
func (b *Block[T]) Reset() {
	if b.pooled != nil {
		poolFor[T]().put(b.pooled)
	}
	*b = Block[T]{}
}

func (b *Block[T]) String() string {
	kind := "rows"
	if b.columnValues {
		kind = "column"
	}
	return fmt.Sprintf("Block[%s](%s rows=[%d,%d) cols=[%d,%d) mode=%s aliased=%t)",
		dtype.TargetOf[T](), kind, b.rowsOffset, b.rowsOffset+b.nRows,
		b.colsOffset, b.colsOffset+b.nCols, b.mode, b.aliased)
}

// Package table implements numeric tables: typed, block-wise access to
// tabular numeric data stored as fixed-size records (AOS), per-column arrays
// (SOA), or a single-typed row-major matrix (homogen).
//
// Clients never touch storage directly. They acquire a Block of rows, or of
// one column's values, in one of the target types float64, float32 or int32,
// and release it when done. The table converts between its native column
// types and the target type on acquire and, for write-enabled blocks, on
// release.
//
// Tables are configured single-threaded (dictionary, features, arrays,
// allocation) and may then be read concurrently. Concurrent writes must be
// confined to disjoint row ranges; see ParallelRowBlocks.
package table

import (
	"fmt"

	"github.com/YuminosukeSato/numtable/dictionary"
	"github.com/YuminosukeSato/numtable/dtype"
	"github.com/YuminosukeSato/numtable/pkg/errors"
	"github.com/YuminosukeSato/numtable/pkg/log"
)

// NumericTable is implemented by *AOSTable, *SOATable and *HomogenTable.
type NumericTable interface {
	NumberOfRows() int
	NumberOfColumns() int
	Dictionary() *dictionary.Dictionary
	MemoryStatus() MemoryStatus
	Layout() Layout

	// SetDictionary replaces the column metadata. Only valid while the
	// table holds no storage.
	SetDictionary(d *dictionary.Dictionary) error
	// SetNumberOfRows resizes the table, growing internal storage and
	// preserving existing rows.
	SetNumberOfRows(n int) error
	AllocateDataMemory() error
	FreeDataMemory()
	String() string

	base() *tableBase
}

// Option configures a table.
type Option func(*options)

type options struct {
	allocator  Allocator
	logger     log.Logger
	dictionary *dictionary.Dictionary
	allocate   bool
}

func defaultOptions() options {
	return options{allocator: DefaultAllocator{}}
}

// WithAllocator sets the allocator used for internal storage.
func WithAllocator(a Allocator) Option {
	return func(o *options) {
		if a != nil {
			o.allocator = a
		}
	}
}

// WithLogger sets the table logger. By default tables log through
// log.GetLogger().
func WithLogger(l log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithDictionary supplies the column metadata. Its length must match the
// number of columns.
func WithDictionary(d *dictionary.Dictionary) Option {
	return func(o *options) {
		o.dictionary = d
	}
}

// WithAllocation allocates storage on construction.
func WithAllocation() Option {
	return func(o *options) {
		o.allocate = true
	}
}

// tableBase holds the state shared by all layouts.
type tableBase struct {
	layout    Layout
	rows      int
	dict      *dictionary.Dictionary
	status    MemoryStatus
	allocator Allocator
	logger    log.Logger
}

func newTableBase(layout Layout, nColumns, nRows int, o options) (tableBase, error) {
	if nColumns < 0 {
		return tableBase{}, errors.NewTableErrorf("New"+layoutName(layout), errors.IncorrectNumberOfFeatures,
			"negative number of columns %d", nColumns)
	}
	if nRows < 0 {
		return tableBase{}, errors.NewTableErrorf("New"+layoutName(layout), errors.IncorrectNumberOfObservations,
			"negative number of rows %d", nRows)
	}
	dict := o.dictionary
	if dict == nil {
		dict = dictionary.New(nColumns)
	} else if dict.Len() != nColumns {
		return tableBase{}, errors.NewTableErrorf("New"+layoutName(layout), errors.IncorrectNumberOfFeatures,
			"dictionary has %d features, table has %d columns", dict.Len(), nColumns)
	}
	logger := o.logger
	if logger == nil {
		logger = log.GetLogger()
	}
	return tableBase{
		layout:    layout,
		rows:      nRows,
		dict:      dict,
		allocator: o.allocator,
		logger:    logger.With(log.ComponentKey, "table", log.LayoutKey, layout.String()),
	}, nil
}

func layoutName(l Layout) string {
	switch l {
	case LayoutAOS:
		return "AOSTable"
	case LayoutSOA:
		return "SOATable"
	default:
		return "HomogenTable"
	}
}

func (b *tableBase) base() *tableBase { return b }

// NumberOfRows returns the number of rows.
func (b *tableBase) NumberOfRows() int { return b.rows }

// NumberOfColumns returns the number of columns.
func (b *tableBase) NumberOfColumns() int { return b.dict.Len() }

// Dictionary returns the column metadata.
func (b *tableBase) Dictionary() *dictionary.Dictionary { return b.dict }

// MemoryStatus returns who owns the table storage.
func (b *tableBase) MemoryStatus() MemoryStatus { return b.status }

// Layout returns the storage layout.
func (b *tableBase) Layout() Layout { return b.layout }

func (b *tableBase) checkDictionary(op string, d *dictionary.Dictionary) error {
	if d == nil {
		return errors.NewTableError(op, errors.IncorrectParameter, "nil dictionary")
	}
	if b.status != NotAllocated {
		return errors.NewTableErrorf(op, errors.IncorrectParameter,
			"cannot replace the dictionary of a table with %s storage", b.status)
	}
	return nil
}

// blockRange clamps a row request. ok is false when the block is empty.
func (b *tableBase) blockRange(startRow, nRows int) (n int, ok bool) {
	if startRow < 0 || nRows <= 0 || startRow >= b.rows {
		return 0, false
	}
	if startRow+nRows > b.rows {
		nRows = b.rows - startRow
	}
	return nRows, true
}

// prepare allocates an unallocated table for write access, or fails read
// access to it.
func prepare(t NumericTable, op string, mode ReadWriteMode) error {
	if t.MemoryStatus() != NotAllocated {
		return nil
	}
	if mode.writes() {
		return t.AllocateDataMemory()
	}
	return errors.NewTableErrorf(op, errors.NotAllocated, "table has no storage")
}

func (b *tableBase) logAllocated(bytes int) {
	b.logger.Debug("allocated table storage",
		log.OperationKey, log.OperationAllocate,
		log.RowsKey, b.rows,
		log.ColumnsKey, b.dict.Len(),
		log.DataSizeKey, bytes,
		log.MemoryStatusKey, b.status.String(),
	)
}

func (b *tableBase) logFreed() {
	b.logger.Debug("freed table storage",
		log.OperationKey, log.OperationFree,
		log.RowsKey, b.rows,
	)
}

func describe(t NumericTable) string {
	return fmt.Sprintf("%s(rows=%d, columns=%d, status=%s, %s)",
		layoutName(t.Layout()), t.NumberOfRows(), t.NumberOfColumns(), t.MemoryStatus(), t.Dictionary())
}

// GetBlockOfRows acquires rows [startRow, startRow+nRows) as a row-major
// block of T. A request starting at or past the last row yields an empty
// block; a request running past the end is clamped.
func GetBlockOfRows[T dtype.Target](t NumericTable, startRow, nRows int, mode ReadWriteMode) (*Block[T], error) {
	switch tt := t.(type) {
	case *AOSTable:
		return aosBlockOfRows[T](tt, startRow, nRows, mode)
	case *SOATable:
		return soaBlockOfRows[T](tt, startRow, nRows, mode)
	case *HomogenTable:
		return homogenBlockOfRows[T](tt, startRow, nRows, mode)
	}
	return nil, unknownTable("GetBlockOfRows", t)
}

// ReleaseBlockOfRows writes a write-enabled block back into the table and
// resets it. Releasing a reset block does nothing.
func ReleaseBlockOfRows[T dtype.Target](t NumericTable, b *Block[T]) error {
	if b == nil {
		return nil
	}
	var err error
	if b.mode.writes() && !b.aliased && b.nRows > 0 {
		switch tt := t.(type) {
		case *AOSTable:
			err = aosWriteRows(tt, b)
		case *SOATable:
			err = soaWriteRows(tt, b)
		case *HomogenTable:
			err = homogenWriteRows(tt, b)
		default:
			err = unknownTable("ReleaseBlockOfRows", t)
		}
	}
	b.Reset()
	return err
}

// GetBlockOfColumnValues acquires rows [startRow, startRow+nRows) of one
// column. Out-of-range columns and start rows yield an empty block.
func GetBlockOfColumnValues[T dtype.Target](t NumericTable, col, startRow, nRows int, mode ReadWriteMode) (*Block[T], error) {
	switch tt := t.(type) {
	case *AOSTable:
		return aosColumnValues[T](tt, col, startRow, nRows, mode)
	case *SOATable:
		return soaColumnValues[T](tt, col, startRow, nRows, mode)
	case *HomogenTable:
		return homogenColumnValues[T](tt, col, startRow, nRows, mode)
	}
	return nil, unknownTable("GetBlockOfColumnValues", t)
}

// ReleaseBlockOfColumnValues writes a write-enabled column block back into
// the table and resets it.
func ReleaseBlockOfColumnValues[T dtype.Target](t NumericTable, b *Block[T]) error {
	if b == nil {
		return nil
	}
	var err error
	if b.mode.writes() && !b.aliased && b.nRows > 0 {
		switch tt := t.(type) {
		case *AOSTable:
			err = aosWriteColumn(tt, b)
		case *SOATable:
			err = soaWriteColumn(tt, b)
		case *HomogenTable:
			err = homogenWriteColumn(tt, b)
		default:
			err = unknownTable("ReleaseBlockOfColumnValues", t)
		}
	}
	b.Reset()
	return err
}

func unknownTable(op string, t NumericTable) error {
	return errors.NewTableErrorf(op, errors.IncorrectParameter, "unsupported table %T", t)
}

// columnRange validates a column-values request.
func columnRange(t NumericTable, col, startRow, nRows int) (n int, ok bool) {
	if col < 0 || col >= t.NumberOfColumns() {
		return 0, false
	}
	return t.base().blockRange(startRow, nRows)
}

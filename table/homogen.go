package table

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/numtable/dictionary"
	"github.com/YuminosukeSato/numtable/dtype"
	"github.com/YuminosukeSato/numtable/pkg/errors"
)

// HomogenTable stores a row-major matrix whose columns share one native
// type.
type HomogenTable struct {
	tableBase
	typ  dtype.Type
	data buffer
}

// NewHomogenTable returns a table of nColumns columns of type N.
func NewHomogenTable[N dtype.Native](nColumns, nRows int, opts ...Option) (*HomogenTable, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.dictionary == nil {
		o.dictionary = dictionary.NewEqual(nColumns, dictionary.FeatureOf[N](dictionary.Continuous, 0))
	} else if d := o.dictionary; d.Len() > 0 && (!d.IsHomogeneous() || d.Feature(0).Type != dtype.TypeOf[N]()) {
		return nil, errors.NewTableErrorf("NewHomogenTable", errors.DataTypeNotSupported,
			"dictionary must have all columns of type %s", dtype.TypeOf[N]())
	}
	base, err := newTableBase(LayoutHomogen, nColumns, nRows, o)
	if err != nil {
		return nil, err
	}
	t := &HomogenTable{tableBase: base, typ: dtype.TypeOf[N]()}
	if o.allocate {
		if err := t.AllocateDataMemory(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// NewHomogenTableFromSlice borrows data as a row-major nRows x nColumns
// matrix.
func NewHomogenTableFromSlice[N dtype.Native](data []N, nColumns, nRows int, opts ...Option) (*HomogenTable, error) {
	t, err := NewHomogenTable[N](nColumns, nRows, opts...)
	if err != nil {
		return nil, err
	}
	if len(data) < nColumns*nRows {
		return nil, errors.NewTableErrorf("NewHomogenTableFromSlice", errors.IncorrectNumberOfObservations,
			"slice of %d values cannot hold %d x %d", len(data), nRows, nColumns)
	}
	if !hostLittleEndian {
		return nil, errors.NewTableError("NewHomogenTableFromSlice", errors.DataTypeNotSupported,
			"typed arrays require a little-endian host")
	}
	t.data = borrowed(bytesOf(data[:nColumns*nRows]))
	t.status = UserAllocated
	return t, nil
}

// Type returns the native type of every column.
func (t *HomogenTable) Type() dtype.Type { return t.typ }

// Array returns the row-major storage, or nil when unallocated.
func (t *HomogenTable) Array() []byte { return t.data.data }

func (t *HomogenTable) rowBytes() int { return t.NumberOfColumns() * t.typ.Size() }

// SetDictionary implements NumericTable. The dictionary must be homogeneous
// in the table's type.
func (t *HomogenTable) SetDictionary(d *dictionary.Dictionary) error {
	if err := t.checkDictionary("HomogenTable.SetDictionary", d); err != nil {
		return err
	}
	if d.Len() > 0 && (!d.IsHomogeneous() || d.Feature(0).Type != t.typ) {
		return errors.NewTableErrorf("HomogenTable.SetDictionary", errors.DataTypeNotSupported,
			"dictionary must have all columns of type %s", t.typ)
	}
	t.dict = d
	return nil
}

// AllocateDataMemory implements NumericTable.
func (t *HomogenTable) AllocateDataMemory() error {
	const op = "HomogenTable.AllocateDataMemory"
	if t.rows == 0 {
		return errors.NewTableError(op, errors.IncorrectNumberOfObservations, "cannot allocate zero rows")
	}
	if t.NumberOfColumns() == 0 {
		return errors.NewTableError(op, errors.IncorrectNumberOfFeatures, "cannot allocate zero columns")
	}
	t.FreeDataMemory()
	buf, err := allocateBuffer(t.allocator, t.rows*t.rowBytes())
	if err != nil {
		return errors.Wrap(err, op)
	}
	t.data = buf
	t.status = InternallyAllocated
	t.logAllocated(len(buf.data))
	return nil
}

// FreeDataMemory implements NumericTable.
func (t *HomogenTable) FreeDataMemory() {
	if t.status == NotAllocated {
		return
	}
	t.data.release(t.allocator)
	t.status = NotAllocated
	t.logFreed()
}

// SetNumberOfRows implements NumericTable.
func (t *HomogenTable) SetNumberOfRows(n int) error {
	const op = "HomogenTable.SetNumberOfRows"
	if n < 0 {
		return errors.NewTableErrorf(op, errors.IncorrectNumberOfObservations, "negative row count %d", n)
	}
	need := n * t.rowBytes()
	switch t.status {
	case UserAllocated:
		if need > len(t.data.data) {
			return errors.NewTableErrorf(op, errors.IncorrectNumberOfObservations,
				"borrowed buffer is shorter than %d rows", n)
		}
	case InternallyAllocated:
		if err := t.data.resize(t.allocator, need); err != nil {
			return errors.Wrap(err, op)
		}
	}
	t.rows = n
	return nil
}

func (t *HomogenTable) String() string { return describe(t) }

func homogenBlockOfRows[T dtype.Target](t *HomogenTable, startRow, nRows int, mode ReadWriteMode) (*Block[T], error) {
	nCols := t.NumberOfColumns()
	n, ok := t.blockRange(startRow, nRows)
	if !ok {
		return emptyBlock[T](startRow, 0, nCols, mode, false), nil
	}
	if err := prepare(t, "HomogenTable.GetBlockOfRows", mode); err != nil {
		return nil, err
	}

	b := newBlock[T](startRow, n, 0, nCols, mode)
	rb := t.rowBytes()
	raw := t.data.data[startRow*rb : (startRow+n)*rb]
	if t.typ == dtype.TargetOf[T]() {
		if view, ok := viewAs[T](raw); ok {
			b.alias(view)
			return b, nil
		}
	}

	b.allocate(n * nCols)
	if mode.reads() {
		up, err := dtype.VectorUpCast[T](t.typ)
		if err != nil {
			b.Reset()
			return nil, err
		}
		up(n*nCols, raw, t.typ.Size(), b.data, 1)
	}
	return b, nil
}

func homogenWriteRows[T dtype.Target](t *HomogenTable, b *Block[T]) error {
	down, err := dtype.VectorWriteBack[T](t.typ)
	if err != nil {
		return err
	}
	down(b.nRows*b.nCols, b.data, 1, t.data.data[b.rowsOffset*t.rowBytes():], t.typ.Size())
	return nil
}

func homogenColumnValues[T dtype.Target](t *HomogenTable, col, startRow, nRows int, mode ReadWriteMode) (*Block[T], error) {
	n, ok := columnRange(t, col, startRow, nRows)
	if !ok {
		return emptyBlock[T](startRow, col, 1, mode, true), nil
	}
	if err := prepare(t, "HomogenTable.GetBlockOfColumnValues", mode); err != nil {
		return nil, err
	}

	b := newBlock[T](startRow, n, col, 1, mode)
	b.columnValues = true
	b.allocate(n)
	if mode.reads() {
		up, err := dtype.VectorUpCast[T](t.typ)
		if err != nil {
			b.Reset()
			return nil, err
		}
		size := t.typ.Size()
		up(n, t.data.data[startRow*t.rowBytes()+col*size:], t.rowBytes(), b.data, 1)
	}
	return b, nil
}

func homogenWriteColumn[T dtype.Target](t *HomogenTable, b *Block[T]) error {
	down, err := dtype.VectorWriteBack[T](t.typ)
	if err != nil {
		return err
	}
	size := t.typ.Size()
	down(b.nRows, b.data, 1, t.data.data[b.rowsOffset*t.rowBytes()+b.colsOffset*size:], t.rowBytes())
	return nil
}

// FromDense copies a gonum matrix into a new float64 table.
func FromDense(m *mat.Dense, opts ...Option) (*HomogenTable, error) {
	r, c := m.Dims()
	t, err := NewHomogenTable[float64](c, r, append(opts, WithAllocation())...)
	if err != nil {
		return nil, err
	}
	b, err := GetBlockOfRows[float64](t, 0, r, WriteOnly)
	if err != nil {
		return nil, err
	}
	for i := 0; i < r; i++ {
		mat.Row(b.Row(i), i, m)
	}
	return t, ReleaseBlockOfRows(t, b)
}

// ToDense copies every row of t into a new gonum matrix.
func ToDense(t NumericTable) (*mat.Dense, error) {
	r, c := t.NumberOfRows(), t.NumberOfColumns()
	if r == 0 || c == 0 {
		return nil, errors.NewTableErrorf("ToDense", errors.IncorrectNumberOfObservations,
			"cannot build a %d x %d matrix", r, c)
	}
	b, err := GetBlockOfRows[float64](t, 0, r, ReadOnly)
	if err != nil {
		return nil, err
	}
	data := make([]float64, r*c)
	copy(data, b.Data())
	if err := ReleaseBlockOfRows(t, b); err != nil {
		return nil, err
	}
	return mat.NewDense(r, c, data), nil
}

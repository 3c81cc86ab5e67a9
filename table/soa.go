package table

import (
	"github.com/RoaringBitmap/roaring"
	"github.com/klauspost/cpuid/v2"

	"github.com/YuminosukeSato/numtable/dictionary"
	"github.com/YuminosukeSato/numtable/dtype"
	"github.com/YuminosukeSato/numtable/pkg/errors"
	"github.com/YuminosukeSato/numtable/pkg/log"
)

// chunkRows bounds the rows converted per column pass on the general path.
const chunkRows = 32

// gatherRows is the strip height of the homogeneous gather and scatter: the
// rows of one column moved before switching to the next column. It is a
// cache-blocking parameter scaled with the vector width of the CPU and does
// not change the result.
var gatherRows = func() int {
	switch {
	case cpuid.CPU.Supports(cpuid.AVX512F, cpuid.AVX512DQ):
		return 16
	case cpuid.CPU.Supports(cpuid.AVX2):
		return 8
	case cpuid.CPU.Supports(cpuid.ASIMD):
		return 4
	default:
		return 2
	}
}()

// SOATable stores each column as its own contiguous array.
type SOATable struct {
	tableBase
	columns []buffer
	set     *roaring.Bitmap

	// Typed column views, built when every column is set and all share
	// float32 or float64.
	f32 [][]float32
	f64 [][]float64
}

// NewSOATable returns a table of nColumns columns and nRows rows. Columns are
// supplied with SetArray or allocated with AllocateDataMemory.
func NewSOATable(nColumns, nRows int, opts ...Option) (*SOATable, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	base, err := newTableBase(LayoutSOA, nColumns, nRows, o)
	if err != nil {
		return nil, err
	}
	t := &SOATable{
		tableBase: base,
		columns:   make([]buffer, nColumns),
		set:       roaring.New(),
	}
	if o.allocate {
		if err := t.AllocateDataMemory(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// SetArray borrows data as column col and sets its feature type to N.
func SetArray[N dtype.Native](t *SOATable, col int, data []N) error {
	if !hostLittleEndian {
		return errors.NewTableError("SetArray", errors.DataTypeNotSupported,
			"typed arrays require a little-endian host")
	}
	return t.setColumn("SetArray", col, dtype.TypeOf[N](), bytesOf(data))
}

// SetArrayBytes borrows little-endian data as column col of type typ.
func (t *SOATable) SetArrayBytes(col int, typ dtype.Type, data []byte) error {
	return t.setColumn("SOATable.SetArrayBytes", col, typ, data)
}

func (t *SOATable) setColumn(op string, col int, typ dtype.Type, data []byte) error {
	if col < 0 || col >= t.NumberOfColumns() {
		return errors.NewTableErrorf(op, errors.IncorrectNumberOfFeatures,
			"column %d out of range [0, %d)", col, t.NumberOfColumns())
	}
	if t.status == InternallyAllocated {
		return errors.NewTableError(op, errors.IncorrectNumberOfFeatures,
			"table storage is allocated internally")
	}
	if need := typ.Size() * t.rows; len(data) < need {
		return errors.NewTableErrorf(op, errors.IncorrectNumberOfObservations,
			"column %d: %d bytes cannot hold %d rows of %s", col, len(data), t.rows, typ)
	}
	f := t.dict.Feature(col)
	f.Type = typ
	if err := t.dict.SetFeature(col, f); err != nil {
		return err
	}

	t.columns[col] = borrowed(data)
	t.set.Add(uint32(col))
	if int(t.set.GetCardinality()) == t.NumberOfColumns() {
		t.status = UserAllocated
	}
	t.buildViews()
	return nil
}

// GetArray returns the storage of column col, or nil when it is not set.
func (t *SOATable) GetArray(col int) []byte {
	if col < 0 || col >= len(t.columns) || !t.set.Contains(uint32(col)) {
		return nil
	}
	return t.columns[col].data
}

// ColumnsSet returns how many columns have storage.
func (t *SOATable) ColumnsSet() int { return int(t.set.GetCardinality()) }

// IsHomogeneousFloatOrDouble reports whether all columns are float32, or all
// are float64.
func (t *SOATable) IsHomogeneousFloatOrDouble() bool {
	return t.dict.IsHomogeneousFloatOrDouble()
}

// hasFastPath reports whether typed column views are available.
func (t *SOATable) hasFastPath() bool { return t.f32 != nil || t.f64 != nil }

// buildViews prepares the homogeneous gather. It must run whenever the set
// of column arrays changes.
func (t *SOATable) buildViews() {
	t.f32, t.f64 = nil, nil
	p := t.NumberOfColumns()
	if p == 0 || int(t.set.GetCardinality()) != p || !t.dict.IsHomogeneousFloatOrDouble() {
		return
	}
	switch t.dict.Feature(0).Type {
	case dtype.Float32:
		t.f32 = columnViews[float32](t.columns)
	case dtype.Float64:
		t.f64 = columnViews[float64](t.columns)
	}
	t.logger.Debug("built homogeneous column views", log.FastPathKey, t.hasFastPath())
}

func columnViews[E float32 | float64](columns []buffer) [][]E {
	views := make([][]E, len(columns))
	for j, c := range columns {
		v, ok := viewAs[E](c.data)
		if !ok {
			return nil
		}
		views[j] = v
	}
	return views
}

// SetDictionary implements NumericTable.
func (t *SOATable) SetDictionary(d *dictionary.Dictionary) error {
	if err := t.checkDictionary("SOATable.SetDictionary", d); err != nil {
		return err
	}
	t.dict = d
	t.columns = make([]buffer, d.Len())
	t.set.Clear()
	t.buildViews()
	return nil
}

// AllocateDataMemory implements NumericTable. Columns already set keep their
// borrowed arrays; the rest are allocated.
func (t *SOATable) AllocateDataMemory() error {
	const op = "SOATable.AllocateDataMemory"
	if t.status == UserAllocated {
		return nil
	}
	if t.rows == 0 {
		return errors.NewTableError(op, errors.IncorrectNumberOfObservations, "cannot allocate zero rows")
	}
	for j := range t.columns {
		if !t.set.Contains(uint32(j)) && !t.dict.Feature(j).Type.Valid() {
			return errors.NewTableErrorf(op, errors.DataTypeNotSupported, "column %d has no numeric type", j)
		}
	}
	total := 0
	added := roaring.New()
	for j := range t.columns {
		if t.set.Contains(uint32(j)) {
			continue
		}
		buf, err := allocateBuffer(t.allocator, t.dict.Feature(j).Size()*t.rows)
		if err != nil {
			t.releaseColumns(added)
			return errors.Wrap(err, op)
		}
		t.columns[j] = buf
		added.Add(uint32(j))
		total += len(buf.data)
	}
	t.set.Or(added)
	t.status = InternallyAllocated
	t.buildViews()
	t.logAllocated(total)
	return nil
}

// releaseColumns frees the given columns and drops them from the set.
func (t *SOATable) releaseColumns(cols *roaring.Bitmap) {
	it := cols.Iterator()
	for it.HasNext() {
		t.columns[it.Next()].release(t.allocator)
	}
	t.set.AndNot(cols)
}

// FreeDataMemory implements NumericTable. Owned columns are freed and
// borrowed ones forgotten.
func (t *SOATable) FreeDataMemory() {
	if t.set.IsEmpty() {
		t.status = NotAllocated
		return
	}
	for j := range t.columns {
		t.columns[j].release(t.allocator)
	}
	t.set.Clear()
	t.status = NotAllocated
	t.buildViews()
	t.logFreed()
}

// SetNumberOfRows implements NumericTable.
func (t *SOATable) SetNumberOfRows(n int) error {
	const op = "SOATable.SetNumberOfRows"
	if n < 0 {
		return errors.NewTableErrorf(op, errors.IncorrectNumberOfObservations, "negative row count %d", n)
	}
	it := t.set.Iterator()
	for it.HasNext() {
		j := int(it.Next())
		c := &t.columns[j]
		need := n * t.dict.Feature(j).Size()
		switch {
		case c.owned:
			if err := c.resize(t.allocator, need); err != nil {
				return errors.Wrap(err, op)
			}
		case need > len(c.data):
			return errors.NewTableErrorf(op, errors.IncorrectNumberOfObservations,
				"borrowed column %d is shorter than %d rows", j, n)
		}
	}
	t.rows = n
	t.buildViews()
	return nil
}

func (t *SOATable) String() string { return describe(t) }

func soaBlockOfRows[T dtype.Target](t *SOATable, startRow, nRows int, mode ReadWriteMode) (*Block[T], error) {
	nCols := t.NumberOfColumns()
	n, ok := t.blockRange(startRow, nRows)
	if !ok {
		return emptyBlock[T](startRow, 0, nCols, mode, false), nil
	}
	if err := prepare(t, "SOATable.GetBlockOfRows", mode); err != nil {
		return nil, err
	}

	b := newBlock[T](startRow, n, 0, nCols, mode)
	b.allocate(n * nCols)
	if !mode.reads() {
		return b, nil
	}
	switch {
	case t.f32 != nil:
		gather(t.f32, startRow, n, b.data)
	case t.f64 != nil:
		gather(t.f64, startRow, n, b.data)
	default:
		if err := soaReadChunked(t, startRow, n, b.data); err != nil {
			b.Reset()
			return nil, err
		}
	}
	return b, nil
}

// gather transposes rows [start, start+n) of typed columns into a row-major
// buffer, moving gatherRows rows of one column at a time.
func gather[E float32 | float64, T dtype.Target](cols [][]E, start, n int, dst []T) {
	p := len(cols)
	w := gatherRows
	for i0 := 0; i0 < n; i0 += w {
		i1 := min(i0+w, n)
		for j, col := range cols {
			src := col[start+i0 : start+i1]
			out := dst[i0*p+j:]
			for i, v := range src {
				out[i*p] = T(v)
			}
		}
	}
}

// scatter is the inverse of gather. Elements whose stored value already
// converts to the incoming one are left untouched.
func scatter[E float32 | float64, T dtype.Target](cols [][]E, start, n int, src []T) {
	p := len(cols)
	w := gatherRows
	for i0 := 0; i0 < n; i0 += w {
		i1 := min(i0+w, n)
		for j, col := range cols {
			dst := col[start+i0 : start+i1]
			in := src[i0*p+j:]
			for i := range dst {
				if v := in[i*p]; !dtype.Same(T(dst[i]), v) {
					dst[i] = E(v)
				}
			}
		}
	}
}

func soaReadChunked[T dtype.Target](t *SOATable, startRow, n int, dst []T) error {
	p := t.NumberOfColumns()
	ups := make([]dtype.UpCast[T], p)
	for j := range ups {
		up, err := dtype.VectorUpCast[T](t.dict.Feature(j).Type)
		if err != nil {
			return err
		}
		ups[j] = up
	}
	for i0 := 0; i0 < n; i0 += chunkRows {
		m := min(chunkRows, n-i0)
		for j, up := range ups {
			size := t.dict.Feature(j).Size()
			up(m, t.columns[j].data[(startRow+i0)*size:], size, dst[i0*p+j:], p)
		}
	}
	return nil
}

func soaWriteRows[T dtype.Target](t *SOATable, b *Block[T]) error {
	switch {
	case t.f32 != nil:
		scatter(t.f32, b.rowsOffset, b.nRows, b.data)
		return nil
	case t.f64 != nil:
		scatter(t.f64, b.rowsOffset, b.nRows, b.data)
		return nil
	}

	p := b.nCols
	downs := make([]dtype.DownCast[T], p)
	for j := range downs {
		down, err := dtype.VectorWriteBack[T](t.dict.Feature(j).Type)
		if err != nil {
			return err
		}
		downs[j] = down
	}
	for i0 := 0; i0 < b.nRows; i0 += chunkRows {
		m := min(chunkRows, b.nRows-i0)
		for j, down := range downs {
			size := t.dict.Feature(j).Size()
			down(m, b.data[i0*p+j:], p, t.columns[j].data[(b.rowsOffset+i0)*size:], size)
		}
	}
	return nil
}

func soaColumnValues[T dtype.Target](t *SOATable, col, startRow, nRows int, mode ReadWriteMode) (*Block[T], error) {
	n, ok := columnRange(t, col, startRow, nRows)
	if !ok {
		return emptyBlock[T](startRow, col, 1, mode, true), nil
	}
	if !t.set.Contains(uint32(col)) {
		if err := prepare(t, "SOATable.GetBlockOfColumnValues", mode); err != nil {
			return nil, err
		}
		if !t.set.Contains(uint32(col)) {
			return nil, errors.NewTableErrorf("SOATable.GetBlockOfColumnValues", errors.NotAllocated,
				"column %d is not set", col)
		}
	}

	b := newBlock[T](startRow, n, col, 1, mode)
	b.columnValues = true
	typ := t.dict.Feature(col).Type
	size := typ.Size()
	raw := t.columns[col].data[startRow*size : (startRow+n)*size]
	if typ == dtype.TargetOf[T]() {
		if view, ok := viewAs[T](raw); ok {
			b.alias(view)
			return b, nil
		}
	}

	b.allocate(n)
	if mode.reads() {
		up, err := dtype.VectorUpCast[T](typ)
		if err != nil {
			b.Reset()
			return nil, err
		}
		up(n, raw, size, b.data, 1)
	}
	return b, nil
}

func soaWriteColumn[T dtype.Target](t *SOATable, b *Block[T]) error {
	typ := t.dict.Feature(b.colsOffset).Type
	down, err := dtype.VectorWriteBack[T](typ)
	if err != nil {
		return err
	}
	size := typ.Size()
	down(b.nRows, b.data, 1, t.columns[b.colsOffset].data[b.rowsOffset*size:], size)
	return nil
}

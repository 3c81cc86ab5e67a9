package table

import (
	"unsafe"

	"github.com/YuminosukeSato/numtable/dictionary"
	"github.com/YuminosukeSato/numtable/dtype"
	"github.com/YuminosukeSato/numtable/pkg/errors"
	"github.com/YuminosukeSato/numtable/pkg/log"
)

// AOSTable stores rows as fixed-size records. Column j of row i is the
// native value at byte structSize*i + offset[j].
type AOSTable struct {
	tableBase
	structSize int
	offsets    []int
	data       buffer
}

// NewAOSTable returns a table of nRows records of structSize bytes.
// Columns are described with SetFeature before use.
func NewAOSTable(structSize, nColumns, nRows int, opts ...Option) (*AOSTable, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if structSize < 0 {
		return nil, errors.NewTableErrorf("NewAOSTable", errors.IncorrectDataRange,
			"negative struct size %d", structSize)
	}
	base, err := newTableBase(LayoutAOS, nColumns, nRows, o)
	if err != nil {
		return nil, err
	}
	t := &AOSTable{
		tableBase:  base,
		structSize: structSize,
		offsets:    make([]int, nColumns),
	}
	if o.dictionary != nil {
		t.packOffsets(false)
	}
	if o.allocate {
		if err := t.AllocateDataMemory(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// NewAOSTableFromRecords borrows a slice of Go structs as table storage.
// The caller describes the columns with SetFeature, typically using
// unsafe.Offsetof for the offsets.
func NewAOSTableFromRecords[S any](records []S, nColumns int, opts ...Option) (*AOSTable, error) {
	if len(records) == 0 {
		return nil, errors.NewTableError("NewAOSTableFromRecords", errors.IncorrectNumberOfObservations,
			"no records")
	}
	size := int(unsafe.Sizeof(records[0]))
	t, err := NewAOSTable(size, nColumns, len(records), opts...)
	if err != nil {
		return nil, err
	}
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&records[0])), size*len(records))
	if err := t.SetArray(raw, len(records)); err != nil {
		return nil, err
	}
	return t, nil
}

// StructSize returns the record size in bytes.
func (t *AOSTable) StructSize() int { return t.structSize }

// Offsets returns a copy of the column byte offsets.
func (t *AOSTable) Offsets() []int {
	out := make([]int, len(t.offsets))
	copy(out, t.offsets)
	return out
}

// Array returns the record storage, or nil when unallocated.
func (t *AOSTable) Array() []byte { return t.data.data }

// SetArray borrows data as the storage of nRows records. The table never
// frees a borrowed buffer.
func (t *AOSTable) SetArray(data []byte, nRows int) error {
	if nRows < 0 || len(data) < t.structSize*nRows {
		return errors.NewTableErrorf("AOSTable.SetArray", errors.IncorrectNumberOfObservations,
			"buffer of %d bytes cannot hold %d records of %d bytes", len(data), nRows, t.structSize)
	}
	t.data.release(t.allocator)
	t.data = borrowed(data[:t.structSize*nRows])
	t.rows = nRows
	t.status = UserAllocated
	return nil
}

// SetFeature describes column col as a value of type typ at byte offset
// within the record.
func (t *AOSTable) SetFeature(col int, typ dtype.Type, offset int, kind dictionary.FeatureKind, categories int) error {
	if col < 0 || col >= t.NumberOfColumns() {
		return errors.NewTableErrorf("AOSTable.SetFeature", errors.IncorrectDataRange,
			"column %d out of range [0, %d)", col, t.NumberOfColumns())
	}
	if err := t.checkOffset("AOSTable.SetFeature", col, typ.Size(), offset); err != nil {
		return err
	}
	f := t.dict.Feature(col)
	f.Type, f.Kind, f.Categories = typ, kind, categories
	if err := t.dict.SetFeature(col, f); err != nil {
		return err
	}
	t.offsets[col] = offset
	return nil
}

// SetAOSFeature describes column col as a value of Go type N at offset.
func SetAOSFeature[N dtype.Native](t *AOSTable, col, offset int, kind dictionary.FeatureKind, categories int) error {
	return t.SetFeature(col, dtype.TypeOf[N](), offset, kind, categories)
}

// SetOffset moves column col to byte offset within the record.
func (t *AOSTable) SetOffset(col, offset int) error {
	if col < 0 || col >= t.NumberOfColumns() {
		return errors.NewTableErrorf("AOSTable.SetOffset", errors.IncorrectDataRange,
			"column %d out of range [0, %d)", col, t.NumberOfColumns())
	}
	if err := t.checkOffset("AOSTable.SetOffset", col, t.dict.Feature(col).Size(), offset); err != nil {
		return err
	}
	t.offsets[col] = offset
	return nil
}

func (t *AOSTable) checkOffset(op string, col, size, offset int) error {
	if offset < 0 || offset+size > t.structSize {
		return errors.NewTableErrorf(op, errors.IncorrectDataRange,
			"column %d: offset %d + size %d exceeds struct size %d", col, offset, size, t.structSize)
	}
	return nil
}

// SetDictionary implements NumericTable. Offsets are repacked from the new
// dictionary; the struct size grows to the packed size if needed.
func (t *AOSTable) SetDictionary(d *dictionary.Dictionary) error {
	if err := t.checkDictionary("AOSTable.SetDictionary", d); err != nil {
		return err
	}
	t.dict = d
	t.offsets = make([]int, d.Len())
	t.packOffsets(false)
	return nil
}

// checkOffsets reports whether the offsets describe a valid record: every
// column lies inside structSize and offsets are strictly increasing.
func (t *AOSTable) checkOffsets() bool {
	sizes := t.dict.Sizes()
	for i, off := range t.offsets {
		if off < 0 || off+sizes[i] > t.structSize {
			return false
		}
		if i > 0 && off <= t.offsets[i-1] {
			return false
		}
	}
	return true
}

// packOffsets lays columns out back to back from the dictionary. With
// shrink the struct size becomes exactly the packed size; otherwise it only
// grows.
func (t *AOSTable) packOffsets(shrink bool) {
	total := 0
	for i, size := range t.dict.Sizes() {
		t.offsets[i] = total
		total += size
	}
	if shrink || total > t.structSize {
		t.structSize = total
	}
}

// createOffsetsFromDictionary regenerates packed offsets and sets the struct
// size to the packed size.
func (t *AOSTable) createOffsetsFromDictionary() {
	t.packOffsets(true)
}

// AllocateDataMemory implements NumericTable.
func (t *AOSTable) AllocateDataMemory() error {
	const op = "AOSTable.AllocateDataMemory"
	if err := t.dict.Validate(); err != nil {
		return err
	}
	if t.rows == 0 {
		return errors.NewTableError(op, errors.IncorrectNumberOfObservations, "cannot allocate zero rows")
	}
	if !t.checkOffsets() {
		t.createOffsetsFromDictionary()
		t.logger.Debug("regenerated record offsets from dictionary", log.StructSizeKey, t.structSize)
	}
	if t.structSize == 0 {
		return errors.NewTableError(op, errors.MemoryAllocationFailed, "zero struct size")
	}

	t.FreeDataMemory()
	buf, err := allocateBuffer(t.allocator, t.structSize*t.rows)
	if err != nil {
		return errors.Wrap(err, op)
	}
	t.data = buf
	t.status = InternallyAllocated
	t.logAllocated(len(buf.data))
	return nil
}

// FreeDataMemory implements NumericTable.
func (t *AOSTable) FreeDataMemory() {
	if t.status == NotAllocated {
		return
	}
	t.data.release(t.allocator)
	t.status = NotAllocated
	t.logFreed()
}

// SetNumberOfRows implements NumericTable.
func (t *AOSTable) SetNumberOfRows(n int) error {
	const op = "AOSTable.SetNumberOfRows"
	if n < 0 {
		return errors.NewTableErrorf(op, errors.IncorrectNumberOfObservations, "negative row count %d", n)
	}
	need := n * t.structSize
	switch t.status {
	case NotAllocated:
	case UserAllocated:
		if need > len(t.data.data) {
			return errors.NewTableErrorf(op, errors.IncorrectNumberOfObservations,
				"borrowed buffer holds %d records, want %d", len(t.data.data)/max(t.structSize, 1), n)
		}
	case InternallyAllocated:
		if err := t.data.resize(t.allocator, need); err != nil {
			return errors.Wrap(err, op)
		}
	}
	t.rows = n
	return nil
}

func (t *AOSTable) String() string { return describe(t) }

func aosBlockOfRows[T dtype.Target](t *AOSTable, startRow, nRows int, mode ReadWriteMode) (*Block[T], error) {
	nCols := t.NumberOfColumns()
	n, ok := t.blockRange(startRow, nRows)
	if !ok {
		return emptyBlock[T](startRow, 0, nCols, mode, false), nil
	}
	if err := prepare(t, "AOSTable.GetBlockOfRows", mode); err != nil {
		return nil, err
	}

	b := newBlock[T](startRow, n, 0, nCols, mode)
	b.allocate(n * nCols)
	if mode.reads() {
		base := t.data.data[startRow*t.structSize:]
		for j := 0; j < nCols; j++ {
			up, err := dtype.VectorUpCast[T](t.dict.Feature(j).Type)
			if err != nil {
				b.Reset()
				return nil, err
			}
			up(n, base[t.offsets[j]:], t.structSize, b.data[j:], nCols)
		}
	}
	return b, nil
}

func aosWriteRows[T dtype.Target](t *AOSTable, b *Block[T]) error {
	base := t.data.data[b.rowsOffset*t.structSize:]
	var errs error
	for j := 0; j < b.nCols; j++ {
		down, err := dtype.VectorWriteBack[T](t.dict.Feature(j).Type)
		if err != nil {
			errs = errors.Combine(errs, err)
			continue
		}
		down(b.nRows, b.data[j:], b.nCols, base[t.offsets[j]:], t.structSize)
	}
	return errs
}

func aosColumnValues[T dtype.Target](t *AOSTable, col, startRow, nRows int, mode ReadWriteMode) (*Block[T], error) {
	n, ok := columnRange(t, col, startRow, nRows)
	if !ok {
		return emptyBlock[T](startRow, col, 1, mode, true), nil
	}
	if err := prepare(t, "AOSTable.GetBlockOfColumnValues", mode); err != nil {
		return nil, err
	}

	b := newBlock[T](startRow, n, col, 1, mode)
	b.columnValues = true
	b.allocate(n)
	if mode.reads() {
		up, err := dtype.VectorUpCast[T](t.dict.Feature(col).Type)
		if err != nil {
			b.Reset()
			return nil, err
		}
		up(n, t.data.data[startRow*t.structSize+t.offsets[col]:], t.structSize, b.data, 1)
	}
	return b, nil
}

func aosWriteColumn[T dtype.Target](t *AOSTable, b *Block[T]) error {
	down, err := dtype.VectorWriteBack[T](t.dict.Feature(b.colsOffset).Type)
	if err != nil {
		return err
	}
	down(b.nRows, b.data, 1, t.data.data[b.rowsOffset*t.structSize+t.offsets[b.colsOffset]:], t.structSize)
	return nil
}

package table

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"math/bits"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/YuminosukeSato/numtable/dictionary"
	"github.com/YuminosukeSato/numtable/dtype"
	"github.com/YuminosukeSato/numtable/pkg/errors"
	"github.com/YuminosukeSato/numtable/pkg/log"
)

// Serialized layout, all integers little-endian:
//
//	header:  "NTBL" | version u8 | layout u8 | flags u8
//	payload: rows u64 | columns u32
//	         columns x (name len u16 | name | type u8 | kind u8 | categories u32)
//	         has data u8
//	         AOS only: struct size u32 | columns x offset u32
//	         storage: rows*structSize (AOS), rows*size per column (SOA),
//	                  rows*columns*size (homogen)
//
// With flagZstd set the payload is a zstd stream.
const (
	serialMagic   = "NTBL"
	serialVersion = 1

	flagZstd = 1 << 0

	maxSerialRows    = 1 << 40
	maxSerialColumns = 1 << 20

	// storageChunk bounds the staging growth per read while storage is
	// loaded, so a header that overstates the row count fails on short
	// input before the full buffer is allocated.
	storageChunk = 1 << 20
)

// SerializeOption configures Serialize.
type SerializeOption func(*serializeOptions)

type serializeOptions struct {
	compress bool
	level    zstd.EncoderLevel
}

// WithCompression zstd-compresses the payload.
func WithCompression() SerializeOption {
	return func(o *serializeOptions) {
		o.compress = true
	}
}

// WithCompressionLevel zstd-compresses the payload at the given level.
func WithCompressionLevel(level zstd.EncoderLevel) SerializeOption {
	return func(o *serializeOptions) {
		o.compress = true
		o.level = level
	}
}

// Serialize writes t to w.
func Serialize(w io.Writer, t NumericTable, opts ...SerializeOption) (err error) {
	const op = "Serialize"
	o := serializeOptions{level: zstd.SpeedDefault}
	for _, opt := range opts {
		opt(&o)
	}
	if t == nil || t.Layout() == 0 {
		return unknownTable(op, t)
	}

	var flags byte
	if o.compress {
		flags |= flagZstd
	}
	header := []byte{serialMagic[0], serialMagic[1], serialMagic[2], serialMagic[3],
		serialVersion, byte(t.Layout()), flags}
	if _, err := w.Write(header); err != nil {
		return errors.Wrap(err, op)
	}

	payload := w
	if o.compress {
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(o.level))
		if err != nil {
			return errors.Wrap(err, op)
		}
		defer func() {
			err = errors.Combine(err, zw.Close())
		}()
		payload = zw
	}

	bw := bufio.NewWriter(payload)
	if err := writePayload(bw, t); err != nil {
		return errors.Wrap(err, op)
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, op)
	}

	t.base().logger.Debug("serialized table",
		log.OperationKey, log.OperationSerialize,
		log.RowsKey, t.NumberOfRows(),
		log.ColumnsKey, t.NumberOfColumns(),
	)
	return nil
}

// binWriter keeps the first write error.
type binWriter struct {
	w   io.Writer
	err error
}

func (b *binWriter) put(v any) {
	if b.err == nil {
		b.err = binary.Write(b.w, binary.LittleEndian, v)
	}
}

func (b *binWriter) bytes(p []byte) {
	if b.err == nil {
		_, b.err = b.w.Write(p)
	}
}

func writePayload(w io.Writer, t NumericTable) error {
	bw := &binWriter{w: w}
	dict := t.Dictionary()
	bw.put(uint64(t.NumberOfRows()))
	bw.put(uint32(dict.Len()))
	for i := 0; i < dict.Len(); i++ {
		f := dict.Feature(i)
		bw.put(uint16(len(f.Name)))
		bw.bytes([]byte(f.Name))
		bw.put(uint8(f.Type))
		bw.put(uint8(f.Kind))
		bw.put(uint32(f.Categories))
	}

	hasData := t.MemoryStatus() != NotAllocated
	if soa, ok := t.(*SOATable); ok && soa.ColumnsSet() != dict.Len() {
		hasData = false
	}
	if hasData {
		bw.put(uint8(1))
	} else {
		bw.put(uint8(0))
	}

	switch tt := t.(type) {
	case *AOSTable:
		bw.put(uint32(tt.structSize))
		for _, off := range tt.offsets {
			bw.put(uint32(off))
		}
		if hasData {
			bw.bytes(tt.data.data[:tt.rows*tt.structSize])
		}
	case *SOATable:
		if hasData {
			for j, c := range tt.columns {
				bw.bytes(c.data[:tt.rows*dict.Feature(j).Size()])
			}
		}
	case *HomogenTable:
		if hasData {
			bw.bytes(tt.data.data[:tt.rows*tt.rowBytes()])
		}
	}
	return bw.err
}

// Deserialize reads a table written by Serialize. Storage is allocated with
// the allocator given in opts.
func Deserialize(r io.Reader, opts ...Option) (NumericTable, error) {
	header := make([]byte, 7)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, corrupt("reading header: %v", err)
	}
	if string(header[:4]) != serialMagic {
		return nil, corrupt("bad magic %q", header[:4])
	}
	if header[4] != serialVersion {
		return nil, corrupt("unsupported version %d", header[4])
	}
	layout := Layout(header[5])
	flags := header[6]

	payload := r
	if flags&flagZstd != 0 {
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "Deserialize")
		}
		defer zr.Close()
		payload = zr
	}
	t, err := readPayload(bufio.NewReader(payload), layout, opts)
	if err != nil {
		return nil, err
	}
	t.base().logger.Debug("deserialized table",
		log.OperationKey, log.OperationDeserialize,
		log.RowsKey, t.NumberOfRows(),
		log.ColumnsKey, t.NumberOfColumns(),
	)
	return t, nil
}

func corrupt(format string, args ...any) error {
	return errors.NewTableErrorf("Deserialize", errors.IncorrectSerialization, format, args...)
}

// binReader keeps the first read error.
type binReader struct {
	r   io.Reader
	err error
}

func (b *binReader) get(v any) {
	if b.err == nil {
		b.err = binary.Read(b.r, binary.LittleEndian, v)
	}
}

func (b *binReader) bytes(p []byte) {
	if b.err == nil {
		_, b.err = io.ReadFull(b.r, p)
	}
}

// storage reads exactly n bytes of table storage. The staging buffer grows
// only as bytes arrive.
func (b *binReader) storage(n int) ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	var buf bytes.Buffer
	buf.Grow(min(n, storageChunk))
	if got, err := io.CopyN(&buf, b.r, int64(n)); err != nil {
		b.err = err
		return nil, errors.Wrapf(err, "got %d of %d bytes", got, n)
	}
	return buf.Bytes(), nil
}

// storageBytes multiplies the factors, reporting false when the product
// does not fit in an int.
func storageBytes(factors ...int) (int, bool) {
	total := uint64(1)
	for _, f := range factors {
		if f < 0 {
			return 0, false
		}
		hi, lo := bits.Mul64(total, uint64(f))
		if hi != 0 || lo > math.MaxInt {
			return 0, false
		}
		total = lo
	}
	return int(total), true
}

func readPayload(r io.Reader, layout Layout, opts []Option) (NumericTable, error) {
	br := &binReader{r: r}
	var rows64 uint64
	var cols32 uint32
	br.get(&rows64)
	br.get(&cols32)
	if br.err != nil {
		return nil, corrupt("reading shape: %v", br.err)
	}
	if rows64 > maxSerialRows || cols32 > maxSerialColumns {
		return nil, corrupt("implausible shape %d x %d", rows64, cols32)
	}
	rows, cols := int(rows64), int(cols32)

	dict := dictionary.New(cols)
	for i := 0; i < cols; i++ {
		var nameLen uint16
		br.get(&nameLen)
		name := make([]byte, nameLen)
		br.bytes(name)
		var typ, kind uint8
		var categories uint32
		br.get(&typ)
		br.get(&kind)
		br.get(&categories)
		if br.err != nil {
			return nil, corrupt("reading feature %d: %v", i, br.err)
		}
		if dtype.Type(typ) == dtype.Other {
			// Unset column of a table written before its schema was filled in.
			dict.SetName(i, string(name))
			if err := dict.SetCategories(i, int(categories)); err != nil {
				return nil, corrupt("feature %d: %v", i, err)
			}
			continue
		}
		f := dictionary.Feature{
			Name:       string(name),
			Type:       dtype.Type(typ),
			Kind:       dictionary.FeatureKind(kind),
			Categories: int(categories),
		}
		if err := dict.SetFeature(i, f); err != nil {
			return nil, corrupt("feature %d: %v", i, err)
		}
	}
	var hasData uint8
	br.get(&hasData)
	if br.err != nil {
		return nil, corrupt("reading data flag: %v", br.err)
	}

	opts = append(opts, WithDictionary(dict))
	switch layout {
	case LayoutAOS:
		return readAOS(br, rows, cols, hasData == 1, opts)
	case LayoutSOA:
		return readSOA(br, rows, cols, hasData == 1, opts)
	case LayoutHomogen:
		return readHomogen(br, dict, rows, cols, hasData == 1, opts)
	}
	return nil, corrupt("unknown layout %d", layout)
}

func readAOS(br *binReader, rows, cols int, hasData bool, opts []Option) (NumericTable, error) {
	var structSize uint32
	br.get(&structSize)
	offsets := make([]uint32, cols)
	br.get(offsets)
	if br.err != nil {
		return nil, corrupt("reading record layout: %v", br.err)
	}
	t, err := NewAOSTable(int(structSize), cols, rows, opts...)
	if err != nil {
		return nil, err
	}
	t.structSize = int(structSize)
	sizes := t.dict.Sizes()
	for j, off := range offsets {
		if int(off)+sizes[j] > t.structSize {
			return nil, corrupt("column %d offset %d exceeds struct size %d", j, off, structSize)
		}
		t.offsets[j] = int(off)
	}
	if !hasData {
		return t, nil
	}
	n, ok := storageBytes(rows, t.structSize)
	if !ok {
		return nil, corrupt("%d records of %d bytes overflow", rows, structSize)
	}
	staged, err := br.storage(n)
	if err != nil {
		return nil, corrupt("reading records: %v", err)
	}
	buf, err := allocateBuffer(t.allocator, n)
	if err != nil {
		return nil, errors.Wrap(err, "Deserialize")
	}
	copy(buf.data, staged)
	t.data = buf
	t.status = InternallyAllocated
	return t, nil
}

func readSOA(br *binReader, rows, cols int, hasData bool, opts []Option) (NumericTable, error) {
	t, err := NewSOATable(cols, rows, opts...)
	if err != nil {
		return nil, err
	}
	if !hasData {
		return t, nil
	}
	staged := make([][]byte, cols)
	for j := range staged {
		n, ok := storageBytes(rows, t.dict.Feature(j).Size())
		if !ok {
			return nil, corrupt("column %d: %d rows overflow", j, rows)
		}
		if staged[j], err = br.storage(n); err != nil {
			return nil, corrupt("reading column %d: %v", j, err)
		}
	}
	if err := t.AllocateDataMemory(); err != nil {
		return nil, err
	}
	for j, c := range t.columns {
		copy(c.data, staged[j])
	}
	return t, nil
}

func readHomogen(br *binReader, dict *dictionary.Dictionary, rows, cols int, hasData bool, opts []Option) (NumericTable, error) {
	typ := dtype.Float64
	if cols > 0 {
		typ = dict.Feature(0).Type
	}
	t, err := newHomogenOfType(typ, cols, rows, opts)
	if err != nil {
		return nil, err
	}
	if !hasData {
		return t, nil
	}
	n, ok := storageBytes(rows, cols, typ.Size())
	if !ok {
		return nil, corrupt("%d x %d matrix of %s overflows", rows, cols, typ)
	}
	staged, err := br.storage(n)
	if err != nil {
		return nil, corrupt("reading matrix: %v", err)
	}
	if err := t.AllocateDataMemory(); err != nil {
		return nil, err
	}
	copy(t.data.data, staged)
	return t, nil
}

func newHomogenOfType(typ dtype.Type, cols, rows int, opts []Option) (*HomogenTable, error) {
	switch typ {
	case dtype.Int8:
		return NewHomogenTable[int8](cols, rows, opts...)
	case dtype.Uint8:
		return NewHomogenTable[uint8](cols, rows, opts...)
	case dtype.Int16:
		return NewHomogenTable[int16](cols, rows, opts...)
	case dtype.Uint16:
		return NewHomogenTable[uint16](cols, rows, opts...)
	case dtype.Int32:
		return NewHomogenTable[int32](cols, rows, opts...)
	case dtype.Uint32:
		return NewHomogenTable[uint32](cols, rows, opts...)
	case dtype.Int64:
		return NewHomogenTable[int64](cols, rows, opts...)
	case dtype.Uint64:
		return NewHomogenTable[uint64](cols, rows, opts...)
	case dtype.Float32:
		return NewHomogenTable[float32](cols, rows, opts...)
	case dtype.Float64:
		return NewHomogenTable[float64](cols, rows, opts...)
	}
	return nil, corrupt("unsupported homogen type %s", typ)
}

// SaveTable writes t to the file at path.
//
// Example:
//
//	err := table.SaveTable("features.ntbl", t, table.WithCompression())
func SaveTable(path string, t NumericTable, opts ...SerializeOption) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	if err := Serialize(file, t, opts...); err != nil {
		_ = file.Close()
		return err
	}
	return errors.Wrapf(file.Close(), "failed to close %s", path)
}

// LoadTable reads a table saved with SaveTable.
func LoadTable(path string, opts ...Option) (NumericTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer file.Close()
	return Deserialize(file, opts...)
}

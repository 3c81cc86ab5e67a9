package datasource

import (
	"context"
	"encoding/csv"
	"io"
	"time"

	"github.com/YuminosukeSato/numtable/dictionary"
	"github.com/YuminosukeSato/numtable/dtype"
	"github.com/YuminosukeSato/numtable/pkg/errors"
	"github.com/YuminosukeSato/numtable/pkg/log"
	"github.com/YuminosukeSato/numtable/table"
)

// DefaultBlockSize is the number of rows LoadDataBlockAll reads per block.
const DefaultBlockSize = 4096

// Option configures a CSVDataSource.
type Option func(*CSVDataSource)

// WithHeader treats the first record as column names.
func WithHeader() Option {
	return func(s *CSVDataSource) {
		s.header = true
	}
}

// WithLayout sets the layout of the table rows are loaded into. The default
// is table.LayoutSOA.
func WithLayout(l table.Layout) Option {
	return func(s *CSVDataSource) {
		s.layout = l
	}
}

// WithFeatureManager replaces the default CSVFeatureManager.
func WithFeatureManager(m *CSVFeatureManager) Option {
	return func(s *CSVDataSource) {
		if m != nil {
			s.manager = m
		}
	}
}

// WithBlockSize sets the rows per block read by LoadDataBlockAll.
func WithBlockSize(n int) Option {
	return func(s *CSVDataSource) {
		if n > 0 {
			s.blockSize = n
		}
	}
}

// WithTableOptions passes options to the table constructor.
func WithTableOptions(opts ...table.Option) Option {
	return func(s *CSVDataSource) {
		s.tableOpts = append(s.tableOpts, opts...)
	}
}

// WithLogger sets the logger. The default is log.Component("datasource").
func WithLogger(l log.Logger) Option {
	return func(s *CSVDataSource) {
		s.logger = l
	}
}

// CSVDataSource reads CSV records into a numeric table.
type CSVDataSource struct {
	reader    *csv.Reader
	manager   *CSVFeatureManager
	header    bool
	layout    table.Layout
	blockSize int
	tableOpts []table.Option
	logger    log.Logger

	names   []string
	pending []string
	tbl     table.NumericTable
	eof     bool
}

// NewCSVDataSource returns a data source reading from r.
func NewCSVDataSource(r io.Reader, opts ...Option) *CSVDataSource {
	s := &CSVDataSource{
		manager:   NewCSVFeatureManager(),
		layout:    table.LayoutSOA,
		blockSize: DefaultBlockSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Component("datasource")
	}

	s.reader = csv.NewReader(r)
	s.reader.Comma = s.manager.Delimiter()
	s.reader.FieldsPerRecord = -1
	s.reader.TrimLeadingSpace = true
	return s
}

// FeatureManager returns the manager parsing rows.
func (s *CSVDataSource) FeatureManager() *CSVFeatureManager { return s.manager }

// NumericTable returns the table rows are loaded into, or nil before the
// dictionary has been created.
func (s *CSVDataSource) NumericTable() table.NumericTable { return s.tbl }

// Dictionary returns the inferred dictionary, or nil.
func (s *CSVDataSource) Dictionary() *dictionary.Dictionary { return s.manager.Dictionary() }

// FeatureNames returns the header names, or nil without a header.
func (s *CSVDataSource) FeatureNames() []string {
	if s.names == nil {
		return nil
	}
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

func (s *CSVDataSource) read() ([]string, error) {
	if s.pending != nil {
		fields := s.pending
		s.pending = nil
		return fields, nil
	}
	if s.eof {
		return nil, io.EOF
	}
	fields, err := s.reader.Read()
	if err == io.EOF {
		s.eof = true
		return nil, io.EOF
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading CSV record")
	}
	return s.manager.ApplyModifiers(fields)
}

// CreateDictionaryFromContext reads the header, if any, and infers the
// dictionary from the first data row, then creates the empty table. The
// sampled row is kept and loaded by the next LoadDataBlock.
func (s *CSVDataSource) CreateDictionaryFromContext() error {
	if s.tbl != nil {
		return nil
	}
	if s.header {
		names, err := s.reader.Read()
		if err != nil {
			return errors.NewTableErrorf("CreateDictionaryFromContext", errors.IncorrectNumberOfObservations,
				"reading header: %v", err)
		}
		s.names = names
	}
	first, err := s.read()
	if err == io.EOF {
		return errors.NewTableError("CreateDictionaryFromContext", errors.IncorrectNumberOfObservations,
			"no data rows")
	}
	if err != nil {
		return err
	}
	if s.header && len(s.names) != len(first) {
		return errors.NewTableErrorf("CreateDictionaryFromContext", errors.IncorrectNumberOfFeatures,
			"header has %d names, first row has %d fields", len(s.names), len(first))
	}
	s.pending = first

	dict := s.manager.ParseRowAsDictionary(first)
	for i, name := range s.names {
		dict.SetName(i, name)
	}

	tbl, err := s.newTable(dict)
	if err != nil {
		return err
	}
	s.tbl = tbl
	s.logger.Debug("created dictionary",
		log.ColumnsKey, dict.Len(),
		log.LayoutKey, s.layout.String(),
	)
	return nil
}

func (s *CSVDataSource) newTable(dict *dictionary.Dictionary) (table.NumericTable, error) {
	opts := append([]table.Option{table.WithDictionary(dict)}, s.tableOpts...)
	switch s.layout {
	case table.LayoutAOS:
		return table.NewAOSTable(0, dict.Len(), 0, opts...)
	case table.LayoutSOA:
		return table.NewSOATable(dict.Len(), 0, opts...)
	case table.LayoutHomogen:
		// Every column is stored in the float type; categorical columns
		// keep their kind and hold category indexes.
		ft := s.manager.FloatType()
		for i := 0; i < dict.Len(); i++ {
			f := dict.Feature(i)
			f.Type = ft
			_ = dict.SetFeature(i, f)
		}
		if ft == dtype.Float64 {
			return table.NewHomogenTable[float64](dict.Len(), 0, opts...)
		}
		return table.NewHomogenTable[float32](dict.Len(), 0, opts...)
	}
	return nil, errors.NewTableErrorf("NewCSVDataSource", errors.IncorrectParameter,
		"unsupported layout %s", s.layout)
}

// LoadDataBlock appends up to maxRows rows to the table and returns how many
// were read. It returns 0 and no error at end of input. The context is
// checked between rows; on cancellation the rows read so far are kept.
func (s *CSVDataSource) LoadDataBlock(ctx context.Context, maxRows int) (int, error) {
	if maxRows <= 0 {
		return 0, errors.NewTableErrorf("LoadDataBlock", errors.IncorrectParameter,
			"maxRows must be positive, got %d", maxRows)
	}
	if err := s.CreateDictionaryFromContext(); err != nil {
		return 0, err
	}
	if s.eof && s.pending == nil {
		return 0, nil
	}

	start := time.Now()
	old := s.tbl.NumberOfRows()
	if err := s.tbl.SetNumberOfRows(old + maxRows); err != nil {
		return 0, err
	}
	block, err := table.GetBlockOfRows[float64](s.tbl, old, maxRows, table.WriteOnly)
	if err != nil {
		_ = s.tbl.SetNumberOfRows(old)
		return 0, err
	}

	n, loadErr := s.fill(ctx, block)
	loadErr = errors.Combine(loadErr, table.ReleaseBlockOfRows(s.tbl, block))
	loadErr = errors.Combine(loadErr, s.tbl.SetNumberOfRows(old+n))

	s.logger.Debug("loaded data block",
		log.OperationKey, log.OperationLoad,
		log.BlockOffsetKey, old,
		log.BlockRowsKey, n,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return n, loadErr
}

func (s *CSVDataSource) fill(ctx context.Context, block *table.Block[float64]) (int, error) {
	for i := 0; i < block.NumberOfRows(); i++ {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		fields, err := s.read()
		if err == io.EOF {
			return i, nil
		}
		if err != nil {
			return i, err
		}
		if err := s.manager.ParseRowIn(fields, block.Row(i)); err != nil {
			return i, errors.Wrapf(err, "row %d", block.RowsOffset()+i)
		}
	}
	return block.NumberOfRows(), nil
}

// LoadDataBlockAll loads the remaining input in blocks and returns the total
// number of rows read.
func (s *CSVDataSource) LoadDataBlockAll(ctx context.Context) (int, error) {
	total := 0
	for {
		n, err := s.LoadDataBlock(ctx, s.blockSize)
		total += n
		if err != nil || n < s.blockSize {
			return total, err
		}
	}
}

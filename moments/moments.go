// Package moments computes low-order moments of every column of a numeric
// table in a single parallel pass over row blocks.
package moments

import (
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/numtable/pkg/errors"
	"github.com/YuminosukeSato/numtable/pkg/log"
	"github.com/YuminosukeSato/numtable/table"
)

// ResultID names one row of the result table.
type ResultID int

const (
	Minimum ResultID = iota
	Maximum
	Sum
	SumSquares
	SumSquaresCentered
	Mean
	SecondOrderRawMoment
	Variance
	StandardDeviation
	Variation

	numResults
)

var resultNames = [numResults]string{
	"minimum",
	"maximum",
	"sum",
	"sumSquares",
	"sumSquaresCentered",
	"mean",
	"secondOrderRawMoment",
	"variance",
	"standardDeviation",
	"variation",
}

func (id ResultID) String() string {
	if id < 0 || id >= numResults {
		return "unknown"
	}
	return resultNames[id]
}

// Result holds one value per column for every ResultID. Variance is the
// unbiased estimate; it is 0 for a single observation.
type Result struct {
	Rows    int
	Columns int
	values  [numResults][]float64
}

// Get returns the values of id, one per column.
func (r *Result) Get(id ResultID) []float64 { return r.values[id] }

func (r *Result) Minimum() []float64           { return r.values[Minimum] }
func (r *Result) Maximum() []float64           { return r.values[Maximum] }
func (r *Result) Sum() []float64               { return r.values[Sum] }
func (r *Result) Mean() []float64              { return r.values[Mean] }
func (r *Result) Variance() []float64          { return r.values[Variance] }
func (r *Result) StandardDeviation() []float64 { return r.values[StandardDeviation] }

// Table returns the results as a float64 HomogenTable with one row per
// ResultID and one column per input column.
func (r *Result) Table(opts ...table.Option) (*table.HomogenTable, error) {
	data := make([]float64, 0, int(numResults)*r.Columns)
	for id := ResultID(0); id < numResults; id++ {
		data = append(data, r.values[id]...)
	}
	return table.NewHomogenTableFromSlice(data, r.Columns, int(numResults), opts...)
}

type options struct {
	blockRows int
	logger    log.Logger
}

// Option configures Compute.
type Option func(*options)

// WithBlockRows sets the rows per block handed to each worker.
func WithBlockRows(n int) Option {
	return func(o *options) { o.blockRows = n }
}

// WithLogger sets the logger used for timing records.
func WithLogger(l log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// partial holds the running moments of a set of rows.
type partial struct {
	n     float64
	min   []float64
	max   []float64
	sum   []float64
	sumSq []float64
	mean  []float64
	m2    []float64
}

func newPartial(p int) *partial {
	s := &partial{
		min:   make([]float64, p),
		max:   make([]float64, p),
		sum:   make([]float64, p),
		sumSq: make([]float64, p),
		mean:  make([]float64, p),
		m2:    make([]float64, p),
	}
	for j := 0; j < p; j++ {
		s.min[j] = math.Inf(1)
		s.max[j] = math.Inf(-1)
	}
	return s
}

// blockPartial computes the moments of one row block.
func blockPartial(b *table.Block[float64]) *partial {
	n, p := b.NumberOfRows(), b.NumberOfColumns()
	s := newPartial(p)
	s.n = float64(n)
	col := make([]float64, n)
	for j := 0; j < p; j++ {
		for i := 0; i < n; i++ {
			col[i] = b.At(i, j)
		}
		s.min[j] = floats.Min(col)
		s.max[j] = floats.Max(col)
		s.sum[j] = floats.Sum(col)
		s.sumSq[j] = floats.Dot(col, col)
		if n == 1 {
			s.mean[j] = col[0]
			continue
		}
		mean, variance := stat.MeanVariance(col, nil)
		s.mean[j] = mean
		s.m2[j] = variance * float64(n-1)
	}
	return s
}

// merge folds o into s with the pairwise update of Chan, Golub and LeVeque.
func (s *partial) merge(o *partial) {
	if o.n == 0 {
		return
	}
	n := s.n + o.n
	for j := range s.mean {
		delta := o.mean[j] - s.mean[j]
		s.m2[j] += o.m2[j] + delta*delta*s.n*o.n/n
		s.mean[j] += delta * o.n / n
		s.min[j] = math.Min(s.min[j], o.min[j])
		s.max[j] = math.Max(s.max[j], o.max[j])
		s.sum[j] += o.sum[j]
		s.sumSq[j] += o.sumSq[j]
	}
	s.n = n
}

func (s *partial) result(rows int) *Result {
	p := len(s.mean)
	r := &Result{Rows: rows, Columns: p}
	r.values[Minimum] = s.min
	r.values[Maximum] = s.max
	r.values[Sum] = s.sum
	r.values[SumSquares] = s.sumSq
	r.values[SumSquaresCentered] = s.m2
	r.values[Mean] = s.mean
	for id := SecondOrderRawMoment; id < numResults; id++ {
		r.values[id] = make([]float64, p)
	}
	for j := 0; j < p; j++ {
		r.values[SecondOrderRawMoment][j] = s.sumSq[j] / s.n
		if s.n > 1 {
			r.values[Variance][j] = s.m2[j] / (s.n - 1)
		}
		r.values[StandardDeviation][j] = math.Sqrt(r.values[Variance][j])
		r.values[Variation][j] = r.values[StandardDeviation][j] / s.mean[j]
	}
	return r
}

// Compute returns the low-order moments of every column of t.
func Compute(t table.NumericTable, opts ...Option) (*Result, error) {
	o := options{blockRows: table.DefaultBlockRows, logger: log.Component("moments")}
	for _, opt := range opts {
		opt(&o)
	}
	if t.NumberOfRows() == 0 {
		return nil, errors.NewTableError("moments.Compute", errors.IncorrectNumberOfObservations,
			"table has no rows")
	}
	if t.NumberOfColumns() == 0 {
		return nil, errors.NewTableError("moments.Compute", errors.IncorrectNumberOfFeatures,
			"table has no columns")
	}

	start := time.Now()
	var mu sync.Mutex
	total := newPartial(t.NumberOfColumns())
	err := table.ParallelRowBlocks(t, o.blockRows, table.ReadOnly, func(b *table.Block[float64]) error {
		s := blockPartial(b)
		mu.Lock()
		total.merge(s)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "computing moments")
	}

	o.logger.Debug("computed moments",
		log.OperationKey, log.OperationCompute,
		log.RowsKey, t.NumberOfRows(),
		log.ColumnsKey, t.NumberOfColumns(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return total.result(t.NumberOfRows()), nil
}

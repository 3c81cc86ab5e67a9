package moments

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/numtable/pkg/errors"
	"github.com/YuminosukeSato/numtable/table"
)

func randomDense(rows, cols int, seed int64) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = rng.NormFloat64()*3 + float64(i%cols)
	}
	return mat.NewDense(rows, cols, data)
}

func TestCompute_MatchesGonum(t *testing.T) {
	m := randomDense(257, 4, 1)
	tbl, err := table.FromDense(m)
	require.NoError(t, err)

	for _, blockRows := range []int{1, 7, 64, 1024} {
		res, err := Compute(tbl, WithBlockRows(blockRows))
		require.NoError(t, err, "blockRows=%d", blockRows)
		assert.Equal(t, 257, res.Rows)

		for j := 0; j < 4; j++ {
			col := mat.Col(nil, j, m)
			mean, variance := stat.MeanVariance(col, nil)
			assert.InDelta(t, mean, res.Mean()[j], 1e-10)
			assert.InDelta(t, variance, res.Variance()[j], 1e-9)
			assert.InDelta(t, math.Sqrt(variance), res.StandardDeviation()[j], 1e-9)

			var sum, sumSq float64
			lo, hi := math.Inf(1), math.Inf(-1)
			for _, v := range col {
				sum += v
				sumSq += v * v
				lo = math.Min(lo, v)
				hi = math.Max(hi, v)
			}
			assert.Equal(t, lo, res.Minimum()[j])
			assert.Equal(t, hi, res.Maximum()[j])
			assert.InDelta(t, sum, res.Sum()[j], 1e-9)
			assert.InDelta(t, sumSq, res.Get(SumSquares)[j], 1e-7)
			assert.InDelta(t, variance*256, res.Get(SumSquaresCentered)[j], 1e-7)
			assert.InDelta(t, sumSq/257, res.Get(SecondOrderRawMoment)[j], 1e-9)
			assert.InDelta(t, math.Sqrt(variance)/mean, res.Get(Variation)[j], 1e-9)
		}
	}
}

func TestCompute_SOAAndAOS(t *testing.T) {
	x := []float32{1, 2, 3, 4}
	n := []int32{10, 10, 20, 40}

	soa, err := table.NewSOATable(2, 4)
	require.NoError(t, err)
	require.NoError(t, table.SetArray(soa, 0, x))
	require.NoError(t, table.SetArray(soa, 1, n))

	res, err := Compute(soa, WithBlockRows(3))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{2.5, 20}, res.Mean(), 1e-12)
	assert.Equal(t, []float64{1, 10}, res.Minimum())
	assert.Equal(t, []float64{4, 40}, res.Maximum())
	assert.InDelta(t, 5.0/3.0, res.Variance()[0], 1e-12)
	assert.InDelta(t, 200.0, res.Variance()[1], 1e-12)
}

func TestCompute_SingleRow(t *testing.T) {
	tbl, err := table.NewHomogenTableFromSlice([]float64{3, -1}, 2, 1)
	require.NoError(t, err)
	res, err := Compute(tbl)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, -1}, res.Mean())
	assert.Equal(t, []float64{0, 0}, res.Variance())
	assert.Equal(t, []float64{9, 1}, res.Get(SecondOrderRawMoment))
}

func TestCompute_Errors(t *testing.T) {
	empty, err := table.NewHomogenTable[float64](3, 0)
	require.NoError(t, err)
	_, err = Compute(empty)
	assert.True(t, errors.HasCode(err, errors.IncorrectNumberOfObservations))

	unallocated, err := table.NewHomogenTable[float64](3, 5)
	require.NoError(t, err)
	_, err = Compute(unallocated)
	assert.True(t, errors.HasCode(err, errors.NotAllocated), "got %v", err)
}

func TestResult_Table(t *testing.T) {
	tbl, err := table.NewHomogenTableFromSlice([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	require.NoError(t, err)
	res, err := Compute(tbl)
	require.NoError(t, err)

	out, err := res.Table()
	require.NoError(t, err)
	assert.Equal(t, 10, out.NumberOfRows())
	assert.Equal(t, 2, out.NumberOfColumns())

	b, err := table.GetBlockOfRows[float64](out, int(Mean), 1, table.ReadOnly)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, b.Data())
	require.NoError(t, table.ReleaseBlockOfRows(out, b))
	assert.Equal(t, "standardDeviation", StandardDeviation.String())
}

func BenchmarkCompute(b *testing.B) {
	tbl, err := table.FromDense(randomDense(100000, 16, 2))
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Compute(tbl); err != nil {
			b.Fatal(err)
		}
	}
}

package table

import (
	"sync/atomic"
	"testing"

	"github.com/YuminosukeSato/numtable/dictionary"
	"github.com/YuminosukeSato/numtable/pkg/errors"
)

func TestForEachRowBlock(t *testing.T) {
	data := make([]float32, 2*103)
	for i := range data {
		data[i] = float32(i)
	}
	tbl, _ := NewHomogenTableFromSlice(data, 2, 103)

	var rows, blocks int
	var sum float64
	err := ForEachRowBlock(tbl, 10, ReadOnly, func(b *Block[float64]) error {
		blocks++
		rows += b.NumberOfRows()
		for _, v := range b.Data() {
			sum += v
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if blocks != 11 || rows != 103 {
		t.Errorf("Expected 11 blocks covering 103 rows, got %d blocks, %d rows", blocks, rows)
	}
	if want := float64(205 * 206 / 2); sum != want {
		t.Errorf("Expected sum %v, got %v", want, sum)
	}

	stop := errors.New("stop")
	calls := 0
	err = ForEachRowBlock(tbl, 10, ReadOnly, func(b *Block[float64]) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Errorf("Expected iteration to stop on first error, got %v after %d calls", err, calls)
	}
}

func TestParallelRowBlocks_DisjointWrites(t *testing.T) {
	d := dictionary.NewEqual(3, dictionary.FeatureOf[float64](dictionary.Continuous, 0))
	tbl, err := NewSOATable(3, 1000, WithDictionary(d))
	if err != nil {
		t.Fatal(err)
	}

	var visited atomic.Int64
	err = ParallelRowBlocks(tbl, 64, WriteOnly, func(b *Block[float64]) error {
		visited.Add(int64(b.NumberOfRows()))
		for i := 0; i < b.NumberOfRows(); i++ {
			row := b.Row(i)
			for j := range row {
				row[j] = float64((b.RowsOffset()+i)*10 + j)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Parallel write failed: %v", err)
	}
	if visited.Load() != 1000 {
		t.Errorf("Expected 1000 rows visited, got %d", visited.Load())
	}

	b, _ := GetBlockOfRows[float64](tbl, 0, 1000, ReadOnly)
	defer ReleaseBlockOfRows(tbl, b)
	for i := 0; i < 1000; i++ {
		for j := 0; j < 3; j++ {
			if b.At(i, j) != float64(i*10+j) {
				t.Fatalf("row %d col %d: expected %d, got %v", i, j, i*10+j, b.At(i, j))
			}
		}
	}
}

func TestParallelRowBlocks_Errors(t *testing.T) {
	tbl, _ := NewHomogenTableFromSlice(make([]float64, 400), 4, 100)

	err := ParallelRowBlocks(tbl, 10, ReadOnly, func(b *Block[int32]) error {
		if b.RowsOffset() == 50 {
			panic("bad block")
		}
		return nil
	})
	var panicErr *errors.PanicError
	if !errors.As(err, &panicErr) {
		t.Errorf("Expected recovered panic, got %v", err)
	}

	unallocated, _ := NewSOATable(2, 10)
	err = ParallelRowBlocks(unallocated, 10, ReadOnly, func(b *Block[float64]) error { return nil })
	if !errors.HasCode(err, errors.NotAllocated) {
		t.Errorf("Expected NotAllocated, got %v", err)
	}
}

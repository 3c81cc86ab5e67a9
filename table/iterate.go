package table

import (
	"sync"

	"github.com/YuminosukeSato/numtable/core/parallel"
	"github.com/YuminosukeSato/numtable/dtype"
	"github.com/YuminosukeSato/numtable/pkg/errors"
	"github.com/YuminosukeSato/numtable/pkg/log"
)

// DefaultBlockRows is the row block size used when none is given.
const DefaultBlockRows = 1024

// ForEachRowBlock visits t in consecutive row blocks of at most blockRows
// rows, releasing each block after fn returns. Iteration stops at the first
// error.
func ForEachRowBlock[T dtype.Target](t NumericTable, blockRows int, mode ReadWriteMode, fn func(b *Block[T]) error) error {
	if blockRows <= 0 {
		blockRows = DefaultBlockRows
	}
	for start := 0; start < t.NumberOfRows(); start += blockRows {
		if err := visitRowBlock(t, start, blockRows, mode, fn); err != nil {
			return err
		}
	}
	return nil
}

func visitRowBlock[T dtype.Target](t NumericTable, start, blockRows int, mode ReadWriteMode, fn func(b *Block[T]) error) (err error) {
	b, err := GetBlockOfRows[T](t, start, blockRows, mode)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Combine(err, ReleaseBlockOfRows(t, b))
	}()
	return errors.SafeExecute("row block callback", func() error {
		return fn(b)
	})
}

// ParallelRowBlocks visits t in row blocks of at most blockRows rows across
// all CPUs. Every worker owns a disjoint range of blocks, so write-enabled
// blocks never overlap. fn must be safe for concurrent use. All errors are
// combined.
func ParallelRowBlocks[T dtype.Target](t NumericTable, blockRows int, mode ReadWriteMode, fn func(b *Block[T]) error) error {
	if blockRows <= 0 {
		blockRows = DefaultBlockRows
	}
	if t.NumberOfRows() == 0 {
		return nil
	}
	// Allocate before fanning out; lazy allocation is not safe concurrently.
	if err := prepare(t, "ParallelRowBlocks", mode); err != nil {
		return err
	}
	nBlocks := (t.NumberOfRows() + blockRows - 1) / blockRows

	var (
		mu   sync.Mutex
		errs error
	)
	workers := parallel.Workers(nBlocks)
	parallel.ParallelizeWithThreshold(nBlocks, 1, func(startBlock, endBlock int) {
		for blk := startBlock; blk < endBlock; blk++ {
			if err := visitRowBlock(t, blk*blockRows, blockRows, mode, fn); err != nil {
				mu.Lock()
				errs = errors.Combine(errs, err)
				mu.Unlock()
				return
			}
		}
	})

	t.base().logger.Debug("processed row blocks",
		log.BlockRowsKey, blockRows,
		log.BlockModeKey, mode.String(),
		log.RowsKey, t.NumberOfRows(),
		log.WorkersKey, workers,
	)
	return errs
}

// Package numtable provides typed numeric tables for Go: row-major (AOS),
// column-major (SOA) and homogeneous storage behind one block-access API,
// designed for analytics code that streams data in row or column blocks.
//
// # Features
//
//   - Three layouts: records with per-column byte offsets, one buffer per
//     column, or one dense matrix of a single type
//   - Block access in float64, float32 or int32 with zero-copy aliasing
//     when the stored type matches
//   - Per-column dictionaries with type, kind and category counts
//   - CSV loading with type inference and category indexing
//   - Binary serialization with optional zstd compression
//   - Apache Arrow import and export
//   - Parallel row-block iteration, low-order moments and scalers
//
// # Installation
//
//	go get github.com/YuminosukeSato/numtable
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/numtable/moments"
//	    "github.com/YuminosukeSato/numtable/table"
//	)
//
//	func main() {
//	    x := []float32{1, 2, 3, 4}
//	    n := []int32{10, 20, 30, 40}
//
//	    t, err := table.NewSOATable(2, 4)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    _ = table.SetArray(t, 0, x)
//	    _ = table.SetArray(t, 1, n)
//
//	    b, err := table.GetBlockOfRows[float64](t, 1, 2, table.ReadOnly)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(b.Row(0), b.Row(1)) // [2 20] [3 30]
//	    _ = table.ReleaseBlockOfRows(t, b)
//
//	    res, _ := moments.Compute(t)
//	    fmt.Println(res.Mean()) // [2.5 25]
//	}
//
// # Packages
//
//   - dtype: native element types and block conversions
//   - dictionary: per-column feature metadata
//   - table: AOS, SOA and homogeneous tables, blocks, allocators, serialization
//   - datasource: CSV feature manager and data source
//   - arrowconv: Apache Arrow record adapter
//   - moments: low-order moments over row blocks
//   - preprocessing: StandardScaler and MinMaxScaler on tables
//   - core/model: fitted-state tracking and persistence for transformers
//   - core/parallel: parallel processing utilities
//   - pkg/errors, pkg/log: error types and structured logging
//
// # Performance
//
//   - SOA tables of float32 or float64 columns gather rows in strips sized
//     to the detected SIMD width
//   - Row blocks are pooled per element type
//   - ParallelRowBlocks splits a table across CPU cores in disjoint blocks
//
// # License
//
// numtable is released under the MIT License.
package numtable

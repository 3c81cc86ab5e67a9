// Package log defines standard attribute keys for numeric-table operations.
//
// Using these keys keeps structured logs consistent across tables, data
// sources and the algorithms that read them. Keys follow a hierarchical
// naming convention ("table.rows", "block.offset") so logs can be filtered
// by prefix.

package log

// Table context
const (
	// ComponentKey identifies which package emitted the record.
	// Examples: "table", "datasource", "arrowconv", "moments"
	ComponentKey = "component"

	// LayoutKey is the storage layout of a table: "aos", "soa", "homogen".
	LayoutKey = "table.layout"

	// RowsKey is the number of rows (observations) of a table.
	RowsKey = "table.rows"

	// ColumnsKey is the number of columns (features) of a table.
	ColumnsKey = "table.columns"

	// MemoryStatusKey is the allocation state of a table.
	// Values: "not_allocated", "internally_allocated", "user_allocated"
	MemoryStatusKey = "table.memory_status"

	// StructSizeKey is the record size in bytes of an AOS table.
	StructSizeKey = "table.struct_size"

	// OperationKey names the operation being performed.
	OperationKey = "table.operation"
)

// Block access
const (
	// BlockRowsKey is the number of rows in a block request.
	BlockRowsKey = "block.rows"

	// BlockOffsetKey is the first row of a block request.
	BlockOffsetKey = "block.offset"

	// BlockModeKey is the read/write mode of a block request.
	BlockModeKey = "block.mode"

	// FastPathKey reports whether a homogeneous fast path served a request.
	FastPathKey = "block.fast_path"
)

// Data characteristics
const (
	// DataTypeKey is a native or target element type, e.g. "float32".
	DataTypeKey = "data.type"

	// DataSizeKey is a byte count: an allocation, a serialized payload.
	DataSizeKey = "data.size_bytes"

	// FeatureKey is a column index or feature name.
	FeatureKey = "data.feature"

	// CategoriesKey is the number of categories of a categorical feature.
	CategoriesKey = "data.categories"
)

// Performance
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// WorkersKey is the number of workers used by a parallel pass.
	WorkersKey = "perf.workers"
)

// Error context
const (
	// ErrorCodeKey carries a table error code, e.g. "IncorrectDataRange".
	ErrorCodeKey = "error.code"

	// ErrorTypeKey categorizes the error type.
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	StacktraceKey = "error.stacktrace"
)

// Standard operation values.
const (
	OperationAllocate    = "allocate"
	OperationFree        = "free"
	OperationSerialize   = "serialize"
	OperationDeserialize = "deserialize"
	OperationLoad        = "load"
	OperationCompute     = "compute"
	OperationTransform   = "transform"
)

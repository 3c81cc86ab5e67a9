package log

import (
	"context"
	"fmt"
	"sync"
)

// Entry is one record captured by a TestLogger.
type Entry struct {
	Level   Level
	Message string
	Fields  map[string]any
}

// capture is the record list shared by a TestLogger and its children.
type capture struct {
	mu      sync.Mutex
	entries []Entry
}

// TestLogger keeps every record at or above its level in memory so tests
// can assert on what tables and data sources logged.
//
// Example:
//
//	logger := log.NewTestLogger(log.LevelDebug)
//	tbl, _ := table.NewSOATable(3, 10, table.WithLogger(logger))
//	_ = tbl.AllocateDataMemory()
//	if !logger.ContainsField(log.LayoutKey, "soa") { ... }
type TestLogger struct {
	records *capture
	level   Level
	fields  map[string]any
}

// NewTestLogger returns an empty TestLogger that records level and above.
func NewTestLogger(level Level) *TestLogger {
	return &TestLogger{records: &capture{}, level: level}
}

func (t *TestLogger) Debug(msg string, fields ...any) { t.record(LevelDebug, msg, fields) }
func (t *TestLogger) Info(msg string, fields ...any)  { t.record(LevelInfo, msg, fields) }
func (t *TestLogger) Warn(msg string, fields ...any)  { t.record(LevelWarn, msg, fields) }

// Error records msg at error level. A leading error value is stored under
// ErrAttrKey.
func (t *TestLogger) Error(msg string, fields ...any) {
	if len(fields)%2 == 1 {
		if err, ok := fields[0].(error); ok {
			fields = append([]any{ErrAttrKey, err}, fields[1:]...)
		}
	}
	t.record(LevelError, msg, fields)
}

// With returns a child that adds fields to every record and shares the
// parent's records.
func (t *TestLogger) With(fields ...any) Logger {
	return &TestLogger{
		records: t.records,
		level:   t.level,
		fields:  mergeFields(t.fields, fields),
	}
}

// Enabled implements Logger.
func (t *TestLogger) Enabled(_ context.Context, level Level) bool {
	return t.level <= level
}

func (t *TestLogger) record(level Level, msg string, fields []any) {
	if level < t.level {
		return
	}
	e := Entry{Level: level, Message: msg, Fields: mergeFields(t.fields, fields)}
	t.records.mu.Lock()
	t.records.entries = append(t.records.entries, e)
	t.records.mu.Unlock()
}

// mergeFields copies base and adds the key/value pairs of kv. Errors are
// stored as their message; a trailing key without a value is dropped.
func mergeFields(base map[string]any, kv []any) map[string]any {
	out := make(map[string]any, len(base)+len(kv)/2)
	for k, v := range base {
		out[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		v := kv[i+1]
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		out[fmt.Sprint(kv[i])] = v
	}
	return out
}

// Entries returns a copy of the captured records in logging order.
func (t *TestLogger) Entries() []Entry {
	t.records.mu.Lock()
	defer t.records.mu.Unlock()
	return append([]Entry(nil), t.records.entries...)
}

// Find returns the first record whose message is msg.
func (t *TestLogger) Find(msg string) (Entry, bool) {
	for _, e := range t.Entries() {
		if e.Message == msg {
			return e, true
		}
	}
	return Entry{}, false
}

// ContainsMessage reports whether a record with message msg was captured.
func (t *TestLogger) ContainsMessage(msg string) bool {
	_, ok := t.Find(msg)
	return ok
}

// ContainsField reports whether any record carries key with value.
func (t *TestLogger) ContainsField(key string, value any) bool {
	for _, e := range t.Entries() {
		if v, ok := e.Fields[key]; ok && v == value {
			return true
		}
	}
	return false
}

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/YuminosukeSato/numtable/pkg/errors"
)

func TestTestLoggerCapturesLevels(t *testing.T) {
	testLogger := NewTestLogger(LevelDebug)

	testLogger.Debug("debug message", "key1", "value1", "number", 42)
	testLogger.Info("info message", OperationKey, OperationAllocate)
	testLogger.Warn("warning message", ErrorCodeKey, "IncorrectDataRange")
	testLogger.Error("error message", fmt.Errorf("allocation failed"), RowsKey, 10)

	entries := testLogger.Entries()
	if len(entries) != 4 {
		t.Fatalf("Expected 4 entries, got %d", len(entries))
	}
	wantLevels := []Level{LevelDebug, LevelInfo, LevelWarn, LevelError}
	for i, e := range entries {
		if e.Level != wantLevels[i] {
			t.Errorf("entry %d level = %s, want %s", i, e.Level, wantLevels[i])
		}
	}
	if !testLogger.ContainsField("number", 42) {
		t.Error("Expected field number=42 not found")
	}
	if !testLogger.ContainsField(ErrAttrKey, "allocation failed") {
		t.Error("Expected leading error to be recorded under the error key")
	}
	if e, ok := testLogger.Find("error message"); !ok || e.Fields[RowsKey] != 10 {
		t.Errorf("Unexpected error entry %+v", e)
	}
}

func TestTestLoggerWith(t *testing.T) {
	testLogger := NewTestLogger(LevelDebug)

	tableLogger := testLogger.With(ComponentKey, "table", LayoutKey, "soa")
	tableLogger.Info("allocated table memory", RowsKey, 100, ColumnsKey, 3)
	testLogger.Info("parent record")

	entries := testLogger.Entries()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 log entries, got %d", len(entries))
	}

	expected := map[string]any{
		ComponentKey: "table",
		LayoutKey:    "soa",
		RowsKey:      100,
		ColumnsKey:   3,
	}
	for key, want := range expected {
		if got, ok := entries[0].Fields[key]; !ok || got != want {
			t.Errorf("field %s = %v, want %v", key, got, want)
		}
	}
	if _, ok := entries[1].Fields[ComponentKey]; ok {
		t.Error("Child fields leaked into the parent logger")
	}
}

func TestTestLoggerEnabled(t *testing.T) {
	testLogger := NewTestLogger(LevelInfo)
	ctx := context.Background()

	if !testLogger.Enabled(ctx, LevelInfo) || !testLogger.Enabled(ctx, LevelError) {
		t.Error("Logger should be enabled for Info and Error")
	}
	if testLogger.Enabled(ctx, LevelDebug) {
		t.Error("Logger should not be enabled for Debug level")
	}

	testLogger.Debug("this should not appear")
	if testLogger.ContainsMessage("this should not appear") {
		t.Error("Debug message should not appear when level is Info")
	}
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestZerologLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelInfo)

	logger.Debug("dropped")
	logger.With(ComponentKey, "table").Info("allocated table memory", RowsKey, 4, LayoutKey, "aos")

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d: %s", len(entries), buf.String())
	}
	entry := entries[0]
	if entry["message"] != "allocated table memory" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry[ComponentKey] != "table" || entry[LayoutKey] != "aos" || entry[RowsKey] != 4.0 {
		t.Errorf("unexpected fields: %v", entry)
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
}

func TestZerologLoggerErrorEmbedsTableError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelDebug)

	err := errors.NewTableError("AOSTable.AllocateDataMemory", errors.MemoryAllocationFailed, "budget exceeded")
	logger.Error("allocation failed", err, RowsKey, 8)

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	detail, ok := entries[0]["error_detail"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error_detail object, got %v", entries[0])
	}
	if detail["code"] != "MemoryAllocationFailed" {
		t.Errorf("code = %v, want MemoryAllocationFailed", detail["code"])
	}
	if entries[0][RowsKey] != 8.0 {
		t.Errorf("rows = %v, want 8", entries[0][RowsKey])
	}
}

func TestZerologLoggerEnabled(t *testing.T) {
	logger := NewZerologLogger(&bytes.Buffer{}, LevelWarn)
	ctx := context.Background()
	if logger.Enabled(ctx, LevelInfo) {
		t.Error("Info should be disabled at warn level")
	}
	if !logger.Enabled(ctx, LevelError) {
		t.Error("Error should be enabled at warn level")
	}
}

func TestWarningsRouteThroughGlobalLogger(t *testing.T) {
	var buf bytes.Buffer
	previous := GetLogger()
	SetLogger(NewZerologLogger(&buf, LevelDebug))
	defer SetLogger(previous)

	errors.Warn(errors.NewDataConversionWarning("string", "float32", "not a number"))

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0]["type"] != "DataConversionWarning" || entries[0]["level"] != "warn" {
		t.Errorf("unexpected warning entry: %v", entries[0])
	}
}

func TestZerologProvider(t *testing.T) {
	var buf bytes.Buffer
	provider := NewZerologProvider(&buf, LevelInfo)

	provider.GetLoggerWithName("datasource").Info("loaded block")
	provider.SetLevel(LevelError)
	provider.GetLogger().Info("suppressed")

	if !strings.Contains(buf.String(), "datasource") {
		t.Error("component name not found in named logger output")
	}
	if strings.Contains(buf.String(), "suppressed") {
		t.Error("info record should be suppressed after SetLevel(LevelError)")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"info", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func BenchmarkZerologLogger(b *testing.B) {
	logger := NewZerologLogger(&bytes.Buffer{}, LevelInfo)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("block released", BlockOffsetKey, i, BlockRowsKey, 32)
	}
}

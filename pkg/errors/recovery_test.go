package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestRecover(t *testing.T) {
	tests := []struct {
		name       string
		panicValue interface{}
		wantValue  string
	}{
		{"string panic", "offset table corrupted", "offset table corrupted"},
		{"int panic", 42, "42"},
		{"error panic", fmt.Errorf("slice bounds"), "slice bounds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := func() (err error) {
				defer Recover(&err, "GatherRows")
				panic(tt.panicValue)
			}

			err := fn()
			var panicErr *PanicError
			if !errors.As(err, &panicErr) {
				t.Fatalf("Expected PanicError, got %T", err)
			}
			if panicErr.Operation != "GatherRows" {
				t.Errorf("Operation = %q, want GatherRows", panicErr.Operation)
			}
			if fmt.Sprintf("%v", panicErr.PanicValue) != tt.wantValue {
				t.Errorf("PanicValue = %v, want %v", panicErr.PanicValue, tt.wantValue)
			}
			if panicErr.StackTrace == "" {
				t.Error("Expected non-empty stack trace")
			}
		})
	}
}

func TestRecoverWithoutPanic(t *testing.T) {
	fn := func() (err error) {
		defer Recover(&err, "GatherRows")
		return nil
	}
	if err := fn(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}

func TestRecoverKeepsExistingError(t *testing.T) {
	original := fmt.Errorf("short buffer")

	fn := func() (err error) {
		defer Recover(&err, "ReadColumn")
		err = original
		panic("index out of range")
	}

	err := fn()
	if !strings.Contains(err.Error(), "panic in ReadColumn") {
		t.Errorf("Error message should contain panic info: %s", err)
	}
	if !errors.Is(err, original) {
		t.Error("Should be able to identify original error with errors.Is")
	}
}

func TestSafeExecute(t *testing.T) {
	if err := SafeExecute("modifier", func() error { return nil }); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	fnErr := fmt.Errorf("modifier failed")
	if err := SafeExecute("modifier", func() error { return fnErr }); err != fnErr {
		t.Fatalf("Expected original error, got: %v", err)
	}

	err := SafeExecute("modifier", func() error { panic("boom") })
	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("Expected PanicError, got %T", err)
	}
	if !strings.Contains(panicErr.String(), "Stack trace:") {
		t.Error("String() should include stack trace information")
	}
}

func TestPanicErrorUnwrap(t *testing.T) {
	inner := fmt.Errorf("inner")
	if NewPanicError("op", inner).Unwrap() != inner {
		t.Error("Unwrap should return an error panic value")
	}
	if NewPanicError("op", "text").Unwrap() != nil {
		t.Error("Unwrap should return nil for non-error panic values")
	}
}

func BenchmarkSafeExecuteNoPanic(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = SafeExecute("BenchmarkOp", func() error { return nil })
	}
}

package dictionary

import (
	"testing"

	"github.com/YuminosukeSato/numtable/dtype"
	"github.com/YuminosukeSato/numtable/pkg/errors"
)

func TestNewEqual(t *testing.T) {
	d := NewEqual(4, FeatureOf[float32](Continuous, 0))
	if d.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", d.Len())
	}
	if !d.FeaturesEqual() {
		t.Error("FeaturesEqual() = false for NewEqual dictionary")
	}
	if !d.IsHomogeneousFloatOrDouble() {
		t.Error("expected homogeneous float dictionary")
	}
	if got := d.PackedSize(); got != 16 {
		t.Errorf("PackedSize() = %d, want 16", got)
	}

	if err := SetFeatureOf[int32](d, 2, Categorical, 3); err != nil {
		t.Fatal(err)
	}
	if d.FeaturesEqual() {
		t.Error("FeaturesEqual() should be false after diverging a column")
	}
	if d.IsHomogeneous() {
		t.Error("IsHomogeneous() should be false with mixed types")
	}
}

func TestSetFeature(t *testing.T) {
	tests := []struct {
		name    string
		col     int
		feature Feature
		code    errors.Code
	}{
		{"valid", 1, Feature{Type: dtype.Float64}, 0},
		{"negative column", -1, Feature{Type: dtype.Float64}, errors.IncorrectNumberOfFeatures},
		{"column past end", 3, Feature{Type: dtype.Float64}, errors.IncorrectNumberOfFeatures},
		{"non numeric type", 0, Feature{Type: dtype.Other}, errors.DataTypeNotSupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(3)
			err := d.SetFeature(tt.col, tt.feature)
			if tt.code == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if d.Feature(tt.col) != tt.feature {
					t.Errorf("Feature(%d) = %+v, want %+v", tt.col, d.Feature(tt.col), tt.feature)
				}
				return
			}
			if !errors.HasCode(err, tt.code) {
				t.Errorf("error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestSetFeatureOfKeepsName(t *testing.T) {
	d := New(2)
	d.SetName(0, "age")
	if err := SetFeatureOf[uint8](d, 0, Ordinal, 0); err != nil {
		t.Fatal(err)
	}
	f := d.Feature(0)
	if f.Name != "age" || f.Type != dtype.Uint8 || f.Kind != Ordinal {
		t.Errorf("Feature(0) = %+v", f)
	}
}

func TestResize(t *testing.T) {
	d := NewEqual(2, FeatureOf[float64](Continuous, 0))
	d.Resize(4)
	if d.Len() != 4 || d.Feature(3).Type != dtype.Float64 {
		t.Errorf("grown equal dictionary = %s", d)
	}

	m := New(2)
	_ = m.SetFeature(0, Feature{Type: dtype.Int16})
	m.Resize(3)
	if m.Feature(2).Type != dtype.Other {
		t.Errorf("new column type = %s, want other", m.Feature(2).Type)
	}
	if err := m.Validate(); !errors.HasCode(err, errors.DataTypeNotSupported) {
		t.Errorf("Validate() = %v, want DataTypeNotSupported", err)
	}
	m.Resize(1)
	if m.Len() != 1 || m.Feature(0).Type != dtype.Int16 {
		t.Errorf("shrunk dictionary = %s", m)
	}
}

func TestTypesAndSizes(t *testing.T) {
	d := New(3)
	_ = SetFeatureOf[int32](d, 0, Continuous, 0)
	_ = SetFeatureOf[float64](d, 1, Continuous, 0)
	_ = SetFeatureOf[uint16](d, 2, Categorical, 5)

	wantTypes := []dtype.Type{dtype.Int32, dtype.Float64, dtype.Uint16}
	wantSizes := []int{4, 8, 2}
	types, sizes := d.Types(), d.Sizes()
	for i := range wantTypes {
		if types[i] != wantTypes[i] {
			t.Errorf("Types()[%d] = %s, want %s", i, types[i], wantTypes[i])
		}
		if sizes[i] != wantSizes[i] {
			t.Errorf("Sizes()[%d] = %d, want %d", i, sizes[i], wantSizes[i])
		}
	}
	if d.PackedSize() != 14 {
		t.Errorf("PackedSize() = %d, want 14", d.PackedSize())
	}
	if got, want := d.String(), "Dictionary[int32, float64, uint16/categorical(5)]"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestClone(t *testing.T) {
	d := New(2)
	_ = SetFeatureOf[float32](d, 0, Continuous, 0)
	c := d.Clone()
	if !c.Equal(d) {
		t.Fatal("clone differs from source")
	}
	_ = SetFeatureOf[float64](c, 0, Continuous, 0)
	if d.Feature(0).Type != dtype.Float32 {
		t.Error("mutating clone changed source")
	}
	if c.Equal(d) {
		t.Error("Equal() true after divergence")
	}
}

func TestEmptyDictionary(t *testing.T) {
	d := New(0)
	if d.IsHomogeneous() {
		t.Error("empty dictionary reported homogeneous")
	}
	var nilDict *Dictionary
	if nilDict.Len() != 0 {
		t.Error("nil dictionary Len() != 0")
	}
}

func TestParseFeatureKind(t *testing.T) {
	for _, k := range []FeatureKind{Continuous, Ordinal, Categorical} {
		got, err := ParseFeatureKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseFeatureKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if _, err := ParseFeatureKind("nominal"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

// Package dictionary holds the per-column metadata of a numeric table.
//
// A Dictionary is configured before a table allocates memory and is read
// concurrently afterwards. It carries no lock: structural changes while
// blocks are being accessed are not supported.
package dictionary

import (
	"fmt"
	"strings"

	"github.com/YuminosukeSato/numtable/dtype"
	"github.com/YuminosukeSato/numtable/pkg/errors"
)

// FeatureKind classifies the values of a column.
type FeatureKind uint8

const (
	Continuous FeatureKind = iota
	Ordinal
	Categorical
)

func (k FeatureKind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Ordinal:
		return "ordinal"
	case Categorical:
		return "categorical"
	default:
		return fmt.Sprintf("FeatureKind(%d)", uint8(k))
	}
}

// ParseFeatureKind parses the name returned by FeatureKind.String.
func ParseFeatureKind(s string) (FeatureKind, error) {
	switch s {
	case "continuous":
		return Continuous, nil
	case "ordinal":
		return Ordinal, nil
	case "categorical":
		return Categorical, nil
	}
	return 0, errors.NewValidationError("kind", "unknown feature kind", s)
}

// Feature describes one column.
type Feature struct {
	Name       string
	Type       dtype.Type
	Kind       FeatureKind
	Categories int
}

// Size returns the byte size of the feature's native type.
func (f Feature) Size() int { return f.Type.Size() }

// FeatureOf returns a feature of native type N.
func FeatureOf[N dtype.Native](kind FeatureKind, categories int) Feature {
	return Feature{Type: dtype.TypeOf[N](), Kind: kind, Categories: categories}
}

// Dictionary is the ordered feature list of a table.
type Dictionary struct {
	features []Feature
	// equal marks a dictionary whose columns all share features[0].
	equal bool
}

// New returns a dictionary of n unset (Other) features.
func New(n int) *Dictionary {
	if n < 0 {
		n = 0
	}
	return &Dictionary{features: make([]Feature, n)}
}

// NewEqual returns a dictionary of n columns that all use f.
func NewEqual(n int, f Feature) *Dictionary {
	d := New(n)
	for i := range d.features {
		d.features[i] = f
	}
	d.equal = true
	return d
}

// Len returns the number of columns described.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.features)
}

// FeaturesEqual reports whether the dictionary was built with NewEqual and
// has not been diverged since.
func (d *Dictionary) FeaturesEqual() bool { return d.equal }

// Feature returns column i's feature. i must be in range.
func (d *Dictionary) Feature(i int) Feature {
	return d.features[i]
}

// Features returns a copy of all features.
func (d *Dictionary) Features() []Feature {
	out := make([]Feature, len(d.features))
	copy(out, d.features)
	return out
}

// SetFeature replaces column i's feature.
func (d *Dictionary) SetFeature(i int, f Feature) error {
	if i < 0 || i >= len(d.features) {
		return errors.NewTableErrorf("Dictionary.SetFeature", errors.IncorrectNumberOfFeatures,
			"column %d out of range [0, %d)", i, len(d.features))
	}
	if !f.Type.Valid() {
		return errors.NewTableErrorf("Dictionary.SetFeature", errors.DataTypeNotSupported,
			"column %d: type %s is not a numeric type", i, f.Type)
	}
	if f.Categories < 0 {
		return errors.NewValidationError("categories", "must be non-negative", f.Categories)
	}
	if d.equal && len(d.features) > 1 && f != d.features[0] {
		d.equal = false
	}
	d.features[i] = f
	return nil
}

// SetName names column i. Out-of-range indexes are ignored.
func (d *Dictionary) SetName(i int, name string) {
	if i >= 0 && i < len(d.features) {
		d.features[i].Name = name
	}
}

// SetCategories updates the category count of column i.
func (d *Dictionary) SetCategories(i, categories int) error {
	if i < 0 || i >= len(d.features) {
		return errors.NewTableErrorf("Dictionary.SetCategories", errors.IncorrectNumberOfFeatures,
			"column %d out of range [0, %d)", i, len(d.features))
	}
	d.features[i].Categories = categories
	return nil
}

// SetFeatureOf sets column i to native type N.
func SetFeatureOf[N dtype.Native](d *Dictionary, i int, kind FeatureKind, categories int) error {
	f := FeatureOf[N](kind, categories)
	if i >= 0 && i < d.Len() {
		f.Name = d.features[i].Name
	}
	return d.SetFeature(i, f)
}

// Resize grows or shrinks the dictionary to n columns. New columns are unset.
func (d *Dictionary) Resize(n int) {
	if n < 0 {
		n = 0
	}
	if n <= len(d.features) {
		d.features = d.features[:n]
		return
	}
	grown := make([]Feature, n)
	copy(grown, d.features)
	if d.equal && len(d.features) > 0 {
		for i := len(d.features); i < n; i++ {
			grown[i] = d.features[0]
		}
	}
	d.features = grown
}

// Types returns the native type of every column.
func (d *Dictionary) Types() []dtype.Type {
	out := make([]dtype.Type, len(d.features))
	for i, f := range d.features {
		out[i] = f.Type
	}
	return out
}

// Sizes returns the byte size of every column.
func (d *Dictionary) Sizes() []int {
	out := make([]int, len(d.features))
	for i, f := range d.features {
		out[i] = f.Size()
	}
	return out
}

// PackedSize returns the sum of column sizes: the record size of a packed
// struct with no padding.
func (d *Dictionary) PackedSize() int {
	total := 0
	for _, f := range d.features {
		total += f.Size()
	}
	return total
}

// Validate checks that every column has a numeric type.
func (d *Dictionary) Validate() error {
	for i, f := range d.features {
		if !f.Type.Valid() {
			return errors.NewTableErrorf("Dictionary.Validate", errors.DataTypeNotSupported,
				"column %d has no numeric type", i)
		}
	}
	return nil
}

// IsHomogeneous reports whether every column has the same native type.
func (d *Dictionary) IsHomogeneous() bool {
	if len(d.features) == 0 {
		return false
	}
	first := d.features[0].Type
	for _, f := range d.features[1:] {
		if f.Type != first {
			return false
		}
	}
	return first.Valid()
}

// IsHomogeneousFloatOrDouble reports whether every column is float32, or
// every column is float64.
func (d *Dictionary) IsHomogeneousFloatOrDouble() bool {
	return d.IsHomogeneous() && d.features[0].Type.IsFloat()
}

// Clone returns a deep copy.
func (d *Dictionary) Clone() *Dictionary {
	return &Dictionary{features: d.Features(), equal: d.equal}
}

// Equal reports whether two dictionaries describe the same columns.
func (d *Dictionary) Equal(other *Dictionary) bool {
	if d.Len() != other.Len() {
		return false
	}
	for i := range d.features {
		if d.features[i] != other.features[i] {
			return false
		}
	}
	return true
}

func (d *Dictionary) String() string {
	var sb strings.Builder
	sb.WriteString("Dictionary[")
	for i, f := range d.features {
		if i > 0 {
			sb.WriteString(", ")
		}
		if f.Name != "" {
			sb.WriteString(f.Name)
			sb.WriteByte(':')
		}
		sb.WriteString(f.Type.String())
		if f.Kind != Continuous {
			fmt.Fprintf(&sb, "/%s", f.Kind)
		}
		if f.Kind == Categorical {
			fmt.Fprintf(&sb, "(%d)", f.Categories)
		}
	}
	sb.WriteByte(']')
	return sb.String()
}

// Package datasource loads numeric tables from CSV input.
//
// A CSVFeatureManager infers a dictionary from a sample row and parses rows
// into float64 row blocks; a CSVDataSource drives it over an io.Reader and
// appends the parsed rows to a table.
package datasource

import (
	"math"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/numtable/dictionary"
	"github.com/YuminosukeSato/numtable/dtype"
	"github.com/YuminosukeSato/numtable/pkg/errors"
)

// FeatureModifier rewrites the raw fields of a row before they are parsed.
// It may return a slice of a different length only before the dictionary
// has been inferred.
type FeatureModifier func(fields []string) ([]string, error)

// ManagerOption configures a CSVFeatureManager.
type ManagerOption func(*CSVFeatureManager)

// WithDelimiter sets the field separator. The default is ','.
func WithDelimiter(r rune) ManagerOption {
	return func(m *CSVFeatureManager) {
		m.delimiter = r
	}
}

// WithFloatType sets the native type of continuous features: float32
// (default) or float64.
func WithFloatType(t dtype.Type) ManagerOption {
	return func(m *CSVFeatureManager) {
		if t.IsFloat() {
			m.floatType = t
		}
	}
}

// WithModifier appends a feature modifier. Modifiers run in order.
func WithModifier(fn FeatureModifier) ManagerOption {
	return func(m *CSVFeatureManager) {
		m.modifiers = append(m.modifiers, fn)
	}
}

// CSVFeatureManager turns CSV fields into feature values. Continuous
// features parse as numbers; categorical features map each distinct string
// to an index in order of first appearance.
type CSVFeatureManager struct {
	delimiter rune
	floatType dtype.Type
	modifiers []FeatureModifier

	dict       *dictionary.Dictionary
	categories []map[string]int
	levels     [][]string
}

// NewCSVFeatureManager returns a manager with the given options.
func NewCSVFeatureManager(opts ...ManagerOption) *CSVFeatureManager {
	m := &CSVFeatureManager{
		delimiter: ',',
		floatType: dtype.Float32,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Delimiter returns the field separator.
func (m *CSVFeatureManager) Delimiter() rune { return m.delimiter }

// FloatType returns the native type of continuous features.
func (m *CSVFeatureManager) FloatType() dtype.Type { return m.floatType }

// Dictionary returns the inferred dictionary, or nil before
// ParseRowAsDictionary.
func (m *CSVFeatureManager) Dictionary() *dictionary.Dictionary { return m.dict }

// ApplyModifiers runs the feature modifiers over fields. A panicking
// modifier is reported as an error.
func (m *CSVFeatureManager) ApplyModifiers(fields []string) ([]string, error) {
	for i, fn := range m.modifiers {
		err := errors.SafeExecute("feature modifier", func() error {
			out, err := fn(fields)
			if err != nil {
				return err
			}
			fields = out
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "modifier %d", i)
		}
	}
	return fields, nil
}

// ParseRowAsDictionary infers the dictionary from a sample row. A field that
// parses as a number becomes a continuous feature of the float type;
// anything else becomes a categorical int32 feature.
func (m *CSVFeatureManager) ParseRowAsDictionary(fields []string) *dictionary.Dictionary {
	d := dictionary.New(len(fields))
	m.categories = make([]map[string]int, len(fields))
	m.levels = make([][]string, len(fields))
	for i, field := range fields {
		if _, err := strconv.ParseFloat(strings.TrimSpace(field), 64); err == nil {
			_ = d.SetFeature(i, dictionary.Feature{Type: m.floatType, Kind: dictionary.Continuous})
			continue
		}
		_ = d.SetFeature(i, dictionary.Feature{Type: dtype.Int32, Kind: dictionary.Categorical})
		m.categories[i] = make(map[string]int)
	}
	m.dict = d
	return d
}

// IsCategorical reports whether column col is categorical.
func (m *CSVFeatureManager) IsCategorical(col int) bool {
	return col >= 0 && col < len(m.categories) && m.categories[col] != nil
}

// Categories returns the levels of categorical column col in index order.
func (m *CSVFeatureManager) Categories(col int) []string {
	if !m.IsCategorical(col) {
		return nil
	}
	out := make([]string, len(m.levels[col]))
	copy(out, m.levels[col])
	return out
}

// ParseRowIn parses fields into row, which must have one slot per column.
// New categorical levels are appended and the dictionary's category count
// updated. An unparsable continuous value is stored as NaN and reported as a
// DataConversionWarning.
func (m *CSVFeatureManager) ParseRowIn(fields []string, row []float64) error {
	if m.dict == nil {
		return errors.NewTableError("ParseRowIn", errors.IncorrectParameter, "dictionary not inferred")
	}
	if len(fields) != m.dict.Len() || len(row) < len(fields) {
		return errors.NewTableErrorf("ParseRowIn", errors.IncorrectNumberOfFeatures,
			"row has %d fields, want %d", len(fields), m.dict.Len())
	}
	for i, field := range fields {
		field = strings.TrimSpace(field)
		if cats := m.categories[i]; cats != nil {
			idx, ok := cats[field]
			if !ok {
				idx = len(m.levels[i])
				cats[field] = idx
				m.levels[i] = append(m.levels[i], field)
				_ = m.dict.SetCategories(i, len(m.levels[i]))
			}
			row[i] = float64(idx)
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			errors.Warn(errors.NewDataConversionWarning("string", m.floatType.String(),
				"column "+strconv.Itoa(i)+": "+strconv.Quote(field)+" is not a number"))
			v = math.NaN()
		}
		row[i] = v
	}
	return nil
}

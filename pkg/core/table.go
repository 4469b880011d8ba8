package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ColumnKind tells how the values of a column are stored.
type ColumnKind int

// Column kinds.
const (
	KindNumeric ColumnKind = iota
	KindText
)

func (k ColumnKind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindText:
		return "text"
	default:
		return fmt.Sprintf("ColumnKind(%d)", int(k))
	}
}

// MissingTokens are the cell values read as missing.
// The set mirrors the defaults of common dataframe readers.
var MissingTokens = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-NaN":     {},
	"-nan":     {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// IsMissingToken reports whether a raw cell value denotes a missing value.
func IsMissingToken(s string) bool {
	_, ok := MissingTokens[s]
	return ok
}

// Column is a single named column of a Table.
//
// Numeric columns keep their values in Floats, with NaN marking a missing
// value. Text columns keep their values in Strings; Valid[i] is false when
// row i is missing.
type Column struct {
	Name    string
	Kind    ColumnKind
	Floats  []float64
	Strings []string
	Valid   []bool
}

// NewNumericColumn creates a numeric column.
func NewNumericColumn(name string, values []float64) Column {
	return Column{Name: name, Kind: KindNumeric, Floats: values}
}

// NewTextColumn creates a text column. A nil valid mask marks every row present.
func NewTextColumn(name string, values []string, valid []bool) Column {
	if valid == nil {
		valid = make([]bool, len(values))
		for i := range valid {
			valid[i] = true
		}
	}
	return Column{Name: name, Kind: KindText, Strings: values, Valid: valid}
}

// Len returns the number of rows in the column.
func (c Column) Len() int {
	if c.Kind == KindNumeric {
		return len(c.Floats)
	}
	return len(c.Strings)
}

// IsMissing reports whether row i holds a missing value.
func (c Column) IsMissing(i int) bool {
	if c.Kind == KindNumeric {
		return math.IsNaN(c.Floats[i])
	}
	return !c.Valid[i]
}

// MissingCount returns the number of missing values.
func (c Column) MissingCount() int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			n++
		}
	}
	return n
}

// AsFloats returns the column as numbers. Text values are parsed; missing
// tokens become NaN. A value that does not parse is an error.
func (c Column) AsFloats() ([]float64, error) {
	if c.Kind == KindNumeric {
		return c.Floats, nil
	}
	out := make([]float64, len(c.Strings))
	for i, s := range c.Strings {
		if !c.Valid[i] || IsMissingToken(strings.TrimSpace(s)) {
			out[i] = math.NaN()
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: value %q is not numeric", c.Name, i+1, s)
		}
		out[i] = f
	}
	return out, nil
}

// AsStrings returns the column as text with its validity mask.
// Numbers are formatted in their shortest exact representation.
func (c Column) AsStrings() ([]string, []bool) {
	if c.Kind == KindText {
		return c.Strings, c.Valid
	}
	out := make([]string, len(c.Floats))
	valid := make([]bool, len(c.Floats))
	for i, f := range c.Floats {
		if math.IsNaN(f) {
			continue
		}
		out[i] = strconv.FormatFloat(f, 'g', -1, 64)
		valid[i] = true
	}
	return out, valid
}

// Table is an in-memory tabular dataset: named columns of equal length.
type Table struct {
	Name    string
	Columns []Column
}

// NewTable creates a table and checks that every column has the same length
// and a unique name.
func NewTable(name string, cols ...Column) (*Table, error) {
	seen := make(map[string]struct{}, len(cols))
	for i, c := range cols {
		if _, dup := seen[c.Name]; dup {
			return nil, fmt.Errorf("table %s: duplicate column %q", name, c.Name)
		}
		seen[c.Name] = struct{}{}
		if i > 0 && c.Len() != cols[0].Len() {
			return nil, fmt.Errorf("table %s: column %q has %d rows, want %d", name, c.Name, c.Len(), cols[0].Len())
		}
	}
	return &Table{Name: name, Columns: cols}, nil
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Len()
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Select returns a table holding only the named columns, in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	cols := make([]Column, 0, len(names))
	var missing []string
	for _, n := range names {
		c, ok := t.Column(n)
		if !ok {
			missing = append(missing, n)
			continue
		}
		cols = append(cols, c)
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Table: t.Name, Columns: missing}
	}
	return &Table{Name: t.Name, Columns: cols}, nil
}

// Drop returns a view of the table without the named column.
// The column data is shared, not copied.
func (t *Table) Drop(name string) (*Table, error) {
	if _, ok := t.Column(name); !ok {
		return nil, &MissingColumnsError{Table: t.Name, Columns: []string{name}}
	}
	cols := make([]Column, 0, len(t.Columns)-1)
	for _, c := range t.Columns {
		if c.Name != name {
			cols = append(cols, c)
		}
	}
	return &Table{Name: t.Name, Columns: cols}, nil
}

// MissingColumnsError is returned when a table lacks required columns.
type MissingColumnsError struct {
	Table   string
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("table %s: missing column(s) %s", e.Table, strings.Join(e.Columns, ", "))
}

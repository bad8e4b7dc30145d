package frame

import (
	"math"
	"strconv"
	"strings"

	apierrors "dataviz-backend/internal/errors"
)

// Kind is the inferred type of a column.
type Kind int

const (
	Numeric Kind = iota
	Categorical
)

func (k Kind) String() string {
	if k == Numeric {
		return "numeric"
	}
	return "categorical"
}

// Column is a named, typed sequence of values.
// Numeric columns keep their data in Floats with NaN marking a missing value;
// categorical columns keep it in Values with Valid[i] == false marking a missing value.
type Column struct {
	Name   string
	Kind   Kind
	Floats []float64
	Values []string
	Valid  []bool
}

// NewNumeric creates a numeric column. NaN entries are missing values.
func NewNumeric(name string, values []float64) *Column {
	return &Column{Name: name, Kind: Numeric, Floats: values}
}

// NewCategorical creates a categorical column. A nil valid slice marks every value present.
func NewCategorical(name string, values []string, valid []bool) *Column {
	if valid == nil {
		valid = make([]bool, len(values))
		for i := range valid {
			valid[i] = true
		}
	}
	return &Column{Name: name, Kind: Categorical, Values: values, Valid: valid}
}

// Len returns the number of values in the column.
func (c *Column) Len() int {
	if c.Kind == Numeric {
		return len(c.Floats)
	}
	return len(c.Values)
}

// IsMissing reports whether row i holds a missing value.
func (c *Column) IsMissing(i int) bool {
	if c.Kind == Numeric {
		return math.IsNaN(c.Floats[i])
	}
	return !c.Valid[i]
}

// Value returns row i as a JSON-friendly value: nil, float64 or string.
func (c *Column) Value(i int) interface{} {
	if c.IsMissing(i) {
		return nil
	}
	if c.Kind == Numeric {
		return JSONFloat(c.Floats[i])
	}
	return c.Values[i]
}

// Key returns a string form of row i that is equal for equal values.
func (c *Column) Key(i int) string {
	if c.IsMissing(i) {
		return "\x00"
	}
	if c.Kind == Numeric {
		return strconv.FormatFloat(c.Floats[i], 'g', -1, 64)
	}
	return c.Values[i]
}

// NonMissing returns the numeric values of the column, skipping missing ones.
func (c *Column) NonMissing() []float64 {
	out := make([]float64, 0, len(c.Floats))
	for _, v := range c.Floats {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Clone returns a deep copy of the column.
func (c *Column) Clone() *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.Kind == Numeric {
		out.Floats = append([]float64(nil), c.Floats...)
	} else {
		out.Values = append([]string(nil), c.Values...)
		out.Valid = append([]bool(nil), c.Valid...)
	}
	return out
}

func (c *Column) subset(rows []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.Kind == Numeric {
		out.Floats = make([]float64, len(rows))
		for i, r := range rows {
			out.Floats[i] = c.Floats[r]
		}
		return out
	}
	out.Values = make([]string, len(rows))
	out.Valid = make([]bool, len(rows))
	for i, r := range rows {
		out.Values[i] = c.Values[r]
		out.Valid[i] = c.Valid[r]
	}
	return out
}

// DataFrame is an ordered set of equally long, uniquely named columns.
type DataFrame struct {
	Columns []*Column
	index   map[string]int
}

// New builds a DataFrame, rejecting duplicate names and ragged columns.
func New(columns ...*Column) (*DataFrame, error) {
	df := &DataFrame{Columns: columns, index: make(map[string]int, len(columns))}
	for i, c := range columns {
		if _, dup := df.index[c.Name]; dup {
			return nil, apierrors.InvalidColumns("duplicate column name", c.Name)
		}
		df.index[c.Name] = i
		if c.Len() != columns[0].Len() {
			return nil, apierrors.InvalidColumns("columns have different lengths", columns[0].Name, c.Name)
		}
	}
	return df, nil
}

// Len returns the row count.
func (df *DataFrame) Len() int {
	if len(df.Columns) == 0 {
		return 0
	}
	return df.Columns[0].Len()
}

// Names returns the column names in order.
func (df *DataFrame) Names() []string {
	names := make([]string, len(df.Columns))
	for i, c := range df.Columns {
		names[i] = c.Name
	}
	return names
}

// Col looks a column up by name.
func (df *DataFrame) Col(name string) (*Column, bool) {
	i, ok := df.index[name]
	if !ok {
		return nil, false
	}
	return df.Columns[i], true
}

// NumericNames returns the names of numeric columns in order.
func (df *DataFrame) NumericNames() []string {
	var names []string
	for _, c := range df.Columns {
		if c.Kind == Numeric {
			names = append(names, c.Name)
		}
	}
	return names
}

// Missing returns the names in want that are not columns of df.
func (df *DataFrame) Missing(want ...string) []string {
	var missing []string
	for _, name := range want {
		if _, ok := df.index[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// NonNumeric returns the names in want that exist but are not numeric.
func (df *DataFrame) NonNumeric(want ...string) []string {
	var bad []string
	for _, name := range want {
		if c, ok := df.Col(name); ok && c.Kind != Numeric {
			bad = append(bad, name)
		}
	}
	return bad
}

// RequireNumeric checks that every name exists and is numeric.
func (df *DataFrame) RequireNumeric(names ...string) error {
	if missing := df.Missing(names...); len(missing) > 0 {
		return apierrors.InvalidColumns("columns not found", missing...)
	}
	if bad := df.NonNumeric(names...); len(bad) > 0 {
		return apierrors.InvalidColumns("columns must be numeric", bad...)
	}
	return nil
}

// Subset returns a new DataFrame holding the given rows, in that order.
func (df *DataFrame) Subset(rows []int) *DataFrame {
	cols := make([]*Column, len(df.Columns))
	for i, c := range df.Columns {
		cols[i] = c.subset(rows)
	}
	return mustNew(cols)
}

// Clone returns a deep copy.
func (df *DataFrame) Clone() *DataFrame {
	cols := make([]*Column, len(df.Columns))
	for i, c := range df.Columns {
		cols[i] = c.Clone()
	}
	return mustNew(cols)
}

// Replace returns a copy of df sharing all columns except the replaced one.
func (df *DataFrame) Replace(col *Column) *DataFrame {
	cols := append([]*Column(nil), df.Columns...)
	if i, ok := df.index[col.Name]; ok {
		cols[i] = col
	}
	return mustNew(cols)
}

// RowKey returns a key identifying the full contents of row i.
func (df *DataFrame) RowKey(i int) string {
	var b strings.Builder
	for _, c := range df.Columns {
		b.WriteString(c.Key(i))
		b.WriteByte('\x1f')
	}
	return b.String()
}

// Records returns rows [0, n) as records. n < 0 means all rows.
func (df *DataFrame) Records(n int) []map[string]interface{} {
	if n < 0 || n > df.Len() {
		n = df.Len()
	}
	records := make([]map[string]interface{}, n)
	for i := 0; i < n; i++ {
		row := make(map[string]interface{}, len(df.Columns))
		for _, c := range df.Columns {
			row[c.Name] = c.Value(i)
		}
		records[i] = row
	}
	return records
}

// ColumnMap returns the frame as column name -> values.
func (df *DataFrame) ColumnMap() map[string][]interface{} {
	out := make(map[string][]interface{}, len(df.Columns))
	for _, c := range df.Columns {
		vals := make([]interface{}, c.Len())
		for i := range vals {
			vals[i] = c.Value(i)
		}
		out[c.Name] = vals
	}
	return out
}

func mustNew(cols []*Column) *DataFrame {
	df, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return df
}

// JSONFloat returns v, or nil when v cannot be encoded as a JSON number.
func JSONFloat(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

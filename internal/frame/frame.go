// Package frame implements the columnar dataframe engine that operation
// transforms are applied against. Frames are immutable: every operation
// returns a new Frame sharing no mutable state with its input, which is what
// makes replaying an operation history reproducible.
package frame

import (
	"fmt"
	"strconv"
	"time"
)

// Kind identifies the physical storage type of a Series.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindString
	KindBool
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	default:
		return "unknown"
	}
}

// TypeCategory is the user-facing classification of a column, used for
// operation parameter validation.
type TypeCategory string

const (
	Numeric TypeCategory = "numeric"
	Text    TypeCategory = "text"
	Date    TypeCategory = "date"
	Boolean TypeCategory = "boolean"
	Unknown TypeCategory = "unknown"
)

// Category maps a storage kind to its type category.
func (k Kind) Category() TypeCategory {
	switch k {
	case KindInt, KindFloat:
		return Numeric
	case KindString:
		return Text
	case KindBool:
		return Boolean
	case KindTime:
		return Date
	default:
		return Unknown
	}
}

// ColumnType pairs a column name with its type category.
type ColumnType struct {
	Name     string       `json:"name"`
	Category TypeCategory `json:"category"`
}

// Schema describes the columns of a frame in declaration order.
type Schema []ColumnType

// Category returns the type category for name, or Unknown if the column
// does not exist.
func (s Schema) Category(name string) TypeCategory {
	for _, c := range s {
		if c.Name == name {
			return c.Category
		}
	}
	return Unknown
}

// Has reports whether the schema contains a column with the given name.
func (s Schema) Has(name string) bool {
	for _, c := range s {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Columns returns the column names in declaration order.
func (s Schema) Columns() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Series is a single named column of homogeneous values.
type Series struct {
	name string
	kind Kind

	ints   []int64
	floats []float64
	strs   []string
	bools  []bool
	times  []time.Time
}

// NewIntSeries creates an int64 column.
func NewIntSeries(name string, vals []int64) Series {
	return Series{name: name, kind: KindInt, ints: vals}
}

// NewFloatSeries creates a float64 column.
func NewFloatSeries(name string, vals []float64) Series {
	return Series{name: name, kind: KindFloat, floats: vals}
}

// NewStringSeries creates a string column.
func NewStringSeries(name string, vals []string) Series {
	return Series{name: name, kind: KindString, strs: vals}
}

// NewBoolSeries creates a bool column.
func NewBoolSeries(name string, vals []bool) Series {
	return Series{name: name, kind: KindBool, bools: vals}
}

// NewTimeSeries creates a time column.
func NewTimeSeries(name string, vals []time.Time) Series {
	return Series{name: name, kind: KindTime, times: vals}
}

// Name returns the column name.
func (s Series) Name() string { return s.name }

// Kind returns the storage kind.
func (s Series) Kind() Kind { return s.kind }

// Len returns the number of values in the column.
func (s Series) Len() int {
	switch s.kind {
	case KindInt:
		return len(s.ints)
	case KindFloat:
		return len(s.floats)
	case KindString:
		return len(s.strs)
	case KindBool:
		return len(s.bools)
	case KindTime:
		return len(s.times)
	default:
		return 0
	}
}

// Value returns the value at row i as an interface value. Ints are returned
// as int64, floats as float64, so expression environments see stable types.
func (s Series) Value(i int) any {
	switch s.kind {
	case KindInt:
		return s.ints[i]
	case KindFloat:
		return s.floats[i]
	case KindString:
		return s.strs[i]
	case KindBool:
		return s.bools[i]
	case KindTime:
		return s.times[i]
	default:
		return nil
	}
}

// Float returns the value at row i coerced to float64. The second return is
// false when the column is not numeric.
func (s Series) Float(i int) (float64, bool) {
	switch s.kind {
	case KindInt:
		return float64(s.ints[i]), true
	case KindFloat:
		return s.floats[i], true
	default:
		return 0, false
	}
}

// rename returns a copy of the series under a new name. The backing arrays
// are shared; series data is never mutated in place.
func (s Series) rename(name string) Series {
	s.name = name
	return s
}

// take returns a new series containing the rows at idx, in order.
func (s Series) take(idx []int) Series {
	out := Series{name: s.name, kind: s.kind}
	switch s.kind {
	case KindInt:
		out.ints = make([]int64, len(idx))
		for i, j := range idx {
			out.ints[i] = s.ints[j]
		}
	case KindFloat:
		out.floats = make([]float64, len(idx))
		for i, j := range idx {
			out.floats[i] = s.floats[j]
		}
	case KindString:
		out.strs = make([]string, len(idx))
		for i, j := range idx {
			out.strs[i] = s.strs[j]
		}
	case KindBool:
		out.bools = make([]bool, len(idx))
		for i, j := range idx {
			out.bools[i] = s.bools[j]
		}
	case KindTime:
		out.times = make([]time.Time, len(idx))
		for i, j := range idx {
			out.times[i] = s.times[j]
		}
	}
	return out
}

// Frame is an immutable 2-dimensional table of named columns.
type Frame struct {
	cols  []Series
	index map[string]int
}

// New creates a frame from the given columns. All columns must have the same
// length and names must be unique.
func New(cols ...Series) (*Frame, error) {
	f := &Frame{index: make(map[string]int, len(cols))}
	for _, c := range cols {
		if c.name == "" {
			return nil, errInternal("column with empty name")
		}
		if _, dup := f.index[c.name]; dup {
			return nil, errInternal("duplicate column name %q", c.name)
		}
		if len(f.cols) > 0 && c.Len() != f.cols[0].Len() {
			return nil, errInternal("column %q has %d rows, want %d", c.name, c.Len(), f.cols[0].Len())
		}
		f.index[c.name] = len(f.cols)
		f.cols = append(f.cols, c)
	}
	return f, nil
}

// mustNew is for internal construction from already-validated columns.
func mustNew(cols ...Series) *Frame {
	f, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return f
}

// NumRows returns the row count.
func (f *Frame) NumRows() int {
	if len(f.cols) == 0 {
		return 0
	}
	return f.cols[0].Len()
}

// NumCols returns the column count.
func (f *Frame) NumCols() int { return len(f.cols) }

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.name
	}
	return names
}

// Column returns the named column.
func (f *Frame) Column(name string) (Series, bool) {
	i, ok := f.index[name]
	if !ok {
		return Series{}, false
	}
	return f.cols[i], true
}

// Schema derives the frame's schema.
func (f *Frame) Schema() Schema {
	s := make(Schema, len(f.cols))
	for i, c := range f.cols {
		s[i] = ColumnType{Name: c.name, Category: c.kind.Category()}
	}
	return s
}

// Row returns row i as a name -> value map, suitable for use as an
// expression environment.
func (f *Frame) Row(i int) map[string]any {
	row := make(map[string]any, len(f.cols))
	for _, c := range f.cols {
		row[c.name] = c.Value(i)
	}
	return row
}

// take returns a new frame containing the rows at idx, in order.
func (f *Frame) take(idx []int) *Frame {
	cols := make([]Series, len(f.cols))
	for i, c := range f.cols {
		cols[i] = c.take(idx)
	}
	return mustNew(cols...)
}

// Head returns a frame with at most n leading rows.
func (f *Frame) Head(n int) *Frame {
	if n >= f.NumRows() {
		return f
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return f.take(idx)
}

// String summarizes the frame for logs and debugging.
func (f *Frame) String() string {
	return fmt.Sprintf("Frame(%d rows x %d cols)", f.NumRows(), f.NumCols())
}

// FormatValue renders a cell value for display.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case string:
		return x
	case time.Time:
		return x.Format("2006-01-02")
	default:
		return fmt.Sprintf("%v", x)
	}
}

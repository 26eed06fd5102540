package frame

import (
	"strconv"
	"time"

	"github.com/expr-lang/expr"
)

// Rename returns the frame with column old renamed to new.
func (f *Frame) Rename(old, new string) (*Frame, *EngineError) {
	if _, ok := f.Column(old); !ok {
		return nil, errColumnNotFound(old)
	}
	if _, exists := f.Column(new); exists && new != old {
		return nil, errInvalidOperator("column %q already exists", new)
	}
	cols := make([]Series, len(f.cols))
	for i, c := range f.cols {
		if c.name == old {
			c = c.rename(new)
		}
		cols[i] = c
	}
	return mustNew(cols...), nil
}

// Drop returns the frame without the named columns.
func (f *Frame) Drop(names ...string) (*Frame, *EngineError) {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := f.Column(name); !ok {
			return nil, errColumnNotFound(name)
		}
		drop[name] = true
	}
	var cols []Series
	for _, c := range f.cols {
		if !drop[c.name] {
			cols = append(cols, c)
		}
	}
	return mustNew(cols...), nil
}

// Cast converts a column to the target category. Supported conversions are
// text -> numeric/date/boolean and any kind -> text.
func (f *Frame) Cast(name string, to TypeCategory) (*Frame, *EngineError) {
	col, ok := f.Column(name)
	if !ok {
		return nil, errColumnNotFound(name)
	}
	if col.kind.Category() == to {
		return f, nil
	}

	var out Series
	switch to {
	case Text:
		vals := make([]string, col.Len())
		for i := range vals {
			vals[i] = FormatValue(col.Value(i))
		}
		out = NewStringSeries(name, vals)
	case Numeric:
		if col.kind != KindString {
			return nil, errTypeMismatch("cannot cast %s column %q to numeric", col.kind.Category(), name)
		}
		vals := make([]float64, col.Len())
		for i, s := range col.strs {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, errTypeMismatch("value %q in column %q is not numeric", s, name)
			}
			vals[i] = v
		}
		out = NewFloatSeries(name, vals)
	case Boolean:
		if col.kind != KindString {
			return nil, errTypeMismatch("cannot cast %s column %q to boolean", col.kind.Category(), name)
		}
		vals := make([]bool, col.Len())
		for i, s := range col.strs {
			v, err := strconv.ParseBool(s)
			if err != nil {
				return nil, errTypeMismatch("value %q in column %q is not boolean", s, name)
			}
			vals[i] = v
		}
		out = NewBoolSeries(name, vals)
	case Date:
		if col.kind != KindString {
			return nil, errTypeMismatch("cannot cast %s column %q to date", col.kind.Category(), name)
		}
		vals := make([]time.Time, col.Len())
		for i, s := range col.strs {
			v, err := parseTimeValue(s)
			if err != nil {
				return nil, errTypeMismatch("value %q in column %q is not a date", s, name)
			}
			vals[i] = v
		}
		out = NewTimeSeries(name, vals)
	default:
		return nil, errInvalidOperator("cannot cast to %q", to)
	}

	cols := make([]Series, len(f.cols))
	for i, c := range f.cols {
		if c.name == name {
			c = out
		}
		cols[i] = c
	}
	return mustNew(cols...), nil
}

// Derive appends a column computed per row from an expression over the
// existing columns. The result kind is inferred from the evaluated values;
// mixed int and float results unify to float.
func (f *Frame) Derive(name, src string) (*Frame, *EngineError) {
	if _, exists := f.Column(name); exists {
		return nil, errInvalidOperator("column %q already exists", name)
	}
	program, err := expr.Compile(src,
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, errInvalidOperator("cannot compile expression %q: %v", src, err)
	}

	n := f.NumRows()
	vals := make([]any, n)
	allInt, anyFloat := true, false
	for i := 0; i < n; i++ {
		out, rerr := expr.Run(program, f.Row(i))
		if rerr != nil {
			return nil, errTypeMismatch("expression %q failed on row %d: %v", src, i, rerr)
		}
		switch x := out.(type) {
		case int:
			out = int64(x)
		case int64:
		case float64:
			allInt = false
			anyFloat = true
		default:
			allInt = false
		}
		vals[i] = out
	}

	var col Series
	switch {
	case n == 0:
		col = NewFloatSeries(name, nil)
	case allInt:
		ints := make([]int64, n)
		for i, v := range vals {
			ints[i] = v.(int64)
		}
		col = NewIntSeries(name, ints)
	case anyFloat || isNumericSlice(vals):
		floats := make([]float64, n)
		for i, v := range vals {
			switch x := v.(type) {
			case int64:
				floats[i] = float64(x)
			case float64:
				floats[i] = x
			default:
				return nil, errTypeMismatch("expression %q returned mixed types (%T)", src, v)
			}
		}
		col = NewFloatSeries(name, floats)
	default:
		switch vals[0].(type) {
		case bool:
			bools := make([]bool, n)
			for i, v := range vals {
				b, ok := v.(bool)
				if !ok {
					return nil, errTypeMismatch("expression %q returned mixed types (%T)", src, v)
				}
				bools[i] = b
			}
			col = NewBoolSeries(name, bools)
		case string:
			strs := make([]string, n)
			for i, v := range vals {
				s, ok := v.(string)
				if !ok {
					return nil, errTypeMismatch("expression %q returned mixed types (%T)", src, v)
				}
				strs[i] = s
			}
			col = NewStringSeries(name, strs)
		default:
			return nil, errTypeMismatch("expression %q returned unsupported type %T", src, vals[0])
		}
	}

	cols := make([]Series, 0, len(f.cols)+1)
	cols = append(cols, f.cols...)
	cols = append(cols, col)
	return mustNew(cols...), nil
}

func isNumericSlice(vals []any) bool {
	for _, v := range vals {
		switch v.(type) {
		case int64, float64:
		default:
			return false
		}
	}
	return len(vals) > 0
}

// timeLayouts are the date formats accepted for parsing, most specific first.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimeValue(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

package frame

import (
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// CompareOp is a structured filter operator.
type CompareOp string

const (
	OpEq       CompareOp = "=="
	OpNe       CompareOp = "!="
	OpGt       CompareOp = ">"
	OpGe       CompareOp = ">="
	OpLt       CompareOp = "<"
	OpLe       CompareOp = "<="
	OpContains CompareOp = "contains"
)

// ValidCompareOp reports whether op is a known operator.
func ValidCompareOp(op CompareOp) bool {
	switch op {
	case OpEq, OpNe, OpGt, OpGe, OpLt, OpLe, OpContains:
		return true
	default:
		return false
	}
}

// OperatorValidFor reports whether op makes sense against a column of the
// given category. Ordering operators require numeric or date columns;
// contains requires text.
func OperatorValidFor(op CompareOp, cat TypeCategory) bool {
	switch op {
	case OpEq, OpNe:
		return cat != Unknown
	case OpGt, OpGe, OpLt, OpLe:
		return cat == Numeric || cat == Date
	case OpContains:
		return cat == Text
	default:
		return false
	}
}

// Filter returns the rows where column <op> value holds. The value is given
// as its textual form and coerced to the column's kind; a value that cannot
// be coerced is a TypeMismatch.
func (f *Frame) Filter(column string, op CompareOp, value string) (*Frame, *EngineError) {
	col, ok := f.Column(column)
	if !ok {
		return nil, errColumnNotFound(column)
	}
	if !ValidCompareOp(op) {
		return nil, errInvalidOperator("unknown operator %q", op)
	}
	if !OperatorValidFor(op, col.kind.Category()) {
		return nil, errInvalidOperator("operator %q not valid for %s column %q", op, col.kind.Category(), column)
	}

	match, eerr := compileMatch(col, op, value)
	if eerr != nil {
		return nil, eerr
	}

	var idx []int
	for i := 0; i < col.Len(); i++ {
		if match(i) {
			idx = append(idx, i)
		}
	}
	return f.take(idx), nil
}

// compileMatch builds a per-row predicate for a structured comparison.
func compileMatch(col Series, op CompareOp, value string) (func(int) bool, *EngineError) {
	switch col.kind {
	case KindInt, KindFloat:
		want, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, errTypeMismatch("cannot compare numeric column %q to %q", col.name, value)
		}
		return func(i int) bool {
			got, _ := col.Float(i)
			return compareFloat(got, op, want)
		}, nil
	case KindString:
		return func(i int) bool {
			got := col.strs[i]
			switch op {
			case OpEq:
				return got == value
			case OpNe:
				return got != value
			case OpContains:
				return strings.Contains(got, value)
			default:
				return false
			}
		}, nil
	case KindBool:
		want, err := strconv.ParseBool(value)
		if err != nil {
			return nil, errTypeMismatch("cannot compare boolean column %q to %q", col.name, value)
		}
		return func(i int) bool {
			got := col.bools[i]
			if op == OpEq {
				return got == want
			}
			return got != want
		}, nil
	case KindTime:
		want, err := parseTimeValue(value)
		if err != nil {
			return nil, errTypeMismatch("cannot compare date column %q to %q", col.name, value)
		}
		return func(i int) bool {
			got := col.times[i]
			switch op {
			case OpEq:
				return got.Equal(want)
			case OpNe:
				return !got.Equal(want)
			case OpGt:
				return got.After(want)
			case OpGe:
				return !got.Before(want)
			case OpLt:
				return got.Before(want)
			case OpLe:
				return !got.After(want)
			default:
				return false
			}
		}, nil
	default:
		return nil, errTypeMismatch("column %q has unsupported kind", col.name)
	}
}

func compareFloat(got float64, op CompareOp, want float64) bool {
	switch op {
	case OpEq:
		return got == want
	case OpNe:
		return got != want
	case OpGt:
		return got > want
	case OpGe:
		return got >= want
	case OpLt:
		return got < want
	case OpLe:
		return got <= want
	default:
		return false
	}
}

// FilterExpr returns the rows where the boolean expression holds. Column
// names are bound as variables in the expression environment.
func (f *Frame) FilterExpr(src string) (*Frame, *EngineError) {
	program, eerr := compileBoolProgram(src)
	if eerr != nil {
		return nil, eerr
	}

	var idx []int
	for i := 0; i < f.NumRows(); i++ {
		out, err := expr.Run(program, f.Row(i))
		if err != nil {
			return nil, errTypeMismatch("expression %q failed on row %d: %v", src, i, err)
		}
		keep, ok := out.(bool)
		if !ok {
			return nil, errTypeMismatch("expression %q returned %T, want bool", src, out)
		}
		if keep {
			idx = append(idx, i)
		}
	}
	return f.take(idx), nil
}

// compileBoolProgram compiles a predicate expression. Undefined variables
// are allowed at compile time so that column references are resolved against
// the row environment at run time.
func compileBoolProgram(src string) (*vm.Program, *EngineError) {
	program, err := expr.Compile(src,
		expr.Env(map[string]any{}),
		expr.AsBool(),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, errInvalidOperator("cannot compile expression %q: %v", src, err)
	}
	return program, nil
}

// Search keeps the rows where any text column contains the query,
// case-insensitively.
func (f *Frame) Search(query string) (*Frame, *EngineError) {
	needle := strings.ToLower(query)
	var textCols []Series
	for _, c := range f.cols {
		if c.kind == KindString {
			textCols = append(textCols, c)
		}
	}

	var idx []int
	for i := 0; i < f.NumRows(); i++ {
		for _, c := range textCols {
			if strings.Contains(strings.ToLower(c.strs[i]), needle) {
				idx = append(idx, i)
				break
			}
		}
	}
	return f.take(idx), nil
}

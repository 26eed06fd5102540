package frame

import (
	"fmt"
	"math"
	"strings"
)

// AggFunc names an aggregation function.
type AggFunc string

const (
	AggSum   AggFunc = "sum"
	AggMean  AggFunc = "mean"
	AggMin   AggFunc = "min"
	AggMax   AggFunc = "max"
	AggCount AggFunc = "count"
)

// ValidAggFunc reports whether fn is a known aggregation function.
func ValidAggFunc(fn AggFunc) bool {
	switch fn {
	case AggSum, AggMean, AggMin, AggMax, AggCount:
		return true
	default:
		return false
	}
}

// Aggregation pairs a value column with the function applied to it.
type Aggregation struct {
	Column string  `json:"column"`
	Func   AggFunc `json:"func"`
}

// ResultName is the output column name for an aggregation.
func (a Aggregation) ResultName() string {
	return fmt.Sprintf("%s_%s", a.Column, a.Func)
}

// accumulator folds float values for one group.
type accumulator struct {
	sum   float64
	min   float64
	max   float64
	count int64
}

func (a *accumulator) add(v float64) {
	if a.count == 0 {
		a.min, a.max = v, v
	} else {
		a.min = math.Min(a.min, v)
		a.max = math.Max(a.max, v)
	}
	a.sum += v
	a.count++
}

func (a *accumulator) result(fn AggFunc) float64 {
	switch fn {
	case AggSum:
		return a.sum
	case AggMean:
		if a.count == 0 {
			return 0
		}
		return a.sum / float64(a.count)
	case AggMin:
		return a.min
	case AggMax:
		return a.max
	case AggCount:
		return float64(a.count)
	default:
		return 0
	}
}

// GroupBy groups rows by the given columns and computes the aggregations per
// group. Groups appear in order of first occurrence. All aggregation columns
// except count targets must be numeric.
func (f *Frame) GroupBy(groupCols []string, aggs []Aggregation) (*Frame, *EngineError) {
	if len(groupCols) == 0 {
		return nil, errInvalidOperator("group by requires at least one grouping column")
	}
	if len(aggs) == 0 {
		return nil, errInvalidOperator("group by requires at least one aggregation")
	}

	keyCols := make([]Series, len(groupCols))
	for i, name := range groupCols {
		col, ok := f.Column(name)
		if !ok {
			return nil, errColumnNotFound(name)
		}
		keyCols[i] = col
	}

	valueCols := make([]Series, len(aggs))
	for i, agg := range aggs {
		col, ok := f.Column(agg.Column)
		if !ok {
			return nil, errColumnNotFound(agg.Column)
		}
		if !ValidAggFunc(agg.Func) {
			return nil, errInvalidOperator("unknown aggregation function %q", agg.Func)
		}
		if agg.Func != AggCount && col.kind.Category() != Numeric {
			return nil, errTypeMismatch("cannot %s non-numeric column %q", agg.Func, agg.Column)
		}
		valueCols[i] = col
	}

	type group struct {
		firstRow int
		accs     []accumulator
	}
	groups := make(map[string]*group)
	var order []string

	for i := 0; i < f.NumRows(); i++ {
		key := groupKey(keyCols, i)
		g, ok := groups[key]
		if !ok {
			g = &group{firstRow: i, accs: make([]accumulator, len(aggs))}
			groups[key] = g
			order = append(order, key)
		}
		for j := range aggs {
			v, numeric := valueCols[j].Float(i)
			if !numeric {
				// count of a non-numeric column still counts rows
				v = 0
			}
			g.accs[j].add(v)
		}
	}

	// Group key columns keep the values from each group's first row.
	firstRows := make([]int, len(order))
	for i, key := range order {
		firstRows[i] = groups[key].firstRow
	}
	out := make([]Series, 0, len(groupCols)+len(aggs))
	for _, col := range keyCols {
		out = append(out, col.take(firstRows))
	}
	for j, agg := range aggs {
		vals := make([]float64, len(order))
		for i, key := range order {
			vals[i] = groups[key].accs[j].result(agg.Func)
		}
		out = append(out, NewFloatSeries(agg.ResultName(), vals))
	}

	result, err := New(out...)
	if err != nil {
		return nil, errInternal("group by produced invalid frame: %v", err)
	}
	return result, nil
}

// groupKey builds a composite key from the key columns at row i. The unit
// separator keeps distinct tuples from colliding.
func groupKey(cols []Series, i int) string {
	parts := make([]string, len(cols))
	for j, c := range cols {
		parts[j] = FormatValue(c.Value(i))
	}
	return strings.Join(parts, "\x1f")
}

// Pivot reshapes the frame: one row per distinct index value, one column per
// distinct pivot-column value, cells aggregated from the value column.
func (f *Frame) Pivot(index, column, value string, fn AggFunc) (*Frame, *EngineError) {
	idxCol, ok := f.Column(index)
	if !ok {
		return nil, errColumnNotFound(index)
	}
	pivCol, ok := f.Column(column)
	if !ok {
		return nil, errColumnNotFound(column)
	}
	valCol, ok := f.Column(value)
	if !ok {
		return nil, errColumnNotFound(value)
	}
	if !ValidAggFunc(fn) {
		return nil, errInvalidOperator("unknown aggregation function %q", fn)
	}
	if fn != AggCount && valCol.kind.Category() != Numeric {
		return nil, errTypeMismatch("cannot %s non-numeric column %q", fn, value)
	}

	var rowOrder, colOrder []string
	rowPos := make(map[string]int)
	colPos := make(map[string]int)
	cells := make(map[[2]int]*accumulator)

	for i := 0; i < f.NumRows(); i++ {
		rk := FormatValue(idxCol.Value(i))
		ck := FormatValue(pivCol.Value(i))
		ri, ok := rowPos[rk]
		if !ok {
			ri = len(rowOrder)
			rowPos[rk] = ri
			rowOrder = append(rowOrder, rk)
		}
		ci, ok := colPos[ck]
		if !ok {
			ci = len(colOrder)
			colPos[ck] = ci
			colOrder = append(colOrder, ck)
		}
		acc, ok := cells[[2]int{ri, ci}]
		if !ok {
			acc = &accumulator{}
			cells[[2]int{ri, ci}] = acc
		}
		v, _ := valCol.Float(i)
		acc.add(v)
	}

	out := make([]Series, 0, 1+len(colOrder))
	out = append(out, NewStringSeries(index, rowOrder))
	for ci, name := range colOrder {
		vals := make([]float64, len(rowOrder))
		for ri := range rowOrder {
			if acc, ok := cells[[2]int{ri, ci}]; ok {
				vals[ri] = acc.result(fn)
			}
		}
		out = append(out, NewFloatSeries(name, vals))
	}

	result, err := New(out...)
	if err != nil {
		return nil, errInternal("pivot produced invalid frame: %v", err)
	}
	return result, nil
}

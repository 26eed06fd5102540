package op

import (
	"fmt"
	"strings"

	"github.com/siftdata/sift/internal/frame"
)

// FilterParams keeps rows matching a comparison. Either the structured
// triple (Column, Op, Value) or a free-form boolean Expr is set, never both.
type FilterParams struct {
	Column string          `json:"column,omitempty"`
	Op     frame.CompareOp `json:"op,omitempty"`
	Value  string          `json:"value,omitempty"`
	Expr   string          `json:"expr,omitempty"`
}

func (p FilterParams) Kind() Kind { return KindFilter }

func (p FilterParams) Label() string {
	if p.Expr != "" {
		return fmt.Sprintf("filter %s", p.Expr)
	}
	return fmt.Sprintf("filter %s %s %s", p.Column, p.Op, p.Value)
}

func (p FilterParams) Validate(schema frame.Schema) *ValidationError {
	if p.Expr != "" {
		if p.Column != "" || p.Op != "" || p.Value != "" {
			return validationErrorf("filter accepts either an expression or column/op/value, not both")
		}
		return nil
	}
	if p.Column == "" {
		return validationErrorf("filter requires a column")
	}
	if !schema.Has(p.Column) {
		return validationErrorf("filter column %q does not exist", p.Column)
	}
	if !frame.ValidCompareOp(p.Op) {
		return validationErrorf("filter operator %q is not valid", p.Op)
	}
	if cat := schema.Category(p.Column); !frame.OperatorValidFor(p.Op, cat) {
		return validationErrorf("operator %q is not valid for %s column %q", p.Op, cat, p.Column)
	}
	return nil
}

func (p FilterParams) apply(f *frame.Frame) (*frame.Frame, *frame.EngineError) {
	if p.Expr != "" {
		return f.FilterExpr(p.Expr)
	}
	return f.Filter(p.Column, p.Op, p.Value)
}

// SearchParams keeps rows where any text column contains the query.
type SearchParams struct {
	Query string `json:"query"`
}

func (p SearchParams) Kind() Kind { return KindSearch }

func (p SearchParams) Label() string {
	return fmt.Sprintf("search %q", p.Query)
}

func (p SearchParams) Validate(frame.Schema) *ValidationError {
	if p.Query == "" {
		return validationErrorf("search requires a query")
	}
	return nil
}

func (p SearchParams) apply(f *frame.Frame) (*frame.Frame, *frame.EngineError) {
	return f.Search(p.Query)
}

// AggregateParams groups rows and aggregates value columns.
type AggregateParams struct {
	GroupBy []string            `json:"group_by"`
	Aggs    []frame.Aggregation `json:"aggs"`
}

func (p AggregateParams) Kind() Kind { return KindAggregate }

func (p AggregateParams) Label() string {
	parts := make([]string, len(p.Aggs))
	for i, a := range p.Aggs {
		parts[i] = fmt.Sprintf("%s(%s)", a.Func, a.Column)
	}
	return fmt.Sprintf("agg %s by %s", strings.Join(parts, ", "), strings.Join(p.GroupBy, ", "))
}

func (p AggregateParams) Validate(schema frame.Schema) *ValidationError {
	if len(p.GroupBy) == 0 {
		return validationErrorf("aggregate requires at least one group-by column")
	}
	if len(p.Aggs) == 0 {
		return validationErrorf("aggregate requires at least one aggregation")
	}
	for _, name := range p.GroupBy {
		if !schema.Has(name) {
			return validationErrorf("group-by column %q does not exist", name)
		}
	}
	for _, a := range p.Aggs {
		if !schema.Has(a.Column) {
			return validationErrorf("aggregation column %q does not exist", a.Column)
		}
		if !frame.ValidAggFunc(a.Func) {
			return validationErrorf("aggregation function %q is not valid", a.Func)
		}
		if a.Func != frame.AggCount && schema.Category(a.Column) != frame.Numeric {
			return validationErrorf("cannot %s non-numeric column %q", a.Func, a.Column)
		}
	}
	return nil
}

func (p AggregateParams) apply(f *frame.Frame) (*frame.Frame, *frame.EngineError) {
	return f.GroupBy(p.GroupBy, p.Aggs)
}

// PivotParams reshapes the frame around an index and a pivot column.
type PivotParams struct {
	Index  string        `json:"index"`
	Column string        `json:"column"`
	Value  string        `json:"value"`
	Func   frame.AggFunc `json:"func"`
}

func (p PivotParams) Kind() Kind { return KindPivot }

func (p PivotParams) Label() string {
	return fmt.Sprintf("pivot %s x %s -> %s(%s)", p.Index, p.Column, p.Func, p.Value)
}

func (p PivotParams) Validate(schema frame.Schema) *ValidationError {
	for _, name := range []string{p.Index, p.Column, p.Value} {
		if name == "" {
			return validationErrorf("pivot requires index, column, and value columns")
		}
		if !schema.Has(name) {
			return validationErrorf("pivot column %q does not exist", name)
		}
	}
	if !frame.ValidAggFunc(p.Func) {
		return validationErrorf("aggregation function %q is not valid", p.Func)
	}
	if p.Func != frame.AggCount && schema.Category(p.Value) != frame.Numeric {
		return validationErrorf("cannot %s non-numeric column %q", p.Func, p.Value)
	}
	return nil
}

func (p PivotParams) apply(f *frame.Frame) (*frame.Frame, *frame.EngineError) {
	return f.Pivot(p.Index, p.Column, p.Value, p.Func)
}

// JoinParams joins the session frame with a second dataset. Right holds the
// loaded right-hand frame; Path records where it came from so a saved
// analysis can reload it.
type JoinParams struct {
	Path     string        `json:"path"`
	LeftKey  string        `json:"left_key"`
	RightKey string        `json:"right_key"`
	How      frame.JoinHow `json:"how"`

	Right *frame.Frame `json:"-"`
}

func (p JoinParams) Kind() Kind { return KindJoin }

func (p JoinParams) Label() string {
	return fmt.Sprintf("%s join %s on %s=%s", p.How, p.Path, p.LeftKey, p.RightKey)
}

func (p JoinParams) Validate(schema frame.Schema) *ValidationError {
	if !frame.ValidJoinHow(p.How) {
		return validationErrorf("join type %q is not valid", p.How)
	}
	if p.LeftKey == "" || p.RightKey == "" {
		return validationErrorf("join requires left and right key columns")
	}
	if !schema.Has(p.LeftKey) {
		return validationErrorf("join key %q does not exist", p.LeftKey)
	}
	if p.Right == nil {
		return validationErrorf("join requires a loaded right-hand dataset")
	}
	if !p.Right.Schema().Has(p.RightKey) {
		return validationErrorf("join key %q does not exist in %s", p.RightKey, p.Path)
	}
	return nil
}

func (p JoinParams) apply(f *frame.Frame) (*frame.Frame, *frame.EngineError) {
	return f.Join(p.Right, p.LeftKey, p.RightKey, p.How)
}

// SortParams reorders rows by one or more keys.
type SortParams struct {
	Keys []frame.SortKey `json:"keys"`
}

func (p SortParams) Kind() Kind { return KindSort }

func (p SortParams) Label() string {
	parts := make([]string, len(p.Keys))
	for i, k := range p.Keys {
		dir := "asc"
		if k.Desc {
			dir = "desc"
		}
		parts[i] = k.Column + " " + dir
	}
	return "sort " + strings.Join(parts, ", ")
}

func (p SortParams) Validate(schema frame.Schema) *ValidationError {
	if len(p.Keys) == 0 {
		return validationErrorf("sort requires at least one key")
	}
	for _, k := range p.Keys {
		if !schema.Has(k.Column) {
			return validationErrorf("sort column %q does not exist", k.Column)
		}
	}
	return nil
}

func (p SortParams) apply(f *frame.Frame) (*frame.Frame, *frame.EngineError) {
	return f.Sort(p.Keys)
}

// ColumnEditAction selects the column edit to perform.
type ColumnEditAction string

const (
	EditRename ColumnEditAction = "rename"
	EditDrop   ColumnEditAction = "drop"
	EditCast   ColumnEditAction = "cast"
	EditDerive ColumnEditAction = "derive"
)

// ColumnEditParams renames, drops, casts, or derives a column. Derive and
// cast change the schema, so the engine replays the full history after them.
type ColumnEditParams struct {
	Action ColumnEditAction `json:"action"`
	Column string           `json:"column"`
	To     string           `json:"to,omitempty"`   // rename target or cast category
	Expr   string           `json:"expr,omitempty"` // derive expression
}

func (p ColumnEditParams) Kind() Kind { return KindColumnEdit }

func (p ColumnEditParams) Label() string {
	switch p.Action {
	case EditRename:
		return fmt.Sprintf("rename %s -> %s", p.Column, p.To)
	case EditDrop:
		return "drop " + p.Column
	case EditCast:
		return fmt.Sprintf("cast %s to %s", p.Column, p.To)
	case EditDerive:
		return fmt.Sprintf("derive %s = %s", p.Column, p.Expr)
	default:
		return "edit " + p.Column
	}
}

func (p ColumnEditParams) Validate(schema frame.Schema) *ValidationError {
	if p.Column == "" {
		return validationErrorf("column edit requires a column")
	}
	switch p.Action {
	case EditRename:
		if !schema.Has(p.Column) {
			return validationErrorf("column %q does not exist", p.Column)
		}
		if p.To == "" {
			return validationErrorf("rename requires a target name")
		}
	case EditDrop:
		if !schema.Has(p.Column) {
			return validationErrorf("column %q does not exist", p.Column)
		}
	case EditCast:
		if !schema.Has(p.Column) {
			return validationErrorf("column %q does not exist", p.Column)
		}
		switch frame.TypeCategory(p.To) {
		case frame.Numeric, frame.Text, frame.Date, frame.Boolean:
		default:
			return validationErrorf("cast target %q is not a type category", p.To)
		}
	case EditDerive:
		if p.Expr == "" {
			return validationErrorf("derive requires an expression")
		}
		if schema.Has(p.Column) {
			return validationErrorf("column %q already exists", p.Column)
		}
	default:
		return validationErrorf("column edit action %q is not valid", p.Action)
	}
	return nil
}

func (p ColumnEditParams) apply(f *frame.Frame) (*frame.Frame, *frame.EngineError) {
	switch p.Action {
	case EditRename:
		return f.Rename(p.Column, p.To)
	case EditDrop:
		return f.Drop(p.Column)
	case EditCast:
		return f.Cast(p.Column, frame.TypeCategory(p.To))
	case EditDerive:
		return f.Derive(p.Column, p.Expr)
	default:
		return nil, &frame.EngineError{Kind: frame.InvalidOperator, Message: "unknown column edit action"}
	}
}

package frame

import (
	"testing"
)

func sampleFrame(t *testing.T) *Frame {
	t.Helper()
	f, err := New(
		NewStringSeries("Name", []string{"Alice", "Bob", "Carol", "Dan"}),
		NewIntSeries("Age", []int64{25, 40, 31, 40}),
		NewFloatSeries("Fare", []float64{7.25, 71.28, 8.05, 13.0}),
		NewStringSeries("City", []string{"Oslo", "Lima", "Oslo", "Kyiv"}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

func TestNewRejectsMismatchedLengths(t *testing.T) {
	_, err := New(
		NewIntSeries("a", []int64{1, 2}),
		NewIntSeries("b", []int64{1}),
	)
	if err == nil {
		t.Fatal("expected error for mismatched column lengths")
	}
}

func TestNewRejectsDuplicateNames(t *testing.T) {
	_, err := New(
		NewIntSeries("a", []int64{1}),
		NewIntSeries("a", []int64{2}),
	)
	if err == nil {
		t.Fatal("expected error for duplicate column names")
	}
}

func TestSchemaCategories(t *testing.T) {
	f := sampleFrame(t)
	s := f.Schema()
	want := map[string]TypeCategory{
		"Name": Text,
		"Age":  Numeric,
		"Fare": Numeric,
		"City": Text,
	}
	for name, cat := range want {
		if got := s.Category(name); got != cat {
			t.Errorf("Category(%q) = %q, want %q", name, got, cat)
		}
	}
	if got := s.Category("Missing"); got != Unknown {
		t.Errorf("Category(Missing) = %q, want Unknown", got)
	}
}

func TestFilterNumeric(t *testing.T) {
	f := sampleFrame(t)
	got, eerr := f.Filter("Age", OpGt, "30")
	if eerr != nil {
		t.Fatalf("Filter: %v", eerr)
	}
	if got.NumRows() != 3 {
		t.Fatalf("NumRows = %d, want 3", got.NumRows())
	}
	col, _ := got.Column("Name")
	if col.Value(0) != "Bob" || col.Value(1) != "Carol" {
		t.Errorf("unexpected rows: %v, %v", col.Value(0), col.Value(1))
	}
}

func TestFilterTypeMismatch(t *testing.T) {
	f := sampleFrame(t)
	_, eerr := f.Filter("Fare", OpLt, "abc")
	if eerr == nil {
		t.Fatal("expected error")
	}
	if eerr.Kind != TypeMismatch {
		t.Errorf("Kind = %q, want TypeMismatch", eerr.Kind)
	}
}

func TestFilterColumnNotFound(t *testing.T) {
	f := sampleFrame(t)
	_, eerr := f.Filter("Nope", OpEq, "1")
	if eerr == nil || eerr.Kind != ColumnNotFound {
		t.Fatalf("got %v, want ColumnNotFound", eerr)
	}
}

func TestFilterInvalidOperator(t *testing.T) {
	f := sampleFrame(t)
	if _, eerr := f.Filter("Name", OpGt, "x"); eerr == nil || eerr.Kind != InvalidOperator {
		t.Fatalf("got %v, want InvalidOperator", eerr)
	}
	if _, eerr := f.Filter("Age", OpContains, "1"); eerr == nil || eerr.Kind != InvalidOperator {
		t.Fatalf("got %v, want InvalidOperator", eerr)
	}
}

func TestFilterString(t *testing.T) {
	f := sampleFrame(t)
	got, eerr := f.Filter("City", OpEq, "Oslo")
	if eerr != nil {
		t.Fatalf("Filter: %v", eerr)
	}
	if got.NumRows() != 2 {
		t.Errorf("NumRows = %d, want 2", got.NumRows())
	}
}

func TestFilterExpr(t *testing.T) {
	f := sampleFrame(t)
	got, eerr := f.FilterExpr(`Age > 30 && City == "Oslo"`)
	if eerr != nil {
		t.Fatalf("FilterExpr: %v", eerr)
	}
	if got.NumRows() != 1 {
		t.Fatalf("NumRows = %d, want 1", got.NumRows())
	}
	col, _ := got.Column("Name")
	if col.Value(0) != "Carol" {
		t.Errorf("row 0 = %v, want Carol", col.Value(0))
	}
}

func TestFilterExprCompileError(t *testing.T) {
	f := sampleFrame(t)
	_, eerr := f.FilterExpr("Age >")
	if eerr == nil || eerr.Kind != InvalidOperator {
		t.Fatalf("got %v, want InvalidOperator", eerr)
	}
}

func TestSearch(t *testing.T) {
	f := sampleFrame(t)
	got, eerr := f.Search("os")
	if eerr != nil {
		t.Fatalf("Search: %v", eerr)
	}
	// matches "Oslo" twice, case-insensitively
	if got.NumRows() != 2 {
		t.Errorf("NumRows = %d, want 2", got.NumRows())
	}
}

func TestGroupBy(t *testing.T) {
	f := sampleFrame(t)
	got, eerr := f.GroupBy([]string{"City"}, []Aggregation{
		{Column: "Fare", Func: AggSum},
		{Column: "Age", Func: AggCount},
	})
	if eerr != nil {
		t.Fatalf("GroupBy: %v", eerr)
	}
	if got.NumRows() != 3 {
		t.Fatalf("NumRows = %d, want 3", got.NumRows())
	}
	// first-occurrence order: Oslo, Lima, Kyiv
	city, _ := got.Column("City")
	if city.Value(0) != "Oslo" {
		t.Errorf("group 0 = %v, want Oslo", city.Value(0))
	}
	sum, _ := got.Column("Fare_sum")
	if v, _ := sum.Float(0); v != 7.25+8.05 {
		t.Errorf("Fare_sum[0] = %v, want %v", v, 7.25+8.05)
	}
	count, _ := got.Column("Age_count")
	if v, _ := count.Float(0); v != 2 {
		t.Errorf("Age_count[0] = %v, want 2", v)
	}
}

func TestGroupByNonNumeric(t *testing.T) {
	f := sampleFrame(t)
	_, eerr := f.GroupBy([]string{"City"}, []Aggregation{{Column: "Name", Func: AggSum}})
	if eerr == nil || eerr.Kind != TypeMismatch {
		t.Fatalf("got %v, want TypeMismatch", eerr)
	}
}

func TestPivot(t *testing.T) {
	f := sampleFrame(t)
	got, eerr := f.Pivot("City", "Name", "Fare", AggSum)
	if eerr != nil {
		t.Fatalf("Pivot: %v", eerr)
	}
	if got.NumRows() != 3 {
		t.Errorf("NumRows = %d, want 3", got.NumRows())
	}
	if got.NumCols() != 5 { // City + 4 names
		t.Errorf("NumCols = %d, want 5", got.NumCols())
	}
	alice, ok := got.Column("Alice")
	if !ok {
		t.Fatal("missing pivoted column Alice")
	}
	if v, _ := alice.Float(0); v != 7.25 {
		t.Errorf("Alice[Oslo] = %v, want 7.25", v)
	}
}

func TestJoinInner(t *testing.T) {
	f := sampleFrame(t)
	lookup, err := New(
		NewStringSeries("City", []string{"Oslo", "Lima"}),
		NewStringSeries("Country", []string{"Norway", "Peru"}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, eerr := f.Join(lookup, "City", "City", JoinInner)
	if eerr != nil {
		t.Fatalf("Join: %v", eerr)
	}
	if got.NumRows() != 3 { // Kyiv dropped
		t.Fatalf("NumRows = %d, want 3", got.NumRows())
	}
	country, ok := got.Column("Country")
	if !ok {
		t.Fatal("missing joined column Country")
	}
	if country.Value(0) != "Norway" {
		t.Errorf("Country[0] = %v, want Norway", country.Value(0))
	}
}

func TestJoinLeftFillsUnmatched(t *testing.T) {
	f := sampleFrame(t)
	lookup, _ := New(
		NewStringSeries("City", []string{"Oslo"}),
		NewStringSeries("Country", []string{"Norway"}),
	)
	got, eerr := f.Join(lookup, "City", "City", JoinLeft)
	if eerr != nil {
		t.Fatalf("Join: %v", eerr)
	}
	if got.NumRows() != 4 {
		t.Fatalf("NumRows = %d, want 4", got.NumRows())
	}
	country, _ := got.Column("Country")
	if country.Value(1) != "" { // Lima has no match
		t.Errorf("Country[1] = %q, want empty", country.Value(1))
	}
}

func TestJoinKeyCategoryMismatch(t *testing.T) {
	f := sampleFrame(t)
	lookup, _ := New(NewIntSeries("City", []int64{1}))
	_, eerr := f.Join(lookup, "City", "City", JoinInner)
	if eerr == nil || eerr.Kind != TypeMismatch {
		t.Fatalf("got %v, want TypeMismatch", eerr)
	}
}

func TestSortMultiKey(t *testing.T) {
	f := sampleFrame(t)
	got, eerr := f.Sort([]SortKey{{Column: "Age", Desc: true}, {Column: "Name"}})
	if eerr != nil {
		t.Fatalf("Sort: %v", eerr)
	}
	name, _ := got.Column("Name")
	want := []string{"Bob", "Dan", "Carol", "Alice"}
	for i, w := range want {
		if name.Value(i) != w {
			t.Errorf("row %d = %v, want %s", i, name.Value(i), w)
		}
	}
}

func TestRenameDropCast(t *testing.T) {
	f := sampleFrame(t)

	renamed, eerr := f.Rename("Fare", "Price")
	if eerr != nil {
		t.Fatalf("Rename: %v", eerr)
	}
	if _, ok := renamed.Column("Price"); !ok {
		t.Error("renamed column missing")
	}
	if _, ok := renamed.Column("Fare"); ok {
		t.Error("old column still present")
	}

	dropped, eerr := f.Drop("City")
	if eerr != nil {
		t.Fatalf("Drop: %v", eerr)
	}
	if dropped.NumCols() != 3 {
		t.Errorf("NumCols = %d, want 3", dropped.NumCols())
	}

	text, _ := New(NewStringSeries("n", []string{"1", "2.5"}))
	casted, eerr := text.Cast("n", Numeric)
	if eerr != nil {
		t.Fatalf("Cast: %v", eerr)
	}
	col, _ := casted.Column("n")
	if v, _ := col.Float(1); v != 2.5 {
		t.Errorf("n[1] = %v, want 2.5", v)
	}

	bad, _ := New(NewStringSeries("n", []string{"x"}))
	if _, eerr := bad.Cast("n", Numeric); eerr == nil || eerr.Kind != TypeMismatch {
		t.Fatalf("got %v, want TypeMismatch", eerr)
	}
}

func TestDerive(t *testing.T) {
	f := sampleFrame(t)
	got, eerr := f.Derive("FarePerYear", "Fare / Age")
	if eerr != nil {
		t.Fatalf("Derive: %v", eerr)
	}
	col, ok := got.Column("FarePerYear")
	if !ok {
		t.Fatal("derived column missing")
	}
	if v, _ := col.Float(0); v != 7.25/25 {
		t.Errorf("FarePerYear[0] = %v, want %v", v, 7.25/25)
	}
	// original frame untouched
	if f.NumCols() != 4 {
		t.Errorf("source frame mutated: NumCols = %d", f.NumCols())
	}
}

func TestDeriveStringResult(t *testing.T) {
	f := sampleFrame(t)
	got, eerr := f.Derive("Tag", `Name + "@" + City`)
	if eerr != nil {
		t.Fatalf("Derive: %v", eerr)
	}
	col, _ := got.Column("Tag")
	if col.Value(0) != "Alice@Oslo" {
		t.Errorf("Tag[0] = %v, want Alice@Oslo", col.Value(0))
	}
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	f := sampleFrame(t)
	before := f.NumRows()
	if _, eerr := f.Filter("Age", OpGt, "30"); eerr != nil {
		t.Fatalf("Filter: %v", eerr)
	}
	if f.NumRows() != before {
		t.Errorf("input frame mutated: %d rows, want %d", f.NumRows(), before)
	}
}

package op

import (
	"errors"
	"sync"
	"testing"

	"github.com/siftdata/sift/internal/frame"
)

func testFrame(t *testing.T) *frame.Frame {
	t.Helper()
	f, err := frame.New(
		frame.NewStringSeries("Name", []string{"Alice", "Bob", "Carol"}),
		frame.NewIntSeries("Age", []int64{25, 40, 31}),
		frame.NewFloatSeries("Fare", []float64{7.25, 71.28, 8.05}),
	)
	if err != nil {
		t.Fatalf("frame.New: %v", err)
	}
	return f
}

func TestNewValidatesParams(t *testing.T) {
	schema := testFrame(t).Schema()

	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"valid filter", FilterParams{Column: "Age", Op: frame.OpGt, Value: "30"}, false},
		{"valid expr filter", FilterParams{Expr: "Age > 30"}, false},
		{"filter missing column", FilterParams{Op: frame.OpGt, Value: "30"}, true},
		{"filter unknown column", FilterParams{Column: "Nope", Op: frame.OpGt, Value: "1"}, true},
		{"filter bad operator for text", FilterParams{Column: "Name", Op: frame.OpGt, Value: "x"}, true},
		{"filter both forms", FilterParams{Column: "Age", Op: frame.OpGt, Value: "1", Expr: "Age > 1"}, true},
		{"valid search", SearchParams{Query: "ali"}, false},
		{"empty search", SearchParams{}, true},
		{"valid aggregate", AggregateParams{GroupBy: []string{"Name"}, Aggs: []frame.Aggregation{{Column: "Fare", Func: frame.AggSum}}}, false},
		{"aggregate sum of text", AggregateParams{GroupBy: []string{"Age"}, Aggs: []frame.Aggregation{{Column: "Name", Func: frame.AggSum}}}, true},
		{"aggregate no groups", AggregateParams{Aggs: []frame.Aggregation{{Column: "Fare", Func: frame.AggSum}}}, true},
		{"valid sort", SortParams{Keys: []frame.SortKey{{Column: "Age", Desc: true}}}, false},
		{"sort unknown column", SortParams{Keys: []frame.SortKey{{Column: "Nope"}}}, true},
		{"valid pivot", PivotParams{Index: "Name", Column: "Age", Value: "Fare", Func: frame.AggMean}, false},
		{"pivot missing value", PivotParams{Index: "Name", Column: "Age", Func: frame.AggMean}, true},
		{"valid rename", ColumnEditParams{Action: EditRename, Column: "Fare", To: "Price"}, false},
		{"rename without target", ColumnEditParams{Action: EditRename, Column: "Fare"}, true},
		{"valid derive", ColumnEditParams{Action: EditDerive, Column: "Ratio", Expr: "Fare / Age"}, false},
		{"derive existing column", ColumnEditParams{Action: EditDerive, Column: "Fare", Expr: "1"}, true},
		{"cast to bogus category", ColumnEditParams{Action: EditCast, Column: "Name", To: "vector"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := New(tt.params, schema)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected validation error")
				}
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Errorf("error type = %T, want *ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if o.State() != Queued {
				t.Errorf("initial state = %q, want Queued", o.State())
			}
			if o.ID == "" {
				t.Error("operation has no ID")
			}
		})
	}
}

func TestJoinValidation(t *testing.T) {
	schema := testFrame(t).Schema()
	right, _ := frame.New(
		frame.NewStringSeries("Name", []string{"Alice"}),
		frame.NewStringSeries("Team", []string{"Red"}),
	)

	if _, err := New(JoinParams{Path: "teams.csv", LeftKey: "Name", RightKey: "Name", How: frame.JoinInner, Right: right}, schema); err != nil {
		t.Errorf("valid join rejected: %v", err)
	}
	if _, err := New(JoinParams{Path: "teams.csv", LeftKey: "Name", RightKey: "Name", How: frame.JoinInner}, schema); err == nil {
		t.Error("join without loaded right frame accepted")
	}
	if _, err := New(JoinParams{Path: "teams.csv", LeftKey: "Name", RightKey: "Nope", How: frame.JoinInner, Right: right}, schema); err == nil {
		t.Error("join with unknown right key accepted")
	}
}

func TestApplyIsPure(t *testing.T) {
	f := testFrame(t)
	o, err := New(FilterParams{Column: "Age", Op: frame.OpGt, Value: "30"}, f.Schema())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	first, oerr := o.Apply(f)
	if oerr != nil {
		t.Fatalf("Apply: %v", oerr)
	}
	second, oerr := o.Apply(f)
	if oerr != nil {
		t.Fatalf("Apply: %v", oerr)
	}
	if first.NumRows() != second.NumRows() {
		t.Errorf("replay differs: %d vs %d rows", first.NumRows(), second.NumRows())
	}
	if o.State() != Queued {
		t.Errorf("Apply changed state to %q", o.State())
	}
}

func TestApplyErrorCarriesEngineKind(t *testing.T) {
	f := testFrame(t)
	// Validates against the current schema, but fails at apply time once the
	// expression runs against row values.
	o, err := New(FilterParams{Expr: `Fare < "abc"`}, f.Schema())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, oerr := o.Apply(f)
	if oerr == nil {
		t.Fatal("expected apply error")
	}
	if oerr.Kind != frame.TypeMismatch {
		t.Errorf("Kind = %q, want TypeMismatch", oerr.Kind)
	}
}

func TestStateTransitions(t *testing.T) {
	o, err := New(SearchParams{Query: "x"}, frame.Schema{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	o.MarkExecuted()
	if o.State() != Executed {
		t.Fatalf("state = %q, want Executed", o.State())
	}

	o.MarkFailed(&OperationError{Kind: frame.EngineInternal, Message: "boom"})
	if o.State() != Failed || o.Err() == nil {
		t.Fatalf("state = %q err = %v, want Failed with error", o.State(), o.Err())
	}

	o.MarkUndone()
	if o.State() != Undone {
		t.Fatalf("state = %q, want Undone", o.State())
	}

	o.MarkQueued()
	if o.State() != Queued {
		t.Fatalf("state = %q, want Queued", o.State())
	}
	if o.Err() != nil {
		t.Error("MarkQueued did not clear the recorded error")
	}
}

// State reads may race with a materialization pass marking the entry; the
// operation guards its lifecycle fields, so concurrent access is safe. Run
// with -race.
func TestConcurrentStateAccess(t *testing.T) {
	o, err := New(SearchParams{Query: "x"}, frame.Schema{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			o.MarkExecuted()
			o.MarkFailed(&OperationError{Kind: frame.EngineInternal, Message: "boom"})
			o.MarkQueued()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			_ = o.State()
			_ = o.Err()
		}
	}()
	wg.Wait()

	if o.State() != Queued {
		t.Errorf("final state = %q, want Queued", o.State())
	}
}

func TestLabels(t *testing.T) {
	tests := []struct {
		params Params
		want   string
	}{
		{FilterParams{Column: "Age", Op: frame.OpGt, Value: "30"}, "filter Age > 30"},
		{FilterParams{Expr: "Age > 30"}, "filter Age > 30"},
		{SearchParams{Query: "oslo"}, `search "oslo"`},
		{AggregateParams{GroupBy: []string{"City"}, Aggs: []frame.Aggregation{{Column: "Fare", Func: frame.AggSum}}}, "agg sum(Fare) by City"},
		{SortParams{Keys: []frame.SortKey{{Column: "Age", Desc: true}}}, "sort Age desc"},
		{ColumnEditParams{Action: EditDerive, Column: "R", Expr: "a+b"}, "derive R = a+b"},
	}
	for _, tt := range tests {
		if got := tt.params.Label(); got != tt.want {
			t.Errorf("Label() = %q, want %q", got, tt.want)
		}
	}
}

func TestParamsCodecRoundTrip(t *testing.T) {
	params := []Params{
		FilterParams{Column: "Age", Op: frame.OpGt, Value: "30"},
		SearchParams{Query: "oslo"},
		AggregateParams{GroupBy: []string{"City"}, Aggs: []frame.Aggregation{{Column: "Fare", Func: frame.AggSum}}},
		PivotParams{Index: "City", Column: "Name", Value: "Fare", Func: frame.AggMean},
		JoinParams{Path: "teams.csv", LeftKey: "Name", RightKey: "Name", How: frame.JoinLeft},
		SortParams{Keys: []frame.SortKey{{Column: "Age", Desc: true}}},
		ColumnEditParams{Action: EditDerive, Column: "R", Expr: "Fare / Age"},
	}
	for _, p := range params {
		kind, raw, err := EncodeParams(p)
		if err != nil {
			t.Fatalf("EncodeParams(%s): %v", p.Kind(), err)
		}
		got, err := DecodeParams(kind, raw)
		if err != nil {
			t.Fatalf("DecodeParams(%s): %v", kind, err)
		}
		if got.Label() != p.Label() {
			t.Errorf("round trip changed label: %q -> %q", p.Label(), got.Label())
		}
	}
}

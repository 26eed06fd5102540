package export

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siftdata/sift/internal/frame"
	"github.com/siftdata/sift/internal/op"
	"github.com/siftdata/sift/internal/persist"
)

func TestCommandRendering(t *testing.T) {
	tests := []struct {
		params op.Params
		want   string
	}{
		{op.FilterParams{Column: "Age", Op: frame.OpGt, Value: "30"}, "filter Age > 30"},
		{op.FilterParams{Expr: "Fare / Age > 1"}, "filter expr Fare / Age > 1"},
		{op.SearchParams{Query: "oslo"}, "search oslo"},
		{
			op.AggregateParams{
				GroupBy: []string{"City"},
				Aggs:    []frame.Aggregation{{Column: "Fare", Func: frame.AggSum}, {Column: "Age", Func: frame.AggMean}},
			},
			"agg sum(Fare),mean(Age) by City",
		},
		{op.PivotParams{Index: "City", Column: "Year", Value: "Fare", Func: frame.AggSum}, "pivot City Year Fare sum"},
		{op.JoinParams{Path: "cities.csv", LeftKey: "City", RightKey: "Name", How: frame.JoinLeft}, "join cities.csv City Name left"},
		{op.SortParams{Keys: []frame.SortKey{{Column: "Fare", Desc: true}, {Column: "Age"}}}, "sort Fare:desc,Age"},
		{op.ColumnEditParams{Action: op.EditRename, Column: "Fare", To: "Price"}, "col rename Fare Price"},
		{op.ColumnEditParams{Action: op.EditDrop, Column: "Fare"}, "col drop Fare"},
		{op.ColumnEditParams{Action: op.EditCast, Column: "Age", To: "text"}, "col cast Age text"},
		{op.ColumnEditParams{Action: op.EditDerive, Column: "Ratio", Expr: "Fare / Age"}, "col derive Ratio = Fare / Age"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Command(tt.params), "params %+v", tt.params)
	}
}

func TestCommandQuotesSplittableValues(t *testing.T) {
	tests := []struct {
		params op.Params
		want   string
	}{
		{op.FilterParams{Column: "City", Op: frame.OpEq, Value: "New York"}, `filter City == "New York"`},
		{op.FilterParams{Column: "Note", Op: frame.OpContains, Value: `say "hi"`}, `filter Note contains "say \"hi\""`},
		{op.SearchParams{Query: "new york"}, `search "new york"`},
		{
			op.JoinParams{Path: "data/city codes.csv", LeftKey: "City", RightKey: "City", How: frame.JoinInner},
			`join "data/city codes.csv" City City inner`,
		},
		{op.ColumnEditParams{Action: op.EditRename, Column: "Fare", To: "Fare (USD)"}, `col rename Fare "Fare (USD)"`},
		{op.SortParams{Keys: []frame.SortKey{{Column: "First Seen", Desc: true}}}, `sort "First Seen:desc"`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Command(tt.params), "params %+v", tt.params)
	}
}

func sampleAnalysis(t *testing.T) persist.Analysis {
	t.Helper()
	entry := func(p op.Params) persist.Entry {
		kind, raw, err := op.EncodeParams(p)
		require.NoError(t, err)
		return persist.Entry{Kind: kind, Label: p.Label(), Params: raw}
	}
	return persist.Analysis{
		Version:   persist.Version,
		Dataset:   "trips.csv",
		Mode:      "lazy",
		CreatedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Entries: []persist.Entry{
			entry(op.FilterParams{Column: "Age", Op: frame.OpGt, Value: "30"}),
			entry(op.SortParams{Keys: []frame.SortKey{{Column: "Fare", Desc: true}}}),
		},
	}
}

func TestScript(t *testing.T) {
	var out strings.Builder
	require.NoError(t, Script(&out, sampleAnalysis(t)))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[0], "# analysis of trips.csv"))
	assert.Equal(t, "open trips.csv", lines[1])
	assert.Equal(t, "mode lazy", lines[2])
	assert.Equal(t, "filter Age > 30", lines[3])
	assert.Equal(t, "sort Fare:desc", lines[4])
	assert.Equal(t, "run", lines[5])
}

func TestMarkdownWithResult(t *testing.T) {
	result, err := frame.New(
		frame.NewStringSeries("City", []string{"Oslo", "Lima"}),
		frame.NewFloatSeries("Fare", []float64{8.05, 71.28}),
	)
	require.NoError(t, err)

	var out strings.Builder
	require.NoError(t, Markdown(&out, sampleAnalysis(t), result))
	got := out.String()

	assert.Contains(t, got, "# Analysis: trips.csv")
	assert.Contains(t, got, "1. filter Age > 30")
	assert.Contains(t, got, "2. sort Fare desc")
	assert.Contains(t, got, "## Result (2 rows x 2 columns)")
	assert.Contains(t, got, "| City | Fare |")
	assert.Contains(t, got, "| Oslo | 8.05 |")
	assert.NotContains(t, got, "more rows not shown")
}

func TestMarkdownWithoutResult(t *testing.T) {
	var out strings.Builder
	require.NoError(t, Markdown(&out, persist.Analysis{Dataset: "x.csv"}, nil))
	assert.Contains(t, out.String(), "No operations.")
	assert.NotContains(t, out.String(), "## Result")
}

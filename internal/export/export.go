// Package export renders a saved analysis as a replayable command script or
// a Markdown report. Both forms are generated from the structured operation
// parameters, never by parsing display labels.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/siftdata/sift/internal/frame"
	"github.com/siftdata/sift/internal/op"
	"github.com/siftdata/sift/internal/persist"
)

// Command renders the interactive command that would reproduce p. Values
// that the prompt tokenizer would split are quoted, so scripts round-trip.
func Command(p op.Params) string {
	switch v := p.(type) {
	case op.FilterParams:
		if v.Expr != "" {
			return "filter expr " + v.Expr
		}
		return fmt.Sprintf("filter %s %s %s", quote(v.Column), v.Op, quote(v.Value))
	case op.SearchParams:
		return "search " + quote(v.Query)
	case op.AggregateParams:
		aggs := make([]string, len(v.Aggs))
		for i, a := range v.Aggs {
			aggs[i] = fmt.Sprintf("%s(%s)", a.Func, a.Column)
		}
		return fmt.Sprintf("agg %s by %s", quote(strings.Join(aggs, ",")), quote(strings.Join(v.GroupBy, ",")))
	case op.PivotParams:
		return fmt.Sprintf("pivot %s %s %s %s", quote(v.Index), quote(v.Column), quote(v.Value), v.Func)
	case op.JoinParams:
		return fmt.Sprintf("join %s %s %s %s", quote(v.Path), quote(v.LeftKey), quote(v.RightKey), v.How)
	case op.SortParams:
		keys := make([]string, len(v.Keys))
		for i, k := range v.Keys {
			keys[i] = k.Column
			if k.Desc {
				keys[i] += ":desc"
			}
		}
		return "sort " + quote(strings.Join(keys, ","))
	case op.ColumnEditParams:
		switch v.Action {
		case op.EditRename:
			return fmt.Sprintf("col rename %s %s", quote(v.Column), quote(v.To))
		case op.EditDrop:
			return "col drop " + quote(v.Column)
		case op.EditCast:
			return fmt.Sprintf("col cast %s %s", quote(v.Column), v.To)
		case op.EditDerive:
			return fmt.Sprintf("col derive %s = %s", quote(v.Column), v.Expr)
		}
	}
	return ""
}

// quote wraps v in double quotes when the prompt tokenizer would otherwise
// split or reinterpret it, escaping embedded quotes and backslashes.
func quote(v string) string {
	if v != "" && !strings.ContainsAny(v, " \t\n\"'\\") {
		return v
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range v {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

// Script writes a command script that reproduces the analysis when fed back
// to the interactive prompt.
func Script(w io.Writer, a persist.Analysis) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# analysis of %s, saved %s\n", a.Dataset, a.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "open %s\n", a.Dataset)
	if a.Mode != "" {
		fmt.Fprintf(&b, "mode %s\n", a.Mode)
	}
	for _, e := range a.Entries {
		p, err := op.DecodeParams(e.Kind, e.Params)
		if err != nil {
			return fmt.Errorf("entry %q: %w", e.Label, err)
		}
		fmt.Fprintln(&b, Command(p))
	}
	fmt.Fprintln(&b, "run")
	_, err := io.WriteString(w, b.String())
	return err
}

// Markdown writes a human-readable report of the analysis. When result is
// non-nil, a preview of its leading rows is included.
func Markdown(w io.Writer, a persist.Analysis, result *frame.Frame) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# Analysis: %s\n\n", a.Dataset)
	fmt.Fprintf(&b, "Saved %s, %s mode.\n\n", a.CreatedAt.Format("2006-01-02 15:04"), a.Mode)

	fmt.Fprintln(&b, "## Steps")
	fmt.Fprintln(&b)
	if len(a.Entries) == 0 {
		fmt.Fprintln(&b, "No operations.")
	}
	for i, e := range a.Entries {
		fmt.Fprintf(&b, "%d. %s\n", i+1, e.Label)
	}

	if result != nil {
		fmt.Fprintln(&b)
		fmt.Fprintf(&b, "## Result (%d rows x %d columns)\n\n", result.NumRows(), result.NumCols())
		writeMarkdownTable(&b, result.Head(10))
		if result.NumRows() > 10 {
			fmt.Fprintf(&b, "\n_%d more rows not shown._\n", result.NumRows()-10)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeMarkdownTable(b *strings.Builder, f *frame.Frame) {
	names := f.Columns()
	fmt.Fprintf(b, "| %s |\n", strings.Join(names, " | "))
	seps := make([]string, len(names))
	for i := range seps {
		seps[i] = "---"
	}
	fmt.Fprintf(b, "| %s |\n", strings.Join(seps, " | "))
	for i := 0; i < f.NumRows(); i++ {
		cells := make([]string, len(names))
		for j, name := range names {
			col, _ := f.Column(name)
			cells[j] = frame.FormatValue(col.Value(i))
		}
		fmt.Fprintf(b, "| %s |\n", strings.Join(cells, " | "))
	}
}

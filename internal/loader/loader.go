// Package loader reads datasets into frames. CSV columns are type-inferred;
// JSON input is an array of flat objects. Loaders can also hand back a
// deferred scan so large files are only read when first materialized.
package loader

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/siftdata/sift/internal/frame"
)

// Load reads the file at path, choosing the format from its extension.
func Load(path string) (*frame.Frame, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSVFile(path)
	case ".json":
		return LoadJSONFile(path)
	default:
		return nil, fmt.Errorf("unsupported dataset format %q", filepath.Ext(path))
	}
}

// Scan returns a deferred source for the file at path. The file is opened
// and parsed on the first Collect call.
func Scan(path string) frame.Source {
	return frame.SourceFunc(func(ctx context.Context) (*frame.Frame, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return Load(path)
	})
}

// LoadCSVFile reads a CSV file with a header row.
func LoadCSVFile(path string) (*frame.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()
	return LoadCSV(f)
}

// LoadCSV reads CSV data with a header row from r. Column types are inferred
// from the values: a column parses as int, float, bool, or date only when
// every value does; otherwise it stays text.
func LoadCSV(r io.Reader) (*frame.Frame, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv input has no header row")
	}

	header := records[0]
	rows := records[1:]
	cols := make([]frame.Series, len(header))
	for j, name := range header {
		raw := make([]string, len(rows))
		for i, row := range rows {
			raw[i] = row[j]
		}
		cols[j] = inferSeries(name, raw)
	}

	out, err := frame.New(cols...)
	if err != nil {
		return nil, fmt.Errorf("invalid csv structure: %w", err)
	}
	return out, nil
}

// inferSeries picks the narrowest kind that fits every value in the column.
func inferSeries(name string, raw []string) frame.Series {
	if tryAll(raw, func(s string) bool { _, err := strconv.ParseInt(s, 10, 64); return err == nil }) {
		vals := make([]int64, len(raw))
		for i, s := range raw {
			vals[i], _ = strconv.ParseInt(s, 10, 64)
		}
		return frame.NewIntSeries(name, vals)
	}
	if tryAll(raw, func(s string) bool { _, err := strconv.ParseFloat(s, 64); return err == nil }) {
		vals := make([]float64, len(raw))
		for i, s := range raw {
			vals[i], _ = strconv.ParseFloat(s, 64)
		}
		return frame.NewFloatSeries(name, vals)
	}
	if tryAll(raw, func(s string) bool { _, err := strconv.ParseBool(s); return err == nil }) {
		vals := make([]bool, len(raw))
		for i, s := range raw {
			vals[i], _ = strconv.ParseBool(s)
		}
		return frame.NewBoolSeries(name, vals)
	}
	if tryAll(raw, func(s string) bool { _, err := time.Parse("2006-01-02", s); return err == nil }) {
		vals := make([]time.Time, len(raw))
		for i, s := range raw {
			vals[i], _ = time.Parse("2006-01-02", s)
		}
		return frame.NewTimeSeries(name, vals)
	}
	return frame.NewStringSeries(name, raw)
}

// tryAll reports whether ok holds for every value. Empty columns stay text.
func tryAll(raw []string, ok func(string) bool) bool {
	if len(raw) == 0 {
		return false
	}
	for _, s := range raw {
		if !ok(s) {
			return false
		}
	}
	return true
}

// LoadJSONFile reads a JSON file holding an array of flat objects.
func LoadJSONFile(path string) (*frame.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()
	return LoadJSON(f)
}

// LoadJSON reads an array of flat objects from r. Column order is the sorted
// union of keys; numbers become floats, everything else is stringified
// unless the whole column is boolean.
func LoadJSON(r io.Reader) (*frame.Frame, error) {
	var rows []map[string]any
	dec := json.NewDecoder(r)
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to parse json: %w", err)
	}

	keySet := make(map[string]bool)
	for _, row := range rows {
		for k := range row {
			keySet[k] = true
		}
	}
	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cols := make([]frame.Series, len(keys))
	for j, key := range keys {
		cols[j] = jsonColumn(key, rows)
	}

	out, err := frame.New(cols...)
	if err != nil {
		return nil, fmt.Errorf("invalid json structure: %w", err)
	}
	return out, nil
}

func jsonColumn(key string, rows []map[string]any) frame.Series {
	allNum, allBool := len(rows) > 0, len(rows) > 0
	for _, row := range rows {
		switch row[key].(type) {
		case float64:
			allBool = false
		case bool:
			allNum = false
		default:
			allNum, allBool = false, false
		}
	}
	switch {
	case allNum:
		vals := make([]float64, len(rows))
		for i, row := range rows {
			vals[i] = row[key].(float64)
		}
		return frame.NewFloatSeries(key, vals)
	case allBool:
		vals := make([]bool, len(rows))
		for i, row := range rows {
			vals[i] = row[key].(bool)
		}
		return frame.NewBoolSeries(key, vals)
	default:
		vals := make([]string, len(rows))
		for i, row := range rows {
			if v, ok := row[key]; ok && v != nil {
				vals[i] = frame.FormatValue(normalizeJSON(v))
			}
		}
		return frame.NewStringSeries(key, vals)
	}
}

func normalizeJSON(v any) any {
	switch x := v.(type) {
	case float64, bool, string:
		return x
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprintf("%v", x)
		}
		return string(b)
	}
}

package loader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siftdata/sift/internal/frame"
)

const sampleCSV = `Name,Age,Fare,Active,Joined
Alice,25,7.25,true,2020-01-15
Bob,40,71.28,false,2019-06-30
Carol,31,8.05,true,2021-11-02
`

func TestLoadCSVInfersTypes(t *testing.T) {
	f, err := LoadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, 3, f.NumRows())
	assert.Equal(t, []string{"Name", "Age", "Fare", "Active", "Joined"}, f.Columns())

	schema := f.Schema()
	assert.Equal(t, frame.Text, schema.Category("Name"))
	assert.Equal(t, frame.Numeric, schema.Category("Age"))
	assert.Equal(t, frame.Numeric, schema.Category("Fare"))
	assert.Equal(t, frame.Boolean, schema.Category("Active"))
	assert.Equal(t, frame.Date, schema.Category("Joined"))

	age, ok := f.Column("Age")
	require.True(t, ok)
	assert.Equal(t, frame.KindInt, age.Kind())
	assert.Equal(t, int64(40), age.Value(1))

	fare, ok := f.Column("Fare")
	require.True(t, ok)
	assert.Equal(t, frame.KindFloat, fare.Kind())
}

func TestLoadCSVMixedColumnStaysText(t *testing.T) {
	f, err := LoadCSV(strings.NewReader("Code\n12\nabc\n"))
	require.NoError(t, err)
	col, ok := f.Column("Code")
	require.True(t, ok)
	assert.Equal(t, frame.KindString, col.Kind())
}

func TestLoadCSVEmptyInput(t *testing.T) {
	_, err := LoadCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestLoadCSVRaggedRows(t *testing.T) {
	_, err := LoadCSV(strings.NewReader("A,B\n1,2\n3\n"))
	assert.Error(t, err)
}

func TestLoadJSON(t *testing.T) {
	input := `[
		{"name": "Alice", "age": 25, "active": true},
		{"name": "Bob", "age": 40, "active": false}
	]`
	f, err := LoadJSON(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 2, f.NumRows())
	assert.Equal(t, []string{"active", "age", "name"}, f.Columns())

	age, ok := f.Column("age")
	require.True(t, ok)
	assert.Equal(t, frame.KindFloat, age.Kind())
	assert.Equal(t, float64(25), age.Value(0))

	active, ok := f.Column("active")
	require.True(t, ok)
	assert.Equal(t, frame.KindBool, active.Kind())
}

func TestLoadJSONMissingKeysBecomeEmptyText(t *testing.T) {
	input := `[{"a": "x", "b": 1}, {"a": "y"}]`
	f, err := LoadJSON(strings.NewReader(input))
	require.NoError(t, err)

	// "b" is not numeric in every row, so it falls back to text.
	b, ok := f.Column("b")
	require.True(t, ok)
	assert.Equal(t, frame.KindString, b.Kind())
	assert.Equal(t, "1", b.Value(0))
	assert.Equal(t, "", b.Value(1))
}

func TestLoadJSONInvalid(t *testing.T) {
	_, err := LoadJSON(strings.NewReader(`{"not": "an array"}`))
	assert.Error(t, err)
}

func TestLoadByExtension(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(sampleCSV), 0o644))

	f, err := Load(csvPath)
	require.NoError(t, err)
	assert.Equal(t, 3, f.NumRows())

	_, err = Load(filepath.Join(dir, "data.parquet"))
	assert.Error(t, err)
}

func TestScanDefersUntilCollect(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "late.csv")

	src := Scan(path)
	// File does not exist yet; the scan must not have opened it.
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	f, err := src.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, f.NumRows())
}

func TestScanHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Scan("irrelevant.csv").Collect(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

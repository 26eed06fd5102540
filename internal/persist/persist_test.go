package persist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siftdata/sift/internal/frame"
	"github.com/siftdata/sift/internal/loader"
	"github.com/siftdata/sift/internal/op"
	"github.com/siftdata/sift/internal/session"
)

func tripsFrame(t *testing.T) *frame.Frame {
	t.Helper()
	f, err := frame.New(
		frame.NewStringSeries("City", []string{"Oslo", "Lima", "Oslo", "Kyiv"}),
		frame.NewIntSeries("Age", []int64{25, 40, 31, 40}),
		frame.NewFloatSeries("Fare", []float64{7.25, 71.28, 8.05, 13.0}),
	)
	require.NoError(t, err)
	return f
}

func submit(t *testing.T, s *session.Session, params op.Params) *op.Operation {
	t.Helper()
	o, err := op.New(params, s.Schema())
	require.NoError(t, err)
	require.NoError(t, s.Submit(o))
	s.Wait()
	return o
}

func TestSnapshotExcludesUndone(t *testing.T) {
	s := session.New("trips", tripsFrame(t), session.Eager, nil)
	submit(t, s, op.FilterParams{Column: "Age", Op: frame.OpGt, Value: "30"})
	submit(t, s, op.SortParams{Keys: []frame.SortKey{{Column: "Fare"}}})
	_, err := s.Undo()
	require.NoError(t, err)
	s.Wait()

	a, err := Snapshot(s, "trips.csv")
	require.NoError(t, err)

	assert.Equal(t, Version, a.Version)
	assert.Equal(t, "trips.csv", a.Dataset)
	assert.Equal(t, session.Eager, a.Mode)
	require.Len(t, a.Entries, 1)
	assert.Equal(t, op.KindFilter, a.Entries[0].Kind)
	assert.Equal(t, "filter Age > 30", a.Entries[0].Label)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := session.New("trips", tripsFrame(t), session.Lazy, nil)
	o, err := op.New(op.FilterParams{Column: "Age", Op: frame.OpGt, Value: "30"}, s.Schema())
	require.NoError(t, err)
	require.NoError(t, s.Submit(o))

	a, err := Snapshot(s, "trips.csv")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "analysis.json")
	require.NoError(t, Save(path, a))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, a.Dataset, loaded.Dataset)
	assert.Equal(t, a.Mode, loaded.Mode)
	require.Len(t, loaded.Entries, 1)
	assert.Equal(t, a.Entries[0].Kind, loaded.Entries[0].Kind)
	assert.Equal(t, a.Entries[0].Label, loaded.Entries[0].Label)
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 99, "entries": []}`), 0o644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "unsupported analysis version")
}

func TestReplayAppliesEntriesInOrder(t *testing.T) {
	s := session.New("trips", tripsFrame(t), session.Eager, nil)
	submit(t, s, op.FilterParams{Column: "Age", Op: frame.OpGt, Value: "30"})
	submit(t, s, op.ColumnEditParams{Action: op.EditDerive, Column: "Ratio", Expr: "Fare / Age"})
	submit(t, s, op.SortParams{Keys: []frame.SortKey{{Column: "Ratio", Desc: true}}})

	a, err := Snapshot(s, "trips.csv")
	require.NoError(t, err)

	res, err := Replay("replayed", a, frame.Eager{Frame: tripsFrame(t)}, nil)
	require.NoError(t, err)
	assert.Nil(t, res.Failed)
	assert.Equal(t, 3, res.Applied)
	assert.Equal(t, session.Eager, res.Session.Mode())

	got := res.Session.Frame()
	assert.Equal(t, 3, got.NumRows())
	ratio, ok := got.Column("Ratio")
	require.True(t, ok)
	first, _ := ratio.Float(0)
	second, _ := ratio.Float(1)
	assert.GreaterOrEqual(t, first, second)
}

func TestReplayHaltsOnFailure(t *testing.T) {
	a := Analysis{
		Version: Version,
		Dataset: "trips.csv",
		Mode:    session.Lazy,
		Entries: []Entry{
			mustEntry(t, op.FilterParams{Column: "Age", Op: frame.OpGt, Value: "20"}),
			mustEntry(t, op.FilterParams{Expr: `Fare < "abc"`}),
			mustEntry(t, op.SortParams{Keys: []frame.SortKey{{Column: "Fare"}}}),
		},
	}

	res, err := Replay("replayed", a, frame.Eager{Frame: tripsFrame(t)}, nil)
	require.NoError(t, err)
	require.NotNil(t, res.Failed)
	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, 1, res.Failed.Index)
	assert.Equal(t, frame.TypeMismatch, res.Failed.Err.Kind)
	// The entry after the failure was never appended.
	assert.Len(t, res.Session.Entries(), 2)
	assert.Equal(t, session.Lazy, res.Session.Mode())
}

func TestReplayRejectsMissingColumn(t *testing.T) {
	a := Analysis{
		Version: Version,
		Entries: []Entry{
			mustEntry(t, op.SortParams{Keys: []frame.SortKey{{Column: "Nope"}}}),
		},
	}
	_, err := Replay("replayed", a, frame.Eager{Frame: tripsFrame(t)}, nil)
	assert.Error(t, err)
}

func TestReplayCollectsDeferredSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trips.csv")
	require.NoError(t, os.WriteFile(path, []byte("City,Age\nOslo,25\nLima,40\n"), 0o644))

	a := Analysis{
		Version: Version,
		Dataset: path,
		Entries: []Entry{
			mustEntry(t, op.FilterParams{Column: "Age", Op: frame.OpGt, Value: "30"}),
		},
	}
	res, err := Replay("replayed", a, loader.Scan(path), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, 1, res.Session.Frame().NumRows())
}

func TestReplayReportsCollectFailure(t *testing.T) {
	a := Analysis{Version: Version}
	_, err := Replay("replayed", a, loader.Scan(filepath.Join(t.TempDir(), "missing.csv")), nil)
	assert.ErrorContains(t, err, "failed to collect dataset")
}

func TestHydrateReloadsJoinDataset(t *testing.T) {
	dir := t.TempDir()
	rightPath := filepath.Join(dir, "cities.csv")
	require.NoError(t, os.WriteFile(rightPath, []byte("City,Country\nOslo,Norway\nLima,Peru\n"), 0o644))

	e := mustEntry(t, op.JoinParams{Path: rightPath, LeftKey: "City", RightKey: "City", How: frame.JoinLeft})
	p, err := Hydrate(e)
	require.NoError(t, err)

	jp, ok := p.(op.JoinParams)
	require.True(t, ok)
	require.NotNil(t, jp.Right)
	assert.Equal(t, 2, jp.Right.NumRows())
}

func mustEntry(t *testing.T, params op.Params) Entry {
	t.Helper()
	kind, raw, err := op.EncodeParams(params)
	require.NoError(t, err)
	return Entry{Kind: kind, Label: params.Label(), Params: raw}
}

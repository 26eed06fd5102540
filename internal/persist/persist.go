// Package persist saves an analysis (the active operation history of a
// session) to a JSON file and replays it against a freshly loaded dataset.
// Undone entries are not saved; a replayed analysis starts with an empty
// redo buffer.
package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/siftdata/sift/internal/frame"
	"github.com/siftdata/sift/internal/loader"
	"github.com/siftdata/sift/internal/op"
	"github.com/siftdata/sift/internal/session"
)

// Version is the analysis file format version.
const Version = 1

// Analysis is the serialized form of a session's active history.
type Analysis struct {
	Version   int          `json:"version"`
	Dataset   string       `json:"dataset"`
	Mode      session.Mode `json:"mode"`
	CreatedAt time.Time    `json:"created_at"`
	Entries   []Entry      `json:"entries"`
}

// Entry is one serialized operation. The label is stored for display only;
// replay reconstructs the operation from kind and params.
type Entry struct {
	Kind   op.Kind         `json:"kind"`
	Label  string          `json:"label"`
	Params json.RawMessage `json:"params"`
}

// Snapshot captures the active entries of s as a saveable analysis. Undone
// entries are excluded: redo state does not survive a save.
func Snapshot(s *session.Session, dataset string) (Analysis, error) {
	a := Analysis{
		Version:   Version,
		Dataset:   dataset,
		Mode:      s.Mode(),
		CreatedAt: time.Now().UTC(),
	}
	for _, o := range s.ActiveEntries() {
		kind, raw, err := op.EncodeParams(o.Params)
		if err != nil {
			return Analysis{}, err
		}
		a.Entries = append(a.Entries, Entry{Kind: kind, Label: o.Label(), Params: raw})
	}
	return a, nil
}

// Save writes the analysis to path atomically.
func Save(path string, a Analysis) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}
	return AtomicWriteFile(path, data, 0644)
}

// Load reads an analysis file.
func Load(path string) (Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Analysis{}, fmt.Errorf("failed to read analysis: %w", err)
	}
	var a Analysis
	if err := json.Unmarshal(data, &a); err != nil {
		return Analysis{}, fmt.Errorf("failed to parse analysis: %w", err)
	}
	if a.Version != Version {
		return Analysis{}, fmt.Errorf("unsupported analysis version %d", a.Version)
	}
	return a, nil
}

// Hydrate decodes an entry's params and reloads any datasets they reference.
// Join operations record only the path of their right-hand dataset; the
// frame itself is reloaded here.
func Hydrate(e Entry) (op.Params, error) {
	p, err := op.DecodeParams(e.Kind, e.Params)
	if err != nil {
		return nil, err
	}
	if jp, ok := p.(op.JoinParams); ok {
		right, err := loader.Load(jp.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to reload join dataset %s: %w", jp.Path, err)
		}
		jp.Right = right
		p = jp
	}
	return p, nil
}

// FailedEntry identifies the entry a replay halted on.
type FailedEntry struct {
	Index int
	Label string
	Err   *op.OperationError
}

// ReplayResult reports the outcome of replaying an analysis.
type ReplayResult struct {
	Session *session.Session
	Applied int
	Failed  *FailedEntry
}

// Replay reconstructs a session from the analysis, applying entries in order
// against the collected source. Callers hand in either a deferred scan or an
// in-memory frame wrapped in frame.Eager. Each entry is validated against the
// schema produced by the preceding entries, exactly as it was at original
// submission time. The replay halts at the first failed entry; entries after
// it are not appended. The session is left in the analysis's saved mode.
func Replay(name string, a Analysis, src frame.Source, notifier session.Notifier) (*ReplayResult, error) {
	s, err := session.NewFromSource(context.Background(), name, src, session.Eager, notifier)
	if err != nil {
		return nil, fmt.Errorf("failed to collect dataset: %w", err)
	}
	res := &ReplayResult{Session: s}

	for i, e := range a.Entries {
		params, err := Hydrate(e)
		if err != nil {
			return nil, fmt.Errorf("entry %d (%s): %w", i, e.Label, err)
		}
		o, err := op.New(params, s.Schema())
		if err != nil {
			return nil, fmt.Errorf("entry %d (%s): %w", i, e.Label, err)
		}
		if err := s.Submit(o); err != nil {
			return nil, fmt.Errorf("entry %d (%s): %w", i, e.Label, err)
		}
		s.Wait()

		if o.State() == op.Failed {
			res.Failed = &FailedEntry{Index: i, Label: o.Label(), Err: o.Err()}
			break
		}
		res.Applied++
	}

	mode := a.Mode
	if !session.ValidMode(mode) {
		mode = session.Lazy
	}
	s.SetMode(mode)
	return res, nil
}

// Package history keeps the ordered operation timeline for one dataset
// session: the applied entries plus a redo buffer of undone ones. Appending
// a new operation branches the timeline and discards the redo buffer.
package history

import (
	"errors"

	"github.com/siftdata/sift/internal/op"
)

// ErrNothingToUndo is reported when undo is requested on an empty timeline.
var ErrNothingToUndo = errors.New("nothing to undo")

// ErrNothingToRedo is reported when redo is requested with an empty redo buffer.
var ErrNothingToRedo = errors.New("nothing to redo")

// History is the ordered collection of operations for one dataset session.
// Insertion order is application order; sequence numbers are assigned here
// and never reused.
type History struct {
	entries []*op.Operation
	redo    []*op.Operation
	nextSeq uint64
}

// New creates an empty history.
func New() *History {
	return &History{nextSeq: 1}
}

// Append adds o at the tail, assigns its sequence number, and clears the
// redo buffer: once the timeline branches, stale redo entries are invalid.
func (h *History) Append(o *op.Operation) {
	o.Seq = h.nextSeq
	h.nextSeq++
	h.entries = append(h.entries, o)
	h.redo = nil
}

// Undo marks the most recent non-Undone entry as Undone and moves it to the
// head of the redo buffer. Failed entries are undone like any other, so undo
// always acts on the most recent entry regardless of its execution outcome.
// The returned state is the entry's state before the undo; the caller needs
// it to decide whether the materialized frame must be rebuilt.
func (h *History) Undo() (*op.Operation, op.State, error) {
	for i := len(h.entries) - 1; i >= 0; i-- {
		o := h.entries[i]
		if o.State() == op.Undone {
			continue
		}
		prior := o.State()
		o.MarkUndone()
		h.entries = append(h.entries[:i], h.entries[i+1:]...)
		h.redo = append([]*op.Operation{o}, h.redo...)
		return o, prior, nil
	}
	return nil, "", ErrNothingToUndo
}

// Redo re-appends the head of the redo buffer. The entry always comes back
// Queued: even previously executed operations must re-validate against the
// current state, so the engine re-executes them.
func (h *History) Redo() (*op.Operation, error) {
	if len(h.redo) == 0 {
		return nil, ErrNothingToRedo
	}
	o := h.redo[0]
	h.redo = h.redo[1:]
	o.MarkQueued()
	h.entries = append(h.entries, o)
	return o, nil
}

// ActiveEntries returns the non-Undone entries in application order. This is
// the list the execution engine replays.
func (h *History) ActiveEntries() []*op.Operation {
	out := make([]*op.Operation, 0, len(h.entries))
	for _, o := range h.entries {
		if o.State() != op.Undone {
			out = append(out, o)
		}
	}
	return out
}

// Entries returns the current timeline entries in order. Undone entries
// live in the redo buffer, not here; entries and the redo buffer together
// reconstruct the full interaction timeline.
func (h *History) Entries() []*op.Operation {
	out := make([]*op.Operation, len(h.entries))
	copy(out, h.entries)
	return out
}

// RedoLen returns the number of entries available for redo.
func (h *History) RedoLen() int { return len(h.redo) }

// Len returns the number of entries in the timeline.
func (h *History) Len() int { return len(h.entries) }

// Find returns the entry with the given operation ID.
func (h *History) Find(id string) (*op.Operation, bool) {
	for _, o := range h.entries {
		if o.ID == id {
			return o, true
		}
	}
	return nil, false
}

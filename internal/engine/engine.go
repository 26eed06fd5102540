// Package engine replays an ordered list of active operations against a base
// frame. It owns the execution semantics: queued entries run in sequence
// order, the first failure halts the pass, and failures are returned as data
// rather than raised.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/siftdata/sift/internal/frame"
	"github.com/siftdata/sift/internal/op"
)

// Status describes what happened to one entry during a materialization pass.
type Status string

const (
	// StatusExecuted means the entry was applied successfully in this pass.
	StatusExecuted Status = "executed"
	// StatusCached means the entry was already executed and its effect is
	// folded into the cached prefix frame; it was not re-applied.
	StatusCached Status = "cached"
	// StatusFailed means applying the entry produced an OperationError.
	StatusFailed Status = "failed"
	// StatusSkipped means the entry was not attempted because an earlier
	// entry failed.
	StatusSkipped Status = "skipped"
	// StatusCanceled means the entry was not attempted because the pass was
	// canceled.
	StatusCanceled Status = "canceled"
)

// Outcome reports the result of one entry in a materialization pass.
type Outcome struct {
	OperationID string
	Label       string
	Status      Status
	Err         *op.OperationError
}

// Result is the full outcome of a materialization pass. Frame is always the
// frame accumulated through the last successful step; it is never nil when
// base is non-nil.
type Result struct {
	Frame    *frame.Frame
	Outcomes []Outcome
	Failed   *Outcome
	Canceled bool
}

// Options tunes a materialization pass.
type Options struct {
	// FullRebuild re-executes every active entry from the base frame,
	// ignoring the cached prefix. Required after undo removes an executed
	// entry, since its effect is baked into the cache.
	FullRebuild bool
}

// Materialize applies the active entries in order. base is the immutable
// loaded frame; cached, when non-nil, is the materialization of the leading
// already-Executed entries and lets the pass resume where the last one
// stopped. Entry states are updated in place: Queued entries become Executed
// or Failed; with FullRebuild, Executed entries are first reset to Queued.
//
// Cancellation is observed between steps only: an in-flight transform runs
// to completion, and the returned frame reflects the last completed step.
func Materialize(ctx context.Context, base *frame.Frame, cached *frame.Frame, entries []*op.Operation, opts Options) Result {
	acc := base
	usingCache := !opts.FullRebuild && cached != nil
	if usingCache {
		acc = cached
	}
	// A full rebuild re-runs only the entries that were executed; entries
	// still queued (lazy mode) must stay queued and excluded from the frame.
	rebuild := make(map[string]bool)
	if opts.FullRebuild {
		for _, o := range entries {
			if o.State() == op.Executed {
				o.MarkQueued()
				rebuild[o.ID] = true
			}
		}
	}

	res := Result{Frame: acc, Outcomes: make([]Outcome, 0, len(entries))}
	halted := false

	for _, o := range entries {
		outcome := Outcome{OperationID: o.ID, Label: o.Label()}

		switch {
		case halted:
			outcome.Status = StatusSkipped
		case res.Canceled:
			outcome.Status = StatusCanceled
		case usingCache && o.State() == op.Executed:
			outcome.Status = StatusCached
		case opts.FullRebuild && !rebuild[o.ID]:
			// originally queued; a rebuild does not execute it
			outcome.Status = StatusSkipped
		default:
			if err := ctx.Err(); err != nil {
				res.Canceled = true
				outcome.Status = StatusCanceled
				break
			}
			next, oerr := applyGuarded(o, acc)
			if oerr != nil {
				o.MarkFailed(oerr)
				outcome.Status = StatusFailed
				outcome.Err = oerr
				halted = true
				break
			}
			o.MarkExecuted()
			acc = next
			outcome.Status = StatusExecuted
		}

		res.Outcomes = append(res.Outcomes, outcome)
	}

	// Point Failed at the stored outcome, if any step failed.
	for i := range res.Outcomes {
		if res.Outcomes[i].Status == StatusFailed {
			res.Failed = &res.Outcomes[i]
			break
		}
	}

	res.Frame = acc
	return res
}

// applyGuarded applies o to f, converting a panic out of the underlying
// engine into an EngineInternal operation error. Nothing in a materialization
// pass may abort the process.
func applyGuarded(o *op.Operation, f *frame.Frame) (out *frame.Frame, oerr *op.OperationError) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("operation panicked during apply",
				"operation", o.Label(),
				"panic", fmt.Sprintf("%v", r))
			out = nil
			oerr = &op.OperationError{
				Kind:    frame.EngineInternal,
				Message: fmt.Sprintf("internal failure applying %s: %v", o.Label(), r),
			}
		}
	}()
	return o.Apply(f)
}

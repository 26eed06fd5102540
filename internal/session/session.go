// Package session owns the state of one loaded dataset: its immutable base
// frame, the current materialized frame, the operation history, and the
// execution mode. All mutation flows through a single session instance;
// materialization runs as a cancellable background pass.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/siftdata/sift/internal/engine"
	"github.com/siftdata/sift/internal/frame"
	"github.com/siftdata/sift/internal/history"
	"github.com/siftdata/sift/internal/op"
)

// Mode selects when submitted operations are executed.
type Mode string

const (
	// Lazy queues operations until an explicit execute request.
	Lazy Mode = "lazy"
	// Eager executes each operation immediately on submission.
	Eager Mode = "eager"
)

// ValidMode reports whether m is a known execution mode.
func ValidMode(m Mode) bool { return m == Lazy || m == Eager }

// runNow is the execution-mode decision: eager submissions run immediately,
// lazy submissions defer until an explicit execute request. It is a pure
// function of the mode.
func runNow(m Mode) bool { return m == Eager }

// ErrBusy is returned when a command arrives while a materialization pass is
// in flight. History mutation is non-reentrant with materialization.
var ErrBusy = errors.New("materialization in progress")

// Session is one dataset exploration session.
type Session struct {
	name string

	mu       sync.Mutex
	base     *frame.Frame // never mutated after load
	current  *frame.Frame // materialization of the executed prefix
	mode     Mode
	hist     *history.History
	notifier Notifier

	inFlight bool
	done     chan struct{}
	cancel   context.CancelFunc
}

// New creates a session over an already-loaded base frame.
func New(name string, base *frame.Frame, mode Mode, notifier Notifier) *Session {
	if notifier == nil {
		notifier = NotifierFunc(func(Message) {})
	}
	return &Session{
		name:     name,
		base:     base,
		current:  base,
		mode:     mode,
		hist:     history.New(),
		notifier: notifier,
	}
}

// NewFromSource creates a session by collecting a deferred dataset source.
// An already-loaded frame satisfies the same contract through frame.Eager.
func NewFromSource(ctx context.Context, name string, src frame.Source, mode Mode, notifier Notifier) (*Session, error) {
	base, err := src.Collect(ctx)
	if err != nil {
		return nil, err
	}
	return New(name, base, mode, notifier), nil
}

// Name returns the session's name.
func (s *Session) Name() string { return s.name }

// Base returns the immutable loaded frame.
func (s *Session) Base() *frame.Frame { return s.base }

// Frame returns the current materialized frame. It may be stale relative to
// the history while lazy-queued operations have not been executed yet.
func (s *Session) Frame() *frame.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Schema returns the schema of the current materialized frame.
func (s *Session) Schema() frame.Schema {
	return s.Frame().Schema()
}

// Mode returns the current execution mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode switches the execution mode. Existing entries keep their states:
// switching lazy to eager affects only subsequent submissions.
func (s *Session) SetMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
}

// Entries returns the history entries in application order.
func (s *Session) Entries() []*op.Operation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.Entries()
}

// ActiveEntries returns the non-undone entries in application order.
func (s *Session) ActiveEntries() []*op.Operation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.ActiveEntries()
}

// RedoLen returns the number of entries available for redo.
func (s *Session) RedoLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.RedoLen()
}

// Submit appends o to the history. The operation was already validated
// against this session's schema at construction. In eager mode the
// materialization pass starts immediately; in lazy mode the operation stays
// queued until ExecuteQueued.
func (s *Session) Submit(o *op.Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return ErrBusy
	}

	s.hist.Append(o)
	s.notifier.Notify(OperationUpdated{
		Session: s.name, ID: o.ID, Label: o.Label(), State: o.State(),
	})

	if runNow(s.mode) {
		s.startMaterializeLocked(engine.Options{})
	}
	return nil
}

// ExecuteQueued runs all queued operations, halting at the first failure.
// It is the explicit execute request of lazy mode, but works in any mode.
func (s *Session) ExecuteQueued() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return ErrBusy
	}
	s.startMaterializeLocked(engine.Options{})
	return nil
}

// Undo removes the most recent non-undone entry. If that entry had been
// executed, its effect is baked into the materialized frame, so a full
// rebuild pass is started to restore the invariant that the frame equals
// the executed prefix of the history.
func (s *Session) Undo() (*op.Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return nil, ErrBusy
	}

	o, prior, err := s.hist.Undo()
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(OperationUpdated{
		Session: s.name, ID: o.ID, Label: o.Label(), State: o.State(),
	})

	if prior == op.Executed {
		s.startMaterializeLocked(engine.Options{FullRebuild: true})
	}
	return o, nil
}

// Redo restores the most recently undone entry. It comes back queued; in
// eager mode it is re-executed immediately.
func (s *Session) Redo() (*op.Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return nil, ErrBusy
	}

	o, err := s.hist.Redo()
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(OperationUpdated{
		Session: s.name, ID: o.ID, Label: o.Label(), State: o.State(),
	})

	if runNow(s.mode) {
		s.startMaterializeLocked(engine.Options{})
	}
	return o, nil
}

// Cancel requests cancellation of the in-flight materialization pass, if
// any. The engine observes it between steps; the frame keeps the last
// fully-completed step's result.
func (s *Session) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the in-flight materialization pass, if any, completes.
func (s *Session) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// startMaterializeLocked dispatches a materialization pass on a background
// goroutine. Caller must hold s.mu and have checked s.inFlight.
func (s *Session) startMaterializeLocked(opts engine.Options) {
	ctx, cancel := context.WithCancel(context.Background())
	s.inFlight = true
	s.cancel = cancel
	s.done = make(chan struct{})

	base := s.base
	cached := s.current
	entries := s.hist.ActiveEntries()
	done := s.done

	go func() {
		defer close(done)
		defer cancel()

		res := engine.Materialize(ctx, base, cached, entries, opts)

		s.mu.Lock()
		s.current = res.Frame
		s.inFlight = false
		s.cancel = nil
		s.mu.Unlock()

		for _, out := range res.Outcomes {
			if out.Status == engine.StatusCached || out.Status == engine.StatusSkipped {
				continue
			}
			if o, ok := findEntry(entries, out.OperationID); ok {
				s.notifier.Notify(OperationUpdated{
					Session: s.name, ID: o.ID, Label: o.Label(), State: o.State(), Err: o.Err(),
				})
			}
		}

		s.notifier.Notify(FrameUpdated{Session: s.name, Frame: res.Frame, Schema: res.Frame.Schema()})

		var failed *op.OperationError
		if res.Failed != nil {
			failed = res.Failed.Err
			if failed != nil && failed.Kind == frame.EngineInternal {
				slog.Error("engine internal failure",
					"session", s.name,
					"operation", res.Failed.Label,
					"error", failed.Message)
			}
		}
		s.notifier.Notify(MaterializeDone{Session: s.name, Failed: failed, Canceled: res.Canceled})
	}()
}

func findEntry(entries []*op.Operation, id string) (*op.Operation, bool) {
	for _, o := range entries {
		if o.ID == id {
			return o, true
		}
	}
	return nil, false
}

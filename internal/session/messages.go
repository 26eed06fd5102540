package session

import (
	"github.com/siftdata/sift/internal/frame"
	"github.com/siftdata/sift/internal/op"
)

// Message is an immutable state-change notification emitted by a session.
// The presentation layer subscribes to these; the core never holds a
// reference back into rendering objects.
type Message interface {
	sessionMessage()
}

// FrameUpdated carries a newly materialized frame and its schema.
type FrameUpdated struct {
	Session string
	Frame   *frame.Frame
	Schema  frame.Schema
}

// OperationUpdated reports a lifecycle change of one operation, for sidebar
// rendering.
type OperationUpdated struct {
	Session string
	ID      string
	Label   string
	State   op.State
	Err     *op.OperationError
}

// MaterializeDone reports completion of a background materialization pass.
// Failed carries the first failure, if any; Canceled is set when the pass
// was cut short by a cancel request.
type MaterializeDone struct {
	Session  string
	Failed   *op.OperationError
	Canceled bool
}

func (FrameUpdated) sessionMessage()     {}
func (OperationUpdated) sessionMessage() {}
func (MaterializeDone) sessionMessage()  {}

// Notifier receives session messages. Implementations must not block for
// long; delivery happens on the materialization goroutine.
type Notifier interface {
	Notify(msg Message)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(msg Message)

// Notify calls fn.
func (fn NotifierFunc) Notify(msg Message) { fn(msg) }

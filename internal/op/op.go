// Package op defines the operation model: an immutable description of one
// dataset transformation plus its mutable lifecycle state. Operations are
// validated before construction succeeds, so a history never holds an entry
// that cannot be replayed.
package op

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/siftdata/sift/internal/frame"
)

// State is the lifecycle state of an operation.
type State string

const (
	// Queued means the operation has been accepted but not yet applied.
	Queued State = "queued"
	// Executed means the operation was applied successfully.
	Executed State = "executed"
	// Failed means applying the operation produced an OperationError.
	Failed State = "failed"
	// Undone means the operation was removed from the active history by undo.
	Undone State = "undone"
)

// Kind identifies the transformation an operation performs.
type Kind string

const (
	KindFilter     Kind = "filter"
	KindSearch     Kind = "search"
	KindAggregate  Kind = "aggregate"
	KindPivot      Kind = "pivot"
	KindJoin       Kind = "join"
	KindSort       Kind = "sort"
	KindColumnEdit Kind = "column_edit"
)

// ValidationError reports structurally invalid operation parameters. It is
// raised at construction time; operations carrying a ValidationError never
// exist.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid operation: " + e.Message
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// OperationError reports a failure while applying an operation's transform.
// It is attached to the failing operation and never aborts the process.
type OperationError struct {
	Kind    frame.ErrorKind `json:"kind"`
	Message string          `json:"message"`
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// fromEngine converts an engine error into an operation error.
func fromEngine(err *frame.EngineError) *OperationError {
	if err == nil {
		return nil
	}
	return &OperationError{Kind: err.Kind, Message: err.Message}
}

// Params is the kind-specific payload of an operation. The transform is
// derived from the params alone, so replaying an operation against the same
// frame always yields the same result.
type Params interface {
	// Kind identifies the transformation.
	Kind() Kind
	// Label renders a human-readable summary of the transformation.
	Label() string
	// Validate checks the params against the schema the operation will first
	// apply to. Returns nil when structurally valid.
	Validate(schema frame.Schema) *ValidationError
	// apply runs the transform.
	apply(f *frame.Frame) (*frame.Frame, *frame.EngineError)
}

// Operation is one user-requested transformation with a lifecycle state.
// Params and ID are immutable after construction; Seq is assigned once when
// the operation enters a history. The lifecycle state is guarded by its own
// lock: a materialization pass mutates it from a background goroutine while
// views may read it.
type Operation struct {
	ID     string
	Seq    uint64
	Params Params

	mu    sync.Mutex
	state State
	err   *OperationError
}

// New validates params against the schema and constructs a queued operation.
func New(params Params, schema frame.Schema) (*Operation, error) {
	if params == nil {
		return nil, validationErrorf("missing parameters")
	}
	if verr := params.Validate(schema); verr != nil {
		return nil, verr
	}
	return &Operation{
		ID:     uuid.NewString(),
		Params: params,
		state:  Queued,
	}, nil
}

// Kind returns the operation's transformation kind.
func (o *Operation) Kind() Kind { return o.Params.Kind() }

// Label returns the display label derived from kind and params.
func (o *Operation) Label() string { return o.Params.Label() }

// State returns the current lifecycle state.
func (o *Operation) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Err returns the error recorded by the most recent failed application.
func (o *Operation) Err() *OperationError {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// Apply runs the operation's transform against f. It is a pure function of
// f and the operation's params; it does not touch lifecycle state.
func (o *Operation) Apply(f *frame.Frame) (*frame.Frame, *OperationError) {
	out, eerr := o.Params.apply(f)
	if eerr != nil {
		return nil, fromEngine(eerr)
	}
	return out, nil
}

// MarkExecuted records a successful application.
func (o *Operation) MarkExecuted() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = Executed
	o.err = nil
}

// MarkFailed records a failed application.
func (o *Operation) MarkFailed(err *OperationError) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = Failed
	o.err = err
}

// MarkUndone removes the operation from the active history.
func (o *Operation) MarkUndone() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = Undone
}

// MarkQueued returns the operation to the queued state (redo, or a full
// rebuild that must re-execute everything).
func (o *Operation) MarkQueued() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = Queued
	o.err = nil
}

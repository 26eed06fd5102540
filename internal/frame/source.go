package frame

import "context"

// Source supplies a frame on demand. Loaders may return a deferred scan so
// that large inputs are only read when first materialized; an already-loaded
// frame satisfies the same contract via Eager.
type Source interface {
	// Collect produces the frame, reading the underlying data if necessary.
	Collect(ctx context.Context) (*Frame, error)
}

// Eager wraps an in-memory frame as a Source.
type Eager struct {
	Frame *Frame
}

// Collect returns the wrapped frame.
func (e Eager) Collect(context.Context) (*Frame, error) {
	return e.Frame, nil
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (*Frame, error)

// Collect calls fn.
func (fn SourceFunc) Collect(ctx context.Context) (*Frame, error) {
	return fn(ctx)
}

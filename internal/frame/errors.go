package frame

import "fmt"

// ErrorKind classifies engine failures so callers can react to them
// programmatically rather than by matching message text.
type ErrorKind string

const (
	TypeMismatch    ErrorKind = "TypeMismatch"
	ColumnNotFound  ErrorKind = "ColumnNotFound"
	InvalidOperator ErrorKind = "InvalidOperator"
	EngineInternal  ErrorKind = "EngineInternal"
)

// EngineError is the only error type returned by frame operations.
type EngineError struct {
	Kind    ErrorKind
	Message string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func errColumnNotFound(name string) *EngineError {
	return &EngineError{Kind: ColumnNotFound, Message: fmt.Sprintf("column %q does not exist", name)}
}

func errTypeMismatch(format string, args ...any) *EngineError {
	return &EngineError{Kind: TypeMismatch, Message: fmt.Sprintf(format, args...)}
}

func errInvalidOperator(format string, args ...any) *EngineError {
	return &EngineError{Kind: InvalidOperator, Message: fmt.Sprintf(format, args...)}
}

func errInternal(format string, args ...any) *EngineError {
	return &EngineError{Kind: EngineInternal, Message: fmt.Sprintf(format, args...)}
}

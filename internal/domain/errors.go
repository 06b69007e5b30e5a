package domain

import "fmt"

// ErrorKind is the closed set of error codes the engine surfaces to tool
// callers (§7). Adapter-level failures are classified and absorbed
// before they ever reach this boundary.
type ErrorKind string

const (
	ErrNotFound      ErrorKind = "not_found"
	ErrValidation    ErrorKind = "validation"
	ErrTimeout       ErrorKind = "timeout"
	ErrDegraded      ErrorKind = "degraded_result"
	ErrCircuitOpen   ErrorKind = "circuit_open"
	ErrInternal      ErrorKind = "internal"
	ErrConfiguration ErrorKind = "configuration"
)

// ToolError is the sum-type-as-struct translation of the engine's error
// union (Design Notes §9): every tool outcome is either a response, a
// degraded response, or one ToolError of a fixed kind.
type ToolError struct {
	Code          ErrorKind
	Message       string
	Details       map[string]any
	CorrelationID string
	cause         error
}

func (e *ToolError) Error() string {
	if e.CorrelationID != "" {
		return fmt.Sprintf("%s: %s (correlation_id=%s)", e.Code, e.Message, e.CorrelationID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ToolError) Unwrap() error { return e.cause }

// WithCause attaches an underlying cause, returning the receiver.
func (e *ToolError) WithCause(err error) *ToolError {
	e.cause = err
	return e
}

// NotFound builds a not_found ToolError naming the missing entity.
func NotFound(entityKind, entityID string) *ToolError {
	return &ToolError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s %q not found", entityKind, entityID),
		Details: map[string]any{"entity_kind": entityKind, "entity_id": entityID},
	}
}

// Validation builds a validation ToolError naming the offending fields.
func Validation(fieldPaths ...string) *ToolError {
	return &ToolError{
		Code:    ErrValidation,
		Message: "request failed argument validation",
		Details: map[string]any{"field_paths": fieldPaths},
	}
}

// Timeout builds a timeout ToolError.
func Timeout(msg string) *ToolError {
	return &ToolError{Code: ErrTimeout, Message: msg}
}

// CircuitOpen builds a circuit_open ToolError naming the tripped upstream.
func CircuitOpen(upstream string) *ToolError {
	return &ToolError{
		Code:    ErrCircuitOpen,
		Message: fmt.Sprintf("upstream %q is circuit-open", upstream),
		Details: map[string]any{"upstream": upstream},
	}
}

// Internal builds an internal ToolError carrying a correlation id for
// log lookup.
func Internal(correlationID string, err error) *ToolError {
	te := &ToolError{
		Code:          ErrInternal,
		Message:       "internal error",
		CorrelationID: correlationID,
	}
	return te.WithCause(err)
}

// Configuration builds a startup-time configuration ToolError.
func Configuration(msg string) *ToolError {
	return &ToolError{Code: ErrConfiguration, Message: msg}
}

// IsKind reports whether err is a *ToolError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	te, ok := err.(*ToolError)
	return ok && te.Code == kind
}

package domain

import (
	"errors"
	"fmt"
)

// Common engine errors. Construction-time failures (wiring, cycles, names)
// and execution-time failures (unbound boundary values) share one taxonomy
// so callers can classify with errors.Is regardless of which layer raised
// them.
var (
	// ErrShapeMismatch indicates a value's dimensionality is incompatible
	// with the operation's requirements.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrTypeMismatch indicates a value's kind does not match the port's
	// declared kind.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrMissingWiring indicates a declared slot was left without a source
	// during graph construction.
	ErrMissingWiring = errors.New("missing wiring")

	// ErrCycleDetected indicates a wiring edge would make a tube feed,
	// directly or transitively, a slot of the tank that produced it.
	ErrCycleDetected = errors.New("cycle detected")

	// ErrNameCollision indicates two graph members were given the same
	// namespaced identifier.
	ErrNameCollision = errors.New("name collision")

	// ErrUnboundPlaceholder indicates a pour call left a placeholder
	// without a value and no default was declared.
	ErrUnboundPlaceholder = errors.New("unbound placeholder")

	// ErrMissingTapValue indicates a pump call could not resolve a tube
	// value needed to reconstruct the inputs.
	ErrMissingTapValue = errors.New("missing tap value")

	// ErrInvalidPath indicates a string port path could not be decoded.
	ErrInvalidPath = errors.New("invalid port path")

	// ErrFrozen indicates a construction call on a finalized graph.
	ErrFrozen = errors.New("waterwork is frozen")

	// ErrNotFrozen indicates an execution call on an unfinalized graph.
	ErrNotFrozen = errors.New("waterwork is not frozen")
)

// PortError attaches the offending port identifier and the operation in
// flight to an underlying engine error so failures can be diagnosed from
// the error alone.
type PortError struct {
	// Port is the identifier of the port involved in the failure.
	Port PortKey

	// Op names the operation that was being performed, e.g. "pour" or
	// "add_tank".
	Op string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for PortError.
func (e *PortError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
}

// Unwrap returns the underlying error, supporting errors.Is and errors.As.
func (e *PortError) Unwrap() error { return e.Err }

// NewPortError creates a PortError for the given port and operation.
func NewPortError(port PortKey, op string, err error) *PortError {
	return &PortError{Port: port, Op: op, Err: err}
}

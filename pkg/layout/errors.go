package layout

import (
	"errors"
	"fmt"
)

// Sentinel errors for layout operations. Callers match these with errors.Is;
// the wire layer maps them onto status codes.
var (
	// ErrInvalidDimensions indicates a non-positive or non-finite bounding
	// box dimension.
	ErrInvalidDimensions = errors.New("invalid dimensions")

	// ErrInsufficientBuffer indicates a caller-provided output slice with
	// fewer slots than accepted nodes.
	ErrInsufficientBuffer = errors.New("insufficient output buffer")

	// ErrSessionClosed indicates an operation on a session after Close.
	ErrSessionClosed = errors.New("session closed")

	// ErrComputeCancelled indicates a compute run abandoned because its
	// context was cancelled or timed out.
	ErrComputeCancelled = errors.New("compute cancelled")

	// ErrInvalidHandle indicates a handle that was never issued or has
	// already been destroyed.
	ErrInvalidHandle = errors.New("invalid handle")

	// ErrAllocationFailure indicates the engine could not set aside the
	// resources a session needs.
	ErrAllocationFailure = errors.New("allocation failure")
)

// LayoutError carries structured context about a failed layout operation.
type LayoutError struct {
	// Op is the operation that failed: "create", "compute", "destroy".
	Op string

	// Handle is the session handle involved, when one exists yet.
	Handle uint64

	// Context carries optional human-readable detail.
	Context string

	// Cause is the underlying error, usually one of the sentinels above.
	Cause error
}

// Error implements the error interface with cascading detail.
func (e *LayoutError) Error() string {
	switch {
	case e.Handle != 0 && e.Context != "":
		return fmt.Sprintf("layout %s: handle %d: %s: %v", e.Op, e.Handle, e.Context, e.Cause)
	case e.Handle != 0:
		return fmt.Sprintf("layout %s: handle %d: %v", e.Op, e.Handle, e.Cause)
	case e.Context != "":
		return fmt.Sprintf("layout %s: %s: %v", e.Op, e.Context, e.Cause)
	default:
		return fmt.Sprintf("layout %s: %v", e.Op, e.Cause)
	}
}

// Unwrap exposes the cause for errors.Is and errors.As.
func (e *LayoutError) Unwrap() error {
	return e.Cause
}

// Is matches against the wrapped cause so sentinel comparisons work through
// the structured wrapper.
func (e *LayoutError) Is(target error) bool {
	return errors.Is(e.Cause, target)
}

// ErrorBuilder assembles a LayoutError fluently.
type ErrorBuilder struct {
	err LayoutError
}

// NewError starts building an error for the named operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: LayoutError{Op: op}}
}

// Handle records the session handle involved.
func (b *ErrorBuilder) Handle(h uint64) *ErrorBuilder {
	b.err.Handle = h
	return b
}

// Context adds formatted detail.
func (b *ErrorBuilder) Context(format string, args ...interface{}) *ErrorBuilder {
	b.err.Context = fmt.Sprintf(format, args...)
	return b
}

// Cause sets the underlying error.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Err finalizes the build.
func (b *ErrorBuilder) Err() error {
	return &b.err
}

// IsInvalidDimensions reports whether err stems from a bad bounding box.
func IsInvalidDimensions(err error) bool {
	return errors.Is(err, ErrInvalidDimensions)
}

// IsInvalidHandle reports whether err stems from an unknown or destroyed
// handle.
func IsInvalidHandle(err error) bool {
	return errors.Is(err, ErrInvalidHandle)
}

// IsCancelled reports whether err stems from an abandoned compute run.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrComputeCancelled)
}

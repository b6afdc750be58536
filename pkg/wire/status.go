package wire

import (
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-layout/pkg/layout"
)

// Status is the numeric result code at the head of every response payload.
type Status uint32

const (
	StatusOK                 Status = 0
	StatusInvalidDimensions  Status = 1
	StatusInvalidHandle      Status = 2
	StatusInsufficientBuffer Status = 3
	StatusAllocationFailure  Status = 4
	StatusInternal           Status = 5
)

// ErrInternal is reported for failures the protocol has no dedicated status
// for, including panics caught at the request boundary.
var ErrInternal = errors.New("internal error")

// StatusFromError maps an engine error onto its wire status. Unknown errors
// collapse to StatusInternal rather than leaking local detail.
func StatusFromError(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, layout.ErrInvalidDimensions):
		return StatusInvalidDimensions
	case errors.Is(err, layout.ErrInvalidHandle), errors.Is(err, layout.ErrSessionClosed):
		// A closed session is indistinguishable from a destroyed handle on
		// the caller's side of the boundary.
		return StatusInvalidHandle
	case errors.Is(err, layout.ErrInsufficientBuffer):
		return StatusInsufficientBuffer
	case errors.Is(err, layout.ErrAllocationFailure):
		return StatusAllocationFailure
	default:
		return StatusInternal
	}
}

// Err converts a status back into the sentinel a client caller can match
// with errors.Is. StatusOK yields nil.
func (s Status) Err() error {
	switch s {
	case StatusOK:
		return nil
	case StatusInvalidDimensions:
		return layout.ErrInvalidDimensions
	case StatusInvalidHandle:
		return layout.ErrInvalidHandle
	case StatusInsufficientBuffer:
		return layout.ErrInsufficientBuffer
	case StatusAllocationFailure:
		return layout.ErrAllocationFailure
	case StatusInternal:
		return ErrInternal
	default:
		return fmt.Errorf("%w: unknown status %d", ErrInternal, uint32(s))
	}
}

// String names the status for logs and metric labels.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInvalidDimensions:
		return "invalid_dimensions"
	case StatusInvalidHandle:
		return "invalid_handle"
	case StatusInsufficientBuffer:
		return "insufficient_buffer"
	case StatusAllocationFailure:
		return "allocation_failure"
	case StatusInternal:
		return "internal"
	default:
		return fmt.Sprintf("status_%d", uint32(s))
	}
}

package ring

import (
	"fmt"

	"github.com/openeeg/headband.go/pkg/fault"
)

var (
	// ErrBadSegment indicates the segment is misaligned or too small.
	ErrBadSegment = fault.New(fault.Fatal, "bad shared memory segment")
	// ErrBadCapacity indicates the capacity is not a power of two.
	ErrBadCapacity = fault.New(fault.Fatal, "capacity must be a power of two")
	// ErrCorrupted indicates indices that no valid producer/consumer
	// pair can produce.
	ErrCorrupted = fault.New(fault.Fatal, "ring indices corrupted")
	// ErrAlreadyReset indicates Reset is called more than once.
	ErrAlreadyReset = fault.New(fault.Discipline, "ring already reset")
	// ErrAlreadyAcquired indicates a second acquisition of a handle.
	ErrAlreadyAcquired = fault.New(fault.Discipline, "ring handle already acquired")
	// ErrUninitialized indicates the shared header has not been reset.
	ErrUninitialized = fault.New(fault.Discipline, "ring not initialized")
	// ErrNoSignal indicates Recv on a consumer without change notification.
	ErrNoSignal = fault.New(fault.Discipline, "consumer has no signal to wait on")
	// ErrFull is matched by every FullError.
	ErrFull = fault.New(fault.Transient, "ring full")
)

// FullError is returned by Send when the queue is at capacity.
// It carries the rejected value back to the caller.
type FullError struct {
	Value uint64
}

// Error implements error.
func (e *FullError) Error() string {
	return fmt.Sprintf("ring full, rejected %#x", e.Value)
}

// FaultKind implements fault.Classified.
func (e *FullError) FaultKind() fault.Kind {
	return fault.Transient
}

// Is matches ErrFull.
func (e *FullError) Is(target error) bool {
	return target == ErrFull
}

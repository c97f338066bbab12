package lifecycle

import (
	"fmt"

	"github.com/openeeg/headband.go/pkg/fault"
)

var (
	// ErrOrdering is matched by every OrderError.
	ErrOrdering = fault.New(fault.Fatal, "boot ordering violation")
	// ErrRegionNotGranted indicates release attempted while the shared
	// region is not accessible to the peer.
	ErrRegionNotGranted = fault.New(fault.Fatal, "shared region not granted")
)

// OrderError reports a step invoked out of order. The controller
// state is left unchanged.
type OrderError struct {
	Track    Track
	Step     string
	State    State
	Requires State
}

// Error implements error.
func (e *OrderError) Error() string {
	return fmt.Sprintf("%s: %s requires %s, current state is %s", e.Track, e.Step, e.Requires, e.State)
}

// Unwrap returns ErrOrdering.
func (e *OrderError) Unwrap() error {
	return ErrOrdering
}

// FaultKind implements fault.Classified.
func (e *OrderError) FaultKind() fault.Kind {
	return fault.Fatal
}

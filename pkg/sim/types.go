// Package sim simulates the dual-core chip the firmware runs on:
// shared RAM, the security unit partitioning it, the IPC peripheral
// and the reset line of the network core.
package sim

import (
	"fmt"

	"github.com/openeeg/headband.go/pkg/fault"
	"github.com/openeeg/headband.go/pkg/layout"
)

var (
	// ErrNoRegion indicates an SPU region index out of range.
	ErrNoRegion = fault.New(fault.Fatal, "no such RAM region")
	// ErrRegionLocked indicates a write to a locked SPU region.
	ErrRegionLocked = fault.New(fault.Fatal, "RAM region locked")
	// ErrNoImage indicates the network core is released without firmware.
	ErrNoImage = fault.New(fault.Fatal, "no firmware for network core")
)

// AccessFault is the bus fault raised on an access the SPU denies or
// an address outside RAM.
type AccessFault struct {
	Core  layout.Core
	Addr  uint32
	Write bool
}

// Error implements error.
func (f *AccessFault) Error() string {
	access := "read"
	if f.Write {
		access = "write"
	}
	return fmt.Sprintf("%s core: %s access fault at 0x%08x", f.Core, access, f.Addr)
}

// FaultKind implements fault.Classified.
func (f *AccessFault) FaultKind() fault.Kind {
	return fault.Fatal
}

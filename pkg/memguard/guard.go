// Package memguard grants the peer core access to shared RAM through
// the security unit of the security-privileged core.
package memguard

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/openeeg/headband.go/pkg/fault"
)

// Production memory map of the application core.
const (
	RAMBase     uint32 = 0x20000000
	RAMSize     uint32 = 0x00080000
	Granularity uint32 = 0x2000

	SharedStart uint32 = 0x20040000
	SharedEnd   uint32 = 0x20080000
)

// ErrBadRange indicates a range outside RAM or empty.
var ErrBadRange = fault.New(fault.Fatal, "bad memory range")

// Perm is the permission set of one RAM region cell.
type Perm struct {
	Read  bool
	Write bool
	Lock  bool
}

// SharedAccess is granted to every cell of the shared window.
var SharedAccess = Perm{Read: true, Write: true, Lock: false}

func (p Perm) String() string {
	b := []byte("---")
	if p.Read {
		b[0] = 'r'
	}
	if p.Write {
		b[1] = 'w'
	}
	if p.Lock {
		b[2] = 'l'
	}
	return string(b)
}

// Range is [Start, End) in absolute addresses.
type Range struct {
	Start uint32
	End   uint32
}

// SharedWindow is the production shared RAM window.
var SharedWindow = Range{Start: SharedStart, End: SharedEnd}

// Size returns the size in bytes.
func (r Range) Size() uint32 {
	return r.End - r.Start
}

func (r Range) String() string {
	return fmt.Sprintf("0x%08x-0x%08x", r.Start, r.End)
}

// SecurityUnit is the RAM region configuration of the hardware
// security unit.
type SecurityUnit interface {
	SetRAMRegionPerm(index int, perm Perm) error
	RAMRegionPerm(index int) (Perm, error)
}

// Guard grants ranges of RAM through a SecurityUnit.
type Guard struct {
	Unit        SecurityUnit
	RAMBase     uint32
	Granularity uint32
}

// New creates a Guard with the production memory map.
func New(unit SecurityUnit) *Guard {
	return &Guard{Unit: unit, RAMBase: RAMBase, Granularity: Granularity}
}

// Cells returns the indices [first, last) of the cells covering r.
func (g *Guard) Cells(r Range) (first, last int, err error) {
	if r.End <= r.Start || r.Start < g.RAMBase || g.Granularity == 0 {
		return 0, 0, fmt.Errorf("%w: %v", ErrBadRange, r)
	}
	first = int((r.Start - g.RAMBase) / g.Granularity)
	last = int((r.End - g.RAMBase + g.Granularity - 1) / g.Granularity)
	return first, last, nil
}

// GrantSharedAccess sets every cell covering r to SharedAccess. It must
// run before the peer core is released. The unit refuses locked cells
// and indices it does not have. An access the peer makes to an
// ungranted cell faults in hardware.
func (g *Guard) GrantSharedAccess(r Range) error {
	first, last, err := g.Cells(r)
	if err != nil {
		return err
	}
	for i := first; i < last; i++ {
		if err := g.Unit.SetRAMRegionPerm(i, SharedAccess); err != nil {
			return fmt.Errorf("grant region %d: %w", i, err)
		}
	}
	glog.Infof("granted shared access to %v (regions %d-%d)", r, first, last-1)
	return nil
}

// Covered reports whether every cell covering r allows shared access.
func (g *Guard) Covered(r Range) bool {
	first, last, err := g.Cells(r)
	if err != nil {
		return false
	}
	for i := first; i < last; i++ {
		perm, err := g.Unit.RAMRegionPerm(i)
		if err != nil || !perm.Read || !perm.Write {
			return false
		}
	}
	return true
}

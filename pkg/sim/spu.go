package sim

import (
	"fmt"
	"sync"

	"github.com/openeeg/headband.go/pkg/layout"
	"github.com/openeeg/headband.go/pkg/memguard"
)

// SPU is the system protection unit. It keeps one permission set per
// RAM region cell for accesses from the non-secure network core.
type SPU struct {
	base        uint32
	granularity uint32

	lock  sync.RWMutex
	cells []memguard.Perm
}

// NewSPU creates an SPU covering size bytes of RAM at base.
func NewSPU(base, size, granularity uint32) *SPU {
	return &SPU{
		base:        base,
		granularity: granularity,
		cells:       make([]memguard.Perm, size/granularity),
	}
}

// SetRAMRegionPerm implements memguard.SecurityUnit.
func (s *SPU) SetRAMRegionPerm(index int, perm memguard.Perm) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if index < 0 || index >= len(s.cells) {
		return fmt.Errorf("%w: %d", ErrNoRegion, index)
	}
	if s.cells[index].Lock {
		return fmt.Errorf("%w: %d", ErrRegionLocked, index)
	}
	s.cells[index] = perm
	return nil
}

// RAMRegionPerm implements memguard.SecurityUnit.
func (s *SPU) RAMRegionPerm(index int) (memguard.Perm, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if index < 0 || index >= len(s.cells) {
		return memguard.Perm{}, fmt.Errorf("%w: %d", ErrNoRegion, index)
	}
	return s.cells[index], nil
}

// Regions returns a copy of all cells.
func (s *SPU) Regions() []memguard.Perm {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return append([]memguard.Perm(nil), s.cells...)
}

// Granularity returns the size of a cell.
func (s *SPU) Granularity() uint32 {
	return s.granularity
}

// Reset restores the power-on state where nothing is granted.
func (s *SPU) Reset() {
	s.lock.Lock()
	for i := range s.cells {
		s.cells[i] = memguard.Perm{}
	}
	s.lock.Unlock()
}

// Check faults on the first cell in [start, start+size) denying the
// access.
func (s *SPU) Check(core layout.Core, start, size uint32, write bool) error {
	s.lock.RLock()
	defer s.lock.RUnlock()
	for addr := start - (start-s.base)%s.granularity; uint64(addr) < uint64(start)+uint64(size); addr += s.granularity {
		i := int((addr - s.base) / s.granularity)
		if i >= len(s.cells) {
			return &AccessFault{Core: core, Addr: addr, Write: write}
		}
		perm := s.cells[i]
		if !perm.Read || (write && !perm.Write) {
			if addr < start {
				addr = start
			}
			return &AccessFault{Core: core, Addr: addr, Write: write}
		}
	}
	return nil
}

package sim

import (
	"math/rand"

	"github.com/openeeg/headband.go/pkg/layout"
	"github.com/openeeg/headband.go/pkg/ring"
)

// RAM is the physical RAM both cores share.
type RAM struct {
	seg *ring.Segment
	spu *SPU
}

// NewRAM allocates RAM at base. Accesses from the network core are
// checked against spu.
func NewRAM(base, size uint32, spu *SPU) (*RAM, error) {
	seg, err := ring.Alloc(base, uint64(size))
	if err != nil {
		return nil, err
	}
	return &RAM{seg: seg, spu: spu}, nil
}

// Base returns the base address.
func (r *RAM) Base() uint32 {
	return r.seg.Base
}

// PowerOn fills RAM with arbitrary contents.
func (r *RAM) PowerOn(seed int64) {
	rand.New(rand.NewSource(seed)).Read(r.seg.Bytes())
}

// Map maps [base, base+size) for core. The network core faults on
// any cell the SPU does not grant read and write.
func (r *RAM) Map(core layout.Core, base, size uint32) (*ring.Segment, error) {
	if base < r.seg.Base || uint64(base)+uint64(size) > uint64(r.seg.End()) || size == 0 {
		return nil, &AccessFault{Core: core, Addr: base}
	}
	if core != layout.App && r.spu != nil {
		if err := r.spu.Check(core, base, size, true); err != nil {
			return nil, err
		}
	}
	return r.seg.Sub(base-r.seg.Base, size)
}

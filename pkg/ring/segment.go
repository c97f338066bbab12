package ring

import (
	"fmt"
	"unsafe"
)

// Segment is a window of shared RAM with a declared base address.
type Segment struct {
	Base uint32
	mem  []byte
}

// MaxAlloc is the largest segment Alloc provides.
const MaxAlloc = 1 << 30

// Alloc allocates word-aligned memory for a Segment. It backs
// simulated RAM and tests.
func Alloc(base uint32, size uint64) (*Segment, error) {
	if size == 0 || size > MaxAlloc {
		return nil, fmt.Errorf("%w: cannot allocate 0x%x bytes", ErrBadSegment, size)
	}
	if uint64(base)+size >= 1<<32 {
		return nil, fmt.Errorf("%w: exceeds address space", ErrBadSegment)
	}
	words := make([]uint64, (size+7)/8)
	mem := (*[MaxAlloc]byte)(unsafe.Pointer(&words[0]))[:size:size]
	return &Segment{Base: base, mem: mem}, nil
}

// NewSegment wraps memory mapped at base. Both the address and the
// backing memory must be 8-byte aligned.
func NewSegment(base uint32, mem []byte) (*Segment, error) {
	if len(mem) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrBadSegment)
	}
	if base%8 != 0 || uintptr(unsafe.Pointer(&mem[0]))%8 != 0 {
		return nil, fmt.Errorf("%w: 0x%08x not aligned", ErrBadSegment, base)
	}
	if uint64(base)+uint64(len(mem)) >= 1<<32 {
		return nil, fmt.Errorf("%w: exceeds address space", ErrBadSegment)
	}
	return &Segment{Base: base, mem: mem}, nil
}

// Len returns the size in bytes.
func (s *Segment) Len() int {
	return len(s.mem)
}

// End returns the address right after the segment.
func (s *Segment) End() uint32 {
	return s.Base + uint32(len(s.mem))
}

// Bytes exposes the raw memory.
func (s *Segment) Bytes() []byte {
	return s.mem
}

// Sub returns the part of the segment at offset with size bytes.
func (s *Segment) Sub(offset, size uint32) (*Segment, error) {
	if uint64(offset)+uint64(size) > uint64(len(s.mem)) || size == 0 {
		return nil, fmt.Errorf("%w: [0x%x, +0x%x) outside 0x%x bytes", ErrBadSegment, offset, size, len(s.mem))
	}
	return NewSegment(s.Base+offset, s.mem[offset:offset+size])
}

func (s *Segment) String() string {
	return fmt.Sprintf("0x%08x-0x%08x", s.Base, s.End())
}

package ring

import (
	"context"
	"fmt"
	"sync/atomic"
	"unsafe"
)

const (
	// HeaderSize is the size of the shared header.
	HeaderSize = 16
	// SlotSize is the size of one record.
	SlotSize = 8
	// Magic marks a header written by Reset.
	Magic uint32 = 0x51434358

	// MaxCapacity keeps free-running uint32 indices unambiguous.
	MaxCapacity = 1 << 31
)

// Size returns the number of bytes a queue with capacity occupies.
func Size(capacity uint32) uint64 {
	return HeaderSize + uint64(capacity)*SlotSize
}

// ValidCapacity reports whether capacity can be used for a queue.
func ValidCapacity(capacity uint32) bool {
	return capacity > 0 && capacity <= MaxCapacity && capacity&(capacity-1) == 0
}

type header struct {
	magic    uint32
	capacity uint32
	head     uint32
	tail     uint32
}

// Notifier is triggered after a record is enqueued.
type Notifier interface {
	Trigger()
}

// Changes is waited on by a consumer when the queue is empty.
type Changes interface {
	Changed(ctx context.Context) error
}

type token uint32

func (t *token) take() bool {
	return atomic.CompareAndSwapUint32((*uint32)(t), 0, 1)
}

// Queue is one core's view of a shared queue.
type Queue struct {
	seg      *Segment
	capacity uint32
	mask     uint32
	hdr      *header
	slots    []byte

	resetTok    token
	producerTok token
	consumerTok token
}

// Open creates a view of a queue with capacity slots at the start of
// seg. It does not touch shared memory.
func Open(seg *Segment, capacity uint32) (*Queue, error) {
	if !ValidCapacity(capacity) {
		return nil, fmt.Errorf("%w: %d", ErrBadCapacity, capacity)
	}
	size := Size(capacity)
	if uint64(seg.Len()) < size {
		return nil, fmt.Errorf("%w: %d slots need 0x%x bytes, segment %v has 0x%x",
			ErrBadSegment, capacity, size, seg, seg.Len())
	}
	return &Queue{
		seg:      seg,
		capacity: capacity,
		mask:     capacity - 1,
		hdr:      (*header)(unsafe.Pointer(&seg.mem[0])),
		slots:    seg.mem[HeaderSize:size],
	}, nil
}

// Segment returns the segment the queue lives in.
func (q *Queue) Segment() *Segment {
	return q.seg
}

// Cap returns the capacity.
func (q *Queue) Cap() int {
	return int(q.capacity)
}

// Reset initializes the shared header to empty. It must run exactly
// once per boot, before either side acquires a handle.
func (q *Queue) Reset() error {
	if !q.resetTok.take() {
		return ErrAlreadyReset
	}
	atomic.StoreUint32(&q.hdr.magic, 0)
	atomic.StoreUint32(&q.hdr.capacity, q.capacity)
	atomic.StoreUint32(&q.hdr.head, 0)
	atomic.StoreUint32(&q.hdr.tail, 0)
	atomic.StoreUint32(&q.hdr.magic, Magic)
	return nil
}

// Initialized reports whether the shared header matches this view.
func (q *Queue) Initialized() bool {
	return atomic.LoadUint32(&q.hdr.magic) == Magic &&
		atomic.LoadUint32(&q.hdr.capacity) == q.capacity
}

// Len returns the number of records in the queue.
func (q *Queue) Len() int {
	return int(atomic.LoadUint32(&q.hdr.tail) - atomic.LoadUint32(&q.hdr.head))
}

// Producer acquires the write end. notify may be nil.
func (q *Queue) Producer(notify Notifier) (*Producer, error) {
	if !q.Initialized() {
		return nil, ErrUninitialized
	}
	if !q.producerTok.take() {
		return nil, ErrAlreadyAcquired
	}
	return &Producer{q: q, notify: notify, tail: atomic.LoadUint32(&q.hdr.tail)}, nil
}

// Consumer acquires the read end. changes may be nil if only TryRecv
// is used.
func (q *Queue) Consumer(changes Changes) (*Consumer, error) {
	if !q.Initialized() {
		return nil, ErrUninitialized
	}
	if !q.consumerTok.take() {
		return nil, ErrAlreadyAcquired
	}
	return &Consumer{q: q, changes: changes, head: atomic.LoadUint32(&q.hdr.head)}, nil
}

func (q *Queue) slot(index uint32) []byte {
	off := (index & q.mask) * SlotSize
	return q.slots[off : off+SlotSize]
}

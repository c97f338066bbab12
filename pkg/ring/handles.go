package ring

import (
	"context"
	"encoding/binary"
	"sync/atomic"
)

// Producer is the write end of a Queue. It must be used by a single
// task.
type Producer struct {
	q      *Queue
	notify Notifier
	tail   uint32
}

// Send enqueues v. It never blocks and never overwrites. When the
// queue is full it returns a *FullError carrying v.
func (p *Producer) Send(v uint64) error {
	head := atomic.LoadUint32(&p.q.hdr.head)
	used := p.tail - head
	if used > p.q.capacity {
		return ErrCorrupted
	}
	if used == p.q.capacity {
		return &FullError{Value: v}
	}
	binary.LittleEndian.PutUint64(p.q.slot(p.tail), v)
	p.tail++
	// publishing the index makes the slot visible to the consumer.
	atomic.StoreUint32(&p.q.hdr.tail, p.tail)
	if p.notify != nil {
		p.notify.Trigger()
	}
	return nil
}

// Free returns the number of free slots as seen by the producer.
func (p *Producer) Free() int {
	return int(p.q.capacity - (p.tail - atomic.LoadUint32(&p.q.hdr.head)))
}

// Consumer is the read end of a Queue. It must be used by a single
// task.
type Consumer struct {
	q       *Queue
	changes Changes
	head    uint32
}

// TryRecv dequeues one record if present.
func (c *Consumer) TryRecv() (uint64, bool, error) {
	tail := atomic.LoadUint32(&c.q.hdr.tail)
	used := tail - c.head
	if used == 0 {
		return 0, false, nil
	}
	if used > c.q.capacity {
		return 0, false, ErrCorrupted
	}
	v := binary.LittleEndian.Uint64(c.q.slot(c.head))
	c.head++
	// the slot may be reused by the producer from here on.
	atomic.StoreUint32(&c.q.hdr.head, c.head)
	return v, true, nil
}

// Recv dequeues one record, waiting for a change notification while
// the queue is empty. A notification only means "check again".
// A record already queued is returned without waiting.
func (c *Consumer) Recv(ctx context.Context) (uint64, error) {
	for {
		v, ok, err := c.TryRecv()
		if err != nil || ok {
			return v, err
		}
		if c.changes == nil {
			return 0, ErrNoSignal
		}
		if err := c.changes.Changed(ctx); err != nil {
			return 0, err
		}
	}
}

// Len returns the number of records available to the consumer.
func (c *Consumer) Len() int {
	return int(atomic.LoadUint32(&c.q.hdr.tail) - c.head)
}

package ipc

import (
	"context"
	"sync"
)

// Latch is an Event register: a pending flag set by Raise and reset
// by Clear.
type Latch struct {
	lock    sync.Mutex
	pending bool
	raised  uint64
	wakeCh  chan struct{}
}

// NewLatch creates a Latch.
func NewLatch() *Latch {
	return &Latch{wakeCh: make(chan struct{}, 1)}
}

// Raise sets the event pending.
func (l *Latch) Raise() {
	l.lock.Lock()
	l.pending = true
	l.raised++
	l.lock.Unlock()
	select {
	case l.wakeCh <- struct{}{}:
	default:
	}
}

// Raised returns how many times Raise was called.
func (l *Latch) Raised() uint64 {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.raised
}

// Pending implements Event.
func (l *Latch) Pending() bool {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.pending
}

// Clear implements Event.
func (l *Latch) Clear() {
	l.lock.Lock()
	l.pending = false
	l.lock.Unlock()
	select {
	case <-l.wakeCh:
	default:
	}
}

// Wait implements Event.
func (l *Latch) Wait(ctx context.Context) error {
	for {
		if l.Pending() {
			return nil
		}
		select {
		case <-l.wakeCh:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

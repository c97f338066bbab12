package ipc

import (
	"context"
	"sync"

	"github.com/openeeg/headband.go/pkg/fault"
)

// DefaultMaxReceivers is used when Watch.MaxReceivers is zero.
const DefaultMaxReceivers = 4

// ErrNoReceivers indicates all receivers of a Watch are taken.
var ErrNoReceivers = fault.New(fault.Discipline, "no more watch receivers")

// Watch publishes "something changed" to any number of local
// receivers. The state is a generation counter. Each receiver
// remembers the last generation it observed, so bursts of Publish
// collapse into a single change per receiver.
type Watch struct {
	MaxReceivers int

	lock      sync.Mutex
	gen       uint64
	changedCh chan struct{}
	receivers int
}

// NewWatch creates a Watch.
func NewWatch(maxReceivers int) *Watch {
	return &Watch{MaxReceivers: maxReceivers}
}

// Publish advances the generation and wakes all receivers. It never
// blocks.
func (w *Watch) Publish() {
	w.lock.Lock()
	w.gen++
	if w.changedCh != nil {
		close(w.changedCh)
		w.changedCh = nil
	}
	w.lock.Unlock()
}

// Trigger implements Trigger for same-core use.
func (w *Watch) Trigger() {
	w.Publish()
}

// Generation returns the current generation.
func (w *Watch) Generation() uint64 {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.gen
}

func (w *Watch) snapshot() (uint64, <-chan struct{}) {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.changedCh == nil {
		w.changedCh = make(chan struct{})
	}
	return w.gen, w.changedCh
}

// Receiver allocates a receiver. It observes changes published after
// this call.
func (w *Watch) Receiver() (*Receiver, error) {
	max := w.MaxReceivers
	if max <= 0 {
		max = DefaultMaxReceivers
	}
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.receivers >= max {
		return nil, ErrNoReceivers
	}
	w.receivers++
	return &Receiver{w: w, seen: w.gen}, nil
}

// Receiver is one subscriber of a Watch. It must be used by a single
// task.
type Receiver struct {
	w    *Watch
	seen uint64
}

// Changed waits until the generation differs from the last one this
// receiver observed.
func (r *Receiver) Changed(ctx context.Context) error {
	for {
		gen, changedCh := r.w.snapshot()
		if gen != r.seen {
			r.seen = gen
			return nil
		}
		select {
		case <-changedCh:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Pending reports whether a change is waiting to be observed.
func (r *Receiver) Pending() bool {
	return r.w.Generation() != r.seen
}

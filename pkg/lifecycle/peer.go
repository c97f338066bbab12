package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/openeeg/headband.go/pkg/ipc"
)

// Peer is the lifecycle controller of the peer core. It exists only
// after the primary released the core.
type Peer struct {
	// Ready is raised on the primary.
	Ready ipc.Trigger
	// Ack is the primary's answer.
	Ack ipc.Event
	// RetryInterval repeats Ready until acknowledged. Zero raises it
	// only once.
	RetryInterval time.Duration
	Notifier      StateNotifier

	lock  sync.RWMutex
	state State
}

// State returns the current state.
func (p *Peer) State() State {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.state
}

// Start signals ready and waits for the ack.
func (p *Peer) Start(ctx context.Context) error {
	p.lock.Lock()
	if p.state != StateBoot {
		err := &OrderError{Track: TrackPeer, Step: "start", State: p.state, Requires: StateBoot}
		p.lock.Unlock()
		return err
	}
	p.lock.Unlock()

	// an ack left over from an earlier cycle is not an answer.
	p.Ack.Clear()
	p.Ready.Trigger()
	p.transit(StateReadySignaled)

	for {
		waitCtx, cancel := ctx, context.CancelFunc(func() {})
		if p.RetryInterval > 0 {
			waitCtx, cancel = context.WithTimeout(ctx, p.RetryInterval)
		}
		err := p.Ack.Wait(waitCtx)
		cancel()
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		glog.V(2).Info("peer: no ack, signaling ready again")
		p.Ready.Trigger()
	}
	p.Ack.Clear()
	p.transit(StateOperational)
	return nil
}

func (p *Peer) transit(s State) {
	p.lock.Lock()
	p.state = s
	p.lock.Unlock()
	glog.V(1).Infof("peer: %s", s)
	if n := p.Notifier; n != nil {
		n.StateChanged(TrackPeer, s)
	}
}

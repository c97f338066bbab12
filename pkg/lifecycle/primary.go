package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang/glog"
	"github.com/rs/xid"

	"github.com/openeeg/headband.go/pkg/ipc"
	"github.com/openeeg/headband.go/pkg/memguard"
)

// Guard grants the shared region.
type Guard interface {
	GrantSharedAccess(memguard.Range) error
	Covered(memguard.Range) bool
}

// ResetControl holds and releases the peer core.
type ResetControl interface {
	Hold() error
	Release() error
}

// Resetter is the local side of a transport.
type Resetter interface {
	Reset() error
}

// Primary is the lifecycle controller of the primary core.
type Primary struct {
	Guard      Guard
	Peer       ResetControl
	Transports []Resetter
	// Ready is the event raised by the peer once booted.
	Ready ipc.Event
	// Ack answers Ready.
	Ack      ipc.Trigger
	Region   memguard.Range
	Notifier StateNotifier

	lock  sync.RWMutex
	state State
	boot  BootState
	cycle xid.ID
}

// State returns the current state.
func (p *Primary) State() State {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.state
}

// BootState returns the reset state of the peer.
func (p *Primary) BootState() BootState {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.boot
}

// Cycle returns the ID of the current boot cycle.
func (p *Primary) Cycle() xid.ID {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.cycle
}

// Boot runs the whole handoff and returns once the peer is
// operational. Waiting for the peer is unbounded unless ctx says
// otherwise.
func (p *Primary) Boot(ctx context.Context) error {
	p.lock.Lock()
	if p.cycle.IsNil() || p.state == StateBoot {
		p.cycle = xid.New()
	}
	cycle := p.cycle
	p.lock.Unlock()
	glog.Infof("[%s] boot handoff started", cycle)

	for _, step := range []func() error{p.Grant, p.Hold, p.ResetTransport, p.Release} {
		if err := step(); err != nil {
			glog.Errorf("[%s] boot handoff failed: %v", cycle, err)
			return err
		}
	}
	if err := p.AwaitReady(ctx); err != nil {
		glog.Errorf("[%s] peer not ready: %v", cycle, err)
		return err
	}
	glog.Infof("[%s] both cores operational", cycle)
	return nil
}

// Grant grants the shared region to the peer.
func (p *Primary) Grant() error {
	return p.step("grant", StateBoot, StateGranted, func() error {
		return p.Guard.GrantSharedAccess(p.Region)
	})
}

// Hold holds the peer in reset.
func (p *Primary) Hold() error {
	return p.step("hold", StateGranted, StateHeld, func() error {
		if err := p.Peer.Hold(); err != nil {
			return err
		}
		p.setBoot(BootHeld)
		return nil
	})
}

// ResetTransport resets every transport while the peer cannot
// touch them.
func (p *Primary) ResetTransport() error {
	return p.step("reset-transport", StateHeld, StateTransportReset, func() error {
		for _, t := range p.Transports {
			if err := t.Reset(); err != nil {
				return err
			}
		}
		return nil
	})
}

// Release releases the peer. Any ready raised before this point is
// discarded.
func (p *Primary) Release() error {
	return p.step("release", StateTransportReset, StateReleased, func() error {
		if !p.Guard.Covered(p.Region) {
			return fmt.Errorf("%w: %v", ErrRegionNotGranted, p.Region)
		}
		p.Ready.Clear()
		if err := p.Peer.Release(); err != nil {
			return err
		}
		p.setBoot(BootReleased)
		return nil
	})
}

// AwaitReady waits for the peer's ready and acknowledges it.
func (p *Primary) AwaitReady(ctx context.Context) error {
	p.lock.Lock()
	if p.state != StateReleased && p.state != StateAwaitingReady {
		err := &OrderError{Track: TrackPrimary, Step: "await-ready", State: p.state, Requires: StateReleased}
		p.lock.Unlock()
		return err
	}
	changed := p.state != StateAwaitingReady
	p.state = StateAwaitingReady
	p.lock.Unlock()
	if changed {
		p.notify(StateAwaitingReady)
	}

	if err := p.Ready.Wait(ctx); err != nil {
		return err
	}
	p.Ready.Clear()
	p.Ack.Trigger()
	p.transit(StateOperational)
	return nil
}

func (p *Primary) step(name string, requires, next State, fn func() error) error {
	p.lock.RLock()
	state := p.state
	p.lock.RUnlock()
	if state != requires {
		return &OrderError{Track: TrackPrimary, Step: name, State: state, Requires: requires}
	}
	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	p.transit(next)
	return nil
}

func (p *Primary) setBoot(s BootState) {
	p.lock.Lock()
	p.boot = s
	p.lock.Unlock()
}

func (p *Primary) transit(s State) {
	p.lock.Lock()
	p.state = s
	cycle := p.cycle
	p.lock.Unlock()
	glog.V(1).Infof("[%s] primary: %s", cycle, s)
	p.notify(s)
}

func (p *Primary) notify(s State) {
	if n := p.Notifier; n != nil {
		n.StateChanged(TrackPrimary, s)
	}
}

package ipc

import (
	"context"

	"github.com/golang/glog"
)

// Bridge is the interrupt handler task of one event line. It
// publishes every observed raise into a Watch.
type Bridge struct {
	Event Event
	Watch *Watch
	name  string
}

// Name implements framework.Named.
func (b *Bridge) Name() string {
	return b.name
}

// Run waits on the event forever.
func (b *Bridge) Run(ctx context.Context) error {
	for {
		if err := b.Event.Wait(ctx); err != nil {
			return err
		}
		// clear before publishing: a raise racing with Clear is
		// covered by the Publish below.
		b.Event.Clear()
		glog.V(3).Infof("%s: event", b.name)
		b.Watch.Publish()
	}
}

// Signal is one logical cross-core signal. Trigger raises it on the
// other core, Wait and Changed observe it on this core.
type Signal struct {
	Name string
	Out  Trigger
	In   Event

	watch *Watch
}

// NewSignal creates a Signal on channel ch of c. Trigger raises ch on
// the other core, the event of ch on this core is observed.
func NewSignal(name string, c Channels, ch int) *Signal {
	return &Signal{
		Name:  name,
		Out:   ChannelTrigger(c, ch),
		In:    c.Event(ch),
		watch: NewWatch(0),
	}
}

// Trigger raises the signal on the other core.
func (s *Signal) Trigger() {
	s.Out.Trigger()
}

// Wait waits until the event fired at least once since the last
// observation, then clears it.
func (s *Signal) Wait(ctx context.Context) error {
	if err := s.In.Wait(ctx); err != nil {
		return err
	}
	s.In.Clear()
	return nil
}

// Watch returns the software fan-out view.
func (s *Signal) Watch() *Watch {
	return s.watch
}

// Changed allocates a receiver of the fan-out view. The view is only
// updated while the Bridge is running.
func (s *Signal) Changed() (*Receiver, error) {
	return s.watch.Receiver()
}

// Bridge returns the task feeding the fan-out view from the event.
// Wait and the Bridge must not be used on the same signal.
func (s *Signal) Bridge() *Bridge {
	return &Bridge{Event: s.In, Watch: s.watch, name: "ipc:" + s.Name}
}

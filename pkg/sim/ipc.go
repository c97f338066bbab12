package sim

import (
	"sync/atomic"

	"github.com/openeeg/headband.go/pkg/ipc"
	"github.com/openeeg/headband.go/pkg/layout"
)

// IPC is the inter-processor peripheral. Triggering channel k on one
// core raises event k on the other.
type IPC struct {
	events    [2][layout.NumChannels]*ipc.Latch
	triggered [2][layout.NumChannels]uint64
}

// NewIPC creates the peripheral.
func NewIPC() *IPC {
	b := &IPC{}
	for c := range b.events {
		for ch := range b.events[c] {
			b.events[c][ch] = ipc.NewLatch()
		}
	}
	return b
}

// Reset clears every pending event.
func (b *IPC) Reset() {
	for c := range b.events {
		for _, ev := range b.events[c] {
			ev.Clear()
		}
	}
}

// Port is the peripheral as seen from one core. It implements
// ipc.Channels.
type Port struct {
	ipc  *IPC
	core layout.Core
}

// Port returns the view of core.
func (b *IPC) Port(core layout.Core) *Port {
	return &Port{ipc: b, core: core}
}

func peerOf(core layout.Core) layout.Core {
	if core == layout.App {
		return layout.Net
	}
	return layout.App
}

// Trigger implements ipc.Channels.
func (p *Port) Trigger(ch int) {
	atomic.AddUint64(&p.ipc.triggered[p.core][ch], 1)
	p.ipc.events[peerOf(p.core)][ch].Raise()
}

// Event implements ipc.Channels.
func (p *Port) Event(ch int) ipc.Event {
	return p.ipc.events[p.core][ch]
}

// Latch returns the event register of channel ch on this core.
func (p *Port) Latch(ch int) *ipc.Latch {
	return p.ipc.events[p.core][ch]
}

// Triggered returns how many times this core triggered ch.
func (p *Port) Triggered(ch int) uint64 {
	return atomic.LoadUint64(&p.ipc.triggered[p.core][ch])
}

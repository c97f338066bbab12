package sim

import (
	"context"
	"time"

	"github.com/openeeg/headband.go/pkg/ipc"
	"github.com/openeeg/headband.go/pkg/layout"
	"github.com/openeeg/headband.go/pkg/lifecycle"
	"github.com/openeeg/headband.go/pkg/memguard"
	"github.com/openeeg/headband.go/pkg/ring"
)

// Firmware is the image run by one core.
type Firmware func(ctx context.Context, hw *Core) error

// Board is the simulated chip.
type Board struct {
	Layout   *layout.Layout
	RAM      *RAM
	SPU      *SPU
	IPC      *IPC
	NetReset *NetworkReset
	// Seed fills RAM at power-on. Zero uses the current time.
	Seed int64
}

// NewBoard creates a board for a validated layout.
func NewBoard(l *layout.Layout) (*Board, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	spu := NewSPU(l.RAMBase, l.RAMSize, l.Granularity)
	ram, err := NewRAM(l.RAMBase, l.RAMSize, spu)
	if err != nil {
		return nil, err
	}
	return &Board{
		Layout:   l,
		RAM:      ram,
		SPU:      spu,
		IPC:      NewIPC(),
		NetReset: newNetworkReset(),
	}, nil
}

// Core returns the hardware view of a core.
func (b *Board) Core(id layout.Core) *Core {
	return &Core{ID: id, board: b, port: b.IPC.Port(id)}
}

// PowerOn puts the board in the state of a full device reset.
func (b *Board) PowerOn() {
	b.NetReset.Hold()
	seed := b.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	b.RAM.PowerOn(seed)
	b.SPU.Reset()
	b.IPC.Reset()
}

// Run powers the board on and runs app on the application core. net
// runs on the network core whenever the application core releases it.
func (b *Board) Run(ctx context.Context, app, net Firmware) error {
	b.PowerOn()
	b.NetReset.Attach(ctx, func(ctx context.Context) error {
		return net(ctx, b.Core(layout.Net))
	})
	defer b.NetReset.Hold()
	return app(ctx, b.Core(layout.App))
}

// Core is the hardware as seen from one core.
type Core struct {
	ID    layout.Core
	board *Board
	port  *Port
}

// Layout returns the layout the board is built for.
func (c *Core) Layout() *layout.Layout {
	return c.board.Layout
}

// SecurityUnit returns the SPU. Only the application core has one.
func (c *Core) SecurityUnit() memguard.SecurityUnit {
	if c.ID != layout.App {
		return nil
	}
	return c.board.SPU
}

// NetworkReset returns the reset control of the network core. Only
// the application core has one.
func (c *Core) NetworkReset() lifecycle.ResetControl {
	if c.ID != layout.App {
		return nil
	}
	return c.board.NetReset
}

// MapShared maps shared RAM.
func (c *Core) MapShared(base, size uint32) (*ring.Segment, error) {
	return c.board.RAM.Map(c.ID, base, size)
}

// Trigger implements ipc.Channels.
func (c *Core) Trigger(ch int) {
	c.port.Trigger(ch)
}

// Event implements ipc.Channels.
func (c *Core) Event(ch int) ipc.Event {
	return c.port.Event(ch)
}

// Port returns the IPC port of the core.
func (c *Core) Port() *Port {
	return c.port
}

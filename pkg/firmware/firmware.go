// Package firmware runs both core images on a simulated board.
package firmware

import (
	"context"

	"github.com/openeeg/headband.go/pkg/firmware/appcore"
	"github.com/openeeg/headband.go/pkg/firmware/netcore"
	"github.com/openeeg/headband.go/pkg/sim"
)

// App adapts an application core image to the board.
func App(img *appcore.Image) sim.Firmware {
	return func(ctx context.Context, hw *sim.Core) error {
		return img.Run(ctx, hw)
	}
}

// Net adapts a network core image to the board.
func Net(img *netcore.Image) sim.Firmware {
	return func(ctx context.Context, hw *sim.Core) error {
		return img.Run(ctx, hw)
	}
}

// Simulate powers the board on and runs both images until ctx is
// done or the application core fails.
func Simulate(ctx context.Context, board *sim.Board, app *appcore.Image, net *netcore.Image) error {
	return board.Run(ctx, App(app), Net(net))
}

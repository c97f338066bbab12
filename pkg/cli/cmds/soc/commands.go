package soc

import (
	"bytes"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/abiosoft/ishell"

	"github.com/openeeg/headband.go/pkg/cli/sh"
	"github.com/openeeg/headband.go/pkg/layout"
	"github.com/openeeg/headband.go/pkg/memguard"
	"github.com/openeeg/headband.go/pkg/sim"
)

// Region is one SPU cell.
type Region struct {
	Index int    `json:"index"`
	Start uint32 `json:"start"`
	Perm  string `json:"perm"`
}

// Regions lists the SPU cells, only granted ones unless all is set.
func Regions(spu *sim.SPU, base uint32, all bool) []Region {
	var regions []Region
	for n, perm := range spu.Regions() {
		if !all && perm == (memguard.Perm{}) {
			continue
		}
		regions = append(regions, Region{
			Index: n,
			Start: base + uint32(n)*spu.Granularity(),
			Perm:  perm.String(),
		})
	}
	return regions
}

var (
	// TriggerCmd triggers an IPC channel from one core.
	TriggerCmd = ishell.Cmd{
		Name:    "trigger",
		Aliases: []string{"t"},
		Help:    "CH [CORE]",
		Func: sh.MustBeBooted(func(c *ishell.Context, s *sh.Session) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("CH required"))
				return
			}
			ch, err := strconv.Atoi(c.Args[0])
			if err != nil || ch < 0 || ch >= layout.NumChannels {
				c.Err(fmt.Errorf("Invalid CH: %q", c.Args[0]))
				return
			}
			core := layout.Net
			if len(c.Args) > 1 {
				if core, err = layout.ParseCore(c.Args[1]); err != nil {
					c.Err(err)
					return
				}
			}
			s.Board.Core(core).Trigger(ch)
		}),
	}

	// RegionsCmd lists SPU cells.
	RegionsCmd = ishell.Cmd{
		Name: "regions",
		Help: "[all]",
		Func: sh.MustBeBooted(func(c *ishell.Context, s *sh.Session) {
			all := len(c.Args) > 0 && c.Args[0] == "all"
			regions := Regions(s.Board.SPU, s.Board.Layout.RAMBase, all)
			sh.Output(c, regions, func() {
				var buf bytes.Buffer
				w := tabwriter.NewWriter(&buf, 0, 4, 1, ' ', 0)
				for _, r := range regions {
					fmt.Fprintf(w, "%d\t0x%08x\t%s\n", r.Index, r.Start, r.Perm)
				}
				w.Flush()
				c.Print(buf.String())
			})
		}),
	}

	// HoldCmd holds the network core in reset.
	HoldCmd = ishell.Cmd{
		Name: "hold",
		Help: "",
		Func: sh.MustBeBooted(func(c *ishell.Context, s *sh.Session) {
			if err := s.Board.NetReset.Hold(); err != nil {
				c.Err(err)
			}
		}),
	}

	// ReleaseCmd releases the network core. Its image restarts, but the
	// application core is past the handshake and never acknowledges it.
	ReleaseCmd = ishell.Cmd{
		Name: "release",
		Help: "restart the net core only; it stays ready-signaled, use reset to recover",
		Func: sh.MustBeBooted(func(c *ishell.Context, s *sh.Session) {
			if err := s.Board.NetReset.Release(); err != nil {
				c.Err(err)
			}
		}),
	}
)

func init() {
	sh.AddCmds(&TriggerCmd, &RegionsCmd, &HoldCmd, &ReleaseCmd)
}

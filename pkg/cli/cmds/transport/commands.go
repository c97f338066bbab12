package transport

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/openeeg/headband.go/pkg/cli/sh"
	"github.com/openeeg/headband.go/pkg/ring"
)

// FillResult is the outcome of filling a scratch queue.
type FillResult struct {
	Capacity int    `json:"capacity"`
	Sent     int    `json:"sent"`
	Rejected uint64 `json:"rejected"`
}

// Fill sends capacity+1 values into a fresh queue.
func Fill(capacity uint32) (*FillResult, error) {
	if !ring.ValidCapacity(capacity) {
		return nil, fmt.Errorf("%w: %d", ring.ErrBadCapacity, capacity)
	}
	seg, err := ring.Alloc(0, ring.Size(capacity))
	if err != nil {
		return nil, err
	}
	q, err := ring.Open(seg, capacity)
	if err != nil {
		return nil, err
	}
	if err := q.Reset(); err != nil {
		return nil, err
	}
	p, err := q.Producer(nil)
	if err != nil {
		return nil, err
	}
	res := &FillResult{Capacity: q.Cap()}
	for v := uint64(1); ; v++ {
		err := p.Send(v)
		var full *ring.FullError
		if errors.As(err, &full) {
			res.Rejected = full.Value
			return res, nil
		}
		if err != nil {
			return nil, err
		}
		res.Sent++
	}
}

var (
	// SendCmd injects records on the network core.
	SendCmd = ishell.Cmd{
		Name:    "send",
		Aliases: []string{"s"},
		Help:    "VALUE...",
		Func: sh.MustBeBooted(func(c *ishell.Context, s *sh.Session) {
			if len(c.Args) == 0 {
				c.Err(fmt.Errorf("VALUE required"))
				return
			}
			values := make([]uint64, 0, len(c.Args))
			for _, arg := range c.Args {
				v, err := strconv.ParseUint(arg, 0, 64)
				if err != nil {
					c.Err(fmt.Errorf("Invalid VALUE %q: %v", arg, err))
					return
				}
				values = append(values, v)
			}
			if !s.Net.Inject(values...) {
				c.Err(fmt.Errorf("net core not operational"))
			}
		}),
	}

	// RecvCmd prints records delivered to the application core.
	RecvCmd = ishell.Cmd{
		Name:    "recv",
		Aliases: []string{"r"},
		Help:    "[N]",
		Func: sh.MustBeBooted(func(c *ishell.Context, s *sh.Session) {
			n := 1
			if len(c.Args) > 0 {
				val, err := strconv.Atoi(c.Args[0])
				if err != nil || val <= 0 {
					c.Err(fmt.Errorf("Invalid N: %q", c.Args[0]))
					return
				}
				n = val
			}
			values := s.Recv(n, time.Second)
			sh.Output(c, values, func() {
				for _, v := range values {
					c.Printf("%d (%#x)\n", v, v)
				}
				if len(values) < n {
					c.Printf("timeout after %d records\n", len(values))
				}
			})
		}),
	}

	// FillCmd shows the capacity behavior on a scratch queue.
	FillCmd = ishell.Cmd{
		Name: "fill",
		Help: "[CAPACITY]",
		Func: func(c *ishell.Context) {
			capacity := uint32(1024)
			if len(c.Args) > 0 {
				val, err := strconv.ParseUint(c.Args[0], 0, 32)
				if err != nil {
					c.Err(fmt.Errorf("Invalid CAPACITY: %v", err))
					return
				}
				capacity = uint32(val)
			} else if l, err := sh.ShellFrom(c).Config.Layout(); err == nil && len(l.Queues) > 0 {
				capacity = l.Queues[0].Capacity
			}
			res, err := Fill(capacity)
			if err != nil {
				c.Err(err)
				return
			}
			sh.Output(c, res, func() {
				c.Printf("%d/%d sent, rejected %d\n", res.Sent, res.Capacity, res.Rejected)
			})
		},
	}
)

func init() {
	sh.AddCmds(&SendCmd, &RecvCmd, &FillCmd)
}

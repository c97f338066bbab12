package sh

import (
	"context"
	"fmt"
	"time"

	"github.com/openeeg/headband.go/pkg/firmware"
	"github.com/openeeg/headband.go/pkg/firmware/appcore"
	"github.com/openeeg/headband.go/pkg/firmware/netcore"
	"github.com/openeeg/headband.go/pkg/layout"
	"github.com/openeeg/headband.go/pkg/lifecycle"
	"github.com/openeeg/headband.go/pkg/sim"
)

// Session is a running simulated board.
type Session struct {
	Board   *sim.Board
	App     *appcore.Image
	Net     *netcore.Image
	Records appcore.ChanSink

	cancel func()
	errCh  chan error
}

// Status is a snapshot of a Session.
type Status struct {
	Primary   string `json:"primary"`
	Boot      string `json:"boot"`
	Cycle     string `json:"cycle,omitempty"`
	Peer      string `json:"peer"`
	Queued    int    `json:"queued"`
	Pending   int    `json:"pending"`
	Sent      uint64 `json:"sent"`
	Dropped   uint64 `json:"dropped"`
	Received  uint64 `json:"received"`
	NetFault  string `json:"net_fault,omitempty"`
	AppResult string `json:"app_result,omitempty"`
}

// StartSession powers a board on and boots both cores. It returns once
// the peer is operational or timeout expires.
func StartSession(l *layout.Layout, timeout time.Duration) (*Session, error) {
	board, err := sim.NewBoard(l)
	if err != nil {
		return nil, err
	}
	s := &Session{
		Board:   board,
		Records: make(appcore.ChanSink, 4096),
		errCh:   make(chan error, 1),
	}
	appConf := appcore.NewConfig()
	appConf.StatsInterval = 0
	s.App = appConf.NewImage(s.Records)
	s.Net = netcore.NewConfig().NewImage(nil)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() {
		s.errCh <- firmware.Simulate(ctx, board, s.App, s.Net)
	}()

	deadline := time.After(timeout)
	for s.Net.State() != lifecycle.StateOperational {
		select {
		case err := <-s.errCh:
			s.errCh <- err
			cancel()
			return nil, err
		case <-deadline:
			s.Close()
			return nil, fmt.Errorf("boot timeout")
		case <-time.After(time.Millisecond):
		}
	}
	return s, nil
}

// Close stops both cores.
func (s *Session) Close() error {
	s.cancel()
	err := <-s.errCh
	s.errCh <- err
	return err
}

// Recv waits for up to n records.
func (s *Session) Recv(n int, timeout time.Duration) []uint64 {
	var values []uint64
	deadline := time.After(timeout)
	for len(values) < n {
		select {
		case v := <-s.Records:
			values = append(values, v)
		case <-deadline:
			return values
		}
	}
	return values
}

// Status returns the current status.
func (s *Session) Status() Status {
	st := Status{
		Peer:     s.Net.State().String(),
		Pending:  len(s.Records),
		Sent:     s.Net.Sent(),
		Dropped:  s.Net.Dropped(),
		Received: s.App.Received(),
	}
	if p := s.App.Primary(); p != nil {
		st.Primary = p.State().String()
		st.Boot = p.BootState().String()
		if cycle := p.Cycle(); !cycle.IsNil() {
			st.Cycle = cycle.String()
		}
	}
	if q := s.App.Queue(); q != nil {
		st.Queued = q.Len()
	}
	if err := s.Board.NetReset.Err(); err != nil {
		st.NetFault = err.Error()
	}
	select {
	case err := <-s.errCh:
		s.errCh <- err
		st.AppResult = fmt.Sprintf("%v", err)
	default:
	}
	return st
}

package appcore

import (
	"context"

	"github.com/golang/glog"
)

// Sink is the application shell consuming records.
type Sink interface {
	HandleRecord(ctx context.Context, v uint64) error
}

// SinkFunc is the func form of Sink.
type SinkFunc func(context.Context, uint64) error

// HandleRecord implements Sink.
func (f SinkFunc) HandleRecord(ctx context.Context, v uint64) error {
	return f(ctx, v)
}

// LogSink logs every record.
var LogSink = SinkFunc(func(_ context.Context, v uint64) error {
	glog.Infof("record %#016x", v)
	return nil
})

// ChanSink delivers records into a channel, blocking when it is full.
type ChanSink chan uint64

// HandleRecord implements Sink.
func (s ChanSink) HandleRecord(ctx context.Context, v uint64) error {
	select {
	case s <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// MultiSink hands every record to all sinks in order. All sinks are
// called even if some fail. The first error is returned.
type MultiSink []Sink

// HandleRecord implements Sink.
func (m MultiSink) HandleRecord(ctx context.Context, v uint64) (err error) {
	for _, s := range m {
		if e := s.HandleRecord(ctx, v); e != nil && err == nil {
			err = e
		}
	}
	return
}

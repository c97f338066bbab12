package netcore

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/openeeg/headband.go/pkg/layout"
)

// FullPolicy decides what happens to a record the queue rejected.
type FullPolicy int

// Policies.
const (
	// Drop discards rejected records.
	Drop FullPolicy = iota
	// Retry keeps rejected records and stops polling the source until
	// they are sent.
	Retry
)

func (p FullPolicy) String() string {
	switch p {
	case Drop:
		return "drop"
	case Retry:
		return "retry"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// Set implements flag.Value.
func (p *FullPolicy) Set(s string) error {
	switch strings.ToLower(s) {
	case "drop":
		*p = Drop
	case "retry":
		*p = Retry
	default:
		return fmt.Errorf("unknown full policy %q", s)
	}
	return nil
}

// Config configures the network core image.
type Config struct {
	// Queue is the name of the queue to produce into.
	Queue string
	// Interval is the loop tick.
	Interval time.Duration
	// HeartbeatInterval raises data-available without new data.
	// Zero disables it.
	HeartbeatInterval time.Duration
	// ReadyRetry repeats the ready signal until acknowledged.
	ReadyRetry time.Duration
	// Batch is the maximum records polled from the source per tick.
	Batch int
	OnFull FullPolicy
}

var defaultConfig = Config{
	Queue:             layout.DefaultQueue,
	Interval:          10 * time.Millisecond,
	HeartbeatInterval: time.Second,
	ReadyRetry:        50 * time.Millisecond,
	Batch:             32,
	OnFull:            Retry,
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Queue, "net-queue", defaultConfig.Queue, "Queue produced by the net core")
	flag.DurationVar(&defaultConfig.Interval, "net-interval", defaultConfig.Interval, "Net core loop interval")
	flag.DurationVar(&defaultConfig.HeartbeatInterval, "net-heartbeat", defaultConfig.HeartbeatInterval, "Net core heartbeat interval")
	flag.DurationVar(&defaultConfig.ReadyRetry, "net-ready-retry", defaultConfig.ReadyRetry, "Interval repeating the ready signal")
	flag.IntVar(&defaultConfig.Batch, "net-batch", defaultConfig.Batch, "Records polled per tick")
	flag.Var(&defaultConfig.OnFull, "net-on-full", "Policy when the queue is full: drop or retry")
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewImage creates the image producing from src. src can be nil, in
// which case only injected records are sent.
func (c *Config) NewImage(src Source) *Image {
	return &Image{Config: *c, Source: src}
}

package appcore

import (
	"flag"
	"time"

	"github.com/openeeg/headband.go/pkg/layout"
)

// Config configures the application core image.
type Config struct {
	// Queue is the name of the queue to consume.
	Queue string
	// Interval is the loop tick.
	Interval time.Duration
	// StatsInterval logs counters periodically. Zero disables it.
	StatsInterval time.Duration
}

var defaultConfig = Config{
	Queue:         layout.DefaultQueue,
	Interval:      100 * time.Millisecond,
	StatsInterval: 10 * time.Second,
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Queue, "app-queue", defaultConfig.Queue, "Queue consumed by the app core")
	flag.DurationVar(&defaultConfig.StatsInterval, "app-stats", defaultConfig.StatsInterval, "App core statistics interval")
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewImage creates the image delivering records to sink.
func (c *Config) NewImage(sink Sink) *Image {
	return &Image{Config: *c, Sink: sink}
}

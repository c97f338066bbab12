// Package env provides the configuration shared by the commands.
package env

import (
	"flag"
	"log"
	"os"

	"github.com/openeeg/headband.go/pkg/layout"
)

// Config is the device environment.
type Config struct {
	// DeviceID names the device in published topics.
	DeviceID string
	// LayoutFile is a YAML layout. Empty uses the production layout.
	LayoutFile string
	// MQTTBrokerURL enables the MQTT bridge.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
	// WebsocketAddr enables the websocket bridge, e.g. :8080.
	WebsocketAddr string
}

var defaultConfig = Config{}

func init() {
	if val := os.Getenv("HEADBAND_DEVICE_ID"); val != "" {
		defaultConfig.DeviceID = val
	}
	if val := os.Getenv("HEADBAND_LAYOUT"); val != "" {
		defaultConfig.LayoutFile = val
	}
	if val := os.Getenv("HEADBAND_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("HEADBAND_WS_ADDR"); val != "" {
		defaultConfig.WebsocketAddr = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.DeviceID, "device", defaultConfig.DeviceID, "Device ID, defaults to one derived from the machine ID")
	flag.StringVar(&defaultConfig.LayoutFile, "layout", defaultConfig.LayoutFile, "Shared memory layout file (YAML)")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL")
	flag.StringVar(&defaultConfig.WebsocketAddr, "ws", defaultConfig.WebsocketAddr, "Websocket listen address")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	if conf.DeviceID == "" {
		conf.DeviceID = MachineID()
	}
	return &conf
}

// Layout loads the configured layout.
func (c *Config) Layout() (*layout.Layout, error) {
	if c.LayoutFile == "" {
		return layout.Default(), nil
	}
	return layout.Load(c.LayoutFile)
}

// MustLayout loads the layout and fails on error.
func (c *Config) MustLayout() *layout.Layout {
	l, err := c.Layout()
	if err != nil {
		log.Fatalln(err)
	}
	return l
}

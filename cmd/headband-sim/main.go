package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"log"

	"github.com/golang/glog"

	"github.com/openeeg/headband.go/pkg/bridge/mqtt"
	"github.com/openeeg/headband.go/pkg/bridge/websocket"
	"github.com/openeeg/headband.go/pkg/env"
	"github.com/openeeg/headband.go/pkg/firmware"
	"github.com/openeeg/headband.go/pkg/firmware/appcore"
	"github.com/openeeg/headband.go/pkg/firmware/netcore"
	fx "github.com/openeeg/headband.go/pkg/framework"
	pb "github.com/openeeg/headband.go/pkg/proto/headband/v1"
	"github.com/openeeg/headband.go/pkg/sim"
)

var (
	source   = "samples"
	channels = 8
	logSink  bool
)

func init() {
	env.SetupFlags()
	appcore.SetupFlags()
	netcore.SetupFlags()
	flag.StringVar(&source, "source", source, "Record source on the net core: samples or counter")
	flag.IntVar(&channels, "channels", channels, "EEG channels of the sample source")
	flag.BoolVar(&logSink, "log-records", logSink, "Log every record")
}

func newSource() netcore.Source {
	switch source {
	case "counter":
		return &sim.CounterSource{}
	case "samples":
		return sim.NewSampleSource(channels)
	}
	log.Fatalf("unknown source %q", source)
	return nil
}

func main() {
	flag.Parse()

	conf := env.NewConfig()
	board, err := sim.NewBoard(conf.MustLayout())
	if err != nil {
		log.Fatalln(err)
	}

	var sinks appcore.MultiSink
	var bridges []fx.Runnable
	app := appcore.NewConfig().NewImage(nil)
	cycle := func() string {
		if p := app.Primary(); p != nil {
			return p.Cycle().String()
		}
		return ""
	}
	if conf.MQTTBrokerURL != "" {
		pub, err := mqtt.NewPublisher(conf.MQTTBrokerURL, &pb.Device{
			Id:          conf.DeviceID,
			Name:        netcore.DeviceName,
			ServiceUuid: netcore.UUIDString(netcore.EEGDataServiceUUID),
			Mtu:         netcore.L2CAPMTU,
		})
		if err != nil {
			log.Fatalln(err)
		}
		pub.Cycle = cycle
		sinks = append(sinks, pub)
		bridges = append(bridges, pub)
	}
	if conf.WebsocketAddr != "" {
		hub := websocket.NewHub(conf.DeviceID)
		hub.Cycle = cycle
		sinks = append(sinks, hub)
		bridges = append(bridges, &websocket.Server{Addr: conf.WebsocketAddr, Hub: hub})
	}
	if logSink || len(sinks) == 0 {
		sinks = append(sinks, appcore.LogSink)
	}
	app.Sink = sinks
	net := netcore.NewConfig().NewImage(newSource())

	glog.Infof("device %s: %s", conf.DeviceID, netcore.DeviceName)
	runner := fx.NewRunner().HandleSignals()
	runner.Go(bridges...)
	runner.Go(fx.NamedRun("board", fx.RunFunc(func(ctx context.Context) error {
		return firmware.Simulate(ctx, board, app, net)
	})))
	go func() {
		// any failure leaves the device unusable.
		log.Fatalln(<-runner.Done())
	}()
	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}

package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/golang/protobuf/proto"

	"github.com/openeeg/headband.go/pkg/bridge/mqtt"
	pb "github.com/openeeg/headband.go/pkg/proto/headband/v1"
	"github.com/openeeg/headband.go/pkg/sim"
)

var (
	mqttURL = "mqtt://localhost:1883/headband/"
	samples bool
)

func init() {
	if val := os.Getenv("HEADBAND_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.BoolVar(&samples, "samples", samples, "Decode record values as EEG samples.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	b, err := mqtt.NewBrokerFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	b.Sub("+/"+mqtt.MetaTopic, func(topic string, payload []byte) {
		if len(payload) == 0 {
			log.Printf("%s: gone", strings.TrimSuffix(topic, "/"+mqtt.MetaTopic))
			return
		}
		log.Printf("%s", payload)
	})
	b.Sub("+/"+mqtt.RecordsTopic, func(topic string, payload []byte) {
		var rec pb.Record
		if err := proto.Unmarshal(payload, &rec); err != nil {
			log.Printf("%s: bad record: %v", topic, err)
			return
		}
		if samples {
			s := sim.UnpackSample(rec.Value)
			log.Printf("%s [%s] #%d ch%d seq=%d %d", rec.Device, rec.Cycle, rec.Seq, s.Channel, s.Seq, s.Value)
			return
		}
		log.Printf("%s [%s] #%d %#016x", rec.Device, rec.Cycle, rec.Seq, rec.Value)
	})
	if token := b.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	<-(chan struct{})(nil)
}

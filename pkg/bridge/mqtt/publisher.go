package mqtt

import (
	"context"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
	"github.com/golang/protobuf/jsonpb"
	"github.com/golang/protobuf/proto"

	"github.com/openeeg/headband.go/pkg/fault"
	pb "github.com/openeeg/headband.go/pkg/proto/headband/v1"
)

// ErrNotConnected indicates a record arrived while the broker is
// unreachable. The record is not buffered.
var ErrNotConnected = fault.New(fault.Transient, "mqtt not connected")

// Topic suffixes below the device ID.
const (
	RecordsTopic = "records"
	MetaTopic    = "meta"
)

// Publisher is a record sink publishing to <device>/records. The
// device description is retained on <device>/meta while connected.
type Publisher struct {
	Broker *Broker
	Device *pb.Device
	// Cycle returns the boot cycle stamped on records.
	Cycle func() string

	metaJSON []byte
	seq      uint64
}

// NewPublisher creates a Publisher.
func NewPublisher(brokerURL string, device *pb.Device) (*Publisher, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	meta, err := (&jsonpb.Marshaler{OrigName: true}).MarshalToString(device)
	if err != nil {
		return nil, err
	}
	// an empty retained message removes the device once it vanishes.
	opts.SetBinaryWill(topicPrefix+device.Id+"/"+MetaTopic, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("headband:" + device.Id)
	}
	p := &Publisher{
		Broker:   NewBroker(opts, topicPrefix),
		Device:   device,
		metaJSON: []byte(meta),
	}
	p.Broker.OnConnect = func(*Broker) { p.publishMeta(p.metaJSON) }
	return p, nil
}

// Name implements framework.Named.
func (p *Publisher) Name() string {
	return "mqtt"
}

// Run implements framework.Runnable.
func (p *Publisher) Run(ctx context.Context) error {
	p.Broker.Connect()
	<-ctx.Done()
	p.publishMeta(nil).WaitTimeout(time.Second)
	return p.Broker.Close()
}

// HandleRecord implements appcore.Sink.
func (p *Publisher) HandleRecord(ctx context.Context, v uint64) error {
	if !p.Broker.Client.IsConnected() {
		return ErrNotConnected
	}
	payload, err := proto.Marshal(p.Record(v))
	if err != nil {
		return err
	}
	p.Broker.Pub(p.Device.Id+"/"+RecordsTopic, payload)
	return nil
}

// Record builds the envelope of the next record.
func (p *Publisher) Record(v uint64) *pb.Record {
	rec := &pb.Record{
		Device:      p.Device.Id,
		Seq:         atomic.AddUint64(&p.seq, 1),
		Value:       v,
		TimestampNs: time.Now().UnixNano(),
	}
	if p.Cycle != nil {
		rec.Cycle = p.Cycle()
	}
	return rec
}

func (p *Publisher) publishMeta(meta []byte) paho.Token {
	glog.V(1).Infof("publish meta of %s", p.Device.Id)
	return p.Broker.PubWith(p.Device.Id+"/"+MetaTopic, meta, 1, true)
}

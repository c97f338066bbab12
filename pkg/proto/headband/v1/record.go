// Package headband contains the wire messages published by the bridges.
// The messages are maintained by hand after record.proto.
package headband

import (
	proto "github.com/golang/protobuf/proto"
)

// Record is one value consumed by the application core.
type Record struct {
	Device               string   `protobuf:"bytes,1,opt,name=device,proto3" json:"device,omitempty"`
	Cycle                string   `protobuf:"bytes,2,opt,name=cycle,proto3" json:"cycle,omitempty"`
	Seq                  uint64   `protobuf:"varint,3,opt,name=seq,proto3" json:"seq,omitempty"`
	Value                uint64   `protobuf:"fixed64,4,opt,name=value,proto3" json:"value,omitempty"`
	TimestampNs          int64    `protobuf:"varint,5,opt,name=timestamp_ns,json=timestampNs,proto3" json:"timestamp_ns,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *Record) Reset()         { *m = Record{} }
func (m *Record) String() string { return proto.CompactTextString(m) }
func (*Record) ProtoMessage()    {}

// Device describes a headband.
type Device struct {
	Id                   string   `protobuf:"bytes,1,opt,name=id,proto3" json:"id,omitempty"`
	Name                 string   `protobuf:"bytes,2,opt,name=name,proto3" json:"name,omitempty"`
	ServiceUuid          string   `protobuf:"bytes,3,opt,name=service_uuid,json=serviceUuid,proto3" json:"service_uuid,omitempty"`
	Mtu                  uint32   `protobuf:"varint,4,opt,name=mtu,proto3" json:"mtu,omitempty"`
	Cycle                string   `protobuf:"bytes,5,opt,name=cycle,proto3" json:"cycle,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *Device) Reset()         { *m = Device{} }
func (m *Device) String() string { return proto.CompactTextString(m) }
func (*Device) ProtoMessage()    {}

func init() {
	proto.RegisterType((*Record)(nil), "headband.v1.Record")
	proto.RegisterType((*Device)(nil), "headband.v1.Device")
}

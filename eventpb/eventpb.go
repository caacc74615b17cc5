/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// Package eventpb holds the protobuf payloads published on the event
// broker: an LVAP joining or leaving a tenant, a WTP connecting or
// disconnecting, and a periodic counter sample. Hand-maintained in the
// classic generated-code shape since this tree has no protoc available to
// regenerate it from a .proto source.
package eventpb

import (
	proto "github.com/golang/protobuf/proto"
)

// LvapEvent reports a station's LVAP joining or leaving a tenant's SSID.
type LvapEvent struct {
	Sender               *string `protobuf:"bytes,1,req,name=sender" json:"sender,omitempty"`
	Timestamp            *int64  `protobuf:"varint,2,req,name=timestamp" json:"timestamp,omitempty"`
	Station              *string `protobuf:"bytes,3,req,name=station" json:"station,omitempty"`
	TenantUuid           *string `protobuf:"bytes,4,req,name=tenant_uuid,json=tenantUuid" json:"tenant_uuid,omitempty"`
	Joined               *bool   `protobuf:"varint,5,req,name=joined" json:"joined,omitempty"`
	XXX_unrecognized     []byte  `json:"-"`
}

// Reset implements proto.Message.
func (m *LvapEvent) Reset() { *m = LvapEvent{} }

// String implements proto.Message.
func (m *LvapEvent) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*LvapEvent) ProtoMessage() {}

// GetSender returns Sender, or "" if unset.
func (m *LvapEvent) GetSender() string {
	if m != nil && m.Sender != nil {
		return *m.Sender
	}
	return ""
}

// GetStation returns Station, or "" if unset.
func (m *LvapEvent) GetStation() string {
	if m != nil && m.Station != nil {
		return *m.Station
	}
	return ""
}

// GetTenantUuid returns TenantUuid, or "" if unset.
func (m *LvapEvent) GetTenantUuid() string {
	if m != nil && m.TenantUuid != nil {
		return *m.TenantUuid
	}
	return ""
}

// GetJoined returns Joined, or false if unset.
func (m *LvapEvent) GetJoined() bool {
	if m != nil && m.Joined != nil {
		return *m.Joined
	}
	return false
}

// WtpEvent reports a WTP connecting or disconnecting from the controller.
type WtpEvent struct {
	Sender           *string `protobuf:"bytes,1,req,name=sender" json:"sender,omitempty"`
	Timestamp        *int64  `protobuf:"varint,2,req,name=timestamp" json:"timestamp,omitempty"`
	Wtp              *string `protobuf:"bytes,3,req,name=wtp" json:"wtp,omitempty"`
	Up               *bool   `protobuf:"varint,4,req,name=up" json:"up,omitempty"`
	XXX_unrecognized []byte  `json:"-"`
}

// Reset implements proto.Message.
func (m *WtpEvent) Reset() { *m = WtpEvent{} }

// String implements proto.Message.
func (m *WtpEvent) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*WtpEvent) ProtoMessage() {}

// GetWtp returns Wtp, or "" if unset.
func (m *WtpEvent) GetWtp() string {
	if m != nil && m.Wtp != nil {
		return *m.Wtp
	}
	return ""
}

// GetUp returns Up, or false if unset.
func (m *WtpEvent) GetUp() bool {
	if m != nil && m.Up != nil {
		return *m.Up
	}
	return false
}

// CounterSample carries one named counter's value at a point in time, for
// the periodic COUNTERS publication (spec §6).
type CounterSample struct {
	Sender           *string  `protobuf:"bytes,1,req,name=sender" json:"sender,omitempty"`
	Timestamp        *int64   `protobuf:"varint,2,req,name=timestamp" json:"timestamp,omitempty"`
	Name             *string  `protobuf:"bytes,3,req,name=name" json:"name,omitempty"`
	Value            *float64 `protobuf:"fixed64,4,req,name=value" json:"value,omitempty"`
	XXX_unrecognized []byte   `json:"-"`
}

// Reset implements proto.Message.
func (m *CounterSample) Reset() { *m = CounterSample{} }

// String implements proto.Message.
func (m *CounterSample) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*CounterSample) ProtoMessage() {}

// GetName returns Name, or "" if unset.
func (m *CounterSample) GetName() string {
	if m != nil && m.Name != nil {
		return *m.Name
	}
	return ""
}

// GetValue returns Value, or 0 if unset.
func (m *CounterSample) GetValue() float64 {
	if m != nil && m.Value != nil {
		return *m.Value
	}
	return 0
}

func init() {
	proto.RegisterType((*LvapEvent)(nil), "eventpb.LvapEvent")
	proto.RegisterType((*WtpEvent)(nil), "eventpb.WtpEvent")
	proto.RegisterType((*CounterSample)(nil), "eventpb.CounterSample")
}

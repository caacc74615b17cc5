/*
 * COPYRIGHT 2017 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// Package broker publishes controller events -- LVAP joins and leaves, WTP
// connects and disconnects, periodic counter samples -- on a ZMQ PUB
// socket (spec §6). The controller is the only writer in this system, so
// unlike the teacher's broker this package never subscribes to anything;
// there is no sibling daemon on the other end of a SUB socket to listen for.
package broker

import (
	"fmt"
	"os"
	"sync"

	"github.com/golang/protobuf/proto"
	"github.com/pkg/errors"
	zmq "github.com/pebbe/zmq4"
	"go.uber.org/zap"

	"lvapd/eventpb"
)

// Topics published on the broker, spec §6.
const (
	TopicLvapJoin  = "lvap.join"
	TopicLvapLeave = "lvap.leave"
	TopicWtpUp     = "wtp.up"
	TopicWtpDown   = "wtp.down"
	TopicCounters  = "counters"
)

// Broker publishes protobuf-encoded events to a ZMQ PUB socket.
type Broker struct {
	Name string
	log  *zap.SugaredLogger

	publisherMtx sync.Mutex
	publisher    *zmq.Socket
}

// New binds a PUB socket at endpoint (e.g. "tcp://*:3145") and returns a
// Broker that publishes to it.
func New(name, endpoint string, log *zap.SugaredLogger) (*Broker, error) {
	if len(name) == 0 {
		return nil, errors.New("broker consumer must give its name")
	}

	s, err := zmq.NewSocket(zmq.PUB)
	if err != nil {
		return nil, errors.Wrap(err, "allocating PUB socket")
	}
	if err := s.Bind(endpoint); err != nil {
		s.Close()
		return nil, errors.Wrapf(err, "binding PUB socket to %s", endpoint)
	}

	return &Broker{
		Name:      fmt.Sprintf("%s(%d)", name, os.Getpid()),
		log:       log,
		publisher: s,
	}, nil
}

// Publish marshals pb and sends it as a two-frame ZMQ message: the topic,
// then the encoded payload.
func (b *Broker) Publish(topic string, pb proto.Message) error {
	data, err := proto.Marshal(pb)
	if err != nil {
		return errors.Wrapf(err, "marshalling %s", topic)
	}

	b.publisherMtx.Lock()
	_, err = b.publisher.SendMessage(topic, data)
	b.publisherMtx.Unlock()
	if err != nil {
		return errors.Wrapf(err, "sending %s", topic)
	}
	return nil
}

// PublishLvapJoin publishes an LVAP_JOIN event.
func (b *Broker) PublishLvapJoin(station, tenantUUID string, ts int64) {
	b.publishLvapEvent(TopicLvapJoin, station, tenantUUID, true, ts)
}

// PublishLvapLeave publishes an LVAP_LEAVE event.
func (b *Broker) PublishLvapLeave(station, tenantUUID string, ts int64) {
	b.publishLvapEvent(TopicLvapLeave, station, tenantUUID, false, ts)
}

func (b *Broker) publishLvapEvent(topic, station, tenantUUID string, joined bool, ts int64) {
	ev := &eventpb.LvapEvent{
		Sender:     proto.String(b.Name),
		Timestamp:  proto.Int64(ts),
		Station:    proto.String(station),
		TenantUuid: proto.String(tenantUUID),
		Joined:     proto.Bool(joined),
	}
	if err := b.Publish(topic, ev); err != nil {
		b.log.Warnw("failed to publish LVAP event", "topic", topic, "error", err)
	}
}

// PublishWtpUp publishes a WTP_UP event.
func (b *Broker) PublishWtpUp(wtp string, ts int64) {
	b.publishWtpEvent(TopicWtpUp, wtp, true, ts)
}

// PublishWtpDown publishes a WTP_DOWN event.
func (b *Broker) PublishWtpDown(wtp string, ts int64) {
	b.publishWtpEvent(TopicWtpDown, wtp, false, ts)
}

func (b *Broker) publishWtpEvent(topic, wtp string, up bool, ts int64) {
	ev := &eventpb.WtpEvent{
		Sender:    proto.String(b.Name),
		Timestamp: proto.Int64(ts),
		Wtp:       proto.String(wtp),
		Up:        proto.Bool(up),
	}
	if err := b.Publish(topic, ev); err != nil {
		b.log.Warnw("failed to publish WTP event", "topic", topic, "error", err)
	}
}

// PublishCounter publishes one named counter sample.
func (b *Broker) PublishCounter(name string, value float64, ts int64) {
	ev := &eventpb.CounterSample{
		Sender:    proto.String(b.Name),
		Timestamp: proto.Int64(ts),
		Name:      proto.String(name),
		Value:     proto.Float64(value),
	}
	if err := b.Publish(TopicCounters, ev); err != nil {
		b.log.Warnw("failed to publish counter sample", "name", name, "error", err)
	}
}

// Close shuts down the publisher socket.
func (b *Broker) Close() error {
	return b.publisher.Close()
}

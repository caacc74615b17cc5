/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

package broker

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	zmq "github.com/pebbe/zmq4"
	"go.uber.org/zap"

	"lvapd/eventpb"
)

func testLogger() *zap.SugaredLogger {
	l, _ := zap.NewDevelopment()
	return l.Sugar()
}

var inprocCounter int32

// newTestBroker binds a Broker on a unique inproc:// endpoint and returns a
// SUB socket already connected and subscribed to everything, so a test can
// read back what it publishes.
func newTestBroker(t *testing.T) (*Broker, *zmq.Socket) {
	t.Helper()
	n := atomic.AddInt32(&inprocCounter, 1)
	endpoint := fmt.Sprintf("inproc://lvapd-broker-test-%d", n)

	b, err := New(t.Name(), endpoint, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { b.Close() })

	sub, err := zmq.NewSocket(zmq.SUB)
	if err != nil {
		t.Fatalf("NewSocket: %v", err)
	}
	t.Cleanup(func() { sub.Close() })
	if err := sub.Connect(endpoint); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := sub.SetSubscribe(""); err != nil {
		t.Fatalf("SetSubscribe: %v", err)
	}
	// inproc PUB/SUB has no slow-joiner grace period of its own, but the
	// connecting goroutine still races the first Send; give it a moment.
	time.Sleep(50 * time.Millisecond)
	return b, sub
}

func recvLvapEvent(t *testing.T, sub *zmq.Socket) (string, *eventpb.LvapEvent) {
	t.Helper()
	parts, err := sub.RecvMessageBytes(0)
	if err != nil {
		t.Fatalf("RecvMessageBytes: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(parts))
	}
	ev := &eventpb.LvapEvent{}
	if err := proto.Unmarshal(parts[1], ev); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	return string(parts[0]), ev
}

func TestPublishLvapJoinLeave(t *testing.T) {
	b, sub := newTestBroker(t)

	b.PublishLvapJoin("aa:bb:cc:dd:ee:ff", "tenant-uuid-1", 1000)
	topic, ev := recvLvapEvent(t, sub)
	if topic != TopicLvapJoin {
		t.Errorf("topic = %q, want %q", topic, TopicLvapJoin)
	}
	if ev.GetStation() != "aa:bb:cc:dd:ee:ff" || ev.GetTenantUuid() != "tenant-uuid-1" || !ev.GetJoined() {
		t.Errorf("unexpected event: %+v", ev)
	}

	b.PublishLvapLeave("aa:bb:cc:dd:ee:ff", "tenant-uuid-1", 1001)
	topic, ev = recvLvapEvent(t, sub)
	if topic != TopicLvapLeave {
		t.Errorf("topic = %q, want %q", topic, TopicLvapLeave)
	}
	if ev.GetJoined() {
		t.Error("leave event reported Joined = true")
	}
}

func TestPublishWtpUpDown(t *testing.T) {
	b, sub := newTestBroker(t)

	b.PublishWtpUp("11:22:33:44:55:66", 2000)
	parts, err := sub.RecvMessageBytes(0)
	if err != nil {
		t.Fatalf("RecvMessageBytes: %v", err)
	}
	if string(parts[0]) != TopicWtpUp {
		t.Errorf("topic = %q, want %q", parts[0], TopicWtpUp)
	}
	ev := &eventpb.WtpEvent{}
	if err := proto.Unmarshal(parts[1], ev); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if ev.GetWtp() != "11:22:33:44:55:66" || !ev.GetUp() {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestPublishCounter(t *testing.T) {
	b, sub := newTestBroker(t)

	b.PublishCounter("lvapd_test_metric", 3.5, 3000)
	parts, err := sub.RecvMessageBytes(0)
	if err != nil {
		t.Fatalf("RecvMessageBytes: %v", err)
	}
	if string(parts[0]) != TopicCounters {
		t.Errorf("topic = %q, want %q", parts[0], TopicCounters)
	}
	ev := &eventpb.CounterSample{}
	if err := proto.Unmarshal(parts[1], ev); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if ev.GetName() != "lvapd_test_metric" || ev.GetValue() != 3.5 {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestNewRequiresName(t *testing.T) {
	if _, err := New("", "inproc://lvapd-broker-test-noname", testLogger()); err == nil {
		t.Error("expected an error constructing a Broker with no name")
	}
}

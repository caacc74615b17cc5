package controller

import (
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/satori/uuid"
	"go.uber.org/zap"

	"lvapd/broker"
	"lvapd/ether"
	"lvapd/lvap"
	"lvapd/lvapproto"
	"lvapd/resource"
)

func testLogger() *zap.SugaredLogger {
	l, _ := zap.NewDevelopment()
	return l.Sugar()
}

var inprocCounter int32

// newTestController builds a Controller wired to a broker bound on a unique
// inproc:// endpoint, so PUB sockets across test functions never collide.
func newTestController(t *testing.T) *Controller {
	t.Helper()
	n := atomic.AddInt32(&inprocCounter, 1)
	b, err := broker.New(t.Name(), fmt.Sprintf("inproc://lvapd-test-%d", n), testLogger())
	if err != nil {
		t.Fatalf("broker.New: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return New(testLogger(), b)
}

// testWTP wraps one end of a net.Pipe() standing in for a WTP agent: recv
// delivers every frame the agent side reads back from the controller,
// decoded.
type testWTP struct {
	agent net.Conn
	recv  chan lvapproto.Message
}

func newTestWTP(t *testing.T, c *Controller, addr ether.Addr) *testWTP {
	t.Helper()
	serverSide, agentSide := net.Pipe()
	t.Cleanup(func() { agentSide.Close() })

	c.Accept(serverSide)
	recv := make(chan lvapproto.Message, 64)
	go func() {
		header := make([]byte, lvapproto.HeaderSize)
		for {
			if _, err := io.ReadFull(agentSide, header); err != nil {
				return
			}
			h, err := lvapproto.DecodeHeader(header)
			if err != nil {
				return
			}
			body := make([]byte, h.Length)
			copy(body, header)
			if _, err := io.ReadFull(agentSide, body[lvapproto.HeaderSize:]); err != nil {
				return
			}
			m, err := lvapproto.Decode(body)
			if err != nil {
				continue
			}
			recv <- m
		}
	}()

	sendFrame(t, agentSide, &lvapproto.Hello{Seq: 1, WTP: addr, Period: 5000})
	waitFor(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		_, ok := c.wtps[addr]
		return ok
	})

	return &testWTP{agent: agentSide, recv: recv}
}

func (w *testWTP) reportBlock(t *testing.T, block resource.ResourceBlock) {
	t.Helper()
	sendFrame(t, w.agent, &lvapproto.CapsResponse{
		Seq: 2,
		Blocks: []lvapproto.CapsBlock{
			{Hwaddr: block.Hwaddr, Channel: block.Channel, Band: byte(block.Band)},
		},
	})
}

// waitForMsg returns the next message matching match received within the
// timeout, skipping anything else (e.g. the registration sequence's
// CAPS_REQUEST and STATUS_REQUESTs).
func waitForMsg(t *testing.T, ch chan lvapproto.Message, match func(lvapproto.Message) bool) lvapproto.Message {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case m := <-ch:
			if match(m) {
				return m
			}
		case <-deadline:
			t.Fatal("timed out waiting for expected message")
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for condition")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func sendFrame(t *testing.T, conn net.Conn, m lvapproto.Message) {
	t.Helper()
	frame, err := lvapproto.Encode(m)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := conn.Write(frame); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestAssignBlocksDispatchesSetPortThenAddLvap(t *testing.T) {
	c := newTestController(t)
	wtpAddr := ether.Addr{0, 0, 0, 0, 0, 1}
	station := ether.Addr{0, 0, 0, 0, 0, 2}
	block := resource.ResourceBlock{Hwaddr: ether.Addr{0, 0, 0, 0, 0, 3}, Channel: 36, Band: resource.BandHi20}

	wtp := newTestWTP(t, c, wtpAddr)
	wtp.reportBlock(t, block)
	waitFor(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.blockOwner[block.Hwaddr] == wtpAddr
	})

	if err := c.AssignBlocks(station, []resource.ResourceBlock{block}); err != nil {
		t.Fatalf("AssignBlocks: %v", err)
	}

	waitForMsg(t, wtp.recv, func(m lvapproto.Message) bool { _, ok := m.(*lvapproto.SetPort); return ok })
	addLvap := waitForMsg(t, wtp.recv, func(m lvapproto.Message) bool { _, ok := m.(*lvapproto.AddLvap); return ok }).(*lvapproto.AddLvap)

	if addLvap.Sta != station {
		t.Errorf("AddLvap.Sta = %v, want %v", addLvap.Sta, station)
	}
	if addLvap.Hwaddr != block.Hwaddr {
		t.Errorf("AddLvap.Hwaddr = %v, want %v", addLvap.Hwaddr, block.Hwaddr)
	}

	c.mu.Lock()
	state := c.lvaps[station].State()
	c.mu.Unlock()
	if state != lvap.StateSpawning {
		t.Errorf("state = %s, want %s", state, lvap.StateSpawning)
	}
}

func TestAddLvapResponseAdvancesToRunning(t *testing.T) {
	c := newTestController(t)
	wtpAddr := ether.Addr{0, 0, 0, 0, 0, 0x11}
	station := ether.Addr{0, 0, 0, 0, 0, 0x12}
	block := resource.ResourceBlock{Hwaddr: ether.Addr{0, 0, 0, 0, 0, 0x13}, Channel: 36, Band: resource.BandHi20}

	wtp := newTestWTP(t, c, wtpAddr)
	wtp.reportBlock(t, block)
	waitFor(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.blockOwner[block.Hwaddr] == wtpAddr
	})

	if err := c.AssignBlocks(station, []resource.ResourceBlock{block}); err != nil {
		t.Fatalf("AssignBlocks: %v", err)
	}
	addLvap := waitForMsg(t, wtp.recv, func(m lvapproto.Message) bool { _, ok := m.(*lvapproto.AddLvap); return ok }).(*lvapproto.AddLvap)

	sendFrame(t, wtp.agent, &lvapproto.LvapResponse{
		Type: lvapproto.TypeAddLvapResp, WTP: wtpAddr, Sta: station, ModuleID: addLvap.ModuleID,
	})

	waitFor(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.lvaps[station].State() == lvap.StateRunning
	})
}

func TestStatusLvapReconciliationEmitsJoinThenLeave(t *testing.T) {
	c := newTestController(t)
	tenant := resource.NewTenant(uuid.NewV4(), "guest", resource.BssidUnique, ether.Addr{0xaa})
	c.AddTenant(tenant)

	wtpAddr := ether.Addr{0, 0, 0, 0, 0, 0x21}
	station := ether.Addr{0, 0, 0, 0, 0, 0x22}
	block := resource.ResourceBlock{Hwaddr: ether.Addr{0, 0, 0, 0, 0, 0x23}, Channel: 149, Band: resource.BandHi20}

	wtp := newTestWTP(t, c, wtpAddr)

	sendFrame(t, wtp.agent, &lvapproto.StatusLvap{
		WTP: wtpAddr, Sta: station, Hwaddr: block.Hwaddr, Channel: block.Channel, Band: byte(block.Band),
		Flags: lvapproto.LvapFlags{SetMask: true, Authenticated: true, Associated: true},
		SSIDs: []string{"guest"},
	})

	waitFor(t, func() bool {
		_, ok := tenant.Lvaps[station]
		return ok
	})

	sendFrame(t, wtp.agent, &lvapproto.StatusLvap{
		WTP: wtpAddr, Sta: station, Hwaddr: block.Hwaddr, Channel: block.Channel, Band: byte(block.Band),
		Flags: lvapproto.LvapFlags{SetMask: true},
		SSIDs: []string{""},
	})

	waitFor(t, func() bool {
		_, ok := tenant.Lvaps[station]
		return !ok
	})
}

func TestWTPDisconnectOrphansOwnedLvaps(t *testing.T) {
	c := newTestController(t)
	tenant := resource.NewTenant(uuid.NewV4(), "corp", resource.BssidUnique, ether.Addr{0xbb})
	c.AddTenant(tenant)

	wtpAddr := ether.Addr{0, 0, 0, 0, 0, 0x31}
	station := ether.Addr{0, 0, 0, 0, 0, 0x32}
	block := resource.ResourceBlock{Hwaddr: ether.Addr{0, 0, 0, 0, 0, 0x33}, Channel: 1, Band: resource.BandLo20}

	wtp := newTestWTP(t, c, wtpAddr)
	wtp.reportBlock(t, block)
	waitFor(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.blockOwner[block.Hwaddr] == wtpAddr
	})

	sendFrame(t, wtp.agent, &lvapproto.StatusLvap{
		WTP: wtpAddr, Sta: station, Hwaddr: block.Hwaddr, Channel: block.Channel, Band: byte(block.Band),
		Flags: lvapproto.LvapFlags{SetMask: true, Authenticated: true, Associated: true},
		SSIDs: []string{"corp"},
	})
	waitFor(t, func() bool {
		_, ok := tenant.Lvaps[station]
		return ok
	})

	wtp.agent.Close()

	waitFor(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		lv, ok := c.lvaps[station]
		return ok && lv.State() == lvap.StateNone
	})
	waitFor(t, func() bool {
		_, ok := tenant.Lvaps[station]
		return !ok
	})

	c.mu.Lock()
	_, known := c.wtps[wtpAddr]
	c.mu.Unlock()
	if known {
		t.Error("wtp entry should have been removed on disconnect")
	}
}

package wtpconn

import (
	"net"
	"testing"
	"time"

	"go.uber.org/zap"

	"lvapd/ether"
	"lvapd/lvapproto"
	"lvapd/xid"
)

type fakeHandler struct {
	hellos  []*lvapproto.Hello
	closed  chan error
	probes  []*lvapproto.ProbeRequest
	statLv  []*lvapproto.StatusLvap
	lvapRes []*lvapproto.LvapResponse
}

func newFakeHandler() *fakeHandler {
	return &fakeHandler{closed: make(chan error, 1)}
}

func (f *fakeHandler) HandleHello(c *Connection, m *lvapproto.Hello)       { f.hellos = append(f.hellos, m) }
func (f *fakeHandler) HandleCapsResponse(c *Connection, m *lvapproto.CapsResponse) {}
func (f *fakeHandler) HandleProbeRequest(c *Connection, m *lvapproto.ProbeRequest) {
	f.probes = append(f.probes, m)
}
func (f *fakeHandler) HandleAuthRequest(c *Connection, m *lvapproto.AuthRequest)   {}
func (f *fakeHandler) HandleAssocRequest(c *Connection, m *lvapproto.AssocRequest) {}
func (f *fakeHandler) HandleStatusLvap(c *Connection, m *lvapproto.StatusLvap) {
	f.statLv = append(f.statLv, m)
}
func (f *fakeHandler) HandleLvapResponse(c *Connection, m *lvapproto.LvapResponse) {
	f.lvapRes = append(f.lvapRes, m)
}
func (f *fakeHandler) HandleStatusVap(c *Connection, m *lvapproto.StatusVap)               {}
func (f *fakeHandler) HandleStatusPort(c *Connection, m *lvapproto.StatusPort)             {}
func (f *fakeHandler) HandleStatusTrafficRule(c *Connection, m *lvapproto.StatusTrafficRule) {}
func (f *fakeHandler) HandleClosed(c *Connection, err error)                               { f.closed <- err }

func testLogger() *zap.SugaredLogger {
	l, _ := zap.NewDevelopment()
	return l.Sugar()
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

func TestConnectionDispatchesHello(t *testing.T) {
	serverSide, agentSide := net.Pipe()
	defer agentSide.Close()

	handler := newFakeHandler()
	c := New(serverSide, handler, testLogger())
	go c.Run()

	// drain the registration sequence the connection sends back in response
	go func() {
		buf := make([]byte, 4096)
		for {
			if _, err := agentSide.Read(buf); err != nil {
				return
			}
		}
	}()

	sendFrame(t, agentSide, &lvapproto.Hello{Seq: 1, WTP: ether.Addr{1}, Period: 5000})

	deadline := time.After(2 * time.Second)
	for len(handler.hellos) == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for HandleHello")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if handler.hellos[0].Period != 5000 {
		t.Errorf("Period = %d, want 5000", handler.hellos[0].Period)
	}
}

func TestConnectionSendAddLvapTracksXid(t *testing.T) {
	serverSide, agentSide := net.Pipe()
	defer serverSide.Close()
	defer agentSide.Close()

	handler := newFakeHandler()
	c := New(serverSide, handler, testLogger())

	go func() {
		buf := make([]byte, 4096)
		agentSide.Read(buf)
	}()

	m := &lvapproto.AddLvap{
		Hwaddr: ether.Addr{1}, Sta: ether.Addr{2}, SSIDs: []string{"net"},
	}
	x, err := c.SendAddLvap(m, xid.KindAddLvap, "lvap-data")
	if err != nil {
		t.Fatalf("SendAddLvap: %v", err)
	}
	if c.Xids.Len() != 1 {
		t.Fatalf("Xids.Len() = %d, want 1", c.Xids.Len())
	}
	p, ok := c.Xids.Resolve(x)
	if !ok || p.Data != "lvap-data" {
		t.Errorf("Resolve(%d) = %+v, %v", x, p, ok)
	}
}

// TestConnectionSurvivesTruncatedLengthHeader sends a header declaring a
// Length shorter than the header itself -- the field is fully attacker
// controlled and arrives before any authentication -- and checks the
// connection drops the bogus frame instead of panicking on a short slice,
// then keeps reading and dispatches the next, well-formed frame normally.
func TestConnectionSurvivesTruncatedLengthHeader(t *testing.T) {
	serverSide, agentSide := net.Pipe()
	defer agentSide.Close()

	handler := newFakeHandler()
	c := New(serverSide, handler, testLogger())
	go c.Run()

	go func() {
		buf := make([]byte, 4096)
		for {
			if _, err := agentSide.Read(buf); err != nil {
				return
			}
		}
	}()

	bogus := []byte{lvapproto.Version, lvapproto.TypeHello, 0, 0, 0, 3}
	if _, err := agentSide.Write(bogus); err != nil {
		t.Fatalf("Write: %v", err)
	}

	sendFrame(t, agentSide, &lvapproto.Hello{Seq: 1, WTP: ether.Addr{1}, Period: 5000})

	deadline := time.After(2 * time.Second)
	for len(handler.hellos) == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for HandleHello after truncated frame")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestConnectionClosedOnBye(t *testing.T) {
	serverSide, agentSide := net.Pipe()
	defer agentSide.Close()

	handler := newFakeHandler()
	c := New(serverSide, handler, testLogger())
	go c.Run()

	sendFrame(t, agentSide, &lvapproto.Empty{Type: lvapproto.TypeBye})

	select {
	case <-handler.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for HandleClosed after BYE")
	}
}

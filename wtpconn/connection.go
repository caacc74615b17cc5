/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// Package wtpconn owns the framed TCP connection to one WTP agent: reading
// and dispatching its messages, writing commands back to it, and watching
// its heartbeat. It is the network-facing half of the controller; the
// lifecycle and placement decisions live in lvap and resource, and arrive
// here only as already-built lvapproto messages to send.
package wtpconn

import (
	"io"
	"io/ioutil"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"lvapd/aputil"
	"lvapd/ether"
	"lvapd/lvaperr"
	"lvapd/lvapproto"
	"lvapd/xid"
)

// missedHeartbeats is how many HELLO periods may elapse with no HELLO before
// the connection is declared dead.
const missedHeartbeats = 2

// Bad frames from a live agent (truncated lengths, undecodable bodies) can
// repeat at wire speed on a flaky or hostile connection; throttle their
// warnings instead of flooding the log.
const (
	badFrameThrottleStart = time.Second
	badFrameThrottleMax   = time.Minute
)

// Handler receives decoded messages and lifecycle notifications for one
// Connection. The message methods run on the connection's own read
// goroutine; HandleClosed runs on whichever goroutine tears the connection
// down (the read loop, Heartbeat, or a Close caller). A Handler must not
// block.
type Handler interface {
	HandleHello(c *Connection, m *lvapproto.Hello)
	HandleCapsResponse(c *Connection, m *lvapproto.CapsResponse)
	HandleProbeRequest(c *Connection, m *lvapproto.ProbeRequest)
	HandleAuthRequest(c *Connection, m *lvapproto.AuthRequest)
	HandleAssocRequest(c *Connection, m *lvapproto.AssocRequest)
	HandleStatusLvap(c *Connection, m *lvapproto.StatusLvap)
	HandleLvapResponse(c *Connection, m *lvapproto.LvapResponse)
	HandleStatusVap(c *Connection, m *lvapproto.StatusVap)
	HandleStatusPort(c *Connection, m *lvapproto.StatusPort)
	HandleStatusTrafficRule(c *Connection, m *lvapproto.StatusTrafficRule)
	// HandleClosed is called exactly once, when the connection has torn
	// down for any reason (peer close, read error, heartbeat timeout).
	HandleClosed(c *Connection, err error)
}

// Connection is one agent's framed TCP session.
type Connection struct {
	conn    net.Conn
	handler Handler
	log     *zap.SugaredLogger

	writeMu sync.Mutex
	seq     uint32

	Xids *xid.Registry

	// HeartbeatGrace is how many HELLO periods may elapse with no HELLO
	// before the connection is declared dead. New sets it to
	// missedHeartbeats; a caller may override it before calling Heartbeat.
	HeartbeatGrace int

	WTP        ether.Addr
	registered bool
	period     time.Duration
	lastSeenMu sync.Mutex
	lastSeen   time.Time

	closeOnce sync.Once
	done      chan struct{}
}

// New wraps conn as a Connection that dispatches decoded messages to
// handler. Run must be called to start reading.
func New(conn net.Conn, handler Handler, log *zap.SugaredLogger) *Connection {
	return &Connection{
		conn:           conn,
		handler:        handler,
		log:            log,
		Xids:           xid.NewRegistry(),
		HeartbeatGrace: missedHeartbeats,
		done:           make(chan struct{}),
	}
}

// String identifies the connection by its agent's address and remote
// socket, for logging.
func (c *Connection) String() string {
	return c.WTP.String() + "@" + c.conn.RemoteAddr().String()
}

// Run reads frames until the connection closes or a read error occurs, then
// calls handler.HandleClosed exactly once. Run blocks; call it from its own
// goroutine.
func (c *Connection) Run() {
	defer c.teardown(nil)

	header := make([]byte, lvapproto.HeaderSize)
	for {
		if _, err := io.ReadFull(c.conn, header); err != nil {
			c.teardown(err)
			return
		}
		h, err := lvapproto.DecodeHeader(header)
		if err != nil {
			if !lvaperr.Is(err, lvaperr.BadVersion) || h.Length < lvapproto.HeaderSize {
				c.log.Warnw("bad header, dropping connection", "conn", c, "error", err)
				c.teardown(err)
				return
			}
			if _, err := io.CopyN(ioutil.Discard, c.conn, int64(h.Length)-lvapproto.HeaderSize); err != nil {
				c.teardown(err)
				return
			}
			aputil.GetThrottledLogger(c.log, badFrameThrottleStart, badFrameThrottleMax).Warnf(
				"%s: bad version, dropping frame: %s", c, err)
			continue
		}
		if h.Length < lvapproto.HeaderSize {
			aputil.GetThrottledLogger(c.log, badFrameThrottleStart, badFrameThrottleMax).Warnf(
				"%s: truncated frame, dropping: %s", c,
				errors.Wrapf(lvaperr.TruncatedFrame, "declared length %d shorter than header", h.Length))
			continue
		}
		body := make([]byte, h.Length)
		copy(body, header)
		if _, err := io.ReadFull(c.conn, body[lvapproto.HeaderSize:]); err != nil {
			c.teardown(err)
			return
		}

		m, err := lvapproto.Decode(body)
		if err != nil {
			if kind, ok := lvaperr.KindOf(err); ok && kind == lvaperr.KindDecode {
				aputil.GetThrottledLogger(c.log, badFrameThrottleStart, badFrameThrottleMax).Warnf(
					"%s: decode error, dropping frame: %s", c, err)
				continue
			}
			c.teardown(err)
			return
		}
		c.dispatch(m)
	}
}

func (c *Connection) dispatch(m lvapproto.Message) {
	switch v := m.(type) {
	case *lvapproto.Hello:
		c.touch()
		first := !c.registered
		c.registered = true
		c.period = time.Duration(v.Period) * time.Millisecond
		c.handler.HandleHello(c, v)
		if first {
			go c.register()
		}
	case *lvapproto.CapsResponse:
		c.handler.HandleCapsResponse(c, v)
	case *lvapproto.ProbeRequest:
		c.handler.HandleProbeRequest(c, v)
	case *lvapproto.AuthRequest:
		c.handler.HandleAuthRequest(c, v)
	case *lvapproto.AssocRequest:
		c.handler.HandleAssocRequest(c, v)
	case *lvapproto.StatusLvap:
		c.handler.HandleStatusLvap(c, v)
	case *lvapproto.LvapResponse:
		c.handler.HandleLvapResponse(c, v)
	case *lvapproto.StatusVap:
		c.handler.HandleStatusVap(c, v)
	case *lvapproto.StatusPort:
		c.handler.HandleStatusPort(c, v)
	case *lvapproto.StatusTrafficRule:
		c.handler.HandleStatusTrafficRule(c, v)
	case *lvapproto.Empty:
		if v.Type == lvapproto.TypeBye {
			c.teardown(nil)
		}
	default:
		c.log.Debugw("unhandled message type", "conn", c, "type", m.MsgType())
	}
}

// register sends the catch-up sequence an agent receives the first time it
// says HELLO: a capability request, and a status request for every
// reconcilable resource kind, so the controller's view converges on
// whatever the agent already has running across a restart.
func (c *Connection) register() {
	if err := c.Send(&lvapproto.CapsRequest{Seq: c.nextSeq()}); err != nil {
		return
	}
	for _, typ := range []byte{
		lvapproto.TypeLvapStatReq,
		lvapproto.TypeVapStatReq,
		lvapproto.TypePortStatReq,
		lvapproto.TypeTrafStatReq,
	} {
		c.Send(&lvapproto.StatusRequest{Seq: c.nextSeq(), Type: typ})
	}
}

// Heartbeat runs until the connection closes, failing it if no HELLO arrives
// within HeartbeatGrace periods. Call it from its own goroutine; until the
// first HELLO makes the agent's period known it polls once a second and
// checks nothing.
func (c *Connection) Heartbeat() {
	for {
		c.lastSeenMu.Lock()
		period := c.period
		c.lastSeenMu.Unlock()
		if period == 0 {
			select {
			case <-c.done:
				return
			case <-time.After(time.Second):
			}
			continue
		}

		select {
		case <-c.done:
			return
		case <-time.After(period / 2):
		}

		c.lastSeenMu.Lock()
		stale := time.Since(c.lastSeen) > time.Duration(c.HeartbeatGrace)*period
		c.lastSeenMu.Unlock()
		if stale {
			c.teardown(lvaperr.HeartbeatTimeout)
			return
		}
	}
}

func (c *Connection) touch() {
	c.lastSeenMu.Lock()
	c.lastSeen = time.Now()
	c.lastSeenMu.Unlock()
}

func (c *Connection) nextSeq() uint32 {
	c.seq++
	return c.seq
}

func (c *Connection) teardown(err error) {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
		c.handler.HandleClosed(c, err)
	})
}

// Send encodes and writes m as it is. Setting m's Seq field is the caller's
// responsibility; Send only serializes writes across goroutines.
func (c *Connection) Send(m lvapproto.Message) error {
	frame, err := lvapproto.Encode(m)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_, err = c.conn.Write(frame)
	return err
}

// SendAddLvap allocates and tracks an xid for an ADD_LVAP, assigns it as the
// message's ModuleID, and sends it.
func (c *Connection) SendAddLvap(m *lvapproto.AddLvap, kind xid.Kind, data interface{}) (ether.Xid, error) {
	x := c.Xids.Next()
	m.Seq = c.nextSeq()
	m.ModuleID = uint32(x)
	if err := c.Send(m); err != nil {
		return 0, err
	}
	c.Xids.Track(x, kind, data)
	return x, nil
}

// SendDelLvap allocates and tracks an xid for a DEL_LVAP, assigns it as the
// message's ModuleID, and sends it.
func (c *Connection) SendDelLvap(m *lvapproto.DelLvap, kind xid.Kind, data interface{}) (ether.Xid, error) {
	x := c.Xids.Next()
	m.Seq = c.nextSeq()
	m.ModuleID = uint32(x)
	if err := c.Send(m); err != nil {
		return 0, err
	}
	c.Xids.Track(x, kind, data)
	return x, nil
}

// SendSetPort sends a SET_PORT message; it is not xid-correlated.
func (c *Connection) SendSetPort(m *lvapproto.SetPort) error {
	m.Seq = c.nextSeq()
	return c.Send(m)
}

// SendProbeResponse sends a PROBE_RESPONSE for sta, offering ssid.
func (c *Connection) SendProbeResponse(sta ether.Addr, ssid string) error {
	return c.Send(&lvapproto.ProbeResponse{Seq: c.nextSeq(), Sta: sta, SSID: ssid})
}

// SendAuthResponse acknowledges an AUTH_REQUEST for sta.
func (c *Connection) SendAuthResponse(sta ether.Addr) error {
	return c.Send(&lvapproto.AuthResponse{Seq: c.nextSeq(), Sta: sta})
}

// SendAssocResponse acknowledges an ASSOC_REQUEST for sta.
func (c *Connection) SendAssocResponse(sta ether.Addr) error {
	return c.Send(&lvapproto.AssocResponse{Seq: c.nextSeq(), Sta: sta})
}

// SendWadrrRequest asks the agent to run its weighted airtime deficit
// round-robin scheduler computation, the reserved application opcode (spec
// §4.5) that a northbound placement component can drive without needing a
// new message type of its own.
func (c *Connection) SendWadrrRequest() error {
	return c.Send(&lvapproto.Empty{Type: lvapproto.TypeWadrrRequest})
}

// Close tears down the connection from the controller's side.
func (c *Connection) Close() error {
	c.teardown(nil)
	return nil
}

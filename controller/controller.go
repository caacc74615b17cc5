/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// Package controller is the server/dispatcher that owns every WTP
// connection, tenant, and LVAP in the running system (spec §4.6). It
// demultiplexes wire messages by WTP address, drives the lvap package's
// state machine, and turns the Commands and Events that produces into
// wire traffic and broker publications.
//
// This is not the single-threaded event loop spec §5 first describes --
// each wtpconn.Connection runs its own read goroutine -- so it follows
// the section's explicit threaded fallback instead: every mutation of a
// WTP, Tenant, or LVAP is serialized on one Controller-wide mutex. Work
// that can call back into the Controller (broker publication, Component
// notification) always happens after that mutex is released.
package controller

import (
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/satori/uuid"
	"go.uber.org/zap"

	"lvapd/broker"
	"lvapd/ether"
	"lvapd/lvap"
	"lvapd/lvaperr"
	"lvapd/lvapproto"
	"lvapd/resource"
	"lvapd/wtpconn"
	"lvapd/xid"
)

// Component is a northbound collaborator notified of lifecycle events: a
// placement policy, an accounting system, anything that reacts to the
// network's state without owning it. Implementations must not block, and
// any callback into the Controller from inside one of these methods is
// safe -- the Controller's mutex is never held while a Component method
// runs.
type Component interface {
	OnLvapJoin(station ether.Addr, tenantUUID uuid.UUID)
	OnLvapLeave(station ether.Addr, tenantUUID uuid.UUID)
	OnWTPUp(wtp ether.Addr)
	OnWTPDown(wtp ether.Addr)
	// OnProbeRequest and OnAssocRequest report an unassigned station's
	// 802.11 management traffic, so a placement policy can decide
	// whether and where to call AssignBlocks.
	OnProbeRequest(station, wtp ether.Addr, block resource.ResourceBlock, ssid string)
	OnAssocRequest(station, wtp ether.Addr, block resource.ResourceBlock, ssid string)
}

type metrics struct {
	registry    *prometheus.Registry
	lvapJoins   prometheus.Counter
	lvapLeaves  prometheus.Counter
	wtpUps      prometheus.Counter
	wtpDowns    prometheus.Counter
	xidTimeouts prometheus.Counter
}

// newMetrics builds a private registry rather than registering against
// prometheus.DefaultRegisterer, so a process -- or a test binary -- can
// construct more than one Controller without colliding on metric names.
func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		lvapJoins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lvapd_lvap_joins_total",
			Help: "LVAPs that have joined a tenant's SSID.",
		}),
		lvapLeaves: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lvapd_lvap_leaves_total",
			Help: "LVAPs that have left a tenant's SSID.",
		}),
		wtpUps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lvapd_wtp_up_total",
			Help: "WTP connections established.",
		}),
		wtpDowns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lvapd_wtp_down_total",
			Help: "WTP connections torn down.",
		}),
		xidTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lvapd_xid_timeouts_total",
			Help: "Pending transactions failed out by a WTP disconnect.",
		}),
	}
	m.registry.MustRegister(m.lvapJoins, m.lvapLeaves, m.wtpUps, m.wtpDowns, m.xidTimeouts)
	return m
}

type wtpEntry struct {
	conn *wtpconn.Connection
	wtp  *resource.WTP
}

// Controller is the controller process's central state.
type Controller struct {
	log    *zap.SugaredLogger
	broker *broker.Broker

	mu           sync.Mutex
	wtps         map[ether.Addr]*wtpEntry
	blockOwner   map[ether.Addr]ether.Addr // resource block hwaddr -> owning WTP
	tenants      map[uuid.UUID]*resource.Tenant
	tenantBySSID map[string]uuid.UUID
	lvaps        map[ether.Addr]*lvap.LVAP
	components   []Component

	// heartbeatGrace overrides wtpconn's default missed-heartbeat count
	// for every connection this Controller accepts, if positive.
	heartbeatGrace int

	metrics *metrics
}

// New returns an empty Controller publishing events through b.
func New(log *zap.SugaredLogger, b *broker.Broker) *Controller {
	return &Controller{
		log:          log,
		broker:       b,
		wtps:         make(map[ether.Addr]*wtpEntry),
		blockOwner:   make(map[ether.Addr]ether.Addr),
		tenants:      make(map[uuid.UUID]*resource.Tenant),
		tenantBySSID: make(map[string]uuid.UUID),
		lvaps:        make(map[ether.Addr]*lvap.LVAP),
		metrics:      newMetrics(),
	}
}

// Registry returns the Prometheus registry this Controller's metrics are
// registered against, for wiring into a promhttp.Handler.
func (c *Controller) Registry() *prometheus.Registry {
	return c.metrics.registry
}

// SetHeartbeatGrace overrides the number of missed HELLO periods every
// subsequently accepted connection tolerates before being torn down.
func (c *Controller) SetHeartbeatGrace(periods int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.heartbeatGrace = periods
}

// AddComponent registers comp to receive lifecycle notifications.
func (c *Controller) AddComponent(comp Component) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.components = append(c.components, comp)
}

// AddTenant registers t so its SSID can be matched against STATUS_LVAP
// reports and its VAPs consulted during shared-tenant handover.
func (c *Controller) AddTenant(t *resource.Tenant) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tenants[t.UUID] = t
	c.tenantBySSID[t.SSID] = t.UUID
}

// Accept takes ownership of a freshly accepted WTP socket and begins
// reading and dispatching its messages.
func (c *Controller) Accept(conn net.Conn) *wtpconn.Connection {
	wc := wtpconn.New(conn, c, c.log)
	c.mu.Lock()
	if c.heartbeatGrace > 0 {
		wc.HeartbeatGrace = c.heartbeatGrace
	}
	c.mu.Unlock()
	go wc.Run()
	go wc.Heartbeat()
	return wc
}

func (c *Controller) ensureLvapLocked(station ether.Addr) *lvap.LVAP {
	lv, ok := c.lvaps[station]
	if !ok {
		lv = lvap.New(station, ether.Zero, ether.Zero)
		c.lvaps[station] = lv
	}
	return lv
}

func (c *Controller) tenantLocked(id uuid.UUID) *resource.Tenant {
	if id == uuid.Nil {
		return nil
	}
	return c.tenants[id]
}

// AssignBlocks is the handover entry point spec §4.6 calls out: schedule
// station's LVAP onto blocks (the first becomes its downlink), wiring
// whatever wire traffic results out to the owning WTP connections.
func (c *Controller) AssignBlocks(station ether.Addr, blocks []resource.ResourceBlock) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	lv := c.ensureLvapLocked(station)
	cmds, err := lv.AssignBlocks(blocks, c.tenantLocked(lv.TenantID()))
	if err != nil {
		return err
	}
	c.dispatchLocked(station, lv, cmds)
	return nil
}

// AssignWTP retargets station's LVAP onto a block of wtp matching its
// current downlink's (channel, band), per spec §4.3's handover filter.
func (c *Controller) AssignWTP(station ether.Addr, wtpAddr ether.Addr) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.wtps[wtpAddr]
	if !ok {
		return errors.Errorf("unknown wtp %s", wtpAddr)
	}
	lv, ok := c.lvaps[station]
	if !ok {
		return errors.Errorf("unknown station %s", station)
	}
	cmds, err := lv.AssignWTP(entry.wtp, c.tenantLocked(lv.TenantID()))
	if err != nil {
		return err
	}
	c.dispatchLocked(station, lv, cmds)
	return nil
}

func (c *Controller) connForLocked(hwaddr ether.Addr) (*wtpconn.Connection, bool) {
	wtpAddr, ok := c.blockOwner[hwaddr]
	if !ok {
		return nil, false
	}
	entry, ok := c.wtps[wtpAddr]
	if !ok {
		return nil, false
	}
	return entry.conn, true
}

// dispatchLocked turns the commands a state transition produced into wire
// traffic, tracking any xid each one allocates against both the
// connection's registry (for mass failure on disconnect) and the LVAP's
// own pending set (for state-machine gating). Called with c.mu held.
func (c *Controller) dispatchLocked(station ether.Addr, lv *lvap.LVAP, cmds []lvap.Command) {
	for _, cmd := range cmds {
		conn, ok := c.connForLocked(cmd.Block.Hwaddr)
		if !ok {
			c.log.Warnw("no connection owns resource block, dropping command",
				"station", station, "block", cmd.Block)
			continue
		}
		switch cmd.Kind {
		case lvap.CmdSetTxPolicy:
			conn.SendSetPort(&lvapproto.SetPort{
				Flags:        lvapproto.SetPortFlags{NoAck: cmd.Policy.NoAck},
				Hwaddr:       cmd.Block.Hwaddr,
				Channel:      cmd.Block.Channel,
				Band:         byte(cmd.Block.Band),
				Sta:          station,
				RTSCTS:       cmd.Policy.RTSCTS,
				TxMcast:      cmd.Policy.TxMcast,
				URMcastCount: cmd.Policy.URMcastCount,
				MCS:          cmd.Policy.MCS,
				HTMCS:        cmd.Policy.HTMCS,
			})
		case lvap.CmdAddLvap:
			m := &lvapproto.AddLvap{
				Flags: lvapproto.LvapFlags{
					SetMask:       cmd.IsDownlink,
					Associated:    lv.AssociationState,
					Authenticated: lv.AuthenticationState,
				},
				AssocID:       lv.AssocID(),
				Hwaddr:        cmd.Block.Hwaddr,
				Channel:       cmd.Block.Channel,
				Band:          byte(cmd.Block.Band),
				SupportedBand: byte(lv.SupportedBand()),
				Sta:           station,
				Encap:         lv.Encap(),
				NetBSSID:      lv.NetBSSID,
				LvapBSSID:     lv.LvapBSSID(),
				SSIDs:         nonEmptySSIDs(lv.SSIDs()),
			}
			x, err := conn.SendAddLvap(m, xid.KindAddLvap, station)
			if err != nil {
				c.log.Warnw("sending ADD_LVAP", "station", station, "error", err)
				continue
			}
			lv.Track(x)
		case lvap.CmdDelLvap:
			m := &lvapproto.DelLvap{
				Sta: station,
			}
			if cmd.HasTarget {
				m.TargetHwaddr = cmd.TargetBlock.Hwaddr
				m.TargetChannel = cmd.TargetBlock.Channel
				m.TargetBand = byte(cmd.TargetBlock.Band)
				m.CSASwitchMode = 1
				m.CSASwitchCount = 5
			}
			x, err := conn.SendDelLvap(m, xid.KindDelLvap, station)
			if err != nil {
				c.log.Warnw("sending DEL_LVAP", "station", station, "error", err)
				continue
			}
			lv.Track(x)
		case lvap.CmdProbeResponse:
			conn.SendProbeResponse(station, cmd.SSID)
		}
	}
}

func nonEmptySSIDs(ssids []string) []string {
	if len(ssids) == 0 {
		return []string{""}
	}
	return ssids
}

// HandleHello registers a WTP the first time it announces itself, and
// emits WTP_UP.
func (c *Controller) HandleHello(conn *wtpconn.Connection, m *lvapproto.Hello) {
	c.mu.Lock()
	conn.WTP = m.WTP
	_, known := c.wtps[m.WTP]
	if !known {
		c.wtps[m.WTP] = &wtpEntry{conn: conn, wtp: &resource.WTP{Addr: m.WTP}}
	}
	c.mu.Unlock()

	if !known {
		c.metrics.wtpUps.Inc()
		c.broker.PublishWtpUp(m.WTP.String(), time.Now().Unix())
		c.notifyWTP(func(comp Component) { comp.OnWTPUp(m.WTP) })
	}
}

// HandleCapsResponse records a WTP's reported resource blocks and ports.
func (c *Controller) HandleCapsResponse(conn *wtpconn.Connection, m *lvapproto.CapsResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.wtps[conn.WTP]
	if !ok {
		return
	}
	for _, b := range entry.wtp.Blocks {
		delete(c.blockOwner, b.Hwaddr)
	}
	blocks := make([]resource.ResourceBlock, 0, len(m.Blocks))
	for _, b := range m.Blocks {
		blocks = append(blocks, resource.ResourceBlock{Hwaddr: b.Hwaddr, Channel: b.Channel, Band: resource.Band(b.Band)})
		c.blockOwner[b.Hwaddr] = conn.WTP
	}
	ports := make([]resource.Port, 0, len(m.Ports))
	for _, p := range m.Ports {
		ports = append(ports, resource.Port{Hwaddr: p.Hwaddr, PortID: p.PortID, Iface: trimIface(p.Iface)})
	}
	entry.wtp.Blocks = blocks
	entry.wtp.Ports = ports
}

func trimIface(b [10]byte) string {
	n := 0
	for n < len(b) && b[n] != 0 {
		n++
	}
	return string(b[:n])
}

// HandleProbeRequest ensures station has an LVAP entity and reports the
// sighting to every Component; it does not assign blocks or reply on its
// own -- channel/placement policy is an external collaborator (spec §1).
func (c *Controller) HandleProbeRequest(conn *wtpconn.Connection, m *lvapproto.ProbeRequest) {
	c.mu.Lock()
	c.ensureLvapLocked(m.Sta)
	c.mu.Unlock()

	block := resource.ResourceBlock{Hwaddr: m.Hwaddr, Channel: m.Channel, Band: resource.Band(m.Band)}
	c.notifyWTP(func(comp Component) { comp.OnProbeRequest(m.Sta, m.WTP, block, m.SSID) })
}

// HandleAuthRequest acknowledges an 802.11 open-authentication request.
// Open authentication always succeeds at this layer; a tenant's actual
// admission decision happens through STATUS_LVAP/SSID reconciliation once
// the station associates.
func (c *Controller) HandleAuthRequest(conn *wtpconn.Connection, m *lvapproto.AuthRequest) {
	c.mu.Lock()
	c.ensureLvapLocked(m.Sta)
	c.mu.Unlock()
	conn.SendAuthResponse(m.Sta)
}

// HandleAssocRequest acknowledges an 802.11 association request and
// reports the sighting to every Component.
func (c *Controller) HandleAssocRequest(conn *wtpconn.Connection, m *lvapproto.AssocRequest) {
	c.mu.Lock()
	c.ensureLvapLocked(m.Sta)
	c.mu.Unlock()
	conn.SendAssocResponse(m.Sta)

	block := resource.ResourceBlock{Hwaddr: m.Hwaddr, Channel: m.Channel, Band: resource.Band(m.Band)}
	c.notifyWTP(func(comp Component) { comp.OnAssocRequest(m.Sta, m.WTP, block, m.SSID) })
}

// HandleStatusLvap reconciles an agent's authoritative LVAP report.
func (c *Controller) HandleStatusLvap(conn *wtpconn.Connection, m *lvapproto.StatusLvap) {
	c.mu.Lock()
	lv := c.ensureLvapLocked(m.Sta)
	valid := resource.ResourceBlock{Hwaddr: m.Hwaddr, Channel: m.Channel, Band: resource.Band(m.Band)}
	c.blockOwner[m.Hwaddr] = conn.WTP

	tenantID := uuid.Nil
	if len(m.SSIDs) > 0 && m.SSIDs[0] != "" {
		tenantID = c.tenantBySSID[m.SSIDs[0]]
	}

	cmds, events := lv.HandleStatusLvap(m.AssocID, m.Encap, m.SSIDs, valid,
		m.Flags.SetMask, m.Flags.Authenticated, m.Flags.Associated, tenantID)
	c.dispatchLocked(m.Sta, lv, cmds)
	c.mu.Unlock()

	for _, e := range events {
		c.emitLvapEvent(e)
	}
}

// HandleLvapResponse advances the state machine for one resolved xid.
func (c *Controller) HandleLvapResponse(conn *wtpconn.Connection, m *lvapproto.LvapResponse) {
	c.mu.Lock()
	p, ok := conn.Xids.Resolve(ether.Xid(m.ModuleID))
	if !ok {
		c.mu.Unlock()
		c.log.Warnw("response for unknown xid", "wtp", conn.WTP, "xid", m.ModuleID)
		return
	}
	station, ok := p.Data.(ether.Addr)
	if !ok {
		c.mu.Unlock()
		return
	}
	lv, ok := c.lvaps[station]
	if !ok {
		c.mu.Unlock()
		return
	}

	var cmds []lvap.Command
	var err error
	switch m.Type {
	case lvapproto.TypeAddLvapResp:
		cmds, err = lv.HandleAddLvapResponse(ether.Xid(m.ModuleID), c.tenantLocked(lv.TenantID()))
	case lvapproto.TypeDelLvapResp:
		cmds, err = lv.HandleDelLvapResponse(ether.Xid(m.ModuleID))
	}
	if err != nil {
		c.mu.Unlock()
		if kind, ok := lvaperr.KindOf(err); ok && kind == lvaperr.KindProtocol {
			c.log.Warnw("protocol error handling response", "station", station, "error", err)
		} else {
			c.log.Errorw("logic error handling response", "station", station, "error", err)
		}
		return
	}
	c.dispatchLocked(station, lv, cmds)
	c.mu.Unlock()
}

// HandleStatusVap, HandleStatusPort, and HandleStatusTrafficRule accept
// and log reports whose content beyond framing is outside the state
// machine's scope (spec §1 Non-goals): port/traffic-rule policy decisions
// belong to an external collaborator.
func (c *Controller) HandleStatusVap(conn *wtpconn.Connection, m *lvapproto.StatusVap) {
	c.log.Debugw("status vap", "wtp", conn.WTP, "netbssid", m.NetBSSID, "ssid", m.SSID)
}

func (c *Controller) HandleStatusPort(conn *wtpconn.Connection, m *lvapproto.StatusPort) {
	c.log.Debugw("status port", "wtp", conn.WTP, "sta", m.Sta, "hwaddr", m.Hwaddr)
}

func (c *Controller) HandleStatusTrafficRule(conn *wtpconn.Connection, m *lvapproto.StatusTrafficRule) {
	c.log.Debugw("status traffic rule", "wtp", conn.WTP, "ssid", m.SSID)
}

// HandleClosed tears down every LVAP the departed WTP was hosting and
// emits WTP_DOWN, per spec §4.5's disconnect contract.
func (c *Controller) HandleClosed(conn *wtpconn.Connection, err error) {
	c.mu.Lock()

	entry, known := c.wtps[conn.WTP]
	var orphaned []struct {
		station  ether.Addr
		tenantID uuid.UUID
	}
	for station, lv := range c.lvaps {
		owned := false
		for _, b := range lv.Blocks() {
			if c.blockOwner[b.Hwaddr] == conn.WTP {
				owned = true
				break
			}
		}
		if !owned {
			continue
		}
		tenantID := lv.ForceReset()
		if tenantID != uuid.Nil {
			orphaned = append(orphaned, struct {
				station  ether.Addr
				tenantID uuid.UUID
			}{station, tenantID})
		}
	}
	failed := conn.Xids.FailAll()

	if known {
		for _, b := range entry.wtp.Blocks {
			delete(c.blockOwner, b.Hwaddr)
		}
		delete(c.wtps, conn.WTP)
	}
	c.mu.Unlock()

	if len(failed) > 0 {
		c.metrics.xidTimeouts.Add(float64(len(failed)))
	}
	for _, o := range orphaned {
		c.emitLvapEvent(lvap.Event{Kind: lvap.EventLeave, Station: o.station, TenantID: o.tenantID})
	}

	if known {
		c.metrics.wtpDowns.Inc()
		c.broker.PublishWtpDown(conn.WTP.String(), time.Now().Unix())
		c.notifyWTP(func(comp Component) { comp.OnWTPDown(conn.WTP) })
	}
	if err != nil {
		c.log.Warnw("wtp connection closed", "wtp", conn.WTP, "error", err)
	}
}

func (c *Controller) emitLvapEvent(e lvap.Event) {
	c.mu.Lock()
	if t, ok := c.tenants[e.TenantID]; ok {
		switch e.Kind {
		case lvap.EventJoin:
			t.BindStation(e.Station)
		case lvap.EventLeave:
			t.UnbindStation(e.Station)
		}
	}
	c.mu.Unlock()

	ts := time.Now().Unix()
	switch e.Kind {
	case lvap.EventJoin:
		c.metrics.lvapJoins.Inc()
		c.broker.PublishLvapJoin(e.Station.String(), e.TenantID.String(), ts)
		c.notifyLvap(func(comp Component) { comp.OnLvapJoin(e.Station, e.TenantID) })
	case lvap.EventLeave:
		c.metrics.lvapLeaves.Inc()
		c.broker.PublishLvapLeave(e.Station.String(), e.TenantID.String(), ts)
		c.notifyLvap(func(comp Component) { comp.OnLvapLeave(e.Station, e.TenantID) })
	}
}

func (c *Controller) notifyWTP(f func(Component)) {
	c.mu.Lock()
	comps := append([]Component(nil), c.components...)
	c.mu.Unlock()
	for _, comp := range comps {
		f(comp)
	}
}

func (c *Controller) notifyLvap(f func(Component)) {
	c.notifyWTP(f)
}

// PublishCounter forwards a named counter sample to the broker, for the
// COUNTERS event spec §6 describes -- the counters themselves are
// computed by an external collaborator and handed to the controller only
// to publish.
func (c *Controller) PublishCounter(name string, value float64) {
	c.broker.PublishCounter(name, value, time.Now().Unix())
}

/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// Package lvap implements the Light Virtual Access Point entity and its
// lifecycle state machine. An LVAP is spawned for every station the network
// hears from; it is scheduled on exactly one resource block in the downlink
// direction (and, optionally, additional uplink-only blocks), and it can be
// migrated between WTPs by reassigning its blocks.
//
// This package never talks to a connection directly. Every method that would
// cause the agent side to do something returns a slice of Command values
// describing what to send; the caller -- the controller -- owns the
// connections, allocates xids, and feeds responses back in through
// HandleAddLvapResponse/HandleDelLvapResponse. This keeps the state machine
// testable without a network and keeps the package free of a dependency on
// the controller or wtpconn packages.
package lvap

import (
	"github.com/pkg/errors"
	"github.com/satori/uuid"

	"lvapd/ether"
	"lvapd/lvaperr"
	"lvapd/resource"
)

// State is a stage in the LVAP lifecycle.
type State int

// Lifecycle states.
const (
	// StateNone is the zero value: the LVAP has never been assigned a
	// block.
	StateNone State = iota
	// StateSpawning: ADD_LVAP sent, no ADD_LVAP_RESPONSE yet.
	StateSpawning
	// StateRunning: every ADD_LVAP this spawn issued has been acked.
	StateRunning
	// StateRemoving: DEL_LVAP sent, no DEL_LVAP_RESPONSE yet.
	StateRemoving
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateSpawning:
		return "spawning"
	case StateRunning:
		return "running"
	case StateRemoving:
		return "removing"
	default:
		return "invalid"
	}
}

// legal holds every transition this state machine permits. Anything not in
// this table is a logic error.
var legal = map[[2]State]bool{
	{StateNone, StateSpawning}:     true,
	{StateRunning, StateRemoving}:  true,
	{StateSpawning, StateRunning}:  true,
	{StateRemoving, StateSpawning}: true,
}

func transition(from, to State) error {
	if !legal[[2]State{from, to}] {
		return errors.Wrapf(lvaperr.InvalidTransition, "%s -> %s", from, to)
	}
	return nil
}

// CommandKind identifies what a Command asks the controller to send.
type CommandKind int

// Command kinds.
const (
	CmdAddLvap CommandKind = iota
	CmdDelLvap
	CmdSetTxPolicy
	CmdProbeResponse
)

// Command describes one piece of wire traffic the controller must issue on
// this LVAP's behalf. CmdAddLvap and CmdDelLvap expect a correlated
// response: the controller allocates an xid for each one it sends and calls
// Track with it, so the matching response drains l.pending.
type Command struct {
	Kind        CommandKind
	Block       resource.ResourceBlock
	IsDownlink  bool
	TargetBlock resource.ResourceBlock // valid for CmdDelLvap with a channel switch
	HasTarget   bool
	Policy      resource.TxPolicy // valid for CmdSetTxPolicy
	SSID        string            // valid for CmdProbeResponse
}

// EventKind identifies what an Event reports.
type EventKind int

// Event kinds.
const (
	EventJoin EventKind = iota
	EventLeave
)

// Event reports an LVAP joining or leaving a tenant's SSID, for the
// controller to relay to its components and to the broker.
type Event struct {
	Kind     EventKind
	Station  ether.Addr
	TenantID uuid.UUID
}

// LVAP is one client's virtual access point.
type LVAP struct {
	Addr      ether.Addr
	NetBSSID  ether.Addr
	lvapBSSID ether.Addr

	AuthenticationState bool
	AssociationState    bool

	ssids []string
	encap ether.Addr

	assocID       uint16
	tenantID      uuid.UUID
	supportedBand resource.Band

	downlink *resource.ResourceBlock
	uplink   []resource.ResourceBlock

	state        State
	targetBlocks []resource.ResourceBlock
	pending      []ether.Xid
}

// New constructs an LVAP in StateNone, unbound to any block.
func New(addr, netBSSID, lvapBSSID ether.Addr) *LVAP {
	return &LVAP{
		Addr:      addr,
		NetBSSID:  netBSSID,
		lvapBSSID: lvapBSSID,
	}
}

// State returns the current lifecycle state.
func (l *LVAP) State() State { return l.state }

// TenantID returns the ID of the tenant this LVAP is currently joined to, or
// uuid.Nil if it is not joined to one.
func (l *LVAP) TenantID() uuid.UUID { return l.tenantID }

// LvapBSSID returns the BSSID the station is currently attached to.
func (l *LVAP) LvapBSSID() ether.Addr { return l.lvapBSSID }

// SSIDs returns the SSIDs still to be offered, beyond the one currently
// associated.
func (l *LVAP) SSIDs() []string { return l.ssids }

// Encap returns the ethernet re-encapsulation address, or ether.Zero if none
// is set.
func (l *LVAP) Encap() ether.Addr { return l.encap }

// AssocID returns the 802.11 association id most recently reported or set.
func (l *LVAP) AssocID() uint16 { return l.assocID }

// SupportedBand returns the station's most recently reported supported band.
func (l *LVAP) SupportedBand() resource.Band { return l.supportedBand }

// Blocks returns the LVAP's downlink block (if any) followed by its uplink
// blocks.
func (l *LVAP) Blocks() []resource.ResourceBlock {
	if l.downlink == nil {
		return append([]resource.ResourceBlock(nil), l.uplink...)
	}
	out := make([]resource.ResourceBlock, 0, 1+len(l.uplink))
	out = append(out, *l.downlink)
	return append(out, l.uplink...)
}

// Pending reports how many xids this LVAP is still waiting on.
func (l *LVAP) Pending() int { return len(l.pending) }

// Track records that xid must resolve before the current transition can
// complete.
func (l *LVAP) Track(x ether.Xid) {
	l.pending = append(l.pending, x)
}

func (l *LVAP) untrack(x ether.Xid) bool {
	for i, p := range l.pending {
		if p == x {
			l.pending = append(l.pending[:i], l.pending[i+1:]...)
			return true
		}
	}
	return false
}

// AssignBlocks schedules the LVAP onto a new set of resource blocks: blocks[0]
// becomes the downlink block, the rest become uplink blocks. If the LVAP is
// bound to a shared tenant, the target block's generated BSSID must already
// be one of that tenant's VAPs or the request is silently ignored (the
// tenant isn't available there) -- matching the handover path's "no block
// found" contract in AssignWTP.
func (l *LVAP) AssignBlocks(blocks []resource.ResourceBlock, tenant *resource.Tenant) ([]Command, error) {
	if len(l.pending) > 0 {
		return nil, lvaperr.HandoverInProgress
	}
	if len(blocks) == 0 {
		return nil, nil
	}

	if tenant != nil && tenant.Bssid == resource.BssidShared {
		netBSSID := ether.GenerateBSSID(tenant.Prefix, blocks[0].Hwaddr)
		if !tenantHasVAP(tenant, netBSSID) {
			return nil, nil
		}
		l.tenantID = uuid.Nil
		l.AssociationState = false
		l.AuthenticationState = false
		l.assocID = 0
		l.lvapBSSID = netBSSID
	}

	l.targetBlocks = blocks

	switch l.state {
	case StateNone:
		if err := transition(StateNone, StateSpawning); err != nil {
			return nil, err
		}
		return l.enterSpawning(), nil
	case StateRunning:
		if err := transition(StateRunning, StateRemoving); err != nil {
			return nil, err
		}
		return l.enterRemoving(), nil
	default:
		return nil, errors.Wrapf(lvaperr.InvalidTransition,
			"cannot assign blocks in state %s", l.state)
	}
}

func tenantHasVAP(tenant *resource.Tenant, bssid ether.Addr) bool {
	for _, vap := range tenant.VAPs {
		if vap.NetBSSID == bssid {
			return true
		}
	}
	return false
}

// AssignWTP retargets the LVAP's downlink (and its uplinks) onto the first
// block of wtp that matches the current downlink's channel and band. If no
// such block exists the request is silently dropped -- there is nothing
// sensible to hand over to.
func (l *LVAP) AssignWTP(wtp *resource.WTP, tenant *resource.Tenant) ([]Command, error) {
	if l.downlink == nil {
		return nil, lvaperr.UnboundLVAP
	}
	candidates := resource.BlockSet(wtp.Blocks).
		FilterByChannel(l.downlink.Channel).
		FilterByBand(l.downlink.Band)
	block, ok := candidates.First()
	if !ok {
		return nil, nil
	}
	return l.AssignBlocks([]resource.ResourceBlock{block}, tenant)
}

func (l *LVAP) enterSpawning() []Command {
	var cmds []Command
	cmds = append(cmds, l.assignDownlink(l.targetBlocks[0])...)
	cmds = append(cmds, l.assignUplink(l.targetBlocks[1:])...)
	return cmds
}

func (l *LVAP) enterRemoving() []Command {
	var cmds []Command
	downlink := *l.downlink
	if downlink.Channel != l.targetBlocks[0].Channel {
		cmds = append(cmds, Command{
			Kind:        CmdDelLvap,
			Block:       downlink,
			TargetBlock: l.targetBlocks[0],
			HasTarget:   true,
		})
	} else {
		cmds = append(cmds, Command{Kind: CmdDelLvap, Block: downlink})
	}
	for _, block := range l.uplink {
		cmds = append(cmds, Command{Kind: CmdDelLvap, Block: block})
	}
	l.downlink = nil
	l.uplink = nil
	l.state = StateRemoving
	return cmds
}

func (l *LVAP) assignDownlink(block resource.ResourceBlock) []Command {
	policy := resource.DefaultTxPolicy
	if block.Channel > 14 {
		policy.MCS = []byte{6, 9, 12, 18, 24, 36, 48, 54}
	} else {
		policy.MCS = []byte{1, 2, 5, 11, 6, 9, 12, 18, 24, 36, 48, 54}
	}
	if l.supportedBand == resource.BandHi20 {
		policy.HTMCS = []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	}

	l.downlink = &block
	l.state = StateSpawning

	return []Command{
		{Kind: CmdSetTxPolicy, Block: block, Policy: policy},
		{Kind: CmdAddLvap, Block: block, IsDownlink: true},
	}
}

func (l *LVAP) assignUplink(blocks []resource.ResourceBlock) []Command {
	var cmds []Command
	for _, block := range blocks {
		l.uplink = append(l.uplink, block)
		cmds = append(cmds, Command{Kind: CmdAddLvap, Block: block, IsDownlink: false})
	}
	return cmds
}

// HandleAddLvapResponse resolves one outstanding ADD_LVAP, advancing
// StateSpawning -> StateRunning once every block this spawn touched has
// acked. If tenant is non-nil (the LVAP has joined an SSID), the transition
// to Running also emits a probe response command.
func (l *LVAP) HandleAddLvapResponse(x ether.Xid, tenant *resource.Tenant) ([]Command, error) {
	if !l.untrack(x) {
		return nil, lvaperr.XidNotPending
	}
	if l.state != StateSpawning {
		return nil, errors.Wrapf(lvaperr.ResponseInWrongState,
			"ADD_LVAP_RESPONSE in state %s", l.state)
	}
	if len(l.pending) > 0 {
		return nil, nil
	}
	if err := transition(StateSpawning, StateRunning); err != nil {
		return nil, err
	}
	l.state = StateRunning
	if tenant == nil || l.downlink == nil {
		return nil, nil
	}
	return []Command{{Kind: CmdProbeResponse, Block: *l.downlink, SSID: tenant.SSID}}, nil
}

// HandleDelLvapResponse resolves one outstanding DEL_LVAP, advancing
// StateRemoving -> StateSpawning (onto targetBlocks) once every block has
// acked.
func (l *LVAP) HandleDelLvapResponse(x ether.Xid) ([]Command, error) {
	if !l.untrack(x) {
		return nil, lvaperr.XidNotPending
	}
	if l.state != StateRemoving {
		return nil, errors.Wrapf(lvaperr.ResponseInWrongState,
			"DEL_LVAP_RESPONSE in state %s", l.state)
	}
	if len(l.pending) > 0 {
		return nil, nil
	}
	if err := transition(StateRemoving, StateSpawning); err != nil {
		return nil, err
	}
	cmds := l.enterSpawning()
	l.targetBlocks = nil
	return cmds, nil
}

// Refresh re-sends ADD_LVAP for every block the LVAP currently occupies,
// without touching its state or pending set. Callers use this after
// changing a field (encap, assoc ID, SSIDs, tenant) that the agent needs to
// know about but that doesn't warrant a full handover.
func (l *LVAP) Refresh() []Command {
	blocks := l.Blocks()
	if len(blocks) == 0 {
		return nil
	}
	cmds := make([]Command, 0, len(blocks))
	cmds = append(cmds, Command{Kind: CmdAddLvap, Block: blocks[0], IsDownlink: true})
	for _, b := range blocks[1:] {
		cmds = append(cmds, Command{Kind: CmdAddLvap, Block: b, IsDownlink: false})
	}
	return cmds
}

// SetEncap updates the encapsulation address, refreshing the agent if it
// changed.
func (l *LVAP) SetEncap(encap ether.Addr) []Command {
	if l.encap == encap {
		return nil
	}
	l.encap = encap
	return l.Refresh()
}

// SetAssocID updates the association id, refreshing the agent if it changed.
func (l *LVAP) SetAssocID(assocID uint16) []Command {
	if l.assocID == assocID {
		return nil
	}
	l.assocID = assocID
	return l.Refresh()
}

// SetSupportedBand updates the station's supported band, refreshing the
// agent if it changed.
func (l *LVAP) SetSupportedBand(band resource.Band) []Command {
	if l.supportedBand == band {
		return nil
	}
	l.supportedBand = band
	return l.Refresh()
}

// SetSSIDs updates the list of SSIDs still to be offered, refreshing the
// agent if it changed.
func (l *LVAP) SetSSIDs(ssids []string) []Command {
	if stringsEqual(l.ssids, ssids) {
		return nil
	}
	l.ssids = ssids
	return l.Refresh()
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ClearBlocks returns a DEL_LVAP command for every block the LVAP occupies
// and unbinds it from them without waiting for responses; its state and
// pending xids are left as they are. The WTP-disconnect path uses
// ForceReset instead.
func (l *LVAP) ClearBlocks() []Command {
	blocks := l.Blocks()
	cmds := make([]Command, 0, len(blocks))
	for _, b := range blocks {
		cmds = append(cmds, Command{Kind: CmdDelLvap, Block: b})
	}
	l.downlink = nil
	l.uplink = nil
	return cmds
}

// ForceReset clears an LVAP back to its unbound, None-state zero value, for
// use when its WTP disconnects or its pending transaction times out (spec
// §5's deadline-driven forced cleanup). The commands ClearBlocks would
// return are not meaningful here -- the connection they'd be sent on is
// already gone -- so this just resets local state and hands back the
// tenant ID the caller should emit an LVAP_LEAVE for and unbind from, if
// any.
func (l *LVAP) ForceReset() uuid.UUID {
	tenantID := l.tenantID
	l.downlink = nil
	l.uplink = nil
	l.pending = nil
	l.targetBlocks = nil
	l.tenantID = uuid.Nil
	l.state = StateNone
	l.AuthenticationState = false
	l.AssociationState = false
	return tenantID
}

// HandleStatusLvap reconciles an authoritative STATUS_LVAP report from an
// agent. tenantID is the ID of the tenant owning ssids[0] as resolved by the
// caller (the controller), or uuid.Nil if ssids[0] is "" or unrecognized.
func (l *LVAP) HandleStatusLvap(assocID uint16, encap ether.Addr, ssids []string,
	valid resource.ResourceBlock, setMask, authenticated, associated bool,
	tenantID uuid.UUID) ([]Command, []Event) {

	var cmds []Command

	if setMask && l.downlink != nil && *l.downlink != valid {
		cmds = append(cmds, Command{Kind: CmdDelLvap, Block: *l.downlink})
	}
	if setMask {
		block := valid
		l.downlink = &block
	} else {
		l.uplink = append(l.uplink, valid)
	}

	l.AuthenticationState = authenticated
	l.AssociationState = associated
	l.assocID = assocID
	l.encap = encap

	var events []Event

	currentSSID := ""
	if len(ssids) > 0 {
		currentSSID = ssids[0]
	}

	if l.tenantID != uuid.Nil && l.tenantID != tenantID {
		events = append(events, Event{Kind: EventLeave, Station: l.Addr, TenantID: l.tenantID})
		l.tenantID = uuid.Nil
	}

	if len(ssids) > 0 {
		l.ssids = ssids[1:]
	} else {
		l.ssids = nil
	}

	if currentSSID != "" {
		l.tenantID = tenantID
		events = append(events, Event{Kind: EventJoin, Station: l.Addr, TenantID: tenantID})
	}

	return cmds, events
}

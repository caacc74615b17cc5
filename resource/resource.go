/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// Package resource models the controller's view of the radio hardware it
// owns: resource blocks on WTPs, the per-station transmission policies
// applied to them, and the tenants that lease LVAPs out of them.
package resource

import (
	"github.com/satori/uuid"

	"lvapd/common/wifi"
	"lvapd/ether"
)

// Band identifies the frequency band and channel width a ResourceBlock
// operates at, as carried on the wire (spec §4.1).
type Band byte

// Band values, per the wire protocol's band field.
const (
	BandLo20 Band = iota // 2.4GHz, 20MHz channels
	BandHi20              // 5GHz, 20MHz channels
	BandHi40              // 5GHz, 40MHz channels
)

// String names the band the way common/wifi names its frequency bands.
func (b Band) String() string {
	switch b {
	case BandLo20:
		return wifi.LoBand
	case BandHi20, BandHi40:
		return wifi.HiBand
	default:
		return "unknown"
	}
}

// TxPolicy is the per-(block, station) transmission policy installed with
// SET_PORT (spec §4.3).
type TxPolicy struct {
	NoAck        bool
	RTSCTS       uint16
	TxMcast      byte
	URMcastCount byte
	MCS          []byte
	HTMCS        []byte
}

// DefaultTxPolicy is the base of the policy lvap installs (via SET_PORT)
// each time it assigns a station a downlink block; lvap fills in MCS and
// HTMCS from the block's channel and the station's band. Nothing else in
// this repository sets a station's policy.
var DefaultTxPolicy = TxPolicy{
	NoAck:        false,
	RTSCTS:       2347,
	TxMcast:      0,
	URMcastCount: 3,
}

// ResourceBlock is one radio's worth of spectrum on one WTP: a (hwaddr,
// channel, band) triple. Each LVAP has at most one downlink block; any
// number of LVAPs may use the same block. A block belongs to exactly one WTP.
type ResourceBlock struct {
	Hwaddr  ether.Addr
	Channel byte
	Band    Band
}

// WTP is a wireless termination point: the controller's record of one
// agent's connection and the resource blocks and ports it has reported.
type WTP struct {
	Addr   ether.Addr
	Blocks []ResourceBlock
	Ports  []Port
}

// Port is a wired interface a WTP reported in its capability response.
type Port struct {
	Hwaddr ether.Addr
	PortID uint16
	Iface  string
}

// BlockSet is a slice of ResourceBlock with the filtering helpers the
// controller's placement logic needs.
type BlockSet []ResourceBlock

// FilterByChannel returns the blocks operating on the given channel.
func (bs BlockSet) FilterByChannel(channel byte) BlockSet {
	var out BlockSet
	for _, b := range bs {
		if b.Channel == channel {
			out = append(out, b)
		}
	}
	return out
}

// FilterByBand returns the blocks operating in the given band.
func (bs BlockSet) FilterByBand(band Band) BlockSet {
	var out BlockSet
	for _, b := range bs {
		if b.Band == band {
			out = append(out, b)
		}
	}
	return out
}

// First returns the first block in the set and true, or the zero value and
// false if the set is empty. Which block is "first" among otherwise
// equivalent candidates is left to the caller that built the set (spec
// §9 Open Question: weighting among first-choice blocks is an external
// placement-policy concern this controller does not implement).
func (bs BlockSet) First() (ResourceBlock, bool) {
	if len(bs) == 0 {
		return ResourceBlock{}, false
	}
	return bs[0], true
}

// BssidType distinguishes whether a tenant's stations share one BSSID or
// each receive a BSSID unique to their LVAP.
type BssidType int

// Bssid types, per spec §4.3.
const (
	BssidUnique BssidType = iota
	BssidShared
)

// Tenant is a leased SSID: a prefix address used to derive per-station
// BSSIDs, the set of VAPs it has requested, and the LVAPs currently bound to
// it. Tenant does not hold a reference back to the LVAPs' owning structures
// beyond this map -- callers resolve an LVAP's tenant through the
// controller by ID, never through a pointer cycle.
type Tenant struct {
	UUID   uuid.UUID
	SSID   string
	Bssid  BssidType
	Prefix ether.Addr
	VAPs   []VAP
	Lvaps  map[ether.Addr]struct{} // station addresses bound to this tenant
}

// NewTenant constructs an empty Tenant.
func NewTenant(id uuid.UUID, ssid string, bssid BssidType, prefix ether.Addr) *Tenant {
	return &Tenant{
		UUID:   id,
		SSID:   ssid,
		Bssid:  bssid,
		Prefix: prefix,
		Lvaps:  make(map[ether.Addr]struct{}),
	}
}

// BindStation records that sta now has an LVAP bound to this tenant.
func (t *Tenant) BindStation(sta ether.Addr) {
	t.Lvaps[sta] = struct{}{}
}

// UnbindStation removes sta's binding to this tenant.
func (t *Tenant) UnbindStation(sta ether.Addr) {
	delete(t.Lvaps, sta)
}

// VAP is a shared broadcast access point a tenant has asked to be hosted on
// a WTP, independent of any particular station's LVAP.
type VAP struct {
	NetBSSID ether.Addr
	Block    ResourceBlock
	WTP      ether.Addr
}

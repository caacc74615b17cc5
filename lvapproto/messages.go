/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

package lvapproto

import "lvapd/ether"

// Hello announces an agent's presence and its heartbeat period.
type Hello struct {
	Seq    uint32
	WTP    ether.Addr
	Period uint32 // milliseconds
}

// MsgType implements Message.
func (*Hello) MsgType() byte { return TypeHello }

// ProbeRequest reports an 802.11 probe from a station.
type ProbeRequest struct {
	Seq           uint32
	WTP           ether.Addr
	Sta           ether.Addr
	Hwaddr        ether.Addr
	Channel       byte
	Band          byte
	SupportedBand byte
	SSID          string
}

// MsgType implements Message.
func (*ProbeRequest) MsgType() byte { return TypeProbeReq }

// ProbeResponse answers a ProbeRequest, offering an SSID to the station.
type ProbeResponse struct {
	Seq  uint32
	Sta  ether.Addr
	SSID string
}

// MsgType implements Message.
func (*ProbeResponse) MsgType() byte { return TypeProbeResp }

// AuthRequest reports an 802.11 open-authentication request.
type AuthRequest struct {
	Seq   uint32
	WTP   ether.Addr
	Sta   ether.Addr
	Bssid ether.Addr
}

// MsgType implements Message.
func (*AuthRequest) MsgType() byte { return TypeAuthReq }

// AuthResponse answers an AuthRequest.
type AuthResponse struct {
	Seq uint32
	Sta ether.Addr
}

// MsgType implements Message.
func (*AuthResponse) MsgType() byte { return TypeAuthResp }

// AssocRequest reports an 802.11 association request.
type AssocRequest struct {
	Seq           uint32
	WTP           ether.Addr
	Sta           ether.Addr
	Bssid         ether.Addr
	Hwaddr        ether.Addr
	Channel       byte
	Band          byte
	SupportedBand byte
	SSID          string
}

// MsgType implements Message.
func (*AssocRequest) MsgType() byte { return TypeAssocReq }

// AssocResponse answers an AssocRequest.
type AssocResponse struct {
	Seq uint32
	Sta ether.Addr
}

// MsgType implements Message.
func (*AssocResponse) MsgType() byte { return TypeAssocResp }

// LvapFlags is the 3-bit flag field shared by ADD_LVAP and STATUS_LVAP,
// packed into the low 3 bits of a 16-bit field (13 bits of padding above
// them).
type LvapFlags struct {
	SetMask       bool
	Associated    bool
	Authenticated bool
}

func decodeLvapFlags(raw uint16) LvapFlags {
	return LvapFlags{
		SetMask:       raw&0x4 != 0,
		Associated:    raw&0x2 != 0,
		Authenticated: raw&0x1 != 0,
	}
}

func (f LvapFlags) encode() uint16 {
	var raw uint16
	if f.SetMask {
		raw |= 0x4
	}
	if f.Associated {
		raw |= 0x2
	}
	if f.Authenticated {
		raw |= 0x1
	}
	return raw
}

// AddLvap instructs an agent to instantiate (or refresh) an LVAP on one of
// its resource blocks.
type AddLvap struct {
	Seq           uint32
	ModuleID      uint32 // xid
	Flags         LvapFlags
	AssocID       uint16
	Hwaddr        ether.Addr
	Channel       byte
	Band          byte
	SupportedBand byte
	Sta           ether.Addr
	Encap         ether.Addr
	NetBSSID      ether.Addr
	LvapBSSID     ether.Addr
	SSIDs         []string
}

// MsgType implements Message.
func (*AddLvap) MsgType() byte { return TypeAddLvap }

// DelLvap instructs an agent to tear down an LVAP on one block, optionally
// carrying a channel-switch announcement toward the block it is migrating
// to.
type DelLvap struct {
	Seq             uint32
	ModuleID        uint32 // xid
	Sta             ether.Addr
	TargetHwaddr    ether.Addr
	TargetChannel   byte
	TargetBand      byte
	CSASwitchMode   byte
	CSASwitchCount  byte
}

// MsgType implements Message.
func (*DelLvap) MsgType() byte { return TypeDelLvap }

// StatusLvap is the agent's authoritative report of an LVAP's state,
// reconciled by the controller on receipt.
type StatusLvap struct {
	Seq           uint32
	Flags         LvapFlags
	AssocID       uint16
	WTP           ether.Addr
	Sta           ether.Addr
	Encap         ether.Addr
	Hwaddr        ether.Addr
	Channel       byte
	Band          byte
	SupportedBand byte
	NetBSSID      ether.Addr
	LvapBSSID     ether.Addr
	SSIDs         []string
}

// MsgType implements Message.
func (*StatusLvap) MsgType() byte { return TypeStatusLvap }

// SetPortFlags is the 1-bit flag field of SET_PORT/STATUS_PORT.
type SetPortFlags struct {
	NoAck bool
}

// CapsBlock describes one resource block reported by CAPS_RESPONSE.
type CapsBlock struct {
	Hwaddr  ether.Addr
	Channel byte
	Band    byte
}

// CapsPort describes one port reported by CAPS_RESPONSE.
type CapsPort struct {
	Hwaddr ether.Addr
	PortID uint16
	Iface  [10]byte
}

// CapsRequest asks an agent to report its capabilities.
type CapsRequest struct {
	Seq uint32
}

// MsgType implements Message.
func (*CapsRequest) MsgType() byte { return TypeCapsReq }

// CapsResponse is an agent's capability report: its resource blocks and
// ports.
type CapsResponse struct {
	Seq    uint32
	WTP    ether.Addr
	Blocks []CapsBlock
	Ports  []CapsPort
}

// MsgType implements Message.
func (*CapsResponse) MsgType() byte { return TypeCapsResp }

// SetPort installs a per-station transmission policy on a resource block.
type SetPort struct {
	Seq          uint32
	Flags        SetPortFlags
	Hwaddr       ether.Addr
	Channel      byte
	Band         byte
	Sta          ether.Addr
	RTSCTS       uint16
	TxMcast      byte
	URMcastCount byte
	MCS          []byte
	HTMCS        []byte
}

// MsgType implements Message.
func (*SetPort) MsgType() byte { return TypeSetPort }

// StatusPort mirrors SetPort, reported by an agent.
type StatusPort struct {
	Seq          uint32
	Flags        SetPortFlags
	WTP          ether.Addr
	Sta          ether.Addr
	Hwaddr       ether.Addr
	Channel      byte
	Band         byte
	RTSCTS       uint16
	TxMcast      byte
	URMcastCount byte
	MCS          []byte
	HTMCS        []byte
}

// MsgType implements Message.
func (*StatusPort) MsgType() byte { return TypeStatusPort }

// AddVap instructs an agent to host a shared broadcast VAP.
type AddVap struct {
	Seq      uint32
	Hwaddr   ether.Addr
	Channel  byte
	Band     byte
	NetBSSID ether.Addr
	SSID     string
}

// MsgType implements Message.
func (*AddVap) MsgType() byte { return TypeAddVap }

// DelVap instructs an agent to tear down a VAP.
type DelVap struct {
	Seq      uint32
	NetBSSID ether.Addr
}

// MsgType implements Message.
func (*DelVap) MsgType() byte { return TypeDelVap }

// StatusVap is an agent's report of a VAP it is hosting.
type StatusVap struct {
	Seq      uint32
	WTP      ether.Addr
	Hwaddr   ether.Addr
	Channel  byte
	Band     byte
	NetBSSID ether.Addr
	SSID     string
}

// MsgType implements Message.
func (*StatusVap) MsgType() byte { return TypeStatusVap }

// LvapResponse is the shared shape of ADD_LVAP_RESPONSE and
// DEL_LVAP_RESPONSE: the agent's acknowledgement of a previously issued
// command, correlated back to the controller by ModuleID (xid).
type LvapResponse struct {
	Seq      uint32
	Type     byte // TypeAddLvapResp or TypeDelLvapResp
	WTP      ether.Addr
	Sta      ether.Addr
	ModuleID uint32 // xid
	Status   uint32
}

// MsgType implements Message.
func (r *LvapResponse) MsgType() byte { return r.Type }

// StatusRequest is the shared empty-payload shape of the LVAP/VAP/PORT/
// traffic-rule status request messages.
type StatusRequest struct {
	Seq  uint32
	Type byte
}

// MsgType implements Message.
func (r *StatusRequest) MsgType() byte { return r.Type }

// AddTrafficRule installs a traffic-shaping rule for an SSID. Its content
// beyond framing is a policy concern outside this repository's scope; the
// codec still has to round-trip it correctly since it shares the wire with
// messages the state machine does care about.
type AddTrafficRule struct {
	Seq              uint32
	AmsduAggregation bool
	Quantum          uint16
	DSCP             byte
	SSID             string
}

// MsgType implements Message.
func (*AddTrafficRule) MsgType() byte { return TypeAddTrafRule }

// StatusTrafficRule is an agent's report of an installed traffic rule.
type StatusTrafficRule struct {
	Seq              uint32
	WTP              ether.Addr
	Hwaddr           ether.Addr
	Channel          byte
	Band             byte
	AmsduAggregation bool
	Quantum          uint16
	DSCP             byte
	SSID             string
}

// MsgType implements Message.
func (*StatusTrafficRule) MsgType() byte { return TypeStatTrafRule }

// Empty is the zero-payload shape of BYE and REGISTER.
type Empty struct {
	Type byte
}

// MsgType implements Message.
func (e *Empty) MsgType() byte { return e.Type }

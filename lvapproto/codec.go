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

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"lvapd/lvaperr"
)

// Fixed body sizes (bytes following the 6-byte header) for every message
// whose payload carries a variable-length trailing field. Each constant is
// the total on-wire fixed-field count; a message's trailing field consumes
// whatever is left of the frame.
const (
	probeRequestFixed    = 25
	probeResponseFixed   = 10
	assocRequestFixed    = 31
	addLvapFixed         = 45
	statusLvapFixed      = 47
	addVapFixed          = 18
	statusVapFixed       = 24
	addTrafficRuleFixed  = 9
	statusTrafficRuleFixed = 23
)

func trailing(body []byte, fixed int) ([]byte, error) {
	if len(body) < fixed {
		return nil, errors.Wrapf(lvaperr.FieldOverflow,
			"body of %d bytes shorter than fixed prefix of %d", len(body), fixed)
	}
	return body[fixed:], nil
}

// decodeSSIDs parses the SSIDS sequence used by ADD_LVAP and STATUS_LVAP: a
// run of 1-10 length-prefixed strings that consumes the rest of the frame.
func decodeSSIDs(b []byte) ([]string, error) {
	var ssids []string
	for len(b) > 0 {
		if len(ssids) >= 10 {
			return nil, errors.Wrap(lvaperr.FieldOverflow, "more than 10 SSIDs")
		}
		if len(b) < 1 {
			return nil, errors.Wrap(lvaperr.TruncatedFrame, "SSIDS length prefix")
		}
		n := int(b[0])
		b = b[1:]
		if len(b) < n {
			return nil, errors.Wrap(lvaperr.TruncatedFrame, "SSIDS string body")
		}
		ssids = append(ssids, string(b[:n]))
		b = b[n:]
	}
	if len(ssids) == 0 {
		return nil, errors.Wrap(lvaperr.FieldOverflow, "SSIDS sequence empty")
	}
	return ssids, nil
}

func encodeSSIDs(ssids []string) []byte {
	var out []byte
	for _, s := range ssids {
		out = append(out, byte(len(s)))
		out = append(out, s...)
	}
	return out
}

func decodeHello(b []byte) (Message, error) {
	if len(b) != 14 {
		return nil, errors.Wrap(lvaperr.TruncatedFrame, "HELLO")
	}
	return &Hello{
		Seq:    binary.BigEndian.Uint32(b[0:4]),
		WTP:    readAddr(b, 4),
		Period: binary.BigEndian.Uint32(b[10:14]),
	}, nil
}

func encodeHello(m *Hello) []byte {
	buf := make([]byte, HeaderSize+14)
	putHeader(buf, TypeHello, len(buf))
	body := buf[HeaderSize:]
	binary.BigEndian.PutUint32(body[0:4], m.Seq)
	putAddr(body, 4, m.WTP)
	binary.BigEndian.PutUint32(body[10:14], m.Period)
	return buf
}

func decodeProbeRequest(b []byte) (Message, error) {
	rest, err := trailing(b, probeRequestFixed)
	if err != nil {
		return nil, err
	}
	return &ProbeRequest{
		Seq:           binary.BigEndian.Uint32(b[0:4]),
		WTP:           readAddr(b, 4),
		Sta:           readAddr(b, 10),
		Hwaddr:        readAddr(b, 16),
		Channel:       b[22],
		Band:          b[23],
		SupportedBand: b[24],
		SSID:          string(rest),
	}, nil
}

func encodeProbeRequest(m *ProbeRequest) []byte {
	buf := make([]byte, HeaderSize+probeRequestFixed+len(m.SSID))
	putHeader(buf, TypeProbeReq, len(buf))
	body := buf[HeaderSize:]
	binary.BigEndian.PutUint32(body[0:4], m.Seq)
	putAddr(body, 4, m.WTP)
	putAddr(body, 10, m.Sta)
	putAddr(body, 16, m.Hwaddr)
	body[22] = m.Channel
	body[23] = m.Band
	body[24] = m.SupportedBand
	copy(body[probeRequestFixed:], m.SSID)
	return buf
}

func decodeProbeResponse(b []byte) (Message, error) {
	rest, err := trailing(b, probeResponseFixed)
	if err != nil {
		return nil, err
	}
	return &ProbeResponse{
		Seq:  binary.BigEndian.Uint32(b[0:4]),
		Sta:  readAddr(b, 4),
		SSID: string(rest),
	}, nil
}

func encodeProbeResponse(m *ProbeResponse) []byte {
	buf := make([]byte, HeaderSize+probeResponseFixed+len(m.SSID))
	putHeader(buf, TypeProbeResp, len(buf))
	body := buf[HeaderSize:]
	binary.BigEndian.PutUint32(body[0:4], m.Seq)
	putAddr(body, 4, m.Sta)
	copy(body[probeResponseFixed:], m.SSID)
	return buf
}

func decodeAuthRequest(b []byte) (Message, error) {
	if len(b) != 22 {
		return nil, errors.Wrap(lvaperr.TruncatedFrame, "AUTH_REQUEST")
	}
	return &AuthRequest{
		Seq:   binary.BigEndian.Uint32(b[0:4]),
		WTP:   readAddr(b, 4),
		Sta:   readAddr(b, 10),
		Bssid: readAddr(b, 16),
	}, nil
}

func encodeAuthRequest(m *AuthRequest) []byte {
	buf := make([]byte, HeaderSize+22)
	putHeader(buf, TypeAuthReq, len(buf))
	body := buf[HeaderSize:]
	binary.BigEndian.PutUint32(body[0:4], m.Seq)
	putAddr(body, 4, m.WTP)
	putAddr(body, 10, m.Sta)
	putAddr(body, 16, m.Bssid)
	return buf
}

func decodeAuthResponse(b []byte) (Message, error) {
	if len(b) != 10 {
		return nil, errors.Wrap(lvaperr.TruncatedFrame, "AUTH_RESPONSE")
	}
	return &AuthResponse{
		Seq: binary.BigEndian.Uint32(b[0:4]),
		Sta: readAddr(b, 4),
	}, nil
}

func encodeAuthResponse(m *AuthResponse) []byte {
	buf := make([]byte, HeaderSize+10)
	putHeader(buf, TypeAuthResp, len(buf))
	body := buf[HeaderSize:]
	binary.BigEndian.PutUint32(body[0:4], m.Seq)
	putAddr(body, 4, m.Sta)
	return buf
}

func decodeAssocRequest(b []byte) (Message, error) {
	rest, err := trailing(b, assocRequestFixed)
	if err != nil {
		return nil, err
	}
	return &AssocRequest{
		Seq:           binary.BigEndian.Uint32(b[0:4]),
		WTP:           readAddr(b, 4),
		Sta:           readAddr(b, 10),
		Bssid:         readAddr(b, 16),
		Hwaddr:        readAddr(b, 22),
		Channel:       b[28],
		Band:          b[29],
		SupportedBand: b[30],
		SSID:          string(rest),
	}, nil
}

func encodeAssocRequest(m *AssocRequest) []byte {
	buf := make([]byte, HeaderSize+assocRequestFixed+len(m.SSID))
	putHeader(buf, TypeAssocReq, len(buf))
	body := buf[HeaderSize:]
	binary.BigEndian.PutUint32(body[0:4], m.Seq)
	putAddr(body, 4, m.WTP)
	putAddr(body, 10, m.Sta)
	putAddr(body, 16, m.Bssid)
	putAddr(body, 22, m.Hwaddr)
	body[28] = m.Channel
	body[29] = m.Band
	body[30] = m.SupportedBand
	copy(body[assocRequestFixed:], m.SSID)
	return buf
}

func decodeAssocResponse(b []byte) (Message, error) {
	if len(b) != 10 {
		return nil, errors.Wrap(lvaperr.TruncatedFrame, "ASSOC_RESPONSE")
	}
	return &AssocResponse{
		Seq: binary.BigEndian.Uint32(b[0:4]),
		Sta: readAddr(b, 4),
	}, nil
}

func encodeAssocResponse(m *AssocResponse) []byte {
	buf := make([]byte, HeaderSize+10)
	putHeader(buf, TypeAssocResp, len(buf))
	body := buf[HeaderSize:]
	binary.BigEndian.PutUint32(body[0:4], m.Seq)
	putAddr(body, 4, m.Sta)
	return buf
}

func decodeAddLvap(b []byte) (Message, error) {
	rest, err := trailing(b, addLvapFixed)
	if err != nil {
		return nil, err
	}
	ssids, err := decodeSSIDs(rest)
	if err != nil {
		return nil, err
	}
	return &AddLvap{
		Seq:           binary.BigEndian.Uint32(b[0:4]),
		ModuleID:      binary.BigEndian.Uint32(b[4:8]),
		Flags:         decodeLvapFlags(binary.BigEndian.Uint16(b[8:10])),
		AssocID:       binary.BigEndian.Uint16(b[10:12]),
		Hwaddr:        readAddr(b, 12),
		Channel:       b[18],
		Band:          b[19],
		SupportedBand: b[20],
		Sta:           readAddr(b, 21),
		Encap:         readAddr(b, 27),
		NetBSSID:      readAddr(b, 33),
		LvapBSSID:     readAddr(b, 39),
		SSIDs:         ssids,
	}, nil
}

func encodeAddLvap(m *AddLvap) ([]byte, error) {
	if len(m.SSIDs) == 0 || len(m.SSIDs) > 10 {
		return nil, errors.Errorf("lvapproto: ADD_LVAP needs 1-10 SSIDs, got %d", len(m.SSIDs))
	}
	ssidBytes := encodeSSIDs(m.SSIDs)
	buf := make([]byte, HeaderSize+addLvapFixed+len(ssidBytes))
	putHeader(buf, TypeAddLvap, len(buf))
	body := buf[HeaderSize:]
	binary.BigEndian.PutUint32(body[0:4], m.Seq)
	binary.BigEndian.PutUint32(body[4:8], m.ModuleID)
	binary.BigEndian.PutUint16(body[8:10], m.Flags.encode())
	binary.BigEndian.PutUint16(body[10:12], m.AssocID)
	putAddr(body, 12, m.Hwaddr)
	body[18] = m.Channel
	body[19] = m.Band
	body[20] = m.SupportedBand
	putAddr(body, 21, m.Sta)
	putAddr(body, 27, m.Encap)
	putAddr(body, 33, m.NetBSSID)
	putAddr(body, 39, m.LvapBSSID)
	copy(body[addLvapFixed:], ssidBytes)
	return buf, nil
}

func decodeDelLvap(b []byte) (Message, error) {
	if len(b) != 24 {
		return nil, errors.Wrap(lvaperr.TruncatedFrame, "DEL_LVAP")
	}
	return &DelLvap{
		Seq:            binary.BigEndian.Uint32(b[0:4]),
		ModuleID:       binary.BigEndian.Uint32(b[4:8]),
		Sta:            readAddr(b, 8),
		TargetHwaddr:   readAddr(b, 14),
		TargetChannel:  b[20],
		TargetBand:     b[21],
		CSASwitchMode:  b[22],
		CSASwitchCount: b[23],
	}, nil
}

func encodeDelLvap(m *DelLvap) []byte {
	buf := make([]byte, HeaderSize+24)
	putHeader(buf, TypeDelLvap, len(buf))
	body := buf[HeaderSize:]
	binary.BigEndian.PutUint32(body[0:4], m.Seq)
	binary.BigEndian.PutUint32(body[4:8], m.ModuleID)
	putAddr(body, 8, m.Sta)
	putAddr(body, 14, m.TargetHwaddr)
	body[20] = m.TargetChannel
	body[21] = m.TargetBand
	body[22] = m.CSASwitchMode
	body[23] = m.CSASwitchCount
	return buf
}

func decodeStatusLvap(b []byte) (Message, error) {
	rest, err := trailing(b, statusLvapFixed)
	if err != nil {
		return nil, err
	}
	ssids, err := decodeSSIDs(rest)
	if err != nil {
		return nil, err
	}
	return &StatusLvap{
		Seq:           binary.BigEndian.Uint32(b[0:4]),
		Flags:         decodeLvapFlags(binary.BigEndian.Uint16(b[4:6])),
		AssocID:       binary.BigEndian.Uint16(b[6:8]),
		WTP:           readAddr(b, 8),
		Sta:           readAddr(b, 14),
		Encap:         readAddr(b, 20),
		Hwaddr:        readAddr(b, 26),
		Channel:       b[32],
		Band:          b[33],
		SupportedBand: b[34],
		NetBSSID:      readAddr(b, 35),
		LvapBSSID:     readAddr(b, 41),
		SSIDs:         ssids,
	}, nil
}

func encodeStatusLvap(m *StatusLvap) ([]byte, error) {
	if len(m.SSIDs) == 0 || len(m.SSIDs) > 10 {
		return nil, errors.Errorf("lvapproto: STATUS_LVAP needs 1-10 SSIDs, got %d", len(m.SSIDs))
	}
	ssidBytes := encodeSSIDs(m.SSIDs)
	buf := make([]byte, HeaderSize+statusLvapFixed+len(ssidBytes))
	putHeader(buf, TypeStatusLvap, len(buf))
	body := buf[HeaderSize:]
	binary.BigEndian.PutUint32(body[0:4], m.Seq)
	binary.BigEndian.PutUint16(body[4:6], m.Flags.encode())
	binary.BigEndian.PutUint16(body[6:8], m.AssocID)
	putAddr(body, 8, m.WTP)
	putAddr(body, 14, m.Sta)
	putAddr(body, 20, m.Encap)
	putAddr(body, 26, m.Hwaddr)
	body[32] = m.Channel
	body[33] = m.Band
	body[34] = m.SupportedBand
	putAddr(body, 35, m.NetBSSID)
	putAddr(body, 41, m.LvapBSSID)
	copy(body[statusLvapFixed:], ssidBytes)
	return buf, nil
}

func decodeSetPortFlags(raw uint16) SetPortFlags {
	return SetPortFlags{NoAck: raw&0x1 != 0}
}

func (f SetPortFlags) encode() uint16 {
	if f.NoAck {
		return 0x1
	}
	return 0
}

func decodeSetPort(b []byte) (Message, error) {
	if len(b) < 26 {
		return nil, errors.Wrap(lvaperr.TruncatedFrame, "SET_PORT")
	}
	nbMcses := int(b[24])
	nbHtMcses := int(b[25])
	rest := b[26:]
	if len(rest) != nbMcses+nbHtMcses {
		return nil, errors.Wrap(lvaperr.FieldOverflow, "SET_PORT mcs arrays")
	}
	return &SetPort{
		Seq:          binary.BigEndian.Uint32(b[0:4]),
		Flags:        decodeSetPortFlags(binary.BigEndian.Uint16(b[4:6])),
		Hwaddr:       readAddr(b, 6),
		Channel:      b[12],
		Band:         b[13],
		Sta:          readAddr(b, 14),
		RTSCTS:       binary.BigEndian.Uint16(b[20:22]),
		TxMcast:      b[22],
		URMcastCount: b[23],
		MCS:          append([]byte(nil), rest[:nbMcses]...),
		HTMCS:        append([]byte(nil), rest[nbMcses:]...),
	}, nil
}

func encodeSetPort(m *SetPort) []byte {
	buf := make([]byte, HeaderSize+26+len(m.MCS)+len(m.HTMCS))
	putHeader(buf, TypeSetPort, len(buf))
	body := buf[HeaderSize:]
	binary.BigEndian.PutUint32(body[0:4], m.Seq)
	binary.BigEndian.PutUint16(body[4:6], m.Flags.encode())
	putAddr(body, 6, m.Hwaddr)
	body[12] = m.Channel
	body[13] = m.Band
	putAddr(body, 14, m.Sta)
	binary.BigEndian.PutUint16(body[20:22], m.RTSCTS)
	body[22] = m.TxMcast
	body[23] = m.URMcastCount
	body[24] = byte(len(m.MCS))
	body[25] = byte(len(m.HTMCS))
	copy(body[26:], m.MCS)
	copy(body[26+len(m.MCS):], m.HTMCS)
	return buf
}

func decodeStatusPort(b []byte) (Message, error) {
	if len(b) < 32 {
		return nil, errors.Wrap(lvaperr.TruncatedFrame, "STATUS_PORT")
	}
	nbMcses := int(b[30])
	nbHtMcses := int(b[31])
	rest := b[32:]
	if len(rest) != nbMcses+nbHtMcses {
		return nil, errors.Wrap(lvaperr.FieldOverflow, "STATUS_PORT mcs arrays")
	}
	return &StatusPort{
		Seq:          binary.BigEndian.Uint32(b[0:4]),
		Flags:        decodeSetPortFlags(binary.BigEndian.Uint16(b[4:6])),
		WTP:          readAddr(b, 6),
		Sta:          readAddr(b, 12),
		Hwaddr:       readAddr(b, 18),
		Channel:      b[24],
		Band:         b[25],
		RTSCTS:       binary.BigEndian.Uint16(b[26:28]),
		TxMcast:      b[28],
		URMcastCount: b[29],
		MCS:          append([]byte(nil), rest[:nbMcses]...),
		HTMCS:        append([]byte(nil), rest[nbMcses:]...),
	}, nil
}

func encodeStatusPort(m *StatusPort) []byte {
	buf := make([]byte, HeaderSize+32+len(m.MCS)+len(m.HTMCS))
	putHeader(buf, TypeStatusPort, len(buf))
	body := buf[HeaderSize:]
	binary.BigEndian.PutUint32(body[0:4], m.Seq)
	binary.BigEndian.PutUint16(body[4:6], m.Flags.encode())
	putAddr(body, 6, m.WTP)
	putAddr(body, 12, m.Sta)
	putAddr(body, 18, m.Hwaddr)
	body[24] = m.Channel
	body[25] = m.Band
	binary.BigEndian.PutUint16(body[26:28], m.RTSCTS)
	body[28] = m.TxMcast
	body[29] = m.URMcastCount
	body[30] = byte(len(m.MCS))
	body[31] = byte(len(m.HTMCS))
	copy(body[32:], m.MCS)
	copy(body[32+len(m.MCS):], m.HTMCS)
	return buf
}

func decodeCapsRequest(b []byte) (Message, error) {
	if len(b) != 4 {
		return nil, errors.Wrap(lvaperr.TruncatedFrame, "CAPS_REQUEST")
	}
	return &CapsRequest{Seq: binary.BigEndian.Uint32(b[0:4])}, nil
}

func encodeCapsRequest(m *CapsRequest) []byte {
	buf := make([]byte, HeaderSize+4)
	putHeader(buf, TypeCapsReq, len(buf))
	binary.BigEndian.PutUint32(buf[HeaderSize:], m.Seq)
	return buf
}

func decodeCapsResponse(b []byte) (Message, error) {
	if len(b) < 12 {
		return nil, errors.Wrap(lvaperr.TruncatedFrame, "CAPS_RESPONSE")
	}
	nbBlocks := int(b[10])
	nbPorts := int(b[11])
	rest := b[12:]
	if len(rest) != nbBlocks*8+nbPorts*18 {
		return nil, errors.Wrap(lvaperr.FieldOverflow, "CAPS_RESPONSE blocks/ports")
	}
	blocks := make([]CapsBlock, nbBlocks)
	for i := 0; i < nbBlocks; i++ {
		off := i * 8
		blocks[i] = CapsBlock{
			Hwaddr:  readAddr(rest, off),
			Channel: rest[off+6],
			Band:    rest[off+7],
		}
	}
	portsOff := nbBlocks * 8
	ports := make([]CapsPort, nbPorts)
	for i := 0; i < nbPorts; i++ {
		off := portsOff + i*18
		p := CapsPort{
			Hwaddr: readAddr(rest, off),
			PortID: binary.BigEndian.Uint16(rest[off+6 : off+8]),
		}
		copy(p.Iface[:], rest[off+8:off+18])
		ports[i] = p
	}
	return &CapsResponse{
		Seq:    binary.BigEndian.Uint32(b[0:4]),
		WTP:    readAddr(b, 4),
		Blocks: blocks,
		Ports:  ports,
	}, nil
}

func encodeCapsResponse(m *CapsResponse) []byte {
	n := 12 + len(m.Blocks)*8 + len(m.Ports)*18
	buf := make([]byte, HeaderSize+n)
	putHeader(buf, TypeCapsResp, len(buf))
	body := buf[HeaderSize:]
	binary.BigEndian.PutUint32(body[0:4], m.Seq)
	putAddr(body, 4, m.WTP)
	body[10] = byte(len(m.Blocks))
	body[11] = byte(len(m.Ports))
	rest := body[12:]
	for i, blk := range m.Blocks {
		off := i * 8
		putAddr(rest, off, blk.Hwaddr)
		rest[off+6] = blk.Channel
		rest[off+7] = blk.Band
	}
	portsOff := len(m.Blocks) * 8
	for i, p := range m.Ports {
		off := portsOff + i*18
		putAddr(rest, off, p.Hwaddr)
		binary.BigEndian.PutUint16(rest[off+6:off+8], p.PortID)
		copy(rest[off+8:off+18], p.Iface[:])
	}
	return buf
}

func decodeAddVap(b []byte) (Message, error) {
	rest, err := trailing(b, addVapFixed)
	if err != nil {
		return nil, err
	}
	return &AddVap{
		Seq:      binary.BigEndian.Uint32(b[0:4]),
		Hwaddr:   readAddr(b, 4),
		Channel:  b[10],
		Band:     b[11],
		NetBSSID: readAddr(b, 12),
		SSID:     string(rest),
	}, nil
}

func encodeAddVap(m *AddVap) []byte {
	buf := make([]byte, HeaderSize+addVapFixed+len(m.SSID))
	putHeader(buf, TypeAddVap, len(buf))
	body := buf[HeaderSize:]
	binary.BigEndian.PutUint32(body[0:4], m.Seq)
	putAddr(body, 4, m.Hwaddr)
	body[10] = m.Channel
	body[11] = m.Band
	putAddr(body, 12, m.NetBSSID)
	copy(body[addVapFixed:], m.SSID)
	return buf
}

func decodeDelVap(b []byte) (Message, error) {
	if len(b) != 10 {
		return nil, errors.Wrap(lvaperr.TruncatedFrame, "DEL_VAP")
	}
	return &DelVap{
		Seq:      binary.BigEndian.Uint32(b[0:4]),
		NetBSSID: readAddr(b, 4),
	}, nil
}

func encodeDelVap(m *DelVap) []byte {
	buf := make([]byte, HeaderSize+10)
	putHeader(buf, TypeDelVap, len(buf))
	body := buf[HeaderSize:]
	binary.BigEndian.PutUint32(body[0:4], m.Seq)
	putAddr(body, 4, m.NetBSSID)
	return buf
}

func decodeStatusVap(b []byte) (Message, error) {
	rest, err := trailing(b, statusVapFixed)
	if err != nil {
		return nil, err
	}
	return &StatusVap{
		Seq:      binary.BigEndian.Uint32(b[0:4]),
		WTP:      readAddr(b, 4),
		Hwaddr:   readAddr(b, 10),
		Channel:  b[16],
		Band:     b[17],
		NetBSSID: readAddr(b, 18),
		SSID:     string(rest),
	}, nil
}

func encodeStatusVap(m *StatusVap) []byte {
	buf := make([]byte, HeaderSize+statusVapFixed+len(m.SSID))
	putHeader(buf, TypeStatusVap, len(buf))
	body := buf[HeaderSize:]
	binary.BigEndian.PutUint32(body[0:4], m.Seq)
	putAddr(body, 4, m.WTP)
	putAddr(body, 10, m.Hwaddr)
	body[16] = m.Channel
	body[17] = m.Band
	putAddr(body, 18, m.NetBSSID)
	copy(body[statusVapFixed:], m.SSID)
	return buf
}

func decodeLvapResponse(b []byte, typ byte) (Message, error) {
	if len(b) != 24 {
		return nil, errors.Wrap(lvaperr.TruncatedFrame, "LVAP_RESPONSE")
	}
	return &LvapResponse{
		Seq:      binary.BigEndian.Uint32(b[0:4]),
		Type:     typ,
		WTP:      readAddr(b, 4),
		Sta:      readAddr(b, 10),
		ModuleID: binary.BigEndian.Uint32(b[16:20]),
		Status:   binary.BigEndian.Uint32(b[20:24]),
	}, nil
}

func encodeLvapResponse(m *LvapResponse) []byte {
	buf := make([]byte, HeaderSize+24)
	putHeader(buf, m.Type, len(buf))
	body := buf[HeaderSize:]
	binary.BigEndian.PutUint32(body[0:4], m.Seq)
	putAddr(body, 4, m.WTP)
	putAddr(body, 10, m.Sta)
	binary.BigEndian.PutUint32(body[16:20], m.ModuleID)
	binary.BigEndian.PutUint32(body[20:24], m.Status)
	return buf
}

func decodeStatusRequest(b []byte, typ byte) (Message, error) {
	if len(b) != 4 {
		return nil, errors.Wrap(lvaperr.TruncatedFrame, "STATUS_REQUEST")
	}
	return &StatusRequest{
		Seq:  binary.BigEndian.Uint32(b[0:4]),
		Type: typ,
	}, nil
}

func encodeStatusRequest(m *StatusRequest) []byte {
	buf := make([]byte, HeaderSize+4)
	putHeader(buf, m.Type, len(buf))
	binary.BigEndian.PutUint32(buf[HeaderSize:], m.Seq)
	return buf
}

func decodeTrafficRuleFlags(raw uint16) bool {
	return raw&0x1 != 0
}

func encodeTrafficRuleFlags(amsdu bool) uint16 {
	if amsdu {
		return 0x1
	}
	return 0
}

func decodeAddTrafficRule(b []byte) (Message, error) {
	rest, err := trailing(b, addTrafficRuleFixed)
	if err != nil {
		return nil, err
	}
	return &AddTrafficRule{
		Seq:              binary.BigEndian.Uint32(b[0:4]),
		AmsduAggregation: decodeTrafficRuleFlags(binary.BigEndian.Uint16(b[4:6])),
		Quantum:          binary.BigEndian.Uint16(b[6:8]),
		DSCP:             b[8],
		SSID:             string(rest),
	}, nil
}

func encodeAddTrafficRule(m *AddTrafficRule) []byte {
	buf := make([]byte, HeaderSize+addTrafficRuleFixed+len(m.SSID))
	putHeader(buf, TypeAddTrafRule, len(buf))
	body := buf[HeaderSize:]
	binary.BigEndian.PutUint32(body[0:4], m.Seq)
	binary.BigEndian.PutUint16(body[4:6], encodeTrafficRuleFlags(m.AmsduAggregation))
	binary.BigEndian.PutUint16(body[6:8], m.Quantum)
	body[8] = m.DSCP
	copy(body[addTrafficRuleFixed:], m.SSID)
	return buf
}

func decodeStatusTrafficRule(b []byte) (Message, error) {
	rest, err := trailing(b, statusTrafficRuleFixed)
	if err != nil {
		return nil, err
	}
	return &StatusTrafficRule{
		Seq:              binary.BigEndian.Uint32(b[0:4]),
		WTP:              readAddr(b, 4),
		Hwaddr:           readAddr(b, 10),
		Channel:          b[16],
		Band:             b[17],
		AmsduAggregation: decodeTrafficRuleFlags(binary.BigEndian.Uint16(b[18:20])),
		Quantum:          binary.BigEndian.Uint16(b[20:22]),
		DSCP:             b[22],
		SSID:             string(rest),
	}, nil
}

func encodeStatusTrafficRule(m *StatusTrafficRule) []byte {
	buf := make([]byte, HeaderSize+statusTrafficRuleFixed+len(m.SSID))
	putHeader(buf, TypeStatTrafRule, len(buf))
	body := buf[HeaderSize:]
	binary.BigEndian.PutUint32(body[0:4], m.Seq)
	putAddr(body, 4, m.WTP)
	putAddr(body, 10, m.Hwaddr)
	body[16] = m.Channel
	body[17] = m.Band
	binary.BigEndian.PutUint16(body[18:20], encodeTrafficRuleFlags(m.AmsduAggregation))
	binary.BigEndian.PutUint16(body[20:22], m.Quantum)
	body[22] = m.DSCP
	copy(body[statusTrafficRuleFixed:], m.SSID)
	return buf
}

func decodeEmpty(typ byte) (Message, error) {
	return &Empty{Type: typ}, nil
}

func encodeEmpty(m *Empty) []byte {
	buf := make([]byte, HeaderSize)
	putHeader(buf, m.Type, len(buf))
	return buf
}

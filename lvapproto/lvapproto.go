/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// Package lvapproto is the wire codec shared by the controller and the WTP
// agents: pure functions mapping a byte slice of exactly HeaderSize+payload
// bytes to a typed message and back. Every message shares a 6-byte header:
// version (u8), type (u8), length (u32 big-endian, the total frame size
// including the header). All multi-byte integer fields are big-endian.
package lvapproto

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"lvapd/ether"
	"lvapd/lvaperr"
)

// Version is the only protocol version this controller speaks. A frame whose
// header carries a different value is rejected at decode time.
const Version = 0x00

// HeaderSize is the length in bytes of the common frame header.
const HeaderSize = 6

// Message type codes, per the protocol's type catalog.
const (
	TypeBye          = 0x00
	TypeRegister     = 0x01
	TypeLvapJoin     = 0x02 // internal, never on the wire
	TypeLvapLeave    = 0x03 // internal, never on the wire
	TypeHello        = 0x04
	TypeProbeReq     = 0x05
	TypeProbeResp    = 0x06
	TypeAuthReq      = 0x07
	TypeAuthResp     = 0x08
	TypeAssocReq     = 0x09
	TypeAssocResp    = 0x10
	TypeAddLvap      = 0x11
	TypeDelLvap      = 0x12
	TypeStatusLvap   = 0x13
	TypeSetPort      = 0x14
	TypeStatusPort   = 0x15
	TypeCapsReq      = 0x16
	TypeCapsResp     = 0x17
	TypeAddVap       = 0x32
	TypeDelVap       = 0x33
	TypeStatusVap    = 0x34
	TypeAddLvapResp  = 0x51
	TypeDelLvapResp  = 0x52
	TypeLvapStatReq  = 0x53
	TypeVapStatReq   = 0x54
	TypePortStatReq  = 0x55
	TypeTrafStatReq  = 0x56
	TypeAddTrafRule  = 0x57
	TypeStatTrafRule = 0x58
	// TypeWadrrRequest is the reserved application-level opcode spec §4.5
	// calls out for Connection.SendWadrrRequest. Not part of the original
	// catalog; claimed here from the first unused code so the northbound
	// weight-algorithm collaborator has something concrete to send over.
	TypeWadrrRequest = 0x59
)

// Header is the 6-byte frame prefix common to every message.
type Header struct {
	Version byte
	Type    byte
	Length  uint32
}

// Message is implemented by every decoded message value.
type Message interface {
	// MsgType returns this message's wire type code.
	MsgType() byte
}

// DecodeHeader parses the 6-byte header prefix of a frame. It does not
// validate that the frame holds Length bytes -- callers read Length bytes
// off the wire first and then hand the whole frame to Decode.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, errors.Wrap(lvaperr.TruncatedFrame, "header")
	}
	h := Header{
		Version: b[0],
		Type:    b[1],
		Length:  binary.BigEndian.Uint32(b[2:6]),
	}
	if h.Version != Version {
		return h, errors.Wrapf(lvaperr.BadVersion, "got version %d", h.Version)
	}
	return h, nil
}

func putHeader(buf []byte, typ byte, length int) {
	buf[0] = Version
	buf[1] = typ
	binary.BigEndian.PutUint32(buf[2:6], uint32(length))
}

// Decode parses a complete frame (header + payload, exactly Header.Length
// bytes) into its typed message. The caller is responsible for having read
// exactly that many bytes off the connection first.
func Decode(frame []byte) (Message, error) {
	h, err := DecodeHeader(frame)
	if err != nil {
		return nil, err
	}
	if int(h.Length) != len(frame) {
		return nil, errors.Wrapf(lvaperr.FieldOverflow,
			"header declares %d bytes, got %d", h.Length, len(frame))
	}

	body := frame[HeaderSize:]
	switch h.Type {
	case TypeHello:
		return decodeHello(body)
	case TypeProbeReq:
		return decodeProbeRequest(body)
	case TypeProbeResp:
		return decodeProbeResponse(body)
	case TypeAuthReq:
		return decodeAuthRequest(body)
	case TypeAuthResp:
		return decodeAuthResponse(body)
	case TypeAssocReq:
		return decodeAssocRequest(body)
	case TypeAssocResp:
		return decodeAssocResponse(body)
	case TypeAddLvap:
		return decodeAddLvap(body)
	case TypeDelLvap:
		return decodeDelLvap(body)
	case TypeStatusLvap:
		return decodeStatusLvap(body)
	case TypeSetPort:
		return decodeSetPort(body)
	case TypeStatusPort:
		return decodeStatusPort(body)
	case TypeCapsReq:
		return decodeCapsRequest(body)
	case TypeCapsResp:
		return decodeCapsResponse(body)
	case TypeAddVap:
		return decodeAddVap(body)
	case TypeDelVap:
		return decodeDelVap(body)
	case TypeStatusVap:
		return decodeStatusVap(body)
	case TypeAddLvapResp, TypeDelLvapResp:
		return decodeLvapResponse(body, h.Type)
	case TypeLvapStatReq, TypeVapStatReq, TypePortStatReq, TypeTrafStatReq:
		return decodeStatusRequest(body, h.Type)
	case TypeAddTrafRule:
		return decodeAddTrafficRule(body)
	case TypeStatTrafRule:
		return decodeStatusTrafficRule(body)
	case TypeBye, TypeRegister:
		return decodeEmpty(h.Type)
	default:
		return nil, errors.Wrapf(lvaperr.UnknownType, "type 0x%02x", h.Type)
	}
}

// Encode renders a message to its complete wire frame (header + payload).
func Encode(m Message) ([]byte, error) {
	switch v := m.(type) {
	case *Hello:
		return encodeHello(v), nil
	case *ProbeRequest:
		return encodeProbeRequest(v), nil
	case *ProbeResponse:
		return encodeProbeResponse(v), nil
	case *AuthRequest:
		return encodeAuthRequest(v), nil
	case *AuthResponse:
		return encodeAuthResponse(v), nil
	case *AssocRequest:
		return encodeAssocRequest(v), nil
	case *AssocResponse:
		return encodeAssocResponse(v), nil
	case *AddLvap:
		return encodeAddLvap(v)
	case *DelLvap:
		return encodeDelLvap(v), nil
	case *StatusLvap:
		return encodeStatusLvap(v)
	case *SetPort:
		return encodeSetPort(v), nil
	case *StatusPort:
		return encodeStatusPort(v), nil
	case *CapsRequest:
		return encodeCapsRequest(v), nil
	case *CapsResponse:
		return encodeCapsResponse(v), nil
	case *AddVap:
		return encodeAddVap(v), nil
	case *DelVap:
		return encodeDelVap(v), nil
	case *StatusVap:
		return encodeStatusVap(v), nil
	case *LvapResponse:
		return encodeLvapResponse(v), nil
	case *StatusRequest:
		return encodeStatusRequest(v), nil
	case *AddTrafficRule:
		return encodeAddTrafficRule(v), nil
	case *StatusTrafficRule:
		return encodeStatusTrafficRule(v), nil
	case *Empty:
		return encodeEmpty(v), nil
	default:
		return nil, errors.Errorf("lvapproto: unencodable message type %T", m)
	}
}

func readAddr(b []byte, off int) ether.Addr {
	return ether.FromBytes(b[off : off+6])
}

func putAddr(b []byte, off int, a ether.Addr) {
	copy(b[off:off+6], a[:])
}

/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// Package ether defines the 48-bit station/WTP identifiers used throughout
// the controller, and the wire transaction id that correlates a controller
// command with its acknowledgement.
package ether

import (
	"encoding/hex"
	"fmt"
)

// Addr is a 48-bit EtherAddress. Unlike net.HardwareAddr (a slice), Addr has
// value semantics: it can be compared with ==, used as a map key, and copied
// without aliasing -- all of which the controller's lvaps/wtps/tenant maps
// depend on.
type Addr [6]byte

// BSSID is an Addr used as an 802.11 basic service set id.
type BSSID = Addr

// Xid is a controller-allocated transaction id, unique per WTP connection
// within a session.
type Xid uint32

var (
	// Zero is the all-zero address, used for an absent/unset field (e.g. an
	// LVAP with no ethernet re-encapsulation target).
	Zero = Addr{}

	// Broadcast is the all-ones address.
	Broadcast = Addr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
)

// String renders the address as lower-case hex-colon, e.g. "aa:bb:cc:dd:ee:ff".
func (a Addr) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x",
		a[0], a[1], a[2], a[3], a[4], a[5])
}

// IsZero reports whether this is the unset address.
func (a Addr) IsZero() bool {
	return a == Zero
}

// Less orders two addresses by byte sequence. Nothing in this repository
// calls it outside its own test; in particular it is never fed into a
// scheduling or weighting decision (that algorithm lives outside this
// repository).
func (a Addr) Less(b Addr) bool {
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// ParseAddr parses a hex-colon MAC address string into an Addr.
func ParseAddr(s string) (Addr, error) {
	var a Addr
	raw, err := hex.DecodeString(removeColons(s))
	if err != nil || len(raw) != 6 {
		return a, fmt.Errorf("invalid ether address %q", s)
	}
	copy(a[:], raw)
	return a, nil
}

func removeColons(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != ':' && s[i] != '-' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

// FromBytes copies a 6-byte slice into an Addr. Panics if b is not exactly 6
// bytes long -- callers decoding a wire frame must have already validated
// frame length before reaching here.
func FromBytes(b []byte) Addr {
	var a Addr
	if len(b) != 6 {
		panic(fmt.Sprintf("ether: FromBytes: want 6 bytes, got %d", len(b)))
	}
	copy(a[:], b)
	return a
}

// GenerateBSSID deterministically derives a BSSID from a per-tenant prefix
// and a resource block's hardware address by XOR-combining the two, then
// setting the locally-administered bit on the first octet. This matches
// generate_bssid() in the EmPOWER/ODIN controller this protocol descends
// from: a tenant's bssid prefix combined with the hwaddr of the block it is
// being instantiated on, so that every (tenant, block) pair gets a globally
// unique, reproducible bssid without any coordination.
func GenerateBSSID(prefix, hwaddr Addr) BSSID {
	var out Addr
	for i := range out {
		out[i] = prefix[i] ^ hwaddr[i]
	}
	out[0] |= 0x02
	out[0] &^= 0x01
	return out
}

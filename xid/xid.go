/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// Package xid allocates per-connection transaction identifiers and tracks
// which ones are awaiting a response. A WTP connection has at most one
// Registry; every command sent down that connection that expects a
// correlated response (ADD_LVAP, DEL_LVAP) is tracked here until its
// response arrives or the connection is torn down.
package xid

import (
	"lvapd/ether"
)

// Kind distinguishes what a pending transaction is waiting for, so its
// caller can type-assert the eventual result.
type Kind int

// Transaction kinds.
const (
	KindAddLvap Kind = iota
	KindDelLvap
)

// Pending is a transaction awaiting a correlated response.
type Pending struct {
	Kind Kind
	// Data carries whatever the issuer needs to resume when the response
	// arrives -- the controller stores the station address (ether.Addr) of
	// the LVAP this xid concerns.
	Data interface{}
}

// Registry allocates xids for one connection and tracks its pending
// transactions. It is not safe for concurrent use; the controller makes
// every call on it while holding its own mutex.
type Registry struct {
	next    uint32
	pending map[ether.Xid]Pending
}

// NewRegistry returns an empty Registry. Allocation starts at 1; 0 is never
// issued so it can serve as a sentinel "no xid" value in callers that embed
// one in a zero-valued struct.
func NewRegistry() *Registry {
	return &Registry{
		next:    1,
		pending: make(map[ether.Xid]Pending),
	}
}

// Next allocates and returns the next xid, wrapping modulo 2^32. It does not
// itself register anything as pending; call Track with the result.
func (r *Registry) Next() ether.Xid {
	x := ether.Xid(r.next)
	r.next++
	if r.next == 0 {
		r.next = 1
	}
	return x
}

// Track records x as pending, carrying kind and data for when it resolves.
func (r *Registry) Track(x ether.Xid, kind Kind, data interface{}) {
	r.pending[x] = Pending{Kind: kind, Data: data}
}

// Resolve looks up and removes x from the pending set. The second return
// value is false if x was not pending -- the caller should treat that as a
// protocol-kind error (spec §7), not a logic error: the agent may be
// retransmitting, or recovering from its own restart.
func (r *Registry) Resolve(x ether.Xid) (Pending, bool) {
	p, ok := r.pending[x]
	if !ok {
		return Pending{}, false
	}
	delete(r.pending, x)
	return p, true
}

// Len reports how many transactions are currently pending.
func (r *Registry) Len() int {
	return len(r.pending)
}

// FailAll drains the pending set and returns every entry that was in it, for
// a caller tearing down the connection to resolve (typically by failing
// each one's LVAP out of its in-flight state). The Registry is empty after
// this call.
func (r *Registry) FailAll() []Pending {
	out := make([]Pending, 0, len(r.pending))
	for _, p := range r.pending {
		out = append(out, p)
	}
	r.pending = make(map[ether.Xid]Pending)
	return out
}

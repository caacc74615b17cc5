/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// Package lvaperr defines the error taxonomy the controller uses to decide
// how to react to a failure: drop the frame and keep reading, log and ignore
// the message, fail the call back to its caller, or tear down the WTP.
package lvaperr

import (
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"

	"lvapd/common/zaperr"
)

// Kind classifies an error by how the rest of the system should react to it.
type Kind int

// Error kinds, per the controller's error-handling design.
const (
	// KindDecode: malformed frame. Log at warning, drop the frame, keep
	// reading the connection.
	KindDecode Kind = iota
	// KindProtocol: well-formed frame, but doesn't apply to current state
	// (e.g. a response for an xid we don't have pending). Log and ignore;
	// never disconnect for this alone, since the agent may simply be
	// recovering from its own hiccup.
	KindProtocol
	// KindLogic: the caller asked the state machine to do something it
	// can't. Fatal for the requesting caller; surfaced to the admin API.
	KindLogic
	// KindTransport: socket error or heartbeat timeout. Tear down the WTP
	// and mass-cleanup its LVAPs.
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindDecode:
		return "decode"
	case KindProtocol:
		return "protocol"
	case KindLogic:
		return "logic"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// sentinel is a named, comparable error value belonging to a Kind. Sentinels
// are wrapped with errors.Wrap at the detection site so Cause() still
// recovers them for callers that want to switch on identity. The kind is
// also carried as a zaperr field so a sentinel logged through a structured
// zap call (e.g. Errorw/Warnw) renders its kind instead of just its message.
type sentinel struct {
	kind Kind
	ze   zaperr.ZapError
}

func (s *sentinel) Error() string { return s.ze.Error() }

// MarshalLogObject implements zapcore.ObjectMarshaler, so zap's sugared
// Errorw/Warnw (which route ObjectMarshaler values through zap.Any
// automatically) log the sentinel's kind alongside its message.
func (s *sentinel) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	return s.ze.MarshalLogObject(enc)
}

func newSentinel(kind Kind, msg string) error {
	return &sentinel{kind: kind, ze: zaperr.Errorw(msg, "kind", kind.String())}
}

// Decode errors (spec §4.1, §7).
var (
	TruncatedFrame = newSentinel(KindDecode, "truncated frame")
	BadVersion     = newSentinel(KindDecode, "unsupported protocol version")
	UnknownType    = newSentinel(KindDecode, "unknown message type")
	FieldOverflow  = newSentinel(KindDecode, "declared length disagrees with payload")
	BadEnum        = newSentinel(KindDecode, "value out of range for enumerated field")
)

// Protocol errors (spec §7).
var (
	XidNotPending        = newSentinel(KindProtocol, "xid not in pending set")
	ResponseInWrongState = newSentinel(KindProtocol, "response received in unexpected state")
)

// Transport errors (spec §7).
var (
	HeartbeatTimeout = newSentinel(KindTransport, "no HELLO received within the heartbeat window")
)

// Logic errors (spec §4.4, §7).
var (
	InvalidTransition  = newSentinel(KindLogic, "invalid LVAP state transition")
	HandoverInProgress = newSentinel(KindLogic, "handover already in progress")
	UnboundLVAP        = newSentinel(KindLogic, "LVAP has no downlink block")
)

// Is reports whether err was ultimately produced by wrapping the given
// sentinel, by walking the Cause() chain.
func Is(err, target error) bool {
	for err != nil {
		if err == target {
			return true
		}
		cause := errors.Cause(err)
		if cause == err {
			return false
		}
		err = cause
	}
	return false
}

// KindOf returns the Kind of err if it (or something it wraps) is one of this
// package's sentinels, and false otherwise.
func KindOf(err error) (Kind, bool) {
	cause := errors.Cause(err)
	if s, ok := cause.(*sentinel); ok {
		return s.kind, true
	}
	return 0, false
}

package lvaperr

import (
	"testing"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestIsThroughWrap(t *testing.T) {
	wrapped := errors.Wrap(BadVersion, "decoding HELLO")
	if !Is(wrapped, BadVersion) {
		t.Error("expected Is(wrapped, BadVersion) to be true")
	}
	if Is(wrapped, TruncatedFrame) {
		t.Error("expected Is(wrapped, TruncatedFrame) to be false")
	}
}

func TestKindOf(t *testing.T) {
	wrapped := errors.Wrap(InvalidTransition, "assigning blocks")
	kind, ok := KindOf(wrapped)
	if !ok || kind != KindLogic {
		t.Errorf("KindOf() = %v, %v, want KindLogic, true", kind, ok)
	}

	if _, ok := KindOf(errors.New("plain error")); ok {
		t.Error("expected KindOf to report false for a non-sentinel error")
	}
}

// TestSentinelLogsKindField checks that logging a sentinel through a
// structured zap call surfaces its kind as a field, not just its message --
// sentinel.MarshalLogObject is what makes that happen.
func TestSentinelLogsKindField(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := zap.New(core).Sugar()

	log.Errorw("decode failed", "error", TruncatedFrame)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	errObj, ok := fields["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("error field = %#v, want a marshaled object", fields["error"])
	}
	if errObj["kind"] != "decode" {
		t.Errorf("error.kind = %v, want %q", errObj["kind"], "decode")
	}
	if errObj["msg"] != "truncated frame" {
		t.Errorf("error.msg = %v, want %q", errObj["msg"], "truncated frame")
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindDecode:    "decode",
		KindProtocol:  "protocol",
		KindLogic:     "logic",
		KindTransport: "transport",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}

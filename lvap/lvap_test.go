package lvap

import (
	"testing"

	"github.com/satori/uuid"

	"lvapd/ether"
	"lvapd/lvaperr"
	"lvapd/resource"
)

func blk(n byte, channel byte) resource.ResourceBlock {
	return resource.ResourceBlock{Hwaddr: ether.Addr{n, n, n, n, n, n}, Channel: channel, Band: resource.BandLo20}
}

func TestAssignBlocksNoneToSpawning(t *testing.T) {
	l := New(ether.Addr{1}, ether.Addr{2}, ether.Addr{2})
	cmds, err := l.AssignBlocks([]resource.ResourceBlock{blk(1, 6)}, nil)
	if err != nil {
		t.Fatalf("AssignBlocks: %v", err)
	}
	if l.State() != StateSpawning {
		t.Fatalf("state = %s, want spawning", l.State())
	}
	if l.Pending() != 0 {
		t.Fatalf("Pending() = %d before the caller tracks any xid, want 0", l.Pending())
	}
	foundAdd := false
	for _, c := range cmds {
		if c.Kind == CmdAddLvap {
			foundAdd = true
		}
	}
	if !foundAdd {
		t.Error("expected a CmdAddLvap command")
	}
}

func TestFullLifecycle(t *testing.T) {
	l := New(ether.Addr{1}, ether.Addr{2}, ether.Addr{2})
	cmds, err := l.AssignBlocks([]resource.ResourceBlock{blk(1, 6)}, nil)
	if err != nil {
		t.Fatalf("AssignBlocks: %v", err)
	}

	var xids []ether.Xid
	for i, c := range cmds {
		if c.Kind == CmdAddLvap {
			x := ether.Xid(i + 1)
			l.Track(x)
			xids = append(xids, x)
		}
	}
	if len(xids) == 0 {
		t.Fatal("expected at least one tracked xid")
	}

	for i, x := range xids {
		_, err := l.HandleAddLvapResponse(x, nil)
		if err != nil {
			t.Fatalf("HandleAddLvapResponse(%d): %v", x, err)
		}
		if i < len(xids)-1 {
			if l.State() != StateSpawning {
				t.Fatalf("state = %s before last ack, want spawning", l.State())
			}
		}
	}
	if l.State() != StateRunning {
		t.Fatalf("state = %s after all acks, want running", l.State())
	}

	cmds, err = l.AssignBlocks([]resource.ResourceBlock{blk(2, 11)}, nil)
	if err != nil {
		t.Fatalf("AssignBlocks (handover): %v", err)
	}
	if l.State() != StateRemoving {
		t.Fatalf("state = %s, want removing", l.State())
	}

	var delXids []ether.Xid
	for i, c := range cmds {
		if c.Kind == CmdDelLvap {
			x := ether.Xid(100 + i)
			l.Track(x)
			delXids = append(delXids, x)
		}
	}
	for _, x := range delXids {
		if _, err := l.HandleDelLvapResponse(x); err != nil {
			t.Fatalf("HandleDelLvapResponse(%d): %v", x, err)
		}
	}
	if l.State() != StateSpawning {
		t.Fatalf("state = %s after del acks drain, want spawning (re-entered)", l.State())
	}
}

func TestAssignBlocksRejectsWhilePending(t *testing.T) {
	l := New(ether.Addr{1}, ether.Addr{2}, ether.Addr{2})
	if _, err := l.AssignBlocks([]resource.ResourceBlock{blk(1, 6)}, nil); err != nil {
		t.Fatalf("AssignBlocks: %v", err)
	}
	l.Track(1)
	if _, err := l.AssignBlocks([]resource.ResourceBlock{blk(2, 6)}, nil); !lvaperr.Is(err, lvaperr.HandoverInProgress) {
		t.Errorf("AssignBlocks while pending: got %v, want HandoverInProgress", err)
	}
}

func TestHandleAddLvapResponseRejectsUnknownXid(t *testing.T) {
	l := New(ether.Addr{1}, ether.Addr{2}, ether.Addr{2})
	if _, err := l.HandleAddLvapResponse(999, nil); !lvaperr.Is(err, lvaperr.XidNotPending) {
		t.Errorf("got %v, want XidNotPending", err)
	}
}

func TestAssignWTPSilentOnNoMatch(t *testing.T) {
	l := New(ether.Addr{1}, ether.Addr{2}, ether.Addr{2})
	l.AssignBlocks([]resource.ResourceBlock{blk(1, 6)}, nil)
	l.Track(1)
	l.HandleAddLvapResponse(1, nil)

	wtp := &resource.WTP{Blocks: []resource.ResourceBlock{blk(2, 36)}}
	cmds, err := l.AssignWTP(wtp, nil)
	if err != nil {
		t.Fatalf("AssignWTP: %v", err)
	}
	if cmds != nil {
		t.Errorf("expected silent no-op, got %+v", cmds)
	}
}

func TestHandleStatusLvapJoinLeave(t *testing.T) {
	l := New(ether.Addr{1}, ether.Addr{2}, ether.Addr{2})
	valid := blk(1, 6)
	tenantA := uuid.NewV4()
	tenantB := uuid.NewV4()

	_, events := l.HandleStatusLvap(1, ether.Addr{9}, []string{"tenant-a"}, valid, true, true, true, tenantA)
	if len(events) != 1 || events[0].Kind != EventJoin {
		t.Fatalf("expected one join event, got %+v", events)
	}
	if l.TenantID() != tenantA {
		t.Errorf("TenantID() = %v, want %v", l.TenantID(), tenantA)
	}

	_, events = l.HandleStatusLvap(1, ether.Addr{9}, []string{"tenant-b"}, valid, true, true, true, tenantB)
	var sawLeave, sawJoin bool
	for _, e := range events {
		if e.Kind == EventLeave && e.TenantID == tenantA {
			sawLeave = true
		}
		if e.Kind == EventJoin && e.TenantID == tenantB {
			sawJoin = true
		}
	}
	if !sawLeave || !sawJoin {
		t.Errorf("expected leave(a)+join(b), got %+v", events)
	}
}

func TestClearBlocks(t *testing.T) {
	l := New(ether.Addr{1}, ether.Addr{2}, ether.Addr{2})
	l.AssignBlocks([]resource.ResourceBlock{blk(1, 6)}, nil)
	l.Track(1)
	l.HandleAddLvapResponse(1, nil)

	cmds := l.ClearBlocks()
	if len(cmds) != 1 || cmds[0].Kind != CmdDelLvap {
		t.Errorf("ClearBlocks() = %+v", cmds)
	}
	if len(l.Blocks()) != 0 {
		t.Error("expected no blocks after ClearBlocks")
	}
}

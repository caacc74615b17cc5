package xid

import "testing"

func TestNextMonotonicAndWraps(t *testing.T) {
	r := NewRegistry()
	a := r.Next()
	b := r.Next()
	if b != a+1 {
		t.Errorf("Next() not monotonic: %d then %d", a, b)
	}

	r.next = 0xffffffff
	last := r.Next()
	if last != 0xffffffff {
		t.Fatalf("got %d, want 0xffffffff", last)
	}
	wrapped := r.Next()
	if wrapped != 1 {
		t.Errorf("expected wrap to 1, got %d", wrapped)
	}
}

func TestTrackResolve(t *testing.T) {
	r := NewRegistry()
	x := r.Next()
	r.Track(x, KindAddLvap, "payload")

	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}

	p, ok := r.Resolve(x)
	if !ok {
		t.Fatal("expected Resolve to find tracked xid")
	}
	if p.Kind != KindAddLvap || p.Data != "payload" {
		t.Errorf("got %+v, want Kind=KindAddLvap Data=payload", p)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d after resolve, want 0", r.Len())
	}

	if _, ok := r.Resolve(x); ok {
		t.Error("expected second Resolve of same xid to fail")
	}
}

func TestResolveUnknownXid(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Resolve(99); ok {
		t.Error("expected Resolve of untracked xid to fail")
	}
}

func TestFailAll(t *testing.T) {
	r := NewRegistry()
	x1 := r.Next()
	x2 := r.Next()
	r.Track(x1, KindAddLvap, 1)
	r.Track(x2, KindDelLvap, 2)

	failed := r.FailAll()
	if len(failed) != 2 {
		t.Fatalf("FailAll() returned %d entries, want 2", len(failed))
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d after FailAll, want 0", r.Len())
	}
}

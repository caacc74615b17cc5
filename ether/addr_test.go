package ether

import "testing"

func TestAddrString(t *testing.T) {
	a := Addr{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	if got, want := a.String(), "aa:bb:cc:dd:ee:ff"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestParseAddrRoundTrip(t *testing.T) {
	a := Addr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	parsed, err := ParseAddr(a.String())
	if err != nil {
		t.Fatalf("ParseAddr: %v", err)
	}
	if parsed != a {
		t.Errorf("ParseAddr(%s) = %v, want %v", a, parsed, a)
	}
}

func TestParseAddrInvalid(t *testing.T) {
	if _, err := ParseAddr("not-a-mac"); err == nil {
		t.Error("expected error for malformed address")
	}
}

func TestLess(t *testing.T) {
	a := Addr{0, 0, 0, 0, 0, 1}
	b := Addr{0, 0, 0, 0, 0, 2}
	if !a.Less(b) {
		t.Error("expected a < b")
	}
	if b.Less(a) {
		t.Error("expected !(b < a)")
	}
	if a.Less(a) {
		t.Error("expected !(a < a)")
	}
}

func TestGenerateBSSIDDeterministic(t *testing.T) {
	prefix := Addr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	hwaddr := Addr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}

	b1 := GenerateBSSID(prefix, hwaddr)
	b2 := GenerateBSSID(prefix, hwaddr)
	if b1 != b2 {
		t.Errorf("GenerateBSSID not deterministic: %v != %v", b1, b2)
	}

	other := GenerateBSSID(prefix, Addr{0x00, 0x11, 0x22, 0x33, 0x44, 0x56})
	if b1 == other {
		t.Error("expected different hwaddr to produce different bssid")
	}

	if b1[0]&0x02 == 0 {
		t.Error("expected locally-administered bit set")
	}
}

func TestIsZero(t *testing.T) {
	if !Zero.IsZero() {
		t.Error("Zero.IsZero() = false")
	}
	if Broadcast.IsZero() {
		t.Error("Broadcast.IsZero() = true")
	}
}

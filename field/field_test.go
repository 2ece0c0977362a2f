package field

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func randLabel(t *testing.T) Label {
	t.Helper()
	var l Label
	if _, err := rand.Read(l[:]); err != nil {
		t.Fatal(err)
	}
	return l
}

func TestBitShareXorHomomorphism(t *testing.T) {
	a := BitShare{Bit: true, Mac: Mac{1, 2, 3}, Key: Key{4, 5, 6}}
	b := BitShare{Bit: true, Mac: Mac{9, 9, 9}, Key: Key{1, 1, 1}}
	c := a.Xor(b)
	if c.Bit != false {
		t.Fatalf("expected xor of two true bits to be false")
	}
	if c.Mac != XorMac(a.Mac, b.Mac) {
		t.Fatalf("mac did not combine under xor")
	}
}

func TestPartialBitShareVerify(t *testing.T) {
	var delta Delta
	delta[0] = 0xFF
	var key Key
	key[0] = 0x0F

	share := BitShare{Bit: true, Key: key, Mac: Mac(key.XorDelta(delta))}
	p := share.Partial()
	if !p.Verify(key, delta) {
		t.Fatalf("expected verification to succeed for untampered share")
	}
	p.Bit = !p.Bit
	if p.Verify(key, delta) {
		t.Fatalf("expected verification to fail once the bit is flipped")
	}
}

func TestWireMaskLabelFor(t *testing.T) {
	var delta Delta
	delta[0] = 0xAB
	w := WireMask{Label0: randLabel(t)}
	if w.LabelFor(false, delta) != w.Label0 {
		t.Fatalf("label for false must equal label0")
	}
	if bytes.Equal(w.LabelFor(true, delta)[:], w.Label0[:]) {
		t.Fatalf("label for true must differ from label0")
	}
}

func TestHrowDeterministicAndDomainSeparated(t *testing.T) {
	lx := randLabel(t)
	ly := randLabel(t)
	a := Hrow(lx, ly, 1, 0)
	b := Hrow(lx, ly, 1, 0)
	if a != b {
		t.Fatalf("Hrow must be deterministic for identical inputs")
	}
	c := Hrow(lx, ly, 1, 1)
	if a == c {
		t.Fatalf("Hrow must be domain separated across row indices")
	}
	d := Hrow(lx, ly, 2, 0)
	if a == d {
		t.Fatalf("Hrow must be domain separated across gate indices")
	}
}

func TestHcommBindsToSaltAndData(t *testing.T) {
	salt := []byte("salt-bytes-000000000000000000000")
	c1 := Hcomm(salt, []byte("hello"))
	c2 := Hcomm(salt, []byte("hello"))
	if !bytes.Equal(c1, c2) {
		t.Fatalf("commitments over identical input must match")
	}
	c3 := Hcomm(salt, []byte("goodbye"))
	if bytes.Equal(c1, c3) {
		t.Fatalf("commitments over different data must not match")
	}
	c4 := Hcomm([]byte("other-salt-00000000000000000000000"), []byte("hello"))
	if bytes.Equal(c1, c4) {
		t.Fatalf("commitments under different salts must not match")
	}
}

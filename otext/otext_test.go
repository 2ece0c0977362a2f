package otext

import (
	"crypto/rand"
	"testing"

	"github.com/kestrelmpc/engine/field"
)

func TestExpansionProducesValidAuthenticatedBits(t *testing.T) {
	var delta field.Delta
	if _, err := rand.Read(delta[:]); err != nil {
		t.Fatal(err)
	}

	randomSetup, pubKeys, err := BeginRandomSide(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	deltaSetup, inits, err := BeginDeltaSide(delta, pubKeys)
	if err != nil {
		t.Fatal(err)
	}
	replies, err := randomSetup.CompleteRandomSide(inits)
	if err != nil {
		t.Fatal(err)
	}

	n := 37
	bits := make([]bool, n)
	for i := range bits {
		bits[i] = i%3 == 0
	}

	macs, uColumns := ExpandRandomSide(randomSetup, bits)
	keys := ExpandDeltaSide(deltaSetup, replies, uColumns, n)

	if len(macs) != n || len(keys) != n {
		t.Fatalf("expected %d rows, got %d macs and %d keys", n, len(macs), len(keys))
	}

	for i := 0; i < n; i++ {
		p := field.PartialBitShare{Bit: bits[i], Mac: macs[i]}
		if !p.Verify(keys[i], delta) {
			t.Fatalf("row %d: authenticated bit failed verification", i)
		}
	}
}

func TestExpansionDetectsTamperedBit(t *testing.T) {
	var delta field.Delta
	if _, err := rand.Read(delta[:]); err != nil {
		t.Fatal(err)
	}
	randomSetup, pubKeys, err := BeginRandomSide(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	deltaSetup, inits, err := BeginDeltaSide(delta, pubKeys)
	if err != nil {
		t.Fatal(err)
	}
	replies, err := randomSetup.CompleteRandomSide(inits)
	if err != nil {
		t.Fatal(err)
	}

	bits := []bool{true, false, true}
	macs, uColumns := ExpandRandomSide(randomSetup, bits)
	keys := ExpandDeltaSide(deltaSetup, replies, uColumns, len(bits))

	p := field.PartialBitShare{Bit: !bits[0], Mac: macs[0]}
	if p.Verify(keys[0], delta) {
		t.Fatalf("expected verification to fail once the disclosed bit is flipped")
	}
}

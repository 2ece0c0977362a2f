package garble

import (
	"crypto/rand"
	"testing"

	"github.com/kestrelmpc/engine/bucket"
	"github.com/kestrelmpc/engine/circuit"
	"github.com/kestrelmpc/engine/field"
)

func randMask(t *testing.T, bit bool) field.WireMask {
	t.Helper()
	var l field.Label
	if _, err := rand.Read(l[:]); err != nil {
		t.Fatal(err)
	}
	var mac field.Mac
	var key field.Key
	rand.Read(mac[:])
	rand.Read(key[:])
	return field.WireMask{Label0: l, Bit: field.BitShare{Bit: bit, Mac: mac, Key: key}}
}

func TestRunCombinesXorAndNotFreely(t *testing.T) {
	c := circuit.New([]circuit.Gate{
		{Kind: circuit.InContrib},
		{Kind: circuit.InEval},
		{Kind: circuit.Xor, A: 0, B: 1},
		{Kind: circuit.Not, A: 2},
	}, []uint32{3})

	var delta field.Delta
	rand.Read(delta[:])
	p := NewPreprocessor(delta, c, nil)
	p.SetInputMask(0, randMask(t, true))
	p.SetInputMask(1, randMask(t, false))

	lhs, rhs, err := p.ComputeMasks(c)
	if err != nil {
		t.Fatal(err)
	}
	if len(lhs) != 0 || len(rhs) != 0 {
		t.Fatalf("expected no AND disclosures for an XOR/NOT-only circuit")
	}
	gates, err := p.FinishTables(lhs, rhs)
	if err != nil {
		t.Fatal(err)
	}
	if len(gates) != 0 {
		t.Fatalf("expected no garbled gates for an XOR/NOT-only circuit, got %d", len(gates))
	}
	want := p.Masks[0].Xor(p.Masks[1])
	if p.Masks[2] != want {
		t.Fatalf("XOR gate did not combine masks under homomorphism")
	}
	if p.Masks[3] != p.Masks[2].Not(delta) {
		t.Fatalf("NOT gate did not apply the free-XOR delta offset")
	}
}

func TestRunProducesOneGarbledTablePerAndGate(t *testing.T) {
	c := circuit.New([]circuit.Gate{
		{Kind: circuit.InContrib},
		{Kind: circuit.InEval},
		{Kind: circuit.And, A: 0, B: 1},
	}, []uint32{2})

	var delta field.Delta
	rand.Read(delta[:])

	triple := bucket.Triple{
		X: field.BitShare{Bit: true},
		Y: field.BitShare{Bit: false},
		Z: field.BitShare{Bit: false},
	}

	p := NewPreprocessor(delta, c, []bucket.Triple{triple})
	p.SetInputMask(0, randMask(t, true))
	p.SetInputMask(1, randMask(t, false))

	lhs, rhs, err := p.ComputeMasks(c)
	if err != nil {
		t.Fatal(err)
	}
	if len(lhs) != 1 || len(rhs) != 1 {
		t.Fatalf("expected exactly one AND disclosure pair, got %d/%d", len(lhs), len(rhs))
	}
	// Simulate a peer whose own shares are all false, so the combined
	// lhs/rhs equal this party's own values directly.
	gates, err := p.FinishTables(make([]bool, len(lhs)), make([]bool, len(rhs)))
	if err != nil {
		t.Fatal(err)
	}
	if len(gates) != 1 {
		t.Fatalf("expected exactly one garbled gate, got %d", len(gates))
	}
	g := gates[0]
	if g.Wire != 2 {
		t.Fatalf("unexpected wire index: %d", g.Wire)
	}
	seen := map[field.Mac]bool{}
	for _, row := range g.Table {
		if seen[row.Mac] {
			t.Fatalf("expected four distinct garbled rows, found a duplicate MAC")
		}
		seen[row.Mac] = true
	}
}

func TestRunFailsWithoutEnoughTriples(t *testing.T) {
	c := circuit.New([]circuit.Gate{
		{Kind: circuit.InContrib},
		{Kind: circuit.InEval},
		{Kind: circuit.And, A: 0, B: 1},
	}, []uint32{2})

	var delta field.Delta
	p := NewPreprocessor(delta, c, nil)
	p.SetInputMask(0, randMask(t, true))
	p.SetInputMask(1, randMask(t, false))

	if _, _, err := p.ComputeMasks(c); err == nil {
		t.Fatalf("expected an error when the triple pool is exhausted")
	}
}

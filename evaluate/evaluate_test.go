package evaluate

import (
	"crypto/rand"
	"testing"

	"github.com/kestrelmpc/engine/circuit"
	"github.com/kestrelmpc/engine/field"
)

func randLabel(t *testing.T) field.Label {
	t.Helper()
	var l field.Label
	if _, err := rand.Read(l[:]); err != nil {
		t.Fatal(err)
	}
	return l
}

// buildAndTables constructs, for a single AND gate, a pair of table shares
// (garbler's and evaluator's) whose combination, for exactly the
// (maskedA, maskedB) row under test, passes MAC verification under delta and
// reveals the given output masked bit, and garbage for the other three rows.
func buildAndTables(t *testing.T, delta field.Delta, wire uint32, labelA, labelB field.Label, maskedA, maskedB int, outMasked bool, outLabel field.Label, outMac field.Mac, outKey field.Key) (mine, theirs field.AndTableShare) {
	t.Helper()
	row := 2*maskedA + maskedB
	for r := 0; r < 4; r++ {
		var garbage field.BitShare
		rand.Read(garbage.Mac[:])
		rand.Read(garbage.Key[:])
		mine[r] = garbage
		theirs[r] = garbage
	}
	pad := field.Hrow(labelA, labelB, wire, uint32(row))
	// evaluator's share s must satisfy: s.Verify(mine[row].Key, delta), with
	// masked = mine[row].Bit XOR s.Bit == outMasked.
	s := field.PartialBitShare{
		Bit: outMasked != false, // mine[row].Bit is forced to false below
		Mac: field.Mac(outKey),
	}
	if s.Bit {
		s.Mac = s.Mac.XorDelta(delta)
	}
	mine[row] = field.BitShare{Bit: false, Mac: outMac, Key: outKey}
	// theirs[row] XOR pad must equal s
	theirs[row] = field.BitShare{
		Bit: s.Bit != pad.Bit,
		Mac: field.XorMac(s.Mac, pad.Mac),
	}
	_ = outLabel
	return mine, theirs
}

func TestRunEvaluatesXorNotAndGates(t *testing.T) {
	c := circuit.New([]circuit.Gate{
		{Kind: circuit.InContrib},
		{Kind: circuit.InEval},
		{Kind: circuit.Xor, A: 0, B: 1},
		{Kind: circuit.Not, A: 2},
	}, []uint32{3})

	var delta field.Delta
	ev := NewEvaluator(delta, len(c.Gates))
	la, lb := randLabel(t), randLabel(t)
	ev.SetInput(0, WireValue{Masked: true, Label: la})
	ev.SetInput(1, WireValue{Masked: false, Label: lb})

	if err := ev.Run(c); err != nil {
		t.Fatal(err)
	}
	if ev.Wires[2].Masked != true {
		t.Fatalf("XOR(true,false) masked = %v, want true", ev.Wires[2].Masked)
	}
	if ev.Wires[2].Label != field.XorLabel(la, lb) {
		t.Fatalf("XOR label mismatch")
	}
	if ev.Wires[3].Masked != false {
		t.Fatalf("NOT(true) masked = %v, want false", ev.Wires[3].Masked)
	}
}

func TestRunRejectsTamperedAndRow(t *testing.T) {
	c := circuit.New([]circuit.Gate{
		{Kind: circuit.InContrib},
		{Kind: circuit.InEval},
		{Kind: circuit.And, A: 0, B: 1},
	}, []uint32{2})

	var delta field.Delta
	ev := NewEvaluator(delta, len(c.Gates))
	la, lb := randLabel(t), randLabel(t)
	ev.SetInput(0, WireValue{Masked: true, Label: la})
	ev.SetInput(1, WireValue{Masked: true, Label: lb})

	var outMac field.Mac
	var outKey field.Key
	rand.Read(outMac[:])
	rand.Read(outKey[:])

	mine, theirs := buildAndTables(t, delta, 2, la, lb, 1, 1, true, field.Label{}, outMac, outKey)
	// Tamper with the peer's table for the row under evaluation.
	theirs[3].Mac[0] ^= 0xFF
	ev.SetAndTables(2, mine, theirs)

	if err := ev.Run(c); err == nil {
		t.Fatalf("expected MacError for a tampered AND row")
	}
}

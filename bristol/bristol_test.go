package bristol

import (
	"testing"

	"github.com/kestrelmpc/engine/circuit"
)

// A minimal 2-input AND circuit in Bristol Fashion: one gate line, one
// output bit, one bit of input from each party.
const andCircuit = `1 3
2 1 1
1 1 1

2 1 0 1 2 AND
`

func TestParseSimpleAndCircuit(t *testing.T) {
	c, err := Parse(andCircuit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Gates) != 3 {
		t.Fatalf("expected 3 gates, got %d", len(c.Gates))
	}
	if c.Gates[0].Kind != circuit.InContrib {
		t.Fatalf("expected wire 0 to be a contributor input")
	}
	if c.Gates[1].Kind != circuit.InEval {
		t.Fatalf("expected wire 1 to be an evaluator input")
	}
	if c.Gates[2].Kind != circuit.And || c.Gates[2].A != 0 || c.Gates[2].B != 1 {
		t.Fatalf("unexpected AND gate wiring: %+v", c.Gates[2])
	}
	if len(c.OutputGates) != 1 || c.OutputGates[0] != 2 {
		t.Fatalf("unexpected output gates: %v", c.OutputGates)
	}
}

func TestParseRejectsTruncatedHeader(t *testing.T) {
	if _, err := Parse("1 3\n2 1 1\n"); err == nil {
		t.Fatalf("expected error for truncated header")
	}
}

func TestParseRejectsUnknownGateKind(t *testing.T) {
	bad := `1 3
2 1 1
1 1 1

2 1 0 1 2 XNOR
`
	if _, err := Parse(bad); err == nil {
		t.Fatalf("expected error for unsupported gate kind")
	}
}

// Package evaluate implements online input-processing and circuit
// evaluation: the phase that runs after preprocessing has produced every
// wire's mask and every AND gate's garbled-table shares, consuming the
// parties' real inputs to produce the plaintext output.
package evaluate

import (
	"github.com/kestrelmpc/engine/circuit"
	"github.com/kestrelmpc/engine/field"
	"github.com/kestrelmpc/engine/wrkerr"
)

// WireValue is a wire's online state: the masked value the evaluator has
// observed for it, and the label corresponding to that masked value.
type WireValue struct {
	Masked bool
	Label  field.Label
}

// InputShareMsg is a mask share disclosed for one input wire, sent by
// whichever party did not supply that wire's real value, so the input's
// owner can compute and disclose the wire's masked value.
type InputShareMsg struct {
	Wire  uint32
	Share field.PartialBitShare
}

// ContributorInputMsg is what the Contributor discloses for one of its own
// input wires, directly: the masked value and the corresponding label.
type ContributorInputMsg struct {
	Wire   uint32
	Masked bool
	Label  field.Label
}

// DeriveMaskedValue is run by whichever party owns an input wire's real
// value: given its own mask-bit share (held from preprocessing) and the
// peer's disclosed share, it recovers the wire's masked value to broadcast.
//
// own is this party's BitShare for the wire's mask; peerShare is the
// corresponding PartialBitShare the peer just disclosed, authenticated
// against own.Key and delta, this party's own global offset.
func DeriveMaskedValue(own field.BitShare, peerShare field.PartialBitShare, delta field.Delta, value bool) (bool, error) {
	if !peerShare.Verify(own.Key, delta) {
		return false, wrkerr.MacError
	}
	return own.Bit != peerShare.Bit != value, nil
}

// DeriveLabel computes the label an input wire takes on once its masked
// value is known: label = label0 XOR (masked ? delta : 0).
func DeriveLabel(mask field.WireMask, masked bool, delta field.Delta) field.Label {
	return mask.LabelFor(masked, delta)
}

// Evaluator walks a circuit gate by gate, combining each gate's own and
// peer AND-table shares to recover the masked value and label of every
// wire, given the input wires' masked values and labels have already been
// established via DeriveMaskedValue/DeriveLabel.
type Evaluator struct {
	Delta  field.Delta
	Wires  []WireValue
	Tables map[uint32]field.AndTableShare // this party's AND-gate table shares, by wire
	Peer   map[uint32]field.AndTableShare // the peer's AND-gate table shares, by wire
}

// NewEvaluator creates an evaluator for a circuit with the given number of
// wires (equal to len(circuit.Gates)).
func NewEvaluator(delta field.Delta, wireCount int) *Evaluator {
	return &Evaluator{
		Delta:  delta,
		Wires:  make([]WireValue, wireCount),
		Tables: make(map[uint32]field.AndTableShare),
		Peer:   make(map[uint32]field.AndTableShare),
	}
}

// SetInput installs the masked value and label already established for an
// input wire.
func (e *Evaluator) SetInput(wire uint32, v WireValue) {
	e.Wires[wire] = v
}

// SetAndTables installs this evaluator's own and the peer's garbled-table
// shares for an AND-gate wire, received during preprocessing.
func (e *Evaluator) SetAndTables(wire uint32, mine, theirs field.AndTableShare) {
	e.Tables[wire] = mine
	e.Peer[wire] = theirs
}

// Run evaluates every gate of the circuit in order, filling in e.Wires for
// every wire that is not already an input. It returns an error at the first
// AND gate whose recovered row fails MAC verification.
func (e *Evaluator) Run(c circuit.Circuit) error {
	for i, g := range c.Gates {
		wire := uint32(i)
		switch g.Kind {
		case circuit.InContrib, circuit.InEval:
			// already populated via SetInput
		case circuit.Xor:
			a, b := e.Wires[g.A], e.Wires[g.B]
			e.Wires[wire] = WireValue{
				Masked: a.Masked != b.Masked,
				Label:  field.XorLabel(a.Label, b.Label),
			}
		case circuit.Not:
			a := e.Wires[g.A]
			e.Wires[wire] = WireValue{Masked: !a.Masked, Label: a.Label}
		case circuit.And:
			v, err := e.evalAnd(wire, g)
			if err != nil {
				return err
			}
			e.Wires[wire] = v
		default:
			return wrkerr.InvalidCircuit
		}
	}
	return nil
}

func (e *Evaluator) evalAnd(wire uint32, g circuit.Gate) (WireValue, error) {
	a, b := e.Wires[g.A], e.Wires[g.B]
	row := 2 * boolIndex(a.Masked) + boolIndex(b.Masked)

	myRow := e.Tables[wire][row]
	otherRow := e.Peer[wire][row]
	pad := field.Hrow(a.Label, b.Label, wire, uint32(row))

	s := field.PartialBitShare{
		Bit: otherRow.Bit != pad.Bit,
		Mac: field.XorMac(otherRow.Mac, pad.Mac),
	}
	if !s.Verify(myRow.Key, e.Delta) {
		return WireValue{}, wrkerr.MacError
	}
	masked := myRow.Bit != s.Bit
	label := field.Label(field.XorKey(field.Key(s.Mac), field.Key(myRow.Mac)))
	return WireValue{Masked: masked, Label: label}, nil
}

func boolIndex(b bool) int {
	if b {
		return 1
	}
	return 0
}

// OutputShareMsg is the mask share the Contributor discloses for an output
// wire, letting the Evaluator recover the plaintext output bit.
type OutputShareMsg struct {
	Wire  uint32
	Share field.PartialBitShare
}

// DecodeOutput recovers the plaintext value of an output wire from its
// final masked value, the evaluator's own mask-bit share, and the
// contributor's disclosed share. own.Key and delta are the evaluator's own
// verifying key and global offset for this wire -- the contributor's
// disclosed bit/mac is authenticated against them, not against anything the
// contributor holds, per the mac = key XOR (bit ? delta : 0) invariant.
func DecodeOutput(masked bool, own field.BitShare, contribShare field.PartialBitShare, delta field.Delta) (bool, error) {
	if !contribShare.Verify(own.Key, delta) {
		return false, wrkerr.MacError
	}
	return masked != own.Bit != contribShare.Bit, nil
}

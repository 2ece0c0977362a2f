// Package garble implements function-dependent preprocessing: deriving a
// WireMask for every wire in the circuit, and constructing the four-row
// garbled table share for every AND gate from its authenticated-AND
// triple. XOR and NOT gates need no garbled material at all (free-XOR,
// free-NOT): their masks are derived purely by combining their operands'
// masks under the field package's XOR-homomorphism.
package garble

import (
	"crypto/rand"

	"github.com/kestrelmpc/engine/bucket"
	"github.com/kestrelmpc/engine/circuit"
	"github.com/kestrelmpc/engine/field"
	"github.com/kestrelmpc/engine/wrkerr"
)

// pendingAnd holds everything garbleAndGate still needs once the peer's
// lhs/rhs disclosures for this gate come back, captured at ComputeMasks
// time before those disclosures exist.
type pendingAnd struct {
	wire         uint32
	maskA, maskB field.WireMask
	triple       bucket.Triple
	myLhs, myRhs bool
}

// Preprocessor holds one party's view of function-dependent preprocessing
// for a single circuit: its own Delta, the wire masks derived so far, and
// the pool of authenticated-AND triples bucketing produced, consumed one
// per AND gate in circuit order.
type Preprocessor struct {
	Delta   field.Delta
	Masks   []field.WireMask
	triples []bucket.Triple
	next    int
	pending []pendingAnd
}

// NewPreprocessor creates a preprocessor for the given circuit, to be fed
// the Contributor/Evaluator-side input-wire masks and AND triples as they
// become available.
func NewPreprocessor(delta field.Delta, c circuit.Circuit, triples []bucket.Triple) *Preprocessor {
	return &Preprocessor{
		Delta:   delta,
		Masks:   make([]field.WireMask, len(c.Gates)),
		triples: triples,
	}
}

// SetInputMask installs the mask for an input wire (Contributor or
// Evaluator), as produced by the aBit generation step for that wire.
func (p *Preprocessor) SetInputMask(wire uint32, mask field.WireMask) {
	p.Masks[wire] = mask
}

// Row is one of the four rows of a garbled AND-gate table, keyed by the two
// input masks' bit values (bitA, bitB) packed as 2*bitA+bitB.
type Row = field.BitShare

// GarbledGate is one party's share of one AND gate's four-row garbled
// table, plus the wire mask it implies for the gate's output wire.
type GarbledGate struct {
	Wire       uint32
	Table      field.AndTableShare
	OutputMask field.WireMask
}

// ComputeMasks derives the wire mask for every XOR/NOT gate and a
// provisional mask for every AND gate, consuming one authenticated-AND
// triple per AND gate. For each AND gate it also computes this party's own
// share of the Beaver disclosure (lhs = a xor triple.X, rhs = b xor
// triple.Y, where a, b are the gate's two operand masks), returned in
// circuit order so the caller can exchange them with the peer. The garbled
// tables themselves are not produced until FinishTables runs with the
// peer's matching disclosure.
func (p *Preprocessor) ComputeMasks(c circuit.Circuit) (lhsBit, rhsBit []bool, err error) {
	p.pending = nil
	for i, g := range c.Gates {
		wire := uint32(i)
		switch g.Kind {
		case circuit.InContrib, circuit.InEval:
			if p.Masks[wire] == (field.WireMask{}) {
				return nil, nil, wrkerr.InsufficientInput
			}
		case circuit.Xor:
			p.Masks[wire] = p.Masks[g.A].Xor(p.Masks[g.B])
		case circuit.Not:
			p.Masks[wire] = p.Masks[g.A].Not(p.Delta)
		case circuit.And:
			if p.next >= len(p.triples) {
				return nil, nil, wrkerr.InsufficientAndShares
			}
			triple := p.triples[p.next]
			p.next++

			maskA, maskB := p.Masks[g.A], p.Masks[g.B]
			myLhs := maskA.Bit.Bit != triple.X.Bit
			myRhs := maskB.Bit.Bit != triple.Y.Bit

			var outLabel field.Label
			if _, rerr := rand.Read(outLabel[:]); rerr != nil {
				return nil, nil, rerr
			}
			// Provisional: corrected once FinishTables has the real,
			// peer-combined lhs/rhs.
			p.Masks[wire] = field.WireMask{Label0: outLabel, Bit: triple.Z}

			p.pending = append(p.pending, pendingAnd{
				wire: wire, maskA: maskA, maskB: maskB, triple: triple,
				myLhs: myLhs, myRhs: myRhs,
			})
			lhsBit = append(lhsBit, myLhs)
			rhsBit = append(rhsBit, myRhs)
		default:
			return nil, nil, wrkerr.InvalidCircuit
		}
	}
	return lhsBit, rhsBit, nil
}

// FinishTables combines this party's own lhs/rhs shares (from ComputeMasks)
// with the peer's disclosed shares for the same gates, finalizes each AND
// gate's output mask via the standard Beaver reconstruction
// z = c ^ (lhs&y) ^ (rhs&x) ^ (lhs&rhs&Delta), and builds the garbled table
// share for every AND gate in circuit order.
func (p *Preprocessor) FinishTables(peerLhs, peerRhs []bool) ([]GarbledGate, error) {
	if len(peerLhs) != len(p.pending) || len(peerRhs) != len(p.pending) {
		return nil, wrkerr.InsufficientAndShares
	}
	gates := make([]GarbledGate, len(p.pending))
	for i, pa := range p.pending {
		lhs := pa.myLhs != peerLhs[i]
		rhs := pa.myRhs != peerRhs[i]

		sigma := pa.triple.Z
		if lhs {
			sigma = sigma.Xor(pa.triple.Y)
		}
		if rhs {
			sigma = sigma.Xor(pa.triple.X)
		}
		if lhs && rhs {
			sigma = sigma.Xor(field.BitShare{Bit: true, Mac: field.Mac(p.Delta)})
		}
		outMask := field.WireMask{Label0: p.Masks[pa.wire].Label0, Bit: sigma}
		p.Masks[pa.wire] = outMask

		table, err := p.garbleAndGate(pa.wire, pa.maskA, pa.maskB, outMask)
		if err != nil {
			return nil, err
		}
		gates[i] = GarbledGate{Wire: pa.wire, Table: table, OutputMask: outMask}
	}
	return gates, nil
}

// garbleAndGate builds this party's share of the four-row garbled table for
// one AND gate, given its already-corrected output mask. Each row r
// corresponds to one combination of the two input masks' bit values
// (bitA, bitB) = (r>>1, r&1); it is keyed by field.Hrow(labelA, labelB,
// wire, r) -- a pseudorandom pad only derivable by whichever party holds
// both corresponding labels -- XORed against the output wire's authenticated
// bit for exactly that combination, so that an evaluator holding the single
// row matching the two wires' actual masked values recovers precisely the
// AND gate's own output mask share.
func (p *Preprocessor) garbleAndGate(wire uint32, maskA, maskB field.WireMask, outMask field.WireMask) (field.AndTableShare, error) {
	var table field.AndTableShare
	for r := 0; r < 4; r++ {
		bitA := r>>1 == 1
		bitB := r&1 == 1

		labelA := maskA.LabelFor(bitA, p.Delta)
		labelB := maskB.LabelFor(bitB, p.Delta)
		pad := field.Hrow(labelA, labelB, wire, uint32(r))

		// The actual value this row should carry: the output mask's own
		// bit, corrected for whichever of the four input-bit
		// combinations actually holds, via the triple's free-XOR
		// algebra (bitA^maskA.Bit and bitB^maskB.Bit recover each
		// party's real wire value contribution for this combination).
		rowBit := outMask.Bit.Bit != ((bitA != maskA.Bit.Bit) && (bitB != maskB.Bit.Bit))
		row := field.BitShare{
			Bit: rowBit != pad.Bit,
			Mac: field.XorMac(outMask.Bit.Mac, pad.Mac),
			Key: field.XorKey(outMask.Bit.Key, pad.Key),
		}
		table[r] = row
	}
	return table, nil
}

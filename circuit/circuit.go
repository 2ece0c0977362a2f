// Package circuit defines the boolean-circuit representation shared by both
// parties: gates, their wiring, validation, and a digest used to bind both
// parties to the exact same circuit before any cryptographic work begins.
package circuit

import (
	"encoding/binary"

	"github.com/kestrelmpc/engine/field"
	"github.com/kestrelmpc/engine/wrkerr"
)

// GateKind identifies which of the five gate shapes a Gate represents.
type GateKind byte

const (
	// InContrib marks a wire as a Contributor input.
	InContrib GateKind = iota
	// InEval marks a wire as an Evaluator input.
	InEval
	// Xor marks a wire as the free-XOR of two earlier wires.
	Xor
	// And marks a wire as the AND of two earlier wires.
	And
	// Not marks a wire as the free-NOT of one earlier wire.
	Not
)

// Gate is one wire's definition: either an input of one of the two parties,
// or a function of one or two earlier wire indices.
type Gate struct {
	Kind GateKind
	A    uint32
	B    uint32 // unused for Not and the two input kinds
}

// MaxGates bounds the number of wires a circuit may declare: the original
// protocol reserves the top 4 bits of a wire index for bookkeeping, so gate
// indices must fit in 28 bits.
const MaxGates = ^uint32(0) >> 4

// MaxAndGates bounds the number of AND gates a circuit may contain: AND
// gates are further indexed into bucketing and OT-extension blocks that
// reserve the top 8 bits of their own counter.
const MaxAndGates = ^uint32(0) >> 8

// Circuit is the full description of the function being jointly computed:
// an ordered list of gates (wire 0 is gates[0], wire 1 is gates[1], etc.)
// plus the indices of the wires whose values form the final output.
type Circuit struct {
	Gates       []Gate
	OutputGates []uint32
}

// New builds a circuit from an explicit gate list and output wire set.
func New(gates []Gate, outputGates []uint32) Circuit {
	return Circuit{Gates: gates, OutputGates: outputGates}
}

// AndGates returns the wire indices of every AND gate, in circuit order.
func (c Circuit) AndGates() []uint32 {
	var out []uint32
	for i, g := range c.Gates {
		if g.Kind == And {
			out = append(out, uint32(i))
		}
	}
	return out
}

// ContribInputs returns the wire indices of the Contributor's inputs, in
// circuit order.
func (c Circuit) ContribInputs() []uint32 {
	var out []uint32
	for i, g := range c.Gates {
		if g.Kind == InContrib {
			out = append(out, uint32(i))
		}
	}
	return out
}

// EvalInputs returns the wire indices of the Evaluator's inputs, in circuit
// order.
func (c Circuit) EvalInputs() []uint32 {
	var out []uint32
	for i, g := range c.Gates {
		if g.Kind == InEval {
			out = append(out, uint32(i))
		}
	}
	return out
}

// Validate checks that every gate only references earlier wires, that the
// circuit declares at least one output, that every output index is in
// range, and that the circuit's size stays within MaxGates/MaxAndGates.
func (c Circuit) Validate() error {
	if len(c.Gates) == 0 || len(c.OutputGates) == 0 {
		return wrkerr.InvalidCircuit
	}
	if uint64(len(c.Gates)) > uint64(MaxGates) {
		return wrkerr.MaxCircuitSizeExceeded
	}
	var andCount uint64
	for i, g := range c.Gates {
		switch g.Kind {
		case InContrib, InEval:
		case Not:
			if uint64(g.A) >= uint64(i) {
				return wrkerr.InvalidCircuit
			}
		case Xor, And:
			if uint64(g.A) >= uint64(i) || uint64(g.B) >= uint64(i) {
				return wrkerr.InvalidCircuit
			}
			if g.Kind == And {
				andCount++
			}
		default:
			return wrkerr.InvalidCircuit
		}
	}
	if andCount > uint64(MaxAndGates) {
		return wrkerr.MaxCircuitSizeExceeded
	}
	for _, o := range c.OutputGates {
		if int(o) >= len(c.Gates) {
			return wrkerr.InvalidCircuit
		}
	}
	return nil
}

// ValidateContributorInput checks that the supplied input has exactly as
// many bits as the circuit declares Contributor input wires.
func (c Circuit) ValidateContributorInput(input []bool) error {
	if len(input) != len(c.ContribInputs()) {
		return wrkerr.InsufficientInput
	}
	return nil
}

// ValidateEvaluatorInput checks that the supplied input has exactly as many
// bits as the circuit declares Evaluator input wires.
func (c Circuit) ValidateEvaluatorInput(input []bool) error {
	if len(input) != len(c.EvalInputs()) {
		return wrkerr.InsufficientInput
	}
	return nil
}

// Digest computes a collision-resistant summary of the circuit's exact
// wiring, so both parties can confirm out of band that they agree on the
// function being computed before running the protocol over it.
func (c Circuit) Digest() []byte {
	var parts [][]byte
	for i, g := range c.Gates {
		var buf [9]byte
		buf[0] = byte(g.Kind)
		binary.BigEndian.PutUint32(buf[1:5], g.A)
		binary.BigEndian.PutUint32(buf[5:9], g.B)
		parts = append(parts, buf[:])
		_ = i
	}
	for _, o := range c.OutputGates {
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], o)
		parts = append(parts, buf[:])
	}
	return field.Hcomm(make([]byte, 32), parts...)
}

// Clone returns a deep copy of the circuit, safe to hand to a concurrently
// running goroutine.
func (c Circuit) Clone() Circuit {
	gates := make([]Gate, len(c.Gates))
	copy(gates, c.Gates)
	outs := make([]uint32, len(c.OutputGates))
	copy(outs, c.OutputGates)
	return Circuit{Gates: gates, OutputGates: outs}
}

// Package bristol parses circuits in Bristol Fashion, the de facto
// interchange format for boolean circuits used by most public MPC circuit
// libraries (SCALE-MAMBA's circuit zoo, emp-toolkit, etc).
//
// This is collaborator territory: the engine itself only ever consumes a
// circuit.Circuit, never circuit source text. This package exists so the
// engine can be exercised end to end against real, widely available test
// circuits (adder64.txt, aes_128.txt and similar) without requiring a
// bespoke circuit description format.
package bristol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kestrelmpc/engine/circuit"
	"github.com/kestrelmpc/engine/wrkerr"
)

// Parse reads a Bristol Fashion circuit description and returns the
// equivalent circuit.Circuit. Only the two-party form is supported: the
// header's per-party input-wire counts are read from the second line, and
// Bristol's own output wire numbering is remapped onto the engine's
// "wire index == gate index" scheme, exactly as every other gate's output
// already is.
func Parse(src string) (circuit.Circuit, error) {
	var lines []string
	for _, l := range strings.Split(src, "\n") {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) < 3 {
		return circuit.Circuit{}, wrkerr.InvalidCircuit
	}

	ioLine := strings.Fields(lines[1])
	if len(ioLine) < 3 {
		return circuit.Circuit{}, wrkerr.InvalidCircuit
	}
	contribBits, err := strconv.Atoi(ioLine[1])
	if err != nil {
		return circuit.Circuit{}, wrkerr.InvalidCircuit
	}
	evalBits, err := strconv.Atoi(ioLine[2])
	if err != nil {
		return circuit.Circuit{}, wrkerr.InvalidCircuit
	}

	outLine := strings.Fields(lines[2])
	if len(outLine) < 2 {
		return circuit.Circuit{}, wrkerr.InvalidCircuit
	}
	outputBits, err := strconv.Atoi(outLine[1])
	if err != nil {
		return circuit.Circuit{}, wrkerr.InvalidCircuit
	}

	var gates []circuit.Gate
	for i := 0; i < contribBits; i++ {
		gates = append(gates, circuit.Gate{Kind: circuit.InContrib})
	}
	for i := 0; i < evalBits; i++ {
		gates = append(gates, circuit.Gate{Kind: circuit.InEval})
	}

	// Bristol numbers every wire (including gate outputs) independently of
	// gate order; our own representation instead treats "wire index" as
	// "position in the gate slice". mappedWires translates from the
	// former to the latter, following exactly the remapping rule the
	// WRK17 reference implementation's circuit loader uses: a gate at
	// Bristol line index i (0-based among the gate lines) produces the
	// (contribBits+evalBits+i)'th wire of our representation.
	mappedWires := make(map[uint32]uint32, len(lines))
	for i := 0; i < contribBits+evalBits; i++ {
		mappedWires[uint32(i)] = uint32(i)
	}
	for i := 3; i < len(lines); i++ {
		fields := strings.Fields(lines[i])
		if len(fields) < 5 {
			return circuit.Circuit{}, wrkerr.InvalidCircuit
		}
		bristolOut, err := strconv.ParseUint(fields[len(fields)-2], 10, 32)
		if err != nil {
			return circuit.Circuit{}, wrkerr.InvalidCircuit
		}
		mappedWires[uint32(bristolOut)] = uint32(contribBits + evalBits + (i - 3))
	}

	for i := 3; i < len(lines); i++ {
		fields := strings.Fields(lines[i])
		aRaw, err := strconv.ParseUint(fields[2], 10, 32)
		if err != nil {
			return circuit.Circuit{}, wrkerr.InvalidCircuit
		}
		bRaw, err := strconv.ParseUint(fields[3], 10, 32)
		if err != nil {
			return circuit.Circuit{}, wrkerr.InvalidCircuit
		}
		a, ok := mappedWires[uint32(aRaw)]
		if !ok {
			return circuit.Circuit{}, wrkerr.InvalidCircuit
		}
		b, ok := mappedWires[uint32(bRaw)]
		if !ok {
			return circuit.Circuit{}, wrkerr.InvalidCircuit
		}

		switch op := fields[len(fields)-1]; op {
		case "XOR":
			gates = append(gates, circuit.Gate{Kind: circuit.Xor, A: a, B: b})
		case "AND":
			gates = append(gates, circuit.Gate{Kind: circuit.And, A: a, B: b})
		case "INV":
			gates = append(gates, circuit.Gate{Kind: circuit.Not, A: a})
		default:
			return circuit.Circuit{}, fmt.Errorf("%w: unsupported gate kind %q", wrkerr.InvalidCircuit, op)
		}
	}

	// Bristol's output wires are the last outputBits wire ids of the
	// header's wire count; each is looked up through mappedWires.
	header := strings.Fields(lines[0])
	if len(header) < 2 {
		return circuit.Circuit{}, wrkerr.InvalidCircuit
	}
	bristolWires, err := strconv.ParseUint(header[1], 10, 32)
	if err != nil || outputBits < 0 || uint64(outputBits) > bristolWires {
		return circuit.Circuit{}, wrkerr.InvalidCircuit
	}
	var outputGates []uint32
	for w := bristolWires - uint64(outputBits); w < bristolWires; w++ {
		g, ok := mappedWires[uint32(w)]
		if !ok {
			return circuit.Circuit{}, wrkerr.InvalidCircuit
		}
		outputGates = append(outputGates, g)
	}

	c := circuit.New(gates, outputGates)
	if err := c.Validate(); err != nil {
		return circuit.Circuit{}, err
	}
	return c, nil
}

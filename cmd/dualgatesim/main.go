// Command dualgatesim runs a Contributor and an Evaluator against a single
// Bristol Fashion circuit in one process, driving the protocol package's
// fixed-round message exchange directly rather than over a real transport.
// It exists to exercise the engine end to end against real test circuits
// without standing up two processes and a network link.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/kestrelmpc/engine/bristol"
	"github.com/kestrelmpc/engine/protocol"
)

func main() {
	circuitPath := flag.String("circuit", "", "path to a Bristol Fashion circuit file")
	contribInput := flag.String("contrib-input", "", "Contributor's input bits, e.g. 1011")
	evalInput := flag.String("eval-input", "", "Evaluator's input bits, e.g. 0110")
	flag.Parse()

	if *circuitPath == "" {
		log.Fatal("-circuit is required")
	}

	src, err := os.ReadFile(*circuitPath)
	if err != nil {
		log.Fatalf("reading circuit: %v", err)
	}
	c, err := bristol.Parse(string(src))
	if err != nil {
		log.Fatalf("parsing circuit: %v", err)
	}

	cInput, err := parseBits(*contribInput)
	if err != nil {
		log.Fatalf("-contrib-input: %v", err)
	}
	eInput, err := parseBits(*evalInput)
	if err != nil {
		log.Fatalf("-eval-input: %v", err)
	}

	contrib, msg, err := protocol.NewContributor(c, cInput)
	if err != nil {
		log.Fatalf("NewContributor: %v", err)
	}
	ev, err := protocol.NewEvaluator(c, eInput)
	if err != nil {
		log.Fatalf("NewEvaluator: %v", err)
	}

	for i := 0; i < ev.Steps()-1; i++ {
		evMsg, err := ev.Run(msg)
		if err != nil {
			log.Fatalf("round %d, Evaluator.Run: %v", i, err)
		}
		msg, err = contrib.Run(evMsg)
		if err != nil {
			log.Fatalf("round %d, Contributor.Run: %v", i, err)
		}
	}

	output, err := ev.Output(msg)
	if err != nil {
		log.Fatalf("Evaluator.Output: %v", err)
	}

	fmt.Println(formatBits(output))
}

func parseBits(s string) ([]bool, error) {
	if s == "" {
		return nil, nil
	}
	out := make([]bool, len(s))
	for i, r := range s {
		switch r {
		case '0':
			out[i] = false
		case '1':
			out[i] = true
		default:
			return nil, fmt.Errorf("invalid bit %q at position %d", r, i)
		}
	}
	return out, nil
}

func formatBits(bits []bool) string {
	var b strings.Builder
	for _, bit := range bits {
		b.WriteString(strconv.Itoa(boolToInt(bit)))
	}
	return b.String()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

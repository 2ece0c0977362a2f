// Package protocol implements the two roles' fixed-round type-state
// machines, wiring together base OT, OT extension, coin tossing, the
// leaky-AND sub-protocols, bucketing, preprocessing/garbling and online
// evaluation into the single linear sequence of message exchanges that
// carries two parties from "I have a circuit and an input" to "the
// Evaluator has the plaintext output".
//
// Each role is deliberately communication-agnostic: Run consumes one
// message from the peer and returns one message to send back. The caller
// owns the transport entirely; this package never blocks on I/O.
package protocol

import (
	"bytes"
	"crypto/rand"
	"encoding/gob"

	"github.com/kestrelmpc/engine/abit"
	"github.com/kestrelmpc/engine/baseot"
	"github.com/kestrelmpc/engine/bucket"
	"github.com/kestrelmpc/engine/circuit"
	"github.com/kestrelmpc/engine/cointoss"
	"github.com/kestrelmpc/engine/evaluate"
	"github.com/kestrelmpc/engine/field"
	"github.com/kestrelmpc/engine/garble"
	"github.com/kestrelmpc/engine/otext"
	"github.com/kestrelmpc/engine/wrkerr"
)

// Msg is the opaque, gob-encoded byte string exchanged between the two
// roles. The engine never inspects its contents directly; only the
// matching Run call on the peer's side decodes it.
type Msg []byte

func encode(v interface{}) (Msg, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(msg []byte, v interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(msg)).Decode(v); err != nil {
		return wrkerr.SerializationError
	}
	return nil
}

// andTripleBase is the offset into a party's raw authenticated-bit batch
// where the AND-triple material begins: the front of the batch is reserved,
// one raw bit per input wire of either party, for that wire's input mask.
func andTripleBase(c circuit.Circuit) int {
	return len(c.ContribInputs()) + len(c.EvalInputs())
}

// andTripleCount is the number of leaky AND triples the batch must carry
// enough raw material for: one per AND gate, times the bucket size needed
// to combine that many leaky triples down to malicious-secure ones.
func andTripleCount(c circuit.Circuit) int {
	and := len(c.AndGates())
	return and * bucket.Size(and)
}

// batchSize picks how many raw authenticated bits to produce in the single
// OT-extension pass each direction runs: one per input wire of either
// party, plus three (x, y, z) per leaky AND triple.
func batchSize(c circuit.Circuit) int {
	return andTripleBase(c) + andTripleCount(c)*3
}

// andIndices returns the batch offsets of the x, y and z raw bits backing
// the i-th AND triple.
func andIndices(base, i int) (x, y, z int) {
	return base + 3*i, base + 3*i + 1, base + 3*i + 2
}

// --- round messages ---

type round1Msg struct {
	RandomPub  [otext.K][32]byte // sender's Random-role base-OT pubkeys
	CoinCommit cointoss.Commitment
}

type round2Msg struct {
	RandomPub  [otext.K][32]byte
	DeltaInit  [otext.K]baseot.Init
	CoinCommit cointoss.Commitment
}

type round3Msg struct {
	DeltaInit   [otext.K]baseot.Init
	RandomReply [otext.K]baseot.Reply
	RandomU     [otext.K][]byte
	CoinReveal  cointoss.Reveal
}

type round4Msg struct {
	DeltaReply [otext.K]baseot.Reply
	DeltaU     [otext.K][]byte
	CoinReveal cointoss.Reveal
	Hashes     []abit.HashPair
}

type round5Msg struct {
	Hashes []abit.HashPair
	D      []bool // this party's Π_HaAND-combined AdjustZ disclosure, one per leaky triple
}

type round6Msg struct {
	D            []bool                  // the other party's AdjustZ disclosure
	BucketDShare []field.PartialBitShare // this party's disclosed bucket-consistency d-shares
}

type round7Msg struct {
	BucketDShare   []field.PartialBitShare
	LhsBit         []bool
	RhsBit         []bool
	EvalInputShare []evaluate.InputShareMsg
}

type round8Msg struct {
	LhsBit            []bool
	RhsBit            []bool
	ContribInputShare []evaluate.InputShareMsg
}

// doneMsg is the Contributor's final message: its garbled-table shares, its
// output-wire mask shares, and its own inputs' masked values and labels --
// everything the Evaluator needs to finish evaluating the circuit and
// decode the plaintext output.
type doneMsg struct {
	Tables       map[uint32]field.AndTableShare
	ContribMsgs  []evaluate.ContributorInputMsg
	OutputShares []evaluate.OutputShareMsg
}

// mutualOT is the state kept while running two directions of OT extension
// at once: one where this party plays the Delta role, one where it plays
// the Random role, so both parties end the exchange holding authenticated
// bits for the other's raw material.
type mutualOT struct {
	delta     field.Delta
	random    *otext.RandomPartySetup
	deltaSide *otext.DeltaPartySetup
	n         int
}

func newMutualOT(delta field.Delta, n int) *mutualOT {
	return &mutualOT{delta: delta, n: n}
}

// --- Contributor ---

// Contributor is the party that supplies its own input but never learns the
// circuit's output.
type Contributor struct {
	step    int
	circuit circuit.Circuit
	input   []bool
	delta   field.Delta

	mutOT    *mutualOT
	coinMine cointoss.Share
	coinPeer cointoss.Commitment
	coin     [32]byte

	n            int
	myMacs       []field.Mac // authenticated bits this party holds as Random-role output
	peerKeys     []field.Key // authenticated bits this party holds as Delta-role output
	myBits       []bool      // the raw bits behind myMacs
	leakyTriples []abit.Triple

	preproc *garble.Preprocessor
	tables  map[uint32]field.AndTableShare
}

// NewContributor starts a Contributor session for the given circuit and
// input, returning its initial state and the first message to send to the
// Evaluator.
func NewContributor(c circuit.Circuit, input []bool) (*Contributor, Msg, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	if err := c.ValidateContributorInput(input); err != nil {
		return nil, nil, err
	}
	var delta field.Delta
	if _, err := rand.Read(delta[:]); err != nil {
		return nil, nil, err
	}
	delta[0] |= 1 // the least-significant bit of Delta is conventionally fixed to 1

	n := batchSize(c)
	mutOT := newMutualOT(delta, n)

	random, randomPub, err := otext.BeginRandomSide(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	mutOT.random = random

	coinShare, coinCommit, err := cointoss.Init()
	if err != nil {
		return nil, nil, err
	}

	contrib := &Contributor{
		step:     1,
		circuit:  c,
		input:    input,
		delta:    delta,
		mutOT:    mutOT,
		coinMine: coinShare,
		n:        n,
		tables:   make(map[uint32]field.AndTableShare),
	}

	msg, err := encode(round1Msg{RandomPub: randomPub, CoinCommit: coinCommit})
	if err != nil {
		return nil, nil, err
	}
	return contrib, msg, nil
}

// Steps returns the fixed number of message round-trips the protocol takes.
func (c *Contributor) Steps() int { return 5 }

// Run executes one step, consuming the Evaluator's latest message and
// producing the Contributor's response.
func (c *Contributor) Run(msg Msg) (Msg, error) {
	switch c.step {
	case 1:
		return c.step1a(msg)
	case 2:
		return c.step2(msg)
	case 3:
		return c.step3(msg)
	case 4:
		return c.step4(msg)
	default:
		return nil, wrkerr.ProtocolEnded
	}
}

func (c *Contributor) step1a(msg Msg) (Msg, error) {
	var in round2Msg
	if err := decode(msg, &in); err != nil {
		return nil, err
	}
	deltaSide, deltaInit, err := otext.BeginDeltaSide(c.delta, in.RandomPub)
	if err != nil {
		return nil, err
	}
	c.mutOT.deltaSide = deltaSide

	randomReply, err := c.mutOT.random.CompleteRandomSide(in.DeltaInit)
	if err != nil {
		return nil, err
	}

	c.myBits = randomBits(c.n)
	macs, uColumns := otext.ExpandRandomSide(c.mutOT.random, c.myBits)
	c.myMacs = macs
	c.coinPeer = in.CoinCommit

	out := round3Msg{
		DeltaInit:   deltaInit,
		RandomReply: randomReply,
		RandomU:     uColumns,
		CoinReveal:  c.coinMine.Serialize(),
	}
	c.step = 2
	return encode(out)
}

func (c *Contributor) step2(msg Msg) (Msg, error) {
	var in round4Msg
	if err := decode(msg, &in); err != nil {
		return nil, err
	}
	coin, err := cointoss.Finish(c.coinMine, c.coinPeer, in.CoinReveal)
	if err != nil {
		return nil, err
	}
	c.coin = coin

	keys := otext.ExpandDeltaSide(c.mutOT.deltaSide, in.DeltaReply, in.DeltaU, c.n)
	c.peerKeys = keys

	base := andTripleBase(c.circuit)
	count := andTripleCount(c.circuit)

	yKeysForPeer := tripleYKeys(c.peerKeys, base, count)
	myX := tripleX(c.myBits, base, count)
	hashes, myT, err := abit.ComputeHashes(c.delta, yKeysForPeer, myX)
	if err != nil {
		return nil, err
	}

	myY := tripleY(c.myBits, base, count)
	myYMacs := tripleYMacs(c.myMacs, base, count)
	peerShare, err := abit.DeriveShare(myY, myYMacs, in.Hashes)
	if err != nil {
		return nil, err
	}

	triples, d, err := combineTriples(c.myBits, c.myMacs, c.peerKeys, myT, peerShare, base)
	if err != nil {
		return nil, err
	}
	c.leakyTriples = triples

	c.step = 3
	return encode(round5Msg{Hashes: hashes, D: d})
}

func (c *Contributor) step3(msg Msg) (Msg, error) {
	var in round6Msg
	if err := decode(msg, &in); err != nil {
		return nil, err
	}
	if err := applyPeerD(c.leakyTriples, in.D, c.delta); err != nil {
		return nil, err
	}

	buckets, err := splitBuckets(c.leakyTriples, c.coin)
	if err != nil {
		return nil, err
	}
	rawD, disclosedD := localDShares(buckets)

	finalized, err := finalizeBuckets(buckets, rawD, in.BucketDShare, c.delta)
	if err != nil {
		return nil, err
	}

	c.preproc = garble.NewPreprocessor(c.delta, c.circuit, finalized)
	if err := setAllInputMasks(c.preproc, c.circuit, c.myBits, c.myMacs, c.peerKeys); err != nil {
		return nil, err
	}

	lhs, rhs, err := c.preproc.ComputeMasks(c.circuit)
	if err != nil {
		return nil, err
	}

	var evalShares []evaluate.InputShareMsg
	for _, w := range c.circuit.EvalInputs() {
		evalShares = append(evalShares, evaluate.InputShareMsg{
			Wire:  w,
			Share: c.preproc.Masks[w].Bit.Partial(),
		})
	}

	c.step = 4
	return encode(round7Msg{
		BucketDShare:   disclosedD,
		LhsBit:         lhs,
		RhsBit:         rhs,
		EvalInputShare: evalShares,
	})
}

func (c *Contributor) step4(msg Msg) (Msg, error) {
	var in round8Msg
	if err := decode(msg, &in); err != nil {
		return nil, err
	}
	gates, err := c.preproc.FinishTables(in.LhsBit, in.RhsBit)
	if err != nil {
		return nil, err
	}
	for _, g := range gates {
		c.tables[g.Wire] = g.Table
	}

	var contribMsgs []evaluate.ContributorInputMsg
	for i, w := range c.circuit.ContribInputs() {
		share, ok := findInputShare(in.ContribInputShare, w)
		if !ok {
			return nil, wrkerr.InsufficientInput
		}
		masked, err := evaluate.DeriveMaskedValue(c.preproc.Masks[w].Bit, share, c.delta, c.input[i])
		if err != nil {
			return nil, err
		}
		contribMsgs = append(contribMsgs, evaluate.ContributorInputMsg{
			Wire:   w,
			Masked: masked,
			Label:  c.preproc.Masks[w].LabelFor(masked, c.delta),
		})
	}

	var outputShares []evaluate.OutputShareMsg
	for _, w := range c.circuit.OutputGates {
		outputShares = append(outputShares, evaluate.OutputShareMsg{
			Wire:  w,
			Share: c.preproc.Masks[w].Bit.Partial(),
		})
	}

	c.step = 5
	return encode(doneMsg{
		Tables:       c.tables,
		ContribMsgs:  contribMsgs,
		OutputShares: outputShares,
	})
}

// --- Evaluator ---

// Evaluator is the party that evaluates the garbled circuit and learns the
// plaintext output.
type Evaluator struct {
	step    int
	circuit circuit.Circuit
	input   []bool
	delta   field.Delta

	mutOT    *mutualOT
	coinMine cointoss.Share
	coinPeer cointoss.Commitment
	coin     [32]byte

	n        int
	myMacs   []field.Mac
	peerKeys []field.Key
	myBits   []bool
	myT      []bool // this party's own Π_HaAND sender-share, computed in step2

	pendingBuckets [][]bucket.LeakyTriple
	pendingRawD    []field.BitShare

	preproc *garble.Preprocessor
	eval    *evaluate.Evaluator
	tables  map[uint32]field.AndTableShare

	pendingCoinCommit cointoss.Commitment
	pendingRandomPub  [otext.K][32]byte

	result []bool
}

// NewEvaluator starts an Evaluator session for the given circuit and input.
func NewEvaluator(c circuit.Circuit, input []bool) (*Evaluator, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := c.ValidateEvaluatorInput(input); err != nil {
		return nil, err
	}
	var delta field.Delta
	if _, err := rand.Read(delta[:]); err != nil {
		return nil, err
	}
	delta[0] |= 1

	n := batchSize(c)
	mutOT := newMutualOT(delta, n)

	random, randomPub, err := otext.BeginRandomSide(rand.Reader)
	if err != nil {
		return nil, err
	}
	mutOT.random = random

	coinShare, coinCommit, err := cointoss.Init()
	if err != nil {
		return nil, err
	}

	ev := &Evaluator{
		step:     1,
		circuit:  c,
		input:    input,
		delta:    delta,
		mutOT:    mutOT,
		coinMine: coinShare,
		n:        n,
		tables:   make(map[uint32]field.AndTableShare),
	}
	ev.pendingCoinCommit = coinCommit
	ev.pendingRandomPub = randomPub
	return ev, nil
}

// Steps returns the fixed number of message round-trips the protocol takes.
func (e *Evaluator) Steps() int { return 5 }

// Run executes one step, consuming the Contributor's latest message and
// producing the Evaluator's response.
func (e *Evaluator) Run(msg Msg) (Msg, error) {
	switch e.step {
	case 1:
		return e.step1(msg)
	case 2:
		return e.step2(msg)
	case 3:
		return e.step3(msg)
	case 4:
		return e.step4(msg)
	default:
		return nil, wrkerr.ProtocolEnded
	}
}

func (e *Evaluator) step1(msg Msg) (Msg, error) {
	var in round1Msg
	if err := decode(msg, &in); err != nil {
		return nil, err
	}
	deltaSide, deltaInit, err := otext.BeginDeltaSide(e.delta, in.RandomPub)
	if err != nil {
		return nil, err
	}
	e.mutOT.deltaSide = deltaSide
	e.coinPeer = in.CoinCommit

	e.step = 2
	return encode(round2Msg{
		RandomPub:  e.pendingRandomPub,
		DeltaInit:  deltaInit,
		CoinCommit: e.pendingCoinCommit,
	})
}

func (e *Evaluator) step2(msg Msg) (Msg, error) {
	var in round3Msg
	if err := decode(msg, &in); err != nil {
		return nil, err
	}
	randomReply, err := e.mutOT.random.CompleteRandomSide(in.DeltaInit)
	if err != nil {
		return nil, err
	}
	keys := otext.ExpandDeltaSide(e.mutOT.deltaSide, in.RandomReply, in.RandomU, e.n)
	e.peerKeys = keys

	e.myBits = randomBits(e.n)
	macs, uColumns := otext.ExpandRandomSide(e.mutOT.random, e.myBits)
	e.myMacs = macs

	coin, err := cointoss.Finish(e.coinMine, e.coinPeer, in.CoinReveal)
	if err != nil {
		return nil, err
	}
	e.coin = coin

	base := andTripleBase(e.circuit)
	count := andTripleCount(e.circuit)
	yKeysForPeer := tripleYKeys(e.peerKeys, base, count)
	myX := tripleX(e.myBits, base, count)
	hashes, myT, err := abit.ComputeHashes(e.delta, yKeysForPeer, myX)
	if err != nil {
		return nil, err
	}
	e.myT = myT

	e.step = 3
	return encode(round4Msg{
		DeltaReply: randomReply,
		DeltaU:     uColumns,
		CoinReveal: e.coinMine.Serialize(),
		Hashes:     hashes,
	})
}

func (e *Evaluator) step3(msg Msg) (Msg, error) {
	var in round5Msg
	if err := decode(msg, &in); err != nil {
		return nil, err
	}

	base := andTripleBase(e.circuit)
	count := andTripleCount(e.circuit)
	myY := tripleY(e.myBits, base, count)
	myYMacs := tripleYMacs(e.myMacs, base, count)
	peerShare, err := abit.DeriveShare(myY, myYMacs, in.Hashes)
	if err != nil {
		return nil, err
	}

	triples, myD, err := combineTriples(e.myBits, e.myMacs, e.peerKeys, e.myT, peerShare, base)
	if err != nil {
		return nil, err
	}
	if err := applyPeerD(triples, in.D, e.delta); err != nil {
		return nil, err
	}

	buckets, err := splitBuckets(triples, e.coin)
	if err != nil {
		return nil, err
	}
	rawD, disclosedD := localDShares(buckets)
	e.pendingBuckets = buckets
	e.pendingRawD = rawD

	e.step = 4
	return encode(round6Msg{D: myD, BucketDShare: disclosedD})
}

func (e *Evaluator) step4(msg Msg) (Msg, error) {
	var in round7Msg
	if err := decode(msg, &in); err != nil {
		return nil, err
	}
	finalized, err := finalizeBuckets(e.pendingBuckets, e.pendingRawD, in.BucketDShare, e.delta)
	if err != nil {
		return nil, err
	}

	e.preproc = garble.NewPreprocessor(e.delta, e.circuit, finalized)
	if err := setAllInputMasks(e.preproc, e.circuit, e.myBits, e.myMacs, e.peerKeys); err != nil {
		return nil, err
	}

	lhs, rhs, err := e.preproc.ComputeMasks(e.circuit)
	if err != nil {
		return nil, err
	}
	gates, err := e.preproc.FinishTables(in.LhsBit, in.RhsBit)
	if err != nil {
		return nil, err
	}
	for _, g := range gates {
		e.tables[g.Wire] = g.Table
	}

	e.eval = evaluate.NewEvaluator(e.delta, len(e.circuit.Gates))
	for i, w := range e.circuit.EvalInputs() {
		share, ok := findInputShare(in.EvalInputShare, w)
		if !ok {
			return nil, wrkerr.InsufficientInput
		}
		masked, err := evaluate.DeriveMaskedValue(e.preproc.Masks[w].Bit, share, e.delta, e.input[i])
		if err != nil {
			return nil, err
		}
		e.eval.SetInput(w, evaluate.WireValue{
			Masked: masked,
			Label:  e.preproc.Masks[w].LabelFor(masked, e.delta),
		})
	}

	var contribShares []evaluate.InputShareMsg
	for _, w := range e.circuit.ContribInputs() {
		contribShares = append(contribShares, evaluate.InputShareMsg{
			Wire:  w,
			Share: e.preproc.Masks[w].Bit.Partial(),
		})
	}

	e.step = 5
	return encode(round8Msg{
		LhsBit:            lhs,
		RhsBit:            rhs,
		ContribInputShare: contribShares,
	})
}

// Output consumes the Contributor's final message (its output-mask shares
// and its own masked inputs/labels) and computes the plaintext output. It
// may only be called once Run has been invoked Steps()-1 times (i.e. after
// the Evaluator has reached its terminal pre-output state).
func (e *Evaluator) Output(msg Msg) ([]bool, error) {
	if e.step != 5 {
		return nil, wrkerr.ProtocolStillInProgress
	}
	var in doneMsg
	if err := decode(msg, &in); err != nil {
		return nil, err
	}
	for _, m := range in.ContribMsgs {
		e.eval.SetInput(m.Wire, evaluate.WireValue{Masked: m.Masked, Label: m.Label})
	}
	for wire, mine := range e.tables {
		e.eval.SetAndTables(wire, mine, in.Tables[wire])
	}
	if err := e.eval.Run(e.circuit); err != nil {
		return nil, err
	}

	outBits := make([]bool, len(e.circuit.OutputGates))
	for i, w := range e.circuit.OutputGates {
		share := findOutputShare(in.OutputShares, w)
		v, err := evaluate.DecodeOutput(e.eval.Wires[w].Masked, e.preproc.Masks[w].Bit, share, e.delta)
		if err != nil {
			return nil, err
		}
		outBits[i] = v
	}
	e.result = outBits
	e.step = 6
	return outBits, nil
}

func findOutputShare(shares []evaluate.OutputShareMsg, wire uint32) field.PartialBitShare {
	for _, s := range shares {
		if s.Wire == wire {
			return s.Share
		}
	}
	return field.PartialBitShare{}
}

func findInputShare(shares []evaluate.InputShareMsg, wire uint32) (field.PartialBitShare, bool) {
	for _, s := range shares {
		if s.Wire == wire {
			return s.Share, true
		}
	}
	return field.PartialBitShare{}, false
}

// Simulate runs a full Contributor/Evaluator session in-process and returns
// the plaintext output, for testing the engine's correctness directly
// against a circuit without standing up a real transport.
func Simulate(c circuit.Circuit, contribInput, evalInput []bool) ([]bool, error) {
	contrib, msg, err := NewContributor(c, contribInput)
	if err != nil {
		return nil, err
	}
	ev, err := NewEvaluator(c, evalInput)
	if err != nil {
		return nil, err
	}
	for i := 0; i < ev.Steps()-1; i++ {
		evMsg, err := ev.Run(msg)
		if err != nil {
			return nil, err
		}
		msg, err = contrib.Run(evMsg)
		if err != nil {
			return nil, err
		}
	}
	return ev.Output(msg)
}

// --- shared helpers ---

func randomBits(n int) []bool {
	buf := make([]byte, (n+7)/8)
	rand.Read(buf)
	out := make([]bool, n)
	for i := range out {
		out[i] = buf[i/8]&(1<<uint(i%8)) != 0
	}
	return out
}

// tripleX, tripleY, tripleYKeys and tripleYMacs gather, out of a party's raw
// authenticated-bit batch, the per-triple slices Π_HaAND needs: the AND
// triples' x and y operand bits, plus the keys and macs authenticating the
// y operand specifically (the slot each Π_HaAND run targets).
func tripleX(bits []bool, base, count int) []bool {
	out := make([]bool, count)
	for i := range out {
		xi, _, _ := andIndices(base, i)
		out[i] = bits[xi]
	}
	return out
}

func tripleY(bits []bool, base, count int) []bool {
	out := make([]bool, count)
	for i := range out {
		_, yi, _ := andIndices(base, i)
		out[i] = bits[yi]
	}
	return out
}

func tripleYKeys(keys []field.Key, base, count int) []field.Key {
	out := make([]field.Key, count)
	for i := range out {
		_, yi, _ := andIndices(base, i)
		out[i] = keys[yi]
	}
	return out
}

func tripleYMacs(macs []field.Mac, base, count int) []field.Mac {
	out := make([]field.Mac, count)
	for i := range out {
		_, yi, _ := andIndices(base, i)
		out[i] = macs[yi]
	}
	return out
}

// inputMask builds a WireMask from the raw authenticated bit at the given
// cursor position in the party's own batch -- the front of the batch that
// andTripleBase reserves, one raw bit per input wire of either party.
func inputMask(bits []bool, macs []field.Mac, keys []field.Key, idx int) (field.WireMask, error) {
	if idx >= len(bits) {
		return field.WireMask{}, wrkerr.InsufficientInput
	}
	var label field.Label
	if _, err := rand.Read(label[:]); err != nil {
		return field.WireMask{}, err
	}
	bit := field.BitShare{Bit: bits[idx], Mac: macs[idx], Key: keys[idx]}
	return field.WireMask{Label0: label, Bit: bit}, nil
}

// setAllInputMasks installs this party's own local share of the mask for
// every input wire of both parties -- its own input wires and the peer's --
// walking the batch's reserved input region once, in the fixed
// Contributor-then-Evaluator order both sides agree on.
func setAllInputMasks(p *garble.Preprocessor, c circuit.Circuit, bits []bool, macs []field.Mac, keys []field.Key) error {
	cursor := 0
	for _, w := range c.ContribInputs() {
		mask, err := inputMask(bits, macs, keys, cursor)
		if err != nil {
			return err
		}
		p.SetInputMask(w, mask)
		cursor++
	}
	for _, w := range c.EvalInputs() {
		mask, err := inputMask(bits, macs, keys, cursor)
		if err != nil {
			return err
		}
		p.SetInputMask(w, mask)
		cursor++
	}
	return nil
}

// combineTriples folds a batch of raw authenticated bits and the two
// Π_HaAND cross-term shares (myShare, the share from the direction this
// party sent plus derived; peerShare, the matching share from the peer's
// direction) into leaky AND triples via abit.CombineLocalProduct and
// abit.AdjustZ, returning each triple's disclosed AdjustZ difference bit
// alongside it.
func combineTriples(bits []bool, macs []field.Mac, keys []field.Key, myShare, peerShare []bool, base int) ([]abit.Triple, []bool, error) {
	count := len(myShare)
	if len(peerShare) != count {
		return nil, nil, wrkerr.InsufficientAndShares
	}
	triples := make([]abit.Triple, count)
	d := make([]bool, count)
	for i := 0; i < count; i++ {
		xi, yi, zi := andIndices(base, i)
		if zi >= len(bits) {
			return nil, nil, wrkerr.InsufficientAndShares
		}
		x := field.BitShare{Bit: bits[xi], Mac: macs[xi], Key: keys[xi]}
		y := field.BitShare{Bit: bits[yi], Mac: macs[yi], Key: keys[yi]}
		zRaw := field.BitShare{Bit: bits[zi], Mac: macs[zi], Key: keys[zi]}
		want := abit.CombineLocalProduct(x.Bit, y.Bit, myShare[i:i+1], peerShare[i:i+1])[0]
		adjusted, dj := abit.AdjustZ(zRaw, want)
		triples[i] = abit.Triple{X: x, Y: y, Z: adjusted}
		d[i] = dj
	}
	return triples, d, nil
}

// applyPeerD folds the peer's disclosed AdjustZ difference bit into this
// party's own key for each triple's z-share, keeping the MAC invariant
// intact once both parties' corrections have been applied.
func applyPeerD(triples []abit.Triple, peerD []bool, delta field.Delta) error {
	if len(peerD) != len(triples) {
		return wrkerr.InsufficientAndShares
	}
	for i := range triples {
		triples[i].Z.Key = abit.ApplyPeerD(triples[i].Z.Key, delta, peerD[i])
	}
	return nil
}

// splitBuckets permutes the leaky-triple pool with the jointly tossed coin
// and slices it into buckets of bucket.Size(len(triples)) members each.
func splitBuckets(triples []abit.Triple, coin [32]byte) ([][]bucket.LeakyTriple, error) {
	b := bucket.Size(len(triples))
	count := len(triples) / b
	if count == 0 {
		return nil, wrkerr.InsufficientAndShares
	}
	perm := bucket.Permutation(coin, count*b)
	out := make([][]bucket.LeakyTriple, count)
	for i := 0; i < count; i++ {
		members := make([]bucket.LeakyTriple, b)
		for j := 0; j < b; j++ {
			t := triples[perm[i*b+j]]
			members[j] = bucket.LeakyTriple{X: t.X, Y: t.Y, Z: t.Z}
		}
		out[i] = members
	}
	return out, nil
}

// localDShares computes, for every non-primary member of every bucket, this
// party's own authenticated d-share plus the disclosed half of it to send
// to the peer for bucket.CheckConsistency.
func localDShares(buckets [][]bucket.LeakyTriple) (raw []field.BitShare, disclosed []field.PartialBitShare) {
	for _, members := range buckets {
		primary := members[0]
		for _, member := range members[1:] {
			share := bucket.LocalDShare(primary, member)
			raw = append(raw, share)
			disclosed = append(disclosed, share.Partial())
		}
	}
	return raw, disclosed
}

// finalizeBuckets checks every bucket member's disclosed d-share against
// this party's own, then XOR-combines each bucket into one malicious-secure
// triple via bucket.Combine.
func finalizeBuckets(buckets [][]bucket.LeakyTriple, myRawD []field.BitShare, peerDisclosed []field.PartialBitShare, delta field.Delta) ([]bucket.Triple, error) {
	out := make([]bucket.Triple, 0, len(buckets))
	idx := 0
	for _, members := range buckets {
		k := len(members) - 1
		if idx+k > len(myRawD) || idx+k > len(peerDisclosed) {
			return nil, wrkerr.InsufficientAndShares
		}
		myD := myRawD[idx : idx+k]
		peerD := peerDisclosed[idx : idx+k]
		for j := 0; j < k; j++ {
			if err := bucket.CheckConsistency(myD[j], peerD[j], delta); err != nil {
				return nil, err
			}
		}
		combined, err := bucket.Combine(members, myD, peerD)
		if err != nil {
			return nil, err
		}
		out = append(out, combined)
		idx += k
	}
	return out, nil
}

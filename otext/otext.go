// Package otext implements the ALSZ13-style OT extension that turns K=128
// base OTs (package baseot) into however many vectorized, raw authenticated
// bits the rest of the protocol needs. Rather than running N independent
// base OTs for N authenticated bits, K base OTs are run once and then
// expanded with a PRG into an N-row, K-column bit matrix that both parties
// transpose locally; each row of the transposed matrix becomes one raw
// authenticated bit shared between the two parties.
//
// One party holds the global offset Delta and ends up with a Key per row;
// the other party samples N random bits and ends up with a Mac per row,
// satisfying the authenticated-bit invariant Mac == Key XOR (bit ? Delta :
// 0). This raw form still leaks one bit of Delta per base OT to a
// malicious random-bit party in isolation (hence "leaky"); package abit
// builds the leaky-AND sub-protocols on top of it, and package bucket
// removes the leakage via bucketing.
package otext

import (
	"crypto/aes"
	"crypto/cipher"

	"github.com/kestrelmpc/engine/baseot"
	"github.com/kestrelmpc/engine/field"
)

// K is the number of base OTs run to bootstrap the extension; it equals the
// computational security parameter and the bit-width of every aBit.
const K = field.K

// seedPRG expands a 16-byte seed into an nBytes-long pseudorandom stream
// using AES in CTR mode, the same construction the ambient crypto helpers
// use elsewhere in this stack (AESCTRencrypt/AESCTRdecrypt) for turning a
// short key into arbitrarily long keystream.
func seedPRG(seed [16]byte, nBytes int) []byte {
	block, err := aes.NewCipher(seed[:])
	if err != nil {
		panic("otext: aes.NewCipher: " + err.Error())
	}
	var iv [16]byte
	stream := cipher.NewCTR(block, iv[:])
	out := make([]byte, nBytes)
	stream.XORKeyStream(out, out)
	return out
}

func xorBytes(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range out {
		out[i] = a[i] ^ b[i]
	}
	return out
}

func packBits(bits []bool) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

func deltaBit(d field.Delta, i int) bool {
	return d[i/8]&(1<<uint(i%8)) != 0
}

// transpose converts a K-column bit matrix (nBytes bytes per column) into
// its row-major form: nBytes*8 rows of K bits each, packed K/8 bytes per
// row.
func transpose(columns [K][]byte, nBytes int) [][]byte {
	rows := make([][]byte, nBytes*8)
	for r := range rows {
		rows[r] = make([]byte, K/8)
	}
	for col := 0; col < K; col++ {
		data := columns[col]
		for byteIdx := 0; byteIdx < nBytes; byteIdx++ {
			b := data[byteIdx]
			if b == 0 {
				continue
			}
			for bit := 0; bit < 8; bit++ {
				if b&(1<<uint(bit)) == 0 {
					continue
				}
				row := byteIdx*8 + bit
				rows[row][col/8] |= 1 << uint(col%8)
			}
		}
	}
	return rows
}

// RandomPartySetup is the state a random-bit party keeps between offering
// its K base-OT seed pairs and processing the Delta party's Init messages.
type RandomPartySetup struct {
	senders [K]*baseot.Sender
	seed0   [K][16]byte
	seed1   [K][16]byte
}

// BeginRandomSide creates K base-OT senders, each offering a freshly
// sampled pair of seeds, and returns the public keys the peer needs before
// it can choose.
func BeginRandomSide(rng ByteReader) (*RandomPartySetup, [K][32]byte, error) {
	s := &RandomPartySetup{}
	var pubKeys [K][32]byte
	for i := 0; i < K; i++ {
		sender, err := baseot.NewSender()
		if err != nil {
			return nil, pubKeys, err
		}
		s.senders[i] = sender
		if _, err := rng.Read(s.seed0[i][:]); err != nil {
			return nil, pubKeys, err
		}
		if _, err := rng.Read(s.seed1[i][:]); err != nil {
			return nil, pubKeys, err
		}
		pubKeys[i] = sender.PubKey()
	}
	return s, pubKeys, nil
}

// CompleteRandomSide answers the Delta party's K base-OT Init messages,
// revealing one seed of each pair (not which one -- only the Delta party
// learns that).
func (s *RandomPartySetup) CompleteRandomSide(inits [K]baseot.Init) ([K]baseot.Reply, error) {
	var replies [K]baseot.Reply
	for i := 0; i < K; i++ {
		reply, err := s.senders[i].Send(inits[i], s.seed0[i], s.seed1[i])
		if err != nil {
			return replies, err
		}
		replies[i] = reply
	}
	return replies, nil
}

// DeltaPartySetup is the state the Delta-holding party keeps between
// choosing its K base-OT choice bits (Delta's own bits) and recovering the
// K chosen seeds from the peer's replies.
type DeltaPartySetup struct {
	receivers [K]*baseot.Receiver
	delta     field.Delta
}

// BeginDeltaSide starts the K base OTs as the choosing party, selecting
// choice bit i from bit i of delta.
func BeginDeltaSide(delta field.Delta, pubKeys [K][32]byte) (*DeltaPartySetup, [K]baseot.Init, error) {
	s := &DeltaPartySetup{delta: delta}
	var inits [K]baseot.Init
	for i := 0; i < K; i++ {
		receiver, init, err := baseot.NewReceiver(pubKeys[i], deltaBit(delta, i))
		if err != nil {
			return nil, inits, err
		}
		s.receivers[i] = receiver
		inits[i] = init
	}
	return s, inits, nil
}

// chosenSeeds recovers the K chosen seeds from the peer's replies.
func (s *DeltaPartySetup) chosenSeeds(replies [K]baseot.Reply) [K][16]byte {
	var chosen [K][16]byte
	for i := 0; i < K; i++ {
		chosen[i] = s.receivers[i].Recv(replies[i])
	}
	return chosen
}

// ByteReader is the minimal randomness source the extension needs; it is
// satisfied by both crypto/rand.Reader and any seeded deterministic RNG
// used in tests.
type ByteReader interface {
	Read(p []byte) (int, error)
}

// ExpandRandomSide runs the column-wise PRG expansion and matrix transpose
// for the party holding randomBits, returning one Mac per bit. The
// companion ot-extension message it must hand to the Delta party is
// returned as uColumns, which ExpandDeltaSide needs to complete its own
// side.
func ExpandRandomSide(s *RandomPartySetup, randomBits []bool) (macs []field.Mac, uColumns [K][]byte) {
	n := len(randomBits)
	nBytes := (n + 7) / 8
	packedR := packBits(randomBits)

	var tCols [K][]byte
	for i := 0; i < K; i++ {
		t := seedPRG(s.seed0[i], nBytes)
		s1 := seedPRG(s.seed1[i], nBytes)
		uColumns[i] = xorBytes(xorBytes(t, s1), packedR)
		tCols[i] = t
	}

	rows := transpose(tCols, nBytes)
	macs = make([]field.Mac, n)
	for j := 0; j < n; j++ {
		macs[j] = field.Mac(toSize(rows[j]))
	}
	return macs, uColumns
}

// ExpandDeltaSide runs the column-wise PRG expansion and matrix transpose
// for the Delta-holding party, given the replies from the random-bit party
// and the uColumns message ExpandRandomSide produced, returning one Key per
// bit, satisfying Mac == Key XOR (bit ? Delta : 0) against the random
// party's Mac for the same row index.
func ExpandDeltaSide(s *DeltaPartySetup, replies [K]baseot.Reply, uColumns [K][]byte, n int) []field.Key {
	chosen := s.chosenSeeds(replies)
	nBytes := (n + 7) / 8

	var qCols [K][]byte
	for i := 0; i < K; i++ {
		q := seedPRG(chosen[i], nBytes)
		if deltaBit(s.delta, i) {
			q = xorBytes(q, uColumns[i])
		}
		qCols[i] = q
	}

	rows := transpose(qCols, nBytes)
	keys := make([]field.Key, n)
	for j := 0; j < n; j++ {
		keys[j] = field.Key(toSize(rows[j]))
	}
	return keys
}

func toSize(b []byte) [field.Size]byte {
	var out [field.Size]byte
	copy(out[:], b)
	return out
}

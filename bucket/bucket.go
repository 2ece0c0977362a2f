// Package bucket implements Π_aAND: turning a large pool of "leaky"
// authenticated-AND triples (package abit) into a smaller pool of
// malicious-secure triples, by jointly shuffling the pool with a
// coin-tossed permutation and XOR-combining each bucket of B triples into
// one.
//
// A single leaky triple can be biased by a cheating party with some small
// probability; bucketing drives that probability down to negligible by
// requiring an adversary to have correctly guessed the shuffle in advance
// for every triple in a bucket simultaneously.
package bucket

import (
	"encoding/binary"

	"github.com/kestrelmpc/engine/field"
	"github.com/kestrelmpc/engine/wrkerr"
)

// Size returns the bucket size B to use for the given number of AND gates,
// per WRK17a Table 4 at statistical security ρ = 40.
func Size(andGates int) int {
	switch {
	case andGates >= 280_000:
		return 3
	case andGates >= 3_100:
		return 4
	default:
		return 5
	}
}

// Permutation deterministically derives a Fisher-Yates shuffle of
// [0, length) from a 32-byte jointly-tossed coin, so both parties compute
// the identical permutation without further communication.
func Permutation(coin [32]byte, length int) []int {
	perm := make([]int, length)
	for i := range perm {
		perm[i] = i
	}
	stream := newCoinStream(coin)
	for i := length - 1; i > 0; i-- {
		j := int(stream.next() % uint64(i+1))
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm
}

// coinStream expands a 32-byte seed into an unbounded stream of pseudorandom
// 64-bit words by hashing the seed together with an incrementing counter
// under field.Hcoin's domain tag.
type coinStream struct {
	seed    [32]byte
	counter uint64
	buf     []byte
}

func newCoinStream(seed [32]byte) *coinStream {
	return &coinStream{seed: seed}
}

func (c *coinStream) next() uint64 {
	if len(c.buf) < 8 {
		var ctr [8]byte
		binary.LittleEndian.PutUint64(ctr[:], c.counter)
		c.counter++
		c.buf = append(c.buf, field.Hcoin(append(c.seed[:], ctr[:]...))...)
	}
	v := binary.LittleEndian.Uint64(c.buf[:8])
	c.buf = c.buf[8:]
	return v
}

// Triple is a malicious-secure AND triple produced by combining a bucket of
// leaky triples: x.Bit && y.Bit == z.Bit holds with overwhelming
// probability once this combination step has succeeded.
type Triple struct {
	X, Y, Z field.BitShare
}

// LeakyTriple mirrors abit.Triple; it is redeclared here to keep this
// package's public surface independent of abit's internal naming.
type LeakyTriple struct {
	X, Y, Z field.BitShare
}

// DShare is the publicly disclosed half of a bucket member's authenticated
// d-share, the same Bit/Mac pair any authenticated bit discloses as.
type DShare = field.PartialBitShare

// LocalDShare computes this party's own authenticated share of
// d_j = y0 XOR y_j for a non-primary bucket member j, reusing
// field.BitShare.Xor so Mac and Key combine correctly alongside Bit.
func LocalDShare(primary, member LeakyTriple) field.BitShare {
	return primary.Y.Xor(member.Y)
}

// CheckConsistency verifies the peer's disclosed d-share for one non-primary
// bucket member against this party's own authenticated d-share, via the
// standard mac == key XOR (bit ? delta : 0) invariant. Any mismatch means at
// least one of the two parties fed an inconsistent triple into the bucket.
func CheckConsistency(myDShare field.BitShare, peerDisclosed DShare, delta field.Delta) error {
	if !peerDisclosed.Verify(myDShare.Key, delta) {
		return wrkerr.MacError
	}
	return nil
}

// Combine XOR-combines one bucket of B leaky triples into a single
// malicious-secure triple. The first element of the bucket is the primary:
// its y operand seeds the combined y, and every other member's x and z
// operands are XORed in, together with a d_j*x_j correction term in z
// whenever d_j = y0 XOR y_j is set, so that an adversary who corrupts only
// one bucket member's x share still cannot bias the combined triple.
//
// The caller is expected to have already permuted the pool of leaky triples
// via Permutation and sliced it into buckets of the correct Size, and to
// have verified every myDShares/peerDShares pair via CheckConsistency,
// before calling Combine once per bucket.
func Combine(bucketMembers []LeakyTriple, myDShares []field.BitShare, peerDShares []DShare) (Triple, error) {
	if len(bucketMembers) < 2 {
		return Triple{}, wrkerr.InsufficientAndShares
	}
	if len(myDShares) != len(bucketMembers)-1 || len(peerDShares) != len(bucketMembers)-1 {
		return Triple{}, wrkerr.InsufficientAndShares
	}
	primary := bucketMembers[0]
	x := primary.X
	z := primary.Z
	for i, member := range bucketMembers[1:] {
		x = x.Xor(member.X)
		z = z.Xor(member.Z)
		if myDShares[i].Bit != peerDShares[i].Bit {
			z = z.Xor(member.X)
		}
	}
	return Triple{X: x, Y: primary.Y, Z: z}, nil
}

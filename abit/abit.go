// Package abit implements the leaky authenticated-AND sub-protocols
// Π_HaAND and Π_LaAND. Given a batch of K authenticated bits already
// established by package otext, it derives, for each row, an XOR-additive
// share of a cross term between two bit values -- the building block both
// parties combine locally (once per operand ordering) to obtain a share of
// a full AND-gate product. Π_LaAND adds a commit-then-open equality check
// on top so that a cheating party cannot bias the resulting a-AND triple
// without being caught.
package abit

import (
	"crypto/rand"

	"github.com/kestrelmpc/engine/field"
	"github.com/kestrelmpc/engine/wrkerr"
)

// HashPair is the two garbled-row-style hashes one party sends per batch
// row during Π_HaAND's first flow.
type HashPair [2][field.Size]byte

func hashKey(k [field.Size]byte) [field.Size]byte {
	return field.Hkey(k)
}

// ComputeHashes runs the sending half of Π_HaAND for a batch of rows: for
// each row i, it folds the key this party holds for the peer's bit at row
// i (keysForPeerBit[i]) together with this party's own Δ and a fresh random
// mask t, plus the companion bit value yBit (a value this party already
// knows and wants multiplied in), into the pair of hashes the peer needs to
// derive its share of the cross term.
//
// t is returned alongside the hashes since the caller needs it again once
// it is time to combine the peer's own derived share back in.
func ComputeHashes(delta field.Delta, keysForPeerBit []field.Key, yBit []bool) (hashes []HashPair, t []bool, err error) {
	n := len(keysForPeerBit)
	if len(yBit) != n {
		return nil, nil, wrkerr.InsufficientAndShares
	}
	t = make([]bool, n)
	randBytes := make([]byte, (n+7)/8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, nil, err
	}
	for i := range t {
		t[i] = randBytes[i/8]&(1<<uint(i%8)) != 0
	}

	hashes = make([]HashPair, n)
	for i := 0; i < n; i++ {
		key := keysForPeerBit[i]
		h0 := hashKey(key)
		h1 := hashKey(field.Key(field.XorLabel(field.Label(key), field.Label(delta))))
		if t[i] {
			h0 = flipLSB(h0)
			h1 = flipLSB(h1)
		}
		if yBit[i] {
			h1 = flipLSB(h1)
		}
		hashes[i] = HashPair{h0, h1}
	}
	return hashes, t, nil
}

// flipLSB XORs a single 1-into the low bit of a digest, the same trick
// compute_leaky_and_hashes uses to splice a single-bit mask into a
// full-width hash output instead of allocating a whole extra word for it.
func flipLSB(h [field.Size]byte) [field.Size]byte {
	h[0] ^= 1
	return h
}

// DeriveShare runs the receiving half of Π_HaAND: given the peer's hashes,
// this party's own bit values at each row (the selector into the hash
// pair) and the macs authenticating those bits, it returns this party's
// XOR-additive share of the cross term at each row. The sender's matching
// share is simply the t value ComputeHashes returned to it directly --
// there is no further combination to apply on that side.
func DeriveShare(myBit []bool, myMac []field.Mac, peerHashes []HashPair) ([]bool, error) {
	n := len(peerHashes)
	if len(myBit) != n || len(myMac) != n {
		return nil, wrkerr.InsufficientAndShares
	}
	share := make([]bool, n)
	for i := 0; i < n; i++ {
		idx := 0
		if myBit[i] {
			idx = 1
		}
		hm := hashKey(field.Key(myMac[i]))
		isSet := (peerHashes[i][idx][0] ^ hm[0]) != 0
		for j := 1; j < field.Size && !isSet; j++ {
			isSet = (peerHashes[i][idx][j] ^ hm[j]) != 0
		}
		share[i] = isSet
	}
	return share, nil
}

// Triple is one party's share of a leaky authenticated AND triple: three
// authenticated bits x, y and z satisfying x.Bit && y.Bit == z.Bit once
// combined with the peer's shares of the same triple, modulo the leakage
// bucketing exists to remove.
type Triple struct {
	X, Y, Z field.BitShare
}

// CombineLocalProduct folds this party's own x and y bit values and the two
// cross-term shares derived from the two Π_HaAND runs (one per operand
// ordering) into this party's raw share of z = x·y. The result still needs
// to be bound to an actual authenticated bit (DeriveShare only produces a
// bare boolean) via AdjustZ before it is a proper Triple.
func CombineLocalProduct(xBit, yBit bool, crossTermXY, crossTermYX []bool) []bool {
	n := len(crossTermXY)
	out := make([]bool, n)
	for i := 0; i < n; i++ {
		out[i] = (xBit && yBit) != (crossTermXY[i] != crossTermYX[i])
	}
	return out
}

// AdjustZ rebinds a freshly drawn raw authenticated bit (zRaw, whose value
// is unrelated to the AND product just computed) to the actual product bit
// wanted, by publicly revealing the XOR difference d = want ^ zRaw.Bit and
// having both parties apply the standard authenticated-bit correction:
// d is free to disclose since zRaw's own bit carries no information before
// this step, and MAC consistency is preserved by XORing the peer's key with
// (d ? Δ : 0) wherever d is set.
func AdjustZ(zRaw field.BitShare, want bool) (adjusted field.BitShare, d bool) {
	d = zRaw.Bit != want
	adjusted = zRaw
	adjusted.Bit = want
	return adjusted, d
}

// ApplyPeerD folds in the peer's disclosed difference bit for the z-share
// it holds the key for, keeping the MAC invariant intact on this side too.
func ApplyPeerD(key field.Key, delta field.Delta, peerD bool) field.Key {
	if !peerD {
		return key
	}
	return key.XorDelta(delta)
}

// EqualityCommit is the first message of the Π_LaAND equality check: a
// fresh randomness/salt pair and its commitment, sent before either party
// reveals the values the check depends on.
type EqualityCommit struct {
	Digest []byte
}

// EqualityReveal is the second message of the Π_LaAND equality check.
type EqualityReveal struct {
	R [field.Size]byte
	S [field.Size]byte
	U [field.Size]byte
}

// CommitEquality samples fresh randomness for the equality check and
// derives the u value this party sends immediately (non-interactively,
// alongside the commitment) from its own keys, matching the "t0/t1 folded
// with the peer's x bit" construction used to cross-check the triple
// without revealing it.
func CommitEquality(kx, kz, ky field.Key, delta field.Delta, peerXBit, peerYBit, peerZBit bool) (EqualityCommit, EqualityReveal, error) {
	var r, s [field.Size]byte
	if _, err := rand.Read(r[:]); err != nil {
		return EqualityCommit{}, EqualityReveal{}, err
	}
	if _, err := rand.Read(s[:]); err != nil {
		return EqualityCommit{}, EqualityReveal{}, err
	}

	t0 := field.Hkdf(kx[:], xorKey(kz, maybeDelta(peerZBit, delta))[:])
	t1 := field.Hkdf(kx[:], xorKey(xorKey(ky, kz), maybeDelta(peerYBit != peerZBit, delta))[:])

	u := t0
	if peerXBit {
		u = t1
	}

	digest := field.Hcomm(s[:], r[:])
	return EqualityCommit{Digest: digest}, EqualityReveal{R: r, S: s, U: u}, nil
}

// CheckEquality verifies the peer's equality-check reveal against its own
// earlier commitment and the locally recomputed expectation, consuming the
// peer's u value and this party's own mac for x. A mismatch means at least
// one party deviated from the protocol while constructing this triple.
func CheckEquality(myMacX field.Mac, peerU [field.Size]byte, peerCommit EqualityCommit, peerReveal EqualityReveal) error {
	want := field.Hcomm(peerReveal.S[:], peerReveal.R[:])
	if !bytesEqual(want, peerCommit.Digest) {
		return wrkerr.MacError
	}
	hm := field.Hkey([field.Size]byte(myMacX))
	derived := xorBytes16(hm, peerU)
	if derived != peerReveal.R {
		return wrkerr.LeakyAndNotEqual
	}
	return nil
}

func xorKey(a, b field.Key) field.Key { return field.XorKey(a, b) }

func maybeDelta(bit bool, delta field.Delta) field.Key {
	if bit {
		return field.Key(delta)
	}
	return field.Key{}
}

func xorBytes16(a, b [field.Size]byte) [field.Size]byte {
	var out [field.Size]byte
	for i := range out {
		out[i] = a[i] ^ b[i]
	}
	return out
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

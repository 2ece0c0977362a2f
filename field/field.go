// Package field implements the 128-bit algebra underlying authenticated
// bits, wire masks and wire labels: MACs, keys, the global offset Delta, and
// the domain-separated hash functions used to derive them.
//
// The algebra mirrors the authenticated-bit construction of WRK17: a bit b
// held by one party is authenticated by a MAC held by that party and a key
// held by the other party, related by mac = key XOR (b ? Delta : 0), where
// Delta is the key-holder's secret global offset. Every type here is
// XOR-homomorphic, which is what lets aBits, wire masks and garbled rows
// combine linearly across the bucketing and garbling protocols.
package field

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/salsa20/salsa"
)

// K is the number of bits of computational security, and also the width in
// bits of every Mac, Key, Label and Delta value.
const K = 128

// Size is the number of bytes a Mac, Key, Label or Delta occupies on the
// wire.
const Size = K / 8

// Mac is the authentication tag attached to one party's share of an
// authenticated bit.
type Mac [Size]byte

// Key is the MAC key the other party holds for an authenticated bit.
type Key [Size]byte

// Label is a wire label, the random value assigned to one side of a wire's
// mask during preprocessing.
type Label [Size]byte

// Delta is a party's secret global free-XOR offset, used to derive the
// label/MAC for the opposite bit value from the one held directly.
type Delta [Size]byte

// XorMac returns a ^ b.
func XorMac(a, b Mac) Mac { return Mac(xor(a[:], b[:])) }

// XorKey returns a ^ b.
func XorKey(a, b Key) Key { return Key(xor(a[:], b[:])) }

// XorLabel returns a ^ b.
func XorLabel(a, b Label) Label { return Label(xor(a[:], b[:])) }

func xor(a, b []byte) [Size]byte {
	var out [Size]byte
	for i := range out {
		out[i] = a[i] ^ b[i]
	}
	return out
}

// XorDelta returns the key offset by delta, used when computing the MAC
// for the negated value of a bit.
func (k Key) XorDelta(d Delta) Key { return XorKey(k, Key(d)) }

// XorDelta returns the mac offset by delta.
func (m Mac) XorDelta(d Delta) Mac { return XorMac(m, Mac(d)) }

// BitShare is one party's share of an authenticated bit: the actual bit
// value, the MAC over that bit, and the key used to authenticate the other
// party's corresponding bit.
type BitShare struct {
	Bit bool
	Mac Mac
	Key Key
}

// Xor combines two bit shares under XOR-homomorphism.
func (b BitShare) Xor(o BitShare) BitShare {
	return BitShare{
		Bit: b.Bit != o.Bit,
		Mac: XorMac(b.Mac, o.Mac),
		Key: XorKey(b.Key, o.Key),
	}
}

// PartialBitShare is the disclosed half of an authenticated bit: its bit
// value and MAC, without the key. It is what gets sent over the wire when
// an authenticated bit is revealed to the party that does not hold it.
type PartialBitShare struct {
	Bit bool
	Mac Mac
}

// Partial drops the key from a BitShare, producing the value that is safe
// to disclose to the party holding the corresponding Key and Delta.
func (b BitShare) Partial() PartialBitShare {
	return PartialBitShare{Bit: b.Bit, Mac: b.Mac}
}

// Verify checks that a disclosed bit/MAC pair is consistent with the key and
// delta the verifying party holds: mac == key XOR (bit ? delta : 0).
func (p PartialBitShare) Verify(key Key, delta Delta) bool {
	want := key
	if p.Bit {
		want = key.XorDelta(delta)
	}
	return want == Key(p.Mac)
}

// AndTableShare is one party's share of a garbled AND-gate's four rows, one
// BitShare per combination of the two input masks.
type AndTableShare [4]BitShare

// WireMask is the preprocessing-time mask for a wire: a random label for the
// false value, plus the authenticated bit that actually hides it.
type WireMask struct {
	Label0 Label
	Bit    BitShare
}

// LabelFor returns the label corresponding to the given bit value.
func (w WireMask) LabelFor(bit bool, delta Delta) Label {
	if bit {
		return XorLabel(w.Label0, Label(delta))
	}
	return w.Label0
}

// Xor combines two wire masks under XOR-homomorphism (used for free-XOR
// gates).
func (w WireMask) Xor(o WireMask) WireMask {
	return WireMask{
		Label0: XorLabel(w.Label0, o.Label0),
		Bit:    w.Bit.Xor(o.Bit),
	}
}

// Not returns the wire mask for the logical negation of this wire, which
// under free-XOR is simply the mask XORed with delta (free-NOT).
func (w WireMask) Not(delta Delta) WireMask {
	return WireMask{
		Label0: XorLabel(w.Label0, Label(delta)),
		Bit:    w.Bit,
	}
}

// WireState is the per-wire state an evaluator tracks once it starts
// consuming a circuit: the label it holds, the masked bit it has observed,
// and the combined AND table for this wire if it is an AND-gate output.
type WireState struct {
	Label        Label
	MaskedValue  bool
	MyAndTable   AndTableShare
	OtherAndTable AndTableShare
}

// --- Hashing ---
//
// Every domain-separated hash used by the protocol is built on blake2b's
// variable-output-length mode, keyed by a fixed domain tag so that outputs
// under different tags never collide even when fed the same bytes. Hkey,
// Hkeys and Hkdf share the same tag.
// This mirrors utils.Generichash's port of libsodium's crypto_generichash
// (itself a BLAKE2b wrapper) from the ambient crypto helpers this package's
// authors already relied on elsewhere in the stack.

func genericHash(length int, domain byte, parts ...[]byte) []byte {
	h, err := blake2b.New(length, []byte{domain})
	if err != nil {
		panic("field: blake2b.New failed: " + err.Error())
	}
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

const (
	domainRow   byte = 'R'
	domainComm  byte = 'C'
	domainKdf   byte = 'K'
	domainCoin  byte = 'T'
)

// Hrow derives the garbled-row keying material for an AND gate from the two
// input labels and the (gate index, row index) coordinates, producing a
// fresh authenticated bit share: mac, key and bit are all taken from
// independent slices of the hash output so that no two of them leak
// information about each other.
func Hrow(labelX, labelY Label, gate, row uint32) BitShare {
	var idx [8]byte
	binary.LittleEndian.PutUint32(idx[0:4], gate)
	binary.LittleEndian.PutUint32(idx[4:8], row)
	out := genericHash(Size*2+1, domainRow, labelX[:], labelY[:], idx[:])
	var mac Mac
	var key Key
	copy(mac[:], out[0:Size])
	copy(key[:], out[Size:2*Size])
	bit := out[2*Size]&1 == 1
	return BitShare{Bit: bit, Mac: mac, Key: key}
}

// Hkey hashes a single key/mac into a one-time pad of Size bytes, used by
// the leaky-AND sub-protocol to mask shares before they are exchanged.
func Hkey(k [Size]byte) [Size]byte {
	out := genericHash(Size, domainKdf, k[:])
	var r [Size]byte
	copy(r[:], out)
	return r
}

// Hkeys hashes a pair of keys together, used when both operand keys for a
// leaky AND must be folded into one pad.
func Hkeys(a, b [Size]byte) [Size]byte {
	out := genericHash(Size, domainKdf, a[:], b[:])
	var r [Size]byte
	copy(r[:], out)
	return r
}

// Hkdf hashes an arbitrary number of byte strings into a single Size-byte
// key, used to derive base-OT encryption keys from group elements.
func Hkdf(parts ...[]byte) [Size]byte {
	out := genericHash(Size, domainKdf, parts...)
	var r [Size]byte
	copy(r[:], out)
	return r
}

// Hcomm computes a binding, hiding commitment over arbitrary data plus a
// random salt, used by the commit-then-open sub-protocols (coin tossing,
// leaky-AND equality checks).
func Hcomm(salt []byte, data ...[]byte) []byte {
	return genericHash(32, domainComm, append([][]byte{salt}, data...)...)
}

// Hcoin hashes its input under its own domain tag into a 32-byte digest;
// package bucket uses it to expand the tossed coin into the permutation
// stream.
func Hcoin(share []byte) []byte {
	return genericHash(32, domainCoin, share)
}

// RandomOraclePermute applies a fixed-key Salsa20 permutation to a 16-byte
// block, tagged by an index t. It is the same "random oracle via fixed-key
// stream cipher" trick the ambient crypto helpers use elsewhere in this
// stack. No other package of this module calls it.
func RandomOraclePermute(msg [16]byte, t uint32) [16]byte {
	var fixedKey [32]byte
	for i := 0; i < 28; i++ {
		fixedKey[i] = byte(i + 1)
	}
	binary.BigEndian.PutUint32(fixedKey[28:32], t)
	var out [16]byte
	salsa.XORKeyStream(out[:], out[:], &msg, &fixedKey)
	return out
}

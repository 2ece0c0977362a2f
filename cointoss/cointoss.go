// Package cointoss implements commit-then-open coin tossing: both parties
// contribute a random share, commit to it first, then reveal, and combine
// the two shares by XOR once both commitments are checked. This gives both
// parties a jointly random value neither could have biased unilaterally,
// used to seed the bucketing permutation in package bucket.
package cointoss

import (
	"crypto/rand"

	"github.com/kestrelmpc/engine/field"
	"github.com/kestrelmpc/engine/wrkerr"
)

// Len is the size in bytes of a coin-toss share.
const Len = 32

// Share is one party's half of a coin toss, kept secret until Commitment's
// matching Reveal message has been sent.
type Share struct {
	value [Len]byte
	salt  [Len]byte
}

// Commitment is the first message sent in a coin toss: a binding, hiding
// digest of the sender's share.
type Commitment struct {
	Digest []byte
}

// Reveal is the second message sent in a coin toss: the share itself, which
// the peer checks against the previously sent Commitment.
type Reveal struct {
	Value [Len]byte
	Salt  [Len]byte
}

// Init samples a fresh share and returns it along with the commitment
// message to send to the peer.
func Init() (Share, Commitment, error) {
	var s Share
	if _, err := rand.Read(s.value[:]); err != nil {
		return Share{}, Commitment{}, err
	}
	if _, err := rand.Read(s.salt[:]); err != nil {
		return Share{}, Commitment{}, err
	}
	return s, Commitment{Digest: field.Hcomm(s.salt[:], s.value[:])}, nil
}

// Serialize turns a share into the Reveal message sent once both
// commitments have been exchanged.
func (s Share) Serialize() Reveal {
	return Reveal{Value: s.value, Salt: s.salt}
}

// Finish checks the peer's Reveal message against the commitment it sent
// earlier, and if it matches, XORs the two shares into the final coin.
func Finish(mine Share, peerCommitment Commitment, peerReveal Reveal) ([Len]byte, error) {
	want := field.Hcomm(peerReveal.Salt[:], peerReveal.Value[:])
	if !bytesEqual(want, peerCommitment.Digest) {
		return [Len]byte{}, wrkerr.MacError
	}
	var coin [Len]byte
	for i := range coin {
		coin[i] = mine.value[i] ^ peerReveal.Value[i]
	}
	return coin, nil
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

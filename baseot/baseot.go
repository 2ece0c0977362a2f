// Package baseot implements the Chou-Orlandi "simplest OT" 1-of-2 oblivious
// transfer protocol over the Ristretto255 group, as specified by ABKLX21.
// It is used only to bootstrap the K=128 base OTs that package otext then
// expands into however many vectorized OTs the rest of the protocol needs;
// it is never called directly by the online protocol.
package baseot

import (
	"crypto/rand"
	"io"

	ristretto "github.com/bwesterb/go-ristretto"

	"github.com/kestrelmpc/engine/field"
	"github.com/kestrelmpc/engine/wrkerr"
)

// Init is the receiver's first message: a group element encoding its
// choice bit.
type Init struct {
	U [32]byte
}

// Reply is the sender's response: the two messages, each masked by a key
// only the receiver holding the matching choice bit can reconstruct.
type Reply struct {
	Ciphertexts [2][field.Size]byte
}

// Sender holds a base OT sender's ephemeral state between the creation of
// the protocol and the processing of the receiver's Init message.
type Sender struct {
	private   ristretto.Scalar
	pub       ristretto.Point
	pubSquared ristretto.Point
}

// NewSender samples a fresh ephemeral keypair for one base OT instance.
func NewSender() (*Sender, error) {
	s := &Sender{}
	if err := randomScalar(&s.private); err != nil {
		return nil, err
	}
	s.pub.ScalarMultBase(&s.private)
	s.pubSquared.ScalarMult(&s.pub, &s.private)
	return s, nil
}

// PubKey returns the sender's public key A, which the receiver needs before
// it can construct its Init message.
func (s *Sender) PubKey() [32]byte {
	var out [32]byte
	copy(out[:], s.pub.Bytes())
	return out
}

// Send completes the sender's side of a base OT: given the receiver's Init
// message and the two messages being transferred, it derives two one-time
// pads (only one of which the receiver can reconstruct) and returns the two
// masked messages.
func (s *Sender) Send(init Init, m0, m1 [field.Size]byte) (Reply, error) {
	var u ristretto.Point
	if _, ok := u.SetBytes(&init.U); !ok {
		return Reply{}, wrkerr.OtInitDeserializationError
	}

	var uTimesPriv, uTimesPrivMinusSquared ristretto.Point
	uTimesPriv.ScalarMult(&u, &s.private)
	uTimesPrivMinusSquared.Sub(&uTimesPriv, &s.pubSquared)

	pubBytes := s.pub.Bytes()
	pad0 := field.Hkdf(pubBytes, uTimesPriv.Bytes())
	pad1 := field.Hkdf(pubBytes, uTimesPrivMinusSquared.Bytes())

	var reply Reply
	reply.Ciphertexts[0] = xor16(pad0, m0)
	reply.Ciphertexts[1] = xor16(pad1, m1)
	return reply, nil
}

// Receiver holds a base OT receiver's ephemeral state between sending its
// Init message and processing the sender's Reply.
type Receiver struct {
	blinding ristretto.Scalar
	choice   bool
	senderPub ristretto.Point
}

// NewReceiver starts a base OT as the receiver of the given choice bit,
// against the sender's advertised public key.
func NewReceiver(senderPubKey [32]byte, choice bool) (*Receiver, Init, error) {
	r := &Receiver{choice: choice}
	if _, ok := r.senderPub.SetBytes(&senderPubKey); !ok {
		return nil, Init{}, wrkerr.OtInitDeserializationError
	}
	if err := randomScalar(&r.blinding); err != nil {
		return nil, Init{}, err
	}

	var myPub ristretto.Point
	myPub.ScalarMultBase(&r.blinding)

	chosen := myPub
	if choice {
		chosen.Add(&r.senderPub, &myPub)
	}

	var init Init
	copy(init.U[:], chosen.Bytes())
	return r, init, nil
}

// Recv recovers the one message out of the sender's Reply that corresponds
// to the receiver's choice bit.
func (r *Receiver) Recv(reply Reply) [field.Size]byte {
	var aTimesBlind ristretto.Point
	aTimesBlind.ScalarMult(&r.senderPub, &r.blinding)

	pubBytes := r.senderPub.Bytes()
	pad := field.Hkdf(pubBytes, aTimesBlind.Bytes())

	idx := 0
	if r.choice {
		idx = 1
	}
	return xor16(pad, reply.Ciphertexts[idx])
}

func randomScalar(s *ristretto.Scalar) error {
	var buf [64]byte
	if _, err := io.ReadFull(rand.Reader, buf[:]); err != nil {
		return err
	}
	s.SetReduced(&buf)
	return nil
}

func xor16(a, b [field.Size]byte) [field.Size]byte {
	var out [field.Size]byte
	for i := range out {
		out[i] = a[i] ^ b[i]
	}
	return out
}
